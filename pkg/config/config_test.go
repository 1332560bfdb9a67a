/*
Copyright 2019 The MayaData Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileAtDefaultPathFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(DefaultPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BootstrapConfigMap == "" {
		t.Fatal("expected built-in default BootstrapConfigMap, got empty string")
	}
}

func TestLoad_MissingFileAtNonDefaultPathIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does-not-exist.yaml")

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a missing non-default config path")
	}
}

func TestLoad_ParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "bootstrapConfigMap: custom-bootstrapper\nsupportedToolchains:\n  - python\n"
	if err := ioutil.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BootstrapConfigMap != "custom-bootstrapper" {
		t.Fatalf("BootstrapConfigMap = %q, want custom-bootstrapper", cfg.BootstrapConfigMap)
	}
	if len(cfg.SupportedToolchains) != 1 || cfg.SupportedToolchains[0] != "python" {
		t.Fatalf("SupportedToolchains = %v", cfg.SupportedToolchains)
	}
}

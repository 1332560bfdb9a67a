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

// Package config loads operator-wide settings that don't belong on any
// one custom resource: the bootstrapper configmap name, the default
// toolchain image, and the toolchain registry override (spec §4.9). The
// CPU/memory request floors are fixed in package modeltraining and are
// not read from this file.
package config

import (
	"io/ioutil"
	"os"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// DefaultPath is used when the operator is started without -config-path.
const DefaultPath = "/etc/legion-operator/config.yaml"

// Config is the operator's top-level settings document.
type Config struct {
	// BootstrapConfigMap names the ConfigMap mounted into every training
	// pod at /bootup, carrying the bootstrapper script.
	BootstrapConfigMap string `json:"bootstrapConfigMap"`

	// DefaultToolchainImage fills in a ModelTraining's container image
	// when its spec.image is left empty.
	DefaultToolchainImage string `json:"defaultToolchainImage"`

	// SupportedToolchains overrides the compiled-in toolchain registry,
	// if set.
	SupportedToolchains []string `json:"supportedToolchains,omitempty"`
}

// defaults mirrors the built-in values used when no config file is
// present at the default path.
func defaults() *Config {
	return &Config{
		BootstrapConfigMap:    "legion-bootstrapper",
		DefaultToolchainImage: "legion/python-toolchain:latest",
	}
}

// Load reads and parses the config file at path. A missing file at
// DefaultPath falls back to built-in defaults; a missing file at any
// other explicitly requested path is fatal, per spec §4.9/§7.
func Load(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return defaults(), nil
		}
		return nil, errors.Wrapf(err, "reading config file %q", path)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %q", path)
	}
	return cfg, nil
}

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

package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func testLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("zap.NewDevelopment: %v", err)
	}
	return logger.Sugar()
}

func clearBootstrapEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{envGitRepoURI, envGitRepoRef, envGitSubFolder, envGitBin, envPythonBinary} {
		old, had := os.LookupEnv(name)
		_ = os.Unsetenv(name)
		t.Cleanup(func() {
			if had {
				_ = os.Setenv(name, old)
			}
		})
	}
}

func TestCheckout_MissingRepoURIFailsWithExitCode2(t *testing.T) {
	clearBootstrapEnv(t)

	_, err := checkout(testLogger(t))
	if err == nil {
		t.Fatal("expected an error when GIT_CHECKOUT_REPO_URI is unset")
	}
	stepErr, ok := err.(*StepError)
	if !ok {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if stepErr.ExitCode != 2 {
		t.Fatalf("exit code = %d, want 2", stepErr.ExitCode)
	}
	if !strings.Contains(stepErr.Message, envGitRepoURI) {
		t.Fatalf("message %q does not name %s", stepErr.Message, envGitRepoURI)
	}
}

func TestCheckout_MissingRepoRefFailsWithExitCode2(t *testing.T) {
	clearBootstrapEnv(t)
	_ = os.Setenv(envGitRepoURI, "git@host:x")

	_, err := checkout(testLogger(t))
	if err == nil {
		t.Fatal("expected an error when GIT_CHECKOUT_REPO_REF is unset")
	}
	if err.(*StepError).ExitCode != 2 {
		t.Fatalf("exit code = %d, want 2", err.(*StepError).ExitCode)
	}
}

func TestCheckout_ExistingTargetFolderFails(t *testing.T) {
	clearBootstrapEnv(t)
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	if err := os.Mkdir(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	_ = os.Setenv(envGitRepoURI, "git@host:x")
	_ = os.Setenv(envGitRepoRef, "main")

	_, err = checkout(testLogger(t))
	if err == nil {
		t.Fatal("expected an error when the target folder already exists")
	}
	if err.(*StepError).ExitCode != 2 {
		t.Fatalf("exit code = %d, want 2", err.(*StepError).ExitCode)
	}
}

func TestTrain_UnsupportedExtensionFailsWithExitCode3(t *testing.T) {
	dir := t.TempDir()
	entrypoint := "model.R"
	if err := os.WriteFile(filepath.Join(dir, entrypoint), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_ = os.Setenv(envPythonBinary, "/usr/bin/python3")

	err := train(testLogger(t), "python", entrypoint, dir)
	if err == nil {
		t.Fatal("expected an error for an unsupported entrypoint extension")
	}
	if err.(*StepError).ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", err.(*StepError).ExitCode)
	}
}

func TestTrain_UnknownToolchainFailsWithExitCode3(t *testing.T) {
	dir := t.TempDir()
	err := train(testLogger(t), "r", "model.R", dir)
	if err == nil {
		t.Fatal("expected an error for an unknown toolchain")
	}
	if err.(*StepError).ExitCode != 3 {
		t.Fatalf("exit code = %d, want 3", err.(*StepError).ExitCode)
	}
}

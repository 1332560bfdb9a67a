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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Environment variable names in the bootstrap contract (spec §4.7).
const (
	envGitRepoURI    = "GIT_CHECKOUT_REPO_URI"
	envGitRepoRef    = "GIT_CHECKOUT_REPO_REF"
	envGitSubFolder  = "GIT_CHECKOUT_SUB_FOLDER"
	envGitBin        = "GIT_BIN"
	envPythonBinary  = "PYTHON_INTERPRETER"

	defaultSubFolder = "src"
)

// checkout clones GIT_CHECKOUT_REPO_URI into ./<GIT_CHECKOUT_SUB_FOLDER>
// (default "src") and hard-resets it to GIT_CHECKOUT_REPO_REF. Returns
// the checked-out directory.
func checkout(logger *zap.SugaredLogger) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", CannotFetchSourceCode(err.Error())
	}

	repoURI := os.Getenv(envGitRepoURI)
	if repoURI == "" {
		return "", CannotFetchSourceCode(fmt.Sprintf("%s is unset", envGitRepoURI))
	}
	repoRef := os.Getenv(envGitRepoRef)
	if repoRef == "" {
		return "", CannotFetchSourceCode(fmt.Sprintf("%s is unset", envGitRepoRef))
	}
	subFolder := os.Getenv(envGitSubFolder)
	if subFolder == "" {
		subFolder = defaultSubFolder
	}
	targetFolder := filepath.Join(cwd, subFolder)
	if _, err := os.Stat(targetFolder); err == nil {
		return "", CannotFetchSourceCode("target folder for repository already exists")
	}
	gitBin := os.Getenv(envGitBin)
	if gitBin == "" {
		return "", CannotFetchSourceCode(fmt.Sprintf("%s is unset", envGitBin))
	}

	fmt.Printf("Checking out repo %s to folder %s\n", repoURI, targetFolder)

	clone, err := runCommand(logger, gitBin, []string{"clone", "-n", repoURI, targetFolder}, cwd)
	if err != nil {
		return "", CannotFetchSourceCode(err.Error())
	}
	if clone.ExitCode != 0 {
		return "", CannotFetchSourceCode(fmt.Sprintf("git clone failed with exit code %d", clone.ExitCode))
	}

	reset, err := runCommand(logger, gitBin, []string{"reset", "--hard", repoRef}, targetFolder)
	if err != nil {
		return "", CannotFetchSourceCode(err.Error())
	}
	if reset.ExitCode != 0 {
		return "", CannotFetchSourceCode(fmt.Sprintf("git reset failed with exit code %d", reset.ExitCode))
	}

	return targetFolder, nil
}

// train dispatches on the entrypoint's extension: a notebook is executed
// via jupyter nbconvert into nb-result.html, a .py/.pyc file is run
// through PYTHON_INTERPRETER, anything else fails.
func train(logger *zap.SugaredLogger, toolchain, entrypoint string, sourceDir string) error {
	if toolchain != "python" {
		return CannotBuildModel(fmt.Sprintf("unknown toolchain name: %s", toolchain))
	}

	entrypointPath := filepath.Join(sourceDir, entrypoint)
	if _, err := os.Stat(entrypointPath); err != nil {
		return CannotBuildModel(fmt.Sprintf("cannot find file %s in directory %s", entrypoint, sourceDir))
	}

	interpreter := os.Getenv(envPythonBinary)
	ext := strings.ToLower(filepath.Ext(entrypointPath))

	var name string
	var args []string
	switch ext {
	case ".ipynb":
		nbResult := filepath.Join(sourceDir, "nb-result.html")
		name = "jupyter"
		args = []string{"nbconvert", "--to", "html", "--execute", entrypointPath, "--output", nbResult}
	case ".py", ".pyc":
		if interpreter == "" {
			return CannotBuildModel(fmt.Sprintf("%s is unset", envPythonBinary))
		}
		name = interpreter
		args = []string{entrypointPath}
	default:
		return CannotBuildModel(fmt.Sprintf("unsupported extension: %s", ext))
	}

	result, err := runCommand(logger, name, args, sourceDir)
	if err != nil {
		return CannotBuildModel(err.Error())
	}
	if result.ExitCode != 0 {
		return CannotBuildModel(fmt.Sprintf("model training returned %d", result.ExitCode))
	}
	return nil
}

// capture invokes the external builder to snapshot the working
// directory as a container image. Per spec §4.7 this is a distinct
// failure stage (exit 4) from train (exit 3), even though the source
// this was distilled from mapped both to the same exit code.
func capture(logger *zap.SugaredLogger, cwd string) error {
	result, err := runCommand(logger, "legionctl", []string{"build"}, cwd)
	if err != nil {
		return CannotPushReadyModel(err.Error())
	}
	if result.ExitCode != 0 {
		return CannotPushReadyModel(fmt.Sprintf("legionctl build returned %d", result.ExitCode))
	}
	return nil
}

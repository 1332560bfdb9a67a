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

	"go.uber.org/zap"
)

// Args are the parsed bootstrapper CLI arguments (spec §6): a toolchain
// name, the repo-relative entrypoint, and any trailing arguments. Run
// does not pass Arguments on to the entrypoint; the train stage runs it
// with no extra arguments.
type Args struct {
	Toolchain  string
	EntryPoint string
	Arguments  []string
}

// Run drives the checkout -> train -> capture state machine. Stage
// boundaries are announced on stdout; any stage failure is returned as
// a *StepError carrying the exit code the caller should terminate with.
// A non-StepError failure is wrapped as GeneralFailure (exit 5).
func Run(logger *zap.SugaredLogger, args Args) error {
	err := func() error {
		outputStage("Checking out source code")
		sourceDir, err := checkout(logger)
		if err != nil {
			return err
		}

		outputStage("Training code")
		if err := train(logger, args.Toolchain, args.EntryPoint, sourceDir); err != nil {
			return err
		}

		outputStage("Capturing code")
		return capture(logger, sourceDir)
	}()

	if err == nil {
		return nil
	}
	if _, ok := err.(*StepError); ok {
		return err
	}
	return GeneralFailure(err.Error())
}

// outputStage announces a stage boundary on stdout, matching the
// original bootstrapper's scrapeable banner format.
func outputStage(name string) {
	const border = "====="
	fmt.Printf("%s Starting stage: %s %s\n", border, name, border)
}

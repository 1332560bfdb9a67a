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

// Package bootstrap implements the in-pod checkout/train/capture state
// machine (spec §4.7) that runs inside every training pod.
package bootstrap

import "fmt"

// StepError is a stage failure carrying the exit code the process
// should terminate with, mirroring the original FailedStep hierarchy.
type StepError struct {
	Group    string
	ExitCode int
	Message  string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("exit code: %d (%s): %s", e.ExitCode, e.Group, e.Message)
}

// CannotFetchSourceCode wraps a checkout-stage failure. Exit code 2.
func CannotFetchSourceCode(message string) *StepError {
	return &StepError{Group: "cannot-fetch-source-code", ExitCode: 2, Message: message}
}

// CannotBuildModel wraps a train-stage failure. Exit code 3.
func CannotBuildModel(message string) *StepError {
	return &StepError{Group: "cannot-build-model", ExitCode: 3, Message: message}
}

// CannotPushReadyModel wraps a capture-stage failure. Exit code 4.
func CannotPushReadyModel(message string) *StepError {
	return &StepError{Group: "cannot-push-model", ExitCode: 4, Message: message}
}

// GeneralFailure wraps any unanticipated failure. Exit code 5.
func GeneralFailure(message string) *StepError {
	return &StepError{Group: "general-failure", ExitCode: 5, Message: message}
}

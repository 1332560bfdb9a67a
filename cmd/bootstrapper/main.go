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

// Command bootstrapper runs inside a training pod, implementing the
// checkout -> train -> capture state machine described in spec §4.7.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/legion-platform/legion-operator/pkg/bootstrap"
)

func main() {
	cmd := newBootstrapperCmd()
	if err := cmd.Execute(); err != nil {
		// cobra prints nothing itself (SilenceUsage/SilenceErrors); preserve
		// the bootstrap exit-code contract for a *bootstrap.StepError,
		// printing its message, otherwise exit 5.
		if step, ok := err.(*bootstrap.StepError); ok {
			fmt.Fprintln(os.Stderr, step.Message)
			os.Exit(step.ExitCode)
		}
		os.Exit(5)
	}
}

func newBootstrapperCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrapper <toolchain> <entry_point> [args...]",
		Short: "Run the training-pod bootstrap protocol",
		Args:  cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return bootstrap.GeneralFailure(err.Error())
			}
			defer logger.Sync() // nolint:errcheck

			return bootstrap.Run(logger.Sugar(), bootstrap.Args{
				Toolchain:  args[0],
				EntryPoint: args[1],
				Arguments:  args[2:],
			})
		},
	}
	return cmd
}

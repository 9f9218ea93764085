/*
Copyright 2026 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"k8s.io/gcovage/cmd/junit"
	"k8s.io/gcovage/cmd/linecov"
	"k8s.io/gcovage/cmd/profile"
	"k8s.io/gcovage/cmd/summary"
)

var rootCommand = &cobra.Command{
	Use:           "gcovage",
	Short:         "gcovage is a tool for reading GCC coverage files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func run() error {
	rootCommand.AddCommand(linecov.MakeCommand())
	rootCommand.AddCommand(summary.MakeCommand())
	rootCommand.AddCommand(junit.MakeCommand())
	rootCommand.AddCommand(profile.MakeCommand())
	return rootCommand.Execute()
}

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("Command failed.")
		os.Exit(1)
	}
}

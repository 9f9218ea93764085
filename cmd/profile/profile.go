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

package profile

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/gcovage/pkg/flagutil"
	"k8s.io/gcovage/pkg/profile"
)

type flags struct {
	batch      flagutil.BatchOptions
	outputFile string
}

// AddFlags registers the profile flags on fs.
func (f *flags) AddFlags(fs *pflag.FlagSet) {
	f.batch.AddFlags(fs)
	fs.StringVarP(&f.outputFile, "output", "o", "-", "output file")
}

// MakeCommand returns a `profile` command.
func MakeCommand() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Convert the line coverage of a build tree to a Go coverage profile.",
		Long: `Convert the line coverage of a build tree to a Go coverage profile.
Each executable line becomes a one-statement block, so the result can be read by
go tool cover and by gopherage.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags, cmd)
		},
	}
	flags.AddFlags(cmd.Flags())
	return cmd
}

func run(flags *flags, cmd *cobra.Command) error {
	report, err := flags.batch.Run(cmd.Context(), nil)
	if err != nil {
		return err
	}
	profiles := profile.FromLineVectors(report.Result.Lines, report.Config.DisplayName)
	var file io.Writer = cmd.OutOrStdout()
	if flags.outputFile != "-" {
		f, err := os.Create(flags.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer f.Close()
		file = f
	}
	if err := profile.Dump(profiles, file); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

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

package junit

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/gcovage/pkg/flagutil"
	"k8s.io/gcovage/pkg/junit"
)

type flags struct {
	batch      flagutil.BatchOptions
	outputFile string
}

// AddFlags registers the junit flags on fs.
func (f *flags) AddFlags(fs *pflag.FlagSet) {
	f.batch.AddFlags(fs)
	fs.StringVarP(&f.outputFile, "output", "o", "-", "output file")
}

// MakeCommand returns a `junit` command.
func MakeCommand() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:   "junit",
		Short: "Summarize the line coverage of a build tree in junit xml format.",
		Long: `Summarize the line coverage of a build tree in junit xml format.
Summary done at per-file and per-directory level. Any coverage below the threshold will be marked
with a <failure> tag in the xml produced.`,
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
	var file io.Writer = cmd.OutOrStdout()
	if flags.outputFile != "-" {
		f, err := os.Create(flags.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer f.Close()
		file = f
	}
	if err := junit.Write(file, report.Coverage, report.Config.Threshold); err != nil {
		return fmt.Errorf("failed to write xml: %w", err)
	}
	return nil
}

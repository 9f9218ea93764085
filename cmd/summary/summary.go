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

package summary

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/gcovage/pkg/flagutil"
)

type flags struct {
	batch     flagutil.BatchOptions
	functions bool
	failLow   bool
}

// AddFlags registers the summary flags on fs.
func (f *flags) AddFlags(fs *pflag.FlagSet) {
	f.batch.AddFlags(fs)
	fs.BoolVar(&f.functions, "functions", false, "also print per-function call and block counts")
	fs.BoolVar(&f.failLow, "fail-below-threshold", false, "exit with an error if the overall coverage is below the threshold")
}

// MakeCommand returns a `summary` command.
func MakeCommand() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize the line coverage of a build tree.",
		Long: `Summarize the line coverage of a build tree.
Every .gcno file under --root is paired with its .gcda file; line coverage is
merged per source file and printed with the overall total.`,
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
	out := cmd.OutOrStdout()
	for _, c := range report.Coverage.Group {
		if _, err := fmt.Fprintln(out, c.String()); err != nil {
			return err
		}
	}
	overall := report.Coverage.Coverage
	overall.Name = "OVERALL"
	if _, err := fmt.Fprintln(out, overall.String()); err != nil {
		return err
	}
	if flags.functions {
		if err := writeFunctions(out, report); err != nil {
			return err
		}
	}
	if flags.failLow && overall.IsCoverageLow(report.Config.Threshold) {
		return fmt.Errorf("coverage %s%% is below the threshold of %.1f%%", overall.Percentage(), report.Config.Threshold*100)
	}
	return nil
}

func writeFunctions(out io.Writer, report *flagutil.Report) error {
	for _, f := range report.Result.Functions {
		executed := float32(1)
		if f.Blocks > 0 {
			executed = float32(f.BlocksExecuted) / float32(f.Blocks)
		}
		if _, err := fmt.Fprintf(out, "function %s (%s:%d) called %d blocks executed %.1f%%\n",
			f.Name, report.Config.DisplayName(f.SourceFile), f.StartLine, f.Calls, executed*100); err != nil {
			return err
		}
	}
	return nil
}

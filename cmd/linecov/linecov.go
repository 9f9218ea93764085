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

package linecov

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"k8s.io/gcovage/pkg/flagutil"
	"k8s.io/gcovage/pkg/gcov"
	"k8s.io/gcovage/pkg/logrusutil"
	"k8s.io/gcovage/pkg/session"
)

type flags struct {
	graph      string
	counters   string
	source     string
	outputFile string
	format     string
	log        logrusutil.Options
}

// AddFlags registers the linecov flags on fs.
func (f *flags) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.graph, "gcno", "", "path to the .gcno file")
	fs.StringVar(&f.counters, "gcda", "", "path to the .gcda file (default: the .gcno path with a .gcda extension)")
	fs.StringVar(&f.source, "source", "", "only report this source file")
	fs.StringVarP(&f.outputFile, "output", "o", "-", "output file")
	fs.StringVar(&f.format, "format", "text", "output format (text or json)")
	f.log.AddFlags(fs)
}

func (f *flags) validate() error {
	if f.graph == "" {
		return errors.New("--gcno is required")
	}
	if f.format != "text" && f.format != "json" {
		return fmt.Errorf("unknown format %q", f.format)
	}
	if f.counters == "" {
		f.counters = strings.TrimSuffix(f.graph, ".gcno") + ".gcda"
	}
	return nil
}

// MakeCommand returns a `linecov` command.
func MakeCommand() *cobra.Command {
	flags := &flags{}
	cmd := &cobra.Command{
		Use:   "linecov",
		Short: "Print the line coverage of one compilation unit.",
		Long: `Print the line coverage of one compilation unit.
Decodes a .gcno/.gcda pair, reconstructs every block count and prints the
execution count of each line of the unit's source files, or of --source only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags, cmd.OutOrStdout())
		},
	}
	flags.AddFlags(cmd.Flags())
	return cmd
}

type fileCoverage struct {
	Source       string          `json:"source"`
	Lines        gcov.LineVector `json:"lines"`
	Instrumented int             `json:"instrumented"`
	Covered      int             `json:"covered"`
}

func run(flags *flags, stdout io.Writer) error {
	if err := flags.validate(); err != nil {
		return err
	}
	log, err := flags.log.Logger(flagutil.Component)
	if err != nil {
		return err
	}
	loader, err := session.NewLoader(1, session.Options{Log: log})
	if err != nil {
		return err
	}
	unit, err := loader.Load(flags.graph, flags.counters)
	if err != nil {
		return err
	}

	var files []fileCoverage
	if flags.source != "" {
		files = append(files, newFileCoverage(flags.source, gcov.ProjectLines(unit, flags.source)))
	} else {
		for source, v := range gcov.ProjectAll(unit) {
			files = append(files, newFileCoverage(source, v))
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Source < files[j].Source })
	}

	var out io.Writer = stdout
	if flags.outputFile != "-" {
		file, err := os.Create(flags.outputFile)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer file.Close()
		out = file
	}
	if flags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(files)
	}
	for _, f := range files {
		if err := writeText(out, f); err != nil {
			return err
		}
	}
	return nil
}

func newFileCoverage(source string, v gcov.LineVector) fileCoverage {
	if v == nil {
		v = gcov.LineVector{}
	}
	instrumented, covered := gcov.Stats(v)
	return fileCoverage{Source: source, Lines: v, Instrumented: instrumented, Covered: covered}
}

// writeText prints one line per source line in the layout of gcov's
// annotated output: "-" for lines without code and "#####" for lines never
// executed.
func writeText(w io.Writer, f fileCoverage) error {
	if _, err := fmt.Fprintf(w, "%9s:%5d:Source:%s\n", "-", 0, f.Source); err != nil {
		return err
	}
	for i, count := range f.Lines {
		var mark string
		switch {
		case count == gcov.NotExecutable:
			mark = "-"
		case count == 0:
			mark = "#####"
		default:
			mark = fmt.Sprint(count)
		}
		if _, err := fmt.Fprintf(w, "%9s:%5d\n", mark, i+1); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Lines executed: %d of %d\n", f.Covered, f.Instrumented)
	return err
}

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

package flagutil

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/pflag"

	"k8s.io/gcovage/pkg/gcov/gcovtest"
)

func parse(t *testing.T, args ...string) *BatchOptions {
	t.Helper()
	o := &BatchOptions{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return o
}

func TestConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcovage.yaml")
	if err := os.WriteFile(path, []byte("threshold: 0.5\nconcurrency: 3\ncounters_dir: /from/file\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	testCases := []struct {
		name            string
		args            []string
		expectedThresh  float32
		expectedConc    int
		expectedCounter string
		expectedErr     bool
	}{
		{
			name:           "defaults",
			expectedThresh: .8,
			expectedConc:   4,
		},
		{
			name:            "file values",
			args:            []string{"--config", path},
			expectedThresh:  .5,
			expectedConc:    3,
			expectedCounter: "/from/file",
		},
		{
			name:            "flags override the file",
			args:            []string{"--config", path, "-t", "0.9", "--counters-dir", "/from/flag"},
			expectedThresh:  .9,
			expectedConc:    3,
			expectedCounter: "/from/flag",
		},
		{
			name:        "invalid threshold",
			args:        []string{"--threshold", "2"},
			expectedErr: true,
		},
		{
			name:        "missing file",
			args:        []string{"--config", path + ".missing"},
			expectedErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := parse(t, tc.args...).Config()
			if tc.expectedErr {
				if err == nil {
					t.Fatal("expected an error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Threshold != tc.expectedThresh || cfg.Concurrency != tc.expectedConc || cfg.CountersDir != tc.expectedCounter {
				t.Errorf("expected threshold=%v concurrency=%d counters_dir=%q, got %v, %d, %q",
					tc.expectedThresh, tc.expectedConc, tc.expectedCounter, cfg.Threshold, cfg.Concurrency, cfg.CountersDir)
			}
		})
	}
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	sample := gcovtest.Sample()
	if err := os.WriteFile(filepath.Join(root, "sample.gcno"), sample.Graph(binary.LittleEndian), 0644); err != nil {
		t.Fatalf("failed to write graph: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sample.gcda"), sample.Counters(binary.LittleEndian), 0644); err != nil {
		t.Fatalf("failed to write counters: %v", err)
	}
	metricsFile := filepath.Join(t.TempDir(), "metrics.prom")

	log, _ := logrustest.NewNullLogger()
	report, err := parse(t, "--root", root, "--metrics-file", metricsFile).Run(context.Background(), log)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Coverage.NumAllLines != 18 || report.Coverage.NumCoveredLines != 17 {
		t.Errorf("expected 17 of 18 lines covered, got %d of %d", report.Coverage.NumCoveredLines, report.Coverage.NumAllLines)
	}
	b, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	for _, want := range []string{
		`gcovage_units_processed_total{result="success"} 1`,
		"gcovage_lines_covered 17",
		"gcovage_lines_instrumented 18",
	} {
		if !strings.Contains(string(b), want) {
			t.Errorf("expected %q in metrics, got:\n%s", want, b)
		}
	}
}

func TestRunRequiresRoot(t *testing.T) {
	if _, err := parse(t).Run(context.Background(), nil); err == nil {
		t.Error("expected an error without --root")
	}
}

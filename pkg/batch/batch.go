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

// Package batch finds every compilation unit under a build tree, processes
// the units concurrently and merges their line coverage per source file.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-zglob"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"k8s.io/gcovage/pkg/gcov"
	"k8s.io/gcovage/pkg/session"
)

const (
	graphExt    = ".gcno"
	countersExt = ".gcda"
)

// Unit is a pair of coverage files from one compilation.
type Unit struct {
	Graph    string
	Counters string
}

// Discover returns the units under root, sorted by control-flow file path.
// Counter files are expected next to their control-flow file, or, when
// countersDir is set, at the same relative path under countersDir.
func Discover(root, countersDir string) ([]Unit, error) {
	graphs, err := zglob.Glob(filepath.Join(root, "**", "*"+graphExt))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find control-flow files under %s: %w", root, err)
	}
	sort.Strings(graphs)
	units := make([]Unit, 0, len(graphs))
	for _, g := range graphs {
		counters := strings.TrimSuffix(g, graphExt) + countersExt
		if countersDir != "" {
			rel, err := filepath.Rel(root, counters)
			if err != nil {
				return nil, fmt.Errorf("failed to relate %s to %s: %w", counters, root, err)
			}
			counters = filepath.Join(countersDir, rel)
		}
		units = append(units, Unit{Graph: g, Counters: counters})
	}
	return units, nil
}

// Options configures Run.
type Options struct {
	Root        string
	CountersDir string
	// Concurrency bounds the number of units processed at once.
	Concurrency int
	// Wants selects the source files to keep. Nil keeps all of them.
	Wants  func(source string) bool
	Loader *session.Loader
	Log    logrus.FieldLogger
}

// Result is the merged coverage of a batch.
type Result struct {
	// Lines maps source files to their merged line coverage.
	Lines map[string]gcov.LineVector
	// Functions lists per-function statistics of the processed units.
	Functions []gcov.FunctionStat
	// Units is the number of units processed successfully.
	Units int
	// Failures aggregates one error per unit that could not be processed.
	Failures utilerrors.Aggregate
}

type unitResult struct {
	lines     map[string]gcov.LineVector
	functions []gcov.FunctionStat
	err       error
}

// Run processes every unit under opts.Root. A unit that fails is logged and
// recorded in Result.Failures without stopping the batch; Run only returns an
// error if discovery fails or ctx is done.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	units, err := Discover(opts.Root, opts.CountersDir)
	if err != nil {
		return nil, err
	}
	log.WithField("units", len(units)).Info("Discovered compilation units.")

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]unitResult, len(units))
	sem := make(chan struct{}, concurrency)
	g, gctx := errgroup.WithContext(ctx)
schedule:
	for i, u := range units {
		i, u := i, u
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			break schedule
		}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = processUnit(u, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return merge(units, results, log), nil
}

func processUnit(u Unit, opts Options) unitResult {
	unit, err := opts.Loader.Load(u.Graph, u.Counters)
	if err != nil {
		return unitResult{err: err}
	}
	lines := gcov.ProjectAll(unit)
	if opts.Wants != nil {
		for source := range lines {
			if !opts.Wants(source) {
				delete(lines, source)
			}
		}
	}
	var functions []gcov.FunctionStat
	for _, f := range gcov.FunctionCoverage(unit) {
		if opts.Wants == nil || opts.Wants(f.SourceFile) {
			functions = append(functions, f)
		}
	}
	return unitResult{lines: lines, functions: functions}
}

// merge folds the unit results in discovery order, so the output does not
// depend on scheduling.
func merge(units []Unit, results []unitResult, log logrus.FieldLogger) *Result {
	res := &Result{Lines: map[string]gcov.LineVector{}}
	var errs []error
	for i, r := range results {
		if r.err != nil {
			log.WithError(r.err).Warnf("coverage unavailable for %s", units[i].Graph)
			errs = append(errs, fmt.Errorf("coverage unavailable for %s: %w", units[i].Graph, r.err))
			continue
		}
		for source, v := range r.lines {
			res.Lines[source] = gcov.MergeLineVectors(res.Lines[source], v)
		}
		res.Functions = append(res.Functions, r.functions...)
		res.Units++
	}
	res.Failures = utilerrors.NewAggregate(errs)
	return res
}

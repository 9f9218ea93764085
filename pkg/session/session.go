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

// Package session runs the gcov decoding pipeline over one compilation unit
// at a time and caches decoded control-flow files between units.
package session

import (
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"k8s.io/gcovage/pkg/gcov"
	"k8s.io/gcovage/pkg/metrics"
)

// Options carries what every stage of a session needs. Both fields may be
// nil.
type Options struct {
	Log     logrus.FieldLogger
	Metrics *metrics.Recorder
}

func (o Options) log() logrus.FieldLogger {
	if o.Log == nil {
		l := logrus.New()
		l.Out = io.Discard
		return l
	}
	return o.Log
}

// Process decodes an in-memory gcno/gcda pair and returns the unit with
// every count reconstructed.
func Process(graph, counters []byte, opts Options) (*gcov.Summary, error) {
	unit, err := gcov.DecodeGraph(graph, opts.log())
	if err != nil {
		opts.Metrics.UnitProcessed(metrics.ResultFailure)
		return nil, errors.Wrap(err, "decode control-flow data")
	}
	opts.Metrics.FunctionsDecoded(len(unit.Functions()))
	return Count(unit, counters, opts)
}

// Count applies counter data to an already decoded unit and reconstructs
// the remaining counts. A nil counters slice means the unit never ran.
func Count(unit *gcov.Summary, counters []byte, opts Options) (*gcov.Summary, error) {
	log := opts.log()
	var counted *gcov.Summary
	if counters == nil {
		counted = gcov.NeverExecuted(unit)
	} else {
		var err error
		if counted, err = gcov.DecodeCounters(counters, unit, log); err != nil {
			opts.Metrics.UnitProcessed(metrics.ResultFailure)
			return nil, errors.Wrap(err, "decode counter data")
		}
	}
	reconstructed, err := gcov.Reconstruct(counted, log)
	if err != nil {
		opts.Metrics.UnitProcessed(metrics.ResultFailure)
		return nil, errors.Wrap(err, "reconstruct flow")
	}
	inferred, unresolved := 0, 0
	for _, f := range reconstructed.Functions() {
		u := f.UnresolvedArcs()
		unresolved += u
		inferred += len(f.Arcs) - f.InstrumentedArcs() - u
	}
	opts.Metrics.ArcsInferred(inferred)
	opts.Metrics.ArcsUnresolved(unresolved)
	opts.Metrics.UnitProcessed(metrics.ResultSuccess)
	return reconstructed, nil
}

type graphKey struct {
	path    string
	size    int64
	modTime int64
}

// Loader reads gcno/gcda pairs from disk. Decoded control-flow files are kept
// in an LRU cache keyed by path, size and modification time, so a file that
// changes on disk is decoded again. A Loader is safe for concurrent use.
type Loader struct {
	opts  Options
	cache *lru.Cache
}

// NewLoader returns a Loader caching up to size decoded control-flow files.
func NewLoader(size int, opts Options) (*Loader, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "create graph cache")
	}
	return &Loader{opts: opts, cache: cache}, nil
}

// Graph returns the decoded control-flow file at path.
func (l *Loader) Graph(path string) (*gcov.Summary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "stat control-flow file")
	}
	key := graphKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if v, ok := l.cache.Get(key); ok {
		return v.(*gcov.Summary), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read control-flow file")
	}
	unit, err := gcov.DecodeGraph(data, l.opts.log().WithField("file", path))
	if err != nil {
		l.opts.Metrics.UnitProcessed(metrics.ResultFailure)
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	l.opts.Metrics.FunctionsDecoded(len(unit.Functions()))
	l.cache.Add(key, unit)
	return unit, nil
}

// Load decodes the pair at graphPath and countersPath. A missing counter
// file is not an error: the unit was built but never run.
func (l *Loader) Load(graphPath, countersPath string) (*gcov.Summary, error) {
	unit, err := l.Graph(graphPath)
	if err != nil {
		return nil, err
	}
	opts := l.opts
	opts.Log = l.opts.log().WithField("file", countersPath)
	counters, err := os.ReadFile(countersPath)
	switch {
	case os.IsNotExist(err):
		opts.Log.Info("No counter file, assuming the unit was never executed.")
		counters = nil
	case err != nil:
		return nil, errors.Wrap(err, "read counter file")
	case counters == nil:
		counters = []byte{}
	}
	unit, err = Count(unit, counters, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "process %s", countersPath)
	}
	return unit, nil
}

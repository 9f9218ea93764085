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

// Package metrics records what a gcovage run did and exports it for
// Prometheus.
package metrics

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
)

const namespace = "gcovage"

// Results for the units counter.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder holds the counters for a single run on its own registry, so
// several runs in one process do not share state.
type Recorder struct {
	registry *prometheus.Registry

	units           *prometheus.CounterVec
	functions       prometheus.Counter
	arcsInferred    prometheus.Counter
	arcsUnresolved  prometheus.Counter
	linesCovered    prometheus.Gauge
	linesInstrument prometheus.Gauge
}

// NewRecorder returns a Recorder with its counters registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_processed_total",
			Help:      "Number of compilation units processed, by result.",
		}, []string{"result"}),
		functions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "functions_decoded_total",
			Help:      "Number of function records decoded from control-flow files.",
		}),
		arcsInferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arcs_inferred_total",
			Help:      "Number of arc counts derived by flow conservation.",
		}),
		arcsUnresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arcs_unresolved_total",
			Help:      "Number of arcs whose count could not be determined.",
		}),
		linesCovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lines_covered",
			Help:      "Executable lines executed at least once in the last report.",
		}),
		linesInstrument: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lines_instrumented",
			Help:      "Executable lines in the last report.",
		}),
	}
	r.registry.MustRegister(r.units, r.functions, r.arcsInferred, r.arcsUnresolved, r.linesCovered, r.linesInstrument)
	return r
}

// Every method tolerates a nil receiver so callers without metrics can pass nil.

// UnitProcessed counts one unit with the given result.
func (r *Recorder) UnitProcessed(result string) {
	if r == nil {
		return
	}
	r.units.WithLabelValues(result).Inc()
}

// FunctionsDecoded adds n decoded functions.
func (r *Recorder) FunctionsDecoded(n int) {
	if r == nil {
		return
	}
	r.functions.Add(float64(n))
}

// ArcsInferred adds n arcs whose counts came from conservation.
func (r *Recorder) ArcsInferred(n int) {
	if r == nil {
		return
	}
	r.arcsInferred.Add(float64(n))
}

// ArcsUnresolved adds n arcs left unknown.
func (r *Recorder) ArcsUnresolved(n int) {
	if r == nil {
		return
	}
	r.arcsUnresolved.Add(float64(n))
}

// Lines sets the line totals of the last report.
func (r *Recorder) Lines(instrumented, covered int) {
	if r == nil {
		return
	}
	r.linesInstrument.Set(float64(instrumented))
	r.linesCovered.Set(float64(covered))
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push sends the metrics to a Prometheus Pushgateway under job.
func (r *Recorder) Push(endpoint, job string) error {
	if err := push.New(endpoint, job).Gatherer(r.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", endpoint, err)
	}
	return nil
}

// WriteText writes the metrics in the Prometheus text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile writes the text exposition format to path.
func (r *Recorder) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

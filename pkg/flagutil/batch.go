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

// Package flagutil holds the options shared by the commands that report on a
// whole build tree.
package flagutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"k8s.io/gcovage/pkg/batch"
	"k8s.io/gcovage/pkg/calc"
	"k8s.io/gcovage/pkg/config"
	"k8s.io/gcovage/pkg/logrusutil"
	"k8s.io/gcovage/pkg/metrics"
	"k8s.io/gcovage/pkg/session"
)

// Component tags every log entry of the commands.
const Component = "gcovage"

// BatchOptions are the flags of the tree-wide commands. Flags that are set
// explicitly override the configuration file.
type BatchOptions struct {
	ConfigPath  string
	Root        string
	CountersDir string
	Concurrency int
	Threshold   float32
	MetricsFile string
	PushGateway string
	Log         logrusutil.Options

	fs *pflag.FlagSet
}

// AddFlags injects the batch options into the given FlagSet.
func (o *BatchOptions) AddFlags(fs *pflag.FlagSet) {
	o.fs = fs
	fs.StringVar(&o.ConfigPath, "config", "", "path to the gcovage configuration file")
	fs.StringVar(&o.Root, "root", "", "build tree holding the .gcno files")
	fs.StringVar(&o.CountersDir, "counters-dir", "", "directory mirroring the build tree with the .gcda files")
	fs.IntVar(&o.Concurrency, "concurrency", config.DefaultConcurrency, "number of units to process at once")
	fs.Float32VarP(&o.Threshold, "threshold", "t", config.DefaultThreshold, "code coverage threshold")
	fs.StringVar(&o.MetricsFile, "metrics-file", "", "write run metrics in the Prometheus text format to this file")
	fs.StringVar(&o.PushGateway, "push-gateway", "", "push run metrics to this Prometheus Pushgateway")
	o.Log.AddFlags(fs)
}

// Validate checks the flags that have no configuration file counterpart.
func (o *BatchOptions) Validate() error {
	if o.Root == "" {
		return errors.New("--root is required")
	}
	return nil
}

func (o *BatchOptions) changed(name string) bool {
	return o.fs != nil && o.fs.Changed(name)
}

// Config loads the configuration file, if any, and applies the flags on top.
func (o *BatchOptions) Config() (*config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return nil, err
		}
	}
	if o.changed("counters-dir") {
		cfg.CountersDir = o.CountersDir
	}
	if o.changed("concurrency") {
		cfg.Concurrency = o.Concurrency
	}
	if o.changed("threshold") {
		cfg.Threshold = o.Threshold
	}
	if o.changed("metrics-file") {
		cfg.Metrics.File = o.MetricsFile
	}
	if o.changed("push-gateway") {
		cfg.Metrics.PushGateway = o.PushGateway
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Report is the outcome of a tree-wide run.
type Report struct {
	Config   *config.Config
	Result   *batch.Result
	Coverage *calc.CoverageList
}

// Run processes the build tree and exports the run metrics. log may be nil,
// in which case a logger is built from the logging flags.
func (o *BatchOptions) Run(ctx context.Context, log logrus.FieldLogger) (*Report, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	cfg, err := o.Config()
	if err != nil {
		return nil, err
	}
	if log == nil {
		logger, err := o.Log.Logger(Component)
		if err != nil {
			return nil, err
		}
		log = logger
	}
	recorder := metrics.NewRecorder()
	opts := session.Options{Log: log, Metrics: recorder}
	loader, err := session.NewLoader(cfg.CacheSize, opts)
	if err != nil {
		return nil, err
	}
	res, err := batch.Run(ctx, batch.Options{
		Root:        o.Root,
		CountersDir: cfg.CountersDir,
		Concurrency: cfg.Concurrency,
		Wants:       cfg.Wants,
		Loader:      loader,
		Log:         log,
	})
	if err != nil {
		return nil, err
	}
	if res.Failures != nil {
		log.WithField("failed", len(res.Failures.Errors())).Warn("Some units could not be processed.")
	}
	covList := calc.FromLineVectors(res.Lines, cfg.DisplayName)
	recorder.Lines(covList.NumAllLines, covList.NumCoveredLines)
	if err := exportMetrics(recorder, cfg.Metrics); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"units":    res.Units,
		"files":    len(covList.Group),
		"coverage": covList.Percentage(),
	}).Info("Processed build tree.")
	return &Report{Config: cfg, Result: res, Coverage: covList}, nil
}

func exportMetrics(recorder *metrics.Recorder, cfg config.MetricsConfig) error {
	if cfg.File != "" {
		if err := recorder.WriteFile(cfg.File); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if cfg.PushGateway != "" {
		if err := recorder.Push(cfg.PushGateway, cfg.Job); err != nil {
			return err
		}
	}
	return nil
}

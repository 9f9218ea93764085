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

// Package config knows how to read and parse the gcovage configuration file.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"sigs.k8s.io/yaml"
)

const (
	DefaultThreshold   = 0.8
	DefaultConcurrency = 4
	DefaultCacheSize   = 128
)

// Config controls how coverage units are found, filtered and reported.
type Config struct {
	// Threshold is the line coverage ratio below which a file is reported as
	// failing, between 0 and 1.
	Threshold float32 `json:"threshold,omitempty"`
	// CountersDir mirrors the object directory for .gcda files, as with
	// GCOV_PREFIX. Empty means next to each .gcno file.
	CountersDir string `json:"counters_dir,omitempty"`
	// StripPrefix is removed from source file names in reports.
	StripPrefix string `json:"strip_prefix,omitempty"`
	// Include and Exclude are regular expressions matched against source
	// file names. A file is reported if it matches some Include (or Include
	// is empty) and no Exclude.
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
	// Concurrency bounds how many units are decoded at once.
	Concurrency int `json:"concurrency,omitempty"`
	// CacheSize is the number of decoded control-flow files kept in memory.
	CacheSize int           `json:"cache_size,omitempty"`
	Metrics   MetricsConfig `json:"metrics,omitempty"`

	include []*regexp.Regexp
	exclude []*regexp.Regexp
}

// MetricsConfig says where run metrics go.
type MetricsConfig struct {
	// PushGateway is the Prometheus Pushgateway URL. Empty disables pushing.
	PushGateway string `json:"push_gateway,omitempty"`
	// Job is the Pushgateway job name.
	Job string `json:"job,omitempty"`
	// File receives the metrics in the Prometheus text format.
	File string `json:"file,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	if err := c.parse(); err != nil {
		panic(err)
	}
	return c
}

// Load loads and parses the config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return Parse(b)
}

// Parse parses a YAML config.
func Parse(b []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.UnmarshalStrict(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := c.parse(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) parse() error {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "gcovage"
	}
	if err := c.Validate(); err != nil {
		return err
	}
	var err error
	if c.include, err = compile(c.Include); err != nil {
		return fmt.Errorf("could not compile include regex: %w", err)
	}
	if c.exclude, err = compile(c.Exclude); err != nil {
		return fmt.Errorf("could not compile exclude regex: %w", err)
	}
	return nil
}

// Validate checks value ranges. Flags may change a loaded config, so
// commands call it again after applying them.
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", c.Threshold)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size must be positive, got %d", c.CacheSize)
	}
	return nil
}

func compile(exprs []string) ([]*regexp.Regexp, error) {
	var res []*regexp.Regexp
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, err
		}
		res = append(res, re)
	}
	return res, nil
}

// Wants reports whether source should appear in reports.
func (c *Config) Wants(source string) bool {
	for _, re := range c.exclude {
		if re.MatchString(source) {
			return false
		}
	}
	if len(c.include) == 0 {
		return true
	}
	for _, re := range c.include {
		if re.MatchString(source) {
			return true
		}
	}
	return false
}

// DisplayName returns source as it should appear in reports.
func (c *Config) DisplayName(source string) string {
	return strings.TrimPrefix(source, c.StripPrefix)
}

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

// Package logrusutil builds the logrus logger shared by gcovage commands.
package logrusutil

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// DefaultFieldsFormatter wraps another logrus.Formatter, injecting
// DefaultFields into each Format() call. Fields already set on the entry
// take precedence.
type DefaultFieldsFormatter struct {
	WrappedFormatter logrus.Formatter
	DefaultFields    logrus.Fields
}

// NewDefaultFieldsFormatter returns a DefaultFieldsFormatter. A nil
// wrappedFormatter means &logrus.TextFormatter{}.
func NewDefaultFieldsFormatter(wrappedFormatter logrus.Formatter, defaultFields logrus.Fields) *DefaultFieldsFormatter {
	if wrappedFormatter == nil {
		wrappedFormatter = &logrus.TextFormatter{}
	}
	return &DefaultFieldsFormatter{WrappedFormatter: wrappedFormatter, DefaultFields: defaultFields}
}

// Format implements logrus.Formatter. The entry is copied so the caller's
// Data map is never written.
func (d *DefaultFieldsFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	data := make(logrus.Fields, len(entry.Data)+len(d.DefaultFields))
	for k, v := range d.DefaultFields {
		data[k] = v
	}
	for k, v := range entry.Data {
		data[k] = v
	}
	return d.WrappedFormatter.Format(&logrus.Entry{
		Logger:  entry.Logger,
		Data:    data,
		Time:    entry.Time,
		Level:   entry.Level,
		Message: entry.Message,
	})
}

// Options are the logging flags common to all commands.
type Options struct {
	Level  string
	Format string
}

// AddFlags registers the logging flags on fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Level, "log-level", logrus.InfoLevel.String(), "log level (panic, fatal, error, warn, info, debug, trace)")
	fs.StringVar(&o.Format, "log-format", "text", "log format (text or json)")
}

// Logger returns a logger writing to stderr that tags every entry with
// component.
func (o *Options) Logger(component string) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(o.Level)
	if err != nil {
		return nil, err
	}
	var wrapped logrus.Formatter
	switch o.Format {
	case "", "text":
		wrapped = &logrus.TextFormatter{}
	case "json":
		wrapped = &logrus.JSONFormatter{}
	default:
		return nil, fmt.Errorf("unknown log format %q", o.Format)
	}
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.SetLevel(level)
	logger.SetFormatter(NewDefaultFieldsFormatter(wrapped, logrus.Fields{"component": component}))
	return logger, nil
}

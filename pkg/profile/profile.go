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

// Package profile converts line coverage into Go cover profiles so the Go
// coverage tooling can render gcov data.
package profile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"golang.org/x/tools/cover"

	"k8s.io/gcovage/pkg/gcov"
)

// Mode is the cover mode of produced profiles.
const Mode = "count"

// FromLineVectors returns one profile per source file, sorted by file name,
// with one single-statement block spanning each executable line. rename, if
// not nil, maps source paths to profile file names.
func FromLineVectors(vectors map[string]gcov.LineVector, rename func(string) string) []*cover.Profile {
	var profiles []*cover.Profile
	for name, v := range gcov.RenameLineVectors(vectors, rename) {
		p := &cover.Profile{FileName: name, Mode: Mode, Blocks: []cover.ProfileBlock{}}
		for i, count := range v {
			if count == gcov.NotExecutable {
				continue
			}
			if int64(int(count)) != count {
				count = math.MaxInt32
			}
			p.Blocks = append(p.Blocks, cover.ProfileBlock{
				StartLine: i + 1,
				StartCol:  1,
				EndLine:   i + 2,
				EndCol:    1,
				NumStmt:   1,
				Count:     int(count),
			})
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].FileName < profiles[j].FileName
	})
	return profiles
}

// Dump dumps the profiles given to writer in go coverage format.
func Dump(profiles []*cover.Profile, writer io.Writer) error {
	if len(profiles) == 0 {
		return errors.New("can't write an empty profile")
	}
	if _, err := io.WriteString(writer, "mode: "+profiles[0].Mode+"\n"); err != nil {
		return err
	}
	for _, profile := range profiles {
		for _, block := range profile.Blocks {
			if _, err := fmt.Fprintf(writer, "%s:%d.%d,%d.%d %d %d\n", profile.FileName, block.StartLine, block.StartCol, block.EndLine, block.EndCol, block.NumStmt, block.Count); err != nil {
				return err
			}
		}
	}
	return nil
}

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

package gcov

import "math"

// LineVector holds per-line execution counts for one source file. Index i is
// line i+1. NotExecutable marks lines that no block claims.
type LineVector []int64

// NotExecutable is the LineVector value of a line no block claims.
const NotExecutable int64 = -1

// ProjectLines returns the line coverage of source. Every block adds its
// count to each line it claims in source, so a line claimed by several blocks
// gets the sum of their counts.
func ProjectLines(unit *Summary, source string) LineVector {
	return project(unit, func(file string) bool { return file == source })[source]
}

// ProjectAll returns the line coverage of every source file claimed by some
// block of unit.
func ProjectAll(unit *Summary) map[string]LineVector {
	return project(unit, func(string) bool { return true })
}

// project sizes each vector from the largest line claimed in a first pass,
// then accumulates block counts in a second.
func project(unit *Summary, want func(file string) bool) map[string]LineVector {
	size := map[string]uint32{}
	for _, f := range unit.functions {
		for _, b := range f.Blocks {
			for _, l := range b.Lines {
				if want(l.File) && l.Number > size[l.File] {
					size[l.File] = l.Number
				}
			}
		}
	}
	vectors := make(map[string]LineVector, len(size))
	for file, n := range size {
		v := make(LineVector, n)
		for i := range v {
			v[i] = NotExecutable
		}
		vectors[file] = v
	}
	for _, f := range unit.functions {
		for _, b := range f.Blocks {
			for _, l := range b.Lines {
				v, ok := vectors[l.File]
				if !ok || l.Number == 0 {
					continue
				}
				i := l.Number - 1
				if v[i] == NotExecutable {
					v[i] = 0
				}
				v[i] = addCount(v[i], b.Count)
			}
		}
	}
	return vectors
}

// addCount adds an unsigned count to a non-negative total, saturating at
// math.MaxInt64.
func addCount(total int64, count uint64) int64 {
	if count > uint64(math.MaxInt64-total) {
		return math.MaxInt64
	}
	return total + int64(count)
}

// Stats returns the number of executable lines and the number of lines
// executed at least once.
func Stats(v LineVector) (instrumented, covered int) {
	for _, c := range v {
		if c != NotExecutable {
			instrumented++
		}
		if c > 0 {
			covered++
		}
	}
	return instrumented, covered
}

// MergeLineVectors combines two vectors of the same source file, for example
// a header compiled into several units. A line is executable if it is in
// either vector and its count is the sum of both.
func MergeLineVectors(a, b LineVector) LineVector {
	if len(a) < len(b) {
		a, b = b, a
	}
	merged := make(LineVector, len(a))
	copy(merged, a)
	for i, c := range b {
		if c == NotExecutable {
			continue
		}
		if merged[i] == NotExecutable {
			merged[i] = 0
		}
		merged[i] = addCount(merged[i], uint64(c))
	}
	return merged
}

// RenameLineVectors rekeys vectors by rename. Sources that map to the same
// name are merged with MergeLineVectors. A nil rename keeps the keys.
func RenameLineVectors(vectors map[string]LineVector, rename func(string) string) map[string]LineVector {
	renamed := make(map[string]LineVector, len(vectors))
	for source, v := range vectors {
		name := source
		if rename != nil {
			name = rename(source)
		}
		if prev, ok := renamed[name]; ok {
			v = MergeLineVectors(prev, v)
		}
		renamed[name] = v
	}
	return renamed
}

// FunctionStat summarizes the execution of one function.
type FunctionStat struct {
	Name       string
	SourceFile string
	StartLine  uint32
	// Calls is the execution count of the entry block.
	Calls uint64
	// Blocks and BlocksExecuted exclude the entry and exit blocks.
	Blocks         int
	BlocksExecuted int
}

// FunctionCoverage returns per-function statistics in announcement order.
func FunctionCoverage(unit *Summary) []FunctionStat {
	stats := make([]FunctionStat, 0, len(unit.functions))
	for _, f := range unit.functions {
		s := FunctionStat{Name: f.Name, SourceFile: f.SourceFile, StartLine: f.StartLine}
		for _, b := range f.Blocks {
			if b.Entry {
				s.Calls = b.Count
			}
			if b.Entry || b.Exit {
				continue
			}
			s.Blocks++
			if b.Count > 0 {
				s.BlocksExecuted++
			}
		}
		stats = append(stats, s)
	}
	return stats
}

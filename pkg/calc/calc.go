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

// Package calc summarizes line coverage per file and per directory.
package calc

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"k8s.io/gcovage/pkg/gcov"
)

// Coverage stores line coverage totals for one file or group of files.
type Coverage struct {
	Name            string
	NumCoveredLines int
	NumAllLines     int
}

// Ratio returns the covered fraction of executable lines. A file with no
// executable lines counts as fully covered.
func (c *Coverage) Ratio() float32 {
	if c.NumAllLines == 0 {
		return 1
	}
	return float32(c.NumCoveredLines) / float32(c.NumAllLines)
}

// Percentage renders the ratio the way testgrid expects it, e.g. "94.4".
func (c *Coverage) Percentage() string {
	return fmt.Sprintf("%.1f", c.Ratio()*100)
}

// IsCoverageLow checks if the coverage is less than the threshold.
func (c *Coverage) IsCoverageLow(threshold float32) bool {
	return c.Ratio() < threshold
}

func (c *Coverage) String() string {
	return fmt.Sprintf("%s\t%s%% (%d of %d lines) covered", c.Name, c.Percentage(), c.NumCoveredLines, c.NumAllLines)
}

// CoverageList is a group of file coverages plus their sum.
type CoverageList struct {
	Coverage
	Group []Coverage
}

func newCoverageList(name string) *CoverageList {
	return &CoverageList{Coverage: Coverage{Name: name}, Group: []Coverage{}}
}

// FromLineVectors builds a summarized list from per-source line vectors,
// sorted by file name. rename, if not nil, maps source paths to the names
// used in reports.
func FromLineVectors(vectors map[string]gcov.LineVector, rename func(string) string) *CoverageList {
	covList := newCoverageList("summary")
	for name, v := range gcov.RenameLineVectors(vectors, rename) {
		all, covered := gcov.Stats(v)
		covList.Group = append(covList.Group, Coverage{Name: name, NumCoveredLines: covered, NumAllLines: all})
	}
	sort.Slice(covList.Group, func(i, j int) bool {
		return covList.Group[i].Name < covList.Group[j].Name
	})
	covList.Summarize()
	return covList
}

// Summarize recomputes the list totals from its items.
func (g *CoverageList) Summarize() {
	g.NumCoveredLines = 0
	g.NumAllLines = 0
	for _, item := range g.Group {
		g.NumCoveredLines += item.NumCoveredLines
		g.NumAllLines += item.NumAllLines
	}
}

// Subset returns the summarized list of files whose name starts with prefix.
func (g *CoverageList) Subset(prefix string) *CoverageList {
	s := newCoverageList(prefix)
	for _, c := range g.Group {
		if strings.HasPrefix(c.Name, prefix) {
			s.Group = append(s.Group, c)
		}
	}
	s.Summarize()
	return s
}

// Dirs lists the directories holding the files of the list, sorted.
func (g *CoverageList) Dirs() []string {
	dirs := sets.NewString()
	for _, c := range g.Group {
		if d := path.Dir(c.Name); d != "." {
			dirs.Insert(d + "/")
		}
	}
	return dirs.List()
}

// Low returns the items below threshold.
func (g *CoverageList) Low(threshold float32) []Coverage {
	var low []Coverage
	for _, c := range g.Group {
		if c.IsCoverageLow(threshold) {
			low = append(low, c)
		}
	}
	return low
}

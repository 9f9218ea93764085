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

// Package gcov decodes GCC coverage data (.gcno control-flow graphs and .gcda
// arc counters), reconstructs block execution counts by flow conservation
// and projects them onto source lines.
package gcov

import (
	"fmt"

	"github.com/blang/semver"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Version is the GCC version word found in gcno and gcda headers, four ASCII
// characters such as "409*".
type Version uint32

// release decodes the major and minor GCC release from the version word.
func (v Version) release() (major, minor int, ok bool) {
	c := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	switch {
	case c[0] >= '0' && c[0] <= '9':
		major = int(c[0] - '0')
	case c[0] >= 'A' && c[0] <= 'Z':
		major = int(c[0]-'A') + 10
	default:
		return 0, 0, false
	}
	if c[1] < '0' || c[1] > '9' || c[2] < '0' || c[2] > '9' {
		return 0, 0, false
	}
	return major, int(c[1]-'0')*10 + int(c[2]-'0'), true
}

func (v Version) String() string {
	if major, minor, ok := v.release(); ok {
		return fmt.Sprintf("%d.%d", major, minor)
	}
	return fmt.Sprintf("%#08x", uint32(v))
}

var (
	cfgChecksumSince = semver.Version{Major: 4, Minor: 7}
	unsupportedSince = semver.Version{Major: 8}
)

// Release returns the GCC release that wrote the file.
func (v Version) Release() (semver.Version, bool) {
	major, minor, ok := v.release()
	if !ok {
		return semver.Version{}, false
	}
	return semver.Version{Major: uint64(major), Minor: uint64(minor)}, true
}

// HasCFGChecksum reports whether function records carry a second checksum,
// which GCC added in 4.7.
func (v Version) HasCFGChecksum() bool {
	r, ok := v.Release()
	return ok && r.GTE(cfgChecksumSince)
}

func (v Version) validate() error {
	r, ok := v.Release()
	if !ok {
		return &UnsupportedFormatError{Version: v, Reason: "version word is not a GCC release"}
	}
	if r.GTE(unsupportedSince) {
		return &UnsupportedFormatError{Version: v, Reason: "record layout of GCC 8 and later is not supported"}
	}
	return nil
}

// ArcFlags holds the flag word of an arc.
type ArcFlags uint32

const (
	ArcOnTree      ArcFlags = 1 << 0
	ArcFake        ArcFlags = 1 << 1
	ArcFallThrough ArcFlags = 1 << 2
)

// OnTree arcs have no stored counter; their count is inferred.
func (f ArcFlags) OnTree() bool { return f&ArcOnTree != 0 }

// Fake arcs leave a block abnormally, for example through a call that does
// not return.
func (f ArcFlags) Fake() bool { return f&ArcFake != 0 }

// Line is one source line claimed by a block.
type Line struct {
	File   string
	Number uint32
}

// Block is a basic block. Count is meaningful only when HasCount is set.
type Block struct {
	Index    uint32
	Flags    uint32
	Lines    []Line
	Entry    bool
	Exit     bool
	Count    uint64
	HasCount bool
}

// Arc is a control-flow edge between two blocks of the same function.
type Arc struct {
	Src      uint32
	Dst      uint32
	Flags    ArcFlags
	Count    uint64
	HasCount bool
}

// Function is one instrumented function. Arcs are kept in declaration order,
// which is also the order of the function's counters in the gcda file.
type Function struct {
	Ident       uint32
	Checksum    uint32
	CFGChecksum uint32
	Name        string
	SourceFile  string
	StartLine   uint32
	Blocks      []Block
	Arcs        []Arc
}

// InstrumentedArcs returns the number of arcs with a stored counter.
func (f *Function) InstrumentedArcs() int {
	n := 0
	for _, a := range f.Arcs {
		if !a.Flags.OnTree() {
			n++
		}
	}
	return n
}

// UnresolvedArcs returns the number of arcs whose count is still unknown.
func (f *Function) UnresolvedArcs() int {
	n := 0
	for _, a := range f.Arcs {
		if !a.HasCount {
			n++
		}
	}
	return n
}

func (f *Function) clone() *Function {
	c := *f
	c.Blocks = make([]Block, len(f.Blocks))
	copy(c.Blocks, f.Blocks)
	c.Arcs = make([]Arc, len(f.Arcs))
	copy(c.Arcs, f.Arcs)
	return &c
}

// Summary is the decoded content of one compilation unit: its functions in
// announcement order, keyed by ident.
type Summary struct {
	Version Version
	Stamp   uint32

	functions []*Function
	byIdent   map[uint32]*Function
}

func newSummary(version Version, stamp uint32) *Summary {
	return &Summary{Version: version, Stamp: stamp, byIdent: map[uint32]*Function{}}
}

// Functions returns the functions in announcement order.
func (s *Summary) Functions() []*Function {
	return s.functions
}

// Function looks up a function by ident.
func (s *Summary) Function(ident uint32) (*Function, bool) {
	f, ok := s.byIdent[ident]
	return f, ok
}

// SourceFiles returns the sorted names of all files claimed by some block.
func (s *Summary) SourceFiles() []string {
	files := sets.NewString()
	for _, f := range s.functions {
		for _, b := range f.Blocks {
			for _, l := range b.Lines {
				files.Insert(l.File)
			}
		}
	}
	return files.List()
}

func (s *Summary) add(f *Function) {
	s.functions = append(s.functions, f)
	s.byIdent[f.Ident] = f
}

// clone returns a copy whose functions, blocks and arcs may be modified
// without affecting s. Line slices are shared; nothing writes to them after
// decoding.
func (s *Summary) clone() *Summary {
	c := newSummary(s.Version, s.Stamp)
	for _, f := range s.functions {
		c.add(f.clone())
	}
	return c
}

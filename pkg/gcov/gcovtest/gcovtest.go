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

// Package gcovtest encodes gcno and gcda files for tests.
package gcovtest

import (
	"bytes"
	"encoding/binary"

	"k8s.io/gcovage/pkg/gcov"
)

// Version409 is the version word written by GCC 4.9.
const Version409 uint32 = '4'<<24 | '0'<<16 | '9'<<8 | '*'

// Version402 predates the cfg checksum in function records.
const Version402 uint32 = '4'<<24 | '0'<<16 | '2'<<8 | '*'

// Writer appends words to a buffer in a fixed byte order.
type Writer struct {
	order binary.ByteOrder
	buf   bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter(order binary.ByteOrder) *Writer {
	return &Writer{order: order}
}

// Word appends one 4-byte word.
func (w *Writer) Word(v uint32) *Writer {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf.Write(b[:])
	return w
}

// Counter appends a 64-bit counter, low word first.
func (w *Writer) Counter(v uint64) *Writer {
	return w.Word(uint32(v)).Word(uint32(v >> 32))
}

// String appends a length-prefixed, NUL-terminated and padded string. The
// empty string is written as a single zero word.
func (w *Writer) String(s string) *Writer {
	if s == "" {
		return w.Word(0)
	}
	words := len(s)/4 + 1
	w.Word(uint32(words))
	padded := make([]byte, words*4)
	copy(padded, s)
	w.buf.Write(padded)
	return w
}

// Record appends a tagged record whose length is computed from what body
// writes.
func (w *Writer) Record(tag uint32, body func(*Writer)) *Writer {
	rec := NewWriter(w.order)
	body(rec)
	w.Word(tag).Word(uint32(rec.buf.Len() / 4))
	w.buf.Write(rec.buf.Bytes())
	return w
}

// Raw appends bytes as they are.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf.Write(b)
	return w
}

// Bytes returns the encoded data.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Arc describes one arc of a Function.
type Arc struct {
	Src, Dst uint32
	Flags    gcov.ArcFlags
}

// Lines lists the lines a block claims in File.
type Lines struct {
	Block uint32
	File  string
	Lines []uint32
}

// Function describes one function of a Unit. Counters holds one value per
// instrumented arc, in arc order.
type Function struct {
	Ident       uint32
	Checksum    uint32
	CFGChecksum uint32
	Name        string
	Source      string
	StartLine   uint32
	Blocks      int
	Arcs        []Arc
	Lines       []Lines
	Counters    []uint64
	// NotRun leaves the function out of the counter file.
	NotRun bool
}

// Unit describes a compilation unit.
type Unit struct {
	Version   uint32
	Stamp     uint32
	Functions []Function
}

func (u Unit) functionRecord(w *Writer, f Function) {
	w.Word(f.Ident).Word(f.Checksum)
	if gcov.Version(u.Version).HasCFGChecksum() {
		w.Word(f.CFGChecksum)
	}
}

// Graph encodes the unit as a gcno file.
func (u Unit) Graph(order binary.ByteOrder) []byte {
	w := NewWriter(order).Word(gcov.GraphMagic).Word(u.Version).Word(u.Stamp)
	for _, f := range u.Functions {
		f := f
		w.Record(gcov.TagFunction, func(r *Writer) {
			u.functionRecord(r, f)
			r.String(f.Name).String(f.Source).Word(f.StartLine)
		})
		w.Record(gcov.TagBlocks, func(r *Writer) {
			for i := 0; i < f.Blocks; i++ {
				r.Word(0)
			}
		})
		for start := 0; start < len(f.Arcs); {
			end := start
			for end < len(f.Arcs) && f.Arcs[end].Src == f.Arcs[start].Src {
				end++
			}
			arcs := f.Arcs[start:end]
			w.Record(gcov.TagArcs, func(r *Writer) {
				r.Word(arcs[0].Src)
				for _, a := range arcs {
					r.Word(a.Dst).Word(uint32(a.Flags))
				}
			})
			start = end
		}
		for _, l := range f.Lines {
			l := l
			w.Record(gcov.TagLines, func(r *Writer) {
				r.Word(l.Block).Word(0).String(l.File)
				for _, n := range l.Lines {
					r.Word(n)
				}
				r.Word(0).String("")
			})
		}
	}
	return w.Bytes()
}

// Counters encodes the unit's counters as a gcda file.
func (u Unit) Counters(order binary.ByteOrder) []byte {
	w := NewWriter(order).Word(gcov.CounterMagic).Word(u.Version).Word(u.Stamp)
	for _, f := range u.Functions {
		if f.NotRun {
			continue
		}
		f := f
		w.Record(gcov.TagFunction, func(r *Writer) { u.functionRecord(r, f) })
		w.Record(gcov.TagArcCounters, func(r *Writer) {
			for _, c := range f.Counters {
				r.Counter(c)
			}
		})
	}
	return w.Bytes()
}

// SampleSource is the source file of Sample.
const SampleSource = "sample.c"

// Sample returns a unit with one function over sample.c: a straight-line
// prologue, a branch that is never taken, and a loop whose body runs 500
// times over two calls. Line 25 is claimed by the loop preheader and the
// loop body.
func Sample() Unit {
	const (
		tree = gcov.ArcOnTree
		fall = gcov.ArcOnTree | gcov.ArcFallThrough
	)
	return Unit{
		Version: Version409,
		Stamp:   0x5a5a0001,
		Functions: []Function{{
			Ident:       1,
			Checksum:    0x1234abcd,
			CFGChecksum: 0x0badf00d,
			Name:        "main",
			Source:      SampleSource,
			StartLine:   5,
			Blocks:      10,
			Arcs: []Arc{
				{Src: 0, Dst: 1, Flags: tree},
				{Src: 1, Dst: 2, Flags: tree},
				{Src: 2, Dst: 3},
				{Src: 2, Dst: 4, Flags: fall},
				{Src: 3, Dst: 4, Flags: tree},
				{Src: 4, Dst: 5, Flags: tree},
				{Src: 5, Dst: 6, Flags: fall},
				{Src: 6, Dst: 5},
				{Src: 6, Dst: 7, Flags: tree},
				{Src: 7, Dst: 8, Flags: tree},
				{Src: 8, Dst: 9},
			},
			Lines: []Lines{
				{Block: 0, File: SampleSource, Lines: []uint32{5}},
				{Block: 1, File: SampleSource, Lines: []uint32{11, 12, 13}},
				{Block: 2, File: SampleSource, Lines: []uint32{15, 17}},
				{Block: 3, File: SampleSource, Lines: []uint32{18}},
				{Block: 4, File: SampleSource, Lines: []uint32{20, 23, 24, 25}},
				{Block: 5, File: SampleSource, Lines: []uint32{25, 26}},
				{Block: 7, File: SampleSource, Lines: []uint32{29, 31}},
				{Block: 8, File: SampleSource, Lines: []uint32{35, 40, 41, 42}},
			},
			// 2 -> 3, 6 -> 5, 8 -> 9
			Counters: []uint64{0, 498, 2},
		}},
	}
}

// SampleLines is the line coverage of Sample for SampleSource.
var SampleLines = gcov.LineVector{
	-1, -1, -1, -1, 2, -1, -1, -1, -1, -1,
	2, 2, 2, -1, 2, -1, 2, 0, -1, 2,
	-1, -1, 2, 2, 502, 500, -1, -1, 2, -1,
	2, -1, -1, -1, 2, -1, -1, -1, -1, 2,
	2, 2,
}

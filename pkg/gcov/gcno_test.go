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

package gcov_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"k8s.io/gcovage/pkg/gcov"
	"k8s.io/gcovage/pkg/gcov/gcovtest"
)

var byteOrders = []struct {
	name  string
	order binary.ByteOrder
}{
	{name: "little endian", order: binary.LittleEndian},
	{name: "big endian", order: binary.BigEndian},
}

func TestDecodeGraphSample(t *testing.T) {
	for _, bo := range byteOrders {
		t.Run(bo.name, func(t *testing.T) {
			unit, err := gcov.DecodeGraph(gcovtest.Sample().Graph(bo.order), nil)
			if err != nil {
				t.Fatalf("DecodeGraph failed: %v", err)
			}
			if unit.Version.String() != "4.9" {
				t.Errorf("expected version 4.9, got %s", unit.Version)
			}
			if len(unit.Functions()) != 1 {
				t.Fatalf("expected 1 function, got %d", len(unit.Functions()))
			}
			f, ok := unit.Function(1)
			if !ok {
				t.Fatal("function 1 not found")
			}
			if f.Name != "main" || f.SourceFile != gcovtest.SampleSource || f.StartLine != 5 {
				t.Errorf("unexpected function header %q %q %d", f.Name, f.SourceFile, f.StartLine)
			}
			if f.Checksum != 0x1234abcd || f.CFGChecksum != 0x0badf00d {
				t.Errorf("unexpected checksums %#x %#x", f.Checksum, f.CFGChecksum)
			}
			if len(f.Blocks) != 10 || len(f.Arcs) != 11 {
				t.Fatalf("expected 10 blocks and 11 arcs, got %d and %d", len(f.Blocks), len(f.Arcs))
			}
			if !f.Blocks[0].Entry || !f.Blocks[9].Exit || f.Blocks[5].Entry || f.Blocks[5].Exit {
				t.Errorf("entry and exit flags are wrong: %+v", f.Blocks)
			}
			expectedLines := []gcov.Line{{File: "sample.c", Number: 25}, {File: "sample.c", Number: 26}}
			if diff := cmp.Diff(expectedLines, f.Blocks[5].Lines); diff != "" {
				t.Errorf("block 5 lines differ (-want +got):\n%s", diff)
			}
			if f.InstrumentedArcs() != 3 {
				t.Errorf("expected 3 instrumented arcs, got %d", f.InstrumentedArcs())
			}
			for i, a := range f.Arcs {
				if a.HasCount {
					t.Errorf("arc %d has a count before counters were decoded", i)
				}
			}
			if diff := cmp.Diff([]string{"sample.c"}, unit.SourceFiles()); diff != "" {
				t.Errorf("source files differ (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeGraphIsDeterministic(t *testing.T) {
	data := gcovtest.Sample().Graph(binary.LittleEndian)
	first, err := gcov.DecodeGraph(data, nil)
	if err != nil {
		t.Fatalf("DecodeGraph failed: %v", err)
	}
	second, err := gcov.DecodeGraph(data, nil)
	if err != nil {
		t.Fatalf("DecodeGraph failed: %v", err)
	}
	if diff := cmp.Diff(first.Functions(), second.Functions()); diff != "" {
		t.Errorf("decoding twice differs (-first +second):\n%s", diff)
	}
}

func TestDecodeGraphSkipsUnknownRecords(t *testing.T) {
	sample := gcovtest.Sample()
	plain, err := gcov.DecodeGraph(sample.Graph(binary.LittleEndian), nil)
	if err != nil {
		t.Fatalf("DecodeGraph failed: %v", err)
	}
	header := sample.Graph(binary.LittleEndian)[:12]
	body := sample.Graph(binary.LittleEndian)[12:]
	w := gcovtest.NewWriter(binary.LittleEndian).Raw(header)
	w.Record(0x01470000, func(r *gcovtest.Writer) { r.Word(7).Word(8).Word(9) })
	w.Raw(body)
	w.Record(0xa1000000, func(r *gcovtest.Writer) { r.Counter(42) })

	extended, err := gcov.DecodeGraph(w.Bytes(), nil)
	if err != nil {
		t.Fatalf("DecodeGraph with unknown records failed: %v", err)
	}
	if diff := cmp.Diff(plain.Functions(), extended.Functions()); diff != "" {
		t.Errorf("unknown records changed the result (-want +got):\n%s", diff)
	}
}

func TestDecodeGraphStopsAtEndMarker(t *testing.T) {
	data := gcovtest.NewWriter(binary.LittleEndian).
		Raw(gcovtest.Sample().Graph(binary.LittleEndian)).
		Word(0).
		Bytes()
	if _, err := gcov.DecodeGraph(data, nil); err != nil {
		t.Fatalf("DecodeGraph failed: %v", err)
	}
}

func TestDecodeGraphZeroBlockFunction(t *testing.T) {
	unit := gcovtest.Unit{
		Version:   gcovtest.Version409,
		Functions: []gcovtest.Function{{Ident: 3, Name: "declared_only", Source: "a.c"}},
	}
	decoded, err := gcov.DecodeGraph(unit.Graph(binary.LittleEndian), nil)
	if err != nil {
		t.Fatalf("DecodeGraph failed: %v", err)
	}
	f, ok := decoded.Function(3)
	if !ok {
		t.Fatal("function 3 not found")
	}
	if len(f.Blocks) != 0 {
		t.Errorf("expected no blocks, got %d", len(f.Blocks))
	}
	if v := gcov.ProjectLines(decoded, "a.c"); len(v) != 0 {
		t.Errorf("expected no lines, got %v", v)
	}
}

func TestDecodeGraphFileSwitch(t *testing.T) {
	w := gcovtest.NewWriter(binary.BigEndian).Word(gcov.GraphMagic).Word(gcovtest.Version409).Word(0)
	w.Record(gcov.TagFunction, func(r *gcovtest.Writer) {
		r.Word(1).Word(0).Word(0).String("f").String("f.c").Word(3)
	})
	w.Record(gcov.TagBlocks, func(r *gcovtest.Writer) { r.Word(0).Word(0) })
	w.Record(gcov.TagLines, func(r *gcovtest.Writer) {
		r.Word(1).Word(4).Word(0).String("inline.h").Word(10).Word(11).Word(0).String("f.c").Word(5).Word(0).String("")
	})

	unit, err := gcov.DecodeGraph(w.Bytes(), nil)
	if err != nil {
		t.Fatalf("DecodeGraph failed: %v", err)
	}
	f, _ := unit.Function(1)
	expected := []gcov.Line{
		{File: "f.c", Number: 4},
		{File: "inline.h", Number: 10},
		{File: "inline.h", Number: 11},
		{File: "f.c", Number: 5},
	}
	if diff := cmp.Diff(expected, f.Blocks[1].Lines); diff != "" {
		t.Errorf("lines differ (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"f.c", "inline.h"}, unit.SourceFiles()); diff != "" {
		t.Errorf("source files differ (-want +got):\n%s", diff)
	}
}

func TestDecodeGraphWithoutCFGChecksum(t *testing.T) {
	sample := gcovtest.Sample()
	sample.Version = gcovtest.Version402
	sample.Functions[0].CFGChecksum = 0
	unit, err := gcov.DecodeGraph(sample.Graph(binary.LittleEndian), nil)
	if err != nil {
		t.Fatalf("DecodeGraph failed: %v", err)
	}
	f, _ := unit.Function(1)
	if f.Name != "main" || f.Checksum != 0x1234abcd || f.StartLine != 5 {
		t.Errorf("unexpected function header %+v", f)
	}
}

func TestDecodeGraphErrors(t *testing.T) {
	header := func() *gcovtest.Writer {
		return gcovtest.NewWriter(binary.LittleEndian).Word(gcov.GraphMagic).Word(gcovtest.Version409).Word(0)
	}
	function := func(r *gcovtest.Writer) {
		r.Word(1).Word(0).Word(0).String("f").String("f.c").Word(1)
	}
	twoBlocks := func(r *gcovtest.Writer) { r.Word(0).Word(0) }

	testCases := []struct {
		name  string
		data  []byte
		check func(error) bool
	}{
		{
			name:  "counter file magic",
			data:  gcovtest.Sample().Counters(binary.LittleEndian),
			check: isUnsupported,
		},
		{
			name:  "gcc 8 layout",
			data:  gcovtest.NewWriter(binary.LittleEndian).Word(gcov.GraphMagic).Word('8'<<24 | '0'<<16 | '1'<<8 | '*').Word(0).Bytes(),
			check: isUnsupported,
		},
		{
			name:  "record longer than file",
			data:  header().Word(gcov.TagBlocks).Word(5).Word(0).Bytes(),
			check: isTruncated,
		},
		{
			name:  "string longer than record",
			data:  header().Word(gcov.TagFunction).Word(4).Word(1).Word(0).Word(0).Word(9).Bytes(),
			check: isTruncated,
		},
		{
			name:  "dangling arc word",
			data:  header().Record(gcov.TagFunction, function).Record(gcov.TagBlocks, twoBlocks).Record(gcov.TagArcs, func(r *gcovtest.Writer) { r.Word(0).Word(1) }).Bytes(),
			check: isTruncated,
		},
		{
			name:  "blocks before function",
			data:  header().Record(gcov.TagBlocks, twoBlocks).Bytes(),
			check: isStructure,
		},
		{
			name:  "arc source out of range",
			data:  header().Record(gcov.TagFunction, function).Record(gcov.TagBlocks, twoBlocks).Record(gcov.TagArcs, func(r *gcovtest.Writer) { r.Word(2).Word(1).Word(0) }).Bytes(),
			check: isStructure,
		},
		{
			name:  "arc destination out of range",
			data:  header().Record(gcov.TagFunction, function).Record(gcov.TagBlocks, twoBlocks).Record(gcov.TagArcs, func(r *gcovtest.Writer) { r.Word(0).Word(7).Word(0) }).Bytes(),
			check: isStructure,
		},
		{
			name:  "lines for missing block",
			data:  header().Record(gcov.TagFunction, function).Record(gcov.TagLines, func(r *gcovtest.Writer) { r.Word(0).Word(3).Word(0).String("") }).Bytes(),
			check: isStructure,
		},
		{
			name:  "line number above the maximum",
			data:  header().Record(gcov.TagFunction, function).Record(gcov.TagBlocks, twoBlocks).Record(gcov.TagLines, func(r *gcovtest.Writer) { r.Word(0).Word(0x02000005).Word(0).String("") }).Bytes(),
			check: isStructure,
		},
		{
			name:  "duplicate function",
			data:  header().Record(gcov.TagFunction, function).Record(gcov.TagFunction, function).Bytes(),
			check: isStructure,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			unit, err := gcov.DecodeGraph(tc.data, nil)
			if err == nil {
				t.Fatalf("expected an error, got a summary with %d functions", len(unit.Functions()))
			}
			if !tc.check(err) {
				t.Errorf("unexpected error type: %v", err)
			}
		})
	}
}

func TestDecodeGraphAcceptsMaxLineNumber(t *testing.T) {
	unit := gcovtest.Unit{
		Version: gcovtest.Version409,
		Functions: []gcovtest.Function{{
			Ident:  1,
			Name:   "f",
			Source: "f.c",
			Blocks: 2,
			Arcs:   []gcovtest.Arc{{Src: 0, Dst: 1}},
			Lines:  []gcovtest.Lines{{Block: 1, File: "f.c", Lines: []uint32{gcov.MaxLineNumber}}},
		}},
	}
	graph, err := gcov.DecodeGraph(unit.Graph(binary.LittleEndian), nil)
	if err != nil {
		t.Fatalf("DecodeGraph failed: %v", err)
	}
	f, _ := graph.Function(1)
	expected := []gcov.Line{{File: "f.c", Number: gcov.MaxLineNumber}}
	if diff := cmp.Diff(expected, f.Blocks[1].Lines); diff != "" {
		t.Errorf("lines differ (-want +got):\n%s", diff)
	}
}

func isUnsupported(err error) bool {
	var target *gcov.UnsupportedFormatError
	return errors.As(err, &target)
}

func isTruncated(err error) bool {
	var target *gcov.TruncatedRecordError
	return errors.As(err, &target)
}

func isStructure(err error) bool {
	var target *gcov.StructureError
	return errors.As(err, &target)
}

func isArity(err error) bool {
	var target *gcov.RecordArityError
	return errors.As(err, &target)
}

func isChecksum(err error) bool {
	var target *gcov.ChecksumMismatchError
	return errors.As(err, &target)
}

func isVersion(err error) bool {
	var target *gcov.VersionMismatchError
	return errors.As(err, &target)
}

func isInconsistent(err error) bool {
	var target *gcov.InconsistentFlowError
	return errors.As(err, &target)
}

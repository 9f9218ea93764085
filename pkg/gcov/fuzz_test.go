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

	fuzz "github.com/google/gofuzz"

	"k8s.io/gcovage/pkg/gcov"
	"k8s.io/gcovage/pkg/gcov/gcovtest"
)

// isKnown reports whether err belongs to the decoding error taxonomy.
func isKnown(err error) bool {
	return isUnsupported(err) || isTruncated(err) || isStructure(err) ||
		isArity(err) || isChecksum(err) || isVersion(err) || isInconsistent(err)
}

func TestDecodeRandomData(t *testing.T) {
	f := fuzz.NewWithSeed(1).NilChance(0).NumElements(0, 256)
	for i := 0; i < 1000; i++ {
		var data []byte
		f.Fuzz(&data)
		if _, err := gcov.DecodeGraph(data, nil); err != nil && !isKnown(err) {
			t.Fatalf("unexpected error type for %x: %v", data, err)
		}
	}
}

func TestDecodeCorruptedSample(t *testing.T) {
	sample := gcovtest.Sample()
	graph := sample.Graph(binary.LittleEndian)
	counters := sample.Counters(binary.LittleEndian)
	f := fuzz.NewWithSeed(2)
	for i := 0; i < 1000; i++ {
		var pos uint16
		var value byte
		f.Fuzz(&pos)
		f.Fuzz(&value)

		g := append([]byte(nil), graph...)
		c := append([]byte(nil), counters...)
		// Leave the magic words alone so decoding gets past the header.
		if i%2 == 0 {
			g[4+int(pos)%(len(g)-4)] = value
		} else {
			c[4+int(pos)%(len(c)-4)] = value
		}

		unit, err := gcov.DecodeGraph(g, nil)
		if err == nil {
			unit, err = gcov.DecodeCounters(c, unit, nil)
		}
		if err == nil {
			unit, err = gcov.Reconstruct(unit, nil)
		}
		if err != nil {
			if !isKnown(err) {
				t.Fatalf("iteration %d: unexpected error type: %v", i, err)
			}
			continue
		}
		for _, fn := range unit.Functions() {
			for j, b := range fn.Blocks {
				if !b.HasCount {
					t.Fatalf("iteration %d: block %d of %s has no count", i, j, fn.Name)
				}
			}
		}
		for source, v := range gcov.ProjectAll(unit) {
			if uint64(len(v)) > uint64(gcov.MaxLineNumber) {
				t.Fatalf("iteration %d: %s projects to %d lines", i, source, len(v))
			}
			if all, covered := gcov.Stats(v); covered > all {
				t.Fatalf("iteration %d: %s has %d covered of %d lines", i, source, covered, all)
			}
		}
	}
}

func TestIsKnownRejectsOtherErrors(t *testing.T) {
	if isKnown(errors.New("boom")) {
		t.Error("a plain error should not be part of the taxonomy")
	}
}

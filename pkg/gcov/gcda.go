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

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DecodeCounters decodes a gcda counter file produced by the same compilation
// as unit and returns a copy of unit with the counts of all instrumented arcs
// set. unit itself is not modified.
//
// Functions of unit that have no counters in the file were never executed;
// their instrumented arcs get a count of zero.
func DecodeCounters(data []byte, unit *Summary, log logrus.FieldLogger) (*Summary, error) {
	log = orDiscard(log).WithField("stage", "counters")
	r, h, err := readHeader(data, CounterMagic)
	if err != nil {
		return nil, err
	}
	if h.version != unit.Version {
		return nil, &VersionMismatchError{Graph: unit.Version, Counters: h.version}
	}
	d := &counterDecoder{unit: unit.clone(), counted: map[uint32]bool{}}
	err = forEachRecord(r, func(tag uint32, rec *wordReader) error {
		switch tag {
		case TagFunction:
			return d.function(rec)
		case TagArcCounters:
			return d.counters(rec)
		}
		log.WithField("tag", fmt.Sprintf("%#08x", tag)).Debug("Skipping unknown record.")
		return nil
	})
	if err != nil {
		return nil, err
	}
	zeroUncounted(d.unit, d.counted, log)
	log.WithField("functions", len(d.counted)).Debug("Decoded counter file.")
	return d.unit, nil
}

// NeverExecuted returns a copy of unit with a zero count on every
// instrumented arc, which is what a missing counter file means.
func NeverExecuted(unit *Summary) *Summary {
	out := unit.clone()
	zeroUncounted(out, nil, orDiscard(nil))
	return out
}

func zeroUncounted(unit *Summary, counted map[uint32]bool, log logrus.FieldLogger) {
	for _, f := range unit.functions {
		if counted[f.Ident] {
			continue
		}
		for i := range f.Arcs {
			if !f.Arcs[i].Flags.OnTree() {
				f.Arcs[i].Count, f.Arcs[i].HasCount = 0, true
			}
		}
		log.WithField("function", f.Name).Debug("No counters recorded, function was never executed.")
	}
}

type counterDecoder struct {
	unit    *Summary
	current *Function
	counted map[uint32]bool
}

func (d *counterDecoder) function(rec *wordReader) error {
	d.current = nil
	if rec.exhausted() {
		return nil
	}
	ident, err := rec.readWord()
	if err != nil {
		return err
	}
	checksum, err := rec.readWord()
	if err != nil {
		return err
	}
	var cfgChecksum uint32
	if d.unit.Version.HasCFGChecksum() {
		if cfgChecksum, err = rec.readWord(); err != nil {
			return err
		}
	}
	f, ok := d.unit.byIdent[ident]
	if !ok {
		return &ChecksumMismatchError{Ident: ident, Got: checksum, GotCFG: cfgChecksum}
	}
	if f.Checksum != checksum || f.CFGChecksum != cfgChecksum {
		return &ChecksumMismatchError{
			Ident:   ident,
			Found:   true,
			Want:    f.Checksum,
			Got:     checksum,
			WantCFG: f.CFGChecksum,
			GotCFG:  cfgChecksum,
		}
	}
	d.current = f
	return nil
}

// counters assigns one counter per instrumented arc, in arc declaration order.
func (d *counterDecoder) counters(rec *wordReader) error {
	f := d.current
	if f == nil {
		return &StructureError{Tag: TagArcCounters, Reason: "counter record precedes any function announcement"}
	}
	if d.counted[f.Ident] {
		return &StructureError{Tag: TagArcCounters, Ident: f.Ident, Reason: "second arc counter record for function"}
	}
	want := f.InstrumentedArcs()
	if got := (rec.remaining() + 7) / 8; got != want {
		return &RecordArityError{Ident: f.Ident, Want: want, Got: got}
	}
	for i := range f.Arcs {
		a := &f.Arcs[i]
		if a.Flags.OnTree() {
			continue
		}
		v, err := rec.readCounter()
		if err != nil {
			return err
		}
		a.Count, a.HasCount = v, true
	}
	d.counted[f.Ident] = true
	return nil
}

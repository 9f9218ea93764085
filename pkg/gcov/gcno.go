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
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// File magics, read as a single word in the file's own byte order.
const (
	GraphMagic   uint32 = 0x67636e6f // "gcno"
	CounterMagic uint32 = 0x67636461 // "gcda"
)

// Record tags.
const (
	TagFunction    uint32 = 0x01000000
	TagBlocks      uint32 = 0x01410000
	TagArcs        uint32 = 0x01430000
	TagLines       uint32 = 0x01450000
	TagArcCounters uint32 = 0x01a10000
)

// MaxLineNumber is the largest source line a graph file may claim. Projection
// allocates one slot per line up to the highest number seen, so larger values
// are rejected as corrupt.
const MaxLineNumber uint32 = 1 << 24

// DecodeGraph decodes a gcno control-flow file. Records with unknown tags are
// skipped. Counts are left unset.
func DecodeGraph(data []byte, log logrus.FieldLogger) (*Summary, error) {
	log = orDiscard(log).WithField("stage", "graph")
	r, h, err := readHeader(data, GraphMagic)
	if err != nil {
		return nil, err
	}
	if err := h.version.validate(); err != nil {
		return nil, err
	}
	d := &graphDecoder{unit: newSummary(h.version, h.stamp)}
	err = forEachRecord(r, func(tag uint32, rec *wordReader) error {
		switch tag {
		case TagFunction:
			return d.function(rec)
		case TagBlocks:
			return d.blocks(rec)
		case TagArcs:
			return d.arcs(rec)
		case TagLines:
			return d.lines(rec)
		}
		log.WithField("tag", fmt.Sprintf("%#08x", tag)).Debug("Skipping unknown record.")
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, f := range d.unit.functions {
		if n := len(f.Blocks); n > 0 {
			f.Blocks[0].Entry = true
			f.Blocks[n-1].Exit = true
		}
	}
	log.WithFields(logrus.Fields{
		"version":   h.version.String(),
		"functions": len(d.unit.functions),
	}).Debug("Decoded control-flow file.")
	return d.unit, nil
}

// forEachRecord walks the tagged records following the header. A zero tag
// marks the end of the data.
func forEachRecord(r *wordReader, fn func(tag uint32, rec *wordReader) error) error {
	for !r.exhausted() {
		start := r.offset()
		tag, err := r.readWord()
		if err != nil {
			return err
		}
		if tag == 0 {
			return nil
		}
		length, err := r.readWord()
		if err != nil {
			return err
		}
		rec, err := r.payload(tag, length)
		if err != nil {
			return err
		}
		if err := fn(tag, rec); err != nil {
			return errors.Wrapf(err, "record %#08x at offset %d", tag, start)
		}
	}
	return nil
}

type graphDecoder struct {
	unit    *Summary
	current *Function
}

func (d *graphDecoder) function(rec *wordReader) error {
	var f Function
	var err error
	if f.Ident, err = rec.readWord(); err != nil {
		return err
	}
	if f.Checksum, err = rec.readWord(); err != nil {
		return err
	}
	if d.unit.Version.HasCFGChecksum() {
		if f.CFGChecksum, err = rec.readWord(); err != nil {
			return err
		}
	}
	if f.Name, err = rec.readString(); err != nil {
		return err
	}
	if f.SourceFile, err = rec.readString(); err != nil {
		return err
	}
	if f.StartLine, err = rec.readWord(); err != nil {
		return err
	}
	if _, dup := d.unit.byIdent[f.Ident]; dup {
		return &StructureError{Tag: TagFunction, Ident: f.Ident, Reason: "function announced twice"}
	}
	d.current = &f
	d.unit.add(d.current)
	return nil
}

func (d *graphDecoder) currentFunction(tag uint32) (*Function, error) {
	if d.current == nil {
		return nil, &StructureError{Tag: tag, Reason: "record precedes any function announcement"}
	}
	return d.current, nil
}

func (d *graphDecoder) blocks(rec *wordReader) error {
	f, err := d.currentFunction(TagBlocks)
	if err != nil {
		return err
	}
	for !rec.exhausted() {
		flags, err := rec.readWord()
		if err != nil {
			return err
		}
		f.Blocks = append(f.Blocks, Block{Index: uint32(len(f.Blocks)), Flags: flags})
	}
	return nil
}

func (d *graphDecoder) checkBlock(f *Function, tag, index uint32) error {
	if int64(index) >= int64(len(f.Blocks)) {
		return &StructureError{
			Tag:    tag,
			Ident:  f.Ident,
			Reason: fmt.Sprintf("block %d out of range, function has %d blocks", index, len(f.Blocks)),
		}
	}
	return nil
}

func (d *graphDecoder) arcs(rec *wordReader) error {
	f, err := d.currentFunction(TagArcs)
	if err != nil {
		return err
	}
	src, err := rec.readWord()
	if err != nil {
		return err
	}
	if err := d.checkBlock(f, TagArcs, src); err != nil {
		return err
	}
	for !rec.exhausted() {
		dst, err := rec.readWord()
		if err != nil {
			return err
		}
		flags, err := rec.readWord()
		if err != nil {
			return err
		}
		if err := d.checkBlock(f, TagArcs, dst); err != nil {
			return err
		}
		f.Arcs = append(f.Arcs, Arc{Src: src, Dst: dst, Flags: ArcFlags(flags)})
	}
	return nil
}

type lineItemKind int

const (
	lineNumber lineItemKind = iota
	lineFile
	lineEnd
)

// lineItem is one element of a lines record: a line number, a switch to a
// new source file, or the terminator.
type lineItem struct {
	kind   lineItemKind
	number uint32
	file   string
}

func readLineItem(rec *wordReader) (lineItem, error) {
	n, err := rec.readWord()
	if err != nil {
		return lineItem{}, err
	}
	if n != 0 {
		return lineItem{kind: lineNumber, number: n}, nil
	}
	name, err := rec.readString()
	if err != nil {
		return lineItem{}, err
	}
	if name == "" {
		return lineItem{kind: lineEnd}, nil
	}
	return lineItem{kind: lineFile, file: name}, nil
}

func (d *graphDecoder) lines(rec *wordReader) error {
	f, err := d.currentFunction(TagLines)
	if err != nil {
		return err
	}
	index, err := rec.readWord()
	if err != nil {
		return err
	}
	if err := d.checkBlock(f, TagLines, index); err != nil {
		return err
	}
	b := &f.Blocks[index]
	file := f.SourceFile
	for !rec.exhausted() {
		item, err := readLineItem(rec)
		if err != nil {
			return err
		}
		switch item.kind {
		case lineNumber:
			if item.number > MaxLineNumber {
				return &StructureError{
					Tag:    TagLines,
					Ident:  f.Ident,
					Reason: fmt.Sprintf("line %d of %s exceeds the maximum of %d", item.number, file, MaxLineNumber),
				}
			}
			b.Lines = append(b.Lines, Line{File: file, Number: item.number})
		case lineFile:
			file = item.file
		case lineEnd:
			return nil
		}
	}
	return nil
}

func orDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.Out = io.Discard
	return l
}

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
	"bytes"
	"encoding/binary"
)

const bytesPerWord = 4

// wordReader reads 4-byte words from a gcov stream in the byte order fixed by
// the file's magic. A reader created by payload is bounded to one record, so
// any read past the record's declared length fails.
type wordReader struct {
	data  []byte
	pos   int
	end   int
	base  int
	tag   uint32
	order binary.ByteOrder
}

func newWordReader(data []byte, order binary.ByteOrder) *wordReader {
	return &wordReader{data: data, end: len(data), order: order}
}

// offset returns the absolute position in the file.
func (r *wordReader) offset() int { return r.base + r.pos }

func (r *wordReader) remaining() int { return r.end - r.pos }

func (r *wordReader) exhausted() bool { return r.pos >= r.end }

func (r *wordReader) truncated(need uint64) error {
	return &TruncatedRecordError{Tag: r.tag, Offset: r.offset(), Need: need, Have: r.remaining()}
}

func (r *wordReader) readWord() (uint32, error) {
	if r.remaining() < bytesPerWord {
		return 0, r.truncated(bytesPerWord)
	}
	v := r.order.Uint32(r.data[r.pos:])
	r.pos += bytesPerWord
	return v, nil
}

// readCounter reads a 64-bit counter stored as two words, low word first.
func (r *wordReader) readCounter() (uint64, error) {
	if r.remaining() < 2*bytesPerWord {
		return 0, r.truncated(2 * bytesPerWord)
	}
	lo, _ := r.readWord()
	hi, _ := r.readWord()
	return uint64(hi)<<32 | uint64(lo), nil
}

// readString reads a word-length-prefixed, NUL-padded string.
func (r *wordReader) readString() (string, error) {
	words, err := r.readWord()
	if err != nil {
		return "", err
	}
	n, err := r.wordBytes(words)
	if err != nil {
		return "", err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

// payload returns a reader over the next words*4 bytes and advances past them.
func (r *wordReader) payload(tag, words uint32) (*wordReader, error) {
	r.tag = tag
	n, err := r.wordBytes(words)
	if err != nil {
		return nil, err
	}
	sub := &wordReader{
		data:  r.data[r.pos : r.pos+n],
		end:   n,
		base:  r.offset(),
		tag:   tag,
		order: r.order,
	}
	r.pos += n
	return sub, nil
}

// wordBytes converts a word count to a byte count that fits in the reader.
func (r *wordReader) wordBytes(words uint32) (int, error) {
	n := uint64(words) * bytesPerWord
	if n > uint64(r.remaining()) {
		return 0, r.truncated(n)
	}
	return int(n), nil
}

// header is the three-word preamble shared by gcno and gcda files.
type header struct {
	order   binary.ByteOrder
	version Version
	stamp   uint32
}

// readHeader detects the byte order from magic and reads the version and
// stamp words. The returned reader is positioned at the first record.
func readHeader(data []byte, magic uint32) (*wordReader, header, error) {
	if len(data) < bytesPerWord {
		return nil, header{}, &UnsupportedFormatError{Reason: "file is too short to hold a magic number"}
	}
	var h header
	switch {
	case binary.LittleEndian.Uint32(data) == magic:
		h.order = binary.LittleEndian
	case binary.BigEndian.Uint32(data) == magic:
		h.order = binary.BigEndian
	default:
		return nil, header{}, &UnsupportedFormatError{
			Magic:  binary.BigEndian.Uint32(data),
			Reason: "magic number matches neither byte order",
		}
	}
	r := newWordReader(data, h.order)
	r.pos = bytesPerWord
	version, err := r.readWord()
	if err != nil {
		return nil, header{}, err
	}
	h.version = Version(version)
	if h.stamp, err = r.readWord(); err != nil {
		return nil, header{}, err
	}
	return r, h, nil
}

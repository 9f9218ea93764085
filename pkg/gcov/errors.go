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

import "fmt"

// UnsupportedFormatError means the data is not a gcov file this package can
// interpret at all.
type UnsupportedFormatError struct {
	Magic   uint32
	Version Version
	Reason  string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Version != 0 {
		return fmt.Sprintf("unsupported gcov format (version %s): %s", e.Version, e.Reason)
	}
	return "unsupported gcov format: " + e.Reason
}

// TruncatedRecordError means a record, or a value inside one, extends past
// the available data.
type TruncatedRecordError struct {
	Tag    uint32
	Offset int
	Need   uint64
	Have   int
}

func (e *TruncatedRecordError) Error() string {
	return fmt.Sprintf("truncated record %#08x at offset %d: need %d bytes, have %d", e.Tag, e.Offset, e.Need, e.Have)
}

// RecordArityError means a counter record holds a different number of values
// than the function has instrumented arcs.
type RecordArityError struct {
	Ident uint32
	Want  int
	Got   int
}

func (e *RecordArityError) Error() string {
	return fmt.Sprintf("function %d: counter record has %d values, want %d", e.Ident, e.Got, e.Want)
}

// ChecksumMismatchError means a counter file names a function that does not
// exist in the control-flow summary, or exists with different checksums.
type ChecksumMismatchError struct {
	Ident uint32
	// Found is false when no function with Ident was announced in the
	// control-flow file.
	Found   bool
	Want    uint32
	Got     uint32
	WantCFG uint32
	GotCFG  uint32
}

func (e *ChecksumMismatchError) Error() string {
	if !e.Found {
		return fmt.Sprintf("function %d is not present in the control-flow file", e.Ident)
	}
	return fmt.Sprintf("function %d: checksum %#08x/%#08x does not match control-flow checksum %#08x/%#08x",
		e.Ident, e.Got, e.GotCFG, e.Want, e.WantCFG)
}

// VersionMismatchError means the control-flow and counter files were produced
// by different compilations.
type VersionMismatchError struct {
	Graph    Version
	Counters Version
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("counter file version %s does not match control-flow file version %s", e.Counters, e.Graph)
}

// InconsistentFlowError means the counts violate flow conservation.
type InconsistentFlowError struct {
	Function string
	Ident    uint32
	Block    uint32
	Reason   string
}

func (e *InconsistentFlowError) Error() string {
	return fmt.Sprintf("function %s (%d), block %d: %s", e.Function, e.Ident, e.Block, e.Reason)
}

// StructureError reports a well-framed record whose contents do not describe
// a valid graph.
type StructureError struct {
	Tag    uint32
	Ident  uint32
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("malformed record %#08x in function %d: %s", e.Tag, e.Ident, e.Reason)
}

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
	"math/bits"

	"github.com/sirupsen/logrus"
)

// Reconstruct infers the counts of on-tree arcs from flow conservation and
// sets the count of every block. It returns a copy of unit.
//
// Arcs that conservation cannot determine are left without a count; the
// blocks they touch then get the sum of their known incoming arcs.
func Reconstruct(unit *Summary, log logrus.FieldLogger) (*Summary, error) {
	log = orDiscard(log).WithField("stage", "flow")
	out := unit.clone()
	for _, f := range out.functions {
		if err := newFlowSolver(f).solve(); err != nil {
			return nil, err
		}
		if n := f.UnresolvedArcs(); n > 0 {
			log.WithFields(logrus.Fields{
				"function":   f.Name,
				"unresolved": n,
			}).Warn("Arc counts are underdetermined.")
		}
		for _, a := range f.Arcs {
			if a.Flags.Fake() && a.HasCount && a.Count > 0 {
				log.WithFields(logrus.Fields{
					"function": f.Name,
					"src":      a.Src,
					"dst":      a.Dst,
					"count":    a.Count,
				}).Debug("Abnormal exit taken.")
			}
		}
	}
	return out, nil
}

type flowEdge struct {
	src, dst uint32
	count    uint64
	known    bool
}

type flowNode struct {
	in, out               []int
	inUnknown, outUnknown int
	inSum, outSum         uint64
}

// total returns the block count once either side is fully known.
func (n *flowNode) total() (uint64, bool) {
	switch {
	case len(n.in) > 0 && n.inUnknown == 0:
		return n.inSum, true
	case len(n.out) > 0 && n.outUnknown == 0:
		return n.outSum, true
	}
	return 0, false
}

// flowSolver resolves one function with a work list: whenever an arc becomes
// known both of its blocks are queued again, so information propagates as
// soon as it is available.
//
// Functions with at least two blocks get an extra edge from the exit block to
// the entry block, closing the flow so that entry and exit obey conservation
// like every other block. It is never copied back to the function.
type flowSolver struct {
	f      *Function
	edges  []flowEdge
	nodes  []flowNode
	queue  []uint32
	queued []bool
}

func newFlowSolver(f *Function) *flowSolver {
	s := &flowSolver{
		f:      f,
		edges:  make([]flowEdge, 0, len(f.Arcs)+1),
		nodes:  make([]flowNode, len(f.Blocks)),
		queued: make([]bool, len(f.Blocks)),
	}
	for _, a := range f.Arcs {
		s.edges = append(s.edges, flowEdge{src: a.Src, dst: a.Dst, count: a.Count, known: a.HasCount})
	}
	if n := len(f.Blocks); n >= 2 {
		s.edges = append(s.edges, flowEdge{src: uint32(n - 1), dst: 0})
	}
	for id, e := range s.edges {
		src, dst := &s.nodes[e.src], &s.nodes[e.dst]
		src.out = append(src.out, id)
		dst.in = append(dst.in, id)
		if !e.known {
			src.outUnknown++
			dst.inUnknown++
		}
	}
	return s
}

func (s *flowSolver) solve() error {
	for id, e := range s.edges {
		if !e.known {
			continue
		}
		if err := s.accumulate(id); err != nil {
			return err
		}
	}
	for b := range s.nodes {
		s.push(uint32(b))
	}
	for len(s.queue) > 0 {
		b := s.queue[0]
		s.queue = s.queue[1:]
		s.queued[b] = false
		if err := s.visit(b); err != nil {
			return err
		}
	}
	s.apply()
	return nil
}

func (s *flowSolver) push(b uint32) {
	if !s.queued[b] {
		s.queued[b] = true
		s.queue = append(s.queue, b)
	}
}

func (s *flowSolver) visit(b uint32) error {
	n := &s.nodes[b]
	total, ok := n.total()
	if !ok {
		return nil
	}
	if n.inUnknown == 0 && n.outUnknown == 0 {
		if len(n.in) > 0 && len(n.out) > 0 && n.inSum != n.outSum {
			return s.inconsistent(b, fmt.Sprintf("incoming arcs sum to %d but outgoing arcs sum to %d", n.inSum, n.outSum))
		}
		return nil
	}
	if n.inUnknown == 1 {
		if err := s.resolveLast(b, n.in, n.inSum, total); err != nil {
			return err
		}
	}
	if n.outUnknown == 1 {
		if err := s.resolveLast(b, n.out, n.outSum, total); err != nil {
			return err
		}
	}
	return nil
}

// resolveLast solves the single unknown arc among ids, whose known arcs sum
// to sum, for a block executed total times.
func (s *flowSolver) resolveLast(b uint32, ids []int, sum, total uint64) error {
	for _, id := range ids {
		e := &s.edges[id]
		if e.known {
			continue
		}
		if sum > total {
			return s.inconsistent(b, fmt.Sprintf("known arcs sum to %d, more than the block count %d", sum, total))
		}
		e.count, e.known = total-sum, true
		s.nodes[e.src].outUnknown--
		s.nodes[e.dst].inUnknown--
		if err := s.accumulate(id); err != nil {
			return err
		}
		s.push(e.src)
		s.push(e.dst)
		return nil
	}
	return nil
}

// accumulate adds a known edge count to the sums of both of its blocks.
func (s *flowSolver) accumulate(id int) error {
	e := s.edges[id]
	src, dst := &s.nodes[e.src], &s.nodes[e.dst]
	var carry uint64
	if src.outSum, carry = bits.Add64(src.outSum, e.count, 0); carry != 0 {
		return s.inconsistent(e.src, "outgoing arc counts overflow")
	}
	if dst.inSum, carry = bits.Add64(dst.inSum, e.count, 0); carry != 0 {
		return s.inconsistent(e.dst, "incoming arc counts overflow")
	}
	return nil
}

func (s *flowSolver) inconsistent(b uint32, reason string) error {
	return &InconsistentFlowError{Function: s.f.Name, Ident: s.f.Ident, Block: b, Reason: reason}
}

// apply copies the solved counts back to the function.
func (s *flowSolver) apply() {
	numArcs := len(s.f.Arcs)
	for i := range s.f.Arcs {
		e := s.edges[i]
		s.f.Arcs[i].Count, s.f.Arcs[i].HasCount = e.count, e.known
	}
	for i := range s.f.Blocks {
		b := &s.f.Blocks[i]
		n := &s.nodes[i]
		if total, ok := n.total(); ok {
			b.Count = total
		} else {
			ids := n.in
			if b.Entry {
				ids = n.out
			}
			b.Count = 0
			for _, id := range ids {
				if id < numArcs && s.edges[id].known {
					b.Count += s.edges[id].count
				}
			}
		}
		b.HasCount = true
	}
}

package analyzer

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/xevolver/rose/state"
	"github.com/xevolver/rose/stg"
)

// ErrNoPathFound is returned when no path connects the start state to the
// requested target, for instance after a reduction eliminated it.
var ErrNoPathFound = errors.New("analyzer: no path from start estate to target")

// TraceMode selects the minimality metric of counterexample extraction.
type TraceMode int

const (
	// TraceFewestTransitions extracts a path with the fewest transitions,
	// found by breadth-first search backwards from the violation.
	TraceFewestTransitions TraceMode = iota
	// TraceFewestInputs extracts a path with the fewest observable input
	// events, found by a backwards Dijkstra search where only transitions
	// into input states carry weight.
	TraceFewestInputs
	// TraceFewestInOutEvents extracts a path with the fewest observable
	// events of either direction, weighing transitions into input and
	// output states alike.
	TraceFewestInOutEvents
)

// CounterexamplePath returns the states of a minimal path from the start
// state to target, both inclusive, under the chosen metric.
func (a *Analyzer) CounterexamplePath(target *state.EState, mode TraceMode) ([]*state.EState, error) {
	start := a.graph.StartEState()
	if start == nil {
		panic("analyzer: CounterexamplePath without start estate")
	}
	if target == start {
		return []*state.EState{start}, nil
	}
	weight := stg.InputEventWeight
	switch mode {
	case TraceFewestTransitions:
		return a.reversePathBreadthFirst(target)
	case TraceFewestInOutEvents:
		weight = stg.InOutEventWeight
	}
	// Searching backwards keeps the frontier small: violations typically
	// have few ancestors, the start state has the whole graph as
	// descendants.
	shortest := path.DijkstraFrom(target, a.graph.Reversed(weight))
	nodes, w := shortest.To(start.ID())
	if len(nodes) == 0 || math.IsInf(w, 1) {
		return nil, ErrNoPathFound
	}
	out := make([]*state.EState, len(nodes))
	for i, n := range nodes {
		// reversed search yields target..start
		out[len(nodes)-1-i] = n.(*state.EState)
	}
	return out, nil
}

// reversePathBreadthFirst walks the reversed graph from target and
// reconstructs the fewest-transitions path once the start state is reached.
func (a *Analyzer) reversePathBreadthFirst(target *state.EState) ([]*state.EState, error) {
	start := a.graph.StartEState()
	// next maps a state to its forward successor on the extracted path.
	// First writer wins, so the map encodes the BFS tree.
	next := map[int64]*state.EState{}
	bf := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			if _, ok := next[e.To().ID()]; !ok {
				next[e.To().ID()] = e.From().(*state.EState)
			}
			return true
		},
	}
	found := bf.Walk(a.graph.Reversed(stg.UnitWeight), target, func(n graph.Node, _ int) bool {
		return n.ID() == start.ID()
	})
	if found == nil {
		return nil, ErrNoPathFound
	}
	out := []*state.EState{start}
	for es := start; es != target; {
		es = next[es.ID()]
		if es == nil {
			return nil, ErrNoPathFound
		}
		out = append(out, es)
	}
	return out, nil
}

// ReverseInOutSequenceBreadthFirst returns the observable events of a
// fewest-transitions path from the start state to target.
func (a *Analyzer) ReverseInOutSequenceBreadthFirst(target *state.EState) ([]state.InputOutput, error) {
	p, err := a.CounterexamplePath(target, TraceFewestTransitions)
	if err != nil {
		return nil, err
	}
	return FilterStdInOut(p), nil
}

// FilterStdInOut keeps the observable input and output events of a path, in
// path order.
func FilterStdInOut(p []*state.EState) []state.InputOutput {
	var out []state.InputOutput
	for _, es := range p {
		if es.IO.IsStdIn() || es.IO.IsStdOut() {
			out = append(out, es.IO)
		}
	}
	return out
}

// InputSequence returns the concrete input values read along a path. The
// second result is false when some input was abstracted away and the
// sequence is not fully concrete.
func InputSequence(p []*state.EState) ([]int64, bool) {
	var out []int64
	concrete := true
	for _, es := range p {
		if !es.IO.IsStdIn() {
			continue
		}
		if c, ok := es.Pstate.Value(es.IO.Var).ConstValue(); ok {
			out = append(out, c)
		} else {
			concrete = false
		}
	}
	return out, concrete
}

// InputSequenceLength counts the input events along a path.
func InputSequenceLength(p []*state.EState) int {
	n := 0
	for _, es := range p {
		if es.IO.IsStdIn() {
			n++
		}
	}
	return n
}

// ExtractAssertionTraces extracts one counterexample per discovered failing
// assertion, stores the input sequences in the results table, and returns
// the length of the longest extracted input sequence. The returned length
// is -1 when minimality is not guaranteed: the traces are provably minimal
// only on a precise graph built by strictly breadth-first full
// reachability.
func (a *Analyzer) ExtractAssertionTraces(mode TraceMode) (int, error) {
	maxLen := 0
	for _, es := range a.FirstAssertionOccurrences() {
		p, err := a.CounterexamplePath(es, mode)
		if err != nil {
			return 0, err
		}
		inputs, _ := InputSequence(p)
		a.results.SetCounterexample(es.IO.AssertCode(), inputs)
		if len(inputs) > maxLen {
			maxLen = len(inputs)
		}
	}
	if !a.bfsExploration || !a.graph.IsPrecise() {
		return -1, nil
	}
	return maxLen, nil
}

// Package cfa provides the control-flow abstraction the analyzer consumes:
// labels identifying control-flow points, directed edges between them, the
// flow (the set of all edges with per-label indices), and variable
// identifiers. Programs are constructed programmatically via [Builder];
// building flows from source code is the job of a frontend and out of scope
// here.
package cfa

import (
	"fmt"
	"strings"

	"golang.org/x/tools/container/intsets"
)

// Label identifies a control-flow point. Labels are numbered 0..n-1 where n
// is the number of labeled points of a program.
type Label int

// NoLabel is the zero value for "no such label".
const NoLabel Label = -1

func (l Label) Valid() bool { return l >= 0 }

// Next returns the following label. Together with [Program.NumLabels] this
// allows enumerating all labels of a program.
func (l Label) Next() Label { return l + 1 }

func (l Label) String() string {
	if !l.Valid() {
		return "L?"
	}
	return fmt.Sprintf("L%d", int(l))
}

// LabelSet is a set of labels. The zero value is an empty set.
type LabelSet struct {
	set intsets.Sparse
}

func (s *LabelSet) Insert(l Label) bool { return s.set.Insert(int(l)) }
func (s *LabelSet) Has(l Label) bool    { return s.set.Has(int(l)) }
func (s *LabelSet) Len() int            { return s.set.Len() }

// Labels returns the elements in ascending order.
func (s *LabelSet) Labels() []Label {
	ints := s.set.AppendTo(nil)
	out := make([]Label, len(ints))
	for i, x := range ints {
		out[i] = Label(x)
	}
	return out
}

func (s *LabelSet) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, l := range s.Labels() {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(l.String())
	}
	sb.WriteString("}")
	return sb.String()
}

// EdgeType annotates an edge with its role in the flow. An edge can carry
// multiple annotations, e.g. a loop back edge that is also the false branch
// of the loop condition.
type EdgeType uint16

const (
	EdgeForward EdgeType = 1 << iota
	EdgeBackward
	EdgeTrue
	EdgeFalse
	EdgeCall
	EdgeCallReturn
	EdgeExternal
	// EdgePath marks a synthesized edge that summarizes the existence of a
	// path in the unreduced graph, not a single original edge.
	EdgePath
)

var edgeTypeNames = []struct {
	t    EdgeType
	name string
}{
	{EdgeForward, "forward"},
	{EdgeBackward, "backward"},
	{EdgeTrue, "true"},
	{EdgeFalse, "false"},
	{EdgeCall, "call"},
	{EdgeCallReturn, "callreturn"},
	{EdgeExternal, "external"},
	{EdgePath, "path"},
}

func (t EdgeType) String() string {
	var parts []string
	for _, n := range edgeTypeNames {
		if t&n.t != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Edge is a directed control-flow connection between two labels.
type Edge struct {
	Source Label
	Target Label
	Types  EdgeType
}

func (e Edge) IsType(t EdgeType) bool { return e.Types&t != 0 }

func (e Edge) String() string {
	return fmt.Sprintf("%s->%s[%s]", e.Source, e.Target, e.Types)
}

// Flow is the set of all edges of a program, with per-label in and out
// indices.
type Flow struct {
	edges []Edge
	out   map[Label][]Edge
	in    map[Label][]Edge
}

func NewFlow() *Flow {
	return &Flow{
		out: map[Label][]Edge{},
		in:  map[Label][]Edge{},
	}
}

// Insert adds e to the flow. Duplicate edges are ignored.
func (f *Flow) Insert(e Edge) {
	for _, old := range f.out[e.Source] {
		if old == e {
			return
		}
	}
	f.edges = append(f.edges, e)
	f.out[e.Source] = append(f.out[e.Source], e)
	f.in[e.Target] = append(f.in[e.Target], e)
}

// OutEdges returns the outgoing edges of l. The returned slice must not be
// modified.
func (f *Flow) OutEdges(l Label) []Edge { return f.out[l] }

// InEdges returns the incoming edges of l. The returned slice must not be
// modified.
func (f *Flow) InEdges(l Label) []Edge { return f.in[l] }

func (f *Flow) Size() int { return len(f.edges) }

// Labels returns the set of labels that occur as a source or target of an
// edge.
func (f *Flow) Labels() *LabelSet {
	var s LabelSet
	for _, e := range f.edges {
		s.Insert(e.Source)
		s.Insert(e.Target)
	}
	return &s
}

func (f *Flow) String() string {
	var sb strings.Builder
	for i, e := range f.edges {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.String())
	}
	return sb.String()
}

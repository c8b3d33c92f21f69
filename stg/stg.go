// Package stg implements the state transition graph: the directed multigraph
// of canonical extended states and the transitions between them, along with
// the reduction passes that shrink the graph while preserving observable
// behavior, and adapters that expose the graph to gonum's path algorithms.
package stg

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/state"
)

// Transition is a directed edge between two extended states, labeled with
// the control-flow edge that produced it.
type Transition struct {
	Source *state.EState
	Edge   cfa.Edge
	Target *state.EState
}

func (t *Transition) String() string {
	return fmt.Sprintf("%s=>%s=>%s", t.Source, t.Edge, t.Target)
}

type transitionKey struct {
	src, tgt int64
	edge     cfa.Edge
}

func (t *Transition) key() transitionKey {
	return transitionKey{src: t.Source.ID(), tgt: t.Target.ID(), edge: t.Edge}
}

type transitionSet map[*Transition]struct{}

// TransitionGraph owns the interned transitions plus derived indices:
// in-edges and out-edges per state, the designated start state, and the
// precise/complete result-quality flags. Add is safe for concurrent use;
// reductions and queries are not and run as post-passes.
type TransitionGraph struct {
	mu          sync.RWMutex
	transitions map[transitionKey]*Transition
	in          map[*state.EState]transitionSet
	out         map[*state.EState]transitionSet
	byID        map[int64]*state.EState
	start       *state.EState

	precise  bool
	complete bool
}

func New() *TransitionGraph {
	return &TransitionGraph{
		transitions: map[transitionKey]*Transition{},
		in:          map[*state.EState]transitionSet{},
		out:         map[*state.EState]transitionSet{},
		byID:        map[int64]*state.EState{},
		precise:     true,
		complete:    true,
	}
}

// SetStartEState designates the start state. The start state, once set, is
// immutable for the lifetime of the graph; logical restarts share it.
func (g *TransitionGraph) SetStartEState(es *state.EState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.start != nil && g.start != es {
		panic("stg: start state is already set")
	}
	g.start = es
	g.byID[es.ID()] = es
}

func (g *TransitionGraph) StartEState() *state.EState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.start
}

// Add records a transition. Both endpoints become members of the graph.
// Duplicate transitions are ignored.
func (g *TransitionGraph) Add(t Transition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := t.key()
	if _, ok := g.transitions[k]; ok {
		return
	}
	tp := &t
	g.transitions[k] = tp
	g.byID[t.Source.ID()] = t.Source
	g.byID[t.Target.ID()] = t.Target
	if g.out[t.Source] == nil {
		g.out[t.Source] = transitionSet{}
	}
	g.out[t.Source][tp] = struct{}{}
	if g.in[t.Target] == nil {
		g.in[t.Target] = transitionSet{}
	}
	g.in[t.Target][tp] = struct{}{}
}

// Erase removes a single transition. States left without any transitions
// stay members of the graph until eliminated explicitly.
func (g *TransitionGraph) Erase(t *Transition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.eraseLocked(t)
}

func (g *TransitionGraph) eraseLocked(t *Transition) {
	k := t.key()
	tp, ok := g.transitions[k]
	if !ok {
		return
	}
	delete(g.transitions, k)
	delete(g.out[tp.Source], tp)
	delete(g.in[tp.Target], tp)
}

// EliminateEState removes es and all its in- and outgoing transitions.
func (g *TransitionGraph) EliminateEState(es *state.EState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.eliminateLocked(es)
}

func (g *TransitionGraph) eliminateLocked(es *state.EState) {
	for t := range g.in[es] {
		g.eraseLocked(t)
	}
	for t := range g.out[es] {
		g.eraseLocked(t)
	}
	delete(g.in, es)
	delete(g.out, es)
	if g.start != es {
		delete(g.byID, es.ID())
	}
}

// Contains reports whether es is a member of the graph.
func (g *TransitionGraph) Contains(es *state.EState) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byID[es.ID()] == es
}

// EStates returns the graph's states ordered by id.
func (g *TransitionGraph) EStates() []*state.EState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := maps.Values(g.byID)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Transitions returns all transitions in a deterministic order.
func (g *TransitionGraph) Transitions() []*Transition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := maps.Values(g.transitions)
	sort.Slice(out, func(i, j int) bool { return transitionLess(out[i], out[j]) })
	return out
}

func transitionLess(a, b *Transition) bool {
	if a.Source.ID() != b.Source.ID() {
		return a.Source.ID() < b.Source.ID()
	}
	if a.Target.ID() != b.Target.ID() {
		return a.Target.ID() < b.Target.ID()
	}
	return a.Edge.Types < b.Edge.Types
}

// Size returns the number of transitions.
func (g *TransitionGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.transitions)
}

// NumEStates returns the number of member states.
func (g *TransitionGraph) NumEStates() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byID)
}

// InEdgesOf returns the transitions ending in es.
func (g *TransitionGraph) InEdgesOf(es *state.EState) []*Transition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedTransitions(g.in[es])
}

// OutEdgesOf returns the transitions starting in es.
func (g *TransitionGraph) OutEdgesOf(es *state.EState) []*Transition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedTransitions(g.out[es])
}

func sortedTransitions(s transitionSet) []*Transition {
	out := maps.Keys(s)
	sort.Slice(out, func(i, j int) bool { return transitionLess(out[i], out[j]) })
	return out
}

// Pred returns the distinct predecessor states of es.
func (g *TransitionGraph) Pred(es *state.EState) []*state.EState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := map[*state.EState]struct{}{}
	for t := range g.in[es] {
		seen[t.Source] = struct{}{}
	}
	return sortedEStates(seen)
}

// Succ returns the distinct successor states of es.
func (g *TransitionGraph) Succ(es *state.EState) []*state.EState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := map[*state.EState]struct{}{}
	for t := range g.out[es] {
		seen[t.Target] = struct{}{}
	}
	return sortedEStates(seen)
}

func sortedEStates(s map[*state.EState]struct{}) []*state.EState {
	out := maps.Keys(s)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// HasSelfEdge returns a self transition of es, if one exists.
func (g *TransitionGraph) HasSelfEdge(es *state.EState) *Transition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for t := range g.out[es] {
		if t.Target == es {
			return t
		}
	}
	return nil
}

// EStateSetOfLabel returns the member states at label lab.
func (g *TransitionGraph) EStateSetOfLabel(lab cfa.Label) []*state.EState {
	var out []*state.EState
	for _, es := range g.EStates() {
		if es.Label == lab {
			out = append(out, es)
		}
	}
	return out
}

// TransitionSourceEStateSetOfLabel returns the states at lab that have an
// outgoing transition.
func (g *TransitionGraph) TransitionSourceEStateSetOfLabel(lab cfa.Label) []*state.EState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := map[*state.EState]struct{}{}
	for _, t := range g.transitions {
		if t.Source.Label == lab {
			seen[t.Source] = struct{}{}
		}
	}
	return sortedEStates(seen)
}

// NumberOfObservableStates counts member states carrying the selected
// observable annotations.
func (g *TransitionGraph) NumberOfObservableStates(includeIn, includeOut, includeErr bool) int {
	n := 0
	for _, es := range g.EStates() {
		switch {
		case includeIn && es.IO.IsStdIn():
			n++
		case includeOut && es.IO.IsStdOut():
			n++
		case includeErr && (es.IO.IsStdErr() || es.IO.IsError()):
			n++
		}
	}
	return n
}

// Stats is a point-in-time summary of the graph.
type Stats struct {
	EStates     int
	Transitions int
	InStates    int
	OutStates   int
	ErrStates   int
	Precise     bool
	Complete    bool
}

func (g *TransitionGraph) Stats() Stats {
	s := Stats{
		EStates:     g.NumEStates(),
		Transitions: g.Size(),
		Precise:     g.IsPrecise(),
		Complete:    g.IsComplete(),
	}
	for _, es := range g.EStates() {
		switch {
		case es.IO.IsStdIn():
			s.InStates++
		case es.IO.IsStdOut():
			s.OutStates++
		case es.IO.IsStdErr() || es.IO.IsError():
			s.ErrStates++
		}
	}
	return s
}

func (g *TransitionGraph) SetPrecise(v bool)  { g.mu.Lock(); g.precise = v; g.mu.Unlock() }
func (g *TransitionGraph) SetComplete(v bool) { g.mu.Lock(); g.complete = v; g.mu.Unlock() }

// IsPrecise reports that no forced abstraction contributed to the graph.
func (g *TransitionGraph) IsPrecise() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.precise
}

// IsComplete reports that exploration reached a fixpoint without hitting a
// resource bound.
func (g *TransitionGraph) IsComplete() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.complete
}

// Clone returns a deep copy of the graph structure. The states themselves
// are canonical and shared.
func (g *TransitionGraph) Clone() *TransitionGraph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ng := New()
	ng.precise = g.precise
	ng.complete = g.complete
	ng.start = g.start
	if g.start != nil {
		ng.byID[g.start.ID()] = g.start
	}
	for id, es := range g.byID {
		ng.byID[id] = es
	}
	for _, t := range g.transitions {
		tc := *t
		ng.transitions[tc.key()] = &tc
		if ng.out[tc.Source] == nil {
			ng.out[tc.Source] = transitionSet{}
		}
		ng.out[tc.Source][&tc] = struct{}{}
		if ng.in[tc.Target] == nil {
			ng.in[tc.Target] = transitionSet{}
		}
		ng.in[tc.Target][&tc] = struct{}{}
	}
	return ng
}

// CheckConsistency verifies the internal invariants: every transition's
// endpoints are members, and the in/out indices agree exactly with the
// transition set. It is run after reduction passes; a failure indicates a
// bug in reduction logic.
func (g *TransitionGraph) CheckConsistency() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for k, t := range g.transitions {
		if g.byID[t.Source.ID()] != t.Source {
			return fmt.Errorf("stg: transition %s references source %s absent from the graph", t, t.Source)
		}
		if g.byID[t.Target.ID()] != t.Target {
			return fmt.Errorf("stg: transition %s references target %s absent from the graph", t, t.Target)
		}
		if _, ok := g.out[t.Source][t]; !ok {
			return fmt.Errorf("stg: transition %s missing from out-index of %s", t, t.Source)
		}
		if _, ok := g.in[t.Target][t]; !ok {
			return fmt.Errorf("stg: transition %s missing from in-index of %s", t, t.Target)
		}
		if t.key() != k {
			return fmt.Errorf("stg: transition %s stored under wrong key", t)
		}
	}
	nIn, nOut := 0, 0
	for _, s := range g.in {
		nIn += len(s)
	}
	for _, s := range g.out {
		nOut += len(s)
	}
	if nIn != len(g.transitions) || nOut != len(g.transitions) {
		return fmt.Errorf("stg: index sizes (in=%d, out=%d) disagree with transition count %d",
			nIn, nOut, len(g.transitions))
	}
	return nil
}

// Format renders the graph as one transition per line, with variable names
// resolved through vim.
func (g *TransitionGraph) Format(vim *cfa.VariableIdMapping) string {
	var sb strings.Builder
	for _, t := range g.Transitions() {
		fmt.Fprintf(&sb, "%s=>%s=>%s\n", t.Source.Format(vim), t.Edge, t.Target.Format(vim))
	}
	return sb.String()
}

func (g *TransitionGraph) String() string { return g.Format(nil) }

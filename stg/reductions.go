package stg

import (
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bitset"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/state"
)

// The reduction passes shrink an already-built graph while preserving the
// paths between observable states (input, output, error, start). They are
// composable and applied in an explicit order; CheckConsistency should be
// run after a reduction pipeline.

func (g *TransitionGraph) isObservableOrStart(es *state.EState) bool {
	return es == g.start || es.IsObservable()
}

// pathEdge synthesizes an edge that represents the existence of a path from
// a to b in the unreduced graph.
func pathEdge(a, b *state.EState) cfa.Edge {
	return cfa.Edge{Source: a.Label, Target: b.Label, Types: cfa.EdgePath}
}

// ReduceToObservableBehavior removes every state that is neither observable
// nor the start state, splicing its in-edges directly to its successors so
// that all paths between observable states are preserved. Self edges of a
// bypassed state are collapsed: a path looping through an unobservable state
// contributes no observable adjacency beyond the pairwise splice.
func (g *TransitionGraph) ReduceToObservableBehavior() {
	// Bypassing never makes an observable state unobservable, so the victim
	// set can be collected up front.
	var victims []*state.EState
	for _, es := range g.EStates() {
		if !g.isObservableOrStart(es) {
			victims = append(victims, es)
		}
	}
	for _, es := range victims {
		g.bypassEState(es)
	}
}

func (g *TransitionGraph) bypassEState(es *state.EState) {
	ins := g.InEdgesOf(es)
	outs := g.OutEdgesOf(es)
	for _, tin := range ins {
		if tin.Source == es {
			continue
		}
		for _, tout := range outs {
			if tout.Target == es {
				continue
			}
			g.Add(Transition{Source: tin.Source, Edge: pathEdge(tin.Source, tout.Target), Target: tout.Target})
		}
	}
	g.EliminateEState(es)
}

// RemoveOutputOutputTransitions erases transitions that lead directly from
// one output state to another. After bypassing, adjacent same-kind
// transitions carry no information for a minimal trace.
func (g *TransitionGraph) RemoveOutputOutputTransitions() int {
	return g.removeSameKind(func(es *state.EState) bool { return es.IO.IsStdOut() })
}

// RemoveInputInputTransitions erases transitions that lead directly from one
// input state to another.
func (g *TransitionGraph) RemoveInputInputTransitions() int {
	return g.removeSameKind(func(es *state.EState) bool { return es.IO.IsStdIn() })
}

func (g *TransitionGraph) removeSameKind(kind func(*state.EState) bool) int {
	n := 0
	for _, t := range g.Transitions() {
		if t.Source != t.Target && kind(t.Source) && kind(t.Target) {
			g.Erase(t)
			n++
		}
	}
	return n
}

// PruneLeaves repeatedly deletes states with no outgoing transitions until
// only states on infinite paths remain. The start state is never pruned.
// It returns the number of states removed; running it on an already-pruned
// graph is a no-op.
func (g *TransitionGraph) PruneLeaves() int {
	pruned := 0
	var leaves []*state.EState
	for _, es := range g.EStates() {
		if len(g.OutEdgesOf(es)) == 0 && es != g.start {
			leaves = append(leaves, es)
		}
	}
	for len(leaves) > 0 {
		es := leaves[len(leaves)-1]
		leaves = leaves[:len(leaves)-1]
		preds := g.Pred(es)
		g.EliminateEState(es)
		pruned++
		for _, p := range preds {
			if p != es && p != g.start && len(g.OutEdgesOf(p)) == 0 {
				leaves = append(leaves, p)
			}
		}
	}
	return pruned
}

// RestrictOptions selects which observable states survive a
// [TransitionGraph.RestrictToInOutWorklist] pass.
type RestrictOptions struct {
	IncludeIn  bool
	IncludeOut bool
	IncludeErr bool
}

// RestrictToInOutWorklist reconstructs the graph keeping only the start
// state, the supplied worklist frontier, and the selected observable states,
// connected by synthesized edges that represent the existence of a path in
// the original graph. This is a structural summarization, not a subgraph:
// the surviving edges need not correspond to any single original transition.
func (g *TransitionGraph) RestrictToInOutWorklist(opts RestrictOptions, worklist []*state.EState) {
	keep := map[*state.EState]struct{}{}
	if g.start != nil {
		keep[g.start] = struct{}{}
	}
	for _, es := range worklist {
		if g.Contains(es) {
			keep[es] = struct{}{}
		}
	}
	for _, es := range g.EStates() {
		switch {
		case opts.IncludeIn && es.IO.IsStdIn():
			keep[es] = struct{}{}
		case opts.IncludeOut && es.IO.IsStdOut():
			keep[es] = struct{}{}
		case opts.IncludeErr && (es.IO.IsStdErr() || es.IO.IsError()):
			keep[es] = struct{}{}
		}
	}

	var synth []Transition
	for es := range keep {
		for _, reached := range g.reachableKept(es, keep) {
			synth = append(synth, Transition{Source: es, Edge: pathEdge(es, reached), Target: reached})
		}
	}

	for _, t := range g.Transitions() {
		g.Erase(t)
	}
	for _, es := range g.EStates() {
		if _, ok := keep[es]; !ok {
			g.EliminateEState(es)
		}
	}
	for _, t := range synth {
		g.Add(t)
	}
}

// reachableKept returns the kept states reachable from src without passing
// through another kept state.
func (g *TransitionGraph) reachableKept(src *state.EState, keep map[*state.EState]struct{}) []*state.EState {
	visited := bitset.New(uint(g.NumEStates()))
	var found []*state.EState
	stack := []*state.EState{src}
	for len(stack) > 0 {
		es := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, t := range g.OutEdgesOf(es) {
			tgt := t.Target
			if visited.Test(uint(tgt.ID())) {
				continue
			}
			visited.Set(uint(tgt.ID()))
			if _, ok := keep[tgt]; ok {
				found = append(found, tgt)
				continue
			}
			stack = append(stack, tgt)
		}
	}
	return found
}

// FoldEquivalentEStates merges states with the same observable annotation
// and identical successor sets into one representative, annotating the
// surviving edges as path edges. The merge iterates to a fixpoint. The graph
// must already be observable-behavior-reduced for the merge to preserve
// observable behavior. It returns the number of states merged away.
func (g *TransitionGraph) FoldEquivalentEStates() int {
	merged := 0
	for {
		groups := map[string][]*state.EState{}
		for _, es := range g.EStates() {
			if es == g.start {
				continue
			}
			sig := g.foldSignature(es)
			groups[sig] = append(groups[sig], es)
		}
		changed := false
		for _, group := range groups {
			if len(group) < 2 {
				continue
			}
			rep := group[0] // EStates() is id-ordered, the representative is the oldest
			for _, dup := range group[1:] {
				g.mergeInto(rep, dup)
				merged++
			}
			changed = true
		}
		if !changed {
			return merged
		}
	}
}

func (g *TransitionGraph) foldSignature(es *state.EState) string {
	var sb strings.Builder
	sb.WriteString(es.IO.String())
	for _, succ := range g.Succ(es) {
		id := succ.ID()
		if succ == es {
			id = -1 // self successor folds onto the representative
		}
		sb.WriteString(",")
		sb.WriteString(strconv.FormatInt(id, 10))
	}
	return sb.String()
}

func (g *TransitionGraph) mergeInto(rep, dup *state.EState) {
	for _, t := range g.InEdgesOf(dup) {
		src := t.Source
		if src == dup {
			src = rep
		}
		g.Add(Transition{Source: src, Edge: pathEdge(src, rep), Target: rep})
	}
	for _, t := range g.OutEdgesOf(dup) {
		tgt := t.Target
		if tgt == dup {
			tgt = rep
		}
		g.Add(Transition{Source: rep, Edge: pathEdge(rep, tgt), Target: tgt})
	}
	g.EliminateEState(dup)
}

// EliminateBackEdges removes the back edges of a depth-first traversal from
// the start state and returns how many were removed.
func (g *TransitionGraph) EliminateBackEdges() int {
	if g.start == nil {
		return 0
	}
	var backEdges []*Transition
	onStack := bitset.New(uint(g.NumEStates()))
	visited := bitset.New(uint(g.NumEStates()))
	var walk func(es *state.EState)
	walk = func(es *state.EState) {
		visited.Set(uint(es.ID()))
		onStack.Set(uint(es.ID()))
		for _, t := range g.OutEdgesOf(es) {
			id := uint(t.Target.ID())
			if onStack.Test(id) {
				backEdges = append(backEdges, t)
				continue
			}
			if !visited.Test(id) {
				walk(t.Target)
			}
		}
		onStack.Clear(uint(es.ID()))
	}
	walk(g.start)
	for _, t := range backEdges {
		g.Erase(t)
	}
	return len(backEdges)
}

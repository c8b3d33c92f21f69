package stg

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"

	"github.com/xevolver/rose/state"
)

// WeightFunc assigns a non-negative weight to a transition. Path queries use
// it to select the minimality metric: [UnitWeight] minimizes the number of
// transitions, [InputEventWeight] the number of observable input events, and
// [InOutEventWeight] the number of observable events of either direction.
type WeightFunc func(*Transition) float64

// UnitWeight weighs every transition 1.
func UnitWeight(*Transition) float64 { return 1 }

// InputEventWeight weighs a transition 1 iff it enters an input state, so a
// shortest path minimizes the observable input sequence.
func InputEventWeight(t *Transition) float64 {
	if t.Target.IO.IsStdIn() {
		return 1
	}
	return 0
}

// InOutEventWeight weighs a transition 1 iff it enters an input or output
// state.
func InOutEventWeight(t *Transition) float64 {
	if t.Target.IO.IsStdIn() || t.Target.IO.IsStdOut() {
		return 1
	}
	return 0
}

// Directed returns a gonum directed weighted view of the graph. EStates are
// the nodes; parallel transitions collapse to their minimum weight.
func (g *TransitionGraph) Directed(w WeightFunc) graph.Directed {
	return &gonumView{g: g, weight: w}
}

// Reversed returns the gonum view of the graph with all transitions
// reversed. Trace extraction searches backwards from a violation toward the
// start state.
func (g *TransitionGraph) Reversed(w WeightFunc) graph.Directed {
	return &gonumView{g: g, reversed: true, weight: w}
}

type gonumView struct {
	g        *TransitionGraph
	reversed bool
	weight   WeightFunc
}

var (
	_ graph.Directed = (*gonumView)(nil)
	_ graph.Weighted = (*gonumView)(nil)
)

func (v *gonumView) Node(id int64) graph.Node {
	v.g.mu.RLock()
	defer v.g.mu.RUnlock()
	if es, ok := v.g.byID[id]; ok {
		return es
	}
	return nil
}

func (v *gonumView) Nodes() graph.Nodes {
	return nodesOf(v.g.EStates())
}

func (v *gonumView) From(id int64) graph.Nodes {
	es := v.lookup(id)
	if es == nil {
		return graph.Empty
	}
	if v.reversed {
		return nodesOf(v.g.Pred(es))
	}
	return nodesOf(v.g.Succ(es))
}

func (v *gonumView) To(id int64) graph.Nodes {
	es := v.lookup(id)
	if es == nil {
		return graph.Empty
	}
	if v.reversed {
		return nodesOf(v.g.Succ(es))
	}
	return nodesOf(v.g.Pred(es))
}

func (v *gonumView) HasEdgeBetween(xid, yid int64) bool {
	return v.minWeight(xid, yid) != nil || v.minWeight(yid, xid) != nil
}

func (v *gonumView) HasEdgeFromTo(uid, vid int64) bool {
	return v.minWeight(uid, vid) != nil
}

func (v *gonumView) Edge(uid, vid int64) graph.Edge {
	return v.WeightedEdge(uid, vid)
}

func (v *gonumView) WeightedEdge(uid, vid int64) graph.WeightedEdge {
	t := v.minWeight(uid, vid)
	if t == nil {
		return nil
	}
	return pathStep{f: v.lookup(uid), t: v.lookup(vid), w: v.weight(t)}
}

func (v *gonumView) Weight(xid, yid int64) (float64, bool) {
	if xid == yid {
		return 0, true
	}
	if t := v.minWeight(xid, yid); t != nil {
		return v.weight(t), true
	}
	return 0, false
}

func (v *gonumView) lookup(id int64) *state.EState {
	v.g.mu.RLock()
	defer v.g.mu.RUnlock()
	return v.g.byID[id]
}

// minWeight returns the minimum-weight original transition realizing the
// view edge uid->vid, or nil.
func (v *gonumView) minWeight(uid, vid int64) *Transition {
	src, tgt := uid, vid
	if v.reversed {
		src, tgt = vid, uid
	}
	from := v.lookup(src)
	to := v.lookup(tgt)
	if from == nil || to == nil {
		return nil
	}
	v.g.mu.RLock()
	defer v.g.mu.RUnlock()
	var best *Transition
	bestW := math.Inf(1)
	for t := range v.g.out[from] {
		if t.Target != to {
			continue
		}
		if w := v.weight(t); w < bestW {
			best, bestW = t, w
		}
	}
	return best
}

type pathStep struct {
	f, t graph.Node
	w    float64
}

func (e pathStep) From() graph.Node         { return e.f }
func (e pathStep) To() graph.Node           { return e.t }
func (e pathStep) ReversedEdge() graph.Edge { return pathStep{f: e.t, t: e.f, w: e.w} }
func (e pathStep) Weight() float64          { return e.w }

func nodesOf(estates []*state.EState) graph.Nodes {
	if len(estates) == 0 {
		return graph.Empty
	}
	nodes := make([]graph.Node, len(estates))
	for i, es := range estates {
		nodes[i] = es
	}
	return iterator.NewOrderedNodes(nodes)
}

package stg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/state"
)

func TestReduceToObservableBehavior(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	mid1 := f.estate(1, state.None(), 0)
	in := f.estate(2, state.StdInVar(0), 0)
	mid2 := f.estate(3, state.None(), 0)
	out := f.estate(4, state.StdOutVar(0), 0)
	g := chain(f, start, mid1, in, mid2, out)

	g.ReduceToObservableBehavior()
	require.NoError(t, g.CheckConsistency())

	assert.False(t, g.Contains(mid1))
	assert.False(t, g.Contains(mid2))
	assert.True(t, g.Contains(start))
	assert.True(t, g.Contains(in))
	assert.True(t, g.Contains(out))
	assert.Equal(t, 2, g.Size())

	// The splices are marked as path edges.
	outs := g.OutEdgesOf(start)
	require.Len(t, outs, 1)
	assert.Equal(t, in, outs[0].Target)
	assert.True(t, outs[0].Edge.IsType(cfa.EdgePath))
	assert.Equal(t, []*state.EState{out}, g.Succ(in))
}

func TestReduceKeepsLoopsThroughUnobservables(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	in := f.estate(1, state.StdInVar(0), 0)
	mid := f.estate(2, state.None(), 0)
	g := chain(f, start, in, mid)
	g.Add(trans(mid, in)) // loop in -> mid -> in

	g.ReduceToObservableBehavior()
	require.NoError(t, g.CheckConsistency())
	require.NotNil(t, g.HasSelfEdge(in), "the loop through the bypassed state must survive as a self edge")
}

func TestRemoveSameKindTransitions(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	in1 := f.estate(1, state.StdInVar(0), 1)
	in2 := f.estate(1, state.StdInVar(0), 2)
	out1 := f.estate(2, state.StdOutVar(0), 1)
	out2 := f.estate(3, state.StdOutVar(0), 2)
	g := chain(f, start, in1, in2, out1, out2)

	assert.Equal(t, 1, g.RemoveInputInputTransitions())
	assert.Equal(t, 1, g.RemoveOutputOutputTransitions())
	require.NoError(t, g.CheckConsistency())
	assert.Empty(t, g.Succ(in1))
	assert.Equal(t, []*state.EState{out1}, g.Succ(in2))
}

func TestPruneLeaves(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	a := f.estate(1, state.None(), 0)
	b := f.estate(2, state.None(), 0)
	g := chain(f, start, a, b)
	g.Add(trans(a, start)) // keep start and a on a cycle

	// b is a leaf; removing it must not cascade into the cycle.
	assert.Equal(t, 1, g.PruneLeaves())
	require.NoError(t, g.CheckConsistency())
	assert.False(t, g.Contains(b))
	assert.True(t, g.Contains(a))

	assert.Equal(t, 0, g.PruneLeaves(), "pruning is idempotent")
}

func TestPruneLeavesCascadesButKeepsStart(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	a := f.estate(1, state.None(), 0)
	b := f.estate(2, state.None(), 0)
	g := chain(f, start, a, b)

	assert.Equal(t, 2, g.PruneLeaves())
	assert.True(t, g.Contains(start))
	assert.Equal(t, 0, g.Size())
}

func TestRestrictToInOutWorklist(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	mid := f.estate(1, state.None(), 0)
	in := f.estate(2, state.StdInVar(0), 0)
	mid2 := f.estate(3, state.None(), 0)
	out := f.estate(4, state.StdOutVar(0), 0)
	frontier := f.estate(5, state.None(), 0)
	g := chain(f, start, mid, in, mid2, out, frontier)

	g.RestrictToInOutWorklist(RestrictOptions{IncludeIn: true, IncludeOut: true}, []*state.EState{frontier})
	require.NoError(t, g.CheckConsistency())

	assert.True(t, g.Contains(start))
	assert.True(t, g.Contains(in))
	assert.True(t, g.Contains(out))
	assert.True(t, g.Contains(frontier))
	assert.False(t, g.Contains(mid))
	assert.False(t, g.Contains(mid2))

	// start ~> in ~> out ~> frontier via synthesized path edges.
	assert.Equal(t, []*state.EState{in}, g.Succ(start))
	assert.Equal(t, []*state.EState{out}, g.Succ(in))
	assert.Equal(t, []*state.EState{frontier}, g.Succ(out))
	for _, tr := range g.Transitions() {
		assert.True(t, tr.Edge.IsType(cfa.EdgePath))
	}
}

func TestFoldEquivalentEStates(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	in1 := f.estate(1, state.StdInVar(0), 1)
	in2 := f.estate(1, state.StdInVar(0), 2)
	sink := f.estate(2, state.StdOutVar(0), 0)

	g := New()
	g.SetStartEState(start)
	g.Add(trans(start, in1))
	g.Add(trans(start, in2))
	g.Add(trans(in1, sink))
	g.Add(trans(in2, sink))

	// in1 and in2 carry the same annotation and the same successors.
	assert.Equal(t, 1, g.FoldEquivalentEStates())
	require.NoError(t, g.CheckConsistency())
	assert.Equal(t, 3, g.NumEStates())
	assert.Len(t, g.Succ(start), 1)
	assert.Equal(t, []*state.EState{sink}, g.Succ(g.Succ(start)[0]))
}

func TestFoldDistinguishesAnnotations(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	in := f.estate(1, state.StdInVar(0), 1)
	out := f.estate(1, state.StdOutVar(0), 2)
	sink := f.estate(2, state.FailedAssert(0), 0)

	g := New()
	g.SetStartEState(start)
	g.Add(trans(start, in))
	g.Add(trans(start, out))
	g.Add(trans(in, sink))
	g.Add(trans(out, sink))

	assert.Equal(t, 0, g.FoldEquivalentEStates())
	assert.Equal(t, 4, g.NumEStates())
}

func TestEliminateBackEdges(t *testing.T) {
	f := newFixture()
	start := f.estate(0, state.None(), 0)
	a := f.estate(1, state.None(), 0)
	b := f.estate(2, state.None(), 0)
	g := chain(f, start, a, b)
	g.Add(trans(b, a))
	g.Add(trans(a, a))

	// b->a closes a cycle and a->a is a self loop; both are back edges.
	assert.Equal(t, 2, g.EliminateBackEdges())
	require.NoError(t, g.CheckConsistency())
	assert.Equal(t, 2, g.Size())
	assert.Equal(t, 0, g.EliminateBackEdges())
}

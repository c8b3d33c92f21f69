package stg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/lattice"
	"github.com/xevolver/rose/state"
)

// fixture interns test estates so that reference equality matches structural
// equality, like in a real run.
type fixture struct {
	pstates *state.PStateSet
	csets   *state.ConstraintSetMaintainer
	estates *state.EStateSet
}

func newFixture() *fixture {
	return &fixture{
		pstates: state.NewPStateSet(),
		csets:   state.NewConstraintSetMaintainer(),
		estates: state.NewEStateSet(),
	}
}

// estate interns an extended state at label with the given annotation; v
// disambiguates states sharing label and annotation.
func (f *fixture) estate(label cfa.Label, io state.InputOutput, v int64) *state.EState {
	ps, _ := f.pstates.Process(state.PState{}.Set(0, lattice.Const(v)))
	cs, _ := f.csets.Process(state.ConstraintSet{})
	es, _ := f.estates.Process(state.EState{Label: label, Pstate: ps, Cset: cs, IO: io})
	return es
}

func trans(src, tgt *state.EState) Transition {
	return Transition{
		Source: src,
		Edge:   cfa.Edge{Source: src.Label, Target: tgt.Label, Types: cfa.EdgeForward},
		Target: tgt,
	}
}

// chain links the given states in order and returns the graph, with the
// first state as start.
func chain(f *fixture, states ...*state.EState) *TransitionGraph {
	g := New()
	g.SetStartEState(states[0])
	for i := 0; i < len(states)-1; i++ {
		g.Add(trans(states[i], states[i+1]))
	}
	return g
}

func TestGraphAddDedup(t *testing.T) {
	f := newFixture()
	a := f.estate(0, state.None(), 0)
	b := f.estate(1, state.None(), 0)

	g := New()
	g.SetStartEState(a)
	g.Add(trans(a, b))
	g.Add(trans(a, b))
	assert.Equal(t, 1, g.Size())
	assert.Equal(t, 2, g.NumEStates())
}

func TestSetStartEState(t *testing.T) {
	f := newFixture()
	a := f.estate(0, state.None(), 0)
	b := f.estate(1, state.None(), 0)

	g := New()
	g.SetStartEState(a)
	assert.NotPanics(t, func() { g.SetStartEState(a) })
	assert.Panics(t, func() { g.SetStartEState(b) })
}

func TestEraseAndEliminate(t *testing.T) {
	f := newFixture()
	a := f.estate(0, state.None(), 0)
	b := f.estate(1, state.None(), 0)
	c := f.estate(2, state.None(), 0)
	g := chain(f, a, b, c)

	require.Len(t, g.OutEdgesOf(a), 1)
	g.Erase(g.OutEdgesOf(a)[0])
	assert.Empty(t, g.OutEdgesOf(a))
	assert.Equal(t, 1, g.Size())

	g.EliminateEState(b)
	assert.False(t, g.Contains(b))
	assert.Equal(t, 0, g.Size())
	assert.NoError(t, g.CheckConsistency())
}

func TestPredSuccSelfEdge(t *testing.T) {
	f := newFixture()
	a := f.estate(0, state.None(), 0)
	b := f.estate(1, state.None(), 0)
	g := chain(f, a, b)
	g.Add(trans(b, b))

	assert.Equal(t, []*state.EState{a, b}, g.Pred(b),
		"a self edge makes b its own predecessor")
	assert.Contains(t, g.Succ(b), b)
	assert.NotNil(t, g.HasSelfEdge(b))
	assert.Nil(t, g.HasSelfEdge(a))
}

func TestEStateSetOfLabel(t *testing.T) {
	f := newFixture()
	a := f.estate(0, state.None(), 0)
	b1 := f.estate(1, state.None(), 1)
	b2 := f.estate(1, state.None(), 2)
	g := chain(f, a, b1)
	g.Add(trans(a, b2))

	assert.Len(t, g.EStateSetOfLabel(1), 2)
	assert.Len(t, g.EStateSetOfLabel(0), 1)
	assert.Empty(t, g.EStateSetOfLabel(9))

	srcs := g.TransitionSourceEStateSetOfLabel(0)
	assert.Equal(t, []*state.EState{a}, srcs)
}

func TestNumberOfObservableStates(t *testing.T) {
	f := newFixture()
	a := f.estate(0, state.None(), 0)
	in := f.estate(1, state.StdInVar(0), 0)
	out := f.estate(2, state.StdOutVar(0), 0)
	err := f.estate(3, state.FailedAssert(0), 0)
	g := chain(f, a, in, out, err)

	assert.Equal(t, 3, g.NumberOfObservableStates(true, true, true))
	assert.Equal(t, 1, g.NumberOfObservableStates(true, false, false))
	assert.Equal(t, 2, g.NumberOfObservableStates(false, true, true))

	st := g.Stats()
	assert.Equal(t, 4, st.EStates)
	assert.Equal(t, 3, st.Transitions)
	assert.Equal(t, 1, st.InStates)
	assert.Equal(t, 1, st.OutStates)
	assert.Equal(t, 1, st.ErrStates)
	assert.True(t, st.Precise)
}

func TestCloneIsDeep(t *testing.T) {
	f := newFixture()
	a := f.estate(0, state.None(), 0)
	b := f.estate(1, state.None(), 0)
	c := f.estate(2, state.None(), 0)
	g := chain(f, a, b, c)
	g.SetPrecise(false)

	clone := g.Clone()
	require.NoError(t, clone.CheckConsistency())
	assert.Equal(t, g.Size(), clone.Size())
	assert.False(t, clone.IsPrecise())
	assert.Same(t, g.StartEState(), clone.StartEState())

	g.EliminateEState(b)
	assert.Equal(t, 0, g.Size())
	assert.Equal(t, 2, clone.Size(), "clone must not share transition storage")
	assert.True(t, clone.Contains(b))
}

func TestCheckConsistencyDetectsCorruption(t *testing.T) {
	f := newFixture()
	a := f.estate(0, state.None(), 0)
	b := f.estate(1, state.None(), 0)
	g := chain(f, a, b)
	require.NoError(t, g.CheckConsistency())

	// Reach into the graph and break an index.
	g.mu.Lock()
	for es := range g.in {
		delete(g.in, es)
		break
	}
	g.mu.Unlock()
	assert.Error(t, g.CheckConsistency())
}

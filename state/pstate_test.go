package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/lattice"
)

func TestPStateSetAndValue(t *testing.T) {
	var ps PState
	x := cfa.VariableId(0)
	y := cfa.VariableId(1)

	assert.True(t, ps.Value(x).IsBot(), "unbound variable must read as bottom")
	assert.False(t, ps.VariableExists(x))

	ps2 := ps.Set(x, lattice.Const(7))
	assert.True(t, ps.Value(x).IsBot(), "Set must not mutate the receiver")
	v, ok := ps2.Value(x).ConstValue()
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	ps3 := ps2.Set(y, lattice.Top()).Set(x, lattice.Const(9))
	v, _ = ps3.Value(x).ConstValue()
	assert.Equal(t, int64(9), v)
	assert.True(t, ps3.Value(y).IsTop())
	assert.Equal(t, []cfa.VariableId{x, y}, ps3.Variables())
}

func TestPStateTopify(t *testing.T) {
	x := cfa.VariableId(3)
	y := cfa.VariableId(5)
	ps := PState{}.Set(x, lattice.Const(1)).Set(y, lattice.Const(2))

	topped := ps.Topify(x)
	assert.True(t, topped.Value(x).IsTop())
	v, _ := topped.Value(y).ConstValue()
	assert.Equal(t, int64(2), v)

	all := ps.TopifyAll()
	assert.True(t, all.Value(x).IsTop())
	assert.True(t, all.Value(y).IsTop())
}

func TestPStateKeyAndEqual(t *testing.T) {
	x := cfa.VariableId(0)
	y := cfa.VariableId(1)

	a := PState{}.Set(y, lattice.Const(2)).Set(x, lattice.Const(1))
	b := PState{}.Set(x, lattice.Const(1)).Set(y, lattice.Const(2))
	assert.True(t, a.Equal(b), "insertion order must not matter")
	assert.Equal(t, a.Key(), b.Key())

	c := b.Set(x, lattice.Top())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Key(), c.Key())
}

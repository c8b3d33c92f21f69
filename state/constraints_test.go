package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xevolver/rose/cfa"
)

func TestConstraintHolds(t *testing.T) {
	x := cfa.VariableId(0)
	tests := []struct {
		c    Constraint
		v    int64
		want bool
	}{
		{Constraint{x, ConstraintEq, 5}, 5, true},
		{Constraint{x, ConstraintEq, 5}, 6, false},
		{Constraint{x, ConstraintNe, 5}, 6, true},
		{Constraint{x, ConstraintLt, 5}, 4, true},
		{Constraint{x, ConstraintLt, 5}, 5, false},
		{Constraint{x, ConstraintGe, 5}, 5, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.c.Holds(tt.v), "%s with %d", tt.c, tt.v)
	}
}

func TestConstraintSetAddAndDedup(t *testing.T) {
	x := cfa.VariableId(0)
	var cs ConstraintSet

	cs1 := cs.AddConstraint(Constraint{x, ConstraintEq, 5})
	assert.Equal(t, 0, cs.Len(), "AddConstraint must not mutate the receiver")
	assert.Equal(t, 1, cs1.Len())

	cs2 := cs1.AddConstraint(Constraint{x, ConstraintEq, 5})
	assert.Equal(t, 1, cs2.Len(), "duplicate constraint must be absorbed")
	assert.Equal(t, cs1.Key(), cs2.Key())
}

func TestConstraintSetInconsistency(t *testing.T) {
	x := cfa.VariableId(0)
	var cs ConstraintSet

	eq5 := cs.AddConstraint(Constraint{x, ConstraintEq, 5})
	assert.False(t, eq5.IsInconsistent())

	conflicting := eq5.AddConstraint(Constraint{x, ConstraintEq, 6})
	assert.True(t, conflicting.IsInconsistent())

	bounds := cs.
		AddConstraint(Constraint{x, ConstraintGt, 10}).
		AddConstraint(Constraint{x, ConstraintLt, 5})
	assert.True(t, bounds.IsInconsistent())

	compatible := cs.
		AddConstraint(Constraint{x, ConstraintGe, 3}).
		AddConstraint(Constraint{x, ConstraintLe, 7})
	assert.False(t, compatible.IsInconsistent())
}

func TestConstraintSetEqConstant(t *testing.T) {
	x := cfa.VariableId(0)
	y := cfa.VariableId(1)
	cs := ConstraintSet{}.
		AddConstraint(Constraint{x, ConstraintEq, 5}).
		AddConstraint(Constraint{y, ConstraintNe, 2})

	v, ok := cs.EqConstant(x)
	assert.True(t, ok)
	assert.Equal(t, int64(5), v)
	_, ok = cs.EqConstant(y)
	assert.False(t, ok, "Ne does not pin a value")
}

func TestConstraintSetTopify(t *testing.T) {
	x := cfa.VariableId(0)
	y := cfa.VariableId(1)
	cs := ConstraintSet{}.
		AddConstraint(Constraint{x, ConstraintEq, 5}).
		AddConstraint(Constraint{y, ConstraintLt, 3})

	dropped := cs.Topify(x)
	assert.Equal(t, 1, dropped.Len())
	_, ok := dropped.EqConstant(x)
	assert.False(t, ok)
	assert.Equal(t, 2, cs.Len(), "Topify must not mutate the receiver")
}

func TestConstraintOpNegate(t *testing.T) {
	assert.Equal(t, ConstraintNe, ConstraintEq.Negate())
	assert.Equal(t, ConstraintGe, ConstraintLt.Negate())
	assert.Equal(t, ConstraintLt, ConstraintGe.Negate())
}

package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xevolver/rose/cfa"
)

func TestObserveTopsPastThreshold(t *testing.T) {
	m := New(2)
	x := cfa.VariableId(0)

	m.Observe(x, 1)
	assert.False(t, m.ShouldAbstract(x))
	m.Observe(x, 1)
	assert.False(t, m.ShouldAbstract(x), "repeated value is not a new distinct value")
	m.Observe(x, 2)
	assert.False(t, m.ShouldAbstract(x), "at the threshold, not past it")
	assert.Equal(t, 2, m.DistinctValues(x))

	m.Observe(x, 3)
	assert.False(t, m.ShouldAbstract(x), "crossing the threshold takes effect at the next commit")
	assert.Equal(t, 2, m.DistinctValues(x), "a pending variable reports the threshold")
	m.CommitPending()
	assert.True(t, m.ShouldAbstract(x), "third distinct value exceeds threshold 2")

	// Topping is permanent.
	m.Observe(x, 1)
	m.CommitPending()
	assert.True(t, m.ShouldAbstract(x))
}

func TestCommitIsLevelSynchronous(t *testing.T) {
	m := New(1)
	x := cfa.VariableId(0)
	y := cfa.VariableId(1)

	// Both variables cross the threshold within the same generation, in
	// either order; neither is abstracted until the barrier.
	m.Observe(x, 1)
	m.Observe(x, 2)
	m.Observe(y, 1)
	m.Observe(y, 2)
	assert.False(t, m.ShouldAbstract(x))
	assert.False(t, m.ShouldAbstract(y))
	assert.False(t, m.IsActive())

	m.CommitPending()
	assert.True(t, m.ShouldAbstract(x))
	assert.True(t, m.ShouldAbstract(y))
	assert.True(t, m.IsActive())

	// An empty commit is a no-op.
	m.CommitPending()
	assert.True(t, m.ShouldAbstract(x))
}

func TestZeroThresholdDisablesAbstraction(t *testing.T) {
	m := New(0)
	x := cfa.VariableId(0)
	for v := int64(0); v < 100; v++ {
		m.Observe(x, v)
	}
	assert.False(t, m.ShouldAbstract(x))
}

func TestForceTop(t *testing.T) {
	m := New(0)
	x := cfa.VariableId(0)
	assert.False(t, m.ShouldAbstract(x))
	m.ForceTop(x)
	assert.True(t, m.ShouldAbstract(x))
}

func TestGlobalTopifyRespectsMode(t *testing.T) {
	m := New(0)
	io := cfa.VariableId(0)
	cond := cfa.VariableId(1)
	other := cfa.VariableId(2)
	m.AddIOVariable(io)
	m.AddCondVariable(cond)

	m.SetMode(TopifyIO)
	m.EnableGlobalTopify()
	assert.True(t, m.IsActive())
	assert.True(t, m.ShouldAbstract(io))
	assert.False(t, m.ShouldAbstract(cond), "cond vars are not eligible under io mode")
	assert.False(t, m.ShouldAbstract(other))

	m.SetMode(TopifyIOCF)
	assert.True(t, m.ShouldAbstract(cond))
	assert.False(t, m.ShouldAbstract(other))
}

func TestParseTopifyMode(t *testing.T) {
	mode, ok := ParseTopifyMode("iocfptr")
	assert.True(t, ok)
	assert.Equal(t, TopifyIOCFPtr, mode)
	_, ok = ParseTopifyMode("bogus")
	assert.False(t, ok)
}

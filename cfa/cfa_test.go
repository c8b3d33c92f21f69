package cfa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelSet(t *testing.T) {
	var s LabelSet
	assert.True(t, s.Insert(3))
	assert.True(t, s.Insert(1))
	assert.False(t, s.Insert(3), "duplicate insert")
	assert.True(t, s.Has(1))
	assert.False(t, s.Has(2))
	assert.Equal(t, []Label{1, 3}, s.Labels())
	assert.Equal(t, "{L1,L3}", s.String())
}

func TestFlowInsertAndIndices(t *testing.T) {
	f := NewFlow()
	f.Insert(Edge{Source: 0, Target: 1, Types: EdgeForward})
	f.Insert(Edge{Source: 1, Target: 2, Types: EdgeTrue})
	f.Insert(Edge{Source: 1, Target: 3, Types: EdgeFalse})
	f.Insert(Edge{Source: 0, Target: 1, Types: EdgeForward}) // dup

	assert.Equal(t, 3, f.Size())
	assert.Len(t, f.OutEdges(1), 2)
	assert.Len(t, f.InEdges(1), 1)
	assert.Empty(t, f.OutEdges(3))
}

func TestVariableIdMapping(t *testing.T) {
	m := NewVariableIdMapping()
	x := m.CreateVariableId("x")
	y := m.CreateVariableId("y")
	assert.NotEqual(t, x, y)
	assert.Equal(t, x, m.CreateVariableId("x"), "same name, same id")
	assert.Equal(t, "y", m.VariableName(y))
	assert.Equal(t, 2, m.NumVariables())

	got, ok := m.VariableIdFromName("x")
	assert.True(t, ok)
	assert.Equal(t, x, got)
	_, ok = m.VariableIdFromName("z")
	assert.False(t, ok)
}

func TestBuilderWiresStraightLine(t *testing.T) {
	b := NewBuilder()
	x := b.Var("x")

	entry := b.Entry()
	read := b.ReadInput(x)
	prn := b.Print(x)
	p := b.Build()

	assert.Equal(t, entry, p.EntryLabel())
	require.Len(t, p.Flow().OutEdges(entry), 1)
	assert.Equal(t, read, p.Flow().OutEdges(entry)[0].Target)
	require.Len(t, p.Flow().OutEdges(read), 1)
	assert.Equal(t, prn, p.Flow().OutEdges(read)[0].Target)

	id, ok := p.IsStdInLabel(read)
	assert.True(t, ok)
	assert.Equal(t, x, id)
	_, ok = p.IsStdInLabel(prn)
	assert.False(t, ok)
	id, ok = p.IsStdOutVarLabel(prn)
	assert.True(t, ok)
	assert.Equal(t, x, id)
}

func TestBuilderBranchAndBackEdge(t *testing.T) {
	b := NewBuilder()
	x := b.Var("x")

	b.Entry()
	read := b.ReadInput(x)
	cond := b.Cond(Binary{Op: OpGt, X: Var{Id: x}, Y: Const{Value: 0}})

	thenL := b.Print(x)
	b.Edge(cond, thenL, EdgeTrue)
	b.Edge(thenL, read, 0)

	b.At(NoLabel)
	elseL := b.Assert(Binary{Op: OpNe, X: Var{Id: x}, Y: Const{Value: -1}}, 0)
	b.Edge(cond, elseL, EdgeFalse)

	p := b.Build()
	assert.True(t, p.IsConditionLabel(cond))
	assert.True(t, p.IsAssertLabel(elseL))
	code, ok := p.AssertCode(elseL)
	assert.True(t, ok)
	assert.Equal(t, 0, code)

	out := p.Flow().OutEdges(cond)
	require.Len(t, out, 2)
	for _, e := range out {
		assert.True(t, e.IsType(EdgeTrue) || e.IsType(EdgeFalse))
	}

	back := p.Flow().OutEdges(thenL)
	require.Len(t, back, 1)
	assert.True(t, back[0].IsType(EdgeBackward), "edge to an earlier label is a back edge")
}

func TestBuilderPanicsWithoutEntry(t *testing.T) {
	b := NewBuilder()
	b.Skip()
	assert.Panics(t, func() { b.Build() })
}

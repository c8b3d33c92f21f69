package cfa

import "fmt"

// LabelType classifies the structural role of a label.
type LabelType uint8

const (
	LabelOther LabelType = iota
	LabelFunctionEntry
	LabelFunctionExit
	LabelBlockBegin
	LabelBlockEnd
	LabelCondition
	LabelLoopCondition
	LabelAssert
)

// Labeler exposes the semantic roles of labels. The analyzer only ever asks
// a Labeler about labels; it never inspects statements of labels it does not
// own.
type Labeler interface {
	NumLabels() int
	Stmt(Label) Stmt
	IsFunctionEntryLabel(Label) bool
	IsFunctionExitLabel(Label) bool
	IsConditionLabel(Label) bool
	IsLoopConditionLabel(Label) bool
	IsAssertLabel(Label) bool
	// IsStdInLabel reports whether l reads standard input, and into which
	// variable.
	IsStdInLabel(Label) (VariableId, bool)
	IsStdOutVarLabel(Label) (VariableId, bool)
	IsStdOutConstLabel(Label) (int64, bool)
	IsStdErrLabel(Label) (VariableId, bool)
}

type labelProperty struct {
	stmt Stmt
	typ  LabelType
}

// Program bundles a flow, a labeler, and a variable mapping. It is the
// concrete implementation handed to the analyzer by [Builder].
type Program struct {
	props []labelProperty
	flow  *Flow
	vars  *VariableIdMapping
	entry Label
}

var _ Labeler = (*Program)(nil)

func (p *Program) NumLabels() int                { return len(p.props) }
func (p *Program) Flow() *Flow                   { return p.flow }
func (p *Program) Variables() *VariableIdMapping { return p.vars }
func (p *Program) EntryLabel() Label             { return p.entry }

func (p *Program) Stmt(l Label) Stmt {
	if !l.Valid() || int(l) >= len(p.props) {
		return Skip{}
	}
	return p.props[l].stmt
}

func (p *Program) labelType(l Label) LabelType {
	if !l.Valid() || int(l) >= len(p.props) {
		return LabelOther
	}
	return p.props[l].typ
}

func (p *Program) IsFunctionEntryLabel(l Label) bool { return p.labelType(l) == LabelFunctionEntry }
func (p *Program) IsFunctionExitLabel(l Label) bool  { return p.labelType(l) == LabelFunctionExit }
func (p *Program) IsAssertLabel(l Label) bool        { return p.labelType(l) == LabelAssert }

func (p *Program) IsConditionLabel(l Label) bool {
	t := p.labelType(l)
	return t == LabelCondition || t == LabelLoopCondition
}

func (p *Program) IsLoopConditionLabel(l Label) bool { return p.labelType(l) == LabelLoopCondition }

func (p *Program) IsStdInLabel(l Label) (VariableId, bool) {
	if s, ok := p.Stmt(l).(ReadInput); ok {
		return s.Var, true
	}
	return NoVariableId, false
}

func (p *Program) IsStdOutVarLabel(l Label) (VariableId, bool) {
	if s, ok := p.Stmt(l).(Print); ok {
		return s.Var, true
	}
	return NoVariableId, false
}

func (p *Program) IsStdOutConstLabel(l Label) (int64, bool) {
	if s, ok := p.Stmt(l).(PrintConst); ok {
		return s.Value, true
	}
	return 0, false
}

func (p *Program) IsStdErrLabel(l Label) (VariableId, bool) {
	if s, ok := p.Stmt(l).(PrintErr); ok {
		return s.Var, true
	}
	return NoVariableId, false
}

// AssertCode returns the assertion code of an assert label.
func (p *Program) AssertCode(l Label) (int, bool) {
	if s, ok := p.Stmt(l).(Assert); ok {
		return s.Code, true
	}
	return 0, false
}

// Builder constructs programs label by label. Statement-adding methods
// append a label, connect it to the previous one with a forward edge, and
// move the cursor to the new label. Branches are wired explicitly with
// [Builder.Edge] and [Builder.At].
type Builder struct {
	p      *Program
	cursor Label
}

func NewBuilder() *Builder {
	return &Builder{
		p: &Program{
			flow:  NewFlow(),
			vars:  NewVariableIdMapping(),
			entry: NoLabel,
		},
		cursor: NoLabel,
	}
}

// Var returns the identifier for the named variable.
func (b *Builder) Var(name string) VariableId {
	return b.p.vars.CreateVariableId(name)
}

func (b *Builder) newLabel(stmt Stmt, typ LabelType) Label {
	l := Label(len(b.p.props))
	b.p.props = append(b.p.props, labelProperty{stmt: stmt, typ: typ})
	return l
}

func (b *Builder) add(stmt Stmt, typ LabelType) Label {
	l := b.newLabel(stmt, typ)
	if b.cursor.Valid() {
		b.Edge(b.cursor, l, EdgeForward)
	}
	b.cursor = l
	return l
}

// Entry appends the function entry label. It must be the first label.
func (b *Builder) Entry() Label {
	l := b.add(Skip{}, LabelFunctionEntry)
	if !b.p.entry.Valid() {
		b.p.entry = l
	}
	return l
}

// Exit appends the function exit label and clears the cursor.
func (b *Builder) Exit() Label {
	l := b.add(Skip{}, LabelFunctionExit)
	b.cursor = NoLabel
	return l
}

func (b *Builder) Skip() Label { return b.add(Skip{}, LabelOther) }

func (b *Builder) Assign(v VariableId, rhs Expr) Label {
	return b.add(Assign{Var: v, Rhs: rhs}, LabelOther)
}

func (b *Builder) CompoundAssign(v VariableId, rhs Expr) Label {
	return b.add(Assign{Var: v, Rhs: rhs, Compound: true}, LabelOther)
}

func (b *Builder) ReadInput(v VariableId) Label {
	return b.add(ReadInput{Var: v}, LabelOther)
}

func (b *Builder) Print(v VariableId) Label {
	return b.add(Print{Var: v}, LabelOther)
}

func (b *Builder) PrintConst(c int64) Label {
	return b.add(PrintConst{Value: c}, LabelOther)
}

func (b *Builder) PrintErr(v VariableId) Label {
	return b.add(PrintErr{Var: v}, LabelOther)
}

func (b *Builder) Assert(cond Expr, code int) Label {
	return b.add(Assert{Cond: cond, Code: code}, LabelAssert)
}

// Cond appends a branch-condition label and clears the cursor; the true and
// false branches are wired with [Builder.Edge].
func (b *Builder) Cond(e Expr) Label {
	l := b.add(Cond{Expr: e}, LabelCondition)
	b.cursor = NoLabel
	return l
}

// LoopCond is Cond for loop headers.
func (b *Builder) LoopCond(e Expr) Label {
	l := b.add(Cond{Expr: e}, LabelLoopCondition)
	b.cursor = NoLabel
	return l
}

// Edge inserts an explicit edge. Backward edges (target before source) are
// annotated automatically.
func (b *Builder) Edge(src, dst Label, types EdgeType) {
	if dst <= src {
		types |= EdgeBackward
	} else if types&(EdgeForward|EdgeTrue|EdgeFalse|EdgeCall|EdgeCallReturn) == 0 {
		types |= EdgeForward
	}
	b.p.flow.Insert(Edge{Source: src, Target: dst, Types: types})
}

// At moves the cursor so that the next appended label connects to l.
func (b *Builder) At(l Label) *Builder {
	b.cursor = l
	return b
}

// Cursor returns the label the next appended statement will connect to.
func (b *Builder) Cursor() Label { return b.cursor }

// Build finalizes the program.
func (b *Builder) Build() *Program {
	if !b.p.entry.Valid() {
		panic(fmt.Sprintf("program has no entry label (%d labels)", len(b.p.props)))
	}
	return b.p
}

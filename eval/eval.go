// Package eval implements the expression evaluator over the flat value
// domain. It computes abstract values for expressions against a program
// state and a constraint set, and derives the path constraints implied by
// branch edges. Evaluator faults (unsupported constructs, division by a
// constant zero) are fatal to the analysis and surface as errors.
package eval

import (
	"errors"
	"fmt"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/lattice"
	"github.com/xevolver/rose/state"
)

// ErrUnsupported is returned when the evaluator cannot compute a value for a
// reachable construct.
var ErrUnsupported = errors.New("eval: unsupported construct")

type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Eval computes the abstract value of e. Variables with a ⊤ state but an
// equality path constraint read as the constrained constant.
func (ev *Evaluator) Eval(e cfa.Expr, ps *state.PState, cs *state.ConstraintSet) (lattice.Value, error) {
	switch e := e.(type) {
	case cfa.Const:
		return lattice.Const(e.Value), nil
	case cfa.Var:
		v := ps.Value(e.Id)
		if v.IsConst() {
			return v, nil
		}
		if c, ok := cs.EqConstant(e.Id); ok {
			return lattice.Const(c), nil
		}
		return lattice.Top(), nil
	case cfa.Unary:
		x, err := ev.Eval(e.X, ps, cs)
		if err != nil {
			return lattice.Top(), err
		}
		return evalUnary(e.Op, x)
	case cfa.Binary:
		x, err := ev.Eval(e.X, ps, cs)
		if err != nil {
			return lattice.Top(), err
		}
		y, err := ev.Eval(e.Y, ps, cs)
		if err != nil {
			return lattice.Top(), err
		}
		return evalBinary(e.Op, x, y)
	default:
		return lattice.Top(), fmt.Errorf("%w: expression %T", ErrUnsupported, e)
	}
}

func evalUnary(op cfa.Op, x lattice.Value) (lattice.Value, error) {
	c, ok := x.ConstValue()
	switch op {
	case cfa.OpNeg:
		if !ok {
			return lattice.Top(), nil
		}
		return lattice.Const(-c), nil
	case cfa.OpNot:
		if !ok {
			return lattice.Top(), nil
		}
		return boolConst(c == 0), nil
	default:
		return lattice.Top(), fmt.Errorf("%w: unary operator %s", ErrUnsupported, op)
	}
}

func evalBinary(op cfa.Op, x, y lattice.Value) (lattice.Value, error) {
	a, aok := x.ConstValue()
	b, bok := y.ConstValue()

	// Logical operators can be decided by one constant operand.
	switch op {
	case cfa.OpAnd:
		if (aok && a == 0) || (bok && b == 0) {
			return boolConst(false), nil
		}
		if aok && bok {
			return boolConst(true), nil
		}
		return lattice.Top(), nil
	case cfa.OpOr:
		if (aok && a != 0) || (bok && b != 0) {
			return boolConst(true), nil
		}
		if aok && bok {
			return boolConst(false), nil
		}
		return lattice.Top(), nil
	}

	if !aok || !bok {
		return lattice.Top(), nil
	}

	switch op {
	case cfa.OpAdd:
		return lattice.Const(a + b), nil
	case cfa.OpSub:
		return lattice.Const(a - b), nil
	case cfa.OpMul:
		return lattice.Const(a * b), nil
	case cfa.OpDiv:
		if b == 0 {
			return lattice.Top(), fmt.Errorf("eval: division by zero")
		}
		return lattice.Const(a / b), nil
	case cfa.OpMod:
		if b == 0 {
			return lattice.Top(), fmt.Errorf("eval: modulo by zero")
		}
		return lattice.Const(a % b), nil
	case cfa.OpEq:
		return boolConst(a == b), nil
	case cfa.OpNe:
		return boolConst(a != b), nil
	case cfa.OpLt:
		return boolConst(a < b), nil
	case cfa.OpLe:
		return boolConst(a <= b), nil
	case cfa.OpGt:
		return boolConst(a > b), nil
	case cfa.OpGe:
		return boolConst(a >= b), nil
	default:
		return lattice.Top(), fmt.Errorf("%w: binary operator %s", ErrUnsupported, op)
	}
}

func boolConst(b bool) lattice.Value {
	if b {
		return lattice.Const(1)
	}
	return lattice.Const(0)
}

// BranchResult is the outcome of deciding a branch edge.
type BranchResult struct {
	// Feasible reports whether the branch can be taken at all.
	Feasible bool
	// Constraint, if HasConstraint, is the path condition the branch
	// implies.
	Constraint    state.Constraint
	HasConstraint bool
}

// Branch decides the branch of cond selected by takeTrue. If the condition
// evaluates to a constant, the infeasible branch yields zero successors. If
// it is unknown, both branches are feasible and a simple comparison against
// a constant contributes a path constraint.
func (ev *Evaluator) Branch(cond cfa.Expr, takeTrue bool, ps *state.PState, cs *state.ConstraintSet) (BranchResult, error) {
	v, err := ev.Eval(cond, ps, cs)
	if err != nil {
		return BranchResult{}, err
	}
	if c, ok := v.ConstValue(); ok {
		return BranchResult{Feasible: (c != 0) == takeTrue}, nil
	}

	// Peel negations.
	for {
		u, ok := cond.(cfa.Unary)
		if !ok || u.Op != cfa.OpNot {
			break
		}
		cond = u.X
		takeTrue = !takeTrue
	}

	res := BranchResult{Feasible: true}
	if c, ok := comparisonConstraint(cond); ok {
		if !takeTrue {
			c.Op = c.Op.Negate()
		}
		res.Constraint = c
		res.HasConstraint = true
	}
	return res, nil
}

// comparisonConstraint extracts a Var-op-Const constraint from a comparison
// expression, mirroring constant-vs-variable comparisons.
func comparisonConstraint(e cfa.Expr) (state.Constraint, bool) {
	bin, ok := e.(cfa.Binary)
	if !ok || !bin.Op.IsComparison() {
		return state.Constraint{}, false
	}
	if v, ok := bin.X.(cfa.Var); ok {
		if c, ok := bin.Y.(cfa.Const); ok {
			return state.Constraint{Var: v.Id, Op: constraintOp(bin.Op), Val: c.Value}, true
		}
	}
	if c, ok := bin.X.(cfa.Const); ok {
		if v, ok := bin.Y.(cfa.Var); ok {
			return state.Constraint{Var: v.Id, Op: mirrorOp(constraintOp(bin.Op)), Val: c.Value}, true
		}
	}
	return state.Constraint{}, false
}

func constraintOp(op cfa.Op) state.ConstraintOp {
	switch op {
	case cfa.OpEq:
		return state.ConstraintEq
	case cfa.OpNe:
		return state.ConstraintNe
	case cfa.OpLt:
		return state.ConstraintLt
	case cfa.OpLe:
		return state.ConstraintLe
	case cfa.OpGt:
		return state.ConstraintGt
	default:
		return state.ConstraintGe
	}
}

// mirrorOp adjusts the operator when the constant is on the left, i.e.
// c < x becomes x > c.
func mirrorOp(op state.ConstraintOp) state.ConstraintOp {
	switch op {
	case state.ConstraintLt:
		return state.ConstraintGt
	case state.ConstraintLe:
		return state.ConstraintGe
	case state.ConstraintGt:
		return state.ConstraintLt
	case state.ConstraintGe:
		return state.ConstraintLe
	default:
		return op
	}
}

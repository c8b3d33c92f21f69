package state

import (
	"fmt"
	"strings"

	"github.com/xevolver/rose/cfa"
)

// ConstraintOp is the relational operator of a constraint.
type ConstraintOp uint8

const (
	ConstraintEq ConstraintOp = iota
	ConstraintNe
	ConstraintLt
	ConstraintLe
	ConstraintGt
	ConstraintGe
)

var constraintOpNames = [...]string{
	ConstraintEq: "==",
	ConstraintNe: "!=",
	ConstraintLt: "<",
	ConstraintLe: "<=",
	ConstraintGt: ">",
	ConstraintGe: ">=",
}

func (op ConstraintOp) String() string { return constraintOpNames[op] }

// Negate returns the operator of the complementary constraint.
func (op ConstraintOp) Negate() ConstraintOp {
	switch op {
	case ConstraintEq:
		return ConstraintNe
	case ConstraintNe:
		return ConstraintEq
	case ConstraintLt:
		return ConstraintGe
	case ConstraintLe:
		return ConstraintGt
	case ConstraintGt:
		return ConstraintLe
	default:
		return ConstraintLt
	}
}

// Constraint is a symbolic path condition of the form Var Op Val.
type Constraint struct {
	Var cfa.VariableId
	Op  ConstraintOp
	Val int64
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s%s%d", c.Var, c.Op, c.Val)
}

// Holds evaluates the constraint against a concrete value.
func (c Constraint) Holds(v int64) bool {
	switch c.Op {
	case ConstraintEq:
		return v == c.Val
	case ConstraintNe:
		return v != c.Val
	case ConstraintLt:
		return v < c.Val
	case ConstraintLe:
		return v <= c.Val
	case ConstraintGt:
		return v > c.Val
	default:
		return v >= c.Val
	}
}

// conflicts reports whether c and o cannot hold at the same time. Only
// same-variable pairs are compared; the check is conservative (it may miss
// conflicts between inequalities, never reports spurious ones).
func (c Constraint) conflicts(o Constraint) bool {
	if c.Var != o.Var {
		return false
	}
	if o.Op == ConstraintEq {
		c, o = o, c
	}
	if c.Op == ConstraintEq {
		return !o.Holds(c.Val)
	}
	// upper bound below lower bound
	up, uok := upperBound(c)
	lo, lok := lowerBound(o)
	if !uok || !lok {
		up, uok = upperBound(o)
		lo, lok = lowerBound(c)
	}
	return uok && lok && up < lo
}

func upperBound(c Constraint) (int64, bool) {
	switch c.Op {
	case ConstraintLt:
		return c.Val - 1, true
	case ConstraintLe:
		return c.Val, true
	}
	return 0, false
}

func lowerBound(c Constraint) (int64, bool) {
	switch c.Op {
	case ConstraintGt:
		return c.Val + 1, true
	case ConstraintGe:
		return c.Val, true
	}
	return 0, false
}

// ConstraintSet is an immutable set of constraints accumulated along an
// execution path. The zero value is the empty set. Sets detecting a
// contradiction during AddConstraint become inconsistent; an inconsistent
// set denotes an infeasible path.
type ConstraintSet struct {
	cs           []Constraint // sorted
	inconsistent bool
}

func constraintLess(a, b Constraint) bool {
	if a.Var != b.Var {
		return a.Var < b.Var
	}
	if a.Op != b.Op {
		return a.Op < b.Op
	}
	return a.Val < b.Val
}

// AddConstraint returns a copy of s with c added. Duplicates are ignored;
// contradictions mark the result inconsistent.
func (s ConstraintSet) AddConstraint(c Constraint) ConstraintSet {
	i := 0
	for i < len(s.cs) && constraintLess(s.cs[i], c) {
		i++
	}
	if i < len(s.cs) && s.cs[i] == c {
		return s
	}
	out := make([]Constraint, 0, len(s.cs)+1)
	out = append(out, s.cs[:i]...)
	out = append(out, c)
	out = append(out, s.cs[i:]...)
	ns := ConstraintSet{cs: out, inconsistent: s.inconsistent}
	if !ns.inconsistent {
		for _, old := range s.cs {
			if old.conflicts(c) {
				ns.inconsistent = true
				break
			}
		}
	}
	return ns
}

// Topify returns a copy of s with all constraints on id removed. Forced
// abstraction of a variable also invalidates its path conditions.
func (s ConstraintSet) Topify(id cfa.VariableId) ConstraintSet {
	out := make([]Constraint, 0, len(s.cs))
	for _, c := range s.cs {
		if c.Var != id {
			out = append(out, c)
		}
	}
	return ConstraintSet{cs: out, inconsistent: s.inconsistent}
}

// IsInconsistent reports whether the set contains a contradiction.
func (s ConstraintSet) IsInconsistent() bool { return s.inconsistent }

// EqConstant returns the constant an equality constraint binds id to.
func (s ConstraintSet) EqConstant(id cfa.VariableId) (int64, bool) {
	for _, c := range s.cs {
		if c.Var == id && c.Op == ConstraintEq {
			return c.Val, true
		}
	}
	return 0, false
}

// Constraints returns the constraints in canonical order. The returned slice
// must not be modified.
func (s ConstraintSet) Constraints() []Constraint { return s.cs }

func (s ConstraintSet) Len() int { return len(s.cs) }

func (s ConstraintSet) Equal(o ConstraintSet) bool {
	if s.inconsistent != o.inconsistent || len(s.cs) != len(o.cs) {
		return false
	}
	for i, c := range s.cs {
		if o.cs[i] != c {
			return false
		}
	}
	return true
}

// Key returns the canonical encoding of s, used as the interning key.
func (s ConstraintSet) Key() string {
	var sb strings.Builder
	if s.inconsistent {
		sb.WriteString("!;")
	}
	for _, c := range s.cs {
		fmt.Fprintf(&sb, "%d%d%d;", c.Var, c.Op, c.Val)
	}
	return sb.String()
}

func (s ConstraintSet) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, c := range s.cs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(c.String())
	}
	if s.inconsistent {
		if len(s.cs) > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("⊥")
	}
	sb.WriteString("}")
	return sb.String()
}

package state

import (
	"fmt"

	"github.com/xevolver/rose/cfa"
)

// EState is the extended state: the tuple of a control-flow label, a
// canonical program-state handle, a canonical constraint-set handle, and an
// I/O annotation. Two extended states are equal iff all four components are
// equal. EStates are interned in an [EStateSet]; code outside the pool only
// ever sees canonical *EState handles, so pointer comparison is valid.
type EState struct {
	Label  cfa.Label
	Pstate *PState
	Cset   *ConstraintSet
	IO     InputOutput

	id int64 // assigned by the pool
}

// ID returns the pool-assigned identifier. It doubles as the gonum
// graph.Node id of the state.
func (es *EState) ID() int64 { return es.id }

// IsObservable reports whether the state carries an observable event.
func (es *EState) IsObservable() bool { return es.IO.IsObservable() }

func (es *EState) IsFailedAssert() bool { return es.IO.Op == OpFailedAssert }

func (es *EState) IsVerificationError() bool { return es.IO.Op == OpVerificationError }

// Key returns the canonical encoding of the tuple, used as the interning
// key.
func (es *EState) Key() string {
	return fmt.Sprintf("%d|%s|%s|%d,%d,%d",
		es.Label, es.Pstate.Key(), es.Cset.Key(), es.IO.Op, es.IO.Var, es.IO.Val)
}

// Format renders the state with variable names resolved through vim.
func (es *EState) Format(vim *cfa.VariableIdMapping) string {
	return fmt.Sprintf("(%s,%s,%s,%s)", es.Label, es.Pstate.Format(vim), es.Cset, es.IO)
}

func (es *EState) String() string { return es.Format(nil) }

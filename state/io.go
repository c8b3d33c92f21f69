package state

import (
	"fmt"

	"github.com/xevolver/rose/cfa"
)

// OpType is the kind of observable event an extended state is tagged with.
type OpType uint8

const (
	OpNone OpType = iota
	OpStdInVar
	OpStdOutVar
	OpStdOutConst
	OpStdErr
	OpFailedAssert
	OpVerificationError
)

var opTypeNames = [...]string{
	OpNone:              "none",
	OpStdInVar:          "stdin",
	OpStdOutVar:         "stdout",
	OpStdOutConst:       "stdout-const",
	OpStdErr:            "stderr",
	OpFailedAssert:      "failed-assert",
	OpVerificationError: "verification-error",
}

func (op OpType) String() string { return opTypeNames[op] }

// InputOutput annotates an extended state with its observable event, if any.
// Var carries the variable read or written; Val carries the constant written
// or the failed assertion's code.
type InputOutput struct {
	Op  OpType
	Var cfa.VariableId
	Val int64
}

func None() InputOutput { return InputOutput{Op: OpNone, Var: cfa.NoVariableId} }

func StdInVar(id cfa.VariableId) InputOutput {
	return InputOutput{Op: OpStdInVar, Var: id}
}

func StdOutVar(id cfa.VariableId) InputOutput {
	return InputOutput{Op: OpStdOutVar, Var: id}
}

func StdOutConst(v int64) InputOutput {
	return InputOutput{Op: OpStdOutConst, Var: cfa.NoVariableId, Val: v}
}

func StdErr(id cfa.VariableId) InputOutput {
	return InputOutput{Op: OpStdErr, Var: id}
}

func FailedAssert(code int) InputOutput {
	return InputOutput{Op: OpFailedAssert, Var: cfa.NoVariableId, Val: int64(code)}
}

func VerificationError() InputOutput {
	return InputOutput{Op: OpVerificationError, Var: cfa.NoVariableId}
}

func (io InputOutput) IsStdIn() bool  { return io.Op == OpStdInVar }
func (io InputOutput) IsStdOut() bool { return io.Op == OpStdOutVar || io.Op == OpStdOutConst }
func (io InputOutput) IsStdErr() bool { return io.Op == OpStdErr }

// IsError reports whether the annotation denotes a failed assertion or a
// verification error.
func (io InputOutput) IsError() bool {
	return io.Op == OpFailedAssert || io.Op == OpVerificationError
}

// IsObservable reports whether the annotation denotes an externally visible
// event.
func (io InputOutput) IsObservable() bool {
	return io.Op != OpNone
}

// AssertCode returns the failed assertion's code, or -1.
func (io InputOutput) AssertCode() int {
	if io.Op != OpFailedAssert {
		return -1
	}
	return int(io.Val)
}

func (io InputOutput) String() string {
	switch io.Op {
	case OpNone:
		return "none"
	case OpStdInVar, OpStdOutVar, OpStdErr:
		return fmt.Sprintf("%s(%s)", io.Op, io.Var)
	case OpStdOutConst:
		return fmt.Sprintf("%s(%d)", io.Op, io.Val)
	case OpFailedAssert:
		return fmt.Sprintf("%s(#%d)", io.Op, io.Val)
	default:
		return io.Op.String()
	}
}

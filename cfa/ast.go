package cfa

import "fmt"

// Op is an operator in an expression.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpNeg
	OpNot
)

var opNames = [...]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAnd: "&&",
	OpOr:  "||",
	OpNeg: "-",
	OpNot: "!",
}

func (op Op) String() string { return opNames[op] }

// IsComparison reports whether op yields a truth value.
func (op Op) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Expr is a side-effect free expression over variables and integer
// constants.
type Expr interface {
	fmt.Stringer
	isExpr()
}

type Const struct{ Value int64 }

type Var struct{ Id VariableId }

type Unary struct {
	Op Op
	X  Expr
}

type Binary struct {
	Op   Op
	X, Y Expr
}

func (Const) isExpr()  {}
func (Var) isExpr()    {}
func (Unary) isExpr()  {}
func (Binary) isExpr() {}

func (e Const) String() string  { return fmt.Sprintf("%d", e.Value) }
func (e Var) String() string    { return e.Id.String() }
func (e Unary) String() string  { return fmt.Sprintf("%s(%s)", e.Op, e.X) }
func (e Binary) String() string { return fmt.Sprintf("(%s%s%s)", e.X, e.Op, e.Y) }

// Stmt is the statement associated with a label. The transfer function
// dispatches on the statement of an edge's source label.
type Stmt interface {
	fmt.Stringer
	isStmt()
}

// Skip has no effect on the program state. Function entry and exit labels,
// and block boundaries, carry Skip.
type Skip struct{}

// Assign assigns the value of Rhs to Var. Compound marks targets of
// compound assignments (x += e), which some topify modes treat specially.
type Assign struct {
	Var      VariableId
	Rhs      Expr
	Compound bool
}

// ReadInput reads a value from standard input into Var.
type ReadInput struct {
	Var VariableId
}

// Print writes the value of Var to standard output.
type Print struct {
	Var VariableId
}

// PrintConst writes a constant to standard output.
type PrintConst struct {
	Value int64
}

// PrintErr writes the value of Var to standard error.
type PrintErr struct {
	Var VariableId
}

// Assert checks Cond; execution reaching the assert with a falsifiable
// condition yields a failed-assertion state carrying Code.
type Assert struct {
	Cond Expr
	Code int
}

// Cond is a branch condition; its outgoing edges carry EdgeTrue and
// EdgeFalse annotations.
type Cond struct {
	Expr Expr
}

func (Skip) isStmt()       {}
func (Assign) isStmt()     {}
func (ReadInput) isStmt()  {}
func (Print) isStmt()      {}
func (PrintConst) isStmt() {}
func (PrintErr) isStmt()   {}
func (Assert) isStmt()     {}
func (Cond) isStmt()       {}

func (Skip) String() string { return "skip" }
func (s Assign) String() string {
	if s.Compound {
		return fmt.Sprintf("%s ⊕= %s", s.Var, s.Rhs)
	}
	return fmt.Sprintf("%s = %s", s.Var, s.Rhs)
}
func (s ReadInput) String() string  { return fmt.Sprintf("%s = stdin", s.Var) }
func (s Print) String() string      { return fmt.Sprintf("stdout(%s)", s.Var) }
func (s PrintConst) String() string { return fmt.Sprintf("stdout(%d)", s.Value) }
func (s PrintErr) String() string   { return fmt.Sprintf("stderr(%s)", s.Var) }
func (s Assert) String() string     { return fmt.Sprintf("assert(%s) #%d", s.Cond, s.Code) }
func (s Cond) String() string       { return fmt.Sprintf("cond(%s)", s.Expr) }

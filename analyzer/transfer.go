package analyzer

import (
	"fmt"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/lattice"
	"github.com/xevolver/rose/state"
	"github.com/xevolver/rose/stg"
)

// successor is the result of interning one transfer-function output.
type successor struct {
	estate *state.EState
	isNew  bool
}

// transferFunction computes the successor extended states of es along edge.
// It may return zero successors (infeasible branch), one, or several
// (non-deterministic input). The statement of the edge's target label is
// applied, so an input state carries its freshly read value; branch
// conditions are contributed by the edge's source label.
//
// Forced abstraction is consulted per assigned variable; abstracting a
// variable widens its value to ⊤ and drops its path constraints. Each
// application increments the precise or the approximated iteration counter.
func (a *Analyzer) transferFunction(edge cfa.Edge, es *state.EState) ([]successor, error) {
	ps := *es.Pstate
	cs := *es.Cset
	approx := false

	// Branch condition of the source label, if any.
	if cond, ok := a.prog.Stmt(edge.Source).(cfa.Cond); ok {
		takeTrue := edge.IsType(cfa.EdgeTrue)
		if !takeTrue && !edge.IsType(cfa.EdgeFalse) {
			return nil, fmt.Errorf("analyzer: condition label %s has unannotated edge %s", edge.Source, edge)
		}
		br, err := a.ev.Branch(cond.Expr, takeTrue, es.Pstate, es.Cset)
		if err != nil {
			return nil, fmt.Errorf("analyzer: at %s: %w", edge.Source, err)
		}
		if !br.Feasible {
			return nil, nil
		}
		if br.HasConstraint {
			cs = cs.AddConstraint(br.Constraint)
			if cs.IsInconsistent() {
				return nil, nil
			}
		}
	}

	var succs []successor
	emit := func(ps state.PState, cs state.ConstraintSet, io state.InputOutput) {
		succs = append(succs, a.assemble(edge.Target, ps, cs, io))
	}

	switch s := a.prog.Stmt(edge.Target).(type) {
	case cfa.Skip, cfa.Cond:
		emit(ps, cs, state.None())

	case cfa.Assign:
		v, err := a.ev.Eval(s.Rhs, es.Pstate, es.Cset)
		if err != nil {
			return nil, fmt.Errorf("analyzer: at %s: %w", edge.Target, err)
		}
		if c, ok := v.ConstValue(); ok {
			a.monitor.Observe(s.Var, c)
		}
		if a.monitor.ShouldAbstract(s.Var) {
			v = lattice.Top()
			approx = true
		}
		// strong update: previous constraints on the target no longer hold
		emit(ps.Set(s.Var, v), cs.Topify(s.Var), state.None())

	case cfa.ReadInput:
		cs := cs.Topify(s.Var)
		if a.monitor.ShouldAbstract(s.Var) {
			approx = true
			emit(ps.Topify(s.Var), cs, state.StdInVar(s.Var))
			break
		}
		for _, v := range a.inputValues {
			a.monitor.Observe(s.Var, v)
			emit(ps.Set(s.Var, lattice.Const(v)), cs, state.StdInVar(s.Var))
		}

	case cfa.Print:
		emit(ps, cs, state.StdOutVar(s.Var))

	case cfa.PrintConst:
		emit(ps, cs, state.StdOutConst(s.Value))

	case cfa.PrintErr:
		if a.stderrIsErr {
			emit(ps, cs, state.VerificationError())
		} else {
			emit(ps, cs, state.StdErr(s.Var))
		}

	case cfa.Assert:
		// Failing outcome: the negated condition is feasible.
		fail, err := a.ev.Branch(s.Cond, false, es.Pstate, es.Cset)
		if err != nil {
			return nil, fmt.Errorf("analyzer: at %s: %w", edge.Target, err)
		}
		if fail.Feasible {
			fcs := cs
			if fail.HasConstraint {
				fcs = fcs.AddConstraint(fail.Constraint)
			}
			if !fcs.IsInconsistent() {
				emit(ps, fcs, state.FailedAssert(s.Code))
			}
		}
		pass, err := a.ev.Branch(s.Cond, true, es.Pstate, es.Cset)
		if err != nil {
			return nil, fmt.Errorf("analyzer: at %s: %w", edge.Target, err)
		}
		if pass.Feasible {
			pcs := cs
			if pass.HasConstraint {
				pcs = pcs.AddConstraint(pass.Constraint)
			}
			if !pcs.IsInconsistent() {
				emit(ps, pcs, state.None())
			}
		}

	default:
		return nil, fmt.Errorf("analyzer: unsupported statement %T at %s", s, edge.Target)
	}

	if approx {
		a.approxIterations.Add(1)
		a.graph.SetPrecise(false)
	} else {
		a.iterations.Add(1)
	}
	return succs, nil
}

// assemble interns the three components and the resulting extended state.
func (a *Analyzer) assemble(label cfa.Label, ps state.PState, cs state.ConstraintSet, io state.InputOutput) successor {
	psh, _ := a.pstates.Process(ps)
	csh, _ := a.csets.Process(cs)
	esh, isNew := a.estates.Process(state.EState{
		Label:  label,
		Pstate: psh,
		Cset:   csh,
		IO:     io,
	})
	if isNew && esh.IsFailedAssert() {
		a.recordFailedAssertion(esh)
	}
	return successor{estate: esh, isNew: isNew}
}

// explore processes one extended state: it applies the transfer function
// over every outgoing edge of the state's label, records the transitions,
// and pushes newly discovered states. Error states are sinks and are not
// explored further.
func (a *Analyzer) explore(es *state.EState) error {
	if es.IO.IsError() {
		return nil
	}
	for _, edge := range a.prog.Flow().OutEdges(es.Label) {
		succs, err := a.transferFunction(edge, es)
		if err != nil {
			return err
		}
		for _, succ := range succs {
			a.graph.Add(stg.Transition{Source: es, Edge: edge, Target: succ.estate})
			if succ.isNew {
				a.wl.Push(succ.estate)
			}
		}
	}
	return nil
}

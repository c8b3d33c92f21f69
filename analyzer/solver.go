package analyzer

import (
	"context"
	"fmt"
)

// Status describes how an exploration run ended.
type Status int

const (
	// StatusConverged means the worklist drained and the graph is a
	// fixpoint of the transfer function.
	StatusConverged Status = iota
	// StatusBoundExceeded means a resource bound ended the run early; the
	// graph is partial and marked incomplete.
	StatusBoundExceeded
	// StatusAborted means the run was cancelled or failed; see Err.
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusBoundExceeded:
		return "bound exceeded"
	default:
		return "aborted"
	}
}

// RunResult summarizes one exploration run.
type RunResult struct {
	Status      Status
	Transitions int64
	EStates     int64
	Iterations  int64
	Err         error
}

func (r RunResult) String() string {
	return fmt.Sprintf("%s: %d transitions, %d estates, %d iterations",
		r.Status, r.Transitions, r.EStates, r.Iterations)
}

// boundAction tells the exploration loop what a bound check decided.
type boundAction int

const (
	boundOK boundAction = iota
	boundForceTop
	boundStop
)

func exceeded(bound, n int64) bool { return bound > 0 && n >= bound }

// checkBounds inspects the configured limits. The forced-top limits fire
// once and switch on global abstraction so that the run can still converge;
// the hard limits stop the run.
func (a *Analyzer) checkBounds() boundAction {
	transitions := int64(a.graph.Size())
	iterations := a.iterations.Load() + a.approxIterations.Load()
	if exceeded(a.bounds.MaxTransitions, transitions) ||
		exceeded(a.bounds.MaxIterations, iterations) {
		return boundStop
	}
	if !a.monitor.IsActive() &&
		(exceeded(a.bounds.MaxTransitionsForcedTop, transitions) ||
			exceeded(a.bounds.MaxIterationsForcedTop, iterations)) {
		return boundForceTop
	}
	return boundOK
}

// reachability is the strategy base shared by the serial and parallel
// drivers: the worklist is the frontier, and the run summary maintains the
// graph's complete flag.
type reachability struct {
	a *Analyzer
}

func (s *reachability) isDone() bool { return s.a.wl.IsEmpty() }

func (s *reachability) extractResult(r RunResult) RunResult {
	switch r.Status {
	case StatusConverged:
		// A drained worklist is a fixpoint even when an earlier bounded
		// run had marked the graph incomplete.
		s.a.graph.SetComplete(true)
	case StatusBoundExceeded, StatusAborted:
		// An aborted run is just as partial as a bound-exceeded one; the
		// graph built so far stays valid and inspectable.
		s.a.graph.SetComplete(false)
	}
	return s.a.finish(r)
}

// serialReachability explores one worklist generation per step, in FIFO
// order. Abstraction decisions commit at the generation boundary, the same
// barrier discipline the parallel driver uses, so both reach the identical
// canonical state set.
type serialReachability struct {
	reachability
}

func (s *serialReachability) step(ctx context.Context) error {
	generation := s.a.wl.SwapGenerations()
	for _, es := range generation {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.a.explore(es); err != nil {
			return err
		}
	}
	s.a.monitor.CommitPending()
	return nil
}

// RunReachability explores the full reachable state space breadth-first
// with a single worker until the worklist drains, a bound is exceeded, or
// ctx is cancelled. Bounds are checked at generation boundaries.
// InitializeSolver must have been called.
func (a *Analyzer) RunReachability(ctx context.Context) RunResult {
	if a.graph.StartEState() == nil {
		panic("analyzer: RunReachability called before InitializeSolver")
	}
	a.log.Info().Int("threads", 1).Msg("reachability analysis started")
	return a.drive(ctx, &serialReachability{reachability{a}})
}

// finish fills in the run counters, derives the verdict table, and logs the
// outcome.
func (a *Analyzer) finish(r RunResult) RunResult {
	r.Transitions = int64(a.graph.Size())
	r.EStates = int64(a.graph.NumEStates())
	r.Iterations = a.iterations.Load() + a.approxIterations.Load()
	a.deriveVerdicts(r.Status)
	ev := a.log.Info()
	if r.Err != nil {
		ev = a.log.Error().Err(r.Err)
	}
	ev.Stringer("status", r.Status).
		Int64("transitions", r.Transitions).
		Int64("estates", r.EStates).
		Int64("iterations", r.Iterations).
		Bool("precise", a.graph.IsPrecise()).
		Bool("complete", a.graph.IsComplete()).
		Msg("reachability analysis finished")
	return r
}

// deriveVerdicts turns the set of discovered failing assertions into the
// verdict table. Reached assertions are definitely reachable even on a
// partial or abstracted graph. Unreached assertions are unreachable only
// when the graph is both complete and precise.
func (a *Analyzer) deriveVerdicts(status Status) {
	reached := map[int]bool{}
	for _, es := range a.FirstAssertionOccurrences() {
		code := es.IO.AssertCode()
		reached[code] = true
		a.results.SetReachable(code)
	}
	definite := status == StatusConverged && a.graph.IsComplete() && a.graph.IsPrecise()
	for _, code := range a.results.Codes() {
		if reached[code] {
			continue
		}
		if definite {
			a.results.SetUnreachable(code)
		} else {
			a.results.SetUnknown(code)
		}
	}
}

package analyzer

import "context"

// explorationStrategy is one scheduling and termination policy over the
// shared exploration machinery. The driver loop owns context cancellation
// and resource bounds; a strategy owns what one step does, when its frontier
// is exhausted, and how to finalize the run summary.
type explorationStrategy interface {
	// isDone reports whether the frontier is exhausted. A drained
	// frontier ends the run as converged.
	isDone() bool
	// step processes one unit of work.
	step(ctx context.Context) error
	// extractResult finalizes the run summary once the driver has decided
	// the status.
	extractResult(RunResult) RunResult
}

// drive runs s until its frontier drains, a bound fires, or ctx is
// cancelled. Forced-top bounds escalate to global abstraction instead of
// stopping, so the run can still converge.
func (a *Analyzer) drive(ctx context.Context, s explorationStrategy) RunResult {
	for {
		if err := ctx.Err(); err != nil {
			return s.extractResult(RunResult{Status: StatusAborted, Err: err})
		}
		switch a.checkBounds() {
		case boundStop:
			return s.extractResult(RunResult{Status: StatusBoundExceeded})
		case boundForceTop:
			a.EnableGlobalTopify()
		}
		if s.isDone() {
			return s.extractResult(RunResult{Status: StatusConverged})
		}
		if err := s.step(ctx); err != nil {
			return s.extractResult(RunResult{Status: StatusAborted, Err: err})
		}
	}
}

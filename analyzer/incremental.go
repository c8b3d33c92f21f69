package analyzer

import (
	"context"

	"github.com/xevolver/rose/state"
)

// StoreGraphBackup takes a deep copy of the current transition graph. A
// later SwapGraphWithBackup exchanges the two, so a speculative incremental
// run can be rolled back or compared against the pre-run graph.
func (a *Analyzer) StoreGraphBackup() {
	a.backup = a.graph.Clone()
	a.log.Debug().
		Int("transitions", a.backup.Size()).
		Msg("transition graph backup stored")
}

// SwapGraphWithBackup exchanges the working graph with the stored backup.
// It panics when no backup was stored.
func (a *Analyzer) SwapGraphWithBackup() {
	if a.backup == nil {
		panic("analyzer: SwapGraphWithBackup without stored backup")
	}
	a.graph, a.backup = a.backup, a.graph
}

// HasGraphBackup reports whether a backup graph is available.
func (a *Analyzer) HasGraphBackup() bool { return a.backup != nil }

// ContinueAnalysisFrom seeds the worklist with an already interned extended
// state and resumes exploration. The graph keeps everything discovered so
// far; new states and transitions are added to it. Because the resumed
// frontier is not a BFS level of the start state, extracted trace lengths
// are no longer provably minimal afterwards.
func (a *Analyzer) ContinueAnalysisFrom(ctx context.Context, es *state.EState) RunResult {
	if !a.estates.Exists(es) {
		panic("analyzer: ContinueAnalysisFrom with foreign estate")
	}
	if a.graph.StartEState() == nil {
		a.graph.SetStartEState(es)
	}
	a.bfsExploration = false
	a.wl.Push(es)
	a.log.Info().Stringer("estate", es).Msg("continuing analysis from estate")
	return a.RunReachability(ctx)
}

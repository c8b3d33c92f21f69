package analyzer

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// parallelReachability explores one worklist generation per step, fanning
// the generation's states out over an errgroup worker pool. Abstraction
// decisions commit at the barrier, never mid-generation, so concurrent
// workers racing through Observe cannot shrink the reachable set below what
// serial exploration produces.
type parallelReachability struct {
	reachability
	threads int
}

func (s *parallelReachability) step(ctx context.Context) error {
	generation := s.a.wl.SwapGenerations()
	if len(generation) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.threads)
	for _, es := range generation {
		es := es
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.a.explore(es)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.a.monitor.CommitPending()
	return nil
}

// RunReachabilityParallel explores the reachable state space with a pool of
// workers. Exploration is level-synchronous: all states of one worklist
// generation are processed in parallel, then the next generation is swapped
// in. Generations correspond exactly to BFS levels, so the resulting graph
// is the same set of states and transitions a serial run produces, and
// extracted trace lengths remain minimal. Bounds are checked at generation
// boundaries, so a bounded parallel run may overshoot its limits by up to
// one generation.
func (a *Analyzer) RunReachabilityParallel(ctx context.Context) RunResult {
	if a.graph.StartEState() == nil {
		panic("analyzer: RunReachabilityParallel called before InitializeSolver")
	}
	threads := a.threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads == 1 {
		return a.RunReachability(ctx)
	}
	a.log.Info().Int("threads", threads).Msg("reachability analysis started")
	return a.drive(ctx, &parallelReachability{reachability{a}, threads})
}

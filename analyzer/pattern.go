package analyzer

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/tidwall/btree"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/lattice"
	"github.com/xevolver/rose/state"
)

// ExplorationMode orders the candidate frontier of the pattern search.
type ExplorationMode int

const (
	// ExplorationBreadthFirst tries shorter patterns before longer ones.
	ExplorationBreadthFirst ExplorationMode = iota
	// ExplorationDepthFirst extends the most recent candidate first.
	ExplorationDepthFirst
	// ExplorationLoopAware prefers candidates whose simulation completed
	// the fewest loop iterations, on the heuristic that periodic behavior
	// aligns with loop structure.
	ExplorationLoopAware
	// ExplorationLoopAwareSync processes all candidates of the current
	// loop depth before any deeper one.
	ExplorationLoopAwareSync
	// ExplorationRandom pops candidates in seeded random order.
	ExplorationRandom
)

var explorationModeNames = map[string]ExplorationMode{
	"breadth-first":   ExplorationBreadthFirst,
	"depth-first":     ExplorationDepthFirst,
	"loop-aware":      ExplorationLoopAware,
	"loop-aware-sync": ExplorationLoopAwareSync,
	"random":          ExplorationRandom,
}

// ParseExplorationMode parses the textual mode names used by the
// configuration file and the command line.
func ParseExplorationMode(s string) (ExplorationMode, error) {
	if m, ok := explorationModeNames[s]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("analyzer: unknown exploration mode %q", s)
}

func (m ExplorationMode) String() string {
	for name, mode := range explorationModeNames {
		if mode == m {
			return name
		}
	}
	return fmt.Sprintf("ExplorationMode(%d)", int(m))
}

// PatternSearchOptions bounds a pattern search run.
type PatternSearchOptions struct {
	Mode ExplorationMode
	// MaxDepth is the maximum pattern length in input values.
	MaxDepth int
	// MaxRepetitions is how often a candidate pattern is repeated before
	// it is given up on.
	MaxRepetitions int
	// MaxSteps bounds the concrete steps of a single simulation; zero
	// means 10000.
	MaxSteps int
	// Seed drives the random exploration order.
	Seed int64
}

// PatternSearchResult reports a periodic input pattern whose repetition
// drives the program into a failing assertion.
type PatternSearchResult struct {
	Found bool
	// Pattern is the periodic input sequence.
	Pattern []int64
	// Repetitions is the number of times Pattern was fed before the
	// assertion failed.
	Repetitions int
	AssertCode  int
	// IOSequence is the full observable event sequence of the witness
	// run.
	IOSequence []state.InputOutput
}

// candidate is one frontier entry of the pattern search.
type candidate struct {
	pattern []int64
	// loopDepth is the number of backward edges the candidate's last
	// simulation traversed.
	loopDepth int
	// priority breaks ties: insertion order for breadth-first, reversed
	// for depth-first, random for the randomized mode.
	priority int64
	seq      int64
}

// patternSearch is the concrete solver's strategy. Its frontier is a btree
// of candidate patterns whose order is selected by the exploration mode; the
// transition graph is untouched, so the run summary passes through as is.
type patternSearch struct {
	a        *Analyzer
	start    state.PState
	opts     PatternSearchOptions
	frontier *btree.BTreeG[candidate]
	rng      *rand.Rand
	seq      int64
	result   PatternSearchResult
}

func newPatternSearch(a *Analyzer, start state.PState, opts PatternSearchOptions) *patternSearch {
	s := &patternSearch{
		a:     a,
		start: start,
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
	}
	s.frontier = btree.NewBTreeG(func(x, y candidate) bool {
		switch opts.Mode {
		case ExplorationLoopAware, ExplorationLoopAwareSync:
			if x.loopDepth != y.loopDepth {
				return x.loopDepth < y.loopDepth
			}
		case ExplorationRandom:
			if x.priority != y.priority {
				return x.priority < y.priority
			}
		case ExplorationDepthFirst:
			return x.seq > y.seq
		}
		return x.seq < y.seq
	})
	for _, v := range a.inputValues {
		s.push(candidate{pattern: []int64{v}})
	}
	return s
}

func (s *patternSearch) push(c candidate) {
	c.seq = s.seq
	s.seq++
	if s.opts.Mode == ExplorationRandom {
		c.priority = s.rng.Int63()
	}
	s.frontier.Set(c)
}

func (s *patternSearch) isDone() bool {
	return s.result.Found || s.frontier.Len() == 0
}

func (s *patternSearch) step(ctx context.Context) error {
	c, _ := s.frontier.PopMin()
	res, loopDepth, err := s.a.tryPattern(s.start, c.pattern, s.opts)
	if err != nil {
		return err
	}
	if res.Found {
		s.result = res
		return nil
	}
	if len(c.pattern) < s.opts.MaxDepth {
		for _, v := range s.a.inputValues {
			ext := make([]int64, len(c.pattern)+1)
			copy(ext, c.pattern)
			ext[len(c.pattern)] = v
			s.push(candidate{pattern: ext, loopDepth: loopDepth})
		}
	}
	return nil
}

func (s *patternSearch) extractResult(r RunResult) RunResult { return r }

// RunPatternSearch searches for a minimal periodic input pattern whose
// repetition reaches a failing assertion, simulating concrete runs from
// start instead of building the transition graph. Success requires two
// consecutive pattern repetitions with identical observable subsequences
// that end in the assertion failure.
func (a *Analyzer) RunPatternSearch(ctx context.Context, start state.PState, opts PatternSearchOptions) (PatternSearchResult, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = len(a.inputValues)
	}
	if opts.MaxRepetitions <= 0 {
		opts.MaxRepetitions = 16
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 10000
	}
	a.bfsExploration = false
	a.log.Info().
		Stringer("mode", opts.Mode).
		Int("max_depth", opts.MaxDepth).
		Int("max_repetitions", opts.MaxRepetitions).
		Msg("pattern search started")

	s := newPatternSearch(a, start, opts)
	if run := a.drive(ctx, s); run.Err != nil {
		return PatternSearchResult{}, run.Err
	}
	if s.result.Found {
		a.log.Info().
			Ints64("pattern", s.result.Pattern).
			Int("repetitions", s.result.Repetitions).
			Int("assert_code", s.result.AssertCode).
			Msg("periodic pattern found")
	}
	return s.result, nil
}

// tryPattern feeds pattern repeatedly into a concrete simulation and checks
// the periodicity criterion. It also returns the loop depth the simulation
// reached, which orders the loop-aware frontier.
func (a *Analyzer) tryPattern(start state.PState, pattern []int64, opts PatternSearchOptions) (PatternSearchResult, int, error) {
	inputs := make([]int64, 0, len(pattern)*opts.MaxRepetitions)
	for i := 0; i < opts.MaxRepetitions; i++ {
		inputs = append(inputs, pattern...)
	}
	sim, err := a.runConcrete(start, inputs, opts.MaxSteps)
	if err != nil {
		return PatternSearchResult{}, 0, err
	}
	if sim.assertCode < 0 {
		return PatternSearchResult{}, sim.loopDepth, nil
	}
	// Repetition boundaries are measured in consumed inputs.
	completed := sim.consumed / len(pattern)
	if completed < 2 {
		return PatternSearchResult{}, sim.loopDepth, nil
	}
	last := sim.repetitionEvents(pattern, completed-1)
	prev := sim.repetitionEvents(pattern, completed-2)
	if !ioSequencesEqual(last, prev) {
		return PatternSearchResult{}, sim.loopDepth, nil
	}
	return PatternSearchResult{
		Found:       true,
		Pattern:     pattern,
		Repetitions: completed,
		AssertCode:  sim.assertCode,
		IOSequence:  sim.events,
	}, sim.loopDepth, nil
}

func ioSequencesEqual(a, b []state.InputOutput) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// simulation is the record of one concrete run.
type simulation struct {
	events []state.InputOutput
	// eventInputs[i] is the index of the input most recently consumed
	// when events[i] occurred, attributing every event to the input that
	// caused it.
	eventInputs []int
	consumed    int
	loopDepth   int
	// assertCode is the failing assertion's code, or -1.
	assertCode int
}

// repetitionEvents returns the input/output events produced during the
// rep-th repetition of pattern (zero-based). Error events are excluded: the
// periodicity criterion compares the observable in/out subsequences.
func (s *simulation) repetitionEvents(pattern []int64, rep int) []state.InputOutput {
	lo, hi := rep*len(pattern), (rep+1)*len(pattern)
	var out []state.InputOutput
	for i, ev := range s.events {
		if !ev.IsStdIn() && !ev.IsStdOut() {
			continue
		}
		if s.eventInputs[i] >= lo && s.eventInputs[i] < hi {
			out = append(out, ev)
		}
	}
	return out
}

// runConcrete interprets the program on concrete values, consuming inputs
// in order. The run ends at an assertion failure, when the inputs are
// exhausted at a read, at a label without outgoing edges, or after maxSteps
// steps.
func (a *Analyzer) runConcrete(start state.PState, inputs []int64, maxSteps int) (*simulation, error) {
	sim := &simulation{assertCode: -1}
	ps := start
	empty := state.ConstraintSet{}
	cur := a.prog.EntryLabel()
	record := func(io state.InputOutput) {
		sim.events = append(sim.events, io)
		sim.eventInputs = append(sim.eventInputs, sim.consumed-1)
	}
	for step := 0; step < maxSteps; step++ {
		edge, ok, err := a.concreteStep(cur, &ps, empty)
		if err != nil {
			return nil, err
		}
		if !ok {
			return sim, nil
		}
		if edge.IsType(cfa.EdgeBackward) {
			sim.loopDepth++
		}
		cur = edge.Target
		switch s := a.prog.Stmt(cur).(type) {
		case cfa.Skip, cfa.Cond:
		case cfa.Assign:
			v, err := a.ev.Eval(s.Rhs, &ps, &empty)
			if err != nil {
				return nil, fmt.Errorf("analyzer: at %s: %w", cur, err)
			}
			ps = ps.Set(s.Var, v)
		case cfa.ReadInput:
			if sim.consumed >= len(inputs) {
				return sim, nil
			}
			ps = ps.Set(s.Var, lattice.Const(inputs[sim.consumed]))
			sim.consumed++
			record(state.StdInVar(s.Var))
		case cfa.Print:
			record(state.StdOutVar(s.Var))
		case cfa.PrintConst:
			record(state.StdOutConst(s.Value))
		case cfa.PrintErr:
			record(state.StdErr(s.Var))
		case cfa.Assert:
			v, err := a.ev.Eval(s.Cond, &ps, &empty)
			if err != nil {
				return nil, fmt.Errorf("analyzer: at %s: %w", cur, err)
			}
			if c, ok := v.ConstValue(); ok && c == 0 {
				record(state.FailedAssert(s.Code))
				sim.assertCode = s.Code
				return sim, nil
			}
		default:
			return nil, fmt.Errorf("analyzer: unsupported statement %T at %s", s, cur)
		}
	}
	return sim, nil
}

// concreteStep selects the outgoing edge taken from cur on concrete values.
func (a *Analyzer) concreteStep(cur cfa.Label, ps *state.PState, cs state.ConstraintSet) (cfa.Edge, bool, error) {
	edges := a.prog.Flow().OutEdges(cur)
	if len(edges) == 0 {
		return cfa.Edge{}, false, nil
	}
	cond, isCond := a.prog.Stmt(cur).(cfa.Cond)
	if !isCond {
		return edges[0], true, nil
	}
	v, err := a.ev.Eval(cond.Expr, ps, &cs)
	if err != nil {
		return cfa.Edge{}, false, fmt.Errorf("analyzer: at %s: %w", cur, err)
	}
	c, ok := v.ConstValue()
	if !ok {
		return cfa.Edge{}, false, fmt.Errorf("analyzer: non-constant condition at %s in concrete run", cur)
	}
	want := cfa.EdgeFalse
	if c != 0 {
		want = cfa.EdgeTrue
	}
	for _, e := range edges {
		if e.IsType(want) {
			return e, true, nil
		}
	}
	return cfa.Edge{}, false, nil
}

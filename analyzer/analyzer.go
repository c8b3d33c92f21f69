// Package analyzer implements the worklist-driven exploration engine: it
// pulls extended states from a double-buffered worklist, applies the
// transfer function over the program's control-flow edges, canonicalizes the
// results through the state pools, records transitions in the transition
// graph, and pushes genuinely new states back onto the worklist. Several
// solver drivers realize distinct exploration strategies on top of this
// machinery: full reachability (serial and level-synchronous parallel),
// incremental exploration seeded from an arbitrary state, and a pattern
// search over concrete input sequences.
package analyzer

import (
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/eval"
	"github.com/xevolver/rose/monitor"
	"github.com/xevolver/rose/state"
	"github.com/xevolver/rose/stg"
)

// Bounds are the resource limits of an exploration run. A zero or negative
// bound means unbounded. Exceeding MaxTransitions or MaxIterations ends the
// run with a partial result; exceeding the ForcedTop bounds first switches
// on global abstraction to try to reach a fixpoint within the hard bounds.
type Bounds struct {
	MaxTransitions          int64
	MaxIterations           int64
	MaxTransitionsForcedTop int64
	MaxIterationsForcedTop  int64
}

// Options configures an Analyzer.
type Options struct {
	Logger  zerolog.Logger
	Threads int
	Bounds  Bounds
	// InputValues is the set of concrete values the analyzed program may
	// read from standard input.
	InputValues []int64
	// ValueThreshold is the distinct-value threshold of the variable value
	// monitor; zero disables per-variable abstraction.
	ValueThreshold int
	TopifyMode     monitor.TopifyMode
	// TreatStdErrLikeFailedAssert tags stderr writes as verification errors.
	TreatStdErrLikeFailedAssert bool
}

// Analyzer owns the state pools, the transition graph, the worklist, and the
// variable value monitor of one analysis run. It is created with [New] and
// driven by one of the Run methods.
type Analyzer struct {
	prog *cfa.Program
	ev   *eval.Evaluator

	pstates *state.PStateSet
	csets   *state.ConstraintSetMaintainer
	estates *state.EStateSet
	graph   *stg.TransitionGraph
	backup  *stg.TransitionGraph

	monitor *monitor.VariableValueMonitor
	wl      *WorkList

	bounds      Bounds
	threads     int
	inputValues []int64
	stderrIsErr bool

	iterations       atomic.Int64
	approxIterations atomic.Int64

	famu            sync.Mutex
	firstAssertions map[int]*state.EState
	assertOrder     []int

	results *ReachabilityResults

	// bfsExploration records whether the graph was built by strictly
	// breadth-first full reachability; only then are extracted trace
	// lengths provably minimal.
	bfsExploration bool

	runID ulid.ULID
	log   zerolog.Logger
}

// New creates an analyzer for prog.
func New(prog *cfa.Program, opts Options) *Analyzer {
	a := &Analyzer{
		prog:            prog,
		ev:              eval.New(),
		pstates:         state.NewPStateSet(),
		csets:           state.NewConstraintSetMaintainer(),
		estates:         state.NewEStateSet(),
		graph:           stg.New(),
		monitor:         monitor.New(opts.ValueThreshold),
		wl:              NewWorkList(),
		bounds:          opts.Bounds,
		threads:         opts.Threads,
		inputValues:     opts.InputValues,
		stderrIsErr:     opts.TreatStdErrLikeFailedAssert,
		firstAssertions: map[int]*state.EState{},
		results:         NewReachabilityResults(),
		bfsExploration:  true,
		runID:           ulid.Make(),
	}
	a.monitor.SetMode(opts.TopifyMode)
	a.log = opts.Logger.With().Stringer("run", a.runID).Logger()
	a.registerVariablesOfInterest()
	return a
}

// registerVariablesOfInterest scans the program's labels and registers I/O,
// control-flow, and compound-assignment variables with the monitor; the
// topify mode selects among these sets. Assertion codes found during the
// scan seed the verdict table.
func (a *Analyzer) registerVariablesOfInterest() {
	for l := cfa.Label(0); int(l) < a.prog.NumLabels(); l = l.Next() {
		switch s := a.prog.Stmt(l).(type) {
		case cfa.ReadInput:
			a.monitor.AddIOVariable(s.Var)
		case cfa.Print:
			a.monitor.AddIOVariable(s.Var)
		case cfa.PrintErr:
			a.monitor.AddIOVariable(s.Var)
		case cfa.Cond:
			for _, id := range exprVariables(s.Expr) {
				a.monitor.AddCondVariable(id)
			}
		case cfa.Assign:
			if s.Compound {
				a.monitor.AddCompoundVariable(s.Var)
			}
		case cfa.Assert:
			a.results.Register(s.Code)
		}
	}
}

func exprVariables(e cfa.Expr) []cfa.VariableId {
	var out []cfa.VariableId
	var walk func(cfa.Expr)
	walk = func(e cfa.Expr) {
		switch e := e.(type) {
		case cfa.Var:
			out = append(out, e.Id)
		case cfa.Unary:
			walk(e.X)
		case cfa.Binary:
			walk(e.X)
			walk(e.Y)
		}
	}
	walk(e)
	return out
}

// InitializeSolver interns the initial extended state at the program's entry
// label with the given program state and makes it the graph's start state
// and the worklist seed.
func (a *Analyzer) InitializeSolver(start state.PState) *state.EState {
	ps, _ := a.pstates.Process(start)
	cs, _ := a.csets.Process(state.ConstraintSet{})
	es, isNew := a.estates.Process(state.EState{
		Label:  a.prog.EntryLabel(),
		Pstate: ps,
		Cset:   cs,
		IO:     state.None(),
	})
	a.graph.SetStartEState(es)
	if isNew {
		a.wl.Push(es)
	}
	return es
}

// SetBounds replaces the resource limits for subsequent runs, e.g. to lift
// the bound before resuming a bound-exceeded exploration.
func (a *Analyzer) SetBounds(b Bounds) { a.bounds = b }

// Graph returns the transition graph built so far. The graph stays valid and
// inspectable after evaluator faults and bound-exceeded runs.
func (a *Analyzer) Graph() *stg.TransitionGraph { return a.graph }

func (a *Analyzer) EStateSet() *state.EStateSet { return a.estates }
func (a *Analyzer) PStateSet() *state.PStateSet { return a.pstates }
func (a *Analyzer) ConstraintSetMaintainer() *state.ConstraintSetMaintainer {
	return a.csets
}
func (a *Analyzer) Monitor() *monitor.VariableValueMonitor { return a.monitor }
func (a *Analyzer) Results() *ReachabilityResults          { return a.results }
func (a *Analyzer) WorkList() *WorkList                    { return a.wl }

// Iterations returns the number of precise transfer-function applications.
func (a *Analyzer) Iterations() int64 { return a.iterations.Load() }

// ApproxIterations returns the number of transfer-function applications that
// involved forced abstraction.
func (a *Analyzer) ApproxIterations() int64 { return a.approxIterations.Load() }

// IsPrecise reports whether no abstraction contributed to the graph.
func (a *Analyzer) IsPrecise() bool { return a.graph.IsPrecise() }

// IsIncompleteSTGReady reports whether a partial graph from a bound-exceeded
// run is available.
func (a *Analyzer) IsIncompleteSTGReady() bool {
	return !a.graph.IsComplete() && a.graph.Size() > 0
}

// EnableGlobalTopify switches on global forced abstraction for all variables
// eligible under the configured topify mode. The graph is no longer precise
// afterwards.
func (a *Analyzer) EnableGlobalTopify() {
	a.monitor.EnableGlobalTopify()
	a.graph.SetPrecise(false)
	a.log.Info().Msg("global topify turned on")
}

// recordFailedAssertion remembers the first extended state discovered for
// each assertion code.
func (a *Analyzer) recordFailedAssertion(es *state.EState) {
	code := es.IO.AssertCode()
	a.famu.Lock()
	defer a.famu.Unlock()
	if _, ok := a.firstAssertions[code]; !ok {
		a.firstAssertions[code] = es
		a.assertOrder = append(a.assertOrder, code)
	}
}

// FirstAssertionOccurrences returns the first discovered extended state per
// failed assertion code, in discovery order.
func (a *Analyzer) FirstAssertionOccurrences() []*state.EState {
	a.famu.Lock()
	defer a.famu.Unlock()
	out := make([]*state.EState, 0, len(a.assertOrder))
	for _, code := range a.assertOrder {
		out = append(out, a.firstAssertions[code])
	}
	return out
}

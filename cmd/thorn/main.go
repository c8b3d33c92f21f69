// Command thorn runs the reachability analyzer on a built-in demo program:
// an input/output loop that accumulates read values into a counter, with a
// pair of reachable assertions. It prints the verdict table, extracted
// counterexamples, and optionally the transition graph.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/xevolver/rose/analyzer"
	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/config"
	"github.com/xevolver/rose/monitor"
	"github.com/xevolver/rose/state"
)

var (
	fSolver         = flag.String("solver", "", "exploration strategy: reachability, parallel-reachability, pattern-search")
	fThreads        = flag.Int("threads", 0, "worker count for parallel exploration")
	fMaxTransitions = flag.Int64("max-transitions", -1, "stop after this many transitions (0 = unbounded)")
	fMaxIterations  = flag.Int64("max-iterations", -1, "stop after this many transfer-function applications (0 = unbounded)")
	fThreshold      = flag.Int("threshold", -1, "distinct-value threshold before a variable is abstracted (0 = off)")
	fReduce         = flag.Bool("reduce", false, "reduce the graph to observable behavior before printing")
	fPrintSTG       = flag.Bool("print-stg", false, "print the transition graph")
	fVerbose        = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "thorn:", err)
		os.Exit(1)
	}
}

func run() error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(wd)
	if err != nil {
		return err
	}
	if *fSolver != "" {
		cfg.Analyzer.Solver = *fSolver
	}
	if *fThreads > 0 {
		cfg.Analyzer.Threads = *fThreads
	}
	if *fMaxTransitions >= 0 {
		cfg.Analyzer.MaxTransitions = *fMaxTransitions
	}
	if *fMaxIterations >= 0 {
		cfg.Analyzer.MaxIterations = *fMaxIterations
	}
	if *fThreshold >= 0 {
		cfg.Analyzer.ValueThreshold = *fThreshold
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if *fVerbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	mode, ok := monitor.ParseTopifyMode(cfg.Analyzer.TopifyMode)
	if !ok {
		return fmt.Errorf("unknown topify mode %q", cfg.Analyzer.TopifyMode)
	}
	prog := demoProgram()
	a := analyzer.New(prog, analyzer.Options{
		Logger:  log,
		Threads: cfg.Analyzer.Threads,
		Bounds: analyzer.Bounds{
			MaxTransitions:          cfg.Analyzer.MaxTransitions,
			MaxIterations:           cfg.Analyzer.MaxIterations,
			MaxTransitionsForcedTop: cfg.Analyzer.MaxTransitionsForcedTop,
			MaxIterationsForcedTop:  cfg.Analyzer.MaxIterationsForcedTop,
		},
		InputValues:                 cfg.Analyzer.InputValues,
		ValueThreshold:              cfg.Analyzer.ValueThreshold,
		TopifyMode:                  mode,
		TreatStdErrLikeFailedAssert: cfg.Analyzer.TreatStdErrLikeFailedAssert,
	})
	ctx := context.Background()

	if cfg.Analyzer.Solver == "pattern-search" {
		return runPatternSearch(ctx, a, cfg)
	}

	a.InitializeSolver(state.PState{})
	var res analyzer.RunResult
	switch cfg.Analyzer.Solver {
	case "reachability":
		res = a.RunReachability(ctx)
	case "parallel-reachability":
		res = a.RunReachabilityParallel(ctx)
	default:
		return fmt.Errorf("unknown solver %q", cfg.Analyzer.Solver)
	}
	if res.Err != nil {
		return res.Err
	}
	fmt.Println(res)

	if res.Status == analyzer.StatusConverged {
		if _, err := a.ExtractAssertionTraces(analyzer.TraceFewestInputs); err != nil {
			return err
		}
	}
	if *fReduce {
		g := a.Graph()
		before := g.Stats()
		g.ReduceToObservableBehavior()
		g.PruneLeaves()
		after := g.Stats()
		fmt.Printf("reduced graph: %d -> %d estates, %d -> %d transitions\n",
			before.EStates, after.EStates, before.Transitions, after.Transitions)
	}
	if *fPrintSTG {
		fmt.Print(a.Graph().Format(prog.Variables()))
	}
	fmt.Print(a.Results())
	return nil
}

func runPatternSearch(ctx context.Context, a *analyzer.Analyzer, cfg config.Config) error {
	emode, err := analyzer.ParseExplorationMode(cfg.PatternSearch.ExplorationMode)
	if err != nil {
		return err
	}
	res, err := a.RunPatternSearch(ctx, state.PState{}, analyzer.PatternSearchOptions{
		Mode:           emode,
		MaxDepth:       cfg.PatternSearch.MaxDepth,
		MaxRepetitions: cfg.PatternSearch.MaxRepetitions,
		MaxSteps:       cfg.PatternSearch.MaxSteps,
		Seed:           cfg.PatternSearch.Seed,
	})
	if err != nil {
		return err
	}
	if !res.Found {
		fmt.Println("no periodic pattern found")
		return nil
	}
	fmt.Printf("pattern %v reaches assertion %d after %d repetitions\n",
		res.Pattern, res.AssertCode, res.Repetitions)
	return nil
}

// demoProgram builds the analyzed program:
//
//	c = 0
//	for {
//		read x
//		if x > 0 {
//			c += x
//			print c
//			assert c != 5   // code 1
//		} else {
//			assert x != -1  // code 0
//		}
//	}
func demoProgram() *cfa.Program {
	b := cfa.NewBuilder()
	x := b.Var("x")
	c := b.Var("c")

	b.Entry()
	b.Assign(c, cfa.Const{Value: 0})
	read := b.ReadInput(x)
	cond := b.Cond(cfa.Binary{Op: cfa.OpGt, X: cfa.Var{Id: x}, Y: cfa.Const{Value: 0}})

	add := b.CompoundAssign(c, cfa.Binary{Op: cfa.OpAdd, X: cfa.Var{Id: c}, Y: cfa.Var{Id: x}})
	b.Edge(cond, add, cfa.EdgeTrue)
	b.Print(c)
	sumOK := b.Assert(cfa.Binary{Op: cfa.OpNe, X: cfa.Var{Id: c}, Y: cfa.Const{Value: 5}}, 1)
	b.Edge(sumOK, read, 0)

	b.At(cfa.NoLabel)
	inOK := b.Assert(cfa.Binary{Op: cfa.OpNe, X: cfa.Var{Id: x}, Y: cfa.Const{Value: -1}}, 0)
	b.Edge(cond, inOK, cfa.EdgeFalse)
	b.Edge(inOK, read, 0)

	return b.Build()
}

// Package config loads analyzer settings from thorn.conf files. Files are
// looked up in the given directory and all of its parents; settings in
// deeper directories override those further up, which override the built-in
// defaults. Only explicitly set fields override.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type config struct {
	cfg  Config
	meta toml.MetaData
}

type Config struct {
	Analyzer      AnalyzerConfig      `toml:"analyzer"`
	PatternSearch PatternSearchConfig `toml:"pattern_search"`
	Log           LogConfig           `toml:"log"`
}

type AnalyzerConfig struct {
	// Solver is "reachability", "parallel-reachability", or
	// "pattern-search".
	Solver  string `toml:"solver"`
	Threads int    `toml:"threads"`

	MaxTransitions          int64 `toml:"max_transitions"`
	MaxIterations           int64 `toml:"max_iterations"`
	MaxTransitionsForcedTop int64 `toml:"max_transitions_forced_top"`
	MaxIterationsForcedTop  int64 `toml:"max_iterations_forced_top"`

	// InputValues is the input alphabet of the analyzed program.
	InputValues []int64 `toml:"input_values"`

	ValueThreshold int    `toml:"value_threshold"`
	TopifyMode     string `toml:"topify_mode"`

	TreatStdErrLikeFailedAssert bool `toml:"treat_stderr_like_failed_assert"`
}

type PatternSearchConfig struct {
	ExplorationMode string `toml:"exploration_mode"`
	MaxDepth        int    `toml:"max_depth"`
	MaxRepetitions  int    `toml:"max_repetitions"`
	MaxSteps        int    `toml:"max_steps"`
	Seed            int64  `toml:"seed"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

var defaultConfig = Config{
	Analyzer: AnalyzerConfig{
		Solver:         "reachability",
		Threads:        1,
		InputValues:    []int64{1, 2, -1},
		ValueThreshold: 8,
		TopifyMode:     "iocf",
	},
	PatternSearch: PatternSearchConfig{
		ExplorationMode: "breadth-first",
		MaxDepth:        0,
		MaxRepetitions:  16,
		MaxSteps:        10000,
	},
	Log: LogConfig{
		Level: "info",
	},
}

func (cfg config) Merge(ocfg config) config {
	if ocfg.meta.IsDefined("analyzer", "solver") {
		cfg.cfg.Analyzer.Solver = ocfg.cfg.Analyzer.Solver
	}
	if ocfg.meta.IsDefined("analyzer", "threads") {
		cfg.cfg.Analyzer.Threads = ocfg.cfg.Analyzer.Threads
	}
	if ocfg.meta.IsDefined("analyzer", "max_transitions") {
		cfg.cfg.Analyzer.MaxTransitions = ocfg.cfg.Analyzer.MaxTransitions
	}
	if ocfg.meta.IsDefined("analyzer", "max_iterations") {
		cfg.cfg.Analyzer.MaxIterations = ocfg.cfg.Analyzer.MaxIterations
	}
	if ocfg.meta.IsDefined("analyzer", "max_transitions_forced_top") {
		cfg.cfg.Analyzer.MaxTransitionsForcedTop = ocfg.cfg.Analyzer.MaxTransitionsForcedTop
	}
	if ocfg.meta.IsDefined("analyzer", "max_iterations_forced_top") {
		cfg.cfg.Analyzer.MaxIterationsForcedTop = ocfg.cfg.Analyzer.MaxIterationsForcedTop
	}
	if ocfg.meta.IsDefined("analyzer", "input_values") {
		cfg.cfg.Analyzer.InputValues = ocfg.cfg.Analyzer.InputValues
	}
	if ocfg.meta.IsDefined("analyzer", "value_threshold") {
		cfg.cfg.Analyzer.ValueThreshold = ocfg.cfg.Analyzer.ValueThreshold
	}
	if ocfg.meta.IsDefined("analyzer", "topify_mode") {
		cfg.cfg.Analyzer.TopifyMode = ocfg.cfg.Analyzer.TopifyMode
	}
	if ocfg.meta.IsDefined("analyzer", "treat_stderr_like_failed_assert") {
		cfg.cfg.Analyzer.TreatStdErrLikeFailedAssert = ocfg.cfg.Analyzer.TreatStdErrLikeFailedAssert
	}
	if ocfg.meta.IsDefined("pattern_search", "exploration_mode") {
		cfg.cfg.PatternSearch.ExplorationMode = ocfg.cfg.PatternSearch.ExplorationMode
	}
	if ocfg.meta.IsDefined("pattern_search", "max_depth") {
		cfg.cfg.PatternSearch.MaxDepth = ocfg.cfg.PatternSearch.MaxDepth
	}
	if ocfg.meta.IsDefined("pattern_search", "max_repetitions") {
		cfg.cfg.PatternSearch.MaxRepetitions = ocfg.cfg.PatternSearch.MaxRepetitions
	}
	if ocfg.meta.IsDefined("pattern_search", "max_steps") {
		cfg.cfg.PatternSearch.MaxSteps = ocfg.cfg.PatternSearch.MaxSteps
	}
	if ocfg.meta.IsDefined("pattern_search", "seed") {
		cfg.cfg.PatternSearch.Seed = ocfg.cfg.PatternSearch.Seed
	}
	if ocfg.meta.IsDefined("log", "level") {
		cfg.cfg.Log.Level = ocfg.cfg.Log.Level
	}
	return cfg
}

const configName = "thorn.conf"

func parseConfigs(dir string) ([]config, error) {
	var out []config

	for dir != "" {
		f, err := os.Open(filepath.Join(dir, configName))
		if os.IsNotExist(err) {
			ndir := filepath.Dir(dir)
			if ndir == dir {
				break
			}
			dir = ndir
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg Config
		meta, err := toml.NewDecoder(f).Decode(&cfg)
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, config{cfg, meta})
		ndir := filepath.Dir(dir)
		if ndir == dir {
			break
		}
		dir = ndir
	}
	out = append(out, config{
		cfg:  defaultConfig,
		meta: toml.MetaData{}, // meta of the base config should never be accessed
	})
	if len(out) < 2 {
		return out, nil
	}
	for i := 0; i < len(out)/2; i++ {
		out[i], out[len(out)-1-i] = out[len(out)-1-i], out[i]
	}
	return out, nil
}

func mergeConfigs(confs []config) Config {
	if len(confs) == 0 {
		// This shouldn't happen because we always have at least a
		// default config.
		panic("trying to merge zero configs")
	}
	if len(confs) == 1 {
		return confs[0].cfg
	}
	conf := confs[0]
	for _, oconf := range confs[1:] {
		conf = conf.Merge(oconf)
	}
	return conf.cfg
}

func Load(dir string) (Config, error) {
	confs, err := parseConfigs(dir)
	if err != nil {
		return Config{}, err
	}
	return mergeConfigs(confs), nil
}

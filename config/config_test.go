package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configName), []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "reachability", cfg.Analyzer.Solver)
	assert.Equal(t, []int64{1, 2, -1}, cfg.Analyzer.InputValues)
	assert.Equal(t, "breadth-first", cfg.PatternSearch.ExplorationMode)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, `
[analyzer]
solver = "parallel-reachability"
threads = 8
input_values = [0, 1]

[log]
level = "debug"
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "parallel-reachability", cfg.Analyzer.Solver)
	assert.Equal(t, 8, cfg.Analyzer.Threads)
	assert.Equal(t, []int64{0, 1}, cfg.Analyzer.InputValues)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "iocf", cfg.Analyzer.TopifyMode, "unset fields keep their defaults")
}

func TestLoadNearestFileWins(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "sub")
	require.NoError(t, os.Mkdir(child, 0o755))

	write(t, parent, `
[analyzer]
threads = 2
value_threshold = 7
`)
	write(t, child, `
[analyzer]
threads = 4
`)
	cfg, err := Load(child)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Analyzer.Threads, "the deeper file overrides")
	assert.Equal(t, 7, cfg.Analyzer.ValueThreshold, "unset fields inherit from the parent file")
}

func TestLoadZeroOverridesWhenExplicit(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, `
[analyzer]
value_threshold = 0

[pattern_search]
max_repetitions = 0
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Analyzer.ValueThreshold)
	assert.Equal(t, 0, cfg.PatternSearch.MaxRepetitions,
		"explicitly set zero values override the defaults")
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "analyzer = [broken")
	_, err := Load(dir)
	assert.Error(t, err)
}

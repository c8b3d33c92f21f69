// Package monitor tracks how many distinct concrete values each variable has
// taken during exploration and decides when a variable must be forcibly
// abstracted ("topified") to bound state-space growth. Abstraction is
// monotone: once a variable is topped it stays topped for the remainder of
// the run.
package monitor

import (
	"sync"

	"github.com/xevolver/rose/cfa"
)

// TopifyMode selects which variables are eligible for forced abstraction
// when global topify is triggered.
type TopifyMode int

const (
	// TopifyIO tops variables relevant to input/output.
	TopifyIO TopifyMode = iota
	// TopifyIOCF additionally tops control-flow relevant variables
	// (variables occurring in branch conditions).
	TopifyIOCF
	// TopifyIOCFPtr additionally tops pointer variables.
	TopifyIOCFPtr
	// TopifyCompoundAssign tops targets of compound assignments.
	TopifyCompoundAssign
	// TopifyFlags tops a custom, caller-selected variable set.
	TopifyFlags
)

var topifyModeNames = map[string]TopifyMode{
	"io":             TopifyIO,
	"iocf":           TopifyIOCF,
	"iocfptr":        TopifyIOCFPtr,
	"compoundassign": TopifyCompoundAssign,
	"flags":          TopifyFlags,
}

// ParseTopifyMode parses a mode name as used in configuration files.
func ParseTopifyMode(s string) (TopifyMode, bool) {
	m, ok := topifyModeNames[s]
	return m, ok
}

// VariableValueMonitor counts distinct observed values per variable. Its
// lifetime spans one analysis run.
type VariableValueMonitor struct {
	mu        sync.Mutex
	threshold int
	mode      TopifyMode
	seen      map[cfa.VariableId]map[int64]struct{}
	topped    map[cfa.VariableId]struct{}
	pending   map[cfa.VariableId]struct{}

	ioVars       cfa.VariableIdSet
	condVars     cfa.VariableIdSet
	pointerVars  cfa.VariableIdSet
	compoundVars cfa.VariableIdSet
	flaggedVars  cfa.VariableIdSet

	globalTopify bool
}

// New returns a monitor with the given distinct-value threshold. A threshold
// of zero disables per-variable abstraction.
func New(threshold int) *VariableValueMonitor {
	return &VariableValueMonitor{
		threshold: threshold,
		seen:      map[cfa.VariableId]map[int64]struct{}{},
		topped:    map[cfa.VariableId]struct{}{},
		pending:   map[cfa.VariableId]struct{}{},
	}
}

func (m *VariableValueMonitor) SetThreshold(t int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = t
}

func (m *VariableValueMonitor) SetMode(mode TopifyMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// AddIOVariable registers a variable as I/O relevant. The analyzer registers
// variables while scanning the program's labels.
func (m *VariableValueMonitor) AddIOVariable(id cfa.VariableId)       { m.add(&m.ioVars, id) }
func (m *VariableValueMonitor) AddCondVariable(id cfa.VariableId)     { m.add(&m.condVars, id) }
func (m *VariableValueMonitor) AddPointerVariable(id cfa.VariableId)  { m.add(&m.pointerVars, id) }
func (m *VariableValueMonitor) AddCompoundVariable(id cfa.VariableId) { m.add(&m.compoundVars, id) }
func (m *VariableValueMonitor) AddFlaggedVariable(id cfa.VariableId)  { m.add(&m.flaggedVars, id) }

func (m *VariableValueMonitor) add(s *cfa.VariableIdSet, id cfa.VariableId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Insert(id)
}

// Observe records a concrete value for id. Exceeding the threshold marks
// the variable pending; CommitPending tops it permanently. The bounded
// value table of a pending variable is released.
func (m *VariableValueMonitor) Observe(id cfa.VariableId, v int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.threshold <= 0 {
		return
	}
	if _, ok := m.topped[id]; ok {
		return
	}
	if _, ok := m.pending[id]; ok {
		return
	}
	vals := m.seen[id]
	if vals == nil {
		vals = map[int64]struct{}{}
		m.seen[id] = vals
	}
	vals[v] = struct{}{}
	if len(vals) > m.threshold {
		m.pending[id] = struct{}{}
		delete(m.seen, id)
	}
}

// CommitPending promotes the variables that crossed the threshold since the
// last commit. The solvers call it at generation boundaries, so abstraction
// decisions are level-synchronous: within one generation every worker sees
// the same topped set, and the reachable state set does not depend on the
// order in which the generation's states are processed.
func (m *VariableValueMonitor) CommitPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.pending {
		m.topped[id] = struct{}{}
	}
	m.pending = map[cfa.VariableId]struct{}{}
}

// ShouldAbstract reports whether id must be widened to ⊤ by the transfer
// function.
func (m *VariableValueMonitor) ShouldAbstract(id cfa.VariableId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topped[id]; ok {
		return true
	}
	return m.globalTopify && m.eligible(id)
}

func (m *VariableValueMonitor) eligible(id cfa.VariableId) bool {
	switch m.mode {
	case TopifyIO:
		return m.ioVars.Has(id)
	case TopifyIOCF:
		return m.ioVars.Has(id) || m.condVars.Has(id)
	case TopifyIOCFPtr:
		return m.ioVars.Has(id) || m.condVars.Has(id) || m.pointerVars.Has(id)
	case TopifyCompoundAssign:
		return m.compoundVars.Has(id)
	default:
		return m.flaggedVars.Has(id)
	}
}

// ForceTop permanently tops id.
func (m *VariableValueMonitor) ForceTop(id cfa.VariableId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topped[id] = struct{}{}
	delete(m.seen, id)
}

// EnableGlobalTopify switches to global abstraction of all mode-eligible
// variables, typically in reaction to a forced-abstraction resource bound.
func (m *VariableValueMonitor) EnableGlobalTopify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalTopify = true
}

// IsActive reports whether any abstraction has been triggered.
func (m *VariableValueMonitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalTopify || len(m.topped) > 0
}

// DistinctValues returns the current distinct-value count for id; topped
// and pending variables report the threshold.
func (m *VariableValueMonitor) DistinctValues(id cfa.VariableId) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.topped[id]; ok {
		return m.threshold
	}
	if _, ok := m.pending[id]; ok {
		return m.threshold
	}
	return len(m.seen[id])
}

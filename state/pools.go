package state

import (
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// The pools intern state values: Process returns the canonical handle for a
// structurally equal value that was interned before, or inserts the given
// value and returns the new handle. Insertion is the only mutation and is
// safe under concurrent calls; pools grow monotonically for the duration of
// a run. The boolean result reports whether the value was new; first-time
// interning is the analyzer's sole "newly discovered state" criterion.

func intern[T any](m cmap.ConcurrentMap[string, *T], key string, v T) (*T, bool) {
	candidate := &v
	stored := m.Upsert(key, candidate, func(exist bool, inMap, nv *T) *T {
		if exist {
			return inMap
		}
		return nv
	})
	return stored, stored == candidate
}

// PStateSet interns program states.
type PStateSet struct {
	m cmap.ConcurrentMap[string, *PState]
}

func NewPStateSet() *PStateSet {
	return &PStateSet{m: cmap.New[*PState]()}
}

func (s *PStateSet) Process(ps PState) (*PState, bool) {
	return intern(s.m, ps.Key(), ps)
}

func (s *PStateSet) Exists(ps PState) bool { return s.m.Has(ps.Key()) }
func (s *PStateSet) Size() int             { return s.m.Count() }

// ConstraintSetMaintainer interns constraint sets.
type ConstraintSetMaintainer struct {
	m cmap.ConcurrentMap[string, *ConstraintSet]
}

func NewConstraintSetMaintainer() *ConstraintSetMaintainer {
	return &ConstraintSetMaintainer{m: cmap.New[*ConstraintSet]()}
}

func (s *ConstraintSetMaintainer) Process(cs ConstraintSet) (*ConstraintSet, bool) {
	return intern(s.m, cs.Key(), cs)
}

func (s *ConstraintSetMaintainer) Exists(cs ConstraintSet) bool { return s.m.Has(cs.Key()) }
func (s *ConstraintSetMaintainer) Size() int                    { return s.m.Count() }

// EStateSet interns extended states and assigns each newly interned state a
// unique id.
type EStateSet struct {
	m      cmap.ConcurrentMap[string, *EState]
	nextID atomic.Int64
}

func NewEStateSet() *EStateSet {
	return &EStateSet{m: cmap.New[*EState]()}
}

func (s *EStateSet) Process(es EState) (*EState, bool) {
	candidate := &es
	stored := s.m.Upsert(es.Key(), candidate, func(exist bool, inMap, nv *EState) *EState {
		if exist {
			return inMap
		}
		// The callback runs under the shard lock; ids are dense.
		nv.id = s.nextID.Add(1) - 1
		return nv
	})
	return stored, stored == candidate
}

func (s *EStateSet) Exists(es *EState) bool { return s.m.Has(es.Key()) }
func (s *EStateSet) Size() int              { return s.m.Count() }

// MaxID returns an upper bound on assigned state ids, usable for sizing
// visited sets.
func (s *EStateSet) MaxID() int64 { return s.nextID.Load() }

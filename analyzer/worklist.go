package analyzer

import (
	"sync"

	"github.com/xevolver/rose/state"
)

// WorkList is the double-buffered queue of pending extended states. States
// are pushed onto the next generation and popped from the current one;
// SwapGenerations promotes the next generation, enabling level-synchronous
// parallel processing. The worklist performs no duplicate suppression; the
// pools decide newness.
type WorkList struct {
	mu      sync.Mutex
	current []*state.EState
	next    []*state.EState
}

func NewWorkList() *WorkList {
	return &WorkList{}
}

// Push appends es to the next generation. Safe for concurrent use.
func (w *WorkList) Push(es *state.EState) {
	w.mu.Lock()
	w.next = append(w.next, es)
	w.mu.Unlock()
}

// Pop removes the first state of the current generation. If the current
// generation is exhausted it swaps in the next one, so serial processing
// still visits states in breadth-first order.
func (w *WorkList) Pop() (*state.EState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.current) == 0 {
		w.current, w.next = w.next, w.current[:0]
	}
	if len(w.current) == 0 {
		return nil, false
	}
	es := w.current[0]
	w.current = w.current[1:]
	return es, true
}

// IsEmpty reports whether both generations are exhausted.
func (w *WorkList) IsEmpty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.current) == 0 && len(w.next) == 0
}

// Len returns the total number of pending states.
func (w *WorkList) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.current) + len(w.next)
}

// SwapGenerations promotes the next generation to current and returns it.
// The returned slice is read-only for the duration of the generation's
// processing.
func (w *WorkList) SwapGenerations() []*state.EState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current, w.next = w.next, nil
	return w.current
}

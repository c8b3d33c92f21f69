package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// PropertyValue is the verification verdict of one reachability property.
type PropertyValue int

const (
	// PropertyUnknown means the analysis could not decide the property,
	// typically because the run was bounded or abstraction was in effect.
	PropertyUnknown PropertyValue = iota
	// PropertyYes means the error location is reachable.
	PropertyYes
	// PropertyNo means the error location is unreachable.
	PropertyNo
)

func (v PropertyValue) String() string {
	switch v {
	case PropertyYes:
		return "yes"
	case PropertyNo:
		return "no"
	default:
		return "unknown"
	}
}

// ReachabilityResults maps assertion codes to verification verdicts and, for
// reachable assertions, to the extracted counterexample input sequence.
type ReachabilityResults struct {
	mu       sync.Mutex
	verdicts map[int]PropertyValue
	// counterexamples holds one observable input sequence per reachable
	// assertion code, when trace extraction produced one.
	counterexamples map[int][]int64
}

func NewReachabilityResults() *ReachabilityResults {
	return &ReachabilityResults{
		verdicts:        map[int]PropertyValue{},
		counterexamples: map[int][]int64{},
	}
}

// Register adds code with an unknown verdict. Already decided codes keep
// their verdict.
func (r *ReachabilityResults) Register(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.verdicts[code]; !ok {
		r.verdicts[code] = PropertyUnknown
	}
}

// SetReachable marks code as reachable. Reachability is definite. It wins
// over any earlier verdict.
func (r *ReachabilityResults) SetReachable(code int) {
	r.mu.Lock()
	r.verdicts[code] = PropertyYes
	r.mu.Unlock()
}

// SetUnreachable marks code as unreachable unless it was already proven
// reachable.
func (r *ReachabilityResults) SetUnreachable(code int) {
	r.mu.Lock()
	if r.verdicts[code] != PropertyYes {
		r.verdicts[code] = PropertyNo
	}
	r.mu.Unlock()
}

// SetUnknown downgrades an unreachable verdict to unknown. Reachable
// verdicts stay.
func (r *ReachabilityResults) SetUnknown(code int) {
	r.mu.Lock()
	if r.verdicts[code] != PropertyYes {
		r.verdicts[code] = PropertyUnknown
	}
	r.mu.Unlock()
}

func (r *ReachabilityResults) Verdict(code int) PropertyValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verdicts[code]
}

// SetCounterexample stores the observable input sequence that leads to the
// failing assertion with the given code.
func (r *ReachabilityResults) SetCounterexample(code int, inputs []int64) {
	r.mu.Lock()
	r.counterexamples[code] = inputs
	r.mu.Unlock()
}

// Counterexample returns the stored input sequence for code, if any.
func (r *ReachabilityResults) Counterexample(code int) ([]int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cex, ok := r.counterexamples[code]
	return cex, ok
}

// Codes returns all registered assertion codes in ascending order.
func (r *ReachabilityResults) Codes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.verdicts))
	for code := range r.verdicts {
		out = append(out, code)
	}
	sort.Ints(out)
	return out
}

// Count returns the number of codes with the given verdict.
func (r *ReachabilityResults) Count(v PropertyValue) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.verdicts {
		if got == v {
			n++
		}
	}
	return n
}

func (r *ReachabilityResults) String() string {
	var sb strings.Builder
	for _, code := range r.Codes() {
		fmt.Fprintf(&sb, "%d: %s", code, r.Verdict(code))
		if cex, ok := r.Counterexample(code); ok {
			fmt.Fprintf(&sb, " %v", cex)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

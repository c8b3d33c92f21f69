// Package state defines the state representations of the analysis (program
// states, constraint sets, I/O annotations, and extended states) together
// with the canonical pools that intern them. All state values are immutable
// once interned; "modified" variants are new values. Handles returned by the
// pools are canonical: reference equality implies structural equality.
package state

import (
	"fmt"
	"strings"

	"github.com/xevolver/rose/cfa"
	"github.com/xevolver/rose/lattice"
)

type binding struct {
	id  cfa.VariableId
	val lattice.Value
}

// PState maps variable identifiers to abstract values. The zero value is the
// empty state. PState is a value type before interning; the analysis works
// with *PState handles obtained from a [PStateSet].
type PState struct {
	bindings []binding // sorted by id
}

// Value returns the abstract value of id, or ⊥ if the variable is not in the
// state.
func (s PState) Value(id cfa.VariableId) lattice.Value {
	if i, ok := s.find(id); ok {
		return s.bindings[i].val
	}
	return lattice.Bottom()
}

// VariableExists reports whether id is bound in the state.
func (s PState) VariableExists(id cfa.VariableId) bool {
	_, ok := s.find(id)
	return ok
}

func (s PState) find(id cfa.VariableId) (int, bool) {
	lo, hi := 0, len(s.bindings)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.bindings[mid].id < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(s.bindings) && s.bindings[lo].id == id
}

// Set returns a copy of s with id bound to v.
func (s PState) Set(id cfa.VariableId, v lattice.Value) PState {
	i, ok := s.find(id)
	out := make([]binding, len(s.bindings), len(s.bindings)+1)
	copy(out, s.bindings)
	if ok {
		out[i].val = v
		return PState{bindings: out}
	}
	out = append(out, binding{})
	copy(out[i+1:], out[i:])
	out[i] = binding{id: id, val: v}
	return PState{bindings: out}
}

// Topify returns a copy of s with id bound to ⊤.
func (s PState) Topify(id cfa.VariableId) PState {
	return s.Set(id, lattice.Top())
}

// TopifyAll returns a copy of s with every bound variable set to ⊤.
func (s PState) TopifyAll() PState {
	out := make([]binding, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = binding{id: b.id, val: lattice.Top()}
	}
	return PState{bindings: out}
}

// Variables returns the bound variable identifiers in ascending order.
func (s PState) Variables() []cfa.VariableId {
	out := make([]cfa.VariableId, len(s.bindings))
	for i, b := range s.bindings {
		out[i] = b.id
	}
	return out
}

func (s PState) Equal(o PState) bool {
	if len(s.bindings) != len(o.bindings) {
		return false
	}
	for i, b := range s.bindings {
		if o.bindings[i] != b {
			return false
		}
	}
	return true
}

// Key returns the canonical encoding of s, used as the interning key.
func (s PState) Key() string {
	var sb strings.Builder
	for _, b := range s.bindings {
		fmt.Fprintf(&sb, "%d=%s;", b.id, b.val)
	}
	return sb.String()
}

// Format renders the state with variable names resolved through vim. A nil
// vim falls back to identifier codes.
func (s PState) Format(vim *cfa.VariableIdMapping) string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, b := range s.bindings {
		if i > 0 {
			sb.WriteString(",")
		}
		name := b.id.String()
		if vim != nil {
			name = vim.VariableName(b.id)
		}
		fmt.Fprintf(&sb, "%s=%s", name, b.val)
	}
	sb.WriteString("}")
	return sb.String()
}

func (s PState) String() string { return s.Format(nil) }

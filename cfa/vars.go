package cfa

import (
	"fmt"

	"golang.org/x/tools/container/intsets"
)

// VariableId is a stable identifier for a source variable. Program states
// are keyed by VariableId, never by name; names exist only for rendering.
type VariableId int32

const NoVariableId VariableId = -1

func (id VariableId) Valid() bool { return id >= 0 }

func (id VariableId) String() string {
	if !id.Valid() {
		return "V?"
	}
	return fmt.Sprintf("V%d", int32(id))
}

// VariableIdSet is a set of variable identifiers. The zero value is an empty
// set.
type VariableIdSet struct {
	set intsets.Sparse
}

func (s *VariableIdSet) Insert(id VariableId) bool { return s.set.Insert(int(id)) }
func (s *VariableIdSet) Has(id VariableId) bool    { return s.set.Has(int(id)) }
func (s *VariableIdSet) Len() int                  { return s.set.Len() }

func (s *VariableIdSet) Ids() []VariableId {
	ints := s.set.AppendTo(nil)
	out := make([]VariableId, len(ints))
	for i, x := range ints {
		out[i] = VariableId(x)
	}
	return out
}

// VariableIdMapping maps between variable identifiers and names. Identifiers
// are assigned densely in creation order.
type VariableIdMapping struct {
	names []string
	ids   map[string]VariableId
}

func NewVariableIdMapping() *VariableIdMapping {
	return &VariableIdMapping{ids: map[string]VariableId{}}
}

// CreateVariableId returns the identifier for name, creating one if the name
// is new.
func (m *VariableIdMapping) CreateVariableId(name string) VariableId {
	if id, ok := m.ids[name]; ok {
		return id
	}
	id := VariableId(len(m.names))
	m.names = append(m.names, name)
	m.ids[name] = id
	return id
}

func (m *VariableIdMapping) VariableIdFromName(name string) (VariableId, bool) {
	id, ok := m.ids[name]
	return id, ok
}

func (m *VariableIdMapping) VariableName(id VariableId) string {
	if !id.Valid() || int(id) >= len(m.names) {
		return id.String()
	}
	return m.names[id]
}

func (m *VariableIdMapping) NumVariables() int { return len(m.names) }

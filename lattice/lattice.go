// Package lattice implements the flat value domain ⟨⊥, Const(n), ⊤⟩ used by
// the expression evaluator. ⊥ represents "no value observed yet", ⊤
// represents "any value". The domain forms a join-semilattice of height two;
// Join handles the ⊥ and ⊤ elements explicitly.
package lattice

import "fmt"

type kind uint8

const (
	kindBot kind = iota
	kindConst
	kindTop
)

// Value is an element of the flat domain. The zero value is ⊥.
type Value struct {
	k kind
	n int64
}

func Bottom() Value       { return Value{} }
func Top() Value          { return Value{k: kindTop} }
func Const(n int64) Value { return Value{k: kindConst, n: n} }

func (v Value) IsBot() bool   { return v.k == kindBot }
func (v Value) IsTop() bool   { return v.k == kindTop }
func (v Value) IsConst() bool { return v.k == kindConst }

// ConstValue returns the constant and whether v is a constant.
func (v Value) ConstValue() (int64, bool) { return v.n, v.k == kindConst }

// Join returns the least upper bound of v and o.
func (v Value) Join(o Value) Value {
	switch {
	case v.IsTop() || o.IsTop():
		return Top()
	case v.IsBot():
		return o
	case o.IsBot():
		return v
	case v == o:
		return v
	default:
		return Top()
	}
}

func (v Value) String() string {
	switch v.k {
	case kindBot:
		return "⊥"
	case kindTop:
		return "⊤"
	default:
		return fmt.Sprintf("%d", v.n)
	}
}

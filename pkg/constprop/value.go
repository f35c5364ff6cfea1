// Package constprop implements intra-procedural constant propagation over
// 32-bit integral variables.
package constprop

import (
	"fmt"

	"github.com/l3aro/go-dataflow/pkg/dataflow"
)

type valueKind uint8

const (
	kindUndef valueKind = iota
	kindConstant
	kindNAC
)

// Value is an element of the flat constant lattice:
// UNDEF ⊑ c ⊑ NAC for every constant c, distinct constants incomparable.
type Value struct {
	kind     valueKind
	constant int32
}

// Undef returns the bottom value: no information yet.
func Undef() Value { return Value{kind: kindUndef} }

// NAC returns the top value: provably not a single constant.
func NAC() Value { return Value{kind: kindNAC} }

// MakeConstant returns the value holding exactly c.
func MakeConstant(c int32) Value { return Value{kind: kindConstant, constant: c} }

// IsUndef reports whether v is UNDEF.
func (v Value) IsUndef() bool { return v.kind == kindUndef }

// IsNAC reports whether v is NAC.
func (v Value) IsNAC() bool { return v.kind == kindNAC }

// IsConstant reports whether v is an exact constant.
func (v Value) IsConstant() bool { return v.kind == kindConstant }

// Constant returns the constant held by v. It is an invariant violation to
// call it on a non-constant value.
func (v Value) Constant() int32 {
	if !v.IsConstant() {
		dataflow.Invariant("%s is not a constant", v)
	}
	return v.constant
}

func (v Value) String() string {
	switch v.kind {
	case kindUndef:
		return "UNDEF"
	case kindNAC:
		return "NAC"
	case kindConstant:
		return fmt.Sprintf("%d", v.constant)
	default:
		return fmt.Sprintf("Value(%d)", v.kind)
	}
}

// MeetValue merges two values:
//
//	c ⊓ c = c, c1 ⊓ c2 = NAC (c1 != c2), c ⊓ UNDEF = c,
//	x ⊓ NAC = NAC, UNDEF ⊓ UNDEF = UNDEF.
func MeetValue(v1, v2 Value) Value {
	checkKind(v1)
	checkKind(v2)
	switch {
	case v1.IsNAC() || v2.IsNAC():
		return NAC()
	case v1.IsUndef():
		return v2
	case v2.IsUndef():
		return v1
	case v1.constant == v2.constant:
		return v1
	default:
		return NAC()
	}
}

func checkKind(v Value) {
	if v.kind > kindNAC {
		dataflow.Invariant("lattice value of unknown kind %d", v.kind)
	}
}

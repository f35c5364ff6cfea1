// Package ir defines the three-address intermediate representation consumed by
// the dataflow analyses. A function is a flat list of statements whose operands
// are variables; jumps name their target statements directly.
package ir

import "fmt"

// TypeKind classifies the static type of a variable.
type TypeKind string

const (
	TypeByte      TypeKind = "byte"      // 8-bit signed integer
	TypeShort     TypeKind = "short"     // 16-bit signed integer
	TypeInt       TypeKind = "int"       // 32-bit signed integer
	TypeChar      TypeKind = "char"      // 16-bit unsigned integer
	TypeBoolean   TypeKind = "boolean"   // true/false, encoded as 1/0
	TypeLong      TypeKind = "long"      // 64-bit integer
	TypeFloat     TypeKind = "float"     // 32-bit floating point
	TypeDouble    TypeKind = "double"    // 64-bit floating point
	TypeReference TypeKind = "reference" // anything that is not a primitive
)

// Type is the static type of a variable or expression.
type Type struct {
	Kind TypeKind `json:"kind"`
	Name string   `json:"name,omitempty"` // source-level spelling, e.g. "int32" or "*bytes.Buffer"
}

// Primitive returns the primitive type of the given kind.
func Primitive(kind TypeKind) Type {
	return Type{Kind: kind}
}

// Reference returns a non-primitive type with the given source name.
func Reference(name string) Type {
	return Type{Kind: TypeReference, Name: name}
}

// IsPrimitive reports whether t is a primitive type.
func (t Type) IsPrimitive() bool {
	return t.Kind != TypeReference && t.Kind != ""
}

// IsUnsigned reports whether t came from an unsigned source type.
func (t Type) IsUnsigned() bool {
	switch t.Name {
	case "uint", "uint8", "byte", "uint16", "uint32", "uint64", "uintptr":
		return true
	}
	return t.Kind == TypeChar
}

func (t Type) String() string {
	if t.Name != "" {
		return t.Name
	}
	return string(t.Kind)
}

// Position is a 1-based source location.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Var is a local variable, parameter or compiler temporary.
type Var struct {
	Name  string
	Type  Type
	Index int  // position in IR.Vars
	Temp  bool // introduced by lowering, not present in source

	// Escapes marks variables whose address is taken or that a closure
	// captures: they may be read or written by code outside the IR.
	Escapes bool
}

func (v *Var) String() string {
	return v.Name
}

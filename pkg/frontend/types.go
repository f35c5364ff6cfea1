package frontend

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-dataflow/pkg/ir"
)

var primitiveTypes = map[string]ir.TypeKind{
	"int8":    ir.TypeByte,
	"uint8":   ir.TypeByte,
	"byte":    ir.TypeByte,
	"int16":   ir.TypeShort,
	"uint16":  ir.TypeChar,
	"int":     ir.TypeInt,
	"int32":   ir.TypeInt,
	"rune":    ir.TypeInt,
	"bool":    ir.TypeBoolean,
	"int64":   ir.TypeLong,
	"uint":    ir.TypeLong,
	"uint32":  ir.TypeLong,
	"uint64":  ir.TypeLong,
	"uintptr": ir.TypeLong,
	"float32": ir.TypeFloat,
	"float64": ir.TypeDouble,
}

// narrowTypes wrap around below 32 bits, so arithmetic on them is not
// modelled exactly by the int lattice.
var narrowTypes = map[string]bool{
	"int8":   true,
	"uint8":  true,
	"byte":   true,
	"int16":  true,
	"uint16": true,
}

// wideTypes are tracked as ints but hold 64 bits, so arithmetic on them is
// checked for int32 overflow instead of wrapping.
var wideTypes = map[string]bool{
	"int": true,
}

// goType maps the source spelling of a Go type to its IR type.
func goType(name string) ir.Type {
	name = strings.TrimSpace(name)
	if kind, ok := primitiveTypes[name]; ok {
		return ir.Type{Kind: kind, Name: name}
	}
	if name == "" {
		name = "?"
	}
	return ir.Reference(name)
}

func isPrimitiveName(name string) bool {
	_, ok := primitiveTypes[name]
	return ok
}

var (
	typeInt    = goType("int")
	typeBool   = goType("bool")
	typeString = ir.Reference("string")
	typeRune   = goType("rune")
	typeFloat  = goType("float64")
	typeAny    = ir.Reference("?")
)

// escapedNames collects the identifiers whose address is taken or that are
// referenced from a function literal inside body. Variables with these names
// may change behind the analysis' back and are declared untracked.
func escapedNames(f *File, body *sitter.Node) map[string]bool {
	names := make(map[string]bool)
	var walk func(n *sitter.Node, inClosure bool)
	walk = func(n *sitter.Node, inClosure bool) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "func_literal":
			inClosure = true
		case "identifier":
			if inClosure {
				names[f.text(n)] = true
			}
			return
		case "unary_expression":
			op := n.ChildByFieldName("operator")
			operand := n.ChildByFieldName("operand")
			if op != nil && f.text(op) == "&" && operand != nil {
				if id := rootIdentifier(operand); id != nil {
					names[f.text(id)] = true
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i), inClosure)
		}
	}
	walk(body, false)
	return names
}

// rootIdentifier returns the variable an addressable expression starts from,
// e.g. x for &x, &x[i] or &(x).
func rootIdentifier(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier":
			return n
		case "parenthesized_expression":
			n = n.NamedChild(0)
		case "index_expression", "selector_expression", "slice_expression":
			n = n.ChildByFieldName("operand")
		default:
			return nil
		}
	}
	return nil
}

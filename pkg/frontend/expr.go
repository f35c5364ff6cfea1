package frontend

import (
	"math"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/go-dataflow/pkg/constprop"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// value is a lowered expression with its static type. Untyped constants take
// their type from the context they are used in.
type value struct {
	exp     ir.Exp
	typ     ir.Type
	untyped bool
}

// defaultType is the type a variable declared from v receives.
func (v value) defaultType() ir.Type {
	if v.typ.Kind == "" {
		return typeAny
	}
	return v.typ
}

var binaryOps = map[string]ir.BinaryOp{
	"+":  ir.OpAdd,
	"-":  ir.OpSub,
	"*":  ir.OpMul,
	"/":  ir.OpDiv,
	"%":  ir.OpRem,
	"&":  ir.OpAnd,
	"|":  ir.OpOr,
	"^":  ir.OpXor,
	"==": ir.OpEq,
	"!=": ir.OpNe,
	"<":  ir.OpLt,
	"<=": ir.OpLe,
	">":  ir.OpGt,
	">=": ir.OpGe,
	"<<": ir.OpShl,
	">>": ir.OpShr,
}

var compoundOps = map[string]string{
	"+=":  "+",
	"-=":  "-",
	"*=":  "*",
	"/=":  "/",
	"%=":  "%",
	"&=":  "&",
	"|=":  "|",
	"^=":  "^",
	"<<=": "<<",
	">>=": ">>",
	"&^=": "&^",
}

// operand lowers n into a variable, introducing a temporary when n is not
// already one. Untyped constants take the hint type when it is primitive.
func (l *lowerer) operand(n *sitter.Node, hint ir.Type) *ir.Var {
	return l.materialize(l.expr(n), hint)
}

func (l *lowerer) materialize(v value, hint ir.Type) *ir.Var {
	if x, ok := v.exp.(*ir.Var); ok {
		return x
	}
	typ := v.defaultType()
	if v.untyped && hint.IsPrimitive() {
		typ = hint
	}
	t := l.b.NewTemp(typ)
	l.b.Assign(t, v.exp)
	return t
}

// constant materializes the integer c in a fresh temporary.
func (l *lowerer) constant(c int32, typ ir.Type) *ir.Var {
	if !typ.IsPrimitive() {
		typ = typeInt
	}
	t := l.b.NewTemp(typ)
	l.b.Assign(t, &ir.IntLiteral{Value: c})
	return t
}

func zeroValue(typ ir.Type) ir.Exp {
	switch typ.Kind {
	case ir.TypeByte, ir.TypeShort, ir.TypeInt, ir.TypeChar, ir.TypeBoolean:
		return &ir.IntLiteral{Value: 0}
	case ir.TypeLong, ir.TypeFloat, ir.TypeDouble:
		return &ir.OtherLiteral{Text: "0", Type: typ}
	}
	if typ.Name == "string" {
		return &ir.OtherLiteral{Text: `""`, Type: typ}
	}
	return &ir.OtherLiteral{Text: "nil", Type: typ}
}

func (l *lowerer) expr(n *sitter.Node) value {
	if n == nil {
		return value{exp: &ir.UnaryExp{Op: ir.OpOpaque}, typ: typeAny}
	}
	switch n.Type() {
	case "identifier":
		name := l.f.text(n)
		if v := l.lookup(name); v != nil {
			return value{exp: v, typ: v.Type}
		}
		return value{exp: &ir.FieldAccess{Field: name}, typ: typeAny}
	case "int_literal":
		return intLiteral(l.f.text(n))
	case "rune_literal":
		text := l.f.text(n)
		if r, err := strconv.Unquote(text); err == nil && len([]rune(r)) == 1 {
			return value{exp: &ir.IntLiteral{Value: int32([]rune(r)[0])}, typ: typeRune, untyped: true}
		}
		return value{exp: &ir.OtherLiteral{Text: text, Type: typeRune}, typ: typeRune, untyped: true}
	case "float_literal", "imaginary_literal":
		return value{exp: &ir.OtherLiteral{Text: l.f.text(n), Type: typeFloat}, typ: typeFloat, untyped: true}
	case "interpreted_string_literal", "raw_string_literal":
		return value{exp: &ir.OtherLiteral{Text: l.f.text(n), Type: typeString}, typ: typeString, untyped: true}
	case "true":
		return value{exp: &ir.IntLiteral{Value: 1}, typ: typeBool, untyped: true}
	case "false":
		return value{exp: &ir.IntLiteral{Value: 0}, typ: typeBool, untyped: true}
	case "nil":
		return value{exp: &ir.OtherLiteral{Text: "nil", Type: ir.Reference("nil")}, typ: ir.Reference("nil"), untyped: true}
	case "parenthesized_expression":
		return l.expr(n.NamedChild(0))
	case "binary_expression":
		return l.binary(n)
	case "unary_expression":
		return l.unary(n)
	case "call_expression":
		return l.call(n)
	case "selector_expression":
		operand := n.ChildByFieldName("operand")
		field := l.f.text(n.ChildByFieldName("field"))
		if operand != nil && operand.Type() == "identifier" && l.lookup(l.f.text(operand)) == nil {
			return value{exp: &ir.FieldAccess{Qualifier: l.f.text(operand), Field: field}, typ: typeAny}
		}
		base := l.operand(operand, typeAny)
		return value{exp: &ir.FieldAccess{Base: base, Field: field}, typ: typeAny}
	case "index_expression":
		base := l.operand(n.ChildByFieldName("operand"), typeAny)
		index := l.operand(n.ChildByFieldName("index"), typeInt)
		return value{exp: &ir.ArrayAccess{Base: base, Index: index}, typ: typeAny}
	case "slice_expression":
		args := []*ir.Var{l.operand(n.ChildByFieldName("operand"), typeAny)}
		for _, field := range []string{"start", "end", "capacity"} {
			if bound := n.ChildByFieldName(field); bound != nil {
				args = append(args, l.operand(bound, typeInt))
			}
		}
		return value{exp: &ir.InvokeExp{Callee: "slice", Args: args}, typ: typeAny}
	case "composite_literal":
		typ := ir.Reference(l.f.text(n.ChildByFieldName("type")))
		return value{exp: &ir.NewExp{Type: typ, Args: l.elements(n.ChildByFieldName("body"))}, typ: typ}
	case "literal_value":
		return value{exp: &ir.NewExp{Type: typeAny, Args: l.elements(n)}, typ: typeAny}
	case "func_literal":
		typ := ir.Reference("func")
		return value{exp: &ir.NewExp{Type: typ}, typ: typ}
	case "type_assertion_expression":
		x := l.operand(n.ChildByFieldName("operand"), typeAny)
		typ := goType(l.f.text(n.ChildByFieldName("type")))
		return value{exp: &ir.CastExp{Type: typ, X: x}, typ: typ}
	case "type_conversion_expression":
		typ := goType(l.f.text(n.ChildByFieldName("type")))
		return l.convert(typ, n.ChildByFieldName("operand"))
	}
	return value{exp: &ir.InvokeExp{Callee: "<" + n.Type() + ">", Args: l.mentioned(n)}, typ: typeAny}
}

// intLiteral parses a Go integer literal. Values outside the 32-bit range
// are kept symbolic.
func intLiteral(text string) value {
	i, err := strconv.ParseInt(text, 0, 64)
	if err != nil || i < math.MinInt32 || i > math.MaxInt32 {
		return value{exp: &ir.OtherLiteral{Text: text, Type: typeInt}, typ: typeInt, untyped: true}
	}
	return value{exp: &ir.IntLiteral{Value: int32(i)}, typ: typeInt, untyped: true}
}

// constInt evaluates n when it is an integer constant expression spelled
// with literals: 3, -3, 'a' or (3).
func (l *lowerer) constInt(n *sitter.Node) (int32, bool) {
	switch n.Type() {
	case "parenthesized_expression":
		return l.constInt(n.NamedChild(0))
	case "int_literal", "rune_literal":
		if lit, ok := l.expr(n).exp.(*ir.IntLiteral); ok {
			return lit.Value, true
		}
	case "unary_expression":
		if l.f.text(n.ChildByFieldName("operator")) == "-" {
			if v, ok := l.constInt(n.ChildByFieldName("operand")); ok && v != math.MinInt32 {
				return -v, true
			}
		}
	}
	return 0, false
}

// elements lowers the element values of a composite literal body.
func (l *lowerer) elements(body *sitter.Node) []*ir.Var {
	if body == nil {
		return nil
	}
	var args []*ir.Var
	for i := 0; i < int(body.NamedChildCount()); i++ {
		elem := body.NamedChild(i)
		if elem == nil || elem.Type() == "comment" {
			continue
		}
		if elem.Type() == "keyed_element" {
			elem = elem.NamedChild(int(elem.NamedChildCount()) - 1)
		}
		if elem != nil && elem.Type() == "literal_element" {
			elem = elem.NamedChild(0)
		}
		if elem != nil {
			args = append(args, l.operand(elem, typeAny))
		}
	}
	return args
}

func (l *lowerer) binary(n *sitter.Node) value {
	op := l.f.text(n.ChildByFieldName("operator"))
	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")

	if op == "&&" || op == "||" {
		return l.logical(n)
	}

	x, y, lv, rv := l.pair(left, right)

	if cmp, ok := binaryOps[op]; ok && cmp.Category() == ir.CategoryCondition {
		if constprop.CanHoldInt(x) && constprop.CanHoldInt(y) {
			return value{exp: &ir.BinaryExp{Op: cmp, X: x, Y: y}, typ: typeBool}
		}
		// Untracked operands read as UNDEF, so the result is set on each branch.
		return l.boolean(func(falseL *ir.Label) {
			l.b.If(&ir.BinaryExp{Op: cmp.Negate(), X: x, Y: y}, falseL)
		})
	}

	typ := lv.typ
	if lv.untyped && !rv.untyped {
		typ = rv.typ
	}
	if op == "<<" || op == ">>" {
		typ = lv.typ
	}
	v := l.binaryOp(op, x, y, typ, right)
	v.untyped = lv.untyped && rv.untyped
	return v
}

// pair lowers the operands of a binary expression left to right. An untyped
// left constant is materialized after the right operand so it can take the
// right operand's type.
func (l *lowerer) pair(left, right *sitter.Node) (x, y *ir.Var, lv, rv value) {
	lv = l.expr(left)
	if !lv.untyped {
		x = l.materialize(lv, typeAny)
	}
	rv = l.expr(right)
	if x == nil {
		x = l.materialize(lv, rv.typ)
	}
	y = l.materialize(rv, x.Type)
	return x, y, lv, rv
}

// binaryOp builds x op y for an arithmetic, bitwise or shift operator spelled
// as in Go source. Results the 32-bit lattice would not model exactly, such as
// sub-word arithmetic or shifts by a non-literal count, are wrapped in a
// conversion so they read as unknown. Arithmetic on a 64-bit int is checked
// so overflow past the int32 range reads as unknown.
func (l *lowerer) binaryOp(op string, x, y *ir.Var, typ ir.Type, count *sitter.Node) value {
	var exp *ir.BinaryExp
	if op == "&^" {
		ones := l.constant(-1, y.Type)
		mask := l.b.NewTemp(y.Type)
		l.b.Assign(mask, &ir.BinaryExp{Op: ir.OpXor, X: y, Y: ones})
		exp = &ir.BinaryExp{Op: ir.OpAnd, X: x, Y: mask}
	} else {
		bop, ok := binaryOps[op]
		if !ok {
			return value{exp: &ir.InvokeExp{Callee: op, Args: []*ir.Var{x, y}}, typ: typ}
		}
		exp = &ir.BinaryExp{Op: bop, X: x, Y: y}
	}
	exp.Checked = wideTypes[typ.Name]

	exact := !narrowTypes[typ.Name]
	if exp.Op.Category() == ir.CategoryShift {
		exact = exact && count != nil && l.smallShift(count)
	}
	if exact || !trackable(typ) {
		return value{exp: exp, typ: typ}
	}
	t := l.b.NewTemp(goType("int32"))
	l.b.Assign(t, exp)
	return value{exp: &ir.CastExp{Type: typ, X: t}, typ: typ}
}

// smallShift reports whether a shift count is a literal below 32.
func (l *lowerer) smallShift(count *sitter.Node) bool {
	v, ok := l.constInt(count)
	return ok && v >= 0 && v < 32
}

func trackable(typ ir.Type) bool {
	return constprop.CanHoldInt(&ir.Var{Type: typ})
}

// logical lowers && and || used as values into short-circuit control flow
// that sets a boolean temporary.
func (l *lowerer) logical(n *sitter.Node) value {
	return l.boolean(func(falseL *ir.Label) { l.branchFalse(n, falseL) })
}

// boolean materializes a condition as a temporary set to 1 on the path where
// jumpIfFalse falls through and to 0 on the path where it jumps.
func (l *lowerer) boolean(jumpIfFalse func(falseL *ir.Label)) value {
	result := l.b.NewTemp(typeBool)
	falseL, endL := l.b.NewLabel(), l.b.NewLabel()
	jumpIfFalse(falseL)
	l.b.Assign(result, &ir.IntLiteral{Value: 1})
	l.b.Goto(endL)
	l.b.Bind(falseL)
	l.b.Assign(result, &ir.IntLiteral{Value: 0})
	l.b.Bind(endL)
	return value{exp: result, typ: typeBool}
}

func (l *lowerer) unary(n *sitter.Node) value {
	op := l.f.text(n.ChildByFieldName("operator"))
	operandNode := n.ChildByFieldName("operand")
	switch op {
	case "+":
		return l.expr(operandNode)
	case "-":
		if c, ok := l.constInt(n); ok {
			return value{exp: &ir.IntLiteral{Value: c}, typ: typeInt, untyped: true}
		}
		v := l.expr(operandNode)
		x := l.materialize(v, typeInt)
		zero := l.constant(0, x.Type)
		out := l.binaryOp("-", zero, x, v.typ, nil)
		out.untyped = v.untyped
		return out
	case "^":
		v := l.expr(operandNode)
		x := l.materialize(v, typeInt)
		ones := l.constant(-1, x.Type)
		out := l.binaryOp("^", x, ones, v.typ, nil)
		out.untyped = v.untyped
		return out
	case "!":
		x := l.operand(operandNode, typeBool)
		zero := l.constant(0, typeBool)
		return value{exp: &ir.BinaryExp{Op: ir.OpEq, X: x, Y: zero}, typ: typeBool}
	case "&":
		if operandNode != nil && operandNode.Type() == "composite_literal" {
			v := l.expr(operandNode)
			typ := ir.Reference("*" + v.typ.String())
			if alloc, ok := v.exp.(*ir.NewExp); ok {
				alloc.Type = typ
			}
			return value{exp: v.exp, typ: typ}
		}
		return value{exp: &ir.InvokeExp{Callee: "&", Args: l.mentioned(operandNode)}, typ: typeAny}
	case "*", "<-":
		x := l.operand(operandNode, typeAny)
		return value{exp: &ir.InvokeExp{Callee: op, Args: []*ir.Var{x}}, typ: typeAny}
	}
	return value{exp: &ir.InvokeExp{Callee: op, Args: l.mentioned(operandNode)}, typ: typeAny}
}

var typeNodes = map[string]bool{
	"array_type":            true,
	"slice_type":            true,
	"map_type":              true,
	"pointer_type":          true,
	"channel_type":          true,
	"function_type":         true,
	"interface_type":        true,
	"struct_type":           true,
	"parenthesized_type":    true,
	"generic_type":          true,
	"qualified_type":        true,
	"type_identifier":       true,
	"implicit_length_array": true,
}

func (l *lowerer) call(n *sitter.Node) value {
	fn := n.ChildByFieldName("function")
	var argNodes []*sitter.Node
	if list := n.ChildByFieldName("arguments"); list != nil {
		for i := 0; i < int(list.NamedChildCount()); i++ {
			if arg := list.NamedChild(i); arg != nil && arg.Type() != "comment" {
				argNodes = append(argNodes, arg)
			}
		}
	}
	if fn == nil {
		return value{exp: &ir.InvokeExp{Callee: "<call>", Args: l.mentioned(n)}, typ: typeAny}
	}

	if typeNodes[fn.Type()] && len(argNodes) == 1 {
		return l.convert(goType(l.f.text(fn)), argNodes[0])
	}

	if fn.Type() == "identifier" && l.lookup(l.f.text(fn)) == nil {
		name := l.f.text(fn)
		switch {
		case isPrimitiveName(name) && len(argNodes) == 1:
			return l.convert(goType(name), argNodes[0])
		case name == "new" && len(argNodes) >= 1:
			typ := ir.Reference("*" + l.f.text(argNodes[0]))
			return value{exp: &ir.NewExp{Type: typ}, typ: typ}
		case name == "make" && len(argNodes) >= 1:
			typ := ir.Reference(l.f.text(argNodes[0]))
			return value{exp: &ir.NewExp{Type: typ, Args: l.operands(argNodes[1:], typeInt)}, typ: typ}
		case name == "len" || name == "cap":
			return value{exp: &ir.InvokeExp{Callee: name, Args: l.operands(argNodes, typeAny)}, typ: typeInt}
		}
	}

	var args []*ir.Var
	if fn.Type() == "selector_expression" {
		recv := fn.ChildByFieldName("operand")
		if recv != nil && !(recv.Type() == "identifier" && l.lookup(l.f.text(recv)) == nil) {
			args = append(args, l.operand(recv, typeAny))
		}
	} else if fn.Type() != "identifier" {
		args = append(args, l.mentioned(fn)...)
	}
	args = append(args, l.operands(argNodes, typeAny)...)
	callee := l.f.text(fn)
	if fn.Type() == "func_literal" {
		callee = "func literal"
	}
	return value{exp: &ir.InvokeExp{Callee: callee, Args: args}, typ: typeAny}
}

func (l *lowerer) operands(nodes []*sitter.Node, hint ir.Type) []*ir.Var {
	out := make([]*ir.Var, 0, len(nodes))
	for _, n := range nodes {
		if typeNodes[n.Type()] {
			continue
		}
		out = append(out, l.operand(n, hint))
	}
	return out
}

// convert lowers the conversion T(x). Constants converted to a tracked type
// stay literal.
func (l *lowerer) convert(typ ir.Type, arg *sitter.Node) value {
	v := l.expr(arg)
	if lit, ok := v.exp.(*ir.IntLiteral); ok && v.untyped && trackable(typ) && !narrowTypes[typ.Name] {
		return value{exp: lit, typ: typ}
	}
	x := l.materialize(v, typ)
	return value{exp: &ir.CastExp{Type: typ, X: x}, typ: typ}
}

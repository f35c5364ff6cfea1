package ir

import (
	"fmt"
	"strings"
)

// Exp is a right-hand-side expression. The set of implementations is closed:
// *Var, *IntLiteral, *OtherLiteral, *BinaryExp, *UnaryExp, *InvokeExp,
// *NewExp, *CastExp, *FieldAccess and *ArrayAccess.
type Exp interface {
	fmt.Stringer
	// Uses returns the variables read by the expression.
	Uses() []*Var
	exp()
}

func (*Var) exp()          {}
func (*IntLiteral) exp()   {}
func (*OtherLiteral) exp() {}
func (*BinaryExp) exp()    {}
func (*UnaryExp) exp()     {}
func (*InvokeExp) exp()    {}
func (*NewExp) exp()       {}
func (*CastExp) exp()      {}
func (*FieldAccess) exp()  {}
func (*ArrayAccess) exp()  {}

// Uses implements Exp.
func (v *Var) Uses() []*Var { return []*Var{v} }

// IntLiteral is an integer or boolean constant, already truncated to 32 bits.
type IntLiteral struct {
	Value int32
}

func (l *IntLiteral) Uses() []*Var { return nil }
func (l *IntLiteral) String() string {
	return fmt.Sprintf("%d", l.Value)
}

// OtherLiteral is a constant the integer lattice does not model (strings,
// floats, nil).
type OtherLiteral struct {
	Text string
	Type Type
}

func (l *OtherLiteral) Uses() []*Var   { return nil }
func (l *OtherLiteral) String() string { return l.Text }

// OpCategory groups binary operators the way the evaluator handles them.
type OpCategory int

const (
	CategoryUnknown OpCategory = iota
	CategoryArithmetic
	CategoryBitwise
	CategoryCondition
	CategoryShift
)

// BinaryOp is a binary operator.
type BinaryOp string

const (
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpRem  BinaryOp = "%"
	OpAnd  BinaryOp = "&"
	OpOr   BinaryOp = "|"
	OpXor  BinaryOp = "^"
	OpEq   BinaryOp = "=="
	OpNe   BinaryOp = "!="
	OpLt   BinaryOp = "<"
	OpLe   BinaryOp = "<="
	OpGt   BinaryOp = ">"
	OpGe   BinaryOp = ">="
	OpShl  BinaryOp = "<<"
	OpShr  BinaryOp = ">>"
	OpUshr BinaryOp = ">>>"
)

// Category returns the operator family, or CategoryUnknown.
func (op BinaryOp) Category() OpCategory {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpRem:
		return CategoryArithmetic
	case OpAnd, OpOr, OpXor:
		return CategoryBitwise
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return CategoryCondition
	case OpShl, OpShr, OpUshr:
		return CategoryShift
	default:
		return CategoryUnknown
	}
}

// Negate returns the complementary condition operator.
func (op BinaryOp) Negate() BinaryOp {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpGe:
		return OpLt
	case OpGt:
		return OpLe
	case OpLe:
		return OpGt
	}
	return op
}

// BinaryExp applies Op to two variables.
type BinaryExp struct {
	Op BinaryOp
	X  *Var
	Y  *Var

	// Checked marks arithmetic and shifts whose source type is wider than 32
	// bits. A result outside the int32 range is unknown instead of wrapping.
	Checked bool
}

func (e *BinaryExp) Uses() []*Var { return []*Var{e.X, e.Y} }
func (e *BinaryExp) String() string {
	return fmt.Sprintf("%s %s %s", e.X, e.Op, e.Y)
}

// UnaryOp is a unary operator.
type UnaryOp string

const (
	OpNeg    UnaryOp = "-"
	OpNot    UnaryOp = "!"
	OpCompl  UnaryOp = "^"
	OpOpaque UnaryOp = "?" // value the lowering could not express, e.g. a && b
)

// UnaryExp applies Op to one variable.
type UnaryExp struct {
	Op UnaryOp
	X  *Var
}

func (e *UnaryExp) Uses() []*Var {
	if e.X == nil {
		return nil
	}
	return []*Var{e.X}
}

func (e *UnaryExp) String() string {
	if e.X == nil {
		return string(e.Op)
	}
	return string(e.Op) + e.X.String()
}

// InvokeExp is a call. Callee is the source spelling of the called function.
type InvokeExp struct {
	Callee string
	Args   []*Var
}

func (e *InvokeExp) Uses() []*Var { return e.Args }
func (e *InvokeExp) String() string {
	return fmt.Sprintf("%s(%s)", e.Callee, joinVars(e.Args))
}

// NewExp allocates an object, slice, map or channel.
type NewExp struct {
	Type Type
	Args []*Var
}

func (e *NewExp) Uses() []*Var { return e.Args }
func (e *NewExp) String() string {
	return fmt.Sprintf("new %s(%s)", e.Type, joinVars(e.Args))
}

// CastExp converts X to Type.
type CastExp struct {
	Type Type
	X    *Var
}

func (e *CastExp) Uses() []*Var { return []*Var{e.X} }
func (e *CastExp) String() string {
	return fmt.Sprintf("(%s) %s", e.Type, e.X)
}

// FieldAccess reads Base.Field. Base is nil for package-level names, which
// carry their package in Qualifier when it is spelled out.
type FieldAccess struct {
	Base      *Var
	Qualifier string
	Field     string
}

func (e *FieldAccess) Uses() []*Var {
	if e.Base == nil {
		return nil
	}
	return []*Var{e.Base}
}

func (e *FieldAccess) String() string {
	if e.Base == nil {
		if e.Qualifier == "" {
			return e.Field
		}
		return e.Qualifier + "." + e.Field
	}
	return e.Base.String() + "." + e.Field
}

// ArrayAccess reads Base[Index].
type ArrayAccess struct {
	Base  *Var
	Index *Var
}

func (e *ArrayAccess) Uses() []*Var { return []*Var{e.Base, e.Index} }
func (e *ArrayAccess) String() string {
	return fmt.Sprintf("%s[%s]", e.Base, e.Index)
}

func joinVars(vars []*Var) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}

package constprop

import (
	"math"

	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// CanHoldInt reports whether v is tracked by the analysis: its type is one of
// the primitive types that fit in a 32-bit int and it does not escape.
func CanHoldInt(v *ir.Var) bool {
	if v == nil || v.Escapes {
		return false
	}
	switch v.Type.Kind {
	case ir.TypeByte, ir.TypeShort, ir.TypeInt, ir.TypeChar, ir.TypeBoolean:
		return true
	}
	return false
}

// operand reads v from in. Variables of untracked types are never stored, so
// they read as UNDEF; an escaping variable can change outside the IR and reads
// as NAC.
func operand(v *ir.Var, in *Fact) Value {
	if v.Escapes {
		return NAC()
	}
	return in.Get(v)
}

// Evaluate computes the value of exp under in with 32-bit two's complement
// semantics, except that a Checked arithmetic or shift result outside the
// int32 range is NAC. Division or remainder by a constant zero is UNDEF,
// including when the dividend is NAC. It panics with an invariant violation on an operator
// outside the arithmetic, bitwise, condition and shift categories.
func Evaluate(exp *ir.BinaryExp, in *Fact) Value {
	op := exp.Op
	if op.Category() == ir.CategoryUnknown {
		dataflow.Invariant("unknown binary operator %q in %s", op, exp)
	}
	v1, v2 := operand(exp.X, in), operand(exp.Y, in)
	checkKind(v1)
	checkKind(v2)

	if v1.IsNAC() || v2.IsNAC() {
		if isDivision(op) && v2.IsConstant() && v2.constant == 0 {
			return Undef()
		}
		return NAC()
	}
	if !v1.IsConstant() || !v2.IsConstant() {
		return Undef()
	}

	x, y := v1.constant, v2.constant
	switch op.Category() {
	case ir.CategoryArithmetic:
		if exp.Checked {
			return checkedArithmetic(op, x, y)
		}
		return arithmetic(op, x, y)
	case ir.CategoryBitwise:
		return bitwise(op, x, y)
	case ir.CategoryCondition:
		return condition(op, x, y)
	default:
		if exp.Checked {
			return checkedShift(op, x, y)
		}
		return shift(op, x, y)
	}
}

func isDivision(op ir.BinaryOp) bool {
	return op == ir.OpDiv || op == ir.OpRem
}

// arithmetic relies on Go's int32 wraparound, which also yields
// MinInt32 / -1 == MinInt32 and MinInt32 % -1 == 0.
func arithmetic(op ir.BinaryOp, x, y int32) Value {
	switch op {
	case ir.OpAdd:
		return MakeConstant(x + y)
	case ir.OpSub:
		return MakeConstant(x - y)
	case ir.OpMul:
		return MakeConstant(x * y)
	case ir.OpDiv:
		if y == 0 {
			return Undef()
		}
		return MakeConstant(x / y)
	case ir.OpRem:
		if y == 0 {
			return Undef()
		}
		return MakeConstant(x % y)
	}
	dataflow.Invariant("operator %q is not arithmetic", op)
	return NAC()
}

// checkedArithmetic evaluates in 64 bits and gives up on results that do not
// fit in an int32.
func checkedArithmetic(op ir.BinaryOp, x, y int32) Value {
	a, b := int64(x), int64(y)
	switch op {
	case ir.OpAdd:
		return fit(a + b)
	case ir.OpSub:
		return fit(a - b)
	case ir.OpMul:
		return fit(a * b)
	case ir.OpDiv:
		if b == 0 {
			return Undef()
		}
		return fit(a / b)
	case ir.OpRem:
		if b == 0 {
			return Undef()
		}
		return fit(a % b)
	}
	dataflow.Invariant("operator %q is not arithmetic", op)
	return NAC()
}

// checkedShift only models counts in [0, 32); a 64-bit shift by a larger
// count has no int32 counterpart.
func checkedShift(op ir.BinaryOp, x, y int32) Value {
	if y < 0 || y >= 32 {
		return NAC()
	}
	n := uint(y)
	switch op {
	case ir.OpShl:
		return fit(int64(x) << n)
	case ir.OpShr:
		return fit(int64(x) >> n)
	case ir.OpUshr:
		if x < 0 {
			return NAC()
		}
		return fit(int64(x) >> n)
	}
	dataflow.Invariant("operator %q is not a shift", op)
	return NAC()
}

func fit(r int64) Value {
	if r < math.MinInt32 || r > math.MaxInt32 {
		return NAC()
	}
	return MakeConstant(int32(r))
}

func bitwise(op ir.BinaryOp, x, y int32) Value {
	switch op {
	case ir.OpAnd:
		return MakeConstant(x & y)
	case ir.OpOr:
		return MakeConstant(x | y)
	case ir.OpXor:
		return MakeConstant(x ^ y)
	}
	dataflow.Invariant("operator %q is not bitwise", op)
	return NAC()
}

func condition(op ir.BinaryOp, x, y int32) Value {
	var holds bool
	switch op {
	case ir.OpEq:
		holds = x == y
	case ir.OpNe:
		holds = x != y
	case ir.OpLt:
		holds = x < y
	case ir.OpLe:
		holds = x <= y
	case ir.OpGt:
		holds = x > y
	case ir.OpGe:
		holds = x >= y
	default:
		dataflow.Invariant("operator %q is not a condition", op)
	}
	if holds {
		return MakeConstant(1)
	}
	return MakeConstant(0)
}

func shift(op ir.BinaryOp, x, y int32) Value {
	n := uint(y & 31)
	switch op {
	case ir.OpShl:
		return MakeConstant(x << n)
	case ir.OpShr:
		return MakeConstant(x >> n)
	case ir.OpUshr:
		return MakeConstant(int32(uint32(x) >> n))
	}
	dataflow.Invariant("operator %q is not a shift", op)
	return NAC()
}

package constprop

import (
	"errors"
	"math"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-dataflow/pkg/cfg"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

var (
	intType  = ir.Primitive(ir.TypeInt)
	longType = ir.Primitive(ir.TypeLong)
)

func latticeSamples() []Value {
	return []Value{Undef(), NAC(), MakeConstant(0), MakeConstant(1), MakeConstant(-7), MakeConstant(math.MaxInt32)}
}

func TestMeetValueTable(t *testing.T) {
	tests := []struct {
		v1, v2 Value
		want   Value
	}{
		{Undef(), Undef(), Undef()},
		{Undef(), MakeConstant(3), MakeConstant(3)},
		{MakeConstant(3), Undef(), MakeConstant(3)},
		{MakeConstant(3), MakeConstant(3), MakeConstant(3)},
		{MakeConstant(3), MakeConstant(4), NAC()},
		{NAC(), Undef(), NAC()},
		{MakeConstant(3), NAC(), NAC()},
		{NAC(), NAC(), NAC()},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MeetValue(tt.v1, tt.v2), "%s meet %s", tt.v1, tt.v2)
	}
}

func TestMeetValueLaws(t *testing.T) {
	values := latticeSamples()
	for _, a := range values {
		assert.Equal(t, a, MeetValue(a, a), "idempotent on %s", a)
		for _, b := range values {
			assert.Equal(t, MeetValue(a, b), MeetValue(b, a), "commutative on %s, %s", a, b)
			for _, c := range values {
				assert.Equal(t, MeetValue(MeetValue(a, b), c), MeetValue(a, MeetValue(b, c)),
					"associative on %s, %s, %s", a, b, c)
			}
		}
	}
}

func TestValueAccessors(t *testing.T) {
	c := MakeConstant(-4)
	assert.True(t, c.IsConstant())
	assert.Equal(t, int32(-4), c.Constant())
	assert.Equal(t, "-4", c.String())
	assert.Equal(t, "UNDEF", Undef().String())
	assert.Equal(t, "NAC", NAC().String())

	err := dataflow.Guard(func() { NAC().Constant() })
	var inv *dataflow.InvariantError
	assert.True(t, errors.As(err, &inv))

	bad := Value{kind: 9}
	assert.Error(t, dataflow.Guard(func() { MeetValue(bad, Undef()) }))
}

func TestCanHoldInt(t *testing.T) {
	for _, kind := range []ir.TypeKind{ir.TypeByte, ir.TypeShort, ir.TypeInt, ir.TypeChar, ir.TypeBoolean} {
		assert.True(t, CanHoldInt(&ir.Var{Type: ir.Primitive(kind)}), string(kind))
	}
	for _, kind := range []ir.TypeKind{ir.TypeLong, ir.TypeFloat, ir.TypeDouble} {
		assert.False(t, CanHoldInt(&ir.Var{Type: ir.Primitive(kind)}), string(kind))
	}
	assert.False(t, CanHoldInt(&ir.Var{Type: ir.Reference("string")}))
	assert.False(t, CanHoldInt(&ir.Var{Type: intType, Escapes: true}))
	assert.False(t, CanHoldInt(nil))
}

// env returns a fact binding x and y, plus the two variables.
func env(x, y Value) (*Fact, *ir.Var, *ir.Var) {
	vx := &ir.Var{Name: "x", Type: intType, Index: 0}
	vy := &ir.Var{Name: "y", Type: intType, Index: 1}
	f := NewFact()
	f.Update(vx, x)
	f.Update(vy, y)
	return f, vx, vy
}

func eval(op ir.BinaryOp, x, y Value) Value {
	f, vx, vy := env(x, y)
	return Evaluate(&ir.BinaryExp{Op: op, X: vx, Y: vy}, f)
}

func TestEvaluate(t *testing.T) {
	c := MakeConstant
	tests := []struct {
		name string
		op   ir.BinaryOp
		x, y Value
		want Value
	}{
		{"add", ir.OpAdd, c(2), c(3), c(5)},
		{"add overflows", ir.OpAdd, c(math.MaxInt32), c(1), c(math.MinInt32)},
		{"sub", ir.OpSub, c(2), c(3), c(-1)},
		{"mul overflows", ir.OpMul, c(65536), c(65536), c(0)},
		{"div truncates", ir.OpDiv, c(-7), c(2), c(-3)},
		{"rem keeps dividend sign", ir.OpRem, c(-7), c(2), c(-1)},
		{"min int div minus one", ir.OpDiv, c(math.MinInt32), c(-1), c(math.MinInt32)},
		{"min int rem minus one", ir.OpRem, c(math.MinInt32), c(-1), c(0)},
		{"div by zero", ir.OpDiv, c(7), c(0), Undef()},
		{"rem by zero", ir.OpRem, c(7), c(0), Undef()},
		{"NAC div by zero", ir.OpDiv, NAC(), c(0), Undef()},
		{"NAC rem by zero", ir.OpRem, NAC(), c(0), Undef()},
		{"NAC div", ir.OpDiv, NAC(), c(2), NAC()},
		{"div NAC", ir.OpDiv, c(0), NAC(), NAC()},
		{"and", ir.OpAnd, c(6), c(3), c(2)},
		{"or", ir.OpOr, c(6), c(3), c(7)},
		{"xor", ir.OpXor, c(6), c(3), c(5)},
		{"eq", ir.OpEq, c(1), c(1), c(1)},
		{"ne", ir.OpNe, c(1), c(1), c(0)},
		{"lt", ir.OpLt, c(-1), c(0), c(1)},
		{"le", ir.OpLe, c(1), c(0), c(0)},
		{"gt", ir.OpGt, c(1), c(0), c(1)},
		{"ge", ir.OpGe, c(0), c(0), c(1)},
		{"shl", ir.OpShl, c(1), c(4), c(16)},
		{"shl masks count", ir.OpShl, c(1), c(33), c(2)},
		{"shr sign extends", ir.OpShr, c(-8), c(1), c(-4)},
		{"ushr zero extends", ir.OpUshr, c(-1), c(28), c(15)},
		{"negative count masks", ir.OpShl, c(1), c(-1), c(math.MinInt32)},
		{"NAC operand", ir.OpAdd, NAC(), c(1), NAC()},
		{"NAC and UNDEF", ir.OpAdd, Undef(), NAC(), NAC()},
		{"UNDEF operand", ir.OpAdd, Undef(), c(1), Undef()},
		{"both UNDEF", ir.OpMul, Undef(), Undef(), Undef()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(tt.op, tt.x, tt.y))
		})
	}
}

func TestEvaluateUntrackedOperands(t *testing.T) {
	f, vx, _ := env(MakeConstant(1), Undef())
	long := &ir.Var{Name: "l", Type: longType, Index: 2}
	ref := &ir.Var{Name: "s", Type: ir.Reference("string"), Index: 3}
	escaping := &ir.Var{Name: "e", Type: intType, Index: 4, Escapes: true}
	f.values[escaping] = MakeConstant(5)

	assert.Equal(t, Undef(), Evaluate(&ir.BinaryExp{Op: ir.OpAdd, X: vx, Y: long}, f))
	assert.Equal(t, Undef(), Evaluate(&ir.BinaryExp{Op: ir.OpLt, X: long, Y: long}, f))
	assert.Equal(t, Undef(), Evaluate(&ir.BinaryExp{Op: ir.OpEq, X: ref, Y: ref}, f))
	assert.Equal(t, NAC(), Evaluate(&ir.BinaryExp{Op: ir.OpAdd, X: escaping, Y: vx}, f))
	assert.Equal(t, NAC(), Evaluate(&ir.BinaryExp{Op: ir.OpLt, X: long, Y: escaping}, f))

	// An UNDEF result meets a constant from another path as that constant.
	b := &ir.Var{Name: "b", Type: ir.Primitive(ir.TypeBoolean), Index: 5}
	target := NewFact()
	target.Update(b, MakeConstant(1))
	src := NewFact()
	src.Update(b, Evaluate(&ir.BinaryExp{Op: ir.OpLt, X: vx, Y: long}, f))
	New().MeetInto(src, target)
	assert.Equal(t, MakeConstant(1), target.Get(b))
}

func TestEvaluateChecked(t *testing.T) {
	c := MakeConstant
	tests := []struct {
		name string
		op   ir.BinaryOp
		x, y Value
		want Value
	}{
		{"add", ir.OpAdd, c(2), c(3), c(5)},
		{"add overflows", ir.OpAdd, c(math.MaxInt32), c(1), NAC()},
		{"sub overflows", ir.OpSub, c(math.MinInt32), c(1), NAC()},
		{"mul overflows", ir.OpMul, c(65536), c(65536), NAC()},
		{"mul in range", ir.OpMul, c(-46340), c(46340), c(-2147395600)},
		{"min int div minus one", ir.OpDiv, c(math.MinInt32), c(-1), NAC()},
		{"rem keeps dividend sign", ir.OpRem, c(-7), c(2), c(-1)},
		{"div by zero", ir.OpDiv, c(7), c(0), Undef()},
		{"NAC div by zero", ir.OpDiv, NAC(), c(0), Undef()},
		{"shl", ir.OpShl, c(1), c(4), c(16)},
		{"shl overflows", ir.OpShl, c(1), c(31), NAC()},
		{"shl wide count", ir.OpShl, c(0), c(40), NAC()},
		{"shl negative count", ir.OpShl, c(1), c(-1), NAC()},
		{"shr", ir.OpShr, c(-8), c(1), c(-4)},
		{"ushr negative", ir.OpUshr, c(-1), c(28), NAC()},
		{"bitwise", ir.OpAnd, c(6), c(3), c(2)},
		{"condition", ir.OpLt, c(math.MaxInt32), c(0), c(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, vx, vy := env(tt.x, tt.y)
			assert.Equal(t, tt.want, Evaluate(&ir.BinaryExp{Op: tt.op, X: vx, Y: vy, Checked: true}, f))
		})
	}
}

func TestEvaluateUnknownOperator(t *testing.T) {
	err := dataflow.Guard(func() { eval("&&", MakeConstant(1), MakeConstant(1)) })
	var inv *dataflow.InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Contains(t, inv.Msg, "unknown binary operator")
}

func TestEvaluateMatchesInt32Arithmetic(t *testing.T) {
	check := func(x, y int32) bool {
		c := MakeConstant
		ok := eval(ir.OpAdd, c(x), c(y)) == c(int32(int64(x)+int64(y))) &&
			eval(ir.OpSub, c(x), c(y)) == c(int32(int64(x)-int64(y))) &&
			eval(ir.OpMul, c(x), c(y)) == c(int32(int64(x)*int64(y))) &&
			eval(ir.OpUshr, c(x), c(y)) == c(int32(uint32(x)>>(uint32(y)&31)))
		if y != 0 {
			ok = ok && eval(ir.OpDiv, c(x), c(y)) == c(x/y) && eval(ir.OpRem, c(x), c(y)) == c(x%y)
		}
		return ok
	}
	if err := quick.Check(check, nil); err != nil {
		t.Error(err)
	}
}

func TestFact(t *testing.T) {
	f, x, y := env(MakeConstant(1), NAC())
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, "{x=1, y=NAC}", f.String())
	assert.Equal(t, []*ir.Var{x, y}, f.Keys())

	assert.False(t, f.Update(x, MakeConstant(1)))
	assert.True(t, f.Update(x, MakeConstant(2)))

	c := f.Copy()
	assert.True(t, c.Equal(f))
	assert.True(t, c.Update(x, Undef()), "storing UNDEF removes the entry")
	assert.Equal(t, 1, c.Len())
	assert.False(t, c.Equal(f))
	assert.Equal(t, MakeConstant(2), f.Get(x), "copies are independent")

	c.Remove(y)
	assert.True(t, c.Equal(NewFact()))
	f.Clear()
	assert.Equal(t, 0, f.Len())

	var nilFact *Fact
	assert.Equal(t, Undef(), nilFact.Get(x))
	assert.Empty(t, nilFact.Keys())
}

func TestMeetInto(t *testing.T) {
	a := New()
	x := &ir.Var{Name: "x", Type: intType, Index: 0}
	y := &ir.Var{Name: "y", Type: intType, Index: 1}
	z := &ir.Var{Name: "z", Type: intType, Index: 2}

	src := NewFact()
	src.Update(x, MakeConstant(1))
	src.Update(y, MakeConstant(2))
	target := NewFact()
	target.Update(y, MakeConstant(3))
	target.Update(z, MakeConstant(4))

	a.MeetInto(src, target)
	assert.Equal(t, "{x=1, y=NAC, z=4}", target.String())
	assert.Equal(t, "{x=1, y=2}", src.String(), "source is not modified")

	again := target.Copy()
	a.MeetInto(src, again)
	assert.True(t, again.Equal(target), "merging the same source twice changes nothing")
}

// values flattens a fact for comparison, leaving out temporaries.
func values(f *Fact) map[string]string {
	out := make(map[string]string)
	f.ForEach(func(v *ir.Var, val Value) {
		if !v.Temp {
			out[v.Name] = val.String()
		}
	})
	return out
}

// branches builds:
//
//	0: %t0 = 0
//	1: if (p == %t0) goto 4
//	2: a = 1
//	3: goto 6
//	4: a = 1
//	5: b = p
//	6: c = a + %t0
//	7: return c
func branches(t *testing.T) *ir.IR {
	t.Helper()
	b := ir.NewBuilder("branches", "")
	p := b.NewParam("p", intType)
	va := b.NewVar("a", intType)
	vb := b.NewVar("b", intType)
	vc := b.NewVar("c", intType)
	zero := b.NewTemp(intType)

	other, join := b.NewLabel(), b.NewLabel()
	b.Assign(zero, &ir.IntLiteral{Value: 0})
	b.If(&ir.BinaryExp{Op: ir.OpEq, X: p, Y: zero}, other)
	b.Assign(va, &ir.IntLiteral{Value: 1})
	b.Goto(join)
	b.Bind(other)
	b.Assign(va, &ir.IntLiteral{Value: 1})
	b.Assign(vb, p)
	b.Bind(join)
	b.Assign(vc, &ir.BinaryExp{Op: ir.OpAdd, X: va, Y: zero})
	b.Return(vc)

	fn, err := b.Build()
	require.NoError(t, err)
	return fn
}

func TestSolveBranches(t *testing.T) {
	fn := branches(t)
	g := cfg.Build(fn)
	r, err := Solve(g)
	require.NoError(t, err)

	want := map[string]string{"p": "NAC", "a": "1", "b": "NAC", "c": "1"}
	if diff := cmp.Diff(want, values(r.InFact(g.Exit()))); diff != "" {
		t.Errorf("exit fact mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]string{"p": "NAC"}, values(r.OutFact(g.Entry())))
	assert.Equal(t, map[string]string{"p": "NAC", "a": "1"}, values(r.OutFact(fn.Stmts[2])))
}

// loop builds a counting loop over i with an unrelated constant k.
func loop(t *testing.T) *ir.IR {
	t.Helper()
	b := ir.NewBuilder("loop", "")
	n := b.NewParam("n", intType)
	i := b.NewVar("i", intType)
	k := b.NewVar("k", intType)
	one := b.NewTemp(intType)

	head, end := b.NewLabel(), b.NewLabel()
	b.Assign(i, &ir.IntLiteral{Value: 0})
	b.Assign(k, &ir.IntLiteral{Value: 5})
	b.Assign(one, &ir.IntLiteral{Value: 1})
	b.Bind(head)
	b.If(&ir.BinaryExp{Op: ir.OpGe, X: i, Y: n}, end)
	b.Assign(i, &ir.BinaryExp{Op: ir.OpAdd, X: i, Y: one})
	b.Goto(head)
	b.Bind(end)
	b.Return(i)
	fn, err := b.Build()
	require.NoError(t, err)
	return fn
}

func TestSolveLoopReachesNAC(t *testing.T) {
	g := cfg.Build(loop(t))
	r, err := Solve(g)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"n": "NAC", "i": "NAC", "k": "5"}, values(r.InFact(g.Exit())))
}

// descends reports whether a lattice value may move from prev to next: a
// value only ever rises from UNDEF or falls to NAC.
func descends(prev, next Value) bool {
	return prev == next || prev.IsUndef() || next.IsNAC()
}

func TestSolveIsMonotoneAndStable(t *testing.T) {
	for name, build := range map[string]func(*testing.T) *ir.IR{"branches": branches, "loop": loop} {
		t.Run(name, func(t *testing.T) {
			g := cfg.Build(build(t))
			a := New()

			seen := map[ir.Stmt]map[*ir.Var]Value{}
			record := func(key ir.Stmt, f *Fact) {
				prev := seen[key]
				next := make(map[*ir.Var]Value, f.Len())
				f.ForEach(func(v *ir.Var, val Value) { next[v] = val })
				for v, was := range prev {
					assert.True(t, descends(was, f.Get(v)), "%s: %s moved from %s to %s", key, v, was, f.Get(v))
				}
				seen[key] = next
			}
			s := dataflow.NewSolver[ir.Stmt, *Fact](a)
			s.Observer = func(node ir.Stmt, in, out *Fact, _ bool) {
				record(node, out)
			}
			r, err := s.Solve(g)
			require.NoError(t, err)

			for _, n := range g.Nodes() {
				if g.IsEntry(n) {
					continue
				}
				in := r.InFact(n).Copy()
				for _, p := range g.PredsOf(n) {
					a.MeetInto(r.OutFact(p), in)
				}
				assert.True(t, in.Equal(r.InFact(n)), "%s: in-fact absorbs every predecessor", n)
				assert.False(t, a.TransferNode(n, r.InFact(n), r.OutFact(n).Copy()), "%s: transfer is stable", n)

				again := r.InFact(n).Copy()
				for _, p := range g.PredsOf(n) {
					a.MeetInto(r.OutFact(p), again)
					a.MeetInto(r.OutFact(p), again)
				}
				assert.True(t, again.Equal(in), "%s: meet is idempotent", n)
			}
		})
	}
}

func TestTransferNode(t *testing.T) {
	a := New()
	x := &ir.Var{Name: "x", Type: intType, Index: 0}
	l := &ir.Var{Name: "l", Type: longType, Index: 1}
	s := &ir.Var{Name: "s", Type: ir.Reference("string"), Index: 2}

	in := NewFact()
	in.Update(x, MakeConstant(4))

	tests := []struct {
		name string
		stmt ir.Stmt
		want string
	}{
		{"var copy", assign(x, x), "{x=4}"},
		{"literal", assign(x, &ir.IntLiteral{Value: 9}), "{x=9}"},
		{"call", assign(x, &ir.InvokeExp{Callee: "f"}), "{x=NAC}"},
		{"new", assign(x, &ir.NewExp{Type: ir.Reference("T")}), "{x=NAC}"},
		{"cast", assign(x, &ir.CastExp{Type: intType, X: x}), "{x=NAC}"},
		{"field", assign(x, &ir.FieldAccess{Base: s, Field: "n"}), "{x=NAC}"},
		{"index", assign(x, &ir.ArrayAccess{Base: s, Index: x}), "{x=NAC}"},
		{"unary", assign(x, &ir.UnaryExp{Op: ir.OpNeg, X: x}), "{x=NAC}"},
		{"other literal", assign(x, &ir.OtherLiteral{Text: "1.5"}), "{x=NAC}"},
		{"untracked def", assign(l, &ir.IntLiteral{Value: 1}), "{x=4}"},
		{"non assignment", ir.NewNop(0, ""), "{x=4}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewFact()
			changed := a.TransferNode(tt.stmt, in, out)
			assert.Equal(t, tt.want, out.String())
			assert.True(t, changed)
			assert.False(t, a.TransferNode(tt.stmt, in, out), "second transfer is stable")
			assert.Equal(t, "{x=4}", in.String(), "in-fact is not modified")
		})
	}
}

type unknownExp struct{ ir.IntLiteral }

func TestTransferUnknownRValue(t *testing.T) {
	err := dataflow.Guard(func() {
		rvalue(&unknownExp{}, NewFact())
	})
	assert.Error(t, err)
}

func assign(lhs *ir.Var, rhs ir.Exp) ir.Stmt {
	b := ir.NewBuilder("t", "")
	return b.Assign(lhs, rhs)
}

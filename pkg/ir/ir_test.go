package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderResolvesLabels(t *testing.T) {
	b := NewBuilder("f", "f.go")
	x := b.NewParam("x", Primitive(TypeInt))
	zero := b.NewTemp(Primitive(TypeInt))

	skip := b.NewLabel()
	b.SetPos(Position{Line: 2, Column: 2})
	b.Assign(zero, &IntLiteral{Value: 0})
	b.If(&BinaryExp{Op: OpLe, X: x, Y: zero}, skip)
	b.Assign(x, &IntLiteral{Value: 1})
	b.Bind(skip)
	b.Return(x)

	fn, err := b.Build()
	require.NoError(t, err)
	require.Len(t, fn.Stmts, 4)

	cond, ok := fn.Stmts[1].(*If)
	require.True(t, ok)
	assert.Same(t, fn.Stmts[3], cond.Target)
	assert.Equal(t, "if (x <= %t0) goto 3", cond.String())
	assert.Equal(t, Position{Line: 2, Column: 2}, cond.Pos())

	for i, s := range fn.Stmts {
		assert.Equal(t, i, s.Index())
	}
	assert.Equal(t, []*Var{x}, fn.Params)
	assert.Same(t, x, fn.Var("x"))
	assert.Nil(t, fn.Var("y"))
}

func TestBuilderAppendsReturn(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
		want  int
	}{
		{
			name:  "empty body",
			build: func(b *Builder) {},
			want:  1,
		},
		{
			name: "falls off the end",
			build: func(b *Builder) {
				v := b.NewVar("v", Primitive(TypeInt))
				b.Assign(v, &IntLiteral{Value: 1})
			},
			want: 2,
		},
		{
			name: "ends in return",
			build: func(b *Builder) {
				b.Return()
			},
			want: 1,
		},
		{
			name: "jump past the last statement",
			build: func(b *Builder) {
				end := b.NewLabel()
				b.Goto(end)
				b.Return()
				b.Bind(end)
			},
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("f", "")
			b.SetEnd(Position{Line: 9, Column: 1})
			tt.build(b)
			fn, err := b.Build()
			require.NoError(t, err)
			require.Len(t, fn.Stmts, tt.want)
			last := fn.Stmts[len(fn.Stmts)-1]
			_, isReturn := last.(*Return)
			_, isGoto := last.(*Goto)
			assert.True(t, isReturn || isGoto)
		})
	}
}

func TestBuilderUnboundLabel(t *testing.T) {
	b := NewBuilder("f", "")
	l := b.NewLabel()
	b.Goto(l)
	_, err := b.Build()
	assert.Error(t, err)
}

func TestBuilderTerminated(t *testing.T) {
	b := NewBuilder("f", "")
	assert.False(t, b.Terminated())

	v := b.NewVar("v", Primitive(TypeInt))
	b.Assign(v, &IntLiteral{Value: 1})
	assert.False(t, b.Terminated())

	next := b.NewLabel()
	b.Goto(next)
	assert.True(t, b.Terminated())

	// a pending jump to the current position keeps it reachable
	b.Bind(next)
	assert.False(t, b.Terminated())
}

func TestNewVarRenamesShadowedNames(t *testing.T) {
	b := NewBuilder("f", "")
	first := b.NewVar("x", Primitive(TypeInt))
	second := b.NewVar("x", Primitive(TypeInt))
	temp := b.NewTemp(Primitive(TypeBoolean))

	assert.Equal(t, "x", first.Name)
	assert.Equal(t, "x#1", second.Name)
	assert.Equal(t, "%t0", temp.Name)
	assert.True(t, temp.Temp)
	assert.Equal(t, []int{0, 1, 2}, []int{first.Index, second.Index, temp.Index})
}

func TestSwitchString(t *testing.T) {
	b := NewBuilder("f", "")
	v := b.NewParam("v", Primitive(TypeInt))
	one, two, end := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Switch(v, []SwitchCase{{Value: 1, Target: one}, {Value: 2, Target: two}}, end)
	b.Bind(one)
	b.Goto(end)
	b.Bind(two)
	b.Goto(end)
	b.Bind(end)

	fn, err := b.Build()
	require.NoError(t, err)
	sw := fn.Stmts[0].(*Switch)
	assert.Equal(t, "switch (v) {1: 1, 2: 2, default: 3}", sw.String())
	assert.Equal(t, []*Var{v}, sw.Uses())
	assert.Nil(t, sw.Def())
}

func TestOpCategory(t *testing.T) {
	tests := []struct {
		op   BinaryOp
		want OpCategory
	}{
		{OpAdd, CategoryArithmetic},
		{OpRem, CategoryArithmetic},
		{OpXor, CategoryBitwise},
		{OpGe, CategoryCondition},
		{OpUshr, CategoryShift},
		{BinaryOp("&&"), CategoryUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.Category(), string(tt.op))
	}

	for _, op := range []BinaryOp{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe} {
		assert.Equal(t, op, op.Negate().Negate())
		assert.NotEqual(t, op, op.Negate())
	}
}

func TestExpressionRendering(t *testing.T) {
	a := &Var{Name: "a"}
	b := &Var{Name: "b"}
	tests := []struct {
		exp  Exp
		want string
		uses []*Var
	}{
		{&IntLiteral{Value: -3}, "-3", nil},
		{&OtherLiteral{Text: `"s"`}, `"s"`, nil},
		{&BinaryExp{Op: OpShl, X: a, Y: b}, "a << b", []*Var{a, b}},
		{&UnaryExp{Op: OpNeg, X: a}, "-a", []*Var{a}},
		{&UnaryExp{Op: OpOpaque}, "?", nil},
		{&InvokeExp{Callee: "fmt.Println", Args: []*Var{a, b}}, "fmt.Println(a, b)", []*Var{a, b}},
		{&NewExp{Type: Reference("[]int"), Args: []*Var{a}}, "new []int(a)", []*Var{a}},
		{&CastExp{Type: Reference("int8"), X: a}, "(int8) a", []*Var{a}},
		{&FieldAccess{Base: a, Field: "n"}, "a.n", []*Var{a}},
		{&FieldAccess{Qualifier: "os", Field: "Args"}, "os.Args", nil},
		{&ArrayAccess{Base: a, Index: b}, "a[b]", []*Var{a, b}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.exp.String())
		assert.Equal(t, tt.uses, tt.exp.Uses(), tt.want)
	}
}

func TestTypeHelpers(t *testing.T) {
	assert.True(t, Primitive(TypeInt).IsPrimitive())
	assert.False(t, Reference("string").IsPrimitive())
	assert.False(t, Type{}.IsPrimitive())

	assert.True(t, Type{Kind: TypeInt, Name: "uint32"}.IsUnsigned())
	assert.True(t, Primitive(TypeChar).IsUnsigned())
	assert.False(t, Type{Kind: TypeInt, Name: "int32"}.IsUnsigned())

	assert.Equal(t, "int32", Type{Kind: TypeInt, Name: "int32"}.String())
	assert.Equal(t, "boolean", Primitive(TypeBoolean).String())
}

package deadcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-dataflow/pkg/cfg"
	"github.com/l3aro/go-dataflow/pkg/constprop"
	"github.com/l3aro/go-dataflow/pkg/deadcode"
	"github.com/l3aro/go-dataflow/pkg/frontend"
	"github.com/l3aro/go-dataflow/pkg/ir"
	"github.com/l3aro/go-dataflow/pkg/liveness"
)

var intType = ir.Primitive(ir.TypeInt)

func detect(t *testing.T, fn *ir.IR) []int {
	t.Helper()
	g := cfg.Build(fn)
	constants, err := constprop.Solve(g)
	require.NoError(t, err)
	dead := deadcode.Detect(g, constants, liveness.Analyze(g))

	indexes := make([]int, 0, len(dead))
	for _, s := range dead {
		indexes = append(indexes, s.Index())
	}
	return indexes
}

func build(t *testing.T, b *ir.Builder) *ir.IR {
	t.Helper()
	fn, err := b.Build()
	require.NoError(t, err)
	return fn
}

func TestDetectConstantBranch(t *testing.T) {
	src := []byte(`package p

func f(x int) int {
	a := 1
	b := a + 2
	if b > 5 {
		x = 10
	}
	c := 7
	return x
}
`)
	fn, err := frontend.LowerSource(src, "f")
	require.NoError(t, err)

	g := cfg.Build(fn)
	constants, err := constprop.Solve(g)
	require.NoError(t, err)
	dead := deadcode.Detect(g, constants, liveness.Analyze(g))

	require.Len(t, dead, 2)
	assert.Equal(t, "x = 10", dead[0].String())
	assert.Equal(t, "c = 7", dead[1].String())
}

func TestDetectNonConstantBranchKeepsBoth(t *testing.T) {
	b := ir.NewBuilder("f", "")
	p := b.NewParam("p", intType)
	x := b.NewVar("x", intType)
	zero := b.NewTemp(intType)
	end := b.NewLabel()
	b.Assign(zero, &ir.IntLiteral{Value: 0})
	b.If(&ir.BinaryExp{Op: ir.OpEq, X: p, Y: zero}, end)
	b.Assign(x, &ir.IntLiteral{Value: 1})
	b.Bind(end)
	b.Return(x)

	assert.Empty(t, detect(t, build(t, b)))
}

func TestDetectTrueBranch(t *testing.T) {
	b := ir.NewBuilder("f", "")
	x := b.NewVar("x", intType)
	zero := b.NewTemp(intType)
	end := b.NewLabel()
	b.Assign(zero, &ir.IntLiteral{Value: 0})
	b.If(&ir.BinaryExp{Op: ir.OpEq, X: zero, Y: zero}, end) // always taken
	b.Assign(x, &ir.IntLiteral{Value: 1})
	b.Bind(end)
	b.Return(x)

	assert.Equal(t, []int{2}, detect(t, build(t, b)))
}

func TestDetectConditionOtherThanZeroOrOne(t *testing.T) {
	b := ir.NewBuilder("f", "")
	one := b.NewVar("one", intType)
	end := b.NewLabel()
	b.Assign(one, &ir.IntLiteral{Value: 1})
	b.If(&ir.BinaryExp{Op: ir.OpAdd, X: one, Y: one}, end) // evaluates to 2
	b.Invoke(&ir.InvokeExp{Callee: "println", Args: []*ir.Var{one}})
	b.Bind(end)
	b.Return(one)

	assert.Equal(t, []int{2, 3}, detect(t, build(t, b)), "neither branch is followed")
}

func TestDetectUnreachable(t *testing.T) {
	b := ir.NewBuilder("f", "")
	x := b.NewVar("x", intType)
	end := b.NewLabel()
	b.Assign(x, &ir.IntLiteral{Value: 1})
	b.Goto(end)
	b.Assign(x, &ir.IntLiteral{Value: 2})
	b.Invoke(&ir.InvokeExp{Callee: "println", Args: []*ir.Var{x}})
	b.Bind(end)
	b.Return(x)

	assert.Equal(t, []int{2, 3}, detect(t, build(t, b)))
}

func TestDetectDeadAssignments(t *testing.T) {
	b := ir.NewBuilder("f", "")
	p := b.NewParam("p", intType)
	sum := b.NewVar("sum", intType)
	quo := b.NewVar("quo", intType)
	call := b.NewVar("call", intType)
	obj := b.NewVar("obj", ir.Reference("*T"))
	field := b.NewVar("field", intType)
	esc := b.NewVar("esc", intType)
	esc.Escapes = true

	b.Assign(sum, &ir.BinaryExp{Op: ir.OpAdd, X: p, Y: p})         // 0 dead
	b.Assign(quo, &ir.BinaryExp{Op: ir.OpDiv, X: p, Y: p})         // 1 may fault
	b.Assign(call, &ir.InvokeExp{Callee: "g", Args: []*ir.Var{p}}) // 2 call
	b.Assign(obj, &ir.NewExp{Type: ir.Reference("T")})             // 3 allocation
	b.Assign(field, &ir.FieldAccess{Base: obj, Field: "n"})        // 4 may fault
	b.Assign(esc, p)                                               // 5 escapes
	b.Assign(sum, p)                                               // 6 read below
	b.Return(sum)

	assert.Equal(t, []int{0}, detect(t, build(t, b)))
}

func switchFunc(t *testing.T, tag int32, withDefault bool) *ir.IR {
	t.Helper()
	b := ir.NewBuilder("sw", "")
	v := b.NewVar("v", intType)
	r := b.NewVar("r", intType)

	one, two, other, end := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.Assign(v, &ir.IntLiteral{Value: tag}) // 0
	var deflt *ir.Label
	if withDefault {
		deflt = other
	}
	b.Switch(v, []ir.SwitchCase{{Value: 1, Target: one}, {Value: 2, Target: two}}, deflt) // 1
	b.Bind(one)
	b.Assign(r, &ir.IntLiteral{Value: 10}) // 2
	b.Goto(end)                            // 3
	b.Bind(two)
	b.Assign(r, &ir.IntLiteral{Value: 20}) // 4
	b.Goto(end)                            // 5
	b.Bind(other)
	b.Assign(r, &ir.IntLiteral{Value: 30}) // 6
	b.Bind(end)
	b.Return(r) // 7
	return build(t, b)
}

func TestDetectConstantSwitch(t *testing.T) {
	tests := []struct {
		name        string
		tag         int32
		withDefault bool
		want        []int
	}{
		{"first case", 1, true, []int{4, 5, 6}},
		{"second case", 2, true, []int{2, 3, 6}},
		{"default", 9, true, []int{2, 3, 4, 5}},
		{"no match without default", 9, false, []int{2, 3, 4, 5, 6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detect(t, switchFunc(t, tt.tag, tt.withDefault)))
		})
	}
}

func TestDetectSwitchOnNAC(t *testing.T) {
	b := ir.NewBuilder("sw", "")
	p := b.NewParam("p", intType)
	one, end := b.NewLabel(), b.NewLabel()
	b.Switch(p, []ir.SwitchCase{{Value: 1, Target: one}}, end)
	b.Bind(one)
	b.Invoke(&ir.InvokeExp{Callee: "f"})
	b.Bind(end)
	b.Return()

	assert.Empty(t, detect(t, build(t, b)))
}

func TestHasNoSideEffect(t *testing.T) {
	v := &ir.Var{Name: "v", Type: intType}
	tests := []struct {
		exp  ir.Exp
		want bool
	}{
		{v, true},
		{&ir.IntLiteral{Value: 1}, true},
		{&ir.OtherLiteral{Text: `"s"`}, true},
		{&ir.UnaryExp{Op: ir.OpNeg, X: v}, true},
		{&ir.BinaryExp{Op: ir.OpMul, X: v, Y: v}, true},
		{&ir.BinaryExp{Op: ir.OpShl, X: v, Y: v}, true},
		{&ir.BinaryExp{Op: ir.OpDiv, X: v, Y: v}, false},
		{&ir.BinaryExp{Op: ir.OpRem, X: v, Y: v}, false},
		{&ir.InvokeExp{Callee: "f"}, false},
		{&ir.NewExp{Type: ir.Reference("T")}, false},
		{&ir.CastExp{Type: intType, X: v}, false},
		{&ir.FieldAccess{Base: v, Field: "f"}, false},
		{&ir.ArrayAccess{Base: v, Index: v}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deadcode.HasNoSideEffect(tt.exp), tt.exp.String())
	}
}

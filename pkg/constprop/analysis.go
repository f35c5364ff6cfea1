package constprop

import (
	"github.com/l3aro/go-dataflow/pkg/cfg"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// Analysis is the forward constant-propagation analysis over statement CFGs.
type Analysis struct{}

var _ dataflow.Analysis[ir.Stmt, *Fact] = (*Analysis)(nil)

// New returns a constant-propagation analysis.
func New() *Analysis {
	return &Analysis{}
}

// Solve runs constant propagation over g.
func Solve(g *cfg.CFG[ir.Stmt]) (*dataflow.Result[ir.Stmt, *Fact], error) {
	return dataflow.Solve[ir.Stmt, *Fact](g, New())
}

func (a *Analysis) IsForward() bool { return true }

// NewBoundaryFact maps every tracked parameter to NAC.
func (a *Analysis) NewBoundaryFact(g *cfg.CFG[ir.Stmt]) *Fact {
	fact := NewFact()
	if fn := g.IR(); fn != nil {
		for _, p := range fn.Params {
			if CanHoldInt(p) {
				fact.Update(p, NAC())
			}
		}
	}
	return fact
}

func (a *Analysis) NewInitialFact() *Fact {
	return NewFact()
}

// MeetInto merges fact into target key by key.
func (a *Analysis) MeetInto(fact, target *Fact) {
	fact.ForEach(func(v *ir.Var, val Value) {
		target.Update(v, MeetValue(val, target.Get(v)))
	})
}

// TransferNode applies the statement's kill and gen sets to a copy of in and
// stores the copy into out when it differs.
func (a *Analysis) TransferNode(stmt ir.Stmt, in, out *Fact) bool {
	next := in.Copy()
	if assign, ok := stmt.(*ir.Assign); ok && CanHoldInt(assign.LValue) {
		next.Remove(assign.LValue)
		next.Update(assign.LValue, rvalue(assign.RValue, in))
	}
	if next.Equal(out) {
		return false
	}
	out.values = next.values
	return true
}

func rvalue(exp ir.Exp, in *Fact) Value {
	switch exp := exp.(type) {
	case *ir.Var:
		return operand(exp, in)
	case *ir.IntLiteral:
		return MakeConstant(exp.Value)
	case *ir.BinaryExp:
		return Evaluate(exp, in)
	case *ir.InvokeExp, *ir.NewExp, *ir.CastExp, *ir.FieldAccess,
		*ir.ArrayAccess, *ir.UnaryExp, *ir.OtherLiteral:
		return NAC()
	default:
		dataflow.Invariant("unhandled right-hand side %T", exp)
		return NAC()
	}
}

// Package liveness computes the variables live after each statement. It is a
// backward analysis and carries its own iteration, since the dataflow solver
// only runs forward.
package liveness

import (
	"github.com/l3aro/go-dataflow/pkg/cfg"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// VarSet is the fact type of the analysis.
type VarSet = dataflow.SetFact[*ir.Var]

// Analysis describes live variables in the dataflow.Analysis shape. Its
// facts flow from the exit toward the entry: for a node, the out-fact is the
// union of the successors' in-facts and in = uses ∪ (out − def).
type Analysis struct{}

var _ dataflow.Analysis[ir.Stmt, *VarSet] = (*Analysis)(nil)

// New returns a live-variable analysis.
func New() *Analysis {
	return &Analysis{}
}

func (a *Analysis) IsForward() bool { return false }

// NewBoundaryFact holds the escaping variables: code outside the function
// may still read them after the exit.
func (a *Analysis) NewBoundaryFact(g *cfg.CFG[ir.Stmt]) *VarSet {
	fact := dataflow.NewSetFact[*ir.Var]()
	if fn := g.IR(); fn != nil {
		for _, v := range fn.Vars {
			if v.Escapes {
				fact.Add(v)
			}
		}
	}
	return fact
}

func (a *Analysis) NewInitialFact() *VarSet {
	return dataflow.NewSetFact[*ir.Var]()
}

func (a *Analysis) MeetInto(fact, target *VarSet) {
	target.Union(fact)
}

// TransferNode recomputes the in-fact (the second argument) from the out-fact
// (the third) and reports whether the in-fact changed.
func (a *Analysis) TransferNode(stmt ir.Stmt, out, in *VarSet) bool {
	next := out.Copy()
	if def := stmt.Def(); def != nil && !def.Escapes {
		next.Remove(def)
	}
	for _, use := range stmt.Uses() {
		if use != nil {
			next.Add(use)
		}
	}
	if next.Equal(in) {
		return false
	}
	in.Set(next)
	return true
}

// Analyze computes live variables over g. In the returned result, OutFact(n)
// holds the variables live immediately after n and InFact(n) those live
// immediately before it.
func Analyze(g *cfg.CFG[ir.Stmt]) *dataflow.Result[ir.Stmt, *VarSet] {
	a := New()
	result := dataflow.NewResult[ir.Stmt, *VarSet]()
	nodes := g.Nodes()
	for _, n := range nodes {
		// Escaping variables stay live after every node, including
		// those inside loops that never reach the exit.
		result.SetOutFact(n, a.NewBoundaryFact(g))
		if g.IsExit(n) {
			result.SetInFact(n, a.NewBoundaryFact(g))
			continue
		}
		result.SetInFact(n, a.NewInitialFact())
	}

	// Seed in reverse program order so most nodes see their successors'
	// final facts on the first pass.
	work := make([]ir.Stmt, 0, len(nodes))
	queued := make(map[ir.Stmt]bool, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		work = append(work, nodes[i])
		queued[nodes[i]] = true
	}
	for len(work) > 0 {
		n := work[0]
		work = work[1:]
		queued[n] = false
		if g.IsExit(n) {
			continue
		}

		out := result.OutFact(n)
		for _, succ := range g.SuccsOf(n) {
			a.MeetInto(result.InFact(succ), out)
		}
		if a.TransferNode(n, out, result.InFact(n)) {
			for _, pred := range g.PredsOf(n) {
				if !queued[pred] {
					work = append(work, pred)
					queued[pred] = true
				}
			}
		}
	}
	return result
}

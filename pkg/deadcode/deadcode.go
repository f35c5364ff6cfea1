// Package deadcode finds statements that are never executed or whose effect
// is never observed, combining constant propagation with liveness.
package deadcode

import (
	"sort"

	"github.com/l3aro/go-dataflow/pkg/cfg"
	"github.com/l3aro/go-dataflow/pkg/constprop"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// Detect walks g from the entry, following only the feasible edge of branches
// whose condition is a known constant, and returns every statement the walk
// did not keep, ordered by index. Side-effect-free assignments to variables
// that are dead afterwards are dropped even though control reaches them.
// The entry and exit are never reported.
func Detect(
	g *cfg.CFG[ir.Stmt],
	constants *dataflow.Result[ir.Stmt, *constprop.Fact],
	live *dataflow.Result[ir.Stmt, *dataflow.SetFact[*ir.Var]],
) []ir.Stmt {
	visited := make(map[ir.Stmt]bool, g.Len())
	queue := []ir.Stmt{g.Entry()}
	visited[g.Entry()] = true

	enqueue := func(s ir.Stmt) {
		if !visited[s] {
			visited[s] = true
			queue = append(queue, s)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		switch s := node.(type) {
		case *ir.If:
			cond := constprop.Evaluate(s.Cond, constants.InFact(s))
			if cond.IsConstant() {
				// Only 1 and 0 select a branch; any other constant follows neither.
				var want cfg.EdgeKind
				switch cond.Constant() {
				case 1:
					want = cfg.EdgeIfTrue
				case 0:
					want = cfg.EdgeIfFalse
				}
				for _, e := range g.OutEdgesOf(s) {
					if e.Kind == want {
						enqueue(e.Target)
					}
				}
				continue
			}
		case *ir.Switch:
			val := constants.InFact(s).Get(s.Var)
			if constprop.CanHoldInt(s.Var) && val.IsConstant() {
				if target := switchTarget(g, s, val.Constant()); target != nil {
					enqueue(target)
				}
				continue
			}
		case *ir.Assign:
			if HasNoSideEffect(s.RValue) && !live.OutFact(s).Contains(s.LValue) {
				delete(visited, s)
			}
		}

		for _, succ := range g.SuccsOf(node) {
			enqueue(succ)
		}
	}

	var dead []ir.Stmt
	for _, n := range g.Nodes() {
		if !visited[n] && !g.IsEntry(n) && !g.IsExit(n) {
			dead = append(dead, n)
		}
	}
	sort.SliceStable(dead, func(i, j int) bool { return dead[i].Index() < dead[j].Index() })
	return dead
}

// switchTarget returns the target of the first case edge matching value, the
// default target otherwise, or nil when the switch has neither.
func switchTarget(g *cfg.CFG[ir.Stmt], s *ir.Switch, value int32) ir.Stmt {
	var deflt ir.Stmt
	for _, e := range g.OutEdgesOf(s) {
		switch e.Kind {
		case cfg.EdgeSwitchCase:
			if e.CaseValue == value {
				return e.Target
			}
		case cfg.EdgeSwitchDefault:
			if deflt == nil {
				deflt = e.Target
			}
		}
	}
	return deflt
}

// HasNoSideEffect reports whether evaluating exp can be skipped without
// observable change. Allocations, conversions, field and element reads, calls
// and integer division (which may fault) all count as effects.
func HasNoSideEffect(exp ir.Exp) bool {
	switch exp := exp.(type) {
	case *ir.NewExp, *ir.CastExp, *ir.FieldAccess, *ir.ArrayAccess, *ir.InvokeExp:
		return false
	case *ir.BinaryExp:
		return exp.Op != ir.OpDiv && exp.Op != ir.OpRem
	}
	return true
}

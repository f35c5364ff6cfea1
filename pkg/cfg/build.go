package cfg

import (
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// Build constructs the statement-level CFG of fn. Synthetic Nop nodes are
// used for the entry (index -1) and the exit (index len(fn.Stmts)).
// Statements without predecessors are kept in the graph.
func Build(fn *ir.IR) *CFG[ir.Stmt] {
	entry := ir.NewNop(-1, "entry")
	exit := ir.NewNop(len(fn.Stmts), "exit")
	g := New[ir.Stmt](fn, entry, exit)
	for _, s := range fn.Stmts {
		g.AddNode(s)
	}
	g.AddNode(exit)

	next := func(i int) ir.Stmt {
		if i+1 < len(fn.Stmts) {
			return fn.Stmts[i+1]
		}
		return exit
	}

	if len(fn.Stmts) == 0 {
		g.AddEdge(Edge[ir.Stmt]{Source: entry, Target: exit, Kind: EdgeEntry})
		return g
	}
	g.AddEdge(Edge[ir.Stmt]{Source: entry, Target: fn.Stmts[0], Kind: EdgeEntry})

	for i, s := range fn.Stmts {
		switch s := s.(type) {
		case *ir.Goto:
			g.AddEdge(Edge[ir.Stmt]{Source: s, Target: s.Target, Kind: EdgeGoto})
		case *ir.If:
			g.AddEdge(Edge[ir.Stmt]{Source: s, Target: s.Target, Kind: EdgeIfTrue})
			g.AddEdge(Edge[ir.Stmt]{Source: s, Target: next(i), Kind: EdgeIfFalse})
		case *ir.Switch:
			for _, c := range s.Cases {
				g.AddEdge(Edge[ir.Stmt]{Source: s, Target: c.Target, Kind: EdgeSwitchCase, CaseValue: c.Value})
			}
			if s.Default != nil {
				g.AddEdge(Edge[ir.Stmt]{Source: s, Target: s.Default, Kind: EdgeSwitchDefault})
			}
		case *ir.Return:
			g.AddEdge(Edge[ir.Stmt]{Source: s, Target: exit, Kind: EdgeReturn})
		default:
			g.AddEdge(Edge[ir.Stmt]{Source: s, Target: next(i), Kind: EdgeFallThrough})
		}
	}
	return g
}

// Export converts a statement CFG into its JSON-friendly description.
func Export(g *CFG[ir.Stmt]) *CFGInfo {
	info := &CFGInfo{
		EntryID: g.Entry().Index(),
		ExitID:  g.Exit().Index(),
		Loops:   len(Loops(g)),
	}
	if fn := g.IR(); fn != nil {
		info.FunctionName = fn.Function
	}
	reached := g.Reachable()
	for _, n := range g.Nodes() {
		node := NodeInfo{
			ID:          n.Index(),
			Kind:        nodeKind(g, n),
			Text:        n.String(),
			Unreachable: !reached[n],
		}
		if pos := n.Pos(); pos.Line > 0 {
			node.Line = pos.Line
			node.Column = pos.Column
		}
		info.Nodes = append(info.Nodes, node)
		for _, e := range g.OutEdgesOf(n) {
			edge := EdgeInfo{SourceID: e.Source.Index(), TargetID: e.Target.Index(), Kind: e.Kind}
			if e.Kind == EdgeSwitchCase {
				v := e.CaseValue
				edge.CaseValue = &v
			}
			info.Edges = append(info.Edges, edge)
		}
	}
	info.CyclomaticComplexity = len(info.Edges) - len(info.Nodes) + 2
	return info
}

func nodeKind(g *CFG[ir.Stmt], n ir.Stmt) string {
	switch {
	case g.IsEntry(n):
		return "entry"
	case g.IsExit(n):
		return "exit"
	}
	switch n.(type) {
	case *ir.Assign:
		return "assign"
	case *ir.Invoke:
		return "invoke"
	case *ir.If:
		return "if"
	case *ir.Switch:
		return "switch"
	case *ir.Goto:
		return "goto"
	case *ir.Return:
		return "return"
	default:
		return "nop"
	}
}

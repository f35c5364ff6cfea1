package cfg

import (
	"github.com/l3aro/go-dataflow/pkg/ir"
)

// CFG is a directed graph over nodes of type N with one entry and one exit.
// Nodes are iterated in insertion order, which builders keep equal to program
// order with the entry first and the exit last.
type CFG[N comparable] struct {
	fn       *ir.IR
	entry    N
	exit     N
	nodes    []N
	index    map[N]int
	inEdges  map[N][]Edge[N]
	outEdges map[N][]Edge[N]
}

// New creates a graph containing only the entry node. The exit must be added
// with AddNode like any other node.
func New[N comparable](fn *ir.IR, entry, exit N) *CFG[N] {
	g := &CFG[N]{
		fn:       fn,
		entry:    entry,
		exit:     exit,
		index:    make(map[N]int),
		inEdges:  make(map[N][]Edge[N]),
		outEdges: make(map[N][]Edge[N]),
	}
	g.AddNode(entry)
	return g
}

// AddNode appends n to the node order. Adding a node twice is a no-op.
func (g *CFG[N]) AddNode(n N) {
	if _, ok := g.index[n]; ok {
		return
	}
	g.index[n] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// AddEdge inserts a directed edge. Both endpoints are added if missing.
func (g *CFG[N]) AddEdge(e Edge[N]) {
	g.AddNode(e.Source)
	g.AddNode(e.Target)
	g.outEdges[e.Source] = append(g.outEdges[e.Source], e)
	g.inEdges[e.Target] = append(g.inEdges[e.Target], e)
}

// IR returns the function the graph was built from; nil for hand-built graphs.
func (g *CFG[N]) IR() *ir.IR { return g.fn }

// Entry returns the entry node.
func (g *CFG[N]) Entry() N { return g.entry }

// Exit returns the exit node.
func (g *CFG[N]) Exit() N { return g.exit }

// IsEntry reports whether n is the entry node.
func (g *CFG[N]) IsEntry(n N) bool { return n == g.entry }

// IsExit reports whether n is the exit node.
func (g *CFG[N]) IsExit(n N) bool { return n == g.exit }

// Nodes returns all nodes in stable order. The slice must not be modified.
func (g *CFG[N]) Nodes() []N { return g.nodes }

// Len returns the number of nodes.
func (g *CFG[N]) Len() int { return len(g.nodes) }

// Contains reports whether n belongs to the graph.
func (g *CFG[N]) Contains(n N) bool {
	_, ok := g.index[n]
	return ok
}

// InEdgesOf returns the edges entering n.
func (g *CFG[N]) InEdgesOf(n N) []Edge[N] { return g.inEdges[n] }

// OutEdgesOf returns the edges leaving n.
func (g *CFG[N]) OutEdgesOf(n N) []Edge[N] { return g.outEdges[n] }

// PredsOf returns the distinct predecessors of n in edge order.
func (g *CFG[N]) PredsOf(n N) []N {
	return distinct(g.inEdges[n], func(e Edge[N]) N { return e.Source })
}

// SuccsOf returns the distinct successors of n in edge order.
func (g *CFG[N]) SuccsOf(n N) []N {
	return distinct(g.outEdges[n], func(e Edge[N]) N { return e.Target })
}

// EdgeCount returns the number of edges.
func (g *CFG[N]) EdgeCount() int {
	count := 0
	for _, edges := range g.outEdges {
		count += len(edges)
	}
	return count
}

func distinct[N comparable](edges []Edge[N], end func(Edge[N]) N) []N {
	if len(edges) == 0 {
		return nil
	}
	seen := make(map[N]struct{}, len(edges))
	out := make([]N, 0, len(edges))
	for _, e := range edges {
		n := end(e)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

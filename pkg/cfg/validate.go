package cfg

import (
	"fmt"

	"github.com/yourbasic/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Validate checks the structural invariants the solver and the dead-code
// detector rely on: the entry has no predecessors and every node reachable
// from the entry has a path to the exit.
func (g *CFG[N]) Validate() error {
	if len(g.inEdges[g.entry]) > 0 {
		return fmt.Errorf("invalid control flow graph: entry has %d predecessors", len(g.inEdges[g.entry]))
	}
	if !g.Contains(g.exit) {
		return fmt.Errorf("invalid control flow graph: exit node missing")
	}

	reached := g.Reachable()
	var reachesExit traverse.DepthFirst
	reachesExit.Walk(g.directed(true), simple.Node(g.index[g.exit]), nil)
	for i, n := range g.nodes {
		if reached[n] && !reachesExit.Visited(simple.Node(i)) {
			return fmt.Errorf("invalid control flow graph: node %v has no path to exit", n)
		}
	}
	return nil
}

// Reachable returns the set of nodes reachable from the entry.
func (g *CFG[N]) Reachable() map[N]bool {
	var bfs traverse.BreadthFirst
	bfs.Walk(g.directed(false), simple.Node(g.index[g.entry]), nil)
	reached := make(map[N]bool, len(g.nodes))
	for i, n := range g.nodes {
		if bfs.Visited(simple.Node(i)) {
			reached[n] = true
		}
	}
	return reached
}

// directed copies g into a gonum graph keyed by node order, with every edge
// reversed when reverse is set. Self edges are dropped.
func (g *CFG[N]) directed(reverse bool) *simple.DirectedGraph {
	d := simple.NewDirectedGraph()
	for i := range g.nodes {
		d.AddNode(simple.Node(i))
	}
	for _, n := range g.nodes {
		for _, e := range g.outEdges[n] {
			from, to := g.index[e.Source], g.index[e.Target]
			if from == to {
				continue
			}
			if reverse {
				from, to = to, from
			}
			d.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}
	return d
}

// Loops returns the cyclic strongly connected components of g, each listed in
// node order. A single node with a self edge counts as a loop.
func Loops[N comparable](g *CFG[N]) [][]N {
	m := graph.New(len(g.nodes))
	for _, n := range g.nodes {
		for _, e := range g.outEdges[n] {
			m.Add(g.index[e.Source], g.index[e.Target])
		}
	}

	var loops [][]N
	for _, component := range graph.StrongComponents(m) {
		if len(component) == 1 && !m.Edge(component[0], component[0]) {
			continue
		}
		members := make([]bool, len(g.nodes))
		for _, v := range component {
			members[v] = true
		}
		loop := make([]N, 0, len(component))
		for i, n := range g.nodes {
			if members[i] {
				loop = append(loop, n)
			}
		}
		loops = append(loops, loop)
	}
	return loops
}

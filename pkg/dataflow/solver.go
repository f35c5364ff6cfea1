package dataflow

import (
	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/cfg"
)

// Observer is notified after every transfer call, with the facts the transfer
// just read and wrote. Observers must not mutate the facts.
type Observer[N comparable, F any] func(node N, in, out F, changed bool)

// Solver computes the fixpoint of an Analysis over a CFG with a worklist.
type Solver[N comparable, F any] struct {
	analysis Analysis[N, F]

	// Logger receives per-solve statistics at debug level. Defaults to log.Default().
	Logger log.Logger

	// Observer, when set, is called after each transfer.
	Observer Observer[N, F]
}

// NewSolver returns a solver for a.
func NewSolver[N comparable, F any](a Analysis[N, F]) *Solver[N, F] {
	return &Solver[N, F]{analysis: a}
}

// Solve runs a to its fixpoint over g with a default solver.
func Solve[N comparable, F any](g *cfg.CFG[N], a Analysis[N, F]) (*Result[N, F], error) {
	return NewSolver(a).Solve(g)
}

// flow maps the solver's roles onto a graph direction: which neighbours feed
// a node, which neighbours it feeds, and which of its two facts is merged into
// versus produced by the transfer function.
type flow[N comparable, F any] interface {
	initialize(g *cfg.CFG[N], a Analysis[N, F], r *Result[N, F])
	sources(g *cfg.CFG[N], n N) []N
	sinks(g *cfg.CFG[N], n N) []N
	input(r *Result[N, F], n N) F
	output(r *Result[N, F], n N) F
}

func flowOf[N comparable, F any](a Analysis[N, F]) (flow[N, F], error) {
	if a.IsForward() {
		return forwardFlow[N, F]{}, nil
	}
	// A backward flow needs its own boundary and merge semantics validated
	// against a consuming analysis before it is enabled here.
	return nil, ErrBackwardUnsupported
}

type forwardFlow[N comparable, F any] struct{}

func (forwardFlow[N, F]) initialize(g *cfg.CFG[N], a Analysis[N, F], r *Result[N, F]) {
	entry := g.Entry()
	r.SetInFact(entry, a.NewBoundaryFact(g))
	r.SetOutFact(entry, a.NewBoundaryFact(g))
	for _, n := range g.Nodes() {
		if g.IsEntry(n) {
			continue
		}
		r.SetInFact(n, a.NewInitialFact())
		r.SetOutFact(n, a.NewInitialFact())
	}
}

func (forwardFlow[N, F]) sources(g *cfg.CFG[N], n N) []N { return g.PredsOf(n) }
func (forwardFlow[N, F]) sinks(g *cfg.CFG[N], n N) []N   { return g.SuccsOf(n) }
func (forwardFlow[N, F]) input(r *Result[N, F], n N) F   { return r.InFact(n) }
func (forwardFlow[N, F]) output(r *Result[N, F], n N) F  { return r.OutFact(n) }

// Solve computes the fixpoint. It fails with ErrBackwardUnsupported for
// backward analyses and with an *InvariantError when the analysis detects a
// contract violation; no partial result is returned in either case.
func (s *Solver[N, F]) Solve(g *cfg.CFG[N]) (result *Result[N, F], err error) {
	fl, err := flowOf(s.analysis)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			result = nil
		}
	}()
	defer recoverInvariant(&err)

	result = NewResult[N, F]()
	fl.initialize(g, s.analysis, result)
	transfers := s.iterate(g, fl, result)

	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Debug("dataflow fixpoint reached", "nodes", g.Len(), "transfers", transfers)
	return result, nil
}

// iterate is the worklist loop. The node at the front is examined without
// being removed; while its transfer keeps reporting a change it stays at the
// front and its absent successors are appended. It leaves the worklist on the
// first transfer that reports no change. The in-fact is never reset: merges
// accumulate onto whatever the previous visit left there.
func (s *Solver[N, F]) iterate(g *cfg.CFG[N], fl flow[N, F], r *Result[N, F]) int {
	work := newWorklist(g.Nodes())
	transfers := 0
	for work.len() > 0 {
		node := work.front()
		in := fl.input(r, node)
		for _, src := range fl.sources(g, node) {
			s.analysis.MeetInto(fl.output(r, src), in)
		}

		out := fl.output(r, node)
		changed := s.analysis.TransferNode(node, in, out)
		transfers++
		if s.Observer != nil {
			s.Observer(node, in, out, changed)
		}

		if changed {
			for _, succ := range fl.sinks(g, node) {
				work.pushBack(succ)
			}
		} else {
			work.remove(node)
		}
	}
	return transfers
}

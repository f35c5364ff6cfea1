// Package dataflow provides the generic monotone framework: the contract an
// analysis implements, the per-node result container and the worklist solver.
package dataflow

import (
	"github.com/l3aro/go-dataflow/pkg/cfg"
)

// Analysis is a dataflow analysis over nodes N with facts F.
//
// Facts must form a join-semilattice of finite height. MeetInto must be
// commutative, associative and idempotent: the solver accumulates predecessor
// facts into a node's in-fact without resetting it between visits, and relies
// on these laws for the accumulated fact to equal a single join over all
// predecessors. TransferNode must be monotone.
type Analysis[N comparable, F any] interface {
	// IsForward reports the direction facts flow in.
	IsForward() bool

	// NewBoundaryFact returns the fact holding at the boundary node (the entry
	// for forward analyses), built from caller-visible inputs.
	NewBoundaryFact(g *cfg.CFG[N]) F

	// NewInitialFact returns the fact every other node starts from.
	NewInitialFact() F

	// MeetInto merges fact into target, mutating target.
	MeetInto(fact, target F)

	// TransferNode recomputes out from in for node and reports whether out
	// changed.
	TransferNode(node N, in, out F) bool
}

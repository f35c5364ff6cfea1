package dataflow

// Result holds the in-fact and out-fact of every node. The solver owns it
// while solving; consumers must treat it as read-only afterwards.
type Result[N comparable, F any] struct {
	in    map[N]F
	out   map[N]F
	order []N
}

// NewResult returns an empty result.
func NewResult[N comparable, F any]() *Result[N, F] {
	return &Result[N, F]{
		in:  make(map[N]F),
		out: make(map[N]F),
	}
}

// InFact returns the fact holding before node. The zero F is returned for
// nodes the result knows nothing about.
func (r *Result[N, F]) InFact(node N) F {
	return r.in[node]
}

// OutFact returns the fact holding after node.
func (r *Result[N, F]) OutFact(node N) F {
	return r.out[node]
}

// SetInFact installs the in-fact of node.
func (r *Result[N, F]) SetInFact(node N, fact F) {
	r.track(node)
	r.in[node] = fact
}

// SetOutFact installs the out-fact of node.
func (r *Result[N, F]) SetOutFact(node N, fact F) {
	r.track(node)
	r.out[node] = fact
}

// Has reports whether node has facts in the result.
func (r *Result[N, F]) Has(node N) bool {
	_, in := r.in[node]
	_, out := r.out[node]
	return in || out
}

// Nodes returns the nodes with facts, in the order they were first set.
func (r *Result[N, F]) Nodes() []N {
	return r.order
}

func (r *Result[N, F]) track(node N) {
	if !r.Has(node) {
		r.order = append(r.order, node)
	}
}

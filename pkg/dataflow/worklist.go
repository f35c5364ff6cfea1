package dataflow

import "container/list"

// worklist is an ordered set: insertion appends only absent nodes, and the
// front can be inspected without being removed.
type worklist[N comparable] struct {
	order *list.List
	index map[N]*list.Element
}

func newWorklist[N comparable](nodes []N) *worklist[N] {
	w := &worklist[N]{
		order: list.New(),
		index: make(map[N]*list.Element, len(nodes)),
	}
	for _, n := range nodes {
		w.pushBack(n)
	}
	return w
}

// pushBack appends n unless it is already present.
func (w *worklist[N]) pushBack(n N) bool {
	if _, ok := w.index[n]; ok {
		return false
	}
	w.index[n] = w.order.PushBack(n)
	return true
}

func (w *worklist[N]) front() N {
	return w.order.Front().Value.(N)
}

func (w *worklist[N]) remove(n N) {
	if e, ok := w.index[n]; ok {
		w.order.Remove(e)
		delete(w.index, n)
	}
}

func (w *worklist[N]) contains(n N) bool {
	_, ok := w.index[n]
	return ok
}

func (w *worklist[N]) len() int {
	return w.order.Len()
}

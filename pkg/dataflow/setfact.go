package dataflow

import (
	"fmt"
	"sort"
	"strings"
)

// SetFact is a set-valued fact, e.g. the live variables at a program point.
type SetFact[E comparable] struct {
	set map[E]struct{}
}

// NewSetFact returns a set holding elems.
func NewSetFact[E comparable](elems ...E) *SetFact[E] {
	s := &SetFact[E]{set: make(map[E]struct{}, len(elems))}
	for _, e := range elems {
		s.set[e] = struct{}{}
	}
	return s
}

// Contains reports whether e is in the set. A nil set is empty.
func (s *SetFact[E]) Contains(e E) bool {
	if s == nil {
		return false
	}
	_, ok := s.set[e]
	return ok
}

// Add inserts e and reports whether the set changed.
func (s *SetFact[E]) Add(e E) bool {
	if _, ok := s.set[e]; ok {
		return false
	}
	s.set[e] = struct{}{}
	return true
}

// Remove deletes e and reports whether the set changed.
func (s *SetFact[E]) Remove(e E) bool {
	if _, ok := s.set[e]; !ok {
		return false
	}
	delete(s.set, e)
	return true
}

// Union adds every element of other and reports whether the set changed.
func (s *SetFact[E]) Union(other *SetFact[E]) bool {
	changed := false
	for e := range other.set {
		if s.Add(e) {
			changed = true
		}
	}
	return changed
}

// Set replaces the content of s with the content of other.
func (s *SetFact[E]) Set(other *SetFact[E]) {
	s.Clear()
	s.Union(other)
}

// Clear removes every element.
func (s *SetFact[E]) Clear() {
	s.set = make(map[E]struct{})
}

// Copy returns an independent copy.
func (s *SetFact[E]) Copy() *SetFact[E] {
	c := &SetFact[E]{set: make(map[E]struct{}, len(s.set))}
	for e := range s.set {
		c.set[e] = struct{}{}
	}
	return c
}

// Equal reports whether both sets hold the same elements.
func (s *SetFact[E]) Equal(other *SetFact[E]) bool {
	if s.Len() != other.Len() {
		return false
	}
	for e := range s.set {
		if !other.Contains(e) {
			return false
		}
	}
	return true
}

// Len returns the number of elements. A nil set has length zero.
func (s *SetFact[E]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.set)
}

// Elements returns the elements ordered by less.
func (s *SetFact[E]) Elements(less func(a, b E) bool) []E {
	out := make([]E, 0, s.Len())
	if s == nil {
		return out
	}
	for e := range s.set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (s *SetFact[E]) String() string {
	parts := make([]string, 0, s.Len())
	if s != nil {
		for e := range s.set {
			parts = append(parts, fmt.Sprint(e))
		}
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ", ") + "}"
}

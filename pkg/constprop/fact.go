package constprop

import (
	"sort"
	"strings"

	"github.com/l3aro/go-dataflow/pkg/ir"
)

// Fact maps variables to lattice values. Absent variables are UNDEF, and
// storing UNDEF removes the entry, so two facts are equal exactly when their
// maps are.
type Fact struct {
	values map[*ir.Var]Value
}

// NewFact returns an empty fact.
func NewFact() *Fact {
	return &Fact{values: make(map[*ir.Var]Value)}
}

// Get returns the value of v, UNDEF if absent.
func (f *Fact) Get(v *ir.Var) Value {
	if f == nil {
		return Undef()
	}
	if val, ok := f.values[v]; ok {
		return val
	}
	return Undef()
}

// Update sets the value of v and reports whether the fact changed.
func (f *Fact) Update(v *ir.Var, val Value) bool {
	old := f.Get(v)
	if val.IsUndef() {
		delete(f.values, v)
	} else {
		f.values[v] = val
	}
	return old != val
}

// Remove deletes v, making it UNDEF.
func (f *Fact) Remove(v *ir.Var) {
	delete(f.values, v)
}

// Clear removes every entry.
func (f *Fact) Clear() {
	f.values = make(map[*ir.Var]Value)
}

// Copy returns an independent copy.
func (f *Fact) Copy() *Fact {
	c := &Fact{values: make(map[*ir.Var]Value, len(f.values))}
	for k, v := range f.values {
		c.values[k] = v
	}
	return c
}

// Equal reports whether both facts map every variable to the same value.
func (f *Fact) Equal(other *Fact) bool {
	if f.Len() != other.Len() {
		return false
	}
	for k, v := range f.values {
		if other.Get(k) != v {
			return false
		}
	}
	return true
}

// Len returns the number of non-UNDEF entries.
func (f *Fact) Len() int {
	if f == nil {
		return 0
	}
	return len(f.values)
}

// Keys returns the variables with a non-UNDEF value, ordered by declaration.
func (f *Fact) Keys() []*ir.Var {
	keys := make([]*ir.Var, 0, f.Len())
	if f == nil {
		return keys
	}
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Index < keys[j].Index })
	return keys
}

// ForEach calls fn for every non-UNDEF entry in declaration order.
func (f *Fact) ForEach(fn func(v *ir.Var, val Value)) {
	for _, k := range f.Keys() {
		fn(k, f.values[k])
	}
}

func (f *Fact) String() string {
	parts := make([]string, 0, f.Len())
	f.ForEach(func(v *ir.Var, val Value) {
		parts = append(parts, v.Name+"="+val.String())
	})
	return "{" + strings.Join(parts, ", ") + "}"
}

package dataflow

import (
	"slices"

	"frontcore/internal/types"
)

type fact struct {
	value Value
	null  Nullability
	types []types.TypeID // sorted, unique
}

func (f fact) trivial() bool {
	return f.null == f.value.Nullability && len(f.types) == 0
}

func (f fact) equal(o fact) bool {
	return f.null == o.null && slices.Equal(f.types, o.types)
}

// Info is an immutable snapshot of narrowing facts. Every operation returns
// a new Info and leaves the receiver untouched, so one Info can be shared by
// any number of branches.
type Info struct {
	in    *types.Interner
	facts map[ValueID]fact
}

// Empty returns the Info that knows nothing.
func Empty(in *types.Interner) *Info {
	return &Info{in: in}
}

func (i *Info) with(update map[ValueID]fact) *Info {
	if len(update) == 0 {
		return i
	}
	out := &Info{in: i.in, facts: make(map[ValueID]fact, len(i.facts)+len(update))}
	for id, f := range i.facts {
		out.facts[id] = f
	}
	for id, f := range update {
		if f.trivial() {
			delete(out.facts, id)
			continue
		}
		out.facts[id] = f
	}
	return out
}

func (i *Info) lookup(v Value) fact {
	if f, ok := i.facts[v.ID]; ok {
		return f
	}
	return fact{value: v, null: v.Nullability}
}

// Nullability returns what is known about v being null.
func (i *Info) Nullability(v Value) Nullability {
	if !v.IsIdentifiable() {
		return v.Nullability
	}
	return i.lookup(v).null
}

// PossibleTypes returns the narrowed types recorded for v, without its
// static type. When v is known to be non-null, the static type and every
// recorded type are made non-nullable.
func (i *Info) PossibleTypes(v Value) []types.TypeID {
	if !v.IsIdentifiable() {
		return nil
	}
	f := i.lookup(v)
	if f.null.CanBeNull() {
		return slices.Clone(f.types)
	}
	var out []types.TypeID
	if v.Type != types.NoTypeID && i.in.IsNullable(v.Type) {
		out = appendType(out, i.in.MakeNotNullable(v.Type))
	}
	for _, t := range f.types {
		out = appendType(out, i.in.MakeNotNullable(t))
	}
	return out
}

// Equate records that a and b are the same value.
func (i *Info) Equate(a, b Value) *Info {
	na, nb := i.Nullability(a), i.Nullability(b)
	update := make(map[ValueID]fact, 2)
	i.refine(update, a, na.And(nb), b)
	i.refine(update, b, nb.And(na), a)
	return i.with(update)
}

// Disequate records that a and b differ.
func (i *Info) Disequate(a, b Value) *Info {
	na, nb := i.Nullability(a), i.Nullability(b)
	update := make(map[ValueID]fact, 2)
	i.refineNullability(update, a, na.And(nb.Invert()))
	i.refineNullability(update, b, nb.And(na.Invert()))
	return i.with(update)
}

func (i *Info) refineNullability(update map[ValueID]fact, v Value, n Nullability) {
	if !v.IsIdentifiable() {
		return
	}
	f := i.lookup(v)
	if f.null == n {
		return
	}
	f.null = n
	f.types = slices.Clone(f.types)
	update[v.ID] = f
}

// refine records n for v and copies what is known about the type of other.
func (i *Info) refine(update map[ValueID]fact, v Value, n Nullability, other Value) {
	if !v.IsIdentifiable() {
		return
	}
	f := i.lookup(v)
	ts := slices.Clone(f.types)
	if other.IsIdentifiable() {
		for _, t := range i.lookup(other).types {
			ts = appendType(ts, t)
		}
	}
	if other.Nullability != Null && other.Type != types.NoTypeID && other.Type != v.Type {
		ts = appendType(ts, other.Type)
	}
	if f.null == n && len(ts) == len(f.types) {
		return
	}
	f.null = n
	f.types = ts
	update[v.ID] = f
}

// EstablishSubtyping records that v is an instance of t. A non-nullable t
// also proves v is not null.
func (i *Info) EstablishSubtyping(v Value, t types.TypeID) *Info {
	if !v.IsIdentifiable() || t == v.Type || t == types.NoTypeID {
		return i
	}
	f := i.lookup(v)
	n := f.null
	if !i.in.IsNullable(t) {
		n = n.And(NotNull)
	}
	ts := appendType(slices.Clone(f.types), t)
	if n == f.null && len(ts) == len(f.types) {
		return i
	}
	f.null = n
	f.types = ts
	return i.with(map[ValueID]fact{v.ID: f})
}

// ClearValue forgets every fact about v. Used when a variable is reassigned.
func (i *Info) ClearValue(v Value) *Info {
	if _, ok := i.facts[v.ID]; !ok {
		return i
	}
	out := &Info{in: i.in, facts: make(map[ValueID]fact, len(i.facts))}
	for id, f := range i.facts {
		if id != v.ID {
			out.facts[id] = f
		}
	}
	return out
}

// And combines facts that all hold: the union of both snapshots.
func (i *Info) And(o *Info) *Info {
	if o == nil || o == i || len(o.facts) == 0 {
		return i
	}
	if len(i.facts) == 0 {
		return o
	}
	update := make(map[ValueID]fact, len(o.facts))
	for id, of := range o.facts {
		f, ok := i.facts[id]
		if !ok {
			update[id] = of
			continue
		}
		merged := fact{value: f.value, null: f.null.And(of.null), types: slices.Clone(f.types)}
		for _, t := range of.types {
			merged.types = appendType(merged.types, t)
		}
		if !merged.equal(f) {
			update[id] = merged
		}
	}
	return i.with(update)
}

// Or keeps only facts that hold on both sides.
func (i *Info) Or(o *Info) *Info {
	if o == nil || o == i {
		return i
	}
	out := &Info{in: i.in, facts: make(map[ValueID]fact)}
	for id, f := range i.facts {
		of, ok := o.facts[id]
		if !ok {
			of = fact{value: f.value, null: f.value.Nullability}
		}
		merged := fact{value: f.value, null: f.null.Or(of.null), types: intersect(f.types, of.types)}
		if !merged.trivial() {
			out.facts[id] = merged
		}
	}
	for id, of := range o.facts {
		if _, ok := i.facts[id]; ok {
			continue
		}
		merged := fact{value: of.value, null: of.null.Or(of.value.Nullability)}
		if !merged.trivial() {
			out.facts[id] = merged
		}
	}
	return out
}

// Equal reports whether both snapshots carry the same facts.
func (i *Info) Equal(o *Info) bool {
	if len(i.facts) != len(o.facts) {
		return false
	}
	for id, f := range i.facts {
		of, ok := o.facts[id]
		if !ok || !f.equal(of) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether nothing is known.
func (i *Info) IsEmpty() bool { return len(i.facts) == 0 }

// Values returns the identities with recorded facts in ascending order.
func (i *Info) Values() []ValueID {
	out := make([]ValueID, 0, len(i.facts))
	for id := range i.facts {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func appendType(ts []types.TypeID, t types.TypeID) []types.TypeID {
	idx, found := slices.BinarySearch(ts, t)
	if found {
		return ts
	}
	return slices.Insert(ts, idx, t)
}

func intersect(a, b []types.TypeID) []types.TypeID {
	var out []types.TypeID
	for _, t := range a {
		if _, found := slices.BinarySearch(b, t); found {
			out = append(out, t)
		}
	}
	return out
}

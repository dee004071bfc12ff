package types

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"fortio.org/safecast"

	"frontcore/internal/names"
)

// TypeParamInfo is what the type layer knows about a type parameter. Upper
// bounds come from the Hierarchy because they may be resolved lazily.
type TypeParamInfo struct {
	Name     names.Name
	Variance Variance
	Reified  bool
}

// Interner provides stable TypeIDs for structurally equal types. It is safe
// for concurrent use.
type Interner struct {
	mu       sync.RWMutex
	names    *names.Table
	types    []Type
	index    map[typeKey]TypeID
	params   []TypeParamInfo
	captured []Projection
	builtins Builtins
}

type typeKey struct {
	Kind       Kind
	Ctor       Constructor
	Args       string
	Nullable   bool
	Lower      TypeID
	Upper      TypeID
	Capability string
	Message    string
}

// NewInterner constructs an interner seeded with the built-in classes.
func NewInterner(nt *names.Table) *Interner {
	in := &Interner{
		names:    nt,
		types:    []Type{{}},
		index:    make(map[typeKey]TypeID, 128),
		params:   []TypeParamInfo{{}},
		captured: []Projection{{}},
	}
	in.builtins = newBuiltins(nt, in)
	return in
}

// Names returns the name table types are rendered with.
func (in *Interner) Names() *names.Table { return in.names }

// Builtins returns ids of the built-in classes and their types.
func (in *Interner) Builtins() *Builtins { return &in.builtins }

// Intern returns the TypeID of t, adding it on first use.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if t.Kind == KindFlexible {
		in.checkFlexibleBounds(t)
	}
	key := keyOf(t)
	in.mu.RLock()
	id, ok := in.index[key]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[key]; ok {
		return id
	}
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id = TypeID(n)
	if len(t.Args) > 0 {
		t.Args = append([]Projection(nil), t.Args...)
	}
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

func (in *Interner) checkFlexibleBounds(t Type) {
	for _, b := range []TypeID{t.Lower, t.Upper} {
		bt, ok := in.Lookup(b)
		if !ok || bt.Kind != KindSimple {
			panic(fmt.Errorf("types: flexible bounds must be simple types, got %v", bt.Kind))
		}
	}
}

func keyOf(t Type) typeKey {
	var sb strings.Builder
	for _, a := range t.Args {
		if a.Star {
			sb.WriteString("*,")
			continue
		}
		sb.WriteString(strconv.Itoa(int(a.Variance)))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(a.Type), 10))
		sb.WriteByte(',')
	}
	return typeKey{
		Kind:       t.Kind,
		Ctor:       t.Ctor,
		Args:       sb.String(),
		Nullable:   t.Nullable,
		Lower:      t.Lower,
		Upper:      t.Upper,
		Capability: t.Capability,
		Message:    t.Message,
	}
}

// Lookup returns the type for id.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic(fmt.Errorf("types: invalid TypeID %d", id))
	}
	return t
}

// NewTypeParam registers a type parameter and returns its id.
func (in *Interner) NewTypeParam(info TypeParamInfo) TypeParamID {
	in.mu.Lock()
	defer in.mu.Unlock()
	n, err := safecast.Conv[uint32](len(in.params))
	if err != nil {
		panic(fmt.Errorf("len(params) overflow: %w", err))
	}
	in.params = append(in.params, info)
	return TypeParamID(n)
}

// TypeParam returns the registered info of p.
func (in *Interner) TypeParam(p TypeParamID) TypeParamInfo {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if p == NoTypeParamID || int(p) >= len(in.params) {
		panic(fmt.Errorf("types: invalid TypeParamID %d", p))
	}
	return in.params[p]
}

// Class builds a non-null class type.
func (in *Interner) Class(id names.ClassId, args ...Projection) TypeID {
	return in.Intern(Type{Kind: KindSimple, Ctor: Constructor{Kind: CtorClass, Class: id}, Args: args})
}

// Param builds the type of a type parameter reference.
func (in *Interner) Param(p TypeParamID, nullable bool) TypeID {
	return in.Intern(Type{Kind: KindSimple, Ctor: Constructor{Kind: CtorTypeParam, Param: p}, Nullable: nullable})
}

// Flexible builds (lower..upper). Both bounds must be simple types.
func (in *Interner) Flexible(lower, upper TypeID, capability string) TypeID {
	return in.Intern(Type{Kind: KindFlexible, Lower: lower, Upper: upper, Capability: capability})
}

// Platform builds the flexible type (T..T?) used for values of unknown
// nullability.
func (in *Interner) Platform(id TypeID) TypeID {
	t := in.MustLookup(id)
	if t.Kind != KindSimple {
		return id
	}
	return in.Flexible(in.MakeNotNullable(id), in.MakeNullable(id), "")
}

// Error builds an error type carrying msg.
func (in *Interner) Error(msg string) TypeID {
	return in.Intern(Type{Kind: KindError, Message: msg})
}

// DontCare is the non-denotable wildcard expected type.
func (in *Interner) DontCare() TypeID {
	return in.Intern(Type{Kind: KindSimple, Ctor: Constructor{Kind: CtorDontCare}})
}

// Captured wraps a projection into a non-denotable captured type.
func (in *Interner) Captured(p Projection) TypeID {
	in.mu.Lock()
	n, err := safecast.Conv[uint32](len(in.captured))
	if err != nil {
		in.mu.Unlock()
		panic(fmt.Errorf("len(captured) overflow: %w", err))
	}
	in.captured = append(in.captured, p)
	in.mu.Unlock()
	return in.Intern(Type{Kind: KindSimple, Ctor: Constructor{Kind: CtorCaptured, Captured: n}})
}

// CapturedProjection returns the projection wrapped by a captured constructor.
func (in *Interner) CapturedProjection(c Constructor) Projection {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.captured[c.Captured]
}

// MakeNullable returns id with nullability set; flexible types change both bounds.
func (in *Interner) MakeNullable(id TypeID) TypeID {
	return in.withNullability(id, true)
}

// MakeNotNullable returns id without nullability.
func (in *Interner) MakeNotNullable(id TypeID) TypeID {
	return in.withNullability(id, false)
}

func (in *Interner) withNullability(id TypeID, nullable bool) TypeID {
	t, ok := in.Lookup(id)
	if !ok {
		return id
	}
	switch t.Kind {
	case KindSimple:
		if t.Nullable == nullable {
			return id
		}
		t.Nullable = nullable
		return in.Intern(t)
	case KindFlexible:
		return in.Flexible(in.withNullability(t.Lower, nullable), in.withNullability(t.Upper, nullable), t.Capability)
	}
	return id
}

// IsNullable reports whether null is a value of id. Flexible types answer
// for their upper bound.
func (in *Interner) IsNullable(id TypeID) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindSimple:
		return t.Nullable
	case KindFlexible:
		return in.IsNullable(t.Upper)
	}
	return false
}

// IsError reports whether id is an error type.
func (in *Interner) IsError(id TypeID) bool {
	t, ok := in.Lookup(id)
	return ok && t.Kind == KindError
}

// ContainsError reports whether id or any type nested in it is an error type.
func (in *Interner) ContainsError(id TypeID) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindError:
		return true
	case KindFlexible:
		return in.ContainsError(t.Lower) || in.ContainsError(t.Upper)
	}
	for _, a := range t.Args {
		if !a.Star && in.ContainsError(a.Type) {
			return true
		}
	}
	return false
}

// IsDenotable reports whether id can be written in source: no captured or
// wildcard constructors anywhere inside.
func (in *Interner) IsDenotable(id TypeID) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindError:
		return false
	case KindFlexible:
		return in.IsDenotable(t.Lower) && in.IsDenotable(t.Upper)
	}
	if !t.Ctor.IsDenotable() {
		return false
	}
	for _, a := range t.Args {
		if !a.Star && !in.IsDenotable(a.Type) {
			return false
		}
	}
	return true
}

// ClassOf returns the class constructor of id, looking through flexible
// types at the lower bound.
func (in *Interner) ClassOf(id TypeID) (names.ClassId, bool) {
	t, ok := in.Lookup(id)
	if !ok {
		return names.NoClassId, false
	}
	if t.Kind == KindFlexible {
		return in.ClassOf(t.Lower)
	}
	if t.Kind != KindSimple || t.Ctor.Kind != CtorClass {
		return names.NoClassId, false
	}
	return t.Ctor.Class, true
}

// ReplaceArgs returns id with its type arguments replaced.
func (in *Interner) ReplaceArgs(id TypeID, args []Projection) TypeID {
	t := in.MustLookup(id)
	t.Args = args
	return in.Intern(t)
}

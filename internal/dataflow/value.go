package dataflow

import (
	"sync"

	"frontcore/internal/ast"
	"frontcore/internal/descriptors"
	"frontcore/internal/types"
)

// ValueID is the identity of an expression value for smart casting.
type ValueID uint32

// NoValueID marks values that have no identity (call results, literals).
const NoValueID ValueID = 0

// Kind classifies how far facts about a value can be trusted.
type Kind uint8

const (
	// Other values have no stable identity; facts are never recorded.
	Other Kind = iota
	// StableValue never changes: vals, parameters, this, final val properties
	// of stable receivers with default getters.
	StableValue
	// StableVariable is a local var; facts hold until it is reassigned.
	StableVariable
	// UnstableValue may change between reads (var or open properties);
	// facts are recorded but smart casts on it are impossible.
	UnstableValue
)

func (k Kind) String() string {
	switch k {
	case StableValue:
		return "stable value"
	case StableVariable:
		return "stable variable"
	case UnstableValue:
		return "unstable value"
	}
	return "other"
}

// Value is the data flow view of an expression.
type Value struct {
	ID   ValueID
	Kind Kind
	Type types.TypeID
	// Nullability is known from the type alone.
	Nullability Nullability
}

// IsStable reports whether smart casts may use facts about the value.
func (v Value) IsStable() bool {
	return v.Kind == StableValue || v.Kind == StableVariable
}

// IsIdentifiable reports whether facts about the value can be recorded.
func (v Value) IsIdentifiable() bool {
	return v.ID != NoValueID && v.Kind != Other
}

type identity struct {
	desc descriptors.Descriptor
	recv ValueID
	this bool
}

// Factory hands out value identities. Two reads of the same variable
// through the same receiver get the same ValueID.
type Factory struct {
	in  *types.Interner
	mu  sync.Mutex
	ids map[identity]ValueID
}

func NewFactory(in *types.Interner) *Factory {
	return &Factory{in: in, ids: make(map[identity]ValueID)}
}

func (f *Factory) id(key identity) ValueID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.ids[key]; ok {
		return id
	}
	id := ValueID(len(f.ids) + 1)
	f.ids[key] = id
	return id
}

func (f *Factory) immanent(t types.TypeID) Nullability {
	if t == types.NoTypeID || f.in.IsNullable(t) {
		return Unknown
	}
	return NotNull
}

// Null is the value of the null literal.
func (f *Factory) Null() Value {
	return Value{Kind: Other, Type: f.in.Builtins().NullableNothingType, Nullability: Null}
}

// ForExpression is the value of an expression without identity.
func (f *Factory) ForExpression(_ ast.ExprID, t types.TypeID) Value {
	return Value{Kind: Other, Type: t, Nullability: f.immanent(t)}
}

// ForThis is the value of the implicit or explicit receiver of owner.
func (f *Factory) ForThis(owner descriptors.Descriptor, t types.TypeID) Value {
	return Value{
		ID:          f.id(identity{desc: owner, this: true}),
		Kind:        StableValue,
		Type:        t,
		Nullability: f.immanent(t),
	}
}

// ForVariable is the value read from v, through recv for member properties.
// t is the type of the read after substitution.
func (f *Factory) ForVariable(v descriptors.Variable, recv *Value, t types.TypeID) Value {
	key := identity{desc: v}
	if recv != nil {
		key.recv = recv.ID
	}
	return Value{
		ID:          f.id(key),
		Kind:        variableKind(v, recv),
		Type:        t,
		Nullability: f.immanent(t),
	}
}

func variableKind(v descriptors.Variable, recv *Value) Kind {
	switch d := v.(type) {
	case *descriptors.LocalVariable:
		if d.IsVar() {
			return StableVariable
		}
		return StableValue
	case *descriptors.ValueParameter:
		return StableValue
	case *descriptors.CallableDescriptor:
		if d.IsVar() || d.Modality() != descriptors.Final {
			return UnstableValue
		}
		if g := d.Getter(); g != nil && !g.IsDefault() {
			return UnstableValue
		}
		if recv != nil && !recv.IsStable() {
			return UnstableValue
		}
		return StableValue
	}
	return Other
}

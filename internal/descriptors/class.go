package descriptors

import (
	"fmt"

	"frontcore/internal/names"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

// ClassSource computes the lazy parts of a class. Source declarations,
// persisted metadata and built-ins each provide one.
type ClassSource interface {
	TypeParameters(c *ClassDescriptor) ([]*TypeParameter, error)
	Supertypes(c *ClassDescriptor) ([]types.TypeID, error)
	// Members returns declared functions and properties, constructors excluded.
	Members(c *ClassDescriptor) ([]*CallableDescriptor, error)
	Constructors(c *ClassDescriptor) ([]*CallableDescriptor, error)
	NestedClasses(c *ClassDescriptor) ([]*ClassDescriptor, error)
}

// ClassSpec holds the eagerly known attributes of a class.
type ClassSpec struct {
	Header
	ID        names.ClassId
	ClassKind ClassKind
	Inner     bool
	Companion bool
}

// ClassDescriptor is a class, interface, object, enum or enum entry.
type ClassDescriptor struct {
	header
	id        names.ClassId
	kind      ClassKind
	inner     bool
	companion bool
	errMsg    string
	module    *ModuleDescriptor

	typeParams *storage.LazyValue[[]*TypeParameter]
	supertypes *storage.LazyValue[[]types.TypeID]
	declared   *storage.LazyValue[[]*CallableDescriptor]
	ctors      *storage.LazyValue[[]*CallableDescriptor]
	nested     *storage.LazyValue[[]*ClassDescriptor]
	members    *storage.LazyValue[*MemberScope]
}

// NewClass creates a class owned by a package or an outer class.
func NewClass(owner Descriptor, spec ClassSpec, src ClassSource) *ClassDescriptor {
	mod := ModuleOf(owner)
	if mod == nil {
		panic(fmt.Errorf("descriptors: class %v created outside a module", spec.ID))
	}
	m := mod.storage
	c := &ClassDescriptor{
		header:    newHeader(m, owner, spec.Header),
		id:        spec.ID,
		kind:      spec.ClassKind,
		inner:     spec.Inner,
		companion: spec.Companion,
		module:    mod,
	}
	label := mod.names.ClassString(spec.ID)
	c.typeParams = storage.NewLazyValue(m, func() ([]*TypeParameter, error) {
		return src.TypeParameters(c)
	}, storage.Named("type parameters("+label+")"))
	c.supertypes = storage.NewLazyValue(m, func() ([]types.TypeID, error) {
		return src.Supertypes(c)
	}, storage.Named(c.SupertypesKey()))
	c.declared = storage.NewLazyValue(m, func() ([]*CallableDescriptor, error) {
		return src.Members(c)
	}, storage.Named("declared members("+label+")"))
	c.ctors = storage.NewLazyValue(m, func() ([]*CallableDescriptor, error) {
		return src.Constructors(c)
	}, storage.Named("constructors("+label+")"))
	c.nested = storage.NewLazyValue(m, func() ([]*ClassDescriptor, error) {
		return src.NestedClasses(c)
	}, storage.Named("nested classes("+label+")"))
	c.members = storage.NewLazyValue(m, c.computeMemberScope, storage.Named("member scope("+label+")"))
	return c
}

// NewErrorClass creates the placeholder used when a class cannot be
// resolved. It has no members and its type is an error type.
func NewErrorClass(module *ModuleDescriptor, id names.ClassId, message string) *ClassDescriptor {
	c := NewClass(module, ClassSpec{
		Header: Header{Name: module.names.ShortName(id.Relative), Modality: Open},
		ID:     id,
	}, errorClassSource{})
	c.errMsg = message
	if c.errMsg == "" {
		c.errMsg = "unresolved class " + module.names.ClassString(id)
	}
	return c
}

type errorClassSource struct{}

func (errorClassSource) TypeParameters(*ClassDescriptor) ([]*TypeParameter, error)    { return nil, nil }
func (errorClassSource) Supertypes(*ClassDescriptor) ([]types.TypeID, error)          { return nil, nil }
func (errorClassSource) Members(*ClassDescriptor) ([]*CallableDescriptor, error)      { return nil, nil }
func (errorClassSource) Constructors(*ClassDescriptor) ([]*CallableDescriptor, error) { return nil, nil }
func (errorClassSource) NestedClasses(*ClassDescriptor) ([]*ClassDescriptor, error)   { return nil, nil }

func (c *ClassDescriptor) Kind() Kind                { return KindClass }
func (c *ClassDescriptor) ID() names.ClassId         { return c.id }
func (c *ClassDescriptor) ClassKind() ClassKind      { return c.kind }
func (c *ClassDescriptor) IsInner() bool             { return c.inner }
func (c *ClassDescriptor) IsCompanion() bool         { return c.companion }
func (c *ClassDescriptor) IsError() bool             { return c.errMsg != "" }
func (c *ClassDescriptor) Module() *ModuleDescriptor { return c.module }

// SupertypesKey is the storage label of the supertypes cell; a CycleError
// raised by re-entering it carries this key.
func (c *ClassDescriptor) SupertypesKey() string {
	return "supertypes(" + c.module.names.ClassString(c.id) + ")"
}

func (c *ClassDescriptor) TypeParameters() []*TypeParameter {
	tps, err := c.typeParams.Get()
	if err != nil {
		return nil
	}
	return tps
}

// TypeParamIDs returns the interned ids of the class type parameters.
func (c *ClassDescriptor) TypeParamIDs() []types.TypeParamID {
	tps := c.TypeParameters()
	out := make([]types.TypeParamID, len(tps))
	for i, tp := range tps {
		out[i] = tp.ID()
	}
	return out
}

// Supertypes returns the declared supertypes. When their computation failed,
// or is still running on this goroutine, the class degrades to a single Any
// supertype; SupertypesErr reports why.
func (c *ClassDescriptor) Supertypes() []types.TypeID {
	st, err := c.supertypes.Get()
	if err != nil {
		if c.IsError() || c.module.types.Builtins().IsRoot(c.id) {
			return nil
		}
		return []types.TypeID{c.module.types.Builtins().AnyType}
	}
	return st
}

// SupertypesErr forces the supertypes and returns the failure, if any.
func (c *ClassDescriptor) SupertypesErr() error {
	_, err := c.supertypes.Get()
	return err
}

// SupertypesComputed reports whether the supertypes cell holds a value.
func (c *ClassDescriptor) SupertypesComputed() bool {
	return c.supertypes.IsComputed()
}

// DeclaredMembers returns functions and properties declared in the class body
// and primary constructor, in declaration order.
func (c *ClassDescriptor) DeclaredMembers() []*CallableDescriptor {
	ms, err := c.declared.Get()
	if err != nil {
		return nil
	}
	return ms
}

func (c *ClassDescriptor) Constructors() []*CallableDescriptor {
	cs, err := c.ctors.Get()
	if err != nil {
		return nil
	}
	return cs
}

// PrimaryConstructor returns the primary constructor or nil.
func (c *ClassDescriptor) PrimaryConstructor() *CallableDescriptor {
	for _, ctor := range c.Constructors() {
		if ctor.IsPrimary() {
			return ctor
		}
	}
	return nil
}

func (c *ClassDescriptor) NestedClasses() []*ClassDescriptor {
	ns, err := c.nested.Get()
	if err != nil {
		return nil
	}
	return ns
}

// NestedClass returns the nested class called name or nil.
func (c *ClassDescriptor) NestedClass(name names.Name) *ClassDescriptor {
	for _, n := range c.NestedClasses() {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

// Companion returns the companion object or nil.
func (c *ClassDescriptor) Companion() *ClassDescriptor {
	for _, n := range c.NestedClasses() {
		if n.companion {
			return n
		}
	}
	return nil
}

// EnumEntries returns the entries of an enum class in declaration order.
func (c *ClassDescriptor) EnumEntries() []*ClassDescriptor {
	var out []*ClassDescriptor
	for _, n := range c.NestedClasses() {
		if n.kind == ClassEnumEntry {
			out = append(out, n)
		}
	}
	return out
}

// MemberScope returns declared and inherited members plus nested classes.
func (c *ClassDescriptor) MemberScope() *MemberScope {
	ms, err := c.members.Get()
	if err != nil || ms == nil {
		return emptyMemberScope
	}
	return ms
}

// DefaultType is the class applied to its own type parameters.
func (c *ClassDescriptor) DefaultType() types.TypeID {
	in := c.module.types
	if c.IsError() {
		return in.Error(c.errMsg)
	}
	tps := c.TypeParameters()
	args := make([]types.Projection, len(tps))
	for i, tp := range tps {
		args[i] = types.Invariant(tp.Type())
	}
	return in.Class(c.id, args...)
}

// IsSubclassOf reports whether other is c or one of its transitive supertypes.
func (c *ClassDescriptor) IsSubclassOf(other *ClassDescriptor) bool {
	if c == other {
		return true
	}
	_, ok := c.module.checker.CorrespondingSupertype(c.DefaultType(), other.id)
	return ok
}

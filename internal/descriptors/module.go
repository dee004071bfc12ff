package descriptors

import (
	"sync"

	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

// ClassFinder locates classes and packages visible from a module. The
// resolution session implements it over source and library providers.
type ClassFinder interface {
	FindClass(id names.ClassId) *ClassDescriptor
	FindPackage(fq names.FqName) *PackageDescriptor
}

// ModuleDescriptor is the root of one descriptor graph.
type ModuleDescriptor struct {
	name    names.Name
	names   *names.Table
	types   *types.Interner
	storage *storage.Manager
	finder  ClassFinder
	checker *types.Checker

	mu     sync.RWMutex
	params map[types.TypeParamID]*TypeParameter
}

// NewModule creates a module whose lazy parts are computed through m.
func NewModule(name names.Name, in *types.Interner, m *storage.Manager, finder ClassFinder) *ModuleDescriptor {
	mod := &ModuleDescriptor{
		name:    name,
		names:   in.Names(),
		types:   in,
		storage: m,
		finder:  finder,
		params:  make(map[types.TypeParamID]*TypeParameter),
	}
	mod.checker = types.NewChecker(in, mod)
	return mod
}

func (m *ModuleDescriptor) Kind() Kind                { return KindModule }
func (m *ModuleDescriptor) Name() names.Name          { return m.name }
func (m *ModuleDescriptor) Owner() Descriptor         { return nil }
func (m *ModuleDescriptor) Visibility() Visibility    { return Public }
func (m *ModuleDescriptor) Modality() Modality        { return Final }
func (m *ModuleDescriptor) Annotations() []Annotation { return nil }
func (m *ModuleDescriptor) Source() source.Span       { return source.NoSpan }

func (m *ModuleDescriptor) Names() *names.Table       { return m.names }
func (m *ModuleDescriptor) Types() *types.Interner    { return m.types }
func (m *ModuleDescriptor) Storage() *storage.Manager { return m.storage }
func (m *ModuleDescriptor) Checker() *types.Checker   { return m.checker }
func (m *ModuleDescriptor) Builtins() *types.Builtins { return m.types.Builtins() }

// FindClass returns the class with id or nil.
func (m *ModuleDescriptor) FindClass(id names.ClassId) *ClassDescriptor {
	if m.finder == nil {
		return nil
	}
	return m.finder.FindClass(id)
}

// FindPackage returns the package fq or nil.
func (m *ModuleDescriptor) FindPackage(fq names.FqName) *PackageDescriptor {
	if m.finder == nil {
		return nil
	}
	return m.finder.FindPackage(fq)
}

// ClassOfType returns the class descriptor a type is built on.
func (m *ModuleDescriptor) ClassOfType(id types.TypeID) *ClassDescriptor {
	cls, ok := m.types.ClassOf(id)
	if !ok {
		return nil
	}
	return m.FindClass(cls)
}

// TypeParameter returns the descriptor registered for p.
func (m *ModuleDescriptor) TypeParameter(p types.TypeParamID) *TypeParameter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params[p]
}

func (m *ModuleDescriptor) registerTypeParameter(tp *TypeParameter) {
	m.mu.Lock()
	m.params[tp.id] = tp
	m.mu.Unlock()
}

// Supertypes implements types.Hierarchy.
func (m *ModuleDescriptor) Supertypes(id names.ClassId) []types.TypeID {
	c := m.FindClass(id)
	if c == nil {
		return nil
	}
	return c.Supertypes()
}

// TypeParameters implements types.Hierarchy.
func (m *ModuleDescriptor) TypeParameters(id names.ClassId) []types.TypeParamID {
	c := m.FindClass(id)
	if c == nil {
		return nil
	}
	return c.TypeParamIDs()
}

// UpperBounds implements types.Hierarchy.
func (m *ModuleDescriptor) UpperBounds(p types.TypeParamID) []types.TypeID {
	tp := m.TypeParameter(p)
	if tp == nil {
		return []types.TypeID{m.types.Builtins().NullableAnyType}
	}
	return tp.UpperBounds()
}

// PackageDescriptor is a package of one module. Its member scope is built
// lazily by the declaration provider behind it.
type PackageDescriptor struct {
	header
	fq     names.FqName
	module *ModuleDescriptor
	scope  *storage.LazyValue[Scope]
}

// NewPackage creates the package fq; members is called on first scope query.
func NewPackage(module *ModuleDescriptor, fq names.FqName, members func(*PackageDescriptor) (Scope, error)) *PackageDescriptor {
	p := &PackageDescriptor{
		header: header{name: module.names.ShortName(fq), owner: module},
		fq:     fq,
		module: module,
	}
	p.scope = storage.NewLazyValue(module.storage, func() (Scope, error) {
		return members(p)
	}, storage.Named("package scope "+module.names.FqString(fq)))
	return p
}

func (p *PackageDescriptor) Kind() Kind                { return KindPackage }
func (p *PackageDescriptor) FqName() names.FqName      { return p.fq }
func (p *PackageDescriptor) Module() *ModuleDescriptor { return p.module }

// MemberScope returns the package members; a failed computation yields an
// empty scope and the failure is available from ScopeErr.
func (p *PackageDescriptor) MemberScope() Scope {
	s, err := p.scope.Get()
	if err != nil || s == nil {
		return EmptyScope
	}
	return s
}

func (p *PackageDescriptor) ScopeErr() error {
	_, err := p.scope.Get()
	return err
}

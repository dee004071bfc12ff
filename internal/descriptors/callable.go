package descriptors

import (
	"fmt"
	"sync"

	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

type CallableKind uint8

const (
	CallableFunction CallableKind = iota
	CallableProperty
	CallableConstructor
)

func (k CallableKind) String() string {
	switch k {
	case CallableFunction:
		return "fun"
	case CallableProperty:
		return "property"
	case CallableConstructor:
		return "constructor"
	}
	return "unknown"
}

// CallableSpec holds the eagerly known attributes of a callable.
type CallableSpec struct {
	Header
	CallableKind CallableKind
	MemberKind   MemberKind
	Primary      bool // primary constructor
	Mutable      bool // var property
	Operator     bool
	HasBody      bool
	// Original is the callable a fake override or substituted copy was made from.
	Original *CallableDescriptor
}

// Signature is produced while the callable is being constructed so that
// parameters can be owned by it.
type Signature struct {
	TypeParameters    []*TypeParameter
	ExtensionReceiver types.TypeID
	ValueParameters   []*ValueParameter
	// ReturnType may be inferred from a body, so it is computed lazily.
	ReturnType func() (types.TypeID, error)
	Getter     *PropertyAccessor
	Setter     *PropertyAccessor
}

// CallableDescriptor is a function, property or constructor.
type CallableDescriptor struct {
	header
	spec        CallableSpec
	module      *ModuleDescriptor
	typeParams  []*TypeParameter
	extReceiver types.TypeID
	valueParams []*ValueParameter
	returnType  *storage.LazyValue[types.TypeID]
	getter      *PropertyAccessor
	setter      *PropertyAccessor
}

// NewCallable creates a callable; sig runs before NewCallable returns and
// builds the parameters with the new callable as their owner.
func NewCallable(owner Descriptor, spec CallableSpec, sig func(c *CallableDescriptor) Signature) *CallableDescriptor {
	mod := ModuleOf(owner)
	if mod == nil {
		panic(fmt.Errorf("descriptors: callable %d created outside a module", spec.Name))
	}
	c := &CallableDescriptor{
		header: newHeader(mod.storage, owner, spec.Header),
		spec:   spec,
		module: mod,
	}
	s := sig(c)
	c.typeParams = s.TypeParameters
	c.extReceiver = s.ExtensionReceiver
	c.valueParams = s.ValueParameters
	c.getter = s.Getter
	c.setter = s.Setter
	ret := s.ReturnType
	if ret == nil {
		unit := mod.types.Builtins().UnitType
		ret = func() (types.TypeID, error) { return unit, nil }
	}
	c.returnType = storage.NewLazyValue(mod.storage, ret, storage.Named("return type("+mod.names.MustLookup(spec.Name)+")"))
	return c
}

func (c *CallableDescriptor) Kind() Kind {
	switch c.spec.CallableKind {
	case CallableProperty:
		return KindProperty
	case CallableConstructor:
		return KindConstructor
	}
	return KindFunction
}

func (c *CallableDescriptor) CallableKind() CallableKind         { return c.spec.CallableKind }
func (c *CallableDescriptor) MemberKind() MemberKind             { return c.spec.MemberKind }
func (c *CallableDescriptor) IsPrimary() bool                    { return c.spec.Primary }
func (c *CallableDescriptor) IsVar() bool                        { return c.spec.Mutable }
func (c *CallableDescriptor) IsOperator() bool                   { return c.spec.Operator }
func (c *CallableDescriptor) HasBody() bool                      { return c.spec.HasBody }
func (c *CallableDescriptor) TypeParameters() []*TypeParameter   { return c.typeParams }
func (c *CallableDescriptor) ValueParameters() []*ValueParameter { return c.valueParams }
func (c *CallableDescriptor) ExtensionReceiver() types.TypeID    { return c.extReceiver }
func (c *CallableDescriptor) Getter() *PropertyAccessor          { return c.getter }
func (c *CallableDescriptor) Setter() *PropertyAccessor          { return c.setter }
func (c *CallableDescriptor) Module() *ModuleDescriptor          { return c.module }

// Original follows fake overrides and substituted copies back to the
// declaration they were made from.
func (c *CallableDescriptor) Original() *CallableDescriptor {
	if c.spec.Original != nil {
		return c.spec.Original.Original()
	}
	return c
}

// IsExtension reports whether the callable declares an extension receiver.
func (c *CallableDescriptor) IsExtension() bool {
	return c.extReceiver != types.NoTypeID
}

// DispatchReceiver is the owning class type for members, NoTypeID otherwise.
// Constructors of non-inner classes have no dispatch receiver.
func (c *CallableDescriptor) DispatchReceiver() types.TypeID {
	cls, ok := c.owner.(*ClassDescriptor)
	if !ok {
		return types.NoTypeID
	}
	if c.spec.CallableKind == CallableConstructor {
		outer, ok := cls.owner.(*ClassDescriptor)
		if !ok || !cls.inner {
			return types.NoTypeID
		}
		return outer.DefaultType()
	}
	return cls.DefaultType()
}

// ReturnType is the declared or inferred result type; a failed inference
// yields an error type.
func (c *CallableDescriptor) ReturnType() types.TypeID {
	t, err := c.returnType.Get()
	if err != nil {
		return c.module.types.Error(err.Error())
	}
	return t
}

// ReturnTypeErr forces the return type and reports its failure.
func (c *CallableDescriptor) ReturnTypeErr() error {
	_, err := c.returnType.Get()
	return err
}

// Type is the property type; for functions it is the return type.
func (c *CallableDescriptor) Type() types.TypeID { return c.ReturnType() }

// Overridden returns the members this callable overrides. Fake overrides
// report every inherited member they stand for.
func (c *CallableDescriptor) Overridden() []*CallableDescriptor {
	cls, ok := c.owner.(*ClassDescriptor)
	if !ok {
		return nil
	}
	return cls.MemberScope().Overridden(c)
}

// Substitute copies c into owner with subst applied to every type in its
// signature. Type parameters of c are shared by the copy.
func (c *CallableDescriptor) Substitute(owner Descriptor, subst *types.Substitutor, kind MemberKind) *CallableDescriptor {
	spec := c.spec
	spec.MemberKind = kind
	spec.Original = c
	spec.Header.Annotations = nil
	if c.annos != nil {
		spec.Header.Annotations = c.annos.Get
	}
	return NewCallable(owner, spec, func(nc *CallableDescriptor) Signature {
		params := make([]*ValueParameter, len(c.valueParams))
		for i, p := range c.valueParams {
			params[i] = NewValueParameter(nc, i, p.headerSpec(), subst.Substitute(p.typ), subst.Substitute(p.varargElem), p.hasDefault)
		}
		sig := Signature{
			TypeParameters:    c.typeParams,
			ExtensionReceiver: subst.Substitute(c.extReceiver),
			ValueParameters:   params,
			ReturnType: func() (types.TypeID, error) {
				t, err := c.returnType.Get()
				if err != nil {
					return types.NoTypeID, err
				}
				return subst.Substitute(t), nil
			},
		}
		if c.getter != nil {
			sig.Getter = NewPropertyAccessor(nc, c.getter.headerSpec(), false, c.getter.isDefault)
		}
		if c.setter != nil {
			sig.Setter = NewPropertyAccessor(nc, c.setter.headerSpec(), true, c.setter.isDefault)
		}
		return sig
	})
}

// ValueParameter is a parameter of a function, constructor or setter.
type ValueParameter struct {
	header
	index      int
	typ        types.TypeID
	varargElem types.TypeID
	hasDefault bool
}

// NewValueParameter creates parameter index of owner. For varargs typ is the
// array type and varargElem its element type.
func NewValueParameter(owner Descriptor, index int, h Header, typ, varargElem types.TypeID, hasDefault bool) *ValueParameter {
	mod := ModuleOf(owner)
	return &ValueParameter{
		header:     newHeader(mod.storage, owner, h),
		index:      index,
		typ:        typ,
		varargElem: varargElem,
		hasDefault: hasDefault,
	}
}

func (p *ValueParameter) Kind() Kind                      { return KindValueParameter }
func (p *ValueParameter) Index() int                      { return p.index }
func (p *ValueParameter) Type() types.TypeID              { return p.typ }
func (p *ValueParameter) VarargElementType() types.TypeID { return p.varargElem }
func (p *ValueParameter) IsVararg() bool                  { return p.varargElem != types.NoTypeID }
func (p *ValueParameter) HasDefault() bool                { return p.hasDefault }
func (p *ValueParameter) IsVar() bool                     { return false }

func (p *ValueParameter) headerSpec() Header {
	h := Header{Name: p.name, Visibility: p.vis, Modality: p.mod, Source: p.src}
	if p.annos != nil {
		h.Annotations = p.annos.Get
	}
	return h
}

// TypeParameter is a declared type parameter of a class or callable.
type TypeParameter struct {
	header
	id       types.TypeParamID
	index    int
	variance types.Variance
	reified  bool
	module   *ModuleDescriptor
	bounds   *storage.LazyValue[[]types.TypeID]
}

// NewTypeParameter registers a type parameter. bounds is computed lazily
// because it may mention the parameter itself (T : Comparable<T>).
func NewTypeParameter(owner Descriptor, index int, h Header, variance types.Variance, reified bool, bounds func(*TypeParameter) ([]types.TypeID, error)) *TypeParameter {
	mod := ModuleOf(owner)
	if mod == nil {
		panic(fmt.Errorf("descriptors: type parameter %d created outside a module", h.Name))
	}
	tp := &TypeParameter{
		header:   newHeader(mod.storage, owner, h),
		index:    index,
		variance: variance,
		reified:  reified,
		module:   mod,
	}
	tp.id = mod.types.NewTypeParam(types.TypeParamInfo{Name: h.Name, Variance: variance, Reified: reified})
	if bounds == nil {
		bounds = func(*TypeParameter) ([]types.TypeID, error) { return nil, nil }
	}
	tp.bounds = storage.NewLazyValue(mod.storage, func() ([]types.TypeID, error) {
		return bounds(tp)
	}, storage.Named("upper bounds("+mod.names.MustLookup(h.Name)+")"))
	mod.registerTypeParameter(tp)
	return tp
}

func (tp *TypeParameter) Kind() Kind                 { return KindTypeParameter }
func (tp *TypeParameter) ID() types.TypeParamID      { return tp.id }
func (tp *TypeParameter) Index() int                 { return tp.index }
func (tp *TypeParameter) Variance() types.Variance   { return tp.variance }
func (tp *TypeParameter) IsReified() bool            { return tp.reified }
func (tp *TypeParameter) Type() types.TypeID         { return tp.module.types.Param(tp.id, false) }
func (tp *TypeParameter) NullableType() types.TypeID { return tp.module.types.Param(tp.id, true) }

// UpperBounds returns the declared bounds, or Any? when none are declared
// or they could not be resolved.
func (tp *TypeParameter) UpperBounds() []types.TypeID {
	bs, err := tp.bounds.Get()
	if err != nil || len(bs) == 0 {
		return []types.TypeID{tp.module.types.Builtins().NullableAnyType}
	}
	return bs
}

// DeclaredUpperBounds returns the bounds exactly as declared.
func (tp *TypeParameter) DeclaredUpperBounds() []types.TypeID {
	bs, err := tp.bounds.Get()
	if err != nil {
		return nil
	}
	return bs
}

// PropertyAccessor is the getter or setter of a property.
type PropertyAccessor struct {
	header
	property  *CallableDescriptor
	setter    bool
	isDefault bool

	paramOnce sync.Once
	param     *ValueParameter
}

const setterParamName = "value"

// NewPropertyAccessor creates an accessor; default accessors have no body.
func NewPropertyAccessor(property *CallableDescriptor, h Header, setter, isDefault bool) *PropertyAccessor {
	a := &PropertyAccessor{
		header:    newHeader(property.module.storage, property, h),
		property:  property,
		setter:    setter,
		isDefault: isDefault,
	}
	return a
}

func (a *PropertyAccessor) Kind() Kind {
	if a.setter {
		return KindSetter
	}
	return KindGetter
}

func (a *PropertyAccessor) Property() *CallableDescriptor    { return a.property }
func (a *PropertyAccessor) IsDefault() bool                  { return a.isDefault }
func (a *PropertyAccessor) IsSetter() bool                   { return a.setter }
func (a *PropertyAccessor) TypeParameters() []*TypeParameter { return a.property.typeParams }
func (a *PropertyAccessor) ExtensionReceiver() types.TypeID  { return a.property.extReceiver }
func (a *PropertyAccessor) DispatchReceiver() types.TypeID   { return a.property.DispatchReceiver() }
func (a *PropertyAccessor) MemberKind() MemberKind           { return a.property.MemberKind() }

// ValueParameters returns the implicit "value" parameter of a setter.
func (a *PropertyAccessor) ValueParameters() []*ValueParameter {
	if !a.setter {
		return nil
	}
	a.paramOnce.Do(func() {
		a.param = &ValueParameter{
			header: header{name: a.property.module.names.Intern(setterParamName), owner: a, src: a.src},
			typ:    a.property.ReturnType(),
		}
	})
	return []*ValueParameter{a.param}
}

func (a *PropertyAccessor) ReturnType() types.TypeID {
	if a.setter {
		return a.property.module.types.Builtins().UnitType
	}
	return a.property.ReturnType()
}

func (a *PropertyAccessor) headerSpec() Header {
	return Header{Name: a.name, Visibility: a.vis, Modality: a.mod, Source: a.src}
}

// LocalVariable is a val or var declared in a function body.
type LocalVariable struct {
	header
	typ     types.TypeID
	mutable bool
}

func NewLocalVariable(owner Descriptor, name names.Name, typ types.TypeID, mutable bool, span source.Span) *LocalVariable {
	return &LocalVariable{
		header:  header{name: name, owner: owner, vis: Local, src: span},
		typ:     typ,
		mutable: mutable,
	}
}

func (v *LocalVariable) Kind() Kind         { return KindLocalVariable }
func (v *LocalVariable) Type() types.TypeID { return v.typ }
func (v *LocalVariable) IsVar() bool        { return v.mutable }

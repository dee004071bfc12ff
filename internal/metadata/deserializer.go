package metadata

import (
	"errors"
	"fmt"

	"frontcore/internal/descriptors"
	"frontcore/internal/names"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

// ErrUnknownClass is returned for a class the fragment does not contain.
var ErrUnknownClass = errors.New("class not in fragment")

// fragmentIndex is the module-independent view of a decoded fragment.
type fragmentIndex struct {
	frag     *Fragment
	resolver *names.NameResolver
	pkg      names.FqName
	top      []names.ClassId
	classes  map[names.ClassId]*ClassMessage
}

func indexFragment(nt *names.Table, frag *Fragment) (*fragmentIndex, error) {
	r := names.NewNameResolver(nt, frag.Names)
	pkg, err := r.Qualified(frag.Package.FqName)
	if err != nil {
		return nil, fmt.Errorf("package name: %w", err)
	}
	idx := &fragmentIndex{
		frag:     frag,
		resolver: r,
		pkg:      pkg,
		classes:  make(map[names.ClassId]*ClassMessage, len(frag.Classes)),
	}
	for i := range frag.Classes {
		id, err := r.ClassId(frag.Classes[i].FqName)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", i, err)
		}
		if id.Package != pkg {
			return nil, fmt.Errorf("class %s is outside package %s", nt.ClassString(id), nt.FqString(pkg))
		}
		if _, dup := idx.classes[id]; dup {
			return nil, fmt.Errorf("class %s is written twice", nt.ClassString(id))
		}
		idx.classes[id] = &frag.Classes[i]
	}
	for _, ci := range frag.Package.Classes {
		id, err := r.ClassId(ci)
		if err != nil {
			return nil, fmt.Errorf("package class: %w", err)
		}
		if _, ok := idx.classes[id]; !ok {
			return nil, fmt.Errorf("package lists missing class %s", nt.ClassString(id))
		}
		idx.top = append(idx.top, id)
	}
	return idx, nil
}

// Decorations adds information found outside metadata, such as compiled
// class files, to deserialized callables.
type Decorations interface {
	MemberAnnotations(c *descriptors.CallableDescriptor) []descriptors.Annotation
}

// Deserializer builds lazy descriptors for the classes and members of one
// fragment. Every class is built at most once.
type Deserializer struct {
	module  *descriptors.ModuleDescriptor
	nt      *names.Table
	in      *types.Interner
	idx     *fragmentIndex
	annos   annotationReader
	extra   Decorations
	owner   *descriptors.PackageDescriptor
	classes *storage.MemoizedFunc[names.ClassId, *descriptors.ClassDescriptor]
	members *storage.LazyValue[[]*descriptors.CallableDescriptor]
}

// NewDeserializer indexes frag for module. owner is the package that
// receives top-level declarations.
func NewDeserializer(owner *descriptors.PackageDescriptor, frag *Fragment) (*Deserializer, error) {
	idx, err := indexFragment(owner.Module().Names(), frag)
	if err != nil {
		return nil, err
	}
	return newDeserializer(owner, idx, nil), nil
}

func newDeserializer(owner *descriptors.PackageDescriptor, idx *fragmentIndex, extra Decorations) *Deserializer {
	mod := owner.Module()
	d := &Deserializer{
		module: mod,
		nt:     mod.Names(),
		in:     mod.Types(),
		idx:    idx,
		annos:  annotationReader{names: idx.resolver},
		extra:  extra,
		owner:  owner,
	}
	d.classes = storage.NewMemoizedFunc(mod.Storage(), d.computeClass,
		storage.Named("deserialized class("+d.nt.FqString(idx.pkg)+")"))
	d.members = storage.NewLazyValue(mod.Storage(), d.computeMembers,
		storage.Named("deserialized members("+d.nt.FqString(idx.pkg)+")"))
	return d
}

func (d *Deserializer) Package() names.FqName { return d.idx.pkg }

// Classes returns the top-level classes of the fragment.
func (d *Deserializer) Classes() []names.ClassId { return d.idx.top }

func (d *Deserializer) HasClass(id names.ClassId) bool {
	_, ok := d.idx.classes[id]
	return ok
}

// Class builds any class of the fragment, nested ones included.
func (d *Deserializer) Class(id names.ClassId) (*descriptors.ClassDescriptor, error) {
	return d.classes.Get(id)
}

// Members builds the top-level functions and properties.
func (d *Deserializer) Members() ([]*descriptors.CallableDescriptor, error) {
	return d.members.Get()
}

func (d *Deserializer) computeMembers() ([]*descriptors.CallableDescriptor, error) {
	msgs := d.idx.frag.Package.Members
	if len(msgs) == 0 {
		return nil, nil
	}
	out := make([]*descriptors.CallableDescriptor, 0, len(msgs))
	for i := range msgs {
		c, err := d.callable(d.owner, &msgs[i], nil)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (d *Deserializer) computeClass(id names.ClassId) (*descriptors.ClassDescriptor, error) {
	msg, ok := d.idx.classes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, d.nt.ClassString(id))
	}
	src := &classSource{d: d, msg: msg}
	var owner descriptors.Descriptor = d.owner
	if outerID, nested := d.nt.Outer(id); nested {
		outer, err := d.classes.Get(outerID)
		if err != nil {
			return nil, fmt.Errorf("outer of %s: %w", d.nt.ClassString(id), err)
		}
		owner = outer
	}
	f := msg.Flags
	spec := descriptors.ClassSpec{
		Header: descriptors.Header{
			Name:        d.nt.ClassName(id),
			Visibility:  visibilityOf(f),
			Modality:    modalityOf(f),
			Annotations: d.lazyAnnotations(msg.Annotations),
		},
		ID:        id,
		ClassKind: descriptors.ClassKind(flagClassKind.get(f)),
		Inner:     flagInner.is(f),
		Companion: flagCompanion.is(f),
	}
	return descriptors.NewClass(owner, spec, src), nil
}

func (d *Deserializer) lazyAnnotations(list []AnnotationMessage) func() ([]descriptors.Annotation, error) {
	if len(list) == 0 {
		return nil
	}
	return func() ([]descriptors.Annotation, error) { return d.annos.annotations(list) }
}

// paramScope maps message type parameter ids to descriptors. Lookups fall
// back to the enclosing declaration.
type paramScope struct {
	parent *paramScope
	params map[int32]*descriptors.TypeParameter
}

func (s *paramScope) child() *paramScope {
	return &paramScope{parent: s, params: make(map[int32]*descriptors.TypeParameter)}
}

func (s *paramScope) lookup(id int32) (*descriptors.TypeParameter, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if tp, ok := cur.params[id]; ok {
			return tp, true
		}
	}
	return nil, false
}

// typeParameters creates the parameters of owner and registers them in sc
// before any bound is read.
func (d *Deserializer) typeParameters(owner descriptors.Descriptor, msgs []TypeParameterMessage, sc *paramScope) ([]*descriptors.TypeParameter, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	out := make([]*descriptors.TypeParameter, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		name, err := d.idx.resolver.Simple(m.Name)
		if err != nil {
			return nil, fmt.Errorf("type parameter name: %w", err)
		}
		if _, dup := sc.params[m.ID]; dup {
			return nil, fmt.Errorf("type parameter id %d is declared twice", m.ID)
		}
		bounds := m.UpperBounds
		tp := descriptors.NewTypeParameter(owner, i, descriptors.Header{Name: name}, types.Variance(m.Variance), m.Reified,
			func(*descriptors.TypeParameter) ([]types.TypeID, error) {
				if len(bounds) == 0 {
					return nil, nil
				}
				out := make([]types.TypeID, 0, len(bounds))
				for j := range bounds {
					t, err := d.typ(&bounds[j], sc)
					if err != nil {
						return nil, err
					}
					out = append(out, t)
				}
				return out, nil
			})
		sc.params[m.ID] = tp
		out = append(out, tp)
	}
	return out, nil
}

func (d *Deserializer) callable(owner descriptors.Descriptor, m *CallableMessage, outer *paramScope) (*descriptors.CallableDescriptor, error) {
	r := d.idx.resolver
	name, err := r.Simple(m.Name)
	if err != nil {
		return nil, fmt.Errorf("callable name: %w", err)
	}
	f := m.Flags
	var self *descriptors.CallableDescriptor
	annos := d.lazyAnnotations(m.Annotations)
	if d.extra != nil {
		own := annos
		annos = func() ([]descriptors.Annotation, error) {
			var out []descriptors.Annotation
			if own != nil {
				list, err := own()
				if err != nil {
					return nil, err
				}
				out = append(out, list...)
			}
			return append(out, d.extra.MemberAnnotations(self)...), nil
		}
	}
	spec := descriptors.CallableSpec{
		Header: descriptors.Header{
			Name:        name,
			Visibility:  visibilityOf(f),
			Modality:    modalityOf(f),
			Annotations: annos,
		},
		CallableKind: descriptors.CallableKind(flagCallableKind.get(f)),
		MemberKind:   descriptors.MemberKind(flagMemberKind.get(f)),
		Mutable:      flagVar.is(f),
		Operator:     flagOperator.is(f),
		HasBody:      flagHasBody.is(f),
		Primary:      flagPrimary.is(f),
	}
	var sigErr error
	self = descriptors.NewCallable(owner, spec, func(c *descriptors.CallableDescriptor) descriptors.Signature {
		sig, err := d.signature(c, m, outer.child())
		sigErr = err
		return sig
	})
	if sigErr != nil {
		return nil, fmt.Errorf("%s: %w", d.nt.MustLookup(name), sigErr)
	}
	return self, nil
}

func (d *Deserializer) signature(c *descriptors.CallableDescriptor, m *CallableMessage, sc *paramScope) (descriptors.Signature, error) {
	var sig descriptors.Signature
	var err error
	if sig.TypeParameters, err = d.typeParameters(c, m.TypeParameters, sc); err != nil {
		return sig, err
	}
	if m.ReceiverType != nil {
		if sig.ExtensionReceiver, err = d.typ(m.ReceiverType, sc); err != nil {
			return sig, fmt.Errorf("receiver: %w", err)
		}
	}
	for i := range m.ValueParameters {
		p, err := d.valueParameter(c, i, &m.ValueParameters[i], sc)
		if err != nil {
			return sig, err
		}
		sig.ValueParameters = append(sig.ValueParameters, p)
	}
	if m.ReturnType == nil {
		return sig, errors.New("missing return type")
	}
	ret := m.ReturnType
	sig.ReturnType = func() (types.TypeID, error) { return d.typ(ret, sc) }
	sig.Getter = d.accessor(c, m.GetterFlags, false)
	sig.Setter = d.accessor(c, m.SetterFlags, true)
	return sig, nil
}

func (d *Deserializer) valueParameter(owner *descriptors.CallableDescriptor, i int, m *ValueParameterMessage, sc *paramScope) (*descriptors.ValueParameter, error) {
	name, err := d.idx.resolver.Simple(m.Name)
	if err != nil {
		return nil, fmt.Errorf("parameter %d name: %w", i, err)
	}
	typ, err := d.typ(m.Type, sc)
	if err != nil {
		return nil, fmt.Errorf("parameter %d: %w", i, err)
	}
	elem := types.NoTypeID
	if m.VarargElementType != nil {
		if elem, err = d.typ(m.VarargElementType, sc); err != nil {
			return nil, fmt.Errorf("parameter %d vararg: %w", i, err)
		}
	}
	h := descriptors.Header{Name: name, Annotations: d.lazyAnnotations(m.Annotations)}
	return descriptors.NewValueParameter(owner, i, h, typ, elem, flagDeclaresDefault.is(m.Flags)), nil
}

func (d *Deserializer) accessor(prop *descriptors.CallableDescriptor, f Flags, setter bool) *descriptors.PropertyAccessor {
	if !flagAccessorPresent.is(f) {
		return nil
	}
	h := descriptors.Header{Name: prop.Name(), Visibility: visibilityOf(f), Modality: modalityOf(f)}
	return descriptors.NewPropertyAccessor(prop, h, setter, !flagNotDefault.is(f))
}

func (d *Deserializer) typ(m *TypeMessage, sc *paramScope) (types.TypeID, error) {
	if m == nil {
		return types.NoTypeID, errors.New("missing type")
	}
	var t types.TypeID
	switch {
	case m.ClassName != noIndex:
		id, err := d.idx.resolver.ClassId(m.ClassName)
		if err != nil {
			return types.NoTypeID, err
		}
		args := make([]types.Projection, 0, len(m.Arguments))
		for i := range m.Arguments {
			p, err := d.projection(&m.Arguments[i], sc)
			if err != nil {
				return types.NoTypeID, err
			}
			args = append(args, p)
		}
		t = d.in.Class(id, args...)
	case m.TypeParameter != noIndex:
		tp, ok := sc.lookup(m.TypeParameter)
		if !ok {
			return types.NoTypeID, fmt.Errorf("type parameter id %d is not in scope", m.TypeParameter)
		}
		t = tp.Type()
	default:
		return types.NoTypeID, errors.New("type has neither a class nor a type parameter")
	}
	if m.Nullable {
		t = d.in.MakeNullable(t)
	}
	if m.FlexibleUpperBound == nil {
		return t, nil
	}
	upper, err := d.typ(m.FlexibleUpperBound, sc)
	if err != nil {
		return types.NoTypeID, fmt.Errorf("flexible upper bound: %w", err)
	}
	capability := ""
	if m.FlexibleCapabilityID != noIndex {
		if capability, err = d.idx.resolver.String(m.FlexibleCapabilityID); err != nil {
			return types.NoTypeID, err
		}
	}
	return d.in.Flexible(t, upper, capability), nil
}

func (d *Deserializer) projection(a *TypeArgument, sc *paramScope) (types.Projection, error) {
	if a.Projection == ProjectionStar {
		return types.Projection{Star: true}, nil
	}
	t, err := d.typ(a.Type, sc)
	if err != nil {
		return types.Projection{}, err
	}
	v := types.VarInvariant
	switch a.Projection {
	case ProjectionIn:
		v = types.VarIn
	case ProjectionOut:
		v = types.VarOut
	case ProjectionInv:
	default:
		return types.Projection{}, fmt.Errorf("unknown projection %d", a.Projection)
	}
	return types.Projection{Variance: v, Type: t}, nil
}

// classSource computes the lazy parts of a deserialized class.
type classSource struct {
	d   *Deserializer
	msg *ClassMessage
	// own is filled by TypeParameters before any member is built.
	own *paramScope
}

// scope forces the type parameters of c and its outer classes.
func (s *classSource) scope(c *descriptors.ClassDescriptor) *paramScope {
	c.TypeParameters()
	if s.own != nil {
		return s.own
	}
	return &paramScope{params: map[int32]*descriptors.TypeParameter{}}
}

func (s *classSource) outerScope(c *descriptors.ClassDescriptor) *paramScope {
	outer := descriptors.ContainingClass(c)
	if outer == nil {
		return nil
	}
	ids := outer.TypeParameters()
	sc := &paramScope{parent: s.outerScope(outer), params: make(map[int32]*descriptors.TypeParameter, len(ids))}
	msg := s.d.idx.classes[outer.ID()]
	if msg == nil {
		return sc
	}
	for i := range msg.TypeParameters {
		if i < len(ids) {
			sc.params[msg.TypeParameters[i].ID] = ids[i]
		}
	}
	return sc
}

func (s *classSource) TypeParameters(c *descriptors.ClassDescriptor) ([]*descriptors.TypeParameter, error) {
	sc := s.outerScope(c).child()
	tps, err := s.d.typeParameters(c, s.msg.TypeParameters, sc)
	if err != nil {
		return nil, err
	}
	s.own = sc
	return tps, nil
}

func (s *classSource) Supertypes(c *descriptors.ClassDescriptor) ([]types.TypeID, error) {
	b := s.d.in.Builtins()
	if len(s.msg.Supertypes) == 0 {
		if b.IsRoot(c.ID()) {
			return nil, nil
		}
		return []types.TypeID{b.AnyType}, nil
	}
	sc := s.scope(c)
	out := make([]types.TypeID, 0, len(s.msg.Supertypes))
	for i := range s.msg.Supertypes {
		t, err := s.d.typ(&s.msg.Supertypes[i], sc)
		if err != nil {
			return nil, fmt.Errorf("supertype %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *classSource) Members(c *descriptors.ClassDescriptor) ([]*descriptors.CallableDescriptor, error) {
	if len(s.msg.Members) == 0 {
		return nil, nil
	}
	sc := s.scope(c)
	out := make([]*descriptors.CallableDescriptor, 0, len(s.msg.Members))
	for i := range s.msg.Members {
		m, err := s.d.callable(c, &s.msg.Members[i], sc)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Constructors rebuilds the primary constructor. An empty message stands
// for the implicit public constructor without parameters.
func (s *classSource) Constructors(c *descriptors.ClassDescriptor) ([]*descriptors.CallableDescriptor, error) {
	pc := s.msg.PrimaryConstructor
	if pc == nil {
		return nil, nil
	}
	if pc.Data != nil {
		ctor, err := s.d.callable(c, pc.Data, s.scope(c))
		if err != nil {
			return nil, err
		}
		return []*descriptors.CallableDescriptor{ctor}, nil
	}
	spec := descriptors.CallableSpec{
		Header:       descriptors.Header{Name: s.d.nt.Intern("<init>"), Visibility: descriptors.Public},
		CallableKind: descriptors.CallableConstructor,
		MemberKind:   descriptors.MemberSynthesized,
		Primary:      true,
	}
	ctor := descriptors.NewCallable(c, spec, func(*descriptors.CallableDescriptor) descriptors.Signature {
		return descriptors.Signature{ReturnType: func() (types.TypeID, error) { return c.DefaultType(), nil }}
	})
	return []*descriptors.CallableDescriptor{ctor}, nil
}

// NestedClasses returns enum entries first, then the other nested classes.
func (s *classSource) NestedClasses(c *descriptors.ClassDescriptor) ([]*descriptors.ClassDescriptor, error) {
	n := len(s.msg.EnumEntries) + len(s.msg.NestedClassNames)
	if n == 0 {
		return nil, nil
	}
	out := make([]*descriptors.ClassDescriptor, 0, n)
	for _, list := range [][]int32{s.msg.EnumEntries, s.msg.NestedClassNames} {
		for _, idx := range list {
			name, err := s.d.idx.resolver.Simple(idx)
			if err != nil {
				return nil, fmt.Errorf("nested class name: %w", err)
			}
			nc, err := s.d.classes.Get(s.d.nt.Nested(c.ID(), name))
			if err != nil {
				return nil, err
			}
			out = append(out, nc)
		}
	}
	if s.msg.ClassObject != nil {
		name, err := s.d.idx.resolver.Simple(s.msg.ClassObject.Name)
		if err != nil {
			return nil, fmt.Errorf("class object name: %w", err)
		}
		if comp := findNested(out, name); comp == nil || !comp.IsCompanion() {
			return nil, fmt.Errorf("class object %s is not a nested companion", s.d.nt.MustLookup(name))
		}
	}
	return out, nil
}

func findNested(list []*descriptors.ClassDescriptor, name names.Name) *descriptors.ClassDescriptor {
	for _, c := range list {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

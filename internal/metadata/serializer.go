package metadata

import (
	"fmt"
	"slices"
	"strings"

	"frontcore/internal/descriptors"
	"frontcore/internal/names"
	"frontcore/internal/types"
)

// ContractViolation is the panic value of a serializer asked to write
// something that must never reach metadata, such as an error type.
type ContractViolation struct {
	Msg string
}

func (e *ContractViolation) Error() string { return "metadata: contract violation: " + e.Msg }

func violation(format string, args ...any) *ContractViolation {
	return &ContractViolation{Msg: fmt.Sprintf(format, args...)}
}

// typeParamTable numbers the type parameters visible in one class tree.
// Child tables continue the numbering of their parent without affecting it.
type typeParamTable struct {
	parent *typeParamTable
	ids    map[types.TypeParamID]int32
	next   int32
}

func newTypeParamTable() *typeParamTable {
	return &typeParamTable{ids: make(map[types.TypeParamID]int32)}
}

func (t *typeParamTable) child() *typeParamTable {
	return &typeParamTable{parent: t, ids: make(map[types.TypeParamID]int32), next: t.next}
}

func (t *typeParamTable) intern(p types.TypeParamID) int32 {
	if id, ok := t.lookup(p); ok {
		return id
	}
	id := t.next
	t.ids[p] = id
	t.next++
	return id
}

func (t *typeParamTable) lookup(p types.TypeParamID) (int32, bool) {
	for cur := t; cur != nil; cur = cur.parent {
		if id, ok := cur.ids[p]; ok {
			return id, true
		}
	}
	return 0, false
}

// Serializer writes descriptors into messages sharing one name table.
type Serializer struct {
	names *names.Table
	in    *types.Interner
	table *names.NameTableBuilder
	annos *AnnotationSerializer
}

func NewSerializer(nt *names.Table, in *types.Interner) *Serializer {
	table := names.NewNameTableBuilder(nt)
	return &Serializer{names: nt, in: in, table: table, annos: NewAnnotationSerializer(table)}
}

// NameTable returns every name the produced messages refer to.
func (s *Serializer) NameTable() names.NameTable { return s.table.Table() }

// SerializePackage writes the package p with every class declared in it.
func SerializePackage(p *descriptors.PackageDescriptor) *Fragment {
	mod := p.Module()
	s := NewSerializer(mod.Names(), mod.Types())
	pkg := s.PackageProto(p)
	var classes []ClassMessage
	var walk func(c *descriptors.ClassDescriptor)
	walk = func(c *descriptors.ClassDescriptor) {
		classes = append(classes, *s.ClassProto(c))
		for _, n := range c.NestedClasses() {
			walk(n)
		}
	}
	for _, c := range packageClasses(p) {
		walk(c)
	}
	return &Fragment{Names: s.NameTable(), Package: *pkg, Classes: classes}
}

func packageClasses(p *descriptors.PackageDescriptor) []*descriptors.ClassDescriptor {
	var out []*descriptors.ClassDescriptor
	for _, d := range p.MemberScope().All() {
		if c, ok := d.(*descriptors.ClassDescriptor); ok && !c.IsError() {
			out = append(out, c)
		}
	}
	nt := p.Module().Names()
	slices.SortFunc(out, func(a, b *descriptors.ClassDescriptor) int {
		return strings.Compare(nt.MustLookup(a.Name()), nt.MustLookup(b.Name()))
	})
	return out
}

// serializableMembers drops fake overrides and sorts the rest canonically.
func serializableMembers(ds []*descriptors.CallableDescriptor) []*descriptors.CallableDescriptor {
	var out []*descriptors.CallableDescriptor
	for _, d := range ds {
		if d.MemberKind() != descriptors.MemberFakeOverride {
			out = append(out, d)
		}
	}
	descriptors.SortMembers(out)
	return out
}

func (s *Serializer) PackageProto(p *descriptors.PackageDescriptor) *PackageMessage {
	out := &PackageMessage{FqName: s.table.Qualified(p.FqName(), names.QualifiedPackage)}
	var members []*descriptors.CallableDescriptor
	for _, d := range p.MemberScope().All() {
		if c, ok := d.(*descriptors.CallableDescriptor); ok {
			members = append(members, c)
		}
	}
	tab := newTypeParamTable()
	for _, m := range serializableMembers(members) {
		out.Members = append(out.Members, *s.callable(m, tab))
	}
	for _, c := range packageClasses(p) {
		out.Classes = append(out.Classes, s.table.ClassIndex(c.ID()))
	}
	return out
}

// chainTable numbers the type parameters of c and its outer classes,
// outermost first, so that ids do not depend on which class of the tree is
// written first.
func chainTable(c *descriptors.ClassDescriptor) *typeParamTable {
	var chain []*descriptors.ClassDescriptor
	for cur := c; cur != nil; cur = descriptors.ContainingClass(cur) {
		chain = append(chain, cur)
	}
	tab := newTypeParamTable()
	for i := len(chain) - 1; i >= 0; i-- {
		for _, tp := range chain[i].TypeParameters() {
			tab.intern(tp.ID())
		}
	}
	return tab
}

func (s *Serializer) ClassProto(c *descriptors.ClassDescriptor) *ClassMessage {
	if c.IsError() {
		panic(violation("error class %s", s.names.ClassString(c.ID())))
	}
	tab := chainTable(c)
	out := &ClassMessage{
		Flags:          classFlags(c),
		FqName:         s.table.ClassIndex(c.ID()),
		TypeParameters: s.typeParameters(c.TypeParameters(), tab),
		Annotations:    s.annos.Annotations(c.Annotations()),
	}
	if !s.in.Builtins().IsRoot(c.ID()) {
		for _, st := range c.Supertypes() {
			out.Supertypes = append(out.Supertypes, *s.typeProto(st, tab))
		}
	}
	if pc := c.PrimaryConstructor(); pc != nil {
		out.PrimaryConstructor = &PrimaryConstructor{}
		if !isDefaultConstructor(pc) {
			out.PrimaryConstructor.Data = s.callable(pc, tab)
		}
	}
	for _, m := range serializableMembers(c.DeclaredMembers()) {
		out.Members = append(out.Members, *s.callable(m, tab))
	}
	for _, n := range c.NestedClasses() {
		idx := s.table.Simple(n.Name())
		if n.ClassKind() == descriptors.ClassEnumEntry {
			out.EnumEntries = append(out.EnumEntries, idx)
		} else {
			out.NestedClassNames = append(out.NestedClassNames, idx)
		}
	}
	if comp := c.Companion(); comp != nil {
		out.ClassObject = &ClassObjectMessage{Name: s.table.Simple(comp.Name())}
	}
	return out
}

func isDefaultConstructor(c *descriptors.CallableDescriptor) bool {
	return c.Visibility() == descriptors.Public && len(c.ValueParameters()) == 0 && len(c.Annotations()) == 0
}

// CallableProto writes a function, property or constructor of any owner.
func (s *Serializer) CallableProto(c *descriptors.CallableDescriptor) *CallableMessage {
	tab := newTypeParamTable()
	if cls := descriptors.ContainingClass(c); cls != nil {
		tab = chainTable(cls)
	}
	return s.callable(c, tab)
}

func (s *Serializer) callable(c *descriptors.CallableDescriptor, outer *typeParamTable) *CallableMessage {
	tab := outer.child()
	out := &CallableMessage{
		Flags:          callableFlags(c),
		Name:           s.table.Simple(c.Name()),
		TypeParameters: s.typeParameters(c.TypeParameters(), tab),
		GetterFlags:    accessorFlags(c.Getter()),
		SetterFlags:    accessorFlags(c.Setter()),
		Annotations:    s.annos.Annotations(c.Annotations()),
	}
	if ext := c.ExtensionReceiver(); ext != types.NoTypeID {
		out.ReceiverType = s.typeProto(ext, tab)
	}
	for _, p := range c.ValueParameters() {
		vp := ValueParameterMessage{
			Flags:       valueParameterFlags(p),
			Name:        s.table.Simple(p.Name()),
			Type:        s.typeProto(p.Type(), tab),
			Annotations: s.annos.Annotations(p.Annotations()),
		}
		if p.IsVararg() {
			vp.VarargElementType = s.typeProto(p.VarargElementType(), tab)
		}
		out.ValueParameters = append(out.ValueParameters, vp)
	}
	out.ReturnType = s.returnType(c, tab)
	return out
}

// returnType widens types that cannot be written, such as local classes,
// to Any.
func (s *Serializer) returnType(c *descriptors.CallableDescriptor, tab *typeParamTable) *TypeMessage {
	t := c.ReturnType()
	if s.in.ContainsError(t) {
		panic(violation("return type of %s is an error type: %s", s.names.MustLookup(c.Name()), s.in.String(t)))
	}
	if !s.serializable(t, tab) {
		t = s.in.Builtins().AnyType
	}
	return s.typeProto(t, tab)
}

func (s *Serializer) serializable(t types.TypeID, tab *typeParamTable) bool {
	if !s.in.IsDenotable(t) {
		return false
	}
	typ := s.in.MustLookup(t)
	if typ.Kind == types.KindFlexible {
		return s.serializable(typ.Lower, tab) && s.serializable(typ.Upper, tab)
	}
	switch typ.Ctor.Kind {
	case types.CtorClass:
		if typ.Ctor.Class.Local {
			return false
		}
	case types.CtorTypeParam:
		if _, ok := tab.lookup(typ.Ctor.Param); !ok {
			return false
		}
	}
	for _, a := range typ.Args {
		if !a.Star && !s.serializable(a.Type, tab) {
			return false
		}
	}
	return true
}

// typeParameters interns every parameter before writing bounds, which may
// refer to later parameters.
func (s *Serializer) typeParameters(tps []*descriptors.TypeParameter, tab *typeParamTable) []TypeParameterMessage {
	if len(tps) == 0 {
		return nil
	}
	for _, tp := range tps {
		tab.intern(tp.ID())
	}
	out := make([]TypeParameterMessage, 0, len(tps))
	for _, tp := range tps {
		id, _ := tab.lookup(tp.ID())
		msg := TypeParameterMessage{
			ID:       id,
			Name:     s.table.Simple(tp.Name()),
			Variance: uint8(tp.Variance()),
			Reified:  tp.IsReified(),
		}
		for _, b := range tp.DeclaredUpperBounds() {
			msg.UpperBounds = append(msg.UpperBounds, *s.typeProto(b, tab))
		}
		out = append(out, msg)
	}
	return out
}

func (s *Serializer) typeProto(t types.TypeID, tab *typeParamTable) *TypeMessage {
	typ, ok := s.in.Lookup(t)
	if !ok {
		panic(violation("unknown type %d", t))
	}
	switch typ.Kind {
	case types.KindError:
		panic(violation("error type %s", s.in.String(t)))
	case types.KindFlexible:
		out := s.typeProto(typ.Lower, tab)
		out.FlexibleUpperBound = s.typeProto(typ.Upper, tab)
		if typ.Capability != "" {
			out.FlexibleCapabilityID = s.table.String(typ.Capability)
		}
		return out
	}
	out := &TypeMessage{
		ClassName:            noIndex,
		TypeParameter:        noIndex,
		Nullable:             typ.Nullable,
		FlexibleCapabilityID: noIndex,
	}
	switch typ.Ctor.Kind {
	case types.CtorClass:
		if typ.Ctor.Class.Local {
			panic(violation("local class %s is not denotable", s.names.ClassString(typ.Ctor.Class)))
		}
		out.ClassName = s.table.ClassIndex(typ.Ctor.Class)
	case types.CtorTypeParam:
		id, ok := tab.lookup(typ.Ctor.Param)
		if !ok {
			panic(violation("type parameter %s is not in scope", s.in.String(t)))
		}
		out.TypeParameter = id
	default:
		panic(violation("type %s is not denotable", s.in.String(t)))
	}
	for _, a := range typ.Args {
		arg := TypeArgument{Projection: projectionOf(a)}
		if !a.Star {
			arg.Type = s.typeProto(a.Type, tab)
		}
		out.Arguments = append(out.Arguments, arg)
	}
	return out
}

func projectionOf(p types.Projection) Projection {
	switch {
	case p.Star:
		return ProjectionStar
	case p.Variance == types.VarIn:
		return ProjectionIn
	case p.Variance == types.VarOut:
		return ProjectionOut
	}
	return ProjectionInv
}

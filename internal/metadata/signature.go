package metadata

import (
	"fmt"
	"strings"

	"frontcore/internal/descriptors"
	"frontcore/internal/names"
	"frontcore/internal/types"
)

// MemberSignature identifies a member inside a compiled class file:
// name+desc for methods, name#desc for fields, method@index for
// parameters.
type MemberSignature string

func MethodSignature(name, desc string) MemberSignature { return MemberSignature(name + desc) }
func FieldSignature(name, desc string) MemberSignature  { return MemberSignature(name + "#" + desc) }

func ParameterSignature(method MemberSignature, index int) MemberSignature {
	return MemberSignature(fmt.Sprintf("%s@%d", method, index))
}

// facadeName is the class holding the top-level members of a package.
const facadeName = "PackageKt"

// erasureDepth bounds chains of type parameters bounded by each other.
const erasureDepth = 16

// Signer computes internal names and descriptors in the style of JVM class
// files.
type Signer struct {
	module *descriptors.ModuleDescriptor
	nt     *names.Table
	in     *types.Interner
}

func NewSigner(module *descriptors.ModuleDescriptor) Signer {
	return Signer{module: module, nt: module.Names(), in: module.Types()}
}

// InternalName joins package segments with '/' and nested classes with '$'.
func InternalName(nt *names.Table, id names.ClassId) string {
	var sb strings.Builder
	for _, seg := range nt.Segments(id.Package) {
		sb.WriteString(nt.MustLookup(seg))
		sb.WriteByte('/')
	}
	for i, seg := range nt.Segments(id.Relative) {
		if i > 0 {
			sb.WriteByte('$')
		}
		sb.WriteString(nt.MustLookup(seg))
	}
	return sb.String()
}

// ClassIdFromInternal parses an internal name back into a ClassId.
func ClassIdFromInternal(nt *names.Table, internal string) names.ClassId {
	pkg, rel := "", internal
	if i := strings.LastIndexByte(internal, '/'); i >= 0 {
		pkg, rel = internal[:i], internal[i+1:]
	}
	return nt.ParseClassId(strings.ReplaceAll(pkg, "/", ".") + "/" + strings.ReplaceAll(rel, "$", "."))
}

// PackageFacade is the internal name of the facade class of fq.
func PackageFacade(nt *names.Table, fq names.FqName) string {
	var sb strings.Builder
	for _, seg := range nt.Segments(fq) {
		sb.WriteString(nt.MustLookup(seg))
		sb.WriteByte('/')
	}
	sb.WriteString(facadeName)
	return sb.String()
}

// Container is the internal name of the class file declaring c.
func (s Signer) Container(c *descriptors.CallableDescriptor) string {
	if cls := descriptors.ContainingClass(c); cls != nil {
		return InternalName(s.nt, cls.ID())
	}
	if p := descriptors.PackageOf(c); p != nil {
		return PackageFacade(s.nt, p.FqName())
	}
	return facadeName
}

// Member is the signature of c in its container. Properties are fields,
// everything else is a method.
func (s Signer) Member(c *descriptors.CallableDescriptor) MemberSignature {
	name := s.nt.MustLookup(c.Name())
	if c.CallableKind() == descriptors.CallableProperty {
		return FieldSignature(name, s.Desc(c.ReturnType()))
	}
	return MethodSignature(name, s.MethodDesc(c))
}

// MethodDesc is "(params)ret"; constructors return V and an extension
// receiver is the first parameter.
func (s Signer) MethodDesc(c *descriptors.CallableDescriptor) string {
	var sb strings.Builder
	sb.WriteByte('(')
	if ext := c.ExtensionReceiver(); ext != types.NoTypeID {
		sb.WriteString(s.Desc(ext))
	}
	for _, p := range c.ValueParameters() {
		sb.WriteString(s.Desc(p.Type()))
	}
	sb.WriteByte(')')
	if c.CallableKind() == descriptors.CallableConstructor {
		sb.WriteByte('V')
	} else {
		sb.WriteString(s.Desc(c.ReturnType()))
	}
	return sb.String()
}

// Desc is the erased descriptor of t.
func (s Signer) Desc(t types.TypeID) string {
	var sb strings.Builder
	s.desc(&sb, t, 0)
	return sb.String()
}

func (s Signer) desc(sb *strings.Builder, t types.TypeID, depth int) {
	typ, ok := s.in.Lookup(t)
	if !ok || typ.Kind == types.KindError || depth > erasureDepth {
		s.object(sb, s.in.Builtins().Any)
		return
	}
	if typ.Kind == types.KindFlexible {
		s.desc(sb, typ.Lower, depth+1)
		return
	}
	b := s.in.Builtins()
	switch typ.Ctor.Kind {
	case types.CtorClass:
		id := typ.Ctor.Class
		if !typ.Nullable {
			if p, ok := primitiveDesc(b, id); ok {
				sb.WriteByte(p)
				return
			}
		}
		if id == b.Array && len(typ.Args) == 1 {
			sb.WriteByte('[')
			if a := typ.Args[0]; !a.Star {
				s.desc(sb, s.in.MakeNotNullable(a.Type), depth+1)
				return
			}
			s.object(sb, b.Any)
			return
		}
		s.object(sb, id)
	case types.CtorTypeParam:
		bounds := s.module.UpperBounds(typ.Ctor.Param)
		if len(bounds) == 0 {
			s.object(sb, b.Any)
			return
		}
		s.desc(sb, s.in.MakeNullable(bounds[0]), depth+1)
	default:
		s.object(sb, b.Any)
	}
}

func (s Signer) object(sb *strings.Builder, id names.ClassId) {
	sb.WriteByte('L')
	sb.WriteString(InternalName(s.nt, id))
	sb.WriteByte(';')
}

func primitiveDesc(b *types.Builtins, id names.ClassId) (byte, bool) {
	switch id {
	case b.Unit:
		return 'V', true
	case b.Boolean:
		return 'Z', true
	case b.Char:
		return 'C', true
	case b.Byte:
		return 'B', true
	case b.Short:
		return 'S', true
	case b.Int:
		return 'I', true
	case b.Long:
		return 'J', true
	case b.Float:
		return 'F', true
	case b.Double:
		return 'D', true
	}
	return 0, false
}

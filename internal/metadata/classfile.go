package metadata

import (
	"frontcore/internal/binclass"
	"frontcore/internal/descriptors"
)

// ClassFiles writes the class files of a package: one facade for the
// top-level members and one file per class, nested classes included.
func ClassFiles(p *descriptors.PackageDescriptor) []binclass.File {
	s := NewSigner(p.Module())
	var members []*descriptors.CallableDescriptor
	for _, d := range p.MemberScope().All() {
		if c, ok := d.(*descriptors.CallableDescriptor); ok {
			members = append(members, c)
		}
	}
	out := []binclass.File{s.file(PackageFacade(s.nt, p.FqName()), nil, serializableMembers(members))}
	var walk func(c *descriptors.ClassDescriptor)
	walk = func(c *descriptors.ClassDescriptor) {
		out = append(out, s.ClassFile(c))
		for _, n := range c.NestedClasses() {
			walk(n)
		}
	}
	for _, c := range packageClasses(p) {
		walk(c)
	}
	return out
}

// ClassFile writes the members and annotations of c.
func (s Signer) ClassFile(c *descriptors.ClassDescriptor) binclass.File {
	members := append(serializableMembers(c.DeclaredMembers()), c.Constructors()...)
	return s.file(InternalName(s.nt, c.ID()), c.Annotations(), members)
}

func (s Signer) file(name string, annos []descriptors.Annotation, members []*descriptors.CallableDescriptor) binclass.File {
	f := binclass.File{Name: name, Annotations: s.annotations(annos)}
	for _, m := range members {
		if m.CallableKind() == descriptors.CallableProperty {
			f.Fields = append(f.Fields, binclass.Field{
				Name:        s.nt.MustLookup(m.Name()),
				Desc:        s.Desc(m.ReturnType()),
				Annotations: s.annotations(m.Annotations()),
			})
			continue
		}
		method := binclass.Method{
			Name:        s.nt.MustLookup(m.Name()),
			Desc:        s.MethodDesc(m),
			Annotations: s.annotations(m.Annotations()),
		}
		for _, p := range m.ValueParameters() {
			if annos := s.annotations(p.Annotations()); annos != nil {
				for len(method.ParameterAnnotations) < p.Index() {
					method.ParameterAnnotations = append(method.ParameterAnnotations, nil)
				}
				method.ParameterAnnotations = append(method.ParameterAnnotations, annos)
			}
		}
		f.Methods = append(f.Methods, method)
	}
	return f
}

func (s Signer) annotations(list []descriptors.Annotation) []binclass.Annotation {
	if len(list) == 0 {
		return nil
	}
	out := make([]binclass.Annotation, 0, len(list))
	for _, an := range list {
		out = append(out, s.annotation(an))
	}
	return out
}

func (s Signer) annotation(an descriptors.Annotation) binclass.Annotation {
	out := binclass.Annotation{Class: InternalName(s.nt, an.Class)}
	for _, arg := range an.Args {
		out.Args = append(out.Args, binclass.Arg{Name: s.nt.MustLookup(arg.Name), Value: s.value(arg.Value)})
	}
	return out
}

func (s Signer) value(v descriptors.ConstantValue) binclass.Value {
	switch v.Kind {
	case descriptors.ConstBool:
		out := binclass.Value{Tag: binclass.TagBoolean}
		if v.Bool {
			out.Int = 1
		}
		return out
	case descriptors.ConstByte:
		return binclass.Value{Tag: binclass.TagByte, Int: v.Int}
	case descriptors.ConstChar:
		return binclass.Value{Tag: binclass.TagChar, Int: v.Int}
	case descriptors.ConstShort:
		return binclass.Value{Tag: binclass.TagShort, Int: v.Int}
	case descriptors.ConstInt:
		return binclass.Value{Tag: binclass.TagInt, Int: v.Int}
	case descriptors.ConstLong:
		return binclass.Value{Tag: binclass.TagLong, Int: v.Int}
	case descriptors.ConstFloat:
		return binclass.Value{Tag: binclass.TagFloat, Float: float64(float32(v.Float))}
	case descriptors.ConstDouble:
		return binclass.Value{Tag: binclass.TagDouble, Float: v.Float}
	case descriptors.ConstString:
		return binclass.Value{Tag: binclass.TagString, Str: v.Str}
	case descriptors.ConstClass:
		return binclass.Value{Tag: binclass.TagClass, Class: InternalName(s.nt, v.Class)}
	case descriptors.ConstEnum:
		return binclass.Value{Tag: binclass.TagEnum, Class: InternalName(s.nt, v.Class), Str: s.nt.MustLookup(v.Entry)}
	case descriptors.ConstArray:
		out := binclass.Value{Tag: binclass.TagArray}
		for _, e := range v.Elems {
			out.Elems = append(out.Elems, s.value(e))
		}
		return out
	case descriptors.ConstAnnotation:
		if v.Annotation != nil {
			an := s.annotation(*v.Annotation)
			return binclass.Value{Tag: binclass.TagAnnotation, Annotation: &an}
		}
	}
	return binclass.Value{Tag: binclass.TagNull}
}

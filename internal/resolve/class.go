package resolve

import (
	"errors"
	"fmt"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

// sourceClass computes the lazy parts of a class declared in source.
type sourceClass struct {
	s     *Session
	fr    *fileResolver
	decl  ast.DeclID
	hdr   *ast.Decl
	data  *ast.ClassData
	outer *typeContext
}

func (s *Session) newSourceClass(owner descriptors.Descriptor, id names.ClassId, fr *fileResolver, declID ast.DeclID, outer *typeContext) *descriptors.ClassDescriptor {
	hdr := s.builder.Decls.Get(declID)
	data, _ := s.builder.Decls.Class(declID)
	if data == nil {
		data = &ast.ClassData{}
	}
	kind := classKind(data.Kind)
	src := &sourceClass{s: s, fr: fr, decl: declID, hdr: hdr, data: data, outer: outer}
	c := descriptors.NewClass(owner, descriptors.ClassSpec{
		Header:    s.header(fr, outer, hdr, classModality(kind, hdr.Modality), hdr.Visibility),
		ID:        id,
		ClassKind: kind,
		Inner:     data.Inner,
		Companion: data.Companion,
	}, src)
	binding.Record(s.trace, binding.Declaration, declID, descriptors.Descriptor(c))
	return c
}

// memberContext is what member signatures of c see: c and its enclosing
// classes, and the type parameters of c plus those of outer classes when c
// is inner.
func (src *sourceClass) memberContext(c *descriptors.ClassDescriptor) *typeContext {
	return src.outer.withClass(c.ID(), src.data.Inner).withParams(c.TypeParameters())
}

// supertypeContext differs from memberContext in not seeing the nested
// classes of c itself.
func (src *sourceClass) supertypeContext(c *descriptors.ClassDescriptor) *typeContext {
	tc := src.outer
	if !src.data.Inner {
		tc = &typeContext{classes: tc.classes}
	}
	return tc.withParams(c.TypeParameters())
}

func (src *sourceClass) TypeParameters(c *descriptors.ClassDescriptor) ([]*descriptors.TypeParameter, error) {
	return src.s.typeParameters(c, src.fr, src.data.TypeParams, func() *typeContext {
		return src.memberContext(c)
	}), nil
}

func (src *sourceClass) Supertypes(c *descriptors.ClassDescriptor) ([]types.TypeID, error) {
	s := src.s
	b := s.in.Builtins()
	if src.data.Kind == ast.ClassEnumEntry {
		if enum := descriptors.ContainingClass(c); enum != nil {
			return []types.TypeID{enum.DefaultType()}, nil
		}
	}
	tc := src.supertypeContext(c)
	var out []types.TypeID
	for _, ref := range src.data.Supertypes {
		t := src.fr.resolveType(ref, tc)
		if s.in.IsError(t) {
			continue
		}
		span := s.builder.TypeRefs.Get(ref).Span
		sc := s.module.ClassOfType(t)
		if sc == nil {
			diag.ReportError(s.reporter, diag.ResNotAClass, span,
				"only classes and interfaces can be supertypes").Emit()
			continue
		}
		if err := sc.SupertypesErr(); errors.Is(err, storage.ErrCyclicComputation) {
			diag.ReportError(s.reporter, diag.ResCyclicInheritance, span,
				"there's a cycle in the inheritance hierarchy for this type").Emit()
			return nil, fmt.Errorf("supertypes of %s: %w", s.names.ClassString(c.ID()), err)
		}
		if sc.Modality() == descriptors.Final && sc.ClassKind() != descriptors.ClassInterface && !sc.IsError() {
			diag.ReportError(s.reporter, diag.ResFinalSupertype, span,
				fmt.Sprintf("this type is final, so it cannot be inherited from: %s", s.in.String(t))).Emit()
		}
		out = append(out, t)
	}
	if len(out) == 0 && !b.IsRoot(c.ID()) {
		out = append(out, b.AnyType)
	}
	return out, nil
}

func (src *sourceClass) Members(c *descriptors.ClassDescriptor) ([]*descriptors.CallableDescriptor, error) {
	s := src.s
	tc := src.memberContext(c)
	var out []*descriptors.CallableDescriptor
	if ctor := src.data.Ctor; ctor != nil {
		for i := range ctor.Params {
			if ctor.Params[i].Property {
				out = append(out, s.newConstructorProperty(c, src.fr, tc, &ctor.Params[i]))
			}
		}
	}
	for _, m := range src.data.Members {
		decl := s.builder.Decls.Get(m)
		if decl == nil {
			continue
		}
		switch decl.Kind {
		case ast.DeclFunction:
			out = append(out, s.newFunction(c, src.fr, tc, m))
		case ast.DeclProperty:
			out = append(out, s.newProperty(c, src.fr, tc, m))
		}
	}
	return out, nil
}

func (src *sourceClass) Constructors(c *descriptors.ClassDescriptor) ([]*descriptors.CallableDescriptor, error) {
	if src.data.Kind == ast.ClassInterface {
		return nil, nil
	}
	return []*descriptors.CallableDescriptor{
		src.s.newConstructor(c, src.fr, src.memberContext(c), src.data.Ctor),
	}, nil
}

func (src *sourceClass) NestedClasses(c *descriptors.ClassDescriptor) ([]*descriptors.ClassDescriptor, error) {
	s := src.s
	tc := src.memberContext(c)
	var out []*descriptors.ClassDescriptor
	seen := make(map[names.Name]bool)
	companions := 0
	add := func(m ast.DeclID) {
		decl := s.builder.Decls.Get(m)
		if decl == nil || decl.Kind != ast.DeclClass {
			return
		}
		if seen[decl.Name] {
			diag.ReportError(s.reporter, diag.ResRedeclaration, decl.Span,
				fmt.Sprintf("redeclaration: %s", s.names.MustLookup(decl.Name))).Emit()
			return
		}
		seen[decl.Name] = true
		nested := s.newSourceClass(c, s.names.Nested(c.ID(), decl.Name), src.fr, m, tc)
		if nested.IsCompanion() {
			companions++
			if companions > 1 {
				diag.ReportError(s.reporter, diag.ResManyCompanionObjects, decl.Span,
					"only one companion object is allowed per class").Emit()
			}
		}
		out = append(out, nested)
	}
	for _, m := range src.data.EnumEntries {
		add(m)
	}
	for _, m := range src.data.Members {
		add(m)
	}
	return out, nil
}

func classKind(k ast.ClassKind) descriptors.ClassKind {
	switch k {
	case ast.ClassInterface:
		return descriptors.ClassInterface
	case ast.ClassEnum:
		return descriptors.ClassEnum
	case ast.ClassEnumEntry:
		return descriptors.ClassEnumEntry
	case ast.ClassObject:
		return descriptors.ClassObject
	case ast.ClassAnnotation:
		return descriptors.ClassAnnotation
	}
	return descriptors.ClassPlain
}

func classModality(kind descriptors.ClassKind, m ast.Modality) descriptors.Modality {
	if kind == descriptors.ClassInterface {
		return descriptors.Abstract
	}
	return modality(m, descriptors.Final)
}

func modality(m ast.Modality, def descriptors.Modality) descriptors.Modality {
	switch m {
	case ast.ModFinal:
		return descriptors.Final
	case ast.ModOpen:
		return descriptors.Open
	case ast.ModAbstract:
		return descriptors.Abstract
	case ast.ModSealed:
		return descriptors.Sealed
	}
	return def
}

func visibility(v ast.Visibility) descriptors.Visibility {
	switch v {
	case ast.VisInternal:
		return descriptors.Internal
	case ast.VisProtected:
		return descriptors.Protected
	case ast.VisPrivate:
		return descriptors.Private
	}
	return descriptors.Public
}

package resolve

import (
	"fmt"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/types"
)

// bodyKind tells what a registered declaration holds code for.
type bodyKind uint8

const (
	bodyFunction bodyKind = iota
	bodyProperty
	bodyClass
)

// bodyTarget is what checkBody needs to type the code of one declaration.
type bodyTarget struct {
	kind     bodyKind
	callable *descriptors.CallableDescriptor
	fr       *fileResolver
	tc       *typeContext
	fn       *ast.FunctionData
	prop     *ast.PropertyData
	ctor     *ast.PrimaryCtor
}

func (s *Session) register(decl ast.DeclID, t *bodyTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.targets[decl]; !ok {
		s.targets[decl] = t
	}
}

func (s *Session) target(decl ast.DeclID) *bodyTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets[decl]
}

func (s *Session) header(fr *fileResolver, tc *typeContext, hdr *ast.Decl, mod descriptors.Modality, vis ast.Visibility) descriptors.Header {
	h := descriptors.Header{
		Name:       hdr.Name,
		Visibility: visibility(vis),
		Modality:   mod,
		Source:     hdr.Span,
	}
	if len(hdr.Annotations) > 0 {
		list := hdr.Annotations
		h.Annotations = func() ([]descriptors.Annotation, error) {
			return s.annotations(fr, tc, list), nil
		}
	}
	return h
}

// memberModality applies the defaults of the owner: interface members are
// abstract without a body and open with one, everything else is final.
func memberModality(owner descriptors.Descriptor, m ast.Modality, hasBody bool) descriptors.Modality {
	def := descriptors.Final
	if cls, ok := owner.(*descriptors.ClassDescriptor); ok && cls.ClassKind() == descriptors.ClassInterface {
		def = descriptors.Open
		if !hasBody {
			def = descriptors.Abstract
		}
	}
	return modality(m, def)
}

// typeParameters creates the type parameters of owner. Bounds are resolved
// on first use in the context scope returns, so they may mention each other.
func (s *Session) typeParameters(owner descriptors.Descriptor, fr *fileResolver, decls []ast.TypeParam, scope func() *typeContext) []*descriptors.TypeParameter {
	if len(decls) == 0 {
		return nil
	}
	out := make([]*descriptors.TypeParameter, len(decls))
	seen := make(map[names.Name]bool, len(decls))
	for i := range decls {
		tp := &decls[i]
		if seen[tp.Name] {
			diag.ReportError(s.reporter, diag.ResRedeclaration, tp.Span,
				fmt.Sprintf("conflicting type parameters: %s", s.names.MustLookup(tp.Name))).Emit()
		}
		seen[tp.Name] = true
		bounds := tp.Bounds
		out[i] = descriptors.NewTypeParameter(owner, i, descriptors.Header{Name: tp.Name, Source: tp.Span},
			variance(tp.Variance), tp.Reified, func(*descriptors.TypeParameter) ([]types.TypeID, error) {
				return fr.resolveTypes(bounds, scope()), nil
			})
	}
	return out
}

func (s *Session) valueParameters(owner *descriptors.CallableDescriptor, fr *fileResolver, tc *typeContext, params []ast.Param) []*descriptors.ValueParameter {
	out := make([]*descriptors.ValueParameter, len(params))
	for i := range params {
		p := &params[i]
		t := fr.resolveType(p.Type, tc)
		elem := types.NoTypeID
		if p.Vararg {
			elem = t
			t = s.builtins.ArrayType(t, true)
		}
		h := descriptors.Header{Name: p.Name, Source: p.Span}
		if len(p.Annotations) > 0 {
			list := p.Annotations
			h.Annotations = func() ([]descriptors.Annotation, error) {
				return s.annotations(fr, tc, list), nil
			}
		}
		out[i] = descriptors.NewValueParameter(owner, i, h, t, elem, p.Default.IsValid())
	}
	return out
}

func (s *Session) newFunction(owner descriptors.Descriptor, fr *fileResolver, tc *typeContext, declID ast.DeclID) *descriptors.CallableDescriptor {
	hdr := s.builder.Decls.Get(declID)
	data, _ := s.builder.Decls.Function(declID)
	if data == nil {
		data = &ast.FunctionData{}
	}
	hasBody := data.Body.IsValid() || data.ExprBody.IsValid()
	var ftc *typeContext
	f := descriptors.NewCallable(owner, descriptors.CallableSpec{
		Header:       s.header(fr, tc, hdr, memberModality(owner, hdr.Modality, hasBody), hdr.Visibility),
		CallableKind: descriptors.CallableFunction,
		MemberKind:   descriptors.MemberDeclaration,
		Operator:     data.Operator,
		HasBody:      hasBody,
	}, func(c *descriptors.CallableDescriptor) descriptors.Signature {
		tps := s.typeParameters(c, fr, data.TypeParams, func() *typeContext { return ftc })
		ftc = tc.withParams(tps)
		ext := types.NoTypeID
		if data.Receiver.IsValid() {
			ext = fr.resolveType(data.Receiver, ftc)
		}
		return descriptors.Signature{
			TypeParameters:    tps,
			ExtensionReceiver: ext,
			ValueParameters:   s.valueParameters(c, fr, ftc, data.Params),
			ReturnType:        s.functionReturnType(fr, declID, data, func() *typeContext { return ftc }),
		}
	})
	s.register(declID, &bodyTarget{kind: bodyFunction, callable: f, fr: fr, tc: ftc, fn: data})
	binding.Record(s.trace, binding.Declaration, declID, descriptors.Descriptor(f))
	return f
}

// functionReturnType is the declared result type, the type of an
// expression body, or Unit for a block body without one.
func (s *Session) functionReturnType(fr *fileResolver, declID ast.DeclID, data *ast.FunctionData, tc func() *typeContext) func() (types.TypeID, error) {
	switch {
	case data.Return.IsValid():
		return func() (types.TypeID, error) { return fr.resolveType(data.Return, tc()), nil }
	case data.ExprBody.IsValid():
		return func() (types.TypeID, error) { return s.bodies.Get(declID) }
	}
	return nil
}

func (s *Session) newProperty(owner descriptors.Descriptor, fr *fileResolver, tc *typeContext, declID ast.DeclID) *descriptors.CallableDescriptor {
	hdr := s.builder.Decls.Get(declID)
	data, _ := s.builder.Decls.Property(declID)
	if data == nil {
		data = &ast.PropertyData{}
	}
	hasBody := data.Init.IsValid() || (data.Getter != nil && data.Getter.Body.IsValid())
	var ptc *typeContext
	p := descriptors.NewCallable(owner, descriptors.CallableSpec{
		Header:       s.header(fr, tc, hdr, memberModality(owner, hdr.Modality, hasBody), hdr.Visibility),
		CallableKind: descriptors.CallableProperty,
		MemberKind:   descriptors.MemberDeclaration,
		Mutable:      data.Mutable,
		HasBody:      hasBody,
	}, func(c *descriptors.CallableDescriptor) descriptors.Signature {
		tps := s.typeParameters(c, fr, data.TypeParams, func() *typeContext { return ptc })
		ptc = tc.withParams(tps)
		ext := types.NoTypeID
		if data.Receiver.IsValid() {
			ext = fr.resolveType(data.Receiver, ptc)
		}
		sig := descriptors.Signature{
			TypeParameters:    tps,
			ExtensionReceiver: ext,
			ReturnType:        s.propertyType(fr, hdr, declID, data, func() *typeContext { return ptc }),
			Getter:            s.accessor(c, hdr, data.Getter, false),
		}
		if data.Mutable {
			sig.Setter = s.accessor(c, hdr, data.Setter, true)
		}
		return sig
	})
	s.register(declID, &bodyTarget{kind: bodyProperty, callable: p, fr: fr, tc: ptc, prop: data})
	binding.Record(s.trace, binding.Declaration, declID, descriptors.Descriptor(p))
	return p
}

func (s *Session) accessor(p *descriptors.CallableDescriptor, hdr *ast.Decl, a *ast.Accessor, setter bool) *descriptors.PropertyAccessor {
	h := descriptors.Header{Name: hdr.Name, Visibility: visibility(hdr.Visibility), Modality: p.Modality(), Source: hdr.Span}
	if a == nil {
		return descriptors.NewPropertyAccessor(p, h, setter, true)
	}
	if a.Visibility != ast.VisDefault {
		h.Visibility = visibility(a.Visibility)
	}
	h.Source = a.Span
	return descriptors.NewPropertyAccessor(p, h, setter, !a.Body.IsValid())
}

// propertyType is the declared type or the one inferred from the
// initializer or getter.
func (s *Session) propertyType(fr *fileResolver, hdr *ast.Decl, declID ast.DeclID, data *ast.PropertyData, tc func() *typeContext) func() (types.TypeID, error) {
	switch {
	case data.Type.IsValid():
		return func() (types.TypeID, error) { return fr.resolveType(data.Type, tc()), nil }
	case data.Init.IsValid(), data.Getter != nil && data.Getter.Body.IsValid():
		return func() (types.TypeID, error) { return s.bodies.Get(declID) }
	}
	return func() (types.TypeID, error) {
		msg := "this property must either have a type annotation or be initialized"
		diag.ReportError(s.reporter, diag.TypNoTypeNoInitializer, hdr.Span, msg).Emit()
		return s.in.Error(msg), nil
	}
}

// newConstructorProperty declares the property of a val or var
// constructor parameter.
func (s *Session) newConstructorProperty(c *descriptors.ClassDescriptor, fr *fileResolver, tc *typeContext, param *ast.Param) *descriptors.CallableDescriptor {
	hdr := &ast.Decl{Kind: ast.DeclProperty, Span: param.Span, Name: param.Name, Annotations: param.Annotations}
	return descriptors.NewCallable(c, descriptors.CallableSpec{
		Header:       s.header(fr, tc, hdr, memberModality(c, ast.ModDefault, true), ast.VisDefault),
		CallableKind: descriptors.CallableProperty,
		MemberKind:   descriptors.MemberDeclaration,
		Mutable:      param.Mutable,
		HasBody:      true,
	}, func(p *descriptors.CallableDescriptor) descriptors.Signature {
		sig := descriptors.Signature{
			ReturnType: func() (types.TypeID, error) {
				t := fr.resolveType(param.Type, tc)
				if param.Vararg {
					t = s.builtins.ArrayType(t, true)
				}
				return t, nil
			},
			Getter: s.accessor(p, hdr, nil, false),
		}
		if param.Mutable {
			sig.Setter = s.accessor(p, hdr, nil, true)
		}
		return sig
	})
}

// newConstructor creates the primary constructor of c. Without a declared
// one the class gets a synthesized default constructor; objects keep it
// private.
func (s *Session) newConstructor(c *descriptors.ClassDescriptor, fr *fileResolver, tc *typeContext, ctor *ast.PrimaryCtor) *descriptors.CallableDescriptor {
	h := descriptors.Header{Name: s.names.Intern("<init>"), Source: c.Source()}
	kind := descriptors.MemberDeclaration
	var params []ast.Param
	switch {
	case ctor != nil:
		h.Visibility = visibility(ctor.Visibility)
		h.Source = ctor.Span
		params = ctor.Params
	case c.ClassKind().IsSingleton():
		h.Visibility = descriptors.Private
		kind = descriptors.MemberSynthesized
	default:
		kind = descriptors.MemberSynthesized
	}
	out := descriptors.NewCallable(c, descriptors.CallableSpec{
		Header:       h,
		CallableKind: descriptors.CallableConstructor,
		MemberKind:   kind,
		Primary:      true,
	}, func(k *descriptors.CallableDescriptor) descriptors.Signature {
		return descriptors.Signature{
			ValueParameters: s.valueParameters(k, fr, tc, params),
			ReturnType:      func() (types.TypeID, error) { return c.DefaultType(), nil },
		}
	})
	if ctor != nil {
		if d, ok := s.sources.ClassDeclaration(c.ID()); ok {
			s.register(d.Decl, &bodyTarget{kind: bodyClass, callable: out, fr: fr, tc: tc, ctor: ctor})
		}
	}
	return out
}

package resolve

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"frontcore/internal/ast"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/source"
	"frontcore/internal/types"
)

// annotations resolves applied annotations. Arguments must be constants:
// literals, enum entries, arrayOf calls or nested annotations.
func (s *Session) annotations(fr *fileResolver, tc *typeContext, list []ast.Annotation) []descriptors.Annotation {
	out := make([]descriptors.Annotation, 0, len(list))
	for i := range list {
		if a, ok := s.annotation(fr, tc, list[i].Span, list[i].Type, list[i].Args); ok {
			out = append(out, a)
		}
	}
	return out
}

func (s *Session) annotation(fr *fileResolver, tc *typeContext, span source.Span, ref ast.TypeRefID, args []ast.Arg) (descriptors.Annotation, bool) {
	t := fr.resolveType(ref, tc)
	if s.in.IsError(t) {
		return descriptors.Annotation{}, false
	}
	id, _ := s.in.ClassOf(t)
	cls := s.module.ClassOfType(t)
	if cls == nil || cls.ClassKind() != descriptors.ClassAnnotation {
		diag.ReportError(s.reporter, diag.ResNotAnnotation, span,
			fmt.Sprintf("%s is not an annotation class", s.in.String(t))).Emit()
		return descriptors.Annotation{}, false
	}
	return s.annotationOf(fr, tc, span, id, cls, args), true
}

func (s *Session) annotationOf(fr *fileResolver, tc *typeContext, span source.Span, id names.ClassId, cls *descriptors.ClassDescriptor, args []ast.Arg) descriptors.Annotation {
	var params []*descriptors.ValueParameter
	if ctor := cls.PrimaryConstructor(); ctor != nil {
		params = ctor.ValueParameters()
	}
	out := descriptors.Annotation{Class: id}
	for i, arg := range args {
		var param *descriptors.ValueParameter
		switch {
		case arg.Name != names.NoName:
			for _, p := range params {
				if p.Name() == arg.Name {
					param = p
				}
			}
		case i < len(params):
			param = params[i]
		}
		if param == nil {
			diag.ReportError(s.reporter, diag.TypTooManyArguments, span,
				fmt.Sprintf("no parameter for argument %d of %s", i+1, s.names.ClassString(id))).Emit()
			continue
		}
		v, ok := s.constantValue(fr, tc, arg.Value, param.Type())
		if !ok {
			diag.ReportError(s.reporter, diag.ResNotConstant, s.exprSpan(arg.Value),
				"an annotation argument must be a compile-time constant").Emit()
			continue
		}
		out.Args = append(out.Args, descriptors.AnnotationArg{Name: param.Name(), Value: v})
	}
	return out
}

func (s *Session) exprSpan(id ast.ExprID) source.Span {
	if e := s.builder.Exprs.Get(id); e != nil {
		return e.Span
	}
	return source.NoSpan
}

// constantValue evaluates expr; integer literals take the kind of the
// expected type.
func (s *Session) constantValue(fr *fileResolver, tc *typeContext, expr ast.ExprID, expected types.TypeID) (descriptors.ConstantValue, bool) {
	b := s.in.Builtins()
	if p, ok := s.builder.Exprs.Paren(expr); ok {
		return s.constantValue(fr, tc, p.Inner, expected)
	}
	if u, ok := s.builder.Exprs.Unary(expr); ok && u.Op == ast.OpMinus {
		v, ok := s.constantValue(fr, tc, u.Operand, expected)
		switch {
		case !ok:
			return v, false
		case v.Kind == descriptors.ConstFloat || v.Kind == descriptors.ConstDouble:
			v.Float = -v.Float
		case v.Kind >= descriptors.ConstByte && v.Kind <= descriptors.ConstLong && v.Kind != descriptors.ConstChar:
			v.Int = -v.Int
		default:
			return v, false
		}
		return v, true
	}
	if lit, ok := s.builder.Exprs.Literal(expr); ok {
		return s.literalValue(lit, expected)
	}
	if m, ok := s.builder.Exprs.Member(expr); ok {
		if id, ok := s.qualifiedClass(fr, tc, m.Receiver); ok {
			entry := s.names.Nested(id, m.Name)
			if c := s.ResolveClass(entry); c != nil && c.ClassKind() == descriptors.ClassEnumEntry {
				return descriptors.ConstantValue{Kind: descriptors.ConstEnum, Class: id, Entry: m.Name}, true
			}
		}
		return descriptors.ConstantValue{}, false
	}
	call, ok := s.builder.Exprs.Call(expr)
	if !ok || call.Receiver.IsValid() || call.Callee.IsValid() {
		return descriptors.ConstantValue{}, false
	}
	if s.names.MustLookup(call.Name) == "arrayOf" {
		elem := types.NoTypeID
		if id, ok := s.in.ClassOf(expected); ok && id == b.Array {
			if t := s.in.MustLookup(expected); len(t.Args) == 1 {
				elem = t.Args[0].Type
			}
		}
		out := descriptors.ConstantValue{Kind: descriptors.ConstArray}
		for _, a := range call.Args {
			v, ok := s.constantValue(fr, tc, a.Value, elem)
			if !ok {
				return v, false
			}
			out.Elems = append(out.Elems, v)
		}
		return out, true
	}
	id, ok := fr.classifierByName(call.Name, tc)
	if !ok {
		return descriptors.ConstantValue{}, false
	}
	cls := s.ResolveClass(id)
	if cls == nil || cls.ClassKind() != descriptors.ClassAnnotation {
		return descriptors.ConstantValue{}, false
	}
	nested := s.annotationOf(fr, tc, s.exprSpan(expr), id, cls, call.Args)
	return descriptors.ConstantValue{Kind: descriptors.ConstAnnotation, Annotation: &nested}, true
}

// qualifiedClass reads a.b.C written as nested member expressions.
func (s *Session) qualifiedClass(fr *fileResolver, tc *typeContext, expr ast.ExprID) (names.ClassId, bool) {
	var path []names.Name
	for {
		if n, ok := s.builder.Exprs.Name(expr); ok {
			path = append([]names.Name{n.Name}, path...)
			break
		}
		m, ok := s.builder.Exprs.Member(expr)
		if !ok {
			return names.ClassId{}, false
		}
		path = append([]names.Name{m.Name}, path...)
		expr = m.Receiver
	}
	return fr.classifier(path, tc)
}

func (s *Session) literalValue(lit *ast.LiteralData, expected types.TypeID) (descriptors.ConstantValue, bool) {
	b := s.in.Builtins()
	switch lit.Kind {
	case ast.LitInt, ast.LitLong:
		n, err := strconv.ParseInt(lit.Text, 0, 64)
		if err != nil {
			return descriptors.ConstantValue{}, false
		}
		kind := descriptors.ConstInt
		if lit.Kind == ast.LitLong || n > math.MaxInt32 {
			kind = descriptors.ConstLong
		}
		if id, ok := s.in.ClassOf(s.in.MakeNotNullable(expected)); ok && lit.Kind == ast.LitInt {
			switch id {
			case b.Byte:
				kind = descriptors.ConstByte
			case b.Short:
				kind = descriptors.ConstShort
			case b.Long:
				kind = descriptors.ConstLong
			}
		}
		return descriptors.ConstantValue{Kind: kind, Int: n}, true
	case ast.LitDouble, ast.LitFloat:
		f, err := strconv.ParseFloat(lit.Text, 64)
		if err != nil {
			return descriptors.ConstantValue{}, false
		}
		kind := descriptors.ConstDouble
		if lit.Kind == ast.LitFloat {
			kind = descriptors.ConstFloat
		}
		return descriptors.ConstantValue{Kind: kind, Float: f}, true
	case ast.LitChar:
		r, size := utf8.DecodeRuneInString(lit.Text)
		if size == 0 || size != len(lit.Text) {
			return descriptors.ConstantValue{}, false
		}
		return descriptors.ConstantValue{Kind: descriptors.ConstChar, Int: int64(r)}, true
	case ast.LitString:
		return descriptors.ConstantValue{Kind: descriptors.ConstString, Str: lit.Text}, true
	case ast.LitBool:
		return descriptors.ConstantValue{Kind: descriptors.ConstBool, Bool: lit.Text == "true"}, true
	case ast.LitNull:
		return descriptors.ConstantValue{Kind: descriptors.ConstNull}, true
	}
	return descriptors.ConstantValue{}, false
}

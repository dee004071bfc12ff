package resolve

import (
	"fmt"
	"strings"

	"frontcore/internal/ast"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/storage"
	"frontcore/internal/types"
)

// typeContext is what the type references of one declaration see besides
// the file: type parameters and enclosing classes.
type typeContext struct {
	// params are visible type parameters, innermost last.
	params []*descriptors.TypeParameter
	// classes are the enclosing classes, innermost first.
	classes []names.ClassId
}

func (tc *typeContext) withParams(ps []*descriptors.TypeParameter) *typeContext {
	if len(ps) == 0 {
		return tc
	}
	out := *tc
	out.params = append(append([]*descriptors.TypeParameter(nil), tc.params...), ps...)
	return &out
}

func (tc *typeContext) withClass(id names.ClassId, keepParams bool) *typeContext {
	out := &typeContext{classes: append([]names.ClassId{id}, tc.classes...)}
	if keepParams {
		out.params = tc.params
	}
	return out
}

func (tc *typeContext) param(n names.Name) *descriptors.TypeParameter {
	for i := len(tc.params) - 1; i >= 0; i-- {
		if tc.params[i].Name() == n {
			return tc.params[i]
		}
	}
	return nil
}

// fileResolver resolves type references written in one file.
type fileResolver struct {
	s       *Session
	file    ast.FileID
	pkg     names.FqName
	imports []ast.Import
	scopes  *storage.LazyValue[[]descriptors.Scope]
}

func (s *Session) newFileResolver(fid ast.FileID) (*fileResolver, error) {
	f := s.builder.Files.Get(fid)
	if f == nil {
		return nil, fmt.Errorf("file %d not found", fid)
	}
	fr := &fileResolver{s: s, file: fid, pkg: f.Package, imports: f.Imports}
	fr.scopes = storage.NewLazyValue(s.storage, func() ([]descriptors.Scope, error) {
		return fr.computeTopLevel(), nil
	}, storage.Named(fmt.Sprintf("top level scopes(file %d)", fid)))
	return fr, nil
}

// fileScope returns the resolver of fid; a missing file resolves in the
// root package without imports.
func (s *Session) fileScope(fid ast.FileID) *fileResolver {
	fr, err := s.files.Get(fid)
	if err != nil || fr == nil {
		fr = &fileResolver{s: s, file: fid, pkg: names.RootFqName}
		fr.scopes = storage.NewLazyValue(s.storage, func() ([]descriptors.Scope, error) {
			return fr.computeTopLevel(), nil
		})
	}
	return fr
}

func (fr *fileResolver) resolveTypes(refs []ast.TypeRefID, tc *typeContext) []types.TypeID {
	out := make([]types.TypeID, 0, len(refs))
	for _, r := range refs {
		out = append(out, fr.resolveType(r, tc))
	}
	return out
}

// resolveType resolves ref, reporting unresolved names and wrong argument
// counts and answering with an error type.
func (fr *fileResolver) resolveType(ref ast.TypeRefID, tc *typeContext) types.TypeID {
	s := fr.s
	r := s.builder.TypeRefs.Get(ref)
	if r == nil {
		return s.in.Error("missing type reference")
	}
	var t types.TypeID
	switch r.Kind {
	case ast.TypeRefFunction:
		t = fr.resolveFunctionType(r, tc)
	case ast.TypeRefNamed:
		t = fr.resolveNamed(r, tc)
	default:
		return s.in.Error("malformed type reference")
	}
	switch {
	case s.in.IsError(t):
	case r.Nullable:
		t = s.in.MakeNullable(t)
	case r.Platform:
		t = s.in.Platform(t)
	}
	return t
}

func (fr *fileResolver) resolveFunctionType(r *ast.TypeRef, tc *typeContext) types.TypeID {
	s := fr.s
	params := make([]types.TypeID, 0, len(r.Params)+1)
	if r.Receiver.IsValid() {
		params = append(params, fr.resolveType(r.Receiver, tc))
	}
	params = append(params, fr.resolveTypes(r.Params, tc)...)
	ret := s.in.Builtins().UnitType
	if r.Return.IsValid() {
		ret = fr.resolveType(r.Return, tc)
	}
	t, ok := s.builtins.FunctionType(params, ret)
	if !ok {
		msg := fmt.Sprintf("function types with %d parameters are not supported", len(params))
		diag.ReportError(s.reporter, diag.ResUnresolvedReference, r.Span, msg).Emit()
		return s.in.Error(msg)
	}
	return t
}

func (fr *fileResolver) resolveNamed(r *ast.TypeRef, tc *typeContext) types.TypeID {
	s := fr.s
	if len(r.Path) == 0 {
		return s.in.Error("empty type reference")
	}
	if len(r.Path) == 1 {
		if tp := tc.param(r.Path[0]); tp != nil {
			if len(r.Args) > 0 {
				diag.ReportError(s.reporter, diag.ResWrongTypeArgCount, r.Span,
					fmt.Sprintf("type parameter %s takes no type arguments", s.names.MustLookup(tp.Name()))).Emit()
			}
			return tp.Type()
		}
	}
	id, ok := fr.classifier(r.Path, tc)
	if !ok {
		msg := "unresolved reference: " + fr.pathString(r.Path)
		diag.ReportError(s.reporter, diag.ResUnresolvedReference, r.Span, msg).Emit()
		return s.in.Error(msg)
	}
	if want := s.typeParamCount(id); want != len(r.Args) {
		msg := fmt.Sprintf("%d type arguments expected for %s", want, s.names.ClassString(id))
		diag.ReportError(s.reporter, diag.ResWrongTypeArgCount, r.Span, msg).Emit()
		return s.in.Error(msg)
	}
	args := make([]types.Projection, 0, len(r.Args))
	for _, a := range r.Args {
		if a.Star {
			args = append(args, types.Projection{Star: true})
			continue
		}
		args = append(args, types.Projection{Variance: variance(a.Variance), Type: fr.resolveType(a.Type, tc)})
	}
	return s.in.Class(id, args...)
}

func (fr *fileResolver) pathString(path []names.Name) string {
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = fr.s.names.MustLookup(n)
	}
	return strings.Join(parts, ".")
}

// classifier finds the class a dotted path names: either a class visible
// by its first segment followed by nested class names, or a fully
// qualified name.
func (fr *fileResolver) classifier(path []names.Name, tc *typeContext) (names.ClassId, bool) {
	s := fr.s
	if id, ok := fr.classifierByName(path[0], tc); ok {
		for _, n := range path[1:] {
			id = s.names.Nested(id, n)
			if !s.classExists(id) {
				return names.ClassId{}, false
			}
		}
		return id, true
	}
	return s.classIDForFq(s.fqOf(path))
}

func (fr *fileResolver) classifierByName(n names.Name, tc *typeContext) (names.ClassId, bool) {
	s := fr.s
	for _, outer := range tc.classes {
		if id := s.names.Nested(outer, n); s.classExists(id) {
			return id, true
		}
	}
	for _, imp := range fr.imports {
		if imp.All || importedName(s.names, imp) != n {
			continue
		}
		if id, ok := s.classIDForFq(imp.Path); ok {
			return id, true
		}
	}
	if id := s.names.TopLevel(fr.pkg, n); s.classExists(id) {
		return id, true
	}
	for _, imp := range fr.imports {
		if !imp.All {
			continue
		}
		if s.packageExists(imp.Path) {
			if id := s.names.TopLevel(imp.Path, n); s.classExists(id) {
				return id, true
			}
			continue
		}
		if outer, ok := s.classIDForFq(imp.Path); ok {
			if id := s.names.Nested(outer, n); s.classExists(id) {
				return id, true
			}
		}
	}
	if id := s.names.TopLevel(s.in.Builtins().Package, n); s.classExists(id) {
		return id, true
	}
	return names.ClassId{}, false
}

// importedName is the name an explicit import introduces.
func importedName(nt *names.Table, imp ast.Import) names.Name {
	if imp.Alias != names.NoName {
		return imp.Alias
	}
	return nt.ShortName(imp.Path)
}

func (s *Session) fqOf(path []names.Name) names.FqName {
	fq := names.RootFqName
	for _, n := range path {
		fq = s.names.Child(fq, n)
	}
	return fq
}

// classIDForFq splits fq into the longest known package and a relative
// class name.
func (s *Session) classIDForFq(fq names.FqName) (names.ClassId, bool) {
	segs := s.names.Segments(fq)
	for i := len(segs) - 1; i >= 0; i-- {
		pkg := s.fqOf(segs[:i])
		if !s.packageExists(pkg) {
			continue
		}
		id := names.ClassId{Package: pkg, Relative: s.fqOf(segs[i:])}
		if s.classExists(id) {
			return id, true
		}
	}
	return names.ClassId{}, false
}

// typeParamCount is the number of type arguments a reference to id takes,
// read from the declaration when there is one so that no descriptor is
// forced.
func (s *Session) typeParamCount(id names.ClassId) int {
	if d, ok := s.sources.ClassDeclaration(id); ok {
		if data, ok := s.builder.Decls.Class(d.Decl); ok {
			return len(data.TypeParams)
		}
	}
	if c := s.ResolveClass(id); c != nil {
		return len(c.TypeParameters())
	}
	return 0
}

func variance(v ast.Variance) types.Variance {
	switch v {
	case ast.In:
		return types.VarIn
	case ast.Out:
		return types.VarOut
	}
	return types.VarInvariant
}

package resolve

import (
	"slices"

	"frontcore/internal/ast"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
)

// importScope exposes what explicit imports name, under their alias when
// one is given.
type importScope struct {
	s       *Session
	imports []ast.Import
}

func (sc *importScope) targets(n names.Name) []ast.Import {
	var out []ast.Import
	for _, imp := range sc.imports {
		if !imp.All && importedName(sc.s.names, imp) == n {
			out = append(out, imp)
		}
	}
	return out
}

// memberScope is the scope holding the callable an import path ends in.
func (sc *importScope) memberScope(imp ast.Import) descriptors.Scope {
	parent := sc.s.names.Parent(imp.Path)
	if p := sc.s.ResolvePackage(parent); p != nil {
		return p.MemberScope()
	}
	if id, ok := sc.s.classIDForFq(parent); ok {
		if c := sc.s.ResolveClass(id); c != nil && c.ClassKind().IsSingleton() {
			return c.MemberScope()
		}
	}
	return descriptors.EmptyScope
}

func (sc *importScope) Classifier(n names.Name) descriptors.Descriptor {
	for _, imp := range sc.targets(n) {
		if id, ok := sc.s.classIDForFq(imp.Path); ok {
			if c := sc.s.ResolveClass(id); c != nil {
				return c
			}
		}
	}
	return nil
}

func (sc *importScope) Functions(n names.Name) []*descriptors.CallableDescriptor {
	var out []*descriptors.CallableDescriptor
	for _, imp := range sc.targets(n) {
		out = append(out, sc.memberScope(imp).Functions(sc.s.names.ShortName(imp.Path))...)
	}
	return out
}

func (sc *importScope) Variables(n names.Name) []descriptors.Variable {
	var out []descriptors.Variable
	for _, imp := range sc.targets(n) {
		out = append(out, sc.memberScope(imp).Variables(sc.s.names.ShortName(imp.Path))...)
	}
	return out
}

func (sc *importScope) All() []descriptors.Descriptor {
	var out []descriptors.Descriptor
	seen := make(map[names.Name]bool)
	for _, imp := range sc.imports {
		n := importedName(sc.s.names, imp)
		if imp.All || seen[n] {
			continue
		}
		seen[n] = true
		if c := sc.Classifier(n); c != nil {
			out = append(out, c)
		}
		for _, f := range sc.Functions(n) {
			out = append(out, f)
		}
		for _, v := range sc.Variables(n) {
			out = append(out, v)
		}
	}
	return out
}

// topLevel returns the file level scopes in lookup order: explicit
// imports, the package of the file, star imports, then built-ins. All star
// imports form a single layer, so equally good candidates from two of them
// are ambiguous. Imports are validated the first time.
func (fr *fileResolver) topLevel() []descriptors.Scope {
	scopes, err := fr.scopes.Get()
	if err != nil {
		return []descriptors.Scope{fr.s.builtins.Package().MemberScope()}
	}
	return scopes
}

func (fr *fileResolver) computeTopLevel() []descriptors.Scope {
	s := fr.s
	out := []descriptors.Scope{&importScope{s: s, imports: fr.imports}}
	if p := s.ResolvePackage(fr.pkg); p != nil {
		out = append(out, p.MemberScope())
	}
	var (
		starred []names.FqName
		layers  []descriptors.Scope
	)
	for _, imp := range fr.imports {
		if !fr.importResolves(imp) {
			diag.ReportError(s.reporter, diag.ResUnresolvedImport, imp.Span,
				"unresolved reference: "+s.names.FqString(imp.Path)).Emit()
			continue
		}
		if !imp.All || slices.Contains(starred, imp.Path) {
			continue
		}
		starred = append(starred, imp.Path)
		if p := s.ResolvePackage(imp.Path); p != nil {
			layers = append(layers, p.MemberScope())
			continue
		}
		if id, ok := s.classIDForFq(imp.Path); ok {
			if c := s.ResolveClass(id); c != nil {
				layers = append(layers, nestedScope(c))
			}
		}
	}
	if len(layers) > 0 {
		out = append(out, descriptors.NewChainedScope(layers...))
	}
	return append(out, s.builtins.Package().MemberScope())
}

func (fr *fileResolver) importResolves(imp ast.Import) bool {
	s := fr.s
	if imp.All {
		if s.packageExists(imp.Path) {
			return true
		}
		_, ok := s.classIDForFq(imp.Path)
		return ok
	}
	if _, ok := s.classIDForFq(imp.Path); ok {
		return true
	}
	sc := &importScope{s: s}
	short := s.names.ShortName(imp.Path)
	ms := sc.memberScope(imp)
	return len(ms.Functions(short)) > 0 || len(ms.Variables(short)) > 0
}

// nestedScope exposes the nested classes of c, as imported by "C.*".
func nestedScope(c *descriptors.ClassDescriptor) descriptors.Scope {
	scope := descriptors.NewStaticScope()
	for _, n := range c.NestedClasses() {
		scope.Add(n)
	}
	return scope
}

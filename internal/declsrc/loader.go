// Package declsrc reads declaration sources: YAML documents describing the
// packages, imports, declarations and bodies of a program. Each document
// becomes one ast file; spans point at the YAML nodes they came from.
package declsrc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"frontcore/internal/ast"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/source"
)

// Extension is the file extension of declaration sources.
const Extension = ".fc.yaml"

// Loader lowers declaration sources into the arenas of an ast.Builder.
// Malformed declarations are reported and skipped.
type Loader struct {
	b        *ast.Builder
	fs       *source.FileSet
	reporter diag.Reporter
	loaded   map[source.FileID]bool

	// current source
	file  source.FileID
	lines *source.File
}

func NewLoader(b *ast.Builder, fs *source.FileSet, r diag.Reporter) *Loader {
	if r == nil {
		r = diag.NopReporter{}
	}
	return &Loader{b: b, fs: fs, reporter: r, loaded: make(map[source.FileID]bool)}
}

// LoadFile reads path into the file set and lowers it.
func (l *Loader) LoadFile(path string) ([]ast.FileID, error) {
	if id, ok := l.fs.Lookup(path); ok && l.loaded[id] {
		diag.ReportWarning(l.reporter, diag.SrcDuplicateFile, source.Span{File: id},
			fmt.Sprintf("%s is already loaded", path)).Emit()
		return nil, nil
	}
	id, err := l.fs.Load(path)
	if err != nil {
		diag.ReportError(l.reporter, diag.SrcReadFailure, source.NoSpan,
			fmt.Sprintf("cannot read %s: %v", path, err)).Emit()
		return nil, fmt.Errorf("declsrc: %w", err)
	}
	return l.Lower(id)
}

// LoadBytes adds data as a virtual source named name and lowers it.
func (l *Loader) LoadBytes(name string, data []byte) ([]ast.FileID, error) {
	return l.Lower(l.fs.AddVirtual(name, data))
}

// Lower lowers every YAML document of a loaded source. A syntax error
// stops at the broken document; documents before it are kept.
func (l *Loader) Lower(id source.FileID) ([]ast.FileID, error) {
	f := l.fs.Get(id)
	if f == nil {
		return nil, fmt.Errorf("declsrc: unknown source %d", id)
	}
	l.loaded[id] = true
	l.file, l.lines = id, f
	dec := yaml.NewDecoder(bytes.NewReader(f.Content))
	dec.KnownFields(true)
	var out []ast.FileID
	for {
		var raw rawFile
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			diag.ReportError(l.reporter, diag.SrcSyntax, source.Span{File: id},
				fmt.Sprintf("%s: %v", f.Path, err)).Emit()
			return out, fmt.Errorf("declsrc: %s: %w", f.Path, err)
		}
		out = append(out, l.lowerFile(&raw))
	}
}

func (l *Loader) span(p pos) source.Span {
	if p.line == 0 {
		return source.Span{File: l.file}
	}
	start := l.lines.Offset(source.LineCol{Line: uint32(p.line), Col: uint32(p.col)})
	return source.Span{File: l.file, Start: start, End: start + uint32(p.width)}
}

func (l *Loader) errorf(p pos, code diag.Code, format string, args ...any) {
	diag.ReportError(l.reporter, code, l.span(p), fmt.Sprintf(format, args...)).Emit()
}

func (l *Loader) intern(s string) names.Name { return l.b.Names.Intern(s) }

func (l *Loader) lowerFile(raw *rawFile) ast.FileID {
	fid := l.b.Files.New(l.file, source.Span{File: l.file, End: uint32(len(l.lines.Content))}, l.b.Names.ParseFq(raw.Package))
	for i := range raw.Imports {
		if imp, ok := l.lowerImport(&raw.Imports[i]); ok {
			l.b.PushImport(fid, imp)
		}
	}
	for i := range raw.Declarations {
		if d, ok := l.lowerDecl(&raw.Declarations[i], false); ok {
			l.b.PushDecl(fid, d)
		}
	}
	return fid
}

func (l *Loader) lowerImport(r *rawImport) (ast.Import, bool) {
	text := strings.TrimSpace(r.Text)
	out := ast.Import{Span: l.span(r.pos)}
	if path, alias, ok := strings.Cut(text, " as "); ok {
		text = strings.TrimSpace(path)
		out.Alias = l.intern(strings.TrimSpace(alias))
	}
	if path, ok := strings.CutSuffix(text, ".*"); ok {
		text = path
		out.All = true
	}
	if text == "" {
		l.errorf(r.pos, diag.SrcInvalidDecl, "empty import")
		return out, false
	}
	out.Path = l.b.Names.ParseFq(text)
	return out, true
}

func (l *Loader) typeRef(r *rawType) ast.TypeRefID {
	if r == nil {
		return ast.NoTypeRefID
	}
	id, err := parseType(l.b, r.Text, l.span(r.pos))
	if err != nil {
		l.errorf(r.pos, diag.SrcSyntax, "%v", err)
		return ast.NoTypeRefID
	}
	return id
}

func (l *Loader) typeRefs(rs []rawType) []ast.TypeRefID {
	var out []ast.TypeRefID
	for i := range rs {
		if id := l.typeRef(&rs[i]); id.IsValid() {
			out = append(out, id)
		}
	}
	return out
}

var visibilities = map[string]ast.Visibility{
	"": ast.VisDefault, "public": ast.VisPublic, "internal": ast.VisInternal,
	"protected": ast.VisProtected, "private": ast.VisPrivate,
}

var modalities = map[string]ast.Modality{
	"": ast.ModDefault, "final": ast.ModFinal, "open": ast.ModOpen,
	"abstract": ast.ModAbstract, "sealed": ast.ModSealed,
}

var variances = map[string]ast.Variance{"": ast.Invariant, "in": ast.In, "out": ast.Out}

func (l *Loader) visibility(p pos, s string) ast.Visibility {
	v, ok := visibilities[s]
	if !ok {
		l.errorf(p, diag.SrcInvalidDecl, "unknown visibility %q", s)
	}
	return v
}

func (l *Loader) header(r *rawDecl, name string) ast.Decl {
	hdr := ast.Decl{
		Span:        l.span(r.pos),
		Name:        l.intern(name),
		Visibility:  l.visibility(r.pos, r.Visibility),
		Annotations: l.annotations(r.Annotations),
	}
	m, ok := modalities[r.Modality]
	if !ok {
		l.errorf(r.pos, diag.SrcInvalidDecl, "unknown modality %q", r.Modality)
	}
	hdr.Modality = m
	return hdr
}

// declKind picks the single declaration keyword set on r.
func declKind(r *rawDecl) (kind, name string, n int) {
	for _, c := range []struct{ kind, name string }{
		{"class", r.Class}, {"interface", r.Interface}, {"object", r.Object},
		{"enum", r.Enum}, {"annotation_class", r.AnnotationType},
		{"fun", r.Fun}, {"val", r.Val}, {"var", r.Var},
	} {
		if c.name != "" {
			kind, name = c.kind, c.name
			n++
		}
	}
	return kind, name, n
}

func (l *Loader) lowerDecl(r *rawDecl, entry bool) (ast.DeclID, bool) {
	if r.entry != "" {
		if !entry {
			l.errorf(r.pos, diag.SrcInvalidDecl, "%q is not a declaration", r.entry)
			return ast.NoDeclID, false
		}
		hdr := ast.Decl{Span: l.span(r.pos), Name: l.intern(r.entry)}
		return l.b.Decls.NewClass(hdr, ast.ClassData{Kind: ast.ClassEnumEntry}), true
	}
	kind, name, n := declKind(r)
	switch {
	case n == 0:
		l.errorf(r.pos, diag.SrcInvalidDecl, "declaration has no kind")
		return ast.NoDeclID, false
	case n > 1:
		l.errorf(r.pos, diag.SrcInvalidDecl, "declaration %q has more than one kind", name)
		return ast.NoDeclID, false
	}
	switch kind {
	case "fun":
		return l.lowerFunction(r, name), true
	case "val", "var":
		return l.lowerProperty(r, name, kind == "var"), true
	}
	ck := map[string]ast.ClassKind{
		"class": ast.ClassPlain, "interface": ast.ClassInterface, "object": ast.ClassObject,
		"enum": ast.ClassEnum, "annotation_class": ast.ClassAnnotation,
	}[kind]
	if entry {
		ck = ast.ClassEnumEntry
	}
	return l.lowerClass(r, name, ck), true
}

func (l *Loader) lowerClass(r *rawDecl, name string, kind ast.ClassKind) ast.DeclID {
	data := ast.ClassData{
		Kind:       kind,
		TypeParams: l.typeParams(r.TypeParams),
		Supertypes: l.typeRefs(r.Supertypes),
		Companion:  r.Companion,
		Inner:      r.Inner,
	}
	if r.Constructor != nil {
		data.Ctor = &ast.PrimaryCtor{
			Span:       l.span(r.Constructor.pos),
			Visibility: l.visibility(r.Constructor.pos, r.Constructor.Visibility),
			Params:     l.params(r.Constructor.Params),
		}
	}
	for i := range r.Members {
		if d, ok := l.lowerDecl(&r.Members[i], false); ok {
			data.Members = append(data.Members, d)
		}
	}
	if len(r.Entries) > 0 && kind != ast.ClassEnum {
		l.errorf(r.pos, diag.SrcInvalidDecl, "only enum classes declare entries")
	}
	for i := range r.Entries {
		if d, ok := l.lowerDecl(&r.Entries[i], true); ok {
			data.EnumEntries = append(data.EnumEntries, d)
		}
	}
	return l.b.Decls.NewClass(l.header(r, name), data)
}

func (l *Loader) lowerFunction(r *rawDecl, name string) ast.DeclID {
	data := ast.FunctionData{
		TypeParams: l.typeParams(r.TypeParams),
		Receiver:   l.typeRef(r.Receiver),
		Params:     l.params(r.Params),
		Return:     l.typeRef(r.Returns),
		Operator:   r.Operator,
	}
	switch {
	case r.Body != nil && r.Expr != nil:
		l.errorf(r.pos, diag.SrcInvalidDecl, "function %q has both a block and an expression body", name)
	case r.Body != nil:
		data.Body = l.b.Stmts.NewBlock(l.span(r.pos), l.stmts(r.Body))
	case r.Expr != nil:
		data.ExprBody = l.expr(r.Expr)
	}
	return l.b.Decls.NewFunction(l.header(r, name), data)
}

func (l *Loader) lowerProperty(r *rawDecl, name string, mutable bool) ast.DeclID {
	data := ast.PropertyData{
		TypeParams: l.typeParams(r.TypeParams),
		Receiver:   l.typeRef(r.Receiver),
		Type:       l.typeRef(r.Type),
		Mutable:    mutable,
		Getter:     l.accessor(r.Getter),
		Setter:     l.accessor(r.Setter),
	}
	if r.Init != nil {
		data.Init = l.expr(r.Init)
	}
	if data.Setter != nil && !mutable {
		l.errorf(r.Setter.pos, diag.SrcInvalidDecl, "val %q cannot have a setter", name)
		data.Setter = nil
	}
	return l.b.Decls.NewProperty(l.header(r, name), data)
}

func (l *Loader) accessor(r *rawAccessor) *ast.Accessor {
	if r == nil {
		return nil
	}
	out := &ast.Accessor{Span: l.span(r.pos), Visibility: l.visibility(r.pos, r.Visibility)}
	if r.Expr != nil {
		out.Body = l.expr(r.Expr)
	}
	return out
}

func (l *Loader) typeParams(rs []rawTypeParam) []ast.TypeParam {
	var out []ast.TypeParam
	for i := range rs {
		r := &rs[i]
		v, ok := variances[r.Variance]
		if !ok {
			l.errorf(r.pos, diag.SrcInvalidDecl, "unknown variance %q", r.Variance)
		}
		out = append(out, ast.TypeParam{
			Span:     l.span(r.pos),
			Name:     l.intern(r.Name),
			Variance: v,
			Reified:  r.Reified,
			Bounds:   l.typeRefs(r.Bounds),
		})
	}
	return out
}

func (l *Loader) params(rs []rawParam) []ast.Param {
	var out []ast.Param
	for i := range rs {
		r := &rs[i]
		if r.Type == nil {
			l.errorf(r.pos, diag.SrcInvalidDecl, "parameter %q has no type", r.Name)
			continue
		}
		p := ast.Param{
			Span:        l.span(r.pos),
			Name:        l.intern(r.Name),
			Type:        l.typeRef(r.Type),
			Vararg:      r.Vararg,
			Annotations: l.annotations(r.Annotations),
			Property:    r.Val || r.Var,
			Mutable:     r.Var,
		}
		if r.Default != nil {
			p.Default = l.expr(r.Default)
		}
		out = append(out, p)
	}
	return out
}

func (l *Loader) annotations(rs []rawAnnotation) []ast.Annotation {
	var out []ast.Annotation
	for i := range rs {
		r := &rs[i]
		t := l.typeRef(&r.Type)
		if !t.IsValid() {
			continue
		}
		out = append(out, ast.Annotation{Span: l.span(r.pos), Type: t, Args: l.args(r.Args)})
	}
	return out
}

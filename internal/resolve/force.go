package resolve

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/storage"
	"frontcore/internal/trace"
)

// ForceResolveAll resolves every source declaration and checks every body,
// recording facts into the binding trace. ctx is checked between top-level
// declarations. Every step is memoized, so a second call reports nothing
// new and creates no descriptors.
func (s *Session) ForceResolveAll(ctx context.Context) error {
	span := trace.Begin(s.tracer, trace.ScopePass, "resolve", trace.CurrentSpan(ctx))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)
	pkgs := s.sources.Packages()
	if s.jobs > 1 && s.storage.Mode() == storage.ModeLocking && len(pkgs) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.jobs)
		for _, fq := range pkgs {
			g.Go(func() error { return s.forcePackage(gctx, fq) })
		}
		return g.Wait()
	}
	for _, fq := range pkgs {
		if err := s.forcePackage(ctx, fq); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) forcePackage(ctx context.Context, fq names.FqName) error {
	span := trace.Begin(s.tracer, trace.ScopePackage, "package "+s.names.FqString(fq), trace.CurrentSpan(ctx))
	defer span.End("")
	if s.ResolvePackage(fq) == nil {
		return nil
	}
	if _, err := s.packageChecks.Get(fq); err != nil {
		return &ResolutionError{Key: "package " + s.names.FqString(fq), Err: err}
	}
	for _, d := range s.sources.PackageDeclarations(fq) {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.forceDeclaration(d.Decl)
	}
	for _, fid := range s.sources.Files(fq) {
		s.fileScope(fid).topLevel()
	}
	return nil
}

func (s *Session) forceDeclaration(decl ast.DeclID) {
	if _, err := s.declChecks.Get(decl); err != nil {
		diag.ReportError(s.reporter, diag.ResResolutionFailure, s.builder.Decls.Get(decl).Span,
			(&ResolutionError{Key: fmt.Sprintf("declaration %d", decl), Err: err}).Error()).Emit()
	}
}

// checkPackage reports conflicting top-level callables of fq.
func (s *Session) checkPackage(fq names.FqName) (struct{}, error) {
	p := s.ResolvePackage(fq)
	if p == nil {
		return struct{}{}, nil
	}
	p.MemberScope()
	var members []*descriptors.CallableDescriptor
	for _, d := range s.sources.PackageDeclarations(fq) {
		if c, ok := s.declared(d.Decl).(*descriptors.CallableDescriptor); ok {
			members = append(members, c)
		}
	}
	s.checkConflicts(members)
	return struct{}{}, nil
}

func (s *Session) declared(decl ast.DeclID) descriptors.Descriptor {
	d, _ := binding.Get(s.trace, binding.Declaration, decl)
	return d
}

// checkDeclaration forces everything lazy about decl and the declarations
// nested in it.
func (s *Session) checkDeclaration(decl ast.DeclID) (struct{}, error) {
	switch d := s.declared(decl).(type) {
	case *descriptors.ClassDescriptor:
		s.forceClass(d, decl)
	case *descriptors.CallableDescriptor:
		s.forceCallable(d, decl)
	}
	return struct{}{}, nil
}

func (s *Session) forceCallable(c *descriptors.CallableDescriptor, decl ast.DeclID) {
	c.Annotations()
	for _, tp := range c.TypeParameters() {
		tp.UpperBounds()
	}
	for _, p := range c.ValueParameters() {
		p.Annotations()
	}
	s.bodies.Get(decl)
	if err := c.ReturnTypeErr(); errors.Is(err, storage.ErrCyclicComputation) {
		diag.ReportError(s.reporter, diag.TypRecursiveTypeInference, c.Source(),
			fmt.Sprintf("type checking has run into a recursive problem: the type of %s depends on itself",
				s.names.MustLookup(c.Name()))).Emit()
	}
}

func (s *Session) forceClass(cls *descriptors.ClassDescriptor, decl ast.DeclID) {
	cls.Annotations()
	for _, tp := range cls.TypeParameters() {
		tp.UpperBounds()
	}
	cls.SupertypesErr()
	cls.NestedClasses()
	ms := cls.MemberScope()
	for _, ctor := range cls.Constructors() {
		for _, p := range ctor.ValueParameters() {
			p.Annotations()
		}
	}
	if s.target(decl) != nil {
		s.bodies.Get(decl)
	}
	for _, m := range cls.DeclaredMembers() {
		m.Annotations()
	}
	if data, ok := s.builder.Decls.Class(decl); ok {
		for _, m := range data.EnumEntries {
			s.forceDeclaration(m)
		}
		for _, m := range data.Members {
			s.forceDeclaration(m)
		}
	}
	s.checkConflicts(cls.DeclaredMembers())
	s.checkAbstractMembers(cls, ms)
}

// checkAbstractMembers reports abstract members of a class that can be
// instantiated, declared or inherited without an implementation.
func (s *Session) checkAbstractMembers(cls *descriptors.ClassDescriptor, ms *descriptors.MemberScope) {
	switch cls.Modality() {
	case descriptors.Abstract, descriptors.Sealed:
		return
	}
	switch cls.ClassKind() {
	case descriptors.ClassInterface, descriptors.ClassEnum, descriptors.ClassAnnotation:
		return
	}
	className := s.names.ClassString(cls.ID())
	for _, m := range cls.DeclaredMembers() {
		if m.Modality() == descriptors.Abstract {
			diag.ReportError(s.reporter, diag.ResAbstractMemberInFinal, m.Source(),
				fmt.Sprintf("abstract member %s in non-abstract class %s", s.names.MustLookup(m.Name()), className)).Emit()
		}
	}
	for _, m := range ms.FakeOverrides() {
		if m.Modality() == descriptors.Abstract {
			diag.ReportError(s.reporter, diag.ResAbstractMemberInFinal, cls.Source(),
				fmt.Sprintf("class %s is not abstract and does not implement abstract member %s",
					className, s.names.MustLookup(m.Name()))).Emit()
		}
	}
}

// checkConflicts reports callables that clash with an earlier one.
func (s *Session) checkConflicts(members []*descriptors.CallableDescriptor) {
	for j := 1; j < len(members); j++ {
		for i := 0; i < j; i++ {
			if descriptors.SameSignature(members[i], nil, members[j], nil) {
				what := "conflicting overloads"
				if members[j].CallableKind() == descriptors.CallableProperty {
					what = "redeclaration"
				}
				diag.ReportError(s.reporter, diag.ResRedeclaration, members[j].Source(),
					fmt.Sprintf("%s: %s", what, s.names.MustLookup(members[j].Name()))).Emit()
				break
			}
		}
	}
}

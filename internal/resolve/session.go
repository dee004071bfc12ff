// Package resolve builds descriptors lazily from source declarations and
// libraries, and checks declaration bodies on demand.
package resolve

import (
	"errors"
	"fmt"
	"sync"

	"frontcore/internal/ast"
	"frontcore/internal/binding"
	"frontcore/internal/calls"
	"frontcore/internal/dataflow"
	"frontcore/internal/descriptors"
	"frontcore/internal/diag"
	"frontcore/internal/names"
	"frontcore/internal/sema"
	"frontcore/internal/source"
	"frontcore/internal/storage"
	"frontcore/internal/trace"
	"frontcore/internal/types"
)

// Config is everything a Session needs. The zero value of each optional
// field is usable.
type Config struct {
	ModuleName string
	Names      *names.Table
	// Types defaults to a new interner over Names.
	Types   *types.Interner
	Storage storage.Mode
	// Jobs above 1 resolves packages in parallel; it requires locking storage.
	Jobs    int
	Builder *ast.Builder
	// Sources defaults to NewSourceProvider(Builder).
	Sources   DeclarationProvider
	Libraries []Library
	Reporter  diag.Reporter
	Tracer    trace.Tracer
	Trace     *binding.Trace
}

// ResolutionError is a failure of the descriptor graph caught at the
// session boundary.
type ResolutionError struct {
	Key string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution of %s failed: %v", e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Session owns one module and the lazy descriptors of everything visible
// from it.
type Session struct {
	names    *names.Table
	in       *types.Interner
	storage  *storage.Manager
	module   *descriptors.ModuleDescriptor
	builtins *descriptors.BuiltIns
	builder  *ast.Builder
	sources  DeclarationProvider
	libs     []Library
	reporter diag.Reporter
	tracer   trace.Tracer
	trace    *binding.Trace
	jobs     int
	values   *dataflow.Factory
	checker  *sema.Checker

	known    map[names.FqName]bool
	classes  *storage.MemoizedFunc[names.ClassId, *descriptors.ClassDescriptor]
	packages *storage.MemoizedFunc[names.FqName, *descriptors.PackageDescriptor]
	files    *storage.MemoizedFunc[ast.FileID, *fileResolver]
	bodies   *storage.MemoizedFunc[ast.DeclID, types.TypeID]

	declChecks    *storage.MemoizedFunc[ast.DeclID, struct{}]
	packageChecks *storage.MemoizedFunc[names.FqName, struct{}]

	mu      sync.Mutex
	targets map[ast.DeclID]*bodyTarget
	failed  map[names.ClassId]*descriptors.ClassDescriptor
}

// NewSession validates cfg and builds the module, its built-ins and the
// memoized entry points. Nothing is resolved until asked for.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Names == nil {
		if cfg.Types == nil {
			return nil, errors.New("resolve: config needs a name table")
		}
		cfg.Names = cfg.Types.Names()
	}
	if cfg.Jobs > 1 && cfg.Storage != storage.ModeLocking {
		return nil, fmt.Errorf("resolve: %d jobs require locking storage, have %s", cfg.Jobs, cfg.Storage)
	}
	if cfg.Types == nil {
		cfg.Types = types.NewInterner(cfg.Names)
	}
	if cfg.Builder == nil {
		cfg.Builder = ast.NewBuilder(cfg.Names, ast.Hints{})
	}
	if cfg.Sources == nil {
		cfg.Sources = NewSourceProvider(cfg.Builder)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = diag.NopReporter{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = trace.Nop
	}
	if cfg.Trace == nil {
		cfg.Trace = binding.NewTrace()
	}
	if cfg.ModuleName == "" {
		cfg.ModuleName = "main"
	}
	s := &Session{
		names:    cfg.Names,
		in:       cfg.Types,
		storage:  storage.NewManager(cfg.Storage, storage.WithTracer(cfg.Tracer)),
		builder:  cfg.Builder,
		sources:  cfg.Sources,
		libs:     cfg.Libraries,
		reporter: cfg.Reporter,
		tracer:   cfg.Tracer,
		trace:    cfg.Trace,
		jobs:     max(cfg.Jobs, 1),
		known:    make(map[names.FqName]bool),
		targets:  make(map[ast.DeclID]*bodyTarget),
		failed:   make(map[names.ClassId]*descriptors.ClassDescriptor),
	}
	s.module = descriptors.NewModule(s.names.Intern("<"+cfg.ModuleName+">"), s.in, s.storage, s)
	s.builtins = descriptors.NewBuiltIns(s.module)
	s.values = dataflow.NewFactory(s.in)
	s.checker = sema.NewChecker(sema.Options{
		Module:   s.module,
		Builder:  s.builder,
		Trace:    s.trace,
		Reporter: s.reporter,
		Values:   s.values,
		Calls:    calls.NewResolver(s.module),
		Tracer:   s.tracer,
	})
	s.indexPackages()
	s.classes = storage.NewMemoizedFunc(s.storage, s.computeClass, storage.Named("class"))
	s.packages = storage.NewMemoizedFunc(s.storage, s.computePackage, storage.Named("package"))
	s.files = storage.NewMemoizedFunc(s.storage, s.newFileResolver, storage.Named("file scope"))
	s.bodies = storage.NewMemoizedFunc(s.storage, s.checkBody, storage.Named("body"))
	s.declChecks = storage.NewMemoizedFunc(s.storage, s.checkDeclaration, storage.Named("declaration checks"))
	s.packageChecks = storage.NewMemoizedFunc(s.storage, s.checkPackage, storage.Named("package checks"))
	return s, nil
}

func (s *Session) Module() *descriptors.ModuleDescriptor { return s.module }
func (s *Session) Builtins() *descriptors.BuiltIns       { return s.builtins }
func (s *Session) Names() *names.Table                   { return s.names }
func (s *Session) Types() *types.Interner                { return s.in }
func (s *Session) Storage() *storage.Manager             { return s.storage }
func (s *Session) Trace() *binding.Trace                 { return s.trace }
func (s *Session) Builder() *ast.Builder                 { return s.builder }

// indexPackages records every package with declarations along with its
// parents, so that "a" exists when only "a.b" declares something.
func (s *Session) indexPackages() {
	add := func(fq names.FqName) {
		for {
			if s.known[fq] {
				return
			}
			s.known[fq] = true
			if fq == names.RootFqName {
				return
			}
			fq = s.names.Parent(fq)
		}
	}
	add(names.RootFqName)
	add(s.in.Builtins().Package)
	for _, fq := range s.sources.Packages() {
		add(fq)
	}
	for _, lib := range s.libs {
		for _, fq := range lib.Packages() {
			add(fq)
		}
	}
}

func (s *Session) packageExists(fq names.FqName) bool { return s.known[fq] }

// Packages returns every package with source declarations, sorted.
func (s *Session) Packages() []names.FqName { return s.sources.Packages() }

// FindClass implements descriptors.ClassFinder.
func (s *Session) FindClass(id names.ClassId) *descriptors.ClassDescriptor {
	return s.ResolveClass(id)
}

// FindPackage implements descriptors.ClassFinder.
func (s *Session) FindPackage(fq names.FqName) *descriptors.PackageDescriptor {
	return s.ResolvePackage(fq)
}

// ResolveClass returns the descriptor of id, or nil when no source or
// library declares it. A class whose resolution fails is replaced by an
// error class after the failure is reported.
func (s *Session) ResolveClass(id names.ClassId) *descriptors.ClassDescriptor {
	if c := s.builtins.Class(id); c != nil {
		return c
	}
	if outer, ok := s.names.Outer(id); ok {
		oc := s.ResolveClass(outer)
		if oc == nil {
			return nil
		}
		return oc.NestedClass(s.names.ClassName(id))
	}
	c, err := s.classes.Get(id)
	if err != nil {
		return s.classFailure(id, err)
	}
	return c
}

func (s *Session) classFailure(id names.ClassId, err error) *descriptors.ClassDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.failed[id]; ok {
		return c
	}
	rerr := &ResolutionError{Key: s.names.ClassString(id), Err: err}
	diag.ReportError(s.reporter, diag.ResResolutionFailure, source.NoSpan, rerr.Error()).Emit()
	c := descriptors.NewErrorClass(s.module, id, rerr.Error())
	s.failed[id] = c
	return c
}

func (s *Session) computeClass(id names.ClassId) (*descriptors.ClassDescriptor, error) {
	if d, ok := s.sources.ClassDeclaration(id); ok {
		decl := s.builder.Decls.Get(d.Decl)
		if decl == nil || decl.Kind != ast.DeclClass {
			msg := fmt.Sprintf("declaration of %s is not a class", s.names.ClassString(id))
			diag.ReportError(s.reporter, diag.ResResolutionFailure, source.NoSpan, msg).Emit()
			return descriptors.NewErrorClass(s.module, id, msg), nil
		}
		fr := s.fileScope(d.File)
		return s.newSourceClass(s.packageOwner(id.Package), id, fr, d.Decl, &typeContext{}), nil
	}
	for _, lib := range s.libs {
		if !lib.HasClass(id) {
			continue
		}
		c, err := lib.LoadClass(s.packageOwner(id.Package), id)
		if err != nil {
			msg := fmt.Sprintf("library class %s not found: %v", s.names.ClassString(id), err)
			diag.ReportError(s.reporter, diag.MetLibraryClassNotFound, source.NoSpan, msg).Emit()
			return descriptors.NewErrorClass(s.module, id, msg), nil
		}
		return c, nil
	}
	return nil, nil
}

// packageOwner is the package descriptor owning top-level classes of fq.
func (s *Session) packageOwner(fq names.FqName) *descriptors.PackageDescriptor {
	if p := s.ResolvePackage(fq); p != nil {
		return p
	}
	return descriptors.NewPackage(s.module, fq, func(*descriptors.PackageDescriptor) (descriptors.Scope, error) {
		return descriptors.NewStaticScope(), nil
	})
}

// ResolvePackage returns the descriptor of fq, or nil when nothing is
// declared in fq or below it.
func (s *Session) ResolvePackage(fq names.FqName) *descriptors.PackageDescriptor {
	if fq == s.in.Builtins().Package {
		return s.builtins.Package()
	}
	p, err := s.packages.Get(fq)
	if err != nil {
		rerr := &ResolutionError{Key: "package " + s.names.FqString(fq), Err: err}
		diag.ReportError(s.reporter, diag.ResResolutionFailure, source.NoSpan, rerr.Error()).Emit()
		return nil
	}
	return p
}

func (s *Session) computePackage(fq names.FqName) (*descriptors.PackageDescriptor, error) {
	if !s.packageExists(fq) {
		return nil, nil
	}
	return descriptors.NewPackage(s.module, fq, s.packageScope), nil
}

func (s *Session) packageScope(p *descriptors.PackageDescriptor) (descriptors.Scope, error) {
	fq := p.FqName()
	scope := descriptors.NewStaticScope()
	for _, d := range s.sources.PackageDeclarations(fq) {
		decl := s.builder.Decls.Get(d.Decl)
		if decl == nil {
			continue
		}
		switch decl.Kind {
		case ast.DeclClass:
			id := s.names.TopLevel(fq, decl.Name)
			if first, _ := s.sources.ClassDeclaration(id); first.Decl != d.Decl {
				diag.ReportError(s.reporter, diag.ResRedeclaration, decl.Span,
					fmt.Sprintf("redeclaration: %s", s.names.MustLookup(decl.Name))).Emit()
				continue
			}
			if c := s.ResolveClass(id); c != nil {
				scope.Add(c)
			}
		case ast.DeclFunction:
			scope.Add(s.newFunction(p, s.fileScope(d.File), &typeContext{}, d.Decl))
		case ast.DeclProperty:
			scope.Add(s.newProperty(p, s.fileScope(d.File), &typeContext{}, d.Decl))
		}
	}
	for _, lib := range s.libs {
		for _, id := range lib.Classes(fq) {
			if c := s.ResolveClass(id); c != nil {
				scope.Add(c)
			}
		}
		members, err := lib.LoadMembers(p)
		if err != nil {
			diag.ReportError(s.reporter, diag.MetCorruptLibrary, source.NoSpan,
				fmt.Sprintf("library package %s not found: %v", s.names.FqString(fq), err)).Emit()
			continue
		}
		for _, m := range members {
			scope.Add(m)
		}
	}
	return scope, nil
}

// classExists reports whether id is declared anywhere visible without
// building its descriptor.
func (s *Session) classExists(id names.ClassId) bool {
	if s.builtins.IsBuiltin(id) {
		return true
	}
	if _, ok := s.sources.ClassDeclaration(id); ok {
		return true
	}
	for _, lib := range s.libs {
		if lib.HasClass(id) {
			return true
		}
	}
	return false
}

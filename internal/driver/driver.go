// Package driver runs a whole analysis: it reads declaration sources and
// libraries, resolves and checks everything, and optionally emits the
// module's metadata.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"frontcore/internal/ast"
	"frontcore/internal/binclass"
	"frontcore/internal/config"
	"frontcore/internal/declsrc"
	"frontcore/internal/diag"
	"frontcore/internal/metadata"
	"frontcore/internal/names"
	"frontcore/internal/observ"
	"frontcore/internal/resolve"
	"frontcore/internal/source"
	"frontcore/internal/storage"
	"frontcore/internal/trace"
)

// Input is one declaration source. Data, when not nil, is used instead of
// reading Path.
type Input struct {
	Path string
	Data []byte
}

// Config controls one Analyze run. The zero value analyzes module "main"
// single-threaded with no libraries.
type Config struct {
	Module         string
	Storage        storage.Mode
	Jobs           int
	MaxDiagnostics int
	Libraries      []string
	ClassDirs      []string

	// Emit serializes every source package into Result.Library when the
	// run has no errors.
	Emit bool
	// Cache, when set, serves repeated runs without resolving anything.
	Cache *DiskCache
	// KeepSession bypasses cache reads so that Result.Session is set.
	KeepSession bool

	Progress ProgressSink
	Timer    *observ.Timer
}

// FromConfig maps a frontcore.toml onto a run configuration. The cache is
// opened only when enabled.
func FromConfig(c *config.Config) (Config, error) {
	mode, err := c.StorageMode()
	if err != nil {
		return Config{}, err
	}
	out := Config{
		Module:         c.Session.Module,
		Storage:        mode,
		Jobs:           c.Session.Jobs,
		MaxDiagnostics: c.Session.MaxDiagnostics,
		Libraries:      slices.Clone(c.Libraries.Paths),
		ClassDirs:      slices.Clone(c.Libraries.ClassDirs),
	}
	if c.Cache.Enabled {
		dir, err := c.CacheDir()
		if err != nil {
			return Config{}, fmt.Errorf("cache directory: %w", err)
		}
		if out.Cache, err = OpenDiskCache(dir); err != nil {
			return Config{}, fmt.Errorf("cache directory: %w", err)
		}
	}
	return out, nil
}

// Result is the outcome of Analyze.
type Result struct {
	Key   Digest
	Files *source.FileSet
	// Session is nil when the result came from the cache.
	Session     *resolve.Session
	Diagnostics []diag.Diagnostic
	// Packages lists the source packages by qualified name.
	Packages []string
	Library  *metadata.Library
	Cached   bool
}

func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevError {
			return true
		}
	}
	return false
}

type run struct {
	cfg      Config
	tracer   trace.Tracer
	span     uint64
	progress progress
	bag      *diag.Bag
	reporter diag.Reporter
	files    *source.FileSet
	sources  []loadedSource
	libs     []loadedLibrary
}

type loadedSource struct {
	path string
	id   source.FileID
}

type loadedLibrary struct {
	path string
	data []byte
	lib  *metadata.Library
}

// Analyze runs the pipeline over inputs. Semantic problems end up in
// Result.Diagnostics; the error return is for cancellation and failures
// of the descriptor graph itself.
func Analyze(ctx context.Context, cfg Config, inputs []Input) (*Result, error) {
	if cfg.Module == "" {
		cfg.Module = "main"
	}
	r := &run{
		cfg:    cfg,
		tracer: trace.FromContext(ctx),
		bag:    diag.NewBag(cfg.MaxDiagnostics),
		files:  source.NewFileSet(),
	}
	r.reporter = &diag.Once{Next: diag.BagReporter{Bag: r.bag}}
	for _, in := range inputs {
		r.progress.files = append(r.progress.files, in.Path)
	}
	r.progress.sink = cfg.Progress

	span := trace.Begin(r.tracer, trace.ScopeDriver, "analyze", trace.CurrentSpan(ctx))
	defer span.End("")
	ctx = trace.WithSpan(ctx, span)
	r.span = trace.CurrentSpan(ctx)

	for _, f := range r.progress.files {
		r.progress.file(f, StageRead, StatusQueued, nil)
	}
	r.phase("read", func() string {
		r.readInputs(inputs)
		r.readLibraries()
		return fmt.Sprintf("%d files, %d libraries", len(r.sources), len(r.libs))
	})
	key := r.key()

	if cfg.Cache != nil && !cfg.KeepSession {
		res, ok := r.fromCache(key)
		if ok {
			return res, nil
		}
	}

	res := &Result{Key: key, Files: r.files}
	builder := ast.NewBuilder(names.NewTable(), ast.Hints{})
	r.phase("lower", func() string {
		loader := declsrc.NewLoader(builder, r.files, r.reporter)
		for _, src := range r.sources {
			r.progress.file(src.path, StageLower, StatusWorking, nil)
			if _, err := loader.Lower(src.id); err != nil {
				r.progress.file(src.path, StageLower, StatusError, err)
				continue
			}
			r.progress.file(src.path, StageLower, StatusDone, nil)
		}
		return ""
	})

	libs := r.providers(builder.Names)
	sess, err := resolve.NewSession(resolve.Config{
		ModuleName: cfg.Module,
		Names:      builder.Names,
		Storage:    cfg.Storage,
		Jobs:       cfg.Jobs,
		Builder:    builder,
		Libraries:  libs,
		Reporter:   r.reporter,
		Tracer:     r.tracer,
	})
	if err != nil {
		return nil, err
	}
	res.Session = sess

	r.progress.stage(StageResolve, StatusWorking, nil, 0)
	start := time.Now()
	var resolveErr error
	r.phase("resolve", func() string {
		resolveErr = sess.ForceResolveAll(ctx)
		return ""
	})
	if resolveErr != nil {
		r.progress.stage(StageResolve, StatusError, resolveErr, time.Since(start))
		return nil, resolveErr
	}
	r.progress.stage(StageResolve, StatusDone, nil, time.Since(start))

	for _, fq := range sess.Packages() {
		res.Packages = append(res.Packages, sess.Names().FqString(fq))
	}
	r.bag.Sort()
	res.Diagnostics = r.bag.Items()

	var encoded []byte
	if cfg.Emit && !res.HasErrors() {
		r.progress.stage(StageEmit, StatusWorking, nil, 0)
		var emitErr error
		r.phase("emit", func() string {
			res.Library, encoded, emitErr = emit(sess, cfg.Module)
			return ""
		})
		if emitErr != nil {
			r.progress.stage(StageEmit, StatusError, emitErr, 0)
			return nil, emitErr
		}
		r.progress.stage(StageEmit, StatusDone, nil, 0)
	}

	if cfg.Cache != nil {
		payload := &Payload{
			Module:      cfg.Module,
			Packages:    res.Packages,
			Diagnostics: packDiagnostics(res.Diagnostics),
			Library:     encoded,
		}
		if err := cfg.Cache.Put(key, payload); err != nil {
			trace.Point(r.tracer, trace.ScopeDriver, "cache write failed", err.Error(), r.span)
		}
	}
	return res, nil
}

func (r *run) phase(name string, fn func() string) {
	var end func(string)
	if r.cfg.Timer != nil {
		end = r.cfg.Timer.Track(name)
	}
	sp := trace.Begin(r.tracer, trace.ScopePass, name, r.span)
	note := fn()
	sp.End(note)
	if end != nil {
		end(note)
	}
}

func (r *run) readInputs(inputs []Input) {
	for _, in := range inputs {
		if id, ok := r.files.Lookup(in.Path); ok {
			diag.ReportWarning(r.reporter, diag.SrcDuplicateFile, source.Span{File: id},
				fmt.Sprintf("%s is already loaded", in.Path)).Emit()
			r.progress.file(in.Path, StageRead, StatusDone, nil)
			continue
		}
		r.progress.file(in.Path, StageRead, StatusWorking, nil)
		if in.Data != nil {
			r.sources = append(r.sources, loadedSource{path: in.Path, id: r.files.AddVirtual(in.Path, in.Data)})
			r.progress.file(in.Path, StageRead, StatusDone, nil)
			continue
		}
		id, err := r.files.Load(in.Path)
		if err != nil {
			diag.ReportError(r.reporter, diag.SrcReadFailure, source.NoSpan,
				fmt.Sprintf("cannot read %s: %v", in.Path, err)).Emit()
			r.progress.file(in.Path, StageRead, StatusError, err)
			continue
		}
		r.sources = append(r.sources, loadedSource{path: in.Path, id: id})
		r.progress.file(in.Path, StageRead, StatusDone, nil)
	}
}

// readLibraries decodes every library file; unreadable ones are reported
// and left out.
func (r *run) readLibraries() {
	for _, path := range r.cfg.Libraries {
		data, err := os.ReadFile(path)
		if err != nil {
			diag.ReportError(r.reporter, diag.MetCorruptLibrary, source.NoSpan,
				fmt.Sprintf("cannot read library %s: %v", path, err)).Emit()
			continue
		}
		lib, err := metadata.DecodeLibrary(bytes.NewReader(data))
		if err != nil {
			var verr *metadata.VersionError
			code := diag.MetCorruptLibrary
			if errors.As(err, &verr) {
				code = diag.MetVersionMismatch
			}
			diag.ReportError(r.reporter, code, source.NoSpan, fmt.Sprintf("%s: %v", path, err)).Emit()
			continue
		}
		r.libs = append(r.libs, loadedLibrary{path: path, data: data, lib: lib})
	}
}

// providers indexes each library on its own so that one corrupt library
// does not hide the others.
func (r *run) providers(nt *names.Table) []resolve.Library {
	opts := providerOptions(nt, r.cfg.Storage, r.cfg.ClassDirs, r.reporter)
	var out []resolve.Library
	for _, l := range r.libs {
		p, err := metadata.NewProvider(nt, []*metadata.Library{l.lib}, opts...)
		if err != nil {
			diag.ReportError(r.reporter, diag.MetCorruptLibrary, source.NoSpan,
				fmt.Sprintf("%s: %v", l.path, err)).Emit()
			continue
		}
		out = append(out, p)
	}
	return out
}

// providerOptions reads class file decorations from classDirs, in order.
func providerOptions(nt *names.Table, mode storage.Mode, classDirs []string, reporter diag.Reporter) []metadata.ProviderOption {
	if len(classDirs) == 0 {
		return nil
	}
	chain := make(binclass.Chain, 0, len(classDirs))
	for _, dir := range classDirs {
		chain = append(chain, binclass.DirLocator{Root: dir})
	}
	ls := metadata.NewLoadersStorage(storage.NewManager(mode), nt, chain, reporter)
	return []metadata.ProviderOption{metadata.WithDecorations(ls)}
}

// key digests everything that can change the result.
func (r *run) key() Digest {
	settings := newKeyWriter()
	settings.str(r.cfg.Module)
	settings.str(r.cfg.Storage.String())
	settings.num(r.cfg.MaxDiagnostics)
	if r.cfg.Emit {
		settings.num(1)
	} else {
		settings.num(0)
	}
	// diagnostics reported while reading have no other trace in the key
	for _, d := range r.bag.Items() {
		settings.str(d.Code.ID())
		settings.str(d.Message)
	}

	var parts []Digest
	for _, src := range r.sources {
		f := r.files.Get(src.id)
		k := newKeyWriter()
		k.str(f.Path)
		k.str(string(f.Hash[:]))
		parts = append(parts, k.sum())
	}
	for _, l := range r.libs {
		k := newKeyWriter()
		k.str(l.path)
		k.str(string(l.data))
		parts = append(parts, k.sum())
	}
	for _, dir := range r.cfg.ClassDirs {
		parts = append(parts, classDirDigest(dir))
	}
	return combineDigest(settings.sum(), parts...)
}

// classDirDigest hashes every class file under dir. A missing directory
// hashes like an empty one.
func classDirDigest(dir string) Digest {
	k := newKeyWriter()
	k.str(dir)
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, binclass.Extension) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		k.str(path)
		k.str(string(data))
		return nil
	})
	return k.sum()
}

func (r *run) fromCache(key Digest) (*Result, bool) {
	payload, ok, err := r.cfg.Cache.Get(key)
	if err != nil {
		trace.Point(r.tracer, trace.ScopeDriver, "cache read failed", err.Error(), r.span)
		return nil, false
	}
	if !ok || payload.Module != r.cfg.Module {
		return nil, false
	}
	res := &Result{
		Key:         key,
		Files:       r.files,
		Diagnostics: unpackDiagnostics(payload.Diagnostics),
		Packages:    payload.Packages,
		Cached:      true,
	}
	if r.cfg.Emit && !res.HasErrors() {
		if payload.Library == nil {
			return nil, false
		}
		lib, err := metadata.DecodeLibrary(bytes.NewReader(payload.Library))
		if err != nil {
			return nil, false
		}
		res.Library = lib
	}
	for _, f := range r.progress.files {
		r.progress.file(f, StageResolve, StatusCached, nil)
	}
	return res, true
}

// emit serializes every source package. A serializer contract violation
// comes back as an error.
func emit(sess *resolve.Session, module string) (lib *metadata.Library, encoded []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			cv, ok := rec.(*metadata.ContractViolation)
			if !ok {
				panic(rec)
			}
			lib, encoded, err = nil, nil, cv
		}
	}()
	var frags []*metadata.Fragment
	for _, fq := range sess.Packages() {
		p := sess.ResolvePackage(fq)
		if p == nil {
			continue
		}
		frags = append(frags, metadata.SerializePackage(p))
	}
	lib = metadata.NewLibrary(module, frags...)
	var buf bytes.Buffer
	if err := metadata.EncodeLibrary(&buf, lib); err != nil {
		return nil, nil, err
	}
	return lib, buf.Bytes(), nil
}

package driver

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"frontcore/internal/diag"
	"frontcore/internal/source"
)

// cacheSchema is bumped whenever Payload changes shape.
const cacheSchema uint16 = 1

// DiskCache keeps analysis results on disk, one file per Digest. It is
// safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Payload is what a cache hit restores. Spans refer to inputs by their
// position in the file set, which a hit rebuilds in the same order.
type Payload struct {
	Schema      uint16
	Module      string
	Packages    []string
	Diagnostics []CachedDiagnostic
	// Library holds the encoded library when the run emitted one.
	Library []byte
}

type CachedSpan struct {
	_msgpack struct{} `msgpack:",as_array"`
	File     uint32
	Start    uint32
	End      uint32
}

type CachedNote struct {
	_msgpack struct{} `msgpack:",as_array"`
	Span     CachedSpan
	Msg      string
}

type CachedDiagnostic struct {
	_msgpack struct{} `msgpack:",as_array"`
	Severity uint8
	Code     uint16
	Message  string
	Primary  CachedSpan
	Notes    []CachedNote
}

// OpenDiskCache creates dir if needed.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "results", hexKey[:2], hexKey+".mp")
}

// Put writes payload under key through a temporary file.
func (c *DiskCache) Put(key Digest, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	payload.Schema = cacheSchema
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the payload stored under key. A payload of another schema is
// a miss.
func (c *DiskCache) Get(key Digest) (*Payload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	var out Payload
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false, err
	}
	if out.Schema != cacheSchema {
		return nil, false, nil
	}
	return &out, true, nil
}

// DropAll removes every cached result.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "results"))
}

func packSpan(s source.Span) CachedSpan {
	return CachedSpan{File: uint32(s.File), Start: s.Start, End: s.End}
}

func (s CachedSpan) span() source.Span {
	return source.Span{File: source.FileID(s.File), Start: s.Start, End: s.End}
}

func packDiagnostics(list []diag.Diagnostic) []CachedDiagnostic {
	out := make([]CachedDiagnostic, 0, len(list))
	for _, d := range list {
		cd := CachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			Primary:  packSpan(d.Primary),
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Span: packSpan(n.Span), Msg: n.Msg})
		}
		out = append(out, cd)
	}
	return out
}

func unpackDiagnostics(list []CachedDiagnostic) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(list))
	for _, cd := range list {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code), cd.Primary.span(), cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(n.Span.span(), n.Msg)
		}
		out = append(out, d)
	}
	return out
}

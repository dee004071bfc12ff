package source

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"fortio.org/safecast"
)

// FileSet owns the sources of one analysis run. FileIDs are dense and
// start at 1.
type FileSet struct {
	mu     sync.RWMutex
	files  []*File
	byPath map[string]FileID
}

func NewFileSet() *FileSet {
	return &FileSet{byPath: make(map[string]FileID)}
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Normalize strips a UTF-8 BOM and turns CRLF line ends into LF. A lone CR
// is kept. The returned flags say what changed.
func Normalize(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	if rest, ok := bytes.CutPrefix(content, bom); ok {
		content, flags = rest, FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content, flags = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n")), flags|FileNormalizedCRLF
	}
	return content, flags
}

// Add normalizes content and stores it under path with a fresh id. A later
// source with the same path shadows the earlier one in Lookup.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	content, changed := Normalize(content)
	starts := []uint32{0}
	for i, c := range content {
		if c == '\n' {
			starts = append(starts, mustU32(i+1))
		}
	}
	path = filepath.ToSlash(filepath.Clean(path))

	fs.mu.Lock()
	defer fs.mu.Unlock()
	id := FileID(mustU32(len(fs.files) + 1))
	fs.files = append(fs.files, &File{
		ID:         id,
		Path:       path,
		Content:    content,
		lineStarts: starts,
		Hash:       sha256.Sum256(content),
		Flags:      flags | changed,
	})
	fs.byPath[path] = id
	return id
}

// Load reads path from disk and adds it.
func (fs *FileSet) Load(path string) (FileID, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- caller-chosen input
	if err != nil {
		return NoFileID, err
	}
	return fs.Add(path, content, 0), nil
}

// AddVirtual adds an in-memory source.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get returns the file with id, or nil.
func (fs *FileSet) Get(id FileID) *File {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if id == NoFileID || int(id) > len(fs.files) {
		return nil
	}
	return fs.files[id-1]
}

// Lookup returns the newest id added under path.
func (fs *FileSet) Lookup(path string) (FileID, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	id, ok := fs.byPath[filepath.ToSlash(filepath.Clean(path))]
	return id, ok
}

func (fs *FileSet) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.files)
}

// Resolve returns the positions of both ends of span, or zero values when
// the span has no file.
func (fs *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fs.Get(span.File)
	if f == nil {
		return LineCol{}, LineCol{}
	}
	return f.Position(span.Start), f.Position(span.End)
}

// Position converts a byte offset into a line and column.
func (f *File) Position(off uint32) LineCol {
	i, exact := slices.BinarySearch(f.lineStarts, off)
	if !exact {
		i--
	}
	return LineCol{Line: mustU32(i + 1), Col: off - f.lineStarts[i] + 1}
}

// Offset converts pos back into a byte offset, clamped to the content.
func (f *File) Offset(pos LineCol) uint32 {
	if f == nil || pos.Line == 0 {
		return 0
	}
	size := mustU32(len(f.Content))
	if int(pos.Line) > len(f.lineStarts) {
		return size
	}
	off := f.lineStarts[pos.Line-1]
	if pos.Col > 1 {
		off += pos.Col - 1
	}
	return min(off, size)
}

// GetLine returns the text of a 1-based line without its line end.
func (f *File) GetLine(line uint32) string {
	if f == nil || line == 0 || int(line) > len(f.lineStarts) {
		return ""
	}
	start, end := f.lineStarts[line-1], mustU32(len(f.Content))
	if int(line) < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}
	return string(f.Content[start:end])
}

func mustU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("source too large: %w", err))
	}
	return v
}

// Package source holds declaration sources and the spans that point into
// them.
package source

import "fmt"

// FileID identifies a source inside a FileSet.
type FileID uint32

// NoFileID is carried by spans of synthesized descriptors, built-ins and
// binary metadata.
const NoFileID FileID = 0

// FileFlags records how a source was obtained and what loading changed.
type FileFlags uint8

const (
	FileVirtual FileFlags = 1 << iota // added from memory
	FileBinary                        // a persisted metadata library
	FileHadBOM
	FileNormalizedCRLF
)

// File is one loaded source. Content is normalized: no BOM, no CRLF.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	// lineStarts[i] is the offset of the first byte of line i+1.
	lineStarts []uint32
	Hash       [32]byte
	Flags      FileFlags
}

// LineCol is a 1-based line and column; columns count bytes.
type LineCol struct {
	Line uint32
	Col  uint32
}

// Span is the half-open byte range [Start, End) of one file. Descriptors
// and diagnostics carry it as an opaque source location.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// NoSpan is the zero span.
var NoSpan = Span{}

// IsValid reports whether s points into a loaded file.
func (s Span) IsValid() bool { return s.File != NoFileID }

func (s Span) String() string { return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End) }

// Len is the width of s in bytes.
func (s Span) Len() uint32 {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

// Contains reports whether inner lies within s in the same file.
func (s Span) Contains(inner Span) bool {
	return s.File == inner.File && s.Start <= inner.Start && inner.End <= s.End && inner.Start <= inner.End
}

// Cover extends s to include other. Spans of another file leave s as is.
func (s Span) Cover(other Span) Span {
	if s.File == other.File {
		s.Start = min(s.Start, other.Start)
		s.End = max(s.End, other.End)
	}
	return s
}

package metadata

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	LibraryMagic = "FCLB"
	// LibraryVersion is bumped on any incompatible message change.
	LibraryVersion uint16 = 1
)

// LibraryHeader opens every library file.
type LibraryHeader struct {
	_msgpack struct{} `msgpack:",as_array"`
	Magic    string   `msgpack:"magic"`
	Version  uint16   `msgpack:"version"`
	Module   string   `msgpack:"module"`
}

// Library is the on-disk form of a compiled module: one fragment per
// package.
type Library struct {
	_msgpack  struct{}      `msgpack:",as_array"`
	Header    LibraryHeader `msgpack:"header"`
	Fragments []Fragment    `msgpack:"fragments"`
}

var ErrNotLibrary = errors.New("metadata: not a library file")

// VersionError reports a library written by an incompatible version.
type VersionError struct {
	Got, Want uint16
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("metadata: library version %d, want %d", e.Got, e.Want)
}

func newEncoder(w io.Writer) *msgpack.Encoder {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	enc.UseCompactInts(true)
	return enc
}

// NewLibrary wraps fragments with a current header.
func NewLibrary(module string, frags ...*Fragment) *Library {
	lib := &Library{Header: LibraryHeader{Magic: LibraryMagic, Version: LibraryVersion, Module: module}}
	for _, f := range frags {
		lib.Fragments = append(lib.Fragments, *f)
	}
	return lib
}

// EncodeLibrary writes lib. Equal libraries encode to equal bytes.
func EncodeLibrary(w io.Writer, lib *Library) error {
	if err := newEncoder(w).Encode(lib); err != nil {
		return fmt.Errorf("metadata: encode library: %w", err)
	}
	return nil
}

// DecodeLibrary reads a library and checks its header.
func DecodeLibrary(r io.Reader) (*Library, error) {
	var lib Library
	if err := msgpack.NewDecoder(r).Decode(&lib); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotLibrary, err)
	}
	if lib.Header.Magic != LibraryMagic {
		return nil, ErrNotLibrary
	}
	if lib.Header.Version != LibraryVersion {
		return nil, &VersionError{Got: lib.Header.Version, Want: LibraryVersion}
	}
	return &lib, nil
}

// MarshalFragment encodes a single fragment.
func MarshalFragment(f *Fragment) ([]byte, error) {
	var buf bytes.Buffer
	if err := newEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("metadata: encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}

func UnmarshalFragment(data []byte) (*Fragment, error) {
	var f Fragment
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("metadata: decode fragment: %w", err)
	}
	return &f, nil
}

// ReadLibraryFile decodes the library at path.
func ReadLibraryFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lib, err := DecodeLibrary(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// WriteLibraryFile writes lib through a temporary file and renames it into
// place.
func WriteLibraryFile(path string, lib *Library) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lib-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	w := bufio.NewWriter(tmp)
	if err := EncodeLibrary(w, lib); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

package binclass

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Extension is the file extension of class files on disk.
const Extension = ".fcc"

var ErrNotFound = errors.New("binclass: class not found")

// Locator finds the payload of a class by internal name.
type Locator interface {
	Find(internalName string) ([]byte, error)
}

// MapLocator serves payloads from memory.
type MapLocator struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMapLocator() *MapLocator {
	return &MapLocator{files: make(map[string][]byte)}
}

func (l *MapLocator) Put(internalName string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[internalName] = data
}

func (l *MapLocator) Find(internalName string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	data, ok := l.files[internalName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, internalName)
	}
	return data, nil
}

// DirLocator reads <Root>/<internal name>.fcc.
type DirLocator struct {
	Root string
}

func (l DirLocator) path(internalName string) string {
	return filepath.Join(l.Root, filepath.FromSlash(internalName)+Extension)
}

func (l DirLocator) Find(internalName string) ([]byte, error) {
	data, err := os.ReadFile(l.path(internalName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, internalName)
	}
	return data, err
}

// Write stores f under the root, creating package directories.
func (l DirLocator) Write(f File) error {
	data, err := Marshal(f)
	if err != nil {
		return err
	}
	p := l.path(f.Name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// Chain asks each locator in order and returns the first hit.
type Chain []Locator

func (c Chain) Find(internalName string) ([]byte, error) {
	for _, l := range c {
		data, err := l.Find(internalName)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return data, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, internalName)
}

// Package diagfmt renders diagnostics in machine-readable formats.
package diagfmt

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathMode chooses how file paths appear in output.
type PathMode uint8

const (
	PathModeAuto PathMode = iota // as loaded
	PathModeAbsolute
	PathModeRelative // to Paths.Base
	PathModeBasename
)

var pathModeNames = [...]string{"auto", "absolute", "relative", "basename"}

func (m PathMode) String() string {
	if int(m) < len(pathModeNames) {
		return pathModeNames[m]
	}
	return "unknown"
}

// ParsePathMode reads a mode name; the empty string means auto.
func ParsePathMode(s string) (PathMode, error) {
	if s == "" {
		return PathModeAuto, nil
	}
	for i, name := range pathModeNames {
		if strings.EqualFold(s, name) {
			return PathMode(i), nil
		}
	}
	return PathModeAuto, fmt.Errorf("path mode %q: want %s", s, strings.Join(pathModeNames[:], "|"))
}

// Paths rewrites source paths for output. Base is only read by
// PathModeRelative; a path that cannot be rewritten is kept.
type Paths struct {
	Mode PathMode
	Base string
}

func (p Paths) Format(path string) string {
	switch p.Mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeRelative:
		if p.Base == "" {
			break
		}
		if rel, err := filepath.Rel(p.Base, path); err == nil {
			return filepath.ToSlash(rel)
		}
	case PathModeBasename:
		return filepath.Base(path)
	}
	return path
}

// JSONOpts configures JSON output.
type JSONOpts struct {
	Paths
	IncludePositions bool
	IncludeNotes     bool
	// Max limits the listed diagnostics; Total still counts all of them.
	Max int
}

// SarifRunMeta describes the tool run recorded in a SARIF log.
type SarifRunMeta struct {
	Paths
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}

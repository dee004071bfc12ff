// Package config reads frontcore.toml, the per-project settings of the
// analyzer. Command-line flags override what the file says.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"frontcore/internal/storage"
	"frontcore/internal/trace"
)

// FileName is the name Find looks for.
const FileName = "frontcore.toml"

type Config struct {
	Session   Session   `toml:"session"`
	Trace     Trace     `toml:"trace"`
	Libraries Libraries `toml:"libraries"`
	Cache     Cache     `toml:"cache"`

	// Path is the file the config was read from, empty for Default.
	Path string `toml:"-"`
}

type Session struct {
	// Storage is "single" or "locking".
	Storage        string `toml:"storage"`
	Jobs           int    `toml:"jobs"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	Module         string `toml:"module"`
}

type Trace struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

type Libraries struct {
	// Paths are library files, relative to the config file.
	Paths []string `toml:"paths"`
	// ClassDirs hold compiled class files with annotations.
	ClassDirs []string `toml:"class_dirs"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func Default() *Config {
	return &Config{
		Session: Session{Storage: "single", Jobs: 1, MaxDiagnostics: 100, Module: "main"},
		Trace:   Trace{Level: "off", Mode: "stream"},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.Path = path
	cfg.resolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Find walks from startDir up to the filesystem root looking for
// frontcore.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Discover loads the nearest frontcore.toml above startDir, or Default
// when there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, filepath.FromSlash(p))
	}
	for i, p := range c.Libraries.Paths {
		c.Libraries.Paths[i] = abs(p)
	}
	for i, p := range c.Libraries.ClassDirs {
		c.Libraries.ClassDirs[i] = abs(p)
	}
	c.Cache.Dir = abs(c.Cache.Dir)
	if c.Trace.Output != "-" {
		c.Trace.Output = abs(c.Trace.Output)
	}
}

// Validate checks the values that Load cannot type-check.
func (c *Config) Validate() error {
	var errs []error
	mode, err := c.StorageMode()
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("[session].storage: %w", err))
	case c.Session.Jobs > 1 && mode != storage.ModeLocking:
		errs = append(errs, fmt.Errorf("[session].jobs = %d requires storage = \"locking\"", c.Session.Jobs))
	}
	if c.Session.Jobs < 0 {
		errs = append(errs, fmt.Errorf("[session].jobs must not be negative, have %d", c.Session.Jobs))
	}
	if c.Session.MaxDiagnostics < 0 {
		errs = append(errs, errors.New("[session].max_diagnostics must not be negative"))
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		errs = append(errs, fmt.Errorf("[trace].level: %w", err))
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		errs = append(errs, fmt.Errorf("[trace].mode: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Config) StorageMode() (storage.Mode, error) { return storage.ParseMode(c.Session.Storage) }

// TraceConfig converts the [trace] table for trace.New.
func (c *Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{Level: level, Mode: mode, OutputPath: c.Trace.Output}, nil
}

// CacheDir is the disk cache location: [cache].dir, else the user cache
// directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "frontcore"), nil
}

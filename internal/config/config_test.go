package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/storage"
	"frontcore/internal/trace"
)

func write(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, `
[session]
storage = "locking"
jobs = 4

[trace]
level = "phase"
output = "trace.ndjson"

[libraries]
paths = ["libs/core.fclib", "/abs/other.fclib"]

[cache]
enabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	mode, err := cfg.StorageMode()
	require.NoError(t, err)
	assert.Equal(t, storage.ModeLocking, mode)
	assert.Equal(t, 4, cfg.Session.Jobs)
	// untouched keys keep their defaults
	assert.Equal(t, 100, cfg.Session.MaxDiagnostics)
	assert.Equal(t, "stream", cfg.Trace.Mode)
	assert.Equal(t, []string{filepath.Join(dir, "libs", "core.fclib"), "/abs/other.fclib"}, cfg.Libraries.Paths)
	assert.True(t, cfg.Cache.Enabled)

	tc, err := cfg.TraceConfig()
	require.NoError(t, err)
	assert.Equal(t, trace.LevelPhase, tc.Level)
	assert.Equal(t, filepath.Join(dir, "trace.ndjson"), tc.OutputPath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	for name, text := range map[string]string{
		"unknown key":   "[session]\nthreads = 2\n",
		"storage":       "[session]\nstorage = \"fast\"\n",
		"jobs":          "[session]\njobs = 3\n",
		"trace level":   "[trace]\nlevel = \"loud\"\n",
		"syntax":        "[session\n",
		"negative jobs": "[session]\njobs = -1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(write(t, t.TempDir(), text))
			assert.Error(t, err)
		})
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	path := write(t, root, "[session]\njobs = 1\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, found)

	cfg, err := Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Path)
	dir, err := (&Config{Cache: Cache{Dir: "/tmp/x"}}).CacheDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", dir)
}

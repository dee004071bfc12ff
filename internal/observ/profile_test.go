package observ

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilerWritesFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := ProfileConfig{
		CPU:          filepath.Join(dir, "cpu.pprof"),
		Heap:         filepath.Join(dir, "heap.pprof"),
		RuntimeTrace: filepath.Join(dir, "run.trace"),
	}
	require.True(t, cfg.Enabled())

	p, err := StartProfiler(cfg)
	require.NoError(t, err)
	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	for _, path := range []string{cfg.CPU, cfg.Heap, cfg.RuntimeTrace} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		assert.Positive(t, info.Size(), path)
	}
}

func TestProfilerBadPath(t *testing.T) {
	assert.False(t, ProfileConfig{}.Enabled())
	_, err := StartProfiler(ProfileConfig{CPU: filepath.Join(t.TempDir(), "missing", "cpu.pprof")})
	assert.Error(t, err)
}

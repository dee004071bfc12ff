package driver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frontcore/internal/config"
	"frontcore/internal/diag"
	"frontcore/internal/metadata"
	"frontcore/internal/observ"
	"frontcore/internal/storage"
	"frontcore/internal/testkit"
)

const geoSource = `
package: geo
declarations:
  - class: Box
    constructor:
      params: [{name: item, type: Int, val: true}]
    members:
      - fun: get
        returns: Int
        expr: item
  - fun: answer
    returns: Int
    expr: 42
`

const clientSource = `
package: app
imports: [geo.answer]
declarations:
  - fun: run
    returns: Int
    expr: {call: answer}
`

const brokenSource = `
package: broken
declarations:
  - fun: bad
    returns: Int
    expr: missing
`

func summary(list []diag.Diagnostic) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		out = append(out, fmt.Sprintf("%s %s %s %d", d.Code.ID(), d.Primary, d.Message, len(d.Notes)))
	}
	return out
}

func encode(t *testing.T, lib *metadata.Library) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, metadata.EncodeLibrary(&buf, lib))
	return buf.Bytes()
}

func inputs(pairs ...string) []Input {
	var out []Input
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Input{Path: pairs[i], Data: []byte(pairs[i+1])})
	}
	return out
}

func TestAnalyzeEmitsLibrary(t *testing.T) {
	res, err := Analyze(context.Background(), Config{Module: "geo", Emit: true}, inputs("geo.fc.yaml", geoSource))
	require.NoError(t, err)
	require.False(t, res.HasErrors(), "%v", res.Diagnostics)
	assert.Equal(t, []string{"geo"}, res.Packages)
	require.NotNil(t, res.Session)
	require.NoError(t, testkit.CheckSession(res.Session))
	require.NotNil(t, res.Library)
	assert.Equal(t, "geo", res.Library.Header.Module)
	require.Len(t, res.Library.Fragments, 1)

	path := filepath.Join(t.TempDir(), "geo.fclib")
	require.NoError(t, metadata.WriteLibraryFile(path, res.Library))

	client, err := Analyze(context.Background(), Config{Libraries: []string{path}}, inputs("app.fc.yaml", clientSource))
	require.NoError(t, err)
	assert.False(t, client.HasErrors(), "%v", client.Diagnostics)
	assert.Nil(t, client.Library)
	require.NoError(t, testkit.CheckSession(client.Session))
}

func TestAnalyzeReportsErrors(t *testing.T) {
	res, err := Analyze(context.Background(), Config{Emit: true}, inputs("broken.fc.yaml", brokenSource))
	require.NoError(t, err)
	assert.True(t, res.HasErrors())
	assert.Nil(t, res.Library)
	for _, d := range res.Diagnostics {
		assert.True(t, d.Primary.IsValid(), d.Message)
	}
}

const registrySource = `
package: reg
declarations:
  - object: Registry
    members:
      - val: size
        type: Int
        init: 3
      - fun: limit
        returns: Int
        expr: 7
  - class: Holder
    members:
      - object: Factory
        companion: true
        members:
          - fun: make
            returns: Int
            expr: 1
  - fun: total
    returns: Int
    body:
      - val: {name: s, init: {member: size, receiver: Registry}}
      - val: {name: l, init: {call: limit, receiver: Registry}}
      - val: {name: m, init: {call: make, receiver: Holder}}
      - return: m
`

func TestQualifiedObjectAccess(t *testing.T) {
	res, err := Analyze(context.Background(), Config{Module: "reg", KeepSession: true}, inputs("reg.fc.yaml", registrySource))
	require.NoError(t, err)
	assert.False(t, res.HasErrors(), "%v", summary(res.Diagnostics))
	require.NotNil(t, res.Session)
	require.NoError(t, testkit.CheckSession(res.Session))
}

func TestUnresolvedImportWithoutLibrary(t *testing.T) {
	res, err := Analyze(context.Background(), Config{}, inputs("app.fc.yaml", clientSource))
	require.NoError(t, err)
	assert.True(t, res.HasErrors())
}

func TestReadProblemsAreDiagnostics(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "bad.fclib")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a library"), 0o644))

	cfg := Config{Libraries: []string{corrupt, filepath.Join(dir, "absent.fclib")}}
	in := append(inputs("geo.fc.yaml", geoSource, "geo.fc.yaml", geoSource),
		Input{Path: filepath.Join(dir, "missing.fc.yaml")})
	res, err := Analyze(context.Background(), cfg, in)
	require.NoError(t, err)

	count := func(code diag.Code) int {
		n := 0
		for _, d := range res.Diagnostics {
			if d.Code == code {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 2, count(diag.MetCorruptLibrary))
	assert.Equal(t, 1, count(diag.SrcDuplicateFile))
	assert.Equal(t, 1, count(diag.SrcReadFailure))
	// the readable source is still analyzed
	assert.Equal(t, []string{"geo"}, res.Packages)
}

func TestCacheServesRepeatedRuns(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	require.NoError(t, err)
	cfg := Config{Cache: cache, Emit: true}

	first, err := Analyze(context.Background(), cfg, inputs("broken.fc.yaml", brokenSource))
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.NotEmpty(t, first.Diagnostics)

	second, err := Analyze(context.Background(), cfg, inputs("broken.fc.yaml", brokenSource))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Nil(t, second.Session)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, summary(first.Diagnostics), summary(second.Diagnostics))

	cfg.KeepSession = true
	third, err := Analyze(context.Background(), cfg, inputs("broken.fc.yaml", brokenSource))
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.NotNil(t, third.Session)

	changed, err := Analyze(context.Background(), Config{Cache: cache}, inputs("broken.fc.yaml", geoSource))
	require.NoError(t, err)
	assert.NotEqual(t, first.Key, changed.Key)
	assert.False(t, changed.Cached)

	require.NoError(t, cache.DropAll())
	_, ok, err := cache.Get(first.Key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedLibraryIsRestored(t *testing.T) {
	cache, err := OpenDiskCache(t.TempDir())
	require.NoError(t, err)
	cfg := Config{Module: "geo", Cache: cache, Emit: true}
	first, err := Analyze(context.Background(), cfg, inputs("geo.fc.yaml", geoSource))
	require.NoError(t, err)
	second, err := Analyze(context.Background(), cfg, inputs("geo.fc.yaml", geoSource))
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.NotNil(t, second.Library)
	assert.Equal(t, encode(t, first.Library), encode(t, second.Library))
}

func TestProgressEvents(t *testing.T) {
	var events []Event
	cfg := Config{Progress: SinkFunc(func(ev Event) { events = append(events, ev) })}
	_, err := Analyze(context.Background(), cfg, inputs("geo.fc.yaml", geoSource))
	require.NoError(t, err)

	var fileStatuses []string
	for _, ev := range events {
		if ev.File == "geo.fc.yaml" {
			fileStatuses = append(fileStatuses, string(ev.Stage)+":"+string(ev.Status))
		}
	}
	assert.Equal(t, []string{
		"read:queued", "read:working", "read:done",
		"lower:working", "lower:done",
		"resolve:working", "resolve:done",
	}, fileStatuses)
}

func TestTimerRecordsPhases(t *testing.T) {
	timer := observ.NewTimer()
	_, err := Analyze(context.Background(), Config{Timer: timer, Emit: true}, inputs("geo.fc.yaml", geoSource))
	require.NoError(t, err)
	var got []string
	for _, p := range timer.Report().Phases {
		got = append(got, p.Name)
	}
	assert.Equal(t, []string{"read", "lower", "resolve", "emit"}, got)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Analyze(ctx, Config{}, inputs("geo.fc.yaml", geoSource))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromConfig(t *testing.T) {
	c := config.Default()
	c.Session.Storage = "locking"
	c.Session.Jobs = 2
	c.Cache.Enabled = true
	c.Cache.Dir = t.TempDir()
	cfg, err := FromConfig(c)
	require.NoError(t, err)
	assert.Equal(t, storage.ModeLocking, cfg.Storage)
	assert.Equal(t, 2, cfg.Jobs)
	require.NotNil(t, cfg.Cache)
	assert.Equal(t, c.Cache.Dir, cfg.Cache.Dir())

	c.Cache.Enabled = false
	cfg, err = FromConfig(c)
	require.NoError(t, err)
	assert.Nil(t, cfg.Cache)
}

func TestParallelMatchesSequential(t *testing.T) {
	in := inputs("geo.fc.yaml", geoSource, "broken.fc.yaml", brokenSource)
	seq, err := Analyze(context.Background(), Config{}, in)
	require.NoError(t, err)
	par, err := Analyze(context.Background(), Config{Storage: storage.ModeLocking, Jobs: 4}, in)
	require.NoError(t, err)
	assert.Equal(t, seq.Packages, par.Packages)
	assert.Equal(t, summary(seq.Diagnostics), summary(par.Diagnostics))
}

package version

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"frontcore/internal/metadata"
)

func TestCurrentTrimsAndDefaults(t *testing.T) {
	orig := []string{Version, GitCommit, GitMessage, BuildDate}
	t.Cleanup(func() { Version, GitCommit, GitMessage, BuildDate = orig[0], orig[1], orig[2], orig[3] })

	Version, GitCommit, GitMessage, BuildDate = "  ", " abc123 ", "", "2026-01-15T10:30:00Z"
	info := Current()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "abc123", info.GitCommit)
	assert.Empty(t, info.GitMessage)
	assert.Equal(t, "2026-01-15T10:30:00Z", info.BuildDate)
	assert.Equal(t, metadata.LibraryVersion, info.LibraryFormat)
}

func TestColored(t *testing.T) {
	prev := color.NoColor
	t.Cleanup(func() { color.NoColor = prev })

	color.NoColor = true
	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "dev", "1.2"} {
		assert.Equal(t, v, Colored(v))
	}

	color.NoColor = false
	out := Colored("1.2.3-dev")
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "-dev")
	assert.NotEqual(t, "1.2.3-dev", out)
}

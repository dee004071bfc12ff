// Package version holds the build fingerprint of the frontcore CLI. The
// string variables can be overridden at build time via -ldflags.
package version

import (
	"strings"

	"github.com/fatih/color"

	"frontcore/internal/metadata"
)

var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Info is the trimmed build fingerprint.
type Info struct {
	Version       string `json:"version"`
	GitCommit     string `json:"git_commit,omitempty"`
	GitMessage    string `json:"git_message,omitempty"`
	BuildDate     string `json:"build_date,omitempty"`
	LibraryFormat uint16 `json:"library_format"`
}

func Current() Info {
	v := strings.TrimSpace(Version)
	if v == "" {
		v = "dev"
	}
	return Info{
		Version:       v,
		GitCommit:     strings.TrimSpace(GitCommit),
		GitMessage:    strings.TrimSpace(GitMessage),
		BuildDate:     strings.TrimSpace(BuildDate),
		LibraryFormat: metadata.LibraryVersion,
	}
}

// Colored renders a semantic version with its major, minor and patch parts
// in distinct colors; anything after the patch number is left plain.
// Colors follow color.NoColor.
func Colored(v string) string {
	major, rest, ok := strings.Cut(v, ".")
	if !ok {
		return v
	}
	minor, rest, ok := strings.Cut(rest, ".")
	if !ok {
		return v
	}
	end := strings.IndexAny(rest, "-+")
	if end < 0 {
		end = len(rest)
	}
	return majorColor.Sprint(major) + "." + minorColor.Sprint(minor) + "." + patchColor.Sprint(rest[:end]) + rest[end:]
}

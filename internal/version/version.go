// Package version carries the build identity shared by the daemon and the
// control utility.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Release builds inject both values via ldflags:
//
//	go build -ldflags="-X github.com/muurk/wifiguard/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/wifiguard/internal/version.Commit=1a2b3c4"
//
// A binary built straight from a checkout falls back to the VCS stamps the
// Go toolchain embeds, and finally to a dated dev version, so "version"
// output is never empty on a device in the field.
var (
	// Version is the release version, e.g. "v0.3.0".
	Version = ""
	// Commit is the short git revision the binary was built from.
	Commit = ""
)

func init() {
	if Version == "" || Commit == "" {
		fromBuildInfo()
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills in whatever ldflags left empty from the embedded VCS
// stamps, when the build happened inside a git checkout.
func fromBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	var revision, modified, committed string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			committed = s.Value
		}
	}

	if Commit == "" && revision != "" {
		Commit = revision
		if len(Commit) > 7 {
			Commit = Commit[:7]
		}
		if modified == "true" {
			Commit += "-dirty"
		}
	}

	// Tags are not part of build info, so an untagged build gets a dev
	// version dated by the commit.
	if Version == "" && committed != "" {
		if t, err := time.Parse(time.RFC3339, committed); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the display form, "version (commit: hash)".
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

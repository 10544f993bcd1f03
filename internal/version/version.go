// Package version reports the version of the audiorouted binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

const (
	Major = 0
	Minor = 1
	Patch = 0
)

// PreRelease and BuildMetadata may be set at link time, for example with
// -ldflags "-X github.com/companyzero/audioroute/internal/version.PreRelease=rc1".
var (
	PreRelease    = "pre"
	BuildMetadata = ""
)

func init() {
	if BuildMetadata != "" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += ".dirty"
	}
	BuildMetadata = rev
}

// String returns the semantic version string.
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", Major, Minor, Patch)
	if PreRelease != "" {
		b.WriteString("-" + PreRelease)
	}
	if BuildMetadata != "" {
		b.WriteString("+" + BuildMetadata)
	}
	return b.String()
}

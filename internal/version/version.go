// Package version reports the build of the notiflow binary.
package version

import "runtime/debug"

// Version and Commit are set with -ldflags at release time.
var (
	Version = "development"
	Commit  = "unknown"
)

// String returns Version, suffixed with +Commit when the commit is known.
// A development build falls back to the VCS revision embedded by the toolchain.
func String() string {
	commit := Commit
	if commit == "unknown" && Version == "development" {
		commit = vcsRevision()
	}
	if commit == "unknown" || commit == "" {
		return Version
	}
	return Version + "+" + commit
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return "unknown"
}

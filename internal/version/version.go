// Package version reports the build version of the APTL binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/aptl-dev/aptl/internal/version.Version=v1.0.0 \
//	                   -X github.com/aptl-dev/aptl/internal/version.Commit=abc123"
//
// Without ldflags they are filled from VCS build info, or "dev" plus a
// timestamp.
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		Version, Commit = fromBuildInfo(Version, Commit)
	}
	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func fromBuildInfo(version, commit string) (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version, commit
	}
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return resolve(version, commit, info.Main.Version, settings)
}

// resolve fills unset version and commit values from module and VCS build
// settings.
func resolve(version, commit, moduleVersion string, settings map[string]string) (string, string) {
	if commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			if len(rev) > 7 {
				rev = rev[:7]
			}
			if settings["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			commit = rev
		}
	}

	if version == "" {
		switch {
		case moduleVersion != "" && moduleVersion != "(devel)":
			version = moduleVersion
		case settings["vcs.time"] != "":
			if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
				version = fmt.Sprintf("dev-%s", t.Format("20060102"))
			}
		}
	}
	return version, commit
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Detailed returns Full plus the Go runtime and platform.
func Detailed() string {
	return fmt.Sprintf("%s %s %s/%s", Full(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

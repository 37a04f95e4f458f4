// Package version resolves the build version reported by --version and
// GET /version.
package version

import (
	"embed"
	"runtime/debug"
	"strings"
)

// version.txt is written by the release build, version.go keeps the
// pattern matching when it is absent
//
//go:embed version.*
var versions embed.FS

// Version is the resolved build version
var Version = resolve()

func resolve() string {
	if b, err := versions.ReadFile("version.txt"); err == nil {
		if v := strings.TrimSpace(string(b)); v != "" {
			return v
		}
	}
	inf, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return fromBuildInfo(inf)
}

// fromBuildInfo uses the module version, development builds are suffixed
// with the short vcs revision and a dirty mark
func fromBuildInfo(inf *debug.BuildInfo) string {
	v := inf.Main.Version
	if v == "" {
		v = "(devel)"
	}
	if v != "(devel)" {
		return v
	}
	var rev, dirty string
	for _, s := range inf.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "-dirty"
			}
		}
	}
	if rev == "" {
		return v
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return v + "-" + rev + dirty
}

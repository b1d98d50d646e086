// Package version reports the build of the running chat server.
//
// Version, Commit and BuildTime are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/easychat/version.Version=1.2.0" ./cmd/chat-server
//
// Values left empty are filled from the VCS stamp of the build when present.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info describes a build.
type Info struct {
	Version   string    `json:"version"`
	Commit    string    `json:"commit,omitempty"`
	BuildTime string    `json:"buildTime,omitempty"`
	GoVersion string    `json:"goVersion"`
	BuildDate time.Time `json:"-"`
	Release   bool      `json:"release"`
	Dirty     bool      `json:"dirty"`
}

// Get returns the build information of the running binary.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		Release:   Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					info.BuildTime, info.BuildDate = s.Value, t
				}
			}
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// String returns the version with the short commit, e.g. "1.2.0-abc1234".
func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	s := fmt.Sprintf("%s-%s", i.Version, i.Commit)
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// Package buildinfo reports how the running binary was built.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

var readBuildInfo = debug.ReadBuildInfo

// Info is the subset of the embedded build information shown to users.
type Info struct {
	Version  string
	Revision string
	Modified bool
	Tags     string
}

func Read() Info {
	info := Info{Version: "dev"}
	bi, ok := readBuildInfo()
	if !ok || bi == nil {
		return info
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		info.Version = v
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "-tags":
			info.Tags = setting.Value
		case "vcs.revision":
			info.Revision = setting.Value
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		}
	}
	return info
}

// String renders the version followed by the short source revision and
// build tags when known, e.g. "dev (1a2b3c4-dirty, tags: foo)".
func (i Info) String() string {
	var extra []string
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if i.Modified {
			rev += "-dirty"
		}
		extra = append(extra, rev)
	}
	if i.Tags != "" {
		extra = append(extra, "tags: "+i.Tags)
	}
	if len(extra) == 0 {
		return i.Version
	}
	return fmt.Sprintf("%s (%s)", i.Version, strings.Join(extra, ", "))
}

// VersionWithTags returns the version string with revision and tags if present.
func VersionWithTags() string {
	return Read().String()
}

package buildinfo

import "strings"

// Version, Commit and AppName are overridden at link time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	AppName = "simkernel"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}

package tool

import (
	"fmt"
	"runtime"
)

// Version is overridden at build time with -ldflags "-X github.com/moyoez/tunshare/tool.Version=...".
var Version = "0.1.0-dev"

// VersionString is printed by `tunshare version`.
func VersionString() string {
	return fmt.Sprintf("tunshare %s (%s %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

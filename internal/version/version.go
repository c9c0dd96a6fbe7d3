// Package version exposes build metadata set via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/srcserve/srcserve/internal/version.Version=v1.2.3"
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// GitCommit is the git commit the binary was built from.
	GitCommit = "unknown"
)

// String returns a human-readable version line.
func String() string {
	return fmt.Sprintf("srcserve %s (%s, %s, %s/%s)",
		Version, GitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

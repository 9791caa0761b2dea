// Package version holds build metadata injected via ldflags:
//
//	go build -ldflags "-X github.com/kailas-cloud/bimlink/internal/version.Version=v0.1.0" ./cmd/bimlink
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for logs.
func String() string {
	return Version + " (commit " + Commit + ", built " + Date + ")"
}

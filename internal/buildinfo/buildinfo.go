// Package buildinfo holds the CLI's version/build metadata, the way
// the teacher's cmd/sentra/main.go kept BuildDate/GitCommit as
// package-level vars set via -ldflags at release build time
// (SPEC_FULL.md section A).
package buildinfo

// Version is this interpreter's release tag.
var Version = "0.1.0"

// BuildDate and GitCommit are overridden at release build time via
// `-ldflags "-X lua/internal/buildinfo.BuildDate=... -X ...GitCommit=..."`,
// matching the teacher's own build-variable idiom.
var (
	BuildDate = "unknown"
	GitCommit = "unknown"
)

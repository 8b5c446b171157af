// Package buildinfo carries version metadata stamped at link time via
// -ldflags "-X github.com/gomemkg/memkg/internal/buildinfo.Version=...".
package buildinfo

var (
	Version   = "dev"
	Revision  = "unknown"
	BuildDate = "unknown"
)

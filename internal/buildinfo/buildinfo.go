// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/garyellow/viber-bot-go/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/garyellow/viber-bot-go/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/garyellow/viber-bot-go/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Release returns the Sentry release name for service, e.g. "viber-bot-go@1.2.0".
func Release(service string) string {
	switch {
	case Version != "":
		return service + "@" + Version
	case Commit != "":
		return service + "@" + Commit
	default:
		return service + "@dev"
	}
}

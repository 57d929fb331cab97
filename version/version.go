// Package version holds build metadata that is injected at link time, for
// example
//
//	go build -ldflags "-X github.com/antonvh/np-animation/version.GitHash=$(git rev-parse HEAD) -X github.com/antonvh/np-animation/version.BuildTime=$(date -u +%FT%TZ)"
package version

var (
	// GitHash is the commit the binary was built from
	GitHash = "unknown"
	// BuildTime is when the binary was built
	BuildTime = "unknown"
)

package version

// Set via -ldflags "-X github.com/chmdznr/course-state-sync/pkg/version.Version=..."
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

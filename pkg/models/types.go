package models

import "time"

// Platform is the host platform family used for shortcut naming
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformDarwin  Platform = "darwin"
)

// FailedTarget identifies a file a transfer backend could not deliver
type FailedTarget struct {
	CourseID  int
	ContentID string
	URL       string
	SavedTo   string
	Err       error
}

// PassSummary describes one synchronization pass
type PassSummary struct {
	ID         int64
	Profile    string
	Courses    int
	Deleted    int64
	Pruned     int64
	Saved      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Profile is a stored sync configuration
type Profile struct {
	Name        string
	RootPath    string
	ListingPath string
	Platform    Platform
	Workers     int
	Token       string
	Destination struct {
		Endpoint  string
		Bucket    string
		Folder    string
		AccessKey string
		SecretKey string
		Secure    bool
	}
}

// HasMinio reports whether the profile mirrors files into a bucket
func (p *Profile) HasMinio() bool {
	return p.Destination.Endpoint != "" && p.Destination.Bucket != ""
}

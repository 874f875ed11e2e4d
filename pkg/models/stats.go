package models

// Stats represents registry statistics
type Stats struct {
	Courses      int64
	TotalFiles   int64
	TotalSize    int64
	StoredFiles  int64
	StoredSize   int64
	PendingFiles int64
	PendingSize  int64
	FailedFiles  int64
	FailedSize   int64
}

// CourseStats is the per-course breakdown of Stats
type CourseStats struct {
	CourseID       int
	CourseFullname string
	Files          int64
	Size           int64
	Pending        int64
}

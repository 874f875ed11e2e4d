package models

// Course is one course of the remote listing together with its files
type Course struct {
	ID       int    `json:"id"`
	Fullname string `json:"fullname"`
	Files    []File `json:"files"`
}

// ContentType is the kind of content a remote file carries
type ContentType string

const (
	ContentDescription ContentType = "description"
	ContentHTML        ContentType = "html"
	ContentURL         ContentType = "url"
	ContentFile        ContentType = "file"
)

// FileStatus is the transfer state of a registry entry
type FileStatus string

const (
	StatusPending FileStatus = "pending"
	StatusStored  FileStatus = "stored"
	StatusFailed  FileStatus = "failed"
)

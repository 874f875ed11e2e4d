package models

import "time"

// File represents one remote content item of a course
type File struct {
	ContentID       string      `json:"content_id"`
	ContentType     ContentType `json:"content_type"`
	ModuleID        int         `json:"module_id"`
	ModuleModname   string      `json:"module_modname"`
	ModuleName      string      `json:"module_name"`
	SectionID       int         `json:"section_id"`
	SectionName     string      `json:"section_name"`
	ContentFilepath string      `json:"content_filepath"`
	ContentFilename string      `json:"content_filename"`
	ContentFileURL  string      `json:"content_fileurl"`
	ContentFilesize int64       `json:"content_filesize"`
	ContentModified int64       `json:"content_timemodified"`
	IsExternal      bool        `json:"content_isexternalfile"`
	HTML            string      `json:"html,omitempty"`
	Deleted         bool        `json:"deleted"`

	// Filled in by path resolution and the registry
	SavedTo string     `json:"-"`
	Status  FileStatus `json:"-"`
	Hash    string     `json:"-"`
}

// FileRecord is a persisted registry entry
type FileRecord struct {
	CourseID       int
	CourseFullname string
	File
	UpdatedAt time.Time
}

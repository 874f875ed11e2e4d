// Package listing loads the remote course listing a pass reconciles against.
// The listing is a YAML or JSON document as written by the platform fetcher:
//
//	courses:
//	  - id: 7
//	    fullname: Algorithms
//	    files:
//	      - content_id: a1
//	        content_type: description
//	        content_filename: syllabus
package listing

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/chmdznr/course-state-sync/pkg/errors"
	"github.com/chmdznr/course-state-sync/pkg/models"
)

// Listing is the top-level listing document
type Listing struct {
	Courses []models.Course `json:"courses"`
}

// Loader reads listings from a filesystem
type Loader struct {
	fs afero.Fs
}

// NewLoader returns a loader reading from fs
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{fs: fs}
}

// Load reads and validates the listing at path
func (l *Loader) Load(path string) ([]models.Course, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: path}
		}
		return nil, errors.WithContext(err, "read listing")
	}
	return Parse(data)
}

// Parse decodes and validates a listing document
func Parse(data []byte) ([]models.Course, error) {
	var doc Listing
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WithContext(err, "parse listing")
	}
	if err := validate(doc.Courses); err != nil {
		return nil, err
	}
	return doc.Courses, nil
}

func validate(courses []models.Course) error {
	seenCourses := make(map[int]bool, len(courses))
	for i, course := range courses {
		if course.ID == 0 {
			return errors.MissingFieldError{Field: fmt.Sprintf("courses[%d].id", i)}
		}
		if seenCourses[course.ID] {
			return fmt.Errorf("duplicate course id %d", course.ID)
		}
		seenCourses[course.ID] = true

		seenFiles := make(map[string]bool, len(course.Files))
		for j, file := range course.Files {
			if file.ContentID == "" {
				return errors.MissingFieldError{Field: fmt.Sprintf("courses[%d].files[%d].content_id", i, j)}
			}
			// a deleted entry may share its id with the live one replacing it
			if file.Deleted {
				continue
			}
			if seenFiles[file.ContentID] {
				return fmt.Errorf("course %d: duplicate content id %q", course.ID, file.ContentID)
			}
			seenFiles[file.ContentID] = true
		}
	}
	return nil
}

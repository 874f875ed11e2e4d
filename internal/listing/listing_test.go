package listing

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmdznr/course-state-sync/pkg/errors"
	"github.com/chmdznr/course-state-sync/pkg/models"
)

const sampleListing = `
courses:
  - id: 7
    fullname: Algorithms
    files:
      - content_id: a1
        content_type: description
        content_filename: syllabus
      - content_id: a2
        content_type: url
        module_modname: url_activity
        content_filename: lecture-link
        content_fileurl: https://example.org/lecture
      - content_id: a3
        content_type: file
        content_filename: old.pdf
        deleted: true
`

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "listing.yaml", []byte(sampleListing), 0644))

	courses, err := NewLoader(fs).Load("listing.yaml")
	require.NoError(t, err)
	require.Len(t, courses, 1)

	course := courses[0]
	assert.Equal(t, 7, course.ID)
	assert.Equal(t, "Algorithms", course.Fullname)
	require.Len(t, course.Files, 3)
	assert.Equal(t, models.ContentDescription, course.Files[0].ContentType)
	assert.Equal(t, "url_activity", course.Files[1].ModuleModname)
	assert.Equal(t, "https://example.org/lecture", course.Files[1].ContentFileURL)
	assert.True(t, course.Files[2].Deleted)
	assert.Empty(t, course.Files[0].SavedTo)
}

func TestLoadJSON(t *testing.T) {
	courses, err := Parse([]byte(`{"courses":[{"id":3,"fullname":"Math","files":[]}]}`))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Math", courses[0].Fullname)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs()).Load("nope.yaml")
	assert.Equal(t, errors.FileNotFound{Path: "nope.yaml"}, err)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{
			name:  "MissingCourseID",
			input: "courses:\n  - fullname: A\n",
			field: "courses[0].id",
		},
		{
			name:  "MissingContentID",
			input: "courses:\n  - id: 1\n    fullname: A\n    files:\n      - content_filename: x\n",
			field: "courses[0].files[0].content_id",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.input))
			assert.Equal(t, errors.MissingFieldError{Field: test.field}, err)
		})
	}
}

func TestParseDuplicates(t *testing.T) {
	_, err := Parse([]byte("courses:\n  - id: 1\n    fullname: A\n  - id: 1\n    fullname: B\n"))
	assert.EqualError(t, err, "duplicate course id 1")

	_, err = Parse([]byte("courses:\n  - id: 1\n    fullname: A\n    files:\n      - content_id: x\n      - content_id: x\n"))
	assert.EqualError(t, err, `course 1: duplicate content id "x"`)
}

func TestParseReappearingFile(t *testing.T) {
	courses, err := Parse([]byte(`courses:
  - id: 1
    fullname: A
    files:
      - content_id: a
        content_filename: old.pdf
        deleted: true
      - content_id: a
        content_filename: new.pdf
`))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Len(t, courses[0].Files, 2)
	assert.True(t, courses[0].Files[0].Deleted)
	assert.False(t, courses[0].Files[1].Deleted)
	assert.Equal(t, "new.pdf", courses[0].Files[1].ContentFilename)
}

func TestParseEmpty(t *testing.T) {
	courses, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, courses)
}

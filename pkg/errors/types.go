package errors

import (
	"fmt"
)

var ErrEmptyFilename = New("filename is empty after sanitizing")

// RegistryError is a persistence failure of the file registry. It is fatal
// to the pass that hit it.
type RegistryError struct {
	Op  string
	Err error
}

func (err RegistryError) Error() string {
	return fmt.Sprintf("registry %s: %v", err.Op, err.Err)
}

func (err RegistryError) Unwrap() error {
	return err.Err
}

// ResolutionError is a failure to compute the destination of a file.
type ResolutionError struct {
	CourseID  int
	ContentID string
	Err       error
}

func (err ResolutionError) Error() string {
	return fmt.Sprintf("resolve course %d file %q: %v", err.CourseID, err.ContentID, err.Err)
}

func (err ResolutionError) Unwrap() error {
	return err.Err
}

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

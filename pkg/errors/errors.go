// Package errors defines the error types surfaced by a synchronization pass.
package errors

import (
	goerrors "errors"
	"fmt"
)

// New is errors.New from the standard library.
func New(msg string) error {
	return goerrors.New(msg)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return goerrors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}

// WithContext wraps err with a short description of what was being done.
// A nil err stays nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

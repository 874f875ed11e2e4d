// Package pathtools computes where a course file ends up on disk.
package pathtools

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chmdznr/course-state-sync/pkg/errors"
	"github.com/chmdznr/course-state-sync/pkg/models"
)

const maxNameBytes = 200

// ToValidName converts name into a single filesystem-safe path segment.
func ToValidName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case r < 0x20 || r == 0x7f:
			b.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	valid := strings.Join(strings.Fields(b.String()), " ")
	valid = strings.TrimRight(valid, ". ")

	if len(valid) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(valid[cut]) {
			cut--
		}
		valid = strings.TrimRight(valid[:cut], ". ")
	}
	return valid
}

// GenPath returns the directory a file of course is saved in, below root.
// Empty segments are skipped; the course segment is required.
func GenPath(root string, course *models.Course, file *models.File) (string, error) {
	courseDir := ToValidName(course.Fullname)
	if courseDir == "" {
		return "", errors.MissingFieldError{Field: "course fullname"}
	}

	segments := []string{root, courseDir}
	for _, s := range []string{file.SectionName, file.ModuleName} {
		if valid := ToValidName(s); valid != "" {
			segments = append(segments, valid)
		}
	}
	for _, s := range strings.Split(file.ContentFilepath, "/") {
		if valid := ToValidName(s); valid != "" {
			segments = append(segments, valid)
		}
	}
	return filepath.Join(segments...), nil
}

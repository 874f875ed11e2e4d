package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/chmdznr/course-state-sync/internal/db"
	"github.com/chmdznr/course-state-sync/pkg/errors"
	"github.com/chmdznr/course-state-sync/pkg/models"
	"github.com/chmdznr/course-state-sync/pkg/pathtools"
)

// Registry is the part of the file registry a pass writes to. WithPass
// commits everything fn writes or nothing of it.
type Registry interface {
	WithPass(fn func(w db.PassWriter) error) error
}

// DriverConfig holds configuration for the driver
type DriverConfig struct {
	Profile  string
	Root     string
	Platform models.Platform

	// PruneMissing also removes entries of listed courses that the listing
	// no longer mentions at all. Without it only files flagged deleted go.
	PruneMissing bool

	// BasePath and Sanitize default to pathtools.GenPath and
	// pathtools.ToValidName.
	BasePath func(root string, course *models.Course, file *models.File) (string, error)
	Sanitize func(name string) string
}

// Driver reconciles the registry against a fresh listing and hands the
// result to a transfer backend
type Driver struct {
	registry Registry
	backend  Backend
	config   DriverConfig
	now      func() time.Time

	// one pass at a time per driver
	mu sync.Mutex
}

type resolvedFile struct {
	course *models.Course
	file   *models.File
}

// NewDriver creates a driver writing to registry on behalf of backend
func NewDriver(registry Registry, backend Backend, config DriverConfig) *Driver {
	if config.BasePath == nil {
		config.BasePath = pathtools.GenPath
	}
	if config.Sanitize == nil {
		config.Sanitize = pathtools.ToValidName
	}
	if config.Platform == "" {
		config.Platform = pathtools.HostPlatform()
	}
	return &Driver{
		registry: registry,
		backend:  backend,
		config:   config,
		now:      time.Now,
	}
}

// Sync runs one pass over courses: delete what the listing marks deleted,
// resolve the destination of every other file, then save each one to the
// registry. Files are resolved in place. All registry writes of the pass
// share one transaction, so any error leaves the registry as it was.
func (d *Driver) Sync(courses []models.Course) (*models.PassSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	summary := &models.PassSummary{
		Profile:   d.config.Profile,
		Courses:   len(courses),
		StartedAt: d.now().UTC(),
	}

	err := d.registry.WithPass(func(w db.PassWriter) error {
		deleted, err := w.BatchDeleteFiles(courses)
		if err != nil {
			return errors.RegistryError{Op: "batch delete", Err: err}
		}
		summary.Deleted = deleted

		if d.config.PruneMissing {
			pruned, err := w.PruneMissingFiles(courses)
			if err != nil {
				return errors.RegistryError{Op: "prune", Err: err}
			}
			summary.Pruned = pruned
		}

		resolved, err := d.resolve(courses)
		if err != nil {
			return err
		}

		for _, r := range resolved {
			if err := w.SaveFile(r.file, r.course.ID, r.course.Fullname); err != nil {
				return errors.RegistryError{Op: "save file", Err: err}
			}
		}
		summary.Saved = len(resolved)
		summary.FinishedAt = d.now().UTC()

		if err := w.RecordPass(summary); err != nil {
			return errors.RegistryError{Op: "record pass", Err: err}
		}
		return nil
	})
	if err != nil {
		var regErr errors.RegistryError
		var resErr errors.ResolutionError
		if !errors.As(err, &regErr) && !errors.As(err, &resErr) {
			err = errors.RegistryError{Op: "commit", Err: err}
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"courses": summary.Courses,
		"deleted": summary.Deleted,
		"pruned":  summary.Pruned,
		"saved":   summary.Saved,
	}).Info("Registry synchronized")
	return summary, nil
}

func (d *Driver) resolve(courses []models.Course) ([]resolvedFile, error) {
	status := models.StatusStored
	if d.backend.Transfers() {
		status = models.StatusPending
	}

	var resolved []resolvedFile
	for ci := range courses {
		course := &courses[ci]
		taken := make(map[string]bool, len(course.Files))

		for fi := range course.Files {
			file := &course.Files[fi]
			if file.Deleted {
				continue
			}

			base, err := d.config.BasePath(d.config.Root, course, file)
			if err != nil {
				return nil, errors.ResolutionError{CourseID: course.ID, ContentID: file.ContentID, Err: err}
			}
			name := d.config.Sanitize(file.ContentFilename)
			if name == "" {
				return nil, errors.ResolutionError{CourseID: course.ID, ContentID: file.ContentID, Err: errors.ErrEmptyFilename}
			}

			file.SavedTo = d.uniqueSavedTo(base, name, file, taken)
			file.Status = status

			log.WithFields(log.Fields{
				"course":   course.ID,
				"file":     file.ContentID,
				"saved_to": file.SavedTo,
			}).Debug("Resolved file")
			resolved = append(resolved, resolvedFile{course: course, file: file})
		}
	}
	return resolved, nil
}

// uniqueSavedTo resolves the destination of file and numbers it when another
// file of the same course already claimed that path. Windows and macOS
// filesystems compare names case-insensitively.
func (d *Driver) uniqueSavedTo(base, name string, file *models.File, taken map[string]bool) string {
	key := func(p string) string {
		if d.config.Platform == models.PlatformLinux {
			return p
		}
		return strings.ToLower(p)
	}

	savedTo := pathtools.ResolveSavedTo(base, name, file, d.config.Platform)
	stem, ext := name, pathtools.ExtensionFor(file, d.config.Platform)
	if ext == "" {
		// a leading dot starts the name, not an extension
		if ext = filepath.Ext(name); ext == name {
			ext = ""
		}
		stem = strings.TrimSuffix(name, ext)
	}
	for n := 2; taken[key(savedTo)]; n++ {
		savedTo = filepath.Join(base, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}
	taken[key(savedTo)] = true
	return savedTo
}

// Run hands control to the backend
func (d *Driver) Run(ctx context.Context) error {
	return d.backend.Run(ctx)
}

// FailedTargets lists the files the backend could not transfer
func (d *Driver) FailedTargets() []models.FailedTarget {
	return d.backend.FailedTargets()
}

package db

import (
	"fmt"
	"time"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

const fileColumns = `course_id, course_fullname, content_id, content_type, module_id,
	module_modname, module_name, section_id, section_name, content_filepath,
	content_filename, content_fileurl, content_filesize, content_timemodified,
	is_external, html, saved_to, status, hash, updated_at`

// unchangedRemote is true when the stored row describes the same remote
// content at the same destination as the incoming one.
const unchangedRemote = `files.saved_to = excluded.saved_to
	AND files.content_fileurl = excluded.content_fileurl
	AND files.content_filesize = excluded.content_filesize
	AND files.content_timemodified = excluded.content_timemodified`

// SaveFile creates or overwrites the registry entry of file. A stored entry
// whose remote content and destination did not change stays stored, so a
// transferring backend does not fetch it again. Saving identical data leaves
// the row untouched.
func (db *DB) SaveFile(file *models.File, courseID int, courseFullname string) error {
	return saveFile(db.DB, db.now(), file, courseID, courseFullname)
}

func saveFile(q execer, now time.Time, file *models.File, courseID int, courseFullname string) error {
	status := file.Status
	if status == "" {
		status = models.StatusPending
	}

	_, err := q.Exec(`
		INSERT INTO files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(course_id, content_id) DO UPDATE SET
			course_fullname = excluded.course_fullname,
			content_type = excluded.content_type,
			module_id = excluded.module_id,
			module_modname = excluded.module_modname,
			module_name = excluded.module_name,
			section_id = excluded.section_id,
			section_name = excluded.section_name,
			content_filepath = excluded.content_filepath,
			content_filename = excluded.content_filename,
			content_fileurl = excluded.content_fileurl,
			content_filesize = excluded.content_filesize,
			content_timemodified = excluded.content_timemodified,
			is_external = excluded.is_external,
			html = excluded.html,
			saved_to = excluded.saved_to,
			status = CASE WHEN files.status = 'stored' AND `+unchangedRemote+`
				THEN files.status ELSE excluded.status END,
			hash = CASE WHEN files.status = 'stored' AND `+unchangedRemote+`
				THEN files.hash ELSE excluded.hash END,
			updated_at = excluded.updated_at
		WHERE files.course_fullname IS NOT excluded.course_fullname
			OR files.content_type IS NOT excluded.content_type
			OR files.module_id IS NOT excluded.module_id
			OR files.module_modname IS NOT excluded.module_modname
			OR files.module_name IS NOT excluded.module_name
			OR files.section_id IS NOT excluded.section_id
			OR files.section_name IS NOT excluded.section_name
			OR files.content_filepath IS NOT excluded.content_filepath
			OR files.content_filename IS NOT excluded.content_filename
			OR files.content_fileurl IS NOT excluded.content_fileurl
			OR files.content_filesize IS NOT excluded.content_filesize
			OR files.content_timemodified IS NOT excluded.content_timemodified
			OR files.is_external IS NOT excluded.is_external
			OR files.html IS NOT excluded.html
			OR files.saved_to IS NOT excluded.saved_to
			OR (files.status IS NOT excluded.status AND files.status != 'stored')
	`,
		courseID,
		courseFullname,
		file.ContentID,
		string(file.ContentType),
		file.ModuleID,
		file.ModuleModname,
		file.ModuleName,
		file.SectionID,
		file.SectionName,
		file.ContentFilepath,
		file.ContentFilename,
		file.ContentFileURL,
		file.ContentFilesize,
		file.ContentModified,
		file.IsExternal,
		file.HTML,
		file.SavedTo,
		string(status),
		file.Hash,
		now,
	)
	if err != nil {
		return fmt.Errorf("save file %d/%s: %w", courseID, file.ContentID, err)
	}
	return nil
}

// BatchDeleteFiles removes every entry that the given courses mark deleted.
// All matches are removed in one transaction or none are.
func (db *DB) BatchDeleteFiles(courses []models.Course) (removed int64, err error) {
	err = db.WithPass(func(w PassWriter) error {
		removed, err = w.BatchDeleteFiles(courses)
		return err
	})
	return removed, err
}

func batchDeleteFiles(q execer, courses []models.Course) (int64, error) {
	stmt, err := q.Prepare(`DELETE FROM files WHERE course_id = ? AND content_id = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var removed int64
	for _, course := range courses {
		for _, file := range course.Files {
			if !file.Deleted {
				continue
			}
			res, err := stmt.Exec(course.ID, file.ContentID)
			if err != nil {
				return 0, fmt.Errorf("delete file %d/%s: %w", course.ID, file.ContentID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, err
			}
			removed += n
		}
	}
	return removed, nil
}

// PruneMissingFiles removes entries of the listed courses whose content id
// does not appear in the listing at all. Courses not in the listing are left
// alone.
func (db *DB) PruneMissingFiles(courses []models.Course) (removed int64, err error) {
	err = db.WithPass(func(w PassWriter) error {
		removed, err = w.PruneMissingFiles(courses)
		return err
	})
	return removed, err
}

func pruneMissingFiles(q execer, courses []models.Course) (int64, error) {
	var removed int64
	for _, course := range courses {
		listed := make(map[string]bool, len(course.Files))
		for _, file := range course.Files {
			listed[file.ContentID] = true
		}

		ids, err := contentIDs(q, course.ID)
		if err != nil {
			return 0, err
		}
		for _, id := range ids {
			if listed[id] {
				continue
			}
			res, err := q.Exec(`DELETE FROM files WHERE course_id = ? AND content_id = ?`, course.ID, id)
			if err != nil {
				return 0, fmt.Errorf("prune file %d/%s: %w", course.ID, id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, err
			}
			removed += n
		}
	}
	return removed, nil
}

func contentIDs(q execer, courseID int) ([]string, error) {
	rows, err := q.Query(`SELECT content_id FROM files WHERE course_id = ?`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetFiles retrieves the entries of one course ordered by content id
func (db *DB) GetFiles(courseID int) ([]models.FileRecord, error) {
	return db.queryFiles(`SELECT `+fileColumns+` FROM files
		WHERE course_id = ? ORDER BY content_id`, courseID)
}

// GetAllFiles retrieves all entries ordered by course and content id
func (db *DB) GetAllFiles() ([]models.FileRecord, error) {
	return db.queryFiles(`SELECT ` + fileColumns + ` FROM files
		ORDER BY course_id, content_id`)
}

// GetPendingFiles retrieves entries that still need a transfer, including
// ones that failed before
func (db *DB) GetPendingFiles() ([]models.FileRecord, error) {
	return db.queryFiles(`SELECT `+fileColumns+` FROM files
		WHERE status IN (?, ?)
		ORDER BY course_id, content_id`, models.StatusPending, models.StatusFailed)
}

// UpdateFileStatus updates the transfer status and content hash of an entry
func (db *DB) UpdateFileStatus(courseID int, contentID string, status models.FileStatus, hash string) error {
	_, err := db.Exec(`
		UPDATE files
		SET status = ?, hash = ?, updated_at = ?
		WHERE course_id = ? AND content_id = ?
	`, string(status), hash, db.now(), courseID, contentID)
	return err
}

func (db *DB) queryFiles(query string, args ...interface{}) ([]models.FileRecord, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.FileRecord
	for rows.Next() {
		var (
			record      models.FileRecord
			contentType string
			status      string
		)
		err = rows.Scan(
			&record.CourseID,
			&record.CourseFullname,
			&record.ContentID,
			&contentType,
			&record.ModuleID,
			&record.ModuleModname,
			&record.ModuleName,
			&record.SectionID,
			&record.SectionName,
			&record.ContentFilepath,
			&record.ContentFilename,
			&record.ContentFileURL,
			&record.ContentFilesize,
			&record.ContentModified,
			&record.IsExternal,
			&record.HTML,
			&record.SavedTo,
			&status,
			&record.Hash,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		record.ContentType = models.ContentType(contentType)
		record.Status = models.FileStatus(status)
		files = append(files, record)
	}
	return files, rows.Err()
}

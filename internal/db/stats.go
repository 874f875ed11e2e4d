package db

import (
	"fmt"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

// GetStats returns statistics about all files in the registry
func (db *DB) GetStats() (*models.Stats, error) {
	var stats models.Stats
	err := db.QueryRow(`
		SELECT
			COUNT(DISTINCT course_id) as courses,
			COUNT(*) as total_files,
			COALESCE(SUM(content_filesize), 0) as total_size,
			COUNT(CASE WHEN status = 'stored' THEN 1 END) as stored_files,
			COALESCE(SUM(CASE WHEN status = 'stored' THEN content_filesize ELSE 0 END), 0) as stored_size,
			COUNT(CASE WHEN status = 'pending' THEN 1 END) as pending_files,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN content_filesize ELSE 0 END), 0) as pending_size,
			COUNT(CASE WHEN status = 'failed' THEN 1 END) as failed_files,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN content_filesize ELSE 0 END), 0) as failed_size
		FROM files
	`).Scan(
		&stats.Courses,
		&stats.TotalFiles,
		&stats.TotalSize,
		&stats.StoredFiles,
		&stats.StoredSize,
		&stats.PendingFiles,
		&stats.PendingSize,
		&stats.FailedFiles,
		&stats.FailedSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return &stats, nil
}

// GetCourseStats returns per-course file counts ordered by course id
func (db *DB) GetCourseStats() ([]models.CourseStats, error) {
	rows, err := db.Query(`
		SELECT
			course_id,
			MAX(course_fullname),
			COUNT(*),
			COALESCE(SUM(content_filesize), 0),
			COUNT(CASE WHEN status != 'stored' THEN 1 END)
		FROM files
		GROUP BY course_id
		ORDER BY course_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get course stats: %w", err)
	}
	defer rows.Close()

	var stats []models.CourseStats
	for rows.Next() {
		var cs models.CourseStats
		if err := rows.Scan(&cs.CourseID, &cs.CourseFullname, &cs.Files, &cs.Size, &cs.Pending); err != nil {
			return nil, err
		}
		stats = append(stats, cs)
	}
	return stats, rows.Err()
}

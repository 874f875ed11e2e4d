package db

import (
	"database/sql"
	"errors"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

// RecordPass stores the summary of a finished pass and sets its ID
func (db *DB) RecordPass(summary *models.PassSummary) error {
	return recordPass(db.DB, summary)
}

func recordPass(q execer, summary *models.PassSummary) error {
	res, err := q.Exec(`
		INSERT INTO passes (profile, courses, deleted, pruned, saved, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		summary.Profile,
		summary.Courses,
		summary.Deleted,
		summary.Pruned,
		summary.Saved,
		summary.StartedAt,
		summary.FinishedAt,
	)
	if err != nil {
		return err
	}
	summary.ID, err = res.LastInsertId()
	return err
}

// LastPass returns the most recent pass of a profile, or nil if there is none
func (db *DB) LastPass(profile string) (*models.PassSummary, error) {
	var summary models.PassSummary
	err := db.QueryRow(`
		SELECT id, profile, courses, deleted, pruned, saved, started_at, finished_at
		FROM passes WHERE profile = ?
		ORDER BY id DESC LIMIT 1
	`, profile).Scan(
		&summary.ID,
		&summary.Profile,
		&summary.Courses,
		&summary.Deleted,
		&summary.Pruned,
		&summary.Saved,
		&summary.StartedAt,
		&summary.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

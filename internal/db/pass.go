package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chmdznr/course-state-sync/pkg/models"
)

// execer is what *sql.DB and *sql.Tx have in common
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	Prepare(query string) (*sql.Stmt, error)
}

// PassWriter is the set of registry writes one synchronization pass makes
type PassWriter interface {
	BatchDeleteFiles(courses []models.Course) (int64, error)
	PruneMissingFiles(courses []models.Course) (int64, error)
	SaveFile(file *models.File, courseID int, courseFullname string) error
	RecordPass(summary *models.PassSummary) error
}

// passTx runs the writes of a pass inside one transaction
type passTx struct {
	tx  *sql.Tx
	now time.Time
}

func (p *passTx) BatchDeleteFiles(courses []models.Course) (int64, error) {
	return batchDeleteFiles(p.tx, courses)
}

func (p *passTx) PruneMissingFiles(courses []models.Course) (int64, error) {
	return pruneMissingFiles(p.tx, courses)
}

func (p *passTx) SaveFile(file *models.File, courseID int, courseFullname string) error {
	return saveFile(p.tx, p.now, file, courseID, courseFullname)
}

func (p *passTx) RecordPass(summary *models.PassSummary) error {
	return recordPass(p.tx, summary)
}

// WithPass runs fn in a single transaction. It commits when fn returns nil
// and rolls back everything fn wrote otherwise. fn must only write through w;
// the registry has one connection, which the transaction holds.
func (db *DB) WithPass(fn func(w PassWriter) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin pass: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&passTx{tx: tx, now: db.now()}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit pass: %w", err)
	}
	return nil
}

package db

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

// DB is the file registry: one row per known file per course
type DB struct {
	*sql.DB
	now func() time.Time
}

// New opens the registry of a profile stored in dir
func New(dir, profileName string) (*DB, error) {
	return Open(filepath.Join(dir, fmt.Sprintf("%s.db", profileName)))
}

// Open opens the registry at dsn and creates missing tables
func Open(dsn string) (*DB, error) {
	log.WithField("dsn", dsn).Debug("Opening registry")
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers, which is what a pass expects.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, now: func() time.Time { return time.Now().UTC() }}
	if err := db.initialize(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}

	return db, nil
}

// initialize creates the necessary tables if they don't exist
func (db *DB) initialize() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			name TEXT PRIMARY KEY,
			root_path TEXT,
			listing_path TEXT,
			platform TEXT,
			workers INTEGER,
			token TEXT,
			endpoint TEXT,
			bucket TEXT,
			folder TEXT,
			access_key TEXT,
			secret_key TEXT,
			secure INTEGER
		);
		CREATE TABLE IF NOT EXISTS files (
			course_id INTEGER NOT NULL,
			content_id TEXT NOT NULL,
			course_fullname TEXT,
			content_type TEXT,
			module_id INTEGER,
			module_modname TEXT,
			module_name TEXT,
			section_id INTEGER,
			section_name TEXT,
			content_filepath TEXT,
			content_filename TEXT,
			content_fileurl TEXT,
			content_filesize INTEGER,
			content_timemodified INTEGER,
			is_external INTEGER,
			html TEXT,
			saved_to TEXT,
			status TEXT,
			hash TEXT,
			updated_at DATETIME,
			PRIMARY KEY (course_id, content_id)
		);
		CREATE INDEX IF NOT EXISTS idx_files_status ON files(status);
		CREATE TABLE IF NOT EXISTS passes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile TEXT,
			courses INTEGER,
			deleted INTEGER,
			pruned INTEGER,
			saved INTEGER,
			started_at DATETIME,
			finished_at DATETIME
		);
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA temp_store=MEMORY;
	`)
	return err
}

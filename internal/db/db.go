// Package db stores the history of statistics runs in SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
	// sqlite driver
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database connection
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas are per connection; a single connection keeps foreign keys enforced.
	sqlDB.SetMaxOpenConns(1)

	// Test connection
	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	// Configure database
	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	// Create schema
	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createStatsRunsTable(); err != nil {
		return err
	}
	return db.createStatsRowsTable()
}

func (db *DB) createStatsRunsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS stats_runs (
		id TEXT PRIMARY KEY,
		workspace TEXT NOT NULL,
		window_start TEXT,
		window_end TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		total_usage INTEGER DEFAULT 0,
		app_count INTEGER DEFAULT 0,
		success_count INTEGER DEFAULT 0,
		failure_count INTEGER DEFAULT 0,
		csv_path TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_stats_runs_started ON stats_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_stats_runs_workspace ON stats_runs(workspace);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createStatsRowsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS stats_rows (
		run_id TEXT NOT NULL REFERENCES stats_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		app_id TEXT NOT NULL,
		app_name TEXT NOT NULL,
		mode TEXT,
		total_usage INTEGER DEFAULT 0,
		user_coverage INTEGER DEFAULT 0,
		error TEXT,
		PRIMARY KEY (run_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_stats_rows_app ON stats_rows(app_id);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}

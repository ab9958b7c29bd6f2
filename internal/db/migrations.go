package db

import (
	"context"
	"fmt"
)

// migrations are applied in order; entry i upgrades user_version i to i+1.
var migrations = []string{
	// Timestamps written through time.Time carry a " +0000 UTC" suffix that
	// SQLite's date functions cannot parse.
	`UPDATE stats_runs
	 SET started_at = SUBSTR(started_at, 1, 19),
	     finished_at = SUBSTR(finished_at, 1, 19)
	 WHERE length(started_at) > 19 AND started_at LIKE '% UTC'`,
}

// migrate brings an existing database up to schemaVersion.
func (db *DB) migrate() error {
	var version int
	if err := db.QueryRowContext(context.Background(), "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(migrations) && i < schemaVersion; i++ {
		if _, err := db.ExecContext(context.Background(), migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	if version < schemaVersion {
		if _, err := db.ExecContext(context.Background(), fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}
	return nil
}

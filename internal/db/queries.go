package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

var timeFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	timeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700 MST",
	"2006-01-02 15:04:05 +0000 UTC",
}

func parseTimeString(s string) (time.Time, bool) {
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

// InsertReport stores a finished run and its rows in one transaction.
func (db *DB) InsertReport(r *models.Report, csvPath string) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("failed to roll back", "error", err)
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stats_runs (
			id, workspace, window_start, window_end, started_at, finished_at,
			total_usage, app_count, success_count, failure_count, csv_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.RunID,
		r.WorkspaceName,
		nullString(r.Window.Start),
		nullString(r.Window.End),
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		r.TotalUsage,
		len(r.Rows),
		r.SuccessCount,
		r.FailureCount,
		nullString(csvPath),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stats_rows (
			run_id, position, app_id, app_name, mode, total_usage, user_coverage, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range r.Rows {
		if _, err := stmt.ExecContext(ctx,
			r.RunID,
			i,
			row.AppID,
			row.AppName,
			nullString(string(row.Mode)),
			row.TotalUsage,
			row.UserCoverage,
			nullString(row.Error),
		); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (db *DB) RecentRuns(limit int) ([]models.RunSummary, error) {
	query := `
		SELECT id, workspace, started_at, finished_at, total_usage,
			   app_count, success_count, failure_count, csv_path
		FROM stats_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.RunSummary
	for rows.Next() {
		var run models.RunSummary
		var started, finished, csvPath sql.NullString

		if err := rows.Scan(
			&run.ID,
			&run.WorkspaceName,
			&started,
			&finished,
			&run.TotalUsage,
			&run.AppCount,
			&run.SuccessCount,
			&run.FailureCount,
			&csvPath,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if t, ok := parseTimeString(started.String); ok {
			run.StartedAt = t.Local()
		}
		if t, ok := parseTimeString(finished.String); ok {
			run.FinishedAt = t.Local()
		}
		run.CSVPath = csvPath.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// RunRows returns the rows of one run in their original order.
func (db *DB) RunRows(runID string) ([]models.StatsRow, error) {
	query := `
		SELECT app_id, app_name, mode, total_usage, user_coverage, error
		FROM stats_rows
		WHERE run_id = ?
		ORDER BY position
	`

	rows, err := db.QueryContext(context.Background(), query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []models.StatsRow
	for rows.Next() {
		var row models.StatsRow
		var mode, errStr sql.NullString

		if err := rows.Scan(
			&row.AppID,
			&row.AppName,
			&mode,
			&row.TotalUsage,
			&row.UserCoverage,
			&errStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		row.Mode = models.Variant(mode.String)
		row.Error = errStr.String
		result = append(result, row)
	}

	return result, rows.Err()
}

// UsageTrend returns the total usage of a workspace's last runs, oldest first.
func (db *DB) UsageTrend(workspace string, limit int) ([]float64, error) {
	query := `
		SELECT total_usage FROM (
			SELECT total_usage, started_at
			FROM stats_runs
			WHERE workspace = ?
			ORDER BY started_at DESC
			LIMIT ?
		) ORDER BY started_at ASC
	`

	rows, err := db.QueryContext(context.Background(), query, workspace, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage trend: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []float64
	for rows.Next() {
		var total int
		if err := rows.Scan(&total); err != nil {
			return nil, fmt.Errorf("failed to scan usage trend: %w", err)
		}
		points = append(points, float64(total))
	}

	return points, rows.Err()
}

// DeleteRun removes a run and its rows.
func (db *DB) DeleteRun(id string) error {
	_, err := db.ExecContext(context.Background(), "DELETE FROM stats_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// PruneRuns keeps only the newest keep runs and returns how many were removed.
func (db *DB) PruneRuns(keep int) (int64, error) {
	result, err := db.ExecContext(context.Background(), `
		DELETE FROM stats_runs
		WHERE id NOT IN (SELECT id FROM stats_runs ORDER BY started_at DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return result.RowsAffected()
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

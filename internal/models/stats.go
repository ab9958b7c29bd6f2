package models

import (
	"time"
)

// TimeWindow bounds a usage query. Values are local "YYYY-MM-DD HH:MM" strings;
// an empty field means unbounded on that side.
type TimeWindow struct {
	Start string
	End   string
}

// IsZero reports whether neither bound is set.
func (w TimeWindow) IsZero() bool {
	return w.Start == "" && w.End == ""
}

// StatsRow is the usage result for a single application.
type StatsRow struct {
	AppID        string
	AppName      string
	Mode         Variant
	TotalUsage   int
	UserCoverage int
	// Error is set when classification or computation failed; counts are zero then.
	Error string
}

// Failed reports whether the row carries an error.
func (r StatsRow) Failed() bool {
	return r.Error != ""
}

// Report is the result of one statistics run over a workspace.
//
// User coverage is deliberately not summed across rows: records carry no globally stable
// user identifier, so a cross-application union cannot be computed correctly.
type Report struct {
	RunID         string
	WorkspaceName string
	Window        TimeWindow
	Rows          []StatsRow
	TotalUsage    int
	SuccessCount  int
	FailureCount  int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// RunSummary is a persisted report header, used by the history view.
type RunSummary struct {
	ID            string
	WorkspaceName string
	StartedAt     time.Time
	FinishedAt    time.Time
	TotalUsage    int
	AppCount      int
	SuccessCount  int
	FailureCount  int
	CSVPath       string
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

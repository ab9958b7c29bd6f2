package models

// DSLFile is one exported application definition held in memory until archiving.
type DSLFile struct {
	AppID   string
	AppName string
	DSL     any
	Draft   any
}

// BackupResult summarizes a backup run.
type BackupResult struct {
	WorkspaceName string
	TotalApps     int
	SuccessCount  int
	FailedCount   int
	FileName      string
	// Path is where the archive was written.
	Path  string
	Files []string
}

package app

import (
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/services"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// RunStatsMsg requests a statistics run over the default window.
type RunStatsMsg struct{}

// RunBackupMsg requests a full workspace backup.
type RunBackupMsg struct{}

// StatsFinishedMsg carries the outcome of a statistics run. Report may be set even when
// Error is, if the run stopped early.
type StatsFinishedMsg struct {
	Report  *models.Report
	CSVPath string
	Error   error
}

// BackupFinishedMsg carries the outcome of a backup run.
type BackupFinishedMsg struct {
	Result *models.BackupResult
	Error  error
}

// ProgressMsg mirrors a services.ProgressEvent for the tabs.
type ProgressMsg struct {
	Operation services.Operation
	Percent   int
	Text      string
}

// CredentialsChangedMsg mirrors a services.CredentialsChangedEvent for the tabs.
type CredentialsChangedMsg struct {
	Credentials models.Credentials
}

// HistoryChangedMsg tells the history tab a new run was persisted.
type HistoryChangedMsg struct{}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

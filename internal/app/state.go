// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"sync"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/services"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// RunProgress is the latest progress reported by the active operation.
type RunProgress struct {
	Operation services.Operation
	Percent   int
	Text      string
	StartedAt time.Time
}

// State is shared between the root model and the tabs.
type State struct {
	mu sync.RWMutex

	running  bool
	progress RunProgress

	report  *models.Report
	csvPath string
	backup  *models.BackupResult

	credentials models.Credentials

	lastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		notifications: make([]Notification, 0),
	}
}

// StartRun marks op as active. It returns false when another run is active.
func (s *State) StartRun(op services.Operation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}
	s.running = true
	s.progress = RunProgress{Operation: op, Text: "Starting...", StartedAt: time.Now()}
	return true
}

// FinishRun clears the active run.
func (s *State) FinishRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// IsRunning reports whether a run is active.
func (s *State) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetProgress records a progress update. Updates for other operations are ignored.
func (s *State) SetProgress(op services.Operation, percent int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.progress.Operation != op {
		return
	}
	s.progress.Percent = min(max(percent, 0), 100)
	s.progress.Text = text
}

// Progress returns the latest progress snapshot.
func (s *State) Progress() RunProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// SetReport stores the latest statistics report.
func (s *State) SetReport(r *models.Report, csvPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = r
	s.csvPath = csvPath
	s.lastUpdated = time.Now()
}

// Report returns the latest statistics report and the CSV it was saved to.
func (s *State) Report() (*models.Report, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report, s.csvPath
}

// SetBackup stores the latest backup result.
func (s *State) SetBackup(r *models.BackupResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backup = r
	s.lastUpdated = time.Now()
}

// Backup returns the latest backup result.
func (s *State) Backup() *models.BackupResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backup
}

// SetCredentials stores the current credential snapshot.
func (s *State) SetCredentials(c models.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = c
}

// Credentials returns the current credential snapshot.
func (s *State) Credentials() models.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials
}

// LastUpdated returns when a run result was last stored.
func (s *State) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

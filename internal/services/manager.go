// Package services provides service orchestration for the TUI and the CLI.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/console"
	"github.com/j-veylop/dify-backup-tui/internal/db"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/report"
	"github.com/j-veylop/dify-backup-tui/internal/services/backup"
	"github.com/j-veylop/dify-backup-tui/internal/services/credentials"
	"github.com/j-veylop/dify-backup-tui/internal/services/usage"
)

// ErrBusy is returned when a run is requested while another is in progress.
var ErrBusy = errors.New("another run is already in progress")

// historyKeep bounds how many runs the history database retains.
const historyKeep = 200

// Operation names a long-running manager task.
type Operation string

const (
	OperationStats  Operation = "stats"
	OperationBackup Operation = "backup"
)

type (
	// ProgressEvent is emitted while a run advances.
	ProgressEvent struct {
		Operation Operation
		Percent   int
		Text      string
	}

	// StatsCompletedEvent is emitted when a statistics run produced a report.
	StatsCompletedEvent struct {
		Report  *models.Report
		CSVPath string
	}

	// BackupCompletedEvent is emitted when a backup archive was written.
	BackupCompletedEvent struct {
		Result *models.BackupResult
	}

	// CredentialsChangedEvent is emitted when the credential file was reloaded.
	CredentialsChangedEvent struct {
		Credentials models.Credentials
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (ProgressEvent) isServiceEvent()           {}
func (StatsCompletedEvent) isServiceEvent()     {}
func (BackupCompletedEvent) isServiceEvent()    {}
func (CredentialsChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()              {}

// notify is swapped out in tests.
var notify = func(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu          sync.RWMutex
	runMu       sync.Mutex
	cfg         config.Config
	credentials *credentials.Service
	database    *db.DB
	httpClient  *http.Client
	stopChan    chan struct{}
	closeOnce   sync.Once
	subscribers []chan<- ServiceEvent
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		cfg:      *cfg,
		stopChan: make(chan struct{}),
	}

	var err error
	m.credentials, err = credentials.New(cfg.CookiesPath, credentials.Overrides{
		AccessToken: cfg.AccessToken,
		CSRFToken:   cfg.CSRFToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credentials: %w", err)
	}

	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		_ = m.credentials.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	go m.routeEvents()

	return m, nil
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event := <-m.credentials.Events():
			m.handleCredentialsEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleCredentialsEvent(event credentials.Event) {
	switch event.Type {
	case credentials.EventLoaded, credentials.EventChanged:
		m.broadcast(CredentialsChangedEvent{Credentials: m.credentials.Current()})
	case credentials.EventError:
		m.broadcast(ErrorEvent{Service: "credentials", Error: event.Error})
	}
}

// Client builds a console client from the current credentials. A missing CSRF
// token is fatal, matching what the console itself enforces.
func (m *Manager) Client() (*console.Client, error) {
	creds := m.credentials.Current()
	if !creds.HasCSRFToken() {
		return nil, console.ErrMissingCSRFToken
	}
	return console.NewClient(console.ClientConfig{
		BaseURL:    m.cfg.BaseURL,
		AuthToken:  creds.AccessToken,
		CSRFToken:  creds.CSRFToken,
		Cookies:    creds.Cookies,
		HTTPClient: m.httpClient,
	})
}

// DefaultWindow returns the window configured through STATS_START / STATS_END.
func (m *Manager) DefaultWindow() models.TimeWindow {
	return models.TimeWindow{Start: m.cfg.StatsStart, End: m.cfg.StatsEnd}
}

// RunStats aggregates usage for the current workspace, writes the CSV report to the
// output directory and records the run in the history database. The whole run is
// bounded by RUN_TIMEOUT; a timed-out run still saves the rows it finished.
func (m *Manager) RunStats(ctx context.Context, window models.TimeWindow) (*models.Report, string, error) {
	if !m.runMu.TryLock() {
		return nil, "", ErrBusy
	}
	defer m.runMu.Unlock()

	client, err := m.Client()
	if err != nil {
		m.fail("stats", err)
		return nil, "", err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	agg := usage.NewAggregator(client, usage.Options{
		Window:       window,
		AppPageLimit: m.cfg.AppPageLimit,
		PageSize:     m.cfg.UsagePageSize,
		PageDelay:    m.cfg.PageDelay,
		AppDelay:     m.cfg.AppDelay,
		Progress:     m.progress(OperationStats),
	})

	rep, runErr := agg.Run(ctx)
	if rep == nil {
		m.fail("stats", runErr)
		return nil, "", runErr
	}

	csvPath, err := report.Save(m.cfg.OutputDir, rep)
	if err != nil {
		m.fail("stats", err)
		return rep, "", err
	}

	if err := m.database.InsertReport(rep, csvPath); err != nil {
		logger.Error("failed to record run", "run", rep.RunID, "error", err)
	} else if removed, err := m.database.PruneRuns(historyKeep); err != nil {
		logger.Warn("failed to prune run history", "error", err)
	} else if removed > 0 {
		logger.Debug("pruned run history", "removed", removed)
		if err := m.database.Vacuum(); err != nil {
			logger.Warn("failed to vacuum run history", "error", err)
		}
	}

	m.broadcast(StatsCompletedEvent{Report: rep, CSVPath: csvPath})
	m.notifyStats(rep)

	if runErr != nil {
		err := fmt.Errorf("run stopped early: %w", runErr)
		m.fail("stats", err)
		return rep, csvPath, err
	}
	return rep, csvPath, nil
}

// RunBackup exports every application into a zip archive in the output directory.
func (m *Manager) RunBackup(ctx context.Context) (*models.BackupResult, error) {
	if !m.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer m.runMu.Unlock()

	svc, err := m.backupService()
	if err != nil {
		m.fail("backup", err)
		return nil, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	result, err := svc.BackupAll(ctx)
	if err != nil {
		m.fail("backup", err)
		return nil, err
	}

	m.broadcast(BackupCompletedEvent{Result: result})
	m.sendNotification(
		"Dify backup complete",
		fmt.Sprintf("%d of %d applications saved to %s", result.SuccessCount, result.TotalApps, result.FileName),
	)
	return result, nil
}

// BackupApp exports a single application definition.
func (m *Manager) BackupApp(ctx context.Context, appID string) (string, error) {
	svc, err := m.backupService()
	if err != nil {
		return "", err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return svc.BackupApp(ctx, appID)
}

func (m *Manager) backupService() (*backup.Service, error) {
	client, err := m.Client()
	if err != nil {
		return nil, err
	}
	return backup.New(client, backup.Options{
		OutputDir:      m.cfg.OutputDir,
		IncludeSecrets: m.cfg.IncludeSecrets,
		IncludeDraft:   m.cfg.IncludeWorkflowDraft,
		AppPageLimit:   m.cfg.AppPageLimit,
		AppDelay:       m.cfg.BackupDelay,
		Progress:       m.progress(OperationBackup),
	}), nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.RunTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.cfg.RunTimeout)
}

func (m *Manager) progress(op Operation) usage.ProgressFunc {
	return func(p usage.Progress) {
		m.broadcast(ProgressEvent{Operation: op, Percent: p.Percent, Text: p.Text})
	}
}

func (m *Manager) fail(service string, err error) {
	logger.Error("run failed", "service", service, "error", err)
	m.broadcast(ErrorEvent{Service: service, Error: err})
}

func (m *Manager) notifyStats(rep *models.Report) {
	body := fmt.Sprintf("%s usage across %d apps", humanize.Comma(int64(rep.TotalUsage)), len(rep.Rows))
	if rep.FailureCount > 0 {
		body += fmt.Sprintf(" (%d failed)", rep.FailureCount)
	}
	m.sendNotification(fmt.Sprintf("Usage report: %s", rep.WorkspaceName), body)
}

func (m *Manager) sendNotification(title, body string) {
	if err := notify(title, body); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}

// broadcast sends an event to all subscribers without blocking.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, waitForEvent(ch)
}

// waitForEvent returns a tea.Cmd that waits for the next event.
func waitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return event
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Credentials returns the credentials currently in effect.
func (m *Manager) Credentials() models.Credentials {
	return m.credentials.Current()
}

// ReloadCredentials re-reads the credential file and tells subscribers on success.
func (m *Manager) ReloadCredentials() error {
	if err := m.credentials.Reload(); err != nil {
		logger.Warn("credential reload failed", "error", err)
		return err
	}
	m.broadcast(CredentialsChangedEvent{Credentials: m.credentials.Current()})
	return nil
}

// CredentialsPath returns the watched credential file.
func (m *Manager) CredentialsPath() string {
	return m.credentials.Path()
}

// Config returns the configuration the manager was built with.
func (m *Manager) Config() config.Config {
	return m.cfg
}

// RecentRuns returns the latest recorded statistics runs.
func (m *Manager) RecentRuns(limit int) ([]models.RunSummary, error) {
	return m.database.RecentRuns(limit)
}

// RunRows returns the rows of a recorded run.
func (m *Manager) RunRows(runID string) ([]models.StatsRow, error) {
	return m.database.RunRows(runID)
}

// UsageTrend returns total usage of a workspace's recent runs, oldest first.
func (m *Manager) UsageTrend(workspace string, limit int) ([]float64, error) {
	return m.database.UsageTrend(workspace, limit)
}

// DeleteRun removes a recorded run from the history. The CSV on disk is kept.
func (m *Manager) DeleteRun(runID string) error {
	return m.database.DeleteRun(runID)
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		close(m.stopChan)

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if err := m.credentials.Close(); err != nil {
			errs = append(errs, err)
		}

		if m.database != nil {
			if err := m.database.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

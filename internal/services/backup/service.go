// Package backup exports every application definition in a workspace into a zip archive.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/archive"
	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/console"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/services/usage"
)

// Console is what the backup needs from the console client.
type Console interface {
	HasCSRFToken() bool
	CurrentWorkspace(ctx context.Context) (*models.Workspace, error)
	Workspaces(ctx context.Context) ([]models.Workspace, error)
	Applications(ctx context.Context, limit int) ([]models.Application, error)
	ExportDSL(ctx context.Context, appID string, includeSecret bool) (any, error)
	WorkflowDraft(ctx context.Context, appID string) any
}

// Options tune a backup run. Zero values fall back to the config defaults.
type Options struct {
	OutputDir      string
	IncludeSecrets bool
	IncludeDraft   bool
	AppPageLimit   int
	AppDelay       time.Duration
	Sleep          usage.SleepFunc
	Progress       usage.ProgressFunc
}

// Service runs backups against one console client.
type Service struct {
	console Console
	opts    Options
	now     func() time.Time
}

// New creates a backup service.
func New(c Console, opts Options) *Service {
	if opts.AppPageLimit <= 0 {
		opts.AppPageLimit = config.DefaultAppPageLimit
	}
	if opts.Sleep == nil {
		opts.Sleep = usage.Sleep
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	return &Service{console: c, opts: opts, now: time.Now}
}

// BackupAll exports every application and writes them into one zip in the output
// directory. Individual export failures are counted and skipped.
func (s *Service) BackupAll(ctx context.Context) (*models.BackupResult, error) {
	if !s.console.HasCSRFToken() {
		return nil, console.ErrMissingCSRFToken
	}
	started := s.now()

	s.progress(5, "Resolving workspace...")
	workspaceName := s.workspaceName(ctx)

	s.progress(10, "Listing applications...")
	apps, err := s.console.Applications(ctx, s.opts.AppPageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	if len(apps) == 0 {
		return nil, usage.ErrNoApplications
	}
	s.progress(15, fmt.Sprintf("Found %d applications, starting backup...", len(apps)))

	result := &models.BackupResult{
		WorkspaceName: archive.SanitizeFileName(workspaceName),
		TotalApps:     len(apps),
	}

	files := make([]models.DSLFile, 0, len(apps))
	for i, app := range apps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.progress(15+70*i/len(apps), fmt.Sprintf("Backing up: %s (%d/%d)", app.DisplayName(), i+1, len(apps)))

		file, err := s.export(ctx, app)
		if err != nil {
			logger.Error("backup failed", "app", app.ID, "name", app.DisplayName(), "error", err)
			result.FailedCount++
		} else {
			files = append(files, file)
			result.SuccessCount++
		}

		if err := s.opts.Sleep(ctx, s.opts.AppDelay); err != nil {
			return nil, err
		}
	}

	s.progress(90, "Building zip archive...")
	var buf bytes.Buffer
	names, err := archive.WriteZip(&buf, files, started)
	if err != nil {
		return nil, err
	}

	result.FileName = archive.ZipName(workspaceName, started)
	path := filepath.Join(s.opts.OutputDir, result.FileName)
	if err := archive.WriteFileAtomic(path, buf.Bytes(), 0600); err != nil {
		return nil, fmt.Errorf("failed to save archive: %w", err)
	}
	result.Files = names
	result.Path = path

	s.progress(100, "Done!")
	logger.Info("backup complete",
		"workspace", workspaceName, "apps", len(apps),
		"succeeded", result.SuccessCount, "failed", result.FailedCount, "path", path)
	return result, nil
}

// export fetches one application's definition and, when enabled, its workflow draft.
func (s *Service) export(ctx context.Context, app models.Application) (models.DSLFile, error) {
	dsl, err := s.console.ExportDSL(ctx, app.ID, s.opts.IncludeSecrets)
	if err != nil {
		return models.DSLFile{}, err
	}
	if _, err := archive.RenderYAML(dsl); err != nil {
		return models.DSLFile{}, err
	}

	file := models.DSLFile{AppID: app.ID, AppName: app.DisplayName(), DSL: dsl}
	if s.opts.IncludeDraft && hasDraft(app) {
		file.Draft = s.console.WorkflowDraft(ctx, app.ID)
	}
	return file, nil
}

// hasDraft reports whether the app mode keeps an editable workflow graph.
func hasDraft(app models.Application) bool {
	switch app.RawMode {
	case "workflow", "advanced-chat":
		return true
	}
	return false
}

// workspaceName names the archive. When the current workspace cannot be resolved, a
// workspace list with a single entry is used instead; otherwise "workspace".
func (s *Service) workspaceName(ctx context.Context) string {
	ws, err := s.console.CurrentWorkspace(ctx)
	if err == nil && ws != nil && ws.Name != "" {
		return ws.Name
	}
	if err != nil {
		logger.Warn("failed to resolve current workspace", "error", err)
	}

	list, err := s.console.Workspaces(ctx)
	if err != nil {
		logger.Warn("failed to list workspaces", "error", err)
	}
	logger.Debug("listed workspaces", "count", len(list))
	if len(list) == 1 && list[0].Name != "" {
		return list[0].Name
	}

	logger.Warn("using default workspace name")
	return "workspace"
}

// BackupApp exports a single application to "dify_app_<id>_<date>.yml" and returns its path.
func (s *Service) BackupApp(ctx context.Context, appID string) (string, error) {
	if !s.console.HasCSRFToken() {
		return "", console.ErrMissingCSRFToken
	}
	if appID == "" {
		return "", fmt.Errorf("application id is required")
	}

	dsl, err := s.console.ExportDSL(ctx, appID, s.opts.IncludeSecrets)
	if err != nil {
		return "", err
	}
	data, err := archive.RenderYAML(dsl)
	if err != nil {
		return "", fmt.Errorf("application %s: %w", appID, err)
	}

	path := filepath.Join(s.opts.OutputDir, archive.SingleFileName(appID, s.now()))
	if err := archive.WriteFileAtomic(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}
	logger.Info("application exported", "app", appID, "path", path)
	return path, nil
}

func (s *Service) progress(percent int, text string) {
	if s.opts.Progress != nil {
		s.opts.Progress(usage.Progress{Percent: percent, Text: text})
	}
}

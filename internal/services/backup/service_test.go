package backup

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/console"
	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/services/usage"
)

// MockConsole implements Console for testing
type MockConsole struct {
	CSRF       bool
	Workspace  *models.Workspace
	WSErr      error
	List       []models.Workspace
	Apps       []models.Application
	DSL        map[string]any
	ExportErrs map[string]error
	Drafts     map[string]any
	Exported   []string
	DraftCalls []string
}

func (m *MockConsole) HasCSRFToken() bool { return m.CSRF }

func (m *MockConsole) CurrentWorkspace(context.Context) (*models.Workspace, error) {
	return m.Workspace, m.WSErr
}

func (m *MockConsole) Workspaces(context.Context) ([]models.Workspace, error) {
	return m.List, nil
}

func (m *MockConsole) Applications(context.Context, int) ([]models.Application, error) {
	return m.Apps, nil
}

func (m *MockConsole) ExportDSL(_ context.Context, appID string, _ bool) (any, error) {
	m.Exported = append(m.Exported, appID)
	if err := m.ExportErrs[appID]; err != nil {
		return nil, err
	}
	return m.DSL[appID], nil
}

func (m *MockConsole) WorkflowDraft(_ context.Context, appID string) any {
	m.DraftCalls = append(m.DraftCalls, appID)
	return m.Drafts[appID]
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestService(t *testing.T, c *MockConsole, opts Options) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	opts.OutputDir = dir
	opts.Sleep = noSleep
	s := New(c, opts)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 8, 5, 9, 0, time.UTC) }
	return s, dir
}

func TestBackupAll(t *testing.T) {
	c := &MockConsole{
		CSRF:      true,
		Workspace: &models.Workspace{Name: "My Team"},
		Apps: []models.Application{
			{ID: "a1", Name: "Chat Bot", RawMode: "chat"},
			{ID: "a2", Name: "Flow", RawMode: "workflow"},
			{ID: "a3", Name: "Broken", RawMode: "completion"},
		},
		DSL: map[string]any{
			"a1": "app:\n  name: Chat Bot\n",
			"a2": map[string]any{"app": map[string]any{"name": "Flow"}},
		},
		ExportErrs: map[string]error{"a3": &console.APIError{StatusCode: 500}},
		Drafts:     map[string]any{"a2": map[string]any{"graph": "g"}},
	}

	var percents []int
	s, dir := newTestService(t, c, Options{
		IncludeDraft: true,
		Progress:     func(p usage.Progress) { percents = append(percents, p.Percent) },
	})

	result, err := s.BackupAll(context.Background())
	if err != nil {
		t.Fatalf("BackupAll failed: %v", err)
	}

	if result.TotalApps != 3 || result.SuccessCount != 2 || result.FailedCount != 1 {
		t.Errorf("counts = %d/%d/%d", result.TotalApps, result.SuccessCount, result.FailedCount)
	}
	if result.WorkspaceName != "My_Team" {
		t.Errorf("WorkspaceName = %q", result.WorkspaceName)
	}
	if result.FileName != "My_Team_2024-03-01T08-05-09.zip" {
		t.Errorf("FileName = %q", result.FileName)
	}
	if result.Path != filepath.Join(dir, result.FileName) {
		t.Errorf("Path = %q", result.Path)
	}
	wantFiles := "Chat_Bot_a1.yml,Flow_a2.yml,Flow_a2.draft.yml"
	if got := strings.Join(result.Files, ","); got != wantFiles {
		t.Errorf("Files = %s, want %s", got, wantFiles)
	}
	if len(c.DraftCalls) != 1 || c.DraftCalls[0] != "a2" {
		t.Errorf("draft calls = %v, want [a2]", c.DraftCalls)
	}

	zr, err := zip.OpenReader(result.Path)
	if err != nil {
		t.Fatalf("archive not readable: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 3 {
		t.Errorf("entries = %d, want 3", len(zr.File))
	}

	wantPercents := []int{5, 10, 15, 15, 38, 61, 90, 100}
	if len(percents) != len(wantPercents) {
		t.Fatalf("progress = %v, want %v", percents, wantPercents)
	}
	for i := range wantPercents {
		if percents[i] != wantPercents[i] {
			t.Errorf("progress[%d] = %d, want %d", i, percents[i], wantPercents[i])
		}
	}
}

func TestBackupAll_WorkspaceFallback(t *testing.T) {
	c := &MockConsole{
		CSRF:  true,
		WSErr: errors.New("forbidden"),
		Apps:  []models.Application{{ID: "a1", Name: "x"}},
		DSL:   map[string]any{"a1": "app: x\n"},
	}
	s, _ := newTestService(t, c, Options{})

	result, err := s.BackupAll(context.Background())
	if err != nil {
		t.Fatalf("BackupAll failed: %v", err)
	}
	if !strings.HasPrefix(result.FileName, "workspace_") {
		t.Errorf("FileName = %q, want workspace_ prefix", result.FileName)
	}

	c.List = []models.Workspace{{ID: "w1", Name: "Solo"}}
	result, err = s.BackupAll(context.Background())
	if err != nil {
		t.Fatalf("BackupAll failed: %v", err)
	}
	if result.WorkspaceName != "Solo" || !strings.HasPrefix(result.FileName, "Solo_") {
		t.Errorf("single listed workspace should name the archive, got %q / %q", result.WorkspaceName, result.FileName)
	}
}

func TestBackupAll_Errors(t *testing.T) {
	tests := []struct {
		name    string
		console *MockConsole
		wantErr error
	}{
		{"MissingCSRF", &MockConsole{}, console.ErrMissingCSRFToken},
		{"NoApps", &MockConsole{CSRF: true, Workspace: &models.Workspace{Name: "T"}}, usage.ErrNoApplications},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, dir := newTestService(t, tt.console, Options{})
			_, err := s.BackupAll(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("expected no output files, got %d", len(entries))
			}
		})
	}
}

func TestBackupApp(t *testing.T) {
	c := &MockConsole{CSRF: true, DSL: map[string]any{"a1": "app: one\n"}}
	s, dir := newTestService(t, c, Options{})

	path, err := s.BackupApp(context.Background(), "a1")
	if err != nil {
		t.Fatalf("BackupApp failed: %v", err)
	}
	if path != filepath.Join(dir, "dify_app_a1_2024-03-01.yml") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "app: one\n" {
		t.Errorf("content = %q, %v", data, err)
	}

	if _, err := s.BackupApp(context.Background(), ""); err == nil {
		t.Error("expected error for empty id")
	}
	if _, err := s.BackupApp(context.Background(), "missing"); err == nil {
		t.Error("expected error for empty export")
	}
}

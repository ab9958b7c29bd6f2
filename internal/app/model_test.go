package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/services"
)

// stubTab records the messages it receives.
type stubTab struct {
	name     string
	received []tea.Msg
	width    int
	height   int
}

func (s *stubTab) Init() tea.Cmd { return nil }

func (s *stubTab) Update(msg tea.Msg) (Tab, tea.Cmd) {
	s.received = append(s.received, msg)
	return s, nil
}

func (s *stubTab) View() string { return "tab:" + s.name }

func (s *stubTab) SetSize(w, h int) { s.width, s.height = w, h }

func (s *stubTab) ShortHelp() []key.Binding {
	return []key.Binding{key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "stub action"))}
}

func (s *stubTab) FullHelp() [][]key.Binding { return nil }

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(b Backend) (*Model, []*stubTab) {
	m := NewModel(context.Background(), b)
	tabs := []*stubTab{{name: "stats"}, {name: "history"}, {name: "info"}}
	m.SetTabs([]Tab{tabs[0], tabs[1], tabs[2]})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, tabs
}

func TestNewModel(t *testing.T) {
	m := NewModel(context.Background(), nil)
	if m == nil {
		t.Fatal("NewModel returned nil")
	}
	if m.GetState() == nil {
		t.Error("State should be initialized")
	}
	if m.GetActiveTab() != TabStats {
		t.Error("Default tab should be Stats")
	}
	if len(m.tabs) != 3 {
		t.Errorf("Should have 3 tab placeholders, got %d", len(m.tabs))
	}
}

func TestNewModel_LoadsCredentials(t *testing.T) {
	m := NewModel(context.Background(), newMockBackend())
	if m.GetState().Credentials().Source != "test" {
		t.Error("credentials should be copied from the backend")
	}
}

func TestModel_Init(t *testing.T) {
	m := NewModel(context.Background(), nil)
	if m.Init() == nil {
		t.Error("Init returned nil command")
	}
}

func TestModel_WindowSize(t *testing.T) {
	m, tabs := newTestModel(nil)

	if !m.IsReady() {
		t.Error("Model should be ready after WindowSizeMsg")
	}
	if tabs[0].width != 120 || tabs[0].height != 35 {
		t.Errorf("tab size = %dx%d, want 120x35", tabs[0].width, tabs[0].height)
	}
}

func TestModel_TabSwitching(t *testing.T) {
	m, _ := newTestModel(nil)

	tests := []struct {
		msg  tea.KeyMsg
		want TabID
	}{
		{keyRune('2'), TabHistory},
		{keyRune('3'), TabInfo},
		{tea.KeyMsg{Type: tea.KeyTab}, TabStats},
		{tea.KeyMsg{Type: tea.KeyShiftTab}, TabInfo},
		{keyRune('1'), TabStats},
	}

	for _, tt := range tests {
		m.Update(tt.msg)
		if m.GetActiveTab() != tt.want {
			t.Errorf("after %q active tab = %v, want %v", tt.msg.String(), m.GetActiveTab(), tt.want)
		}
	}

	m.Update(TabSwitchMsg{Tab: TabHistory})
	if m.GetActiveTab() != TabHistory {
		t.Error("TabSwitchMsg should switch tabs")
	}
}

func TestModel_KeysGoToActiveTabOnly(t *testing.T) {
	m, tabs := newTestModel(nil)

	m.Update(keyRune('z'))
	if len(tabs[0].received) == 0 {
		t.Fatal("active tab should receive keys")
	}
	last := tabs[0].received[len(tabs[0].received)-1]
	if _, ok := last.(tea.KeyMsg); !ok {
		t.Errorf("active tab last message = %T, want KeyMsg", last)
	}
	for _, msg := range tabs[1].received {
		if _, ok := msg.(tea.KeyMsg); ok {
			t.Error("inactive tab should not receive keys")
		}
	}

	m.Update(HistoryChangedMsg{})
	for i, tab := range tabs {
		last := tab.received[len(tab.received)-1]
		if _, ok := last.(HistoryChangedMsg); !ok {
			t.Errorf("tab %d should receive broadcast message, got %T", i, last)
		}
	}
}

func TestModel_Help(t *testing.T) {
	m, _ := newTestModel(nil)

	m.Update(keyRune('?'))
	if !m.showHelp {
		t.Fatal("? should open help")
	}
	view := m.View()
	if !strings.Contains(view, "Keyboard Shortcuts") || !strings.Contains(view, "stub action") {
		t.Error("help overlay should list global and tab shortcuts")
	}

	m.Update(keyRune('2'))
	if m.GetActiveTab() != TabStats {
		t.Error("tab keys should be ignored while help is open")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.showHelp {
		t.Error("esc should close help")
	}

	m.Update(ToggleHelpMsg{})
	if !m.showHelp {
		t.Error("ToggleHelpMsg should open help")
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(nil)

	cmd := m.handleKeyMsg(keyRune('q'))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestModel_RunKeys(t *testing.T) {
	m, _ := newTestModel(nil)

	if msg := m.handleKeyMsg(keyRune('s'))(); msg != (RunStatsMsg{}) {
		t.Errorf("s produced %T", msg)
	}
	if msg := m.handleKeyMsg(keyRune('b'))(); msg != (RunBackupMsg{}) {
		t.Errorf("b produced %T", msg)
	}
}

func TestModel_StartRunWithoutBackend(t *testing.T) {
	m, _ := newTestModel(nil)

	msg := m.startRun(services.OperationStats)()
	note, ok := msg.(AddNotificationMsg)
	if !ok || note.Type != NotificationError {
		t.Errorf("expected error notification, got %#v", msg)
	}
	if m.GetState().IsRunning() {
		t.Error("no run should start without a backend")
	}
}

func TestModel_StatsRun(t *testing.T) {
	b := newMockBackend()
	b.report = &models.Report{
		Rows:         []models.StatsRow{{AppID: "a"}, {AppID: "b", Error: "boom"}},
		TotalUsage:   1234,
		SuccessCount: 1,
		FailureCount: 1,
	}
	b.csvPath = "/tmp/ws_usage.csv"
	m, _ := newTestModel(b)

	cmd := m.startRun(services.OperationStats)
	if !m.GetState().IsRunning() {
		t.Fatal("run should be active")
	}

	again := m.startRun(services.OperationBackup)()
	if note, ok := again.(AddNotificationMsg); !ok || note.Type != NotificationWarning {
		t.Errorf("second run should warn, got %#v", again)
	}

	done := cmd()
	if b.statsRuns != 1 {
		t.Errorf("RunStats called %d times, want 1", b.statsRuns)
	}

	finished, ok := done.(StatsFinishedMsg)
	if !ok {
		t.Fatalf("expected StatsFinishedMsg, got %T", done)
	}
	note := m.handleStatsFinished(finished)().(AddNotificationMsg)
	if note.Type != NotificationWarning || !strings.Contains(note.Message, "1,234") {
		t.Errorf("unexpected notification %+v", note)
	}
	if m.GetState().IsRunning() {
		t.Error("run should be finished")
	}
	if rep, path := m.GetState().Report(); rep != b.report || path != b.csvPath {
		t.Error("report should be stored in state")
	}
}

func TestModel_RunFailures(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want NotificationType
	}{
		{"stats cancelled", StatsFinishedMsg{Error: context.Canceled}, NotificationWarning},
		{"stats failed", StatsFinishedMsg{Error: errors.New("no apps")}, NotificationError},
		{"backup cancelled", BackupFinishedMsg{Error: context.Canceled}, NotificationWarning},
		{"backup failed", BackupFinishedMsg{Error: errors.New("denied")}, NotificationError},
		{"backup ok", BackupFinishedMsg{Result: &models.BackupResult{TotalApps: 2, SuccessCount: 2}}, NotificationSuccess},
		{"backup partial", BackupFinishedMsg{Result: &models.BackupResult{TotalApps: 2, SuccessCount: 1, FailedCount: 1}}, NotificationWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestModel(newMockBackend())
			var cmd tea.Cmd
			switch msg := tt.msg.(type) {
			case StatsFinishedMsg:
				cmd = m.handleStatsFinished(msg)
			case BackupFinishedMsg:
				cmd = m.handleBackupFinished(msg)
			}
			note, ok := cmd().(AddNotificationMsg)
			if !ok {
				t.Fatal("expected a notification")
			}
			if note.Type != tt.want {
				t.Errorf("Type = %v, want %v", note.Type, tt.want)
			}
		})
	}
}

func TestModel_CancelKey(t *testing.T) {
	m, _ := newTestModel(newMockBackend())

	m.startRun(services.OperationStats)
	if m.cancel == nil {
		t.Fatal("run should hold a cancel func")
	}

	m.handleKeyMsg(keyRune('x'))
	notes := m.GetState().GetNotifications()
	if len(notes) == 0 || notes[len(notes)-1].Message != "Cancelling..." {
		t.Errorf("cancel should update the loading notification, got %+v", notes)
	}
}

func TestModel_HandleServiceEvent(t *testing.T) {
	m, _ := newTestModel(newMockBackend())
	m.GetState().StartRun(services.OperationStats)

	cmd := m.handleServiceEvent(services.ProgressEvent{Operation: services.OperationStats, Percent: 40, Text: "(1/2) app"})
	if p := m.GetState().Progress(); p.Percent != 40 || p.Text != "(1/2) app" {
		t.Errorf("progress not recorded: %+v", p)
	}
	if msg, ok := cmd().(ProgressMsg); !ok || msg.Percent != 40 {
		t.Errorf("expected ProgressMsg, got %#v", msg)
	}

	if msg := m.handleServiceEvent(services.StatsCompletedEvent{})(); msg != (HistoryChangedMsg{}) {
		t.Errorf("completion should refresh history, got %T", msg)
	}

	creds := models.Credentials{CSRFToken: "new", Source: "cookies.txt"}
	m.handleServiceEvent(services.CredentialsChangedEvent{Credentials: creds})
	if m.GetState().Credentials().Source != "cookies.txt" {
		t.Error("credentials should be updated")
	}

	msg := m.handleServiceEvent(services.ErrorEvent{Service: "credentials", Error: errors.New("bad file")})()
	if note, ok := msg.(AddNotificationMsg); !ok || !strings.Contains(note.Message, "[credentials] bad file") {
		t.Errorf("unexpected error notification %#v", msg)
	}
}

func TestModel_Notifications(t *testing.T) {
	m, _ := newTestModel(nil)

	m.Update(AddNotificationMsg{Type: NotificationSuccess, Message: "Saved report", Duration: DefaultNotificationDuration})
	if !strings.Contains(m.View(), "Saved report") {
		t.Error("toast should be rendered")
	}

	id := m.GetState().GetNotifications()[0].ID
	m.Update(RemoveNotificationMsg{ID: id})
	if len(m.GetState().GetNotifications()) != 0 {
		t.Error("notification should be removed")
	}

	m.Update(ErrorMsg{Error: errors.New("oops"), Context: "history"})
}

func TestModel_View(t *testing.T) {
	m := NewModel(context.Background(), nil)
	if !strings.Contains(m.View(), "Loading") {
		t.Error("unready view should show loading")
	}

	m, _ = newTestModel(nil)
	view := m.View()
	if !strings.Contains(view, "tab:stats") || !strings.Contains(view, "[1] Stats") {
		t.Errorf("view missing active tab content: %q", view)
	}
}

func TestModel_HandleSpinnerTick(t *testing.T) {
	m, _ := newTestModel(nil)
	_, cmd := m.Update(spinner.TickMsg{})
	if cmd == nil {
		t.Error("spinner tick should return a command")
	}
}

func TestTabID_String(t *testing.T) {
	tests := []struct {
		id   TabID
		want string
	}{
		{TabStats, "Stats"},
		{TabHistory, "History"},
		{TabInfo, "Info"},
		{TabID(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("TabID(%d).String() = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()
	if len(km.ShortHelp()) == 0 {
		t.Error("ShortHelp returned empty")
	}
	if len(km.FullHelp()) == 0 {
		t.Error("FullHelp returned empty")
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/dify-backup-tui/internal/services"
	"github.com/j-veylop/dify-backup-tui/internal/ui/styles"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabStats is the ID for the statistics tab.
	TabStats TabID = iota
	// TabHistory is the ID for the history tab.
	TabHistory
	// TabInfo is the ID for the info tab.
	TabInfo
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabStats:
		return "Stats"
	case TabHistory:
		return "History"
	case TabInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding

	// FullHelp returns key bindings for the full help view.
	FullHelp() [][]key.Binding
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1      key.Binding
	Tab2      key.Binding
	Tab3      key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	RunStats  key.Binding
	RunBackup key.Binding
	Cancel    key.Binding
	Help      key.Binding
	Quit      key.Binding
	Escape    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:      key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "stats")),
		Tab2:      key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "history")),
		Tab3:      key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "info")),
		NextTab:   key.NewBinding(key.WithKeys("tab", "l", "right"), key.WithHelp("tab/→", "next tab")),
		PrevTab:   key.NewBinding(key.WithKeys("shift+tab", "h", "left"), key.WithHelp("shift+tab/←", "prev tab")),
		RunStats:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "run statistics")),
		RunBackup: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "run backup")),
		Cancel:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel run")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.RunStats, k.RunBackup, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab1, k.Tab2, k.Tab3},
		{k.NextTab, k.PrevTab},
		{k.RunStats, k.RunBackup, k.Cancel},
		{k.Help, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content lipgloss.Style
	Toast   lipgloss.Style

	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Toast = styles.ToastStyle

	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)

	return s
}

// Model is the main application model.
type Model struct {
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	state   *State
	backend Backend
	keymap  KeyMap
	styles  Styles

	spinner spinner.Model

	// ctx parents every run; cancel aborts the active one.
	ctx    context.Context
	cancel context.CancelFunc

	width  int
	height int

	showHelp bool
	ready    bool

	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model. b may be nil, in which case runs are
// rejected with a notification.
func NewModel(ctx context.Context, b Backend) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	state := NewState()
	if b != nil {
		state.SetCredentials(b.Credentials())
	}

	return &Model{
		activeTab: TabStats,
		tabNames:  []string{"Stats", "History", "Info"},
		tabs:      make([]Tab, 3),
		state:     state,
		backend:   b,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
		ctx:       ctx,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady returns true if the model is ready (window size received).
func (m *Model) IsReady() bool {
	return m.ready
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.backend != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.backend))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	cmds = append(cmds, m.updateTabs(msg))

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event))
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case RunStatsMsg:
		cmds = append(cmds, m.startRun(services.OperationStats))
	case RunBackupMsg:
		cmds = append(cmds, m.startRun(services.OperationBackup))
	case StatsFinishedMsg:
		cmds = append(cmds, m.handleStatsFinished(msg))
	case BackupFinishedMsg:
		cmds = append(cmds, m.handleBackupFinished(msg))
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case ErrorMsg:
		text := msg.Error.Error()
		if msg.Context != "" {
			text = msg.Context + ": " + text
		}
		cmds = append(cmds, NotifyError(text))
	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()
	case ToggleHelpMsg:
		m.showHelp = !m.showHelp
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) startRun(op services.Operation) tea.Cmd {
	if m.backend == nil {
		return NotifyError("Services not initialized")
	}
	if !m.state.StartRun(op) {
		return NotifyWarning("A run is already in progress")
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel

	switch op {
	case services.OperationBackup:
		m.state.SetLoadingNotification("Backing up applications...")
		return runBackupCmd(ctx, m.backend)
	default:
		m.state.SetLoadingNotification("Collecting usage statistics...")
		return runStatsCmd(ctx, m.backend)
	}
}

func (m *Model) finishRun() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state.FinishRun()
	m.state.ClearLoadingNotification()
}

func (m *Model) handleStatsFinished(msg StatsFinishedMsg) tea.Cmd {
	m.finishRun()
	if msg.Report != nil {
		m.state.SetReport(msg.Report, msg.CSVPath)
	}

	switch {
	case errors.Is(msg.Error, context.Canceled):
		return NotifyWarning("Statistics run cancelled")
	case msg.Error != nil:
		return NotifyError(fmt.Sprintf("Statistics failed: %v", msg.Error))
	case msg.Report == nil:
		return nil
	}

	text := fmt.Sprintf("%d apps, %s uses", len(msg.Report.Rows), humanize.Comma(int64(msg.Report.TotalUsage)))
	if msg.Report.FailureCount > 0 {
		return NotifyWarning(fmt.Sprintf("%s (%d failed)", text, msg.Report.FailureCount))
	}
	return NotifySuccess(text)
}

func (m *Model) handleBackupFinished(msg BackupFinishedMsg) tea.Cmd {
	m.finishRun()
	if msg.Result != nil {
		m.state.SetBackup(msg.Result)
	}

	switch {
	case errors.Is(msg.Error, context.Canceled):
		return NotifyWarning("Backup cancelled")
	case msg.Error != nil:
		return NotifyError(fmt.Sprintf("Backup failed: %v", msg.Error))
	case msg.Result == nil:
		return nil
	}

	text := fmt.Sprintf("Backed up %d/%d apps to %s", msg.Result.SuccessCount, msg.Result.TotalApps, msg.Result.FileName)
	if msg.Result.FailedCount > 0 {
		return NotifyWarning(text)
	}
	return NotifySuccess(text)
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.ProgressEvent:
		m.state.SetProgress(e.Operation, e.Percent, e.Text)
		return func() tea.Msg {
			return ProgressMsg{Operation: e.Operation, Percent: e.Percent, Text: e.Text}
		}

	case services.StatsCompletedEvent, services.BackupCompletedEvent:
		return func() tea.Msg { return HistoryChangedMsg{} }

	case services.CredentialsChangedEvent:
		m.state.SetCredentials(e.Credentials)
		return tea.Batch(
			NotifyInfo("Credentials reloaded"),
			func() tea.Msg { return CredentialsChangedMsg(e) },
		)

	case services.ErrorEvent:
		return NotifyError(fmt.Sprintf("[%s] %v", e.Service, e.Error))
	}

	return nil
}

// updateTabs forwards keys to the active tab and every other message to all tabs, so
// background tabs stay current with run results.
func (m *Model) updateTabs(msg tea.Msg) tea.Cmd {
	if _, isKey := msg.(tea.KeyMsg); isKey {
		if m.showHelp {
			return nil
		}
		return m.updateTab(m.activeTab, msg)
	}

	var cmds []tea.Cmd
	for i := range m.tabs {
		cmds = append(cmds, m.updateTab(TabID(i), msg))
	}
	return tea.Batch(cmds...)
}

func (m *Model) updateTab(id TabID, msg tea.Msg) tea.Cmd {
	if int(id) >= len(m.tabs) || m.tabs[id] == nil {
		return nil
	}
	var cmd tea.Cmd
	m.tabs[id], cmd = m.tabs[id].Update(msg)
	return cmd
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-5)

	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

func (m *Model) switchTab(id TabID) {
	m.activeTab = id
	m.updateTabSizes()
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, m.keymap.Escape):
		m.showHelp = false

	case m.showHelp:

	case key.Matches(msg, m.keymap.Tab1):
		m.switchTab(TabStats)

	case key.Matches(msg, m.keymap.Tab2):
		m.switchTab(TabHistory)

	case key.Matches(msg, m.keymap.Tab3):
		m.switchTab(TabInfo)

	case key.Matches(msg, m.keymap.NextTab):
		m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))

	case key.Matches(msg, m.keymap.PrevTab):
		m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))

	case key.Matches(msg, m.keymap.RunStats):
		return func() tea.Msg { return RunStatsMsg{} }

	case key.Matches(msg, m.keymap.RunBackup):
		return func() tea.Msg { return RunBackupMsg{} }

	case key.Matches(msg, m.keymap.Cancel):
		if m.cancel != nil && m.state.IsRunning() {
			m.cancel()
			m.state.SetLoadingNotification("Cancelling...")
		}
	}

	return nil
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	} else {
		b.WriteString(m.renderPlaceholder())
	}

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if notifications := m.renderNotifications(); len(notifications) > 0 {
		return m.overlayToasts(mainView, notifications)
	}

	return mainView
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	y := max((m.height-len(overlayLines))/2, 0)
	overlayWidth := lipgloss.Width(overlay)
	x := max((m.width-overlayWidth)/2, 0)
	mainLines = padLines(mainLines, y+len(overlayLines))

	for i, overlayLine := range overlayLines {
		mainY := y + i

		mainLine := mainLines[mainY]
		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

// padLines extends lines with blanks so overlays never fall off a short view.
func padLines(lines []string, n int) []string {
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

func (m *Model) renderNavbar() string {
	var tabs []string

	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, name)))
		}
	}

	if m.state.IsRunning() {
		p := m.state.Progress()
		tabs = append(tabs, m.styles.Subtle.Render(fmt.Sprintf("  %s %s %d%%", m.spinner.View(), p.Operation, p.Percent)))
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)

	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	var toasts []string
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	startX := max(m.width-lipgloss.Width(toastStack)-2, 0)
	startY := 2
	mainLines = padLines(mainLines, startY+len(toastLines))

	for i, toastLine := range toastLines {
		lineIdx := startY + i

		mainLine := mainLines[lineIdx]
		if w := lipgloss.Width(mainLine); w < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-w) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"), "")

	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  1-3        Switch tabs")
	lines = append(lines, "  Tab        Next tab")
	lines = append(lines, "  Shift+Tab  Previous tab")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Runs"))
	lines = append(lines, "  s          Collect usage statistics")
	lines = append(lines, "  b          Back up all applications")
	lines = append(lines, "  x          Cancel the active run")
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("General"))
	lines = append(lines, "  ?          Toggle help")
	lines = append(lines, "  q/Ctrl+C   Quit")
	lines = append(lines, "")

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		if tabHelp := m.tabs[m.activeTab].ShortHelp(); len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.tabNames[m.activeTab])))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderPlaceholder() string {
	content := fmt.Sprintf(
		"Tab %d: %s\n\n%s",
		m.activeTab+1,
		m.tabNames[m.activeTab],
		m.styles.Subtle.Render("This tab is not available."),
	)
	return m.styles.Content.Render(content)
}

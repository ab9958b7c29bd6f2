// Package history provides the history tab for browsing recorded statistics runs.
package history

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/dify-backup-tui/internal/app"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

const (
	runLimit    = 50
	trendPoints = 30
)

var errNoStore = errors.New("history database not available")

// Store is the run history the tab reads from.
type Store interface {
	RecentRuns(limit int) ([]models.RunSummary, error)
	RunRows(runID string) ([]models.StatsRow, error)
	UsageTrend(workspace string, limit int) ([]float64, error)
	DeleteRun(runID string) error
}

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	Open    key.Binding
	Back    key.Binding
	Refresh key.Binding
	Delete  key.Binding
	Up      key.Binding
	Down    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open run"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back to runs"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "delete run"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}

type runsLoadedMsg struct {
	runs  []models.RunSummary
	trend []float64
}

type rowsLoadedMsg struct {
	run  models.RunSummary
	rows []models.StatsRow
}

type runDeletedMsg struct {
	id string
}

type historyErrorMsg struct {
	err error
}

// Model represents the history tab state.
type Model struct {
	store    Store
	keys     keyMap
	runs     table.Model
	rows     table.Model
	viewport viewport.Model

	runList  []models.RunSummary
	trend    []float64
	detail   *models.RunSummary
	detailOf []models.StatsRow

	loading  bool
	errorMsg string
	width    int
	height   int
}

// New creates a new history model. store may be nil.
func New(store Store) *Model {
	m := &Model{
		store:    store,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
	m.runs = table.New(table.WithColumns(runColumns(80)), table.WithFocused(true), table.WithHeight(10))
	m.rows = table.New(table.WithColumns(rowColumns(80)), table.WithFocused(true), table.WithHeight(10))
	m.runs.SetStyles(tableStyles())
	m.rows.SetStyles(tableStyles())
	return m
}

// Init loads the run list.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return m.loadRunsCmd()
}

func (m *Model) loadRunsCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if store == nil {
			return historyErrorMsg{err: errNoStore}
		}
		runs, err := store.RecentRuns(runLimit)
		if err != nil {
			return historyErrorMsg{err: err}
		}
		var trend []float64
		if len(runs) > 0 {
			trend, err = store.UsageTrend(runs[0].WorkspaceName, trendPoints)
			if err != nil {
				return historyErrorMsg{err: err}
			}
		}
		return runsLoadedMsg{runs: runs, trend: trend}
	}
}

func (m *Model) loadRowsCmd(run models.RunSummary) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if store == nil {
			return historyErrorMsg{err: errNoStore}
		}
		rows, err := store.RunRows(run.ID)
		if err != nil {
			return historyErrorMsg{err: err}
		}
		return rowsLoadedMsg{run: run, rows: rows}
	}
}

func (m *Model) deleteRunCmd(id string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if store == nil {
			return historyErrorMsg{err: errNoStore}
		}
		if err := store.DeleteRun(id); err != nil {
			return historyErrorMsg{err: err}
		}
		return runDeletedMsg{id: id}
	}
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case runsLoadedMsg:
		m.loading = false
		m.errorMsg = ""
		m.runList = msg.runs
		m.trend = msg.trend
		m.runs.SetRows(runRows(msg.runs))
		if m.runs.Cursor() >= len(msg.runs) {
			m.runs.SetCursor(max(len(msg.runs)-1, 0))
		}

	case rowsLoadedMsg:
		m.loading = false
		run := msg.run
		m.detail = &run
		m.detailOf = msg.rows
		m.rows.SetRows(detailRows(msg.rows))
		m.rows.GotoTop()

	case runDeletedMsg:
		m.loading = true
		return m, tea.Batch(
			app.NotifyInfo("Deleted run "+shortID(msg.id)),
			m.loadRunsCmd(),
		)

	case historyErrorMsg:
		m.loading = false
		m.errorMsg = msg.err.Error()
		return m, app.NotifyError(fmt.Sprintf("History error: %v", msg.err))

	case app.HistoryChangedMsg:
		m.loading = true
		return m, m.loadRunsCmd()

	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.detail != nil {
		if key.Matches(msg, m.keys.Back) {
			m.detail = nil
			m.detailOf = nil
			return nil
		}
		var cmd tea.Cmd
		m.rows, cmd = m.rows.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m.loadRunsCmd()

	case key.Matches(msg, m.keys.Open):
		if run, ok := m.selectedRun(); ok {
			m.loading = true
			return m.loadRowsCmd(run)
		}

	case key.Matches(msg, m.keys.Delete):
		if run, ok := m.selectedRun(); ok {
			return m.deleteRunCmd(run.ID)
		}

	default:
		var cmd tea.Cmd
		m.runs, cmd = m.runs.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) selectedRun() (models.RunSummary, bool) {
	i := m.runs.Cursor()
	if i < 0 || i >= len(m.runList) {
		return models.RunSummary{}, false
	}
	return m.runList[i], true
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height

	contentWidth := max(width-8, 40)
	m.runs.SetColumns(runColumns(contentWidth))
	m.runs.SetWidth(contentWidth)
	m.runs.SetHeight(max(height-26, 5))
	m.rows.SetColumns(rowColumns(contentWidth))
	m.rows.SetWidth(contentWidth)
	m.rows.SetHeight(max(height-10, 5))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.detail != nil {
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Back}
	}
	return []key.Binding{m.keys.Open, m.keys.Refresh, m.keys.Delete}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Up, m.keys.Down},
		{m.keys.Open, m.keys.Back},
		{m.keys.Refresh, m.keys.Delete},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

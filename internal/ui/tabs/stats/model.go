// Package stats provides the statistics tab: run progress, per-application results and a
// usage chart.
package stats

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/dify-backup-tui/internal/app"
	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/services"
	"github.com/j-veylop/dify-backup-tui/internal/ui/components"
)

// chartLimit caps how many applications the usage chart shows.
const chartLimit = 10

// keyMap defines the key bindings specific to the stats tab.
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	ToggleChart key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous app"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next app"),
		),
		ToggleChart: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "table/chart"),
		),
	}
}

// Model represents the stats tab state.
type Model struct {
	state     *app.State
	keys      keyMap
	spinner   components.LoadingSpinner
	bar       components.RunBar
	table     table.Model
	viewport  viewport.Model
	showChart bool
	runID     string
	now       func() time.Time
	width     int
	height    int
}

// New creates a new stats model.
func New(state *app.State) *Model {
	m := &Model{
		state:    state,
		keys:     defaultKeyMap(),
		spinner:  components.NewSpinner("Collecting usage statistics..."),
		bar:      components.NewRunBar(40),
		viewport: viewport.New(0, 0),
		now:      time.Now,
	}
	m.table = table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	m.table.SetStyles(tableStyles())
	return m
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages for the stats tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case app.RunStatsMsg:
		m.bar.Reset()

	case app.ProgressMsg:
		if msg.Operation == services.OperationStats {
			m.bar.SetPercent(msg.Percent, msg.Text)
		}

	case app.StatsFinishedMsg:
		if msg.Report != nil {
			m.bar.SetPercent(100, "Done")
		}
		m.syncReport()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.ToggleChart) {
		m.showChart = !m.showChart
		return nil
	}

	var cmd tea.Cmd
	if m.showChart {
		m.viewport, cmd = m.viewport.Update(msg)
	} else {
		m.table, cmd = m.table.Update(msg)
	}
	return cmd
}

// syncReport rebuilds the table when the shared state holds a newer report.
func (m *Model) syncReport() {
	rep, _ := m.state.Report()
	if rep == nil || rep.RunID == m.runID && len(m.table.Rows()) == len(rep.Rows) {
		return
	}
	m.runID = rep.RunID
	m.table.SetRows(tableRows(rep.Rows))
	m.table.GotoTop()
}

// SelectedRow returns the statistics row under the cursor.
func (m *Model) SelectedRow() (models.StatsRow, bool) {
	rep, _ := m.state.Report()
	if rep == nil {
		return models.StatsRow{}, false
	}
	i := m.table.Cursor()
	if i < 0 || i >= len(rep.Rows) {
		return models.StatsRow{}, false
	}
	return rep.Rows[i], true
}

// SetSize sets the available size for the stats tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height

	contentWidth := max(width-8, 40)
	m.bar.SetWidth(contentWidth - 10)
	m.table.SetColumns(columns(contentWidth))
	m.table.SetWidth(contentWidth)
	m.table.SetHeight(max(height-14, 5))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Up, m.keys.Down, m.keys.ToggleChart}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Up, m.keys.Down},
		{m.keys.ToggleChart},
	}
}

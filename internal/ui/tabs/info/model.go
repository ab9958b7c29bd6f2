// Package info provides the info tab: configuration, credentials and build details.
package info

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/dify-backup-tui/internal/app"
	"github.com/j-veylop/dify-backup-tui/internal/config"
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// Reloader re-reads session credentials on demand.
type Reloader interface {
	ReloadCredentials() error
}

// keyMap defines the key bindings specific to the info tab.
type keyMap struct {
	Reload key.Binding
	Copy   key.Binding
	Up     key.Binding
	Down   key.Binding
}

// defaultKeyMap returns the default key bindings for the info tab.
func defaultKeyMap() keyMap {
	return keyMap{
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload credentials"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy output dir"),
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

// Model represents the info tab state.
type Model struct {
	state    *app.State
	config   *config.Config
	reloader Reloader
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model
}

// New creates a new info model. cfg and reloader may be nil.
func New(state *app.State, cfg *config.Config, reloader Reloader) *Model {
	return &Model{
		state:    state,
		config:   cfg,
		reloader: reloader,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the info tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the info tab. Credentials and backup results are read
// from state at render time, so only keys need handling.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if key.Matches(keyMsg, m.keys.Reload) {
		if m.reloader == nil {
			return m, app.NotifyWarning("Credential reload not available")
		}
		return m, reloadCmd(m.reloader)
	}

	if key.Matches(keyMsg, m.keys.Copy) {
		if m.config == nil || m.config.OutputDir == "" {
			return m, app.NotifyWarning("No output directory configured")
		}
		return m, copyCmd(m.config.OutputDir)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(keyMsg)
	return m, cmd
}

// reloadCmd reloads credentials. Success is announced through the credentials event,
// so only failures produce a message here.
func reloadCmd(r Reloader) tea.Cmd {
	return func() tea.Msg {
		if err := r.ReloadCredentials(); err != nil {
			return app.AddNotificationMsg{
				Type:     app.NotificationError,
				Message:  "Reload failed: " + err.Error(),
				Duration: app.DefaultNotificationDuration,
			}
		}
		return nil
	}
}

func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := writeClipboard(text); err != nil {
			return app.AddNotificationMsg{
				Type:     app.NotificationError,
				Message:  "Clipboard unavailable: " + err.Error(),
				Duration: app.DefaultNotificationDuration,
			}
		}
		return app.AddNotificationMsg{
			Type:     app.NotificationSuccess,
			Message:  "Copied " + text,
			Duration: app.QuickNotificationDuration,
		}
	}
}

// SetSize sets the available size for the info tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Reload, m.keys.Copy}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.Up, m.keys.Down},
		{m.keys.Reload, m.keys.Copy},
	}
}

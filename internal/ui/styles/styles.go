// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions for the dbt theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	Accent = lipgloss.Color("208") // Orange

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Background colors
	BgDark   = lipgloss.Color("235")
	BgAccent = lipgloss.Color("236")

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// DocStyle provides consistent document margins.
var DocStyle = lipgloss.NewStyle().
	Margin(1, 2).
	Padding(0, 1)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// ProgressPercentStyle styles the percentage display.
var ProgressPercentStyle = lipgloss.NewStyle().
	Foreground(TextPrimary).
	Width(6).
	Align(lipgloss.Right)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpPanelStyle creates the help overlay panel.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 3).
	Background(BgDark)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// TableSelectedStyle styles selected table rows.
var TableSelectedStyle = lipgloss.NewStyle().
	Background(BgAccent).
	Foreground(TextPrimary).
	Bold(true)

// ModeConversationStyle styles chat-like application modes.
var ModeConversationStyle = lipgloss.NewStyle().
	Foreground(Info)

// ModeCompletionStyle styles text-completion application modes.
var ModeCompletionStyle = lipgloss.NewStyle().
	Foreground(Secondary)

// ModeWorkflowStyle styles workflow application modes.
var ModeWorkflowStyle = lipgloss.NewStyle().
	Foreground(Accent)

// ModeUnknownStyle styles unclassified modes.
var ModeUnknownStyle = lipgloss.NewStyle().
	Foreground(Subtle)

// FailedRowStyle marks statistics rows that carry an error.
var FailedRowStyle = lipgloss.NewStyle().
	Foreground(Error).
	Italic(true)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// InfoTextStyle for info messages.
var InfoTextStyle = lipgloss.NewStyle().
	Foreground(Info)

// GetModeStyle returns the style for an application variant tag.
func GetModeStyle(mode string) lipgloss.Style {
	switch mode {
	case "conversation":
		return ModeConversationStyle
	case "completion":
		return ModeCompletionStyle
	case "workflow-log":
		return ModeWorkflowStyle
	default:
		return ModeUnknownStyle
	}
}

// GetCoverageStyle colors a coverage ratio: users per hundred uses.
func GetCoverageStyle(coverage, usage int) lipgloss.Style {
	if usage <= 0 {
		return HelpStyle
	}
	ratio := float64(coverage) / float64(usage) * 100
	switch {
	case ratio >= 50:
		return SuccessTextStyle
	case ratio >= 10:
		return WarningTextStyle
	default:
		return InfoTextStyle
	}
}

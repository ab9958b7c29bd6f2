package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/dify-backup-tui/internal/ui/styles"
	"github.com/j-veylop/dify-backup-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderCredentialsCard(),
		m.renderBackupCard(),
		m.renderAboutCard(),
	}

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration, credentials and application information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) card(title string, rows ...string) string {
	body := append([]string{styles.CardTitleStyle.Render(title), ""}, rows...)
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, body...),
	)
}

func (m *Model) renderConfigCard() string {
	if m.config == nil {
		return m.card("Configuration", styles.HelpStyle.Render("Configuration not loaded"))
	}
	c := m.config

	window := "unbounded"
	if c.StatsStart != "" || c.StatsEnd != "" {
		window = fmt.Sprintf("%s → %s", orOpen(c.StatsStart), orOpen(c.StatsEnd))
	}

	return m.card("Configuration",
		renderRow("Console", c.BaseURL),
		renderRow("Output Dir", c.OutputDir),
		renderRow("Database", c.DatabasePath),
		renderRow("Cookies File", c.CookiesPath),
		renderRow("Log File", c.LogPath),
		renderRow("Stats Window", window),
		renderRow("Page Size", fmt.Sprint(c.UsagePageSize)),
		renderRow("Delays", fmt.Sprintf("page %s, app %s, backup %s", c.PageDelay, c.AppDelay, c.BackupDelay)),
		renderRow("Run Timeout", c.RunTimeout.String()),
		"",
		styles.HelpStyle.Render("Press 'c' to copy the output directory"),
	)
}

func (m *Model) renderCredentialsCard() string {
	creds := m.state.Credentials()

	source := creds.Source
	if source == "" {
		source = "none"
	}

	return m.card("Credentials",
		renderRow("Source", source),
		renderRow("Access Token", presence(creds.HasAccessToken())),
		renderRow("CSRF Token", presence(creds.HasCSRFToken())),
		renderRow("Cookies", fmt.Sprint(len(creds.Cookies))),
		"",
		styles.HelpStyle.Render("Press 'r' to reload the cookie file"),
	)
}

func (m *Model) renderBackupCard() string {
	res := m.state.Backup()
	if res == nil {
		return m.card("Last Backup", styles.HelpStyle.Render("No backup taken this session"))
	}

	outcome := styles.SuccessTextStyle.Render(fmt.Sprintf("%d/%d apps", res.SuccessCount, res.TotalApps))
	if res.FailedCount > 0 {
		outcome = styles.WarningTextStyle.Render(fmt.Sprintf("%d/%d apps, %d failed", res.SuccessCount, res.TotalApps, res.FailedCount))
	}

	return m.card("Last Backup",
		renderRow("Workspace", res.WorkspaceName),
		renderRow("Archive", res.Path),
		renderRow("Exported", outcome),
		renderRow("Taken", humanize.Time(m.state.LastUpdated())),
	)
}

func (m *Model) renderAboutCard() string {
	return m.card("About dbt",
		renderRow("Version", version.GetVersion()),
		renderRow("Build Date", version.GetDate()),
		renderRow("Git Commit", version.GetCommit()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	)
}

func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func presence(ok bool) string {
	if ok {
		return styles.SuccessTextStyle.Render("present")
	}
	return styles.WarningTextStyle.Render("missing")
}

func orOpen(s string) string {
	if s == "" {
		return "…"
	}
	return s
}

package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/services"
	"github.com/j-veylop/dify-backup-tui/internal/ui/components"
	"github.com/j-veylop/dify-backup-tui/internal/ui/styles"
)

const (
	modeWidth   = 13
	numberWidth = 10
	statusWidth = 8
)

func columns(width int) []table.Column {
	nameWidth := max(width-modeWidth-2*numberWidth-statusWidth-10, 12)
	return []table.Column{
		{Title: "Application", Width: nameWidth},
		{Title: "Mode", Width: modeWidth},
		{Title: "Usage", Width: numberWidth},
		{Title: "Users", Width: numberWidth},
		{Title: "Status", Width: statusWidth},
	}
}

func tableRows(rows []models.StatsRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		status := "ok"
		if r.Failed() {
			status = "failed"
		}
		out = append(out, table.Row{
			r.AppName,
			r.Mode.String(),
			humanize.Comma(int64(r.TotalUsage)),
			humanize.Comma(int64(r.UserCoverage)),
			status,
		})
	}
	return out
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = styles.TableHeaderStyle
	s.Selected = styles.TableSelectedStyle
	return s
}

// View renders the stats tab.
func (m *Model) View() string {
	sections := []string{m.renderTitle()}

	if m.state.IsRunning() || m.bar.Percent() > 0 {
		sections = append(sections, m.renderProgress())
	}

	rep, csvPath := m.state.Report()
	if rep == nil {
		sections = append(sections, m.renderEmpty())
	} else {
		m.syncReport()
		sections = append(sections, m.renderSummary(rep, csvPath))
		if m.showChart {
			sections = append(sections, m.renderChart(rep))
		} else {
			sections = append(sections, m.table.View(), m.renderSelected())
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Usage Statistics")
	subtitle := styles.HelpStyle.Render("Per-application usage and user coverage for the workspace")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) renderProgress() string {
	p := m.state.Progress()
	var status string
	switch {
	case m.state.IsRunning() && p.Operation == services.OperationBackup:
		s := m.spinner
		s.SetLabel("Backup in progress: " + p.Text)
		status = s.ViewElapsed(p.StartedAt, m.now())
	case m.state.IsRunning():
		status = m.spinner.ViewElapsed(p.StartedAt, m.now())
	default:
		status = styles.SuccessTextStyle.Render("Last run finished")
	}

	return styles.CardStyle.Width(max(m.width-6, 40)).Render(
		lipgloss.JoinVertical(lipgloss.Left, status, "", m.bar.View()),
	)
}

func (m *Model) renderEmpty() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.HelpStyle.Render("No statistics collected yet."),
		"",
		styles.InfoTextStyle.Render("  ╰─▶ Press 's' to collect usage statistics or 'b' to back up every application"),
	)
}

func (m *Model) renderSummary(rep *models.Report, csvPath string) string {
	label := lipgloss.NewStyle().Foreground(styles.TextMuted)
	value := lipgloss.NewStyle().Foreground(styles.TextPrimary).Bold(true)

	window := "all time"
	if !rep.Window.IsZero() {
		window = fmt.Sprintf("%s → %s", orDash(rep.Window.Start), orDash(rep.Window.End))
	}

	parts := []string{
		label.Render("Workspace ") + value.Render(rep.WorkspaceName),
		label.Render("Apps ") + value.Render(fmt.Sprint(len(rep.Rows))),
		label.Render("Usage ") + value.Render(humanize.Comma(int64(rep.TotalUsage))),
		label.Render("OK ") + styles.SuccessTextStyle.Render(fmt.Sprint(rep.SuccessCount)),
	}
	if rep.FailureCount > 0 {
		parts = append(parts, label.Render("Failed ")+styles.ErrorTextStyle.Render(fmt.Sprint(rep.FailureCount)))
	}

	lines := []string{
		strings.Join(parts, "   "),
		label.Render("Window ") + window,
	}
	if csvPath != "" {
		lines = append(lines, label.Render("Report ")+csvPath)
	}
	if !rep.FinishedAt.IsZero() {
		lines = append(lines, styles.HelpStyle.Render("Finished "+humanize.Time(rep.FinishedAt)))
	}
	lines = append(lines, "")

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderSelected shows detail for the row under the cursor, including its error.
func (m *Model) renderSelected() string {
	row, ok := m.SelectedRow()
	if !ok {
		return ""
	}

	mode := styles.GetModeStyle(string(row.Mode)).Render(row.Mode.String())
	line := fmt.Sprintf("%s  %s  %s", styles.HelpStyle.Render(row.AppID), mode,
		styles.GetCoverageStyle(row.UserCoverage, row.TotalUsage).
			Render(fmt.Sprintf("%d users / %d uses", row.UserCoverage, row.TotalUsage)))
	if row.Failed() {
		line += "\n" + styles.FailedRowStyle.Render("Error: "+row.Error)
	}
	return "\n" + line
}

// renderChart draws the busiest applications as bars. Failed rows are left out.
func (m *Model) renderChart(rep *models.Report) string {
	items := make([]components.BarItem, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		if r.Failed() {
			continue
		}
		items = append(items, components.BarItem{Label: r.AppName, Value: r.TotalUsage})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Value > items[j].Value })

	hidden := 0
	if len(items) > chartLimit {
		hidden = len(items) - chartLimit
		items = items[:chartLimit]
	}

	rows := []string{styles.CardTitleStyle.Render("Usage by application")}
	if len(items) == 0 {
		rows = append(rows, styles.HelpStyle.Render("No successful rows to chart"))
	} else {
		rows = append(rows, components.RenderBarChart(items, max(m.width-12, 40)))
	}
	if hidden > 0 {
		rows = append(rows, "", styles.HelpStyle.Render(fmt.Sprintf("%d more not shown", hidden)))
	}

	return styles.CardStyle.Width(max(m.width-6, 40)).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/ui/components"
	"github.com/j-veylop/dify-backup-tui/internal/ui/styles"
)

const startedLayout = "2006-01-02 15:04"

func runColumns(width int) []table.Column {
	workspace := max(width-16-3*9-10-8, 12)
	return []table.Column{
		{Title: "Started", Width: 16},
		{Title: "Workspace", Width: workspace},
		{Title: "Apps", Width: 9},
		{Title: "Usage", Width: 9},
		{Title: "Failed", Width: 9},
		{Title: "Took", Width: 10},
	}
}

func rowColumns(width int) []table.Column {
	name := max(width-13-2*10-24-10, 12)
	return []table.Column{
		{Title: "Application", Width: name},
		{Title: "Mode", Width: 13},
		{Title: "Usage", Width: 10},
		{Title: "Users", Width: 10},
		{Title: "Error", Width: 24},
	}
}

func runRows(runs []models.RunSummary) []table.Row {
	out := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		out = append(out, table.Row{
			r.StartedAt.Format(startedLayout),
			r.WorkspaceName,
			fmt.Sprint(r.AppCount),
			humanize.Comma(int64(r.TotalUsage)),
			fmt.Sprint(r.FailureCount),
			r.Duration().Round(1e9).String(),
		})
	}
	return out
}

func detailRows(rows []models.StatsRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, table.Row{
			r.AppName,
			r.Mode.String(),
			humanize.Comma(int64(r.TotalUsage)),
			humanize.Comma(int64(r.UserCoverage)),
			r.Error,
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

// View renders the history tab.
func (m *Model) View() string {
	var content string
	switch {
	case m.errorMsg != "" && len(m.runList) == 0:
		content = m.renderError()
	case m.detail != nil:
		content = m.renderDetail()
	case m.loading && len(m.runList) == 0:
		content = styles.HelpStyle.Render("Loading history...")
	case len(m.runList) == 0:
		content = m.renderEmpty()
	default:
		content = m.renderRuns()
	}

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderError() string {
	return fmt.Sprintf("%s %s", styles.ErrorTextStyle.Render("Error:"), m.errorMsg)
}

func (m *Model) renderEmpty() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render("No statistics runs recorded yet."),
		styles.HelpStyle.Render("Completed runs from the Stats tab or `dbt stats` appear here."),
	)
}

func (m *Model) renderRuns() string {
	title := styles.TitleStyle.Render("History")
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d recorded runs, newest first", len(m.runList)))

	sections := []string{
		lipgloss.JoinVertical(lipgloss.Left, title, subtitle, ""),
		m.runs.View(),
	}
	if run, ok := m.selectedRun(); ok && run.CSVPath != "" {
		sections = append(sections, styles.HelpStyle.Render("Report: "+run.CSVPath))
	}
	sections = append(sections, "", m.renderTrend())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTrend charts total usage across the latest workspace's runs.
func (m *Model) renderTrend() string {
	cardWidth := max(m.width-6, 40)
	rows := []string{styles.CardTitleStyle.Render("Usage trend: " + m.runList[0].WorkspaceName)}

	if len(m.trend) < 2 {
		rows = append(rows, styles.HelpStyle.Render("Run statistics again to see a trend"))
	} else {
		chart := components.RenderLineChart(m.trend, max(cardWidth-14, 30), 6,
			fmt.Sprintf("Total usage over the last %d runs", len(m.trend)))
		for _, line := range strings.Split(chart, "\n") {
			rows = append(rows, "  "+line)
		}
		rows = append(rows,
			"",
			"  "+components.RenderSparkline(m.trend, len(m.trend)),
			"  "+components.RenderLegend([]components.LegendItem{
				{Label: "Total usage per run", Color: components.ChartPrimaryColor},
			}),
		)
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderDetail() string {
	run := m.detail
	title := styles.TitleStyle.Render(fmt.Sprintf("Run %s: %s", shortID(run.ID), run.WorkspaceName))
	summary := styles.HelpStyle.Render(fmt.Sprintf("%s, %s uses over %d apps, %d failed",
		run.StartedAt.Format(startedLayout),
		humanize.Comma(int64(run.TotalUsage)),
		run.AppCount,
		run.FailureCount,
	))

	sections := []string{lipgloss.JoinVertical(lipgloss.Left, title, summary, ""), m.rows.View()}
	if i := m.rows.Cursor(); i >= 0 && i < len(m.detailOf) && m.detailOf[i].Failed() {
		sections = append(sections, styles.FailedRowStyle.Render("Error: "+m.detailOf[i].Error))
	}
	sections = append(sections, styles.HelpStyle.Render("esc: back to runs"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

package stats

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/dify-backup-tui/internal/app"
	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/services"
)

func sampleReport() *models.Report {
	return &models.Report{
		RunID:         "run-1",
		WorkspaceName: "Acme",
		Window:        models.TimeWindow{Start: "2024-05-01 00:00", End: "2024-05-31 23:59"},
		Rows: []models.StatsRow{
			{AppID: "a1", AppName: "Support bot", Mode: models.VariantConversation, TotalUsage: 1500, UserCoverage: 42},
			{AppID: "a2", AppName: "Summarizer", Mode: models.VariantCompletion, TotalUsage: 30, UserCoverage: 3},
			{AppID: "a3", AppName: "Broken flow", Mode: models.VariantWorkflowLog, Error: "HTTP 500"},
		},
		TotalUsage:   1530,
		SuccessCount: 2,
		FailureCount: 1,
		FinishedAt:   time.Now(),
	}
}

func newSizedModel(state *app.State) *Model {
	m := New(state)
	m.SetSize(120, 40)
	return m
}

func TestNew(t *testing.T) {
	m := New(app.NewState())
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.Init() == nil {
		t.Error("Init should start the spinner")
	}
}

func TestView_Empty(t *testing.T) {
	m := newSizedModel(app.NewState())

	view := ansi.Strip(m.View())
	if !strings.Contains(view, "No statistics collected yet") {
		t.Errorf("empty view missing hint: %q", view)
	}
}

func TestView_Report(t *testing.T) {
	state := app.NewState()
	state.SetReport(sampleReport(), "/out/Acme_usage.csv")
	m := newSizedModel(state)
	m.Update(app.StatsFinishedMsg{Report: sampleReport()})

	view := ansi.Strip(m.View())
	for _, want := range []string{"Acme", "1,530", "Support bot", "1,500", "failed", "/out/Acme_usage.csv", "2024-05-01 00:00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if len(m.table.Rows()) != 3 {
		t.Errorf("table rows = %d, want 3", len(m.table.Rows()))
	}
}

func TestSelectedRow(t *testing.T) {
	state := app.NewState()
	m := newSizedModel(state)

	if _, ok := m.SelectedRow(); ok {
		t.Error("no report should mean no selection")
	}

	state.SetReport(sampleReport(), "")
	m.Update(app.StatsFinishedMsg{Report: sampleReport()})

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	row, ok := m.SelectedRow()
	if !ok || row.AppID != "a3" {
		t.Fatalf("selected = %+v, want a3", row)
	}

	view := ansi.Strip(m.View())
	if !strings.Contains(view, "Error: HTTP 500") {
		t.Error("selected failed row should show its error")
	}
}

func TestProgress(t *testing.T) {
	state := app.NewState()
	m := newSizedModel(state)

	state.StartRun(services.OperationStats)
	m.Update(app.RunStatsMsg{})
	m.Update(app.ProgressMsg{Operation: services.OperationStats, Percent: 55, Text: "(2/4) Summarizer"})
	m.Update(app.ProgressMsg{Operation: services.OperationBackup, Percent: 90, Text: "Building archive"})

	if m.bar.Percent() != 55 {
		t.Errorf("bar = %d, want 55 (backup progress ignored)", m.bar.Percent())
	}
	view := ansi.Strip(m.View())
	if !strings.Contains(view, "(2/4) Summarizer") || !strings.Contains(view, "55%") {
		t.Errorf("progress not rendered: %q", view)
	}

	state.FinishRun()
	m.Update(app.StatsFinishedMsg{Report: sampleReport()})
	if m.bar.Percent() != 100 {
		t.Errorf("finished bar = %d, want 100", m.bar.Percent())
	}
}

func TestToggleChart(t *testing.T) {
	state := app.NewState()
	rep := sampleReport()
	state.SetReport(rep, "")
	m := newSizedModel(state)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'v'}})
	if !m.showChart {
		t.Fatal("v should switch to the chart")
	}

	view := ansi.Strip(m.View())
	if !strings.Contains(view, "Usage by application") {
		t.Error("chart title missing")
	}
	if strings.Contains(view, "Broken flow") {
		t.Error("failed rows should not be charted")
	}
	if strings.Index(view, "Support bot") > strings.Index(view, "Summarizer") {
		t.Error("chart should be sorted by usage")
	}
}

func TestChartLimit(t *testing.T) {
	state := app.NewState()
	rep := &models.Report{RunID: "big"}
	for i := 0; i < chartLimit+3; i++ {
		rep.Rows = append(rep.Rows, models.StatsRow{AppID: string(rune('a' + i)), AppName: string(rune('A' + i)), TotalUsage: i})
	}
	state.SetReport(rep, "")
	m := newSizedModel(state)
	m.showChart = true

	if view := ansi.Strip(m.View()); !strings.Contains(view, "3 more not shown") {
		t.Error("chart should report hidden applications")
	}
}

func TestHelp(t *testing.T) {
	m := New(app.NewState())
	if len(m.ShortHelp()) == 0 || len(m.FullHelp()) == 0 {
		t.Error("help bindings should not be empty")
	}
}

// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/dify-backup-tui/internal/ui/styles"
)

// ChartPrimaryColor is the terminal color asciigraph.Blue draws series in.
var ChartPrimaryColor = lipgloss.Color("4")

// sparkChars are block characters from low to high.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// asciigraph needs two points to draw a line.
	if len(data) == 1 {
		data = []float64{data[0], data[0]}
	}

	return asciigraph.Plot(data,
		asciigraph.Height(max(height, 3)),
		asciigraph.Width(max(width, 20)),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Blue),
	)
}

// BarItem is one labelled bar.
type BarItem struct {
	Label string
	Value int
}

// RenderBarChart creates a horizontal bar chart. Labels are truncated to fit a third of
// the width; bars are scaled against the largest value.
func RenderBarChart(items []BarItem, width int) string {
	if len(items) == 0 {
		return ""
	}

	largest := 0
	labelWidth := 0
	for _, it := range items {
		largest = max(largest, it.Value)
		labelWidth = max(labelWidth, lipgloss.Width(it.Label))
	}
	labelWidth = min(labelWidth, max(width/3, 8))

	valueWidth := 0
	for _, it := range items {
		valueWidth = max(valueWidth, len(humanize.Comma(int64(it.Value))))
	}
	barWidth := max(width-labelWidth-valueWidth-4, 10)

	lines := make([]string, 0, len(items))
	for _, it := range items {
		label := ansi.Truncate(it.Label, labelWidth, "…")
		label += strings.Repeat(" ", labelWidth-lipgloss.Width(label))
		value := fmt.Sprintf("%*s", valueWidth, humanize.Comma(int64(it.Value)))
		lines = append(lines, label+" │"+UsageBar(it.Value, largest, barWidth)+" "+value)
	}

	return strings.Join(lines, "\n")
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range values {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	step := max(float64(len(values))/float64(width), 1)

	var result strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		idx := min(max(int((val/maxVal)*float64(len(sparkChars)-1)), 0), len(sparkChars)-1)
		result.WriteRune(sparkChars[idx])
	}

	return result.String()
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

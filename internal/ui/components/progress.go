package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/ui/styles"
)

const (
	gradientFrom = "#6c5ce7"
	gradientTo   = "#51cf66"
)

// RunBar renders the progress of a stats or backup run with a status line.
type RunBar struct {
	progress progress.Model
	percent  int
	label    string
}

// NewRunBar creates a run progress bar with gradient colors.
func NewRunBar(width int) RunBar {
	p := progress.New(
		progress.WithScaledGradient(gradientFrom, gradientTo),
		progress.WithWidth(max(width, 10)),
		progress.WithoutPercentage(),
	)
	return RunBar{progress: p}
}

// SetPercent moves the bar to percent, clamped to 0-100.
func (r *RunBar) SetPercent(percent int, label string) {
	r.percent = min(max(percent, 0), 100)
	r.label = label
}

// Reset empties the bar.
func (r *RunBar) Reset() {
	r.percent = 0
	r.label = ""
}

// Percent returns the last percentage set.
func (r RunBar) Percent() int {
	return r.percent
}

// Label returns the status text shown under the bar.
func (r RunBar) Label() string {
	return r.label
}

// SetWidth sets the bar width.
func (r *RunBar) SetWidth(width int) {
	r.progress.Width = max(width, 10)
}

// View renders the bar, the percentage and the status text.
func (r RunBar) View() string {
	percentStr := styles.ProgressPercentStyle.Render(fmt.Sprintf("%d%%", r.percent))
	bar := lipgloss.JoinHorizontal(lipgloss.Center, r.progress.ViewAs(float64(r.percent)/100), " ", percentStr)
	if r.label == "" {
		return bar
	}
	return lipgloss.JoinVertical(lipgloss.Left, bar, styles.HelpStyle.Render(r.label))
}

// RenderGradientBar renders a static bar filled to percent (0-100).
func RenderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := min(max(int(float64(width)*percent/100), 0), width)

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			t := float64(i) / float64(max(1, width-1))
			color := interpolateColor(gradientFrom, gradientTo, t)
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Subtle).Render("░"))
		}
	}

	return b.String()
}

// UsageBar renders value relative to the largest value in a set.
func UsageBar(value, largest, width int) string {
	if largest <= 0 {
		return RenderGradientBar(0, width)
	}
	return RenderGradientBar(float64(value)/float64(largest)*100, width)
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}

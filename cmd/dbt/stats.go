package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/models"
	"github.com/j-veylop/dify-backup-tui/internal/ui/styles"
)

var (
	statsStart string
	statsEnd   string
	statsOut   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compute per-application usage statistics",
	Long: `Compute usage count and user coverage for every application in the workspace,
write the CSV report to the output directory and record the run in the history database.`,
	Example: `  dbt stats
  dbt stats --start "2024-05-01 00:00" --end "2024-05-31 23:59"
  dbt stats --out ./reports`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsStart, "start", "", `Window start, "YYYY-MM-DD HH:MM" local time (overrides STATS_START)`)
	statsCmd.Flags().StringVar(&statsEnd, "end", "", `Window end, "YYYY-MM-DD HH:MM" local time (overrides STATS_END)`)
	statsCmd.Flags().StringVarP(&statsOut, "out", "o", "", "Output directory (overrides OUTPUT_DIR)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyStatsFlags(cmd, cfg); err != nil {
		return err
	}

	mgr, ctx, release, err := headless(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer release()

	rep, csvPath, runErr := mgr.RunStats(ctx, mgr.DefaultWindow())
	if rep != nil {
		printReport(cmd.OutOrStdout(), rep, csvPath)
	}
	return runErr
}

func applyStatsFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("start") {
		cfg.StatsStart = statsStart
	}
	if cmd.Flags().Changed("end") {
		cfg.StatsEnd = statsEnd
	}
	if cmd.Flags().Changed("out") {
		if err := os.MkdirAll(statsOut, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		cfg.OutputDir = statsOut
	}
	return cfg.Validate()
}

// printReport writes the per-application table and a totals line.
func printReport(w io.Writer, rep *models.Report, csvPath string) {
	rows := make([][]string, 0, len(rep.Rows))
	for _, r := range rep.Rows {
		status := "ok"
		if r.Failed() {
			status = r.Error
		}
		rows = append(rows, []string{
			r.AppName,
			r.Mode.String(),
			humanize.Comma(int64(r.TotalUsage)),
			humanize.Comma(int64(r.UserCoverage)),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Application", "Mode", "Usage", "Users", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true)
			case row >= 0 && row < len(rep.Rows) && rep.Rows[row].Failed():
				return s.Inherit(styles.FailedRowStyle)
			case col == 2 || col == 3:
				return s.Align(lipgloss.Right)
			}
			return s
		})

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%s: %s uses across %d apps (%d ok, %d failed)\n",
		rep.WorkspaceName,
		humanize.Comma(int64(rep.TotalUsage)),
		len(rep.Rows),
		rep.SuccessCount,
		rep.FailureCount,
	)
	if csvPath != "" {
		fmt.Fprintf(w, "Report written to %s\n", csvPath)
	}
}

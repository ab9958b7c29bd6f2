package usage

import (
	"context"
	"fmt"

	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// Computer produces the statistics row for one application.
type Computer struct {
	fetcher   PageFetcher
	collector *Collector
	pageSize  int
}

// NewComputer creates a computer that walks records pageSize at a time.
func NewComputer(fetcher PageFetcher, collector *Collector, pageSize int) *Computer {
	if pageSize <= 0 {
		pageSize = config.DefaultUsagePageSize
	}
	return &Computer{fetcher: fetcher, collector: collector, pageSize: pageSize}
}

// Compute returns the usage row for app read through variant. Errors never escape:
// they are attached to a zero-valued row.
func (c *Computer) Compute(ctx context.Context, app models.Application, variant models.Variant, window models.TimeWindow) models.StatsRow {
	row := models.StatsRow{
		AppID:   app.ID,
		AppName: app.DisplayName(),
		Mode:    variant,
	}

	total, coverage, err := c.compute(ctx, app.ID, variant, window)
	if err != nil {
		logger.Warn("usage computation failed", "app", app.ID, "variant", variant.String(), "error", err)
		row.Error = err.Error()
		return row
	}

	row.TotalUsage = total
	row.UserCoverage = coverage
	return row
}

func (c *Computer) compute(ctx context.Context, appID string, variant models.Variant, window models.TimeWindow) (int, int, error) {
	first, err := c.fetcher.FetchPage(ctx, PageRequest{
		AppID:    appID,
		Variant:  variant,
		Page:     1,
		PageSize: 1,
		Window:   window,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read usage total: %w", err)
	}
	if first.Total == 0 {
		return 0, 0, nil
	}

	collected := c.collector.CollectAll(ctx, appID, variant, c.pageSize, window)
	if collected.Partial() {
		logger.Info("computing coverage from a partial record set",
			"app", appID, "collected", len(collected.Records), "total", first.Total)
	}

	coverage, err := Coverage(variant, collected.Records)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute coverage: %w", err)
	}
	return first.Total, coverage, nil
}

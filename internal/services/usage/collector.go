package usage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Collection is the result of walking every page of one application's records.
type Collection struct {
	// Total is the authoritative count reported by page 1.
	Total   int
	Records []json.RawMessage
	// Pages is the number of page requests issued.
	Pages int
	// Err is the error that cut the walk short, if any. Records are still valid.
	Err error
}

// Partial reports whether the walk stopped on an error.
func (c Collection) Partial() bool {
	return c.Err != nil
}

// Collector walks every page of an application's usage records.
type Collector struct {
	fetcher   PageFetcher
	pageDelay time.Duration
	sleep     SleepFunc
}

// NewCollector creates a collector that waits pageDelay between pages.
func NewCollector(fetcher PageFetcher, pageDelay time.Duration, sleep SleepFunc) *Collector {
	if sleep == nil {
		sleep = Sleep
	}
	return &Collector{fetcher: fetcher, pageDelay: pageDelay, sleep: sleep}
}

// CollectAll fetches pages starting at 1 until continuation stops, a page comes back empty
// or the page 1 total is reached. A failed page ends the walk and whatever was accumulated
// is returned.
func (c *Collector) CollectAll(ctx context.Context, appID string, variant models.Variant, pageSize int, window models.TimeWindow) Collection {
	if pageSize <= 0 {
		pageSize = config.DefaultUsagePageSize
	}

	var result Collection
	for page := 1; ; page++ {
		if page > 1 {
			if err := c.sleep(ctx, c.pageDelay); err != nil {
				result.Err = err
				break
			}
		}

		env, err := c.fetcher.FetchPage(ctx, PageRequest{
			AppID:    appID,
			Variant:  variant,
			Page:     page,
			PageSize: pageSize,
			Window:   window,
		})
		result.Pages++
		if err != nil {
			logger.Warn("page fetch failed, keeping partial records",
				"app", appID, "variant", variant.String(), "page", page,
				"collected", len(result.Records), "error", err)
			result.Err = err
			break
		}

		if page == 1 {
			result.Total = env.Total
		}
		result.Records = append(result.Records, env.Records...)

		if !env.HasMore || len(env.Records) == 0 {
			break
		}
		if len(result.Records) >= result.Total {
			break
		}
	}

	return result
}

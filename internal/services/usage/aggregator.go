package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// ErrNoApplications is returned when the workspace has nothing to report on.
var ErrNoApplications = errors.New("no applications found in workspace")

// Progress is one step of a running aggregation.
type Progress struct {
	Percent int
	Text    string
}

// ProgressFunc receives progress updates. It must not block.
type ProgressFunc func(Progress)

// Console is what the aggregator needs from the console client.
type Console interface {
	Getter
	CurrentWorkspace(ctx context.Context) (*models.Workspace, error)
	Applications(ctx context.Context, limit int) ([]models.Application, error)
}

// Options tune an aggregation run. Zero values fall back to the config defaults.
type Options struct {
	Window       models.TimeWindow
	AppPageLimit int
	PageSize     int
	PageDelay    time.Duration
	AppDelay     time.Duration
	Sleep        SleepFunc
	Progress     ProgressFunc
}

// Aggregator builds a workspace report one application at a time.
type Aggregator struct {
	console    Console
	classifier *Classifier
	computer   *Computer
	opts       Options
	now        func() time.Time
}

// NewAggregator wires the fetcher, collector, classifier and computer over client.
func NewAggregator(client Console, opts Options) *Aggregator {
	if opts.AppPageLimit <= 0 {
		opts.AppPageLimit = config.DefaultAppPageLimit
	}
	if opts.PageSize <= 0 {
		opts.PageSize = config.DefaultUsagePageSize
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}

	fetcher := NewFetcher(client)
	return newAggregator(client, fetcher, opts)
}

func newAggregator(client Console, fetcher PageFetcher, opts Options) *Aggregator {
	collector := NewCollector(fetcher, opts.PageDelay, opts.Sleep)
	return &Aggregator{
		console:    client,
		classifier: NewClassifier(fetcher),
		computer:   NewComputer(fetcher, collector, opts.PageSize),
		opts:       opts,
		now:        time.Now,
	}
}

// Run resolves the workspace, lists its applications and aggregates them.
// Workspace resolution failures and an empty workspace abort the run. If ctx ends
// mid-run, the partial report is returned together with the context error.
func (a *Aggregator) Run(ctx context.Context) (*models.Report, error) {
	a.progress(5, "Resolving workspace...")
	ws, err := a.console.CurrentWorkspace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	name := ws.Name
	if name == "" {
		name = "workspace"
	}

	a.progress(10, "Listing applications...")
	apps, err := a.console.Applications(ctx, a.opts.AppPageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	if len(apps) == 0 {
		return nil, ErrNoApplications
	}
	logger.Info("aggregating usage", "workspace", name, "apps", len(apps))

	report := a.Aggregate(ctx, name, apps)
	a.progress(100, fmt.Sprintf("Done: %d ok, %d failed", report.SuccessCount, report.FailureCount))
	return report, ctx.Err()
}

// Aggregate computes a row for every application in order. The returned report always
// has exactly one row per application.
func (a *Aggregator) Aggregate(ctx context.Context, workspaceName string, apps []models.Application) *models.Report {
	report := &models.Report{
		RunID:         uuid.NewString(),
		WorkspaceName: workspaceName,
		Window:        a.opts.Window,
		Rows:          make([]models.StatsRow, 0, len(apps)),
		StartedAt:     a.now(),
	}

	for i, app := range apps {
		if i > 0 {
			if err := a.opts.Sleep(ctx, a.opts.AppDelay); err != nil {
				logger.Debug("inter-application delay interrupted", "error", err)
			}
		}
		a.progress(15+80*i/len(apps), fmt.Sprintf("(%d/%d) %s", i+1, len(apps), app.DisplayName()))

		row := a.row(ctx, app)
		report.Rows = append(report.Rows, row)
		if row.Failed() {
			report.FailureCount++
		} else {
			report.SuccessCount++
		}
		report.TotalUsage += row.TotalUsage
	}

	report.FinishedAt = a.now()
	return report
}

func (a *Aggregator) row(ctx context.Context, app models.Application) models.StatsRow {
	if err := ctx.Err(); err != nil {
		return models.StatsRow{
			AppID:   app.ID,
			AppName: app.DisplayName(),
			Mode:    app.Mode,
			Error:   err.Error(),
		}
	}

	variant := app.Mode
	if !variant.IsKnown() {
		variant = a.classifier.Classify(ctx, app.ID)
	}
	return a.computer.Compute(ctx, app, variant, a.opts.Window)
}

func (a *Aggregator) progress(percent int, text string) {
	if a.opts.Progress != nil {
		a.opts.Progress(Progress{Percent: percent, Text: text})
	}
}

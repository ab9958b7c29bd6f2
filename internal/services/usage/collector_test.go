package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/models"
)

func TestCollectAllPagesThroughTotal(t *testing.T) {
	fetcher := pagedFetcher(250)
	sleeper := &noSleep{}
	c := NewCollector(fetcher, 200*time.Millisecond, sleeper.Sleep)

	got := c.CollectAll(context.Background(), "a1", models.VariantConversation, 100, models.TimeWindow{})

	if len(fetcher.calls) != 3 {
		t.Fatalf("fetches = %d, want 3", len(fetcher.calls))
	}
	if len(got.Records) != 250 {
		t.Errorf("records = %d, want 250", len(got.Records))
	}
	if got.Total != 250 || got.Partial() {
		t.Errorf("Total = %d, Partial = %v", got.Total, got.Partial())
	}
	for i, call := range fetcher.calls {
		if call.Page != i+1 || call.PageSize != 100 {
			t.Errorf("call %d = page %d size %d", i, call.Page, call.PageSize)
		}
	}
	if len(sleeper.delays) != 2 {
		t.Errorf("delays = %d, want 2", len(sleeper.delays))
	}
	for _, d := range sleeper.delays {
		if d != 200*time.Millisecond {
			t.Errorf("delay = %v, want 200ms", d)
		}
	}
}

func TestCollectAllKeepsPartialOnFailure(t *testing.T) {
	inner := pagedFetcher(250)
	fetcher := &fakeFetcher{fn: func(req PageRequest) (models.PageEnvelope, error) {
		if req.Page == 2 {
			return models.PageEnvelope{}, errors.New("gateway timeout")
		}
		return inner.fn(req)
	}}
	c := NewCollector(fetcher, 0, (&noSleep{}).Sleep)

	got := c.CollectAll(context.Background(), "a1", models.VariantConversation, 100, models.TimeWindow{})

	if len(got.Records) != 100 {
		t.Errorf("records = %d, want 100", len(got.Records))
	}
	if got.Total != 250 {
		t.Errorf("Total = %d, want 250", got.Total)
	}
	if !got.Partial() {
		t.Error("expected partial collection")
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("fetches = %d, want 2", len(fetcher.calls))
	}
}

func TestCollectAllStopsWithoutContinuation(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(req PageRequest) (models.PageEnvelope, error) {
		return models.PageEnvelope{
			Total:   500,
			Records: makeRecords(req.PageSize, func(int) string { return `{}` }),
			HasMore: false,
		}, nil
	}}
	c := NewCollector(fetcher, 0, (&noSleep{}).Sleep)

	got := c.CollectAll(context.Background(), "a1", models.VariantCompletion, 100, models.TimeWindow{})
	if len(fetcher.calls) != 1 || len(got.Records) != 100 {
		t.Errorf("fetches = %d, records = %d; want 1, 100", len(fetcher.calls), len(got.Records))
	}
}

func TestCollectAllStopsAtZeroTotal(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(req PageRequest) (models.PageEnvelope, error) {
		return models.PageEnvelope{Total: 0, HasMore: true}, nil
	}}
	c := NewCollector(fetcher, 0, (&noSleep{}).Sleep)

	got := c.CollectAll(context.Background(), "a1", models.VariantConversation, 100, models.TimeWindow{})
	if len(fetcher.calls) != 1 {
		t.Errorf("fetches = %d, want 1", len(fetcher.calls))
	}
	if got.Err != nil || len(got.Records) != 0 {
		t.Errorf("got %d records, err %v; want 0, nil", len(got.Records), got.Err)
	}
}

func TestCollectAllStopsOnEmptyPage(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(req PageRequest) (models.PageEnvelope, error) {
		if req.Page > 1 {
			return models.PageEnvelope{Total: 500, HasMore: true}, nil
		}
		return models.PageEnvelope{
			Total:   500,
			Records: makeRecords(req.PageSize, func(int) string { return `{}` }),
			HasMore: true,
		}, nil
	}}
	c := NewCollector(fetcher, 0, (&noSleep{}).Sleep)

	got := c.CollectAll(context.Background(), "a1", models.VariantCompletion, 100, models.TimeWindow{})
	if len(fetcher.calls) != 2 || len(got.Records) != 100 {
		t.Errorf("fetches = %d, records = %d; want 2, 100", len(fetcher.calls), len(got.Records))
	}
}

func TestCollectAllIgnoresLaterTotals(t *testing.T) {
	fetcher := &fakeFetcher{fn: func(req PageRequest) (models.PageEnvelope, error) {
		total := 3
		if req.Page > 1 {
			total = 100
		}
		return models.PageEnvelope{
			Total:   total,
			Records: makeRecords(2, func(int) string { return `{}` }),
			HasMore: true,
		}, nil
	}}
	c := NewCollector(fetcher, 0, (&noSleep{}).Sleep)

	got := c.CollectAll(context.Background(), "a1", models.VariantConversation, 2, models.TimeWindow{})
	if len(fetcher.calls) != 2 {
		t.Errorf("fetches = %d, want 2", len(fetcher.calls))
	}
	if got.Total != 3 {
		t.Errorf("Total = %d, want 3", got.Total)
	}
}

func TestCollectAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := pagedFetcher(250)
	c := NewCollector(fetcher, time.Hour, Sleep)

	cancel()
	got := c.CollectAll(ctx, "a1", models.VariantConversation, 100, models.TimeWindow{})
	if len(fetcher.calls) != 1 {
		t.Errorf("fetches = %d, want 1", len(fetcher.calls))
	}
	if !errors.Is(got.Err, context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", got.Err)
	}
	if len(got.Records) != 100 {
		t.Errorf("records = %d, want 100", len(got.Records))
	}
}

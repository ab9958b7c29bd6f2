package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// fakeGetter answers GetJSON from a static body and records the requests.
type fakeGetter struct {
	body      string
	err       error
	endpoints []string
	queries   []url.Values
}

func (g *fakeGetter) GetJSON(_ context.Context, endpoint string, query url.Values, out any) error {
	g.endpoints = append(g.endpoints, endpoint)
	g.queries = append(g.queries, query)
	if g.err != nil {
		return g.err
	}
	return json.Unmarshal([]byte(g.body), out)
}

// fakeFetcher implements PageFetcher for testing
type fakeFetcher struct {
	mu    sync.Mutex
	calls []PageRequest
	fn    func(req PageRequest) (models.PageEnvelope, error)
}

func (f *fakeFetcher) FetchPage(_ context.Context, req PageRequest) (models.PageEnvelope, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeFetcher) callsFor(appID string) []PageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []PageRequest
	for _, c := range f.calls {
		if c.AppID == appID {
			out = append(out, c)
		}
	}
	return out
}

// fakeConsole implements Console for testing
type fakeConsole struct {
	fakeGetter
	workspace *models.Workspace
	wsErr     error
	apps      []models.Application
	appsErr   error
}

func (c *fakeConsole) CurrentWorkspace(context.Context) (*models.Workspace, error) {
	return c.workspace, c.wsErr
}

func (c *fakeConsole) Applications(context.Context, int) ([]models.Application, error) {
	return c.apps, c.appsErr
}

// noSleep records requested delays without waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *noSleep) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func makeRecords(n int, format func(i int) string) []json.RawMessage {
	out := make([]json.RawMessage, n)
	for i := range out {
		out[i] = json.RawMessage(format(i))
	}
	return out
}

// pagedFetcher serves total records pageSize at a time with has_more set until the end.
func pagedFetcher(total int) *fakeFetcher {
	return &fakeFetcher{fn: func(req PageRequest) (models.PageEnvelope, error) {
		start := (req.Page - 1) * req.PageSize
		n := min(req.PageSize, max(total-start, 0))
		return models.PageEnvelope{
			Total: total,
			Records: makeRecords(n, func(i int) string {
				return fmt.Sprintf(`{"from_account_name":"user-%d"}`, (start+i)%7)
			}),
			HasMore: start+n < total,
		}, nil
	}}
}

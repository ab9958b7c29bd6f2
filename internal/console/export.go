package console

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/j-veylop/dify-backup-tui/internal/logger"
)

// ExportDSL returns the exported definition of one application. The console wraps the
// YAML text in a "data" field; when that field is absent the whole body is returned.
func (c *Client) ExportDSL(ctx context.Context, appID string, includeSecret bool) (any, error) {
	query := url.Values{}
	query.Set("include_secret", strconv.FormatBool(includeSecret))

	var raw map[string]any
	endpoint := fmt.Sprintf("%s/%s/export", appsEndpoint, url.PathEscape(appID))
	if err := c.GetJSON(ctx, endpoint, query, &raw); err != nil {
		return nil, fmt.Errorf("failed to export application %s: %w", appID, err)
	}
	return unwrapData(raw), nil
}

// WorkflowDraft returns the draft graph of a workflow application, or nil when the
// application has none or the call fails.
func (c *Client) WorkflowDraft(ctx context.Context, appID string) any {
	var raw map[string]any
	endpoint := fmt.Sprintf("%s/%s/workflows/draft", appsEndpoint, url.PathEscape(appID))
	if err := c.GetJSON(ctx, endpoint, nil, &raw); err != nil {
		logger.Warn("failed to fetch workflow draft", "app", appID, "error", err)
		return nil
	}
	return unwrapData(raw)
}

func unwrapData(raw map[string]any) any {
	if data, ok := raw["data"]; ok && data != nil {
		return data
	}
	return raw
}

package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

const appsEndpoint = "/console/api/apps"

// Applications lists every application in the current workspace, following pagination
// until a short page or the reported total is reached.
func (c *Client) Applications(ctx context.Context, limit int) ([]models.Application, error) {
	if limit <= 0 {
		limit = 30
	}

	var apps []models.Application
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(limit))
		query.Set("name", "")
		query.Set("is_created_by_me", "false")

		var raw json.RawMessage
		if err := c.GetJSON(ctx, appsEndpoint, query, &raw); err != nil {
			return nil, fmt.Errorf("failed to list applications (page %d): %w", page, err)
		}

		items, _ := findArray(raw, arrayFieldNames...)
		for _, item := range items {
			obj, err := decodeObject(item)
			if err != nil {
				continue
			}
			if app, ok := applicationFromObject(obj); ok {
				apps = append(apps, app)
			}
		}

		total := 0
		if obj, err := decodeObject(raw); err == nil {
			total, _ = IntField(obj, "total", "count")
		}

		hasMore := page*limit < total
		if !hasMore || len(items) != limit {
			break
		}
		logger.Debug("fetching next application page", "fetched", len(apps), "page", page+1)
	}

	return apps, nil
}

// applicationFromObject extracts identifier, name and mode from one list entry.
// The export endpoint is keyed by dsl_id on some console versions, so it wins over id.
func applicationFromObject(obj map[string]json.RawMessage) (models.Application, bool) {
	id := stringField(obj, "dsl_id", "id", "app_id")
	if id == "" {
		return models.Application{}, false
	}
	name := stringField(obj, "name", "app_name")
	if name == "" {
		name = id
	}
	mode := stringField(obj, "mode")
	return models.Application{
		ID:      id,
		Name:    name,
		RawMode: mode,
		Mode:    models.VariantFromMode(mode),
	}, true
}

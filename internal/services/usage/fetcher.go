// Package usage computes per-application usage statistics from the console's
// conversation, completion and workflow log endpoints.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/j-veylop/dify-backup-tui/internal/config"
	"github.com/j-veylop/dify-backup-tui/internal/console"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

// ErrUnrecognizedEnvelope is returned when a page carries none of the known envelope fields.
var ErrUnrecognizedEnvelope = errors.New("unrecognized page envelope")

// workflowTimeLayout is the filter form expected by the workflow log endpoint.
const workflowTimeLayout = "2006-01-02T15:04"

var (
	totalFieldNames  = []string{"total", "count"}
	recordFieldNames = []string{"data", "items"}
)

// Getter is the part of the console client the fetcher needs.
type Getter interface {
	GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error
}

// PageFetcher fetches one page of usage records.
type PageFetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (models.PageEnvelope, error)
}

// PageRequest identifies one page of one application's usage records.
type PageRequest struct {
	AppID    string
	Variant  models.Variant
	Page     int
	PageSize int
	Window   models.TimeWindow
}

// Fetcher issues single page requests against the usage endpoints.
type Fetcher struct {
	client Getter
	now    func() time.Time
}

// NewFetcher creates a fetcher on top of client.
func NewFetcher(client Getter) *Fetcher {
	return &Fetcher{client: client, now: time.Now}
}

// Endpoint returns the usage endpoint for variant.
func Endpoint(appID string, variant models.Variant) (string, error) {
	id := url.PathEscape(appID)
	switch variant {
	case models.VariantConversation:
		return fmt.Sprintf("/console/api/apps/%s/chat-conversations", id), nil
	case models.VariantCompletion:
		return fmt.Sprintf("/console/api/apps/%s/completion-conversations", id), nil
	case models.VariantWorkflowLog:
		return fmt.Sprintf("/console/api/apps/%s/workflow-app-logs", id), nil
	default:
		return "", fmt.Errorf("unknown usage variant %q", variant)
	}
}

// FetchPage issues one request and normalizes the envelope. It never retries.
func (f *Fetcher) FetchPage(ctx context.Context, req PageRequest) (models.PageEnvelope, error) {
	endpoint, err := Endpoint(req.AppID, req.Variant)
	if err != nil {
		return models.PageEnvelope{}, err
	}

	query, err := f.query(req)
	if err != nil {
		return models.PageEnvelope{}, err
	}

	var raw json.RawMessage
	if err := f.client.GetJSON(ctx, endpoint, query, &raw); err != nil {
		return models.PageEnvelope{}, err
	}

	return parseEnvelope(raw, req)
}

func (f *Fetcher) query(req PageRequest) (url.Values, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(req.Page))
	query.Set("limit", strconv.Itoa(req.PageSize))

	if req.Variant != models.VariantWorkflowLog {
		if req.Window.Start != "" {
			query.Set("start", req.Window.Start)
		}
		if req.Window.End != "" {
			query.Set("end", req.Window.End)
		}
		return query, nil
	}

	if req.Window.Start != "" {
		after, err := f.toOffsetTime(req.Window.Start)
		if err != nil {
			return nil, err
		}
		query.Set("created_at__after", after)
	}
	if req.Window.End != "" {
		before, err := f.toOffsetTime(req.Window.End)
		if err != nil {
			return nil, err
		}
		query.Set("created_at__before", before)
	}
	return query, nil
}

// toOffsetTime converts a local "YYYY-MM-DD HH:MM" value to "YYYY-MM-DDTHH:MM:00±HH:MM"
// using the offset in effect now.
func (f *Fetcher) toOffsetTime(value string) (string, error) {
	t, err := time.Parse(config.LocalWindowLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid time window value %q: %w", value, err)
	}
	_, offset := f.now().Zone()
	return t.Format(workflowTimeLayout) + ":00" + formatOffset(offset), nil
}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

func parseEnvelope(raw json.RawMessage, req PageRequest) (models.PageEnvelope, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return models.PageEnvelope{}, ErrUnrecognizedEnvelope
	}

	total, hasTotal := console.IntField(obj, totalFieldNames...)
	records, hasRecords := console.ArrayField(obj, recordFieldNames...)
	if !hasTotal && !hasRecords {
		return models.PageEnvelope{}, ErrUnrecognizedEnvelope
	}
	hasMore, hasMorePresent := console.BoolField(obj, "has_more")

	env := models.PageEnvelope{
		Total:   total,
		Records: records,
		HasMore: hasMore,
	}

	if req.Variant == models.VariantWorkflowLog {
		seen := (req.Page-1)*req.PageSize + len(records)
		env.HasMore = total > 0 &&
			seen < total &&
			len(records) > 0 &&
			!(hasMorePresent && !hasMore)
	}

	return env, nil
}

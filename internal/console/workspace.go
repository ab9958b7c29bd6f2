package console

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/j-veylop/dify-backup-tui/internal/logger"
	"github.com/j-veylop/dify-backup-tui/internal/models"
)

const (
	workspacesEndpoint       = "/console/api/workspaces"
	currentWorkspaceEndpoint = "/console/api/workspaces/current"
)

// CurrentWorkspace returns the workspace the credentials are scoped to.
func (c *Client) CurrentWorkspace(ctx context.Context) (*models.Workspace, error) {
	var raw json.RawMessage
	if err := c.GetJSON(ctx, currentWorkspaceEndpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get current workspace: %w", err)
	}

	obj, ok := findObject(raw, "data", "workspace")
	if !ok {
		return nil, fmt.Errorf("failed to get current workspace: unrecognized response")
	}
	ws := workspaceFromObject(obj)
	return &ws, nil
}

// Workspaces lists every workspace visible to the credentials.
func (c *Client) Workspaces(ctx context.Context) ([]models.Workspace, error) {
	var raw json.RawMessage
	if err := c.GetJSON(ctx, workspacesEndpoint, nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	items, ok := findArray(raw, "data", "workspaces", "items")
	if !ok {
		logger.Warn("unrecognized workspace list response")
		return nil, nil
	}

	workspaces := make([]models.Workspace, 0, len(items))
	for _, item := range items {
		obj, err := decodeObject(item)
		if err != nil {
			continue
		}
		workspaces = append(workspaces, workspaceFromObject(obj))
	}
	return workspaces, nil
}

func workspaceFromObject(obj map[string]json.RawMessage) models.Workspace {
	return models.Workspace{
		ID:     stringField(obj, "id"),
		Name:   stringField(obj, "name"),
		Plan:   stringField(obj, "plan"),
		Status: stringField(obj, "status"),
		Role:   stringField(obj, "role"),
	}
}

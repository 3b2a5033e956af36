package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const recentResourceLimit = 10

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	workouts, err := h.ds.RecentWorkouts(ctx, recentResourceLimit)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, workouts)
}

func (h *handlers) muscleGroups(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	totals, err := h.ds.MuscleGroupTotals(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, totals)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

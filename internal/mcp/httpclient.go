package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/store"
	"github.com/claude/ironlog/internal/views"
)

// HTTPClient implements DataSource by calling the ironlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the workout log lives on a server (reached over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	loc        *time.Location
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		loc:        time.Local,
	}
}

// Location returns the local zone of the machine running the bridge.
func (c *HTTPClient) Location() *time.Location { return c.loc }

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, store.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) RecentWorkouts(ctx context.Context, limit int) ([]models.WorkoutSummary, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var out []models.WorkoutSummary
	if err := c.get(ctx, "/api/v1/workouts/recent", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) WorkoutsByDateRange(ctx context.Context, start, end time.Time) ([]models.Workout, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339Nano))
	params.Set("end", end.Format(time.RFC3339Nano))

	var out []models.Workout
	if err := c.get(ctx, "/api/v1/workouts", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, id string) (*models.Workout, error) {
	var out models.Workout
	if err := c.get(ctx, "/api/v1/workouts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ExerciseStats(ctx context.Context, name string) (*views.ExerciseProgress, error) {
	params := url.Values{}
	params.Set("name", name)

	var out views.ExerciseProgress
	if err := c.get(ctx, "/api/v1/stats/exercise", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) MuscleGroupTotals(ctx context.Context) ([]views.MuscleGroupCount, error) {
	var out []views.MuscleGroupCount
	if err := c.get(ctx, "/api/v1/stats/muscle-groups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) WeeklyVolume(ctx context.Context) ([]views.WeekVolume, error) {
	var out []views.WeekVolume
	if err := c.get(ctx, "/api/v1/stats/volume", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) MuscleGroups(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.get(ctx, "/api/v1/muscle-groups", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

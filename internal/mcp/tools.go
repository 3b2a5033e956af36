package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/ironlog/internal/store"
	"github.com/claude/ironlog/internal/views"
	"github.com/mark3labs/mcp-go/mcp"
)

const defaultRangeDays = 30

// defaultTimeRange returns start/end defaulting to the last 30 days. A
// date-only end covers that whole day; date-only bounds are read in loc.
func defaultTimeRange(startStr, endStr string, loc *time.Location) (time.Time, time.Time, error) {
	var start, end time.Time

	if endStr != "" {
		t, dateOnly, err := parseFlexTime(endStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
		if dateOnly {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		t, _, err := parseFlexTime(startStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	} else {
		start = end.AddDate(0, 0, -defaultRangeDays)
	}

	return start, end, nil
}

func parseFlexTime(s string, loc *time.Location) (time.Time, bool, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, false, nil
	}
	t, err = time.ParseInLocation(time.DateOnly, s, loc)
	if err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}

// --- Tool definitions ---

var toolGetRecentWorkouts = mcp.NewTool("get_recent_workouts",
	mcp.WithDescription("Summaries of the most recent workouts, newest first: name, date, number of exercises and muscle groups trained."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of workouts. Defaults to 5."), mcp.Min(1)),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Full workouts in a date range, including every exercise and set (weight, reps, completed)."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("A single workout by id with all exercises and sets."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout id")),
)

var toolGetExerciseStats = mcp.NewTool("get_exercise_stats",
	mcp.WithDescription("Progress of one exercise over time: for each workout containing it, the heaviest weight and the highest rep count (possibly from different sets)."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Exact exercise name, case-sensitive (e.g. 'Squat', 'Bench Press')")),
)

var toolGetMuscleGroupTotals = mcp.NewTool("get_muscle_group_totals",
	mcp.WithDescription("How many exercises were logged per muscle group across all workouts, most trained first."),
)

var toolGetWeeklyVolume = mcp.NewTool("get_weekly_volume",
	mcp.WithDescription("Training volume (weight x reps over completed sets) per Sunday-starting week, oldest first."),
	mcp.WithNumber("weeks", mcp.Description("Only return the most recent N weeks. Defaults to all."), mcp.Min(1)),
)

var toolListMuscleGroups = mcp.NewTool("list_muscle_groups",
	mcp.WithDescription("Distinct muscle group labels used by logged exercises."),
)

// --- Tool handlers ---

func (h *handlers) getRecentWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", views.DefaultRecentLimit)

	workouts, err := h.ds.RecentWorkouts(ctx, limit)
	if err != nil {
		h.log.Error("mcp get_recent_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""), h.ds.Location())
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	workouts, err := h.ds.WorkoutsByDateRange(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workouts)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	workout, err := h.ds.GetWorkout(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("workout not found: " + id), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(workout)
}

func (h *handlers) getExerciseStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	stats, err := h.ds.ExerciseStats(ctx, name)
	if err != nil {
		h.log.Error("mcp get_exercise_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(stats)
}

func (h *handlers) getMuscleGroupTotals(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	totals, err := h.ds.MuscleGroupTotals(ctx)
	if err != nil {
		h.log.Error("mcp get_muscle_group_totals", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(totals)
}

func (h *handlers) getWeeklyVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	volume, err := h.ds.WeeklyVolume(ctx)
	if err != nil {
		h.log.Error("mcp get_weekly_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if weeks := req.GetInt("weeks", 0); weeks > 0 && len(volume) > weeks {
		volume = volume[len(volume)-weeks:]
	}
	return jsonResult(volume)
}

func (h *handlers) listMuscleGroups(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groups, err := h.ds.MuscleGroups(ctx)
	if err != nil {
		h.log.Error("mcp list_muscle_groups", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(groups)
}

func jsonResult[T any](v T) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

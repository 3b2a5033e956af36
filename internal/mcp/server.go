package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("ironlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("ironlog strength training log. Query logged workouts, per-exercise progress, muscle group balance and weekly training volume."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetRecentWorkouts, Handler: h.getRecentWorkouts},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolGetExerciseStats, Handler: h.getExerciseStats},
		server.ServerTool{Tool: toolGetMuscleGroupTotals, Handler: h.getMuscleGroupTotals},
		server.ServerTool{Tool: toolGetWeeklyVolume, Handler: h.getWeeklyVolume},
		server.ServerTool{Tool: toolListMuscleGroups, Handler: h.listMuscleGroups},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentWorkouts, Handler: h.recentWorkouts},
		server.ServerResource{Resource: resMuscleGroups, Handler: h.muscleGroups},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentWorkouts = mcp.NewResource(
	"ironlog://recent_workouts",
	"Recent Workouts",
	mcp.WithResourceDescription("Summaries of the 10 most recent workouts, newest first"),
	mcp.WithMIMEType("application/json"),
)

var resMuscleGroups = mcp.NewResource(
	"ironlog://muscle_groups",
	"Muscle Groups",
	mcp.WithResourceDescription("Exercise counts per muscle group, most trained first"),
	mcp.WithMIMEType("application/json"),
)

package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/store"
	"github.com/claude/ironlog/internal/views"
)

// DataSource abstracts the data layer for MCP tools. LocalSource (in-process
// store) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	RecentWorkouts(ctx context.Context, limit int) ([]models.WorkoutSummary, error)
	WorkoutsByDateRange(ctx context.Context, start, end time.Time) ([]models.Workout, error)
	GetWorkout(ctx context.Context, id string) (*models.Workout, error)
	ExerciseStats(ctx context.Context, name string) (*views.ExerciseProgress, error)
	MuscleGroupTotals(ctx context.Context) ([]views.MuscleGroupCount, error)
	WeeklyVolume(ctx context.Context) ([]views.WeekVolume, error)
	MuscleGroups(ctx context.Context) ([]string, error)
	// Location is the zone YYYY-MM-DD tool arguments are read in.
	Location() *time.Location
}

// LocalSource serves MCP requests straight from a Store.
type LocalSource struct {
	store *store.Store
	loc   *time.Location
}

var _ DataSource = (*LocalSource)(nil)

// NewLocalSource creates a LocalSource. loc sets week boundaries and date formatting.
func NewLocalSource(st *store.Store, loc *time.Location) *LocalSource {
	if loc == nil {
		loc = time.UTC
	}
	return &LocalSource{store: st, loc: loc}
}

func (l *LocalSource) Location() *time.Location { return l.loc }

func (l *LocalSource) RecentWorkouts(_ context.Context, limit int) ([]models.WorkoutSummary, error) {
	return views.RecentWorkouts(l.store.Workouts(), limit), nil
}

func (l *LocalSource) WorkoutsByDateRange(_ context.Context, start, end time.Time) ([]models.Workout, error) {
	return views.WorkoutsByDateRange(l.store.Workouts(), start, end), nil
}

func (l *LocalSource) GetWorkout(_ context.Context, id string) (*models.Workout, error) {
	w, ok := l.store.GetWorkoutByID(id)
	if !ok {
		return nil, fmt.Errorf("workout %q: %w", id, store.ErrNotFound)
	}
	return &w, nil
}

func (l *LocalSource) ExerciseStats(_ context.Context, name string) (*views.ExerciseProgress, error) {
	p := views.ExerciseStats(l.store.Workouts(), name, l.loc)
	return &p, nil
}

func (l *LocalSource) MuscleGroupTotals(context.Context) ([]views.MuscleGroupCount, error) {
	return views.TotalWorkoutsByMuscleGroup(l.store.Workouts()), nil
}

func (l *LocalSource) WeeklyVolume(context.Context) ([]views.WeekVolume, error) {
	return views.TotalVolumeByWeek(l.store.Workouts(), l.loc), nil
}

func (l *LocalSource) MuscleGroups(context.Context) ([]string, error) {
	return views.MuscleGroups(l.store.Workouts()), nil
}

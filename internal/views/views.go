// Package views derives read-only projections from a workout list. Every
// function recomputes from the list it is given and keeps no state.
package views

import (
	"slices"
	"time"

	"github.com/claude/ironlog/internal/models"
)

// DefaultRecentLimit is used by RecentWorkouts when limit <= 0.
const DefaultRecentLimit = 5

// ExerciseProgress holds one exercise's per-workout bests as parallel series,
// oldest first.
type ExerciseProgress struct {
	Dates   []string  `json:"dates"`
	Weights []float64 `json:"weights"`
	Reps    []int     `json:"reps"`
}

// MuscleGroupCount is the number of exercise occurrences for one muscle group.
type MuscleGroupCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// WeekVolume is the completed-set volume of one Sunday-starting week.
type WeekVolume struct {
	WeekStart time.Time `json:"weekStart"`
	Week      string    `json:"week"`
	Volume    float64   `json:"volume"`
}

// Summarize projects a workout onto its summary.
func Summarize(w models.Workout) models.WorkoutSummary {
	return models.WorkoutSummary{
		ID:            w.ID,
		Name:          w.Name,
		Date:          w.Date,
		ExerciseCount: len(w.Exercises),
		MuscleGroups:  MuscleGroups([]models.Workout{w}),
	}
}

// RecentWorkouts returns summaries of the limit most recent workouts, newest
// first. Workouts with equal dates keep their list order.
func RecentWorkouts(ws []models.Workout, limit int) []models.WorkoutSummary {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	sorted := slices.Clone(ws)
	slices.SortStableFunc(sorted, func(a, b models.Workout) int {
		return b.Date.Compare(a.Date)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]models.WorkoutSummary, len(sorted))
	for i, w := range sorted {
		out[i] = Summarize(w)
	}
	return out
}

// WorkoutsByDateRange returns the workouts dated within [start, end], in list order.
func WorkoutsByDateRange(ws []models.Workout, start, end time.Time) []models.Workout {
	out := []models.Workout{}
	for _, w := range ws {
		if w.Date.Before(start) || w.Date.After(end) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ExerciseStats collects, for every workout containing an exercise named
// exactly name, the heaviest set weight and the highest set rep count. The two
// maxima are taken independently and can come from different sets. Dates are
// formatted as M/D/YYYY in loc.
func ExerciseStats(ws []models.Workout, name string, loc *time.Location) ExerciseProgress {
	if loc == nil {
		loc = time.UTC
	}
	progress := ExerciseProgress{
		Dates:   []string{},
		Weights: []float64{},
		Reps:    []int{},
	}

	sorted := slices.Clone(ws)
	slices.SortStableFunc(sorted, func(a, b models.Workout) int {
		return a.Date.Compare(b.Date)
	})

	for _, w := range sorted {
		i := slices.IndexFunc(w.Exercises, func(ex models.Exercise) bool { return ex.Name == name })
		if i < 0 || len(w.Exercises[i].Sets) == 0 {
			continue
		}

		sets := w.Exercises[i].Sets
		maxWeight, maxReps := sets[0].Weight, sets[0].Reps
		for _, s := range sets[1:] {
			maxWeight = max(maxWeight, s.Weight)
			maxReps = max(maxReps, s.Reps)
		}

		progress.Dates = append(progress.Dates, w.Date.In(loc).Format("1/2/2006"))
		progress.Weights = append(progress.Weights, maxWeight)
		progress.Reps = append(progress.Reps, maxReps)
	}
	return progress
}

// TotalWorkoutsByMuscleGroup counts exercise occurrences per muscle group,
// largest first. Equal counts keep the order the groups were first seen in.
func TotalWorkoutsByMuscleGroup(ws []models.Workout) []MuscleGroupCount {
	out := []MuscleGroupCount{}
	index := make(map[string]int)
	for _, w := range ws {
		for _, ex := range w.Exercises {
			i, ok := index[ex.MuscleGroup]
			if !ok {
				i = len(out)
				index[ex.MuscleGroup] = i
				out = append(out, MuscleGroupCount{Name: ex.MuscleGroup})
			}
			out[i].Value++
		}
	}

	slices.SortStableFunc(out, func(a, b MuscleGroupCount) int {
		return b.Value - a.Value
	})
	return out
}

// TotalVolumeByWeek sums weight x reps over completed sets per Sunday-starting
// week in loc, oldest week first.
func TotalVolumeByWeek(ws []models.Workout, loc *time.Location) []WeekVolume {
	byWeek := make(map[time.Time]float64)
	for _, w := range ws {
		start := WeekStart(w.Date, loc)
		byWeek[start] += Volume(w)
	}

	out := make([]WeekVolume, 0, len(byWeek))
	for start, volume := range byWeek {
		out = append(out, WeekVolume{
			WeekStart: start,
			Week:      start.Format("Jan 2"),
			Volume:    volume,
		})
	}
	slices.SortFunc(out, func(a, b WeekVolume) int {
		return a.WeekStart.Compare(b.WeekStart)
	})
	return out
}

// WeekStart returns midnight of the Sunday on or before t, in loc. A nil loc
// means UTC.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d-int(local.Weekday()), 0, 0, 0, 0, loc)
}

// Volume is the sum of weight x reps over the completed sets of a workout.
func Volume(w models.Workout) float64 {
	var total float64
	for _, ex := range w.Exercises {
		for _, s := range ex.Sets {
			if s.Completed {
				total += s.Weight * float64(s.Reps)
			}
		}
	}
	return total
}

// MuscleGroups returns the distinct muscle-group labels in first-seen order.
func MuscleGroups(ws []models.Workout) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, w := range ws {
		for _, ex := range w.Exercises {
			if seen[ex.MuscleGroup] {
				continue
			}
			seen[ex.MuscleGroup] = true
			out = append(out, ex.MuscleGroup)
		}
	}
	return out
}

package models

import "time"

// Set is one performance unit of an exercise.
type Set struct {
	Weight    float64 `json:"weight"`
	Reps      int     `json:"reps"`
	Completed bool    `json:"completed"`
}

// Exercise is a named movement inside a workout, tagged with a muscle group.
type Exercise struct {
	Name        string `json:"name"`
	MuscleGroup string `json:"muscleGroup"`
	Sets        []Set  `json:"sets"`
}

// Workout is a single logged training session.
type Workout struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Date      time.Time  `json:"date"`
	Notes     string     `json:"notes"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutInput is a workout as submitted by a caller, before an id and date are assigned.
type WorkoutInput struct {
	Name      string     `json:"name"`
	Notes     string     `json:"notes"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutSummary is a derived, never-persisted projection of a Workout.
type WorkoutSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Date          time.Time `json:"date"`
	ExerciseCount int       `json:"exerciseCount"`
	MuscleGroups  []string  `json:"muscleGroups"`
}

// Clone returns a deep copy so callers can't alias the store's slices.
func (w Workout) Clone() Workout {
	out := w
	out.Exercises = make([]Exercise, len(w.Exercises))
	for i, ex := range w.Exercises {
		out.Exercises[i] = ex
		out.Exercises[i].Sets = append([]Set{}, ex.Sets...)
	}
	return out
}

// CloneWorkouts deep-copies a list of workouts.
func CloneWorkouts(ws []Workout) []Workout {
	out := make([]Workout, len(ws))
	for i, w := range ws {
		out[i] = w.Clone()
	}
	return out
}

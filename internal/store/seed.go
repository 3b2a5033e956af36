package store

import (
	"time"

	"github.com/claude/ironlog/internal/models"
)

const day = 24 * time.Hour

// SeedWorkouts returns the example workouts used when the slot is empty,
// dated 7, 3 and 1 days before now.
func SeedWorkouts(now time.Time) []models.Workout {
	at := func(daysAgo int) time.Time {
		return now.Add(-time.Duration(daysAgo) * day).UTC().Truncate(time.Millisecond)
	}
	sets := func(s ...models.Set) []models.Set { return s }
	done := func(weight float64, reps int) models.Set {
		return models.Set{Weight: weight, Reps: reps, Completed: true}
	}

	return []models.Workout{
		{
			ID:    "1",
			Name:  "Full Body Workout",
			Date:  at(7),
			Notes: "Felt great, increased weight on squats",
			Exercises: []models.Exercise{
				{Name: "Squat", MuscleGroup: "Legs", Sets: sets(done(135, 10), done(155, 8), done(175, 6))},
				{Name: "Bench Press", MuscleGroup: "Chest", Sets: sets(done(115, 10), done(135, 8), done(145, 6))},
				{Name: "Deadlift", MuscleGroup: "Back", Sets: sets(done(185, 8), done(205, 6), done(225, 4))},
			},
		},
		{
			ID:    "2",
			Name:  "Upper Body Focus",
			Date:  at(3),
			Notes: "Great pump in the arms",
			Exercises: []models.Exercise{
				{Name: "Pull-ups", MuscleGroup: "Back", Sets: sets(done(0, 10), done(0, 8), done(0, 7))},
				{Name: "Overhead Press", MuscleGroup: "Shoulders", Sets: sets(done(65, 10), done(75, 8), done(85, 6))},
				{Name: "Bicep Curls", MuscleGroup: "Arms", Sets: sets(done(25, 12), done(30, 10), done(35, 8))},
			},
		},
		{
			ID:    "3",
			Name:  "Leg Day",
			Date:  at(1),
			Notes: "Focused on form with lighter weights",
			Exercises: []models.Exercise{
				{Name: "Squat", MuscleGroup: "Legs", Sets: sets(done(135, 12), done(155, 10), done(175, 8))},
				{Name: "Leg Press", MuscleGroup: "Legs", Sets: sets(done(180, 12), done(200, 10), done(220, 8))},
				{Name: "Leg Curl", MuscleGroup: "Legs", Sets: sets(done(70, 12), done(80, 10), done(90, 8))},
			},
		},
	}
}

package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkouts() []Workout {
	return []Workout{
		{
			ID:    "a1",
			Name:  "Leg Day",
			Date:  time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC),
			Notes: "heavy",
			Exercises: []Exercise{
				{
					Name:        "Squat",
					MuscleGroup: "Legs",
					Sets: []Set{
						{Weight: 135, Reps: 10, Completed: true},
						{Weight: 155.5, Reps: 8, Completed: false},
					},
				},
			},
		},
		{
			ID:        "b2",
			Name:      "Rest-ish",
			Date:      time.Date(2024, 1, 3, 7, 0, 0, 123000000, time.UTC),
			Exercises: []Exercise{},
		},
	}
}

// TestRoundTrip verifies that encoding a list and decoding it again yields an
// identical list, including ids, dates and nested sets.
func TestRoundTrip(t *testing.T) {
	in := sampleWorkouts()

	data, err := EncodeWorkouts(in)
	require.NoError(t, err)

	out, quarantined, err := DecodeWorkouts(data)
	require.NoError(t, err)
	assert.Empty(t, quarantined)
	assert.Equal(t, in, out)
}

// TestDecodeBrowserFormat verifies that a list written by the browser app
// (toISOString dates with milliseconds) decodes into the typed model.
func TestDecodeBrowserFormat(t *testing.T) {
	raw := `[{"id":"1","name":"Full Body Workout","date":"2024-01-08T15:04:05.000Z","notes":"",
		"exercises":[{"name":"Squat","sets":[{"weight":175,"reps":6,"completed":true}],"muscleGroup":"Legs"}]}]`

	out, quarantined, err := DecodeWorkouts([]byte(raw))
	require.NoError(t, err)
	require.Empty(t, quarantined)
	require.Len(t, out, 1)

	w := out[0]
	assert.Equal(t, "1", w.ID)
	assert.True(t, w.Date.Equal(time.Date(2024, 1, 8, 15, 4, 5, 0, time.UTC)))
	require.Len(t, w.Exercises, 1)
	assert.Equal(t, "Legs", w.Exercises[0].MuscleGroup)
	assert.Equal(t, []Set{{Weight: 175, Reps: 6, Completed: true}}, w.Exercises[0].Sets)
}

// TestDecodeMalformedDocument verifies that a value that isn't a JSON array
// fails with ErrMalformedDocument.
func TestDecodeMalformedDocument(t *testing.T) {
	for _, raw := range []string{`{not json`, `{"id":"1"}`, `"workouts"`, ``} {
		_, _, err := DecodeWorkouts([]byte(raw))
		require.Error(t, err, "input %q", raw)
		assert.True(t, errors.Is(err, ErrMalformedDocument), "input %q: %v", raw, err)
	}
}

// TestDecodeQuarantine verifies that bad elements are set aside with a reason
// while the rest of the document still loads.
func TestDecodeQuarantine(t *testing.T) {
	raw := `[
		{"id":"ok","name":"fine","date":"2024-02-01T10:00:00Z","notes":"","exercises":[]},
		{"id":"","name":"no id","date":"2024-02-01T10:00:00Z"},
		{"id":"nodate","name":"no date"},
		{"id":"baddate","date":"yesterday"},
		{"id":"ok","name":"dup","date":"2024-02-02T10:00:00Z"},
		{"id":"shape","date":"2024-02-02T10:00:00Z","exercises":[{"sets":[{"weight":"heavy"}]}]},
		42,
		null
	]`

	out, quarantined, err := DecodeWorkouts([]byte(raw))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].ID)
	assert.Equal(t, "fine", out[0].Name)

	require.Len(t, quarantined, 7)
	wantReasons := map[int]string{
		1: "missing id",
		2: "missing date",
		3: "invalid date: yesterday",
		4: "duplicate id",
		6: "not an object",
		7: "not an object",
	}
	for _, q := range quarantined {
		if want, ok := wantReasons[q.Index]; ok {
			assert.Equal(t, want, q.Reason, "index %d", q.Index)
		}
		assert.NotEmpty(t, q.Raw)
	}
	assert.Contains(t, quarantined[4].Reason, "invalid shape")
}

// TestDecodeNullArrays verifies that null exercise and set arrays decode as empty.
func TestDecodeNullArrays(t *testing.T) {
	raw := `[{"id":"x","date":"2024-02-01T10:00:00Z","exercises":[{"name":"Plank","muscleGroup":"Core","sets":null}]},
		{"id":"y","date":"2024-02-01T10:00:00Z","exercises":null}]`

	out, _, err := DecodeWorkouts([]byte(raw))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotNil(t, out[0].Exercises[0].Sets)
	assert.Empty(t, out[0].Exercises[0].Sets)
	assert.NotNil(t, out[1].Exercises)
	assert.Empty(t, out[1].Exercises)
}

// TestEncodeNil verifies that an empty store serializes as an empty array, not null.
func TestEncodeNil(t *testing.T) {
	data, err := EncodeWorkouts(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

// TestCloneIsDeep verifies that mutating a clone's sets leaves the original untouched.
func TestCloneIsDeep(t *testing.T) {
	orig := sampleWorkouts()[0]
	cp := orig.Clone()
	cp.Exercises[0].Sets[0].Weight = 999
	cp.Exercises[0].Name = "Front Squat"

	assert.Equal(t, 135.0, orig.Exercises[0].Sets[0].Weight)
	assert.Equal(t, "Squat", orig.Exercises[0].Name)
}

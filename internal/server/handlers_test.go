package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/claude/ironlog/internal/importer"
	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/storage"
	"github.com/claude/ironlog/internal/store"
	"github.com/claude/ironlog/internal/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...store.Option) (*Server, *store.Store, *storage.MemorySlot) {
	t.Helper()
	slot := storage.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]store.Option{store.WithClock(func() time.Time { return testNow })}, opts...)
	st, err := store.Open(context.Background(), slot, log, opts...)
	require.NoError(t, err)
	return New(st, time.UTC, log), st, slot
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// TestListWorkouts verifies the seeded list and the inclusive date range filter.
func TestListWorkouts(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/workouts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Len(t, decode[[]models.Workout](t, rec), 3)

	// Seeds are dated Jan 3, Jan 7 and Jan 9; a date-only end covers the whole day.
	rec = do(t, s, http.MethodGet, "/api/v1/workouts?start=2024-01-07&end=2024-01-09", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]models.Workout](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "3", got[1].ID)

	rec = do(t, s, http.MethodGet, "/api/v1/workouts?start=2024-01-08T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Workout](t, rec), 1)
}

func TestListWorkoutsBadRange(t *testing.T) {
	s, _, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
	}{
		{"bad start", "/api/v1/workouts?start=yesterday"},
		{"bad end", "/api/v1/workouts?end=2024-13-01"},
		{"end before start", "/api/v1/workouts?start=2024-02-01&end=2024-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

// TestCreateWorkout verifies a POST assigns id and date and persists once.
func TestCreateWorkout(t *testing.T) {
	s, st, slot := newTestServer(t, store.WithoutSeed())

	rec := do(t, s, http.MethodPost, "/api/v1/workouts",
		`{"name":"Push","notes":"","exercises":[{"name":"Bench Press","muscleGroup":"Chest","sets":[{"weight":100,"reps":5,"completed":true}]}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	w := decode[models.Workout](t, rec)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, testNow, w.Date)
	assert.Equal(t, 1, st.Count())
	assert.Equal(t, 1, slot.Writes())

	rec = do(t, s, http.MethodPost, "/api/v1/workouts", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentWorkouts(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/workouts/recent?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]models.WorkoutSummary](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
	assert.Equal(t, 3, got[0].ExerciseCount)
	assert.Equal(t, []string{"Legs"}, got[0].MuscleGroups)

	rec = do(t, s, http.MethodGet, "/api/v1/workouts/recent?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWorkout(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/workouts/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Upper Body Focus", decode[models.Workout](t, rec).Name)

	rec = do(t, s, http.MethodGet, "/api/v1/workouts/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "workout not found", decode[map[string]string](t, rec)["error"])
}

// TestUpdateWorkout verifies PUT replaces the record and keeps the date when omitted.
func TestUpdateWorkout(t *testing.T) {
	s, st, _ := newTestServer(t)
	before, _ := st.GetWorkoutByID("1")

	rec := do(t, s, http.MethodPut, "/api/v1/workouts/1",
		`{"name":"Renamed","notes":"edited","exercises":[{"name":"Squat","muscleGroup":"Legs","sets":[{"weight":200,"reps":3,"completed":true}]}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got, ok := st.GetWorkoutByID("1")
	require.True(t, ok)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, before.Date, got.Date)
	require.Len(t, got.Exercises, 1)
	assert.Equal(t, 200.0, got.Exercises[0].Sets[0].Weight)
	assert.Equal(t, got, decode[models.Workout](t, rec))
}

func TestUpdateWorkoutErrors(t *testing.T) {
	s, st, slot := newTestServer(t)
	before := st.Workouts()

	rec := do(t, s, http.MethodPut, "/api/v1/workouts/missing", `{"name":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/v1/workouts/1", `{"id":"2","name":"mismatch"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPut, "/api/v1/workouts/1", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, before, st.Workouts())
	assert.Equal(t, 0, slot.Writes())
}

// TestDeleteWorkout verifies DELETE returns 204 for known and unknown ids.
func TestDeleteWorkout(t *testing.T) {
	s, st, _ := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/api/v1/workouts/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, st.Count())

	rec = do(t, s, http.MethodDelete, "/api/v1/workouts/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, st.Count())

	rec = do(t, s, http.MethodGet, "/api/v1/workouts/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExerciseStats(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/stats/exercise?name=Squat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[views.ExerciseProgress](t, rec)
	assert.Equal(t, []string{"1/3/2024", "1/9/2024"}, got.Dates)
	assert.Equal(t, []float64{175, 175}, got.Weights)
	assert.Equal(t, []int{10, 12}, got.Reps)

	rec = do(t, s, http.MethodGet, "/api/v1/stats/exercise", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMuscleGroupEndpoints(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/stats/muscle-groups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	totals := decode[[]views.MuscleGroupCount](t, rec)
	require.NotEmpty(t, totals)
	assert.Equal(t, views.MuscleGroupCount{Name: "Legs", Value: 4}, totals[0])

	rec = do(t, s, http.MethodGet, "/api/v1/muscle-groups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"Legs", "Chest", "Back", "Shoulders", "Arms"}, decode[[]string](t, rec))
}

func TestWeeklyVolume(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/stats/volume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]views.WeekVolume](t, rec)
	// Jan 3 falls in the week of Dec 31; Jan 7 and Jan 9 in the week of Jan 7.
	require.Len(t, got, 2)
	assert.Equal(t, "Dec 31", got[0].Week)
	assert.Equal(t, "Jan 7", got[1].Week)
	assert.Greater(t, got[1].Volume, got[0].Volume)
}

// TestImport verifies bulk import, the import log and the malformed-document status.
func TestImport(t *testing.T) {
	s, st, _ := newTestServer(t)

	body := `[
		{"id":"1","name":"dup","date":"2024-01-01T00:00:00Z","exercises":[]},
		{"id":"x","name":"new","date":"2024-01-02T00:00:00Z","exercises":[]},
		{"id":"","name":"bad","date":"2024-01-02T00:00:00Z"}
	]`
	rec := do(t, s, http.MethodPost, "/api/v1/import?source=browser", body)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[importer.Stats](t, rec)
	assert.Equal(t, 3, stats.Received)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Quarantined)
	assert.Equal(t, 4, st.Count())

	rec = do(t, s, http.MethodPost, "/api/v1/import", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/imports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]storage.ImportLog](t, rec)
	require.Len(t, logs, 2)
	assert.Equal(t, "error", logs[0].Status)
	assert.NotNil(t, logs[0].ErrorMessage)
	assert.Equal(t, "browser", logs[1].Source)
	assert.Equal(t, 1, logs[1].Imported)
}

func TestImportDryRun(t *testing.T) {
	s, st, slot := newTestServer(t, store.WithoutSeed())

	rec := do(t, s, http.MethodPost, "/api/v1/import?dry_run=true",
		`[{"id":"x","date":"2024-01-02T00:00:00Z"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[importer.Stats](t, rec).Imported)
	assert.Equal(t, 0, st.Count())
	assert.Equal(t, 0, slot.Writes())
}

// TestImportCSV verifies Alpha Progression exports are converted by content
// type or ?format=alpha, and that broken CSV is a client error.
func TestImportCSV(t *testing.T) {
	s, st, _ := newTestServer(t, store.WithoutSeed())

	csv := "\"Push\";\"2024-01-02 18:30 h\";\"1:00 hr\"\n" +
		"\"1. Bench Press · Barbell · 6 reps\"\n#;KG;REPS;RIR\n1;100;6;1\n2;102,5;5;0\n"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv; charset=utf-8")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[importer.Stats](t, rec).Imported)

	ws := st.Workouts()
	require.Len(t, ws, 1)
	assert.Equal(t, "Push", ws[0].Name)
	assert.Equal(t, "Chest", ws[0].Exercises[0].MuscleGroup)
	assert.Len(t, ws[0].Exercises[0].Sets, 2)

	rec = do(t, s, http.MethodPost, "/api/v1/import?format=alpha", csv)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[importer.Stats](t, rec).Duplicates)

	rec = do(t, s, http.MethodPost, "/api/v1/import?format=alpha", "1;100;6;1\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestImportConcurrent verifies parallel imports each land one import log entry.
func TestImportConcurrent(t *testing.T) {
	s, st, _ := newTestServer(t, store.WithoutSeed())

	const n = 20
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`[{"id":"w%d","name":"W","date":"2024-01-02T00:00:00Z","exercises":[]}]`, i)
			rec := do(t, s, http.MethodPost, fmt.Sprintf("/api/v1/import?source=s%d", i), body)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, st.Count())
	logs, err := storage.QueryImportLogs(context.Background(), st.Slot(), st.ImportLogKey(), storage.MaxImportLogs)
	require.NoError(t, err)
	require.Len(t, logs, n)

	sources := make(map[string]bool)
	for _, l := range logs {
		sources[l.Source] = true
		assert.Equal(t, 1, l.Imported)
	}
	assert.Len(t, sources, n)
}

// TestImportTooLarge verifies an oversized body is 413 for JSON and CSV alike.
func TestImportTooLarge(t *testing.T) {
	s, st, _ := newTestServer(t, store.WithoutSeed())
	body := strings.Repeat("\n", maxImportBytes+1)

	for _, target := range []string{"/api/v1/import", "/api/v1/import?format=alpha"} {
		t.Run(target, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, target, body)
			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 0, st.Count())
}

// TestListWorkoutsLocation verifies date-only bounds are calendar days in the
// server's zone.
func TestListWorkoutsLocation(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(context.Background(), storage.NewMemory(), log, store.WithoutSeed())
	require.NoError(t, err)
	_, _, err = st.Import(context.Background(), []models.Workout{
		// Jan 8, 08:00 in UTC+10.
		{ID: "late", Name: "Late", Date: time.Date(2024, 1, 7, 22, 0, 0, 0, time.UTC), Exercises: []models.Exercise{}},
	})
	require.NoError(t, err)

	s := New(st, time.FixedZone("AEST", 10*3600), log)
	rec := do(t, s, http.MethodGet, "/api/v1/workouts?start=2024-01-08&end=2024-01-08", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]models.Workout](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].ID)

	rec = do(t, s, http.MethodGet, "/api/v1/workouts?start=2024-01-07&end=2024-01-07", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Workout](t, rec))
}

// TestQuarantine verifies records set aside at load are listed.
func TestQuarantine(t *testing.T) {
	slot := storage.NewMemory()
	require.NoError(t, slot.Put(context.Background(), store.DefaultKey,
		[]byte(`[{"id":"ok","date":"2024-01-01T00:00:00Z"},{"id":"bad"}]`)))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(context.Background(), slot, log)
	require.NoError(t, err)
	s := New(st, nil, log)

	rec := do(t, s, http.MethodGet, "/api/v1/quarantine", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]models.QuarantinedRecord](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "bad", got[0].ID)
	assert.Equal(t, "missing date", got[0].Reason)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)
	do(t, s, http.MethodGet, "/api/v1/workouts", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ironlog_store_workouts")
	assert.Contains(t, rec.Body.String(), "ironlog_http_request_duration_seconds")
}

func TestMount(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.Mount("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := do(t, s, http.MethodPost, "/mcp", "{}")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

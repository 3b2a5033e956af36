package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/store"
	"github.com/claude/ironlog/internal/views"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	ws := s.store.Workouts()

	q := r.URL.Query()
	if q.Get("start") == "" && q.Get("end") == "" {
		writeJSON(w, http.StatusOK, ws)
		return
	}

	start, end, err := parseTimeRange(r, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, views.WorkoutsByDateRange(ws, start, end))
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	var in models.WorkoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	workout, err := s.store.AddWorkout(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, workout)
}

func (s *Server) handleRecentWorkouts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", views.DefaultRecentLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, views.RecentWorkouts(s.store.Workouts(), limit))
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	workout, ok := s.store.GetWorkoutByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var workout models.Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if workout.ID == "" {
		workout.ID = id
	}
	if workout.ID != id {
		writeError(w, http.StatusBadRequest, "workout id does not match path")
		return
	}

	existing, ok := s.store.GetWorkoutByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}
	if workout.Date.IsZero() {
		workout.Date = existing.Date
	}

	found, err := s.store.UpdateWorkout(r.Context(), workout)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, store.ErrNotFound.Error())
		return
	}

	updated, _ := s.store.GetWorkoutByID(id)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.DeleteWorkout(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExerciseStats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "name parameter required")
		return
	}
	writeJSON(w, http.StatusOK, views.ExerciseStats(s.store.Workouts(), name, s.loc))
}

func (s *Server) handleMuscleGroupTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, views.TotalWorkoutsByMuscleGroup(s.store.Workouts()))
}

func (s *Server) handleWeeklyVolume(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, views.TotalVolumeByWeek(s.store.Workouts(), s.loc))
}

func (s *Server) handleMuscleGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, views.MuscleGroups(s.store.Workouts()))
}

func (s *Server) handleQuarantine(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Quarantined())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, v)
	}
	return n, nil
}

// parseTimeRange reads start/end query parameters as RFC 3339 or YYYY-MM-DD.
// A missing bound is open; a date-only end covers that whole day. Date-only
// bounds are calendar days in loc.
func parseTimeRange(r *http.Request, loc *time.Location) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr != "" {
		start, _, err = parseTime(startStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
		}
	}

	if endStr == "" {
		end = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
	} else {
		var dateOnly bool
		end, dateOnly, err = parseTime(endStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		if dateOnly {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end before start")
	}
	return start, end, nil
}

func parseTime(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	t, err = time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, false, nil
	}
	t, err = time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/claude/ironlog/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  *store.Store
	loc    *time.Location
	log    *slog.Logger
	router chi.Router

	importLogMu sync.Mutex // serializes read-prepend-write of the import log
}

// New creates a new Server with all routes configured. loc is the zone used
// for week boundaries and display dates in the stats endpoints.
func New(st *store.Store, loc *time.Location, log *slog.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{
		store:  st,
		loc:    loc,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Mount attaches an additional handler, such as the MCP endpoint, under pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

func (s *Server) routes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/workouts", func(r chi.Router) {
			r.Get("/", s.handleListWorkouts)
			r.Post("/", s.handleCreateWorkout)
			r.Get("/recent", s.handleRecentWorkouts)
			r.Get("/{id}", s.handleGetWorkout)
			r.Put("/{id}", s.handleUpdateWorkout)
			r.Delete("/{id}", s.handleDeleteWorkout)
		})

		r.Post("/import", s.handleImport)
		r.Get("/imports", s.handleImportLogs)
		r.Get("/quarantine", s.handleQuarantine)

		r.Get("/stats/exercise", s.handleExerciseStats)
		r.Get("/stats/muscle-groups", s.handleMuscleGroupTotals)
		r.Get("/stats/volume", s.handleWeeklyVolume)
		r.Get("/muscle-groups", s.handleMuscleGroups)
	})
}

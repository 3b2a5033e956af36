// Package store holds the canonical workout list and keeps it mirrored to a
// persistence slot.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/observability"
	"github.com/claude/ironlog/internal/storage"
	"github.com/google/uuid"
)

// DefaultKey is the slot key holding the serialized workout list.
const DefaultKey = "workouts"

// ErrNotFound is returned by lookups for an id the store doesn't hold.
var ErrNotFound = errors.New("workout not found")

// Store is the single owner of the workout list. Every mutation writes the
// whole list to the slot before returning.
type Store struct {
	mu          sync.RWMutex
	slot        storage.Slot
	key         string
	log         *slog.Logger
	now         func() time.Time
	newID       func() string
	seed        bool
	workouts    []models.Workout
	quarantined []models.QuarantinedRecord
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the slot key (default "workouts").
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithClock overrides the time source used for new workout dates and seed data.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id generator (default uuid.NewString).
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithoutSeed starts an empty slot with no workouts instead of the examples.
func WithoutSeed() Option {
	return func(s *Store) { s.seed = false }
}

// Open creates a Store and hydrates it from the slot. An absent slot value
// seeds the example workouts; a value that isn't a JSON array is an error.
func Open(ctx context.Context, slot storage.Slot, log *slog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		slot:  slot,
		key:   DefaultKey,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
		seed:  true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	data, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("reading slot: %w", err)
	}

	if !ok {
		if s.seed {
			s.workouts = SeedWorkouts(s.now())
		} else {
			s.workouts = []models.Workout{}
		}
		s.log.Info("slot empty, starting from defaults", "key", s.key, "workouts", len(s.workouts))
		observability.SetWorkouts(len(s.workouts))
		return nil
	}

	workouts, quarantined, err := models.DecodeWorkouts(data)
	if err != nil {
		return fmt.Errorf("decoding slot %s: %w", s.key, err)
	}
	s.workouts = workouts
	s.quarantined = quarantined

	if len(quarantined) > 0 {
		for _, q := range quarantined {
			s.log.Warn("quarantined stored workout", "index", q.Index, "id", q.ID, "reason", q.Reason)
		}
		qdata, err := models.EncodeQuarantine(quarantined)
		if err != nil {
			return err
		}
		if err := s.slot.Put(ctx, s.QuarantineKey(), qdata); err != nil {
			return fmt.Errorf("writing quarantine: %w", err)
		}
	}

	s.log.Info("workouts loaded", "key", s.key, "workouts", len(workouts), "quarantined", len(quarantined))
	observability.SetWorkouts(len(s.workouts))
	observability.SetQuarantined(len(s.quarantined))
	return nil
}

// Key returns the slot key the list is stored under.
func (s *Store) Key() string { return s.key }

// QuarantineKey returns the companion key holding quarantined raw records.
func (s *Store) QuarantineKey() string { return s.key + ".quarantine" }

// ImportLogKey returns the companion key holding the import log.
func (s *Store) ImportLogKey() string { return s.key + ".imports" }

// Slot returns the underlying persistence slot.
func (s *Store) Slot() storage.Slot { return s.slot }

// Workouts returns a deep copy of the current list in stored order.
func (s *Store) Workouts() []models.Workout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneWorkouts(s.workouts)
}

// Count returns the number of stored workouts.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workouts)
}

// Quarantined returns the records set aside at load.
func (s *Store) Quarantined() []models.QuarantinedRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.QuarantinedRecord{}, s.quarantined...)
}

// GetWorkoutByID returns the workout with id; ok is false if there is none.
func (s *Store) GetWorkoutByID(id string) (models.Workout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.workouts[i].Clone(), true
	}
	return models.Workout{}, false
}

// AddWorkout assigns a fresh id and the current time, appends and persists.
// The workout is kept even when the slot write fails.
func (s *Store) AddWorkout(ctx context.Context, in models.WorkoutInput) (models.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := models.Workout{
		ID:        s.newID(),
		Name:      in.Name,
		Date:      s.now().UTC().Truncate(time.Millisecond),
		Notes:     in.Notes,
		Exercises: in.Exercises,
	}
	if w.Exercises == nil {
		w.Exercises = []models.Exercise{}
	}
	w = w.Clone()
	s.workouts = append(s.workouts, w)

	observability.RecordMutation("add")
	return w.Clone(), s.persist(ctx)
}

// UpdateWorkout replaces the stored workout with the same id. An unknown id
// leaves the list unchanged and is not an error; found reports whether an
// entry was replaced. The list is persisted either way.
func (s *Store) UpdateWorkout(ctx context.Context, w models.Workout) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(w.ID); i >= 0 {
		s.workouts[i] = w.Clone()
		found = true
	}

	observability.RecordMutation("update")
	return found, s.persist(ctx)
}

// DeleteWorkout removes the workout with id, if present, and persists.
func (s *Store) DeleteWorkout(ctx context.Context, id string) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.workouts = append(s.workouts[:i], s.workouts[i+1:]...)
		found = true
	}

	observability.RecordMutation("delete")
	return found, s.persist(ctx)
}

// Import appends workouts whose ids aren't stored yet, keeping their ids and
// dates, and persists once for the whole batch.
func (s *Store) Import(ctx context.Context, ws []models.Workout) (imported, duplicates int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range ws {
		if s.indexOf(w.ID) >= 0 {
			duplicates++
			continue
		}
		s.workouts = append(s.workouts, w.Clone())
		imported++
	}
	if imported == 0 {
		return 0, duplicates, nil
	}

	observability.RecordMutation("import")
	return imported, duplicates, s.persist(ctx)
}

func (s *Store) indexOf(id string) int {
	for i := range s.workouts {
		if s.workouts[i].ID == id {
			return i
		}
	}
	return -1
}

// persist writes the full list to the slot. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) error {
	observability.SetWorkouts(len(s.workouts))

	data, err := models.EncodeWorkouts(s.workouts)
	if err != nil {
		return err
	}
	err = s.slot.Put(ctx, s.key, data)
	observability.RecordSlotWrite(err)
	if err != nil {
		s.log.Error("slot write failed", "key", s.key, "error", err)
		return fmt.Errorf("persisting workouts: %w", err)
	}
	s.log.Debug("slot written", "key", s.key, "workouts", len(s.workouts), "bytes", len(data))
	return nil
}

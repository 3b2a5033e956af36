package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/store"
)

// ErrStore marks failures to persist imported workouts, as opposed to
// problems with the export itself.
var ErrStore = errors.New("storing imported workouts")

// ErrMalformedCSV is returned when a CSV export can't be parsed.
var ErrMalformedCSV = errors.New("malformed csv export")

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int `json:"filesProcessed,omitempty"`
	FilesErrored   int `json:"filesErrored,omitempty"`

	Received    int `json:"received"`
	Imported    int `json:"imported"`
	Duplicates  int `json:"duplicates"`
	Quarantined int `json:"quarantined"`

	Rejected []models.QuarantinedRecord `json:"rejected,omitempty"`
}

// Importer loads exported workout lists into a Store. A JSON export has the
// same format as the persistence slot, so a browser's saved value imports
// verbatim. Alpha Progression CSV exports are converted first.
type Importer struct {
	store  *store.Store
	loc    *time.Location
	log    *slog.Logger
	dryRun bool
	stats  Stats

	// dry runs write nothing, so ids already counted as imported are kept here
	seen map[string]bool
}

// New creates a new Importer. loc is the zone CSV session times are read in.
// With dryRun set nothing is written; the stats report what would have been
// imported.
func New(st *store.Store, loc *time.Location, log *slog.Logger, dryRun bool) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	return &Importer{store: st, loc: loc, log: log, dryRun: dryRun, seen: make(map[string]bool)}
}

// Stats returns the totals accumulated so far.
func (imp *Importer) Stats() *Stats {
	return &imp.stats
}

// Import reads one export document from r. A document that isn't a JSON array
// is rejected as a whole; invalid elements are counted as quarantined and skipped.
func (imp *Importer) Import(ctx context.Context, r io.Reader) (*Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading export: %w", err)
	}

	workouts, quarantined, err := models.DecodeWorkouts(data)
	if err != nil {
		return &imp.stats, err
	}
	return imp.add(ctx, workouts, quarantined)
}

// ImportCSV converts an Alpha Progression CSV export and imports its sessions.
func (imp *Importer) ImportCSV(ctx context.Context, r io.Reader) (*Stats, error) {
	workouts, err := ParseAlphaCSV(r, imp.loc)
	if err != nil {
		return &imp.stats, fmt.Errorf("%w: %w", ErrMalformedCSV, err)
	}
	return imp.add(ctx, workouts, nil)
}

func (imp *Importer) add(ctx context.Context, workouts []models.Workout, quarantined []models.QuarantinedRecord) (*Stats, error) {
	for _, q := range quarantined {
		imp.log.Warn("skipping invalid workout", "index", q.Index, "id", q.ID, "reason", q.Reason)
	}

	imp.stats.Received += len(workouts) + len(quarantined)
	imp.stats.Quarantined += len(quarantined)
	imp.stats.Rejected = append(imp.stats.Rejected, quarantined...)

	if imp.dryRun {
		for _, w := range workouts {
			if _, ok := imp.store.GetWorkoutByID(w.ID); ok || imp.seen[w.ID] {
				imp.stats.Duplicates++
				continue
			}
			imp.seen[w.ID] = true
			imp.stats.Imported++
		}
		return &imp.stats, nil
	}

	imported, duplicates, err := imp.store.Import(ctx, workouts)
	imp.stats.Imported += imported
	imp.stats.Duplicates += duplicates
	if err != nil {
		return &imp.stats, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return &imp.stats, nil
}

// ImportFile imports a single export file (.json, .json.gz or .csv).
func (imp *Importer) ImportFile(ctx context.Context, path string) (*Stats, error) {
	f, err := OpenExport(path)
	if err != nil {
		return &imp.stats, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	importFn := imp.Import
	if IsAlphaCSV(path) {
		importFn = imp.ImportCSV
	}
	if _, err := importFn(ctx, f); err != nil {
		return &imp.stats, fmt.Errorf("importing %s: %w", filepath.Base(path), err)
	}
	imp.stats.FilesProcessed++
	return &imp.stats, nil
}

// ImportDir imports every export file directly under dir in name order. Files
// that fail to parse are logged and counted; a storage error stops the run.
func (imp *Importer) ImportDir(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsExportFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		before := imp.stats.Imported
		if _, err := imp.ImportFile(ctx, f); err != nil {
			if errors.Is(err, ErrStore) {
				return &imp.stats, err
			}
			imp.log.Warn("import failed", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		imp.log.Info("imported file", "file", filepath.Base(f), "workouts", imp.stats.Imported-before)
	}
	return &imp.stats, nil
}

// IsExportFile reports whether name looks like a workout export.
func IsExportFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz") || IsAlphaCSV(name)
}

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/claude/ironlog/internal/importer"
	"github.com/claude/ironlog/internal/models"
	"golang.org/x/time/rate"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	WorkoutsSent     int
	WorkoutsImported int
	Duplicates       int
	Quarantined      int
}

// Uploader walks an export directory and POSTs every new or changed export
// file to the ironlog server.
type Uploader struct {
	client  *Client
	state   *StateDB
	dir     string
	dryRun  bool
	limiter *rate.Limiter
	log     *slog.Logger
	stats   Stats
}

// New creates a new Uploader. perSecond caps how many files are sent per
// second; zero or less means unlimited.
func New(client *Client, state *StateDB, dir string, dryRun bool, perSecond float64, log *slog.Logger) *Uploader {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Uploader{
		client:  client,
		state:   state,
		dir:     dir,
		dryRun:  dryRun,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
	}
}

// fileInfo tracks a file's metadata for state DB operations.
type fileInfo struct {
	path    string
	relPath string
	size    int64
	hash    string
}

// Run uploads every export file under the directory, in path order. Files
// that can't be read or are rejected by the server are logged and counted;
// a server that stays unreachable after retries stops the run.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := u.findExports()
	if err != nil {
		return &u.stats, err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		u.stats.FilesTotal++

		fi, skip, err := u.check(ctx, path)
		if err != nil {
			u.log.Warn("state check failed", "file", path, "error", err)
			u.stats.FilesErrored++
			continue
		}
		if skip {
			u.stats.FilesSkipped++
			continue
		}

		if err := u.uploadFile(ctx, fi); err != nil {
			if _, ok := err.(*permanentError); ok {
				u.log.Warn("upload rejected", "file", fi.relPath, "error", err)
				u.stats.FilesErrored++
				continue
			}
			return &u.stats, fmt.Errorf("uploading %s: %w", fi.relPath, err)
		}
	}

	return &u.stats, nil
}

func (u *Uploader) findExports() ([]string, error) {
	var files []string
	err := filepath.WalkDir(u.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && importer.IsExportFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", u.dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// check hashes a file and reports whether the state db already has it.
func (u *Uploader) check(ctx context.Context, path string) (fileInfo, bool, error) {
	relPath, _ := filepath.Rel(u.dir, path)
	info, err := os.Stat(path)
	if err != nil {
		return fileInfo{}, false, err
	}

	hash, err := HashFile(path)
	if err != nil {
		return fileInfo{}, false, err
	}

	fi := fileInfo{path: path, relPath: relPath, size: info.Size(), hash: hash}
	uploaded, err := u.state.IsUploaded(ctx, relPath, info.Size(), hash)
	return fi, uploaded, err
}

func (u *Uploader) uploadFile(ctx context.Context, fi fileInfo) error {
	data, err := readExport(fi.path)
	if err != nil {
		return &permanentError{err}
	}

	// Validate locally so a broken file never reaches the server.
	contentType := ContentTypeJSON
	var workouts []models.Workout
	var quarantined []models.QuarantinedRecord
	if importer.IsAlphaCSV(fi.path) {
		contentType = ContentTypeCSV
		workouts, err = importer.ParseAlphaCSV(bytes.NewReader(data), time.UTC)
	} else {
		workouts, quarantined, err = models.DecodeWorkouts(data)
	}
	if err != nil {
		return &permanentError{err}
	}

	if u.dryRun {
		u.log.Info("dry-run: would send",
			"file", fi.relPath,
			"workouts", len(workouts),
			"invalid", len(quarantined),
		)
		u.stats.WorkoutsSent += len(workouts)
		u.stats.Quarantined += len(quarantined)
		return nil
	}

	if err := u.limiter.Wait(ctx); err != nil {
		return err
	}

	result, err := u.client.SendExport(ctx, data, contentType, "upload:"+fi.relPath)
	if err != nil {
		return err
	}

	u.stats.FilesUploaded++
	u.stats.WorkoutsSent += len(workouts)
	u.stats.WorkoutsImported += result.Imported
	u.stats.Duplicates += result.Duplicates
	u.stats.Quarantined += result.Quarantined

	if err := u.state.MarkUploaded(ctx, fi.relPath, fi.size, fi.hash, result.Imported); err != nil {
		u.log.Warn("failed to mark uploaded", "file", fi.relPath, "error", err)
	}

	u.log.Info("uploaded export",
		"file", fi.relPath,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
	)
	return nil
}

func readExport(path string) ([]byte, error) {
	f, err := importer.OpenExport(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

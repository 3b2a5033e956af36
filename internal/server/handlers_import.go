package server

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/claude/ironlog/internal/importer"
	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/storage"
)

// maxImportBytes caps the size of an import request body.
const maxImportBytes = 32 << 20

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dryRun := r.URL.Query().Get("dry_run") == "true"
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "api"
	}

	imp := importer.New(s.store, s.loc, s.log, dryRun)
	importFn := imp.Import
	if isCSV(r) {
		importFn = imp.ImportCSV
	}
	stats, err := importFn(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if !dryRun {
		s.logImport(source, stats, err, int(time.Since(start).Milliseconds()))
	}

	if err != nil {
		s.log.Error("import error", "source", source, "error", err)
		status := http.StatusInternalServerError
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, models.ErrMalformedDocument), errors.Is(err, importer.ErrMalformedCSV):
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	s.log.Info("import complete",
		"source", source,
		"dry_run", dryRun,
		"received", stats.Received,
		"imported", stats.Imported,
		"duplicates", stats.Duplicates,
		"quarantined", stats.Quarantined,
	)
	writeJSON(w, http.StatusOK, stats)
}

// isCSV reports whether the request carries an Alpha Progression CSV export,
// either by content type or by ?format=alpha.
func isCSV(r *http.Request) bool {
	if r.URL.Query().Get("format") == "alpha" {
		return true
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "text/csv"
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", storage.MaxImportLogs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := storage.QueryImportLogs(r.Context(), s.store.Slot(), s.store.ImportLogKey(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// logImport records an import's outcome in the import log next to the workout list.
func (s *Server) logImport(source string, stats *importer.Stats, importErr error, durationMs int) {
	entry := storage.ImportLog{
		CreatedAt:   time.Now().UTC(),
		Source:      source,
		Status:      "success",
		Received:    stats.Received,
		Imported:    stats.Imported,
		Duplicates:  stats.Duplicates,
		Quarantined: stats.Quarantined,
		DurationMs:  durationMs,
	}
	if importErr != nil {
		entry.Status = "error"
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}

	// The request context may already be cancelled; the log entry should still land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.importLogMu.Lock()
	defer s.importLogMu.Unlock()
	if err := storage.AppendImportLog(ctx, s.store.Slot(), s.store.ImportLogKey(), entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

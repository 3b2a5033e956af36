package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ImportLog represents a single import operation's outcome.
type ImportLog struct {
	CreatedAt    time.Time `json:"createdAt"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Received     int       `json:"received"`
	Imported     int       `json:"imported"`
	Duplicates   int       `json:"duplicates"`
	Quarantined  int       `json:"quarantined"`
	DurationMs   int       `json:"durationMs"`
	ErrorMessage *string   `json:"errorMessage,omitempty"`
}

// MaxImportLogs caps how many entries AppendImportLog keeps.
const MaxImportLogs = 50

// AppendImportLog prepends an entry to the import log kept under key,
// dropping the oldest entries beyond MaxImportLogs.
func AppendImportLog(ctx context.Context, slot Slot, key string, entry ImportLog) error {
	logs, err := QueryImportLogs(ctx, slot, key, MaxImportLogs)
	if err != nil {
		return err
	}

	logs = append([]ImportLog{entry}, logs...)
	if len(logs) > MaxImportLogs {
		logs = logs[:MaxImportLogs]
	}

	data, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("encoding import logs: %w", err)
	}
	return slot.Put(ctx, key, data)
}

// QueryImportLogs returns up to limit of the most recent import logs, newest first.
func QueryImportLogs(ctx context.Context, slot Slot, key string, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = MaxImportLogs
	}

	data, ok, err := slot.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []ImportLog{}, nil
	}

	var logs []ImportLog
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, fmt.Errorf("decoding import logs: %w", err)
	}
	if len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

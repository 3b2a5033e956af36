package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedDocument is returned when a stored slot value is not a JSON array.
var ErrMalformedDocument = errors.New("malformed workout document")

// QuarantinedRecord is a stored element that failed validation at decode time.
type QuarantinedRecord struct {
	Index  int             `json:"index"`
	ID     string          `json:"id,omitempty"`
	Reason string          `json:"reason"`
	Raw    json.RawMessage `json:"raw"`
}

// storedWorkout mirrors Workout with the date left as text so a bad
// timestamp quarantines one record instead of failing the whole document.
type storedWorkout struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Date      string     `json:"date"`
	Notes     string     `json:"notes"`
	Exercises []Exercise `json:"exercises"`
}

// DecodeWorkouts parses a serialized workout list. Elements that don't match the
// workout shape are returned as quarantined records rather than failing the decode.
func DecodeWorkouts(data []byte) ([]Workout, []QuarantinedRecord, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	workouts := make([]Workout, 0, len(raws))
	var quarantined []QuarantinedRecord
	seen := make(map[string]bool, len(raws))

	for i, raw := range raws {
		w, reason := decodeWorkout(raw)
		if reason == "" && seen[w.ID] {
			reason = "duplicate id"
		}
		if reason != "" {
			quarantined = append(quarantined, QuarantinedRecord{
				Index:  i,
				ID:     w.ID,
				Reason: reason,
				Raw:    append(json.RawMessage(nil), raw...),
			})
			continue
		}
		seen[w.ID] = true
		workouts = append(workouts, w)
	}

	return workouts, quarantined, nil
}

func decodeWorkout(raw json.RawMessage) (Workout, string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Workout{}, "not an object"
	}

	var sw storedWorkout
	if err := json.Unmarshal(raw, &sw); err != nil {
		return Workout{}, "invalid shape: " + err.Error()
	}
	if sw.ID == "" {
		return Workout{}, "missing id"
	}
	if sw.Date == "" {
		return Workout{ID: sw.ID}, "missing date"
	}
	date, err := time.Parse(time.RFC3339Nano, sw.Date)
	if err != nil {
		return Workout{ID: sw.ID}, "invalid date: " + sw.Date
	}

	w := Workout{
		ID:        sw.ID,
		Name:      sw.Name,
		Date:      date.UTC(),
		Notes:     sw.Notes,
		Exercises: sw.Exercises,
	}
	if w.Exercises == nil {
		w.Exercises = []Exercise{}
	}
	for i := range w.Exercises {
		if w.Exercises[i].Sets == nil {
			w.Exercises[i].Sets = []Set{}
		}
	}
	return w, ""
}

// EncodeWorkouts serializes the full list in slot format.
func EncodeWorkouts(ws []Workout) ([]byte, error) {
	if ws == nil {
		ws = []Workout{}
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return nil, fmt.Errorf("encoding workouts: %w", err)
	}
	return data, nil
}

// EncodeQuarantine serializes quarantined records for the companion slot key.
func EncodeQuarantine(records []QuarantinedRecord) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding quarantine: %w", err)
	}
	return data, nil
}

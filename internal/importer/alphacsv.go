package importer

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
)

// Alpha Progression exports sessions as semicolon-separated blocks:
//
//	"Legs · Day 2";"2026-02-19 4:54 h";"1:02 hr"
//	"1. Hack Squats · Machine · 8 reps";"WU1 · 37,5 kg · 9 reps"
//	#;KG;REPS;RIR
//	1;115;8;1
//
// Sessions are separated by a blank line. Weights use a decimal comma and
// bodyweight exercises prefix the added load with "+".
var (
	sessionHeaderRe  = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)
	setDataRe        = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)
	columnHeaderRe   = regexp.MustCompile(`^#;KG;REPS;RIR$`)
)

// alphaNamespace scopes the name-based ids of converted sessions, so importing
// the same CSV twice yields the same ids and the second run only counts
// duplicates.
var alphaNamespace = uuid.MustParse("5b0c7f0e-3c1a-4b7e-9a52-6f1d2e8c4a90")

// maxCSVLine bounds a single line; exercise notes can run long.
const maxCSVLine = 1 << 20

// IsAlphaCSV reports whether name looks like an Alpha Progression export.
func IsAlphaCSV(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}

// ParseAlphaCSV converts an Alpha Progression CSV export into workouts.
// Session times carry no zone and are read in loc. Warmup sets are dropped;
// working sets are recorded as completed.
func ParseAlphaCSV(r io.Reader, loc *time.Location) ([]models.Workout, error) {
	if loc == nil {
		loc = time.UTC
	}

	var (
		workouts []models.Workout
		current  *models.Workout
		exercise *models.Exercise
	)
	flushExercise := func() {
		if current != nil && exercise != nil {
			current.Exercises = append(current.Exercises, *exercise)
		}
		exercise = nil
	}
	flushSession := func() {
		flushExercise()
		if current != nil {
			workouts = append(workouts, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxCSVLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			flushSession()

		case columnHeaderRe.MatchString(line):

		case sessionHeaderRe.MatchString(line):
			m := sessionHeaderRe.FindStringSubmatch(line)
			flushSession()
			date, err := parseSessionDate(m[2], loc)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current = &models.Workout{
				ID:        uuid.NewSHA1(alphaNamespace, []byte(m[1]+"|"+date.Format(time.RFC3339))).String(),
				Name:      m[1],
				Date:      date,
				Notes:     "Alpha Progression · " + m[3],
				Exercises: []models.Exercise{},
			}

		case exerciseHeaderRe.MatchString(line):
			if current == nil {
				return nil, fmt.Errorf("line %d: exercise without session", lineNo)
			}
			m := exerciseHeaderRe.FindStringSubmatch(line)
			flushExercise()
			name := strings.TrimSpace(m[2])
			exercise = &models.Exercise{
				Name:        name,
				MuscleGroup: guessMuscleGroup(name),
				Sets:        []models.Set{},
			}

		case setDataRe.MatchString(line):
			if exercise == nil {
				return nil, fmt.Errorf("line %d: set data without exercise", lineNo)
			}
			m := setDataRe.FindStringSubmatch(line)
			reps, _ := strconv.Atoi(m[3])
			exercise.Sets = append(exercise.Sets, models.Set{
				Weight:    parseWeight(m[2]),
				Reps:      reps,
				Completed: true,
			})

		default:
			// notes and other metadata
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	flushSession()

	return workouts, nil
}

// parseSessionDate accepts both "2026-02-19 4:54" and "2026-02-19 16:54".
func parseSessionDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse session date %q", s)
}

// parseWeight handles decimal commas and bodyweight-plus notation:
// "102,5" -> 102.5, "+35" -> 35.
func parseWeight(s string) float64 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	f, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return f
}

// muscleKeywords maps exercise name fragments to the muscle groups used by
// the built-in examples. First match wins.
var muscleKeywords = []struct {
	keyword string
	group   string
}{
	{"leg raise", "Core"},
	{"crunch", "Core"},
	{"plank", "Core"},
	{"hyperextension", "Back"},
	{"squat", "Legs"},
	{"lunge", "Legs"},
	{"leg ", "Legs"},
	{"calf", "Legs"},
	{"deadlift", "Back"},
	{"row", "Back"},
	{"pull", "Back"},
	{"chin-up", "Back"},
	{"lat ", "Back"},
	{"bench", "Chest"},
	{"chest", "Chest"},
	{"fly", "Chest"},
	{"dip", "Chest"},
	{"push-up", "Chest"},
	{"shoulder", "Shoulders"},
	{"overhead", "Shoulders"},
	{"lateral", "Shoulders"},
	{"raise", "Shoulders"},
	{"curl", "Arms"},
	{"tricep", "Arms"},
	{"extension", "Arms"},
}

func guessMuscleGroup(name string) string {
	lower := strings.ToLower(name) + " "
	for _, k := range muscleKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.group
		}
	}
	return "Other"
}

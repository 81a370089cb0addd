package hevy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/models"
)

// exportTimeLayout is the timestamp format of the Hevy workout CSV export,
// e.g. "10 Mar 2026, 18:04".
const exportTimeLayout = "2 Jan 2006, 15:04"

const lbsToKg = 0.45359237

// exportNamespace seeds the ids of exported workouts, which carry none.
var exportNamespace = uuid.MustParse("5b1c8f0e-3d2a-4c7e-9a61-2f0d8e4b7c13")

// Export is a parsed Hevy workout CSV export. Workouts are oldest first.
type Export struct {
	Workouts []models.Workout
}

var requiredColumns = []string{"title", "start_time", "exercise_title", "set_type", "reps"}

// ParseExport reads a Hevy workout CSV export. Consecutive rows with the same
// title and start time form one workout; consecutive rows with the same
// exercise title form one exercise. Weights in weight_lbs are converted to kg.
func ParseExport(r io.Reader) (*Export, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var (
		workouts []models.Workout
		cur      *models.Workout
		line     = 1
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		title := field(rec, "title")
		start := field(rec, "start_time")
		if cur == nil || cur.ID != exportID(title, start) {
			started, err := time.Parse(exportTimeLayout, start)
			if err != nil {
				return nil, fmt.Errorf("line %d: start_time: %w", line, err)
			}
			w := models.Workout{
				ID:          exportID(title, start),
				Title:       title,
				Description: field(rec, "description"),
				StartTime:   started,
			}
			if end, err := time.Parse(exportTimeLayout, field(rec, "end_time")); err == nil {
				w.EndTime = end
			}
			workouts = append(workouts, w)
			cur = &workouts[len(workouts)-1]
		}

		set, err := parseExportSet(rec, field)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		exTitle := field(rec, "exercise_title")
		n := len(cur.Exercises)
		if n == 0 || cur.Exercises[n-1].Title != exTitle {
			cur.Exercises = append(cur.Exercises, models.RoutineExercise{
				Index: n,
				Title: exTitle,
				Notes: field(rec, "exercise_notes"),
			})
			n++
		}
		ex := &cur.Exercises[n-1]
		set.Index = len(ex.Sets)
		ex.Sets = append(ex.Sets, set)
	}

	sort.SliceStable(workouts, func(i, j int) bool {
		return workouts[i].StartTime.Before(workouts[j].StartTime)
	})
	return &Export{Workouts: workouts}, nil
}

func parseExportSet(rec []string, field func([]string, string) string) (models.ExerciseSet, error) {
	set := models.ExerciseSet{Type: models.SetType(strings.ToLower(field(rec, "set_type")))}
	if set.Type == "" {
		set.Type = models.SetTypeNormal
	}

	if s := field(rec, "reps"); s != "" {
		reps, err := strconv.Atoi(s)
		if err != nil {
			return set, fmt.Errorf("reps %q: %w", s, err)
		}
		set.Reps = models.IntPtr(reps)
	}

	switch kg, lbs := field(rec, "weight_kg"), field(rec, "weight_lbs"); {
	case kg != "":
		w, err := strconv.ParseFloat(kg, 64)
		if err != nil {
			return set, fmt.Errorf("weight_kg %q: %w", kg, err)
		}
		set.WeightKg = models.FloatPtr(w)
	case lbs != "":
		w, err := strconv.ParseFloat(lbs, 64)
		if err != nil {
			return set, fmt.Errorf("weight_lbs %q: %w", lbs, err)
		}
		set.WeightKg = models.FloatPtr(w * lbsToKg)
	}

	if s := field(rec, "rpe"); s != "" {
		if rpe, err := strconv.ParseFloat(s, 64); err == nil {
			set.RPE = models.FloatPtr(rpe)
		}
	}
	return set, nil
}

func exportID(title, start string) string {
	return uuid.NewSHA1(exportNamespace, []byte(title+"\x00"+start)).String()
}

// Since returns the workouts that started after t. A zero t returns all.
func (e *Export) Since(t time.Time) []models.Workout {
	var out []models.Workout
	for _, w := range e.Workouts {
		if t.IsZero() || w.StartTime.After(t) {
			out = append(out, w)
		}
	}
	return out
}

// Resolve fills in the template ids and routine ids the export lacks, so the
// workouts can be analyzed like ones fetched from the API. Exercises are
// matched to the program by name. A workout is assigned to a day when its
// title ends with the day name, or else when the day's T1 lift is logged
// before its T2 lift. It returns the number of workouts left unmatched.
func (e *Export) Resolve(p *gzclp.Program) int {
	byName := make(map[string]string, len(p.Exercises))
	for id, ex := range p.Exercises {
		byName[strings.ToLower(strings.TrimSpace(ex.Name))] = id
	}

	unmatched := 0
	for i := range e.Workouts {
		w := &e.Workouts[i]
		for j := range w.Exercises {
			ex := &w.Exercises[j]
			if ex.ExerciseTemplateID == "" {
				ex.ExerciseTemplateID = byName[strings.ToLower(ex.Title)]
			}
		}
		day, ok := matchDay(w, p)
		if !ok || p.Days[day] == "" {
			unmatched++
			continue
		}
		w.RoutineID = p.Days[day]
	}
	return unmatched
}

func matchDay(w *models.Workout, p *gzclp.Program) (gzclp.Day, bool) {
	title := strings.ToUpper(strings.TrimSpace(w.Title))
	for _, day := range gzclp.Days {
		if strings.HasSuffix(title, string(day)) {
			return day, true
		}
	}

	pos := make(map[string]int, len(w.Exercises))
	for i, ex := range w.Exercises {
		if _, seen := pos[ex.ExerciseTemplateID]; !seen && ex.ExerciseTemplateID != "" {
			pos[ex.ExerciseTemplateID] = i
		}
	}
	for _, day := range gzclp.Days {
		var t1, t2 = -1, -1
		for _, slot := range p.Slots(day) {
			i, ok := pos[slot.ExerciseID]
			if !ok {
				continue
			}
			switch slot.Tier {
			case gzclp.T1:
				t1 = i
			case gzclp.T2:
				t2 = i
			}
		}
		if t1 >= 0 && t2 >= 0 && t1 < t2 {
			return day, true
		}
	}
	return "", false
}

package hevy

import (
	"fmt"

	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/models"
	"github.com/meltforce/gzclp/internal/preview"
)

// RemoteSnapshot reduces the fetched routines to the per-day remote state the
// preview compares against. Days whose routine no longer exists have no
// remote routine.
func RemoteSnapshot(routines []models.Routine, days map[gzclp.Day]string) map[gzclp.Day]preview.RemoteDay {
	byID := make(map[string]models.Routine, len(routines))
	for _, r := range routines {
		byID[r.ID] = r
	}

	snap := make(map[gzclp.Day]preview.RemoteDay, len(days))
	for _, day := range gzclp.Days {
		id, ok := days[day]
		if !ok || id == "" {
			continue
		}
		r, ok := byID[id]
		if !ok {
			snap[day] = preview.RemoteDay{}
			continue
		}
		weights := make(map[string]float64)
		for _, ex := range r.Exercises {
			if _, seen := weights[ex.ExerciseTemplateID]; seen {
				continue
			}
			weights[ex.ExerciseTemplateID] = gzclp.ExtractWeight(ex.Sets)
		}
		snap[day] = preview.RemoteDay{RoutineID: id, Weights: weights}
	}
	return snap
}

// ApplyTargets rewrites the targeted exercises of a routine to their new
// weight and scheme. Warmup sets and untargeted exercises are kept as they
// are. Targets missing from the routine are appended.
func ApplyTargets(r models.Routine, targets []preview.Target) RoutineUpdate {
	byTemplate := make(map[string]preview.Target, len(targets))
	for _, t := range targets {
		byTemplate[t.TemplateID] = t
	}

	u := RoutineUpdate{Title: r.Title, FolderID: r.FolderID}
	applied := make(map[string]bool)
	for _, ex := range r.Exercises {
		ue := UpdateExercise{
			ExerciseTemplateID: ex.ExerciseTemplateID,
			SupersetID:         ex.SupersetID,
			RestSeconds:        ex.RestSeconds,
			Notes:              ex.Notes,
		}
		t, ok := byTemplate[ex.ExerciseTemplateID]
		if !ok || applied[ex.ExerciseTemplateID] {
			for _, s := range ex.Sets {
				ue.Sets = append(ue.Sets, UpdateSet{Type: s.Type, WeightKg: s.WeightKg, Reps: s.Reps, RepRange: s.RepRange})
			}
			u.Exercises = append(u.Exercises, ue)
			continue
		}

		for _, s := range ex.Sets {
			if s.Type == models.SetTypeWarmup {
				ue.Sets = append(ue.Sets, UpdateSet{Type: s.Type, WeightKg: s.WeightKg, Reps: s.Reps, RepRange: s.RepRange})
			}
		}
		ue.Sets = append(ue.Sets, WorkingSets(t)...)
		u.Exercises = append(u.Exercises, ue)
		applied[ex.ExerciseTemplateID] = true
	}

	for _, t := range targets {
		if applied[t.TemplateID] {
			continue
		}
		u.Exercises = append(u.Exercises, newExercise(t))
		applied[t.TemplateID] = true
	}
	return u
}

// BuildRoutine creates a routine for a day that has none remotely.
func BuildRoutine(day gzclp.Day, targets []preview.Target) RoutineUpdate {
	u := RoutineUpdate{Title: fmt.Sprintf("GZCLP %s", day)}
	for _, t := range targets {
		u.Exercises = append(u.Exercises, newExercise(t))
	}
	return u
}

func newExercise(t preview.Target) UpdateExercise {
	rest := restSeconds(t.Tier)
	return UpdateExercise{
		ExerciseTemplateID: t.TemplateID,
		RestSeconds:        &rest,
		Sets:               WorkingSets(t),
	}
}

// WorkingSets renders a target as normal sets. The AMRAP set also gets a rep
// range from the minimum to at least 10.
func WorkingSets(t preview.Target) []UpdateSet {
	sc := gzclp.SchemeFor(t.Tier, t.Stage)
	sets := make([]UpdateSet, 0, sc.Sets)
	for i := range sc.Sets {
		weight := t.WeightKg
		reps := sc.Reps
		s := UpdateSet{Type: models.SetTypeNormal, WeightKg: &weight, Reps: &reps}
		if sc.AMRAP && i == sc.Sets-1 {
			end := max(reps*2, 10)
			s.RepRange = &models.RepRange{Start: &reps, End: &end}
		}
		sets = append(sets, s)
	}
	return sets
}

func restSeconds(tier gzclp.Tier) int {
	switch tier {
	case gzclp.T1:
		return 180
	case gzclp.T2:
		return 120
	default:
		return 90
	}
}

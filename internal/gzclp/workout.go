package gzclp

import "github.com/meltforce/gzclp/internal/models"

// PendingChange is a suggestion derived from a completed workout, waiting to
// be applied to the progression state.
type PendingChange struct {
	WorkoutID      string           `json:"workout_id"`
	Day            Day              `json:"day"`
	Tier           Tier             `json:"tier"`
	ExerciseID     string           `json:"exercise_id"`
	Name           string           `json:"name"`
	ProgressionKey string           `json:"progression_key"`
	Reps           []int            `json:"reps"`
	Previous       ProgressionState `json:"previous"`
	Suggestion     Suggestion       `json:"suggestion"`
}

// AnalyzeWorkout maps a completed workout onto the program via its routine
// id and evaluates every scheduled exercise that has working sets. Workouts
// from unassigned routines yield nothing. An exercise without stored state
// starts from the heaviest weight it was lifted with.
func AnalyzeWorkout(w models.Workout, p *Program, progression map[string]ProgressionState) []PendingChange {
	day, ok := p.DayForRoutine(w.RoutineID)
	if !ok {
		return nil
	}

	byTemplate := make(map[string]models.RoutineExercise, len(w.Exercises))
	for _, ex := range w.Exercises {
		if _, dup := byTemplate[ex.ExerciseTemplateID]; !dup {
			byTemplate[ex.ExerciseTemplateID] = ex
		}
	}

	var changes []PendingChange
	for _, slot := range p.Slots(day) {
		ex, ok := byTemplate[slot.ExerciseID]
		if !ok {
			continue
		}
		reps := WorkingReps(ex.Sets)
		if len(reps) == 0 {
			continue
		}
		state, ok := progression[slot.ProgressionKey]
		if !ok {
			state = ProgressionState{CurrentWeight: ExtractWeight(ex.Sets)}
		}
		changes = append(changes, PendingChange{
			WorkoutID:      w.ID,
			Day:            day,
			Tier:           slot.Tier,
			ExerciseID:     slot.ExerciseID,
			Name:           slot.Name,
			ProgressionKey: slot.ProgressionKey,
			Reps:           reps,
			Previous:       state,
			Suggestion:     Calculate(slot.Tier, state, reps, slot.Region, p.Unit),
		})
	}
	return changes
}

// ApplyChanges folds pending changes into a copy of the progression state.
func ApplyChanges(progression map[string]ProgressionState, changes []PendingChange) map[string]ProgressionState {
	out := make(map[string]ProgressionState, len(progression))
	for k, v := range progression {
		out[k] = v
	}
	for _, c := range changes {
		prev, ok := out[c.ProgressionKey]
		if !ok {
			prev = c.Previous
		}
		out[c.ProgressionKey] = ApplySuggestion(prev, c.Suggestion)
	}
	return out
}

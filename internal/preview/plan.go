package preview

import "github.com/meltforce/gzclp/internal/gzclp"

// Target is the prescription written to one remote exercise.
type Target struct {
	TemplateID string      `json:"template_id"`
	Name       string      `json:"name"`
	Tier       gzclp.Tier  `json:"tier"`
	Stage      gzclp.Stage `json:"stage"`
	WeightKg   float64     `json:"weight_kg"`
}

// RoutineUpdate is the write for one day. An empty RoutineID means the
// routine has to be created.
type RoutineUpdate struct {
	Day       gzclp.Day `json:"day"`
	RoutineID string    `json:"routine_id"`
	Targets   []Target  `json:"targets"`
}

// CommitPlan is a confirmed selection ready to be written.
type CommitPlan struct {
	RoutineUpdates []RoutineUpdate    `json:"routine_updates"`
	Pulls          map[string]float64 `json:"pulls"`
}

// Plan converts the pushed and pulled exercises of a reviewed preview into
// routine writes and progression updates. Pulls carry the unrounded remote
// kg value.
func Plan(p *SelectablePreview) *CommitPlan {
	plan := &CommitPlan{Pulls: make(map[string]float64)}
	for _, dd := range p.Days {
		ru := RoutineUpdate{Day: dd.Day, RoutineID: dd.RoutineID}
		for _, ex := range dd.Exercises {
			switch ex.Action {
			case ActionPush:
				ru.Targets = append(ru.Targets, Target{
					TemplateID: ex.ExerciseID,
					Name:       ex.Name,
					Tier:       ex.Tier,
					Stage:      ex.Stage,
					WeightKg:   ex.NewWeightKg,
				})
			case ActionPull:
				if ex.OldWeightKg != nil {
					plan.Pulls[ex.ProgressionKey] = *ex.OldWeightKg
				}
			}
		}
		if len(ru.Targets) > 0 {
			plan.RoutineUpdates = append(plan.RoutineUpdates, ru)
		}
	}
	return plan
}

// ApplyPulls returns a copy of progression with pulled weights adopted.
func ApplyPulls(progression map[string]gzclp.ProgressionState, plan *CommitPlan) map[string]gzclp.ProgressionState {
	out := make(map[string]gzclp.ProgressionState, len(progression))
	for k, v := range progression {
		out[k] = v
	}
	for key, kg := range plan.Pulls {
		state := out[key]
		state.CurrentWeight = kg
		out[key] = state
	}
	return out
}

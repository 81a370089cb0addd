// Package preview diffs locally computed progression against the weights
// stored in remote routines and turns a reviewed selection into a commit
// plan. Previews are rebuilt from a fresh remote snapshot for every review
// and are never persisted.
package preview

import (
	"math"

	"github.com/meltforce/gzclp/internal/gzclp"
)

// epsilon absorbs floating point noise when comparing weights.
const epsilon = 1e-6

// Action is what to do with one exercise's weight.
type Action string

const (
	ActionPush Action = "push"
	ActionPull Action = "pull"
	ActionSkip Action = "skip"
)

// ParseAction validates an action string.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionPush, ActionPull, ActionSkip:
		return a, true
	}
	return "", false
}

// RemoteDay is the remote state of one day. RoutineID is empty when the day
// has no remote routine. Weights are kg by exercise template id.
type RemoteDay struct {
	RoutineID string             `json:"routine_id"`
	Weights   map[string]float64 `json:"weights"`
}

// ExerciseDiff compares one exercise slot. OldWeight and NewWeight are in the
// user's unit; OldWeight is nil when the remote has no value.
type ExerciseDiff struct {
	Key            string      `json:"key"`
	Day            gzclp.Day   `json:"day"`
	Tier           gzclp.Tier  `json:"tier"`
	ExerciseID     string      `json:"exercise_id"`
	Name           string      `json:"name"`
	ProgressionKey string      `json:"progression_key"`
	OldWeight      *float64    `json:"old_weight"`
	NewWeight      float64     `json:"new_weight"`
	OldWeightKg    *float64    `json:"old_weight_kg"`
	NewWeightKg    float64     `json:"new_weight_kg"`
	Stage          gzclp.Stage `json:"stage"`
	Scheme         string      `json:"scheme"`
	IsChanged      bool        `json:"is_changed"`
	Action         Action      `json:"action,omitempty"`
}

// DayDiff groups the diffs of one day.
type DayDiff struct {
	Day       gzclp.Day      `json:"day"`
	RoutineID string         `json:"routine_id"`
	HasRemote bool           `json:"has_remote"`
	Exercises []ExerciseDiff `json:"exercises"`
}

// Preview is the full diff across all days.
type Preview struct {
	Unit         gzclp.WeightUnit `json:"unit"`
	Days         []DayDiff        `json:"days"`
	TotalChanges int              `json:"total_changes"`
}

// SelectablePreview is a preview with an action per exercise. TotalChanges
// counts exercises whose action is not skip.
type SelectablePreview struct {
	Preview
	PushCount int `json:"push_count"`
	PullCount int `json:"pull_count"`
	SkipCount int `json:"skip_count"`
}

// RowKey identifies one exercise slot of a day.
func RowKey(day gzclp.Day, progressionKey string) string {
	return string(day) + ":" + progressionKey
}

// BuildPushPreview compares every scheduled slot with its remote weight.
// Slots without local progression state are left out.
func BuildPushPreview(
	remote map[gzclp.Day]RemoteDay,
	exercises map[string]gzclp.ExerciseConfig,
	progression map[string]gzclp.ProgressionState,
	t3Schedule map[gzclp.Day][]string,
	unit gzclp.WeightUnit,
) *Preview {
	p := &Preview{Unit: unit}

	for _, day := range gzclp.Days {
		rd := remote[day]
		dd := DayDiff{Day: day, RoutineID: rd.RoutineID, HasRemote: rd.RoutineID != ""}

		for _, slot := range gzclp.Slots(day, exercises, t3Schedule) {
			state, ok := progression[slot.ProgressionKey]
			if !ok {
				continue
			}
			diff := ExerciseDiff{
				Key:            RowKey(day, slot.ProgressionKey),
				Day:            day,
				Tier:           slot.Tier,
				ExerciseID:     slot.ExerciseID,
				Name:           slot.Name,
				ProgressionKey: slot.ProgressionKey,
				NewWeight:      gzclp.ToUnit(state.CurrentWeight, unit),
				NewWeightKg:    state.CurrentWeight,
				Stage:          state.Stage,
				Scheme:         gzclp.SchemeFor(slot.Tier, state.Stage).String(),
			}
			if slot.Tier == gzclp.T3 {
				diff.Stage = 0
			}

			if dd.HasRemote {
				if kg, ok := rd.Weights[slot.ExerciseID]; ok {
					old := gzclp.RoundInUnit(gzclp.ToUnit(kg, unit), unit)
					diff.OldWeight = &old
					diff.OldWeightKg = &kg
				}
			}
			diff.IsChanged = diff.OldWeight == nil || math.Abs(*diff.OldWeight-diff.NewWeight) > epsilon
			if diff.IsChanged {
				p.TotalChanges++
			}
			dd.Exercises = append(dd.Exercises, diff)
		}

		if len(dd.Exercises) > 0 {
			p.Days = append(p.Days, dd)
		}
	}
	return p
}

// BuildSelectablePushPreview builds a preview with default actions: push for
// changed exercises, skip for the rest.
func BuildSelectablePushPreview(
	remote map[gzclp.Day]RemoteDay,
	exercises map[string]gzclp.ExerciseConfig,
	progression map[string]gzclp.ProgressionState,
	t3Schedule map[gzclp.Day][]string,
	unit gzclp.WeightUnit,
) *SelectablePreview {
	sp := &SelectablePreview{Preview: *BuildPushPreview(remote, exercises, progression, t3Schedule, unit)}
	for d := range sp.Days {
		for i := range sp.Days[d].Exercises {
			ex := &sp.Days[d].Exercises[i]
			ex.Action = ActionSkip
			if ex.IsChanged {
				ex.Action = ActionPush
			}
		}
	}
	sp.recount()
	return sp
}

// UpdatePreviewAction returns a copy of p with one exercise's action changed.
// Unknown keys and unknown actions return an unchanged copy, as does a pull
// on an exercise without a remote weight. p is never modified.
func UpdatePreviewAction(p *SelectablePreview, key string, action Action) *SelectablePreview {
	out := p.clone()
	if _, ok := ParseAction(string(action)); !ok {
		return out
	}
	for d := range out.Days {
		for i := range out.Days[d].Exercises {
			ex := &out.Days[d].Exercises[i]
			if ex.Key != key {
				continue
			}
			if action == ActionPull && ex.OldWeight == nil {
				return out
			}
			ex.Action = action
			out.recount()
			return out
		}
	}
	return out
}

// SetAll returns a copy of p with every exercise set to action where it is
// allowed. Pull is only applied to changed exercises that have a remote value.
func SetAll(p *SelectablePreview, action Action) *SelectablePreview {
	out := p.clone()
	for d := range out.Days {
		for i := range out.Days[d].Exercises {
			ex := &out.Days[d].Exercises[i]
			if action == ActionPull && (ex.OldWeight == nil || !ex.IsChanged) {
				continue
			}
			ex.Action = action
		}
	}
	out.recount()
	return out
}

// Find returns the exercise diff for key.
func (p *SelectablePreview) Find(key string) (ExerciseDiff, bool) {
	for _, dd := range p.Days {
		for _, ex := range dd.Exercises {
			if ex.Key == key {
				return ex, true
			}
		}
	}
	return ExerciseDiff{}, false
}

// recount derives every counter from the per-exercise actions.
func (p *SelectablePreview) recount() {
	p.PushCount, p.PullCount, p.SkipCount, p.TotalChanges = 0, 0, 0, 0
	for _, dd := range p.Days {
		for _, ex := range dd.Exercises {
			switch ex.Action {
			case ActionPush:
				p.PushCount++
			case ActionPull:
				p.PullCount++
			default:
				p.SkipCount++
			}
		}
	}
	p.TotalChanges = p.PushCount + p.PullCount
}

func (p *SelectablePreview) clone() *SelectablePreview {
	out := *p
	out.Days = make([]DayDiff, len(p.Days))
	for d, dd := range p.Days {
		dd.Exercises = make([]ExerciseDiff, len(p.Days[d].Exercises))
		for i, ex := range p.Days[d].Exercises {
			if ex.OldWeight != nil {
				v := *ex.OldWeight
				ex.OldWeight = &v
			}
			if ex.OldWeightKg != nil {
				v := *ex.OldWeightKg
				ex.OldWeightKg = &v
			}
			dd.Exercises[i] = ex
		}
		out.Days[d] = dd
	}
	return &out
}

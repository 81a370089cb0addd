package gzclp

import "fmt"

// SuggestionType is the outcome of evaluating one session.
type SuggestionType string

const (
	SuggestProgress    SuggestionType = "progress"
	SuggestStageChange SuggestionType = "stage_change"
	SuggestDeload      SuggestionType = "deload"
	SuggestRepeat      SuggestionType = "repeat"
)

// deloadFactor is applied to the working weight after failing the last stage.
const deloadFactor = 0.85

// T3 progresses once 3x15+ is completed with a 25-rep final set. Short of
// that, 30 total reps holds the weight and anything less deloads.
const (
	t3AmrapReps  = 25
	t3RepeatReps = 30
)

// Suggestion is the next target for one exercise. Weights are kg.
type Suggestion struct {
	Type          SuggestionType `json:"type"`
	Tier          Tier           `json:"tier"`
	NewWeight     float64        `json:"new_weight"`
	NewStage      Stage          `json:"new_stage"`
	NewScheme     string         `json:"new_scheme"`
	NewBaseWeight float64        `json:"new_base_weight"`
	AmrapReps     int            `json:"amrap_reps"`
	Reason        string         `json:"reason"`
}

// CalculateT1Progression evaluates a T1 session. A final AMRAP set of at
// least twice the target at stage 0 earns a double increment.
func CalculateT1Progression(state ProgressionState, reps []int, region BodyRegion, unit WeightUnit) Suggestion {
	return calculateStaged(T1, state, reps, region, unit)
}

// CalculateT2Progression evaluates a T2 session.
func CalculateT2Progression(state ProgressionState, reps []int, region BodyRegion, unit WeightUnit) Suggestion {
	return calculateStaged(T2, state, reps, region, unit)
}

func calculateStaged(tier Tier, state ProgressionState, reps []int, region BodyRegion, unit WeightUnit) Suggestion {
	stage := Stage(clampStage(state.Stage, len(schemes[tier])))
	sc := SchemeFor(tier, stage)
	cur := FormatWeight(state.CurrentWeight, unit)

	s := Suggestion{
		Tier:          tier,
		NewWeight:     state.CurrentWeight,
		NewStage:      stage,
		NewScheme:     sc.String(),
		NewBaseWeight: state.BaseWeight,
		AmrapReps:     lastRep(reps, sc.AMRAP),
	}

	if succeeded(reps, sc) {
		inc := Increment(region, unit)
		if tier == T1 && stage == 0 && s.AmrapReps >= 2*sc.Reps {
			inc *= 2
		}
		s.Type = SuggestProgress
		s.NewWeight = addInUnit(state.CurrentWeight, inc, unit)
		s.Reason = fmt.Sprintf("Completed %s at %s, next session %s",
			sc, cur, FormatWeight(s.NewWeight, unit))
		return s
	}

	if stage < MaxStage {
		next := SchemeFor(tier, stage+1)
		s.Type = SuggestStageChange
		s.NewStage = stage + 1
		s.NewScheme = next.String()
		s.Reason = fmt.Sprintf("Missed %s at %s (%s), moving to %s at the same weight",
			sc, cur, formatReps(reps), next)
		return s
	}

	s.Type = SuggestDeload
	s.NewWeight = RoundToIncrement(state.CurrentWeight*deloadFactor, unit)
	s.NewStage = 0
	s.NewScheme = SchemeFor(tier, 0).String()
	s.NewBaseWeight = state.CurrentWeight
	s.Reason = fmt.Sprintf("Missed %s at %s on the last stage, deload to %s and restart at %s",
		sc, cur, FormatWeight(s.NewWeight, unit), s.NewScheme)
	return s
}

// CalculateT3Progression evaluates an accessory session on total reps.
func CalculateT3Progression(state ProgressionState, reps []int, region BodyRegion, unit WeightUnit) Suggestion {
	sc := SchemeFor(T3, 0)
	total := 0
	for _, r := range reps {
		total += r
	}
	cur := FormatWeight(state.CurrentWeight, unit)

	s := Suggestion{
		Tier:          T3,
		NewWeight:     state.CurrentWeight,
		NewScheme:     sc.String(),
		NewBaseWeight: state.BaseWeight,
		AmrapReps:     lastRep(reps, true),
	}

	switch {
	case succeeded(reps, sc) && s.AmrapReps >= t3AmrapReps:
		s.Type = SuggestProgress
		s.NewWeight = addInUnit(state.CurrentWeight, Increment(region, unit), unit)
		s.Reason = fmt.Sprintf("Completed %s with %d on the last set at %s, next session %s",
			sc, s.AmrapReps, cur, FormatWeight(s.NewWeight, unit))
	case total >= t3RepeatReps:
		s.Type = SuggestRepeat
		s.Reason = fmt.Sprintf("%d total reps at %s (%s), repeat the weight until the last set reaches %d",
			total, cur, formatReps(reps), t3AmrapReps)
	default:
		s.Type = SuggestDeload
		s.NewWeight = RoundToIncrement(state.CurrentWeight*deloadFactor, unit)
		s.NewBaseWeight = state.CurrentWeight
		s.Reason = fmt.Sprintf("Only %d total reps at %s, deload to %s",
			total, cur, FormatWeight(s.NewWeight, unit))
	}
	return s
}

// ApplySuggestion returns the state after accepting s.
func ApplySuggestion(state ProgressionState, s Suggestion) ProgressionState {
	return ProgressionState{
		CurrentWeight: s.NewWeight,
		Stage:         s.NewStage,
		BaseWeight:    s.NewBaseWeight,
		AmrapRecord:   max(state.AmrapRecord, s.AmrapReps),
	}
}

// succeeded requires exactly the prescribed set count with every set at or
// above target.
func succeeded(reps []int, sc Scheme) bool {
	if len(reps) != sc.Sets {
		return false
	}
	for _, r := range reps {
		if r < sc.Reps {
			return false
		}
	}
	return true
}

// addInUnit adds inc (in the display unit) to a kg weight and snaps the
// result to the unit's step.
func addInUnit(kg, inc float64, unit WeightUnit) float64 {
	v := RoundInUnit(ToUnit(kg, unit)+inc, unit)
	return FromUnit(v, unit)
}

func lastRep(reps []int, amrap bool) int {
	if !amrap || len(reps) == 0 {
		return 0
	}
	return reps[len(reps)-1]
}

func formatReps(reps []int) string {
	if len(reps) == 0 {
		return "no sets"
	}
	out := ""
	for i, r := range reps {
		if i > 0 {
			out += "/"
		}
		out += fmt.Sprint(r)
	}
	return out
}

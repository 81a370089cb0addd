package gzclp

import (
	"fmt"

	"github.com/meltforce/gzclp/internal/models"
)

// StageDetection is a recognized set/rep pattern.
type StageDetection struct {
	Stage      Stage      `json:"stage"`
	Confidence Confidence `json:"confidence"`
	SetCount   int        `json:"set_count"`
	RepScheme  string     `json:"rep_scheme"`
}

// workingSets keeps normal sets with a positive rep count.
func workingSets(sets []models.ExerciseSet) []models.ExerciseSet {
	var out []models.ExerciseSet
	for _, s := range sets {
		if s.Type != models.SetTypeNormal || s.Reps == nil || *s.Reps <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// WorkingReps returns the rep counts of the normal sets, in order.
func WorkingReps(sets []models.ExerciseSet) []int {
	ws := workingSets(sets)
	reps := make([]int, 0, len(ws))
	for _, s := range ws {
		reps = append(reps, *s.Reps)
	}
	return reps
}

// modalReps returns the most frequent rep count. Ties go to the count seen
// first in set order.
func modalReps(sets []models.ExerciseSet) int {
	counts := make(map[int]int)
	var order []int
	for _, s := range sets {
		r := *s.Reps
		if counts[r] == 0 {
			order = append(order, r)
		}
		counts[r]++
	}
	best, bestCount := 0, 0
	for _, r := range order {
		if counts[r] > bestCount {
			best, bestCount = r, counts[r]
		}
	}
	return best
}

// DetectStage recognizes one of the canonical schemes for the tier from the
// logged sets. It returns nil when there are no working sets or the pattern
// matches no stage; it never guesses the nearest stage.
func DetectStage(sets []models.ExerciseSet, tier Tier) *StageDetection {
	ws := workingSets(sets)
	if len(ws) == 0 {
		return nil
	}
	setCount := len(ws)
	reps := modalReps(ws)
	det := &StageDetection{
		Confidence: ConfidenceHigh,
		SetCount:   setCount,
		RepScheme:  fmt.Sprintf("%dx%d", setCount, reps),
	}

	if tier == T3 {
		det.Stage = 0
		return det
	}

	for i, sc := range schemes[tier] {
		if sc.Sets == setCount && sc.Reps == reps {
			det.Stage = Stage(i)
			return det
		}
	}
	return nil
}

// ExtractWeight returns the heaviest normal-set weight in kg, or 0 when no
// normal set carries a weight. Warmup, dropset and failure sets are ignored.
func ExtractWeight(sets []models.ExerciseSet) float64 {
	var heaviest float64
	for _, s := range sets {
		if s.Type != models.SetTypeNormal || s.WeightKg == nil {
			continue
		}
		heaviest = max(heaviest, *s.WeightKg)
	}
	return heaviest
}

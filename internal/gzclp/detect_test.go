package gzclp

import (
	"testing"

	"github.com/meltforce/gzclp/internal/models"
)

func set(typ models.SetType, weight float64, reps int) models.ExerciseSet {
	return models.ExerciseSet{Type: typ, WeightKg: models.FloatPtr(weight), Reps: models.IntPtr(reps)}
}

func normalSets(weight float64, reps ...int) []models.ExerciseSet {
	out := make([]models.ExerciseSet, 0, len(reps))
	for _, r := range reps {
		out = append(out, set(models.SetTypeNormal, weight, r))
	}
	return out
}

func repeat(n, reps int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = reps
	}
	return out
}

// TestDetectStage_Canonical verifies that every canonical T1/T2 scheme is
// recognized with high confidence, and that detection is stable when the
// detected scheme is fed back in.
func TestDetectStage_Canonical(t *testing.T) {
	for _, tier := range []Tier{T1, T2} {
		for stage := Stage(0); stage <= MaxStage; stage++ {
			sc := SchemeFor(tier, stage)
			sets := normalSets(60, repeat(sc.Sets, sc.Reps)...)

			for round := 0; round < 2; round++ {
				got := DetectStage(sets, tier)
				if got == nil {
					t.Fatalf("%s stage %d: got nil", tier, stage)
				}
				if got.Stage != stage || got.Confidence != ConfidenceHigh {
					t.Errorf("%s stage %d: got stage %d confidence %s", tier, stage, got.Stage, got.Confidence)
				}
				if got.SetCount != sc.Sets {
					t.Errorf("%s stage %d: set count %d, want %d", tier, stage, got.SetCount, sc.Sets)
				}
				sets = normalSets(60, repeat(got.SetCount, sc.Reps)...)
			}
		}
	}
}

// TestDetectStage_Filtering verifies that only normal sets with positive reps
// count, that the modal rep count absorbs an AMRAP set, and that unmatched
// patterns return nil rather than the nearest stage.
func TestDetectStage_Filtering(t *testing.T) {
	nilReps := models.ExerciseSet{Type: models.SetTypeNormal, WeightKg: models.FloatPtr(60)}

	tests := []struct {
		name      string
		sets      []models.ExerciseSet
		tier      Tier
		wantNil   bool
		wantStage Stage
		wantRS    string
	}{
		{
			name:      "warmups ignored",
			sets:      append([]models.ExerciseSet{set(models.SetTypeWarmup, 20, 5), set(models.SetTypeWarmup, 40, 3)}, normalSets(60, 3, 3, 3, 3, 3)...),
			tier:      T1,
			wantStage: 0,
			wantRS:    "5x3",
		},
		{
			name:      "amrap set absorbed by mode",
			sets:      normalSets(60, 3, 3, 3, 3, 7),
			tier:      T1,
			wantStage: 0,
			wantRS:    "5x3",
		},
		{
			name:      "nil reps excluded without disqualifying",
			sets:      append(normalSets(50, 10, 10, 10), nilReps),
			tier:      T2,
			wantStage: 0,
			wantRS:    "3x10",
		},
		{
			name:      "t2 stage 2",
			sets:      normalSets(50, 6, 6, 6),
			tier:      T2,
			wantStage: 2,
			wantRS:    "3x6",
		},
		{
			name:    "no match",
			sets:    normalSets(60, 5, 5, 5, 5),
			tier:    T1,
			wantNil: true,
		},
		{
			name:    "only warmups",
			sets:    []models.ExerciseSet{set(models.SetTypeWarmup, 20, 10)},
			tier:    T2,
			wantNil: true,
		},
		{
			name:    "empty",
			tier:    T1,
			wantNil: true,
		},
		{
			name:      "t3 any set count",
			sets:      normalSets(20, 12, 12),
			tier:      T3,
			wantStage: 0,
			wantRS:    "2x12",
		},
		{
			name:    "dropset does not count",
			sets:    append(normalSets(60, 3, 3, 3, 3), set(models.SetTypeDropset, 50, 3)),
			tier:    T1,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectStage(tt.sets, tt.tier)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("got %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("got nil")
			}
			if got.Stage != tt.wantStage {
				t.Errorf("stage = %d, want %d", got.Stage, tt.wantStage)
			}
			if got.RepScheme != tt.wantRS {
				t.Errorf("rep scheme = %q, want %q", got.RepScheme, tt.wantRS)
			}
		})
	}
}

// TestModalReps_TieFirstSeen verifies that a tie in rep frequency resolves
// to the rep count that appears first.
func TestModalReps_TieFirstSeen(t *testing.T) {
	got := modalReps(normalSets(60, 8, 10, 10, 8))
	if got != 8 {
		t.Errorf("modalReps = %d, want 8", got)
	}
}

// TestExtractWeight verifies that only normal-set weights count, even when
// warmup or dropset weights are heavier.
func TestExtractWeight(t *testing.T) {
	tests := []struct {
		name string
		sets []models.ExerciseSet
		want float64
	}{
		{"max normal", normalSets(0, 0), 0},
		{"mixed", []models.ExerciseSet{
			set(models.SetTypeNormal, 60, 3),
			set(models.SetTypeNormal, 62.5, 3),
			set(models.SetTypeFailure, 80, 1),
			set(models.SetTypeWarmup, 100, 1),
		}, 62.5},
		{"nil weights", []models.ExerciseSet{{Type: models.SetTypeNormal, Reps: models.IntPtr(5)}}, 0},
		{"none", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractWeight(tt.sets); got != tt.want {
				t.Errorf("ExtractWeight = %v, want %v", got, tt.want)
			}
		})
	}
}

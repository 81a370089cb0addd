package gzclp

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/meltforce/gzclp/internal/models"
)

func testProgram() *Program {
	return &Program{
		Unit: UnitKg,
		Days: map[Day]string{DayA1: "r-a1", DayB1: "r-b1", DayA2: "r-a2", DayB2: "r-b2"},
		Exercises: map[string]ExerciseConfig{
			"SQ":  {ID: "SQ", Name: "Squat (Barbell)", Role: RoleSquat},
			"BP":  {ID: "BP", Name: "Bench Press (Barbell)", Role: RoleBench},
			"OHP": {ID: "OHP", Name: "Overhead Press (Barbell)", Role: RoleOHP},
			"DL":  {ID: "DL", Name: "Deadlift (Barbell)", Role: RoleDeadlift},
			"LP":  {ID: "LP", Name: "Lat Pulldown (Cable)"},
		},
		T3Schedule: map[Day][]string{DayA1: {"LP"}, DayB2: {"LP"}},
	}
}

// TestSlots verifies that a day resolves its T1/T2 lifts through the role
// table and appends its scheduled accessories.
func TestSlots(t *testing.T) {
	got := testProgram().Slots(DayA1)
	want := []Slot{
		{Tier: T1, ExerciseID: "SQ", Name: "Squat (Barbell)", ProgressionKey: "squat-T1", Region: RegionLower},
		{Tier: T2, ExerciseID: "BP", Name: "Bench Press (Barbell)", ProgressionKey: "bench-T2", Region: RegionUpper},
		{Tier: T3, ExerciseID: "LP", Name: "Lat Pulldown (Cable)", ProgressionKey: "LP", Region: RegionUpper},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Slots(A1) mismatch (-want +got):\n%s", diff)
	}
}

// TestProgramValidate rejects a role claimed twice and unknown T3 ids.
func TestProgramValidate(t *testing.T) {
	p := testProgram()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid program: %v", err)
	}

	p.Exercises["FS"] = ExerciseConfig{ID: "FS", Name: "Front Squat", Role: RoleSquat}
	if err := p.Validate(); err == nil {
		t.Error("expected error for duplicate role")
	}

	p = testProgram()
	p.T3Schedule[DayB1] = []string{"missing"}
	if err := p.Validate(); err == nil {
		t.Error("expected error for unknown T3 exercise")
	}

	p = testProgram()
	p.Exercises["LP"] = ExerciseConfig{ID: "LP", Name: "Lat Pulldown (Cable)", Region: "legs"}
	if err := p.Validate(); err == nil {
		t.Error("expected error for invalid region")
	}
}

// TestSlots_AccessoryRegion verifies that a lower-body accessory keeps its
// region through the slot table and progresses by the lower increment.
func TestSlots_AccessoryRegion(t *testing.T) {
	p := testProgram()
	p.Exercises["LEGP"] = ExerciseConfig{ID: "LEGP", Name: "Leg Press (Machine)", Region: RegionLower}
	p.T3Schedule[DayA1] = []string{"LP", "LEGP"}

	slots := p.Slots(DayA1)
	if got := slots[2].Region; got != RegionUpper {
		t.Errorf("LP region = %s, want upper by default", got)
	}
	if got := slots[3].Region; got != RegionLower {
		t.Errorf("LEGP region = %s, want lower", got)
	}

	w := models.Workout{
		ID:        "w1",
		RoutineID: "r-a1",
		Exercises: []models.RoutineExercise{
			{ExerciseTemplateID: "LEGP", Sets: normalSets(100, 15, 15, 25)},
		},
	}
	changes := AnalyzeWorkout(w, p, map[string]ProgressionState{"LEGP": {CurrentWeight: 100}})
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	if got := changes[0].Suggestion.NewWeight; !near(got, 105) {
		t.Errorf("LEGP new weight = %v, want 105", got)
	}
}

// TestAnalyzeWorkout verifies that a logged workout is mapped to its day and
// each tier is evaluated with its own rule.
func TestAnalyzeWorkout(t *testing.T) {
	p := testProgram()
	progression := map[string]ProgressionState{
		"squat-T1": {CurrentWeight: 100},
		"bench-T2": {CurrentWeight: 50, Stage: 1},
	}
	w := models.Workout{
		ID:        "w1",
		RoutineID: "r-a1",
		Exercises: []models.RoutineExercise{
			{ExerciseTemplateID: "SQ", Sets: append([]models.ExerciseSet{set(models.SetTypeWarmup, 60, 5)}, normalSets(100, 3, 3, 3, 3, 5)...)},
			{ExerciseTemplateID: "BP", Sets: normalSets(50, 8, 8, 6)},
			{ExerciseTemplateID: "LP", Sets: normalSets(40, 15, 15, 25)},
			{ExerciseTemplateID: "CURL", Sets: normalSets(10, 12, 12)},
		},
	}

	changes := AnalyzeWorkout(w, p, progression)
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3", len(changes))
	}

	want := []struct {
		key   string
		typ   SuggestionType
		stage Stage
	}{
		{"squat-T1", SuggestProgress, 0},
		{"bench-T2", SuggestStageChange, 2},
		{"LP", SuggestProgress, 0},
	}
	for i, exp := range want {
		c := changes[i]
		if c.ProgressionKey != exp.key || c.Suggestion.Type != exp.typ || c.Suggestion.NewStage != exp.stage {
			t.Errorf("change %d = %s %s stage %d, want %s %s stage %d",
				i, c.ProgressionKey, c.Suggestion.Type, c.Suggestion.NewStage, exp.key, exp.typ, exp.stage)
		}
	}

	// LP had no state and starts from its logged weight.
	if changes[2].Previous.CurrentWeight != 40 || !near(changes[2].Suggestion.NewWeight, 42.5) {
		t.Errorf("LP previous %v new %v, want 40 and 42.5", changes[2].Previous.CurrentWeight, changes[2].Suggestion.NewWeight)
	}

	next := ApplyChanges(progression, changes)
	if !near(next["squat-T1"].CurrentWeight, 105) {
		t.Errorf("squat-T1 = %v, want 105", next["squat-T1"].CurrentWeight)
	}
	if progression["squat-T1"].CurrentWeight != 100 {
		t.Error("ApplyChanges mutated its input")
	}
}

// TestAnalyzeWorkout_UnknownRoutine yields nothing for unassigned routines.
func TestAnalyzeWorkout_UnknownRoutine(t *testing.T) {
	w := models.Workout{ID: "w2", RoutineID: "other", Exercises: []models.RoutineExercise{
		{ExerciseTemplateID: "SQ", Sets: normalSets(100, 3, 3, 3, 3, 3)},
	}}
	if got := AnalyzeWorkout(w, testProgram(), nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

package importer

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/models"
)

// WarningType classifies a non-fatal import finding.
type WarningType string

const (
	WarnNoT2             WarningType = "no_t2"
	WarnDuplicateRoutine WarningType = "duplicate_routine"
	WarnWeightNull       WarningType = "weight_null"
	WarnStageUnknown     WarningType = "stage_unknown"
	WarnAllWarmup        WarningType = "all_warmup"
	WarnRoutineMissing   WarningType = "routine_missing"
)

// Warning is shown to the user during review.
type Warning struct {
	Type     WarningType `json:"type"`
	Day      gzclp.Day   `json:"day,omitempty"`
	Exercise string      `json:"exercise,omitempty"`
	Message  string      `json:"message"`
}

// Exercise is an imported exercise with its detected values and optional
// user overrides.
type Exercise struct {
	TemplateID        string           `json:"template_id"`
	Name              string           `json:"name"`
	Role              gzclp.Role       `json:"role,omitempty"`
	Tier              gzclp.Tier       `json:"tier"`
	DetectedWeight    float64          `json:"detected_weight"`
	DetectedStage     *gzclp.Stage     `json:"detected_stage"`
	StageConfidence   gzclp.Confidence `json:"stage_confidence"`
	OriginalRepScheme string           `json:"original_rep_scheme,omitempty"`
	OriginalSetCount  int              `json:"original_set_count"`
	UserWeight        *float64         `json:"user_weight,omitempty"`
	UserStage         *gzclp.Stage     `json:"user_stage,omitempty"`
	Region            gzclp.BodyRegion `json:"region,omitempty"`
}

// Weight is the user's override if set, else the detected weight (kg).
func (e *Exercise) Weight() float64 {
	if e.UserWeight != nil {
		return *e.UserWeight
	}
	return e.DetectedWeight
}

// Stage is the user's override if set, else the detected stage, else 0.
func (e *Exercise) Stage() gzclp.Stage {
	if e.UserStage != nil {
		return *e.UserStage
	}
	if e.DetectedStage != nil {
		return *e.DetectedStage
	}
	return 0
}

// SetWeight records a user weight override in kg.
func (e *Exercise) SetWeight(kg float64) {
	e.UserWeight = &kg
}

// SetStage records a user stage override.
func (e *Exercise) SetStage(s gzclp.Stage) {
	e.UserStage = &s
	e.StageConfidence = gzclp.ConfidenceManual
}

// DayResult is one day's extracted exercises.
type DayResult struct {
	RoutineID string      `json:"routine_id"`
	T1        *Exercise   `json:"t1"`
	T2        *Exercise   `json:"t2"`
	T3        []*Exercise `json:"t3"`
}

// Result is the outcome of extracting a program from routines.
type Result struct {
	ByDay      map[gzclp.Day]*DayResult `json:"by_day"`
	Warnings   []Warning                `json:"warnings"`
	RoutineIDs map[gzclp.Day]string     `json:"routine_ids"`
}

// UnmarshalJSON decodes a result and relinks its accessories, since JSON
// carries one copy of a shared accessory per day.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	r.Relink()
	return nil
}

// Relink makes every day reference one record per accessory template, the
// first one seen in rotation order. Overrides found on any copy are merged
// into it; when copies disagree, the later day wins.
func (r *Result) Relink() {
	shared := make(map[string]*Exercise)
	for _, day := range gzclp.Days {
		dr, ok := r.ByDay[day]
		if !ok || dr == nil {
			continue
		}
		for i, ex := range dr.T3 {
			if ex == nil {
				continue
			}
			canon, ok := shared[ex.TemplateID]
			if !ok {
				shared[ex.TemplateID] = ex
				continue
			}
			if canon != ex {
				if ex.UserWeight != nil {
					canon.UserWeight = ex.UserWeight
				}
				if ex.UserStage != nil {
					canon.UserStage = ex.UserStage
					canon.StageConfidence = ex.StageConfidence
				}
				if ex.Region != "" {
					canon.Region = ex.Region
				}
			}
			dr.T3[i] = canon
		}
	}
}

var warmupTitle = regexp.MustCompile(`(?i)warm[\s-]?up|stretch|mobility|activation`)

// IsWarmupOnly reports whether an exercise should be skipped. Any normal set
// keeps the exercise, whatever its title says.
func IsWarmupOnly(ex models.RoutineExercise) bool {
	allWarmup := len(ex.Sets) > 0
	for _, s := range ex.Sets {
		if s.Type == models.SetTypeNormal {
			return false
		}
		if s.Type != models.SetTypeWarmup {
			allWarmup = false
		}
	}
	return allWarmup || warmupTitle.MatchString(ex.Title)
}

// extraction holds identity tables shared across days.
type extraction struct {
	result      *Result
	accessories map[string]*Exercise
	roles       map[string]gzclp.Role
	claimed     map[gzclp.Role]string
}

// ExtractFromRoutines builds a per-day import result from the routines
// assigned to each day. Days are scanned in rotation order. It never fails;
// problems are reported as warnings.
func ExtractFromRoutines(routineByID map[string]models.Routine, dayToRoutineID map[gzclp.Day]string) *Result {
	x := &extraction{
		result: &Result{
			ByDay:      make(map[gzclp.Day]*DayResult),
			RoutineIDs: make(map[gzclp.Day]string),
		},
		accessories: make(map[string]*Exercise),
		roles:       make(map[string]gzclp.Role),
		claimed:     make(map[gzclp.Role]string),
	}

	firstDay := make(map[string]gzclp.Day)
	for _, day := range gzclp.Days {
		id := dayToRoutineID[day]
		if id == "" {
			continue
		}
		if prev, ok := firstDay[id]; ok {
			x.warn(WarnDuplicateRoutine, day, "",
				fmt.Sprintf("routine %s is assigned to both %s and %s", id, prev, day))
		} else {
			firstDay[id] = day
		}

		routine, ok := routineByID[id]
		if !ok {
			x.warn(WarnRoutineMissing, day, "", fmt.Sprintf("routine %s was not found", id))
			continue
		}
		x.result.RoutineIDs[day] = id
		x.result.ByDay[day] = x.extractDay(day, routine)
	}
	return x.result
}

func (x *extraction) warn(typ WarningType, day gzclp.Day, exercise, msg string) {
	x.result.Warnings = append(x.result.Warnings, Warning{Type: typ, Day: day, Exercise: exercise, Message: msg})
}

func (x *extraction) extractDay(day gzclp.Day, routine models.Routine) *DayResult {
	dr := &DayResult{RoutineID: routine.ID}

	var usable []models.RoutineExercise
	for _, ex := range routine.Exercises {
		if IsWarmupOnly(ex) {
			continue
		}
		usable = append(usable, ex)
	}

	if len(routine.Exercises) > 0 && len(usable) == 0 {
		x.warn(WarnAllWarmup, day, "",
			fmt.Sprintf("every exercise in %q looks like a warmup", routine.Title))
		return dr
	}
	if len(usable) < 2 {
		x.warn(WarnNoT2, day, "",
			fmt.Sprintf("%q has %d usable exercises, T2 needs at least 2", routine.Title, len(usable)))
	}

	for i, ex := range usable {
		switch tier := gzclp.TierForPosition(i); tier {
		case gzclp.T1:
			dr.T1 = x.mainLift(day, tier, ex)
		case gzclp.T2:
			dr.T2 = x.mainLift(day, tier, ex)
		default:
			dr.T3 = append(dr.T3, x.accessory(day, ex))
		}
	}
	return dr
}

// mainLift records a T1 or T2 exercise. The first template to reach a role
// claims it for the whole scan.
func (x *extraction) mainLift(day gzclp.Day, tier gzclp.Tier, ex models.RoutineExercise) *Exercise {
	e := &Exercise{
		TemplateID:     ex.ExerciseTemplateID,
		Name:           ex.Title,
		Tier:           tier,
		DetectedWeight: gzclp.ExtractWeight(ex.Sets),
	}

	if role, ok := x.roles[ex.ExerciseTemplateID]; ok {
		e.Role = role
	} else if role, ok := gzclp.RoleFor(day, tier); ok {
		if _, taken := x.claimed[role]; !taken {
			x.roles[ex.ExerciseTemplateID] = role
			x.claimed[role] = ex.ExerciseTemplateID
			e.Role = role
		}
	}

	if det := gzclp.DetectStage(ex.Sets, tier); det != nil {
		stage := det.Stage
		e.DetectedStage = &stage
		e.StageConfidence = det.Confidence
		e.OriginalRepScheme = det.RepScheme
		e.OriginalSetCount = det.SetCount
	} else {
		e.StageConfidence = gzclp.ConfidenceManual
		e.OriginalSetCount = len(gzclp.WorkingReps(ex.Sets))
		x.warn(WarnStageUnknown, day, ex.Title,
			fmt.Sprintf("%s %s does not match a %s scheme, set the stage manually", tier, ex.Title, tier))
	}

	if e.DetectedWeight == 0 {
		x.warn(WarnWeightNull, day, ex.Title, fmt.Sprintf("%s %s has no working weight", tier, ex.Title))
	}
	return e
}

// accessory returns the shared record for a T3 template, creating it on
// first sight.
func (x *extraction) accessory(day gzclp.Day, ex models.RoutineExercise) *Exercise {
	if e, ok := x.accessories[ex.ExerciseTemplateID]; ok {
		return e
	}
	stage := gzclp.Stage(0)
	e := &Exercise{
		TemplateID:      ex.ExerciseTemplateID,
		Name:            ex.Title,
		Tier:            gzclp.T3,
		DetectedWeight:  gzclp.ExtractWeight(ex.Sets),
		DetectedStage:   &stage,
		StageConfidence: gzclp.ConfidenceHigh,
	}
	if det := gzclp.DetectStage(ex.Sets, gzclp.T3); det != nil {
		e.OriginalRepScheme = det.RepScheme
		e.OriginalSetCount = det.SetCount
	}
	if e.DetectedWeight == 0 {
		x.warn(WarnWeightNull, day, ex.Title, fmt.Sprintf("T3 %s has no working weight", ex.Title))
	}
	x.accessories[ex.ExerciseTemplateID] = e
	return e
}

// ProgramFromImport turns a reviewed import into a program configuration and
// its initial progression state. User overrides win over detected values.
// Main lifts without a role are left out; their role belongs to another
// template.
func ProgramFromImport(r *Result, unit gzclp.WeightUnit) (*gzclp.Program, map[string]gzclp.ProgressionState) {
	p := &gzclp.Program{
		Unit:       unit,
		Days:       make(map[gzclp.Day]string),
		Exercises:  make(map[string]gzclp.ExerciseConfig),
		T3Schedule: make(map[gzclp.Day][]string),
	}
	progression := make(map[string]gzclp.ProgressionState)

	for _, day := range gzclp.Days {
		if id, ok := r.RoutineIDs[day]; ok {
			p.Days[day] = id
		}
		dr, ok := r.ByDay[day]
		if !ok {
			continue
		}

		for _, ex := range []*Exercise{dr.T1, dr.T2} {
			if ex == nil || ex.Role == "" {
				continue
			}
			p.Exercises[ex.TemplateID] = gzclp.ExerciseConfig{ID: ex.TemplateID, Name: ex.Name, Role: ex.Role}
			key := gzclp.ProgressionKey(ex.Role, ex.Tier)
			if _, seen := progression[key]; !seen {
				progression[key] = initialState(ex)
			}
		}

		for _, ex := range dr.T3 {
			if ex == nil {
				continue
			}
			if _, ok := p.Exercises[ex.TemplateID]; !ok {
				p.Exercises[ex.TemplateID] = gzclp.ExerciseConfig{ID: ex.TemplateID, Name: ex.Name, Region: ex.Region}
			}
			p.T3Schedule[day] = append(p.T3Schedule[day], ex.TemplateID)
			if _, seen := progression[ex.TemplateID]; !seen {
				progression[ex.TemplateID] = gzclp.ProgressionState{
					CurrentWeight: ex.Weight(),
					BaseWeight:    ex.Weight(),
				}
			}
		}
	}
	return p, progression
}

func initialState(ex *Exercise) gzclp.ProgressionState {
	return gzclp.ProgressionState{
		CurrentWeight: ex.Weight(),
		Stage:         ex.Stage(),
		BaseWeight:    ex.Weight(),
	}
}

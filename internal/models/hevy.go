package models

import "time"

// SetType is the kind of set as logged by Hevy.
type SetType string

const (
	SetTypeNormal  SetType = "normal"
	SetTypeWarmup  SetType = "warmup"
	SetTypeDropset SetType = "dropset"
	SetTypeFailure SetType = "failure"
)

// ExerciseSet is a single set of a routine or workout exercise.
// Reps and WeightKg are nil when the set was left blank.
type ExerciseSet struct {
	Index    int       `json:"index"`
	Type     SetType   `json:"type"`
	WeightKg *float64  `json:"weight_kg"`
	Reps     *int      `json:"reps"`
	RPE      *float64  `json:"rpe,omitempty"`
	RepRange *RepRange `json:"rep_range,omitempty"`
}

// RepRange is a target rep range on a routine set (used for AMRAP sets).
type RepRange struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// RoutineExercise is one exercise of a routine, in display order.
type RoutineExercise struct {
	Index              int           `json:"index"`
	Title              string        `json:"title"`
	Notes              string        `json:"notes,omitempty"`
	ExerciseTemplateID string        `json:"exercise_template_id"`
	SupersetID         *int          `json:"superset_id"`
	RestSeconds        *int          `json:"rest_seconds"`
	Sets               []ExerciseSet `json:"sets"`
}

// Routine is a saved Hevy routine (a workout template).
type Routine struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	FolderID  *int              `json:"folder_id"`
	UpdatedAt time.Time         `json:"updated_at"`
	CreatedAt time.Time         `json:"created_at"`
	Exercises []RoutineExercise `json:"exercises"`
}

// Workout is a completed, logged Hevy workout.
type Workout struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	RoutineID   string            `json:"routine_id"`
	Description string            `json:"description"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Exercises   []RoutineExercise `json:"exercises"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

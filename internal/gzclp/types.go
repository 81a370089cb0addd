// Package gzclp holds the GZCLP program model: tiers, stages, the fixed
// four-day rotation, stage detection from logged sets and the per-tier
// progression rules. Everything in this package is pure; callers supply
// already-fetched data and persist the results themselves.
package gzclp

import (
	"fmt"
	"strings"
)

// Tier is an exercise's tier within a day. It is derived from position.
type Tier string

const (
	T1 Tier = "T1"
	T2 Tier = "T2"
	T3 Tier = "T3"
)

// TierForPosition maps a usable exercise's position within a day to its tier.
func TierForPosition(i int) Tier {
	switch i {
	case 0:
		return T1
	case 1:
		return T2
	default:
		return T3
	}
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case T1, T2, T3:
		return t, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// Stage is the difficulty level within a tier's track (0, 1 or 2).
type Stage int

// MaxStage is the hardest stage; failing it deloads.
const MaxStage Stage = 2

// Day is one of the four fixed workout slots.
type Day string

const (
	DayA1 Day = "A1"
	DayB1 Day = "B1"
	DayA2 Day = "A2"
	DayB2 Day = "B2"
)

// Days is the fixed rotation order. Scans over days always use this order.
var Days = []Day{DayA1, DayB1, DayA2, DayB2}

// ParseDay validates a day key.
func ParseDay(s string) (Day, error) {
	d := Day(strings.ToUpper(strings.TrimSpace(s)))
	for _, day := range Days {
		if d == day {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day %q", s)
}

// Role is a main-lift movement.
type Role string

const (
	RoleSquat    Role = "squat"
	RoleBench    Role = "bench"
	RoleOHP      Role = "ohp"
	RoleDeadlift Role = "deadlift"
)

// dayRoles is the fixed day → (T1 role, T2 role) table.
var dayRoles = map[Day][2]Role{
	DayA1: {RoleSquat, RoleBench},
	DayB1: {RoleOHP, RoleDeadlift},
	DayA2: {RoleBench, RoleSquat},
	DayB2: {RoleDeadlift, RoleOHP},
}

// RoleFor returns the main-lift role trained at the given day and tier.
// T3 has no role.
func RoleFor(day Day, tier Tier) (Role, bool) {
	roles, ok := dayRoles[day]
	if !ok {
		return "", false
	}
	switch tier {
	case T1:
		return roles[0], true
	case T2:
		return roles[1], true
	}
	return "", false
}

// Region returns the body region a main lift loads.
func (r Role) Region() BodyRegion {
	switch r {
	case RoleSquat, RoleDeadlift:
		return RegionLower
	default:
		return RegionUpper
	}
}

// ProgressionKey is the state key for a main lift at a tier, e.g. "squat-T1".
// The same movement progresses independently at T1 and T2.
func ProgressionKey(role Role, tier Tier) string {
	return string(role) + "-" + string(tier)
}

// BodyRegion selects the weight increment.
type BodyRegion string

const (
	RegionUpper BodyRegion = "upper"
	RegionLower BodyRegion = "lower"
)

// WeightUnit is the user's display unit. State is always stored in kg.
type WeightUnit string

const (
	UnitKg  WeightUnit = "kg"
	UnitLbs WeightUnit = "lbs"
)

// ParseUnit validates a unit string. Empty defaults to kg.
func ParseUnit(s string) (WeightUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kg":
		return UnitKg, nil
	case "lb", "lbs":
		return UnitLbs, nil
	}
	return "", fmt.Errorf("unknown weight unit %q", s)
}

// Confidence describes how a stage value was obtained.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceManual Confidence = "manual"
)

// ProgressionState is the per-exercise (or per role-tier) training state.
// Weights are kilograms.
type ProgressionState struct {
	CurrentWeight float64 `json:"current_weight"`
	Stage         Stage   `json:"stage"`
	BaseWeight    float64 `json:"base_weight"`
	AmrapRecord   int     `json:"amrap_record"`
}

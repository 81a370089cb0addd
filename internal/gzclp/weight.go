package gzclp

import (
	"math"
	"strconv"
)

const lbsPerKg = 2.20462262

// KgToLbs converts kilograms to pounds.
func KgToLbs(kg float64) float64 { return kg * lbsPerKg }

// LbsToKg converts pounds to kilograms.
func LbsToKg(lbs float64) float64 { return lbs / lbsPerKg }

// ToUnit converts a stored kg weight into the display unit.
func ToUnit(kg float64, unit WeightUnit) float64 {
	if unit == UnitLbs {
		return KgToLbs(kg)
	}
	return kg
}

// FromUnit converts a display-unit weight into kg.
func FromUnit(v float64, unit WeightUnit) float64 {
	if unit == UnitLbs {
		return LbsToKg(v)
	}
	return v
}

// Step is the smallest loadable change in the unit: 2.5 kg or 5 lbs.
func Step(unit WeightUnit) float64 {
	if unit == UnitLbs {
		return 5
	}
	return 2.5
}

// Increment is the per-session weight increase in the unit.
func Increment(region BodyRegion, unit WeightUnit) float64 {
	switch {
	case unit == UnitLbs && region == RegionLower:
		return 10
	case unit == UnitLbs:
		return 5
	case region == RegionLower:
		return 5
	default:
		return 2.5
	}
}

// roundToStep snaps w to the nearest multiple of step.
func roundToStep(w, step float64) float64 {
	if step <= 0 {
		return w
	}
	return math.Round(w/step) * step
}

// RoundInUnit snaps a display-unit weight to the unit's step.
func RoundInUnit(v float64, unit WeightUnit) float64 {
	return roundToStep(v, Step(unit))
}

// RoundToIncrement snaps a kg weight to the nearest loadable weight in the
// user's unit and returns it in kg.
func RoundToIncrement(kg float64, unit WeightUnit) float64 {
	return FromUnit(RoundInUnit(ToUnit(kg, unit), unit), unit)
}

// FormatWeight renders a kg weight in the display unit, e.g. "62.5 kg".
func FormatWeight(kg float64, unit WeightUnit) string {
	v := ToUnit(kg, unit)
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + string(unit)
}

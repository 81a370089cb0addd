package gzclp

import "fmt"

// ExerciseConfig is an exercise the program schedules. ID is the Hevy
// exercise template id. Role is set for main lifts only.
// Region applies to accessories only; main lifts take theirs from the
// role. An accessory without one is treated as upper body.
type ExerciseConfig struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Role   Role       `json:"role,omitempty"`
	Region BodyRegion `json:"region,omitempty"`
}

// AccessoryRegion is the region an accessory progresses by.
func (e ExerciseConfig) AccessoryRegion() BodyRegion {
	if e.Region == "" {
		return RegionUpper
	}
	return e.Region
}

// Program is the persisted program configuration.
type Program struct {
	Unit       WeightUnit                `json:"unit"`
	Days       map[Day]string            `json:"days"`
	Exercises  map[string]ExerciseConfig `json:"exercises"`
	T3Schedule map[Day][]string          `json:"t3_schedule"`
}

// Validate checks that every referenced exercise exists.
func (p *Program) Validate() error {
	if _, err := ParseUnit(string(p.Unit)); err != nil {
		return err
	}
	for day := range p.Days {
		if _, err := ParseDay(string(day)); err != nil {
			return err
		}
	}
	for day, ids := range p.T3Schedule {
		for _, id := range ids {
			if _, ok := p.Exercises[id]; !ok {
				return fmt.Errorf("day %s: unknown T3 exercise %q", day, id)
			}
		}
	}
	seen := make(map[Role]string)
	for id, ex := range p.Exercises {
		if ex.Role == "" {
			continue
		}
		if other, ok := seen[ex.Role]; ok {
			return fmt.Errorf("role %s claimed by %q and %q", ex.Role, other, id)
		}
		seen[ex.Role] = id
	}
	for id, ex := range p.Exercises {
		switch ex.Region {
		case "", RegionUpper, RegionLower:
		default:
			return fmt.Errorf("exercise %q: invalid region %q", id, ex.Region)
		}
	}
	return nil
}

// Slot is one exercise position of a day.
type Slot struct {
	Tier           Tier       `json:"tier"`
	ExerciseID     string     `json:"exercise_id"`
	Name           string     `json:"name"`
	ProgressionKey string     `json:"progression_key"`
	Region         BodyRegion `json:"region"`
}

// MainExercise returns the exercise holding a main-lift role.
func MainExercise(exercises map[string]ExerciseConfig, role Role) (ExerciseConfig, bool) {
	for _, ex := range exercises {
		if ex.Role == role {
			return ex, true
		}
	}
	return ExerciseConfig{}, false
}

// Slots lists a day's T1, T2 and T3 exercises in order. Main lifts are
// resolved through the day's roles; accessories through the T3 schedule.
func Slots(day Day, exercises map[string]ExerciseConfig, t3Schedule map[Day][]string) []Slot {
	var slots []Slot
	for _, tier := range []Tier{T1, T2} {
		role, ok := RoleFor(day, tier)
		if !ok {
			continue
		}
		ex, ok := MainExercise(exercises, role)
		if !ok {
			continue
		}
		slots = append(slots, Slot{
			Tier:           tier,
			ExerciseID:     ex.ID,
			Name:           ex.Name,
			ProgressionKey: ProgressionKey(role, tier),
			Region:         role.Region(),
		})
	}
	for _, id := range t3Schedule[day] {
		ex, ok := exercises[id]
		if !ok {
			continue
		}
		slots = append(slots, Slot{
			Tier:           T3,
			ExerciseID:     id,
			Name:           ex.Name,
			ProgressionKey: id,
			Region:         ex.AccessoryRegion(),
		})
	}
	return slots
}

// Slots lists the exercises scheduled on day.
func (p *Program) Slots(day Day) []Slot {
	return Slots(day, p.Exercises, p.T3Schedule)
}

// DayForRoutine finds the day a routine is assigned to.
func (p *Program) DayForRoutine(routineID string) (Day, bool) {
	if routineID == "" {
		return "", false
	}
	for _, day := range Days {
		if p.Days[day] == routineID {
			return day, true
		}
	}
	return "", false
}

// Calculate dispatches to the tier's progression rule.
func Calculate(tier Tier, state ProgressionState, reps []int, region BodyRegion, unit WeightUnit) Suggestion {
	switch tier {
	case T1:
		return CalculateT1Progression(state, reps, region, unit)
	case T2:
		return CalculateT2Progression(state, reps, region, unit)
	default:
		return CalculateT3Progression(state, reps, region, unit)
	}
}

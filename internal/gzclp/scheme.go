package gzclp

import "fmt"

// Scheme is a prescribed sets × reps pattern. AMRAP marks the final set as
// "as many reps as possible" with Reps as its minimum.
type Scheme struct {
	Sets  int  `json:"sets"`
	Reps  int  `json:"reps"`
	AMRAP bool `json:"amrap"`
}

// String renders the scheme the way lifters write it: "5x3+", "3x10".
func (s Scheme) String() string {
	suffix := ""
	if s.AMRAP {
		suffix = "+"
	}
	return fmt.Sprintf("%dx%d%s", s.Sets, s.Reps, suffix)
}

// TotalReps is the minimum number of reps the scheme prescribes.
func (s Scheme) TotalReps() int {
	return s.Sets * s.Reps
}

var schemes = map[Tier][]Scheme{
	T1: {
		{Sets: 5, Reps: 3, AMRAP: true},
		{Sets: 6, Reps: 2, AMRAP: true},
		{Sets: 10, Reps: 1, AMRAP: true},
	},
	T2: {
		{Sets: 3, Reps: 10},
		{Sets: 3, Reps: 8},
		{Sets: 3, Reps: 6},
	},
	T3: {
		{Sets: 3, Reps: 15, AMRAP: true},
	},
}

// SchemeFor returns the scheme for a tier at a stage. Out-of-range stages are
// clamped; T3 has a single scheme.
func SchemeFor(tier Tier, stage Stage) Scheme {
	list, ok := schemes[tier]
	if !ok {
		list = schemes[T3]
	}
	return list[clampStage(stage, len(list))]
}

func clampStage(stage Stage, n int) int {
	if stage < 0 {
		return 0
	}
	if int(stage) >= n {
		return n - 1
	}
	return int(stage)
}

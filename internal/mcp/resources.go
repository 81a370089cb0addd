package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/gzclp/internal/gzclp"
)

type slotView struct {
	Tier           gzclp.Tier  `json:"tier"`
	ExerciseID     string      `json:"exercise_id"`
	Name           string      `json:"name"`
	ProgressionKey string      `json:"progression_key"`
	Weight         string      `json:"weight,omitempty"`
	WeightKg       *float64    `json:"weight_kg,omitempty"`
	Stage          gzclp.Stage `json:"stage"`
	Scheme         string      `json:"scheme"`
}

type dayView struct {
	Day       gzclp.Day  `json:"day"`
	RoutineID string     `json:"routine_id,omitempty"`
	Exercises []slotView `json:"exercises"`
}

type programSummary struct {
	Unit gzclp.WeightUnit `json:"unit"`
	Days []dayView        `json:"days"`
}

// programView joins the program's slots with their progression state.
func (h *handlers) programView(ctx context.Context) (*programSummary, error) {
	program, err := h.ds.LoadProgram(ctx)
	if err != nil {
		return nil, err
	}
	progression, err := h.ds.LoadProgression(ctx)
	if err != nil {
		return nil, err
	}

	view := &programSummary{Unit: program.Unit}
	for _, day := range gzclp.Days {
		dv := dayView{Day: day, RoutineID: program.Days[day]}
		for _, slot := range program.Slots(day) {
			sv := slotView{
				Tier:           slot.Tier,
				ExerciseID:     slot.ExerciseID,
				Name:           slot.Name,
				ProgressionKey: slot.ProgressionKey,
				Scheme:         gzclp.SchemeFor(slot.Tier, 0).String(),
			}
			if st, ok := progression[slot.ProgressionKey]; ok {
				kg := st.CurrentWeight
				sv.WeightKg = &kg
				sv.Weight = gzclp.FormatWeight(kg, program.Unit)
				if slot.Tier != gzclp.T3 {
					sv.Stage = st.Stage
					sv.Scheme = gzclp.SchemeFor(slot.Tier, st.Stage).String()
				}
			}
			dv.Exercises = append(dv.Exercises, sv)
		}
		view.Days = append(view.Days, dv)
	}
	return view, nil
}

func (h *handlers) programResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	view, err := h.programView(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

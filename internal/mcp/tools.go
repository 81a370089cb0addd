package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/models"
	"github.com/meltforce/gzclp/internal/storage"
)

// parseReps parses a rep list such as "3,3,3,3,7" or "10 10 9".
func parseReps(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	reps := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid rep count %q", f)
		}
		reps = append(reps, n)
	}
	if len(reps) == 0 {
		return nil, fmt.Errorf("no reps given")
	}
	return reps, nil
}

// --- Tool definitions ---

var toolDetectStage = mcp.NewTool("detect_stage",
	mcp.WithDescription("Detect the GZCLP stage from the reps of an exercise's working sets. Returns the stage, rep scheme and confidence, or no match when the pattern is not a canonical scheme."),
	mcp.WithString("tier", mcp.Required(), mcp.Description("Exercise tier"), mcp.Enum("T1", "T2", "T3")),
	mcp.WithString("reps", mcp.Required(), mcp.Description("Reps per working set, comma separated (e.g. '3,3,3,3,3')")),
)

var toolCalculateProgression = mcp.NewTool("calculate_progression",
	mcp.WithDescription("Calculate the next session for a lift from the reps just completed. Either name a stored progression key (e.g. 'squat-T1') or give the tier, weight and stage explicitly."),
	mcp.WithString("reps", mcp.Required(), mcp.Description("Reps per working set, comma separated")),
	mcp.WithString("key", mcp.Description("Stored progression key, e.g. 'bench-T2'. Overrides tier/weight/stage.")),
	mcp.WithString("tier", mcp.Description("Exercise tier when no key is given"), mcp.Enum("T1", "T2", "T3")),
	mcp.WithNumber("weight", mcp.Description("Current weight in the given unit when no key is given")),
	mcp.WithNumber("stage", mcp.Description("Current stage (0-2) when no key is given. Defaults to 0.")),
	mcp.WithString("region", mcp.Description("Body region for the increment. Defaults to upper, or the lift's region for a key."), mcp.Enum("upper", "lower")),
	mcp.WithString("unit", mcp.Description("Weight unit. Defaults to the program's unit, else kg."), mcp.Enum("kg", "lbs")),
)

var toolGetProgressionState = mcp.NewTool("get_progression_state",
	mcp.WithDescription("Current weight, stage and AMRAP record per lift. Weights are kilograms."),
	mcp.WithString("key", mcp.Description("Only return this progression key (e.g. 'deadlift-T1')")),
)

var toolGetProgram = mcp.NewTool("get_program",
	mcp.WithDescription("The imported program: unit, routine per day and every day's T1/T2/T3 exercises with current weight and scheme."),
)

var toolGetSyncHistory = mcp.NewTool("get_sync_history",
	mcp.WithDescription("Recent sync runs with workouts processed, routines updated and errors."),
	mcp.WithNumber("limit", mcp.Description("Number of runs to return. Defaults to 10.")),
)

var toolGetStats = mcp.NewTool("get_stats",
	mcp.WithDescription("Summary of tracked lifts per stage and of sync runs, including failures and the last run time."),
)

// --- Tool handlers ---

func (h *handlers) detectStage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tierStr, err := req.RequireString("tier")
	if err != nil {
		return mcp.NewToolResultError("tier parameter is required"), nil
	}
	tier, err := gzclp.ParseTier(tierStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	repsStr, err := req.RequireString("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	reps, err := parseReps(repsStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sets := make([]models.ExerciseSet, 0, len(reps))
	for _, r := range reps {
		sets = append(sets, models.ExerciseSet{Type: models.SetTypeNormal, Reps: models.IntPtr(r)})
	}

	det := gzclp.DetectStage(sets, tier)
	if det == nil {
		return mcp.NewToolResultJSON(map[string]any{
			"matched": false,
			"message": fmt.Sprintf("%d sets of %v is not a canonical %s scheme", len(reps), reps, tier),
		})
	}
	return mcp.NewToolResultJSON(map[string]any{
		"matched":    true,
		"stage":      det.Stage,
		"rep_scheme": det.RepScheme,
		"set_count":  det.SetCount,
		"confidence": det.Confidence,
	})
}

func (h *handlers) calculateProgression(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repsStr, err := req.RequireString("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	reps, err := parseReps(repsStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	unit, err := gzclp.ParseUnit(req.GetString("unit", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	region := gzclp.RegionUpper

	var (
		tier  gzclp.Tier
		state gzclp.ProgressionState
	)
	if key := req.GetString("key", ""); key != "" {
		tier, region, state, unit, err = h.storedLift(ctx, key, req.GetString("unit", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	} else {
		if tier, err = gzclp.ParseTier(req.GetString("tier", "")); err != nil {
			return mcp.NewToolResultError("tier or key is required"), nil
		}
		weight := req.GetFloat("weight", 0)
		if weight <= 0 {
			return mcp.NewToolResultError("weight must be positive"), nil
		}
		stage := req.GetInt("stage", 0)
		if stage < 0 || stage > int(gzclp.MaxStage) {
			return mcp.NewToolResultError("stage must be 0, 1 or 2"), nil
		}
		state = gzclp.ProgressionState{CurrentWeight: gzclp.FromUnit(weight, unit), Stage: gzclp.Stage(stage)}
	}
	if r := req.GetString("region", ""); r != "" {
		region = gzclp.BodyRegion(r)
	}

	sug := gzclp.Calculate(tier, state, reps, region, unit)
	return mcp.NewToolResultJSON(map[string]any{
		"type":          sug.Type,
		"reason":        sug.Reason,
		"new_weight":    gzclp.FormatWeight(sug.NewWeight, unit),
		"new_weight_kg": sug.NewWeight,
		"new_stage":     sug.NewStage,
		"new_scheme":    sug.NewScheme,
		"amrap_reps":    sug.AmrapReps,
	})
}

// storedLift resolves a progression key to its tier, region, stored state
// and the program's unit. An explicit unit wins over the program's.
func (h *handlers) storedLift(ctx context.Context, key, unitOverride string) (gzclp.Tier, gzclp.BodyRegion, gzclp.ProgressionState, gzclp.WeightUnit, error) {
	progression, err := h.ds.LoadProgression(ctx)
	if err != nil {
		h.log.Error("mcp calculate_progression", "error", err)
		return "", "", gzclp.ProgressionState{}, "", fmt.Errorf("loading progression: %w", err)
	}
	state, ok := progression[key]
	if !ok {
		return "", "", gzclp.ProgressionState{}, "", fmt.Errorf("no progression state for %q", key)
	}

	unit := gzclp.UnitKg
	program, err := h.ds.LoadProgram(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", "", gzclp.ProgressionState{}, "", fmt.Errorf("loading program: %w", err)
	}
	if program != nil {
		unit = program.Unit
	}
	if unitOverride != "" {
		if unit, err = gzclp.ParseUnit(unitOverride); err != nil {
			return "", "", gzclp.ProgressionState{}, "", err
		}
	}

	// Main lift keys are "<role>-<tier>"; anything else is an accessory.
	if role, tierStr, found := strings.Cut(key, "-"); found {
		if tier, err := gzclp.ParseTier(tierStr); err == nil && tier != gzclp.T3 {
			return tier, gzclp.Role(role).Region(), state, unit, nil
		}
	}
	return gzclp.T3, gzclp.RegionUpper, state, unit, nil
}

func (h *handlers) getProgressionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	progression, err := h.ds.LoadProgression(ctx)
	if err != nil {
		h.log.Error("mcp get_progression_state", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if key := req.GetString("key", ""); key != "" {
		state, ok := progression[key]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no progression state for %q", key)), nil
		}
		return mcp.NewToolResultJSON(map[string]any{"key": key, "state": state})
	}
	return mcp.NewToolResultJSON(progression)
}

func (h *handlers) getProgram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := h.programView(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return mcp.NewToolResultError("no program imported yet"), nil
	}
	if err != nil {
		h.log.Error("mcp get_program", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return mcp.NewToolResultJSON(view)
}

func (h *handlers) getSyncHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}
	logs, err := h.ds.QuerySyncLogs(ctx, limit)
	if err != nil {
		h.log.Error("mcp get_sync_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return mcp.NewToolResultJSON(logs)
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetDataStats(ctx)
	if err != nil {
		h.log.Error("mcp get_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return mcp.NewToolResultJSON(stats)
}

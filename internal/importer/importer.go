package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/models"
)

// Stats tracks import progress.
type Stats struct {
	RoutinesFetched int
	DaysImported    int
	MainLifts       int
	Accessories     int
	Warnings        int
}

// RoutineSource lists the user's routines.
type RoutineSource interface {
	ListRoutines(ctx context.Context) ([]models.Routine, error)
}

// Store persists the imported program and its initial state.
type Store interface {
	SaveProgram(ctx context.Context, p *gzclp.Program) error
	UpsertProgression(ctx context.Context, states map[string]gzclp.ProgressionState) error
}

// Importer reads routines, extracts the program and stores it.
type Importer struct {
	store  Store
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer. store may be nil in dry-run mode.
func New(store Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{store: store, log: log, dryRun: dryRun}
}

// Import fetches all routines from src, extracts the day assignment and
// stores the resulting program unless running dry.
func (imp *Importer) Import(ctx context.Context, src RoutineSource, days map[gzclp.Day]string, unit gzclp.WeightUnit) (*Result, *Stats, error) {
	routines, err := src.ListRoutines(ctx)
	if err != nil {
		return nil, &imp.stats, fmt.Errorf("listing routines: %w", err)
	}
	imp.stats.RoutinesFetched = len(routines)

	byID := make(map[string]models.Routine, len(routines))
	for _, r := range routines {
		byID[r.ID] = r
	}

	result := ExtractFromRoutines(byID, days)
	imp.stats.DaysImported = len(result.ByDay)
	imp.stats.Warnings = len(result.Warnings)
	for _, w := range result.Warnings {
		imp.log.Warn("import warning", "type", w.Type, "day", w.Day, "exercise", w.Exercise, "message", w.Message)
	}

	if err := imp.Commit(ctx, result, unit); err != nil {
		return result, &imp.stats, err
	}
	return result, &imp.stats, nil
}

// Commit stores a reviewed import result.
func (imp *Importer) Commit(ctx context.Context, result *Result, unit gzclp.WeightUnit) error {
	program, progression := ProgramFromImport(result, unit)
	for _, ex := range program.Exercises {
		if ex.Role != "" {
			imp.stats.MainLifts++
		} else {
			imp.stats.Accessories++
		}
	}
	if err := program.Validate(); err != nil {
		return fmt.Errorf("validating program: %w", err)
	}

	if imp.dryRun {
		imp.log.Info("dry run, not storing program", "exercises", len(program.Exercises), "states", len(progression))
		return nil
	}

	if err := imp.store.SaveProgram(ctx, program); err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	if err := imp.store.UpsertProgression(ctx, progression); err != nil {
		return fmt.Errorf("saving progression: %w", err)
	}
	imp.log.Info("program stored", "days", len(program.Days), "exercises", len(program.Exercises))
	return nil
}

// FileSource reads routines from a JSON export: either a bare array or the
// Hevy list response {"routines": [...]}. Files ending in .gz are gunzipped.
type FileSource struct {
	Path string
}

// ListRoutines implements RoutineSource.
func (f FileSource) ListRoutines(_ context.Context) ([]models.Routine, error) {
	data, err := readExport(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}

	var routines []models.Routine
	if err := json.Unmarshal(data, &routines); err == nil {
		return routines, nil
	}

	var page struct {
		Routines []models.Routine `json:"routines"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}
	return page.Routines, nil
}

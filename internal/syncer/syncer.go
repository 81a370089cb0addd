// Package syncer runs one sync pass: apply newly logged workouts to the
// progression state, diff the result against the Hevy routines and write the
// selected changes back.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/hevy"
	"github.com/meltforce/gzclp/internal/models"
	"github.com/meltforce/gzclp/internal/preview"
	"github.com/meltforce/gzclp/internal/storage"
)

// Stats tracks sync progress.
type Stats struct {
	WorkoutsFetched int
	WorkoutsSkipped int
	WorkoutsApplied int
	ChangesApplied  int

	PushCount int
	PullCount int
	SkipCount int

	RoutinesUpdated int
	RoutinesCreated int
	PullsApplied    int

	// RemoteEdits counts exercises whose Hevy weight changed since the
	// previous sync, i.e. edited by hand in the app.
	RemoteEdits int
}

// Store is the persisted program and progression state.
type Store interface {
	LoadProgram(ctx context.Context) (*gzclp.Program, error)
	SaveProgram(ctx context.Context, p *gzclp.Program) error
	LoadProgression(ctx context.Context) (map[string]gzclp.ProgressionState, error)
	UpsertProgression(ctx context.Context, states map[string]gzclp.ProgressionState) error
	InsertSyncLog(ctx context.Context, log storage.SyncLog) (int64, error)
}

// Remote is the Hevy API.
type Remote interface {
	ListWorkouts(ctx context.Context, since time.Time) ([]models.Workout, error)
	ListRoutines(ctx context.Context) ([]models.Routine, error)
	UpdateRoutine(ctx context.Context, id string, r hevy.RoutineUpdate) error
	CreateRoutine(ctx context.Context, r hevy.RoutineUpdate) (string, error)
}

// Ledger is the local record of processed workouts and remote snapshots.
type Ledger interface {
	IsProcessed(workoutID string) (bool, error)
	MarkProcessed(workoutID string, startedAt time.Time) error
	LastProcessed() (time.Time, error)
	SaveSnapshot(snap map[gzclp.Day]preview.RemoteDay) (bool, error)
	LoadSnapshot() (map[gzclp.Day]preview.RemoteDay, error)
}

// Options control a sync run.
type Options struct {
	// DryRun computes everything but writes nothing.
	DryRun bool
	// PullAll adopts every differing remote weight instead of pushing.
	PullAll bool
	// Since overrides the start of the workout window. Zero means the
	// newest processed workout.
	Since time.Time
}

// Syncer ties the stores and the Hevy client together.
type Syncer struct {
	store  Store
	remote Remote
	ledger Ledger
	opts   Options
	log    *slog.Logger
	stats  Stats
}

// New creates a new Syncer.
func New(store Store, remote Remote, ledger Ledger, opts Options, log *slog.Logger) *Syncer {
	return &Syncer{store: store, remote: remote, ledger: ledger, opts: opts, log: log}
}

// Run executes the sync pipeline and records a sync log unless dry-running.
func (s *Syncer) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	err := s.run(ctx)

	if !s.opts.DryRun {
		entry := storage.SyncLog{
			Source:            "sync",
			Status:            "success",
			WorkoutsProcessed: s.stats.WorkoutsApplied,
			ChangesApplied:    s.stats.ChangesApplied,
			RoutinesUpdated:   s.stats.RoutinesUpdated,
			RoutinesCreated:   s.stats.RoutinesCreated,
			PullsApplied:      s.stats.PullsApplied,
		}
		ms := int(time.Since(start).Milliseconds())
		entry.DurationMs = &ms
		if err != nil {
			msg := err.Error()
			entry.Status = "error"
			entry.ErrorMessage = &msg
		}
		if meta, merr := json.Marshal(s.stats); merr == nil {
			raw := json.RawMessage(meta)
			entry.Metadata = &raw
		}
		if _, lerr := s.store.InsertSyncLog(ctx, entry); lerr != nil {
			s.log.Warn("recording sync log failed", "error", lerr)
		}
	}
	return &s.stats, err
}

func (s *Syncer) run(ctx context.Context) error {
	program, err := s.store.LoadProgram(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no program stored, run the import first")
	}
	if err != nil {
		return fmt.Errorf("loading program: %w", err)
	}
	progression, err := s.store.LoadProgression(ctx)
	if err != nil {
		return fmt.Errorf("loading progression: %w", err)
	}

	// Phase 1: apply new workouts
	progression, applied, err := s.applyWorkouts(ctx, program, progression)
	if err != nil {
		return err
	}

	// Phase 2: diff against a complete remote snapshot
	routines, err := s.remote.ListRoutines(ctx)
	if err != nil {
		return fmt.Errorf("listing routines: %w", err)
	}
	snap := hevy.RemoteSnapshot(routines, program.Days)
	if prev, err := s.ledger.LoadSnapshot(); err != nil {
		s.log.Warn("loading previous snapshot failed", "error", err)
	} else {
		s.stats.RemoteEdits = s.logRemoteEdits(prev, snap)
	}

	sp := preview.BuildSelectablePushPreview(snap, program.Exercises, progression, program.T3Schedule, program.Unit)
	if s.opts.PullAll {
		sp = preview.SetAll(sp, preview.ActionPull)
	}
	s.stats.PushCount, s.stats.PullCount, s.stats.SkipCount = sp.PushCount, sp.PullCount, sp.SkipCount
	for _, dd := range sp.Days {
		for _, ex := range dd.Exercises {
			if ex.Action == preview.ActionSkip {
				continue
			}
			s.log.Info("routine change", "key", ex.Key, "name", ex.Name, "action", ex.Action,
				"old", ex.OldWeight, "new", ex.NewWeight, "unit", program.Unit)
		}
	}

	plan := preview.Plan(sp)
	progression = preview.ApplyPulls(progression, plan)
	s.stats.PullsApplied = len(plan.Pulls)

	if s.opts.DryRun {
		s.log.Info("dry run, nothing written", "push", sp.PushCount, "pull", sp.PullCount)
		return nil
	}

	// Phase 3: write back
	programChanged, err := s.pushRoutines(ctx, program, routines, plan, snap)
	if err != nil {
		return err
	}
	if programChanged {
		if err := s.store.SaveProgram(ctx, program); err != nil {
			return fmt.Errorf("saving program: %w", err)
		}
	}
	if err := s.store.UpsertProgression(ctx, progression); err != nil {
		return fmt.Errorf("saving progression: %w", err)
	}
	for _, w := range applied {
		if err := s.ledger.MarkProcessed(w.ID, w.StartTime); err != nil {
			return fmt.Errorf("marking workout %s: %w", w.ID, err)
		}
	}
	if _, err := s.ledger.SaveSnapshot(snap); err != nil {
		s.log.Warn("saving snapshot failed", "error", err)
	}
	return nil
}

// applyWorkouts folds every unprocessed workout since the window start into
// progression, oldest first.
func (s *Syncer) applyWorkouts(ctx context.Context, program *gzclp.Program, progression map[string]gzclp.ProgressionState) (map[string]gzclp.ProgressionState, []models.Workout, error) {
	since := s.opts.Since
	if since.IsZero() {
		last, err := s.ledger.LastProcessed()
		if err != nil {
			return nil, nil, fmt.Errorf("reading last processed workout: %w", err)
		}
		since = last
	}

	workouts, err := s.remote.ListWorkouts(ctx, since)
	if err != nil {
		return nil, nil, fmt.Errorf("listing workouts: %w", err)
	}
	s.stats.WorkoutsFetched = len(workouts)

	var applied []models.Workout
	for _, w := range workouts {
		done, err := s.ledger.IsProcessed(w.ID)
		if err != nil {
			s.log.Warn("state check failed", "workout", w.ID, "error", err)
			s.stats.WorkoutsSkipped++
			continue
		}
		if done {
			s.stats.WorkoutsSkipped++
			continue
		}

		changes := gzclp.AnalyzeWorkout(w, program, progression)
		for _, c := range changes {
			s.log.Info("progression", "workout", w.Title, "key", c.ProgressionKey,
				"type", c.Suggestion.Type, "reason", c.Suggestion.Reason)
		}
		progression = gzclp.ApplyChanges(progression, changes)
		s.stats.ChangesApplied += len(changes)
		s.stats.WorkoutsApplied++
		applied = append(applied, w)
	}
	return progression, applied, nil
}

// pushRoutines writes the planned routine updates. It reports whether a
// routine was created and the program's day assignment changed.
// pushRoutines writes the plan's routine updates and records every written
// weight in snap, so the saved snapshot matches Hevy after the push.
func (s *Syncer) pushRoutines(ctx context.Context, program *gzclp.Program, routines []models.Routine, plan *preview.CommitPlan, snap map[gzclp.Day]preview.RemoteDay) (bool, error) {
	byID := make(map[string]models.Routine, len(routines))
	for _, r := range routines {
		byID[r.ID] = r
	}

	changed := false
	for _, ru := range plan.RoutineUpdates {
		existing, ok := byID[ru.RoutineID]
		if ru.RoutineID == "" || !ok {
			id, err := s.remote.CreateRoutine(ctx, hevy.BuildRoutine(ru.Day, ru.Targets))
			if err != nil {
				return changed, fmt.Errorf("creating routine for %s: %w", ru.Day, err)
			}
			if program.Days == nil {
				program.Days = make(map[gzclp.Day]string)
			}
			program.Days[ru.Day] = id
			recordPush(snap, ru.Day, preview.RemoteDay{RoutineID: id}, ru.Targets)
			changed = true
			s.stats.RoutinesCreated++
			s.log.Info("routine created", "day", ru.Day, "id", id)
			continue
		}

		if err := s.remote.UpdateRoutine(ctx, ru.RoutineID, hevy.ApplyTargets(existing, ru.Targets)); err != nil {
			return changed, fmt.Errorf("updating routine for %s: %w", ru.Day, err)
		}
		recordPush(snap, ru.Day, snap[ru.Day], ru.Targets)
		s.stats.RoutinesUpdated++
		s.log.Info("routine updated", "day", ru.Day, "id", ru.RoutineID, "exercises", len(ru.Targets))
	}
	return changed, nil
}

// recordPush sets the pushed target weights on a copy of base and stores it
// as the day's snapshot.
func recordPush(snap map[gzclp.Day]preview.RemoteDay, day gzclp.Day, base preview.RemoteDay, targets []preview.Target) {
	weights := make(map[string]float64, len(base.Weights)+len(targets))
	for id, w := range base.Weights {
		weights[id] = w
	}
	for _, t := range targets {
		weights[t.TemplateID] = t.WeightKg
	}
	snap[day] = preview.RemoteDay{RoutineID: base.RoutineID, Weights: weights}
}

// logRemoteEdits reports exercises whose remote weight differs from the
// previous snapshot of the same routine.
func (s *Syncer) logRemoteEdits(prev, snap map[gzclp.Day]preview.RemoteDay) int {
	edits := 0
	for _, day := range gzclp.Days {
		before, ok := prev[day]
		after := snap[day]
		if !ok || before.RoutineID == "" || before.RoutineID != after.RoutineID {
			continue
		}
		for id, w := range after.Weights {
			if old, ok := before.Weights[id]; ok && old != w {
				s.log.Info("remote weight edited since last sync", "day", day, "exercise", id, "was", old, "now", w)
				edits++
			}
		}
	}
	return edits
}

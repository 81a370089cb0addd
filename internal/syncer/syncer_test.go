package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/hevy"
	"github.com/meltforce/gzclp/internal/models"
	"github.com/meltforce/gzclp/internal/preview"
	"github.com/meltforce/gzclp/internal/storage"
)

type fakeStore struct {
	program     *gzclp.Program
	progression map[string]gzclp.ProgressionState
	saved       *gzclp.Program
	upserted    map[string]gzclp.ProgressionState
	logs        []storage.SyncLog
}

func (f *fakeStore) LoadProgram(context.Context) (*gzclp.Program, error) {
	if f.program == nil {
		return nil, storage.ErrNotFound
	}
	return f.program, nil
}

func (f *fakeStore) SaveProgram(_ context.Context, p *gzclp.Program) error {
	f.saved = p
	return nil
}

func (f *fakeStore) LoadProgression(context.Context) (map[string]gzclp.ProgressionState, error) {
	return f.progression, nil
}

func (f *fakeStore) UpsertProgression(_ context.Context, states map[string]gzclp.ProgressionState) error {
	f.upserted = states
	return nil
}

func (f *fakeStore) InsertSyncLog(_ context.Context, l storage.SyncLog) (int64, error) {
	f.logs = append(f.logs, l)
	return int64(len(f.logs)), nil
}

type fakeRemote struct {
	workouts []models.Workout
	routines []models.Routine
	since    time.Time
	updated  map[string]hevy.RoutineUpdate
	created  []hevy.RoutineUpdate
}

func (f *fakeRemote) ListWorkouts(_ context.Context, since time.Time) ([]models.Workout, error) {
	f.since = since
	return f.workouts, nil
}

func (f *fakeRemote) ListRoutines(context.Context) ([]models.Routine, error) {
	return f.routines, nil
}

func (f *fakeRemote) UpdateRoutine(_ context.Context, id string, r hevy.RoutineUpdate) error {
	if f.updated == nil {
		f.updated = make(map[string]hevy.RoutineUpdate)
	}
	f.updated[id] = r
	return nil
}

func (f *fakeRemote) CreateRoutine(_ context.Context, r hevy.RoutineUpdate) (string, error) {
	f.created = append(f.created, r)
	return "created-1", nil
}

type fakeLedger struct {
	processed map[string]time.Time
	last      time.Time
	snapshots int
	snapshot  map[gzclp.Day]preview.RemoteDay
}

func (f *fakeLedger) IsProcessed(id string) (bool, error) {
	_, ok := f.processed[id]
	return ok, nil
}

func (f *fakeLedger) MarkProcessed(id string, t time.Time) error {
	if f.processed == nil {
		f.processed = make(map[string]time.Time)
	}
	f.processed[id] = t
	return nil
}

func (f *fakeLedger) LastProcessed() (time.Time, error) { return f.last, nil }

func (f *fakeLedger) SaveSnapshot(snap map[gzclp.Day]preview.RemoteDay) (bool, error) {
	f.snapshots++
	f.snapshot = snap
	return true, nil
}

func (f *fakeLedger) LoadSnapshot() (map[gzclp.Day]preview.RemoteDay, error) {
	return f.snapshot, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func program() *gzclp.Program {
	return &gzclp.Program{
		Unit: gzclp.UnitKg,
		Days: map[gzclp.Day]string{gzclp.DayA1: "r-a1"},
		Exercises: map[string]gzclp.ExerciseConfig{
			"SQ": {ID: "SQ", Name: "Squat (Barbell)", Role: gzclp.RoleSquat},
			"BP": {ID: "BP", Name: "Bench Press (Barbell)", Role: gzclp.RoleBench},
		},
	}
}

func sets(weight float64, reps ...int) []models.ExerciseSet {
	out := make([]models.ExerciseSet, 0, len(reps))
	for _, r := range reps {
		out = append(out, models.ExerciseSet{Type: models.SetTypeNormal, WeightKg: models.FloatPtr(weight), Reps: models.IntPtr(r)})
	}
	return out
}

func routineA1(squat, bench float64) models.Routine {
	return models.Routine{
		ID:    "r-a1",
		Title: "GZCLP A1",
		Exercises: []models.RoutineExercise{
			{ExerciseTemplateID: "SQ", Title: "Squat (Barbell)", Sets: sets(squat, 3, 3, 3, 3, 3)},
			{ExerciseTemplateID: "BP", Title: "Bench Press (Barbell)", Sets: sets(bench, 10, 10, 10)},
		},
	}
}

func startingState() map[string]gzclp.ProgressionState {
	return map[string]gzclp.ProgressionState{
		"squat-T1": {CurrentWeight: 60},
		"bench-T2": {CurrentWeight: 40},
	}
}

var workoutTime = time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC)

func completedA1() models.Workout {
	return models.Workout{
		ID:        "w1",
		Title:     "GZCLP A1",
		RoutineID: "r-a1",
		StartTime: workoutTime,
		Exercises: []models.RoutineExercise{
			{ExerciseTemplateID: "SQ", Sets: sets(60, 3, 3, 3, 3, 5)},
			{ExerciseTemplateID: "BP", Sets: sets(40, 10, 10, 10)},
		},
	}
}

// TestRun_AppliesWorkoutAndPushes verifies the full pass: the workout
// progresses both lifts, the routine is rewritten, state is persisted and the
// workout is marked processed.
func TestRun_AppliesWorkoutAndPushes(t *testing.T) {
	store := &fakeStore{program: program(), progression: startingState()}
	remote := &fakeRemote{workouts: []models.Workout{completedA1()}, routines: []models.Routine{routineA1(60, 40)}}
	ledger := &fakeLedger{}

	stats, err := New(store, remote, ledger, Options{}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]gzclp.ProgressionState{
		"squat-T1": {CurrentWeight: 65, AmrapRecord: 5},
		"bench-T2": {CurrentWeight: 42.5},
	}
	if diff := cmp.Diff(want, store.upserted); diff != "" {
		t.Errorf("progression mismatch (-want +got):\n%s", diff)
	}

	u, ok := remote.updated["r-a1"]
	if !ok {
		t.Fatal("routine r-a1 not updated")
	}
	if got := *u.Exercises[0].Sets[0].WeightKg; got != 65 {
		t.Errorf("squat weight = %v, want 65", got)
	}
	if got := *u.Exercises[1].Sets[0].WeightKg; got != 42.5 {
		t.Errorf("bench weight = %v, want 42.5", got)
	}

	if _, ok := ledger.processed["w1"]; !ok {
		t.Error("workout not marked processed")
	}
	if ledger.snapshots != 1 {
		t.Errorf("snapshots = %d, want 1", ledger.snapshots)
	}
	if stats.WorkoutsApplied != 1 || stats.ChangesApplied != 2 || stats.RoutinesUpdated != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(store.logs) != 1 || store.logs[0].Status != "success" {
		t.Errorf("sync logs = %+v, want one success", store.logs)
	}
	if store.saved != nil {
		t.Error("program saved although no routine was created")
	}
}

// TestRun_SkipsProcessed verifies that an already processed workout does not
// progress again and that the window starts at the newest processed workout.
func TestRun_SkipsProcessed(t *testing.T) {
	store := &fakeStore{program: program(), progression: startingState()}
	remote := &fakeRemote{workouts: []models.Workout{completedA1()}, routines: []models.Routine{routineA1(60, 40)}}
	ledger := &fakeLedger{processed: map[string]time.Time{"w1": workoutTime}, last: workoutTime}

	stats, err := New(store, remote, ledger, Options{}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !remote.since.Equal(workoutTime) {
		t.Errorf("since = %v, want %v", remote.since, workoutTime)
	}
	if stats.WorkoutsSkipped != 1 || stats.WorkoutsApplied != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(remote.updated) != 0 {
		t.Errorf("unchanged routines were written: %v", remote.updated)
	}
	if got := store.upserted["squat-T1"].CurrentWeight; got != 60 {
		t.Errorf("squat = %v, want 60", got)
	}
}

// TestRun_DryRun verifies that nothing is written in dry-run mode.
func TestRun_DryRun(t *testing.T) {
	store := &fakeStore{program: program(), progression: startingState()}
	remote := &fakeRemote{workouts: []models.Workout{completedA1()}, routines: []models.Routine{routineA1(60, 40)}}
	ledger := &fakeLedger{}

	stats, err := New(store, remote, ledger, Options{DryRun: true}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.PushCount != 2 {
		t.Errorf("push count = %d, want 2", stats.PushCount)
	}
	if store.upserted != nil || len(remote.updated) != 0 || len(ledger.processed) != 0 || len(store.logs) != 0 {
		t.Error("dry run wrote state")
	}
}

// TestRun_PullAll verifies that pulling adopts the remote weights and leaves
// the routine alone.
func TestRun_PullAll(t *testing.T) {
	store := &fakeStore{program: program(), progression: startingState()}
	remote := &fakeRemote{routines: []models.Routine{routineA1(70, 40)}}
	ledger := &fakeLedger{}

	stats, err := New(store, remote, ledger, Options{PullAll: true}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(remote.updated) != 0 {
		t.Errorf("routines written on pull: %v", remote.updated)
	}
	if got := store.upserted["squat-T1"].CurrentWeight; got != 70 {
		t.Errorf("squat = %v, want 70", got)
	}
	if stats.PullsApplied != 1 {
		t.Errorf("pulls = %d, want 1", stats.PullsApplied)
	}
}

// TestRun_CreatesMissingRoutine verifies that a day without a routine gets a
// new one and the program records its id.
func TestRun_CreatesMissingRoutine(t *testing.T) {
	p := program()
	p.Days = map[gzclp.Day]string{}
	store := &fakeStore{program: p, progression: startingState()}
	remote := &fakeRemote{}
	ledger := &fakeLedger{}

	stats, err := New(store, remote, ledger, Options{}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(remote.created) != 1 || remote.created[0].Title != "GZCLP A1" {
		t.Fatalf("created = %+v, want one GZCLP A1 routine", remote.created)
	}
	if store.saved == nil || store.saved.Days[gzclp.DayA1] != "created-1" {
		t.Errorf("program days = %v, want A1 -> created-1", store.saved)
	}
	if stats.RoutinesCreated != 1 {
		t.Errorf("routines created = %d, want 1", stats.RoutinesCreated)
	}
}

// TestRun_NoProgram verifies that a missing program fails and is logged.
func TestRun_NoProgram(t *testing.T) {
	store := &fakeStore{}
	_, err := New(store, &fakeRemote{}, &fakeLedger{}, Options{}, discardLogger()).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, storage.ErrNotFound) {
		t.Error("error should explain the missing import")
	}
	if len(store.logs) != 1 || store.logs[0].Status != "error" {
		t.Errorf("sync logs = %+v, want one error", store.logs)
	}
}

// TestRun_CountsRemoteEdits verifies that weights changed in Hevy since the
// previous snapshot are counted.
func TestRun_CountsRemoteEdits(t *testing.T) {
	store := &fakeStore{program: program(), progression: startingState()}
	remote := &fakeRemote{routines: []models.Routine{routineA1(70, 40)}}
	ledger := &fakeLedger{snapshot: map[gzclp.Day]preview.RemoteDay{
		gzclp.DayA1: {RoutineID: "r-a1", Weights: map[string]float64{"SQ": 60, "BP": 40}},
	}}

	stats, err := New(store, remote, ledger, Options{DryRun: true}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.RemoteEdits != 1 {
		t.Errorf("remote edits = %d, want 1", stats.RemoteEdits)
	}
}

// TestRun_OwnPushIsNotARemoteEdit verifies that the snapshot saved after a
// push reflects the written weights, so the next sync does not report them
// as edits made in Hevy.
func TestRun_OwnPushIsNotARemoteEdit(t *testing.T) {
	store := &fakeStore{program: program(), progression: startingState()}
	ledger := &fakeLedger{}
	first := &fakeRemote{workouts: []models.Workout{completedA1()}, routines: []models.Routine{routineA1(60, 40)}}

	if _, err := New(store, first, ledger, Options{}, discardLogger()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{"SQ": 65, "BP": 42.5}
	if diff := cmp.Diff(want, ledger.snapshot[gzclp.DayA1].Weights); diff != "" {
		t.Errorf("saved snapshot mismatch (-want +got):\n%s", diff)
	}

	store.progression = store.upserted
	second := &fakeRemote{routines: []models.Routine{routineA1(65, 42.5)}}
	stats, err := New(store, second, ledger, Options{}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.RemoteEdits != 0 {
		t.Errorf("remote edits = %d, want 0", stats.RemoteEdits)
	}
	if stats.PushCount != 0 {
		t.Errorf("push count = %d, want 0", stats.PushCount)
	}
}

// TestRun_CreatedRoutineEntersSnapshot verifies that a routine created during
// the sync is recorded under its new id.
func TestRun_CreatedRoutineEntersSnapshot(t *testing.T) {
	p := program()
	p.Days = map[gzclp.Day]string{}
	store := &fakeStore{program: p, progression: startingState()}
	ledger := &fakeLedger{}

	if _, err := New(store, &fakeRemote{}, ledger, Options{}, discardLogger()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := ledger.snapshot[gzclp.DayA1]
	if got.RoutineID != "created-1" || got.Weights["SQ"] != 60 || got.Weights["BP"] != 40 {
		t.Errorf("snapshot A1 = %+v, want created-1 with SQ 60 and BP 40", got)
	}
}

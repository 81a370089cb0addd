package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/meltforce/gzclp/internal/config"
	"github.com/meltforce/gzclp/internal/hevy"
	"github.com/meltforce/gzclp/internal/models"
	"github.com/meltforce/gzclp/internal/state"
	"github.com/meltforce/gzclp/internal/storage"
	"github.com/meltforce/gzclp/internal/syncer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "show what would change without writing anything")
	pull := flag.Bool("pull", false, "adopt differing Hevy weights instead of pushing local ones")
	since := flag.String("since", "", "only consider workouts after this date (YYYY-MM-DD); default is the last processed workout")
	exportPath := flag.String("workouts-csv", "", "read completed workouts from a Hevy CSV export instead of the API")
	stateDirFlag := flag.String("state-dir", "", "directory for the local state database (default ~/.gzclp)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("gzclp-sync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Hevy.APIKey == "" {
		log.Error("hevy.api_key is required")
		os.Exit(1)
	}

	opts := syncer.Options{DryRun: *dryRun, PullAll: *pull}
	if *since != "" {
		t, err := time.Parse("2006-01-02", *since)
		if err != nil {
			log.Error("invalid -since", "error", err)
			os.Exit(1)
		}
		opts.Since = t
	}

	// Open state database
	stateDir := *stateDirFlag
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		stateDir = filepath.Join(homeDir, ".gzclp")
	}
	ledger, err := state.OpenStateDB(stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if *dryRun {
		log.Info("DRY RUN mode, nothing will be written to Hevy or the database")
	}

	client := hevy.NewClient(cfg.Hevy.BaseURL, cfg.Hevy.APIKey)
	var remote syncer.Remote = client
	if *exportPath != "" {
		remote, err = exportRemote(ctx, client, db, *exportPath, log)
		if err != nil {
			log.Error("failed to load workout export", "error", err)
			os.Exit(1)
		}
	}

	stats, err := syncer.New(db, remote, ledger, opts, log).Run(ctx)
	printStats(stats)
	if err != nil {
		log.Error("sync failed", "error", err)
		os.Exit(1)
	}
	log.Info("sync complete")
}

// csvRemote serves workouts from a CSV export and everything else from the API.
type csvRemote struct {
	*hevy.Client
	export *hevy.Export
}

func (r csvRemote) ListWorkouts(_ context.Context, since time.Time) ([]models.Workout, error) {
	return r.export.Since(since), nil
}

func exportRemote(ctx context.Context, client *hevy.Client, db *storage.DB, path string, log *slog.Logger) (syncer.Remote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	export, err := hevy.ParseExport(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	program, err := db.LoadProgram(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading program: %w", err)
	}
	unmatched := export.Resolve(program)
	log.Info("workout export loaded", "file", path, "workouts", len(export.Workouts), "unmatched", unmatched)
	return csvRemote{Client: client, export: export}, nil
}

func printStats(stats *syncer.Stats) {
	fmt.Println()
	fmt.Println("=== Sync Summary ===")
	fmt.Printf("  Workouts fetched:  %d\n", stats.WorkoutsFetched)
	fmt.Printf("  Workouts applied:  %d\n", stats.WorkoutsApplied)
	fmt.Printf("  Workouts skipped:  %d (already processed)\n", stats.WorkoutsSkipped)
	fmt.Printf("  Changes applied:   %d\n", stats.ChangesApplied)
	fmt.Println()
	fmt.Printf("  Push / pull / skip: %d / %d / %d\n", stats.PushCount, stats.PullCount, stats.SkipCount)
	fmt.Printf("  Routines updated:  %d\n", stats.RoutinesUpdated)
	fmt.Printf("  Routines created:  %d\n", stats.RoutinesCreated)
	fmt.Printf("  Pulls applied:     %d\n", stats.PullsApplied)
	fmt.Printf("  Edited in Hevy:    %d\n", stats.RemoteEdits)
	fmt.Println()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/gzclp/internal/config"
	"github.com/meltforce/gzclp/internal/gzclp"
	"github.com/meltforce/gzclp/internal/hevy"
	"github.com/meltforce/gzclp/internal/importer"
	"github.com/meltforce/gzclp/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	filePath := flag.String("file", "", "read routines from a JSON export instead of the Hevy API")
	unitFlag := flag.String("unit", "", "weight unit kg or lbs (default from config)")
	dryRun := flag.Bool("dry-run", false, "print the extracted program without storing it")
	dayFlags := make(map[gzclp.Day]*string, len(gzclp.Days))
	for _, day := range gzclp.Days {
		dayFlags[day] = flag.String(string(day), "", fmt.Sprintf("routine id for day %s", day))
	}
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	days := make(map[gzclp.Day]string)
	for day, id := range dayFlags {
		if *id != "" {
			days[day] = *id
		}
	}
	if len(days) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: gzclp-import -config config.yaml -A1 <routine> -B1 <routine> -A2 <routine> -B2 <routine> [-file routines.json] [-unit kg|lbs] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	unit := cfg.Program.Unit
	if *unitFlag != "" {
		if unit, err = gzclp.ParseUnit(*unitFlag); err != nil {
			log.Error("invalid unit", "error", err)
			os.Exit(1)
		}
	}

	var src importer.RoutineSource
	switch {
	case *filePath != "":
		src = importer.FileSource{Path: *filePath}
	case cfg.Hevy.APIKey != "":
		src = hevy.NewClient(cfg.Hevy.BaseURL, cfg.Hevy.APIKey)
	default:
		log.Error("hevy.api_key is required unless -file is given")
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
	}

	// Connect database (skipped in dry-run mode)
	var store importer.Store
	if !*dryRun {
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		db, err := storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")
		store = db
	}

	// Run import
	imp := importer.New(store, log, *dryRun)
	result, stats, err := imp.Import(ctx, src, days, unit)
	if result != nil {
		printResult(result, unit)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printResult(r *importer.Result, unit gzclp.WeightUnit) {
	fmt.Println()
	for _, day := range gzclp.Days {
		dr, ok := r.ByDay[day]
		if !ok {
			continue
		}
		fmt.Printf("=== %s (%s) ===\n", day, dr.RoutineID)
		for _, ex := range append([]*importer.Exercise{dr.T1, dr.T2}, dr.T3...) {
			if ex == nil {
				continue
			}
			stage := "?"
			if ex.DetectedStage != nil {
				stage = fmt.Sprintf("%d", *ex.DetectedStage)
			}
			fmt.Printf("  %-3s %-32s %10s  stage %s  %s\n",
				ex.Tier, ex.Name, gzclp.FormatWeight(ex.Weight(), unit), stage, ex.OriginalRepScheme)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range r.Warnings {
			fmt.Printf("  [%s] %s\n", w.Type, w.Message)
		}
	}
	fmt.Println()
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"routines_fetched", stats.RoutinesFetched,
		"days_imported", stats.DaysImported,
		"main_lifts", stats.MainLifts,
		"accessories", stats.Accessories,
		"warnings", stats.Warnings,
	)
}

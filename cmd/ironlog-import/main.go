package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/ironlog/internal/config"
	"github.com/claude/ironlog/internal/importer"
	"github.com/claude/ironlog/internal/storage"
	"github.com/claude/ironlog/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	path := flag.String("path", "", "export file or directory of exports (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to storage")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *path == "" {
		fmt.Fprintf(os.Stderr, "Usage: ironlog-import -config config.yaml -path <file|dir> [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*path)
	if err != nil {
		log.Error("import path not found", "path", *path, "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: nothing will be written")
	}

	slot, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer slot.Close()

	// Importing never seeds the example workouts.
	st, err := store.Open(ctx, slot, log, store.WithKey(cfg.Storage.SlotKey), store.WithoutSeed())
	if err != nil {
		log.Error("failed to open workout store", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.App.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	imp := importer.New(st, loc, log, *dryRun)
	var stats *importer.Stats
	if info.IsDir() {
		stats, err = imp.ImportDir(ctx, *path)
	} else {
		stats, err = imp.ImportFile(ctx, *path)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete", "workouts", st.Count())
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	if stats == nil {
		return
	}
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_errored", stats.FilesErrored,
		"received", stats.Received,
		"imported", stats.Imported,
		"duplicates", stats.Duplicates,
		"quarantined", stats.Quarantined,
	)
	for _, r := range stats.Rejected {
		log.Warn("rejected record", "index", r.Index, "id", r.ID, "reason", r.Reason)
	}
}

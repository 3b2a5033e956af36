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

	"github.com/claude/ironlog/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "ironlog server URL (e.g. https://ironlog.tail1234.ts.net)")
	dir := flag.String("path", "", "directory containing workout exports (*.json, *.json.gz)")
	stateDir := flag.String("state-dir", "", "state database directory (default ~/.ironlog-upload)")
	dryRun := flag.Bool("dry-run", false, "validate exports but don't send to server")
	perSecond := flag.Float64("rate", 2, "max files sent per second (0 = unlimited)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("ironlog-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: ironlog-upload -server <URL> -path <export dir> [-dry-run] [-rate N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Error("export directory not found", "path", *dir)
		os.Exit(1)
	}

	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".ironlog-upload")
	}

	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode: files will be validated but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploader := upload.New(upload.NewClient(*serverURL), state, *dir, *dryRun, *perSecond, log)
	stats, err := uploader.Run(ctx)
	printStats(stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}

	if n, err := state.Count(ctx); err == nil {
		log.Info("upload complete", "tracked_files", n)
	}
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Workouts sent:    %d\n", stats.WorkoutsSent)
	fmt.Printf("  Imported:         %d\n", stats.WorkoutsImported)
	fmt.Printf("  Duplicates:       %d\n", stats.Duplicates)
	fmt.Printf("  Quarantined:      %d\n", stats.Quarantined)
	fmt.Println()
}

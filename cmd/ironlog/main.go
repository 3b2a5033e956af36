package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/ironlog/internal/config"
	"github.com/claude/ironlog/internal/mcp"
	"github.com/claude/ironlog/internal/server"
	"github.com/claude/ironlog/internal/storage"
	"github.com/claude/ironlog/internal/store"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("ironlog", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("ironlog starting", "version", Version)

	if err := run(*configPath, *migrateOnly, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(configPath string, migrateOnly bool, log *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if migrateOnly {
		if cfg.Storage.Driver != config.DriverPostgres {
			log.Info("migrate-only: nothing to migrate", "driver", cfg.Storage.Driver)
			return nil
		}
		if err := storage.RunMigrations(cfg.Storage.Postgres.DSN(), cfg.Storage.Postgres.Migrations); err != nil {
			return err
		}
		log.Info("migrate-only: migrations applied")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slot, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer slot.Close()

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	opts := []store.Option{store.WithKey(cfg.Storage.SlotKey)}
	if cfg.App.DisableSeed {
		opts = append(opts, store.WithoutSeed())
	}
	st, err := store.Open(ctx, slot, log, opts...)
	if err != nil {
		return fmt.Errorf("opening workout store: %w", err)
	}
	log.Info("workout store ready", "workouts", st.Count(), "quarantined", len(st.Quarantined()))

	srv := server.New(st, loc, log)
	mcpSrv := mcp.New(mcp.NewLocalSource(st, loc), Version, log)
	srv.Mount("/mcp", mcpserver.NewStreamableHTTPServer(mcpSrv, mcpserver.WithStateLess(true)))

	listener, closeListener, err := listen(cfg, log)
	if err != nil {
		return err
	}
	defer closeListener()

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
		return nil
	})
	return g.Wait()
}

// listen opens either a tsnet listener or a plain TCP one. The returned func
// releases anything listen started.
func listen(cfg *config.Config, log *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "plain http")
		return ln, func() {}, nil
	}

	ts := &tsnet.Server{
		Hostname: cfg.Tailscale.Hostname,
		Dir:      cfg.Tailscale.StateDir,
	}
	if err := ts.Start(); err != nil {
		return nil, nil, fmt.Errorf("tsnet start: %w", err)
	}
	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet listen: %w", err)
	}
	log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	return ln, func() { ts.Close() }, nil
}

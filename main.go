// Command memory-server runs the matching-pairs game backend.
//
// It provides two commands:
//  1. "serve" (default) – runs the HTTP server exposing the game REST API
//  2. "seed"            – imports a card manifest into the catalog table
//
// Flags and environment variables control the listen address, database
// path, dealt pair count, and session lock timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/memolab/memory-server/api"
	"github.com/memolab/memory-server/game/catalog"
	"github.com/memolab/memory-server/game/service"
	"github.com/memolab/memory-server/game/session"
	"github.com/memolab/memory-server/game/store"
)

const (
	Version = "1.0.0"
	AppName = "memory-server"
)

func main() {
	// Load .env if present; absence is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cmd := &cli.Command{
		Name:    AppName,
		Usage:   "matching-pairs (memory) game backend",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Value:   "data/memory.db",
				Usage:   "SQLite database path",
				Sources: cli.EnvVars("MEMORY_DB"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (trace, debug, info, warn, error)",
				Sources: cli.EnvVars("MEMORY_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Value:   ":8080",
						Usage:   "listen address",
						Sources: cli.EnvVars("MEMORY_ADDR"),
					},
					&cli.IntFlag{
						Name:    "pairs",
						Value:   8,
						Usage:   "card pairs dealt per game",
						Sources: cli.EnvVars("MEMORY_PAIRS"),
					},
					&cli.DurationFlag{
						Name:    "lock-timeout",
						Value:   session.DefaultLockTimeout,
						Usage:   "per-session lock acquisition timeout",
						Sources: cli.EnvVars("MEMORY_LOCK_TIMEOUT"),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServe(ctx, cmd, logger)
				},
			},
			{
				Name:      "seed",
				Usage:     "import a card manifest into the catalog",
				ArgsUsage: "<manifest.json>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runSeed(ctx, cmd, logger)
				},
			},
		},
		// Bare invocation serves.
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Fatal().Err(err).Msg("command failed")
	}
}

// runServe wires the catalog, store, coordinator, and service, then runs
// the HTTP server until interrupted.
func runServe(ctx context.Context, cmd *cli.Command, logger zerolog.Logger) error {
	if lvl, err := zerolog.ParseLevel(cmd.String("log-level")); err == nil {
		logger = logger.Level(lvl)
	}

	db, err := openDB(cmd.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cat, err := catalog.NewSQLite(db)
	if err != nil {
		return err
	}
	if n, err := cat.Count(ctx); err == nil && n == 0 {
		logger.Warn().Msg("card catalog is empty; run the seed command before creating games")
	}

	sessionStore, err := store.NewSQLite(db)
	if err != nil {
		return err
	}

	coord := session.NewCoordinator(sessionStore,
		session.WithLockTimeout(cmd.Duration("lock-timeout")),
		session.WithLogger(logger),
	)

	gameService := service.NewGameService(cat, sessionStore, coord,
		service.WithPairCount(int(cmd.Int("pairs"))),
		service.WithLogger(logger),
	)

	addr := cmd.String("addr")
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      api.NewServer(gameService, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("version", Version).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

// runSeed imports the card assets of a manifest file into the catalog.
func runSeed(ctx context.Context, cmd *cli.Command, logger zerolog.Logger) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: %s seed <manifest.json>", AppName)
	}

	manifest, err := catalog.LoadManifest(path)
	if err != nil {
		return err
	}

	db, err := openDB(cmd.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cat, err := catalog.NewSQLite(db)
	if err != nil {
		return err
	}
	if err := cat.Upsert(ctx, manifest.Assets); err != nil {
		return err
	}

	total, err := cat.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info().
		Str("manifest", path).
		Int("imported", len(manifest.Assets)).
		Int("catalog_total", total).
		Msg("cards updated")
	return nil
}

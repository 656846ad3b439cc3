package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"iotsync/internal/app/server/api"
	"iotsync/internal/app/server/config"
	"iotsync/internal/infrastructure/remote"
	"iotsync/internal/infrastructure/storage/postgres"
	"iotsync/internal/utils/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()
	log := logger.NewWithOptions(logger.Options{Env: cfg.Env, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeStore, err := storeDeps(ctx, cfg, log)
	if err != nil {
		log.Error("failed to init storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if deps.APIKeyHash == "" {
		log.Warn("API_KEY_HASH is empty, node endpoints are unauthenticated")
	}

	srv := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           api.New(deps, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("starting server", "address", cfg.RunAddress, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// storeDeps picks Postgres when a database URI is configured and an
// in-memory node store otherwise.
func storeDeps(ctx context.Context, cfg *config.Config, log *slog.Logger) (api.Deps, func(), error) {
	deps := api.Deps{APIKeyHash: cfg.APIKeyHash}

	if cfg.DatabaseURI == "" {
		log.Warn("DATABASE_URI is empty, nodes are kept in memory")
		deps.Store = remote.NewMemoryFlatStore()
		return deps, func() {}, nil
	}

	storage, err := postgres.New(ctx, cfg.DatabaseURI, log)
	if err != nil {
		return deps, nil, err
	}

	deps.Store = postgres.NewFlatRepository(storage.Pool(), log)
	deps.Checker = storage
	return deps, func() {
		if err := storage.Close(); err != nil {
			log.Error("close storage", "error", err)
		}
	}, nil
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ramentycoon/internal/api"
	"ramentycoon/internal/config"
	"ramentycoon/internal/db"
	"ramentycoon/internal/master"
	"ramentycoon/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()
	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	data := master.Default()
	if cfg.MasterFile != "" {
		if data, err = master.Load(cfg.MasterFile); err != nil {
			logger.Error("load master data failed", "path", cfg.MasterFile, "err", err)
			os.Exit(1)
		}
	}

	history, err := openHistory(ctx, cfg, logger)
	if err != nil {
		logger.Error("history store failed", "err", err)
		os.Exit(1)
	}
	defer history.Close()

	server := api.New(cfg, logger, data, history)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownGrace())
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("ramen api listening", "addr", cfg.Addr, "max_sessions", cfg.MaxSessions)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// openHistory prefers Postgres when DATABASE_URL is set and falls back to a
// SQLite file in the save directory.
func openHistory(ctx context.Context, cfg config.APIConfig, logger *slog.Logger) (store.History, error) {
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{})
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("quarter history in postgres")
		return closer{pg, pool.Close}, nil
	}
	if err := os.MkdirAll(cfg.SaveDir, 0o700); err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.SaveDir, "api-history.sqlite")
	h, err := store.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	logger.Info("quarter history in sqlite", "path", path)
	return h, nil
}

// closer releases the pool after the history it backs.
type closer struct {
	store.History
	release func()
}

func (c closer) Close() error {
	err := c.History.Close()
	c.release()
	return err
}

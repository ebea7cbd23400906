package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	cl "ramentycoon/internal/cli"
	"ramentycoon/internal/config"
	"ramentycoon/internal/db"
	"ramentycoon/internal/game"
	"ramentycoon/internal/master"
	"ramentycoon/internal/store"
	"ramentycoon/internal/syncq"

	"github.com/robfig/cron/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()
	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	opts := game.Options{CompanyName: cfg.Company, Logger: logger}
	if cfg.MasterFile != "" {
		if opts.Master, err = master.Load(cfg.MasterFile); err != nil {
			logger.Error("load master data failed", "path", cfg.MasterFile, "err", err)
			os.Exit(1)
		}
	}

	history, err := openHistory(ctx, cfg)
	if err != nil {
		logger.Error("history store failed", "err", err)
		os.Exit(1)
	}
	defer history.Close()

	r := newRunner(cfg, logger, opts, history)
	if cfg.RunOnce {
		if err := r.run(ctx); err != nil {
			logger.Error("run failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn)))))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := r.run(ctx); err != nil {
			logger.Error("scheduled run failed", "err", err)
		}
	}); err != nil {
		logger.Error("bad schedule", "schedule", cfg.Schedule, "err", err)
		os.Exit(1)
	}
	c.Start()
	logger.Info("worker started", "schedule", cfg.Schedule, "weeks_per_run", cfg.WeeksPerRun, "save", cfg.SavePath)

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("worker shutdown")
}

func openHistory(ctx context.Context, cfg config.WorkerConfig) (store.History, error) {
	if cfg.DatabaseURL == "" {
		return store.OpenSQLite(cfg.HistoryDB)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return nil, err
	}
	pg := store.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return poolHistory{pg, pool.Close}, nil
}

type poolHistory struct {
	store.History
	release func()
}

func (p poolHistory) Close() error {
	err := p.History.Close()
	p.release()
	return err
}

// runner advances one save slot per run: planned actions first, then the
// configured number of weeks, then the slot is written back.
type runner struct {
	cfg     config.WorkerConfig
	log     *slog.Logger
	opts    game.Options
	history store.History
	dir     string
	slot    string

	mu sync.Mutex
}

func newRunner(cfg config.WorkerConfig, logger *slog.Logger, opts game.Options, history store.History) *runner {
	return &runner{
		cfg:     cfg,
		log:     logger,
		opts:    opts,
		history: history,
		dir:     filepath.Dir(cfg.SavePath),
		slot:    strings.TrimSuffix(filepath.Base(cfg.SavePath), ".ramen.zst"),
	}
}

func (r *runner) run(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := time.Now()

	l, err := cl.OpenLocal(r.dir, r.slot, r.opts, r.history)
	if errors.Is(err, cl.ErrNoGame) {
		opts := r.opts
		opts.Seed = uint64(start.UnixNano())
		if l, err = cl.NewLocal(r.dir, r.slot, opts, r.history, false); err == nil {
			r.log.Info("started new game", "slot", r.slot, "seed", opts.Seed)
		}
	}
	if err != nil {
		return err
	}
	if l.Session.GameOver() {
		r.log.Warn("game is over; nothing to advance", "slot", r.slot)
		return nil
	}

	planned, err := syncq.Take(r.dir, r.slot, false)
	if err != nil {
		return err
	}
	if len(planned) > 0 {
		applied, failed := l.ApplyQueued(planned)
		for _, f := range failed {
			r.log.Warn("planned action failed", "kind", f.Entry.Action.Kind, "err", f.Err)
		}
		r.log.Info("planned actions applied", "applied", applied, "failed", len(failed))
	}

	reports, err := l.Advance(ctx, r.cfg.WeeksPerRun)
	if err != nil && !errors.Is(err, game.ErrGameOver) {
		return err
	}
	h, err := l.Save(ctx)
	if err != nil {
		return err
	}
	r.log.Info("run complete",
		"slot", r.slot,
		"weeks", len(reports),
		"clock", h.Clock,
		"game_over", l.Session.GameOver(),
		"took", time.Since(start).String(),
	)
	return nil
}

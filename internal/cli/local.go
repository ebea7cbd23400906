package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"ramentycoon/internal/game"
	"ramentycoon/internal/store"
	"ramentycoon/internal/syncq"
)

// ErrNoGame means a slot has no save file yet.
var ErrNoGame = errors.New("no game in slot")

// Local is a game played from a save slot on disk.
type Local struct {
	Dir     string
	Slot    string
	Path    string
	Session *game.Session
	History store.History
	Log     *slog.Logger
}

// HistoryID keys quarter records so a new game in a reused slot starts a
// fresh chart.
func (l *Local) HistoryID() string {
	return fmt.Sprintf("%s:%d", l.Slot, l.Session.Seed)
}

func NewLocal(dir, slot string, opts game.Options, history store.History, overwrite bool) (*Local, error) {
	slot, err := ValidateSlot(slot)
	if err != nil {
		return nil, err
	}
	path := store.SavePath(dir, slot)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("slot %q already has a game; pass --force to replace it", slot)
		}
	}
	s, err := game.NewSession(opts)
	if err != nil {
		return nil, err
	}
	return &Local{Dir: dir, Slot: slot, Path: path, Session: s, History: orDiscard(history), Log: opts.Logger}, nil
}

func OpenLocal(dir, slot string, opts game.Options, history store.History) (*Local, error) {
	slot, err := ValidateSlot(slot)
	if err != nil {
		return nil, err
	}
	path := store.SavePath(dir, slot)
	_, st, err := store.ReadSnapshot(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("slot %q: %w; run `ramen new` first", slot, ErrNoGame)
		}
		return nil, err
	}
	s, err := game.Restore(st, opts)
	if err != nil {
		return nil, err
	}
	return &Local{Dir: dir, Slot: slot, Path: path, Session: s, History: orDiscard(history), Log: opts.Logger}, nil
}

func (l *Local) Save(ctx context.Context) (store.Header, error) {
	st, err := l.Session.Export()
	if err != nil {
		return store.Header{}, err
	}
	now := time.Now()
	h, err := store.WriteSnapshot(l.Path, st, now)
	if err != nil {
		return store.Header{}, err
	}
	rec := store.SaveRecord{SessionID: l.HistoryID(), Path: l.Path, Company: h.Company, Seed: h.Seed, Week: h.Week, SavedAt: now}
	if err := l.History.RecordSave(ctx, rec); err != nil {
		l.logger().Warn("record save failed", "slot", l.Slot, "error", err)
	}
	return h, nil
}

// Advance ticks up to weeks times, stopping early on game over, and records
// each closed quarter.
func (l *Local) Advance(ctx context.Context, weeks int) ([]game.TickReport, error) {
	if l.Session.GameOver() {
		return nil, game.ErrGameOver
	}
	out := make([]game.TickReport, 0, weeks)
	for range weeks {
		rep, err := l.Session.AdvanceWeek(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, rep)
		if rep.QuarterEnd {
			rec := store.QuarterFrom(l.HistoryID(), rep, l.Session.Dashboard(), time.Now())
			if err := l.History.RecordQuarter(ctx, rec); err != nil {
				l.logger().Warn("record quarter failed", "slot", l.Slot, "week", rec.Week, "error", err)
			}
		}
		if rep.GameOver {
			break
		}
	}
	return out, nil
}

type QueueFailure struct {
	Entry syncq.Entry
	Err   error
}

// ApplyQueued runs planned actions in order. A failed action is reported and
// dropped; the rest still run.
func (l *Local) ApplyQueued(entries []syncq.Entry) (int, []QueueFailure) {
	applied := 0
	var failed []QueueFailure
	for _, e := range entries {
		if _, err := l.Session.Apply(e.Action); err != nil {
			failed = append(failed, QueueFailure{Entry: e, Err: err})
			continue
		}
		applied++
	}
	return applied, failed
}

func (l *Local) logger() *slog.Logger {
	if l.Log == nil {
		return slog.Default()
	}
	return l.Log
}

func orDiscard(h store.History) store.History {
	if h == nil {
		return store.Discard{}
	}
	return h
}

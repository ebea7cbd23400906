package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramentycoon/internal/config"
	"ramentycoon/internal/game"
	"ramentycoon/internal/store"
	"ramentycoon/internal/syncq"
)

func TestRunnerCreatesAndAdvances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := config.WorkerConfig{SavePath: filepath.Join(dir, "night.ramen.zst"), Company: "Night Shift Ramen", WeeksPerRun: 2}
	hist, err := store.OpenSQLite(filepath.Join(dir, "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = hist.Close() })

	logger := slog.New(slog.DiscardHandler)
	r := newRunner(cfg, logger, game.Options{CompanyName: cfg.Company, Logger: logger}, hist)
	assert.Equal(t, "night", r.slot)

	require.NoError(t, r.run(ctx))
	h, err := store.ReadHeader(cfg.SavePath)
	require.NoError(t, err)
	assert.Equal(t, "Night Shift Ramen", h.Company)
	assert.Equal(t, 2, h.Week)

	args, _ := json.Marshal(map[string]any{"region": "Nagoya", "name": "Night", "amount": 10_000_000})
	require.NoError(t, syncq.Push(dir, syncq.Entry{Target: "night", Action: game.Action{Kind: "open_shop", Args: args}}))
	require.NoError(t, syncq.Push(dir, syncq.Entry{Target: "other", Action: game.Action{Kind: "open_shop", Args: args}}))

	require.NoError(t, r.run(ctx))
	_, st, err := store.ReadSnapshot(cfg.SavePath)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Clock.TotalWeeksElapsed)
	assert.Equal(t, h.Seed, st.Seed, "second run continues the same game")
	require.Len(t, st.Player.Ops.Shops, 1)

	left, err := syncq.Load(dir)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "other", left[0].Target)

	// the worker's quarters share the chart with `ramen history`
	quarters, err := hist.Quarters(ctx, "night:"+strconv.FormatUint(st.Seed, 10), 0)
	require.NoError(t, err)
	assert.NotEmpty(t, quarters)
}

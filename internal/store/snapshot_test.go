package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramentycoon/internal/game"
)

func newSession(t *testing.T, seed uint64) *game.Session {
	t.Helper()
	s, err := game.NewSession(game.Options{Seed: seed, CompanyName: "Snapshot Ramen", Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newSession(t, 99)
	_, err := s.OpenShop("Osaka", "Namba", 5_000_000)
	require.NoError(t, err)
	for range 6 {
		_, err := s.AdvanceWeek(context.Background())
		require.NoError(t, err)
	}
	st, err := s.Export()
	require.NoError(t, err)

	path := SavePath(t.TempDir(), "slot1")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h, err := WriteSnapshot(path, st, at)
	require.NoError(t, err)
	assert.Equal(t, "Snapshot Ramen", h.Company)
	assert.Equal(t, 6, h.Week)

	head, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, h, head)

	readHead, back, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, h, readHead)

	restored, err := game.Restore(back, game.Options{Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	for range 8 {
		want, err := s.AdvanceWeek(context.Background())
		require.NoError(t, err)
		got, err := restored.AdvanceWeek(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestWriteSnapshotReplacesFile(t *testing.T) {
	dir := t.TempDir()
	path := SavePath(dir, "slot")
	s := newSession(t, 1)

	st, err := s.Export()
	require.NoError(t, err)
	_, err = WriteSnapshot(path, st, time.Now())
	require.NoError(t, err)

	_, err = s.AdvanceWeek(context.Background())
	require.NoError(t, err)
	st, err = s.Export()
	require.NoError(t, err)
	_, err = WriteSnapshot(path, st, time.Now())
	require.NoError(t, err)

	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Week)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSnapshotErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteSnapshot(filepath.Join(dir, "x"), game.State{}, time.Now())
	assert.Error(t, err)

	_, _, err = ReadSnapshot(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	junk := filepath.Join(dir, "junk")
	require.NoError(t, os.WriteFile(junk, []byte("not zstd"), 0o600))
	_, err = ReadHeader(junk)
	assert.Error(t, err)
}

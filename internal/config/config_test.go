package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAPIFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RAMEN_MARKET_VOLATILITY", "WILD")
	t.Setenv("RAMEN_CUSTOMER_POOL", "regional")
	t.Setenv("RAMEN_ADVANCE_BURST", "not-a-number")
	t.Setenv("RAMEN_LOG_LEVEL", "debug")

	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.Volatility != "wild" || cfg.PoolMode != "regional" {
		t.Fatalf("volatility=%q pool=%q", cfg.Volatility, cfg.PoolMode)
	}
	if cfg.AdvanceBurst != 4 {
		t.Fatalf("bad int should fall back, got %d", cfg.AdvanceBurst)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
}

func TestLoadAPIRejectsBadLimits(t *testing.T) {
	t.Setenv("RAMEN_ADVANCE_PER_SEC", "-1")
	if _, err := LoadAPIFromEnv(); err == nil {
		t.Fatalf("negative rate should fail")
	}
}

func TestLoadWorkerFromEnv(t *testing.T) {
	t.Setenv("RAMEN_WORKER_SAVE", "")
	if _, err := LoadWorkerFromEnv(); err == nil {
		t.Fatalf("missing save path should fail")
	}

	t.Setenv("RAMEN_WORKER_SAVE", "/tmp/notaslot.zst")
	if _, err := LoadWorkerFromEnv(); err == nil {
		t.Fatalf("save path without the slot suffix should fail")
	}

	t.Setenv("RAMEN_WORKER_SAVE", "/tmp/w.ramen.zst")
	t.Setenv("RAMEN_WORKER_RUN_ONCE", "true")
	t.Setenv("RAMEN_WORKER_WEEKS", "13")
	cfg, err := LoadWorkerFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.RunOnce || cfg.WeeksPerRun != 13 || cfg.Schedule != "@every 1m" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadCLIFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RAMEN_SAVE_DIR", dir)
	t.Setenv("RAMEN_API_BASE_URL", "http://example.test/")
	t.Setenv("RAMEN_HISTORY_DB", "")
	t.Setenv("RAMEN_MARKET_VOLATILITY", "")

	cfg := LoadCLIFromEnv()
	if cfg.APIBaseURL != "http://example.test" {
		t.Fatalf("base url = %q", cfg.APIBaseURL)
	}
	if cfg.HistoryDB != filepath.Join(dir, "history.sqlite") {
		t.Fatalf("history db = %q", cfg.HistoryDB)
	}
	if cfg.Volatility != "normal" || cfg.PoolMode != "global" {
		t.Fatalf("defaults = %q %q", cfg.Volatility, cfg.PoolMode)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("RAMEN_DOTENV_PROBE=from-file\nRAMEN_SHUTDOWN_GRACE=3s\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("RAMEN_DOTENV_PROBE", "")
	os.Unsetenv("RAMEN_DOTENV_PROBE")
	t.Setenv("RAMEN_SHUTDOWN_GRACE", "")
	os.Unsetenv("RAMEN_SHUTDOWN_GRACE")

	LoadDotEnv()
	if got := os.Getenv("RAMEN_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("probe = %q", got)
	}
	if ShutdownGrace() != 3*time.Second {
		t.Fatalf("grace = %v", ShutdownGrace())
	}
}

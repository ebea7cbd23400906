package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr          string
	DatabaseURL   string
	SaveDir       string
	MasterFile    string
	Volatility    string
	PoolMode      string
	AdvancePerSec float64
	AdvanceBurst  int
	MaxSessions   int
	LogLevel      slog.Level
}

type WorkerConfig struct {
	SavePath    string
	Company     string
	HistoryDB   string
	DatabaseURL string
	MasterFile  string
	Schedule    string
	WeeksPerRun int
	RunOnce     bool
	LogLevel    slog.Level
}

type CLIConfig struct {
	APIBaseURL string
	SaveDir    string
	HistoryDB  string
	MasterFile string
	Volatility string
	PoolMode   string
	LogLevel   slog.Level
}

// LoadDotEnv reads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func LoadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("RAMEN_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:          addr,
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SaveDir:       envDefault("RAMEN_SAVE_DIR", defaultSaveDir()),
		MasterFile:    strings.TrimSpace(os.Getenv("RAMEN_MASTER_FILE")),
		Volatility:    envVolatilityDefault(),
		PoolMode:      envPoolModeDefault(),
		AdvancePerSec: envFloatDefault("RAMEN_ADVANCE_PER_SEC", 2),
		AdvanceBurst:  envIntDefault("RAMEN_ADVANCE_BURST", 4),
		MaxSessions:   envIntDefault("RAMEN_MAX_SESSIONS", 64),
		LogLevel:      envLogLevel(),
	}
	if cfg.AdvancePerSec <= 0 {
		return cfg, fmt.Errorf("RAMEN_ADVANCE_PER_SEC must be positive")
	}
	if cfg.AdvanceBurst < 1 {
		return cfg, fmt.Errorf("RAMEN_ADVANCE_BURST must be at least 1")
	}
	if cfg.MaxSessions < 1 {
		return cfg, fmt.Errorf("RAMEN_MAX_SESSIONS must be at least 1")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		SavePath:    strings.TrimSpace(os.Getenv("RAMEN_WORKER_SAVE")),
		Company:     strings.TrimSpace(os.Getenv("RAMEN_WORKER_COMPANY")),
		HistoryDB:   envDefault("RAMEN_HISTORY_DB", filepath.Join(defaultSaveDir(), "history.sqlite")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MasterFile:  strings.TrimSpace(os.Getenv("RAMEN_MASTER_FILE")),
		Schedule:    envDefault("RAMEN_WORKER_SCHEDULE", "@every 1m"),
		WeeksPerRun: envIntDefault("RAMEN_WORKER_WEEKS", 1),
		RunOnce:     envBoolDefault("RAMEN_WORKER_RUN_ONCE", false),
		LogLevel:    envLogLevel(),
	}
	if cfg.SavePath == "" {
		return cfg, fmt.Errorf("RAMEN_WORKER_SAVE is required")
	}
	if !strings.HasSuffix(cfg.SavePath, ".ramen.zst") {
		return cfg, fmt.Errorf("RAMEN_WORKER_SAVE must name a save slot file ending in .ramen.zst")
	}
	if cfg.WeeksPerRun < 1 {
		return cfg, fmt.Errorf("RAMEN_WORKER_WEEKS must be at least 1")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	dir := envDefault("RAMEN_SAVE_DIR", defaultSaveDir())
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("RAMEN_API_BASE_URL", "http://localhost:8080"), "/"),
		SaveDir:    dir,
		HistoryDB:  envDefault("RAMEN_HISTORY_DB", filepath.Join(dir, "history.sqlite")),
		MasterFile: strings.TrimSpace(os.Getenv("RAMEN_MASTER_FILE")),
		Volatility: envVolatilityDefault(),
		PoolMode:   envPoolModeDefault(),
		LogLevel:   envLogLevel(),
	}
}

func defaultSaveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ramen"
	}
	return filepath.Join(home, ".ramen")
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envVolatilityDefault() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RAMEN_MARKET_VOLATILITY")))
	switch v {
	case "calm", "normal", "wild":
		return v
	default:
		return "normal"
	}
}

func envPoolModeDefault() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("RAMEN_CUSTOMER_POOL")))
	if v == "regional" {
		return v
	}
	return "global"
}

func envLogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(envDefault("RAMEN_LOG_LEVEL", "info"))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ShutdownGrace is how long the API waits for in-flight requests.
func ShutdownGrace() time.Duration {
	return envDurationDefault("RAMEN_SHUTDOWN_GRACE", 15*time.Second)
}

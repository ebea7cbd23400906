package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteHistory is the local history used by the CLI and the worker.
type SQLiteHistory struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteHistory, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteHistory{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS quarters (
			session_id TEXT NOT NULL,
			week INTEGER NOT NULL,
			year INTEGER NOT NULL,
			quarter INTEGER NOT NULL,
			total_sales REAL NOT NULL,
			total_costs REAL NOT NULL,
			net_profit REAL NOT NULL,
			cash REAL NOT NULL,
			total_debt REAL NOT NULL,
			net_worth REAL NOT NULL,
			credit_score INTEGER NOT NULL,
			rating TEXT NOT NULL,
			shops INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (session_id, week)
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			session_id TEXT NOT NULL,
			path TEXT NOT NULL,
			company TEXT NOT NULL,
			seed TEXT NOT NULL,
			week INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS saves_session ON saves(session_id, week);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// RecordQuarter keeps the first record for a week; replays after a reload
// do not overwrite it.
func (h *SQLiteHistory) RecordQuarter(ctx context.Context, r QuarterRecord) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO quarters (session_id, week, year, quarter, total_sales, total_costs, net_profit,
			cash, total_debt, net_worth, credit_score, rating, shops, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id, week) DO NOTHING
	`, r.SessionID, r.Week, r.Year, r.Quarter, r.TotalSales, r.TotalCosts, r.NetProfit,
		r.Cash, r.TotalDebt, r.NetWorth, r.CreditScore, r.Rating, r.Shops, r.RecordedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record quarter: %w", err)
	}
	return nil
}

func (h *SQLiteHistory) RecordSave(ctx context.Context, r SaveRecord) error {
	// seed is stored as text: sqlite integers are signed.
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO saves (session_id, path, company, seed, week, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.SessionID, r.Path, r.Company, fmt.Sprint(r.Seed), r.Week, r.SavedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record save: %w", err)
	}
	return nil
}

// Quarters returns up to limit records, oldest first. limit <= 0 means all.
func (h *SQLiteHistory) Quarters(ctx context.Context, sessionID string, limit int) ([]QuarterRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT session_id, week, year, quarter, total_sales, total_costs, net_profit,
			cash, total_debt, net_worth, credit_score, rating, shops, recorded_at
		FROM (
			SELECT * FROM quarters WHERE session_id = ? ORDER BY week DESC LIMIT ?
		)
		ORDER BY week ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query quarters: %w", err)
	}
	defer rows.Close()

	var out []QuarterRecord
	for rows.Next() {
		var r QuarterRecord
		var recorded string
		if err := rows.Scan(&r.SessionID, &r.Week, &r.Year, &r.Quarter, &r.TotalSales, &r.TotalCosts, &r.NetProfit,
			&r.Cash, &r.TotalDebt, &r.NetWorth, &r.CreditScore, &r.Rating, &r.Shops, &recorded); err != nil {
			return nil, err
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recorded); err != nil {
			return nil, fmt.Errorf("quarter %d recorded_at: %w", r.Week, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSave returns the most recent save recorded for a session.
func (h *SQLiteHistory) LatestSave(ctx context.Context, sessionID string) (SaveRecord, error) {
	var r SaveRecord
	var seed, saved string
	err := h.db.QueryRowContext(ctx, `
		SELECT session_id, path, company, seed, week, saved_at
		FROM saves WHERE session_id = ?
		ORDER BY week DESC, saved_at DESC LIMIT 1
	`, sessionID).Scan(&r.SessionID, &r.Path, &r.Company, &seed, &r.Week, &saved)
	if err != nil {
		return SaveRecord{}, err
	}
	if _, err := fmt.Sscan(seed, &r.Seed); err != nil {
		return SaveRecord{}, fmt.Errorf("save seed: %w", err)
	}
	if r.SavedAt, err = time.Parse(time.RFC3339Nano, saved); err != nil {
		return SaveRecord{}, fmt.Errorf("save saved_at: %w", err)
	}
	return r, nil
}

func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}

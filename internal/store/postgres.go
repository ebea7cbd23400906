package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGHistory keeps the quarterly history of API and worker sessions in
// Postgres, under the ramen schema.
type PGHistory struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *PGHistory {
	return &PGHistory{db: db}
}

func (h *PGHistory) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ramen`,
		`CREATE TABLE IF NOT EXISTS ramen.quarters (
			session_id TEXT NOT NULL,
			week INTEGER NOT NULL,
			year INTEGER NOT NULL,
			quarter INTEGER NOT NULL,
			total_sales DOUBLE PRECISION NOT NULL,
			total_costs DOUBLE PRECISION NOT NULL,
			net_profit DOUBLE PRECISION NOT NULL,
			cash DOUBLE PRECISION NOT NULL,
			total_debt DOUBLE PRECISION NOT NULL,
			net_worth DOUBLE PRECISION NOT NULL,
			credit_score INTEGER NOT NULL,
			rating TEXT NOT NULL,
			shops INTEGER NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (session_id, week)
		)`,
		`CREATE TABLE IF NOT EXISTS ramen.saves (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			path TEXT NOT NULL,
			company TEXT NOT NULL,
			seed TEXT NOT NULL,
			week INTEGER NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := h.db.Exec(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (h *PGHistory) RecordQuarter(ctx context.Context, r QuarterRecord) error {
	_, err := h.db.Exec(ctx, `
		INSERT INTO ramen.quarters (session_id, week, year, quarter, total_sales, total_costs, net_profit,
			cash, total_debt, net_worth, credit_score, rating, shops, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (session_id, week) DO NOTHING
	`, r.SessionID, r.Week, r.Year, r.Quarter, r.TotalSales, r.TotalCosts, r.NetProfit,
		r.Cash, r.TotalDebt, r.NetWorth, r.CreditScore, r.Rating, r.Shops, r.RecordedAt)
	if err != nil {
		return fmt.Errorf("record quarter: %w", err)
	}
	return nil
}

func (h *PGHistory) RecordSave(ctx context.Context, r SaveRecord) error {
	_, err := h.db.Exec(ctx, `
		INSERT INTO ramen.saves (session_id, path, company, seed, week, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.SessionID, r.Path, r.Company, strconv.FormatUint(r.Seed, 10), r.Week, r.SavedAt)
	if err != nil {
		return fmt.Errorf("record save: %w", err)
	}
	return nil
}

func (h *PGHistory) Quarters(ctx context.Context, sessionID string, limit int) ([]QuarterRecord, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := h.db.Query(ctx, `
		SELECT session_id, week, year, quarter, total_sales, total_costs, net_profit,
			cash, total_debt, net_worth, credit_score, rating, shops, recorded_at
		FROM (
			SELECT * FROM ramen.quarters WHERE session_id = $1 ORDER BY week DESC LIMIT $2
		) q
		ORDER BY week ASC
	`, sessionID, lim)
	if err != nil {
		return nil, fmt.Errorf("query quarters: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (QuarterRecord, error) {
		var r QuarterRecord
		err := row.Scan(&r.SessionID, &r.Week, &r.Year, &r.Quarter, &r.TotalSales, &r.TotalCosts, &r.NetProfit,
			&r.Cash, &r.TotalDebt, &r.NetWorth, &r.CreditScore, &r.Rating, &r.Shops, &r.RecordedAt)
		return r, err
	})
}

// Close is a no-op: the pool belongs to the caller.
func (h *PGHistory) Close() error { return nil }

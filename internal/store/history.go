package store

import (
	"context"
	"time"

	"ramentycoon/internal/game"
)

// QuarterRecord is one closed quarter of a session, kept outside the save
// file so progress can be charted across saves.
type QuarterRecord struct {
	SessionID   string    `json:"session_id"`
	Week        int       `json:"week"`
	Year        int       `json:"year"`
	Quarter     int       `json:"quarter"`
	TotalSales  float64   `json:"total_sales"`
	TotalCosts  float64   `json:"total_costs"`
	NetProfit   float64   `json:"net_profit"`
	Cash        float64   `json:"cash"`
	TotalDebt   float64   `json:"total_debt"`
	NetWorth    float64   `json:"net_worth"`
	CreditScore int       `json:"credit_score"`
	Rating      string    `json:"rating"`
	Shops       int       `json:"shops"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// SaveRecord indexes a snapshot file.
type SaveRecord struct {
	SessionID string    `json:"session_id"`
	Path      string    `json:"path"`
	Company   string    `json:"company"`
	Seed      uint64    `json:"seed"`
	Week      int       `json:"week"`
	SavedAt   time.Time `json:"saved_at"`
}

type History interface {
	RecordQuarter(ctx context.Context, rec QuarterRecord) error
	RecordSave(ctx context.Context, rec SaveRecord) error
	Quarters(ctx context.Context, sessionID string, limit int) ([]QuarterRecord, error)
	Close() error
}

// QuarterFrom builds the record for a tick that closed a quarter.
func QuarterFrom(sessionID string, rep game.TickReport, db game.Dashboard, at time.Time) QuarterRecord {
	return QuarterRecord{
		SessionID:   sessionID,
		Week:        rep.Clock.TotalWeeksElapsed,
		Year:        rep.Clock.Year,
		Quarter:     rep.Clock.Quarter(),
		TotalSales:  db.TotalSales,
		TotalCosts:  db.TotalCosts,
		NetProfit:   db.NetProfit,
		Cash:        rep.CompanyCash,
		TotalDebt:   db.TotalDebt,
		NetWorth:    db.NetWorth,
		CreditScore: rep.CreditScore,
		Rating:      db.Rating,
		Shops:       len(db.Shops),
		RecordedAt:  at.UTC(),
	}
}

// Discard is the history used when no database is configured.
type Discard struct{}

func (Discard) RecordQuarter(context.Context, QuarterRecord) error { return nil }
func (Discard) RecordSave(context.Context, SaveRecord) error       { return nil }
func (Discard) Quarters(context.Context, string, int) ([]QuarterRecord, error) {
	return nil, nil
}
func (Discard) Close() error { return nil }

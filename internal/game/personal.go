package game

import (
	"fmt"
	"log/slog"
	"slices"

	"ramentycoon/internal/master"
)

type LuxuryItem struct {
	ID            string  `json:"id"`
	GoodID        string  `json:"good_id"`
	Name          string  `json:"name"`
	PurchasePrice float64 `json:"purchase_price"`
	WeeklyUpkeep  float64 `json:"weekly_upkeep"`
	AcquiredWeek  int     `json:"acquired_week"`
}

// StockOption is a grant on the company's own listed shares.
type StockOption struct {
	ID             string  `json:"id"`
	Ticker         string  `json:"ticker"`
	Shares         int64   `json:"shares"`
	StrikePrice    float64 `json:"strike_price"`
	GrantedWeek    int     `json:"granted_week"`
	VestingWeek    int     `json:"vesting_week"`
	ExpirationWeek int     `json:"expiration_week"`
	Vested         bool    `json:"vested"`
	Exercised      bool    `json:"exercised"`
	Expired        bool    `json:"expired"`
}

func (o *StockOption) Exercisable() bool {
	return o.Vested && !o.Exercised && !o.Expired
}

// PersonalAssets is the owner's private wealth, kept apart from the company.
type PersonalAssets struct {
	Account
	WeeklySalary         float64        `json:"weekly_salary"`
	Properties           []*Property    `json:"properties"`
	Luxury               []LuxuryItem   `json:"luxury"`
	StockOptions         []*StockOption `json:"stock_options"`
	CumulativeUpkeepPaid float64        `json:"cumulative_upkeep_paid"`
	SalaryReceived       float64        `json:"salary_received"`
}

func newPersonalAssets(cash float64) *PersonalAssets {
	return &PersonalAssets{Account: newAccount(cash)}
}

func (a *PersonalAssets) WeeklyLuxuryUpkeep() float64 {
	total := 0.0
	for _, it := range a.Luxury {
		total += it.WeeklyUpkeep
	}
	return total
}

// payUpkeep settles the luxury goods as a single all-or-nothing payment.
func (a *PersonalAssets) payUpkeep(log *slog.Logger) bool {
	total := a.WeeklyLuxuryUpkeep()
	if total <= 0 {
		return true
	}
	if !payOrWarn(log, "personal", a.Ledger, total, "luxury_upkeep") {
		return false
	}
	a.CumulativeUpkeepPaid += total
	return true
}

// processOptions vests and expires grants as their weeks come due.
func (a *PersonalAssets) processOptions(week int) (vested, expired int) {
	for _, o := range a.StockOptions {
		if o.Exercised || o.Expired {
			continue
		}
		if !o.Vested && week >= o.VestingWeek {
			o.Vested = true
			vested++
		}
		if week >= o.ExpirationWeek {
			o.Expired = true
			expired++
		}
	}
	return vested, expired
}

// SalaryCap is 1% of company cash while private and a share of the
// estimated annual profit, per week, once listed.
func (p *Player) SalaryCap(d *master.Data, week int) float64 {
	if p.IPO.Status == IPOPublic {
		_, profit := p.Company.EstimatedAnnuals(week)
		return max(0, profit) * d.Game.MaxPublicSalaryRatioToProfit / WeeksPerYear
	}
	return max(0, p.Company.Ledger.Cash()) * d.Game.MaxPrivateSalaryRatioToCash
}

func (p *Player) SetSalary(d *master.Data, amount float64, week int) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if limit := p.SalaryCap(d, week); amount > limit {
		return fmt.Errorf("salary %.0f above cap %.0f: %w", amount, limit, ErrNotEligible)
	}
	p.Personal.WeeklySalary = amount
	return nil
}

// TransferToCompany moves personal cash into the company as capital.
func (p *Player) TransferToCompany(amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := AttemptDebit(p.Personal.Ledger, amount, "capital_injection"); err != nil {
		return err
	}
	p.Company.Ledger.Deposit(amount, "capital_injection")
	return nil
}

func (p *Player) BuyLuxury(d *master.Data, rng *RNG, goodID string, week int) (LuxuryItem, error) {
	g, ok := d.LuxuryGood(goodID)
	if !ok {
		return LuxuryItem{}, fmt.Errorf("luxury good %s: %w", goodID, ErrNotFound)
	}
	if _, err := AttemptDebit(p.Personal.Ledger, g.Price, "luxury_purchase"); err != nil {
		return LuxuryItem{}, err
	}
	it := LuxuryItem{
		ID:            shortID("LUX", rng),
		GoodID:        g.ID,
		Name:          g.Name,
		PurchasePrice: g.Price,
		WeeklyUpkeep:  g.WeeklyUpkeep,
		AcquiredWeek:  week,
	}
	p.Personal.Luxury = append(p.Personal.Luxury, it)
	return it, nil
}

// grantStockOption issues options on the listed company at today's price.
func (s *Session) grantStockOption(shares int64) (*StockOption, error) {
	p := s.Player
	if p.IPO.Status != IPOPublic {
		return nil, fmt.Errorf("company is not listed: %w", ErrNotEligible)
	}
	if shares <= 0 {
		return nil, ErrInvalidAmount
	}
	own, ok := s.Market.Get(p.IPO.Ticker)
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", p.IPO.Ticker, ErrNotFound)
	}
	week := s.Clock.TotalWeeksElapsed
	o := &StockOption{
		ID:             shortID("OPT", s.RNG),
		Ticker:         own.Ticker,
		Shares:         shares,
		StrikePrice:    own.Price,
		GrantedWeek:    week,
		VestingWeek:    week + s.Master.StockOptions.VestingWeeks,
		ExpirationWeek: week + s.Master.StockOptions.ExpiryWeeks,
	}
	p.Personal.StockOptions = append(p.Personal.StockOptions, o)
	return o, nil
}

// exerciseStockOption buys the shares at strike into the personal portfolio.
func (s *Session) exerciseStockOption(id string) (*StockOption, error) {
	a := s.Player.Personal
	idx := slices.IndexFunc(a.StockOptions, func(o *StockOption) bool { return o.ID == id })
	if idx < 0 {
		return nil, fmt.Errorf("stock option %s: %w", id, ErrNotFound)
	}
	o := a.StockOptions[idx]
	if !o.Exercisable() {
		return nil, fmt.Errorf("stock option %s not exercisable: %w", id, ErrInvalidState)
	}
	name := o.Ticker
	if c, ok := s.Market.Get(o.Ticker); ok {
		name = c.Name
	}
	if err := a.BuyOnCash(o.Ticker, name, o.Shares, o.StrikePrice); err != nil {
		return nil, err
	}
	o.Exercised = true
	return o, nil
}

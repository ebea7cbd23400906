package game

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"ramentycoon/internal/master"
)

type DealStatus string

const (
	DealInProgress       DealStatus = "in_progress"
	DealAwaitingFollowOn DealStatus = "awaiting_follow_on"
	DealExitedSuccess    DealStatus = "exited_success"
	DealExitedFailure    DealStatus = "exited_failure"
)

// VentureDeal is a startup raising a round. Ratings are 1 to 5 and only
// meaningful once revealed by due diligence.
type VentureDeal struct {
	ID            string   `json:"id"`
	CompanyName   string   `json:"company_name"`
	Sector        string   `json:"sector"`
	Round         string   `json:"round"`
	Valuation     float64  `json:"valuation"`
	Ask           float64  `json:"ask"`
	EquityPercent float64  `json:"equity_percent"`
	DDLevel       int      `json:"dd_level"`
	Revealed      []string `json:"revealed"`
	MarketRating  int      `json:"market_rating"`
	TeamRating    int      `json:"team_rating"`
}

type Investment struct {
	Round         string  `json:"round"`
	Amount        float64 `json:"amount"`
	EquityPercent float64 `json:"equity_percent"`
	Week          int     `json:"week"`
}

// VentureHolding is an invested deal tracked in an owner's portfolio.
type VentureHolding struct {
	Deal             VentureDeal  `json:"deal"`
	Status           DealStatus   `json:"status"`
	WeeksToNextEvent int          `json:"weeks_to_next_event"`
	InvestedWeek     int          `json:"invested_week"`
	Investments      []Investment `json:"investments"`
	DilutionNotes    []string     `json:"dilution_notes,omitempty"`
}

func (h *VentureHolding) Invested() float64 {
	total := 0.0
	for _, inv := range h.Investments {
		total += inv.Amount
	}
	return total
}

func (h *VentureHolding) Equity() float64 {
	total := 0.0
	for _, inv := range h.Investments {
		total += inv.EquityPercent
	}
	return total
}

// VentureEvent reports a funding round or an exit. Cash is what the owner
// receives; IPO exits pay nothing and carry the new OwnedStock instead.
type VentureEvent struct {
	Owner   Owner       `json:"owner"`
	DealID  string      `json:"deal_id"`
	Company string      `json:"company"`
	Kind    string      `json:"kind"`
	Outcome string      `json:"outcome,omitempty"`
	Cash    float64     `json:"cash,omitempty"`
	Stock   *OwnedStock `json:"stock,omitempty"`
}

type ddJob struct {
	DealID       string `json:"deal_id"`
	Level        int    `json:"level"`
	CompleteWeek int    `json:"complete_week"`
}

// DealMarket is the venture deal flow: open deals and running diligence.
type DealMarket struct {
	Deals           []VentureDeal `json:"deals"`
	LastRefreshWeek int           `json:"last_refresh_week"`
	Jobs            []ddJob       `json:"dd_jobs"`
}

func newDealMarket(v master.VentureSettings) *DealMarket {
	return &DealMarket{LastRefreshWeek: -v.RefreshWeeks}
}

func (m *DealMarket) Deal(id string) (*VentureDeal, error) {
	for i := range m.Deals {
		if m.Deals[i].ID == id {
			return &m.Deals[i], nil
		}
	}
	return nil, fmt.Errorf("venture deal %s: %w", id, ErrNotFound)
}

// Refresh replaces the deals once the refresh interval has passed, or
// immediately when the market is empty.
func (m *DealMarket) Refresh(rng *RNG, v master.VentureSettings, week int) bool {
	if week < m.LastRefreshWeek+v.RefreshWeeks && len(m.Deals) > 0 {
		return false
	}
	m.Deals = m.Deals[:0]
	for range v.MaxDeals {
		if d, ok := generateDeal(rng, v); ok {
			m.Deals = append(m.Deals, d)
		}
	}
	m.Jobs = nil
	m.LastRefreshWeek = week
	return true
}

func generateDeal(rng *RNG, v master.VentureSettings) (VentureDeal, bool) {
	if len(v.Sectors) == 0 || len(v.Rounds) == 0 {
		return VentureDeal{}, false
	}
	sector := v.Sectors[rng.IntN(len(v.Sectors))]
	round := v.Rounds[0]
	valuation := roundTo(rng.Uniform(round.ValuationBase.Min, round.ValuationBase.Max)*sector.ValuationMultiplier, 1_000_000)
	d := VentureDeal{
		ID:            shortID("VCDEAL", rng),
		CompanyName:   rng.Choice(v.NamePrefixes) + " " + rng.Choice(v.NameSuffixes),
		Sector:        sector.Name,
		Round:         round.ID,
		Valuation:     valuation,
		Ask:           roundTo(valuation*rng.Uniform(round.AskPercent.Min, round.AskPercent.Max), 100_000),
		EquityPercent: math.Round(rng.Uniform(round.EquityOffer.Min, round.EquityOffer.Max)*1000) / 10,
		MarketRating:  rng.IntBetween(1, 5),
		TeamRating:    rng.IntBetween(1, 5),
	}
	if lvl := v.DDLevels; len(lvl) > 0 {
		d.Revealed = append(d.Revealed, lvl[0].Reveals...)
	}
	return d, true
}

// PerformDD pays for a higher diligence level. Instant levels reveal at once;
// the rest complete in the tick their weeks run out.
func (m *DealMarket) PerformDD(l *Ledger, v master.VentureSettings, dealID string, level, week int) error {
	deal, err := m.Deal(dealID)
	if err != nil {
		return err
	}
	lvl, ok := ddLevel(v, level)
	if !ok {
		return fmt.Errorf("dd level %d: %w", level, ErrNotFound)
	}
	if level <= deal.DDLevel || level <= m.pendingLevel(dealID) {
		return fmt.Errorf("deal %s already at dd level %d: %w", dealID, max(deal.DDLevel, m.pendingLevel(dealID)), ErrInvalidState)
	}
	if _, err := AttemptDebit(l, lvl.Cost, "venture_dd"); err != nil {
		return err
	}
	if lvl.Weeks <= 0 {
		revealTo(deal, v, level)
		return nil
	}
	m.Jobs = append(m.Jobs, ddJob{DealID: dealID, Level: level, CompleteWeek: week + lvl.Weeks})
	return nil
}

func ddLevel(v master.VentureSettings, level int) (master.DDLevel, bool) {
	for _, l := range v.DDLevels {
		if l.Level == level {
			return l, true
		}
	}
	return master.DDLevel{}, false
}

func (m *DealMarket) pendingLevel(dealID string) int {
	lvl := 0
	for _, j := range m.Jobs {
		if j.DealID == dealID {
			lvl = max(lvl, j.Level)
		}
	}
	return lvl
}

func revealTo(deal *VentureDeal, v master.VentureSettings, level int) {
	deal.DDLevel = max(deal.DDLevel, level)
	for _, l := range v.DDLevels {
		if l.Level > deal.DDLevel {
			continue
		}
		for _, field := range l.Reveals {
			if !slices.Contains(deal.Revealed, field) {
				deal.Revealed = append(deal.Revealed, field)
			}
		}
	}
}

// CompleteDD finishes the diligence jobs due this week.
func (m *DealMarket) CompleteDD(v master.VentureSettings, week int) []string {
	var done []string
	kept := m.Jobs[:0]
	for _, j := range m.Jobs {
		if j.CompleteWeek > week {
			kept = append(kept, j)
			continue
		}
		if deal, err := m.Deal(j.DealID); err == nil {
			revealTo(deal, v, j.Level)
			done = append(done, j.DealID)
		}
	}
	m.Jobs = kept
	return done
}

// ExecuteInvestment funds a market deal's current round and takes it off
// the market.
func (m *DealMarket) ExecuteInvestment(a *Account, rng *RNG, v master.VentureSettings, dealID string, week int) (*VentureHolding, error) {
	deal, err := m.Deal(dealID)
	if err != nil {
		return nil, err
	}
	if r, ok := ventureRound(v, deal.Round); ok && deal.DDLevel < r.RequiredDD {
		return nil, fmt.Errorf("deal %s needs dd level %d: %w", dealID, r.RequiredDD, ErrNotEligible)
	}
	h, err := Invest(a, rng, v, *deal, week)
	if err != nil {
		return nil, err
	}
	m.Deals = slices.DeleteFunc(m.Deals, func(d VentureDeal) bool { return d.ID == dealID })
	m.Jobs = slices.DeleteFunc(m.Jobs, func(j ddJob) bool { return j.DealID == dealID })
	return h, nil
}

// Invest pays the ask and opens a holding counting down to its next event.
func Invest(a *Account, rng *RNG, v master.VentureSettings, deal VentureDeal, week int) (*VentureHolding, error) {
	if _, held := a.Portfolio.Ventures[deal.ID]; held {
		return nil, fmt.Errorf("deal %s already held: %w", deal.ID, ErrInvalidState)
	}
	if _, err := AttemptDebit(a.Ledger, deal.Ask, "venture_investment"); err != nil {
		return nil, err
	}
	h := &VentureHolding{
		Deal:             deal,
		Status:           DealInProgress,
		WeeksToNextEvent: countdown(rng, v, deal.Round),
		InvestedWeek:     week,
		Investments: []Investment{{
			Round:         deal.Round,
			Amount:        deal.Ask,
			EquityPercent: deal.EquityPercent,
			Week:          week,
		}},
	}
	a.Portfolio.ensureMaps()
	a.Portfolio.Ventures[deal.ID] = h
	return h, nil
}

func awaiting(a *Account, dealID string) (*VentureHolding, error) {
	h, ok := a.Portfolio.Ventures[dealID]
	if !ok {
		return nil, fmt.Errorf("venture holding %s: %w", dealID, ErrNotFound)
	}
	if h.Status != DealAwaitingFollowOn {
		return nil, fmt.Errorf("deal %s is %s: %w", dealID, h.Status, ErrInvalidState)
	}
	return h, nil
}

// FollowOn funds the round the deal is raising.
func FollowOn(a *Account, rng *RNG, v master.VentureSettings, dealID string, week int) (*VentureHolding, error) {
	h, err := awaiting(a, dealID)
	if err != nil {
		return nil, err
	}
	if _, err := AttemptDebit(a.Ledger, h.Deal.Ask, "venture_investment"); err != nil {
		return nil, err
	}
	h.Investments = append(h.Investments, Investment{
		Round:         h.Deal.Round,
		Amount:        h.Deal.Ask,
		EquityPercent: h.Deal.EquityPercent,
		Week:          week,
	})
	h.Status = DealInProgress
	h.WeeksToNextEvent = countdown(rng, v, h.Deal.Round)
	return h, nil
}

// DeclineFollowOn sits the round out. Dilution is only noted.
func DeclineFollowOn(a *Account, rng *RNG, v master.VentureSettings, dealID string) (*VentureHolding, error) {
	h, err := awaiting(a, dealID)
	if err != nil {
		return nil, err
	}
	h.DilutionNotes = append(h.DilutionNotes, "round skipped: "+h.Deal.Round)
	h.Status = DealInProgress
	h.WeeksToNextEvent = countdown(rng, v, h.Deal.Round)
	return h, nil
}

func ventureRound(v master.VentureSettings, id string) (master.VentureRound, bool) {
	for _, r := range v.Rounds {
		if r.ID == id {
			return r, true
		}
	}
	return master.VentureRound{}, false
}

func nextRound(v master.VentureSettings, id string) (master.VentureRound, bool) {
	for i, r := range v.Rounds {
		if r.ID == id && i+1 < len(v.Rounds) {
			return v.Rounds[i+1], true
		}
	}
	return master.VentureRound{}, false
}

func countdown(rng *RNG, v master.VentureSettings, round string) int {
	r, ok := ventureRound(v, round)
	if !ok {
		return rng.IntBetween(v.DefaultCountdown.Min, v.DefaultCountdown.Max)
	}
	if r.WeeksToNext.Max <= 0 {
		return 0
	}
	return rng.IntBetween(r.WeeksToNext.Min, r.WeeksToNext.Max)
}

func pickWeighted(rng *RNG, table []master.Weighted) string {
	if len(table) == 0 {
		return ""
	}
	w := make([]float64, len(table))
	for i, t := range table {
		w[i] = t.Weight
	}
	return table[rng.Pick(w)].Name
}

// AdvanceVentures runs one week of the venture lifecycle for a portfolio.
// A deal whose countdown has run out draws continue-or-exit; continuing
// into an existing next round opens it for follow-on, anything else draws
// the exit type separately.
func AdvanceVentures(log *slog.Logger, rng *RNG, v master.VentureSettings, p *Portfolio, week int) []VentureEvent {
	var events []VentureEvent
	for _, id := range sortedKeys(p.Ventures) {
		h := p.Ventures[id]
		if h.WeeksToNextEvent > 0 {
			h.WeeksToNextEvent--
			continue
		}
		if h.Status != DealInProgress {
			continue
		}
		next, hasNext := nextRound(v, h.Deal.Round)
		if pickWeighted(rng, v.Events) == "NEXT_ROUND" && hasNext {
			h.Status = DealAwaitingFollowOn
			h.Deal.Round = next.ID
			h.Deal.Valuation = roundTo(h.Deal.Valuation*rng.Uniform(next.ValuationMultiplier.Min, next.ValuationMultiplier.Max), 1_000_000)
			h.Deal.Ask = roundTo(h.Deal.Valuation*rng.Uniform(next.AskPercent.Min, next.AskPercent.Max), 100_000)
			h.Deal.EquityPercent = math.Round(rng.Uniform(next.EquityOffer.Min, next.EquityOffer.Max)*1000) / 10
			log.Info("venture funding round", "deal", id, "company", h.Deal.CompanyName, "round", next.ID, "ask", h.Deal.Ask)
			events = append(events, VentureEvent{DealID: id, Company: h.Deal.CompanyName, Kind: "funding_round", Outcome: next.ID})
			continue
		}
		ev := resolveExit(rng, v, p, h, week)
		log.Info("venture exit", "deal", id, "company", h.Deal.CompanyName, "outcome", ev.Outcome, "cash", ev.Cash)
		events = append(events, ev)
		delete(p.Ventures, id)
	}
	return events
}

func resolveExit(rng *RNG, v master.VentureSettings, p *Portfolio, h *VentureHolding, week int) VentureEvent {
	ev := VentureEvent{DealID: h.Deal.ID, Company: h.Deal.CompanyName, Kind: "exit"}
	if len(v.Exits) == 0 {
		ev.Outcome = "BANKRUPTCY"
		h.Status = DealExitedFailure
		return ev
	}
	w := make([]float64, len(v.Exits))
	for i, e := range v.Exits {
		w[i] = e.Weight
	}
	exit := v.Exits[rng.Pick(w)]
	ev.Outcome = exit.Name
	invested := h.Invested()
	mult := rng.Uniform(exit.Multiplier.Min, exit.Multiplier.Max)
	switch exit.Name {
	case "IPO":
		stock := OwnedStock{
			ID:                 h.Deal.ID,
			CompanyName:        h.Deal.CompanyName,
			Sector:             h.Deal.Sector,
			AcquiredValueAtIPO: invested,
			CurrentMarketValue: round2(invested * mult),
			SharesEquivalent:   h.Equity(),
			AnnualDividendRate: rng.Uniform(v.IPODividendRate.Min, v.IPODividendRate.Max),
			AcquiredWeek:       week,
		}
		p.OwnedStocks = append(p.OwnedStocks, stock)
		ev.Stock = &stock
		h.Status = DealExitedSuccess
	case "BANKRUPTCY":
		h.Status = DealExitedFailure
	default:
		ev.Cash = round2(invested * mult)
		h.Status = DealExitedSuccess
		if ev.Cash <= 0 {
			h.Status = DealExitedFailure
		}
	}
	return ev
}

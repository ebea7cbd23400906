package game

import (
	"errors"
	"fmt"
	"math"

	"ramentycoon/internal/master"
)

type IPOStatus string

const (
	IPOPrivate       IPOStatus = "private"
	IPOInPreparation IPOStatus = "in_preparation"
	IPOPublic        IPOStatus = "public"
)

// IPOState walks private -> in_preparation -> public, or back to private
// when investor demand falls short.
type IPOState struct {
	Status         IPOStatus `json:"status"`
	Ticker         string    `json:"ticker,omitempty"`
	WeeksRemaining int       `json:"weeks_remaining"`
	RoadshowWeeks  int       `json:"roadshow_weeks"`
	TargetPrice    float64   `json:"target_price"`
	OfferPercent   float64   `json:"offer_percent"`
	Demand         float64   `json:"demand"`
	FinalPrice     float64   `json:"final_price,omitempty"`
	SharesOffered  int64     `json:"shares_offered,omitempty"`
	Proceeds       float64   `json:"proceeds,omitempty"`
	Attempts       int       `json:"attempts"`
	ListedWeek     int       `json:"listed_week,omitempty"`
}

func (st IPOState) InRoadshow() bool {
	return st.Status == IPOInPreparation && st.WeeksRemaining < st.RoadshowWeeks
}

// IPOEligibility collects every unmet listing requirement.
func (p *Player) IPOEligibility(d *master.Data, week int) error {
	if p.IPO.Status != IPOPrivate {
		return fmt.Errorf("company is %s: %w", p.IPO.Status, ErrInvalidState)
	}
	c := d.IPO
	var errs []error
	if weeks := week - p.FoundedWeek; weeks < c.MinWeeksInOperation {
		errs = append(errs, fmt.Errorf("operating %d of %d weeks", weeks, c.MinWeeksInOperation))
	}
	if revenue, _ := p.Company.EstimatedAnnuals(week); revenue < c.MinAnnualRevenue {
		errs = append(errs, fmt.Errorf("estimated annual revenue %.0f below %.0f", revenue, c.MinAnnualRevenue))
	}
	if profit := p.Company.Ledger.NetProfit(); profit < c.MinCumulativeProfit {
		errs = append(errs, fmt.Errorf("cumulative profit %.0f below %.0f", profit, c.MinCumulativeProfit))
	}
	for _, dept := range c.RequiredDepartments {
		if !p.Ops.HasDepartment(dept) {
			errs = append(errs, fmt.Errorf("missing %s department", dept))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNotEligible, errors.Join(errs...))
	}
	return nil
}

// IPOValuation averages a sales multiple and an earnings multiple.
func (p *Player) IPOValuation(rng *RNG, d *master.Data, week int) float64 {
	revenue, profit := p.Company.EstimatedAnnuals(week)
	psr := rng.Uniform(d.IPO.PSR.Min, d.IPO.PSR.Max)
	per := rng.Uniform(d.IPO.PER.Min, d.IPO.PER.Max)
	return max(0, (revenue*psr+max(0, profit)*per)/2)
}

// StartIPO pays the underwriter and enters preparation. A zero target price
// is derived from the valuation.
func (p *Player) StartIPO(rng *RNG, d *master.Data, week int, targetPrice, offerPercent float64) error {
	if err := p.IPOEligibility(d, week); err != nil {
		return err
	}
	c := d.IPO
	if offerPercent < c.OfferPercent.Min || offerPercent > c.OfferPercent.Max {
		return fmt.Errorf("offer %.2f outside %.2f-%.2f: %w", offerPercent, c.OfferPercent.Min, c.OfferPercent.Max, ErrInvalidAmount)
	}
	if targetPrice < 0 {
		return ErrInvalidAmount
	}
	if targetPrice == 0 {
		targetPrice = math.Max(1, math.Round(p.IPOValuation(rng, d, week)/float64(c.SharesOutstanding)))
	}
	if _, err := AttemptDebit(p.Company.Ledger, c.UnderwriterFee, "ipo_underwriting"); err != nil {
		return err
	}
	p.IPO = IPOState{
		Status:         IPOInPreparation,
		WeeksRemaining: c.ProcessWeeks,
		RoadshowWeeks:  c.RoadshowWeeks,
		TargetPrice:    targetPrice,
		OfferPercent:   offerPercent,
		Demand:         c.DemandBase,
		Attempts:       p.IPO.Attempts + 1,
	}
	return nil
}

func phaseBonus(b master.PhaseBonus, phase Phase) float64 {
	switch phase {
	case PhaseBoom:
		return b.Boom
	case PhaseRecession:
		return b.Recession
	default:
		return b.Normal
	}
}

// driftDemand moves investor demand during the roadshow by the macro phase,
// the company's profit and revenue trends and a random event.
func (p *Player) driftDemand(rng *RNG, d *master.Data, clock Clock) {
	c := d.IPO
	weeks := float64(max(1, c.RoadshowWeeks))
	revenue, profit := p.Company.EstimatedAnnuals(clock.TotalWeeksElapsed)
	margin := 0.0
	if revenue > 0 {
		margin = profit / revenue
	}
	profitTrend := clamp(margin/0.2, -1, 1) * c.ProfitTrendBonusMax
	revenueTrend := 0.0
	if c.MinAnnualRevenue > 0 {
		revenueTrend = clamp(revenue/c.MinAnnualRevenue-1, -1, 1) * c.RevenueTrendBonusMax
	}
	event := rng.Uniform(-c.RandomEventMax, c.RandomEventMax)
	p.IPO.Demand += (phaseBonus(c.PhaseBonus, clock.Phase)+profitTrend+revenueTrend)/weeks + event
}

func demandLevel(levels []master.DemandLevel, score float64) master.DemandLevel {
	for _, l := range levels {
		if score >= l.MinScore {
			return l
		}
	}
	if len(levels) == 0 {
		return master.DemandLevel{Name: "moderate"}
	}
	return levels[len(levels)-1]
}

// IPOOutcome is reported in the tick the preparation finishes.
type IPOOutcome struct {
	Listed        bool    `json:"listed"`
	Ticker        string  `json:"ticker,omitempty"`
	Demand        float64 `json:"demand"`
	DemandLevel   string  `json:"demand_level,omitempty"`
	Price         float64 `json:"price,omitempty"`
	SharesOffered int64   `json:"shares_offered,omitempty"`
	Proceeds      float64 `json:"proceeds,omitempty"`
	Fee           float64 `json:"fee,omitempty"`
}

// processIPO counts preparation down and lists the company when it ends.
func (s *Session) processIPO() *IPOOutcome {
	p := s.Player
	if p.IPO.Status != IPOInPreparation {
		return nil
	}
	p.IPO.WeeksRemaining--
	if p.IPO.InRoadshow() {
		p.driftDemand(s.RNG, s.Master, s.Clock)
	}
	if p.IPO.WeeksRemaining > 0 {
		return nil
	}
	return s.finalizeIPO()
}

func (s *Session) finalizeIPO() *IPOOutcome {
	p, c := s.Player, s.Master.IPO
	out := &IPOOutcome{Demand: p.IPO.Demand}
	if p.IPO.Demand < c.FailureThreshold {
		s.Log.Info("ipo failed", "demand", p.IPO.Demand, "threshold", c.FailureThreshold)
		p.IPO.Status = IPOPrivate
		p.IPO.WeeksRemaining = 0
		return out
	}
	lvl := demandLevel(c.DemandLevels, p.IPO.Demand)
	price := math.Max(1, math.Round(p.IPO.TargetPrice*(1+lvl.PriceAdjustment)))
	offer := clamp(p.IPO.OfferPercent+lvl.SharesAdjustment, 0.01, 0.99)
	shares := int64(float64(c.SharesOutstanding) * offer)
	proceeds := float64(shares) * price
	fee := round2(proceeds * c.UnderwriterFeeRate)

	week := s.Clock.TotalWeeksElapsed
	_, profit := p.Company.EstimatedAnnuals(week)
	listing := &ListedCompany{
		Ticker:            s.Market.FreeTicker(s.RNG, s.Master.Market.TickerLength),
		Name:              p.CompanyName,
		Sector:            "Consumer Discretionary",
		FoundedYear:       s.Master.Game.StartYear,
		Price:             price,
		SharesOutstanding: c.SharesOutstanding,
		NetAssets:         math.Max(1, p.Company.Ledger.Cash()+proceeds-fee),
		EPSTTM:            profit / float64(c.SharesOutstanding),
		NextEarningsWeek:  week + s.Master.Market.EarningsIntervalWeeks,
		History:           []float64{price},
		IsPlayerOwn:       true,
	}
	if err := s.Market.Add(listing); err != nil {
		s.Log.Warn("ipo listing", "error", err)
		p.IPO.Status = IPOPrivate
		return out
	}
	p.Company.Ledger.Deposit(proceeds, "ipo_proceeds")
	p.Company.Ledger.RecordExpense(fee, "ipo_fee")

	p.IPO.Status = IPOPublic
	p.IPO.Ticker = listing.Ticker
	p.IPO.WeeksRemaining = 0
	p.IPO.FinalPrice = price
	p.IPO.SharesOffered = shares
	p.IPO.Proceeds = proceeds
	p.IPO.ListedWeek = week

	*out = IPOOutcome{
		Listed:        true,
		Ticker:        listing.Ticker,
		Demand:        p.IPO.Demand,
		DemandLevel:   lvl.Name,
		Price:         price,
		SharesOffered: shares,
		Proceeds:      proceeds,
		Fee:           fee,
	}
	s.Log.Info("ipo listed", "ticker", listing.Ticker, "price", price, "shares_offered", shares, "proceeds", proceeds)
	return out
}

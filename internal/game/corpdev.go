package game

import (
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"

	"ramentycoon/internal/master"
)

// TargetCompany is a private business for sale.
type TargetCompany struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Industry       string  `json:"industry"`
	Size           string  `json:"size"`
	AnnualRevenue  float64 `json:"annual_revenue"`
	ProfitMargin   float64 `json:"profit_margin"`
	Employees      int     `json:"employees"`
	AskingPriceMin float64 `json:"asking_price_min"`
	AskingPriceMax float64 `json:"asking_price_max"`
	DDPerformed    bool    `json:"dd_performed"`
}

func (t *TargetCompany) NetProfit() float64 {
	return t.AnnualRevenue * t.ProfitMargin
}

// SuccessChance rises linearly from the base chance at the minimum ask. A
// single-price ask always accepts.
func (t *TargetCompany) SuccessChance(ma master.MASettings, offer float64) float64 {
	span := t.AskingPriceMax - t.AskingPriceMin
	ratio := 1.0
	if span > 0 {
		ratio = (offer - t.AskingPriceMin) / span
	}
	return clamp(ma.BaseSuccess+ma.SuccessSpan*ratio, 0, 1)
}

type Acquisition struct {
	Name   string  `json:"name"`
	Ticker string  `json:"ticker,omitempty"`
	Kind   string  `json:"kind"`
	Cost   float64 `json:"cost"`
	Week   int     `json:"week"`
}

// TargetMarket is the private M&A market.
type TargetMarket struct {
	Targets         []*TargetCompany `json:"targets"`
	LastRefreshWeek int              `json:"last_refresh_week"`
}

func newTargetMarket(ma master.MASettings) *TargetMarket {
	return &TargetMarket{LastRefreshWeek: -ma.RefreshWeeks}
}

func (m *TargetMarket) Target(id string) (*TargetCompany, error) {
	for _, t := range m.Targets {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, fmt.Errorf("acquisition target %s: %w", id, ErrNotFound)
}

func (m *TargetMarket) Refresh(rng *RNG, ma master.MASettings, week int) bool {
	if week < m.LastRefreshWeek+ma.RefreshWeeks && len(m.Targets) > 0 {
		return false
	}
	m.Targets = nil
	for range ma.MarketSize {
		if t, ok := generateTarget(rng, ma); ok {
			m.Targets = append(m.Targets, t)
		}
	}
	m.LastRefreshWeek = week
	return true
}

func generateTarget(rng *RNG, ma master.MASettings) (*TargetCompany, bool) {
	if len(ma.Industries) == 0 || len(ma.Sizes) == 0 {
		return nil, false
	}
	ind := ma.Industries[rng.IntN(len(ma.Industries))]
	w := make([]float64, len(ma.Sizes))
	for i, s := range ma.Sizes {
		w[i] = s.Weight
	}
	size := ma.Sizes[rng.Pick(w)]
	revenue := rng.Uniform(size.Revenue.Min, size.Revenue.Max)
	askMin := max(1_000_000, roundTo(revenue*size.AskingMultiplier.Min, 1_000_000))
	askMax := max(askMin, roundTo(revenue*size.AskingMultiplier.Max, 1_000_000))
	name := ind.Name
	if len(ind.Names) > 0 {
		name = rng.Choice(ind.Names)
	}
	return &TargetCompany{
		ID:             shortID("MA", rng),
		Name:           fmt.Sprintf("%s (%s)", name, size.Name),
		Industry:       ind.Name,
		Size:           size.Name,
		AnnualRevenue:  revenue,
		ProfitMargin:   rng.Uniform(size.Margin.Min, size.Margin.Max),
		Employees:      rng.IntBetween(size.Employees.Min, size.Employees.Max),
		AskingPriceMin: askMin,
		AskingPriceMax: askMax,
	}, true
}

// TargetDD pays for diligence on a target once.
func (p *Player) TargetDD(ma master.MASettings, m *TargetMarket, id string) (*TargetCompany, error) {
	t, err := m.Target(id)
	if err != nil {
		return nil, err
	}
	if t.DDPerformed {
		return t, fmt.Errorf("dd on %s already done: %w", t.Name, ErrInvalidState)
	}
	if _, err := AttemptDebit(p.Company.Ledger, ma.PrivateDDCost, "due_diligence"); err != nil {
		return nil, err
	}
	t.DDPerformed = true
	return t, nil
}

// Integration is what an acquired private company brings.
type Integration struct {
	Shops       []*BusinessUnit `json:"shops,omitempty"`
	SynergyID   string          `json:"synergy_id,omitempty"`
	OneTimeGain float64         `json:"one_time_gain,omitempty"`
}

// makeOffer bids for a private target. Rejected offers cost nothing and the
// target stays listed.
func (s *Session) makeOffer(id string, offer float64) (Integration, error) {
	p, ma := s.Player, s.Master.MA
	t, err := s.Targets.Target(id)
	if err != nil {
		return Integration{}, err
	}
	if offer <= 0 {
		return Integration{}, ErrInvalidAmount
	}
	if !p.Company.Ledger.CanAfford(offer) {
		return Integration{}, &Shortfall{Category: "acquisition", Needed: offer, Available: p.Company.Ledger.Cash()}
	}
	if !s.RNG.Chance(t.SuccessChance(ma, offer)) {
		return Integration{}, fmt.Errorf("offer %.0f for %s: %w", offer, t.Name, ErrOfferRejected)
	}
	p.Company.Ledger.RecordExpense(offer, "acquisition")
	in, err := s.integrate(t)
	if err != nil {
		return Integration{}, err
	}
	p.Acquisitions = append(p.Acquisitions, Acquisition{Name: t.Name, Kind: "private", Cost: offer, Week: s.Clock.TotalWeeksElapsed})
	s.Targets.Targets = slices.DeleteFunc(s.Targets.Targets, func(x *TargetCompany) bool { return x.ID == id })
	s.Log.Info("acquisition closed", "target", t.Name, "industry", t.Industry, "cost", offer)
	return in, nil
}

func (s *Session) integrate(t *TargetCompany) (Integration, error) {
	p, d := s.Player, s.Master
	ind, ok := d.Industry(t.Industry)
	if !ok {
		ind = master.Industry{Name: t.Industry, Integration: "one_time_gain"}
	}
	var in Integration
	switch ind.Integration {
	case "shops":
		n := int(clamp(math.Round(float64(t.Employees)/8), 1, float64(max(1, d.MA.RamenChainMaxShops))))
		for i := range n {
			region := d.Regions[s.RNG.IntN(len(d.Regions))]
			u := newBusinessUnit(shortID("SHOP", s.RNG), fmt.Sprintf("%s %s #%d", t.Name, region.Name, i+1), region, d.Shop.DefaultKind, 1+s.RNG.IntN(2), s.Clock.TotalWeeksElapsed)
			u.Finances.WeeklyFixedCosts = region.RentBase * s.RNG.Uniform(0.9, 1.1)
			for _, item := range d.DefaultMenu {
				if m, ok := d.MenuItem(item); ok {
					u.Menu = append(u.Menu, m)
				}
			}
			p.Ops.Shops = append(p.Ops.Shops, u)
			in.Shops = append(in.Shops, u)
		}
	case "material_cost_reduction", "fixed_cost_reduction_total":
		kind, err := ParseEffectKind(ind.Integration)
		if err != nil {
			return Integration{}, err
		}
		eff := Effect{
			Kind:           kind,
			Name:           t.Name + " synergy",
			Value:          ind.Value,
			Amount:         decimal.NewFromFloat(ind.Amount),
			RemainingWeeks: ind.Weeks,
		}
		if err := p.Effects.AddSynergy(t.ID, eff); err != nil {
			return Integration{}, err
		}
		in.SynergyID = t.ID
	default:
		in.OneTimeGain = round2(t.NetProfit() * s.RNG.Uniform(d.MA.OneTimeGain.Min, d.MA.OneTimeGain.Max))
		p.Company.Ledger.AddRevenue(in.OneTimeGain, "acquisition_gain")
	}
	return in, nil
}

// ListedPrice is the takeover price: market cap plus a control premium.
func ListedPrice(rng *RNG, ma master.MASettings, c *ListedCompany) float64 {
	return math.Round(c.MarketCap() * (1 + rng.Uniform(ma.ListedPremium.Min, ma.ListedPremium.Max)))
}

// acquireListed buys a whole listed company. Its price freezes and its
// profits flow to the company each week.
func (s *Session) acquireListed(ticker string) (float64, error) {
	p := s.Player
	c, ok := s.Market.Get(ticker)
	if !ok {
		return 0, fmt.Errorf("ticker %s: %w", ticker, ErrNotFound)
	}
	if c.IsSubsidiary || c.IsPlayerOwn {
		return 0, fmt.Errorf("%s cannot be acquired: %w", ticker, ErrInvalidState)
	}
	cost := ListedPrice(s.RNG, s.Master.MA, c)
	if _, err := AttemptDebit(p.Company.Ledger, cost, "acquisition"); err != nil {
		return 0, err
	}
	c.IsSubsidiary = true
	p.Subsidiaries = append(p.Subsidiaries, c.Ticker)
	p.Acquisitions = append(p.Acquisitions, Acquisition{Name: c.Name, Ticker: c.Ticker, Kind: "listed", Cost: cost, Week: s.Clock.TotalWeeksElapsed})
	s.Log.Info("listed acquisition", "ticker", c.Ticker, "name", c.Name, "cost", cost)
	return cost, nil
}

// subsidiaryProfit is the weekly profit of every acquired listed company.
func (s *Session) subsidiaryProfit() float64 {
	total := 0.0
	for _, t := range s.Player.Subsidiaries {
		if c, ok := s.Market.Get(t); ok {
			total += c.WeeklyProfitAsSubsidiary(s.Master.Market)
		}
	}
	return round2(total)
}

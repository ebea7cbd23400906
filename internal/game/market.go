package game

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"ramentycoon/internal/master"
)

type QuarterResult struct {
	Year    int     `json:"year"`
	Quarter int     `json:"quarter"`
	Sales   float64 `json:"sales"`
	Profit  float64 `json:"profit"`
}

type ListedCompany struct {
	Ticker                string          `json:"ticker"`
	Name                  string          `json:"name"`
	Sector                string          `json:"sector"`
	FoundedYear           int             `json:"founded_year"`
	Price                 float64         `json:"price"`
	SharesOutstanding     int64           `json:"shares_outstanding"`
	NetAssets             float64         `json:"net_assets"`
	EPSTTM                float64         `json:"eps_ttm"`
	Quarters              []QuarterResult `json:"quarters"`
	NextEarningsWeek      int             `json:"next_earnings_week"`
	LastQuarterlyDividend float64         `json:"last_quarterly_dividend"`
	History               []float64       `json:"history"`
	IsSubsidiary          bool            `json:"is_subsidiary"`
	IsPlayerOwn           bool            `json:"is_player_own"`
}

// MarketCap is always derived from the current price.
func (c *ListedCompany) MarketCap() float64 {
	return c.Price * float64(c.SharesOutstanding)
}

// PE reports false when trailing earnings are not positive.
func (c *ListedCompany) PE() (float64, bool) {
	if c.EPSTTM <= 0 || c.SharesOutstanding <= 0 {
		return 0, false
	}
	return c.Price / c.EPSTTM, true
}

func (c *ListedCompany) BookValuePerShare() float64 {
	if c.SharesOutstanding <= 0 {
		return 0
	}
	return c.NetAssets / float64(c.SharesOutstanding)
}

func (c *ListedCompany) PBR() (float64, bool) {
	bps := c.BookValuePerShare()
	if bps <= 0 {
		return 0, false
	}
	return c.Price / bps, true
}

func (c *ListedCompany) DividendYield() float64 {
	if c.Price <= 0 {
		return 0
	}
	return c.LastQuarterlyDividend * 4 / c.Price
}

// Frozen companies are subsidiaries other than the player's own listing.
func (c *ListedCompany) Frozen() bool {
	return c.IsSubsidiary && !c.IsPlayerOwn
}

func (c *ListedCompany) updatePrice(rng *RNG, phase Phase, s master.MarketSettings, dyn marketDynamics) {
	r := rng.Uniform(s.WeeklyReturn.Min, s.WeeklyReturn.Max) * dyn.NoiseScale
	pr := phaseRange(s.PhaseDrift, phase)
	r += rng.Uniform(pr.Min, pr.Max)
	if rng.Chance(s.NewsProbability * dyn.NewsProbScale) {
		r += rng.Uniform(s.NewsImpact.Min, s.NewsImpact.Max) * dyn.NewsImpactScale
	}
	c.Price = math.Max(1, round2(c.Price*(1+r)))
	c.History = append(c.History, c.Price)
	if limit := s.PriceHistoryWeeks; limit > 0 && len(c.History) > limit {
		c.History = c.History[len(c.History)-limit:]
	}
}

// processEarnings announces a quarter when due. Quarterly EPS is 5% of book
// value per share scaled by U(0.5, 1.5).
func (c *ListedCompany) processEarnings(rng *RNG, clock Clock, s master.MarketSettings) bool {
	if c.NextEarningsWeek > clock.TotalWeeksElapsed {
		return false
	}
	eps := c.BookValuePerShare() * 0.05 * rng.Uniform(0.5, 1.5)
	pe, ok := c.PE()
	if !ok {
		pe = s.FallbackPE
	}
	profit := eps * float64(c.SharesOutstanding)
	c.Quarters = append(c.Quarters, QuarterResult{
		Year:    clock.Year,
		Quarter: clock.Quarter(),
		Sales:   profit * pe,
		Profit:  profit,
	})
	if len(c.Quarters) > 4 {
		c.Quarters = c.Quarters[len(c.Quarters)-4:]
	}
	total := 0.0
	for _, q := range c.Quarters {
		total += q.Profit
	}
	if c.SharesOutstanding > 0 {
		c.EPSTTM = total / float64(c.SharesOutstanding)
	}
	c.NextEarningsWeek += s.EarningsIntervalWeeks
	return true
}

// dividendDue fixes the quarterly dividend the week before earnings.
func (c *ListedCompany) dividendDue(rng *RNG, clock Clock, s master.MarketSettings) (float64, bool) {
	if c.NextEarningsWeek-1 != clock.TotalWeeksElapsed {
		return 0, false
	}
	if c.EPSTTM > 0 {
		payout := rng.Uniform(s.DividendPayout.Min, s.DividendPayout.Max)
		c.LastQuarterlyDividend = round2(c.EPSTTM * payout / 4)
	} else {
		c.LastQuarterlyDividend = 0
	}
	return c.LastQuarterlyDividend, c.LastQuarterlyDividend > 0
}

// WeeklyProfitAsSubsidiary estimates the weekly profit an owner books.
func (c *ListedCompany) WeeklyProfitAsSubsidiary(s master.MarketSettings) float64 {
	if pe, ok := c.PE(); ok && pe > 0 {
		return c.MarketCap() / pe / WeeksPerYear
	}
	return c.MarketCap() * s.SubsidiaryProfitRate
}

func phaseRange(p master.PhaseRanges, phase Phase) master.Range {
	switch phase {
	case PhaseBoom:
		return p.Boom
	case PhaseRecession:
		return p.Recession
	default:
		return p.Normal
	}
}

type marketDynamics struct {
	NoiseScale      float64
	NewsProbScale   float64
	NewsImpactScale float64
}

// volatilityParams scales the master-data price model. Anything other
// than calm or wild is the unscaled baseline.
func volatilityParams(mode string) marketDynamics {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "calm":
		return marketDynamics{
			NoiseScale:      0.6,
			NewsProbScale:   0.5,
			NewsImpactScale: 0.7,
		}
	case "wild":
		return marketDynamics{
			NoiseScale:      1.6,
			NewsProbScale:   2.5,
			NewsImpactScale: 1.5,
		}
	default:
		return marketDynamics{
			NoiseScale:      1,
			NewsProbScale:   1,
			NewsImpactScale: 1,
		}
	}
}

type Market struct {
	Companies  []*ListedCompany `json:"companies"`
	Volatility string           `json:"volatility"`

	index map[string]*ListedCompany
}

type DividendEvent struct {
	Ticker   string  `json:"ticker"`
	PerShare float64 `json:"per_share"`
}

// GenerateMarket builds the exchange with unique numeric tickers.
func GenerateMarket(rng *RNG, d *master.Data, startYear int, volatility string) *Market {
	s := d.Market
	m := &Market{Volatility: volatility}
	lo := int(math.Pow10(s.TickerLength - 1))
	hi := int(math.Pow10(s.TickerLength)) - 1
	if s.TickerLength == 1 {
		lo = 0
	}
	used := map[string]bool{}
	tierWeights := make([]float64, len(s.CapTiers))
	for i, t := range s.CapTiers {
		tierWeights[i] = t.Weight
	}
	for len(m.Companies) < s.CompanyCount && len(used) < hi-lo+1 {
		ticker := fmt.Sprintf("%0*d", s.TickerLength, rng.IntBetween(lo, hi))
		if used[ticker] {
			continue
		}
		used[ticker] = true

		tier := s.CapTiers[rng.Pick(tierWeights)]
		capital := roundTo(rng.Uniform(tier.Min, tier.Max), 1_000_000)
		price := math.Max(1, math.Round(rng.Uniform(s.InitialPrice.Min, s.InitialPrice.Max)))
		shares := max(int64(1), int64(math.Round(capital/price)))
		pbr := rng.Uniform(s.PBR.Min, s.PBR.Max)
		c := &ListedCompany{
			Ticker:            ticker,
			Name:              companyName(rng, s),
			Sector:            rng.Choice(s.Sectors),
			FoundedYear:       startYear - rng.IntBetween(5, 80),
			Price:             price,
			SharesOutstanding: shares,
			NextEarningsWeek:  rng.IntBetween(1, s.EarningsIntervalWeeks),
			History:           []float64{price},
		}
		c.NetAssets = c.MarketCap()
		if pbr > 0 {
			c.NetAssets = c.MarketCap() / pbr
		}
		m.Companies = append(m.Companies, c)
	}
	m.reindex()
	return m
}

func companyName(rng *RNG, s master.MarketSettings) string {
	var parts []string
	if rng.Chance(0.7) {
		parts = append(parts, rng.Choice(s.NamePrefixes))
	}
	parts = append(parts, rng.Choice(s.NameMiddles))
	if rng.Chance(0.8) {
		parts = append(parts, rng.Choice(s.NameSuffixes))
	}
	return strings.Join(parts, " ")
}

func (m *Market) reindex() {
	m.index = make(map[string]*ListedCompany, len(m.Companies))
	for _, c := range m.Companies {
		m.index[c.Ticker] = c
	}
}

func (m *Market) Get(ticker string) (*ListedCompany, bool) {
	if m == nil {
		return nil, false
	}
	if len(m.index) != len(m.Companies) {
		m.reindex()
	}
	c, ok := m.index[ticker]
	return c, ok
}

// Price implements PriceSource.
func (m *Market) Price(ticker string) (float64, bool) {
	c, ok := m.Get(ticker)
	if !ok {
		return 0, false
	}
	return c.Price, true
}

func (m *Market) Add(c *ListedCompany) error {
	if _, ok := m.Get(c.Ticker); ok {
		return fmt.Errorf("ticker %s taken: %w", c.Ticker, ErrInvalidState)
	}
	m.Companies = append(m.Companies, c)
	m.reindex()
	return nil
}

// FreeTicker finds an unused ticker of the exchange's width.
func (m *Market) FreeTicker(rng *RNG, width int) string {
	lo := int(math.Pow10(width - 1))
	hi := int(math.Pow10(width)) - 1
	for range 1000 {
		t := strconv.Itoa(rng.IntBetween(lo, hi))
		if _, ok := m.Get(t); !ok {
			return t
		}
	}
	for n := lo; n <= hi; n++ {
		t := strconv.Itoa(n)
		if _, ok := m.Get(t); !ok {
			return t
		}
	}
	return ""
}

// Tradable lists companies open to outside investors, by ticker.
func (m *Market) Tradable() []*ListedCompany {
	out := make([]*ListedCompany, 0, len(m.Companies))
	for _, c := range m.Companies {
		if !c.IsSubsidiary {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// Update moves prices, settles dividends then earnings, and returns the
// dividends to distribute. Frozen subsidiaries are skipped.
func (m *Market) Update(rng *RNG, clock Clock, s master.MarketSettings) (dividends []DividendEvent, announcements int) {
	dyn := volatilityParams(m.Volatility)
	for _, c := range m.Companies {
		if c.Frozen() {
			continue
		}
		c.updatePrice(rng, clock.Phase, s, dyn)
		if dps, ok := c.dividendDue(rng, clock, s); ok {
			dividends = append(dividends, DividendEvent{Ticker: c.Ticker, PerShare: dps})
		}
		if c.processEarnings(rng, clock, s) {
			announcements++
		}
	}
	return dividends, announcements
}

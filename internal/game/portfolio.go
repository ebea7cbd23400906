package game

import (
	"fmt"
	"sort"
)

// PriceSource resolves a ticker to its current price.
type PriceSource interface {
	Price(ticker string) (float64, bool)
}

// Holding splits shares by how they were financed; both halves share one
// volume-weighted cost basis.
type Holding struct {
	CompanyName  string  `json:"company_name"`
	CashShares   int64   `json:"cash_shares"`
	MarginShares int64   `json:"margin_shares"`
	AvgBuyPrice  float64 `json:"average_buy_price"`
}

func (h *Holding) Shares() int64 { return h.CashShares + h.MarginShares }

type ShortPosition struct {
	CompanyName  string  `json:"company_name"`
	Shares       int64   `json:"shares"`
	SellPrice    float64 `json:"sell_price"`
	BorrowedWeek int     `json:"borrowed_week"`
}

// OwnedStock is equity received when a venture investment exits by IPO. It is
// not exchange-tracked.
type OwnedStock struct {
	ID                 string  `json:"id"`
	CompanyName        string  `json:"company_name"`
	Sector             string  `json:"sector"`
	AcquiredValueAtIPO float64 `json:"acquired_value_at_ipo"`
	CurrentMarketValue float64 `json:"current_market_value"`
	SharesEquivalent   float64 `json:"shares_equivalent"`
	AnnualDividendRate float64 `json:"annual_dividend_rate"`
	AcquiredWeek       int     `json:"acquired_week"`
}

func (o OwnedStock) WeeklyDividend() float64 {
	return round2(o.CurrentMarketValue * o.AnnualDividendRate / WeeksPerYear)
}

// Portfolio is quantity and cost-basis bookkeeping only. Cash moves in the
// Account that owns it.
type Portfolio struct {
	Holdings    map[string]*Holding        `json:"holdings"`
	Shorts      map[string]*ShortPosition  `json:"shorts"`
	MarginLoan  float64                    `json:"margin_loan"`
	Ventures    map[string]*VentureHolding `json:"ventures"`
	OwnedStocks []OwnedStock               `json:"owned_stocks"`
}

func NewPortfolio() *Portfolio {
	p := &Portfolio{}
	p.ensureMaps()
	return p
}

func (p *Portfolio) ensureMaps() {
	if p.Holdings == nil {
		p.Holdings = map[string]*Holding{}
	}
	if p.Shorts == nil {
		p.Shorts = map[string]*ShortPosition{}
	}
	if p.Ventures == nil {
		p.Ventures = map[string]*VentureHolding{}
	}
}

// Buy blends shares into the position at a volume-weighted average price.
// A margin buy borrows the part of the cost not covered by initialRatio.
func (p *Portfolio) Buy(ticker, name string, shares int64, price float64, onMargin bool, initialRatio float64) error {
	if shares <= 0 || price <= 0 {
		return ErrInvalidAmount
	}
	p.ensureMaps()
	h, ok := p.Holdings[ticker]
	if !ok {
		h = &Holding{CompanyName: name}
		p.Holdings[ticker] = h
	}
	held := h.Shares()
	h.AvgBuyPrice = round2((h.AvgBuyPrice*float64(held) + price*float64(shares)) / float64(held+shares))
	if onMargin {
		h.MarginShares += shares
		p.MarginLoan += float64(shares) * price * (1 - initialRatio)
	} else {
		h.CashShares += shares
	}
	return nil
}

// Sell never fills partially. Margin-financed shares go first and repay the
// loan at the average basis times the loan ratio.
func (p *Portfolio) Sell(ticker string, shares int64, initialRatio float64) (avg, loanRepaid float64, err error) {
	if shares <= 0 {
		return 0, 0, ErrInvalidAmount
	}
	h, ok := p.Holdings[ticker]
	if !ok {
		return 0, 0, fmt.Errorf("holding %s: %w", ticker, ErrNotFound)
	}
	if shares > h.Shares() {
		return 0, 0, fmt.Errorf("sell %d of %d %s: %w", shares, h.Shares(), ticker, ErrInsufficientShares)
	}
	avg = h.AvgBuyPrice
	marginSold := min(shares, h.MarginShares)
	if marginSold > 0 {
		loanRepaid = min(p.MarginLoan, avg*(1-initialRatio)*float64(marginSold))
		p.MarginLoan -= loanRepaid
		if p.MarginLoan < 0.005 {
			p.MarginLoan = 0
		}
	}
	h.MarginShares -= marginSold
	h.CashShares -= shares - marginSold
	if h.Shares() == 0 {
		delete(p.Holdings, ticker)
	}
	return avg, loanRepaid, nil
}

func (p *Portfolio) OpenShort(ticker, name string, shares int64, price float64, week int) error {
	if shares <= 0 || price <= 0 {
		return ErrInvalidAmount
	}
	p.ensureMaps()
	if _, ok := p.Shorts[ticker]; ok {
		return fmt.Errorf("short %s already open: %w", ticker, ErrInvalidState)
	}
	p.Shorts[ticker] = &ShortPosition{CompanyName: name, Shares: shares, SellPrice: price, BorrowedWeek: week}
	return nil
}

// CoverShort closes part or all of a short and returns the original sell price.
func (p *Portfolio) CoverShort(ticker string, shares int64) (float64, error) {
	if shares <= 0 {
		return 0, ErrInvalidAmount
	}
	s, ok := p.Shorts[ticker]
	if !ok {
		return 0, fmt.Errorf("short %s: %w", ticker, ErrNotFound)
	}
	if shares > s.Shares {
		return 0, fmt.Errorf("cover %d of %d %s: %w", shares, s.Shares, ticker, ErrInsufficientShares)
	}
	s.Shares -= shares
	if s.Shares == 0 {
		delete(p.Shorts, ticker)
	}
	return s.SellPrice, nil
}

type MarginStatus struct {
	Evaluated     bool    `json:"evaluated"`
	Call          bool    `json:"call"`
	Equity        float64 `json:"equity"`
	Requirement   float64 `json:"requirement"`
	LongValue     float64 `json:"margin_long_value"`
	ShortValue    float64 `json:"short_current_value"`
	ShortProceeds float64 `json:"short_proceeds"`
	Loan          float64 `json:"margin_loan"`
}

// CheckMarginCall applies equity = C + L + P − M − S against r × (L + S). It is
// only evaluated while there is a margin loan or an open short.
func (p *Portfolio) CheckMarginCall(cash float64, prices PriceSource, maintenance float64) MarginStatus {
	if p.MarginLoan <= 0 && len(p.Shorts) == 0 {
		return MarginStatus{}
	}
	st := MarginStatus{Evaluated: true, Loan: p.MarginLoan}
	for _, t := range sortedKeys(p.Holdings) {
		h := p.Holdings[t]
		if h.MarginShares == 0 {
			continue
		}
		st.LongValue += float64(h.MarginShares) * priceOr(prices, t, h.AvgBuyPrice)
	}
	for _, t := range sortedKeys(p.Shorts) {
		s := p.Shorts[t]
		st.ShortValue += float64(s.Shares) * priceOr(prices, t, s.SellPrice)
		st.ShortProceeds += float64(s.Shares) * s.SellPrice
	}
	st.Equity = cash + st.LongValue + st.ShortProceeds - st.Loan - st.ShortValue
	st.Requirement = maintenance * (st.LongValue + st.ShortValue)
	st.Call = st.Equity < st.Requirement
	return st
}

// WeeklyFees is margin interest plus the borrow fee on open shorts.
func (p *Portfolio) WeeklyFees(prices PriceSource, marginRate, shortRate float64) float64 {
	fees := p.MarginLoan * marginRate
	for _, t := range sortedKeys(p.Shorts) {
		s := p.Shorts[t]
		fees += float64(s.Shares) * priceOr(prices, t, s.SellPrice) * shortRate
	}
	return round2(fees)
}

// DividendFor is the payout on every share held, cash or margin.
func (p *Portfolio) DividendFor(ticker string, perShare float64) float64 {
	h, ok := p.Holdings[ticker]
	if !ok || perShare <= 0 {
		return 0
	}
	return round2(float64(h.Shares()) * perShare)
}

// MarketValue values listed holdings, net of shorts, plus venture-IPO equity.
func (p *Portfolio) MarketValue(prices PriceSource) float64 {
	v := 0.0
	for _, t := range sortedKeys(p.Holdings) {
		h := p.Holdings[t]
		v += float64(h.Shares()) * priceOr(prices, t, h.AvgBuyPrice)
	}
	for _, t := range sortedKeys(p.Shorts) {
		s := p.Shorts[t]
		v -= float64(s.Shares) * priceOr(prices, t, s.SellPrice)
	}
	for _, o := range p.OwnedStocks {
		v += o.CurrentMarketValue
	}
	return v
}

func (p *Portfolio) RemoveOwnedStock(id string) (OwnedStock, bool) {
	for i, o := range p.OwnedStocks {
		if o.ID == id {
			p.OwnedStocks = append(p.OwnedStocks[:i], p.OwnedStocks[i+1:]...)
			return o, true
		}
	}
	return OwnedStock{}, false
}

func priceOr(prices PriceSource, ticker string, fallback float64) float64 {
	if prices != nil {
		if px, ok := prices.Price(ticker); ok {
			return px
		}
	}
	return fallback
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

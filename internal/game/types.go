package game

import "sort"

// Dashboard is the read model the API and CLI render.
type Dashboard struct {
	Company      string         `json:"company"`
	Clock        Clock          `json:"clock"`
	CompanyCash  float64        `json:"company_cash"`
	PersonalCash float64        `json:"personal_cash"`
	TotalSales   float64        `json:"total_sales"`
	TotalCosts   float64        `json:"total_costs"`
	NetProfit    float64        `json:"net_profit"`
	TotalDebt    float64        `json:"total_debt"`
	NetWorth     float64        `json:"net_worth"`
	CreditScore  int            `json:"credit_score"`
	Rating       string         `json:"rating"`
	IPO          IPOState       `json:"ipo"`
	HQ           HQStatus       `json:"hq"`
	Departments  []string       `json:"departments"`
	CXOs         []CXO          `json:"cxos"`
	Positions    []PositionView `json:"positions"`
	Shops        []ShopView     `json:"shops"`
	Ventures     []VentureView  `json:"ventures"`
	GameOver     bool           `json:"game_over"`
}

type PositionView struct {
	Owner        Owner   `json:"owner"`
	Ticker       string  `json:"ticker"`
	Name         string  `json:"name"`
	CashShares   int64   `json:"cash_shares"`
	MarginShares int64   `json:"margin_shares"`
	ShortShares  int64   `json:"short_shares,omitempty"`
	AvgPrice     float64 `json:"average_price"`
	CurrentPrice float64 `json:"current_price"`
	Unrealized   float64 `json:"unrealized"`
}

type ShopView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Region         string  `json:"region"`
	Equipment      int     `json:"equipment_level"`
	Staff          int     `json:"staff"`
	MenuItems      int     `json:"menu_items"`
	Attractiveness float64 `json:"attractiveness"`
	Customers      int     `json:"weekly_customers"`
	Sales          float64 `json:"weekly_sales"`
	Profit         float64 `json:"weekly_profit"`
}

type VentureView struct {
	Owner    Owner      `json:"owner"`
	DealID   string     `json:"deal_id"`
	Company  string     `json:"company"`
	Round    string     `json:"round"`
	Status   DealStatus `json:"status"`
	Invested float64    `json:"invested"`
	Equity   float64    `json:"equity_percent"`
	NextIn   int        `json:"weeks_to_next_event"`
}

type StockView struct {
	Ticker   string  `json:"ticker"`
	Name     string  `json:"name"`
	Sector   string  `json:"sector"`
	Price    float64 `json:"price"`
	Cap      float64 `json:"market_cap"`
	Own      bool    `json:"own_listing,omitempty"`
	Dividend float64 `json:"dividend_yield"`
}

type StockDetail struct {
	StockView
	PE       float64         `json:"pe,omitempty"`
	PBR      float64         `json:"pbr,omitempty"`
	Series   []PricePoint    `json:"series"`
	Quarters []QuarterResult `json:"quarters,omitempty"`
}

// PricePoint is a weekly close, counted back from the latest week.
type PricePoint struct {
	WeeksAgo int     `json:"weeks_ago"`
	Price    float64 `json:"price"`
}

// Listings are the markets the player can act on this week.
type Listings struct {
	Deals         []VentureDeal    `json:"deals"`
	Targets       []*TargetCompany `json:"targets"`
	CXOCandidates []CXO            `json:"cxo_candidates"`
	Properties    []*Property      `json:"properties"`
}

func (s *Session) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.Player
	db := Dashboard{
		Company:      p.CompanyName,
		Clock:        s.Clock,
		CompanyCash:  p.Company.Ledger.Cash(),
		PersonalCash: p.Personal.Ledger.Cash(),
		TotalSales:   p.Company.Ledger.TotalSales(),
		TotalCosts:   p.Company.Ledger.TotalCosts(),
		NetProfit:    p.Company.Ledger.NetProfit(),
		TotalDebt:    p.TotalDebt(),
		NetWorth:     p.NetWorth(s.Market),
		CreditScore:  p.Company.CreditScore,
		Rating:       p.Company.Rating(s.Master),
		IPO:          p.IPO,
		HQ:           p.Ops.HQ,
		Departments:  append([]string(nil), p.Ops.Departments...),
		GameOver:     p.Company.Ledger.Cash() < 0,
	}
	for _, role := range sortedKeys(p.CXOs) {
		db.CXOs = append(db.CXOs, p.CXOs[role])
	}
	db.Positions = append(s.positions(OwnerCompany, p.Company.Portfolio), s.positions(OwnerPersonal, p.Personal.Portfolio)...)
	for _, u := range p.Ops.Shops {
		db.Shops = append(db.Shops, ShopView{
			ID:             u.ID,
			Name:           u.Name,
			Region:         u.Region,
			Equipment:      u.EquipmentLevel,
			Staff:          len(u.Staff),
			MenuItems:      len(u.Menu),
			Attractiveness: u.Attractiveness,
			Customers:      u.WeeklyCustomers,
			Sales:          u.Finances.WeeklySales,
			Profit:         u.Finances.WeeklyProfit,
		})
	}
	db.Ventures = append(ventureViews(OwnerCompany, p.Company.Portfolio), ventureViews(OwnerPersonal, p.Personal.Portfolio)...)
	return db
}

func (s *Session) positions(owner Owner, pf *Portfolio) []PositionView {
	var out []PositionView
	for _, t := range sortedKeys(pf.Holdings) {
		h := pf.Holdings[t]
		price := priceOr(s.Market, t, h.AvgBuyPrice)
		out = append(out, PositionView{
			Owner:        owner,
			Ticker:       t,
			Name:         h.CompanyName,
			CashShares:   h.CashShares,
			MarginShares: h.MarginShares,
			AvgPrice:     h.AvgBuyPrice,
			CurrentPrice: price,
			Unrealized:   round2(float64(h.Shares()) * (price - h.AvgBuyPrice)),
		})
	}
	for _, t := range sortedKeys(pf.Shorts) {
		sh := pf.Shorts[t]
		price := priceOr(s.Market, t, sh.SellPrice)
		out = append(out, PositionView{
			Owner:        owner,
			Ticker:       t,
			Name:         sh.CompanyName,
			ShortShares:  sh.Shares,
			AvgPrice:     sh.SellPrice,
			CurrentPrice: price,
			Unrealized:   round2(float64(sh.Shares) * (sh.SellPrice - price)),
		})
	}
	return out
}

func ventureViews(owner Owner, pf *Portfolio) []VentureView {
	var out []VentureView
	for _, id := range sortedKeys(pf.Ventures) {
		h := pf.Ventures[id]
		out = append(out, VentureView{
			Owner:    owner,
			DealID:   id,
			Company:  h.Deal.CompanyName,
			Round:    h.Deal.Round,
			Status:   h.Status,
			Invested: h.Invested(),
			Equity:   h.Equity(),
			NextIn:   h.WeeksToNextEvent,
		})
	}
	return out
}

func stockView(c *ListedCompany) StockView {
	return StockView{
		Ticker:   c.Ticker,
		Name:     c.Name,
		Sector:   c.Sector,
		Price:    c.Price,
		Cap:      c.MarketCap(),
		Own:      c.IsPlayerOwn,
		Dividend: c.DividendYield(),
	}
}

// Stocks lists tradable companies, optionally one sector only.
func (s *Session) Stocks(sector string) []StockView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StockView
	for _, c := range s.Market.Tradable() {
		if sector != "" && c.Sector != sector {
			continue
		}
		out = append(out, stockView(c))
	}
	return out
}

// Stock returns one company with up to the last n weekly prices.
func (s *Session) Stock(ticker string, n int) (StockDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := ValidateTicker(ticker)
	if err != nil {
		return StockDetail{}, err
	}
	c, ok := s.Market.Get(t)
	if !ok {
		return StockDetail{}, ErrNotFound
	}
	out := StockDetail{StockView: stockView(c), Quarters: append([]QuarterResult(nil), c.Quarters...)}
	out.PE, _ = c.PE()
	out.PBR, _ = c.PBR()
	hist := c.History
	if n > 0 && len(hist) > n {
		hist = hist[len(hist)-n:]
	}
	for i, price := range hist {
		out.Series = append(out.Series, PricePoint{WeeksAgo: len(hist) - 1 - i, Price: price})
	}
	return out, nil
}

func (s *Session) Listings() Listings {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := Listings{
		Deals:         append([]VentureDeal(nil), s.Deals.Deals...),
		Targets:       append([]*TargetCompany(nil), s.Targets.Targets...),
		CXOCandidates: append([]CXO(nil), s.CXOCandidates...),
		Properties:    append([]*Property(nil), s.PropertyMarket...),
	}
	sort.SliceStable(l.Properties, func(i, j int) bool { return l.Properties[i].CurrentValue < l.Properties[j].CurrentValue })
	return l
}

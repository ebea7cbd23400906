package game

import "context"

// TickReport summarises one week for the caller. Nothing in it is needed to
// continue the game; the session state is authoritative.
type TickReport struct {
	Clock        Clock           `json:"clock"`
	PhaseChanged bool            `json:"phase_changed"`
	Operations   OperatingTotals `json:"operations"`
	Cashflow     CashflowResult  `json:"cashflow"`

	BondsRedeemed  []string `json:"bonds_redeemed,omitempty"`
	BondsDefaulted []string `json:"bonds_defaulted,omitempty"`

	SalaryReceived     float64            `json:"salary_received"`
	PersonalProperties PropertySettlement `json:"personal_properties"`
	CompanyProperties  PropertySettlement `json:"company_properties"`
	UpkeepPaid         bool               `json:"upkeep_paid"`
	OptionsVested      int                `json:"options_vested,omitempty"`
	OptionsExpired     int                `json:"options_expired,omitempty"`

	Ventures          []VentureEvent     `json:"ventures,omitempty"`
	OwnedDividends    float64            `json:"owned_stock_dividends,omitempty"`
	DDCompleted       []string           `json:"dd_completed,omitempty"`
	SubsidiaryProfit  float64            `json:"subsidiary_profit"`
	Effects           EffectsPass        `json:"effects"`
	IPO               *IPOOutcome        `json:"ipo,omitempty"`
	CompetitorActions []CompetitorAction `json:"competitor_actions,omitempty"`

	Dividends      []DividendEvent `json:"dividends,omitempty"`
	DividendIncome float64         `json:"dividend_income"`
	Announcements  int             `json:"earnings_announcements"`
	CompanyMargin  MarginStatus    `json:"company_margin"`
	PersonalMargin MarginStatus    `json:"personal_margin"`

	QuarterEnd  bool `json:"quarter_end"`
	CreditScore int  `json:"credit_score"`

	CompanyCash  float64 `json:"company_cash"`
	PersonalCash float64 `json:"personal_cash"`
	GameOver     bool    `json:"game_over"`
}

// AdvanceWeek runs one weekly tick. The order of the steps is fixed: each
// one reads figures the previous ones settled. Cash shortfalls inside the
// tick are skipped with a warning; the only error is a context that was
// already done before the tick started.
func (s *Session) AdvanceWeek(ctx context.Context) (TickReport, error) {
	if err := ctx.Err(); err != nil {
		return TickReport{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick(), nil
}

func (s *Session) tick() TickReport {
	var rep TickReport
	d, p := s.Master, s.Player

	// 1. calendar and economic phase
	rep.PhaseChanged = s.Clock.AdvanceWeek(s.RNG)
	if rep.PhaseChanged {
		s.Log.Info("economic phase changed", "phase", s.Clock.Phase, "clock", s.Clock.String())
	}
	week := s.Clock.TotalWeeksElapsed

	// 2-4. shops compete for one customer pool, then close their books
	rules := shopRules(d)
	playerBonus := p.UnitBonuses(d)
	var all []*BusinessUnit
	for _, u := range p.Ops.Shops {
		u.PrepareForCompetition(rules, playerBonus)
		all = append(all, u)
	}
	for _, c := range s.Competitors {
		for _, u := range c.Shops {
			u.PrepareForCompetition(rules, UnitBonuses{})
			all = append(all, u)
		}
	}
	AllocateCustomers(all, s.PoolMode, d.Shop.DefaultCustomerPool)
	for _, u := range p.Ops.Shops {
		u.FinalizeWeek(rules, playerBonus)
	}
	for _, c := range s.Competitors {
		for _, u := range c.Shops {
			u.FinalizeWeek(rules, UnitBonuses{})
		}
	}

	// 5. company settlement
	totals := p.Ops.Totals()
	rep.Operations = totals
	cx := p.cxoBonuses(d)
	rep.Cashflow = p.Company.WeeklyCashflow(s.Log, CashflowInput{
		Sales:             totals.Sales,
		Costs:             totals.TotalCosts * (1 - cx.OverallCostReduction),
		PlayerSalary:      p.Personal.WeeklySalary,
		CXOSalaries:       p.CXOSalaries(),
		HQRent:            p.Ops.HQRent(d),
		InterestReduction: cx.LoanInterestReduction,
	})
	rep.BondsRedeemed, rep.BondsDefaulted = p.Company.ProcessBondMaturities(s.Log, week)

	// 6. personal settlement
	if rep.Cashflow.SalaryPaid && p.Personal.WeeklySalary > 0 {
		p.Personal.Ledger.Deposit(p.Personal.WeeklySalary, "salary")
		p.Personal.SalaryReceived += p.Personal.WeeklySalary
		rep.SalaryReceived = p.Personal.WeeklySalary
	}
	rep.PersonalProperties = settleProperties(s.Log, "personal", p.Personal.Ledger, p.Personal.Properties)
	rep.UpkeepPaid = p.Personal.payUpkeep(s.Log)
	fees := p.Personal.Portfolio.WeeklyFees(s.Market, d.Margin.WeeklyInterestRate, d.Margin.ShortBorrowWeeklyRate)
	payOrWarn(s.Log, "personal", p.Personal.Ledger, fees, "portfolio_fees")
	rep.OptionsVested, rep.OptionsExpired = p.Personal.processOptions(week)
	rep.CompanyProperties = settleProperties(s.Log, "company", p.Company.Ledger, p.CompanyProperties)

	// 7. ventures for both owners
	for _, book := range []struct {
		owner Owner
		acct  *Account
	}{{OwnerCompany, &p.Company.Account}, {OwnerPersonal, &p.Personal.Account}} {
		for _, ev := range AdvanceVentures(s.Log, s.RNG, d.Venture, book.acct.Portfolio, week) {
			ev.Owner = book.owner
			if ev.Cash > 0 {
				book.acct.Ledger.AddRevenue(ev.Cash, "vc_exit")
			}
			rep.Ventures = append(rep.Ventures, ev)
		}
		for _, o := range book.acct.Portfolio.OwnedStocks {
			div := o.WeeklyDividend()
			if book.acct.Ledger.AddRevenue(div, "owned_stock_dividend") {
				rep.OwnedDividends += div
			}
		}
	}
	rep.DDCompleted = s.Deals.CompleteDD(d.Venture, week)
	s.Deals.Refresh(s.RNG, d.Venture, week)
	fees = p.Company.Portfolio.WeeklyFees(s.Market, d.Margin.WeeklyInterestRate, d.Margin.ShortBorrowWeeklyRate)
	payOrWarn(s.Log, "company", p.Company.Ledger, fees, "portfolio_fees")

	// 8. acquired listed companies
	rep.SubsidiaryProfit = s.subsidiaryProfit()
	p.Company.Ledger.AddSubsidiaryProfit(rep.SubsidiaryProfit)

	// 9. timed effects and synergy rebates
	rep.Effects = p.Effects.WeeklyPass(p.Company.Ledger, totals.VariableCosts)

	// 10. listing
	rep.IPO = s.processIPO()

	// 11. competitors
	for _, c := range s.Competitors {
		c.bookShopProfits()
		if act, ok := c.Act(s.Log, s.RNG, d, s.Market, week); ok {
			rep.CompetitorActions = append(rep.CompetitorActions, act)
		}
	}

	// 12. exchange
	rep.Dividends, rep.Announcements = s.Market.Update(s.RNG, s.Clock, d.Market)
	for _, div := range rep.Dividends {
		rep.DividendIncome += p.Company.ReceiveDividend(div.Ticker, div.PerShare)
		rep.DividendIncome += p.Personal.ReceiveDividend(div.Ticker, div.PerShare)
		for _, c := range s.Competitors {
			c.ReceiveDividend(div.Ticker, div.PerShare)
		}
	}
	s.driftProperties()

	rep.CompanyMargin = p.Company.MarginStatus(s.Market, d.Margin)
	rep.PersonalMargin = p.Personal.MarginStatus(s.Market, d.Margin)
	if rep.CompanyMargin.Call || rep.PersonalMargin.Call {
		s.Log.Warn("margin call", "company", rep.CompanyMargin.Call, "personal", rep.PersonalMargin.Call)
	}
	p.resetWeeklyFunding()
	if week-s.CXORefreshWeek >= d.CXO.RefreshWeeks {
		s.CXOCandidates = generateCXOCandidates(s.RNG, d)
		s.CXORefreshWeek = week
	}
	s.Targets.Refresh(s.RNG, d.MA, week)

	if s.Clock.IsQuarterEnd() {
		rep.QuarterEnd = true
		debt := p.TotalDebt()
		p.Company.RecordSnapshot(s.Clock, debt, d.Game.SnapshotHistoryLimit)
		rep.CreditScore = p.Company.RecomputeCreditRating(d, week, debt)
		s.Log.Info("quarter closed", "clock", s.Clock.String(), "cash", p.Company.Ledger.Cash(), "credit_score", rep.CreditScore)
	} else {
		rep.CreditScore = p.Company.CreditScore
	}

	rep.Clock = s.Clock
	rep.CompanyCash = p.Company.Ledger.Cash()
	rep.PersonalCash = p.Personal.Ledger.Cash()
	rep.GameOver = rep.CompanyCash < 0
	if rep.GameOver {
		s.Log.Warn("company cash negative", "cash", rep.CompanyCash, "week", week)
	}
	return rep
}

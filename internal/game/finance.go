package game

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/shopspring/decimal"

	"ramentycoon/internal/master"
)

type FinancialSnapshot struct {
	Week       int     `json:"week"`
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	TotalSales float64 `json:"total_sales"`
	TotalCosts float64 `json:"total_costs"`
	NetProfit  float64 `json:"net_profit"`
	Cash       float64 `json:"cash"`
	TotalDebt  float64 `json:"total_debt"`
}

// CorporateFinance is the company's books: trading account, bank loans,
// bonds, credit score and the snapshot history used for annual estimates.
type CorporateFinance struct {
	Account
	Loans       []*Loan             `json:"loans"`
	Bonds       []*Bond             `json:"bonds"`
	CreditScore int                 `json:"credit_score"`
	Snapshots   []FinancialSnapshot `json:"snapshots"`
}

func newCorporateFinance(cash float64, score int) *CorporateFinance {
	return &CorporateFinance{Account: newAccount(cash), CreditScore: score}
}

func (f *CorporateFinance) Rating(d *master.Data) string {
	return d.CreditTier(f.CreditScore).Rating
}

func (f *CorporateFinance) TotalBankLoans() float64 {
	total := decimal.Zero
	for _, l := range f.Loans {
		total = total.Add(l.RemainingPrincipal)
	}
	return total.InexactFloat64()
}

func (f *CorporateFinance) TotalBondsPayable() float64 {
	total := decimal.Zero
	for _, b := range f.Bonds {
		if !b.Redeemed {
			total = total.Add(b.Principal)
		}
	}
	return total.InexactFloat64()
}

// LoanLimit is the product maximum scaled by the credit tier.
func (f *CorporateFinance) LoanLimit(d *master.Data, p master.LoanProduct) float64 {
	return p.MaxAmount * d.CreditTier(f.CreditScore).MaxLoanMultiplier
}

func (f *CorporateFinance) TakeLoan(d *master.Data, rng *RNG, productID string, amount float64, week int) (*Loan, error) {
	p, ok := d.LoanProduct(productID)
	if !ok {
		return nil, fmt.Errorf("loan product %s: %w", productID, ErrNotFound)
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if limit := f.LoanLimit(d, p); amount > limit {
		return nil, fmt.Errorf("%s allows %.0f: %w", p.Product, limit, ErrCreditLimit)
	}
	rate := max(0, p.WeeklyRate+d.CreditTier(f.CreditScore).RateAdjustment)
	principal := decimal.NewFromFloat(amount)
	loan := &Loan{
		ID:                 shortID("LOAN", rng),
		PrincipalBorrowed:  principal,
		RemainingPrincipal: principal,
		WeeklyRate:         rate,
		TotalWeeks:         p.Weeks,
		IssuedWeek:         week,
		Lender:             p.Lender,
		Product:            p.Product,
	}
	f.Loans = append(f.Loans, loan)
	f.Ledger.Deposit(amount, "loan")
	return loan, nil
}

// RepayLoan pays down min(amount, remaining) and drops the loan at zero.
func (f *CorporateFinance) RepayLoan(id string, amount float64) (float64, error) {
	idx := slices.IndexFunc(f.Loans, func(l *Loan) bool { return l.ID == id })
	if idx < 0 {
		return 0, fmt.Errorf("loan %s: %w", id, ErrNotFound)
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	loan := f.Loans[idx]
	repay := decimal.Min(decimal.NewFromFloat(amount), loan.RemainingPrincipal)
	if _, err := AttemptDebit(f.Ledger, repay.InexactFloat64(), "loan_repayment"); err != nil {
		return 0, err
	}
	loan.RemainingPrincipal = loan.RemainingPrincipal.Sub(repay)
	if !loan.RemainingPrincipal.IsPositive() {
		f.Loans = slices.Delete(f.Loans, idx, idx+1)
	}
	return repay.InexactFloat64(), nil
}

// IssueBond raises principal at base yield plus the credit spread. Ratings
// without a spread entry cannot issue.
func (f *CorporateFinance) IssueBond(d *master.Data, rng *RNG, principal float64, years, week int) (*Bond, error) {
	if principal <= 0 {
		return nil, ErrInvalidAmount
	}
	if !slices.Contains(d.Bonds.MaturityYears, years) {
		return nil, fmt.Errorf("maturity %d years not offered: %w", years, ErrInvalidState)
	}
	rating := f.Rating(d)
	spread, ok := d.BondSpread(rating)
	if !ok {
		return nil, fmt.Errorf("rating %s cannot issue bonds: %w", rating, ErrNotEligible)
	}
	b := &Bond{
		ID:               shortID("BOND", rng),
		Principal:        decimal.NewFromFloat(principal),
		AnnualCouponRate: d.Bonds.BaseYield + spread,
		MaturityWeeks:    years * WeeksPerYear,
		IssuedWeek:       week,
		RedemptionWeek:   week + years*WeeksPerYear,
	}
	f.Bonds = append(f.Bonds, b)
	f.Ledger.Deposit(principal, "bond_issue")
	f.Ledger.RecordExpense(principal*d.Bonds.IssuanceFeeRate, "bond_fee")
	return b, nil
}

// CashflowInput is what the company owes this week besides its own loans
// and bonds.
type CashflowInput struct {
	Sales             float64
	Costs             float64
	PlayerSalary      float64
	CXOSalaries       float64
	HQRent            float64
	InterestReduction float64
}

type CashflowResult struct {
	SalaryPaid   bool    `json:"salary_paid"`
	CXOPaid      bool    `json:"cxo_paid"`
	HQRentPaid   bool    `json:"hq_rent_paid"`
	LoanInterest float64 `json:"loan_interest"`
	InterestPaid bool    `json:"interest_paid"`
	BondCoupons  float64 `json:"bond_coupons"`
	CouponsPaid  bool    `json:"coupons_paid"`
}

// WeeklyCashflow books shop results then makes each fixed payment all or
// nothing, in order.
func (f *CorporateFinance) WeeklyCashflow(log *slog.Logger, in CashflowInput) CashflowResult {
	var res CashflowResult
	f.Ledger.AddRevenue(in.Sales, "operations")
	f.Ledger.RecordExpense(in.Costs, "operations")

	res.SalaryPaid = payOrWarn(log, "company", f.Ledger, in.PlayerSalary, "player_salary")
	res.CXOPaid = payOrWarn(log, "company", f.Ledger, in.CXOSalaries, "cxo_salaries")
	res.HQRentPaid = payOrWarn(log, "company", f.Ledger, in.HQRent, "hq_rent")

	interest := 0.0
	for _, l := range f.Loans {
		interest += l.WeeklyInterest()
	}
	res.LoanInterest = round2(interest * (1 - in.InterestReduction))
	res.InterestPaid = payOrWarn(log, "company", f.Ledger, res.LoanInterest, "loan_interest")

	for _, b := range f.Bonds {
		if !b.Redeemed {
			res.BondCoupons += b.WeeklyCoupon()
		}
	}
	res.BondCoupons = round2(res.BondCoupons)
	res.CouponsPaid = payOrWarn(log, "company", f.Ledger, res.BondCoupons, "bond_interest")
	return res
}

// ProcessBondMaturities redeems due bonds in full or marks them defaulted.
// Defaulted bonds stay outstanding and are retried every week.
func (f *CorporateFinance) ProcessBondMaturities(log *slog.Logger, week int) (redeemed, defaulted []string) {
	for _, b := range f.Bonds {
		if !b.Due(week) {
			continue
		}
		if _, err := AttemptDebit(f.Ledger, b.Principal.InexactFloat64(), "bond_redemption"); err != nil {
			if !b.Defaulted {
				log.Warn("bond default", "bond", b.ID, "principal", b.Principal.InexactFloat64())
			}
			b.Defaulted = true
			defaulted = append(defaulted, b.ID)
			continue
		}
		b.Redeemed = true
		redeemed = append(redeemed, b.ID)
	}
	f.Bonds = slices.DeleteFunc(f.Bonds, func(b *Bond) bool { return b.Redeemed })
	return redeemed, defaulted
}

func (f *CorporateFinance) RecordSnapshot(c Clock, totalDebt float64, limit int) {
	f.Snapshots = append(f.Snapshots, FinancialSnapshot{
		Week:       c.TotalWeeksElapsed,
		Year:       c.Year,
		Month:      c.Month,
		TotalSales: f.Ledger.TotalSales(),
		TotalCosts: f.Ledger.TotalCosts(),
		NetProfit:  f.Ledger.NetProfit(),
		Cash:       f.Ledger.Cash(),
		TotalDebt:  totalDebt,
	})
	if limit > 0 && len(f.Snapshots) > limit {
		f.Snapshots = f.Snapshots[len(f.Snapshots)-limit:]
	}
}

// EstimatedAnnuals uses the trailing year of snapshots when a year-old one
// exists and extrapolates the history so far otherwise.
func (f *CorporateFinance) EstimatedAnnuals(week int) (revenue, profit float64) {
	if len(f.Snapshots) == 0 {
		return 0, 0
	}
	last := f.Snapshots[len(f.Snapshots)-1]
	for i := len(f.Snapshots) - 1; i >= 0; i-- {
		s := f.Snapshots[i]
		if s.Week <= week-WeeksPerYear {
			return max(0, last.TotalSales-s.TotalSales), last.NetProfit - s.NetProfit
		}
	}
	first := f.Snapshots[0]
	weeks := last.Week - first.Week
	if week <= 0 || weeks <= 0 {
		return 0, 0
	}
	revenue = (last.TotalSales - first.TotalSales) / float64(weeks) * WeeksPerYear
	profit = (last.NetProfit - first.NetProfit) / float64(weeks) * WeeksPerYear
	return max(0, revenue), profit
}

// RecomputeCreditRating rescores from 600 on leverage and profitability and
// clamps to [0, 1000].
func (f *CorporateFinance) RecomputeCreditRating(d *master.Data, week int, totalDebt float64) int {
	revenue, profit := f.EstimatedAnnuals(week)
	score := float64(d.Credit.DefaultScore)
	if revenue > 0 {
		score += clamp(profit/revenue*1000, -150, 150)
	}
	cash := f.Ledger.Cash()
	switch {
	case totalDebt <= 0:
		score += 100
	case cash <= 0:
		score -= 200
	default:
		switch r := totalDebt / cash; {
		case r < 0.5:
			score += 50
		case r < 1:
		case r < 2:
			score -= 75
		default:
			score -= 150
		}
	}
	if f.Ledger.NetProfit() < 0 {
		score -= 50
	}
	for _, b := range f.Bonds {
		if b.Defaulted {
			score -= 200
			break
		}
	}
	f.CreditScore = int(clamp(score, 0, 1000))
	return f.CreditScore
}

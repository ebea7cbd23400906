package game

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Loan interest is recomputed from the remaining principal every week; there
// is no amortisation schedule.
type Loan struct {
	ID                 string          `json:"id"`
	PrincipalBorrowed  decimal.Decimal `json:"principal_borrowed"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
	WeeklyRate         float64         `json:"weekly_rate"`
	TotalWeeks         int             `json:"total_weeks"`
	IssuedWeek         int             `json:"issued_week"`
	Lender             string          `json:"lender"`
	Product            string          `json:"product"`
}

func (l *Loan) WeeklyInterest() float64 {
	return l.RemainingPrincipal.Mul(decimal.NewFromFloat(l.WeeklyRate)).InexactFloat64()
}

func (l *Loan) Remaining() float64 { return l.RemainingPrincipal.InexactFloat64() }

type Bond struct {
	ID               string          `json:"id"`
	Principal        decimal.Decimal `json:"principal"`
	AnnualCouponRate float64         `json:"annual_coupon_rate"`
	MaturityWeeks    int             `json:"maturity_weeks"`
	IssuedWeek       int             `json:"issued_week"`
	RedemptionWeek   int             `json:"redemption_week"`
	Redeemed         bool            `json:"redeemed"`
	Defaulted        bool            `json:"defaulted,omitempty"`
}

// WeeklyCoupon is principal × annual rate / 52, kept at cent precision.
func (b *Bond) WeeklyCoupon() float64 {
	c := b.Principal.Mul(decimal.NewFromFloat(b.AnnualCouponRate)).Div(decimal.NewFromInt(WeeksPerYear))
	return c.Round(2).InexactFloat64()
}

func (b *Bond) Due(week int) bool {
	return !b.Redeemed && week >= b.RedemptionWeek
}

func shortID(prefix string, rng *RNG) string {
	id := strings.ReplaceAll(rng.NewID(), "-", "")
	return prefix + "-" + id[:8]
}

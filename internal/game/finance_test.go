package game

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramentycoon/internal/master"
)

func TestLoanInterestByTier(t *testing.T) {
	d := master.Default()
	f := newCorporateFinance(0, 700)

	loan, err := f.TakeLoan(d, NewRNG(1), "mirai-expansion-s", 10_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.001, loan.WeeklyRate)
	assert.Equal(t, 10_000_000.0, f.Ledger.Cash())

	res := f.WeeklyCashflow(discardLogger(), CashflowInput{})
	assert.Equal(t, 10_000.0, res.LoanInterest)
	assert.True(t, res.InterestPaid)
	assert.Equal(t, 9_990_000.0, f.Ledger.Cash())

	// a CFO's reduction applies to the whole interest bill
	res = f.WeeklyCashflow(discardLogger(), CashflowInput{InterestReduction: 0.1})
	assert.Equal(t, 9_000.0, res.LoanInterest)
}

func TestLoanLimitScalesWithTier(t *testing.T) {
	d := master.Default()
	rng := NewRNG(1)

	a := newCorporateFinance(0, 700)
	_, err := a.TakeLoan(d, rng, "mirai-expansion-s", 55_000_000, 0)
	require.NoError(t, err)

	bbb := newCorporateFinance(0, 600)
	_, err = bbb.TakeLoan(d, rng, "mirai-expansion-s", 55_000_000, 0)
	assert.ErrorIs(t, err, ErrCreditLimit)
	loan, err := bbb.TakeLoan(d, rng, "mirai-expansion-s", 1_000_000, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0011, loan.WeeklyRate, 1e-12)

	_, err = bbb.TakeLoan(d, rng, "no-such-bank", 1, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = bbb.TakeLoan(d, rng, "mirai-expansion-s", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRepayLoan(t *testing.T) {
	d := master.Default()
	f := newCorporateFinance(0, 600)
	loan, err := f.TakeLoan(d, NewRNG(1), "mirai-expansion-s", 5_000_000, 0)
	require.NoError(t, err)

	paid, err := f.RepayLoan(loan.ID, 2_000_000)
	require.NoError(t, err)
	assert.Equal(t, 2_000_000.0, paid)
	assert.Equal(t, 3_000_000.0, loan.Remaining())

	paid, err = f.RepayLoan(loan.ID, 9_000_000)
	require.NoError(t, err)
	assert.Equal(t, 3_000_000.0, paid, "repayment is capped at the remaining principal")
	assert.Empty(t, f.Loans)
	assert.Zero(t, f.Ledger.Cash())

	_, err = f.RepayLoan(loan.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBondLifecycle(t *testing.T) {
	d := master.Default()
	f := newCorporateFinance(0, 600)

	b, err := f.IssueBond(d, NewRNG(1), 100_000_000, 5, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.04, b.AnnualCouponRate, 1e-12)
	assert.Equal(t, 260, b.RedemptionWeek)
	assert.Equal(t, 76_923.08, b.WeeklyCoupon())
	assert.Equal(t, 99_000_000.0, f.Ledger.Cash(), "1% issuance fee")

	redeemed, defaulted := f.ProcessBondMaturities(discardLogger(), 259)
	assert.Empty(t, redeemed)
	assert.Empty(t, defaulted)

	redeemed, defaulted = f.ProcessBondMaturities(discardLogger(), 260)
	assert.Empty(t, redeemed)
	assert.Equal(t, []string{b.ID}, defaulted)
	assert.True(t, b.Defaulted)
	assert.Equal(t, 99_000_000.0, f.Ledger.Cash(), "a default pays nothing")

	f.Ledger.Deposit(1_000_000, "capital_injection")
	redeemed, _ = f.ProcessBondMaturities(discardLogger(), 261)
	assert.Equal(t, []string{b.ID}, redeemed)
	assert.Empty(t, f.Bonds)
	assert.Zero(t, f.Ledger.Cash())
}

func TestBondRejections(t *testing.T) {
	d := master.Default()
	rng := NewRNG(1)

	f := newCorporateFinance(0, 600)
	_, err := f.IssueBond(d, rng, 1_000_000, 7, 0)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.IssueBond(d, rng, -1, 5, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	junk := newCorporateFinance(0, 150)
	_, err = junk.IssueBond(d, rng, 1_000_000, 5, 0)
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestWeeklyCouponRounding(t *testing.T) {
	b := &Bond{Principal: decimal.NewFromInt(100_000_000), AnnualCouponRate: 0.04}
	if got := b.WeeklyCoupon(); got != 76_923.08 {
		t.Fatalf("coupon = %v, want 76923.08", got)
	}
}

func TestCashflowSkipsUnaffordablePayments(t *testing.T) {
	f := newCorporateFinance(100_000, 600)
	res := f.WeeklyCashflow(discardLogger(), CashflowInput{
		Sales:        50_000,
		Costs:        20_000,
		PlayerSalary: 200_000,
		HQRent:       100_000,
	})
	assert.False(t, res.SalaryPaid)
	assert.True(t, res.HQRentPaid)
	assert.Equal(t, 30_000.0, f.Ledger.Cash())
}

func TestCreditRating(t *testing.T) {
	d := master.Default()

	clean := newCorporateFinance(1_000_000, 600)
	assert.Equal(t, 700, clean.RecomputeCreditRating(d, 12, 0))
	assert.Equal(t, "A", clean.Rating(d))

	levered := newCorporateFinance(1_000_000, 600)
	assert.Equal(t, 525, levered.RecomputeCreditRating(d, 12, 1_500_000))

	broke := newCorporateFinance(-1, 600)
	broke.Bonds = []*Bond{{Defaulted: true, Principal: decimal.NewFromInt(1)}}
	assert.Equal(t, 200, broke.RecomputeCreditRating(d, 12, 1))
}

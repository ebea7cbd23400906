package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTarget(s *Session, id, industry string, employees int) *TargetCompany {
	t := &TargetCompany{
		ID:             id,
		Name:           id + " Co",
		Industry:       industry,
		Size:           "small",
		AnnualRevenue:  100_000_000,
		ProfitMargin:   0.1,
		Employees:      employees,
		AskingPriceMin: 20_000_000,
		AskingPriceMax: 40_000_000,
	}
	s.Targets.Targets = append(s.Targets.Targets, t)
	return t
}

func TestMakeOfferOutcomes(t *testing.T) {
	s := testSession(t, 21)
	addTarget(s, "MA-T1", "Local Restaurant", 5)
	cash := s.Player.Company.Ledger.Cash()

	_, err := s.MakeOffer("MA-T1", 1e12)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = s.MakeOffer("MA-T1", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.MakeOffer("MA-NOPE", 30_000_000)
	assert.ErrorIs(t, err, ErrNotFound)

	s.Master.MA.BaseSuccess, s.Master.MA.SuccessSpan = 0, 0
	_, err = s.MakeOffer("MA-T1", 30_000_000)
	assert.ErrorIs(t, err, ErrOfferRejected)
	assert.Equal(t, cash, s.Player.Company.Ledger.Cash(), "a rejected offer costs nothing")
	_, err = s.Targets.Target("MA-T1")
	assert.NoError(t, err, "a rejected target stays on the market")
	assert.Empty(t, s.Player.Acquisitions)
}

func TestSuccessChance(t *testing.T) {
	s := testSession(t, 21)
	ma := s.Master.MA
	tc := &TargetCompany{AskingPriceMin: 10_000_000, AskingPriceMax: 20_000_000}
	assert.InDelta(t, 0.2, tc.SuccessChance(ma, 10_000_000), 1e-9)
	assert.InDelta(t, 0.55, tc.SuccessChance(ma, 15_000_000), 1e-9)
	assert.InDelta(t, 0.9, tc.SuccessChance(ma, 20_000_000), 1e-9)
	assert.Equal(t, 1.0, tc.SuccessChance(ma, 90_000_000))
	assert.Zero(t, tc.SuccessChance(ma, 1))
}

func TestIntegrateAcquisitions(t *testing.T) {
	cases := []struct {
		name      string
		industry  string
		employees int
		check     func(t *testing.T, s *Session, in Integration, cashDelta float64)
	}{
		{"ramen chain", "Local Ramen Chain", 24, func(t *testing.T, s *Session, in Integration, cashDelta float64) {
			assert.Len(t, in.Shops, 3)
			assert.Len(t, s.Player.Ops.Shops, 3)
			for _, u := range in.Shops {
				assert.NotEmpty(t, u.Menu)
				assert.Positive(t, u.Finances.WeeklyFixedCosts)
			}
			assert.InDelta(t, -30_000_000.0, cashDelta, 0.01)
		}},
		{"large ramen chain", "Local Ramen Chain", 200, func(t *testing.T, s *Session, in Integration, _ float64) {
			assert.Len(t, in.Shops, s.Master.MA.RamenChainMaxShops)
		}},
		{"tiny ramen chain", "Local Ramen Chain", 2, func(t *testing.T, _ *Session, in Integration, _ float64) {
			assert.Len(t, in.Shops, 1)
		}},
		{"wholesale", "Food Wholesale", 10, func(t *testing.T, s *Session, in Integration, _ float64) {
			eff, ok := s.Player.Effects.Synergies[in.SynergyID]
			require.True(t, ok)
			assert.Equal(t, EffectMaterialCostReduction, eff.Kind)
			assert.InDelta(t, 0.05, eff.Value, 1e-9)
			assert.Equal(t, 156, eff.RemainingWeeks)
		}},
		{"delivery", "Local Delivery", 10, func(t *testing.T, s *Session, in Integration, _ float64) {
			eff, ok := s.Player.Effects.Synergies[in.SynergyID]
			require.True(t, ok)
			assert.Equal(t, EffectFixedCostReductionTotal, eff.Kind)
			assert.Equal(t, 50_000.0, eff.Amount.InexactFloat64())
			assert.Equal(t, 104, eff.RemainingWeeks)
		}},
		{"one-time gain", "Design Office", 10, func(t *testing.T, s *Session, in Integration, cashDelta float64) {
			assert.InDelta(t, 10_000_000.0, in.OneTimeGain, 0.01)
			assert.InDelta(t, -20_000_000.0, cashDelta, 0.01)
			assert.InDelta(t, 10_000_000.0, s.Player.Company.Ledger.Category("cumulative_acquisition_gain_revenue"), 0.01)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testSession(t, 21)
			s.Master.MA.BaseSuccess = 1
			s.Master.MA.OneTimeGain.Min, s.Master.MA.OneTimeGain.Max = 1, 1
			addTarget(s, "MA-T1", tc.industry, tc.employees)
			cash := s.Player.Company.Ledger.Cash()

			in, err := s.MakeOffer("MA-T1", 30_000_000)
			require.NoError(t, err)
			tc.check(t, s, in, s.Player.Company.Ledger.Cash()-cash)

			_, err = s.Targets.Target("MA-T1")
			assert.ErrorIs(t, err, ErrNotFound)
			require.Len(t, s.Player.Acquisitions, 1)
			assert.Equal(t, "private", s.Player.Acquisitions[0].Kind)
		})
	}
}

func TestAcquireListedFreezesSubsidiary(t *testing.T) {
	s := testSession(t, 21)
	s.Player.Company.Ledger.Deposit(1e16, "capital_injection")
	s.Master.MA.ListedPremium.Min, s.Master.MA.ListedPremium.Max = 0.2, 0.2
	c := s.Market.Tradable()[0]
	want := c.MarketCap() * 1.2

	_, err := s.AcquireListed("9999999")
	assert.ErrorIs(t, err, ErrNotFound)

	cost, err := s.AcquireListed(c.Ticker)
	require.NoError(t, err)
	assert.InDelta(t, want, cost, 1)
	assert.True(t, c.Frozen())
	assert.Contains(t, s.Player.Subsidiaries, c.Ticker)
	assert.NotContains(t, s.Market.Tradable(), c)

	_, err = s.AcquireListed(c.Ticker)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.quote(c.Ticker)
	assert.ErrorIs(t, err, ErrInvalidState)

	price, history := c.Price, len(c.History)
	profit := round2(c.WeeklyProfitAsSubsidiary(s.Master.Market))
	require.Positive(t, profit)
	sales := s.Player.Company.Ledger.TotalSales()

	rep := advance(t, s, 1)[0]
	assert.Equal(t, price, c.Price)
	assert.Len(t, c.History, history)
	assert.InDelta(t, profit, rep.SubsidiaryProfit, 0.01)
	assert.InDelta(t, profit, s.Player.Company.Ledger.TotalSales()-sales, 0.01)
}

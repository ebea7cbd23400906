package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listableSession is a company three years in with a year of strong results
// and both departments the listing rules ask for.
func listableSession(t *testing.T) *Session {
	t.Helper()
	s := testSession(t, 11)
	p := s.Player
	s.Clock.TotalWeeksElapsed = 200
	p.Company.Ledger.AddRevenue(300_000_000, "operations")
	p.Company.Snapshots = []FinancialSnapshot{
		{Week: 0},
		{Week: 200, TotalSales: 1_000_000_000, NetProfit: 300_000_000},
	}
	p.Ops.Departments = []string{"investment", "hr"}
	return s
}

func TestIPOEligibility(t *testing.T) {
	cases := []struct {
		name  string
		setup func(s *Session)
		ok    bool
	}{
		{"eligible", func(*Session) {}, true},
		{"too young", func(s *Session) { s.Clock.TotalWeeksElapsed = 100 }, false},
		{"revenue too small", func(s *Session) {
			s.Player.Company.Snapshots[1].TotalSales = 100_000_000
		}, false},
		{"missing hr", func(s *Session) { s.Player.Ops.Departments = []string{"investment"} }, false},
		{"already preparing", func(s *Session) { s.Player.IPO.Status = IPOInPreparation }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := listableSession(t)
			tc.setup(s)
			err := s.Player.IPOEligibility(s.Master, s.week())
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
		})
	}

	s := testSession(t, 11)
	assert.ErrorIs(t, s.Player.IPOEligibility(s.Master, 0), ErrNotEligible)
}

func TestStartIPOChargesFee(t *testing.T) {
	s := listableSession(t)
	before := s.Player.Company.Ledger.Cash()

	assert.ErrorIs(t, s.StartIPO(1_000, 0.5), ErrInvalidAmount)
	assert.Equal(t, before, s.Player.Company.Ledger.Cash())

	require.NoError(t, s.StartIPO(1_000, 0.2))
	st := s.Player.IPO
	assert.Equal(t, IPOInPreparation, st.Status)
	assert.Equal(t, s.Master.IPO.ProcessWeeks, st.WeeksRemaining)
	assert.Equal(t, 1, st.Attempts)
	assert.InDelta(t, before-s.Master.IPO.UnderwriterFee, s.Player.Company.Ledger.Cash(), 0.001)

	assert.ErrorIs(t, s.StartIPO(1_000, 0.2), ErrInvalidState)
}

func TestStartIPOWithoutFeeLeavesCompanyPrivate(t *testing.T) {
	s := listableSession(t)
	s.Master.IPO.UnderwriterFee = 1e12
	before := s.Player.Company.Ledger.Cash()

	assert.ErrorIs(t, s.StartIPO(1_000, 0.2), ErrInsufficientFunds)
	assert.Equal(t, IPOPrivate, s.Player.IPO.Status)
	assert.Equal(t, before, s.Player.Company.Ledger.Cash())
}

func TestIPOLowDemandReturnsToPrivate(t *testing.T) {
	s := testSession(t, 11)
	s.Player.IPO = IPOState{Status: IPOInPreparation, WeeksRemaining: 1, TargetPrice: 1_000, OfferPercent: 0.2, Demand: 5}
	before := s.Player.Company.Ledger.Cash()
	companies := len(s.Market.Companies)

	out := s.processIPO()
	require.NotNil(t, out)
	assert.False(t, out.Listed)
	assert.Equal(t, IPOPrivate, s.Player.IPO.Status)
	assert.Equal(t, before, s.Player.Company.Ledger.Cash(), "the underwriter fee is not refunded")
	assert.Len(t, s.Market.Companies, companies)
}

func TestIPOListing(t *testing.T) {
	s := testSession(t, 11)
	s.Player.IPO = IPOState{Status: IPOInPreparation, WeeksRemaining: 1, TargetPrice: 1_000, OfferPercent: 0.2, Demand: 90}
	before := s.Player.Company.Ledger.Cash()

	out := s.processIPO()
	require.NotNil(t, out)
	require.True(t, out.Listed)
	assert.Equal(t, "very_high", out.DemandLevel)
	assert.Equal(t, 1_150.0, out.Price)
	assert.Equal(t, int64(2_500_000), out.SharesOffered)
	assert.InDelta(t, 2_875_000_000.0, out.Proceeds, 0.01)
	assert.InDelta(t, 115_000_000.0, out.Fee, 0.01)
	assert.InDelta(t, before+out.Proceeds-out.Fee, s.Player.Company.Ledger.Cash(), 0.01)

	st := s.Player.IPO
	assert.Equal(t, IPOPublic, st.Status)
	assert.Equal(t, out.Ticker, st.Ticker)
	c, ok := s.Market.Get(out.Ticker)
	require.True(t, ok)
	assert.True(t, c.IsPlayerOwn)
	assert.False(t, c.Frozen())
	assert.Nil(t, s.processIPO(), "a public company has nothing to process")
}

func TestIPORoadshowWeeks(t *testing.T) {
	cases := []struct {
		roadshow int
		want     float64
	}{
		{roadshow: 4, want: 54},
		{roadshow: 1, want: 54},
		{roadshow: 0, want: 50},
	}
	for _, tc := range cases {
		s := testSession(t, 11)
		c := &s.Master.IPO
		c.RoadshowWeeks = tc.roadshow
		c.PhaseBonus.Normal = 4
		c.ProfitTrendBonusMax, c.RevenueTrendBonusMax, c.RandomEventMax = 0, 0, 0
		s.Clock.Phase = PhaseNormal
		s.Player.IPO = IPOState{
			Status:         IPOInPreparation,
			WeeksRemaining: 12,
			RoadshowWeeks:  tc.roadshow,
			TargetPrice:    1_000,
			OfferPercent:   0.2,
			Demand:         50,
		}

		var out *IPOOutcome
		for range 12 {
			out = s.processIPO()
		}
		require.NotNil(t, out, "roadshow %d", tc.roadshow)
		assert.InDelta(t, tc.want, out.Demand, 1e-9, "roadshow %d", tc.roadshow)
	}
}

func TestInRoadshow(t *testing.T) {
	st := IPOState{Status: IPOInPreparation, RoadshowWeeks: 4}
	for remaining, want := range map[int]bool{11: false, 4: false, 3: true, 0: true} {
		st.WeeksRemaining = remaining
		assert.Equal(t, want, st.InRoadshow(), "remaining %d", remaining)
	}
	assert.False(t, IPOState{Status: IPOPrivate, RoadshowWeeks: 4}.InRoadshow())
}

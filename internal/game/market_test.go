package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramentycoon/internal/master"
)

func testListing(ticker string) *ListedCompany {
	return &ListedCompany{
		Ticker:            ticker,
		Name:              "Kyokuyo Foods",
		Sector:            "Consumer Staples",
		Price:             1_000,
		SharesOutstanding: 1_000_000,
		NetAssets:         1_000_000_000,
		EPSTTM:            10,
		NextEarningsWeek:  5,
		History:           []float64{1_000},
	}
}

func weekClock(week int) Clock {
	c := NewClock(2025, 6, 2)
	c.TotalWeeksElapsed = week
	return c
}

func TestMarketDividendBeforeEarnings(t *testing.T) {
	s := master.Default().Market
	s.DividendPayout = master.Range{Min: 0.4, Max: 0.4}
	c := testListing("1301")
	m := &Market{Companies: []*ListedCompany{c}}
	rng := NewRNG(3)

	divs, announced := m.Update(rng, weekClock(3), s)
	assert.Empty(t, divs)
	assert.Zero(t, announced)

	divs, announced = m.Update(rng, weekClock(4), s)
	require.Len(t, divs, 1)
	assert.Equal(t, DividendEvent{Ticker: "1301", PerShare: 1}, divs[0])
	assert.Zero(t, announced)
	assert.Equal(t, 1.0, c.LastQuarterlyDividend)

	divs, announced = m.Update(rng, weekClock(5), s)
	assert.Empty(t, divs)
	assert.Equal(t, 1, announced)
	assert.Equal(t, 5+s.EarningsIntervalWeeks, c.NextEarningsWeek)
	assert.Len(t, c.History, 4)
}

func TestMarketKeepsFourQuarters(t *testing.T) {
	s := master.Default().Market
	c := testListing("1301")
	m := &Market{Companies: []*ListedCompany{c}}
	rng := NewRNG(3)

	for i := range 6 {
		_, announced := m.Update(rng, weekClock(5+i*s.EarningsIntervalWeeks), s)
		assert.Equal(t, 1, announced)
	}
	require.Len(t, c.Quarters, 4)
	total := 0.0
	for _, q := range c.Quarters {
		assert.Positive(t, q.Profit)
		total += q.Profit
	}
	assert.InDelta(t, total/float64(c.SharesOutstanding), c.EPSTTM, 1e-9)
	assert.Equal(t, 5+6*s.EarningsIntervalWeeks, c.NextEarningsWeek)
}

func TestMarketPriceHistoryAndFreeze(t *testing.T) {
	s := master.Default().Market
	s.PriceHistoryWeeks = 3
	live, frozen := testListing("1301"), testListing("1332")
	frozen.IsSubsidiary = true
	own := testListing("1333")
	own.IsSubsidiary, own.IsPlayerOwn = true, true
	m := &Market{Companies: []*ListedCompany{live, frozen, own}}
	rng := NewRNG(8)

	for w := 20; w < 30; w++ {
		m.Update(rng, weekClock(w), s)
	}
	assert.Len(t, live.History, 3)
	assert.Equal(t, live.Price, live.History[2])
	assert.GreaterOrEqual(t, live.Price, 1.0)
	assert.Len(t, own.History, 3, "the player's own listing keeps trading")

	assert.Equal(t, 1_000.0, frozen.Price)
	assert.Len(t, frozen.History, 1)
	assert.Empty(t, frozen.Quarters)
}

func TestWeeklyProfitAsSubsidiary(t *testing.T) {
	s := master.Default().Market
	c := testListing("1301")
	pe, ok := c.PE()
	require.True(t, ok)
	assert.InDelta(t, c.MarketCap()/pe/WeeksPerYear, c.WeeklyProfitAsSubsidiary(s), 1e-6)

	c.EPSTTM = -3
	assert.InDelta(t, c.MarketCap()*s.SubsidiaryProfitRate, c.WeeklyProfitAsSubsidiary(s), 1e-6)
}

package game

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramentycoon/internal/master"
)

func advance(t *testing.T, s *Session, weeks int) []TickReport {
	t.Helper()
	out := make([]TickReport, 0, weeks)
	for range weeks {
		rep, err := s.AdvanceWeek(context.Background())
		require.NoError(t, err)
		out = append(out, rep)
	}
	return out
}

func TestSessionIsDeterministic(t *testing.T) {
	a := testSession(t, 42)
	b := testSession(t, 42)
	assert.Equal(t, a.Listings(), b.Listings())
	assert.Equal(t, advance(t, a, 30), advance(t, b, 30))

	c := testSession(t, 43)
	assert.NotEqual(t, a.Stocks(""), c.Stocks(""))
}

func TestExportRestoreContinues(t *testing.T) {
	s := testSession(t, 7)
	_, err := s.OpenShop("Nagoya", "Sakae", 10_000_000)
	require.NoError(t, err)
	advance(t, s, 10)

	st, err := s.Export()
	require.NoError(t, err)
	restored, err := Restore(st, Options{Logger: discardLogger(), Master: master.Default()})
	require.NoError(t, err)
	assert.Equal(t, s.Dashboard(), restored.Dashboard())

	assert.Equal(t, advance(t, s, 20), advance(t, restored, 20))
}

func TestExportIsACopy(t *testing.T) {
	s := testSession(t, 7)
	st, err := s.Export()
	require.NoError(t, err)

	st.Player.Company.Ledger.Deposit(1_000, "capital_injection")
	st.Market.Companies[0].Price = -1
	assert.Equal(t, 100_000_000.0, s.Dashboard().CompanyCash)
	for _, v := range s.Stocks("") {
		assert.Positive(t, v.Price)
	}
}

func TestRestoreRejectsBadState(t *testing.T) {
	s := testSession(t, 7)
	st, err := s.Export()
	require.NoError(t, err)

	bad := st
	bad.Version = 99
	_, err = Restore(bad, Options{Logger: discardLogger()})
	assert.ErrorIs(t, err, ErrInvalidState)

	bad = st
	bad.Player = nil
	_, err = Restore(bad, Options{Logger: discardLogger()})
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = Restore(st, Options{Logger: discardLogger(), PoolMode: "galactic"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAdvanceWeekHonoursContext(t *testing.T) {
	s := testSession(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.AdvanceWeek(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if s.Clock.TotalWeeksElapsed != 0 {
		t.Fatalf("a cancelled tick must not advance the clock")
	}
}

func TestQuarterEndSnapshot(t *testing.T) {
	s := testSession(t, 1)
	reps := advance(t, s, 2)
	assert.False(t, reps[0].QuarterEnd)
	assert.True(t, reps[1].QuarterEnd, "2025-06 W4 closes Q2")
	assert.Len(t, s.Player.Company.Snapshots, 2)
	assert.Equal(t, s.Player.Company.CreditScore, reps[1].CreditScore)
}

func TestShopEarnsCustomersInTick(t *testing.T) {
	s := testSession(t, 3)
	_, err := s.OpenShop("Nagoya", "Sakae", 10_000_000)
	require.NoError(t, err)

	rep := advance(t, s, 1)[0]
	assert.Positive(t, rep.Operations.Customers)
	assert.Positive(t, rep.Operations.Sales)

	db := s.Dashboard()
	require.Len(t, db.Shops, 1)
	assert.Equal(t, rep.Operations.Customers, db.Shops[0].Customers)
}

func TestGameOverOnNegativeCash(t *testing.T) {
	s := testSession(t, 1)
	s.Player.Company.Ledger.RecordExpense(150_000_000, "test_drain")

	rep := advance(t, s, 1)[0]
	assert.True(t, rep.GameOver)
	assert.True(t, s.GameOver())
}

func TestApplyDispatch(t *testing.T) {
	s := testSession(t, 5)

	_, err := s.Apply(Action{Kind: "launch_rocket"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	res, err := s.Apply(Action{
		Kind: "OPEN_SHOP",
		Args: json.RawMessage(`{"region":"Nagoya","name":"Sakae","amount":10000000}`),
	})
	require.NoError(t, err)
	u, ok := res.(*BusinessUnit)
	require.True(t, ok, "open_shop returns the new shop")
	assert.Equal(t, "Sakae", u.Name)

	_, err = s.Apply(Action{Kind: "open_shop", Args: json.RawMessage(`{"region":"Atlantis","name":"X"}`)})
	var ae *ActionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "open_shop", ae.Action)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Apply(Action{Kind: "set_salary", Args: json.RawMessage(`{"amount":"lots"}`)})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.Apply(Action{Kind: "buy_stock", Args: json.RawMessage(`{"owner":"uncle","ticker":"X","shares":1}`)})
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Contains(t, ActionKinds(), "take_loan")
	assert.Contains(t, ActionKinds(), "start_ipo")
}

func TestApplyTradesThroughMarket(t *testing.T) {
	s := testSession(t, 5)
	stocks := s.Stocks("")
	require.NotEmpty(t, stocks)
	ticker := stocks[0].Ticker

	_, err := s.Apply(Action{Kind: "buy_stock", Args: json.RawMessage(`{"owner":"personal","ticker":"` + ticker + `","shares":100}`)})
	require.NoError(t, err)
	db := s.Dashboard()
	require.Len(t, db.Positions, 1)
	assert.Equal(t, OwnerPersonal, db.Positions[0].Owner)
	assert.Equal(t, int64(100), db.Positions[0].CashShares)

	_, err = s.Apply(Action{Kind: "sell_stock", Args: json.RawMessage(`{"owner":"personal","ticker":"` + ticker + `","shares":101}`)})
	assert.ErrorIs(t, err, ErrInsufficientShares)
}

func TestNewSessionOptions(t *testing.T) {
	_, err := NewSession(Options{PoolMode: "galactic", Logger: discardLogger()})
	assert.ErrorIs(t, err, ErrInvalidState)

	s, err := NewSession(Options{Seed: 2, Logger: discardLogger(), PoolMode: PoolRegional})
	require.NoError(t, err)
	assert.Equal(t, PoolRegional, s.PoolMode)
	assert.Equal(t, "Mirai Ramen Holdings", s.Dashboard().Company)
	assert.Equal(t, 2025, s.Clock.Year)
}

func TestVentureEventsCarryOwner(t *testing.T) {
	s := testSession(t, 42)
	s.Master.Venture = forcedVentures("EARLY_ACQUISITION", master.VentureExit{Name: "M_AND_A_LOW", Weight: 1, Multiplier: master.Range{Min: 2, Max: 2}})
	p := s.Player
	p.Personal.Ledger.Deposit(10_000_000, "capital_injection")

	owners := map[string]Owner{}
	for _, book := range []struct {
		owner Owner
		acct  *Account
	}{{OwnerCompany, &p.Company.Account}, {OwnerPersonal, &p.Personal.Account}} {
		deal := seedDeal()
		deal.ID = "VCDEAL-" + string(book.owner)
		h, err := Invest(book.acct, s.RNG, s.Master.Venture, deal, s.week())
		require.NoError(t, err)
		h.WeeksToNextEvent = 0
		owners[deal.ID] = book.owner
	}

	rep := advance(t, s, 1)[0]
	require.Len(t, rep.Ventures, 2)
	for _, ev := range rep.Ventures {
		if ev.Owner != owners[ev.DealID] {
			t.Fatalf("deal %s reported for %q, want %q", ev.DealID, ev.Owner, owners[ev.DealID])
		}
		assert.Equal(t, 10_000_000.0, ev.Cash)
	}
}

package game

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCashIdentity(t *testing.T) {
	l := NewLedger(1_000_000)
	l.Deposit(250_000, "loan")
	l.AddRevenue(120_000.5, "operations")
	l.RecordExpense(80_000.25, "operations")
	l.AddSubsidiaryProfit(-10_000)
	l.AddSubsidiaryProfit(4_000)

	want := 1_000_000 + 250_000 + 120_000.5 - 80_000.25 - 10_000 + 4_000
	if got := l.Cash(); got != want {
		t.Fatalf("cash = %v, want %v", got, want)
	}
	assert.Equal(t, 124_000.5, l.TotalSales())
	assert.Equal(t, 90_000.25, l.TotalCosts())
	assert.Equal(t, 34_000.25, l.NetProfit())
	assert.Equal(t, 250_000.0, l.Category("cumulative_loan_deposit"))
	assert.Equal(t, 80_000.25, l.Category("cumulative_operations_cost"))
}

func TestLedgerRejectsNonPositive(t *testing.T) {
	l := NewLedger(100)
	for _, amt := range []float64{0, -5} {
		if l.Deposit(amt, "x") || l.RecordExpense(amt, "x") || l.AddRevenue(amt, "x") {
			t.Fatalf("amount %v should be ignored", amt)
		}
	}
	if l.AddSubsidiaryProfit(0) {
		t.Fatalf("zero subsidiary profit should be ignored")
	}
	assert.Equal(t, 100.0, l.Cash())
}

func TestRecordExpenseMayOverdraw(t *testing.T) {
	l := NewLedger(100)
	require.True(t, l.RecordExpense(150, "rent"))
	assert.Equal(t, -50.0, l.Cash())
}

func TestAttemptDebit(t *testing.T) {
	l := NewLedger(1_000)

	d, err := AttemptDebit(l, 400, "hq_rent")
	require.NoError(t, err)
	assert.Equal(t, 400.0, d.Paid)
	assert.Equal(t, 600.0, l.Cash())

	_, err = AttemptDebit(l, 601, "hq_rent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	var sf *Shortfall
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, "hq_rent", sf.Category)
	assert.Equal(t, 601.0, sf.Needed)
	assert.Equal(t, 600.0, sf.Available)
	assert.Equal(t, 600.0, l.Cash(), "shortfall must leave the ledger untouched")

	d, err = AttemptDebit(l, 0, "noop")
	require.NoError(t, err)
	assert.Zero(t, d.Paid)
}

func TestPayOrWarnAllOrNothing(t *testing.T) {
	l := NewLedger(500)
	if payOrWarn(discardLogger(), "company", l, 501, "player_salary") {
		t.Fatalf("payment above cash should be skipped")
	}
	if l.Cash() != 500 {
		t.Fatalf("no partial payment expected, cash = %v", l.Cash())
	}
	if !payOrWarn(discardLogger(), "company", l, 500, "player_salary") {
		t.Fatalf("exact payment should go through")
	}
	assert.Zero(t, l.Cash())
}

func TestLedgerEncodings(t *testing.T) {
	l := NewLedger(10_000)
	l.AddRevenue(2_500, "operations")
	l.RecordExpense(1_000, "operations")

	raw, err := json.Marshal(l)
	require.NoError(t, err)
	var fromJSON Ledger
	require.NoError(t, json.Unmarshal(raw, &fromJSON))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(l))
	var fromGob Ledger
	require.NoError(t, gob.NewDecoder(&buf).Decode(&fromGob))

	for _, got := range []*Ledger{&fromJSON, &fromGob} {
		assert.Equal(t, l.Cash(), got.Cash())
		assert.Equal(t, l.NetProfit(), got.NetProfit())
		assert.Equal(t, l.Categories(), got.Categories())
	}
}

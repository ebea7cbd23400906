package game

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
)

// Ledger is one owner's books. Balances are only reachable through the
// mutators below so every movement lands in a cumulative category counter.
type Ledger struct {
	cash       decimal.Decimal
	totalSales decimal.Decimal
	totalCosts decimal.Decimal
	categories map[string]decimal.Decimal
}

func NewLedger(initialCash float64) *Ledger {
	return &Ledger{
		cash:       decimal.NewFromFloat(initialCash),
		categories: map[string]decimal.Decimal{},
	}
}

func (l *Ledger) Cash() float64       { return l.cash.InexactFloat64() }
func (l *Ledger) TotalSales() float64 { return l.totalSales.InexactFloat64() }
func (l *Ledger) TotalCosts() float64 { return l.totalCosts.InexactFloat64() }

func (l *Ledger) CashDecimal() decimal.Decimal { return l.cash }

// NetProfit is lifetime sales minus lifetime costs.
func (l *Ledger) NetProfit() float64 {
	return l.totalSales.Sub(l.totalCosts).InexactFloat64()
}

// Category returns a cumulative sub-total such as "cumulative_operations_cost".
func (l *Ledger) Category(key string) float64 {
	return l.categories[key].InexactFloat64()
}

func (l *Ledger) CanAfford(amount float64) bool {
	return l.cash.GreaterThanOrEqual(decimal.NewFromFloat(amount))
}

func positive(amount float64) (decimal.Decimal, bool) {
	d := decimal.NewFromFloat(amount)
	return d, d.IsPositive()
}

func (l *Ledger) bump(key string, d decimal.Decimal) {
	if l.categories == nil {
		l.categories = map[string]decimal.Decimal{}
	}
	l.categories[key] = l.categories[key].Add(d)
}

// Deposit raises cash without touching the P&L.
func (l *Ledger) Deposit(amount float64, category string) bool {
	d, ok := positive(amount)
	if !ok {
		return false
	}
	l.cash = l.cash.Add(d)
	l.bump("cumulative_"+category+"_deposit", d)
	return true
}

// RecordExpense may drive cash negative; callers that must not overdraw go
// through AttemptDebit.
func (l *Ledger) RecordExpense(amount float64, category string) bool {
	d, ok := positive(amount)
	if !ok {
		return false
	}
	l.cash = l.cash.Sub(d)
	l.totalCosts = l.totalCosts.Add(d)
	l.bump("cumulative_"+category+"_cost", d)
	return true
}

func (l *Ledger) AddRevenue(amount float64, category string) bool {
	d, ok := positive(amount)
	if !ok {
		return false
	}
	l.cash = l.cash.Add(d)
	l.totalSales = l.totalSales.Add(d)
	l.bump("cumulative_"+category+"_revenue", d)
	return true
}

// AddSubsidiaryProfit applies a signed weekly result: gains count as sales,
// losses as costs.
func (l *Ledger) AddSubsidiaryProfit(profit float64) bool {
	d := decimal.NewFromFloat(profit)
	if d.IsZero() {
		return false
	}
	l.cash = l.cash.Add(d)
	if d.IsPositive() {
		l.totalSales = l.totalSales.Add(d)
	} else {
		l.totalCosts = l.totalCosts.Add(d.Neg())
	}
	l.bump("cumulative_subsidiary_income", d)
	return true
}

// ApplyCostRebate returns part of a cost already booked this week: cash goes
// up and total costs come down.
func (l *Ledger) ApplyCostRebate(amount float64, category string) bool {
	d, ok := positive(amount)
	if !ok {
		return false
	}
	l.cash = l.cash.Add(d)
	l.totalCosts = l.totalCosts.Sub(d)
	l.bump("cumulative_"+category+"_rebate", d)
	return true
}

// ReverseExpense takes a previously booked expense back out of total costs
// without moving cash. Used when an asset bought as an expense is sold.
func (l *Ledger) ReverseExpense(amount float64, category string) bool {
	d, ok := positive(amount)
	if !ok {
		return false
	}
	l.totalCosts = l.totalCosts.Sub(d)
	l.bump("cumulative_"+category+"_cost", d.Neg())
	return true
}

// RecognizeGain books a realised gain (sales) or loss (costs) without moving
// cash.
func (l *Ledger) RecognizeGain(amount float64, category string) bool {
	d := decimal.NewFromFloat(amount)
	switch {
	case d.IsPositive():
		l.totalSales = l.totalSales.Add(d)
		l.bump("cumulative_"+category+"_gain", d)
	case d.IsNegative():
		l.totalCosts = l.totalCosts.Add(d.Neg())
		l.bump("cumulative_"+category+"_loss", d.Neg())
	default:
		return false
	}
	return true
}

// Categories returns the cumulative sub-totals in key order.
func (l *Ledger) Categories() []CategoryTotal {
	keys := make([]string, 0, len(l.categories))
	for k := range l.categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]CategoryTotal, 0, len(keys))
	for _, k := range keys {
		out = append(out, CategoryTotal{Key: k, Amount: l.categories[k].InexactFloat64()})
	}
	return out
}

type CategoryTotal struct {
	Key    string  `json:"key"`
	Amount float64 `json:"amount"`
}

// Shortfall is the soft failure of an all-or-nothing payment.
type Shortfall struct {
	Category  string
	Needed    float64
	Available float64
}

func (s *Shortfall) Error() string {
	return fmt.Sprintf("%s: need %.2f, have %.2f: %v", s.Category, s.Needed, s.Available, ErrInsufficientFunds)
}

func (s *Shortfall) Unwrap() error { return ErrInsufficientFunds }

// Debit is a payment that went through.
type Debit struct {
	Category string
	Paid     float64
}

// AttemptDebit pays amount in full as an expense or leaves the ledger
// untouched and returns a *Shortfall. Zero or negative amounts are a no-op.
func AttemptDebit(l *Ledger, amount float64, category string) (Debit, error) {
	if amount <= 0 {
		return Debit{Category: category}, nil
	}
	if !l.CanAfford(amount) {
		return Debit{Category: category}, &Shortfall{Category: category, Needed: amount, Available: l.Cash()}
	}
	l.RecordExpense(amount, category)
	return Debit{Category: category, Paid: amount}, nil
}

// payOrWarn is the tick-side use of AttemptDebit: a shortfall is logged and
// the payment skipped.
func payOrWarn(log *slog.Logger, owner string, l *Ledger, amount float64, category string) bool {
	if _, err := AttemptDebit(l, amount, category); err != nil {
		var sf *Shortfall
		if errors.As(err, &sf) {
			log.Warn("payment skipped", "owner", owner, "category", sf.Category, "needed", sf.Needed, "available", sf.Available)
		}
		return false
	}
	return true
}

type ledgerWire struct {
	Cash       string            `json:"cash"`
	TotalSales string            `json:"total_sales"`
	TotalCosts string            `json:"total_costs"`
	Categories map[string]string `json:"categories,omitempty"`
}

func (l *Ledger) wire() ledgerWire {
	w := ledgerWire{
		Cash:       l.cash.String(),
		TotalSales: l.totalSales.String(),
		TotalCosts: l.totalCosts.String(),
		Categories: make(map[string]string, len(l.categories)),
	}
	for k, v := range l.categories {
		w.Categories[k] = v.String()
	}
	return w
}

func (l *Ledger) fromWire(w ledgerWire) error {
	var err error
	if l.cash, err = decimal.NewFromString(w.Cash); err != nil {
		return fmt.Errorf("ledger cash: %w", err)
	}
	if l.totalSales, err = decimal.NewFromString(w.TotalSales); err != nil {
		return fmt.Errorf("ledger total_sales: %w", err)
	}
	if l.totalCosts, err = decimal.NewFromString(w.TotalCosts); err != nil {
		return fmt.Errorf("ledger total_costs: %w", err)
	}
	l.categories = make(map[string]decimal.Decimal, len(w.Categories))
	for k, v := range w.Categories {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("ledger %s: %w", k, err)
		}
		l.categories[k] = d
	}
	return nil
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.wire())
}

func (l *Ledger) UnmarshalJSON(data []byte) error {
	var w ledgerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return l.fromWire(w)
}

func (l *Ledger) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(l.wire()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *Ledger) GobDecode(data []byte) error {
	var w ledgerWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	return l.fromWire(w)
}

package game

import (
	"fmt"

	"ramentycoon/internal/master"
)

// Account pairs a ledger with the portfolio it funds. Company, personal and
// competitor books all trade through it.
type Account struct {
	Ledger        *Ledger    `json:"ledger"`
	Portfolio     *Portfolio `json:"portfolio"`
	MarginAccount bool       `json:"margin_account"`
}

func newAccount(cash float64) Account {
	return Account{Ledger: NewLedger(cash), Portfolio: NewPortfolio()}
}

type SaleResult struct {
	Ticker       string  `json:"ticker"`
	Shares       int64   `json:"shares"`
	Price        float64 `json:"price"`
	Proceeds     float64 `json:"proceeds"`
	LoanRepaid   float64 `json:"loan_repaid"`
	AvgBuyPrice  float64 `json:"average_buy_price"`
	RealizedGain float64 `json:"realized_gain"`
}

type CoverResult struct {
	Ticker       string  `json:"ticker"`
	Shares       int64   `json:"shares"`
	Cost         float64 `json:"cost"`
	SellPrice    float64 `json:"sell_price"`
	RealizedGain float64 `json:"realized_gain"`
}

// OpenMarginAccount charges the opening fee once.
func (a *Account) OpenMarginAccount(cost float64) error {
	if a.MarginAccount {
		return fmt.Errorf("margin account already open: %w", ErrInvalidState)
	}
	if _, err := AttemptDebit(a.Ledger, cost, "account_fee"); err != nil {
		return err
	}
	a.MarginAccount = true
	return nil
}

// BuyOnCash books the full cost as an expense; Sell reverses the basis.
func (a *Account) BuyOnCash(ticker, name string, shares int64, price float64) error {
	if shares <= 0 || price <= 0 {
		return ErrInvalidAmount
	}
	cost := float64(shares) * price
	if !a.Ledger.CanAfford(cost) {
		return &Shortfall{Category: "stock_purchase", Needed: cost, Available: a.Ledger.Cash()}
	}
	if err := a.Portfolio.Buy(ticker, name, shares, price, false, 1); err != nil {
		return err
	}
	a.Ledger.RecordExpense(cost, "stock_purchase")
	return nil
}

// BuyOnMargin pays the initial margin and borrows the rest from the broker.
func (a *Account) BuyOnMargin(ticker, name string, shares int64, price float64, m master.MarginSettings) error {
	if !a.MarginAccount {
		return ErrMarginAccount
	}
	if shares <= 0 || price <= 0 {
		return ErrInvalidAmount
	}
	required := float64(shares) * price * m.InitialMarginRatio
	if !a.Ledger.CanAfford(required) {
		return &Shortfall{Category: "stock_purchase", Needed: required, Available: a.Ledger.Cash()}
	}
	if err := a.Portfolio.Buy(ticker, name, shares, price, true, m.InitialMarginRatio); err != nil {
		return err
	}
	a.Ledger.RecordExpense(required, "stock_purchase")
	return nil
}

// Sell receives proceeds net of the margin loan repaid, takes the expensed
// basis back out of costs and recognises the realised gain or loss.
func (a *Account) Sell(ticker string, shares int64, price float64, m master.MarginSettings) (SaleResult, error) {
	if price <= 0 {
		return SaleResult{}, ErrInvalidAmount
	}
	avg, loanRepaid, err := a.Portfolio.Sell(ticker, shares, m.InitialMarginRatio)
	if err != nil {
		return SaleResult{}, err
	}
	proceeds := float64(shares) * price
	basis := float64(shares) * avg
	res := SaleResult{
		Ticker:       ticker,
		Shares:       shares,
		Price:        price,
		Proceeds:     proceeds,
		LoanRepaid:   loanRepaid,
		AvgBuyPrice:  avg,
		RealizedGain: round2(proceeds - basis),
	}
	a.Ledger.Deposit(proceeds-loanRepaid, "stock_sale")
	a.Ledger.ReverseExpense(basis-loanRepaid, "stock_purchase")
	a.Ledger.RecognizeGain(res.RealizedGain, "stock_sale")
	return res, nil
}

// ShortSell deposits the proceeds; at most one short per ticker.
func (a *Account) ShortSell(ticker, name string, shares int64, price float64, week int) error {
	if !a.MarginAccount {
		return ErrMarginAccount
	}
	if err := a.Portfolio.OpenShort(ticker, name, shares, price, week); err != nil {
		return err
	}
	a.Ledger.Deposit(float64(shares)*price, "short_sale")
	return nil
}

func (a *Account) BuyToCover(ticker string, shares int64, price float64) (CoverResult, error) {
	if shares <= 0 || price <= 0 {
		return CoverResult{}, ErrInvalidAmount
	}
	pos, ok := a.Portfolio.Shorts[ticker]
	if !ok {
		return CoverResult{}, fmt.Errorf("short %s: %w", ticker, ErrNotFound)
	}
	if shares > pos.Shares {
		return CoverResult{}, fmt.Errorf("cover %d of %d %s: %w", shares, pos.Shares, ticker, ErrInsufficientShares)
	}
	cost := float64(shares) * price
	if !a.Ledger.CanAfford(cost) {
		return CoverResult{}, &Shortfall{Category: "short_cover", Needed: cost, Available: a.Ledger.Cash()}
	}
	sellPrice, err := a.Portfolio.CoverShort(ticker, shares)
	if err != nil {
		return CoverResult{}, err
	}
	proceeds := float64(shares) * sellPrice
	a.Ledger.RecordExpense(cost, "short_cover")
	a.Ledger.ReverseExpense(min(cost, proceeds), "short_cover")
	if proceeds > cost {
		a.Ledger.RecognizeGain(proceeds-cost, "short_cover")
	}
	return CoverResult{
		Ticker:       ticker,
		Shares:       shares,
		Cost:         cost,
		SellPrice:    sellPrice,
		RealizedGain: round2(proceeds - cost),
	}, nil
}

// ReceiveDividend credits the payout for one ticker and returns it.
func (a *Account) ReceiveDividend(ticker string, perShare float64) float64 {
	amount := a.Portfolio.DividendFor(ticker, perShare)
	a.Ledger.AddRevenue(amount, "dividend_income")
	return amount
}

// SellOwnedStock cashes out venture-IPO equity at its current value.
func (a *Account) SellOwnedStock(id string) (OwnedStock, error) {
	o, ok := a.Portfolio.RemoveOwnedStock(id)
	if !ok {
		return OwnedStock{}, fmt.Errorf("owned stock %s: %w", id, ErrNotFound)
	}
	a.Ledger.AddRevenue(o.CurrentMarketValue, "owned_stock_sale")
	return o, nil
}

func (a *Account) MarginStatus(prices PriceSource, m master.MarginSettings) MarginStatus {
	return a.Portfolio.CheckMarginCall(a.Ledger.Cash(), prices, m.MaintenanceMarginRatio)
}

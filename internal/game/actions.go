package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Every exported player action below locks the session, resolves at once
// and wraps failures in an *ActionError naming the action.

func (s *Session) week() int { return s.Clock.TotalWeeksElapsed }

// GameOver reports whether the company ended the last tick with negative
// cash.
func (s *Session) GameOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Player.Company.Ledger.Cash() < 0
}

func (s *Session) account(owner Owner) *Account {
	acct, _ := s.Player.ownerBooks(owner)
	return acct
}

// quote finds a company outside investors can trade.
func (s *Session) quote(ticker string) (*ListedCompany, error) {
	t, err := ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	c, ok := s.Market.Get(t)
	if !ok {
		return nil, fmt.Errorf("ticker %s: %w", t, ErrNotFound)
	}
	if c.IsSubsidiary {
		return nil, fmt.Errorf("%s is a subsidiary: %w", t, ErrInvalidState)
	}
	return c, nil
}

func (s *Session) TakeLoan(productID string, amount float64) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.Player.Company.TakeLoan(s.Master, s.RNG, productID, amount, s.week())
	return l, actionErr("take_loan", err)
}

func (s *Session) RepayLoan(id string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	left, err := s.Player.Company.RepayLoan(id, amount)
	return left, actionErr("repay_loan", err)
}

func (s *Session) IssueBond(principal float64, years int) (*Bond, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.Player.Company.IssueBond(s.Master, s.RNG, principal, years, s.week())
	return b, actionErr("issue_bond", err)
}

// OpenMarginAccount needs the company's credit score at the broker minimum
// for either owner.
func (s *Session) OpenMarginAccount(owner Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.Master.Margin
	if score := s.Player.Company.CreditScore; score < m.MinCreditScore {
		return actionErr("open_margin_account", fmt.Errorf("credit score %d below %d: %w", score, m.MinCreditScore, ErrNotEligible))
	}
	return actionErr("open_margin_account", s.account(owner).OpenMarginAccount(m.AccountOpeningCost))
}

func (s *Session) BuyStock(owner Owner, ticker string, shares int64, onMargin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.quote(ticker)
	if err != nil {
		return actionErr("buy_stock", err)
	}
	acct := s.account(owner)
	if onMargin {
		err = acct.BuyOnMargin(c.Ticker, c.Name, shares, c.Price, s.Master.Margin)
	} else {
		err = acct.BuyOnCash(c.Ticker, c.Name, shares, c.Price)
	}
	return actionErr("buy_stock", err)
}

func (s *Session) SellStock(owner Owner, ticker string, shares int64) (SaleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.quote(ticker)
	if err != nil {
		return SaleResult{}, actionErr("sell_stock", err)
	}
	res, err := s.account(owner).Sell(c.Ticker, shares, c.Price, s.Master.Margin)
	return res, actionErr("sell_stock", err)
}

func (s *Session) ShortSell(owner Owner, ticker string, shares int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.quote(ticker)
	if err != nil {
		return actionErr("short_sell", err)
	}
	return actionErr("short_sell", s.account(owner).ShortSell(c.Ticker, c.Name, shares, c.Price, s.week()))
}

func (s *Session) BuyToCover(owner Owner, ticker string, shares int64) (CoverResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.quote(ticker)
	if err != nil {
		return CoverResult{}, actionErr("buy_to_cover", err)
	}
	res, err := s.account(owner).BuyToCover(c.Ticker, shares, c.Price)
	return res, actionErr("buy_to_cover", err)
}

// Liquidation is the result of closing every leveraged position.
type Liquidation struct {
	Sales   []SaleResult  `json:"sales,omitempty"`
	Covers  []CoverResult `json:"covers,omitempty"`
	Skipped []string      `json:"skipped,omitempty"`
}

// LiquidateMargin sells every margin-financed share and covers every short
// it can afford at current prices. Positions it cannot close are listed as
// skipped.
func (s *Session) LiquidateMargin(owner Owner) (Liquidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(owner)
	var out Liquidation
	for _, t := range sortedKeys(acct.Portfolio.Holdings) {
		h := acct.Portfolio.Holdings[t]
		if h.MarginShares == 0 {
			continue
		}
		price := priceOr(s.Market, t, h.AvgBuyPrice)
		res, err := acct.Sell(t, h.MarginShares, price, s.Master.Margin)
		if err != nil {
			out.Skipped = append(out.Skipped, t)
			continue
		}
		out.Sales = append(out.Sales, res)
	}
	for _, t := range sortedKeys(acct.Portfolio.Shorts) {
		pos := acct.Portfolio.Shorts[t]
		res, err := acct.BuyToCover(t, pos.Shares, priceOr(s.Market, t, pos.SellPrice))
		if err != nil {
			out.Skipped = append(out.Skipped, t)
			continue
		}
		out.Covers = append(out.Covers, res)
	}
	s.Log.Info("margin positions liquidated", "owner", owner, "sales", len(out.Sales), "covers", len(out.Covers), "skipped", len(out.Skipped))
	return out, nil
}

func (s *Session) SellOwnedStock(owner Owner, id string) (OwnedStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.account(owner).SellOwnedStock(id)
	return o, actionErr("sell_owned_stock", err)
}

func (s *Session) PerformDD(owner Owner, dealID string, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("perform_dd", s.Deals.PerformDD(s.account(owner).Ledger, s.Master.Venture, dealID, level, s.week()))
}

// ExecuteInvestment funds a listed deal from the owner's books and takes it
// off the deal market.
func (s *Session) ExecuteInvestment(owner Owner, dealID string) (*VentureHolding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := s.Deals.ExecuteInvestment(s.account(owner), s.RNG, s.Master.Venture, dealID, s.week())
	if err == nil {
		s.Log.Info("venture investment", "owner", owner, "deal", dealID, "company", h.Deal.CompanyName, "amount", h.Deal.Ask)
	}
	return h, actionErr("execute_investment", err)
}

// InvestInVenture is ExecuteInvestment under its portfolio-side name.
func (s *Session) InvestInVenture(owner Owner, dealID string) (*VentureHolding, error) {
	return s.ExecuteInvestment(owner, dealID)
}

func (s *Session) FollowOnVenture(owner Owner, dealID string) (*VentureHolding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := FollowOn(s.account(owner), s.RNG, s.Master.Venture, dealID, s.week())
	return h, actionErr("follow_on", err)
}

func (s *Session) DeclineFollowOn(owner Owner, dealID string) (*VentureHolding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := DeclineFollowOn(s.account(owner), s.RNG, s.Master.Venture, dealID)
	return h, actionErr("decline_follow_on", err)
}

func (s *Session) HireCXO(candidateID string) (CXO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.hireCXO(candidateID)
	return c, actionErr("hire_cxo", err)
}

func (s *Session) FireCXO(role string) (CXO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.Player.FireCXO(strings.ToUpper(strings.TrimSpace(role)))
	return c, actionErr("fire_cxo", err)
}

func (s *Session) EstablishHQRented() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("establish_hq_rented", s.Player.EstablishHQRented(s.Master))
}

func (s *Session) EstablishHQOwned() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("establish_hq_owned", s.Player.EstablishHQOwned(s.Master))
}

func (s *Session) EstablishDepartment(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("establish_department", s.Player.EstablishDepartment(s.Master, name))
}

func (s *Session) OpenShop(region, name string, capital float64) (*BusinessUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.Player.OpenShop(s.Master, s.RNG, region, name, capital, s.week())
	if err == nil {
		s.Log.Info("shop opened", "shop", u.ID, "region", u.Region, "capital", capital)
	}
	return u, actionErr("open_shop", err)
}

func (s *Session) UpgradeShopEquipment(shopID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cost, err := s.Player.UpgradeShopEquipment(s.Master, shopID)
	return cost, actionErr("upgrade_equipment", err)
}

func (s *Session) AddMenuItem(shopID, item string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("add_menu_item", s.Player.AddMenuItem(s.Master, shopID, item))
}

func (s *Session) RemoveMenuItem(shopID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("remove_menu_item", s.Player.RemoveMenuItem(shopID, index))
}

func (s *Session) HireStaff(shopID string, candidate int) (Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.Player.HireStaff(s.Master, shopID, candidate)
	return st, actionErr("hire_staff", err)
}

func (s *Session) FireStaff(shopID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("fire_staff", s.Player.FireStaff(shopID, index))
}

func (s *Session) StartProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("start_project", s.Player.StartProject(s.Master, id, s.week()))
}

func (s *Session) AllocateFunding(id string, amount float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	done, err := s.Player.AllocateFunding(s.Master, id, amount)
	if done {
		s.Log.Info("research completed", "project", id)
	}
	return done, actionErr("allocate_funding", err)
}

func (s *Session) SetSalary(amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("set_salary", s.Player.SetSalary(s.Master, amount, s.week()))
}

func (s *Session) TransferToCompany(amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return actionErr("transfer_to_company", s.Player.TransferToCompany(amount))
}

func (s *Session) BuyProperty(owner Owner, id string) (*Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.buyProperty(owner, id)
	return p, actionErr("buy_property", err)
}

func (s *Session) SellProperty(owner Owner, id string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.sellProperty(owner, id)
	return v, actionErr("sell_property", err)
}

func (s *Session) BuyLuxury(goodID string) (LuxuryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, err := s.Player.BuyLuxury(s.Master, s.RNG, goodID, s.week())
	return it, actionErr("buy_luxury", err)
}

func (s *Session) GrantStockOption(shares int64) (*StockOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.grantStockOption(shares)
	return o, actionErr("grant_stock_option", err)
}

func (s *Session) ExerciseStockOption(id string) (*StockOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.exerciseStockOption(id)
	return o, actionErr("exercise_stock_option", err)
}

func (s *Session) StartIPO(targetPrice, offerPercent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.Player.StartIPO(s.RNG, s.Master, s.week(), targetPrice, offerPercent)
	if err == nil {
		s.Log.Info("ipo preparation started", "target_price", s.Player.IPO.TargetPrice, "offer_percent", offerPercent)
	}
	return actionErr("start_ipo", err)
}

func (s *Session) TargetDD(id string) (*TargetCompany, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.Player.TargetDD(s.Master.MA, s.Targets, id)
	return t, actionErr("target_dd", err)
}

func (s *Session) MakeOffer(id string, offer float64) (Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, err := s.makeOffer(id, offer)
	return in, actionErr("make_offer", err)
}

func (s *Session) AcquireListed(ticker string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cost, err := s.acquireListed(ticker)
	return cost, actionErr("acquire_listed", err)
}

// Action is a player action in wire form, as sent by the API and queued by
// the CLI.
type Action struct {
	Kind string          `json:"kind"`
	Args json.RawMessage `json:"args,omitempty"`
}

type actionArgs struct {
	Owner        string  `json:"owner"`
	ID           string  `json:"id"`
	Ticker       string  `json:"ticker"`
	Shares       int64   `json:"shares"`
	Margin       bool    `json:"margin"`
	Amount       float64 `json:"amount"`
	Years        int     `json:"years"`
	Level        int     `json:"level"`
	Name         string  `json:"name"`
	Region       string  `json:"region"`
	Item         string  `json:"item"`
	Index        int     `json:"index"`
	TargetPrice  float64 `json:"target_price"`
	OfferPercent float64 `json:"offer_percent"`
}

type actionFunc func(s *Session, a actionArgs, owner Owner) (any, error)

var actions = map[string]actionFunc{
	"take_loan": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.TakeLoan(a.ID, a.Amount)
	},
	"repay_loan": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.RepayLoan(a.ID, a.Amount)
	},
	"issue_bond": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.IssueBond(a.Amount, a.Years)
	},
	"open_margin_account": func(s *Session, _ actionArgs, o Owner) (any, error) {
		return nil, s.OpenMarginAccount(o)
	},
	"buy_stock": func(s *Session, a actionArgs, o Owner) (any, error) {
		return nil, s.BuyStock(o, a.Ticker, a.Shares, a.Margin)
	},
	"sell_stock": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.SellStock(o, a.Ticker, a.Shares)
	},
	"short_sell": func(s *Session, a actionArgs, o Owner) (any, error) {
		return nil, s.ShortSell(o, a.Ticker, a.Shares)
	},
	"buy_to_cover": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.BuyToCover(o, a.Ticker, a.Shares)
	},
	"liquidate_margin": func(s *Session, _ actionArgs, o Owner) (any, error) {
		return s.LiquidateMargin(o)
	},
	"sell_owned_stock": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.SellOwnedStock(o, a.ID)
	},
	"perform_dd": func(s *Session, a actionArgs, o Owner) (any, error) {
		return nil, s.PerformDD(o, a.ID, a.Level)
	},
	"execute_investment": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.ExecuteInvestment(o, a.ID)
	},
	"invest_in_venture": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.InvestInVenture(o, a.ID)
	},
	"follow_on": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.FollowOnVenture(o, a.ID)
	},
	"decline_follow_on": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.DeclineFollowOn(o, a.ID)
	},
	"hire_cxo": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.HireCXO(a.ID)
	},
	"fire_cxo": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.FireCXO(a.Name)
	},
	"establish_hq_rented": func(s *Session, _ actionArgs, _ Owner) (any, error) {
		return nil, s.EstablishHQRented()
	},
	"establish_hq_owned": func(s *Session, _ actionArgs, _ Owner) (any, error) {
		return nil, s.EstablishHQOwned()
	},
	"establish_department": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return nil, s.EstablishDepartment(a.Name)
	},
	"open_shop": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.OpenShop(a.Region, a.Name, a.Amount)
	},
	"upgrade_equipment": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.UpgradeShopEquipment(a.ID)
	},
	"add_menu_item": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return nil, s.AddMenuItem(a.ID, a.Item)
	},
	"remove_menu_item": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return nil, s.RemoveMenuItem(a.ID, a.Index)
	},
	"hire_staff": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.HireStaff(a.ID, a.Index)
	},
	"fire_staff": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return nil, s.FireStaff(a.ID, a.Index)
	},
	"start_project": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return nil, s.StartProject(a.ID)
	},
	"allocate_funding": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.AllocateFunding(a.ID, a.Amount)
	},
	"set_salary": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return nil, s.SetSalary(a.Amount)
	},
	"transfer_to_company": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return nil, s.TransferToCompany(a.Amount)
	},
	"buy_property": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.BuyProperty(o, a.ID)
	},
	"sell_property": func(s *Session, a actionArgs, o Owner) (any, error) {
		return s.SellProperty(o, a.ID)
	},
	"buy_luxury": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.BuyLuxury(a.ID)
	},
	"grant_stock_option": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.GrantStockOption(a.Shares)
	},
	"exercise_stock_option": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.ExerciseStockOption(a.ID)
	},
	"start_ipo": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return nil, s.StartIPO(a.TargetPrice, a.OfferPercent)
	},
	"target_dd": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.TargetDD(a.ID)
	},
	"make_offer": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.MakeOffer(a.ID, a.Amount)
	},
	"acquire_listed": func(s *Session, a actionArgs, _ Owner) (any, error) {
		return s.AcquireListed(a.Ticker)
	},
}

// ActionKinds lists the kinds Apply understands, sorted.
func ActionKinds() []string {
	return sortedKeys(actions)
}

// Apply decodes and runs one wire action. The result is whatever the typed
// method returns, or nil.
func (s *Session) Apply(a Action) (any, error) {
	kind := strings.ToLower(strings.TrimSpace(a.Kind))
	fn, ok := actions[kind]
	if !ok {
		return nil, fmt.Errorf("%q: %w", a.Kind, ErrUnknownAction)
	}
	var args actionArgs
	if len(a.Args) > 0 {
		if err := json.Unmarshal(a.Args, &args); err != nil {
			return nil, actionErr(kind, fmt.Errorf("decode args: %v: %w", err, ErrInvalidAmount))
		}
	}
	owner, err := ParseOwner(args.Owner)
	if err != nil {
		return nil, actionErr(kind, err)
	}
	res, err := fn(s, args, owner)
	if err != nil {
		s.Log.Debug("action failed", "kind", kind, "error", err)
		return nil, err
	}
	return res, nil
}

package game

import (
	"fmt"
	"log/slog"
	"math"

	"ramentycoon/internal/master"
)

// Competitor is a rival ramen chain run by a weighted random policy. Its
// shops compete for the same customers as the player's.
type Competitor struct {
	Account
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	ActionProbability float64         `json:"action_probability"`
	Shops             []*BusinessUnit `json:"shops"`
}

func generateCompetitors(rng *RNG, d *master.Data, week int) ([]*Competitor, error) {
	cs := d.Competitors
	diff, ok := d.DifficultyLevel(cs.Difficulty)
	if !ok {
		return nil, fmt.Errorf("competitor difficulty %d: %w", cs.Difficulty, ErrNotFound)
	}
	names := append([]string(nil), cs.Names...)
	out := make([]*Competitor, 0, cs.Count)
	for i := range cs.Count {
		name := fmt.Sprintf("Rival %d", i+1)
		if len(names) > 0 {
			j := rng.IntN(len(names))
			name = names[j]
			names = append(names[:j], names[j+1:]...)
		}
		c := &Competitor{
			ID:                shortID("COMP", rng),
			Name:              name,
			Account:           newAccount(math.Round(rng.Uniform(diff.Cash.Min, diff.Cash.Max))),
			ActionProbability: diff.ActionProbability,
		}
		for n := range rng.IntBetween(cs.InitialShops.Min, cs.InitialShops.Max) {
			region := d.Regions[rng.IntN(len(d.Regions))]
			equip := rng.IntBetween(cs.UpgradeEquipment.Min, cs.UpgradeEquipment.Max)
			c.Shops = append(c.Shops, c.newShop(rng, d, region, equip, week, n+1))
		}
		out = append(out, c)
	}
	return out, nil
}

func (c *Competitor) newShop(rng *RNG, d *master.Data, region master.Region, equip, week, n int) *BusinessUnit {
	u := newBusinessUnit(shortID("SHOP", rng), fmt.Sprintf("%s %s #%d", c.Name, region.Name, n), region, d.Shop.DefaultKind, equip, week)
	for _, item := range d.DefaultMenu {
		if m, ok := d.MenuItem(item); ok {
			u.Menu = append(u.Menu, m)
		}
	}
	return u
}

// bookShopProfits moves this week's shop results into the competitor's cash.
func (c *Competitor) bookShopProfits() float64 {
	total := 0.0
	for _, u := range c.Shops {
		total += u.Finances.WeeklyProfit
	}
	c.Ledger.AddSubsidiaryProfit(total)
	return total
}

type CompetitorAction struct {
	Competitor string  `json:"competitor"`
	Action     string  `json:"action"`
	Detail     string  `json:"detail,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
}

// Act pays portfolio fees, then with the competitor's action probability
// picks one of expand, upgrade or invest. It returns false when nothing
// happened.
func (c *Competitor) Act(log *slog.Logger, rng *RNG, d *master.Data, m *Market, week int) (CompetitorAction, bool) {
	fees := c.Portfolio.WeeklyFees(m, d.Margin.WeeklyInterestRate, d.Margin.ShortBorrowWeeklyRate)
	payOrWarn(log, c.Name, c.Ledger, fees, "portfolio_fees")

	if !rng.Chance(c.ActionProbability) || len(d.Competitors.Actions) == 0 {
		return CompetitorAction{}, false
	}
	weights := make([]float64, len(d.Competitors.Actions))
	for i, a := range d.Competitors.Actions {
		weights[i] = a.Weight
	}
	switch d.Competitors.Actions[rng.Pick(weights)].Name {
	case "expand":
		return c.expand(rng, d, week)
	case "upgrade":
		return c.upgrade(d)
	case "invest":
		return c.invest(rng, d, m)
	}
	return CompetitorAction{}, false
}

func (c *Competitor) expand(rng *RNG, d *master.Data, week int) (CompetitorAction, bool) {
	region := d.Regions[rng.IntN(len(d.Regions))]
	cost := ShopSetupCost(d, region)
	if _, err := AttemptDebit(c.Ledger, cost, "business_setup"); err != nil {
		return CompetitorAction{}, false
	}
	equip := rng.IntBetween(d.Competitors.UpgradeEquipment.Min, d.Competitors.UpgradeEquipment.Max)
	u := c.newShop(rng, d, region, equip, week, len(c.Shops)+1)
	c.Shops = append(c.Shops, u)
	return CompetitorAction{Competitor: c.Name, Action: "expand", Detail: u.Name, Amount: cost}, true
}

// upgrade improves the lowest-equipped shop, first one on ties.
func (c *Competitor) upgrade(d *master.Data) (CompetitorAction, bool) {
	var target *BusinessUnit
	for _, u := range c.Shops {
		if target == nil || u.EquipmentLevel < target.EquipmentLevel {
			target = u
		}
	}
	if target == nil || !target.CanUpgrade(d) {
		return CompetitorAction{}, false
	}
	cost := target.NextUpgradeCost(d)
	if _, err := AttemptDebit(c.Ledger, cost, "equipment_upgrade"); err != nil {
		return CompetitorAction{}, false
	}
	target.EquipmentLevel++
	return CompetitorAction{Competitor: c.Name, Action: "upgrade", Detail: target.Name, Amount: cost}, true
}

func (c *Competitor) invest(rng *RNG, d *master.Data, m *Market) (CompetitorAction, bool) {
	cs := d.Competitors
	amount := c.Ledger.Cash() * rng.Uniform(cs.InvestmentFraction.Min, cs.InvestmentFraction.Max)
	if amount < cs.MinInvestment {
		return CompetitorAction{}, false
	}
	tradable := m.Tradable()
	if len(tradable) == 0 {
		return CompetitorAction{}, false
	}
	target := tradable[rng.IntN(len(tradable))]
	shares := int64(amount / target.Price)
	if shares <= 0 {
		return CompetitorAction{}, false
	}
	if err := c.BuyOnCash(target.Ticker, target.Name, shares, target.Price); err != nil {
		return CompetitorAction{}, false
	}
	return CompetitorAction{
		Competitor: c.Name,
		Action:     "invest",
		Detail:     fmt.Sprintf("%d x %s", shares, target.Ticker),
		Amount:     float64(shares) * target.Price,
	}, true
}

package game

import (
	"fmt"
	"math"

	"ramentycoon/internal/master"
)

// MenuItem and Staff are value copies of master rows owned by a shop.
type MenuItem = master.MenuItem
type Staff = master.Staff

// UnitFinances is the per-shop slice of the books: this week's figures plus
// lifetime counters.
type UnitFinances struct {
	WeeklyFixedCosts     float64 `json:"weekly_fixed_costs"`
	WeeklySales          float64 `json:"weekly_sales"`
	WeeklyVariableCosts  float64 `json:"weekly_variable_costs"`
	WeeklyStaffSalaries  float64 `json:"weekly_staff_salaries"`
	WeeklyActualFixed    float64 `json:"weekly_actual_fixed_costs"`
	WeeklyTotalCosts     float64 `json:"weekly_total_costs"`
	WeeklyProfit         float64 `json:"weekly_profit"`
	CumulativeSales      float64 `json:"cumulative_sales"`
	CumulativeVariable   float64 `json:"cumulative_variable_costs"`
	CumulativeStaff      float64 `json:"cumulative_staff_salaries"`
	CumulativeFixedCosts float64 `json:"cumulative_fixed_costs"`
	CumulativeProfit     float64 `json:"cumulative_profit"`
}

type BusinessUnit struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Kind            string       `json:"kind"`
	Region          string       `json:"region"`
	SalesModifier   float64      `json:"sales_modifier"`
	CustomerPool    int          `json:"customer_pool"`
	EquipmentLevel  int          `json:"equipment_level"`
	Menu            []MenuItem   `json:"menu"`
	Staff           []Staff      `json:"staff"`
	Attractiveness  float64      `json:"attractiveness"`
	WeeklyCustomers int          `json:"weekly_customers"`
	OpenedWeek      int          `json:"opened_week"`
	Finances        UnitFinances `json:"finances"`
}

// ShopRules is the master-data view a shop needs each week.
type ShopRules struct {
	AvgSpend          float64
	DefaultCostRatio  float64
	NoStaffEfficiency float64
	Weights           master.AttractivenessWeights
}

func shopRules(d *master.Data) ShopRules {
	return ShopRules{
		AvgSpend:          d.Shop.AvgSpendPerCustomer,
		DefaultCostRatio:  d.Shop.DefaultCostRatio,
		NoStaffEfficiency: d.Shop.NoStaffEfficiency,
		Weights:           d.Shop.Attractiveness,
	}
}

// UnitBonuses are the owner-wide modifiers applied to a shop. Competitors
// run with the zero value.
type UnitBonuses struct {
	Quality            float64 `json:"quality"`
	CostReduction      float64 `json:"cost_reduction"`
	FixedCostReduction float64 `json:"fixed_cost_reduction"`
	StaffEfficiency    float64 `json:"staff_efficiency"`
}

func newBusinessUnit(id, name string, region master.Region, kind string, equipment, week int) *BusinessUnit {
	return &BusinessUnit{
		ID:             id,
		Name:           name,
		Kind:           kind,
		Region:         region.Name,
		SalesModifier:  region.SalesModifier,
		CustomerPool:   region.CustomerPool,
		EquipmentLevel: max(1, equipment),
		OpenedWeek:     week,
		Finances:       UnitFinances{WeeklyFixedCosts: region.RentBase},
	}
}

func (b *BusinessUnit) staffEfficiency(r ShopRules, boost float64) float64 {
	if len(b.Staff) == 0 {
		return r.NoStaffEfficiency
	}
	total := 0.0
	for _, s := range b.Staff {
		total += s.Efficiency
	}
	return total/float64(len(b.Staff)) + boost
}

// Attractiveness is a pure function of the shop's current state and bonuses.
// The square roots give diminishing returns on equipment and menu size.
func (b *BusinessUnit) AttractivenessFor(r ShopRules, bonus UnitBonuses) float64 {
	w := r.Weights
	equipment := math.Sqrt(float64(b.EquipmentLevel)) * w.EquipmentScore
	menu := math.Sqrt(float64(len(b.Menu))) * w.MenuItemScore
	staff := b.staffEfficiency(r, bonus.StaffEfficiency) * w.StaffFactor
	quality := bonus.Quality * w.QualityFactor
	return equipment*w.EquipmentWeight + menu*w.MenuWeight + staff*w.StaffWeight + quality*w.QualityWeight
}

func (b *BusinessUnit) PrepareForCompetition(r ShopRules, bonus UnitBonuses) {
	b.Attractiveness = b.AttractivenessFor(r, bonus)
}

func (b *BusinessUnit) costRatio(r ShopRules) float64 {
	if len(b.Menu) == 0 {
		return r.DefaultCostRatio
	}
	total := 0.0
	for _, m := range b.Menu {
		if m.Price > 0 {
			total += m.Cost / m.Price
		}
	}
	return total / float64(len(b.Menu))
}

// FinalizeWeek settles the week from the customers allocated to the shop.
func (b *BusinessUnit) FinalizeWeek(r ShopRules, bonus UnitBonuses) {
	f := &b.Finances
	f.WeeklySales = float64(b.WeeklyCustomers) * r.AvgSpend
	f.WeeklyVariableCosts = f.WeeklySales * b.costRatio(r) * (1 - bonus.CostReduction)
	f.WeeklyStaffSalaries = 0
	for _, s := range b.Staff {
		f.WeeklyStaffSalaries += s.WeeklySalary
	}
	f.WeeklyActualFixed = f.WeeklyFixedCosts * (1 - bonus.FixedCostReduction)
	f.WeeklyTotalCosts = f.WeeklyActualFixed + f.WeeklyStaffSalaries + f.WeeklyVariableCosts
	f.WeeklyProfit = f.WeeklySales - f.WeeklyTotalCosts

	f.CumulativeSales += f.WeeklySales
	f.CumulativeVariable += f.WeeklyVariableCosts
	f.CumulativeStaff += f.WeeklyStaffSalaries
	f.CumulativeFixedCosts += f.WeeklyActualFixed
	f.CumulativeProfit += f.WeeklyProfit
}

// NextUpgradeCost grows with level^1.5. Unknown kinds use the fallback curve.
func (b *BusinessUnit) NextUpgradeCost(d *master.Data) float64 {
	k := d.ShopKind(b.Kind)
	return float64(int(k.UpgradeCostBase + k.UpgradeCostFactor*math.Pow(float64(b.EquipmentLevel), 1.5)))
}

func (b *BusinessUnit) CanUpgrade(d *master.Data) bool {
	return b.EquipmentLevel < d.ShopKind(b.Kind).MaxEquipmentLevel
}

func (b *BusinessUnit) AddMenuItem(item MenuItem) error {
	for _, m := range b.Menu {
		if m.Name == item.Name {
			return fmt.Errorf("menu already has %q: %w", item.Name, ErrInvalidState)
		}
	}
	b.Menu = append(b.Menu, item)
	return nil
}

func (b *BusinessUnit) RemoveMenuItem(index int) (MenuItem, error) {
	if index < 0 || index >= len(b.Menu) {
		return MenuItem{}, fmt.Errorf("menu index %d: %w", index, ErrNotFound)
	}
	item := b.Menu[index]
	b.Menu = append(b.Menu[:index], b.Menu[index+1:]...)
	return item, nil
}

func (b *BusinessUnit) HireStaff(s Staff) {
	b.Staff = append(b.Staff, s)
}

func (b *BusinessUnit) FireStaff(index int) (Staff, error) {
	if index < 0 || index >= len(b.Staff) {
		return Staff{}, fmt.Errorf("staff index %d: %w", index, ErrNotFound)
	}
	s := b.Staff[index]
	b.Staff = append(b.Staff[:index], b.Staff[index+1:]...)
	return s, nil
}

type PoolMode string

const (
	PoolGlobal   PoolMode = "global"
	PoolRegional PoolMode = "regional"
)

// AllocateCustomers splits the customer pool in proportion to attractiveness.
// Global mode sums every unit's pool into one market; regional mode only lets
// shops in the same region compete for that region's pool.
func AllocateCustomers(units []*BusinessUnit, mode PoolMode, defaultPool int) {
	if mode != PoolRegional {
		allocate(units, poolOf(units, defaultPool))
		return
	}
	byRegion := map[string][]*BusinessUnit{}
	var order []string
	for _, u := range units {
		if _, ok := byRegion[u.Region]; !ok {
			order = append(order, u.Region)
		}
		byRegion[u.Region] = append(byRegion[u.Region], u)
	}
	for _, region := range order {
		group := byRegion[region]
		pool := group[0].CustomerPool
		if pool <= 0 {
			pool = defaultPool
		}
		allocate(group, pool)
	}
}

func poolOf(units []*BusinessUnit, defaultPool int) int {
	total := 0
	for _, u := range units {
		if u.CustomerPool > 0 {
			total += u.CustomerPool
		} else {
			total += defaultPool
		}
	}
	return total
}

func allocate(units []*BusinessUnit, pool int) {
	total := 0.0
	for _, u := range units {
		total += u.Attractiveness
	}
	for _, u := range units {
		if total <= 0 {
			u.WeeklyCustomers = 0
			continue
		}
		u.WeeklyCustomers = int(float64(pool) * u.Attractiveness / total)
	}
}

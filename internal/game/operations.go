package game

import (
	"fmt"
	"math"
	"slices"

	"ramentycoon/internal/master"
)

type HQStatus string

const (
	HQNone   HQStatus = ""
	HQRented HQStatus = "rented"
	HQOwned  HQStatus = "owned"
)

// Operations is the player's restaurant business: the shops, the head
// office and the departments that gate research and the IPO.
type Operations struct {
	Shops       []*BusinessUnit `json:"shops"`
	HQ          HQStatus        `json:"hq"`
	Departments []string        `json:"departments"`
}

// OperatingTotals is the sum of this week's shop results.
type OperatingTotals struct {
	Sales         float64 `json:"sales"`
	VariableCosts float64 `json:"variable_costs"`
	TotalCosts    float64 `json:"total_costs"`
	Profit        float64 `json:"profit"`
	Customers     int     `json:"customers"`
}

func (o *Operations) Totals() OperatingTotals {
	var t OperatingTotals
	for _, u := range o.Shops {
		t.Sales += u.Finances.WeeklySales
		t.VariableCosts += u.Finances.WeeklyVariableCosts
		t.TotalCosts += u.Finances.WeeklyTotalCosts
		t.Profit += u.Finances.WeeklyProfit
		t.Customers += u.WeeklyCustomers
	}
	return t
}

func (o *Operations) Shop(id string) (*BusinessUnit, error) {
	for _, u := range o.Shops {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("shop %s: %w", id, ErrNotFound)
}

func (o *Operations) HasDepartment(name string) bool {
	return slices.Contains(o.Departments, name)
}

func (o *Operations) HQRent(d *master.Data) float64 {
	if o.HQ == HQRented {
		return d.HQ.RentedWeeklyRent
	}
	return 0
}

func (p *Player) EstablishHQRented(d *master.Data) error {
	if p.Ops.HQ != HQNone {
		return fmt.Errorf("head office already %s: %w", p.Ops.HQ, ErrInvalidState)
	}
	if _, err := AttemptDebit(p.Company.Ledger, d.HQ.RentedInitialCost, "hq_setup"); err != nil {
		return err
	}
	p.Ops.HQ = HQRented
	return nil
}

// EstablishHQOwned builds a head office. A rented one is given up.
func (p *Player) EstablishHQOwned(d *master.Data) error {
	if p.Ops.HQ == HQOwned {
		return fmt.Errorf("head office already owned: %w", ErrInvalidState)
	}
	if _, err := AttemptDebit(p.Company.Ledger, d.HQ.OwnedConstructionCost, "hq_construction"); err != nil {
		return err
	}
	p.Ops.HQ = HQOwned
	return nil
}

func (p *Player) EstablishDepartment(d *master.Data, name string) error {
	if p.Ops.HQ == HQNone {
		return ErrHQRequired
	}
	dept, ok := d.Department(name)
	if !ok {
		return fmt.Errorf("department %s: %w", name, ErrNotFound)
	}
	if p.Ops.HasDepartment(dept.Name) {
		return fmt.Errorf("department %s exists: %w", dept.Name, ErrInvalidState)
	}
	if _, err := AttemptDebit(p.Company.Ledger, dept.SetupCost, "department_setup"); err != nil {
		return err
	}
	p.Ops.Departments = append(p.Ops.Departments, dept.Name)
	return nil
}

// ShopSetupCost is the base setup cost scaled by the region's multiplier.
func ShopSetupCost(d *master.Data, region master.Region) float64 {
	return math.Trunc(d.Shop.BaseSetupCost * region.SetupMultiplier)
}

// OpenShop is funded personally: the owner pays setup plus working capital,
// the company receives the capital and books the setup as its expense.
func (p *Player) OpenShop(d *master.Data, rng *RNG, regionName, name string, capital float64, week int) (*BusinessUnit, error) {
	region, ok := d.Region(regionName)
	if !ok {
		return nil, fmt.Errorf("region %s: %w", regionName, ErrNotFound)
	}
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if capital < 0 {
		return nil, ErrInvalidAmount
	}
	setup := ShopSetupCost(d, region)
	if _, err := AttemptDebit(p.Personal.Ledger, setup+capital, "business_investment"); err != nil {
		return nil, err
	}
	p.Company.Ledger.Deposit(capital, "capital_injection")
	p.Company.Ledger.RecordExpense(setup, "business_setup")

	u := newBusinessUnit(shortID("SHOP", rng), name, region, d.Shop.DefaultKind, 1, week)
	for _, item := range d.DefaultMenu {
		if m, ok := d.MenuItem(item); ok {
			u.Menu = append(u.Menu, m)
		}
	}
	p.Ops.Shops = append(p.Ops.Shops, u)
	return u, nil
}

func (p *Player) UpgradeShopEquipment(d *master.Data, shopID string) (float64, error) {
	u, err := p.Ops.Shop(shopID)
	if err != nil {
		return 0, err
	}
	if !u.CanUpgrade(d) {
		return 0, fmt.Errorf("shop %s at max equipment level: %w", shopID, ErrInvalidState)
	}
	cost := u.NextUpgradeCost(d)
	if _, err := AttemptDebit(p.Company.Ledger, cost, "equipment_upgrade"); err != nil {
		return 0, err
	}
	u.EquipmentLevel++
	return cost, nil
}

// AddMenuItem puts a master-data item on a shop's menu. Items gated by R&D
// need the unlocking project finished.
func (p *Player) AddMenuItem(d *master.Data, shopID, item string) error {
	u, err := p.Ops.Shop(shopID)
	if err != nil {
		return err
	}
	m, ok := d.MenuItem(item)
	if !ok {
		return fmt.Errorf("menu item %q: %w", item, ErrNotFound)
	}
	if m.UnlockedBy != "" && !p.Effects.Unlocked(m.Name) {
		return fmt.Errorf("%q needs %s: %w", m.Name, m.UnlockedBy, ErrNotEligible)
	}
	return u.AddMenuItem(m)
}

func (p *Player) RemoveMenuItem(shopID string, index int) error {
	u, err := p.Ops.Shop(shopID)
	if err != nil {
		return err
	}
	_, err = u.RemoveMenuItem(index)
	return err
}

// HireStaff hires from the master candidate list by index.
func (p *Player) HireStaff(d *master.Data, shopID string, candidate int) (Staff, error) {
	u, err := p.Ops.Shop(shopID)
	if err != nil {
		return Staff{}, err
	}
	if candidate < 0 || candidate >= len(d.StaffCandidates) {
		return Staff{}, fmt.Errorf("staff candidate %d: %w", candidate, ErrNotFound)
	}
	s := d.StaffCandidates[candidate]
	u.HireStaff(s)
	return s, nil
}

func (p *Player) FireStaff(shopID string, index int) error {
	u, err := p.Ops.Shop(shopID)
	if err != nil {
		return err
	}
	_, err = u.FireStaff(index)
	return err
}

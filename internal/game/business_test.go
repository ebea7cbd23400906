package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramentycoon/internal/master"
)

func testShop(t *testing.T, d *master.Data, id, region string, equipment int) *BusinessUnit {
	t.Helper()
	r, ok := d.Region(region)
	require.True(t, ok, region)
	return newBusinessUnit(id, id, r, d.Shop.DefaultKind, equipment, 0)
}

func TestAttractivenessIsPure(t *testing.T) {
	d := master.Default()
	rules := shopRules(d)
	u := testShop(t, d, "a", "Nagoya", 1)

	// sqrt(1)*10*0.4 from equipment plus 0.8*50*0.2 for an unstaffed shop
	assert.InDelta(t, 12.0, u.AttractivenessFor(rules, UnitBonuses{}), 1e-9)

	u.PrepareForCompetition(rules, UnitBonuses{})
	first := u.Attractiveness
	u.PrepareForCompetition(rules, UnitBonuses{})
	assert.Equal(t, first, u.Attractiveness)

	boosted := u.AttractivenessFor(rules, UnitBonuses{Quality: 0.1})
	assert.InDelta(t, 14.0, boosted, 1e-9)
}

func TestAllocateCustomers(t *testing.T) {
	d := master.Default()
	rules := shopRules(d)
	a := testShop(t, d, "a", "Nagoya", 1)
	b := testShop(t, d, "b", "Tokyo", 4)
	for _, u := range []*BusinessUnit{a, b} {
		u.PrepareForCompetition(rules, UnitBonuses{})
	}

	AllocateCustomers([]*BusinessUnit{a, b}, PoolGlobal, d.Shop.DefaultCustomerPool)
	assert.Equal(t, 728, a.WeeklyCustomers)
	assert.Equal(t, 971, b.WeeklyCustomers)

	AllocateCustomers([]*BusinessUnit{a, b}, PoolRegional, d.Shop.DefaultCustomerPool)
	assert.Equal(t, 700, a.WeeklyCustomers)
	assert.Equal(t, 1000, b.WeeklyCustomers)

	b.Region, b.CustomerPool = "Nagoya", 700
	AllocateCustomers([]*BusinessUnit{a, b}, PoolRegional, d.Shop.DefaultCustomerPool)
	assert.Equal(t, 300, a.WeeklyCustomers)
	assert.Equal(t, 400, b.WeeklyCustomers)
}

func TestAllocateNoAttraction(t *testing.T) {
	u := &BusinessUnit{CustomerPool: 700, WeeklyCustomers: 55}
	AllocateCustomers([]*BusinessUnit{u}, PoolGlobal, 500)
	if u.WeeklyCustomers != 0 {
		t.Fatalf("customers = %d, want 0", u.WeeklyCustomers)
	}
}

func TestFinalizeWeek(t *testing.T) {
	d := master.Default()
	rules := shopRules(d)
	u := testShop(t, d, "a", "Nagoya", 1)
	u.WeeklyCustomers = 728

	u.FinalizeWeek(rules, UnitBonuses{})
	f := u.Finances
	assert.InDelta(t, 655_200.0, f.WeeklySales, 1e-6)
	assert.InDelta(t, 196_560.0, f.WeeklyVariableCosts, 1e-6)
	assert.InDelta(t, 350_000.0, f.WeeklyActualFixed, 1e-6)
	assert.InDelta(t, 108_640.0, f.WeeklyProfit, 1e-6)

	u.FinalizeWeek(rules, UnitBonuses{CostReduction: 0.1, FixedCostReduction: 0.5})
	assert.InDelta(t, 176_904.0, u.Finances.WeeklyVariableCosts, 1e-6)
	assert.InDelta(t, 175_000.0, u.Finances.WeeklyActualFixed, 1e-6)
	assert.InDelta(t, 2*655_200.0, u.Finances.CumulativeSales, 1e-6)
}

func TestMenuAndStaff(t *testing.T) {
	d := master.Default()
	u := testShop(t, d, "a", "Nagoya", 1)
	item, ok := d.MenuItem("Shoyu Ramen")
	require.True(t, ok)

	require.NoError(t, u.AddMenuItem(item))
	assert.ErrorIs(t, u.AddMenuItem(item), ErrInvalidState)
	_, err := u.RemoveMenuItem(3)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := u.RemoveMenuItem(0)
	require.NoError(t, err)
	assert.Equal(t, "Shoyu Ramen", got.Name)

	u.HireStaff(Staff{Name: "Ken", Efficiency: 1.0, WeeklySalary: 60_000})
	_, err = u.FireStaff(1)
	assert.ErrorIs(t, err, ErrNotFound)
	s, err := u.FireStaff(0)
	require.NoError(t, err)
	assert.Equal(t, "Ken", s.Name)
}

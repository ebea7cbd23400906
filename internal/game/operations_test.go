package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramentycoon/internal/master"
)

func TestOpenShopFundedPersonally(t *testing.T) {
	d := master.Default()
	p := newPlayer(d, "Mirai", 0)

	u, err := p.OpenShop(d, NewRNG(1), "Nagoya", "Sakae", 10_000_000, 0)
	require.NoError(t, err)

	// 7M setup plus 10M capital leave the owner; the company nets 10M-7M.
	assert.Equal(t, 83_000_000.0, p.Personal.Ledger.Cash())
	assert.Equal(t, 103_000_000.0, p.Company.Ledger.Cash())
	assert.Equal(t, 7_000_000.0, p.Company.Ledger.TotalCosts())
	assert.Equal(t, "Nagoya", u.Region)
	assert.Equal(t, 350_000.0, u.Finances.WeeklyFixedCosts)
	assert.Len(t, u.Menu, 3)
	assert.Len(t, p.Ops.Shops, 1)
}

func TestOpenShopFailures(t *testing.T) {
	d := master.Default()
	p := newPlayer(d, "Mirai", 0)
	rng := NewRNG(1)

	_, err := p.OpenShop(d, rng, "Atlantis", "X", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = p.OpenShop(d, rng, "Tokyo", "Shibuya", 200_000_000, 0)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want insufficient funds", err)
	}
	assert.Equal(t, 100_000_000.0, p.Personal.Ledger.Cash())
	assert.Equal(t, 100_000_000.0, p.Company.Ledger.Cash())
	assert.Empty(t, p.Ops.Shops)
}

func TestUpgradeShopEquipment(t *testing.T) {
	d := master.Default()
	p := newPlayer(d, "Mirai", 0)
	u, err := p.OpenShop(d, NewRNG(1), "Nagoya", "Sakae", 0, 0)
	require.NoError(t, err)

	before := p.Company.Ledger.Cash()
	cost, err := p.UpgradeShopEquipment(d, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1_500_000.0, cost)
	assert.Equal(t, before-cost, p.Company.Ledger.Cash())
	assert.Equal(t, 2, u.EquipmentLevel)

	u.EquipmentLevel = 5
	_, err = p.UpgradeShopEquipment(d, u.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = p.UpgradeShopEquipment(d, "SHOP-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLockedMenuItem(t *testing.T) {
	d := master.Default()
	p := newPlayer(d, "Mirai", 0)
	u, err := p.OpenShop(d, NewRNG(1), "Nagoya", "Sakae", 0, 0)
	require.NoError(t, err)

	err = p.AddMenuItem(d, u.ID, "Legendary Golden Chuka Soba")
	assert.ErrorIs(t, err, ErrNotEligible)
	require.NoError(t, p.AddMenuItem(d, u.ID, "Tsukemen"))
	assert.Len(t, u.Menu, 4)
}

func TestHeadOfficeGatesDepartments(t *testing.T) {
	d := master.Default()
	p := newPlayer(d, "Mirai", 0)

	assert.ErrorIs(t, p.EstablishDepartment(d, "rnd"), ErrHQRequired)

	require.NoError(t, p.EstablishHQRented(d))
	assert.ErrorIs(t, p.EstablishHQRented(d), ErrInvalidState)
	assert.Equal(t, 1_500_000.0, p.Ops.HQRent(d))

	require.NoError(t, p.EstablishDepartment(d, "rnd"))
	assert.ErrorIs(t, p.EstablishDepartment(d, "rnd"), ErrInvalidState)
	assert.ErrorIs(t, p.EstablishDepartment(d, "legal"), ErrNotFound)
	assert.True(t, p.Ops.HasDepartment("rnd"))
	assert.Equal(t, 100_000_000.0-15_000_000-6_000_000, p.Company.Ledger.Cash())

	// 800M construction is beyond the company's means
	err := p.EstablishHQOwned(d)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, HQRented, p.Ops.HQ)
}

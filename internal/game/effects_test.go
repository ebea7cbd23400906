package game

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynergyRebateExpires(t *testing.T) {
	e := NewEffectsManager()
	l := NewLedger(0)
	require.NoError(t, e.AddSynergy("SYN-1", Effect{
		Kind:           EffectMaterialCostReduction,
		Name:           "shared noodle supplier",
		Value:          0.05,
		RemainingWeeks: 2,
	}))
	assert.ErrorIs(t, e.AddSynergy("SYN-1", Effect{}), ErrInvalidState)

	pass := e.WeeklyPass(l, 100_000)
	assert.InDelta(t, 5_000.0, pass.Rebate, 1e-9)
	assert.Empty(t, pass.Expired)

	pass = e.WeeklyPass(l, 100_000)
	assert.InDelta(t, 5_000.0, pass.Rebate, 1e-9)
	assert.Equal(t, []string{"SYN-1"}, pass.Expired)

	pass = e.WeeklyPass(l, 100_000)
	assert.Zero(t, pass.Rebate)
	assert.InDelta(t, 10_000.0, l.Cash(), 1e-9)
	assert.InDelta(t, -10_000.0, l.TotalCosts(), 1e-9)
}

func TestFixedSynergyAmount(t *testing.T) {
	e := NewEffectsManager()
	l := NewLedger(0)
	require.NoError(t, e.AddSynergy("SYN-2", Effect{
		Kind:           EffectFixedCostReductionTotal,
		Amount:         decimal.NewFromInt(20_000),
		RemainingWeeks: 10,
	}))
	pass := e.WeeklyPass(l, 0)
	assert.InDelta(t, 20_000.0, pass.Rebate, 1e-9)
	assert.Equal(t, 9, e.Synergies["SYN-2"].RemainingWeeks)
}

func TestCompletedProjectEffects(t *testing.T) {
	e := NewEffectsManager()
	effects := []Effect{
		{Kind: EffectQualityBoost, Value: 0.1, Permanent: true},
		{Kind: EffectCostReduction, Value: 0.05, RemainingWeeks: 1},
		{Kind: EffectNewMenuItem, Item: "Legendary Golden Chuka Soba", Permanent: true},
	}
	if !e.AddCompletedProject("RND001", effects) {
		t.Fatalf("first completion should activate")
	}
	if e.AddCompletedProject("RND001", effects) {
		t.Fatalf("second completion must be ignored")
	}
	assert.True(t, e.Unlocked("Legendary Golden Chuka Soba"))
	b := e.UnitBonuses()
	assert.InDelta(t, 0.1, b.Quality, 1e-9)
	assert.InDelta(t, 0.05, b.CostReduction, 1e-9)

	pass := e.WeeklyPass(NewLedger(0), 0)
	assert.Equal(t, []string{"RND001_cost_reduction"}, pass.Expired)
	assert.Zero(t, e.TotalBonus(EffectCostReduction))
	assert.InDelta(t, 0.1, e.TotalBonus(EffectQualityBoost), 1e-9)
}

func TestProjectEffectWithoutCountdownStays(t *testing.T) {
	e := NewEffectsManager()
	e.AddCompletedProject("RND003", []Effect{
		{Kind: EffectCostReduction, Value: 0.03},
		{Kind: EffectFixedCostReduction, Value: 0.02, RemainingWeeks: 2},
	})
	for week := 1; week <= 5; week++ {
		pass := e.WeeklyPass(NewLedger(0), 0)
		if week == 2 {
			assert.Equal(t, []string{"RND003_fixed_cost_reduction"}, pass.Expired)
		} else {
			assert.Empty(t, pass.Expired, "week %d", week)
		}
	}
	assert.InDelta(t, 0.03, e.TotalBonus(EffectCostReduction), 1e-9)
	assert.Zero(t, e.TotalBonus(EffectFixedCostReduction))
	assert.InDelta(t, 0.03, e.UnitBonuses().CostReduction, 1e-9)
}

func TestEffectKindText(t *testing.T) {
	raw, err := json.Marshal(Effect{Kind: EffectMaterialCostReduction})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"material_cost_reduction"`)

	var back Effect
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, EffectMaterialCostReduction, back.Kind)

	_, err = ParseEffectKind("teleport")
	assert.ErrorIs(t, err, ErrNotFound)
}

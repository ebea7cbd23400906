package game

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

type EffectKind int

const (
	EffectQualityBoost EffectKind = iota + 1
	EffectCostReduction
	EffectFixedCostReduction
	EffectNewMenuItem
	EffectMaterialCostReduction
	EffectFixedCostReductionTotal
)

var effectKindNames = map[EffectKind]string{
	EffectQualityBoost:            "quality_boost",
	EffectCostReduction:           "cost_reduction",
	EffectFixedCostReduction:      "fixed_cost_reduction",
	EffectNewMenuItem:             "new_menu_item",
	EffectMaterialCostReduction:   "material_cost_reduction",
	EffectFixedCostReductionTotal: "fixed_cost_reduction_total",
}

func ParseEffectKind(s string) (EffectKind, error) {
	for k, name := range effectKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("effect kind %q: %w", s, ErrNotFound)
}

func (k EffectKind) String() string {
	if name, ok := effectKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

func (k EffectKind) MarshalText() ([]byte, error) {
	name, ok := effectKindNames[k]
	if !ok {
		return nil, fmt.Errorf("effect kind %d: %w", int(k), ErrNotFound)
	}
	return []byte(name), nil
}

func (k *EffectKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEffectKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Effect is one bonus. Value is a fraction for the percentage kinds, Amount a
// weekly sum for FixedCostReductionTotal and Item a menu name for NewMenuItem.
type Effect struct {
	Kind           EffectKind      `json:"kind"`
	Name           string          `json:"name"`
	Value          float64         `json:"value,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Item           string          `json:"item,omitempty"`
	Permanent      bool            `json:"permanent"`
	RemainingWeeks int             `json:"remaining_weeks,omitempty"`
	Source         string          `json:"source"`
}

type EffectsManager struct {
	RNDBonuses        map[string]Effect `json:"rnd_bonuses"`
	Synergies         map[string]Effect `json:"synergies"`
	CompletedProjects []string          `json:"completed_projects"`
}

func NewEffectsManager() *EffectsManager {
	e := &EffectsManager{}
	e.ensureMaps()
	return e
}

func (e *EffectsManager) ensureMaps() {
	if e.RNDBonuses == nil {
		e.RNDBonuses = map[string]Effect{}
	}
	if e.Synergies == nil {
		e.Synergies = map[string]Effect{}
	}
}

func (e *EffectsManager) IsCompleted(projectID string) bool {
	return slices.Contains(e.CompletedProjects, projectID)
}

// AddCompletedProject activates a project's effects once.
func (e *EffectsManager) AddCompletedProject(projectID string, effects []Effect) bool {
	if e.IsCompleted(projectID) {
		return false
	}
	e.ensureMaps()
	e.CompletedProjects = append(e.CompletedProjects, projectID)
	for _, eff := range effects {
		eff.Source = projectID
		e.RNDBonuses[projectID+"_"+eff.Kind.String()] = eff
	}
	return true
}

func (e *EffectsManager) AddSynergy(id string, eff Effect) error {
	e.ensureMaps()
	if _, ok := e.Synergies[id]; ok {
		return fmt.Errorf("synergy %s: %w", id, ErrInvalidState)
	}
	eff.Source = id
	e.Synergies[id] = eff
	return nil
}

// UnitBonuses folds the active R&D bonuses into shop modifiers.
func (e *EffectsManager) UnitBonuses() UnitBonuses {
	var b UnitBonuses
	for _, id := range sortedKeys(e.RNDBonuses) {
		eff := e.RNDBonuses[id]
		switch eff.Kind {
		case EffectQualityBoost:
			b.Quality += eff.Value
		case EffectCostReduction:
			b.CostReduction += eff.Value
		case EffectFixedCostReduction:
			b.FixedCostReduction += eff.Value
		case EffectNewMenuItem, EffectMaterialCostReduction, EffectFixedCostReductionTotal:
		}
	}
	return b
}

func (e *EffectsManager) TotalBonus(kind EffectKind) float64 {
	total := 0.0
	for _, id := range sortedKeys(e.RNDBonuses) {
		if eff := e.RNDBonuses[id]; eff.Kind == kind {
			total += eff.Value
		}
	}
	return total
}

// Unlocked reports whether a completed project has unlocked a menu item.
func (e *EffectsManager) Unlocked(item string) bool {
	for _, eff := range e.RNDBonuses {
		if eff.Kind == EffectNewMenuItem && eff.Item == item {
			return true
		}
	}
	return false
}

type EffectsPass struct {
	Rebate  float64  `json:"rebate"`
	Expired []string `json:"expired,omitempty"`
}

// WeeklyPass credits synergy rebates against this week's costs, then counts
// down every timed effect and drops the expired ones.
func (e *EffectsManager) WeeklyPass(l *Ledger, variableCosts float64) EffectsPass {
	var pass EffectsPass
	material, fixed := 0.0, 0.0
	for _, id := range sortedKeys(e.Synergies) {
		eff := e.Synergies[id]
		if eff.RemainingWeeks <= 0 {
			delete(e.Synergies, id)
			pass.Expired = append(pass.Expired, id)
			continue
		}
		switch eff.Kind {
		case EffectMaterialCostReduction:
			material += variableCosts * eff.Value
		case EffectFixedCostReductionTotal:
			fixed += eff.Amount.InexactFloat64()
		case EffectQualityBoost, EffectCostReduction, EffectFixedCostReduction, EffectNewMenuItem:
		}
		eff.RemainingWeeks--
		if eff.RemainingWeeks <= 0 {
			delete(e.Synergies, id)
			pass.Expired = append(pass.Expired, id)
			continue
		}
		e.Synergies[id] = eff
	}
	if l.ApplyCostRebate(material, "synergy_material") {
		pass.Rebate += material
	}
	if l.ApplyCostRebate(fixed, "synergy_fixed") {
		pass.Rebate += fixed
	}

	for _, id := range sortedKeys(e.RNDBonuses) {
		eff := e.RNDBonuses[id]
		// zero weeks means the effect has no countdown
		if eff.Permanent || eff.RemainingWeeks <= 0 {
			continue
		}
		eff.RemainingWeeks--
		if eff.RemainingWeeks <= 0 {
			delete(e.RNDBonuses, id)
			pass.Expired = append(pass.Expired, id)
			continue
		}
		e.RNDBonuses[id] = eff
	}
	return pass
}

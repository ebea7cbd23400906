package master

import (
	"fmt"
	"math"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("master data %s: %s", e.Field, e.Message)
}

func (d *Data) Validate() error {
	if d.Game.StartMonth < 1 || d.Game.StartMonth > 12 {
		return ValidationError{"game.start_month", "must be in [1, 12]"}
	}
	if d.Game.StartWeek < 1 || d.Game.StartWeek > 4 {
		return ValidationError{"game.start_week", "must be in [1, 4]"}
	}
	if d.Game.SnapshotHistoryLimit <= 0 {
		return ValidationError{"game.snapshot_history_limit", "must be > 0"}
	}
	if len(d.Regions) == 0 {
		return ValidationError{"regions", "at least one region required"}
	}
	for i, r := range d.Regions {
		if r.Name == "" {
			return ValidationError{fmt.Sprintf("regions[%d].name", i), "required"}
		}
		if r.SetupMultiplier <= 0 {
			return ValidationError{fmt.Sprintf("regions[%d].setup_multiplier", i), "must be > 0"}
		}
	}
	if d.Shop.BaseSetupCost <= 0 || d.Shop.AvgSpendPerCustomer <= 0 {
		return ValidationError{"shop", "base_setup_cost and avg_spend_per_customer must be > 0"}
	}
	for _, name := range d.DefaultMenu {
		if _, ok := d.MenuItem(name); !ok {
			return ValidationError{"default_menu", fmt.Sprintf("unknown item %q", name)}
		}
	}
	if len(d.LoanProducts) == 0 {
		return ValidationError{"loan_products", "at least one product required"}
	}
	if len(d.Credit.Tiers) == 0 {
		return ValidationError{"credit.tiers", "required"}
	}
	for i := 1; i < len(d.Credit.Tiers); i++ {
		if d.Credit.Tiers[i].MinScore >= d.Credit.Tiers[i-1].MinScore {
			return ValidationError{"credit.tiers", "must be ordered by descending min_score"}
		}
	}
	if d.Margin.InitialMarginRatio <= 0 || d.Margin.InitialMarginRatio > 1 {
		return ValidationError{"margin.initial_margin_ratio", "must be in (0, 1]"}
	}
	if err := validateWeights("market.cap_tiers", capTierWeights(d.Market.CapTiers)); err != nil {
		return err
	}
	if d.Market.TickerLength < 1 {
		return ValidationError{"market.ticker_length", "must be >= 1"}
	}
	if max := int(math.Pow10(d.Market.TickerLength)); d.Market.CompanyCount > max {
		return ValidationError{"market.company_count", fmt.Sprintf("cannot exceed %d tickers", max)}
	}
	if err := validateWeights("competitors.actions", weights(d.Competitors.Actions)); err != nil {
		return err
	}
	if _, ok := d.DifficultyLevel(d.Competitors.Difficulty); !ok {
		return ValidationError{"competitors.difficulty", "no matching difficulties entry"}
	}
	if len(d.Venture.Rounds) == 0 {
		return ValidationError{"venture.rounds", "required"}
	}
	if err := validateWeights("venture.events", weights(d.Venture.Events)); err != nil {
		return err
	}
	exitWeights := make([]float64, 0, len(d.Venture.Exits))
	for _, e := range d.Venture.Exits {
		exitWeights = append(exitWeights, e.Weight)
	}
	if err := validateWeights("venture.exits", exitWeights); err != nil {
		return err
	}
	for i, lvl := range d.Venture.DDLevels {
		if lvl.Level != i {
			return ValidationError{"venture.dd_levels", "levels must be contiguous from 0"}
		}
	}
	seen := map[string]bool{}
	for _, p := range d.RNDProjects {
		if p.MinWeeks <= 0 || p.MaxWeeklyFunding <= 0 || p.PointsNeeded <= 0 {
			return ValidationError{"rnd_projects." + p.ID, "min_weeks, max_weekly_funding and points_needed must be > 0"}
		}
		for _, pre := range p.Prerequisites {
			if !seen[pre] {
				return ValidationError{"rnd_projects." + p.ID, fmt.Sprintf("prerequisite %q must be declared earlier", pre)}
			}
		}
		seen[p.ID] = true
	}
	if d.IPO.ProcessWeeks < d.IPO.RoadshowWeeks {
		return ValidationError{"ipo.process_weeks", "must be >= roadshow_weeks"}
	}
	sizeWeights := make([]float64, 0, len(d.MA.Sizes))
	for _, s := range d.MA.Sizes {
		sizeWeights = append(sizeWeights, s.Weight)
	}
	if err := validateWeights("ma.sizes", sizeWeights); err != nil {
		return err
	}
	if len(d.MA.Industries) == 0 {
		return ValidationError{"ma.industries", "required"}
	}
	return nil
}

func validateWeights(field string, ws []float64) error {
	if len(ws) == 0 {
		return ValidationError{field, "at least one entry required"}
	}
	sum := 0.0
	for _, w := range ws {
		if w < 0 {
			return ValidationError{field, "weights must be >= 0"}
		}
		sum += w
	}
	if sum <= 0 {
		return ValidationError{field, "weights must not all be zero"}
	}
	return nil
}

func weights(ws []Weighted) []float64 {
	out := make([]float64, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Weight)
	}
	return out
}

func capTierWeights(tiers []CapTier) []float64 {
	out := make([]float64, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, t.Weight)
	}
	return out
}

package game

import (
	"fmt"
	"slices"

	"ramentycoon/internal/master"
)

// ResearchProject is an R&D project in progress. Funding at the weekly cap
// completes it in the project's minimum number of weeks.
type ResearchProject struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	PointsNeeded     float64 `json:"points_needed"`
	PointsAccrued    float64 `json:"points_accrued"`
	MaxWeeklyFunding float64 `json:"max_weekly_funding"`
	PointsPerYen     float64 `json:"points_per_yen"`
	StartedWeek      int     `json:"started_week"`
	FundedThisWeek   float64 `json:"funded_this_week"`
}

func (r *ResearchProject) Progress() float64 {
	if r.PointsNeeded <= 0 {
		return 1
	}
	return min(1, r.PointsAccrued/r.PointsNeeded)
}

func projectEffects(p master.RNDProject) ([]Effect, error) {
	out := make([]Effect, 0, len(p.Effects))
	for _, pe := range p.Effects {
		kind, err := ParseEffectKind(pe.Kind)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p.ID, err)
		}
		out = append(out, Effect{
			Kind:           kind,
			Name:           p.Name,
			Value:          pe.Value,
			Item:           pe.Item,
			Permanent:      pe.Permanent,
			RemainingWeeks: pe.Weeks,
		})
	}
	return out, nil
}

// AvailableProjects lists the projects the player may start now.
func (p *Player) AvailableProjects(d *master.Data) []master.RNDProject {
	var out []master.RNDProject
	for _, proj := range d.RNDProjects {
		if p.projectStartable(proj) == nil {
			out = append(out, proj)
		}
	}
	return out
}

func (p *Player) projectStartable(proj master.RNDProject) error {
	if _, ok := p.RND[proj.ID]; ok {
		return fmt.Errorf("project %s already running: %w", proj.ID, ErrInvalidState)
	}
	if p.Effects.IsCompleted(proj.ID) {
		return fmt.Errorf("project %s already completed: %w", proj.ID, ErrInvalidState)
	}
	for _, pre := range proj.Prerequisites {
		if !p.Effects.IsCompleted(pre) {
			return fmt.Errorf("project %s needs %s: %w", proj.ID, pre, ErrNotEligible)
		}
	}
	if proj.Department != "" && !slices.Contains(p.Ops.Departments, proj.Department) {
		return fmt.Errorf("project %s needs the %s department: %w", proj.ID, proj.Department, ErrNotEligible)
	}
	return nil
}

func (p *Player) StartProject(d *master.Data, id string, week int) error {
	proj, ok := d.RNDProject(id)
	if !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err := p.projectStartable(proj); err != nil {
		return err
	}
	if _, err := AttemptDebit(p.Company.Ledger, proj.CostToStart, "rnd_start"); err != nil {
		return err
	}
	p.RND[proj.ID] = &ResearchProject{
		ID:               proj.ID,
		Name:             proj.Name,
		PointsNeeded:     proj.PointsNeeded,
		MaxWeeklyFunding: proj.MaxWeeklyFunding,
		PointsPerYen:     proj.PointsNeeded / float64(proj.MinWeeks) / proj.MaxWeeklyFunding,
		StartedWeek:      week,
	}
	return nil
}

// AllocateFunding buys research points, up to the weekly cap. It reports
// whether the project completed.
func (p *Player) AllocateFunding(d *master.Data, id string, amount float64) (bool, error) {
	proj, ok := p.RND[id]
	if !ok {
		return false, fmt.Errorf("project %s not running: %w", id, ErrNotFound)
	}
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	if proj.FundedThisWeek+amount > proj.MaxWeeklyFunding {
		return false, fmt.Errorf("weekly funding cap %.0f reached: %w", proj.MaxWeeklyFunding, ErrInvalidState)
	}
	def, ok := d.RNDProject(id)
	if !ok {
		return false, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	effects, err := projectEffects(def)
	if err != nil {
		return false, err
	}
	if _, err := AttemptDebit(p.Company.Ledger, amount, "rnd_funding"); err != nil {
		return false, err
	}
	proj.FundedThisWeek += amount
	proj.PointsAccrued += amount * proj.PointsPerYen * (1 + p.cxoBonuses(d).RNDSpeed)
	if proj.PointsAccrued < proj.PointsNeeded {
		return false, nil
	}
	p.Effects.AddCompletedProject(id, effects)
	delete(p.RND, id)
	return true, nil
}

func (p *Player) resetWeeklyFunding() {
	for _, proj := range p.RND {
		proj.FundedThisWeek = 0
	}
}

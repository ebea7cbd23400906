package game

import (
	"fmt"
	"math"

	"ramentycoon/internal/master"
)

type CXO struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Role            string  `json:"role"`
	Skill           string  `json:"skill"`
	WeeklySalary    float64 `json:"weekly_salary"`
	RecruitmentCost float64 `json:"recruitment_cost"`
}

// CXOBonuses are the company-wide effects of the hired executives.
type CXOBonuses struct {
	LoanInterestReduction float64 `json:"loan_interest_reduction"`
	OverallCostReduction  float64 `json:"overall_cost_reduction"`
	Quality               float64 `json:"quality"`
	RNDSpeed              float64 `json:"rnd_speed"`
	FixedCostReduction    float64 `json:"fixed_cost_reduction"`
	StaffEfficiency       float64 `json:"staff_efficiency"`
}

func generateCXOCandidates(rng *RNG, d *master.Data) []CXO {
	c := d.CXO
	if len(c.Roles) == 0 || len(c.Skills) == 0 {
		return nil
	}
	skillWeights := make([]float64, len(c.Skills))
	for i, s := range c.Skills {
		skillWeights[i] = s.Weight
	}
	out := make([]CXO, 0, c.CandidateCount)
	for range c.CandidateCount {
		role := c.Roles[rng.IntN(len(c.Roles))]
		skill := c.Skills[rng.Pick(skillWeights)]
		out = append(out, CXO{
			ID:              shortID("CXO", rng),
			Name:            rng.Choice(c.Names),
			Role:            role.Role,
			Skill:           skill.Level,
			WeeklySalary:    math.Round(rng.Uniform(role.Salary.Min, role.Salary.Max) * skill.SalaryMultiplier),
			RecruitmentCost: math.Round(c.RecruitmentCostBase * skill.RecruitmentMultiplier),
		})
	}
	return out
}

// cxoBonuses applies each role effect whose minimum skill the hire meets.
func (p *Player) cxoBonuses(d *master.Data) CXOBonuses {
	var b CXOBonuses
	for _, role := range sortedKeys(p.CXOs) {
		cxo := p.CXOs[role]
		def, ok := d.CXORole(role)
		if !ok {
			continue
		}
		for _, eff := range def.Effects {
			if d.SkillRank(cxo.Skill) > d.SkillRank(eff.MinSkill) {
				continue
			}
			switch eff.Kind {
			case "loan_interest_reduction":
				b.LoanInterestReduction += eff.Value
			case "overall_cost_reduction":
				b.OverallCostReduction += eff.Value
			case "quality_boost":
				b.Quality += eff.Value
			case "rnd_speed_boost":
				b.RNDSpeed += eff.Value
			case "fixed_cost_reduction":
				b.FixedCostReduction += eff.Value
			case "staff_efficiency_boost":
				b.StaffEfficiency += eff.Value
			}
		}
	}
	return b
}

func (p *Player) CXOSalaries() float64 {
	total := 0.0
	for _, role := range sortedKeys(p.CXOs) {
		total += p.CXOs[role].WeeklySalary
	}
	return total
}

// hireCXO takes a candidate off the market into an empty role slot.
func (s *Session) hireCXO(candidateID string) (CXO, error) {
	p := s.Player
	idx := -1
	for i, c := range s.CXOCandidates {
		if c.ID == candidateID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return CXO{}, fmt.Errorf("candidate %s: %w", candidateID, ErrNotFound)
	}
	cand := s.CXOCandidates[idx]
	if _, taken := p.CXOs[cand.Role]; taken {
		return CXO{}, fmt.Errorf("%s seat occupied: %w", cand.Role, ErrInvalidState)
	}
	if len(p.CXOs) >= s.Master.CXO.MaxPerCompany {
		return CXO{}, fmt.Errorf("at most %d executives: %w", s.Master.CXO.MaxPerCompany, ErrInvalidState)
	}
	if _, err := AttemptDebit(p.Company.Ledger, cand.RecruitmentCost, "cxo_recruitment"); err != nil {
		return CXO{}, err
	}
	p.CXOs[cand.Role] = cand
	s.CXOCandidates = append(s.CXOCandidates[:idx], s.CXOCandidates[idx+1:]...)
	return cand, nil
}

func (p *Player) FireCXO(role string) (CXO, error) {
	c, ok := p.CXOs[role]
	if !ok {
		return CXO{}, fmt.Errorf("no %s employed: %w", role, ErrInvalidState)
	}
	delete(p.CXOs, role)
	return c, nil
}

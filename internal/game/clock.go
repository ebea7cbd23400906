package game

import "fmt"

type Phase string

const (
	PhaseBoom      Phase = "boom"
	PhaseNormal    Phase = "normal"
	PhaseRecession Phase = "recession"
)

const (
	minWeeksInPhase    = 24
	phaseChangeChance  = 1.0 / 48
	phaseImpactPerWeek = 0.002
)

var (
	phaseOrder   = []Phase{PhaseBoom, PhaseNormal, PhaseRecession}
	phaseWeights = []float64{0.3, 0.4, 0.3}
)

type Clock struct {
	Year              int   `json:"year"`
	Month             int   `json:"month"`
	Week              int   `json:"week"`
	TotalWeeksElapsed int   `json:"total_weeks_elapsed"`
	Phase             Phase `json:"phase"`
	WeeksInPhase      int   `json:"weeks_in_phase"`
}

func NewClock(year, month, week int) Clock {
	return Clock{Year: year, Month: month, Week: week, Phase: PhaseNormal}
}

// AdvanceWeek moves the calendar forward one week and reports whether the
// economic phase changed.
func (c *Clock) AdvanceWeek(rng *RNG) bool {
	c.TotalWeeksElapsed++
	c.Week++
	if c.Week > WeeksPerMonth {
		c.Week = 1
		c.Month++
		if c.Month > MonthsPerYear {
			c.Month = 1
			c.Year++
		}
	}
	c.WeeksInPhase++
	if c.WeeksInPhase <= minWeeksInPhase || !rng.Chance(phaseChangeChance) {
		return false
	}
	next := phaseOrder[rng.Pick(phaseWeights)]
	if next == c.Phase {
		return false
	}
	c.Phase = next
	c.WeeksInPhase = 0
	return true
}

func (c Clock) PhaseImpact() float64 {
	switch c.Phase {
	case PhaseBoom:
		return phaseImpactPerWeek
	case PhaseRecession:
		return -phaseImpactPerWeek
	default:
		return 0
	}
}

func (c Clock) IsQuarterEnd() bool {
	return c.Month%3 == 0 && c.Week == WeeksPerMonth
}

func (c Clock) Quarter() int {
	return (c.Month-1)/3 + 1
}

func (c Clock) String() string {
	return fmt.Sprintf("%d-%02d W%d (%s)", c.Year, c.Month, c.Week, c.Phase)
}

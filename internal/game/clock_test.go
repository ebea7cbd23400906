package game

import "testing"

func TestClockCalendar(t *testing.T) {
	c := NewClock(2025, 6, 2)
	rng := NewRNG(3)

	c.AdvanceWeek(rng)
	c.AdvanceWeek(rng)
	if c.Month != 6 || c.Week != 4 || !c.IsQuarterEnd() {
		t.Fatalf("clock = %s, want the last week of June as a quarter end", c.String())
	}
	c.AdvanceWeek(rng)
	if c.Month != 7 || c.Week != 1 || c.IsQuarterEnd() {
		t.Fatalf("clock = %s, want July W1", c.String())
	}
	if c.Quarter() != 3 {
		t.Fatalf("quarter = %d, want 3", c.Quarter())
	}

	c = Clock{Year: 2025, Month: 12, Week: 4, Phase: PhaseNormal}
	c.AdvanceWeek(rng)
	if c.Year != 2026 || c.Month != 1 || c.Week != 1 {
		t.Fatalf("year rollover gave %s", c.String())
	}
}

func TestPhaseHoldsForMinimumWeeks(t *testing.T) {
	c := NewClock(2025, 6, 2)
	rng := NewRNG(11)
	for i := range minWeeksInPhase {
		if c.AdvanceWeek(rng) {
			t.Fatalf("phase changed after %d weeks", i+1)
		}
	}
	if c.Phase != PhaseNormal || c.TotalWeeksElapsed != minWeeksInPhase {
		t.Fatalf("clock = %+v", c)
	}
}

func TestPhaseImpact(t *testing.T) {
	for phase, want := range map[Phase]float64{
		PhaseBoom:      phaseImpactPerWeek,
		PhaseNormal:    0,
		PhaseRecession: -phaseImpactPerWeek,
	} {
		if got := (Clock{Phase: phase}).PhaseImpact(); got != want {
			t.Fatalf("%s impact = %v, want %v", phase, got, want)
		}
	}
}

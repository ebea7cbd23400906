package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func researchSession(t *testing.T) *Session {
	t.Helper()
	s := testSession(t, 13)
	require.NoError(t, s.EstablishHQRented())
	require.NoError(t, s.EstablishDepartment("rnd"))
	return s
}

func TestResearchCompletes(t *testing.T) {
	s := researchSession(t)
	p := s.Player
	require.NoError(t, s.StartProject("RND002"))
	assert.ErrorIs(t, s.StartProject("RND002"), ErrInvalidState)

	weeks := 0
	for done := false; !done; {
		weeks++
		if weeks > 30 {
			t.Fatalf("RND002 still running after %d funded weeks", weeks-1)
		}
		var err error
		done, err = s.AllocateFunding("RND002", 150_000)
		require.NoError(t, err)
		if !done {
			_, err = s.AllocateFunding("RND002", 1)
			assert.ErrorIs(t, err, ErrInvalidState, "weekly cap")
			p.resetWeeklyFunding()
		}
	}
	assert.GreaterOrEqual(t, weeks, 26)
	assert.LessOrEqual(t, weeks, 27)

	assert.True(t, p.Effects.IsCompleted("RND002"))
	assert.NotContains(t, p.RND, "RND002")
	assert.InDelta(t, 0.05, p.Effects.TotalBonus(EffectQualityBoost), 1e-9)
	assert.ErrorIs(t, s.StartProject("RND002"), ErrInvalidState)
	_, err := s.AllocateFunding("RND002", 1_000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllocateFundingRejects(t *testing.T) {
	s := researchSession(t)
	require.NoError(t, s.StartProject("RND001"))
	proj := s.Player.RND["RND001"]

	cases := []struct {
		name   string
		id     string
		amount float64
		want   error
	}{
		{"unknown project", "RND999", 1_000, ErrNotFound},
		{"zero", "RND001", 0, ErrInvalidAmount},
		{"over the weekly cap", "RND001", proj.MaxWeeklyFunding + 1, ErrInvalidState},
	}
	for _, tc := range cases {
		cash := s.Player.Company.Ledger.Cash()
		_, err := s.AllocateFunding(tc.id, tc.amount)
		if !assert.ErrorIs(t, err, tc.want, tc.name) {
			continue
		}
		assert.Equal(t, cash, s.Player.Company.Ledger.Cash(), tc.name)
		assert.Zero(t, proj.PointsAccrued, tc.name)
	}
}

func TestAllocateFundingBadEffectKeepsCash(t *testing.T) {
	s := researchSession(t)
	require.NoError(t, s.StartProject("RND001"))
	for i := range s.Master.RNDProjects {
		if s.Master.RNDProjects[i].ID == "RND001" {
			s.Master.RNDProjects[i].Effects[0].Kind = "teleport"
		}
	}
	cash := s.Player.Company.Ledger.Cash()

	_, err := s.AllocateFunding("RND001", 100_000)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, cash, s.Player.Company.Ledger.Cash())
	proj := s.Player.RND["RND001"]
	require.NotNil(t, proj)
	assert.Zero(t, proj.PointsAccrued)
	assert.Zero(t, proj.FundedThisWeek)
}

func testCXO(id, role, skill string) CXO {
	return CXO{ID: id, Name: "Kengo Takagi", Role: role, Skill: skill, WeeklySalary: 1_000_000, RecruitmentCost: 5_000_000}
}

func TestHireCXO(t *testing.T) {
	s := testSession(t, 13)
	p := s.Player
	s.CXOCandidates = []CXO{
		testCXO("CXO-1", "CTO", "A"),
		testCXO("CXO-2", "CTO", "S"),
		testCXO("CXO-3", "CFO", "B"),
		testCXO("CXO-4", "CMO", "C"),
		testCXO("CXO-5", "COO", "S"),
	}
	cash := p.Company.Ledger.Cash()

	hired, err := s.HireCXO("CXO-1")
	require.NoError(t, err)
	assert.Equal(t, "CTO", hired.Role)
	assert.InDelta(t, cash-5_000_000, p.Company.Ledger.Cash(), 0.001)
	assert.Len(t, s.CXOCandidates, 4)

	_, err = s.HireCXO("CXO-1")
	assert.ErrorIs(t, err, ErrNotFound, "a hired candidate leaves the pool")
	_, err = s.HireCXO("CXO-2")
	assert.ErrorIs(t, err, ErrInvalidState, "the CTO seat is taken")

	_, err = s.HireCXO("CXO-3")
	require.NoError(t, err)
	_, err = s.HireCXO("CXO-4")
	require.NoError(t, err)
	_, err = s.HireCXO("CXO-5")
	assert.ErrorIs(t, err, ErrInvalidState, "three executives at most")
	assert.Len(t, p.CXOs, 3)
	assert.InDelta(t, 3_000_000.0, p.CXOSalaries(), 0.001)

	fired, err := s.FireCXO("cmo")
	require.NoError(t, err)
	assert.Equal(t, "CXO-4", fired.ID)
	_, err = s.HireCXO("CXO-5")
	assert.NoError(t, err)
}

func TestCXOBonusesNeedSkill(t *testing.T) {
	cases := []struct {
		skill string
		want  float64
	}{
		{"S", 0.25},
		{"A", 0.25},
		{"B", 0},
		{"C", 0},
	}
	for _, tc := range cases {
		s := testSession(t, 13)
		s.Player.CXOs["CTO"] = testCXO("CXO-1", "CTO", tc.skill)
		b := s.Player.cxoBonuses(s.Master)
		if b.RNDSpeed != tc.want {
			t.Fatalf("CTO skill %s: rnd speed %v, want %v", tc.skill, b.RNDSpeed, tc.want)
		}
	}

	s := testSession(t, 13)
	s.Player.CXOs["CFO"] = testCXO("CXO-1", "CFO", "S")
	b := s.Player.cxoBonuses(s.Master)
	assert.InDelta(t, 0.1, b.LoanInterestReduction, 1e-9)
	assert.InDelta(t, 0.01, b.OverallCostReduction, 1e-9)
}

func TestCTOSpeedsResearch(t *testing.T) {
	s := researchSession(t)
	s.Player.CXOs["CTO"] = testCXO("CXO-1", "CTO", "A")
	require.NoError(t, s.StartProject("RND002"))
	proj := s.Player.RND["RND002"]

	_, err := s.AllocateFunding("RND002", 150_000)
	require.NoError(t, err)
	assert.InDelta(t, 800.0/26*1.25, proj.PointsAccrued, 1e-6)
}

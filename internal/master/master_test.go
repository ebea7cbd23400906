package master

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	d := Default()

	require.Len(t, d.Regions, 7)
	nagoya, ok := d.Region("Nagoya")
	require.True(t, ok)
	assert.Equal(t, 1.0, nagoya.SetupMultiplier)
	assert.Equal(t, 350000.0, nagoya.RentBase)

	assert.Equal(t, 7_000_000.0, d.Shop.BaseSetupCost)
	assert.Equal(t, 900.0, d.Shop.AvgSpendPerCustomer)
	assert.Len(t, d.DefaultMenu, 3)

	assert.Equal(t, "BBB", d.CreditTier(d.Credit.DefaultScore).Rating)
	assert.Equal(t, "AAA", d.CreditTier(950).Rating)
	assert.Equal(t, "D", d.CreditTier(-5).Rating)

	assert.Equal(t, 0, d.RoundIndex("SEED"))
	assert.Equal(t, 5, d.RoundIndex("SERIES_E"))
	assert.Equal(t, -1, d.RoundIndex("SERIES_Z"))
}

func TestShopKindFallback(t *testing.T) {
	d := Default()
	k := d.ShopKind("unknown-kind")
	if k.UpgradeCostBase != 500_000 || k.UpgradeCostFactor != 1_000_000 || k.MaxEquipmentLevel != 5 {
		t.Fatalf("unexpected fallback kind: %+v", k)
	}
}

func TestDigestDeterministic(t *testing.T) {
	d := Default()
	a, err := d.Digest()
	require.NoError(t, err)
	b, err := Default().Digest()
	require.NoError(t, err)
	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.yaml")
	raw := strings.Replace(string(defaultYAML), "game:\n", "game:\n  not_a_field: 1\n", 1)
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_a_field")
}

func TestValidateWeights(t *testing.T) {
	d := Default()
	d.Venture.Events = []Weighted{{Name: "NEXT_ROUND", Weight: 0}}
	err := d.Validate()
	require.Error(t, err)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "venture.events", verr.Field)
}

func TestValidatePrerequisiteOrder(t *testing.T) {
	d := Default()
	d.RNDProjects[0].Prerequisites = []string{"RND004"}
	if err := d.Validate(); err == nil {
		t.Fatalf("expected prerequisite ordering error")
	}
}

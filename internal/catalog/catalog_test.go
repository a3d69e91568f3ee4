package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicbench/council-cli/internal/model"
)

func TestBuiltin(t *testing.T) {
	t.Parallel()

	c, err := Builtin()
	require.NoError(t, err)

	t.Run("full definition set", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 14, c.Len())
	})

	t.Run("every category is populated", func(t *testing.T) {
		t.Parallel()
		for _, cat := range model.Categories() {
			assert.NotEmpty(t, c.ByCategory(cat), string(cat))
		}
	})

	t.Run("definitions keep catalog order", func(t *testing.T) {
		t.Parallel()
		defs := c.Definitions()
		assert.Equal(t, "rates_revenue_per_capita", defs[0].CanonicalName)
		assert.Equal(t, "local_employment_rate", defs[len(defs)-1].CanonicalName)
	})

	t.Run("lookup known and unknown", func(t *testing.T) {
		t.Parallel()
		d, ok := c.Lookup("waste_recycling_rate")
		require.True(t, ok)
		assert.Equal(t, model.CategoryEnvironmental, d.Category)
		assert.False(t, d.LowerIsBetter)

		_, ok = c.Lookup("not_a_metric")
		assert.False(t, ok)
	})

	t.Run("per capita marker", func(t *testing.T) {
		t.Parallel()
		d, _ := c.Lookup("rates_revenue_per_capita")
		assert.True(t, d.PerCapita())
		d, _ = c.Lookup("operating_deficit_ratio")
		assert.False(t, d.PerCapita())
	})

	t.Run("eight region synonym packs", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, c.Regions(), 8)
		assert.NotNil(t, c.RegionTable("Victoria"))
		assert.Nil(t, c.RegionTable("Atlantis"))
	})
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	valid := Definition{
		CanonicalName:        "test_metric",
		DisplayName:          "Test Metric",
		Category:             model.CategoryFinancial,
		ExpectedAvailability: 0.5,
	}

	t.Run("duplicate canonical name", func(t *testing.T) {
		t.Parallel()
		_, err := New([]Definition{valid, valid}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("empty canonical name", func(t *testing.T) {
		t.Parallel()
		d := valid
		d.CanonicalName = ""
		_, err := New([]Definition{d}, nil)
		assert.Error(t, err)
	})

	t.Run("unknown category", func(t *testing.T) {
		t.Parallel()
		d := valid
		d.Category = "fiscal"
		_, err := New([]Definition{d}, nil)
		assert.Error(t, err)
	})

	t.Run("availability outside range", func(t *testing.T) {
		t.Parallel()
		d := valid
		d.ExpectedAvailability = 1.2
		_, err := New([]Definition{d}, nil)
		assert.Error(t, err)
	})

	t.Run("malformed derivation formula", func(t *testing.T) {
		t.Parallel()
		d := valid
		d.DerivationFormula = "a +* b"
		_, err := New([]Definition{d}, nil)
		assert.Error(t, err)
	})

	t.Run("synonyms must reference known metrics", func(t *testing.T) {
		t.Parallel()
		syn := RegionSynonyms{"Victoria": {"ghost_metric": {"alias"}}}
		_, err := New([]Definition{valid}, syn)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost_metric")
	})

	t.Run("valid set constructs", func(t *testing.T) {
		t.Parallel()
		syn := RegionSynonyms{"Victoria": {"test_metric": {"local_name"}}}
		c, err := New([]Definition{valid}, syn)
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
	})
}

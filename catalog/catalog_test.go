package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapResolver resolves credentials from a fixed set
type mapResolver map[string]bool

func (r mapResolver) Resolve(name string) bool { return r[name] }

func testModels() []ModelCapability {
	return []ModelCapability{
		{ID: "premium-a", BackendFamily: "anthropic", Tier: TierPremium, CostPerMillionInput: 15.0, CostPerMillionOutput: 75.0, CredentialRequirement: "KEY_A"},
		{ID: "premium-b", BackendFamily: "anthropic", Tier: TierPremium, CostPerMillionInput: 3.0, CostPerMillionOutput: 15.0, CredentialRequirement: "KEY_A"},
		{ID: "standard-a", BackendFamily: "openrouter", Tier: TierStandard, CostPerMillionInput: 0.3, CostPerMillionOutput: 0.85, CredentialRequirement: "KEY_B"},
		{ID: "standard-b", BackendFamily: "anthropic", Tier: TierStandard, CostPerMillionInput: 0.8, CostPerMillionOutput: 4.0, CredentialRequirement: "KEY_A"},
		{ID: "basic-a", BackendFamily: "local", Tier: TierBasic, BaseURLRequirement: "URL_C"},
	}
}

func newTestCatalog(t *testing.T, resolver CredentialResolver) *Catalog {
	t.Helper()
	c, err := New(testModels(), resolver)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Run("rejects empty model list", func(t *testing.T) {
		_, err := New(nil, mapResolver{})
		assert.ErrorIs(t, err, ErrNoModels)
	})

	t.Run("preserves insertion order", func(t *testing.T) {
		c := newTestCatalog(t, mapResolver{})
		all := c.All()
		require.Len(t, all, 5)
		assert.Equal(t, "premium-a", all[0].ID)
		assert.Equal(t, "basic-a", all[4].ID)
	})
}

func TestCatalog_Get(t *testing.T) {
	c := newTestCatalog(t, mapResolver{})

	t.Run("known id", func(t *testing.T) {
		m, ok := c.Get("standard-a")
		require.True(t, ok)
		assert.Equal(t, "openrouter", m.BackendFamily)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, ok := c.Get("nope")
		assert.False(t, ok)
	})
}

func TestCatalog_FilterByTier(t *testing.T) {
	c := newTestCatalog(t, mapResolver{})

	premium := c.FilterByTier(TierPremium)
	require.Len(t, premium, 2)
	assert.Equal(t, "premium-a", premium[0].ID)
	assert.Equal(t, "premium-b", premium[1].ID)

	assert.Empty(t, c.FilterByTier(7))
}

func TestCatalog_FilterAvailable(t *testing.T) {
	resolver := mapResolver{"KEY_A": true, "URL_C": true}
	c := newTestCatalog(t, resolver)

	t.Run("drops models with unresolved credentials", func(t *testing.T) {
		available := c.FilterAvailable(c.All())
		ids := make([]string, 0, len(available))
		for _, m := range available {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, []string{"premium-a", "premium-b", "standard-b", "basic-a"}, ids)
	})

	t.Run("availability is live per call", func(t *testing.T) {
		resolver["KEY_B"] = true
		available := c.FilterAvailable(c.FilterByTier(TierStandard))
		assert.Len(t, available, 2)

		delete(resolver, "KEY_B")
		available = c.FilterAvailable(c.FilterByTier(TierStandard))
		assert.Len(t, available, 1)
	})
}

func TestCatalog_RankByCost(t *testing.T) {
	c := newTestCatalog(t, mapResolver{})

	t.Run("ascending by combined unit cost", func(t *testing.T) {
		ranked := c.RankByCost(c.FilterByTier(TierPremium))
		require.Len(t, ranked, 2)
		assert.Equal(t, "premium-b", ranked[0].ID)
		assert.Equal(t, "premium-a", ranked[1].ID)
	})

	t.Run("ties preserve input order", func(t *testing.T) {
		models := []ModelCapability{
			{ID: "x", CostPerMillionInput: 1, CostPerMillionOutput: 2},
			{ID: "y", CostPerMillionInput: 2, CostPerMillionOutput: 1},
			{ID: "z", CostPerMillionInput: 0, CostPerMillionOutput: 1},
		}
		ranked := c.RankByCost(models)
		assert.Equal(t, "z", ranked[0].ID)
		assert.Equal(t, "x", ranked[1].ID)
		assert.Equal(t, "y", ranked[2].ID)
	})

	t.Run("does not mutate its input", func(t *testing.T) {
		models := c.FilterByTier(TierPremium)
		_ = c.RankByCost(models)
		assert.Equal(t, "premium-a", models[0].ID)
	})
}

func TestCatalog_CostFor(t *testing.T) {
	c := newTestCatalog(t, mapResolver{})

	t.Run("computes from unit prices", func(t *testing.T) {
		// premium-b: $3/M input, $15/M output
		cost, ok := c.CostFor("premium-b", 1_000_000, 200_000)
		require.True(t, ok)
		assert.InDelta(t, 3.0+3.0, cost, 1e-9)
	})

	t.Run("unknown model", func(t *testing.T) {
		_, ok := c.CostFor("nope", 100, 100)
		assert.False(t, ok)
	})
}

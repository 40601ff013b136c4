package catalog

import (
	"errors"
	"sort"
)

// Quality tiers. A model satisfies exactly one tier; a task category maps to
// the tier it requires.
const (
	TierBasic    = 1 // cheap/fast
	TierStandard = 2 // intermediate
	TierPremium  = 3 // hard/premium
)

// ErrNoModels is returned when a catalog is constructed with no entries
var ErrNoModels = errors.New("catalog has no models")

// ModelCapability describes one backend+model pairing. Entries are immutable
// after load; only availability is dynamic.
type ModelCapability struct {
	// ID is the unique model identifier
	ID string

	// BackendFamily names the adapter that serves this model
	BackendFamily string

	// Tier is the quality class this model satisfies (1..3)
	Tier int

	// Unit prices in USD per million tokens
	CostPerMillionInput  float64
	CostPerMillionOutput float64

	// Descriptive fields, kept for ranking extensions
	MaxContextTokens int
	AvgLatencyMs     int
	QualityScore     float64

	// Capability flags
	SupportsMultimodal bool
	SupportsToolCalls  bool

	// CredentialRequirement names the credential needed for this backend.
	// Empty means none is required.
	CredentialRequirement string

	// BaseURLRequirement names the base-address setting for self-hosted
	// backends. Empty means none is required.
	BaseURLRequirement string

	resolver CredentialResolver
}

// UnitCost returns the combined input+output unit price used for ranking.
func (m ModelCapability) UnitCost() float64 {
	return m.CostPerMillionInput + m.CostPerMillionOutput
}

// IsAvailable reports whether every credential and address this model needs
// is currently resolvable. The check is live on every call.
func (m ModelCapability) IsAvailable() bool {
	resolver := m.resolver
	if resolver == nil {
		resolver = EnvResolver{}
	}
	if m.CredentialRequirement != "" && !resolver.Resolve(m.CredentialRequirement) {
		return false
	}
	if m.BaseURLRequirement != "" && !resolver.Resolve(m.BaseURLRequirement) {
		return false
	}
	return true
}

// Catalog is the load-once table of model capabilities. All methods are pure
// queries; the catalog never mutates after construction and needs no
// synchronization at request time.
type Catalog struct {
	models []ModelCapability
	byID   map[string]int
}

// New builds a catalog from already-parsed capability records, wiring the
// given resolver into every entry. Insertion order is preserved.
func New(models []ModelCapability, resolver CredentialResolver) (*Catalog, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}

	c := &Catalog{
		models: make([]ModelCapability, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	for i, m := range models {
		m.resolver = resolver
		c.models[i] = m
		c.byID[m.ID] = i
	}
	return c, nil
}

// Get returns the capability record for id. The second return is false for
// an unknown id; callers decide how to react.
func (c *Catalog) Get(id string) (ModelCapability, bool) {
	i, ok := c.byID[id]
	if !ok {
		return ModelCapability{}, false
	}
	return c.models[i], true
}

// All returns every catalog entry in insertion order.
func (c *Catalog) All() []ModelCapability {
	out := make([]ModelCapability, len(c.models))
	copy(out, c.models)
	return out
}

// FilterByTier returns all entries with the given tier, in catalog-insertion
// order.
func (c *Catalog) FilterByTier(tier int) []ModelCapability {
	var out []ModelCapability
	for _, m := range c.models {
		if m.Tier == tier {
			out = append(out, m)
		}
	}
	return out
}

// FilterAvailable returns the subset of models whose credentials currently
// resolve.
func (c *Catalog) FilterAvailable(models []ModelCapability) []ModelCapability {
	var out []ModelCapability
	for _, m := range models {
		if m.IsAvailable() {
			out = append(out, m)
		}
	}
	return out
}

// RankByCost sorts models ascending by combined unit cost. The sort is
// stable: ties preserve input order, which keeps candidate selection
// deterministic.
func (c *Catalog) RankByCost(models []ModelCapability) []ModelCapability {
	out := make([]ModelCapability, len(models))
	copy(out, models)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UnitCost() < out[j].UnitCost()
	})
	return out
}

// CostFor computes the metered cost of a completion from the catalog's unit
// prices. The second return is false for a model not in the catalog.
func (c *Catalog) CostFor(modelID string, inputTokens, outputTokens int) (float64, bool) {
	m, ok := c.Get(modelID)
	if !ok {
		return 0, false
	}
	cost := float64(inputTokens)/1_000_000*m.CostPerMillionInput +
		float64(outputTokens)/1_000_000*m.CostPerMillionOutput
	return cost, true
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return len(c.models)
}

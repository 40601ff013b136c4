package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/assistantd/llm-router/catalog"
)

// CatalogDocument is the declarative model catalog. It is parsed once at
// process start; the resulting catalog never mutates afterwards.
type CatalogDocument struct {
	Models  []ModelEntry  `yaml:"models" validate:"required,min=1,dive"`
	Routing RoutingPolicy `yaml:"routing"`
}

// ModelEntry declares one backend+model pairing
type ModelEntry struct {
	ID                   string  `yaml:"id" validate:"required"`
	BackendFamily        string  `yaml:"backend_family" validate:"required"`
	Tier                 int     `yaml:"tier" validate:"required,min=1,max=3"`
	CostPerMillionInput  float64 `yaml:"cost_per_million_input" validate:"gte=0"`
	CostPerMillionOutput float64 `yaml:"cost_per_million_output" validate:"gte=0"`
	MaxContextTokens     int     `yaml:"max_context_tokens" validate:"gte=0"`
	AvgLatencyMs         int     `yaml:"avg_latency_ms" validate:"gte=0"`
	QualityScore         float64 `yaml:"quality_score" validate:"gte=0,lte=1"`
	SupportsMultimodal   bool    `yaml:"supports_multimodal"`
	SupportsToolCalls    bool    `yaml:"supports_tool_calls"`
	CredentialEnv        string  `yaml:"credential_env"`
	BaseURLEnv           string  `yaml:"base_url_env"`
}

// RoutingPolicy declares the task-category table and degradation threshold
type RoutingPolicy struct {
	TaskTiers        map[string]int `yaml:"task_tiers" validate:"omitempty,dive,min=1,max=3"`
	DegradeThreshold float64        `yaml:"budget_threshold" validate:"gte=0,lte=1"`
}

// DefaultTaskTiers returns the platform's task-category table. Document
// entries override these; unknown categories resolve to the standard tier.
func DefaultTaskTiers() map[string]int {
	return map[string]int{
		"chat":               catalog.TierPremium,
		"reasoning":          catalog.TierPremium,
		"fact_extraction":    catalog.TierStandard,
		"summarization":      catalog.TierStandard,
		"background":         catalog.TierStandard,
		"simple":             catalog.TierBasic,
		"tool_call":          catalog.TierBasic,
		"inter_agent":        catalog.TierBasic,
		"importance_scoring": catalog.TierBasic,
	}
}

// LoadCatalogDocument reads and validates the catalog document at path
func LoadCatalogDocument(path string) (*CatalogDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog document: %w", err)
	}

	var doc CatalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog document: %w", err)
	}

	if err := validator.New().Struct(&doc); err != nil {
		return nil, fmt.Errorf("invalid catalog document: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Models))
	for _, m := range doc.Models {
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("invalid catalog document: duplicate model id %q", m.ID)
		}
		seen[m.ID] = struct{}{}
	}

	return &doc, nil
}

// Capabilities converts the document's model entries into catalog records,
// preserving document order.
func (d *CatalogDocument) Capabilities() []catalog.ModelCapability {
	models := make([]catalog.ModelCapability, 0, len(d.Models))
	for _, m := range d.Models {
		models = append(models, catalog.ModelCapability{
			ID:                    m.ID,
			BackendFamily:         m.BackendFamily,
			Tier:                  m.Tier,
			CostPerMillionInput:   m.CostPerMillionInput,
			CostPerMillionOutput:  m.CostPerMillionOutput,
			MaxContextTokens:      m.MaxContextTokens,
			AvgLatencyMs:          m.AvgLatencyMs,
			QualityScore:          m.QualityScore,
			SupportsMultimodal:    m.SupportsMultimodal,
			SupportsToolCalls:     m.SupportsToolCalls,
			CredentialRequirement: m.CredentialEnv,
			BaseURLRequirement:    m.BaseURLEnv,
		})
	}
	return models
}

// TaskTiers merges the document's task table over the platform defaults
func (d *CatalogDocument) TaskTiers() map[string]int {
	tiers := DefaultTaskTiers()
	for category, tier := range d.Routing.TaskTiers {
		tiers[category] = tier
	}
	return tiers
}

package handlers

import (
	"net/http"

	"github.com/assistantd/llm-router/app"
	"github.com/assistantd/llm-router/utils"
)

// ModelSummary is one catalog entry in the models listing. Availability is
// evaluated live at request time.
type ModelSummary struct {
	ID                   string  `json:"id"`
	BackendFamily        string  `json:"backend_family"`
	Tier                 int     `json:"tier"`
	CostPerMillionInput  float64 `json:"cost_per_million_input"`
	CostPerMillionOutput float64 `json:"cost_per_million_output"`
	SupportsMultimodal   bool    `json:"supports_multimodal"`
	SupportsToolCalls    bool    `json:"supports_tool_calls"`
	Available            bool    `json:"available"`
}

// ModelsHandler lists the catalog in insertion order
func ModelsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models := deps.Catalog.All()
		out := make([]ModelSummary, 0, len(models))
		for _, m := range models {
			out = append(out, ModelSummary{
				ID:                   m.ID,
				BackendFamily:        m.BackendFamily,
				Tier:                 m.Tier,
				CostPerMillionInput:  m.CostPerMillionInput,
				CostPerMillionOutput: m.CostPerMillionOutput,
				SupportsMultimodal:   m.SupportsMultimodal,
				SupportsToolCalls:    m.SupportsToolCalls,
				Available:            m.IsAvailable(),
			})
		}
		_ = utils.WriteOK(w, map[string]interface{}{"models": out})
	}
}

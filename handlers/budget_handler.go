package handlers

import (
	"net/http"
	"strconv"

	"github.com/assistantd/llm-router/app"
	"github.com/assistantd/llm-router/utils"
)

// BudgetSummaryHandler returns the current day's spend summary
func BudgetSummaryHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Tracker.GetSummary())
	}
}

// UsageHistoryHandler returns recent usage ledger rows, newest first.
// Responds 404 when no ledger database is configured.
func UsageHistoryHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Usage == nil {
			_ = utils.WriteNotFound(w, "usage ledger is not configured")
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 1000 {
				_ = utils.WriteBadRequest(w, "limit must be an integer between 1 and 1000")
				return
			}
			limit = parsed
		}

		entries, err := deps.Usage.ListRecent(r.Context(), limit)
		if err != nil {
			_ = utils.WriteInternalServerError(w, "failed to read usage ledger")
			return
		}
		_ = utils.WriteOK(w, map[string]interface{}{"entries": entries})
	}
}

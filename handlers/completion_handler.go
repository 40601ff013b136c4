// Package handlers implements the gateway's HTTP endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/assistantd/llm-router/app"
	"github.com/assistantd/llm-router/audit"
	"github.com/assistantd/llm-router/backends"
	"github.com/assistantd/llm-router/router"
	"github.com/assistantd/llm-router/utils"
)

// CompletionHandler routes a completion request and returns the resolved
// response. Routing failures map to gateway-level status codes: 503 when no
// model is configured at all, 502 when every candidate failed.
func CompletionHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backends.CompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "invalid request body")
			return
		}
		if len(req.Messages) == 0 {
			_ = utils.WriteBadRequest(w, "messages must not be empty")
			return
		}
		for _, msg := range req.Messages {
			if msg.Role == "" {
				_ = utils.WriteBadRequest(w, "message role must not be empty")
				return
			}
		}

		start := time.Now()
		resp, err := deps.Router.Route(r.Context(), &req)
		if err != nil {
			writeRoutingError(w, deps, err)
			return
		}

		recordUsage(r, deps, &req, resp, time.Since(start))
		_ = utils.WriteOK(w, resp)
	}
}

func writeRoutingError(w http.ResponseWriter, deps *app.Dependencies, err error) {
	var exhausted *router.ExhaustedError
	switch {
	case errors.Is(err, router.ErrNoProvidersRegistered):
		_ = utils.WriteServiceUnavailable(w, "no backend models are configured")
	case errors.As(err, &exhausted):
		_ = utils.WriteBadGateway(w, exhausted.Error())
	default:
		deps.Logger.Error("completion failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
	}
}

// recordUsage appends to the usage ledger when one is configured. Failures
// are logged and swallowed; the response has already been earned.
func recordUsage(r *http.Request, deps *app.Dependencies, req *backends.CompletionRequest, resp *backends.CompletionResponse, latency time.Duration) {
	if deps.Usage == nil {
		return
	}

	tier := 0
	if m, ok := deps.Catalog.Get(resp.ResolvedModelID); ok {
		tier = m.Tier
	}
	entry := &audit.UsageEntry{
		TaskCategory:  req.TaskCategory,
		ModelID:       resp.ResolvedModelID,
		BackendFamily: resp.ResolvedBackend,
		Tier:          tier,
		InputTokens:   resp.InputTokens,
		OutputTokens:  resp.OutputTokens,
		CostUSD:       resp.CostUSD,
		LatencyMs:     int(latency.Milliseconds()),
	}
	if err := deps.Usage.Insert(r.Context(), entry); err != nil {
		deps.Logger.Warn("failed to record usage entry", zap.Error(err))
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/assistantd/llm-router/app"
	"github.com/assistantd/llm-router/backends"
	"github.com/assistantd/llm-router/budget"
	"github.com/assistantd/llm-router/catalog"
	"github.com/assistantd/llm-router/config"
	"github.com/assistantd/llm-router/router"
)

// mapResolver resolves credentials from a fixed set
type mapResolver map[string]bool

func (r mapResolver) Resolve(name string) bool { return r[name] }

// funcAdapter turns a function into a backend adapter
type funcAdapter struct {
	family string
	fn     func(ctx context.Context, modelID string, req *backends.CompletionRequest) (*backends.CompletionResponse, error)
}

func (a *funcAdapter) Family() string { return a.family }

func (a *funcAdapter) Complete(ctx context.Context, modelID string, req *backends.CompletionRequest) (*backends.CompletionResponse, error) {
	return a.fn(ctx, modelID, req)
}

func newTestDeps(t *testing.T, resolver catalog.CredentialResolver, adapters ...backends.Adapter) *app.Dependencies {
	t.Helper()

	cat, err := catalog.New([]catalog.ModelCapability{
		{ID: "premium-a", BackendFamily: "alpha", Tier: catalog.TierPremium, CostPerMillionInput: 3, CostPerMillionOutput: 15, CredentialRequirement: "KEY_ALPHA"},
		{ID: "standard-a", BackendFamily: "alpha", Tier: catalog.TierStandard, CostPerMillionInput: 0.5, CostPerMillionOutput: 1.5, CredentialRequirement: "KEY_ALPHA"},
		{ID: "basic-a", BackendFamily: "alpha", Tier: catalog.TierBasic, CredentialRequirement: "KEY_ALPHA"},
	}, resolver)
	require.NoError(t, err)

	reg := backends.NewRegistry()
	for _, a := range adapters {
		require.NoError(t, reg.Register(a))
	}

	tracker := budget.NewTracker(10)
	r := router.New(cat, tracker, reg, router.Config{
		TaskTiers: map[string]int{"chat": catalog.TierPremium, "simple": catalog.TierBasic},
	}, zap.NewNop())

	return &app.Dependencies{
		Config:   &config.Config{},
		Logger:   zap.NewNop(),
		Catalog:  cat,
		Tracker:  tracker,
		Adapters: reg,
		Router:   r,
	}
}

func okAdapter() *funcAdapter {
	return &funcAdapter{family: "alpha", fn: func(_ context.Context, modelID string, _ *backends.CompletionRequest) (*backends.CompletionResponse, error) {
		return &backends.CompletionResponse{Content: "hi from " + modelID, CostUSD: 0.01, InputTokens: 10, OutputTokens: 5}, nil
	}}
}

func failAdapter() *funcAdapter {
	return &funcAdapter{family: "alpha", fn: func(_ context.Context, _ string, _ *backends.CompletionRequest) (*backends.CompletionResponse, error) {
		return nil, errors.New("backend down")
	}}
}

func postCompletion(t *testing.T, deps *app.Dependencies, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	CompletionHandler(deps)(rec, req)
	return rec
}

func TestCompletionHandler(t *testing.T) {
	t.Run("routes and returns the response", func(t *testing.T) {
		deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, okAdapter())

		rec := postCompletion(t, deps, `{"messages":[{"role":"user","content":"hello"}],"task_category":"chat"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp backends.CompletionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "premium-a", resp.ResolvedModelID)
		assert.Equal(t, "hi from premium-a", resp.Content)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, okAdapter())

		rec := postCompletion(t, deps, `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects empty messages", func(t *testing.T) {
		deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, okAdapter())

		rec := postCompletion(t, deps, `{"messages":[],"task_category":"chat"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("503 when no model is configured anywhere", func(t *testing.T) {
		deps := newTestDeps(t, mapResolver{}, okAdapter())

		rec := postCompletion(t, deps, `{"messages":[{"role":"user","content":"hello"}],"task_category":"chat"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("502 when every candidate fails", func(t *testing.T) {
		deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, failAdapter())

		rec := postCompletion(t, deps, `{"messages":[{"role":"user","content":"hello"}],"task_category":"chat"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestBudgetSummaryHandler(t *testing.T) {
	deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, okAdapter())
	deps.Tracker.AddCost(2.5)

	req := httptest.NewRequest(http.MethodGet, "/v1/budget", nil)
	rec := httptest.NewRecorder()
	BudgetSummaryHandler(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary budget.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.InDelta(t, 2.5, summary.TodayTotal, 1e-9)
	assert.InDelta(t, 25.0, summary.PercentUsed, 1e-9)
}

func TestModelsHandler(t *testing.T) {
	deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, okAdapter())

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	ModelsHandler(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Models []ModelSummary `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Models, 3)
	assert.Equal(t, "premium-a", payload.Models[0].ID)
	assert.True(t, payload.Models[0].Available)
}

func TestUsageHistoryHandler_NoLedger(t *testing.T) {
	deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, okAdapter())

	req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	rec := httptest.NewRecorder()
	UsageHistoryHandler(deps)(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, okAdapter())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	HealthCheck(deps)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadinessCheck(t *testing.T) {
	t.Run("ready with catalog and adapters", func(t *testing.T) {
		deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true}, okAdapter())

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		ReadinessCheck(deps)(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready without adapters", func(t *testing.T) {
		deps := newTestDeps(t, mapResolver{"KEY_ALPHA": true})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		ReadinessCheck(deps)(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

// Package router is the decision engine that resolves completion requests to
// backend models under a declared quality tier and a rolling daily spend cap.
// It is the single chokepoint through which every subsystem of the platform
// submits outbound completion requests, so cost and quality policy is
// enforced consistently rather than per-caller.
package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/assistantd/llm-router/backends"
	"github.com/assistantd/llm-router/budget"
	"github.com/assistantd/llm-router/catalog"
)

// SimpleCategory is the task category used by RouteSimple.
const SimpleCategory = "simple"

// Config holds routing policy.
type Config struct {
	// TaskTiers maps a task category to the tier it requires.
	// Unmapped categories resolve to the standard tier.
	TaskTiers map[string]int

	// DegradeThreshold is the fraction of the daily budget at which quality
	// degrades by one tier. 0 uses budget.DefaultDegradeThreshold.
	DegradeThreshold float64
}

// Router resolves a CompletionRequest into a CompletionResponse by trying
// candidates cheapest-first until one succeeds, honoring tier, budget
// pressure, and an optional caller pin.
//
// A Router is stateless apart from its collaborators and may be invoked
// concurrently; within one Route call candidates are tried strictly in
// order, never raced.
type Router struct {
	catalog  *catalog.Catalog
	tracker  *budget.Tracker
	adapters *backends.Registry
	config   Config
	logger   *zap.Logger
}

// New creates a router over the given catalog, tracker, and adapter registry.
func New(cat *catalog.Catalog, tracker *budget.Tracker, adapters *backends.Registry, cfg Config, logger *zap.Logger) *Router {
	if cfg.DegradeThreshold <= 0 {
		cfg.DegradeThreshold = budget.DefaultDegradeThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		catalog:  cat,
		tracker:  tracker,
		adapters: adapters,
		config:   cfg,
		logger:   logger,
	}
}

// Route resolves the request. It returns either a successful response or one
// of two fatal errors: ErrNoProvidersRegistered when no available model is
// configured at any reachable tier, or *ExhaustedError when every candidate
// at the floor tier failed. Budget overage is never an error by itself.
func (r *Router) Route(ctx context.Context, req *backends.CompletionRequest) (*backends.CompletionResponse, error) {
	tier := r.tierFor(req.TaskCategory)

	// Budget degradation steps down exactly one tier. Exhaustion fallbacks
	// in routeAtTier jump straight to the floor instead; the asymmetry is
	// deliberate.
	if tier > catalog.TierBasic && r.tracker.ShouldDegrade(r.config.DegradeThreshold) {
		summary := r.tracker.GetSummary()
		r.logger.Info("budget pressure, degrading tier",
			zap.String("task_category", req.TaskCategory),
			zap.Int("requested_tier", tier),
			zap.Int("degraded_tier", tier-1),
			zap.Float64("budget_percent_used", summary.PercentUsed))
		tier--
	}

	return r.routeAtTier(ctx, req, tier)
}

// RouteSimple routes a single-user-message request at the simple task
// category and returns only the text content.
func (r *Router) RouteSimple(ctx context.Context, prompt string) (string, error) {
	resp, err := r.Route(ctx, &backends.CompletionRequest{
		Messages:     []backends.Message{{Role: "user", Content: prompt}},
		TaskCategory: SimpleCategory,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// routeAtTier runs one gather-rank-trial pass at the given tier. Fallback
// always recurses to the basic tier, so recursion depth is capped at 1 by
// construction.
func (r *Router) routeAtTier(ctx context.Context, req *backends.CompletionRequest, tier int) (*backends.CompletionResponse, error) {
	candidates := r.catalog.FilterAvailable(r.catalog.FilterByTier(tier))

	if len(candidates) == 0 {
		if tier > catalog.TierBasic {
			// Nothing to try at this tier, so there is no value in an
			// intermediate tier either: jump straight to the floor.
			r.logger.Warn("no available candidates at tier, falling back to floor",
				zap.Int("tier", tier))
			return r.routeAtTier(ctx, req, catalog.TierBasic)
		}
		return nil, ErrNoProvidersRegistered
	}

	candidates, pinned := r.promotePin(req, candidates)

	// Cost ordering applies to everything behind the pin.
	if pinned {
		ranked := r.catalog.RankByCost(candidates[1:])
		candidates = append(candidates[:1], ranked...)
	} else {
		candidates = r.catalog.RankByCost(candidates)
	}

	var lastErr error
	for _, cand := range candidates {
		adapter, err := r.adapters.Get(cand.BackendFamily)
		if err != nil {
			r.logger.Warn("no adapter for candidate",
				zap.String("model_id", cand.ID),
				zap.String("backend_family", cand.BackendFamily))
			lastErr = err
			continue
		}

		resp, err := adapter.Complete(ctx, cand.ID, req)
		if err != nil {
			r.logger.Warn("candidate failed",
				zap.String("model_id", cand.ID),
				zap.String("backend_family", cand.BackendFamily),
				zap.Int("tier", tier),
				zap.Error(err))
			lastErr = err
			continue
		}

		// First success wins; cheaper or better candidates left untried
		// stay untried.
		resp.ResolvedModelID = cand.ID
		resp.ResolvedBackend = cand.BackendFamily
		r.tracker.AddCost(resp.CostUSD)

		r.logger.Debug("request routed",
			zap.String("model_id", cand.ID),
			zap.String("backend_family", cand.BackendFamily),
			zap.Int("tier", tier),
			zap.Float64("cost_usd", resp.CostUSD))
		return resp, nil
	}

	if tier > catalog.TierBasic {
		r.logger.Warn("tier exhausted, falling back to floor",
			zap.Int("tier", tier), zap.Error(lastErr))
		return r.routeAtTier(ctx, req, catalog.TierBasic)
	}

	return nil, &ExhaustedError{Tier: tier, Last: lastErr}
}

// promotePin moves the explicitly pinned model to the front of the candidate
// list. A pin outside the tier's candidates is honored when the model exists
// in the catalog and is available; otherwise the pin is ignored silently.
func (r *Router) promotePin(req *backends.CompletionRequest, candidates []catalog.ModelCapability) ([]catalog.ModelCapability, bool) {
	if req.ExplicitModelID == "" {
		return candidates, false
	}

	for i, cand := range candidates {
		if cand.ID == req.ExplicitModelID {
			if i != 0 {
				pinned := cand
				candidates = append(candidates[:i], candidates[i+1:]...)
				candidates = append([]catalog.ModelCapability{pinned}, candidates...)
			}
			return candidates, true
		}
	}

	if pinned, ok := r.catalog.Get(req.ExplicitModelID); ok && pinned.IsAvailable() {
		return append([]catalog.ModelCapability{pinned}, candidates...), true
	}

	return candidates, false
}

// tierFor maps a task category to its tier, defaulting to standard for
// unknown categories.
func (r *Router) tierFor(category string) int {
	if tier, ok := r.config.TaskTiers[category]; ok {
		if tier >= catalog.TierBasic && tier <= catalog.TierPremium {
			return tier
		}
	}
	return catalog.TierStandard
}

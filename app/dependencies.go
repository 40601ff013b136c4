// Package app wires the platform's components together. It is the single
// place where configuration becomes live objects.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/assistantd/llm-router/audit"
	"github.com/assistantd/llm-router/backends"
	"github.com/assistantd/llm-router/backends/anthropic"
	"github.com/assistantd/llm-router/backends/openai"
	"github.com/assistantd/llm-router/budget"
	"github.com/assistantd/llm-router/catalog"
	"github.com/assistantd/llm-router/config"
	"github.com/assistantd/llm-router/middleware"
	"github.com/assistantd/llm-router/router"
)

// Dependencies holds all application dependencies. This is the central wiring
// point for dependency injection.
type Dependencies struct {
	Config  *config.Config
	Logger  *zap.Logger
	Catalog *catalog.Catalog
	Tracker *budget.Tracker

	Adapters *backends.Registry
	Router   *router.Router

	// DB and Usage are nil when no database is configured. Usage logging is
	// best effort and never on the routing path.
	DB    *audit.DB
	Usage *audit.UsageRepository

	// AuthMiddleware is nil when no auth secret is configured.
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	doc, err := config.LoadCatalogDocument(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	deps.Catalog, err = catalog.New(doc.Capabilities(), catalog.EnvResolver{})
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	logger.Info("catalog loaded",
		zap.String("path", cfg.CatalogPath),
		zap.Int("models", deps.Catalog.Len()))

	deps.Tracker = budget.NewTracker(cfg.Budget.DailyLimitUSD)

	if err := deps.initAdapters(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize adapters: %w", err)
	}

	threshold := cfg.Budget.DegradeThreshold
	if doc.Routing.DegradeThreshold > 0 {
		threshold = doc.Routing.DegradeThreshold
	}
	deps.Router = router.New(deps.Catalog, deps.Tracker, deps.Adapters, router.Config{
		TaskTiers:        doc.TaskTiers(),
		DegradeThreshold: threshold,
	}, logger)

	if err := deps.initDatabase(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.AuthSecret != "" {
		deps.AuthMiddleware = middleware.NewAuthMiddleware(cfg.AuthSecret, logger)
		logger.Info("bearer authentication enabled")
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initAdapters registers one adapter per backend family the catalog names.
// Registering all configured families up front keeps availability purely a
// credential question at request time.
func (d *Dependencies) initAdapters(cfg *config.Config) error {
	d.Adapters = backends.NewRegistry()

	families := make(map[string]struct{})
	for _, m := range d.Catalog.All() {
		families[m.BackendFamily] = struct{}{}
	}

	for family := range families {
		var adapter backends.Adapter
		switch family {
		case "anthropic":
			adapter = anthropic.New(anthropic.Config{
				APIKeyEnv: cfg.Backends.Anthropic.APIKeyEnv,
				BaseURL:   cfg.Backends.Anthropic.BaseURL,
				Timeout:   cfg.Backends.Anthropic.Timeout,
			}, d.Catalog)
		case "openrouter":
			adapter = openai.New(openai.Config{
				Family:    "openrouter",
				APIKeyEnv: cfg.Backends.OpenRouter.APIKeyEnv,
				BaseURL:   cfg.Backends.OpenRouter.BaseURL,
				Timeout:   cfg.Backends.OpenRouter.Timeout,
			}, d.Catalog)
		case "local":
			adapter = openai.New(openai.Config{
				Family:     "local",
				BaseURLEnv: cfg.Backends.Local.BaseURLEnv,
				Timeout:    cfg.Backends.Local.Timeout,
			}, d.Catalog)
		default:
			return fmt.Errorf("catalog names unknown backend family %q", family)
		}

		if err := d.Adapters.Register(adapter); err != nil {
			return fmt.Errorf("failed to register %s adapter: %w", family, err)
		}
		d.Logger.Info("registered backend adapter", zap.String("family", family))
	}

	return nil
}

// initDatabase opens the optional usage ledger database
func (d *Dependencies) initDatabase(cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Info("no database configured, usage logging disabled")
		return nil
	}

	db, err := audit.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = db
	d.Usage = audit.NewUsageRepository(db.DB, d.Logger)
	return nil
}

// Close tears down held resources in reverse initialization order
func (d *Dependencies) Close() error {
	var firstErr error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.Adapters != nil {
		if err := d.Adapters.CloseAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

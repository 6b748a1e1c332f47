// Package bootstrap wires configuration into the scan pipeline. Both the API
// server and the one-shot scan command build their services here.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/catalog"
	"github.com/pricelens/backend/internal/infrastructure/llm"
	"github.com/pricelens/backend/internal/infrastructure/snapshot"
	"github.com/pricelens/backend/internal/usecase"
)

// App holds the wired services and the resources to release on shutdown
type App struct {
	Digests *usecase.DigestService
	Fuzzy   usecase.FuzzyMatcherConfig

	closers []func()
}

// Close releases store connections
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New builds the digest service from configuration
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	app := &App{}

	store, closeStore, err := NewSnapshotStore(ctx, cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	app.Fuzzy = usecase.FuzzyMatcherConfig{
		Threshold:    cfg.Matching.FuzzyThreshold,
		EditDistance: cfg.Matching.FuzzyEditDistance,
	}
	if cfg.Matching.Debug {
		app.Fuzzy.Logger = log.WithField("component", "matcher")
	}

	matcher, err := usecase.NewCatalogMatcher(cfg.Matching.Strategy, app.Fuzzy)
	if err != nil {
		app.Close()
		return nil, err
	}

	feeds := catalog.NewClient(catalog.ClientConfig{
		Timeout:       cfg.Fetch.Timeout,
		RatePerSecond: cfg.Fetch.RatePerSecond,
		Burst:         cfg.Fetch.Burst,
		MaxAttempts:   cfg.Fetch.MaxAttempts,
		UserAgent:     cfg.Fetch.UserAgent,
	}, log)

	app.Digests = usecase.NewDigestService(
		feeds,
		store,
		matcher,
		NewInsightGenerator(cfg.Insights, log),
		log,
		usecase.DigestServiceConfig{
			Baseline:    cfg.Sources.Baseline,
			Competitors: cfg.Sources.Competitors,
			Concurrency: cfg.Fetch.Concurrency,
		},
	)

	return app, nil
}

// NewSnapshotStore opens the configured snapshot store. The returned close
// function is nil for stores that hold no resources.
func NewSnapshotStore(ctx context.Context, cfg config.SnapshotConfig) (domain.SnapshotStore, func(), error) {
	switch cfg.Type {
	case "", "memory":
		return snapshot.NewMemoryStore(), nil, nil
	case "sqlite":
		store, err := snapshot.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "postgres":
		store, err := snapshot.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot type: %s", cfg.Type)
	}
}

// NewInsightGenerator returns the template generator, or the remote model
// backed by the template generator when a provider is configured
func NewInsightGenerator(cfg config.InsightsConfig, log logrus.FieldLogger) domain.InsightGenerator {
	template := usecase.NewTemplateInsightGenerator()
	if cfg.Provider != "openai" {
		return template
	}

	return &usecase.FallbackInsightGenerator{
		Primary: llm.NewClient(llm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}),
		Fallback: template,
		Log:      log,
	}
}

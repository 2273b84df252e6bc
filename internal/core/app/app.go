package app

import (
	"context"
	"fmt"
	"log/slog"

	"checkdelta/internal/core/config"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/data/history"
	"checkdelta/internal/engine/baseline"
	"checkdelta/internal/engine/parser"
	"checkdelta/internal/engine/rules"
	"checkdelta/internal/engine/scope"
	"checkdelta/internal/engine/threshold"
)

// Dependencies overrides the collaborators New would build from config.
type Dependencies struct {
	Store    ports.HistoryStore
	Resolver ports.SourceResolver
	Rules    ports.RuleMetadataProvider
	Logger   *slog.Logger
}

type App struct {
	Config   *config.Config
	Paths    config.ResolvedPaths
	Store    ports.HistoryStore
	Resolver ports.SourceResolver
	Rules    ports.RuleMetadataProvider
	Scopes   *scope.Table
	Locator  *parser.Locator

	limits   threshold.Limits
	health   threshold.Health
	selector baseline.Selector
	logger   *slog.Logger
	closers  []func() error
}

// New builds an App for workspace, opening the SQLite history from config.
func New(cfg *config.Config, workspace string) (*App, error) {
	return NewWithDependencies(cfg, workspace, Dependencies{})
}

func NewWithDependencies(cfg *config.Config, workspace string, deps Dependencies) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	paths, err := config.ResolvePaths(cfg, workspace)
	if err != nil {
		return nil, err
	}
	limits, err := threshold.ParseThresholds(cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	health, err := threshold.ParseHealth(cfg.Health.Healthy, cfg.Health.Unhealthy, cfg.Health.MinimumPriority)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Paths:    paths,
		Store:    deps.Store,
		Resolver: deps.Resolver,
		Rules:    deps.Rules,
		Scopes:   scope.NewTable(),
		Locator:  parser.NewLocator(parser.NewGrammarLoader()),
		limits:   limits,
		health:   health,
		selector: baseline.Selector{
			UsePreviousBuild:    cfg.Reference.UsePreviousBuild,
			UseOnlyStableBuilds: cfg.Reference.UseOnlyStableBuilds,
		},
		logger: deps.Logger,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.Resolver == nil {
		a.Resolver = NewFileResolver(paths.SourceRoots...)
	}
	if a.Rules == nil {
		catalog, err := rules.Load(paths.DescriptionsFile)
		if err != nil {
			return nil, err
		}
		a.Rules = catalog
	}
	if a.Store == nil {
		store, err := history.Open(paths.HistoryPath)
		if err != nil {
			if history.IsCorruptError(err) {
				return nil, fmt.Errorf("history database %s looks corrupt, remove it to start over: %w", paths.HistoryPath, err)
			}
			return nil, err
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	}
	return a, nil
}

func (a *App) AnalysisService() ports.AnalysisService {
	return NewAnalysisService(a)
}

// Limits returns the parsed thresholds.
func (a *App) Limits() threshold.Limits {
	return a.limits
}

func (a *App) Health() threshold.Health {
	return a.health
}

func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/analysis"
	"github.com/mangomango3x/Discord-fact-check/internal/community"
	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/internal/conversation"
	"github.com/mangomango3x/Discord-fact-check/internal/detector"
	"github.com/mangomango3x/Discord-fact-check/internal/eventlog"
	"github.com/mangomango3x/Discord-fact-check/internal/llm"
	"github.com/mangomango3x/Discord-fact-check/internal/patterns"
	"github.com/mangomango3x/Discord-fact-check/internal/ratelimit"
	"github.com/mangomango3x/Discord-fact-check/internal/services"
	"github.com/mangomango3x/Discord-fact-check/internal/storage"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/file"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/memory"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/postgres"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/redis"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/sqlite"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	kv       storage.Store
	settings *config.Runtime

	orchestrator *analysis.Orchestrator
	autoLimiter  *ratelimit.Limiter
	cmdLimiter   *ratelimit.Limiter
	buffer       *conversation.Buffer
	patterns     *patterns.Store
	events       *eventlog.Log
	detector     *detector.Detector
}

// newApp opens storage and builds the pipeline. sink may be nil.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, sink detector.AlertSink) (*app, error) {
	kv, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		kv:       kv,
		settings: config.NewRuntime(cfg.Detection),
	}

	saved := services.NewSettingsService(kv, a.settings, logger)
	if _, err := saved.Restore(ctx); err != nil {
		logger.Warn("saved settings not restored", zap.Error(err))
	}
	saved.Attach()

	providers := llm.NewProviders(cfg.ProviderConfigs(), logger)
	if len(providers) == 0 {
		logger.Warn("no analysis providers configured; every message will be could_not_evaluate")
	}
	a.orchestrator = analysis.NewOrchestrator(providers, analysis.WithLogger(logger))
	base := baseProviders(a.orchestrator)
	applyProviderSettings(a.orchestrator, base, a.settings.Get(), logger)
	a.settings.Subscribe(func(s config.Settings) {
		applyProviderSettings(a.orchestrator, base, s, logger)
	})

	a.autoLimiter = ratelimit.New("auto", ratelimit.WithStore(kv), ratelimit.WithLogger(logger))
	a.cmdLimiter = ratelimit.New("command", ratelimit.WithStore(kv), ratelimit.WithLogger(logger))
	for _, l := range []*ratelimit.Limiter{a.autoLimiter, a.cmdLimiter} {
		if err := l.Load(ctx); err != nil {
			logger.Warn("rate-limit state not restored", zap.String("limiter", l.Name()), zap.Error(err))
		}
	}

	docs := community.NewStore(kv, logger)
	a.patterns = patterns.NewStore(docs,
		patterns.WithHalfLife(cfg.Patterns.HalfLife.Duration()),
		patterns.WithLogger(logger))
	a.events = eventlog.New(docs,
		eventlog.WithCapacity(cfg.Patterns.EventCapacity),
		eventlog.WithLogger(logger))

	a.buffer = conversation.NewBuffer(conversation.DefaultBufferSize)
	collector := conversation.NewCollector(a.buffer, conversation.WithLogger(logger))

	a.detector, err = detector.New(detector.Deps{
		Settings:    a.settings,
		AutoLimiter: a.autoLimiter,
		CmdLimiter:  a.cmdLimiter,
		Collector:   collector,
		Analyzer:    a.orchestrator,
		Patterns:    a.patterns,
		Events:      a.events,
		Sink:        sink,
	}, detector.WithIdentitySalt(cfg.Server.IdentitySalt), detector.WithLogger(logger))
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return a, nil
}

// Close flushes rate-limit state and closes storage.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for _, l := range []*ratelimit.Limiter{a.autoLimiter, a.cmdLimiter} {
		if err := l.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.kv.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// providerBase is the provider order and models from the config file,
// before any operator override.
type providerBase struct {
	order  []string
	models map[string]string
}

func baseProviders(o *analysis.Orchestrator) providerBase {
	status := o.Status()
	base := providerBase{
		order:  make([]string, len(status)),
		models: make(map[string]string, len(status)),
	}
	for i, st := range status {
		base.order[i] = st.Name
		base.models[st.Name] = st.Model
	}
	return base
}

// applyProviderSettings resets the orchestrator to base and then applies the
// operator's provider order and model overrides, so a removed override
// reverts. Bad entries are logged and the base value is kept.
func applyProviderSettings(o *analysis.Orchestrator, base providerBase, s config.Settings, logger *zap.Logger) {
	order := base.order
	if len(s.ProviderOrder) > 0 {
		order = append(slices.Clone(s.ProviderOrder), withoutNames(base.order, s.ProviderOrder)...)
	}
	if !slices.Equal(order, o.Order()) {
		if err := o.SetOrder(order); err != nil {
			logger.Warn("provider order not applied", zap.Error(err))
			if err := o.SetOrder(base.order); err != nil {
				logger.Warn("base provider order not restored", zap.Error(err))
			}
		}
	}

	for name, model := range base.models {
		if override, ok := s.ProviderModels[name]; ok {
			err := o.SetModel(name, override)
			if err == nil {
				continue
			}
			logger.Warn("provider model not applied", zap.String("provider", name), zap.Error(err))
		}
		if model == "" {
			continue
		}
		if err := o.SetModel(name, model); err != nil {
			logger.Warn("base provider model not restored", zap.String("provider", name), zap.Error(err))
		}
	}
	for name := range s.ProviderModels {
		if _, ok := base.models[name]; !ok {
			logger.Warn("provider model not applied", zap.String("provider", name), zap.Error(fmt.Errorf("unknown provider %q", name)))
		}
	}
}

func withoutNames(names, drop []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(drop, n) {
			out = append(out, n)
		}
	}
	return out
}

// openStore opens the configured key-value backend.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Engine {
	case storage.EngineMemory:
		return memory.NewStore(), nil
	case storage.EngineFile:
		return file.NewStore(cfg.DataPath)
	case storage.EngineSQLite:
		if err := os.MkdirAll(cfg.DataPath, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return sqlite.NewStore(cfg.SQLitePath(), logger)
	case storage.EnginePostgres:
		return postgres.NewStore(cfg.DSN)
	case storage.EngineRedis:
		return redis.NewStore(ctx, cfg.RedisURL, cfg.RedisNamespace)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/agents"
	"github.com/shadowcheck/shadowcheck/cachestore"
	"github.com/shadowcheck/shadowcheck/countstore"
	"github.com/shadowcheck/shadowcheck/engine"
	"github.com/shadowcheck/shadowcheck/history"
	"github.com/shadowcheck/shadowcheck/linkcheck"
	"github.com/shadowcheck/shadowcheck/platform"
	"github.com/shadowcheck/shadowcheck/signals"

	cli "github.com/urfave/cli/v2"
)

// Everything a check needs, wired together.
type Service struct {
	Engine    *engine.Engine
	Signals   *signals.Set
	Platforms *platform.Registry
}

type ServiceConfig struct {
	RedisURL        string
	SignalsFileJSON string
	AgentConfigYAML string
	MaxHistoryItems int
	AgentTimeout    time.Duration
	ResolveLinks    bool
	LinkRateLimit   float64
	Logger          *slog.Logger
}

func serviceConfigFromFlags(cctx *cli.Context, logger *slog.Logger) ServiceConfig {
	return ServiceConfig{
		RedisURL:        cctx.String("redis-url"),
		SignalsFileJSON: cctx.String("signals-file"),
		AgentConfigYAML: cctx.String("agent-config"),
		MaxHistoryItems: cctx.Int("max-history-items"),
		AgentTimeout:    cctx.Duration("agent-timeout"),
		ResolveLinks:    cctx.Bool("resolve-links"),
		LinkRateLimit:   cctx.Float64("link-rate-limit"),
		Logger:          logger,
	}
}

func setupService(cctx *cli.Context, logger *slog.Logger) (*Service, error) {
	return NewService(serviceConfigFromFlags(cctx, logger))
}

func loadSignals(path string, logger *slog.Logger, platforms *platform.Registry) (*signals.Set, error) {
	if path == "" {
		return signals.Default(platforms), nil
	}
	extra, err := signals.LoadEntriesJSON(path)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded signal overrides from JSON", "path", path)
	return signals.NewSet(signals.MergeEntries(signals.BuiltinEntries(), extra), platforms), nil
}

func NewService(config ServiceConfig) (*Service, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	platforms := platform.DefaultRegistry()
	sigs, err := loadSignals(config.SignalsFileJSON, logger, platforms)
	if err != nil {
		return nil, err
	}

	var hist history.Store
	var counters countstore.CountStore
	var cache cachestore.CacheStore
	if config.RedisURL != "" {
		hs, err := history.NewRedisStore(config.RedisURL, config.MaxHistoryItems)
		if err != nil {
			return nil, fmt.Errorf("initializing redis history store: %v", err)
		}
		hist = hs

		cnt, err := countstore.NewRedisCountStore(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("initializing redis countstore: %v", err)
		}
		counters = cnt

		csh, err := cachestore.NewRedisCacheStore(config.RedisURL, 6*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("initializing redis cachestore: %v", err)
		}
		cache = csh
	} else {
		hist = history.NewMemStore(config.MaxHistoryItems)
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 6*time.Hour)
	}

	deps := agents.Deps{
		Platforms: platforms,
		Signals:   sigs,
		History:   hist,
		Counters:  counters,
		Logger:    logger,
	}
	if config.ResolveLinks {
		logger.Info("configuring outbound link resolution", "rateLimit", config.LinkRateLimit)
		deps.Resolver = linkcheck.NewResolver(linkcheck.Options{
			RateLimit: config.LinkRateLimit,
			Retries:   2,
			Cache:     cache,
			Logger:    logger,
		})
	}

	cfg := agent.DefaultConfig()
	if config.AgentConfigYAML != "" {
		cfg, err = agent.LoadConfigFile(config.AgentConfigYAML)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded agent config from YAML", "path", config.AgentConfigYAML)
	}
	if config.AgentTimeout > 0 {
		cfg = cfg.WithAgentTimeout(config.AgentTimeout)
	}

	reg := agent.NewRegistry(logger)
	if err := agents.RegisterDefaults(reg, deps); err != nil {
		return nil, err
	}
	eng, err := engine.NewEngine(logger, platforms, reg, cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		Engine:    eng,
		Signals:   sigs,
		Platforms: platforms,
	}, nil
}

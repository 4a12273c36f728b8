// Package di wires the application together. Providers are plain functions
// so construction order and failure points stay explicit.
package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mermaidview/application/ports"
	"mermaidview/application/services"
	"mermaidview/infrastructure/config"
	"mermaidview/infrastructure/persistence/memory"
	"mermaidview/infrastructure/persistence/sqlite"
	"mermaidview/infrastructure/renderer/browser"
	"mermaidview/infrastructure/renderer/mermaidink"
	"mermaidview/pkg/observability"
	"mermaidview/pkg/ratelimit"
)

// Container holds all initialized application components
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	Metrics        *observability.Collector
	Primary        ports.Renderer
	Fallback       ports.Renderer
	Registry       ports.DiagramRegistry
	RateLimiter    *ratelimit.TokenBucketLimiter
	DiagramService *services.DiagramService
	DynamicConfig  *config.Watcher
}

// NewContainer builds the full dependency graph from configuration
func NewContainer(cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics := observability.NewCollector("mermaidview")

	registry, err := ProvideRegistry(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagram registry: %w", err)
	}

	// A persistent registry may already hold diagrams from a previous run.
	if diagrams, err := registry.List(context.Background()); err == nil {
		metrics.DiagramsStored.Set(float64(len(diagrams)))
	}
	if mem, ok := registry.(*memory.DiagramRegistry); ok {
		mem.OnEvict(func(count int) {
			metrics.DiagramsStored.Sub(float64(count))
		})
	}

	primary, fallback := ProvideRenderers(cfg, logger)

	var watcher *config.Watcher
	if cfg.DynamicConfigPath != "" {
		watcher, err = config.NewWatcher(cfg.DynamicConfigPath, logger)
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("failed to watch dynamic config: %w", err)
		}
	}

	limiter := ratelimit.NewTokenBucketLimiter(cfg.RateLimitBurst, cfg.RateLimitRefill)
	if watcher != nil {
		// The dynamic limits file is authoritative for the burst while it
		// is in play, both at startup and on every reload.
		limiter.SetBurst(watcher.Current().Limits.RateLimitBurst)
		watcher.OnChange(func(dc *config.DynamicConfig) {
			limiter.SetBurst(dc.Limits.RateLimitBurst)
			logger.Info("rate limit burst updated", zap.Int("burst", dc.Limits.RateLimitBurst))
		})
	}

	service := services.NewDiagramService(
		primary,
		fallback,
		registry,
		cfg.UseFallback,
		metrics,
		logger,
	)

	return &Container{
		Config:         cfg,
		Logger:         logger,
		Metrics:        metrics,
		Primary:        primary,
		Fallback:       fallback,
		Registry:       registry,
		RateLimiter:    limiter,
		DiagramService: service,
		DynamicConfig:  watcher,
	}, nil
}

// ProvideLogger creates the application logger for the configured environment
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideRenderers creates the primary browser renderer and, when fallback
// is enabled, the mermaid.ink renderer.
func ProvideRenderers(cfg *config.Config, logger *zap.Logger) (ports.Renderer, ports.Renderer) {
	primary := browser.NewRenderer(
		cfg.MermaidCDNURL,
		cfg.ChromeBinaries,
		cfg.Headless,
		cfg.RenderTimeout,
		logger,
	)

	var fallback ports.Renderer
	if cfg.UseFallback {
		fallback = mermaidink.NewRenderer(cfg.MermaidInkURL, cfg.RenderTimeout, logger)
	}

	return primary, fallback
}

// ProvideRegistry creates the configured diagram registry backend
func ProvideRegistry(cfg *config.Config, logger *zap.Logger) (ports.DiagramRegistry, error) {
	switch cfg.RegistryDriver {
	case "sqlite":
		return sqlite.NewDiagramRegistry(cfg.RegistryPath)
	case "memory":
		return memory.NewDiagramRegistry(cfg.RegistryTTL, logger), nil
	default:
		return nil, fmt.Errorf("unsupported registry driver %q", cfg.RegistryDriver)
	}
}

// Close releases all container resources in reverse construction order
func (c *Container) Close() error {
	var firstErr error

	if c.DynamicConfig != nil {
		if err := c.DynamicConfig.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.RateLimiter != nil {
		c.RateLimiter.Stop()
	}
	if c.Fallback != nil {
		if err := c.Fallback.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Primary != nil {
		if err := c.Primary.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Registry != nil {
		if err := c.Registry.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.Logger.Sync()
	return firstErr
}

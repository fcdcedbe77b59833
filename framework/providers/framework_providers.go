package providers

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/decorators"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/logging"
	"github.com/km-arc/go-ioc/framework/routing"
)

// Contracts of the framework services every application container holds.
type (
	ConfigFactory        func(ctx context.Context) *config.Config
	LoggerFactory        func(ctx context.Context, component string) logging.Logger
	RouterFactory        func(ctx context.Context) *routing.Router
	ErrorHandlersFactory func(ctx context.Context) *gohttp.ErrorHandlers
	RegistryFactory      func(ctx context.Context) *prometheus.Registry
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider adds the application configuration.
//
// Added factories:
//   - ConfigFactory → Config, or config.Load(EnvFiles...) when Config is nil
type ConfigServiceProvider struct {
	container.BaseProvider
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(_ context.Context, app container.Resolver) error {
	cfg := p.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(p.EnvFiles...); err != nil {
			return err
		}
	}
	return container.Add[ConfigFactory](app, func(context.Context) *config.Config { return cfg })
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider adds component loggers derived from one root logger.
//
// Added factories:
//   - LoggerFactory → Logger.With(component)
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger logging.Logger
}

func (p *LoggingServiceProvider) Register(_ context.Context, app container.Resolver) error {
	root := p.Logger
	if root == nil {
		root = logging.Nop()
	}
	return container.Add[LoggerFactory](app, func(_ context.Context, component string) logging.Logger {
		return root.With(component)
	})
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider adds the HTTP router and the error handlers that
// turn handler errors into responses. Every request is logged and runs in
// its own factory scope.
//
// Added factories:
//   - RouterFactory → *routing.Router (one per application)
//   - ErrorHandlersFactory → *gohttp.ErrorHandlers (one per application)
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(ctx context.Context, app container.Resolver) error {
	log, err := container.Get[LoggerFactory](app)
	if err != nil {
		return err
	}
	r := routing.New()
	r.Middleware(
		routing.RequestLogger(log(ctx, "http")),
		routing.StorageScope(),
		routing.ContainerScope(),
	)
	if err := container.Add[RouterFactory](app, func(context.Context) *routing.Router { return r }); err != nil {
		return err
	}
	handlers := gohttp.NewErrorHandlers()
	return container.Add[ErrorHandlersFactory](app, func(context.Context) *gohttp.ErrorHandlers { return handlers })
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider instruments every factory of the container with call
// counters and mounts the Prometheus handler on the router.
//
// Added factories:
//   - RegistryFactory → *prometheus.Registry
//
// Routes (added in Boot):
//   - GET Path (default /metrics)
type MetricsServiceProvider struct {
	container.BaseProvider
	Path string
}

func (p *MetricsServiceProvider) Register(_ context.Context, app container.Resolver) error {
	reg := prometheus.NewRegistry()
	m, err := decorators.NewMetrics(reg)
	if err != nil {
		return err
	}
	if err := app.AddDecorator(m.Decorator()); err != nil {
		return err
	}
	return container.Add[RegistryFactory](app, func(context.Context) *prometheus.Registry { return reg })
}

func (p *MetricsServiceProvider) Boot(ctx context.Context, app container.Resolver) error {
	router, err := container.Get[RouterFactory](app)
	if err != nil {
		return err
	}
	registry, err := container.Get[RegistryFactory](app)
	if err != nil {
		return err
	}
	path := p.Path
	if path == "" {
		path = "/metrics"
	}
	router(ctx).Handle(path, promhttp.HandlerFor(registry(ctx), promhttp.HandlerOpts{}))
	return nil
}

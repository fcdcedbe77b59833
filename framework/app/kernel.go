package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-ioc/framework/config"
	"github.com/km-arc/go-ioc/framework/container"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/ioc"
	"github.com/km-arc/go-ioc/framework/logging"
	"github.com/km-arc/go-ioc/framework/providers"
	"github.com/km-arc/go-ioc/framework/routing"
)

const shutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the factory Container and a ProviderRegistry so plugins can be
// registered directly, and owns the process-wide factory storage every
// request scope is nested over.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry
	Storage   *ioc.DictStorage
}

// Option configures New.
type Option func(*options)

type options struct {
	cfg     *config.Config
	log     logging.Logger
	metrics bool
}

// WithConfig uses cfg instead of loading one from the environment.
func WithConfig(cfg *config.Config) Option { return func(o *options) { o.cfg = cfg } }

// WithLogger sets the root logger.
func WithLogger(log logging.Logger) Option { return func(o *options) { o.log = log } }

// WithMetrics instruments every factory and serves /metrics.
func WithMetrics() Option { return func(o *options) { o.metrics = true } }

// New creates the application and registers the framework providers.
func New(ctx context.Context, opts ...Option) (*Application, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.New("app")
	}

	c := container.New()
	a := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		Storage:   ioc.NewDictStorage(),
	}

	core := []container.Provider{
		&providers.ConfigServiceProvider{Config: o.cfg},
		&providers.LoggingServiceProvider{Logger: o.log},
		&providers.RoutingServiceProvider{},
	}
	if o.metrics {
		core = append(core, &providers.MetricsServiceProvider{})
	}
	for _, p := range core {
		if err := a.Register(ctx, p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a provider to the application.
func (a *Application) Register(ctx context.Context, provider container.Provider) error {
	return a.Providers.Register(ctx, provider)
}

// Boot runs the Boot phase on all providers.
func (a *Application) Boot(ctx context.Context) error {
	return a.Providers.Boot(ctx)
}

// Context returns ctx with the application's storage and container active.
// Proxies called with it resolve application factories.
func (a *Application) Context(ctx context.Context) context.Context {
	ctx, _ = ioc.Enter(ctx, a.Storage)
	return container.Enter(ctx, a.Container)
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config {
	return container.MustGet[providers.ConfigFactory](a)(context.Background())
}

// Logger returns a logger for component.
func (a *Application) Logger(component string) logging.Logger {
	return container.MustGet[providers.LoggerFactory](a)(context.Background(), component)
}

// Router returns the application router.
func (a *Application) Router() *routing.Router {
	return container.MustGet[providers.RouterFactory](a)(context.Background())
}

// Errors returns the handlers rendering handler errors.
func (a *Application) Errors() *gohttp.ErrorHandlers {
	return container.MustGet[providers.ErrorHandlersFactory](a)(context.Background())
}

// Handler returns the router as an http.Handler whose requests run in the
// application context.
func (a *Application) Handler() http.Handler {
	router := a.Router()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r.WithContext(a.Context(r.Context())))
	})
}

// Run boots the application (if needed) and serves HTTP until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(ctx); err != nil {
		return err
	}
	cfg := a.Config()
	log := a.Logger("server")

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("%s listening on %s [%s]", cfg.App.Name, srv.Addr, cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Infof("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close closes every registered provider that holds resources (an
// io.Closer), such as an open database.
func (a *Application) Close() error {
	var errs []error
	for _, p := range a.Providers.Providers() {
		if c, ok := p.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }

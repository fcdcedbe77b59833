package container

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ── Provider interface ────────────────────────────────────────────────────────

// Provider is a plugin: a unit that adds factories and decorators to the
// application's container.
//
// Register is called as soon as the provider is registered. Boot is called
// after all providers have been registered, making it safe to resolve
// factories added by other providers.
//
//	type EnglishProvider struct{ container.BaseProvider }
//
//	func (p *EnglishProvider) Register(ctx context.Context, app container.Resolver) error {
//	    return container.Add[CongratulationFactory](app, english)
//	}
type Provider interface {
	Register(ctx context.Context, app Resolver) error
	Boot(ctx context.Context, app Resolver) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with a no-op Boot.
type BaseProvider struct{}

// Boot implements Provider.
func (BaseProvider) Boot(context.Context, Resolver) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of providers.
type ProviderRegistry struct {
	app        Resolver
	providers  []Provider
	registered map[Provider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app Resolver) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[Provider]bool),
	}
}

// Register adds a provider and calls its Register method. Registering the
// same provider twice is a no-op. After Boot, providers are booted right away.
func (r *ProviderRegistry) Register(ctx context.Context, provider Provider) error {
	if r.registered[provider] {
		return nil
	}
	if err := provider.Register(ctx, r.app); err != nil {
		return fmt.Errorf("container: register %T: %w", provider, err)
	}
	r.registered[provider] = true
	r.providers = append(r.providers, provider)

	if r.booted {
		if err := provider.Boot(ctx, r.app); err != nil {
			return fmt.Errorf("container: boot %T: %w", provider, err)
		}
	}
	return nil
}

// Boot calls Boot on all registered providers, in registration order.
// It runs once; later calls return nil.
func (r *ProviderRegistry) Boot(ctx context.Context) error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.providers {
		if err := provider.Boot(ctx, r.app); err != nil {
			return fmt.Errorf("container: boot %T: %w", provider, err)
		}
	}
	return nil
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns all registered providers.
func (r *ProviderRegistry) Providers() []Provider {
	return append([]Provider(nil), r.providers...)
}

// ── Catalog ───────────────────────────────────────────────────────────────────

// ErrUnknownProvider is returned when a plugin name is not in the catalog.
var ErrUnknownProvider = errors.New("container: unknown provider")

// PluginSpec names a plugin to load together with its raw settings.
type PluginSpec struct {
	Name string         `json:"name" yaml:"name" koanf:"name"`
	Conf map[string]any `json:"conf" yaml:"conf" koanf:"conf"`
}

// ProviderFactory builds a provider from its raw settings.
type ProviderFactory func(conf map[string]any) (Provider, error)

// Catalog maps plugin names to provider factories. Plugins usually add
// themselves to DefaultCatalog from an init function; the application then
// loads the ones its configuration names.
//
//	func init() {
//	    container.DefaultCatalog.MustAdd("english", func(map[string]any) (container.Provider, error) {
//	        return &EnglishProvider{}, nil
//	    })
//	}
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// DefaultCatalog is the catalog plugin packages add themselves to.
var DefaultCatalog = NewCatalog()

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]ProviderFactory)}
}

// Add registers f under name.
func (c *Catalog) Add(name string, f ProviderFactory) error {
	if f == nil {
		return fmt.Errorf("container: provider factory nil for %s", name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[name]; ok {
		return fmt.Errorf("container: provider already registered for %s", name)
	}
	c.factories[name] = f
	return nil
}

// MustAdd is like Add but panics on error.
func (c *Catalog) MustAdd(name string, f ProviderFactory) {
	if err := c.Add(name, f); err != nil {
		panic(err)
	}
}

// Names returns the registered plugin names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create builds the provider described by spec.
func (c *Catalog) Create(spec PluginSpec) (Provider, error) {
	c.mu.RLock()
	f, ok := c.factories[spec.Name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, spec.Name)
	}
	return f(spec.Conf)
}

// Load creates every plugin in specs and registers it with reg, in order.
// Nothing is registered when a name is unknown.
func (c *Catalog) Load(ctx context.Context, reg *ProviderRegistry, specs ...PluginSpec) error {
	providers := make([]Provider, 0, len(specs))
	for _, spec := range specs {
		p, err := c.Create(spec)
		if err != nil {
			return err
		}
		providers = append(providers, p)
	}
	for _, p := range providers {
		if err := reg.Register(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

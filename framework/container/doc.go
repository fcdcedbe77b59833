// Package container provides a decorating factory container and a Service
// Provider system on top of package ioc.
//
// # Overview
//
// Where an ioc.Storage simply maps keys to factories, a Container also owns
// an ordered list of decorators that wrap every factory it holds. Containers
// are entered into a context.Context as a stack; lookups search the stack
// from the innermost container outward.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(ctx, &MyProvider{})
//  3. Boot: registry.Boot(ctx)        safe to resolve everything after this
//  4. Serve requests: ctx = container.Enter(ctx, c)
//
// # Factories
//
//	type GreetingFactory func(ctx context.Context, name string) string
//
//	// Strict: adding the same key twice fails with ioc.ErrFactoryAlreadyAdded
//	container.Add[GreetingFactory](c, english, "en")
//	container.Add[GreetingFactory](c, russian, "ru")
//
// # Decorators
//
//	c.AddDecorator(func(key ioc.Key, factory any) any {
//	    log.Debugf("decorating %s", key)
//	    return factory
//	})
//
// The first decorator added is the innermost one. A decorator added after
// factories were registered wraps them too, so the result never depends on
// the order of AddFactory and AddDecorator calls.
//
// # Resolving
//
//	// Through the container
//	greet, err := container.Get[GreetingFactory](c, "en")
//
//	// Through the context stack
//	var Greeting = container.Proxy[GreetingFactory]("en")
//	Greeting(ctx, "Ann")
//
//	// Dynamically, with keyword arguments
//	container.CallArgs(ctx, ioc.KeyOf[GreetingFactory]("en"), ioc.Args{}.With("arg0", "Ann"))
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(ctx context.Context, app container.Resolver) error {
//	    return container.Add[GreetingFactory](app, english)
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(ctx, &AppServiceProvider{})
//	registry.Boot(ctx)
//
// # Plugins
//
// A Catalog maps plugin names to provider factories so an application can
// load the providers its configuration lists:
//
//	catalog.Load(ctx, registry, container.PluginSpec{Name: "english"})
package container

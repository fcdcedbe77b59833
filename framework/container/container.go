package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/km-arc/go-ioc/framework/ioc"
)

// ── Decorators ────────────────────────────────────────────────────────────────

// Decorator wraps a factory registered under key. It receives the factory as
// the contract type (factory.(F) always succeeds for KeyOf[F]) and must return
// a value implementing the same contract.
//
//	c.AddDecorator(func(key ioc.Key, factory any) any {
//	    if f, ok := factory.(GreetingFactory); ok {
//	        return GreetingFactory(func(ctx context.Context, name string) string {
//	            return strings.ToUpper(f(ctx, name))
//	        })
//	    }
//	    return factory
//	})
type Decorator func(key ioc.Key, factory any) any

// entry keeps the factory as registered next to its decorated form.
type entry struct {
	raw     any
	wrapped any
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container stores factories by ioc.Key and applies decorators to them.
//
// It supports:
//   - AddFactory / Add (strict: a key can be registered once)
//   - AddDecorator (wraps registered and future factories)
//   - Factory / Get / CallFactory / CallArgs
//   - AfterResolving callbacks
type Container struct {
	mu sync.RWMutex

	// key → factory
	factories map[ioc.Key]*entry

	// registration order of factories
	order []ioc.Key

	// first registered is innermost
	decorators []Decorator

	// resolved callbacks: []func(key, factory)
	afterResolving []func(ioc.Key, any)

	// bumped by every change to factories or decorators
	version uint64
}

// maxAttempts bounds how often registration retries decoration after the
// container changed underneath it.
const maxAttempts = 16

// ErrConcurrentUpdate is returned when the container kept changing while a
// registration was being decorated, e.g. by a decorator that registers
// factories itself.
var ErrConcurrentUpdate = errors.New("container: changed during decoration")

// New creates an empty container.
func New() *Container {
	return &Container{factories: make(map[ioc.Key]*entry)}
}

// ── Registration ──────────────────────────────────────────────────────────────

// AddFactory registers factory under key and wraps it with every decorator
// added so far. A key can only be added once; a second registration fails
// with ioc.FactoryAlreadyAddedError and leaves the first one in place.
//
// Decorators run without the container lock held, so they may query the
// container. If it changes while they run, decoration starts over.
//
//	err := c.AddFactory(ioc.KeyOf[GreetingFactory]("en"), GreetingFactory(english))
func (c *Container) AddFactory(key ioc.Key, factory any) error {
	conformed, err := ioc.Conform(key, factory)
	if err != nil {
		return err
	}

	for range maxAttempts {
		c.mu.RLock()
		_, taken := c.factories[key]
		decorators, version := c.decorators, c.version
		c.mu.RUnlock()
		if taken {
			return ioc.FactoryAlreadyAddedError{Key: key}
		}

		wrapped, err := decorate(key, conformed, decorators)
		if err != nil {
			return err
		}

		c.mu.Lock()
		if c.version != version {
			c.mu.Unlock()
			continue
		}
		c.factories[key] = &entry{raw: conformed, wrapped: wrapped}
		c.order = append(c.order, key)
		c.version++
		c.mu.Unlock()
		return nil
	}
	return fmt.Errorf("%w: adding %s", ErrConcurrentUpdate, key)
}

// AddDecorator wraps every registered factory with d and records d for
// factories added later. d becomes the outermost decorator.
//
// If d returns an invalid factory for any key, nothing is changed.
func (c *Container) AddDecorator(d Decorator) error {
	if d == nil {
		panic("container: AddDecorator called with a nil decorator")
	}

	for range maxAttempts {
		c.mu.RLock()
		keys := append([]ioc.Key(nil), c.order...)
		current := make([]any, len(keys))
		for i, key := range keys {
			current[i] = c.factories[key].wrapped
		}
		version := c.version
		c.mu.RUnlock()

		next := make([]any, len(keys))
		for i, key := range keys {
			wrapped, err := decorate(key, current[i], []Decorator{d})
			if err != nil {
				return err
			}
			next[i] = wrapped
		}

		c.mu.Lock()
		if c.version != version {
			c.mu.Unlock()
			continue
		}
		for i, key := range keys {
			c.factories[key].wrapped = next[i]
		}
		c.decorators = append(c.decorators[:len(c.decorators):len(c.decorators)], d)
		c.version++
		c.mu.Unlock()
		return nil
	}
	return fmt.Errorf("%w: adding decorator", ErrConcurrentUpdate)
}

// decorate applies decorators in order, validating every intermediate result.
func decorate(key ioc.Key, factory any, decorators []Decorator) (any, error) {
	for _, d := range decorators {
		out, err := ioc.Conform(key, d(key, factory))
		if err != nil {
			return nil, err
		}
		factory = out
	}
	return factory, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Factory returns the decorated factory registered under key.
func (c *Container) Factory(key ioc.Key) (any, error) {
	c.mu.RLock()
	e, ok := c.factories[key]
	c.mu.RUnlock()
	if !ok {
		return nil, ioc.FactoryNotFoundError{Key: key}
	}
	c.fireAfterResolving(key, e.wrapped)
	return e.wrapped, nil
}

// Raw returns the factory registered under key without its decorators.
func (c *Container) Raw(key ioc.Key) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.factories[key]
	if !ok {
		return nil, ioc.FactoryNotFoundError{Key: key}
	}
	return e.raw, nil
}

// CallFactory calls the factory registered under key with positional args.
// ctx is passed first when the contract takes a context.
//
//	res, err := c.CallFactory(ctx, ioc.KeyOf[GreetingFactory]("en"), "Ann")
func (c *Container) CallFactory(ctx context.Context, key ioc.Key, args ...any) ([]any, error) {
	return c.CallArgs(ctx, key, ioc.Positional(args...))
}

// CallArgs is CallFactory with keyword arguments and defaults bound by the
// contract's parameter descriptor.
func (c *Container) CallArgs(ctx context.Context, key ioc.Key, args ioc.Args) ([]any, error) {
	contract, err := ioc.ContractFor(key.Type())
	if err != nil {
		return nil, err
	}
	f, err := c.Factory(key)
	if err != nil {
		return nil, err
	}
	return contract.Invoke(ctx, f, args)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Has reports whether key has been added.
func (c *Container) Has(key ioc.Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[key]
	return ok
}

// Keys returns the registered keys in registration order.
func (c *Container) Keys() []ioc.Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ioc.Key(nil), c.order...)
}

// Len returns the number of registered factories.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.factories)
}

// Forget removes the factory registered under key so it can be added again.
func (c *Container) Forget(key ioc.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[key]; !ok {
		return
	}
	delete(c.factories, key)
	c.version++
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Flush resets the entire container, decorators included.
func (c *Container) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories = make(map[ioc.Key]*entry)
	c.order = nil
	c.decorators = nil
	c.version++
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired every time a factory is looked up.
//
//	c.AfterResolving(func(key ioc.Key, _ any) { log.Debugf("resolved %s", key) })
func (c *Container) AfterResolving(cb func(key ioc.Key, factory any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(key ioc.Key, factory any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, factory)
	}
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Add registers f as the F factory of r.
//
//	err := container.Add[GreetingFactory](c, english, "en")
func Add[F any](r Resolver, f F, id ...string) error {
	return r.AddFactory(ioc.KeyOf[F](id...), f)
}

// Get returns the decorated F factory of r.
func Get[F any](r Resolver, id ...string) (F, error) {
	var zero F
	key := ioc.KeyOf[F](id...)
	f, err := r.Factory(key)
	if err != nil {
		return zero, err
	}
	typed, ok := f.(F)
	if !ok {
		return zero, ioc.InvalidFactoryError{Key: key}
	}
	return typed, nil
}

// MustGet is like Get but panics when the factory is missing.
func MustGet[F any](r Resolver, id ...string) F {
	f, err := Get[F](r, id...)
	if err != nil {
		panic(fmt.Sprintf("container: MustGet: %v", err))
	}
	return f
}

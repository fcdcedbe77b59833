package ioc

import (
	"context"
	"sync"
)

// Cache wraps fn so that it runs until it first succeeds; later calls return
// the cached value. Errors are not cached.
//
//	ConfigFactory(ioc.Cache(func(ctx context.Context) (*Config, error) {
//	    return config.Load()
//	}))
func Cache[T any](fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	var (
		mu    sync.Mutex
		done  bool
		value T
	)
	return func(ctx context.Context) (T, error) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return value, nil
		}
		v, err := fn(ctx)
		if err != nil {
			return v, err
		}
		value, done = v, true
		return value, nil
	}
}

// CacheAsync is Cache for factories delivering their value on a channel.
// Every call returns a fresh channel that yields the cached value once and
// is then closed. If fn's channel closes empty, or ctx ends first, the
// returned channel is closed without a value and nothing is cached. A
// caller waiting behind another call also gives up when its ctx ends.
func CacheAsync[T any](fn func(ctx context.Context) <-chan T) func(ctx context.Context) <-chan T {
	// one slot; holding it guards done and value
	sem := make(chan struct{}, 1)
	var (
		done  bool
		value T
	)
	return func(ctx context.Context) <-chan T {
		if ctx == nil {
			ctx = context.Background()
		}
		out := make(chan T, 1)
		go func() {
			defer close(out)
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if !done {
				select {
				case v, ok := <-fn(ctx):
					if !ok {
						return
					}
					value, done = v, true
				case <-ctx.Done():
					return
				}
			}
			out <- value
		}()
		return out
	}
}

// Singleton returns a factory that always yields v.
func Singleton[T any](v T) func(context.Context) T {
	return func(context.Context) T { return v }
}

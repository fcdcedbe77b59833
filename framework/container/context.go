package container

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/km-arc/go-ioc/framework/ioc"
)

// ── Scope stack ───────────────────────────────────────────────────────────────

type stackKey struct{}

// Enter pushes r onto the container stack of the returned context. The
// caller's ctx keeps its own stack.
//
//	ctx = container.Enter(ctx, container.New())
//	_ = container.AddFactory(ctx, ioc.KeyOf[GreetingFactory](), english)
func Enter(ctx context.Context, r Resolver) context.Context {
	if r == nil {
		panic("container: Enter called with a nil resolver")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	prev := stack(ctx)
	next := make([]Resolver, len(prev), len(prev)+1)
	copy(next, prev)
	return context.WithValue(ctx, stackKey{}, append(next, r))
}

// Scope runs fn with r entered.
func Scope(ctx context.Context, r Resolver, fn func(ctx context.Context) error) error {
	return fn(Enter(ctx, r))
}

// Current returns the innermost resolver of ctx, or ioc.ErrContainerNotSet.
func Current(ctx context.Context) (Resolver, error) {
	s := stack(ctx)
	if len(s) == 0 {
		return nil, ioc.ErrContainerNotSet
	}
	return s[len(s)-1], nil
}

// Stack returns the resolvers of ctx, outermost first.
func Stack(ctx context.Context) []Resolver {
	return append([]Resolver(nil), stack(ctx)...)
}

func stack(ctx context.Context) []Resolver {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(stackKey{}).([]Resolver)
	return s
}

// ── Context-bound operations ──────────────────────────────────────────────────

// AddFactory registers factory in the innermost container of ctx.
func AddFactory(ctx context.Context, key ioc.Key, factory any) error {
	r, err := Current(ctx)
	if err != nil {
		return err
	}
	return r.AddFactory(key, factory)
}

// AddDecorator adds d to the innermost container of ctx.
func AddDecorator(ctx context.Context, d Decorator) error {
	r, err := Current(ctx)
	if err != nil {
		return err
	}
	return r.AddDecorator(d)
}

// Factory searches the containers of ctx from innermost to outermost and
// returns the first factory registered under key.
func Factory(ctx context.Context, key ioc.Key) (any, error) {
	s := stack(ctx)
	if len(s) == 0 {
		return nil, ioc.ErrContainerNotSet
	}
	for i := len(s) - 1; i >= 0; i-- {
		f, err := s[i].Factory(key)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, ioc.ErrFactoryNotFound) {
			return nil, err
		}
	}
	return nil, ioc.FactoryNotFoundError{Key: key}
}

// Lookup is the typed form of Factory.
func Lookup[F any](ctx context.Context, id ...string) (F, error) {
	var zero F
	key := ioc.KeyOf[F](id...)
	f, err := Factory(ctx, key)
	if err != nil {
		return zero, err
	}
	typed, ok := f.(F)
	if !ok {
		return zero, ioc.InvalidFactoryError{Key: key, Got: reflect.TypeOf(f)}
	}
	return typed, nil
}

// CallFactory calls the factory for key found in ctx with positional args.
func CallFactory(ctx context.Context, key ioc.Key, args ...any) ([]any, error) {
	return CallArgs(ctx, key, ioc.Positional(args...))
}

// CallArgs calls the factory for key found in ctx, binding args against the
// contract's parameter descriptor.
func CallArgs(ctx context.Context, key ioc.Key, args ioc.Args) ([]any, error) {
	contract, err := ioc.ContractFor(key.Type())
	if err != nil {
		return nil, err
	}
	f, err := Factory(ctx, key)
	if err != nil {
		return nil, err
	}
	return contract.Invoke(ctx, f, args)
}

// ── Proxies ───────────────────────────────────────────────────────────────────

var proxies sync.Map // ioc.Key -> F

// MakeProxy builds a function of type F that resolves the factory for key
// from the container stack of its ctx argument on every call.
//
// F must take a context.Context first. Resolution errors are returned in a
// trailing error result when F has one; otherwise the proxy panics.
func MakeProxy[F any](key ioc.Key) (F, error) {
	var zero F
	t := reflect.TypeFor[F]()
	contract, err := ioc.ContractFor(t)
	if err != nil {
		return zero, err
	}
	if key.Type() != t {
		return zero, ioc.InvalidFactoryTypeError{Type: t, Reason: "key addresses " + key.String()}
	}
	sig := contract.Signature()
	if !sig.Context {
		return zero, ioc.InvalidFactoryTypeError{Type: t, Reason: "proxy requires context.Context as the first parameter"}
	}

	fn := reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		ctx, _ := in[0].Interface().(context.Context)
		f, err := Factory(ctx, key)
		if err != nil {
			if !sig.ReturnsError {
				panic(err)
			}
			out := make([]reflect.Value, len(sig.Results))
			for i, rt := range sig.Results {
				out[i] = reflect.Zero(rt)
			}
			out[len(out)-1] = reflect.ValueOf(&err).Elem()
			return out
		}
		if t.IsVariadic() {
			return reflect.ValueOf(f).CallSlice(in)
		}
		return reflect.ValueOf(f).Call(in)
	})
	return fn.Interface().(F), nil
}

// Proxy returns the memoized container proxy for F under the optional id.
// It panics if F is not a valid proxy contract.
//
//	var Greeting = container.Proxy[GreetingFactory]()
//
//	Greeting(ctx, "Ann") // resolved through the containers entered in ctx
func Proxy[F any](id ...string) F {
	key := ioc.KeyOf[F](id...)
	if p, ok := proxies.Load(key); ok {
		return p.(F)
	}
	p, err := MakeProxy[F](key)
	if err != nil {
		panic(err)
	}
	actual, _ := proxies.LoadOrStore(key, p)
	return actual.(F)
}

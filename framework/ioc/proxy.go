package ioc

import (
	"context"
	"reflect"
	"sync"
)

// Setter writes an F factory into the storage active in ctx.
type Setter[F any] func(ctx context.Context, factory F) error

// Getter returns the F factory resolved from the storage active in ctx.
type Getter[F any] func(ctx context.Context) (F, error)

var (
	proxies sync.Map // Key -> F
	setters sync.Map // Key -> Setter[F]
	getters sync.Map // Key -> Getter[F]
)

// ── Proxies ───────────────────────────────────────────────────────────────────

// MakeProxy builds a function of type F that, on every call, resolves the
// factory registered under key in the storage active in the call's ctx and
// forwards all arguments to it unchanged.
//
// F must take a context.Context first. When resolution fails the proxy
// returns zero values and the error if F's last result is an error, and
// panics with the error otherwise.
//
// Each call to MakeProxy returns a new function; use Proxy for a memoized one.
func MakeProxy[F any](key Key) (F, error) {
	var zero F
	c, err := contractForKey[F](key)
	if err != nil {
		return zero, err
	}
	if !c.sig.Context {
		return zero, InvalidFactoryTypeError{Type: c.typ, Reason: "proxy requires context.Context as the first parameter"}
	}

	t := c.typ
	fn := reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		ctx, _ := in[0].Interface().(context.Context)
		target, err := resolve(ctx, key)
		if err != nil {
			return failure(c, err)
		}
		if t.IsVariadic() {
			return target.CallSlice(in)
		}
		return target.Call(in)
	})
	return fn.Interface().(F), nil
}

// Proxy returns the memoized proxy for F under the optional id. Identical
// keys always yield the same function value. It panics if F is not a valid
// proxy contract.
//
//	var Integer = ioc.Proxy[IntegerFactory]()
//
//	n := Integer(ctx) // calls whatever IntegerFactory ctx currently holds
func Proxy[F any](id ...string) F {
	key := KeyOf[F](id...)
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

// resolve looks key up in the storage of ctx and returns it as a value of
// exactly the contract type.
func resolve(ctx context.Context, key Key) (reflect.Value, error) {
	s, err := Current(ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	f, err := s.Get(key)
	if err != nil {
		return reflect.Value{}, err
	}
	v := reflect.ValueOf(f)
	if !v.IsValid() || v.Type() != key.Type() {
		conformed, err := Conform(key, f)
		if err != nil {
			return reflect.Value{}, err
		}
		v = reflect.ValueOf(conformed)
	}
	return v, nil
}

// failure produces the results of a contract call that could not reach its
// factory.
func failure(c *Contract, err error) []reflect.Value {
	if !c.sig.ReturnsError {
		panic(err)
	}
	out := make([]reflect.Value, len(c.sig.Results))
	for i, rt := range c.sig.Results {
		out[i] = reflect.Zero(rt)
	}
	out[len(out)-1] = reflect.ValueOf(&err).Elem()
	return out
}

func contractForKey[F any](key Key) (*Contract, error) {
	t := reflect.TypeFor[F]()
	c, err := ContractFor(t)
	if err != nil {
		return nil, err
	}
	if key.Type() != t {
		return nil, InvalidFactoryTypeError{Type: t, Reason: "key addresses " + typeName(key.Type())}
	}
	return c, nil
}

// ── Setters and getters ───────────────────────────────────────────────────────

// MakeSetter returns a Setter writing under key.
func MakeSetter[F any](key Key) (Setter[F], error) {
	if _, err := contractForKey[F](key); err != nil {
		return nil, err
	}
	return func(ctx context.Context, factory F) error {
		s, err := Current(ctx)
		if err != nil {
			return err
		}
		return s.Set(key, factory)
	}, nil
}

// MakeGetter returns a Getter reading key. Unlike a proxy it works for
// contracts that do not take a context.Context.
func MakeGetter[F any](key Key) (Getter[F], error) {
	if _, err := contractForKey[F](key); err != nil {
		return nil, err
	}
	return func(ctx context.Context) (F, error) {
		var zero F
		v, err := resolve(ctx, key)
		if err != nil {
			return zero, err
		}
		return v.Interface().(F), nil
	}, nil
}

// SetterOf returns the memoized Setter for F under the optional id.
func SetterOf[F any](id ...string) Setter[F] {
	key := KeyOf[F](id...)
	if s, ok := setters.Load(key); ok {
		return s.(Setter[F])
	}
	s, err := MakeSetter[F](key)
	if err != nil {
		panic(err)
	}
	actual, _ := setters.LoadOrStore(key, s)
	return actual.(Setter[F])
}

// GetterOf returns the memoized Getter for F under the optional id.
func GetterOf[F any](id ...string) Getter[F] {
	key := KeyOf[F](id...)
	if g, ok := getters.Load(key); ok {
		return g.(Getter[F])
	}
	g, err := MakeGetter[F](key)
	if err != nil {
		panic(err)
	}
	actual, _ := getters.LoadOrStore(key, g)
	return actual.(Getter[F])
}

// Use returns the proxy and the setter for F in one call.
//
//	var Greeting, SetGreeting = ioc.Use[GreetingFactory]()
func Use[F any](id ...string) (F, Setter[F]) {
	return Proxy[F](id...), SetterOf[F](id...)
}

// Set stores f as the F factory of the storage active in ctx.
func Set[F any](ctx context.Context, f F, id ...string) error {
	return SetterOf[F](id...)(ctx, f)
}

// Get resolves the F factory from the storage active in ctx.
func Get[F any](ctx context.Context, id ...string) (F, error) {
	return GetterOf[F](id...)(ctx)
}

// Call invokes the factory registered under key in the storage active in
// ctx, binding args against the contract's parameter descriptor.
//
//	res, err := ioc.Call(ctx, ioc.KeyOf[SumFactory](), ioc.Positional(1, 2).With("c", 4))
func Call(ctx context.Context, key Key, args Args) ([]any, error) {
	c, err := ContractFor(key.Type())
	if err != nil {
		return nil, err
	}
	target, err := resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return c.Invoke(ctx, target.Interface(), args)
}

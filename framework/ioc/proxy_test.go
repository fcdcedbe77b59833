package ioc

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	recordFactory func(ctx context.Context, a, b, c int) []int
	callFactory   func(ctx context.Context, a, b, c int) int
)

func TestProxy_ResolvesAtCallTime(t *testing.T) {
	t.Parallel()

	ctx, _ := scoped(t)
	integer, setInteger := Use[IntegerFactory]()

	requirePanicsWith(t, ErrFactoryNotFound, func() { integer(ctx) })

	require.NoError(t, setInteger(ctx, constant(1)))
	assert.Equal(t, 1, integer(ctx))

	require.NoError(t, setInteger(ctx, constant(2)))
	assert.Equal(t, 2, integer(ctx), "replacement is seen by existing proxies")
}

func TestProxy_ResolvesInCallersScope(t *testing.T) {
	t.Parallel()

	first, _ := Enter(context.Background(), NewDictStorage())
	second, _ := Enter(context.Background(), NewDictStorage())
	integer := Proxy[IntegerFactory]()

	require.NoError(t, Set(first, constant(1)))
	assert.Equal(t, 1, integer(first))

	requirePanicsWith(t, ErrFactoryNotFound, func() { integer(second) })
	assert.Equal(t, funcID(integer), funcID(Proxy[IntegerFactory]()), "one proxy serves both scopes")
	assert.Equal(t, 1, integer(first))
}

func TestProxy_Memoized(t *testing.T) {
	t.Parallel()

	assert.Equal(t, funcID(Proxy[IntegerFactory]()), funcID(Proxy[IntegerFactory]()))
	assert.Equal(t, funcID(Proxy[IntegerFactory]("a")), funcID(Proxy[IntegerFactory]("a")))
	assert.NotEqual(t, funcID(Proxy[IntegerFactory]()), funcID(Proxy[IntegerFactory]("a")))

	p, setter := Use[IntegerFactory]()
	assert.Equal(t, funcID(Proxy[IntegerFactory]()), funcID(p))
	assert.Equal(t, funcID(SetterOf[IntegerFactory]()), funcID(setter))
	assert.Equal(t, funcID(GetterOf[IntegerFactory]()), funcID(GetterOf[IntegerFactory]()))

	a, err := MakeProxy[IntegerFactory](KeyOf[IntegerFactory]())
	require.NoError(t, err)
	b, err := MakeProxy[IntegerFactory](KeyOf[IntegerFactory]())
	require.NoError(t, err)
	assert.NotEqual(t, funcID(a), funcID(b), "MakeProxy builds a fresh function")
}

func TestProxy_NoStorage(t *testing.T) {
	t.Parallel()

	requirePanicsWith(t, ErrStorageNotSet, func() { Proxy[IntegerFactory]()(context.Background()) })

	load := Proxy[LoadFactory]()
	got, err := load(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStorageNotSet)
	assert.Empty(t, got)

	_, err = GetterOf[IntegerFactory]()(context.Background())
	assert.ErrorIs(t, err, ErrStorageNotSet)
	assert.ErrorIs(t, SetterOf[IntegerFactory]()(context.Background(), constant(1)), ErrStorageNotSet)
}

func TestProxy_ErrorSlot(t *testing.T) {
	t.Parallel()

	ctx, _ := scoped(t)
	load := Proxy[LoadFactory]()

	_, err := load(ctx, "cfg")
	var notFound FactoryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, KeyOf[LoadFactory](), notFound.Key)

	boom := errors.New("boom")
	require.NoError(t, Set(ctx, LoadFactory(func(_ context.Context, name string) (string, error) {
		if name == "bad" {
			return "", boom
		}
		return "loaded " + name, nil
	})))

	got, err := load(ctx, "cfg")
	require.NoError(t, err)
	assert.Equal(t, "loaded cfg", got)

	_, err = load(ctx, "bad")
	assert.ErrorIs(t, err, boom, "factory errors are forwarded unchanged")
}

func TestProxy_ForwardsArguments(t *testing.T) {
	t.Parallel()

	ctx, _ := scoped(t)
	require.NoError(t, Set(ctx, recordFactory(func(_ context.Context, a, b, c int) []int {
		return []int{a, b, c}
	})))
	assert.Equal(t, []int{1, 2, 3}, Proxy[recordFactory]()(ctx, 1, 2, 3))

	require.NoError(t, Set(ctx, JoinFactory(func(_ context.Context, sep string, parts ...string) string {
		return strings.Join(parts, sep)
	})))
	join := Proxy[JoinFactory]()
	assert.Equal(t, "a+b+c", join(ctx, "+", "a", "b", "c"))
	assert.Equal(t, "", join(ctx, "+"))
	assert.Equal(t, "x,y", join(ctx, ",", []string{"x", "y"}...))
}

func TestProxy_PassesCallerContext(t *testing.T) {
	t.Parallel()

	type reqID struct{}
	ctx, _ := scoped(t)
	require.NoError(t, Set[StringFactory](ctx, func(ctx context.Context) string {
		return ctx.Value(reqID{}).(string)
	}))

	reqCtx := context.WithValue(ctx, reqID{}, "req-1")
	assert.Equal(t, "req-1", Proxy[StringFactory]()(reqCtx))
}

func TestProxy_Async(t *testing.T) {
	t.Parallel()

	ctx, _ := scoped(t)
	require.NoError(t, Set(ctx, AsyncIntFactory(func(context.Context) <-chan int {
		ch := make(chan int, 1)
		ch <- 42
		close(ch)
		return ch
	})))

	ch := Proxy[AsyncIntFactory]()(ctx)
	assert.Equal(t, 42, <-ch)
	_, open := <-ch
	assert.False(t, open)
}

func TestMakeProxy_Rejects(t *testing.T) {
	t.Parallel()

	_, err := MakeProxy[ContextlessSum](KeyOf[ContextlessSum]())
	assert.ErrorIs(t, err, ErrInvalidFactoryType)
	assert.Contains(t, err.Error(), "context.Context")

	_, err = MakeProxy[IntegerFactory](KeyOf[StringFactory]())
	assert.ErrorIs(t, err, ErrInvalidFactoryType)

	_, err = MakeProxy[withPublicMethod](KeyOf[withPublicMethod]())
	assert.ErrorIs(t, err, ErrInvalidFactoryType)

	_, err = MakeSetter[IntegerFactory](KeyOf[StringFactory]())
	assert.ErrorIs(t, err, ErrInvalidFactoryType)

	_, err = MakeGetter[IntegerFactory](KeyOf[StringFactory]())
	assert.ErrorIs(t, err, ErrInvalidFactoryType)

	assert.Panics(t, func() { Proxy[ContextlessSum]() })
	assert.Panics(t, func() { SetterOf[withPublicMethod]() })
}

func TestGetter_Contextless(t *testing.T) {
	t.Parallel()

	ctx, _ := scoped(t)
	require.NoError(t, Set[ContextlessSum](ctx, func(a, b int) int { return a + b }))

	sum, err := Get[ContextlessSum](ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, sum(2, 3))
}

func TestCall_BindsDescriptor(t *testing.T) {
	t.Parallel()

	MustDeclare[callFactory](PosOnly("a"), Arg("b"), KwOnly("c").WithDefault(3))

	var calls atomic.Int32
	ctx, _ := scoped(t)
	require.NoError(t, Set(ctx, callFactory(func(_ context.Context, a, b, c int) int {
		calls.Add(1)
		return a*100 + b*10 + c
	})))

	res, err := Call(ctx, KeyOf[callFactory](), Positional(1, 2))
	require.NoError(t, err)
	assert.Equal(t, []any{123}, res)

	res, err = Call(ctx, KeyOf[callFactory](), Positional(1, 2).With("c", 4))
	require.NoError(t, err)
	assert.Equal(t, []any{124}, res)

	_, err = Call(ctx, KeyOf[callFactory](), Positional(1, 2, 4))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.Equal(t, int32(2), calls.Load(), "invalid arguments never reach the factory")

	_, err = Call(ctx, KeyOf[callFactory]("missing"), Positional(1, 2))
	assert.ErrorIs(t, err, ErrFactoryNotFound)

	_, err = Call(context.Background(), KeyOf[callFactory](), Positional(1, 2))
	assert.ErrorIs(t, err, ErrStorageNotSet)
}

// TestEndToEnd_IntegerFactory walks the canonical flow: declare, scope, set, call.
func TestEndToEnd_IntegerFactory(t *testing.T) {
	t.Parallel()

	integer, setInteger := Use[IntegerFactory]("e2e")

	err := Scope(context.Background(), NewDictStorage(), func(ctx context.Context, _ Storage) error {
		if err := setInteger(ctx, func(context.Context) int { return 42 }); err != nil {
			return err
		}
		assert.Equal(t, 42, integer(ctx))

		return Scope(ctx, NewDictStorage(), func(ctx context.Context, _ Storage) error {
			assert.Equal(t, 42, integer(ctx))
			if err := setInteger(ctx, constant(7)); err != nil {
				return err
			}
			assert.Equal(t, 7, integer(ctx))
			return nil
		})
	})
	require.NoError(t, err)
}

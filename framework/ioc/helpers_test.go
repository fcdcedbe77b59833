package ioc

import (
	"context"
	"errors"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// Contracts shared by the package tests. Tests that declare descriptors or
// ancestry use their own types so they can run in parallel.
type (
	IntegerFactory   func(ctx context.Context) int
	StringFactory    func(ctx context.Context) string
	LoadFactory      func(ctx context.Context, name string) (string, error)
	ContextlessSum   func(a, b int) int
	AsyncIntFactory  func(ctx context.Context) <-chan int
	JoinFactory      func(ctx context.Context, sep string, parts ...string) string
	otherInteger     func(ctx context.Context) int
	notAFunc         struct{ Call func() }
	withPublicMethod func(ctx context.Context) int
	withPtrMethod    func(ctx context.Context) int
	withPrivate      func(ctx context.Context) int
)

func (withPublicMethod) Describe() string { return "" }
func (*withPtrMethod) Reset()             {}
func (withPrivate) describe() string      { return "" }

func constant(n int) IntegerFactory {
	return func(context.Context) int { return n }
}

// funcID returns the closure pointer of f, which is distinct for every
// function value created at runtime.
func funcID[F any](f F) uintptr {
	return uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&f)))
}

// requirePanicsWith runs fn and requires it to panic with an error matching target.
func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.Is(err, target), "panic %v does not match %v", err, target)
	}()
	fn()
}

func scoped(t *testing.T, opts ...StorageOption) (context.Context, *DictStorage) {
	t.Helper()
	s := NewDictStorage(opts...)
	ctx, _ := Enter(context.Background(), s)
	return ctx, s
}

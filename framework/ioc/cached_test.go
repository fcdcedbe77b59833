package ioc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	configFactory      func(ctx context.Context) (map[string]string, error)
	asyncStringFactory func(ctx context.Context) <-chan string
)

func TestCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fail := true
	f := configFactory(Cache(func(context.Context) (map[string]string, error) {
		calls.Add(1)
		if fail {
			return nil, errors.New("not ready")
		}
		return map[string]string{"env": "test"}, nil
	}))

	_, err := f(context.Background())
	require.Error(t, err)

	fail = false
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "test", got["env"])
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), calls.Load(), "errors are retried, successes are cached")
}

func TestCacheAsync(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	f := asyncStringFactory(CacheAsync(func(context.Context) <-chan string {
		calls.Add(1)
		ch := make(chan string, 1)
		ch <- "value"
		return ch
	}))

	ctx := context.Background()
	assert.Equal(t, "value", <-f(ctx))
	assert.Equal(t, "value", <-f(ctx))
	assert.Equal(t, int32(1), calls.Load())

	ch := f(ctx)
	<-ch
	_, open := <-ch
	assert.False(t, open)
}

func TestCacheAsync_EmptyOrCancelled(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	f := CacheAsync(func(ctx context.Context) <-chan int {
		calls.Add(1)
		ch := make(chan int)
		if calls.Load() == 1 {
			close(ch)
		}
		return ch
	})

	_, ok := <-f(context.Background())
	assert.False(t, ok, "closed without a value")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok = <-f(ctx)
	assert.False(t, ok, "cancelled before a value")
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheAsync_CancelWhileAnotherCallWaits(t *testing.T) {
	t.Parallel()

	stuck := make(chan int)
	f := CacheAsync(func(context.Context) <-chan int { return stuck })

	first, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	pending := f(first)

	second, cancel := context.WithCancel(context.Background())
	cancel()
	select {
	case _, ok := <-f(second):
		assert.False(t, ok, "cancelled without a value")
	case <-time.After(2 * time.Second):
		t.Fatal("a cancelled caller waited for the call in flight")
	}

	cancelFirst()
	_, ok := <-pending
	assert.False(t, ok)
}

func TestCacheAsync_NilContext(t *testing.T) {
	t.Parallel()

	f := CacheAsync(func(context.Context) <-chan int {
		ch := make(chan int, 1)
		ch <- 7
		return ch
	})
	//nolint:staticcheck // nil contexts are tolerated
	assert.Equal(t, 7, <-f(nil))
}

func TestSingleton(t *testing.T) {
	t.Parallel()

	ctx, _ := scoped(t)
	require.NoError(t, Set(ctx, IntegerFactory(Singleton(5))))
	assert.Equal(t, 5, Proxy[IntegerFactory]()(ctx))
}

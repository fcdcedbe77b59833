package container_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/ioc"
)

type labelFactory func(ctx context.Context) string

// ── stub providers ────────────────────────────────────────────────────────────

type eagerProvider struct {
	container.BaseProvider
	registerCalls int
	bootCalls     int
}

func (p *eagerProvider) Register(_ context.Context, app container.Resolver) error {
	p.registerCalls++
	return container.Add[labelFactory](app, func(context.Context) string { return "eager" }, "eager")
}

func (p *eagerProvider) Boot(context.Context, container.Resolver) error {
	p.bootCalls++
	return nil
}

// multiProvider registers multiple factories.
type multiProvider struct {
	container.BaseProvider
}

func (p *multiProvider) Register(_ context.Context, app container.Resolver) error {
	if err := container.Add[labelFactory](app, func(context.Context) string { return "α" }, "alpha"); err != nil {
		return err
	}
	return container.Add[labelFactory](app, func(context.Context) string { return "β" }, "beta")
}

// bootingProvider resolves a factory added by another provider during Boot.
type bootingProvider struct {
	container.BaseProvider
	seen string
}

func (p *bootingProvider) Register(context.Context, container.Resolver) error { return nil }

func (p *bootingProvider) Boot(ctx context.Context, app container.Resolver) error {
	f, err := container.Get[labelFactory](app, "alpha")
	if err != nil {
		return err
	}
	p.seen = f(ctx)
	return nil
}

type failingProvider struct {
	container.BaseProvider
	err error
}

func (p *failingProvider) Register(context.Context, container.Resolver) error { return p.err }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

func TestRegistry_RegisterCalledImmediately(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))

	assert.Equal(t, 1, p.registerCalls)
	assert.Equal(t, 0, p.bootCalls, "Boot must wait for registry.Boot")
}

func TestRegistry_BootCalledAfterBoot(t *testing.T) {
	c := container.New()
	reg := container.NewProviderRegistry(c)

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	require.NoError(t, reg.Boot(context.Background()))

	assert.Equal(t, 1, p.bootCalls)
	f, err := container.Get[labelFactory](c, "eager")
	require.NoError(t, err)
	assert.Equal(t, "eager", f(context.Background()))
}

func TestRegistry_Boot_Idempotent(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	assert.False(t, reg.Booted())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	require.NoError(t, reg.Boot(context.Background()))
	require.NoError(t, reg.Boot(context.Background()))

	assert.True(t, reg.Booted())
	assert.Equal(t, 1, p.bootCalls)
}

func TestRegistry_DuplicateRegister_Ignored(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	require.NoError(t, reg.Register(context.Background(), p), "a second Add would fail if Register ran again")

	assert.Equal(t, 1, p.registerCalls)
	assert.Len(t, reg.Providers(), 1)
}

func TestRegistry_BootSeesOtherProviders(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())

	booting := &bootingProvider{}
	require.NoError(t, reg.Register(context.Background(), booting))
	require.NoError(t, reg.Register(context.Background(), &multiProvider{}))
	require.NoError(t, reg.Boot(context.Background()))

	assert.Equal(t, "α", booting.seen)
	assert.Len(t, reg.Providers(), 2)
}

func TestRegistry_RegisterError(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	boom := errors.New("boom")

	err := reg.Register(context.Background(), &failingProvider{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, reg.Providers())
}

func TestRegistry_RegisterAfterBoot_BootsImmediately(t *testing.T) {
	reg := container.NewProviderRegistry(container.New())
	require.NoError(t, reg.Boot(context.Background()))

	p := &eagerProvider{}
	require.NoError(t, reg.Register(context.Background(), p))
	assert.Equal(t, 1, p.bootCalls)
}

func TestBaseProvider_Boot(t *testing.T) {
	var p container.BaseProvider
	assert.NoError(t, p.Boot(context.Background(), container.New()))
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func newCatalog(t *testing.T) *container.Catalog {
	t.Helper()
	cat := container.NewCatalog()
	require.NoError(t, cat.Add("multi", func(map[string]any) (container.Provider, error) {
		return &multiProvider{}, nil
	}))
	require.NoError(t, cat.Add("eager", func(map[string]any) (container.Provider, error) {
		return &eagerProvider{}, nil
	}))
	return cat
}

func TestCatalog_Add(t *testing.T) {
	cat := newCatalog(t)
	assert.Equal(t, []string{"eager", "multi"}, cat.Names())

	assert.Error(t, cat.Add("eager", func(map[string]any) (container.Provider, error) { return nil, nil }))
	assert.Error(t, cat.Add("nil", nil))
	assert.Panics(t, func() { cat.MustAdd("multi", func(map[string]any) (container.Provider, error) { return nil, nil }) })
}

func TestCatalog_Load(t *testing.T) {
	cat := newCatalog(t)
	c := container.New()
	reg := container.NewProviderRegistry(c)

	require.NoError(t, cat.Load(context.Background(), reg,
		container.PluginSpec{Name: "multi"},
		container.PluginSpec{Name: "eager"},
	))
	assert.Len(t, reg.Providers(), 2)
	assert.Equal(t, []ioc.Key{
		ioc.KeyOf[labelFactory]("alpha"),
		ioc.KeyOf[labelFactory]("beta"),
		ioc.KeyOf[labelFactory]("eager"),
	}, c.Keys())
}

func TestCatalog_Load_UnknownNameRegistersNothing(t *testing.T) {
	cat := newCatalog(t)
	c := container.New()
	reg := container.NewProviderRegistry(c)

	err := cat.Load(context.Background(), reg, container.PluginSpec{Name: "multi"}, container.PluginSpec{Name: "nope"})
	assert.ErrorIs(t, err, container.ErrUnknownProvider)
	assert.Contains(t, err.Error(), "nope")
	assert.Empty(t, reg.Providers())
	assert.Equal(t, 0, c.Len())
}

func TestCatalog_CreatePassesConf(t *testing.T) {
	cat := container.NewCatalog()
	var got map[string]any
	cat.MustAdd("conf", func(conf map[string]any) (container.Provider, error) {
		got = conf
		return &multiProvider{}, nil
	})

	_, err := cat.Create(container.PluginSpec{Name: "conf", Conf: map[string]any{"path": "/tmp/x"}})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", got["path"])
}

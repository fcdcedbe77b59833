package container

import (
	"errors"

	"github.com/km-arc/go-ioc/framework/ioc"
)

// Resolver is what a container scope needs: registration, decoration and
// lookup by key. *Container and *NestedContainer implement it.
type Resolver interface {
	AddFactory(key ioc.Key, factory any) error
	AddDecorator(d Decorator) error
	Factory(key ioc.Key) (any, error)
	Has(key ioc.Key) bool
	Keys() []ioc.Key
}

// NestedContainer layers a local resolver over a parent one.
//
//	request := container.Nested(container.New(), app)
//	_ = container.Add[CurrentUserFactory](request, resolveUser)
type NestedContainer struct {
	local  Resolver
	parent Resolver
}

// Nested returns a view of local over parent. Lookups try local first;
// registrations and decorators only reach local.
func Nested(local, parent Resolver) *NestedContainer {
	return &NestedContainer{local: local, parent: parent}
}

// Local returns the resolver registrations go to.
func (n *NestedContainer) Local() Resolver { return n.local }

// Parent returns the fallback resolver.
func (n *NestedContainer) Parent() Resolver { return n.parent }

// AddFactory implements Resolver.
func (n *NestedContainer) AddFactory(key ioc.Key, factory any) error {
	return n.local.AddFactory(key, factory)
}

// AddDecorator implements Resolver. Factories resolved from the parent are
// not decorated.
func (n *NestedContainer) AddDecorator(d Decorator) error {
	return n.local.AddDecorator(d)
}

// Factory implements Resolver.
func (n *NestedContainer) Factory(key ioc.Key) (any, error) {
	f, err := n.local.Factory(key)
	if err == nil || !errors.Is(err, ioc.ErrFactoryNotFound) {
		return f, err
	}
	return n.parent.Factory(key)
}

// Has implements Resolver.
func (n *NestedContainer) Has(key ioc.Key) bool {
	return n.local.Has(key) || n.parent.Has(key)
}

// Keys implements Resolver: local keys first, then unshadowed parent keys.
func (n *NestedContainer) Keys() []ioc.Key {
	out := n.local.Keys()
	seen := make(map[ioc.Key]bool, len(out))
	for _, k := range out {
		seen[k] = true
	}
	for _, k := range n.parent.Keys() {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

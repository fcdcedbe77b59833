package ioc

import (
	"reflect"
	"sync"
)

// Storage maps keys to concrete factories.
//
// Implementations validate the contract and the factory on Set, so a value
// returned by Get for KeyOf[F]() can always be asserted to F.
type Storage interface {
	// Get returns the factory stored under key or a FactoryNotFoundError.
	Get(key Key) (any, error)

	// Set stores factory under key. It fails with InvalidFactoryTypeError or
	// InvalidFactoryError before anything is written.
	Set(key Key, factory any) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key Key)

	Contains(key Key) bool
	Len() int

	// Keys returns a snapshot of the stored keys.
	Keys() []Key

	IsEmpty() bool
}

// ── DictStorage ───────────────────────────────────────────────────────────────

// DictStorage is the in-memory Storage. The zero value is not usable; call
// NewDictStorage.
//
// A DictStorage is meant to be written by the scope that owns it. Reads from
// nested scopes are safe while it is written.
type DictStorage struct {
	mu        sync.RWMutex
	factories map[Key]any
	order     []Key
	backfill  bool
}

// StorageOption configures a DictStorage.
type StorageOption func(*DictStorage)

// WithBackfill makes Set also store the factory under every ancestor
// contract declared with Extends, using the same id.
func WithBackfill() StorageOption {
	return func(s *DictStorage) { s.backfill = true }
}

// NewDictStorage returns an empty storage.
//
//	storage := ioc.NewDictStorage()
//	ctx, _ = ioc.Enter(ctx, storage)
func NewDictStorage(opts ...StorageOption) *DictStorage {
	s := &DictStorage{factories: make(map[Key]any)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Storage.
func (s *DictStorage) Get(key Key) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.factories[key]
	if !ok {
		return nil, FactoryNotFoundError{Key: key}
	}
	return f, nil
}

// Set implements Storage.
func (s *DictStorage) Set(key Key, factory any) error {
	f, err := Conform(key, factory)
	if err != nil {
		return err
	}

	keys, values := []Key{key}, []any{f}
	if s.backfill {
		v := reflect.ValueOf(f)
		for _, ancestor := range Ancestors(key.Type()) {
			keys = append(keys, NewKey(ancestor, key.ID()))
			values = append(values, v.Convert(ancestor).Interface())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, k := range keys {
		s.put(k, values[i])
	}
	return nil
}

func (s *DictStorage) put(key Key, f any) {
	if _, ok := s.factories[key]; !ok {
		s.order = append(s.order, key)
	}
	s.factories[key] = f
}

// Delete implements Storage.
func (s *DictStorage) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.factories[key]; !ok {
		return
	}
	delete(s.factories, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Contains implements Storage.
func (s *DictStorage) Contains(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.factories[key]
	return ok
}

// Len implements Storage.
func (s *DictStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.factories)
}

// Keys implements Storage. Keys are returned in insertion order.
func (s *DictStorage) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Key(nil), s.order...)
}

// IsEmpty implements Storage.
func (s *DictStorage) IsEmpty() bool { return s.Len() == 0 }

// ── Typed helpers ─────────────────────────────────────────────────────────────

// Lookup returns the F factory stored in s.
func Lookup[F any](s Storage, id ...string) (F, error) {
	var zero F
	f, err := s.Get(KeyOf[F](id...))
	if err != nil {
		return zero, err
	}
	typed, ok := f.(F)
	if !ok {
		return zero, InvalidFactoryError{Key: KeyOf[F](id...), Got: reflect.TypeOf(f)}
	}
	return typed, nil
}

// Store writes an F factory into s.
func Store[F any](s Storage, f F, id ...string) error {
	return s.Set(KeyOf[F](id...), f)
}

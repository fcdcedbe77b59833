package ioc

import "errors"

// NestedStorage layers a local storage over a parent one.
//
// Reads try local first and fall back to the parent. Writes and deletes only
// touch local; the parent is never mutated through the view.
type NestedStorage struct {
	local  Storage
	parent Storage
}

// Nest returns a view of local over parent.
func Nest(local, parent Storage) *NestedStorage {
	return &NestedStorage{local: local, parent: parent}
}

// Local returns the storage writes go to.
func (s *NestedStorage) Local() Storage { return s.local }

// Parent returns the fallback storage.
func (s *NestedStorage) Parent() Storage { return s.parent }

// Get implements Storage.
func (s *NestedStorage) Get(key Key) (any, error) {
	f, err := s.local.Get(key)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, ErrFactoryNotFound) {
		return nil, err
	}
	return s.parent.Get(key)
}

// Set implements Storage.
func (s *NestedStorage) Set(key Key, factory any) error {
	return s.local.Set(key, factory)
}

// Delete implements Storage. Only local entries can be deleted.
func (s *NestedStorage) Delete(key Key) {
	s.local.Delete(key)
}

// Contains implements Storage.
func (s *NestedStorage) Contains(key Key) bool {
	return s.local.Contains(key) || s.parent.Contains(key)
}

// Len implements Storage. Keys present in both layers count once.
func (s *NestedStorage) Len() int {
	return len(s.Keys())
}

// Keys implements Storage: local keys first, then parent keys not shadowed.
func (s *NestedStorage) Keys() []Key {
	local := s.local.Keys()
	seen := make(map[Key]struct{}, len(local))
	out := make([]Key, 0, len(local))
	for _, k := range local {
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range s.parent.Keys() {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

// IsEmpty implements Storage.
func (s *NestedStorage) IsEmpty() bool {
	return s.local.IsEmpty() && s.parent.IsEmpty()
}

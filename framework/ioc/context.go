package ioc

import "context"

// storageKey is the context key for the active storage frame.
type storageKey struct{}

// frame is immutable; entering a scope pushes a new frame on a derived ctx.
type frame struct {
	storage Storage
	depth   int
}

// Enter makes s the current storage of the returned context.
//
// When ctx already carries a storage, the new current storage is s nested
// over it, so factories registered outside the narrower scope stay visible.
// Entering the same storage twice is allowed and simply layers it again.
//
// Leaving the scope means going back to ctx: it still resolves to exactly the
// storage that was current before, or to none.
//
//	ctx, storage := ioc.Enter(ctx, ioc.NewDictStorage())
//	_ = ioc.Set[IntegerFactory](ctx, func(context.Context) int { return 7 })
func Enter(ctx context.Context, s Storage) (context.Context, Storage) {
	if s == nil {
		panic("ioc: Enter called with a nil storage")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	next := &frame{storage: s, depth: 1}
	if f, ok := ctx.Value(storageKey{}).(*frame); ok {
		next = &frame{storage: Nest(s, f.storage), depth: f.depth + 1}
	}
	return context.WithValue(ctx, storageKey{}, next), next.storage
}

// Scope runs fn inside a scope where s is entered. The scope ends when fn
// returns or panics; the caller's ctx is never modified.
func Scope(ctx context.Context, s Storage, fn func(ctx context.Context, current Storage) error) error {
	scoped, current := Enter(ctx, s)
	return fn(scoped, current)
}

// Current returns the storage active in ctx, or ErrStorageNotSet.
func Current(ctx context.Context) (Storage, error) {
	if ctx == nil {
		return nil, ErrStorageNotSet
	}
	f, ok := ctx.Value(storageKey{}).(*frame)
	if !ok {
		return nil, ErrStorageNotSet
	}
	return f.storage, nil
}

// Depth returns how many scopes are active in ctx. Zero means none.
func Depth(ctx context.Context) int {
	if ctx == nil {
		return 0
	}
	if f, ok := ctx.Value(storageKey{}).(*frame); ok {
		return f.depth
	}
	return 0
}

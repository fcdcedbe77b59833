// Package ioc is a context-scoped factory registry.
//
// # Overview
//
// A factory contract is a named function type:
//
//	type IntegerFactory func(ctx context.Context) int
//
// Implementations are registered in a Storage under a Key (the contract type
// plus an optional id) and resolved through a proxy: a function of the same
// type that looks the implementation up in the storage carried by its ctx
// argument at every call.
//
// # Scopes
//
//	var Integer, SetInteger = ioc.Use[IntegerFactory]()
//
//	ctx, _ := ioc.Enter(context.Background(), ioc.NewDictStorage())
//	_ = SetInteger(ctx, func(context.Context) int { return 42 })
//
//	Integer(ctx) // 42
//
// Entering a storage in a context that already has one layers the new
// storage over the old: lookups fall back outward, writes stay local.
// Goroutines started with a derived ctx (errgroup.WithContext, for example)
// see the same scope; a goroutine that enters its own storage does not
// affect its parent.
//
// # Parameter descriptors
//
// Go signatures carry no names, defaults or keyword-only markers. Declare
// attaches them to a contract so Call can bind keyword arguments:
//
//	type SumFactory func(ctx context.Context, a, b, c int) int
//
//	ioc.MustDeclare[SumFactory](ioc.PosOnly("a"), ioc.Arg("b"), ioc.KwOnly("c").WithDefault(3))
//	ioc.Call(ctx, ioc.KeyOf[SumFactory](), ioc.Positional(1, 2)) // c = 3
//
// # Errors
//
// Every error returned by the package wraps one of the Err* sentinels and can
// be matched with errors.Is or unpacked with errors.As.
package ioc

package ioc

import (
	"context"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
	kwargsType  = reflect.TypeFor[map[string]any]()
)

// ── Contracts ─────────────────────────────────────────────────────────────────

// Contract is a validated factory type together with its call signature.
//
// A factory type is a named function type with no exported methods:
//
//	type IntegerFactory func(ctx context.Context) int
//
// Contracts are cached per type; use ContractOf or ContractFor to obtain one.
type Contract struct {
	typ reflect.Type
	sig Signature
}

// Type returns the contract's function type.
func (c *Contract) Type() reflect.Type { return c.typ }

// Signature returns a copy of the contract's parameter descriptor.
func (c *Contract) Signature() Signature { return c.sig.clone() }

// registry memoizes validated contracts and the declared ancestry between them.
var registry = struct {
	mu        sync.RWMutex
	contracts map[reflect.Type]*Contract
	parents   map[reflect.Type][]reflect.Type
}{
	contracts: make(map[reflect.Type]*Contract),
	parents:   make(map[reflect.Type][]reflect.Type),
}

// CheckFactoryType reports whether t can be used as a factory contract.
//
// It fails with InvalidFactoryTypeError when t is not a function type, is
// unnamed, or exposes exported methods next to its call behavior.
func CheckFactoryType(t reflect.Type) error {
	_, err := ContractFor(t)
	return err
}

// ContractOf returns the contract for F.
func ContractOf[F any]() (*Contract, error) {
	return ContractFor(reflect.TypeFor[F]())
}

// ContractFor validates t and returns its contract.
func ContractFor(t reflect.Type) (*Contract, error) {
	if t != nil {
		registry.mu.RLock()
		c, ok := registry.contracts[t]
		registry.mu.RUnlock()
		if ok {
			return c, nil
		}
	}
	if err := checkShape(t); err != nil {
		return nil, err
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if c, ok := registry.contracts[t]; ok {
		return c, nil
	}
	c := &Contract{typ: t, sig: defaultSignature(t)}
	registry.contracts[t] = c
	return c, nil
}

func checkShape(t reflect.Type) error {
	if t == nil {
		return InvalidFactoryTypeError{Reason: "type is nil"}
	}
	if t.Kind() != reflect.Func {
		return InvalidFactoryTypeError{Type: t, Reason: "does not declare a call behavior (kind " + t.Kind().String() + ")"}
	}
	if t.Name() == "" {
		return InvalidFactoryTypeError{Type: t, Reason: "must be a named function type"}
	}
	if names := exportedMethods(t); len(names) > 0 {
		return InvalidFactoryTypeError{Type: t, Reason: "exposes public members " + strings.Join(names, ", ")}
	}
	return nil
}

// exportedMethods lists methods declared on t or *t.
func exportedMethods(t reflect.Type) []string {
	seen := make(map[string]bool)
	var names []string
	for _, mt := range []reflect.Type{t, reflect.PointerTo(t)} {
		for i := 0; i < mt.NumMethod(); i++ {
			name := mt.Method(i).Name
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Declare replaces the default parameter descriptor of F.
//
// Go functions carry no parameter names, defaults or keyword-only markers;
// Declare attaches them so that Call and Contract.Bind can accept keyword
// arguments and fill defaults. A leading context.Context parameter is not
// described.
//
//	type SumFactory func(ctx context.Context, a, b, c int) int
//
//	ioc.MustDeclare[SumFactory](
//	    ioc.PosOnly("a"),
//	    ioc.Arg("b"),
//	    ioc.KwOnly("c").WithDefault(3),
//	)
func Declare[F any](params ...Param) (*Contract, error) {
	base, err := ContractOf[F]()
	if err != nil {
		return nil, err
	}
	sig := base.sig.clone()
	if err := sig.describe(base.typ, params); err != nil {
		return nil, err
	}

	c := &Contract{typ: base.typ, sig: sig}
	registry.mu.Lock()
	registry.contracts[base.typ] = c
	registry.mu.Unlock()
	return c, nil
}

// MustDeclare is like Declare but panics on error.
func MustDeclare[F any](params ...Param) *Contract {
	c, err := Declare[F](params...)
	if err != nil {
		panic(err)
	}
	return c
}

// ── Ancestry ──────────────────────────────────────────────────────────────────

// Extends records that contract Child refines contract Parent. Both must be
// valid contracts with identical underlying signatures.
//
// Storages created WithBackfill store a Child factory under every ancestor
// key as well, so lookups by Parent resolve to the most specific registration.
func Extends[Child, Parent any]() error {
	return extend(reflect.TypeFor[Child](), reflect.TypeFor[Parent]())
}

func extend(child, parent reflect.Type) error {
	if _, err := ContractFor(child); err != nil {
		return err
	}
	if _, err := ContractFor(parent); err != nil {
		return err
	}
	if child == parent {
		return InvalidFactoryTypeError{Type: child, Reason: "cannot extend itself"}
	}
	if !child.ConvertibleTo(parent) {
		return InvalidFactoryTypeError{Type: child, Reason: "signature differs from " + parent.String()}
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	for _, a := range ancestorsLocked(parent) {
		if a == child {
			return InvalidFactoryTypeError{Type: child, Reason: "ancestry cycle through " + parent.String()}
		}
	}
	for _, p := range registry.parents[child] {
		if p == parent {
			return nil
		}
	}
	registry.parents[child] = append(registry.parents[child], parent)
	return nil
}

// Ancestors returns every contract t transitively extends, nearest first.
func Ancestors(t reflect.Type) []reflect.Type {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return ancestorsLocked(t)
}

func ancestorsLocked(t reflect.Type) []reflect.Type {
	var out []reflect.Type
	seen := map[reflect.Type]bool{t: true}
	queue := append([]reflect.Type(nil), registry.parents[t]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, registry.parents[next]...)
	}
	return out
}

// ── Structural checks ─────────────────────────────────────────────────────────

// Conform checks that factory implements key's contract and returns it
// converted to the contract type.
func Conform(key Key, factory any) (any, error) {
	c, err := ContractFor(key.Type())
	if err != nil {
		return nil, err
	}
	if factory == nil {
		return nil, InvalidFactoryError{Key: key}
	}
	v := reflect.ValueOf(factory)
	if !v.Type().AssignableTo(c.typ) {
		return nil, InvalidFactoryError{Key: key, Got: v.Type()}
	}
	if v.Kind() == reflect.Func && v.IsNil() {
		return nil, InvalidFactoryError{Key: key, Got: v.Type()}
	}
	return v.Convert(c.typ).Interface(), nil
}

// FromFunc adapts fn to the contract F. fn's signature must equal F's;
// unlike a plain assignment this also accepts functions of other named types.
func FromFunc[F any](fn any) (F, error) {
	var zero F
	c, err := ContractOf[F]()
	if err != nil {
		return zero, err
	}
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		var got reflect.Type
		if v.IsValid() {
			got = v.Type()
		}
		return zero, InvalidFunctionError{Type: c.typ, Got: got, Reason: "must be a function"}
	}
	if v.IsNil() {
		return zero, InvalidFunctionError{Type: c.typ, Got: v.Type(), Reason: "function is nil"}
	}
	if !v.Type().ConvertibleTo(c.typ) {
		return zero, InvalidFunctionError{Type: c.typ, Got: v.Type(), Reason: "must have an equal signature"}
	}
	return v.Convert(c.typ).Interface().(F), nil
}

// ── Invocation ────────────────────────────────────────────────────────────────

// Invoke binds args against the contract and calls factory with them. ctx is
// passed as the leading argument when the contract takes one. A trailing
// error result is returned as the error instead of being part of results.
func (c *Contract) Invoke(ctx context.Context, factory any, args Args) ([]any, error) {
	in, err := c.Bind(args)
	if err != nil {
		return nil, err
	}
	fv := reflect.ValueOf(factory)
	if !fv.IsValid() || fv.Type() != c.typ {
		conformed, err := Conform(NewKey(c.typ), factory)
		if err != nil {
			return nil, err
		}
		fv = reflect.ValueOf(conformed)
	}

	if c.sig.Context {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append([]reflect.Value{reflect.ValueOf(&ctx).Elem()}, in...)
	}
	var out []reflect.Value
	if c.typ.IsVariadic() {
		out = fv.CallSlice(in)
	} else {
		out = fv.Call(in)
	}

	results := make([]any, 0, len(out))
	for _, v := range out {
		results = append(results, v.Interface())
	}
	if c.sig.ReturnsError {
		last := results[len(results)-1]
		results = results[:len(results)-1]
		if last != nil {
			return results, last.(error)
		}
	}
	return results, nil
}

func paramIndex(params []Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func describeValue(v reflect.Value) string {
	if !v.IsValid() {
		return "<nil>"
	}
	return v.Type().String()
}

func itoa(n int) string { return strconv.Itoa(n) }

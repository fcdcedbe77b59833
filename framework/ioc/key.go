package ioc

import (
	"reflect"
	"strconv"
)

// Key addresses a registered factory: a contract type plus an optional id
// that lets several factories share one contract.
//
// Keys are plain values. Two keys built independently from the same type and
// id are equal and may be used interchangeably as map keys.
//
//	k1 := ioc.KeyOf[IntegerFactory]()
//	k2 := ioc.NewKey(reflect.TypeFor[IntegerFactory]())
//	k1 == k2 // true
type Key struct {
	typ reflect.Type
	id  string
}

// NewKey builds a key for the given contract type. Only the first id is used;
// an empty id means "no id".
func NewKey(t reflect.Type, id ...string) Key {
	return Key{typ: t, id: optionalID(id)}
}

// KeyOf builds a key for the contract F.
func KeyOf[F any](id ...string) Key {
	return NewKey(reflect.TypeFor[F](), id...)
}

// Type returns the contract type.
func (k Key) Type() reflect.Type { return k.typ }

// ID returns the discriminator, or "" when the key has none.
func (k Key) ID() string { return k.id }

// WithID returns a copy of k addressing the same contract under another id.
func (k Key) WithID(id string) Key { return Key{typ: k.typ, id: id} }

// String renders the key for error messages and logs.
func (k Key) String() string {
	if k.id == "" {
		return "Key(" + typeName(k.typ) + ")"
	}
	return "Key(" + typeName(k.typ) + ", id=" + strconv.Quote(k.id) + ")"
}

func optionalID(id []string) string {
	if len(id) == 0 {
		return ""
	}
	return id[0]
}

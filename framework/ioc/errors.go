package ioc

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
)

var (
	// ErrInvalidFactoryType is wrapped by InvalidFactoryTypeError.
	ErrInvalidFactoryType = errors.New("ioc: invalid factory type")

	// ErrInvalidFactory is wrapped by InvalidFactoryError.
	ErrInvalidFactory = errors.New("ioc: invalid factory")

	// ErrFactoryNotFound is wrapped by FactoryNotFoundError.
	ErrFactoryNotFound = errors.New("ioc: factory not found")

	// ErrFactoryAlreadyAdded is wrapped by FactoryAlreadyAddedError.
	ErrFactoryAlreadyAdded = errors.New("ioc: factory already added")

	// ErrStorageNotSet is returned when no factory storage is active in the context.
	ErrStorageNotSet = errors.New("ioc: no factory storage in context")

	// ErrContainerNotSet is returned when no factory container is active in the context.
	ErrContainerNotSet = errors.New("ioc: no factory container in context")

	// ErrInvalidArguments is wrapped by ArgumentError.
	ErrInvalidArguments = errors.New("ioc: invalid arguments")

	// ErrInvalidFunction is wrapped by InvalidFunctionError.
	ErrInvalidFunction = errors.New("ioc: invalid function")
)

// InvalidFactoryTypeError reports a type that cannot serve as a factory contract.
type InvalidFactoryTypeError struct {
	Type   reflect.Type
	Reason string
}

// Error implements the error interface.
func (e InvalidFactoryTypeError) Error() string {
	// Example: ioc: invalid factory type pkg.Thing: must be a function type
	return "ioc: invalid factory type " + typeName(e.Type) + ": " + e.Reason
}

// Unwrap returns ErrInvalidFactoryType.
func (e InvalidFactoryTypeError) Unwrap() error { return ErrInvalidFactoryType }

// InvalidFactoryError reports a factory value that does not implement the
// contract of the key it was stored under.
type InvalidFactoryError struct {
	Key Key

	// Got is the dynamic type of the rejected value (nil for a nil value).
	Got reflect.Type
}

// Error implements the error interface.
func (e InvalidFactoryError) Error() string {
	return "ioc: factory of type " + typeName(e.Got) + " does not implement " + e.Key.String()
}

// Unwrap returns ErrInvalidFactory.
func (e InvalidFactoryError) Unwrap() error { return ErrInvalidFactory }

// FactoryNotFoundError is returned when a key is absent from the whole lookup chain.
type FactoryNotFoundError struct{ Key Key }

// Error implements the error interface.
func (e FactoryNotFoundError) Error() string {
	return "ioc: factory not found for " + e.Key.String()
}

// Unwrap returns ErrFactoryNotFound.
func (e FactoryNotFoundError) Unwrap() error { return ErrFactoryNotFound }

// FactoryAlreadyAddedError is returned by a container when a key is registered twice.
type FactoryAlreadyAddedError struct{ Key Key }

// Error implements the error interface.
func (e FactoryAlreadyAddedError) Error() string {
	return "ioc: factory already added for " + e.Key.String()
}

// Unwrap returns ErrFactoryAlreadyAdded.
func (e FactoryAlreadyAddedError) Unwrap() error { return ErrFactoryAlreadyAdded }

// ArgumentError reports an argument bundle that cannot be bound to a signature.
type ArgumentError struct {
	Type   reflect.Type
	Param  string
	Reason string
}

// Error implements the error interface.
func (e ArgumentError) Error() string {
	var b strings.Builder
	b.WriteString("ioc: ")
	b.WriteString(typeName(e.Type))
	if e.Param != "" {
		b.WriteString(" argument ")
		b.WriteString(strconv.Quote(e.Param))
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Unwrap returns ErrInvalidArguments.
func (e ArgumentError) Unwrap() error { return ErrInvalidArguments }

// InvalidFunctionError is returned by FromFunc when a function cannot back a contract.
type InvalidFunctionError struct {
	Type   reflect.Type
	Got    reflect.Type
	Reason string
}

// Error implements the error interface.
func (e InvalidFunctionError) Error() string {
	return "ioc: function " + typeName(e.Got) + " cannot implement " + typeName(e.Type) + ": " + e.Reason
}

// Unwrap returns ErrInvalidFunction.
func (e InvalidFunctionError) Unwrap() error { return ErrInvalidFunction }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

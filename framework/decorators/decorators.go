// Package decorators holds container decorators that apply to factories of
// any contract: call logging, Prometheus metrics and key filtering.
package decorators

import (
	"reflect"
	"time"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/ioc"
	"github.com/km-arc/go-ioc/framework/logging"
)

var errorType = reflect.TypeFor[error]()

// next calls the wrapped factory with the arguments of the current call.
type next func(in []reflect.Value) []reflect.Value

// around returns a function of factory's own type running fn on each call.
func around(factory any, fn func(in []reflect.Value, call next) []reflect.Value) any {
	v := reflect.ValueOf(factory)
	t := v.Type()
	call := next(v.Call)
	if t.IsVariadic() {
		call = v.CallSlice
	}
	return reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		return fn(in, call)
	}).Interface()
}

// failed returns the error in a trailing error result, if any.
func failed(out []reflect.Value) error {
	if len(out) == 0 {
		return nil
	}
	last := out[len(out)-1]
	if last.Type() != errorType || last.IsNil() {
		return nil
	}
	return last.Interface().(error)
}

// Logging logs every factory call at debug level, and failed calls at error
// level.
func Logging(log logging.Logger) container.Decorator {
	return func(key ioc.Key, factory any) any {
		name := key.String()
		return around(factory, func(in []reflect.Value, call next) []reflect.Value {
			start := time.Now()
			out := call(in)
			if err := failed(out); err != nil {
				log.Errorf("%s failed after %s: %v", name, time.Since(start), err)
				return out
			}
			log.Debugw("factory called", map[string]any{
				"key":      name,
				"args":     len(in),
				"duration": time.Since(start).String(),
			})
			return out
		})
	}
}

// Filter applies d only to factories whose key satisfies match.
//
//	c.AddDecorator(decorators.Filter(decorators.ForType[ServiceFactory](), audit))
func Filter(match func(ioc.Key) bool, d container.Decorator) container.Decorator {
	return func(key ioc.Key, factory any) any {
		if !match(key) {
			return factory
		}
		return d(key, factory)
	}
}

// ForType matches keys of the contract F, whatever their id.
func ForType[F any]() func(ioc.Key) bool {
	t := reflect.TypeFor[F]()
	return func(key ioc.Key) bool { return key.Type() == t }
}

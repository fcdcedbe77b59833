package decorators

import (
	"reflect"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/ioc"
)

// Metrics records factory calls in Prometheus collectors.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the factory metrics on reg. If reg is nil, the default
// registerer is used. If the collectors are already registered, the existing
// ones are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ioc_factory_calls_total",
		Help: "Total number of factory calls",
	}, []string{"contract", "id", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ioc_factory_call_duration_seconds",
		Help:    "Duration of factory calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"contract", "id"})

	if err := reg.Register(calls); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			calls = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	return &Metrics{calls: calls, duration: duration}, nil
}

// Decorator returns the container decorator feeding m.
func (m *Metrics) Decorator() container.Decorator {
	return func(key ioc.Key, factory any) any {
		contract, id := key.Type().String(), key.ID()
		return around(factory, func(in []reflect.Value, call next) []reflect.Value {
			start := time.Now()
			out := call(in)
			outcome := "ok"
			if failed(out) != nil {
				outcome = "error"
			}
			m.calls.WithLabelValues(contract, id, outcome).Inc()
			m.duration.WithLabelValues(contract, id).Observe(time.Since(start).Seconds())
			return out
		})
	}
}

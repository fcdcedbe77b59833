package routing

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/ioc"
	"github.com/km-arc/go-ioc/framework/logging"
)

// StorageScope runs every request inside a fresh factory storage nested over
// the storage of the incoming context (usually the application's, handed
// down by http.Server.BaseContext). Factories set while handling a request
// are visible to that request only.
func StorageScope(opts ...ioc.StorageOption) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := ioc.Enter(r.Context(), ioc.NewDictStorage(opts...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContainerScope pushes a fresh container on the request's container stack.
// Registrations made during the request land in it; lookups fall back to the
// outer containers.
func ContainerScope() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(container.Enter(r.Context(), container.New())))
		})
	}
}

// RequestLogger logs one line per request with its route pattern, status and
// duration.
func RequestLogger(log logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				fields := map[string]any{
					"method":   r.Method,
					"path":     r.URL.Path,
					"status":   ww.Status(),
					"bytes":    ww.BytesWritten(),
					"duration": time.Since(start).String(),
				}
				if id := middleware.GetReqID(r.Context()); id != "" {
					fields["request_id"] = id
				}
				if rc := chi.RouteContext(r.Context()); rc != nil {
					fields["route"] = rc.RoutePattern()
				}
				log.Debugw("request", fields)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// RateLimit rejects requests with 429 once limiter runs out of tokens. The
// limiter is shared by every request the middleware sees.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

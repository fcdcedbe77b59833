package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middleware is the standard net/http middleware shape chi uses.
type Middleware = func(http.Handler) http.Handler

// Router is a chi router trimmed to what providers need to mount routes.
// Sub-routers from Group, Prefix and With share the parent's tree.
type Router struct {
	mux chi.Router
}

// New returns a Router that tags requests with an ID, honours proxy
// headers for the client address and turns handler panics into 500s.
func New() *Router {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	return &Router{mux: mux}
}

func (r *Router) Get(pattern string, h http.HandlerFunc)    { r.mux.Get(pattern, h) }
func (r *Router) Post(pattern string, h http.HandlerFunc)   { r.mux.Post(pattern, h) }
func (r *Router) Put(pattern string, h http.HandlerFunc)    { r.mux.Put(pattern, h) }
func (r *Router) Patch(pattern string, h http.HandlerFunc)  { r.mux.Patch(pattern, h) }
func (r *Router) Delete(pattern string, h http.HandlerFunc) { r.mux.Delete(pattern, h) }

// Handle mounts h for every method, e.g. the Prometheus handler.
func (r *Router) Handle(pattern string, h http.Handler) { r.mux.Handle(pattern, h) }

// Group calls fn with a router whose middleware stays local to it.
func (r *Router) Group(fn func(g *Router)) {
	r.mux.Group(func(mux chi.Router) { fn(&Router{mux: mux}) })
}

// Prefix calls fn with a router mounted under pattern.
func (r *Router) Prefix(pattern string, fn func(p *Router)) {
	r.mux.Route(pattern, func(mux chi.Router) { fn(&Router{mux: mux}) })
}

// With returns a router whose routes also run mw.
//
//	r.With(routing.RateLimit(limiter)).Post("/login", login)
func (r *Router) With(mw ...Middleware) *Router {
	return &Router{mux: r.mux.With(mw...)}
}

// Middleware appends mw to the stack. chi panics when middleware is added
// after the first route.
func (r *Router) Middleware(mw ...Middleware) { r.mux.Use(mw...) }

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

package routing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/ioc"
	"github.com/km-arc/go-ioc/framework/logging"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	r := routing.New()
	r.Get("/users", okHandler)
	r.Post("/users", okHandler)
	r.Put("/users/{id}", okHandler)
	r.Patch("/users/{id}", okHandler)
	r.Delete("/users/{id}", okHandler)
	r.Handle("/metrics", http.HandlerFunc(okHandler))

	tests := []struct{ method, path string }{
		{http.MethodGet, "/users"},
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/1"},
		{http.MethodPatch, "/users/1"},
		{http.MethodDelete, "/users/1"},
		{http.MethodGet, "/metrics"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			assert.Equal(t, http.StatusOK, do(t, r, tc.method, tc.path).Code)
		})
	}

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/not-registered").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, r, http.MethodDelete, "/users").Code)
}

func TestRouter_Param(t *testing.T) {
	r := routing.New()
	r.Get("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(req, "id")))
	})

	rr := do(t, r, http.MethodGet, "/users/42")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", rr.Body.String())
}

// ── Prefix / Group ───────────────────────────────────────────────────────────

func TestRouter_Prefix(t *testing.T) {
	r := routing.New()
	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/users", okHandler)
	})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/users").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users").Code)
}

func TestRouter_GroupAndWith(t *testing.T) {
	var calls []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := routing.New()
	r.Group(func(g *routing.Router) {
		g.Middleware(tag("group"))
		g.Get("/protected", okHandler)
		g.With(tag("inline")).Get("/admin", okHandler)
	})
	r.Get("/public", okHandler)

	do(t, r, http.MethodGet, "/public")
	assert.Empty(t, calls)

	do(t, r, http.MethodGet, "/protected")
	assert.Equal(t, []string{"group"}, calls)

	calls = nil
	do(t, r, http.MethodGet, "/admin")
	assert.Equal(t, []string{"group", "inline"}, calls)
}

func TestRouter_RecoversPanics(t *testing.T) {
	r := routing.New()
	r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })

	assert.Equal(t, http.StatusInternalServerError, do(t, r, http.MethodGet, "/panic").Code)
}

// ── Scopes ────────────────────────────────────────────────────────────────────

type greeting func(ctx context.Context) string

func TestStorageScope_IsolatesRequests(t *testing.T) {
	app := ioc.NewDictStorage()
	require.NoError(t, ioc.Store[greeting](app, func(context.Context) string { return "app" }))

	r := routing.New()
	r.Middleware(routing.StorageScope())
	r.Get("/hello", func(w http.ResponseWriter, req *http.Request) {
		if name := req.URL.Query().Get("override"); name != "" {
			require.NoError(t, ioc.Set[greeting](req.Context(), func(context.Context) string { return name }))
		}
		_, _ = w.Write([]byte(ioc.Proxy[greeting]()(req.Context())))
	})

	ctx, _ := ioc.Enter(context.Background(), app)
	serve := func(path string) string {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx))
		return rr.Body.String()
	}

	assert.Equal(t, "local", serve("/hello?override=local"))
	assert.Equal(t, "app", serve("/hello"), "a request scope never leaks into the next one")
	assert.Equal(t, 1, app.Len())
}

func TestContainerScope_PushesRequestContainer(t *testing.T) {
	app := container.New()
	require.NoError(t, container.Add[greeting](app, func(context.Context) string { return "app" }))

	var depth int
	r := routing.New()
	r.Middleware(routing.ContainerScope())
	r.Get("/hello", func(w http.ResponseWriter, req *http.Request) {
		depth = len(container.Stack(req.Context()))
		require.NoError(t, container.AddFactory(req.Context(), ioc.KeyOf[greeting]("request"),
			greeting(func(context.Context) string { return "request" })))
		_, _ = w.Write([]byte(container.Proxy[greeting]()(req.Context())))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/hello", nil).
		WithContext(container.Enter(context.Background(), app)))

	assert.Equal(t, "app", rr.Body.String())
	assert.Equal(t, 2, depth)
	assert.False(t, app.Has(ioc.KeyOf[greeting]("request")))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := routing.New()
	r.Middleware(routing.RequestLogger(logging.NewWithWriter(&buf, "http", "debug")))
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	do(t, r, http.MethodGet, "/users/7")

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	assert.Equal(t, "request", line["message"])
	assert.Equal(t, "/users/{id}", line["route"])
	assert.Equal(t, "/users/7", line["path"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.NotEmpty(t, line["request_id"])
	assert.Equal(t, "http", line["component"])
}

func TestRateLimit(t *testing.T) {
	r := routing.New()
	r.With(routing.RateLimit(rate.NewLimiter(rate.Every(time.Hour), 2))).Post("/login", okHandler)
	r.Get("/free", okHandler)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/login").Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/login").Code)
	rr := do(t, r, http.MethodPost, "/login")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/free").Code)
}

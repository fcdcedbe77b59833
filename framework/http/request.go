package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/km-arc/go-ioc/framework/http/validation"
)

// maxBody caps the bytes Bind reads from a JSON body.
const maxBody = 1 << 20

// ErrEmptyBody is returned by Bind for a JSON request without a body.
var ErrEmptyBody = errors.New("http: empty request body")

// Request wraps *http.Request with the input helpers handlers need.
type Request struct {
	r *http.Request
}

func NewRequest(r *http.Request) *Request { return &Request{r: r} }

// Context returns the request context, which carries the request's factory
// scope when the router's scope middleware is installed.
func (req *Request) Context() context.Context { return req.r.Context() }

// Bind decodes the request body into v by its `json` tags. A form body is
// decoded as if it were a JSON object of its fields; a field sent more than
// once becomes an array.
func (req *Request) Bind(v any) error {
	mediaType, _, _ := mime.ParseMediaType(req.r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return decodeJSON(req.r.Body, v)
	}
	if err := req.r.ParseForm(); err != nil {
		return err
	}
	fields := make(map[string]any, len(req.r.PostForm))
	for name, values := range req.r.PostForm {
		switch len(values) {
		case 0:
		case 1:
			fields[name] = values[0]
		default:
			fields[name] = values
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func decodeJSON(body io.ReadCloser, v any) error {
	defer body.Close()
	raw, err := io.ReadAll(io.LimitReader(body, maxBody))
	switch {
	case err != nil:
		return err
	case len(raw) == 0:
		return ErrEmptyBody
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("http: decode body: %w", err)
	}
	return nil
}

// Validate checks data against rules with the request context, returning
// *validation.Errors when a rule fails.
func (req *Request) Validate(data map[string]string, rules validation.Rules) error {
	return validation.Make(data, rules).Validate(req.Context())
}

// Input returns a query or form value, or the first fallback when it is
// empty.
func (req *Request) Input(key string, fallback ...string) string {
	_ = req.r.ParseForm()
	if v := req.r.FormValue(key); v != "" || len(fallback) == 0 {
		return v
	}
	return fallback[0]
}

// RouteParam returns a URL parameter of the matched chi route.
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.r, key)
}

// BearerToken returns the token of an Authorization: Bearer header, or "".
func (req *Request) BearerToken() string {
	scheme, token, ok := strings.Cut(req.r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// BasicAuth returns the credentials of an Authorization: Basic header.
func (req *Request) BasicAuth() (login, password string, ok bool) {
	return req.r.BasicAuth()
}

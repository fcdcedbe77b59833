package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/km-arc/go-ioc/framework/http/validation"
)

// ErrorHandlers turns errors returned by services into responses. Mappings
// are tried in registration order and the first match wins; an unmatched
// error is a 500 that never leaks its text.
//
//	handlers := gohttp.NewErrorHandlers()
//	handlers.Register(users.ErrNotFound, http.StatusNotFound, nil)
//	gohttp.RegisterAs(handlers, http.StatusConflict, func(e users.AlreadyExistsError) string {
//	    return "User " + e.Login + " already exists"
//	})
type ErrorHandlers struct {
	mu       sync.RWMutex
	mappings []mapping
}

type mapping struct {
	status int
	render func(error) (string, bool)
}

func NewErrorHandlers() *ErrorHandlers { return &ErrorHandlers{} }

// Register maps errors matching target (errors.Is) to status. A nil message
// renders err.Error().
func (h *ErrorHandlers) Register(target error, status int, message func(error) string) {
	if message == nil {
		message = error.Error
	}
	h.add(status, func(err error) (string, bool) {
		if !errors.Is(err, target) {
			return "", false
		}
		return message(err), true
	})
}

// RegisterAs maps errors with an E in their chain (errors.As) to status. A
// nil message renders err.Error().
func RegisterAs[E error](h *ErrorHandlers, status int, message func(E) string) {
	h.add(status, func(err error) (string, bool) {
		var target E
		if !errors.As(err, &target) {
			return "", false
		}
		if message == nil {
			return err.Error(), true
		}
		return message(target), true
	})
}

func (h *ErrorHandlers) add(status int, render func(error) (string, bool)) {
	h.mu.Lock()
	h.mappings = append(h.mappings, mapping{status: status, render: render})
	h.mu.Unlock()
}

// Resolve returns the status and message for err.
func (h *ErrorHandlers) Resolve(err error) (int, string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, m := range h.mappings {
		if msg, ok := m.render(err); ok {
			return m.status, msg
		}
	}
	return http.StatusInternalServerError, "Server Error."
}

// Write renders err. Validation failures are always 422, and a 401 carries
// the Basic challenge.
func (h *ErrorHandlers) Write(w http.ResponseWriter, err error) {
	res := NewResponse(w)
	var bag *validation.Errors
	if errors.As(err, &bag) {
		res.ValidationError(bag)
		return
	}
	switch status, msg := h.Resolve(err); status {
	case http.StatusUnauthorized:
		res.Unauthorized(msg)
	default:
		res.Error(status, msg)
	}
}

package http

import (
	"encoding/json"
	"net/http"

	"github.com/km-arc/go-ioc/framework/http/validation"
)

// Response writes JSON replies. Payloads go under "data", failures under
// "message".
type Response struct {
	w http.ResponseWriter
}

func NewResponse(w http.ResponseWriter) *Response { return &Response{w: w} }

// JSON writes v with status.
//
//	res.JSON(http.StatusOK, map[string]string{"token_type": "bearer"})
func (res *Response) JSON(status int, v any) {
	h := res.w.Header()
	h.Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(v)
}

func (res *Response) Success(v any) { res.JSON(http.StatusOK, map[string]any{"data": v}) }
func (res *Response) Created(v any) { res.JSON(http.StatusCreated, map[string]any{"data": v}) }
func (res *Response) NoContent()    { res.w.WriteHeader(http.StatusNoContent) }

// Error writes {"message": message} with status.
func (res *Response) Error(status int, message string) {
	res.JSON(status, map[string]string{"message": message})
}

// Unauthorized writes 401 with a Basic challenge so browsers prompt for
// credentials.
func (res *Response) Unauthorized(message ...string) {
	res.w.Header().Set("WWW-Authenticate", "Basic")
	res.Error(http.StatusUnauthorized, orDefault(message, "Unauthenticated."))
}

func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, orDefault(message, "Not found."))
}

// ValidationError writes 422 with the bag: {"errors": {"field": ["msg"]}}.
func (res *Response) ValidationError(bag *validation.Errors) {
	res.JSON(http.StatusUnprocessableEntity, bag)
}

func orDefault(message []string, def string) string {
	if len(message) == 0 || message[0] == "" {
		return def
	}
	return message[0]
}

// Package http provides request and response helpers for handlers served
// by framework/routing.
//
// # Request
//
//	req := gohttp.NewRequest(r)
//
//	var payload struct {
//	    Login string `json:"login"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
//	name  := req.Input("name", "default")
//	id    := req.RouteParam("id")
//	login, password, ok := req.BasicAuth()
//
//	// Factories registered for this request are reachable from its context.
//	user, err := CurrentUser(req.Context())
//
// # Response
//
//	res := gohttp.NewResponse(w)
//	res.Success(data)             // 200 {"data": ...}
//	res.Created(data)             // 201 {"data": ...}
//	res.Unauthorized()            // 401 {"message": "Unauthenticated."}
//	res.ValidationError(errs)     // 422 {"errors": {"field": ["msg"]}}
//
// # Error handlers
//
// ErrorHandlers turns errors returned by services into responses, so
// handlers can stay free of status-code plumbing:
//
//	handlers.Register(ErrUserNotFound, http.StatusNotFound, nil)
//	...
//	if err != nil {
//	    handlers.Write(w, err)
//	    return
//	}
package http

// Package validation provides pipe-rule input validation for HTTP handlers.
//
// # Basic Usage
//
//	v := validation.Make(map[string]string{
//	    "login":    "alice",
//	    "password": "secret",
//	}, validation.Rules{
//	    "login":    "required|alpha_dash|between:3,32",
//	    "password": "required|min:5",
//	})
//
//	if err := v.Validate(ctx); err != nil {
//	    // err is *Errors: {"errors": {"field": ["message"]}}
//	}
//
// # Rules as factories
//
// Every rule is a Rule function stored in an ioc.Storage under
// ioc.KeyOf[Rule](name). Built-ins live in a package storage; Using layers
// an application storage on top, so an application can add rules or replace
// a built-in one:
//
//	custom := ioc.NewDictStorage()
//	ioc.Store(custom, validation.Rule(roleRule), "role")
//	v := validation.Make(data, validation.Rules{"role": "required|role"}).Using(custom)
//
// An unknown rule name is reported as a message on its field.
//
// # Available Rules
//
//   - required, sometimes, nullable
//   - min:n, max:n, size:n, between:lo,hi (UTF-8 characters)
//   - numeric, integer, gte:n
//   - email, uuid, alpha_num, alpha_dash, regex:pattern
//   - in:a,b,c, not_in:a,b,c, same:other, confirmed
//
// Rules of a field run in order and stop at the first failure. Returning Skip
// from a rule stops the field without a message.
package validation

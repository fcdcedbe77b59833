package ioc

import (
	"reflect"
	"sort"
)

// ParamKind tells how an argument may be supplied for a parameter.
type ParamKind int

const (
	// PositionalOnly parameters accept positional arguments only.
	PositionalOnly ParamKind = iota
	// PositionalOrKeyword parameters accept either form.
	PositionalOrKeyword
	// VarPositional collects surplus positional arguments (a Go variadic).
	VarPositional
	// KeywordOnly parameters accept keyword arguments only.
	KeywordOnly
	// VarKeyword collects surplus keyword arguments (a map[string]any).
	VarKeyword
)

func (k ParamKind) String() string {
	switch k {
	case PositionalOnly:
		return "positional-only"
	case PositionalOrKeyword:
		return "positional-or-keyword"
	case VarPositional:
		return "var-positional"
	case KeywordOnly:
		return "keyword-only"
	case VarKeyword:
		return "var-keyword"
	default:
		return "ParamKind(" + itoa(int(k)) + ")"
	}
}

// Param describes one parameter of a contract.
type Param struct {
	Name       string
	Kind       ParamKind
	HasDefault bool
	Default    any
}

// PosOnly describes a positional-only parameter.
func PosOnly(name string) Param { return Param{Name: name, Kind: PositionalOnly} }

// Arg describes a positional-or-keyword parameter.
func Arg(name string) Param { return Param{Name: name, Kind: PositionalOrKeyword} }

// KwOnly describes a keyword-only parameter.
func KwOnly(name string) Param { return Param{Name: name, Kind: KeywordOnly} }

// VarArgs describes the Go variadic parameter.
func VarArgs(name string) Param { return Param{Name: name, Kind: VarPositional} }

// VarKwargs describes a trailing map[string]any parameter collecting extra keywords.
func VarKwargs(name string) Param { return Param{Name: name, Kind: VarKeyword} }

// WithDefault returns a copy of p with a default value.
func (p Param) WithDefault(v any) Param {
	p.HasDefault = true
	p.Default = v
	return p
}

// Signature is the call shape of a contract.
//
// Params and In are aligned and exclude a leading context.Context, which is
// reported by Context instead.
type Signature struct {
	Params  []Param
	In      []reflect.Type
	Results []reflect.Type

	// Context is true when the first Go parameter is a context.Context.
	Context bool

	// Async is true when the first result is a receive-only channel.
	Async bool

	// ReturnsError is true when the last result is an error.
	ReturnsError bool
}

func (s Signature) clone() Signature {
	s.Params = append([]Param(nil), s.Params...)
	s.In = append([]reflect.Type(nil), s.In...)
	s.Results = append([]reflect.Type(nil), s.Results...)
	return s
}

func defaultSignature(t reflect.Type) Signature {
	var sig Signature
	start := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		sig.Context = true
		start = 1
	}
	for i := start; i < t.NumIn(); i++ {
		p := Arg("arg" + itoa(i-start))
		if t.IsVariadic() && i == t.NumIn()-1 {
			p.Kind = VarPositional
		}
		sig.Params = append(sig.Params, p)
		sig.In = append(sig.In, t.In(i))
	}
	for i := 0; i < t.NumOut(); i++ {
		sig.Results = append(sig.Results, t.Out(i))
	}
	if n := t.NumOut(); n > 0 {
		sig.ReturnsError = t.Out(n-1) == errorType
		first := t.Out(0)
		sig.Async = first.Kind() == reflect.Chan && first.ChanDir() == reflect.RecvDir
	}
	return sig
}

// describe validates params against t and installs them.
func (s *Signature) describe(t reflect.Type, params []Param) error {
	if len(params) != len(s.In) {
		return InvalidFactoryTypeError{Type: t, Reason: "descriptor lists " + itoa(len(params)) +
			" parameters, function takes " + itoa(len(s.In))}
	}

	names := make(map[string]bool, len(params))
	last := PositionalOnly
	defaulted := false
	for i, p := range params {
		bad := func(reason string) error {
			return InvalidFactoryTypeError{Type: t, Reason: "parameter " + itoa(i) + " (" + p.Name + "): " + reason}
		}
		if p.Name == "" {
			return bad("name is required")
		}
		if names[p.Name] {
			return bad("duplicate name")
		}
		names[p.Name] = true
		if p.Kind < PositionalOnly || p.Kind > VarKeyword {
			return bad("unknown kind")
		}
		if p.Kind < last {
			return bad(p.Kind.String() + " after " + last.String())
		}
		if p.Kind == last && (p.Kind == VarPositional || p.Kind == VarKeyword) {
			return bad("only one " + p.Kind.String() + " parameter is allowed")
		}
		last = p.Kind

		variadicSlot := t.IsVariadic() && i == len(params)-1
		if (p.Kind == VarPositional) != variadicSlot {
			return bad("var-positional must describe the variadic parameter")
		}
		if p.Kind == VarKeyword && s.In[i] != kwargsType {
			return bad("var-keyword parameter must be map[string]any")
		}
		if p.HasDefault {
			if p.Kind == VarPositional || p.Kind == VarKeyword {
				return bad("variadic parameters cannot have defaults")
			}
			if _, err := convertArg(t, p.Name, p.Default, s.In[i]); err != nil {
				return bad("default is not assignable to " + s.In[i].String())
			}
		}
		if p.Kind == PositionalOnly || p.Kind == PositionalOrKeyword {
			if defaulted && !p.HasDefault {
				return bad("parameter without default follows a defaulted parameter")
			}
			defaulted = defaulted || p.HasDefault
		}
	}
	s.Params = append([]Param(nil), params...)
	return nil
}

// ── Argument binding ──────────────────────────────────────────────────────────

// Args is a generic argument bundle: positional values plus keyword values.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Positional builds an Args holding only positional values.
func Positional(values ...any) Args { return Args{Positional: values} }

// With returns a copy of a with one more keyword argument.
func (a Args) With(name string, value any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	for k, v := range a.Keyword {
		kw[k] = v
	}
	kw[name] = value
	a.Keyword = kw
	return a
}

// Bind maps args onto the Go parameters of the contract, in declaration
// order, filling defaults. The leading context parameter is not included.
func (c *Contract) Bind(args Args) ([]reflect.Value, error) {
	params, in, t := c.sig.Params, c.sig.In, c.typ
	vals := make([]reflect.Value, len(params))
	bound := make([]bool, len(params))

	pos := args.Positional
	next := 0
	for i, p := range params {
		switch p.Kind {
		case PositionalOnly, PositionalOrKeyword:
			if next < len(pos) {
				v, err := convertArg(t, p.Name, pos[next], in[i])
				if err != nil {
					return nil, err
				}
				vals[i], bound[i] = v, true
				next++
			}
		case VarPositional:
			elem := in[i].Elem()
			rest := reflect.MakeSlice(in[i], 0, len(pos)-next)
			for ; next < len(pos); next++ {
				v, err := convertArg(t, p.Name, pos[next], elem)
				if err != nil {
					return nil, err
				}
				rest = reflect.Append(rest, v)
			}
			vals[i], bound[i] = rest, true
		}
	}
	if next < len(pos) {
		return nil, ArgumentError{Type: t, Reason: "takes " + itoa(next) + " positional arguments but " +
			itoa(len(pos)) + " were given"}
	}

	names := make([]string, 0, len(args.Keyword))
	for name := range args.Keyword {
		names = append(names, name)
	}
	sort.Strings(names)

	varKw := -1
	for i, p := range params {
		if p.Kind == VarKeyword {
			varKw = i
		}
	}
	var extra map[string]any
	for _, name := range names {
		value := args.Keyword[name]
		i := paramIndex(params, name)
		if i >= 0 && (params[i].Kind == PositionalOrKeyword || params[i].Kind == KeywordOnly) {
			if bound[i] {
				return nil, ArgumentError{Type: t, Param: name, Reason: "got multiple values"}
			}
			v, err := convertArg(t, name, value, in[i])
			if err != nil {
				return nil, err
			}
			vals[i], bound[i] = v, true
			continue
		}
		if varKw < 0 {
			if i >= 0 && params[i].Kind == PositionalOnly {
				return nil, ArgumentError{Type: t, Param: name, Reason: "positional-only argument passed as keyword"}
			}
			return nil, ArgumentError{Type: t, Param: name, Reason: "unexpected keyword argument"}
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[name] = value
	}

	for i, p := range params {
		if bound[i] {
			continue
		}
		switch {
		case p.Kind == VarKeyword:
			if extra == nil {
				extra = map[string]any{}
			}
			vals[i] = reflect.ValueOf(extra)
		case p.HasDefault:
			v, err := convertArg(t, p.Name, p.Default, in[i])
			if err != nil {
				return nil, err
			}
			vals[i] = v
		default:
			return nil, ArgumentError{Type: t, Param: p.Name, Reason: "missing required argument"}
		}
	}
	return vals, nil
}

// convertArg returns value as a reflect.Value of exactly type want.
func convertArg(t reflect.Type, name string, value any, want reflect.Type) (reflect.Value, error) {
	out := reflect.New(want).Elem()
	if value == nil {
		switch want.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
			return out, nil
		}
		return reflect.Value{}, ArgumentError{Type: t, Param: name, Reason: "nil is not a valid " + want.String()}
	}
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, ArgumentError{Type: t, Param: name, Reason: "expected " + want.String() +
			", got " + describeValue(v)}
	}
	out.Set(v)
	return out, nil
}

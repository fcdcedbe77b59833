package validation

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/km-arc/go-ioc/framework/ioc"
)

// ── Types ────────────────────────────────────────────────────────────────────

// Errors is the validation message bag.
// JSON output: {"errors": {"field": ["msg1", "msg2"]}}
type Errors struct {
	Bag map[string][]string `json:"errors"`
}

func (e *Errors) add(field, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[field] = append(e.Bag[field], msg)
}

// Has returns true if there are any errors.
func (e *Errors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a field.
func (e *Errors) First(field string) string {
	if msgs := e.Bag[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Error implements error so a failed validation can travel as one.
func (e *Errors) Error() string {
	fields := make([]string, 0, len(e.Bag))
	for f := range e.Bag {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = e.Bag[f][0]
	}
	return "validation: " + strings.Join(parts, " ")
}

// Field is the value a Rule checks.
type Field struct {
	Name  string
	Value string
	// Data is the whole input, for rules comparing fields.
	Data map[string]string
}

// Rule checks one field. param is the text after the colon in "min:3".
// A non-nil error becomes the field's message.
type Rule func(ctx context.Context, f Field, param string) error

// Skip stops the remaining rules of a field without recording a message.
var Skip = errors.New("validation: skip")

// Rules is a map of field → pipe-separated rule string.
// e.g. Rules{"login": "required|alpha_dash|between:3,32"}
type Rules map[string]string

// ── Validator ────────────────────────────────────────────────────────────────

// Validator validates a flat map of input values.
type Validator struct {
	data   map[string]string
	rules  Rules
	lookup ioc.Storage
	errors *Errors
	ran    bool
}

// Make creates a Validator using the built-in rules.
func Make(data map[string]string, rules Rules) *Validator {
	return &Validator{data: data, rules: rules, lookup: builtins, errors: &Errors{}}
}

// Using layers custom rules over the built-in ones. Rules in s are stored
// under ioc.KeyOf[Rule](name) and win over a built-in of the same name.
func (v *Validator) Using(s ioc.Storage) *Validator {
	v.lookup = ioc.Nest(s, v.lookup)
	return v
}

// Validate runs every rule once and returns the error bag when a rule failed.
func (v *Validator) Validate(ctx context.Context) error {
	if !v.ran {
		v.ran = true
		v.validate(ctx)
	}
	if v.errors.Has() {
		return v.errors
	}
	return nil
}

// Fails runs validation and returns true if any rule fails.
func (v *Validator) Fails() bool { return v.Validate(context.Background()) != nil }

// Passes runs validation and returns true if all rules pass.
func (v *Validator) Passes() bool { return !v.Fails() }

// Errors returns the validation error bag.
func (v *Validator) Errors() *Errors { return v.errors }

func (v *Validator) validate(ctx context.Context) {
	for field, spec := range v.rules {
		f := Field{Name: field, Value: v.data[field], Data: v.data}
		for _, raw := range strings.Split(spec, "|") {
			name, param, _ := strings.Cut(strings.TrimSpace(raw), ":")
			if name == "" {
				continue
			}
			rule, err := ioc.Lookup[Rule](v.lookup, name)
			if err != nil {
				v.errors.add(field, fmt.Sprintf("The %s field uses an unknown rule %q.", field, name))
				break
			}
			if err := rule(ctx, f, param); err != nil {
				if !errors.Is(err, Skip) {
					v.errors.add(field, err.Error())
				}
				break // bail on the first failure
			}
		}
	}
}

// ── Built-in rules ───────────────────────────────────────────────────────────

var builtins = ioc.NewDictStorage()

// Builtin registers r as a built-in rule. It panics when name is taken.
func Builtin(name string, r Rule) {
	key := ioc.KeyOf[Rule](name)
	if builtins.Contains(key) {
		panic(ioc.FactoryAlreadyAddedError{Key: key})
	}
	if err := builtins.Set(key, r); err != nil {
		panic(err)
	}
}

var (
	alphaDash = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	alphaNum  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

func init() {
	Builtin("required", func(_ context.Context, f Field, _ string) error {
		if strings.TrimSpace(f.Value) == "" {
			return fmt.Errorf("The %s field is required.", f.Name)
		}
		return nil
	})
	Builtin("sometimes", func(_ context.Context, f Field, _ string) error {
		if _, ok := f.Data[f.Name]; !ok {
			return Skip
		}
		return nil
	})
	Builtin("nullable", func(_ context.Context, f Field, _ string) error {
		if f.Value == "" {
			return Skip
		}
		return nil
	})

	Builtin("min", length(func(n, want int) bool { return n >= want }, "The %s must be at least %d characters."))
	Builtin("max", length(func(n, want int) bool { return n <= want }, "The %s may not be greater than %d characters."))
	Builtin("size", length(func(n, want int) bool { return n == want }, "The %s must be %d characters."))
	Builtin("between", func(_ context.Context, f Field, param string) error {
		lo, hi, _ := strings.Cut(param, ",")
		minN, _ := strconv.Atoi(strings.TrimSpace(lo))
		maxN, _ := strconv.Atoi(strings.TrimSpace(hi))
		if n := utf8.RuneCountInString(f.Value); n < minN || n > maxN {
			return fmt.Errorf("The %s must be between %d and %d characters.", f.Name, minN, maxN)
		}
		return nil
	})

	Builtin("numeric", func(_ context.Context, f Field, _ string) error {
		if _, err := strconv.ParseFloat(f.Value, 64); err != nil {
			return fmt.Errorf("The %s must be a number.", f.Name)
		}
		return nil
	})
	Builtin("integer", func(_ context.Context, f Field, _ string) error {
		if _, err := strconv.Atoi(f.Value); err != nil {
			return fmt.Errorf("The %s must be an integer.", f.Name)
		}
		return nil
	})
	Builtin("gte", func(_ context.Context, f Field, param string) error {
		got, _ := strconv.ParseFloat(f.Value, 64)
		want, _ := strconv.ParseFloat(param, 64)
		if got < want {
			return fmt.Errorf("The %s must be greater than or equal to %s.", f.Name, param)
		}
		return nil
	})

	Builtin("email", func(_ context.Context, f Field, _ string) error {
		if _, err := mail.ParseAddress(f.Value); err != nil {
			return fmt.Errorf("The %s must be a valid email address.", f.Name)
		}
		return nil
	})
	Builtin("uuid", func(_ context.Context, f Field, _ string) error {
		if _, err := uuid.Parse(f.Value); err != nil {
			return fmt.Errorf("The %s must be a valid UUID.", f.Name)
		}
		return nil
	})
	Builtin("alpha_num", pattern(alphaNum, "The %s may only contain letters and numbers."))
	Builtin("alpha_dash", pattern(alphaDash, "The %s may only contain letters, numbers, dashes and underscores."))
	Builtin("regex", func(_ context.Context, f Field, param string) error {
		re, err := regexp.Compile(param)
		if err != nil || !re.MatchString(f.Value) {
			return fmt.Errorf("The %s format is invalid.", f.Name)
		}
		return nil
	})

	Builtin("in", func(_ context.Context, f Field, param string) error {
		if !oneOf(f.Value, param) {
			return fmt.Errorf("The selected %s is invalid.", f.Name)
		}
		return nil
	})
	Builtin("not_in", func(_ context.Context, f Field, param string) error {
		if oneOf(f.Value, param) {
			return fmt.Errorf("The selected %s is invalid.", f.Name)
		}
		return nil
	})
	Builtin("same", func(_ context.Context, f Field, param string) error {
		if f.Data[param] != f.Value {
			return fmt.Errorf("The %s and %s must match.", f.Name, param)
		}
		return nil
	})
	Builtin("confirmed", func(_ context.Context, f Field, _ string) error {
		if f.Data[f.Name+"_confirmation"] != f.Value {
			return fmt.Errorf("The %s confirmation does not match.", f.Name)
		}
		return nil
	})
}

func length(ok func(n, want int) bool, msg string) Rule {
	return func(_ context.Context, f Field, param string) error {
		want, _ := strconv.Atoi(param)
		if !ok(utf8.RuneCountInString(f.Value), want) {
			return fmt.Errorf(msg, f.Name, want)
		}
		return nil
	}
}

func pattern(re *regexp.Regexp, msg string) Rule {
	return func(_ context.Context, f Field, _ string) error {
		if !re.MatchString(f.Value) {
			return fmt.Errorf(msg, f.Name)
		}
		return nil
	}
}

func oneOf(value, list string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}

package template

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aleyoscar/beancount-inquiry/internal/value"
)

// Sentinels for errors.Is dispatch at the CLI boundary.
var (
	ErrPlaceholderMismatch = errors.New("placeholder mismatch")
	ErrParameterCount      = errors.New("parameter count mismatch")
	ErrParameterMissingKey = errors.New("missing parameter key")
	ErrParameterType       = errors.New("parameter type mismatch")
)

// MismatchError reports a template whose placeholders cannot all be
// satisfied by any single value: named tokens next to positional ones,
// or blank tokens next to explicit indices.
type MismatchError struct {
	Template string
	Reason   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("unsatisfiable placeholders: %s", e.Reason)
}

func (e *MismatchError) Unwrap() error { return ErrPlaceholderMismatch }

// CountError reports a positional requirement given the wrong number
// of values.
type CountError struct {
	Want int
	Got  string
}

func (e *CountError) Error() string {
	if e.Want == 1 {
		return fmt.Sprintf("expected 1 positional value, got %s", e.Got)
	}
	return fmt.Sprintf("expected %d positional values, got %s", e.Want, e.Got)
}

func (e *CountError) Unwrap() error { return ErrParameterCount }

// MissingKeyError reports named placeholders absent from the supplied
// mapping. Keys are sorted.
type MissingKeyError struct {
	Keys []string
}

func (e *MissingKeyError) Error() string {
	if len(e.Keys) == 1 {
		return fmt.Sprintf("missing parameter key %q", e.Keys[0])
	}
	return fmt.Sprintf("missing parameter keys: %s", strings.Join(e.Keys, ", "))
}

func (e *MissingKeyError) Unwrap() error { return ErrParameterMissingKey }

// TypeError reports a value shape incompatible with the template's
// placeholder kind.
type TypeError struct {
	Want string
	Got  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("expected a %s value, got %s", e.Want, e.Got)
}

func (e *TypeError) Unwrap() error { return ErrParameterType }

// describe names a value shape for error messages.
func describe(v value.Value) string {
	switch x := v.(type) {
	case value.None:
		return "no parameters"
	case value.Scalar:
		return "a scalar"
	case value.Sequence:
		return fmt.Sprintf("a sequence of %d", len(x))
	case value.Mapping:
		return "a mapping"
	}
	return "an unknown value"
}

// Package literal converts raw parameter arguments into typed values.
// Parsing tries strict JSON first, then falls back to a permissive
// Python-style literal grammar, so '["a", 1]' and "['a', 1]" both parse
// to the same sequence.
package literal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aleyoscar/beancount-inquiry/internal/value"
)

// ErrParameterSyntax is the sentinel all parse failures unwrap to.
var ErrParameterSyntax = errors.New("invalid parameter literal")

// SyntaxError reports a raw parameter argument that is neither valid
// JSON nor a valid literal expression, or that uses an unsupported
// shape such as a nested collection.
type SyntaxError struct {
	Raw    string
	Offset int // rune offset where the parser stopped, 0 if unknown
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("cannot parse parameters %q: %s at offset %d", e.Raw, e.Reason, e.Offset)
	}
	return fmt.Sprintf("cannot parse parameters %q: %s", e.Raw, e.Reason)
}

func (e *SyntaxError) Unwrap() error { return ErrParameterSyntax }

// Parse converts a raw parameter argument into a Value. An empty or
// all-whitespace argument means no parameters were supplied and yields
// value.None, which is distinct from the empty sequence "[]" and the
// empty mapping "{}".
func Parse(raw string) (value.Value, error) {
	if strings.TrimSpace(raw) == "" {
		return value.None{}, nil
	}
	v, err := parseJSON(raw)
	if err == nil {
		return v, nil
	}
	var syn *SyntaxError
	if errors.As(err, &syn) {
		// Well-formed JSON with an unsupported shape. The fallback
		// grammar cannot do better, so fail now.
		return nil, err
	}
	return parsePython(raw)
}

// parseJSON handles the strict grammar. Numbers decode as json.Number
// so their source spelling survives into the substituted query.
func parseJSON(raw string) (value.Value, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing content after value")
	}
	return fromJSON(raw, v)
}

func fromJSON(raw string, v any) (value.Value, error) {
	switch x := v.(type) {
	case []any:
		seq := make(value.Sequence, 0, len(x))
		for i, el := range x {
			s, ok := scalarFromJSON(el)
			if !ok {
				return nil, &SyntaxError{Raw: raw, Reason: fmt.Sprintf("element %d is a nested collection", i)}
			}
			seq = append(seq, s)
		}
		return seq, nil
	case map[string]any:
		m := make(value.Mapping, len(x))
		for k, el := range x {
			s, ok := scalarFromJSON(el)
			if !ok {
				return nil, &SyntaxError{Raw: raw, Reason: fmt.Sprintf("value for key %q is a nested collection", k)}
			}
			m[k] = s
		}
		return m, nil
	default:
		s, ok := scalarFromJSON(v)
		if !ok {
			return nil, &SyntaxError{Raw: raw, Reason: "unsupported value"}
		}
		return s, nil
	}
}

func scalarFromJSON(v any) (value.Scalar, bool) {
	switch x := v.(type) {
	case string:
		return value.Str(x), true
	case json.Number:
		return value.Number(x.String()), true
	case bool:
		return value.Bool(x), true
	case nil:
		return value.Null(), true
	}
	return value.Scalar{}, false
}

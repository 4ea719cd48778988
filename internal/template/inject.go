package template

import (
	"strings"

	"github.com/aleyoscar/beancount-inquiry/internal/value"
)

// Inject substitutes the value into the template this requirement was
// scanned from. Substitution is purely textual: each occurrence is
// replaced by the matched scalar's canonical text and the result is
// never evaluated.
//
// A template without placeholders is returned verbatim whatever the
// value; supplying parameters to it is not an error. Everywhere else
// doubled braces in the surrounding text unescape to single braces.
func (r *Requirement) Inject(v value.Value) (string, error) {
	if v == nil {
		v = value.None{}
	}
	switch r.Kind {
	case KindNone:
		return r.Template, nil
	case KindMixed:
		return "", &MismatchError{
			Template: r.Template,
			Reason:   "named placeholders cannot be combined with positional ones",
		}
	case KindNamed:
		m, ok := v.(value.Mapping)
		if !ok {
			return "", &TypeError{Want: "mapping", Got: describe(v)}
		}
		var missing []string
		for _, k := range r.Keys {
			if _, ok := m[k]; !ok {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			return "", &MissingKeyError{Keys: missing}
		}
		return r.splice(func(tok Token) string { return m[tok.Name].Text }), nil
	default:
		seq, err := r.positional(v)
		if err != nil {
			return "", err
		}
		return r.splice(func(tok Token) string { return seq[tok.Index].Text }), nil
	}
}

// positional resolves the supplied value against the positional arity.
// With a single distinct slot, a bare scalar and a one-element sequence
// are interchangeable. A longer sequence than required is fine, the
// extra entries are ignored.
func (r *Requirement) positional(v value.Value) (value.Sequence, error) {
	if r.SingleValue {
		switch x := v.(type) {
		case value.Scalar:
			return value.Sequence{x}, nil
		case value.Sequence:
			if len(x) == 1 {
				return x, nil
			}
		}
		return nil, &CountError{Want: 1, Got: describe(v)}
	}
	seq, ok := v.(value.Sequence)
	if !ok || len(seq) < r.Count {
		return nil, &CountError{Want: r.Count, Got: describe(v)}
	}
	return seq, nil
}

// splice rebuilds the template, replacing each token and unescaping
// doubled braces in the text between tokens.
func (r *Requirement) splice(render func(Token) string) string {
	var sb strings.Builder
	sb.Grow(len(r.Template))
	last := 0
	for _, tok := range r.Tokens {
		sb.WriteString(unescape(r.Template[last:tok.Start]))
		sb.WriteString(render(tok))
		last = tok.End
	}
	sb.WriteString(unescape(r.Template[last:]))
	return sb.String()
}

var braceUnescaper = strings.NewReplacer("{{", "{", "}}", "}")

func unescape(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}
	return braceUnescaper.Replace(s)
}

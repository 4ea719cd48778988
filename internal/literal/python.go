// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 aleyoscar

package literal

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aleyoscar/beancount-inquiry/internal/value"
)

// pyParser is a recursive-descent parser for the fallback grammar:
// single- or double-quoted strings, [ ] lists, ( ) tuples, { } dicts
// with quoted or bare identifier keys, numbers, True/False/true/false
// and None/null. Tuples parse as sequences. Only literals are
// accepted, never expressions, and collections hold primitives only.
type pyParser struct {
	raw string
	src []rune
	pos int
}

func parsePython(raw string) (value.Value, error) {
	p := &pyParser{raw: raw, src: []rune(raw)}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errf("unexpected trailing content")
	}
	return v, nil
}

func (p *pyParser) peek() rune {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *pyParser) next() rune {
	r := p.peek()
	if r != 0 {
		p.pos++
	}
	return r
}

func (p *pyParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *pyParser) errf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Raw: p.raw, Offset: p.pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *pyParser) parseValue() (value.Value, error) {
	switch c := p.peek(); {
	case c == '[':
		return p.parseList(']')
	case c == '(':
		return p.parseList(')')
	case c == '{':
		return p.parseDict()
	default:
		return p.parseScalar()
	}
}

// parseScalar handles collection elements and bare top-level values.
// Collections reach here for their elements, so an open bracket at
// this point means illegal nesting.
func (p *pyParser) parseScalar() (value.Scalar, error) {
	switch c := p.peek(); {
	case c == '[' || c == '(' || c == '{':
		return value.Scalar{}, p.errf("nested collections are not supported")
	case c == '\'' || c == '"':
		s, err := p.parseString()
		if err != nil {
			return value.Scalar{}, err
		}
		return value.Str(s), nil
	case c == '+' || c == '-' || c == '.' || unicode.IsDigit(c):
		return p.parseNumber()
	case unicode.IsLetter(c) || c == '_':
		return p.parseWord()
	case c == 0:
		return value.Scalar{}, p.errf("unexpected end of input")
	default:
		return value.Scalar{}, p.errf("unexpected character %q", c)
	}
}

// parseString consumes a quoted string. Recognized escapes are
// translated, unrecognized ones keep their backslash untouched.
func (p *pyParser) parseString() (string, error) {
	quote := p.next()
	var sb strings.Builder
	for {
		c := p.next()
		switch c {
		case 0:
			return "", p.errf("unterminated string")
		case quote:
			return sb.String(), nil
		case '\\':
			e := p.next()
			switch e {
			case 0:
				return "", p.errf("unterminated string")
			case '\\', '\'', '"':
				sb.WriteRune(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			default:
				sb.WriteByte('\\')
				sb.WriteRune(e)
			}
		default:
			sb.WriteRune(c)
		}
	}
}

// parseNumber consumes a numeric literal and keeps the exact lexeme.
func (p *pyParser) parseNumber() (value.Scalar, error) {
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.next()
	}
	digits := 0
	for unicode.IsDigit(p.peek()) {
		p.next()
		digits++
	}
	if p.peek() == '.' {
		p.next()
		for unicode.IsDigit(p.peek()) {
			p.next()
			digits++
		}
	}
	if digits == 0 {
		return value.Scalar{}, p.errf("malformed number")
	}
	if c := p.peek(); c == 'e' || c == 'E' {
		p.next()
		if c := p.peek(); c == '+' || c == '-' {
			p.next()
		}
		expDigits := 0
		for unicode.IsDigit(p.peek()) {
			p.next()
			expDigits++
		}
		if expDigits == 0 {
			return value.Scalar{}, p.errf("malformed exponent")
		}
	}
	return value.Number(string(p.src[start:p.pos])), nil
}

// parseWord consumes a bare identifier and maps the known keyword
// literals. Anything else is unquoted text, which the grammar rejects.
func (p *pyParser) parseWord() (value.Scalar, error) {
	start := p.pos
	for isIdentRune(p.peek()) {
		p.next()
	}
	word := string(p.src[start:p.pos])
	switch word {
	case "True", "true":
		return value.Bool(true), nil
	case "False", "false":
		return value.Bool(false), nil
	case "None", "null":
		return value.Null(), nil
	}
	p.pos = start
	return value.Scalar{}, p.errf("unquoted text %q", word)
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (p *pyParser) parseList(close rune) (value.Value, error) {
	p.next()
	seq := value.Sequence{}
	p.skipSpace()
	if p.peek() == close {
		p.next()
		return seq, nil
	}
	for {
		s, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		seq = append(seq, s)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.next()
			p.skipSpace()
			// Trailing comma before the closer is allowed
			if p.peek() == close {
				p.next()
				return seq, nil
			}
		case close:
			p.next()
			return seq, nil
		case 0:
			return nil, p.errf("unterminated list")
		default:
			return nil, p.errf("expected ',' or %q", close)
		}
	}
}

func (p *pyParser) parseDict() (value.Value, error) {
	p.next()
	m := value.Mapping{}
	p.skipSpace()
	if p.peek() == '}' {
		p.next()
		return m, nil
	}
	for {
		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errf("expected ':' after key %q", key)
		}
		p.next()
		p.skipSpace()
		s, err := p.parseScalar()
		if err != nil {
			return nil, err
		}
		m[key] = s
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.next()
			p.skipSpace()
			if p.peek() == '}' {
				p.next()
				return m, nil
			}
		case '}':
			p.next()
			return m, nil
		case 0:
			return nil, p.errf("unterminated mapping")
		default:
			return nil, p.errf("expected ',' or '}'")
		}
	}
}

// parseKey accepts a quoted string or a bare identifier. Python's
// literal grammar requires quoted keys; here {account: 'Assets:Bank'}
// parses without inner quotes.
func (p *pyParser) parseKey() (string, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == '\'' || c == '"':
		return p.parseString()
	case unicode.IsLetter(c) || c == '_':
		start := p.pos
		for isIdentRune(p.peek()) {
			p.next()
		}
		return string(p.src[start:p.pos]), nil
	case c == 0:
		return "", p.errf("unterminated mapping")
	default:
		return "", p.errf("mapping keys must be strings or identifiers")
	}
}

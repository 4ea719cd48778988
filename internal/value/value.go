// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 aleyoscar

// Package value defines the typed parameter shapes accepted by bean-inquiry.
package value

import (
	"sort"
	"strings"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	KindNone Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return "unknown"
}

// Value is the interface all parameter shapes implement. The set of
// implementations is closed: Scalar, Sequence, Mapping, None.
type Value interface {
	// Kind returns the shape tag.
	Kind() Kind
	// String returns a display form for logs and error messages.
	String() string

	value()
}

// Scalar is a single primitive value. Text is the canonical form used
// during substitution: string content without quotes, numbers with
// their source spelling preserved, booleans as true/false, null as null.
type Scalar struct {
	Text string
}

func (s Scalar) Kind() Kind     { return KindScalar }
func (s Scalar) String() string { return s.Text }
func (s Scalar) value()         {}

// Sequence is an ordered list of scalars. Order is significant: it maps
// onto positional and indexed placeholders.
type Sequence []Scalar

func (q Sequence) Kind() Kind { return KindSequence }
func (q Sequence) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, s := range q {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(s.Text)
	}
	sb.WriteByte(']')
	return sb.String()
}
func (q Sequence) value() {}

// Mapping is a set of named scalars for named placeholders. Key order
// is irrelevant.
type Mapping map[string]Scalar

func (m Mapping) Kind() Kind { return KindMapping }
func (m Mapping) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(m[k].Text)
	}
	sb.WriteByte('}')
	return sb.String()
}
func (m Mapping) value() {}

// None is the sentinel for absent parameters. It is distinct from an
// empty Sequence or Mapping: nothing was supplied at all.
type None struct{}

func (n None) Kind() Kind     { return KindNone }
func (n None) String() string { return "" }
func (n None) value()         {}

// Str creates a Scalar from string content.
func Str(s string) Scalar { return Scalar{Text: s} }

// Number creates a Scalar from a numeric lexeme, keeping the source
// spelling so 1.50 does not become 1.5 in the substituted query.
func Number(lexeme string) Scalar { return Scalar{Text: lexeme} }

// Bool creates a Scalar rendering as true or false.
func Bool(b bool) Scalar {
	if b {
		return Scalar{Text: "true"}
	}
	return Scalar{Text: "false"}
}

// Null creates a Scalar rendering as null.
func Null() Scalar { return Scalar{Text: "null"} }

// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 aleyoscar

// Package template analyzes placeholders in query templates and
// injects parameter values into them. Placeholders come in three
// kinds: blank {}, indexed {0}, and named {key}. Doubled braces escape
// a literal brace.
package template

// Kind classifies what a template requires.
type Kind int

const (
	// KindNone means the template has no placeholders.
	KindNone Kind = iota
	// KindPositional means blank or explicitly indexed slots.
	KindPositional
	// KindNamed means key-based slots.
	KindNamed
	// KindMixed means named and positional tokens coexist. No value
	// shape satisfies both, so injection always fails.
	KindMixed
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPositional:
		return "positional"
	case KindNamed:
		return "named"
	case KindMixed:
		return "mixed"
	}
	return "unknown"
}

// Token is a single placeholder occurrence in a template.
type Token struct {
	Raw   string // text between the braces
	Start int    // byte offset of the opening brace
	End   int    // byte offset just past the closing brace
	Index int    // resolved positional index, -1 for named tokens
	Name  string // key for named tokens, empty otherwise
}

// Requirement is the read-only summary of one template's placeholders.
// Scan computes it once; Inject reuses it without rescanning.
type Requirement struct {
	Template    string
	Kind        Kind
	Count       int      // positional slots required: highest index + 1
	Keys        []string // sorted distinct named keys
	Tokens      []Token  // every occurrence in template order
	SingleValue bool     // exactly one distinct position and it is index 0
}

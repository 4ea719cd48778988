// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2024-2026 aleyoscar

package template

import (
	"sort"
	"strconv"
	"strings"
)

// Scan extracts the placeholder requirement from a template. A token is
// the text between an opening brace and the next closing brace; an
// empty token is blank, an all-digits token is indexed, anything else
// is named. Blank tokens take implicit indices 0, 1, 2, ... in order
// of appearance. An opening brace with no closing brace ahead is
// literal text, as is a lone closing brace.
//
// The only scan-time failure is a blank placeholder in the same
// template as an explicitly indexed one: implicit numbering would
// collide with the explicit indices.
func Scan(template string) (*Requirement, error) {
	req := &Requirement{Template: template}
	var (
		blanks   int
		indexed  bool
		maxIndex = -1
		keys     = map[string]struct{}{}
	)

	for i := 0; i < len(template); {
		c := template[i]
		if c == '{' {
			if i+1 < len(template) && template[i+1] == '{' {
				i += 2
				continue
			}
			rel := strings.IndexByte(template[i+1:], '}')
			if rel < 0 {
				break
			}
			raw := template[i+1 : i+1+rel]
			tok := Token{Raw: raw, Start: i, End: i + rel + 2}
			if raw == "" {
				tok.Index = blanks
				blanks++
				if tok.Index > maxIndex {
					maxIndex = tok.Index
				}
			} else if n, ok := parseIndex(raw); ok {
				tok.Index = n
				indexed = true
				if n > maxIndex {
					maxIndex = n
				}
			} else {
				tok.Index = -1
				tok.Name = raw
				keys[raw] = struct{}{}
			}
			req.Tokens = append(req.Tokens, tok)
			i = tok.End
			continue
		}
		if c == '}' && i+1 < len(template) && template[i+1] == '}' {
			i += 2
			continue
		}
		i++
	}

	if blanks > 0 && indexed {
		return nil, &MismatchError{
			Template: template,
			Reason:   "blank placeholders cannot be combined with explicit indices",
		}
	}

	positional := blanks > 0 || indexed
	switch {
	case len(req.Tokens) == 0:
		req.Kind = KindNone
	case positional && len(keys) > 0:
		req.Kind = KindMixed
		req.Count = maxIndex + 1
		req.Keys = sortedKeys(keys)
	case len(keys) > 0:
		req.Kind = KindNamed
		req.Keys = sortedKeys(keys)
	default:
		req.Kind = KindPositional
		req.Count = maxIndex + 1
		req.SingleValue = req.Count == 1
	}
	return req, nil
}

// parseIndex reports whether s is a usable explicit index: all ASCII
// digits and small enough for int.
func parseIndex(s string) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package value

import "testing"

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindNone:     "none",
		KindScalar:   "scalar",
		KindSequence: "sequence",
		KindMapping:  "mapping",
		Kind(99):     "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String(): expected %q, got %q", int(k), want, got)
		}
	}
}

func TestScalarConstructors(t *testing.T) {
	if got := Str("Assets:Bank").Text; got != "Assets:Bank" {
		t.Errorf("Str: expected 'Assets:Bank', got %q", got)
	}
	// Numeric lexemes keep their source spelling
	if got := Number("1.50").Text; got != "1.50" {
		t.Errorf("Number: expected '1.50', got %q", got)
	}
	if got := Bool(true).Text; got != "true" {
		t.Errorf("Bool(true): expected 'true', got %q", got)
	}
	if got := Bool(false).Text; got != "false" {
		t.Errorf("Bool(false): expected 'false', got %q", got)
	}
	if got := Null().Text; got != "null" {
		t.Errorf("Null: expected 'null', got %q", got)
	}
}

func TestValueKinds(t *testing.T) {
	var v Value

	v = Scalar{Text: "x"}
	if v.Kind() != KindScalar {
		t.Errorf("Scalar kind: expected scalar, got %s", v.Kind())
	}
	v = Sequence{Str("a"), Str("b")}
	if v.Kind() != KindSequence {
		t.Errorf("Sequence kind: expected sequence, got %s", v.Kind())
	}
	v = Mapping{"k": Str("v")}
	if v.Kind() != KindMapping {
		t.Errorf("Mapping kind: expected mapping, got %s", v.Kind())
	}
	v = None{}
	if v.Kind() != KindNone {
		t.Errorf("None kind: expected none, got %s", v.Kind())
	}
}

func TestSequenceString(t *testing.T) {
	q := Sequence{Str("Assets:Bank"), Str("2025-05-01")}
	if got := q.String(); got != "[Assets:Bank, 2025-05-01]" {
		t.Errorf("expected '[Assets:Bank, 2025-05-01]', got %q", got)
	}
	if got := (Sequence{}).String(); got != "[]" {
		t.Errorf("empty sequence: expected '[]', got %q", got)
	}
}

func TestMappingStringSorted(t *testing.T) {
	// Display form sorts keys
	m := Mapping{"date": Str("2025-05-01"), "account": Str("Assets:Bank")}
	want := "{account: Assets:Bank, date: 2025-05-01}"
	if got := m.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNoneString(t *testing.T) {
	if got := (None{}).String(); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

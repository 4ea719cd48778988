package template_test

import (
	"testing"

	"github.com/aleyoscar/beancount-inquiry/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name        string
		template    string
		kind        template.Kind
		count       int
		keys        []string
		tokens      int
		singleValue bool
		wantErr     bool
	}{
		{
			name:     "no placeholders",
			template: "SELECT date, account FROM year = 2025",
			kind:     template.KindNone,
		},
		{
			name:     "escaped braces only",
			template: "SELECT '{{literal}}' FROM x",
			kind:     template.KindNone,
		},
		{
			name:        "single blank",
			template:    "SELECT date WHERE account ~ '{}'",
			kind:        template.KindPositional,
			count:       1,
			tokens:      1,
			singleValue: true,
		},
		{
			name:     "two blanks take successive positions",
			template: "WHERE account ~ '{}' AND date >= {}",
			kind:     template.KindPositional,
			count:    2,
			tokens:   2,
		},
		{
			name:        "repeated index zero is a single slot",
			template:    "SELECT {0} ORDER BY {0}",
			kind:        template.KindPositional,
			count:       1,
			tokens:      2,
			singleValue: true,
		},
		{
			name:     "indexed with repeats",
			template: "SELECT date, {0}, sum(number) WHERE {0} ~ '{1}' AND date >= {2} ORDER BY {0}",
			kind:     template.KindPositional,
			count:    3,
			tokens:   5,
		},
		{
			name:     "highest index sets the arity",
			template: "WHERE x = {2}",
			kind:     template.KindPositional,
			count:    3,
			tokens:   1,
		},
		{
			name:     "named keys",
			template: "WHERE account ~ '{account}' AND date >= {date}",
			kind:     template.KindNamed,
			keys:     []string{"account", "date"},
			tokens:   2,
		},
		{
			name:     "duplicate named key counted once",
			template: "SELECT {account} ORDER BY {account}",
			kind:     template.KindNamed,
			keys:     []string{"account"},
			tokens:   2,
		},
		{
			name:     "named next to indexed is mixed",
			template: "WHERE {account} AND {0}",
			kind:     template.KindMixed,
			count:    1,
			keys:     []string{"account"},
			tokens:   2,
		},
		{
			name:     "named next to blank is mixed",
			template: "WHERE {account} AND {}",
			kind:     template.KindMixed,
			count:    1,
			keys:     []string{"account"},
			tokens:   2,
		},
		{
			name:     "blank with explicit index collides",
			template: "WHERE {} AND {1}",
			wantErr:  true,
		},
		{
			name:     "unclosed brace is literal",
			template: "WHERE x = { AND y = 2",
			kind:     template.KindNone,
		},
		{
			name:     "lone closing brace is literal",
			template: "WHERE x = } AND y = 2",
			kind:     template.KindNone,
		},
		{
			name:     "brace inside token joins the name",
			template: "WHERE {a{b}",
			kind:     template.KindNamed,
			keys:     []string{"a{b"},
			tokens:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := template.Scan(tt.template)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, template.ErrPlaceholderMismatch)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, req.Kind)
			assert.Equal(t, tt.count, req.Count)
			assert.Equal(t, tt.keys, req.Keys)
			assert.Len(t, req.Tokens, tt.tokens)
			assert.Equal(t, tt.singleValue, req.SingleValue)
		})
	}
}

func TestScanTokenOffsets(t *testing.T) {
	req, err := template.Scan("a {} b {name} c")
	require.NoError(t, err)

	want := []template.Token{
		{Raw: "", Start: 2, End: 4, Index: 0},
		{Raw: "name", Start: 7, End: 13, Index: -1, Name: "name"},
	}
	assert.Equal(t, want, req.Tokens)
}

func TestScanBlankNumbering(t *testing.T) {
	req, err := template.Scan("{} {} {}")
	require.NoError(t, err)

	require.Len(t, req.Tokens, 3)
	for i, tok := range req.Tokens {
		assert.Equal(t, i, tok.Index, "blank %d", i)
	}
	assert.Equal(t, 3, req.Count)
	assert.False(t, req.SingleValue)
}

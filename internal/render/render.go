// Package render presents query lists, requirement checks and
// invocation history as text or CSV. Query results themselves are not
// rendered here: bean-query already formats its own output.
package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aleyoscar/beancount-inquiry/internal/history"
	"github.com/aleyoscar/beancount-inquiry/internal/ledger"
	"github.com/aleyoscar/beancount-inquiry/internal/template"
)

// Format selects the output rendering.
type Format int

const (
	// FormatText is the default tabular rendering.
	FormatText Format = iota
	// FormatCSV renders comma-separated rows.
	FormatCSV
)

// String returns the string representation of a Format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// ParseFormat parses a string into a Format. The empty string means
// the text default.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, true
	case "csv":
		return FormatCSV, true
	default:
		return FormatText, false
	}
}

// QueryList writes every query in scan order.
func QueryList(w io.Writer, f Format, queries []ledger.Query) error {
	if f == FormatCSV {
		cw := csv.NewWriter(w)
		cw.Write([]string{"name", "date", "query"})
		for _, q := range queries {
			cw.Write([]string{q.Name, q.Date, q.Template})
		}
		cw.Flush()
		return cw.Error()
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDATE\tQUERY")
	for _, q := range queries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", q.Name, q.Date, q.Template)
	}
	return tw.Flush()
}

// CheckRow pairs a query name with its analyzed requirement. Err holds
// the scan failure when the template could not be analyzed at all.
type CheckRow struct {
	Name string
	Req  *template.Requirement
	Err  error
}

// Check writes one requirement report per row.
func Check(w io.Writer, f Format, rows []CheckRow) error {
	if f == FormatCSV {
		cw := csv.NewWriter(w)
		cw.Write([]string{"name", "parameters", "kind", "placeholders"})
		for _, row := range rows {
			if row.Err != nil {
				cw.Write([]string{row.Name, "", "error", row.Err.Error()})
				continue
			}
			cw.Write([]string{
				row.Name,
				strconv.Itoa(requirementCount(row.Req)),
				row.Req.Kind.String(),
				placeholderList(row.Req),
			})
		}
		cw.Flush()
		return cw.Error()
	}

	for _, row := range rows {
		fmt.Fprintln(w, checkLine(row))
	}
	return nil
}

// checkLine renders the text form of one check row.
func checkLine(row CheckRow) string {
	if row.Err != nil {
		return fmt.Sprintf("Query '%s' is invalid: %v", row.Name, row.Err)
	}
	switch row.Req.Kind {
	case template.KindNone:
		return fmt.Sprintf("No parameters required for query '%s'", row.Name)
	case template.KindMixed:
		return fmt.Sprintf("Query '%s' mixes named and positional placeholders: %s", row.Name, placeholderList(row.Req))
	default:
		return fmt.Sprintf("Required parameters for query '%s' (%d): %s",
			row.Name, requirementCount(row.Req), placeholderList(row.Req))
	}
}

// requirementCount is the number a caller must supply: the positional
// arity, or the number of distinct named keys.
func requirementCount(req *template.Requirement) int {
	switch req.Kind {
	case template.KindNamed:
		return len(req.Keys)
	case template.KindPositional:
		return req.Count
	case template.KindMixed:
		return len(req.Keys) + req.Count
	}
	return 0
}

// placeholderList renders the tokens back in braces: blanks once per
// occurrence, everything else deduplicated, all sorted.
func placeholderList(req *template.Requirement) string {
	var parts []string
	seen := map[string]bool{}
	for _, tok := range req.Tokens {
		if tok.Raw == "" {
			parts = append(parts, "{}")
			continue
		}
		if !seen[tok.Raw] {
			seen[tok.Raw] = true
			parts = append(parts, "{"+tok.Raw+"}")
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// History writes recorded invocations, newest first as supplied.
func History(w io.Writer, f Format, entries []history.Entry, now time.Time) error {
	if f == FormatCSV {
		cw := csv.NewWriter(w)
		cw.Write([]string{"id", "query", "params", "injected", "format", "exit_code", "duration_ms", "ts"})
		for _, e := range entries {
			cw.Write([]string{
				e.ID,
				e.Query,
				e.Params,
				e.Injected,
				e.Format,
				strconv.Itoa(e.ExitCode),
				strconv.FormatInt(e.Duration.Milliseconds(), 10),
				e.Ts.UTC().Format(time.RFC3339),
			})
		}
		cw.Flush()
		return cw.Error()
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUERY\tWHEN\tEXIT\tINJECTED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			e.ID, e.Query, humanize.RelTime(e.Ts, now, "ago", "from now"), e.ExitCode, e.Injected)
	}
	return tw.Flush()
}

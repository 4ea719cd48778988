// Package ledger locates named query directives in Beancount files.
// Only two directives matter here: query definitions and includes.
// Everything else in the ledger is ignored, not validated.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// maxIncludeDepth bounds include recursion independently of the cycle
// guard, so a deep chain of distinct files still terminates early.
const maxIncludeDepth = 16

var (
	queryDirective   = regexp.MustCompile(`^\s*(\d{4}-\d{2}-\d{2})\s+query\s+"([^"]+)"\s+"([^"]*)"\s*$`)
	includeDirective = regexp.MustCompile(`^\s*include\s+"([^"]+)"\s*$`)
)

// ErrQueryNotFound is the sentinel for failed name lookups.
var ErrQueryNotFound = errors.New("query not found")

// NotFoundError reports a name with no query directive in the ledger.
// Known lists every defined name in scan order for the error message.
type NotFoundError struct {
	Name  string
	Known []string
}

func (e *NotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("no query named %q in ledger", e.Name)
	}
	return fmt.Sprintf("no query named %q in ledger, valid queries: %s", e.Name, strings.Join(e.Known, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrQueryNotFound }

// Query is one query directive as found in a ledger file.
type Query struct {
	Name     string
	Template string
	Date     string
	File     string
	Line     int
}

// File is the result of scanning a ledger and the files it includes.
type File struct {
	path    string
	queries []Query
	byName  map[string]Query
}

// Scan reads the ledger at path, following include directives relative
// to each including file. Include cycles are skipped and recursion is
// depth-limited.
func Scan(path string) (*File, error) {
	f := &File{path: path, byName: make(map[string]Query)}
	if err := f.scanFile(path, make(map[string]bool), 0); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) scanFile(path string, visited map[string]bool, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("ledger include depth exceeds %d at %s", maxIncludeDepth, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if visited[abs] {
		return nil
	}
	visited[abs] = true

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if m := queryDirective.FindStringSubmatch(text); m != nil {
			q := Query{Date: m[1], Name: m[2], Template: m[3], File: path, Line: line}
			f.queries = append(f.queries, q)
			// First definition wins on duplicate names
			if _, ok := f.byName[q.Name]; !ok {
				f.byName[q.Name] = q
			}
			continue
		}
		if m := includeDirective.FindStringSubmatch(text); m != nil {
			inc := m[1]
			if !filepath.IsAbs(inc) {
				inc = filepath.Join(filepath.Dir(path), inc)
			}
			if err := f.scanFile(inc, visited, depth+1); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read ledger %s: %w", path, err)
	}
	return nil
}

// Path returns the top-level ledger path this File was scanned from.
func (f *File) Path() string { return f.path }

// Queries returns every query directive in scan order, duplicates
// included.
func (f *File) Queries() []Query { return f.queries }

// Lookup returns the query defined with the given name. When a name is
// defined more than once the first definition in scan order wins.
func (f *File) Lookup(name string) (Query, error) {
	if q, ok := f.byName[name]; ok {
		return q, nil
	}
	names := make([]string, 0, len(f.queries))
	seen := make(map[string]bool, len(f.queries))
	for _, q := range f.queries {
		if !seen[q.Name] {
			seen[q.Name] = true
			names = append(names, q.Name)
		}
	}
	return Query{}, &NotFoundError{Name: name, Known: names}
}

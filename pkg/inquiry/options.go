// Package inquiry provides the public API for running parameterized
// Beancount queries.
package inquiry

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/aleyoscar/beancount-inquiry/internal/history"
	"github.com/aleyoscar/beancount-inquiry/internal/ledger"
	"github.com/aleyoscar/beancount-inquiry/internal/render"
	"github.com/aleyoscar/beancount-inquiry/internal/runner"
	"github.com/aleyoscar/beancount-inquiry/internal/template"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. The default discards
// everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunner sets a custom query runner (for testing).
func WithRunner(r runner.Runner) Option {
	return func(e *Engine) {
		e.run = r
	}
}

// WithExec configures how bean-query is spawned. The command may
// carry extra words, e.g. "poetry run bean-query". A zero timeout
// means no limit.
func WithExec(command string, timeout time.Duration) Option {
	return func(e *Engine) {
		e.execCommand = command
		e.execTimeout = timeout
	}
}

// WithFormat sets the output format requested from bean-query.
func WithFormat(f render.Format) Option {
	return func(e *Engine) {
		e.format = f
	}
}

// WithSQLiteHistory records invocations in a SQLite database at path,
// creating the parent directory as needed.
func WithSQLiteHistory(path string) Option {
	return func(e *Engine) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			e.storeErr = err
			return
		}
		s, err := history.NewSQLite(path)
		if err != nil {
			e.storeErr = err
			return
		}
		e.store = s
	}
}

// WithMemoryHistory records invocations in memory (for testing and
// for sessions without a database).
func WithMemoryHistory() Option {
	return func(e *Engine) {
		e.store = history.NewMemory()
	}
}

// WithStore sets a custom history store.
func WithStore(s history.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithoutHistory disables invocation recording.
func WithoutHistory() Option {
	return func(e *Engine) {
		e.store = nil
	}
}

// Store interface for custom history stores.
type Store = history.Store

// Entry is one recorded invocation.
type Entry = history.Entry

// Runner interface for custom query runners.
type Runner = runner.Runner

// Result is the outcome of one execution.
type Result = runner.Result

// Query is one named query directive from the ledger.
type Query = ledger.Query

// Requirement describes the parameters a query template needs.
type Requirement = template.Requirement

// Format selects text or CSV rendering.
type Format = render.Format

// Rendering formats.
const (
	FormatText = render.FormatText
	FormatCSV  = render.FormatCSV
)

// ParseFormat parses a string into a Format.
func ParseFormat(s string) (Format, bool) {
	return render.ParseFormat(s)
}

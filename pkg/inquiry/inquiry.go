package inquiry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aleyoscar/beancount-inquiry/internal/history"
	"github.com/aleyoscar/beancount-inquiry/internal/ledger"
	"github.com/aleyoscar/beancount-inquiry/internal/literal"
	"github.com/aleyoscar/beancount-inquiry/internal/render"
	"github.com/aleyoscar/beancount-inquiry/internal/runner"
	"github.com/aleyoscar/beancount-inquiry/internal/template"
	"github.com/aleyoscar/beancount-inquiry/internal/value"
)

// ErrHistoryDisabled is returned by history operations when no store
// is configured.
var ErrHistoryDisabled = errors.New("history is disabled")

// ErrEntryNotFound is returned by Replay for an unknown history ID.
var ErrEntryNotFound = errors.New("no such history entry")

// Engine ties the ledger, the parameter pipeline, the query runner
// and the invocation history together.
type Engine struct {
	ledger      *ledger.File
	run         runner.Runner
	store       history.Store
	storeErr    error
	logger      *zap.Logger
	format      render.Format
	execCommand string
	execTimeout time.Duration
}

// New scans the ledger at path and assembles an engine around it.
func New(path string, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: zap.NewNop(),
		format: render.FormatText,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.storeErr != nil {
		e.logger.Warn("history unavailable", zap.Error(e.storeErr))
	}

	if e.run == nil {
		ropts := []runner.ExecOption{runner.WithLogger(e.logger)}
		if e.execCommand != "" {
			ropts = append(ropts, runner.WithCommand(e.execCommand))
		}
		if e.execTimeout > 0 {
			ropts = append(ropts, runner.WithTimeout(e.execTimeout))
		}
		r, err := runner.NewExec(ropts...)
		if err != nil {
			return nil, err
		}
		e.run = r
	}

	f, err := ledger.Scan(path)
	if err != nil {
		return nil, err
	}
	e.ledger = f
	return e, nil
}

// Prepared is a looked-up query with its parameters injected, ready
// to execute.
type Prepared struct {
	Query       ledger.Query
	Requirement *template.Requirement
	Params      value.Value
	Raw         string
	Injected    string
}

// Invocation is one executed query. ID is empty unless the run was
// recorded in history.
type Invocation struct {
	Prepared
	Result runner.Result
	ID     string
}

// Prepare looks up the query, analyzes its placeholders, parses the
// raw parameter string and injects the values. It does not execute
// anything.
func (e *Engine) Prepare(name, params string) (*Prepared, error) {
	q, err := e.ledger.Lookup(name)
	if err != nil {
		return nil, err
	}
	req, err := template.Scan(q.Template)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", name, err)
	}
	val, err := literal.Parse(params)
	if err != nil {
		return nil, err
	}
	if req.Kind == template.KindNone && val.Kind() != value.KindNone {
		e.logger.Warn("query takes no parameters, ignoring the supplied ones",
			zap.String("query", name),
			zap.String("params", params))
	}
	injected, err := req.Inject(val)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", name, err)
	}
	return &Prepared{
		Query:       q,
		Requirement: req,
		Params:      val,
		Raw:         params,
		Injected:    injected,
	}, nil
}

// Run prepares and executes a query. When the query ran but exited
// nonzero, the invocation is returned together with the error so the
// caller still sees output and exit code.
func (e *Engine) Run(ctx context.Context, name, params string) (*Invocation, error) {
	prep, err := e.Prepare(name, params)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, prep, e.format.String())
}

// Replay re-executes a recorded invocation by ID, using the injected
// query and format stored at the time. The replay is recorded as a
// fresh entry.
func (e *Engine) Replay(ctx context.Context, id string) (*Invocation, error) {
	if e.store == nil {
		return nil, ErrHistoryDisabled
	}
	entry, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	format := entry.Format
	if format == "" {
		format = e.format.String()
	}
	prep := &Prepared{
		Query:    ledger.Query{Name: entry.Query},
		Raw:      entry.Params,
		Injected: entry.Injected,
	}
	return e.execute(ctx, prep, format)
}

func (e *Engine) execute(ctx context.Context, prep *Prepared, format string) (*Invocation, error) {
	res, err := e.run.Run(ctx, runner.Request{
		Ledger: e.ledger.Path(),
		Query:  prep.Injected,
		Format: format,
	})
	if err != nil && res.ExitCode <= 0 {
		// Never started, or was cut short. Nothing worth recording.
		return nil, err
	}

	inv := &Invocation{Prepared: *prep, Result: res}
	e.record(inv, format)
	if err != nil {
		return inv, err
	}
	return inv, nil
}

func (e *Engine) record(inv *Invocation, format string) {
	if e.store == nil {
		return
	}
	inv.ID = uuid.NewString()
	entry := history.Entry{
		ID:       inv.ID,
		Query:    inv.Query.Name,
		Params:   inv.Raw,
		Injected: inv.Injected,
		Format:   format,
		ExitCode: inv.Result.ExitCode,
		Duration: inv.Result.Duration,
		Ts:       time.Now().UTC(),
	}
	if err := e.store.Record(entry); err != nil {
		inv.ID = ""
		e.logger.Warn("failed to record invocation", zap.Error(err))
	}
}

// Check analyzes the placeholders of a single query.
func (e *Engine) Check(name string) (*template.Requirement, error) {
	q, err := e.ledger.Lookup(name)
	if err != nil {
		return nil, err
	}
	return template.Scan(q.Template)
}

// CheckResult is the analysis of one query definition.
type CheckResult struct {
	Query ledger.Query
	Req   *template.Requirement
	Err   error
}

// CheckAll analyzes every query concurrently, one result per name in
// definition order. Shadowed duplicates are skipped. Scan failures
// land in the result, not in an error.
func (e *Engine) CheckAll() []CheckResult {
	var picked []ledger.Query
	seen := make(map[string]bool)
	for _, q := range e.ledger.Queries() {
		if seen[q.Name] {
			continue
		}
		seen[q.Name] = true
		picked = append(picked, q)
	}

	results := make([]CheckResult, len(picked))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, q := range picked {
		g.Go(func() error {
			req, err := template.Scan(q.Template)
			results[i] = CheckResult{Query: q, Req: req, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// LintIssue flags one problem with a query directive.
type LintIssue struct {
	Query   ledger.Query
	Problem string
}

// Lint scans every query definition, duplicates included, and reports
// templates that cannot be satisfied.
func (e *Engine) Lint(ctx context.Context) ([]LintIssue, error) {
	queries := e.ledger.Queries()
	perQuery := make([]*LintIssue, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			req, err := template.Scan(q.Template)
			switch {
			case err != nil:
				perQuery[i] = &LintIssue{Query: q, Problem: err.Error()}
			case req.Kind == template.KindMixed:
				perQuery[i] = &LintIssue{Query: q, Problem: "mixes named and positional placeholders"}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	issues := []LintIssue{}
	firstSeen := make(map[string]ledger.Query)
	for i, q := range queries {
		if earlier, ok := firstSeen[q.Name]; ok {
			issues = append(issues, LintIssue{
				Query:   q,
				Problem: fmt.Sprintf("duplicate of %s:%d, the earlier definition wins", filepath.Base(earlier.File), earlier.Line),
			})
		} else {
			firstSeen[q.Name] = q
		}
		if perQuery[i] != nil {
			issues = append(issues, *perQuery[i])
		}
	}
	return issues, nil
}

// Recent returns up to limit recorded invocations, newest first.
func (e *Engine) Recent(limit int) ([]history.Entry, error) {
	if e.store == nil {
		return nil, ErrHistoryDisabled
	}
	return e.store.Recent(limit)
}

// Queries returns every query directive in scan order, duplicates
// included.
func (e *Engine) Queries() []ledger.Query {
	return e.ledger.Queries()
}

// LedgerPath returns the path the engine scanned.
func (e *Engine) LedgerPath() string {
	return e.ledger.Path()
}

// Reload rescans the ledger, picking up edits made since New.
func (e *Engine) Reload() error {
	f, err := ledger.Scan(e.ledger.Path())
	if err != nil {
		return err
	}
	e.ledger = f
	return nil
}

// Close releases resources.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

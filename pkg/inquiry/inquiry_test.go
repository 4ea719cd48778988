package inquiry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aleyoscar/beancount-inquiry/internal/history"
	"github.com/aleyoscar/beancount-inquiry/internal/ledger"
	"github.com/aleyoscar/beancount-inquiry/internal/runner"
	"github.com/aleyoscar/beancount-inquiry/internal/template"
	"github.com/aleyoscar/beancount-inquiry/pkg/inquiry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeLedger(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.beancount")
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func defaultLedger(t *testing.T) string {
	t.Helper()
	return writeLedger(t,
		`2014-01-01 open Assets:Cash`,
		``,
		`2014-07-09 query "cash" "SELECT account, sum(position) WHERE account ~ 'Cash'"`,
		`2015-01-01 query "by-account" "SELECT sum(position) WHERE account ~ '{}'"`,
		`2015-02-01 query "named-range" "SELECT * WHERE account ~ '{account}' AND date >= {date}"`,
	)
}

func TestEngineRun(t *testing.T) {
	mock := runner.NewMock(runner.Result{Stdout: "row\n"})
	path := defaultLedger(t)
	eng, err := inquiry.New(path,
		inquiry.WithRunner(mock),
		inquiry.WithMemoryHistory(),
		inquiry.WithFormat(inquiry.FormatCSV),
	)
	require.NoError(t, err)
	defer eng.Close()

	inv, err := eng.Run(context.Background(), "by-account", `"Expenses:Food"`)
	require.NoError(t, err)

	assert.Equal(t, `SELECT sum(position) WHERE account ~ 'Expenses:Food'`, inv.Injected)
	assert.Equal(t, "row\n", inv.Result.Stdout)
	_, err = uuid.Parse(inv.ID)
	assert.NoError(t, err, "invocation should carry a recorded UUID")

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, path, reqs[0].Ledger)
	assert.Equal(t, "csv", reqs[0].Format)
	assert.Equal(t, inv.Injected, reqs[0].Query)

	entries, err := eng.Recent(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "by-account", entries[0].Query)
	assert.Equal(t, `"Expenses:Food"`, entries[0].Params)
	assert.Equal(t, inv.Injected, entries[0].Injected)
}

func TestEngineRunNamed(t *testing.T) {
	mock := runner.NewMock(runner.Result{})
	eng, err := inquiry.New(defaultLedger(t), inquiry.WithRunner(mock))
	require.NoError(t, err)
	defer eng.Close()

	inv, err := eng.Run(context.Background(), "named-range", `{"account": "Gas", "date": "2024-01-01"}`)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * WHERE account ~ 'Gas' AND date >= 2024-01-01`, inv.Injected)
}

func TestEngineRunParameterMismatch(t *testing.T) {
	mock := runner.NewMock(runner.Result{})
	eng, err := inquiry.New(defaultLedger(t),
		inquiry.WithRunner(mock),
		inquiry.WithMemoryHistory(),
	)
	require.NoError(t, err)
	defer eng.Close()

	_, err = eng.Run(context.Background(), "named-range", `["Gas", "2024-01-01"]`)
	assert.ErrorIs(t, err, template.ErrParameterType)

	// A failed preparation reaches neither the runner nor history.
	assert.Empty(t, mock.Requests())
	entries, err := eng.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEngineRunUnknownQuery(t *testing.T) {
	eng, err := inquiry.New(defaultLedger(t), inquiry.WithRunner(runner.NewMock(runner.Result{})))
	require.NoError(t, err)
	defer eng.Close()

	_, err = eng.Run(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ledger.ErrQueryNotFound)
}

func TestEngineIgnoredParams(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	mock := runner.NewMock(runner.Result{})
	eng, err := inquiry.New(defaultLedger(t),
		inquiry.WithRunner(mock),
		inquiry.WithLogger(zap.New(core)),
	)
	require.NoError(t, err)
	defer eng.Close()

	inv, err := eng.Run(context.Background(), "cash", "42")
	require.NoError(t, err)

	assert.Equal(t, `SELECT account, sum(position) WHERE account ~ 'Cash'`, inv.Injected)
	assert.Equal(t, 1, logs.FilterMessage("query takes no parameters, ignoring the supplied ones").Len())
}

func TestEngineExitCodePassthrough(t *testing.T) {
	mock := runner.NewMock(runner.Result{ExitCode: 1, Stderr: "syntax error"})
	mock.Err = errors.New("bean-query exited with status 1")
	eng, err := inquiry.New(defaultLedger(t),
		inquiry.WithRunner(mock),
		inquiry.WithMemoryHistory(),
	)
	require.NoError(t, err)
	defer eng.Close()

	inv, err := eng.Run(context.Background(), "cash", "")
	require.Error(t, err)
	require.NotNil(t, inv, "a completed run is returned even on failure")
	assert.Equal(t, 1, inv.Result.ExitCode)
	assert.Equal(t, "syntax error", inv.Result.Stderr)

	// The failing run still lands in history.
	entries, err := eng.Recent(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].ExitCode)
}

func TestEngineRunnerFailure(t *testing.T) {
	mock := runner.NewMock(runner.Result{})
	mock.Err = errors.New("bean-query is not installed on the system")
	eng, err := inquiry.New(defaultLedger(t),
		inquiry.WithRunner(mock),
		inquiry.WithMemoryHistory(),
	)
	require.NoError(t, err)
	defer eng.Close()

	inv, err := eng.Run(context.Background(), "cash", "")
	require.Error(t, err)
	assert.Nil(t, inv)

	entries, err := eng.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, entries, "a run that never started is not recorded")
}

func TestEngineHistoryDisabled(t *testing.T) {
	eng, err := inquiry.New(defaultLedger(t), inquiry.WithRunner(runner.NewMock(runner.Result{})))
	require.NoError(t, err)
	defer eng.Close()

	inv, err := eng.Run(context.Background(), "cash", "")
	require.NoError(t, err)
	assert.Empty(t, inv.ID)

	_, err = eng.Recent(0)
	assert.ErrorIs(t, err, inquiry.ErrHistoryDisabled)
	_, err = eng.Replay(context.Background(), "whatever")
	assert.ErrorIs(t, err, inquiry.ErrHistoryDisabled)
}

func TestEngineReplay(t *testing.T) {
	mock := runner.NewMock(runner.Result{Stdout: "out\n"})
	eng, err := inquiry.New(defaultLedger(t),
		inquiry.WithRunner(mock),
		inquiry.WithMemoryHistory(),
	)
	require.NoError(t, err)
	defer eng.Close()

	first, err := eng.Run(context.Background(), "by-account", `"Gas"`)
	require.NoError(t, err)

	replayed, err := eng.Replay(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Injected, replayed.Injected)
	assert.NotEqual(t, first.ID, replayed.ID, "a replay is recorded as a fresh entry")

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, reqs[0].Query, reqs[1].Query)

	entries, err := eng.Recent(0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = eng.Replay(context.Background(), "f0f0f0f0-missing")
	assert.ErrorIs(t, err, inquiry.ErrEntryNotFound)
}

type failingStore struct{}

func (failingStore) Record(history.Entry) error          { return errors.New("disk full") }
func (failingStore) Recent(int) ([]history.Entry, error) { return nil, errors.New("disk full") }
func (failingStore) Get(string) (*history.Entry, error)  { return nil, errors.New("disk full") }
func (failingStore) Close() error                        { return nil }

func TestEngineStoreFailureDoesNotBreakRuns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	eng, err := inquiry.New(defaultLedger(t),
		inquiry.WithRunner(runner.NewMock(runner.Result{Stdout: "out\n"})),
		inquiry.WithStore(failingStore{}),
		inquiry.WithLogger(zap.New(core)),
	)
	require.NoError(t, err)
	defer eng.Close()

	inv, err := eng.Run(context.Background(), "cash", "")
	require.NoError(t, err)
	assert.Equal(t, "out\n", inv.Result.Stdout)
	assert.Empty(t, inv.ID)
	assert.Equal(t, 1, logs.FilterMessage("failed to record invocation").Len())
}

func TestEngineCheck(t *testing.T) {
	eng, err := inquiry.New(defaultLedger(t), inquiry.WithRunner(runner.NewMock(runner.Result{})))
	require.NoError(t, err)
	defer eng.Close()

	req, err := eng.Check("named-range")
	require.NoError(t, err)
	assert.Equal(t, template.KindNamed, req.Kind)
	assert.Equal(t, []string{"account", "date"}, req.Keys)

	_, err = eng.Check("nope")
	assert.ErrorIs(t, err, ledger.ErrQueryNotFound)
}

func TestEngineCheckAllSkipsShadowed(t *testing.T) {
	path := writeLedger(t,
		`2014-07-09 query "cash" "SELECT 1"`,
		`2015-01-01 query "cash" "SELECT 2"`,
		`2015-02-01 query "other" "SELECT {}"`,
	)
	eng, err := inquiry.New(path, inquiry.WithRunner(runner.NewMock(runner.Result{})))
	require.NoError(t, err)
	defer eng.Close()

	results := eng.CheckAll()
	require.Len(t, results, 2)
	assert.Equal(t, "cash", results[0].Query.Name)
	assert.Equal(t, "SELECT 1", results[0].Query.Template)
	assert.Equal(t, "other", results[1].Query.Name)
}

func TestEngineLint(t *testing.T) {
	path := writeLedger(t,
		`2014-07-09 query "ok" "SELECT {}"`,
		`2015-01-01 query "mixed" "SELECT {0} WHERE a ~ '{account}'"`,
		`2015-02-01 query "collide" "SELECT {} WHERE b = {1}"`,
		`2015-03-01 query "ok" "SELECT 2"`,
	)
	eng, err := inquiry.New(path, inquiry.WithRunner(runner.NewMock(runner.Result{})))
	require.NoError(t, err)
	defer eng.Close()

	issues, err := eng.Lint(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 3)

	problems := make(map[string]string)
	for _, issue := range issues {
		problems[issue.Query.Name+":"+issue.Problem] = issue.Problem
	}
	found := func(name, fragment string) bool {
		for key := range problems {
			if strings.HasPrefix(key, name+":") && strings.Contains(key, fragment) {
				return true
			}
		}
		return false
	}
	assert.True(t, found("mixed", "mixes named and positional"))
	assert.True(t, found("collide", "blank placeholders cannot be combined"))
	assert.True(t, found("ok", "earlier definition wins"))
}

func TestEngineReload(t *testing.T) {
	path := writeLedger(t, `2014-07-09 query "cash" "SELECT 1"`)
	eng, err := inquiry.New(path, inquiry.WithRunner(runner.NewMock(runner.Result{})))
	require.NoError(t, err)
	defer eng.Close()

	_, err = eng.Check("fresh")
	require.Error(t, err)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`2020-01-01 query "fresh" "SELECT 3"` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, eng.Reload())
	req, err := eng.Check("fresh")
	require.NoError(t, err)
	assert.Equal(t, template.KindNone, req.Kind)
}

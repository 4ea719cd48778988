package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
)

// DefaultCommand launches the stock beanquery CLI.
const DefaultCommand = "bean-query"

// ErrExecNotFound means the launch binary is not on PATH.
var ErrExecNotFound = errors.New("bean-query is not installed on the system")

// Exec runs queries by spawning the bean-query CLI.
type Exec struct {
	argv    []string
	timeout time.Duration
	logger  *zap.Logger
	err     error
}

// ExecOption configures an Exec runner.
type ExecOption func(*Exec)

// WithCommand overrides the launch command. The string is split with
// shell quoting rules, so flags can ride along: "bean-query -q".
func WithCommand(command string) ExecOption {
	return func(e *Exec) {
		argv, err := shellquote.Split(command)
		if err != nil {
			e.err = fmt.Errorf("parse runner command %q: %w", command, err)
			return
		}
		if len(argv) > 0 {
			e.argv = argv
		}
	}
}

// WithTimeout bounds each execution. Zero means no limit.
func WithTimeout(d time.Duration) ExecOption {
	return func(e *Exec) { e.timeout = d }
}

// WithLogger attaches a logger for command tracing.
func WithLogger(l *zap.Logger) ExecOption {
	return func(e *Exec) { e.logger = l }
}

// NewExec creates an Exec runner.
func NewExec(opts ...ExecOption) (*Exec, error) {
	e := &Exec{argv: []string{DefaultCommand}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if e.err != nil {
		return nil, e.err
	}
	return e, nil
}

// Run spawns the configured command with the query appended, capturing
// output. The subprocess exit code passes through in the Result even
// when Run returns an error.
func (e *Exec) Run(ctx context.Context, req Request) (Result, error) {
	bin, err := exec.LookPath(e.argv[0])
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExecNotFound, err)
	}

	args := append(append([]string{}, e.argv[1:]...), "-f", req.Format, req.Ledger, req.Query)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("running query", zap.String("bin", bin), zap.Strings("args", args))
	start := time.Now()
	err = cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() != nil {
			res.ExitCode = -1
			if e.timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return res, fmt.Errorf("query timed out after %s", e.timeout)
			}
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%s exited with status %d", e.argv[0], res.ExitCode)
		}
		return res, fmt.Errorf("run %s: %w", e.argv[0], err)
	}
	return res, nil
}

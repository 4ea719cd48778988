// Command bean-inquiry runs parameterized queries stored as query
// directives in a Beancount ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aleyoscar/beancount-inquiry/internal/config"
	"github.com/aleyoscar/beancount-inquiry/internal/ledger"
	"github.com/aleyoscar/beancount-inquiry/internal/render"
	"github.com/aleyoscar/beancount-inquiry/internal/runner"
	"github.com/aleyoscar/beancount-inquiry/pkg/inquiry"
)

const version = "0.3.0"

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "Error: %v\n", msg)
		}
		os.Exit(exitCode(err))
	}
}

// exitCodeError carries a specific process exit code, e.g. the one
// bean-query itself returned. An empty message prints nothing.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

// exitCode maps an error to the process exit code: 2 for lookup and
// execution environment failures, 1 for everything else.
func exitCode(err error) int {
	var coded *exitCodeError
	if errors.As(err, &coded) {
		return coded.code
	}
	switch {
	case errors.Is(err, ledger.ErrQueryNotFound),
		errors.Is(err, runner.ErrExecNotFound),
		errors.Is(err, inquiry.ErrEntryNotFound):
		return 2
	default:
		return 1
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "bean-inquiry",
		Usage:   "run parameterized queries stored in a Beancount ledger",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ledger", Aliases: []string{"l"}, Usage: "path to the Beancount ledger"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file (YAML)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format: text or csv"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
			&cli.StringFlag{Name: "history-path", Usage: "SQLite file for invocation history"},
			&cli.BoolFlag{Name: "history-disabled", Usage: "do not record invocations"},
			&cli.StringFlag{Name: "runner-command", Usage: "command used to launch bean-query"},
			&cli.DurationFlag{Name: "runner-timeout", Usage: "kill bean-query after this long"},
			&cli.StringFlag{Name: "log-level", Usage: "log level: debug, info, warn or error"},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "execute a query with parameters",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "params", Aliases: []string{"p"}, Usage: "parameter literal: scalar, list or dict"},
					&cli.BoolFlag{Name: "dry-run", Usage: "print the injected query instead of executing it"},
					&cli.BoolFlag{Name: "no-history", Usage: "do not record this invocation"},
				},
				Action: runAction,
			},
			{
				Name:   "list",
				Usage:  "list the queries defined in the ledger",
				Action: listAction,
			},
			{
				Name:      "check",
				Usage:     "show the parameters a query requires",
				ArgsUsage: "[name]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "check every query"},
				},
				Action: checkAction,
			},
			{
				Name:   "lint",
				Usage:  "report query templates that cannot be satisfied",
				Action: lintAction,
			},
			{
				Name:  "history",
				Usage: "show recorded invocations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "number of entries to show"},
				},
				Action: historyAction,
				Commands: []*cli.Command{
					{
						Name:      "replay",
						Usage:     "re-run a recorded invocation",
						ArgsUsage: "<id>",
						Action:    replayAction,
					},
				},
			},
			{
				Name:   "interactive",
				Usage:  "start an interactive query session",
				Action: interactiveAction,
			},
		},
	}
}

// appEnv is the per-invocation assembly of config, logger and output
// format.
type appEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	format render.Format
}

func setup(cmd *cli.Command) (*appEnv, func(), error) {
	opts := []config.Option{config.WithFlags(cmd)}
	if path := cmd.String("config"); path != "" {
		opts = append(opts, config.WithFile(path))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, nil, err
	}

	logger, err := newLogger(cfg.Log.Level, cmd.Bool("verbose"))
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}

	format, _ := render.ParseFormat(cfg.Format)
	env := &appEnv{cfg: cfg, logger: logger, format: format}
	return env, func() { _ = logger.Sync() }, nil
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func buildEngine(env *appEnv, recordHistory bool, extra ...inquiry.Option) (*inquiry.Engine, error) {
	if env.cfg.Ledger == "" {
		return nil, errors.New("no ledger file: pass --ledger, set BEAN_INQUIRY_LEDGER or set ledger in the config")
	}
	opts := []inquiry.Option{
		inquiry.WithLogger(env.logger),
		inquiry.WithFormat(env.format),
		inquiry.WithExec(env.cfg.Runner.Command, env.cfg.Runner.Timeout),
	}
	if recordHistory && !env.cfg.History.Disabled && env.cfg.History.Path != "" {
		opts = append(opts, inquiry.WithSQLiteHistory(env.cfg.History.Path))
	}
	opts = append(opts, extra...)
	return inquiry.New(env.cfg.Ledger, opts...)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New("usage: bean-inquiry run <name> [--params <literal>]")
	}

	env, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := buildEngine(env, !cmd.Bool("no-history"))
	if err != nil {
		return err
	}
	defer eng.Close()

	if cmd.Bool("dry-run") {
		prep, err := eng.Prepare(name, cmd.String("params"))
		if err != nil {
			return err
		}
		fmt.Println(prep.Injected)
		return nil
	}

	inv, err := eng.Run(ctx, name, cmd.String("params"))
	if inv != nil {
		fmt.Print(inv.Result.Stdout)
		fmt.Fprint(os.Stderr, inv.Result.Stderr)
	}
	if err != nil {
		if inv != nil && inv.Result.ExitCode > 0 {
			// bean-query already wrote its diagnostics to stderr.
			return &exitCodeError{code: inv.Result.ExitCode}
		}
		return err
	}
	return nil
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	env, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := buildEngine(env, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	return render.QueryList(os.Stdout, env.format, eng.Queries())
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" && !cmd.Bool("all") {
		return errors.New("usage: bean-inquiry check <name> (or --all)")
	}

	env, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := buildEngine(env, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	if cmd.Bool("all") {
		var (
			rows   []render.CheckRow
			broken bool
		)
		for _, res := range eng.CheckAll() {
			rows = append(rows, render.CheckRow{Name: res.Query.Name, Req: res.Req, Err: res.Err})
			broken = broken || res.Err != nil
		}
		if err := render.Check(os.Stdout, env.format, rows); err != nil {
			return err
		}
		if broken {
			return &exitCodeError{code: 1}
		}
		return nil
	}

	req, err := eng.Check(name)
	if err != nil && errors.Is(err, ledger.ErrQueryNotFound) {
		return err
	}
	if rerr := render.Check(os.Stdout, env.format, []render.CheckRow{{Name: name, Req: req, Err: err}}); rerr != nil {
		return rerr
	}
	if err != nil {
		return &exitCodeError{code: 1}
	}
	return nil
}

func lintAction(ctx context.Context, cmd *cli.Command) error {
	env, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := buildEngine(env, false)
	if err != nil {
		return err
	}
	defer eng.Close()

	issues, err := eng.Lint(ctx)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		fmt.Printf("%s:%d: query %q %s\n", issue.Query.File, issue.Query.Line, issue.Query.Name, issue.Problem)
	}
	if len(issues) > 0 {
		return &exitCodeError{code: 1}
	}
	return nil
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	env, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := buildEngine(env, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	entries, err := eng.Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}
	return render.History(os.Stdout, env.format, entries, time.Now())
}

func replayAction(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return errors.New("usage: bean-inquiry history replay <id>")
	}

	env, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := buildEngine(env, true)
	if err != nil {
		return err
	}
	defer eng.Close()

	inv, err := eng.Replay(ctx, id)
	if inv != nil {
		fmt.Print(inv.Result.Stdout)
		fmt.Fprint(os.Stderr, inv.Result.Stderr)
	}
	if err != nil {
		if inv != nil && inv.Result.ExitCode > 0 {
			return &exitCodeError{code: inv.Result.ExitCode}
		}
		return err
	}
	return nil
}

func interactiveAction(ctx context.Context, cmd *cli.Command) error {
	env, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// Without a database the session still gets history and replay,
	// scoped to the process.
	var extra []inquiry.Option
	if !env.cfg.History.Disabled && env.cfg.History.Path == "" {
		extra = append(extra, inquiry.WithMemoryHistory())
	}
	eng, err := buildEngine(env, true, extra...)
	if err != nil {
		return err
	}
	defer eng.Close()

	return runInteractive(ctx, eng, env.format)
}

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aleyoscar/beancount-inquiry/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

// noConfig keeps Load away from any real config file or environment.
func noConfig(t *testing.T) []config.Option {
	t.Helper()
	return []config.Option{
		config.WithSearchPaths(filepath.Join(t.TempDir(), "absent.yaml")),
		config.WithEnvPrefix(""),
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(noConfig(t)...)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Ledger)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "bean-query", cfg.Runner.Command)
	assert.Equal(t, time.Duration(0), cfg.Runner.Timeout)
	assert.False(t, cfg.History.Disabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
ledger: books/main.beancount
format: csv
history:
  disabled: true
runner:
  command: poetry run bean-query
  timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(config.WithFile(path), config.WithEnvPrefix(""))
	require.NoError(t, err)

	assert.Equal(t, "books/main.beancount", cfg.Ledger)
	assert.Equal(t, "csv", cfg.Format)
	assert.True(t, cfg.History.Disabled)
	assert.Equal(t, "poetry run bean-query", cfg.Runner.Command)
	assert.Equal(t, 30*time.Second, cfg.Runner.Timeout)
	// Keys the file does not mention keep their defaults.
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.Load(config.WithFile(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.ErrorContains(t, err, "read config")
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger: [unclosed"), 0o644))

	_, err := config.Load(config.WithFile(path))
	assert.ErrorContains(t, err, "parse config")
}

func TestLoadSearchStopsAtFirstHit(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yaml")
	second := filepath.Join(dir, "second.yaml")
	require.NoError(t, os.WriteFile(first, []byte("ledger: first.beancount"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("ledger: second.beancount"), 0o644))

	cfg, err := config.Load(
		config.WithSearchPaths(filepath.Join(dir, "absent.yaml"), first, second),
		config.WithEnvPrefix(""),
	)
	require.NoError(t, err)
	assert.Equal(t, "first.beancount", cfg.Ledger)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger: file.beancount"), 0o644))

	t.Setenv("BI_TEST_LEDGER", "env.beancount")
	t.Setenv("BI_TEST_HISTORY_PATH", "/tmp/history.db")
	t.Setenv("BI_TEST_RUNNER_TIMEOUT", "45s")

	cfg, err := config.Load(config.WithFile(path), config.WithEnvPrefix("BI_TEST_"))
	require.NoError(t, err)

	assert.Equal(t, "env.beancount", cfg.Ledger)
	assert.Equal(t, "/tmp/history.db", cfg.History.Path)
	assert.Equal(t, 45*time.Second, cfg.Runner.Timeout)
}

func TestLoadEnvBool(t *testing.T) {
	t.Setenv("BI_TEST_HISTORY_DISABLED", "true")

	cfg, err := config.Load(
		config.WithSearchPaths(filepath.Join(t.TempDir(), "absent.yaml")),
		config.WithEnvPrefix("BI_TEST_"),
	)
	require.NoError(t, err)
	assert.True(t, cfg.History.Disabled)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("BI_TEST_LEDGER", "env.beancount")

	var cfg *config.Config
	cmd := &cli.Command{
		Name: "bean-inquiry",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ledger"},
			&cli.StringFlag{Name: "format"},
			&cli.DurationFlag{Name: "runner-timeout"},
			&cli.BoolFlag{Name: "history-disabled"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var err error
			cfg, err = config.Load(
				config.WithSearchPaths(filepath.Join(t.TempDir(), "absent.yaml")),
				config.WithEnvPrefix("BI_TEST_"),
				config.WithFlags(cmd),
			)
			return err
		},
	}
	err := cmd.Run(context.Background(), []string{
		"bean-inquiry", "--ledger", "flag.beancount", "--runner-timeout", "90s", "--history-disabled",
	})
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "flag.beancount", cfg.Ledger)
	assert.Equal(t, 90*time.Second, cfg.Runner.Timeout)
	assert.True(t, cfg.History.Disabled)
	// Flags the user never set leave the lower layers alone.
	assert.Equal(t, "text", cfg.Format)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: json"), 0o644))

	_, err := config.Load(config.WithFile(path), config.WithEnvPrefix(""))
	assert.ErrorContains(t, err, "unknown format")
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud"), 0o644))

	_, err := config.Load(config.WithFile(path), config.WithEnvPrefix(""))
	assert.ErrorContains(t, err, "unknown log level")
}

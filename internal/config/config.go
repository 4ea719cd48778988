// Package config resolves bean-inquiry settings from defaults, an
// optional YAML file, BEAN_INQUIRY_* environment variables and CLI
// flags, later sources overriding earlier ones.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
)

// EnvPrefix is prepended to the uppercased config keys when reading
// environment overrides, e.g. BEAN_INQUIRY_HISTORY_PATH.
const EnvPrefix = "BEAN_INQUIRY_"

// Config holds every tunable of the tool. YAML keys, environment
// variables and flag names all derive from the json tags.
type Config struct {
	Ledger  string  `json:"ledger"`
	Format  string  `json:"format"`
	History History `json:"history"`
	Runner  Runner  `json:"runner"`
	Log     Log     `json:"log"`
}

// History configures invocation recording.
type History struct {
	Path     string `json:"path"`
	Disabled bool   `json:"disabled"`
}

// Runner configures how bean-query is executed. Command may carry
// extra words, e.g. "poetry run bean-query". A zero Timeout means no
// limit.
type Runner struct {
	Command string        `json:"command"`
	Timeout time.Duration `json:"timeout"`
}

// Log configures logging.
type Log struct {
	Level string `json:"level"`
}

// Default returns the built-in configuration: text output, bean-query
// on PATH, no execution timeout, history under the home directory.
func Default() Config {
	cfg := Config{
		Format: "text",
		Runner: Runner{Command: "bean-query"},
		Log:    Log{Level: "info"},
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.History.Path = filepath.Join(home, ".bean-inquiry", "history.db")
	}
	return cfg
}

// DefaultPaths returns the config file search order. The first file
// that exists wins.
func DefaultPaths() []string {
	paths := []string{".bean-inquiry.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".bean-inquiry.yaml"))
	}
	return append(paths, "/etc/bean-inquiry/config.yaml")
}

type loader struct {
	file      string
	paths     []string
	envPrefix string
	cmd       *cli.Command
}

// Option adjusts how Load resolves the configuration.
type Option func(*loader)

// WithFile reads exactly this config file instead of searching the
// default paths. Load fails when the file cannot be read.
func WithFile(path string) Option {
	return func(l *loader) { l.file = path }
}

// WithSearchPaths overrides the default search paths.
func WithSearchPaths(paths ...string) Option {
	return func(l *loader) { l.paths = paths }
}

// WithEnvPrefix overrides EnvPrefix. The empty string disables
// environment overrides entirely.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) { l.envPrefix = prefix }
}

// WithFlags applies CLI flags the user set explicitly as the highest
// priority source. Flag names are the config keys with dots replaced
// by dashes, e.g. --history-path for history.path.
func WithFlags(cmd *cli.Command) Option {
	return func(l *loader) { l.cmd = cmd }
}

// Load resolves the configuration. Priority, lowest to highest:
// defaults, the first config file found, environment variables, CLI
// flags.
func Load(opts ...Option) (*Config, error) {
	ld := loader{envPrefix: EnvPrefix}
	for _, opt := range opts {
		opt(&ld)
	}

	m := structToMap(Default())
	if err := ld.mergeFile(m); err != nil {
		return nil, err
	}
	if ld.envPrefix != "" {
		applyEnv(m, ld.envPrefix)
	}
	if ld.cmd != nil {
		applyFlags(ld.cmd, m)
	}

	var cfg Config
	if err := decodeMap(m, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *loader) mergeFile(m map[string]any) error {
	if l.file != "" {
		content, err := os.ReadFile(l.file)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		fileMap, err := parseYAML(content)
		if err != nil {
			return fmt.Errorf("parse config %s: %w", l.file, err)
		}
		mergeMaps(m, fileMap)
		return nil
	}

	paths := l.paths
	if len(paths) == 0 {
		paths = DefaultPaths()
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fileMap, err := parseYAML(content)
		if err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeMaps(m, fileMap)
		break
	}
	return nil
}

// applyEnv overwrites every key whose environment variable is set.
// The variable name is the prefixed key, uppercased, dots replaced by
// underscores.
func applyEnv(m map[string]any, prefix string) {
	for _, key := range flattenKeys(m) {
		envKey := prefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val := os.Getenv(envKey); val != "" {
			setByPath(m, key, val)
		}
	}
}

// applyFlags overwrites every key whose flag the user set explicitly.
func applyFlags(cmd *cli.Command, m map[string]any) {
	for _, key := range flattenKeys(m) {
		flag := strings.ReplaceAll(key, ".", "-")
		if !cmd.IsSet(flag) {
			continue
		}
		switch key {
		case "history.disabled":
			setByPath(m, key, cmd.Bool(flag))
		case "runner.timeout":
			setByPath(m, key, cmd.Duration(flag))
		default:
			setByPath(m, key, cmd.String(flag))
		}
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Format) {
	case "", "text", "csv":
	default:
		return fmt.Errorf("config: unknown format %q, want text or csv", c.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	if c.Runner.Timeout < 0 {
		return fmt.Errorf("config: negative runner timeout %s", c.Runner.Timeout)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

const (
	// EnvTest is the local development server.
	EnvTest = "test"
	// EnvLive is the deployed server.
	EnvLive = "live"
)

// EnvironmentConfig describes one target deployment of the content API.
type EnvironmentConfig struct {
	BaseURL string `toml:"base_url"`
}

// PathsConfig holds path configuration.
type PathsConfig struct {
	StateFile string `toml:"state_file"`
	TraceFile string `toml:"trace_file"` // empty disables run tracing
}

// ClientConfig holds HTTP client settings.
type ClientConfig struct {
	Timeout    time.Duration `toml:"timeout"`
	UserHeader string        `toml:"user_header"`
	RateLimit  float64       `toml:"rate_limit"` // Requests per second, 0 disables
	RateBurst  int           `toml:"rate_burst"`
}

// WorkflowConfig holds page sizes used by the resumable workflow.
type WorkflowConfig struct {
	RefreshLimit int `toml:"refresh_limit"` // Placement refresh listing
	RiverLimit   int `toml:"river_limit"`   // User river reads
	ListLimit    int `toml:"list_limit"`    // test_get_drops listing
}

// SeedConfig holds settings for the one-shot seeding workflow.
//
// The frontend data set is served from its own live host, so BaseURLs maps an
// environment name to the server seeding should target instead of the
// environment's base_url.
type SeedConfig struct {
	CreatorID string            `toml:"creator_id"`
	UserID    string            `toml:"user_id"`
	Fixture   string            `toml:"fixture"` // Optional YAML file replacing the built-in data
	BaseURLs  map[string]string `toml:"base_urls"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// Config is the main configuration struct for poolcheck.
type Config struct {
	Version      string                       `toml:"version"`
	DefaultEnv   string                       `toml:"default_env"`
	Environments map[string]EnvironmentConfig `toml:"environments"`
	Paths        PathsConfig                  `toml:"paths"`
	Client       ClientConfig                 `toml:"client"`
	Workflow     WorkflowConfig               `toml:"workflow"`
	Seed         SeedConfig                   `toml:"seed"`
	Logging      LoggingConfig                `toml:"logging"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version:    "1",
		DefaultEnv: EnvTest,
		Environments: map[string]EnvironmentConfig{
			EnvTest: {BaseURL: "http://localhost:8000"},
			EnvLive: {BaseURL: "https://wisdom-pool-server-3473lz5ika-nw.a.run.app"},
		},
		Paths: PathsConfig{
			StateFile: "test_state.json",
		},
		Client: ClientConfig{
			Timeout:    30 * time.Second,
			UserHeader: "X-User-Id",
			RateLimit:  0,
			RateBurst:  1,
		},
		Workflow: WorkflowConfig{
			RefreshLimit: 50,
			RiverLimit:   30,
			ListLimit:    10,
		},
		Seed: SeedConfig{
			CreatorID: "fe_test_creator_001",
			UserID:    "fe_test_user_001",
			BaseURLs: map[string]string{
				EnvLive: "https://wisdom-pool-serve-02.firebaseapp.com",
			},
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
			File:   "",
		},
	}
}

// decodeFile merges the TOML file at path over cfg. A missing file leaves cfg
// unchanged.
func decodeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// LoadFromDir loads configuration from the standard locations in a directory.
// Applies in order: defaults -> ~/.poolcheck/config.toml -> .poolcheck/config.toml
// Later configs override earlier ones (project-level takes precedence).
func LoadFromDir(dir string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		if err := decodeFile(cfg, filepath.Join(home, ".poolcheck", "config.toml")); err != nil {
			return nil, err
		}
	}
	if err := decodeFile(cfg, filepath.Join(dir, ".poolcheck", "config.toml")); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Version == "" {
		return herrors.ConfigMissingField("version")
	}
	if c.DefaultEnv == "" {
		return herrors.ConfigMissingField("default_env")
	}
	if _, err := c.Environment(c.DefaultEnv); err != nil {
		return err
	}
	for name, env := range c.Environments {
		if env.BaseURL == "" {
			return herrors.ConfigMissingField("environments." + name + ".base_url")
		}
	}
	for name, url := range c.Seed.BaseURLs {
		if _, ok := c.Environments[name]; !ok {
			return herrors.ConfigUnknownEnvironment(name, c.EnvironmentNames())
		}
		if url == "" {
			return herrors.ConfigMissingField("seed.base_urls." + name)
		}
	}
	if c.Paths.StateFile == "" {
		return herrors.ConfigMissingField("paths.state_file")
	}
	if c.Client.UserHeader == "" {
		return herrors.ConfigMissingField("client.user_header")
	}
	if c.Client.RateLimit < 0 {
		return herrors.ConfigInvalidValue("client.rate_limit", c.Client.RateLimit, "must not be negative")
	}
	limits := []struct {
		field string
		value int
	}{
		{"workflow.refresh_limit", c.Workflow.RefreshLimit},
		{"workflow.river_limit", c.Workflow.RiverLimit},
		{"workflow.list_limit", c.Workflow.ListLimit},
	}
	for _, l := range limits {
		if l.value <= 0 {
			return herrors.ConfigInvalidValue(l.field, l.value, "must be positive")
		}
	}
	return nil
}

// Environment returns the named environment.
func (c *Config) Environment(name string) (EnvironmentConfig, error) {
	env, ok := c.Environments[name]
	if !ok {
		return EnvironmentConfig{}, herrors.ConfigUnknownEnvironment(name, c.EnvironmentNames())
	}
	return env, nil
}

// SeedEnvironment returns the named environment as the seeding workflow sees
// it: seed.base_urls, when it has an entry for name, replaces the base URL.
func (c *Config) SeedEnvironment(name string) (EnvironmentConfig, error) {
	env, err := c.Environment(name)
	if err != nil {
		return EnvironmentConfig{}, err
	}
	if url, ok := c.Seed.BaseURLs[name]; ok {
		env.BaseURL = url
	}
	return env, nil
}

// EnvironmentNames returns the configured environment names in sorted order.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StateFile returns the absolute checkpoint file path.
func (c *Config) StateFile(baseDir string) string {
	if filepath.IsAbs(c.Paths.StateFile) {
		return c.Paths.StateFile
	}
	return filepath.Join(baseDir, c.Paths.StateFile)
}

// LogFile returns the absolute log file path, or empty when file logging is off.
func (c *Config) LogFile(baseDir string) string {
	if c.Logging.File == "" || filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(baseDir, c.Logging.File)
}

// TraceFile returns the absolute run trace path, or empty when tracing is off.
func (c *Config) TraceFile(baseDir string) string {
	if c.Paths.TraceFile == "" || filepath.IsAbs(c.Paths.TraceFile) {
		return c.Paths.TraceFile
	}
	return filepath.Join(baseDir, c.Paths.TraceFile)
}

// SeedFixture returns the absolute fixture path, or empty for the built-in data.
func (c *Config) SeedFixture(baseDir string) string {
	if c.Seed.Fixture == "" || filepath.IsAbs(c.Seed.Fixture) {
		return c.Seed.Fixture
	}
	return filepath.Join(baseDir, c.Seed.Fixture)
}

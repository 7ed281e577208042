package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Version != "1" {
		t.Errorf("Version = %s, want 1", cfg.Version)
	}
	if cfg.DefaultEnv != EnvTest {
		t.Errorf("DefaultEnv = %s, want test", cfg.DefaultEnv)
	}
	if cfg.Environments[EnvTest].BaseURL != "http://localhost:8000" {
		t.Errorf("test base_url = %s, want http://localhost:8000", cfg.Environments[EnvTest].BaseURL)
	}
	if cfg.Paths.StateFile != "test_state.json" {
		t.Errorf("StateFile = %s, want test_state.json", cfg.Paths.StateFile)
	}
	if cfg.Client.UserHeader != "X-User-Id" {
		t.Errorf("UserHeader = %s, want X-User-Id", cfg.Client.UserHeader)
	}
	if cfg.Workflow.RefreshLimit != 50 || cfg.Workflow.RiverLimit != 30 || cfg.Workflow.ListLimit != 10 {
		t.Errorf("Workflow limits = %+v, want 50/30/10", cfg.Workflow)
	}
	if cfg.Logging.Level != LogLevelInfo {
		t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
	}
}

func TestDecodeFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
version = "2"
default_env = "staging"

[environments.staging]
base_url = "https://staging.example.com"

[paths]
state_file = "custom/state.json"

[client]
timeout = "5s"
rate_limit = 2.5
rate_burst = 3

[workflow]
refresh_limit = 20

[logging]
level = "debug"
format = "json"
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg := Default()
	if err := decodeFile(cfg, configPath); err != nil {
		t.Fatalf("decodeFile failed: %v", err)
	}

	if cfg.Version != "2" {
		t.Errorf("Version = %s, want 2", cfg.Version)
	}
	if cfg.DefaultEnv != "staging" {
		t.Errorf("DefaultEnv = %s, want staging", cfg.DefaultEnv)
	}
	if cfg.Environments["staging"].BaseURL != "https://staging.example.com" {
		t.Errorf("staging base_url = %s", cfg.Environments["staging"].BaseURL)
	}
	if _, ok := cfg.Environments[EnvTest]; !ok {
		t.Error("default test environment should survive a partial override")
	}
	if cfg.Paths.StateFile != "custom/state.json" {
		t.Errorf("StateFile = %s, want custom/state.json", cfg.Paths.StateFile)
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Client.Timeout)
	}
	if cfg.Client.RateLimit != 2.5 || cfg.Client.RateBurst != 3 {
		t.Errorf("rate = %v/%d, want 2.5/3", cfg.Client.RateLimit, cfg.Client.RateBurst)
	}
	if cfg.Workflow.RefreshLimit != 20 {
		t.Errorf("RefreshLimit = %d, want 20", cfg.Workflow.RefreshLimit)
	}
	if cfg.Workflow.RiverLimit != 30 {
		t.Errorf("RiverLimit = %d, want default 30", cfg.Workflow.RiverLimit)
	}
	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestDecodeFile_NonExistent(t *testing.T) {
	cfg := Default()
	if err := decodeFile(cfg, "/nonexistent/config.toml"); err != nil {
		t.Fatalf("decodeFile should not fail for non-existent file: %v", err)
	}

	if cfg.Version != "1" {
		t.Errorf("Should return defaults, got version = %s", cfg.Version)
	}
}

func TestDecodeFile_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `invalid = [toml content`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if err := decodeFile(Default(), configPath); err == nil {
		t.Error("decodeFile should fail for invalid TOML")
	}
}

func TestDecodeFile_ReadError(t *testing.T) {
	// Reading a directory fails with a read error, not "not found"
	dir := t.TempDir()
	if err := decodeFile(Default(), dir); err == nil {
		t.Error("decodeFile should fail when trying to read a directory")
	}
}

func TestLoadFromDir(t *testing.T) {
	t.Run("project-local config", func(t *testing.T) {
		dir := t.TempDir()
		projectDir := filepath.Join(dir, ".poolcheck")
		if err := os.MkdirAll(projectDir, 0755); err != nil {
			t.Fatalf("Failed to create .poolcheck dir: %v", err)
		}

		content := `
version = "project-local"

[environments.live]
base_url = "https://live.example.com"

[seed.base_urls]
test = "http://localhost:9000"
`
		if err := os.WriteFile(filepath.Join(projectDir, "config.toml"), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := LoadFromDir(dir)
		if err != nil {
			t.Fatalf("LoadFromDir failed: %v", err)
		}

		if cfg.Version != "project-local" {
			t.Errorf("Version = %s, want project-local", cfg.Version)
		}
		if got := cfg.Environments[EnvLive].BaseURL; got != "https://live.example.com" {
			t.Errorf("live base_url = %s", got)
		}
		if len(cfg.Seed.BaseURLs) != 2 {
			t.Errorf("seed.base_urls = %v, want the default live entry plus test", cfg.Seed.BaseURLs)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("no config file - uses defaults", func(t *testing.T) {
		dir := t.TempDir()

		cfg, err := LoadFromDir(dir)
		if err != nil {
			t.Fatalf("LoadFromDir failed: %v", err)
		}

		if cfg.Version != "1" {
			t.Errorf("Version = %s, want 1 (default)", cfg.Version)
		}
	})

	t.Run("invalid project config", func(t *testing.T) {
		dir := t.TempDir()
		projectDir := filepath.Join(dir, ".poolcheck")
		if err := os.MkdirAll(projectDir, 0755); err != nil {
			t.Fatalf("Failed to create .poolcheck dir: %v", err)
		}

		if err := os.WriteFile(filepath.Join(projectDir, "config.toml"), []byte(`invalid = [toml`), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		_, err := LoadFromDir(dir)
		if err == nil {
			t.Error("LoadFromDir should fail with invalid TOML")
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{
			name:   "valid default config",
			mutate: func(*Config) {},
		},
		{
			name:     "missing version",
			mutate:   func(c *Config) { c.Version = "" },
			wantCode: herrors.CodeConfigMissingField,
		},
		{
			name:     "unknown default env",
			mutate:   func(c *Config) { c.DefaultEnv = "staging" },
			wantCode: herrors.CodeConfigUnknownEnv,
		},
		{
			name:     "environment without base_url",
			mutate:   func(c *Config) { c.Environments["empty"] = EnvironmentConfig{} },
			wantCode: herrors.CodeConfigMissingField,
		},
		{
			name:     "seed url for unknown env",
			mutate:   func(c *Config) { c.Seed.BaseURLs["staging"] = "https://staging.example.com" },
			wantCode: herrors.CodeConfigUnknownEnv,
		},
		{
			name:     "empty seed url",
			mutate:   func(c *Config) { c.Seed.BaseURLs[EnvLive] = "" },
			wantCode: herrors.CodeConfigMissingField,
		},
		{
			name:     "negative rate limit",
			mutate:   func(c *Config) { c.Client.RateLimit = -1 },
			wantCode: herrors.CodeConfigInvalidValue,
		},
		{
			name:     "zero refresh limit",
			mutate:   func(c *Config) { c.Workflow.RefreshLimit = 0 },
			wantCode: herrors.CodeConfigInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if herrors.Code(err) != tt.wantCode {
				t.Errorf("Validate() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestConfig_Environment(t *testing.T) {
	cfg := Default()

	env, err := cfg.Environment(EnvLive)
	if err != nil {
		t.Fatalf("Environment(live) failed: %v", err)
	}
	if env.BaseURL != "https://wisdom-pool-server-3473lz5ika-nw.a.run.app" {
		t.Errorf("live base_url = %s", env.BaseURL)
	}

	_, err = cfg.Environment("nowhere")
	if herrors.Code(err) != herrors.CodeConfigUnknownEnv {
		t.Errorf("Environment(nowhere) error = %v, want CONFIG_003", err)
	}

	if got := cfg.EnvironmentNames(); len(got) != 2 || got[0] != EnvLive || got[1] != EnvTest {
		t.Errorf("EnvironmentNames = %v, want [live test]", got)
	}
}

func TestConfig_SeedEnvironment(t *testing.T) {
	cfg := Default()

	live, err := cfg.SeedEnvironment(EnvLive)
	if err != nil {
		t.Fatalf("SeedEnvironment(live) failed: %v", err)
	}
	if live.BaseURL != "https://wisdom-pool-serve-02.firebaseapp.com" {
		t.Errorf("seed live base_url = %s, want the frontend host", live.BaseURL)
	}
	if cfg.Environments[EnvLive].BaseURL == live.BaseURL {
		t.Error("workflow live base_url must not change")
	}

	test, err := cfg.SeedEnvironment(EnvTest)
	if err != nil {
		t.Fatalf("SeedEnvironment(test) failed: %v", err)
	}
	if test.BaseURL != "http://localhost:8000" {
		t.Errorf("seed test base_url = %s, want the environment's own", test.BaseURL)
	}

	_, err = cfg.SeedEnvironment("nowhere")
	if herrors.Code(err) != herrors.CodeConfigUnknownEnv {
		t.Errorf("SeedEnvironment(nowhere) error = %v, want CONFIG_003", err)
	}
}

func TestConfig_PathHelpers(t *testing.T) {
	cfg := Default()
	baseDir := "/project"

	if got := cfg.StateFile(baseDir); got != "/project/test_state.json" {
		t.Errorf("StateFile = %s, want /project/test_state.json", got)
	}
	if got := cfg.LogFile(baseDir); got != "" {
		t.Errorf("LogFile = %q, want empty", got)
	}
	if got := cfg.SeedFixture(baseDir); got != "" {
		t.Errorf("SeedFixture = %q, want empty", got)
	}

	cfg.Paths.StateFile = "/absolute/state.json"
	if got := cfg.StateFile(baseDir); got != "/absolute/state.json" {
		t.Errorf("StateFile (abs) = %s, want /absolute/state.json", got)
	}

	cfg.Logging.File = "logs/poolcheck.log"
	if got := cfg.LogFile(baseDir); got != "/project/logs/poolcheck.log" {
		t.Errorf("LogFile = %s, want /project/logs/poolcheck.log", got)
	}

	cfg.Seed.Fixture = "fixtures/seed.yaml"
	if got := cfg.SeedFixture(baseDir); got != "/project/fixtures/seed.yaml" {
		t.Errorf("SeedFixture = %s, want /project/fixtures/seed.yaml", got)
	}

	if got := cfg.TraceFile(baseDir); got != "" {
		t.Errorf("TraceFile = %q, want empty", got)
	}
	cfg.Paths.TraceFile = ".poolcheck/trace.jsonl"
	if got := cfg.TraceFile(baseDir); got != "/project/.poolcheck/trace.jsonl" {
		t.Errorf("TraceFile = %s, want /project/.poolcheck/trace.jsonl", got)
	}
}

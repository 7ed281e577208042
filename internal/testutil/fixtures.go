// Package testutil provides test infrastructure, fixtures, and helpers for poolcheck.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/wisdom-pool/poolcheck/internal/config"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// NewTestConfig creates a test configuration whose test environment points at
// baseURL. The checkpoint file lives in a temporary directory.
func NewTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.Environments[config.EnvTest] = config.EnvironmentConfig{BaseURL: baseURL}
	cfg.Paths.StateFile = filepath.Join(tmpDir, "test_state.json")
	cfg.Logging.Level = config.LogLevelDebug
	return cfg
}

// NewTestWorkspace creates a temporary working directory with a project
// config that targets baseURL as the test environment.
func NewTestWorkspace(t *testing.T, baseURL string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, ".poolcheck")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", configDir, err)
	}

	configContent := fmt.Sprintf(`version = "1"
default_env = "test"

[environments.test]
base_url = %q

[logging]
level = "debug"
format = "json"
`, baseURL)
	configPath := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	return tmpDir
}

// NewTestState returns a state with fixed participant ids.
func NewTestState() *types.WorkflowState {
	return types.NewWorkflowState("user_creator", "user_reader")
}

// NewStateWithDrops returns a state that has completed add_drops against the
// given pool and stream. Drops are recorded without placements.
func NewStateWithDrops(pool types.PoolID, stream types.StreamID, drops ...types.DropID) *types.WorkflowState {
	s := NewTestState()
	s.PoolID = types.Some(pool)
	s.StreamID = types.Some(stream)
	records := make([]types.DropRecord, len(drops))
	for i, d := range drops {
		records[i] = types.DropRecord{DropID: d}
	}
	s.SetDropRecords(records)
	s.Complete(types.StepAddDrops)
	return s
}

// LegacyStateJSON renders a checkpoint in the older layout that only carried
// bare drop ids.
func LegacyStateJSON(pool types.PoolID, stream types.StreamID, last types.StepTag, drops ...types.DropID) string {
	ids := ""
	for i, d := range drops {
		if i > 0 {
			ids += ", "
		}
		ids += fmt.Sprintf("%q", d)
	}
	return fmt.Sprintf(`{
  "creator_id": "user_creator",
  "user_id": "user_reader",
  "pool_id": %q,
  "stream_id": %q,
  "drop_ids": [%s],
  "last_step": %q
}
`, pool, stream, ids, last)
}

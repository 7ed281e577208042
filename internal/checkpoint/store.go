// Package checkpoint persists the workflow state between invocations.
//
// The record is a single JSON file written atomically (write-then-rename).
// Loading never fails: a missing or unreadable record is treated as a fresh
// start, so an operator can always recover by re-running.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// Store loads and saves the workflow state.
type Store interface {
	// Load returns the persisted state, or an empty state when there is
	// none or it cannot be decoded.
	Load(ctx context.Context) *types.WorkflowState
	// Save persists a snapshot of state.
	Save(ctx context.Context, state *types.WorkflowState) error
}

// FileStore persists the state as an indented JSON document.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store backed by path. Leftovers of an interrupted
// save are recovered before the store is returned.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileStore{path: path, logger: logger}
	s.recoverInterruptedWrite()
	return s
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) tmpPath() string { return s.path + ".tmp" }

// recoverInterruptedWrite handles a .tmp file left by a crashed save. If the
// main file survived the temp file is an orphan; otherwise it holds the only
// copy and is promoted.
func (s *FileStore) recoverInterruptedWrite() {
	tmp := s.tmpPath()
	if _, err := os.Stat(tmp); err != nil {
		return
	}
	if _, err := os.Stat(s.path); err == nil {
		os.Remove(tmp)
		s.logger.Debug("removed orphan checkpoint temp file", "path", tmp)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Warn("could not promote checkpoint temp file", "path", tmp, "error", err)
		return
	}
	s.logger.Info("recovered checkpoint from interrupted save", "path", s.path)
}

// Exists reports whether a checkpoint file is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) *types.WorkflowState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("checkpoint unreadable, starting fresh", "path", s.path, "error", err)
		}
		return &types.WorkflowState{}
	}

	var state types.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Debug("checkpoint malformed, starting fresh", "path", s.path, "error", err)
		return &types.WorkflowState{}
	}
	if state.Normalize() {
		s.logger.Debug("checkpoint normalized on load", "path", s.path)
	}
	return &state
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, state *types.WorkflowState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return herrors.StateWriteError(s.path, err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return herrors.StateWriteError(s.path, err)
		}
	}

	tmp := s.tmpPath()
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return herrors.StateWriteError(s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return herrors.StateWriteError(s.path, err)
	}
	return nil
}

// Delete removes the checkpoint. A missing file is not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return herrors.StateDeleteError(s.path, err)
	}
	os.Remove(s.tmpPath())
	return nil
}

// MemoryStore keeps the state in memory only. The seeding workflow uses it so
// the placement cache can refresh without touching the checkpoint file.
type MemoryStore struct {
	state *types.WorkflowState
	saves int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context) *types.WorkflowState {
	if m.state == nil {
		return &types.WorkflowState{}
	}
	return m.state.Clone()
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, state *types.WorkflowState) error {
	m.state = state.Clone()
	m.saves++
	return nil
}

// Saves returns how many times Save was called.
func (m *MemoryStore) Saves() int { return m.saves }

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

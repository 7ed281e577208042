// Package status summarizes a checkpoint for the status command.
package status

import (
	"github.com/wisdom-pool/poolcheck/internal/orchestrator"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// State is the overall position of a checkpoint.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
)

// Summary contains computed information about a checkpoint for display.
type Summary struct {
	Env       string        `json:"env"`
	Path      string        `json:"path"`
	Exists    bool          `json:"exists"`
	State     State         `json:"state"`
	CreatorID string        `json:"creator_id,omitempty"`
	UserID    string        `json:"user_id,omitempty"`
	PoolID    string        `json:"pool_id,omitempty"`
	StreamID  string        `json:"stream_id,omitempty"`
	Drops     []DropSummary `json:"drops"`
	LastStep  string        `json:"last_step"`
	NextStep  string        `json:"next_step,omitempty"`
	StepStats StepStats     `json:"step_stats"`
	Steps     []StepSummary `json:"steps"`
}

// DropSummary is one recorded drop. PlacementID is empty when unknown.
type DropSummary struct {
	DropID      string `json:"drop_id"`
	PlacementID string `json:"placement_id,omitempty"`
}

// StepStats contains step count breakdown.
type StepStats struct {
	Total   int `json:"total"`
	Done    int `json:"done"`
	Pending int `json:"pending"`
}

// StepSummary is whether the next invocation would run a step.
type StepSummary struct {
	Tag     string `json:"tag"`
	Pending bool   `json:"pending"`
}

// NewSummary creates a summary of the checkpoint at path.
func NewSummary(env, path string, exists bool, s *types.WorkflowState) *Summary {
	summary := &Summary{
		Env:       env,
		Path:      path,
		Exists:    exists,
		CreatorID: s.CreatorID,
		UserID:    s.UserID,
		PoolID:    value(s.PoolID),
		StreamID:  value(s.StreamID),
		Drops:     []DropSummary{},
		LastStep:  s.LastStep.String(),
	}

	for _, r := range s.DropRecords {
		summary.Drops = append(summary.Drops, DropSummary{
			DropID:      string(r.DropID),
			PlacementID: value(r.PlacementID),
		})
	}

	for _, tag := range types.Steps() {
		pending := orchestrator.Pending(s, tag)
		summary.Steps = append(summary.Steps, StepSummary{Tag: string(tag), Pending: pending})
		summary.StepStats.Total++
		if pending {
			summary.StepStats.Pending++
		} else {
			summary.StepStats.Done++
		}
	}

	next, ok := orchestrator.NextPending(s)
	switch {
	case s.IsZero():
		summary.State = StateNotStarted
		summary.NextStep = string(next)
	case !ok:
		summary.State = StateComplete
	default:
		summary.State = StateInProgress
		summary.NextStep = string(next)
	}
	return summary
}

func value[T ~string](o types.Optional[T]) string {
	v, _ := o.Get()
	return string(v)
}

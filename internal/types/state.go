package types

import (
	"encoding/json"
)

// DropRecord pairs a created drop with its placement in the stream.
type DropRecord struct {
	DropID      DropID                `json:"drop_id"`
	PlacementID Optional[PlacementID] `json:"placement_id"`
}

// WorkflowState is the checkpoint record of the resumable workflow.
//
// Fields are only ever populated during a run. The record is discarded as a
// whole by an explicit reset.
type WorkflowState struct {
	CreatorID   string             `json:"creator_id,omitempty"`
	UserID      string             `json:"user_id,omitempty"`
	PoolID      Optional[PoolID]   `json:"pool_id,omitzero"`
	StreamID    Optional[StreamID] `json:"stream_id,omitzero"`
	DropRecords []DropRecord       `json:"drop_records,omitempty"`
	LastStep    StepTag            `json:"last_step,omitempty"`
}

// NewWorkflowState creates a fresh state with the given participant ids.
func NewWorkflowState(creatorID, userID string) *WorkflowState {
	return &WorkflowState{
		CreatorID: creatorID,
		UserID:    userID,
	}
}

// IsZero reports whether nothing has been recorded at all.
func (s *WorkflowState) IsZero() bool {
	return s.CreatorID == "" && s.UserID == "" &&
		!s.PoolID.IsSet() && !s.StreamID.IsSet() &&
		len(s.DropRecords) == 0 && s.LastStep == StepNone
}

// DropIDs returns the recorded drop ids in order.
func (s *WorkflowState) DropIDs() []DropID {
	ids := make([]DropID, len(s.DropRecords))
	for i, r := range s.DropRecords {
		ids[i] = r.DropID
	}
	return ids
}

// SetDropRecords replaces the drop records, dropping repeated drop ids.
func (s *WorkflowState) SetDropRecords(records []DropRecord) {
	seen := make(map[DropID]bool, len(records))
	out := make([]DropRecord, 0, len(records))
	for _, r := range records {
		if r.DropID == "" || seen[r.DropID] {
			continue
		}
		seen[r.DropID] = true
		out = append(out, r)
	}
	s.DropRecords = out
}

// PlacementFor returns the known placement of a drop.
func (s *WorkflowState) PlacementFor(dropID DropID) (PlacementID, bool) {
	for _, r := range s.DropRecords {
		if r.DropID == dropID {
			if p, ok := r.PlacementID.Get(); ok {
				return p, true
			}
		}
	}
	return "", false
}

// ProgressTarget returns the drop the user-progress step records against:
// the second drop when there are at least two, otherwise the first.
func (s *WorkflowState) ProgressTarget() (DropID, bool) {
	switch {
	case len(s.DropRecords) >= 2:
		return s.DropRecords[1].DropID, true
	case len(s.DropRecords) == 1:
		return s.DropRecords[0].DropID, true
	}
	return "", false
}

// Complete records step as the most recently completed step.
func (s *WorkflowState) Complete(step StepTag) {
	s.LastStep = step
}

// Normalize enforces the record invariants after decoding: unique drop ids and
// a known last_step. It reports whether anything was changed.
func (s *WorkflowState) Normalize() bool {
	changed := false
	before := len(s.DropRecords)
	s.SetDropRecords(s.DropRecords)
	if len(s.DropRecords) != before {
		changed = true
	}
	if !s.LastStep.Valid() {
		s.LastStep = StepNone
		changed = true
	}
	return changed
}

// Clone returns a deep copy of the state.
func (s *WorkflowState) Clone() *WorkflowState {
	c := *s
	c.DropRecords = append([]DropRecord(nil), s.DropRecords...)
	return &c
}

// stateJSON is the persisted layout. drop_ids mirrors drop_records for
// readers of the older layout, which carried bare ids only.
type stateJSON struct {
	CreatorID   string             `json:"creator_id,omitempty"`
	UserID      string             `json:"user_id,omitempty"`
	PoolID      Optional[PoolID]   `json:"pool_id,omitzero"`
	StreamID    Optional[StreamID] `json:"stream_id,omitzero"`
	DropRecords []DropRecord       `json:"drop_records,omitempty"`
	DropIDs     []DropID           `json:"drop_ids,omitempty"`
	LastStep    StepTag            `json:"last_step,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (s WorkflowState) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		CreatorID:   s.CreatorID,
		UserID:      s.UserID,
		PoolID:      s.PoolID,
		StreamID:    s.StreamID,
		DropRecords: s.DropRecords,
		DropIDs:     s.DropIDs(),
		LastStep:    s.LastStep,
	})
}

// UnmarshalJSON implements json.Unmarshaler. A record carrying only
// drop_ids is upgraded to drop records with unresolved placements.
func (s *WorkflowState) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = WorkflowState{
		CreatorID:   raw.CreatorID,
		UserID:      raw.UserID,
		PoolID:      raw.PoolID,
		StreamID:    raw.StreamID,
		DropRecords: raw.DropRecords,
		LastStep:    raw.LastStep,
	}
	if len(s.DropRecords) == 0 && len(raw.DropIDs) > 0 {
		records := make([]DropRecord, len(raw.DropIDs))
		for i, id := range raw.DropIDs {
			records[i] = DropRecord{DropID: id}
		}
		s.DropRecords = records
	}
	return nil
}

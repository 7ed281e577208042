package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wisdom-pool/poolcheck/internal/types"
)

// RootResponse is returned by GET /.
type RootResponse struct {
	Message string `json:"message"`
}

// Health is returned by GET /health.
type Health struct {
	Status        string `json:"status"`
	StartTimeUTC  string `json:"start_time_utc"`
	ServerTimeUTC string `json:"server_time_utc"`
}

// timestamp layouts accepted from the server. Offsets are optional; a missing
// offset is read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Uptime returns server_time_utc - start_time_utc.
func (h *Health) Uptime() (time.Duration, error) {
	start, err := parseTimestamp(h.StartTimeUTC)
	if err != nil {
		return 0, fmt.Errorf("start_time_utc: %w", err)
	}
	now, err := parseTimestamp(h.ServerTimeUTC)
	if err != nil {
		return 0, fmt.Errorf("server_time_utc: %w", err)
	}
	return now.Sub(start), nil
}

// PoolContent is the user-facing content of a pool.
type PoolContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreatePoolRequest is the body of POST /pools.
type CreatePoolRequest struct {
	PoolContent PoolContent `json:"pool_content"`
	CreatorID   string      `json:"creator_id"`
}

// Pool is returned by GET /pools/{id}.
type Pool struct {
	PoolID      types.PoolID `json:"pool_id"`
	PoolContent PoolContent  `json:"pool_content"`
	CreatorID   string       `json:"creator_id"`
}

// StreamContent is the user-facing content of a stream.
type StreamContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// CreateStreamRequest is the body of POST /streams.
type CreateStreamRequest struct {
	StreamContent StreamContent `json:"stream_content"`
	PoolID        types.PoolID  `json:"pool_id"`
	CreatorID     string        `json:"creator_id"`
}

// Stream is returned by GET /streams/{id}.
type Stream struct {
	StreamID      types.StreamID `json:"stream_id"`
	PoolID        types.PoolID   `json:"pool_id"`
	StreamContent StreamContent  `json:"stream_content"`
}

// DropContent is the user-facing content of a drop.
type DropContent struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// AddDropsRequest is the body of POST /streams/{id}/drops.
type AddDropsRequest struct {
	Drops     []DropContent `json:"drops"`
	CreatorID string        `json:"creator_id"`
}

// DropRef identifies a drop and, when the server reports it, its placement.
type DropRef struct {
	DropID      types.DropID                      `json:"drop_id"`
	PlacementID types.Optional[types.PlacementID] `json:"placement_id"`
}

// Record converts the reference to a checkpoint drop record.
func (r DropRef) Record() types.DropRecord {
	return types.DropRecord{DropID: r.DropID, PlacementID: r.PlacementID}
}

// DropPage is returned by GET /streams/{id}/drops. HasMore and TotalCount are
// advisory and may be absent.
type DropPage struct {
	Drops      []DropRef `json:"drops"`
	HasMore    *bool     `json:"has_more,omitempty"`
	TotalCount *int      `json:"total_count,omitempty"`
}

// Records converts the page to checkpoint drop records.
func (p *DropPage) Records() []types.DropRecord {
	records := make([]types.DropRecord, len(p.Drops))
	for i, d := range p.Drops {
		records[i] = d.Record()
	}
	return records
}

// Drop is returned by GET /drops/{id}.
type Drop struct {
	DropID   types.DropID   `json:"drop_id"`
	StreamID types.StreamID `json:"stream_id,omitempty"`
	Title    string         `json:"title,omitempty"`
	Text     string         `json:"text,omitempty"`
}

// RiverRecord is one entry of a user's activity feed.
type RiverRecord struct {
	PoolID   types.PoolID   `json:"pool_id,omitempty"`
	StreamID types.StreamID `json:"stream_id"`
}

// UserRiver is returned by GET /user/river.
type UserRiver struct {
	Records []RiverRecord `json:"records"`
}

// Touches reports whether the feed has an entry for the stream.
func (r *UserRiver) Touches(streamID types.StreamID) bool {
	for _, rec := range r.Records {
		if rec.StreamID == streamID {
			return true
		}
	}
	return false
}

// ProgressUpdate is the body of POST /user/progress.
type ProgressUpdate struct {
	PoolID      types.PoolID      `json:"pool_id"`
	StreamID    types.StreamID    `json:"stream_id"`
	DropID      types.DropID      `json:"drop_id"`
	PlacementID types.PlacementID `json:"placement_id"`
}

// SessionSync is returned by GET /user/session-sync.
type SessionSync struct {
	LastActiveContext json.RawMessage `json:"last_active_context"`
	HasHistory        bool            `json:"has_history"`
}

// StreamProgress is a user's position within a stream.
type StreamProgress struct {
	LastReadPlacementID types.Optional[types.PlacementID] `json:"last_read_placement_id"`
	IsCompleted         bool                              `json:"is_completed"`
}

// PoolRiverStream is one stream of a pool's river feed.
type PoolRiverStream struct {
	StreamID     types.StreamID  `json:"stream_id"`
	Content      StreamContent   `json:"content"`
	UserProgress *StreamProgress `json:"user_progress,omitempty"`
}

// PoolRiver is returned by GET /pools/{id}/river.
type PoolRiver struct {
	Streams []PoolRiverStream `json:"streams"`
}

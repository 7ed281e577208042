// Package placement resolves the server-assigned placement of a created drop.
//
// Placements are taken from the checkpoint when known. A miss triggers one
// listing of the stream, which replaces the recorded drops and is persisted
// before the lookup is retried. There is no polling: a drop that is still
// unplaced after the refresh is an error.
package placement

import (
	"context"
	"log/slog"

	"github.com/wisdom-pool/poolcheck/internal/api"
	"github.com/wisdom-pool/poolcheck/internal/checkpoint"
	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// DefaultRefreshLimit is the listing page size used on a miss.
const DefaultRefreshLimit = 50

// DropLister lists the drops of a stream.
type DropLister interface {
	ListDrops(ctx context.Context, streamID types.StreamID, limit int) (*api.DropPage, error)
}

// Cache resolves placements against a workflow state it shares with its
// caller. Refreshed records are written into that state and saved.
type Cache struct {
	lister    DropLister
	state     *types.WorkflowState
	store     checkpoint.Store
	limit     int
	logger    *slog.Logger
	refreshes int
}

// Option configures a Cache.
type Option func(*Cache)

// WithRefreshLimit sets the listing page size.
func WithRefreshLimit(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a cache over state, persisting refreshes through store.
func New(lister DropLister, state *types.WorkflowState, store checkpoint.Store, opts ...Option) *Cache {
	c := &Cache{
		lister: lister,
		state:  state,
		store:  store,
		limit:  DefaultRefreshLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refreshes returns how many listings the cache has issued.
func (c *Cache) Refreshes() int { return c.refreshes }

// Resolve returns the placement of dropID.
func (c *Cache) Resolve(ctx context.Context, dropID types.DropID) (types.PlacementID, error) {
	if p, ok := c.state.PlacementFor(dropID); ok {
		return p, nil
	}

	streamID, ok := c.state.StreamID.Get()
	if !ok {
		return "", herrors.WorkflowInconsistent("resolve_placement", "no stream recorded for drop "+string(dropID))
	}

	c.refreshes++
	page, err := c.lister.ListDrops(ctx, streamID, c.limit)
	if err != nil {
		return "", err
	}

	records := page.Records()
	c.logger.Debug("refreshed drop placements",
		"stream_id", streamID,
		"drop_id", dropID,
		"listed", len(records))

	// An empty listing would wipe what we know without resolving anything.
	if len(records) > 0 {
		c.state.SetDropRecords(records)
		if err := c.store.Save(ctx, c.state); err != nil {
			return "", err
		}
	}

	if p, ok := c.state.PlacementFor(dropID); ok {
		return p, nil
	}
	return "", herrors.PlacementUnresolved(string(dropID)).
		WithDetail("stream_id", string(streamID)).
		WithDetail("listed", len(records))
}

// Package seed creates the frontend test data set: one pool, its streams and
// drops, and a scripted reading history for the seed user.
//
// Seeding is not resumable. Every invocation creates a new pool.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/wisdom-pool/poolcheck/internal/api"
	"github.com/wisdom-pool/poolcheck/internal/checkpoint"
	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/placement"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// DefaultRiverLimit is the page size of the closing pool river read.
const DefaultRiverLimit = 10

// ContentAPI is the part of the remote API the seeder uses.
type ContentAPI interface {
	placement.DropLister

	CreatePool(ctx context.Context, in api.CreatePoolRequest) (types.PoolID, error)
	CreateStream(ctx context.Context, in api.CreateStreamRequest) (types.StreamID, error)
	AddDrops(ctx context.Context, streamID types.StreamID, in api.AddDropsRequest) ([]api.DropRef, error)
	UpdateProgress(ctx context.Context, userID string, in api.ProgressUpdate) error
	SessionSync(ctx context.Context, userID string) (*api.SessionSync, error)
	PoolRiver(ctx context.Context, userID string, poolID types.PoolID, limit int) (*api.PoolRiver, error)
}

// StreamResult is one seeded stream.
type StreamResult struct {
	StreamID types.StreamID
	Title    string
	Drops    []types.DropRecord
	Read     int
}

// Result is what a seeding run created and observed.
type Result struct {
	PoolID  types.PoolID
	Streams []StreamResult
	Updates int
	Session *api.SessionSync
	River   *api.PoolRiver
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithOutput sets where progress lines are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Seeder) { s.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Seeder) { s.logger = l }
}

// WithRiverLimit sets the pool river page size.
func WithRiverLimit(n int) Option {
	return func(s *Seeder) {
		if n > 0 {
			s.riverLimit = n
		}
	}
}

// WithRefreshLimit sets the listing size used to resolve missing placements.
func WithRefreshLimit(n int) Option {
	return func(s *Seeder) {
		if n > 0 {
			s.refreshLimit = n
		}
	}
}

// Seeder creates fixtures through the content API.
type Seeder struct {
	api          ContentAPI
	creatorID    string
	userID       string
	out          io.Writer
	logger       *slog.Logger
	riverLimit   int
	refreshLimit int
}

// New creates a seeder acting as creatorID for content and userID for reads.
func New(client ContentAPI, creatorID, userID string, opts ...Option) *Seeder {
	s := &Seeder{
		api:          client,
		creatorID:    creatorID,
		userID:       userID,
		out:          io.Discard,
		logger:       slog.Default(),
		riverLimit:   DefaultRiverLimit,
		refreshLimit: placement.DefaultRefreshLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Seeder) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// Run seeds fx and reads back the session and pool river. The first error
// aborts the run.
func (s *Seeder) Run(ctx context.Context, fx *Fixture) (*Result, error) {
	if err := fx.Validate(); err != nil {
		return nil, err
	}

	res := &Result{}
	poolID, err := s.createPool(ctx, fx.Pool)
	if err != nil {
		return res, err
	}
	res.PoolID = poolID

	for _, sf := range fx.Streams {
		sr, err := s.createStream(ctx, poolID, sf)
		if err != nil {
			return res, err
		}
		res.Streams = append(res.Streams, sr)
	}

	s.printf("\n--- Creating user progress data ---\n")
	for _, sr := range res.Streams {
		n, err := s.read(ctx, poolID, sr)
		res.Updates += n
		if err != nil {
			return res, err
		}
	}

	s.printf("\n--- Test data creation complete! ---\n")
	s.printf("Pool ID: %s\n", poolID)
	s.printf("Created %d streams with varying numbers of drops\n", len(res.Streams))
	s.printf("Simulated user reading progress for user: %s\n", s.userID)

	if res.Session, err = s.sessionSync(ctx); err != nil {
		return res, err
	}
	if res.River, err = s.poolRiver(ctx, poolID); err != nil {
		return res, err
	}

	s.printf("\n--- All tests passed! ---\n")
	s.logger.Info("seeding complete",
		"pool_id", poolID,
		"streams", len(res.Streams),
		"progress_updates", res.Updates)
	return res, nil
}

func (s *Seeder) createPool(ctx context.Context, pf PoolFixture) (types.PoolID, error) {
	s.printf("--- Creating %s pool ---\n", pf.Title)
	id, err := s.api.CreatePool(ctx, api.CreatePoolRequest{
		PoolContent: api.PoolContent{Title: pf.Title, Description: pf.Description},
		CreatorID:   s.creatorID,
	})
	if err != nil {
		return "", err
	}
	s.printf("Created pool: %s\n\n", id)
	return id, nil
}

func (s *Seeder) createStream(ctx context.Context, poolID types.PoolID, sf StreamFixture) (StreamResult, error) {
	id, err := s.api.CreateStream(ctx, api.CreateStreamRequest{
		StreamContent: api.StreamContent{
			Title:       sf.Title,
			Description: sf.Description,
			Category:    sf.Category,
		},
		PoolID:    poolID,
		CreatorID: s.creatorID,
	})
	if err != nil {
		return StreamResult{}, err
	}
	s.printf("Created stream: '%s' (%s)\n", sf.Title, id)

	content := make([]api.DropContent, len(sf.Drops))
	for i, d := range sf.Drops {
		content[i] = api.DropContent{Title: d.Title, Text: d.Text}
	}
	refs, err := s.api.AddDrops(ctx, id, api.AddDropsRequest{Drops: content, CreatorID: s.creatorID})
	if err != nil {
		return StreamResult{}, err
	}
	if len(refs) < sf.Read {
		return StreamResult{}, herrors.WorkflowInconsistent("seed",
			fmt.Sprintf("stream %s returned %d drops, %d needed", id, len(refs), sf.Read))
	}
	s.printf("  Added %d drops\n", len(refs))

	records := make([]types.DropRecord, len(refs))
	for i, ref := range refs {
		records[i] = ref.Record()
	}
	return StreamResult{StreamID: id, Title: sf.Title, Drops: records, Read: sf.Read}, nil
}

// read records progress on the first sr.Read drops of the stream. Placements
// missing from the creation response are resolved against a state that is
// never persisted.
func (s *Seeder) read(ctx context.Context, poolID types.PoolID, sr StreamResult) (int, error) {
	if sr.Read == 0 {
		s.printf("User hasn't started: %s\n", sr.Title)
		return 0, nil
	}

	state := &types.WorkflowState{StreamID: types.Some(sr.StreamID)}
	state.SetDropRecords(sr.Drops)
	cache := placement.New(s.api, state, checkpoint.NewMemoryStore(),
		placement.WithRefreshLimit(s.refreshLimit),
		placement.WithLogger(s.logger))

	for i := 0; i < sr.Read; i++ {
		dropID := sr.Drops[i].DropID
		placementID, err := cache.Resolve(ctx, dropID)
		if err != nil {
			return i, err
		}
		err = s.api.UpdateProgress(ctx, s.userID, api.ProgressUpdate{
			PoolID:      poolID,
			StreamID:    sr.StreamID,
			DropID:      dropID,
			PlacementID: placementID,
		})
		if err != nil {
			return i, err
		}
	}

	if sr.Read == len(sr.Drops) {
		s.printf("User completed: %s\n", sr.Title)
	} else {
		s.printf("User read: %s (%d/%d drops)\n", sr.Title, sr.Read, len(sr.Drops))
	}
	return sr.Read, nil
}

func (s *Seeder) sessionSync(ctx context.Context) (*api.SessionSync, error) {
	s.printf("\n--- Testing session-sync endpoint ---\n")
	sync, err := s.api.SessionSync(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	s.printf("Session sync successful!\n")
	s.printf("Last active context: %s\n", rawOrNone(sync.LastActiveContext))
	s.printf("Has history: %t\n", sync.HasHistory)
	return sync, nil
}

func (s *Seeder) poolRiver(ctx context.Context, poolID types.PoolID) (*api.PoolRiver, error) {
	s.printf("\n--- Testing river feed endpoint ---\n")
	river, err := s.api.PoolRiver(ctx, s.userID, poolID, s.riverLimit)
	if err != nil {
		return nil, err
	}
	s.printf("River feed successful!\n")
	s.printf("Returned %d streams\n", len(river.Streams))
	for _, st := range river.Streams {
		lastRead, completed := "None", false
		if p := st.UserProgress; p != nil {
			if id, ok := p.LastReadPlacementID.Get(); ok {
				lastRead = string(id)
			}
			completed = p.IsCompleted
		}
		s.printf("  - %s: last_read=%s, completed=%t\n", st.Content.Title, lastRead, completed)
	}
	return river, nil
}

func rawOrNone(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return "None"
	}
	return text
}

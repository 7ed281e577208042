// Package orchestrator runs the resumable content-API workflow.
//
// Each invocation loads the checkpoint, runs the always-on probes and then
// walks the fixed step order. A step runs only when its resume predicate says
// it is pending; every executed step is checkpointed before the next one
// starts. The first error aborts the run and is returned as a *StepError for
// the Reporter.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/wisdom-pool/poolcheck/internal/api"
	"github.com/wisdom-pool/poolcheck/internal/checkpoint"
	"github.com/wisdom-pool/poolcheck/internal/logging"
	"github.com/wisdom-pool/poolcheck/internal/placement"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// Phases reported for failures outside the step sequence.
const (
	PhaseSetup  = "setup"
	PhaseRoot   = "root_check"
	PhaseHealth = "health_check"
)

// ContentAPI is the part of the remote API the workflow drives.
type ContentAPI interface {
	placement.DropLister

	Root(ctx context.Context) (*api.RootResponse, error)
	Health(ctx context.Context) (*api.Health, error)
	CreatePool(ctx context.Context, in api.CreatePoolRequest) (types.PoolID, error)
	GetPool(ctx context.Context, id types.PoolID) (*api.Pool, error)
	CreateStream(ctx context.Context, in api.CreateStreamRequest) (types.StreamID, error)
	GetStream(ctx context.Context, id types.StreamID) (*api.Stream, error)
	AddDrops(ctx context.Context, streamID types.StreamID, in api.AddDropsRequest) ([]api.DropRef, error)
	GetDrop(ctx context.Context, id types.DropID) (*api.Drop, error)
	UserRiver(ctx context.Context, userID string, limit int) (*api.UserRiver, error)
	UpdateProgress(ctx context.Context, userID string, in api.ProgressUpdate) error
	ClearLogs(ctx context.Context) error
}

// Limits are the page sizes used by the workflow.
type Limits struct {
	Refresh int // placement refresh listing
	River   int // user river reads
	List    int // test_get_drops listing
}

// DefaultLimits matches the page sizes the server tests were written against.
var DefaultLimits = Limits{Refresh: 50, River: 30, List: 10}

// Result summarizes a run.
type Result struct {
	State    *types.WorkflowState
	Fresh    bool
	Executed []types.StepTag
	Skipped  []types.StepTag
}

// StepError is returned when a run aborts. Phase is the step tag or
// preliminary phase that failed; LastCompleted is the checkpoint cursor at
// that moment.
type StepError struct {
	Phase         string
	LastCompleted types.StepTag
	Err           error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed (last completed: %s): %v", e.Phase, e.LastCompleted, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOutput sets where progress lines are printed.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithLimits sets the page sizes.
func WithLimits(l Limits) Option {
	return func(o *Orchestrator) { o.limits = l }
}

// WithTracer sets the trace sink.
func WithTracer(t TracerInterface) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithIDGenerator replaces the participant id generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// Orchestrator is the resumable workflow engine.
type Orchestrator struct {
	api    ContentAPI
	store  checkpoint.Store
	out    io.Writer
	logger *slog.Logger
	limits Limits
	tracer TracerInterface
	newID  func() string
}

// New creates an Orchestrator over the given API and checkpoint store.
func New(client ContentAPI, store checkpoint.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:    client,
		store:  store,
		out:    io.Discard,
		logger: slog.Default(),
		limits: DefaultLimits,
		tracer: &NullTracer{},
		newID:  GenerateUserID,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the per-invocation state shared by the steps.
type run struct {
	*Orchestrator
	state  *types.WorkflowState
	cache  *placement.Cache
	result *Result
}

func (r *run) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *run) fail(phase string, err error) error {
	r.tracer.LogError(phase, err)
	return &StepError{Phase: phase, LastCompleted: r.state.LastStep, Err: err}
}

// save persists the checkpoint and reports the cursor.
func (r *run) save(ctx context.Context) error {
	if err := r.store.Save(ctx, r.state); err != nil {
		return err
	}
	r.printf("Progress saved. Last successful step: %s\n\n", r.state.LastStep)
	return nil
}

// Run executes one invocation of the workflow.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	state := o.store.Load(ctx)
	r := &run{
		Orchestrator: o,
		state:        state,
		result:       &Result{State: state, Fresh: state.IsZero()},
	}
	r.cache = placement.New(o.api, state, o.store,
		placement.WithRefreshLimit(o.limits.Refresh),
		placement.WithLogger(o.logger))

	o.tracer.LogStart(r.result.Fresh, state.LastStep)
	o.logger.Info("workflow starting", "fresh", r.result.Fresh, "last_step", state.LastStep.String())

	if r.result.Fresh {
		r.clearServerLogs(ctx)
	}
	if err := r.ensureParticipants(ctx); err != nil {
		return r.result, r.fail(PhaseSetup, err)
	}

	if err := r.checkRoot(ctx); err != nil {
		return r.result, r.fail(PhaseRoot, err)
	}
	o.tracer.LogProbe(PhaseRoot)
	if err := r.checkHealth(ctx); err != nil {
		return r.result, r.fail(PhaseHealth, err)
	}
	o.tracer.LogProbe(PhaseHealth)

	for _, s := range steps {
		if err := r.runStep(ctx, s); err != nil {
			return r.result, r.fail(string(s.tag), err)
		}
	}

	r.printf("--- Full workflow test completed successfully! ---\n")
	o.tracer.LogFinish()
	o.logger.Info("workflow complete",
		"executed", len(r.result.Executed),
		"skipped", len(r.result.Skipped))
	return r.result, nil
}

func (r *run) runStep(ctx context.Context, s step) error {
	logger := logging.WithStep(r.logger, string(s.tag))

	if !Pending(r.state, s.tag) {
		reason := skipReason(r.state, s.tag)
		logger.Debug("skipping step", "reason", reason)
		if s.skipped != nil {
			s.skipped(r)
		}
		r.result.Skipped = append(r.result.Skipped, s.tag)
		r.tracer.LogSkip(s.tag, reason)
		return nil
	}

	logger.Debug("executing step")
	if err := s.exec(r, ctx); err != nil {
		return err
	}
	prev := r.state.LastStep
	r.state.Complete(s.tag)
	if err := r.save(ctx); err != nil {
		r.state.LastStep = prev
		return err
	}
	r.result.Executed = append(r.result.Executed, s.tag)
	r.tracer.LogComplete(s.tag)
	return nil
}

// clearServerLogs empties the remote diagnostic history before the first run.
// Failure only produces a warning.
func (r *run) clearServerLogs(ctx context.Context) {
	r.printf("--- Clearing server logs for a fresh run ---\n")
	if err := r.api.ClearLogs(ctx); err != nil {
		r.logger.Warn("could not clear server logs", "error", err)
		r.printf("Could not clear server logs: %v\n\n", err)
		return
	}
	r.printf("Server logs cleared successfully.\n\n")
}

// ensureParticipants assigns the creator and user ids once per checkpoint.
func (r *run) ensureParticipants(ctx context.Context) error {
	changed := false
	if r.state.CreatorID == "" {
		r.state.CreatorID = r.newID()
		changed = true
	}
	if r.state.UserID == "" {
		r.state.UserID = r.newID()
		changed = true
	}
	if !changed {
		return nil
	}
	r.logger.Debug("assigned participants", "creator_id", r.state.CreatorID, "user_id", r.state.UserID)
	return r.save(ctx)
}

func (r *run) checkRoot(ctx context.Context) error {
	r.printf("--- 0. Checking root endpoint ---\n")
	root, err := r.api.Root(ctx)
	if err != nil {
		return err
	}
	msg := root.Message
	if msg == "" {
		msg = "No message returned"
	}
	r.printf("Root endpoint healthy: %s\n\n", msg)
	return nil
}

func (r *run) checkHealth(ctx context.Context) error {
	r.printf("--- 1. Checking server health ---\n")
	h, err := r.api.Health(ctx)
	if err != nil {
		return err
	}
	uptime, err := h.Uptime()
	if err != nil {
		r.logger.Warn("could not compute server uptime", "error", err)
		r.printf("Server is OK. Uptime unavailable: %v\n\n", err)
		return nil
	}
	r.printf("Server is OK. Uptime: %.2f minutes.\n\n", uptime.Minutes())
	return nil
}

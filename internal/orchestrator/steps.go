package orchestrator

import (
	"context"
	"fmt"

	"github.com/wisdom-pool/poolcheck/internal/api"
	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// step binds a tag to its action. skipped, when set, prints the notice for a
// create step whose entity already exists.
type step struct {
	tag     types.StepTag
	exec    func(r *run, ctx context.Context) error
	skipped func(r *run)
}

var steps = []step{
	{tag: types.StepCreatePool, exec: (*run).createPool, skipped: (*run).poolExists},
	{tag: types.StepValidatePool, exec: (*run).validatePool},
	{tag: types.StepCreateStream, exec: (*run).createStream, skipped: (*run).streamExists},
	{tag: types.StepValidateStream, exec: (*run).validateStream},
	{tag: types.StepAddDrops, exec: (*run).addDrops, skipped: (*run).dropsExist},
	{tag: types.StepValidateDrops, exec: (*run).validateDrops},
	{tag: types.StepTestUserProgress, exec: (*run).testUserProgress},
	{tag: types.StepTestGetDrops, exec: (*run).testGetDrops},
}

// creationPending reports whether a create step still has to run. The
// recorded identifier is the only signal: the cursor is not consulted.
func creationPending(s *types.WorkflowState, tag types.StepTag) bool {
	switch tag {
	case types.StepCreatePool:
		return !s.PoolID.IsSet()
	case types.StepCreateStream:
		return !s.StreamID.IsSet()
	case types.StepAddDrops:
		return len(s.DropRecords) == 0
	}
	return false
}

// checkPending reports whether a check step still has to run: the cursor has
// not reached it yet.
func checkPending(s *types.WorkflowState, tag types.StepTag) bool {
	return s.LastStep.Before(tag)
}

// Pending reports whether tag would run on the next invocation against s.
func Pending(s *types.WorkflowState, tag types.StepTag) bool {
	if tag.Kind() == types.StepKindCreate {
		return creationPending(s, tag)
	}
	return checkPending(s, tag)
}

// NextPending returns the first step the next invocation would run, or false
// when every step is done.
func NextPending(s *types.WorkflowState) (types.StepTag, bool) {
	for _, st := range steps {
		if Pending(s, st.tag) {
			return st.tag, true
		}
	}
	return types.StepNone, false
}

func skipReason(s *types.WorkflowState, tag types.StepTag) string {
	if tag.Kind() == types.StepKindCreate {
		return "already created"
	}
	return "cursor at " + s.LastStep.String()
}

// banner numbers the steps after the two preliminary checks.
func banner(tag types.StepTag) string {
	return fmt.Sprintf("--- %d.", tag.Index()+2)
}

func (r *run) requirePool(tag types.StepTag) (types.PoolID, error) {
	id, ok := r.state.PoolID.Get()
	if !ok {
		return "", herrors.WorkflowInconsistent(string(tag), "no pool recorded")
	}
	return id, nil
}

func (r *run) requireStream(tag types.StepTag) (types.StreamID, error) {
	id, ok := r.state.StreamID.Get()
	if !ok {
		return "", herrors.WorkflowInconsistent(string(tag), "no stream recorded")
	}
	return id, nil
}

func (r *run) createPool(ctx context.Context) error {
	r.printf("%s Creating a new pool ---\n", banner(types.StepCreatePool))
	id, err := r.api.CreatePool(ctx, api.CreatePoolRequest{
		PoolContent: api.PoolContent{Title: "Test Pool", Description: "A test pool."},
		CreatorID:   r.state.CreatorID,
	})
	if err != nil {
		return err
	}
	r.state.PoolID = types.Some(id)
	r.printf("Pool created with ID: %s\n", id)
	return nil
}

func (r *run) poolExists() {
	r.printf("%s Pool already exists (skipping creation) ---\n", banner(types.StepCreatePool))
	r.printf("Using Pool ID: %s\n\n", r.state.PoolID)
}

func (r *run) validatePool(ctx context.Context) error {
	id, err := r.requirePool(types.StepValidatePool)
	if err != nil {
		return err
	}
	r.printf("%s Validating pool %s ---\n", banner(types.StepValidatePool), id)
	if _, err := r.api.GetPool(ctx, id); err != nil {
		return err
	}
	r.printf("Pool %s validated successfully.\n", id)
	return nil
}

func (r *run) createStream(ctx context.Context) error {
	poolID, err := r.requirePool(types.StepCreateStream)
	if err != nil {
		return err
	}
	r.printf("%s Creating a new stream ---\n", banner(types.StepCreateStream))
	id, err := r.api.CreateStream(ctx, api.CreateStreamRequest{
		StreamContent: api.StreamContent{Title: "Test Stream", Description: "A test stream."},
		PoolID:        poolID,
		CreatorID:     r.state.CreatorID,
	})
	if err != nil {
		return err
	}
	r.state.StreamID = types.Some(id)
	r.printf("Stream created with ID: %s\n", id)
	return nil
}

func (r *run) streamExists() {
	r.printf("%s Stream already exists (skipping creation) ---\n", banner(types.StepCreateStream))
	r.printf("Using Stream ID: %s\n\n", r.state.StreamID)
}

func (r *run) validateStream(ctx context.Context) error {
	id, err := r.requireStream(types.StepValidateStream)
	if err != nil {
		return err
	}
	r.printf("%s Validating stream %s ---\n", banner(types.StepValidateStream), id)
	if _, err := r.api.GetStream(ctx, id); err != nil {
		return err
	}
	r.printf("Stream %s validated successfully.\n", id)
	return nil
}

var testDrops = []api.DropContent{
	{Title: "Drop 1", Text: "This is the first drop."},
	{Title: "Drop 2", Text: "This is the second drop."},
	{Title: "Drop 3", Text: "This is the third drop."},
}

func (r *run) addDrops(ctx context.Context) error {
	streamID, err := r.requireStream(types.StepAddDrops)
	if err != nil {
		return err
	}
	r.printf("%s Adding %d drops to stream %s ---\n", banner(types.StepAddDrops), len(testDrops), streamID)
	refs, err := r.api.AddDrops(ctx, streamID, api.AddDropsRequest{
		Drops:     testDrops,
		CreatorID: r.state.CreatorID,
	})
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return herrors.WorkflowInconsistent(string(types.StepAddDrops), "server returned no drops")
	}

	records := make([]types.DropRecord, len(refs))
	for i, ref := range refs {
		records[i] = ref.Record()
		if !ref.PlacementID.IsSet() {
			r.logger.Debug("drop created without placement", "drop_id", ref.DropID)
		}
	}
	r.state.SetDropRecords(records)
	r.printf("%d drops added with IDs: %v\n", len(r.state.DropRecords), r.state.DropIDs())
	return nil
}

func (r *run) dropsExist() {
	r.printf("%s Drops already exist (skipping creation) ---\n", banner(types.StepAddDrops))
	r.printf("Using Drop IDs: %v\n\n", r.state.DropIDs())
}

func (r *run) validateDrops(ctx context.Context) error {
	r.printf("%s Validating individual drops ---\n", banner(types.StepValidateDrops))
	for _, id := range r.state.DropIDs() {
		if _, err := r.api.GetDrop(ctx, id); err != nil {
			return err
		}
		r.printf("Drop %s validated successfully.\n", id)
	}
	r.printf("All drops validated.\n")
	return nil
}

func (r *run) testUserProgress(ctx context.Context) error {
	poolID, err := r.requirePool(types.StepTestUserProgress)
	if err != nil {
		return err
	}
	streamID, err := r.requireStream(types.StepTestUserProgress)
	if err != nil {
		return err
	}
	user := r.state.UserID

	r.printf("%s Testing user progress endpoints ---\n", banner(types.StepTestUserProgress))
	r.printf("Getting initial user river...\n")
	before, err := r.api.UserRiver(ctx, user, r.limits.River)
	if err != nil {
		return err
	}
	r.printf("Initial river records: %d\n", len(before.Records))

	r.printf("Updating user progress...\n")
	target, ok := r.state.ProgressTarget()
	if !ok {
		return herrors.WorkflowInconsistent(string(types.StepTestUserProgress), "no drops recorded")
	}
	placementID, err := r.cache.Resolve(ctx, target)
	if err != nil {
		return err
	}
	err = r.api.UpdateProgress(ctx, user, api.ProgressUpdate{
		PoolID:      poolID,
		StreamID:    streamID,
		DropID:      target,
		PlacementID: placementID,
	})
	if err != nil {
		return err
	}
	r.printf("User progress updated successfully.\n")

	r.printf("Getting updated user river...\n")
	after, err := r.api.UserRiver(ctx, user, r.limits.River)
	if err != nil {
		return err
	}
	if !after.Touches(streamID) {
		r.logger.Warn("updated river does not include the touched stream",
			"stream_id", streamID,
			"records", len(after.Records))
		r.printf("Warning: Updated river does not include the stream we just touched.\n")
	} else {
		r.printf("User river reflects the recent activity.\n")
	}
	r.printf("User progress tests completed.\n")
	return nil
}

func (r *run) testGetDrops(ctx context.Context) error {
	streamID, err := r.requireStream(types.StepTestGetDrops)
	if err != nil {
		return err
	}
	r.printf("%s Testing get drops in stream endpoint ---\n", banner(types.StepTestGetDrops))
	page, err := r.api.ListDrops(ctx, streamID, r.limits.List)
	if err != nil {
		return err
	}
	r.printf("Retrieved %d drops from stream\n", len(page.Drops))
	r.printf("Has more: %s\n", optionalValue(page.HasMore))
	r.printf("Total count: %s\n", optionalValue(page.TotalCount))
	r.printf("Get drops test completed.\n")
	return nil
}

func optionalValue[T any](v *T) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wisdom-pool/poolcheck/internal/api"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// Routes served by FakeContentAPI, used as keys for call counts and failures.
const (
	RouteRoot         = "GET /"
	RouteHealth       = "GET /health"
	RouteCreatePool   = "POST /pools"
	RouteGetPool      = "GET /pools/{id}"
	RouteCreateStream = "POST /streams"
	RouteGetStream    = "GET /streams/{id}"
	RouteAddDrops     = "POST /streams/{id}/drops"
	RouteListDrops    = "GET /streams/{id}/drops"
	RouteGetDrop      = "GET /drops/{id}"
	RouteUserRiver    = "GET /user/river"
	RouteUserProgress = "POST /user/progress"
	RouteSessionSync  = "GET /user/session-sync"
	RoutePoolRiver    = "GET /pools/{id}/river"
	RouteClearLogs    = "DELETE /logs/clear"
	RouteLogs         = "GET /logs"
)

const fakeUserHeaderName = api.DefaultUserHeader

// CreationRoutes are the routes that create remote entities.
var CreationRoutes = []string{RouteCreatePool, RouteCreateStream, RouteAddDrops}

type fakeStream struct {
	pool    types.PoolID
	content api.StreamContent
	drops   []types.DropID
}

type fakeDrop struct {
	stream    types.StreamID
	placement types.PlacementID
	content   api.DropContent
}

// FakeContentAPI is an in-memory content API served over httptest. It records
// every request by route so tests can assert exactly which calls were made.
type FakeContentAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	calls    map[string]int
	order    []string
	failures map[string]int
	nextID   int
	started  time.Time

	pools    map[types.PoolID]api.CreatePoolRequest
	streams  map[types.StreamID]*fakeStream
	drops    map[types.DropID]*fakeDrop
	progress map[string][]api.ProgressUpdate
	logLines []string

	// OmitPlacements drops placement_id from drop creation responses. The
	// listing endpoint still reports them.
	OmitPlacements bool
	// OmitListedPlacements drops placement_id from drop listings as well.
	OmitListedPlacements bool
	// HideStreamFromRiver leaves the progressed stream out of the user river.
	HideStreamFromRiver bool
	// BadHealthTimestamps makes /health return unparseable timestamps.
	BadHealthTimestamps bool
}

// NewFakeContentAPI starts a fake server that is closed when the test ends.
func NewFakeContentAPI(t *testing.T) *FakeContentAPI {
	t.Helper()

	f := &FakeContentAPI{
		calls:    make(map[string]int),
		failures: make(map[string]int),
		started:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		pools:    make(map[types.PoolID]api.CreatePoolRequest),
		streams:  make(map[types.StreamID]*fakeStream),
		drops:    make(map[types.DropID]*fakeDrop),
		progress: make(map[string][]api.ProgressUpdate),
	}

	mux := http.NewServeMux()
	f.handle(mux, RouteRoot, "GET /{$}", f.root)
	f.handle(mux, RouteHealth, "GET /health", f.health)
	f.handle(mux, RouteCreatePool, "POST /api/v1/pools", f.createPool)
	f.handle(mux, RouteGetPool, "GET /api/v1/pools/{id}", f.getPool)
	f.handle(mux, RouteCreateStream, "POST /api/v1/streams", f.createStream)
	f.handle(mux, RouteGetStream, "GET /api/v1/streams/{id}", f.getStream)
	f.handle(mux, RouteAddDrops, "POST /api/v1/streams/{id}/drops", f.addDrops)
	f.handle(mux, RouteListDrops, "GET /api/v1/streams/{id}/drops", f.listDrops)
	f.handle(mux, RouteGetDrop, "GET /api/v1/drops/{id}", f.getDrop)
	f.handle(mux, RouteUserRiver, "GET /api/v1/user/river", f.userRiver)
	f.handle(mux, RouteUserProgress, "POST /api/v1/user/progress", f.userProgress)
	f.handle(mux, RouteSessionSync, "GET /api/v1/user/session-sync", f.sessionSync)
	f.handle(mux, RoutePoolRiver, "GET /api/v1/pools/{id}/river", f.poolRiver)
	f.handle(mux, RouteClearLogs, "DELETE /logs/clear", f.clearLogs)
	f.handle(mux, RouteLogs, "GET /logs", f.logs)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the server root.
func (f *FakeContentAPI) URL() string { return f.Server.URL }

// Client returns an api.Client pointed at the fake.
func (f *FakeContentAPI) Client(opts ...api.Option) *api.Client {
	return api.New(f.Server.URL, opts...)
}

func (f *FakeContentAPI) handle(mux *http.ServeMux, route, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[route]++
		f.order = append(f.order, route)
		status := f.failures[route]
		f.logLines = append(f.logLines, fmt.Sprintf("%s %s", r.Method, r.URL.Path))
		f.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": "injected failure on " + route})
			return
		}
		h(w, r)
	})
}

// FailRoute makes every request to route answer with status.
func (f *FakeContentAPI) FailRoute(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = status
}

// ClearFailures removes all injected failures.
func (f *FakeContentAPI) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]int)
}

// Calls returns how many requests hit route.
func (f *FakeContentAPI) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// CreationCalls returns the number of requests to entity-creating routes.
func (f *FakeContentAPI) CreationCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range CreationRoutes {
		n += f.calls[r]
	}
	return n
}

// Order returns the routes hit so far, in request order.
func (f *FakeContentAPI) Order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

// ResetCalls zeroes the call counters without touching stored entities.
func (f *FakeContentAPI) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
	f.order = nil
}

// ProgressFor returns the progress updates recorded for a user.
func (f *FakeContentAPI) ProgressFor(userID string) []api.ProgressUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.ProgressUpdate(nil), f.progress[userID]...)
}

// SeedStream registers a pool, stream and drops directly, bypassing the
// creation routes. Drops get placements "<drop>-pl".
func (f *FakeContentAPI) SeedStream(pool types.PoolID, stream types.StreamID, drops ...types.DropID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pools[pool] = api.CreatePoolRequest{PoolContent: api.PoolContent{Title: string(pool)}}
	fs := &fakeStream{pool: pool}
	for _, d := range drops {
		fs.drops = append(fs.drops, d)
		f.drops[d] = &fakeDrop{stream: stream, placement: types.PlacementID(string(d) + "-pl")}
	}
	f.streams[stream] = fs
}

// StreamCount returns how many streams the fake holds.
func (f *FakeContentAPI) StreamCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

func (f *FakeContentAPI) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return false
	}
	return true
}

func notFound(w http.ResponseWriter, what, id string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": what + " " + id + " not found"})
}

func (f *FakeContentAPI) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.RootResponse{Message: "Welcome to the Wisdom Pool API"})
}

func (f *FakeContentAPI) health(w http.ResponseWriter, r *http.Request) {
	h := api.Health{
		Status:        "healthy",
		StartTimeUTC:  f.started.Format("2006-01-02T15:04:05.000000") + "Z",
		ServerTimeUTC: f.started.Add(42*time.Minute).Format("2006-01-02T15:04:05.000000") + "Z",
	}
	if f.BadHealthTimestamps {
		h.StartTimeUTC, h.ServerTimeUTC = "soon", "later"
	}
	writeJSON(w, http.StatusOK, h)
}

func (f *FakeContentAPI) createPool(w http.ResponseWriter, r *http.Request) {
	var in api.CreatePoolRequest
	if !readJSON(w, r, &in) {
		return
	}
	f.mu.Lock()
	id := types.PoolID(f.newID("pool"))
	f.pools[id] = in
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"pool_id": id})
}

func (f *FakeContentAPI) getPool(w http.ResponseWriter, r *http.Request) {
	id := types.PoolID(r.PathValue("id"))
	f.mu.Lock()
	in, ok := f.pools[id]
	f.mu.Unlock()
	if !ok {
		notFound(w, "pool", string(id))
		return
	}
	writeJSON(w, http.StatusOK, api.Pool{PoolID: id, PoolContent: in.PoolContent, CreatorID: in.CreatorID})
}

func (f *FakeContentAPI) createStream(w http.ResponseWriter, r *http.Request) {
	var in api.CreateStreamRequest
	if !readJSON(w, r, &in) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pools[in.PoolID]; !ok {
		notFound(w, "pool", string(in.PoolID))
		return
	}
	id := types.StreamID(f.newID("stream"))
	f.streams[id] = &fakeStream{pool: in.PoolID, content: in.StreamContent}
	writeJSON(w, http.StatusCreated, map[string]any{"stream_id": id})
}

func (f *FakeContentAPI) getStream(w http.ResponseWriter, r *http.Request) {
	id := types.StreamID(r.PathValue("id"))
	f.mu.Lock()
	s, ok := f.streams[id]
	f.mu.Unlock()
	if !ok {
		notFound(w, "stream", string(id))
		return
	}
	writeJSON(w, http.StatusOK, api.Stream{StreamID: id, PoolID: s.pool, StreamContent: s.content})
}

func (f *FakeContentAPI) addDrops(w http.ResponseWriter, r *http.Request) {
	streamID := types.StreamID(r.PathValue("id"))
	var in api.AddDropsRequest
	if !readJSON(w, r, &in) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.streams[streamID]
	if !ok {
		notFound(w, "stream", string(streamID))
		return
	}

	out := make([]map[string]any, 0, len(in.Drops))
	for _, content := range in.Drops {
		id := types.DropID(f.newID("drop"))
		placement := types.PlacementID(f.newID("pl"))
		f.drops[id] = &fakeDrop{stream: streamID, placement: placement, content: content}
		s.drops = append(s.drops, id)

		ref := map[string]any{"drop_id": id}
		if !f.OmitPlacements {
			ref["placement_id"] = placement
		}
		out = append(out, ref)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"drops": out})
}

func (f *FakeContentAPI) listDrops(w http.ResponseWriter, r *http.Request) {
	streamID := types.StreamID(r.PathValue("id"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.streams[streamID]
	if !ok {
		notFound(w, "stream", string(streamID))
		return
	}

	page := s.drops
	if len(page) > limit {
		page = page[:limit]
	}
	out := make([]map[string]any, 0, len(page))
	for _, id := range page {
		ref := map[string]any{"drop_id": id}
		if !f.OmitListedPlacements {
			ref["placement_id"] = f.drops[id].placement
		}
		out = append(out, ref)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"drops":       out,
		"has_more":    len(s.drops) > limit,
		"total_count": len(s.drops),
	})
}

func (f *FakeContentAPI) getDrop(w http.ResponseWriter, r *http.Request) {
	id := types.DropID(r.PathValue("id"))
	f.mu.Lock()
	d, ok := f.drops[id]
	f.mu.Unlock()
	if !ok {
		notFound(w, "drop", string(id))
		return
	}
	writeJSON(w, http.StatusOK, api.Drop{DropID: id, StreamID: d.stream, Title: d.content.Title, Text: d.content.Text})
}

func (f *FakeContentAPI) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := r.Header.Get(fakeUserHeaderName)
	if user == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "missing " + fakeUserHeaderName})
		return "", false
	}
	return user, true
}

func (f *FakeContentAPI) userRiver(w http.ResponseWriter, r *http.Request) {
	user, ok := f.user(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records := []api.RiverRecord{}
	seen := make(map[types.StreamID]bool)
	updates := f.progress[user]
	for i := len(updates) - 1; i >= 0; i-- {
		u := updates[i]
		if seen[u.StreamID] || f.HideStreamFromRiver {
			continue
		}
		seen[u.StreamID] = true
		records = append(records, api.RiverRecord{PoolID: u.PoolID, StreamID: u.StreamID})
	}
	writeJSON(w, http.StatusOK, api.UserRiver{Records: records})
}

func (f *FakeContentAPI) userProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := f.user(w, r)
	if !ok {
		return
	}
	var in api.ProgressUpdate
	if !readJSON(w, r, &in) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drops[in.DropID]
	if !ok {
		notFound(w, "drop", string(in.DropID))
		return
	}
	if d.placement != in.PlacementID {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "placement does not match drop"})
		return
	}
	f.progress[user] = append(f.progress[user], in)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (f *FakeContentAPI) sessionSync(w http.ResponseWriter, r *http.Request) {
	user, ok := f.user(w, r)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	updates := f.progress[user]
	out := api.SessionSync{LastActiveContext: json.RawMessage("null"), HasHistory: len(updates) > 0}
	if len(updates) > 0 {
		last := updates[len(updates)-1]
		data, _ := json.Marshal(map[string]any{"pool_id": last.PoolID, "stream_id": last.StreamID})
		out.LastActiveContext = data
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeContentAPI) poolRiver(w http.ResponseWriter, r *http.Request) {
	user, ok := f.user(w, r)
	if !ok {
		return
	}
	poolID := types.PoolID(r.PathValue("id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pools[poolID]; !ok {
		notFound(w, "pool", string(poolID))
		return
	}

	lastRead := make(map[types.StreamID]types.PlacementID)
	for _, u := range f.progress[user] {
		lastRead[u.StreamID] = u.PlacementID
	}

	out := api.PoolRiver{Streams: []api.PoolRiverStream{}}
	for id, s := range f.streams {
		if s.pool != poolID {
			continue
		}
		entry := api.PoolRiverStream{StreamID: id, Content: s.content}
		if p, ok := lastRead[id]; ok {
			completed := len(s.drops) > 0 && f.drops[s.drops[len(s.drops)-1]].placement == p
			entry.UserProgress = &api.StreamProgress{
				LastReadPlacementID: types.Some(p),
				IsCompleted:         completed,
			}
		}
		out.Streams = append(out.Streams, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeContentAPI) clearLogs(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.logLines = nil
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (f *FakeContentAPI) logs(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	text := strings.Join(f.logLines, "\n")
	f.mu.Unlock()
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, text)
}

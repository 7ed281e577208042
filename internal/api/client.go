// Package api is a thin client for the Wisdom Pool content API.
//
// Every call is synchronous. Any failure, whether the request never
// completed, the server answered outside 2xx, or the body could not be
// decoded, is returned as a coded error from internal/errors; non-2xx
// responses carry a *StatusError as their cause.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// DefaultUserHeader carries the acting user on per-user endpoints.
const DefaultUserHeader = "X-User-Id"

// StatusError is the cause attached to a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return http.StatusText(e.StatusCode)
	}
	return body
}

// BodyString returns the response body, indented when it is JSON.
func (e *StatusError) BodyString() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, e.Body, "", "  "); err == nil {
		return buf.String()
	}
	return string(e.Body)
}

// AsStatusError extracts the response status error from err, if any.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserHeader sets the header that identifies the acting user.
func WithUserHeader(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.userHeader = name
		}
	}
}

// WithRateLimit paces requests to at most rps per second with the given
// burst. Zero rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Client talks to one environment of the content API.
type Client struct {
	baseURL    string
	apiURL     string
	http       *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	userHeader string
}

// New creates a client for the server at baseURL. Versioned endpoints live
// under <baseURL>/api/v1.
func New(baseURL string, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	c := &Client{
		baseURL:    base,
		apiURL:     base + "/api/v1",
		http:       &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		userHeader: DefaultUserHeader,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

type request struct {
	method string
	url    string
	query  url.Values
	userID string
	body   any
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return herrors.HTTPTransport(r.method, r.url, err)
		}
	}

	target := r.url
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", r.method, r.url, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return herrors.HTTPTransport(r.method, target, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.userID != "" {
		req.Header.Set(c.userHeader, r.userID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return herrors.HTTPTransport(r.method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return herrors.HTTPTransport(r.method, target, err)
	}

	c.logger.Debug("api request",
		"method", r.method,
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return herrors.HTTPStatus(r.method, target, resp.StatusCode, &StatusError{
			Method:     r.method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       data,
		})
	}

	switch v := out.(type) {
	case nil:
		return nil
	case *string:
		*v = string(data)
		return nil
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return herrors.HTTPDecode(r.method, target, err)
		}
		return nil
	}
}

func (c *Client) api(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.apiURL + "/" + strings.Join(escaped, "/")
}

func limitQuery(limit int) url.Values {
	return url.Values{"limit": []string{strconv.Itoa(limit)}}
}

// Root calls GET / on the server root.
func (c *Client) Root(ctx context.Context) (*RootResponse, error) {
	var out RootResponse
	if err := c.do(ctx, request{method: http.MethodGet, url: c.baseURL + "/"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(ctx, request{method: http.MethodGet, url: c.baseURL + "/health"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePool creates a pool and returns its id.
func (c *Client) CreatePool(ctx context.Context, in CreatePoolRequest) (types.PoolID, error) {
	u := c.api("pools")
	var out struct {
		PoolID types.PoolID `json:"pool_id"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, url: u, body: in}, &out); err != nil {
		return "", err
	}
	if out.PoolID == "" {
		return "", herrors.HTTPDecode(http.MethodPost, u, errors.New("response has no pool_id"))
	}
	return out.PoolID, nil
}

// GetPool fetches a pool.
func (c *Client) GetPool(ctx context.Context, id types.PoolID) (*Pool, error) {
	var out Pool
	if err := c.do(ctx, request{method: http.MethodGet, url: c.api("pools", string(id))}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStream creates a stream in a pool and returns its id.
func (c *Client) CreateStream(ctx context.Context, in CreateStreamRequest) (types.StreamID, error) {
	u := c.api("streams")
	var out struct {
		StreamID types.StreamID `json:"stream_id"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, url: u, body: in}, &out); err != nil {
		return "", err
	}
	if out.StreamID == "" {
		return "", herrors.HTTPDecode(http.MethodPost, u, errors.New("response has no stream_id"))
	}
	return out.StreamID, nil
}

// GetStream fetches a stream.
func (c *Client) GetStream(ctx context.Context, id types.StreamID) (*Stream, error) {
	var out Stream
	if err := c.do(ctx, request{method: http.MethodGet, url: c.api("streams", string(id))}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddDrops appends drops to a stream. Placement ids are returned when the
// server includes them.
func (c *Client) AddDrops(ctx context.Context, streamID types.StreamID, in AddDropsRequest) ([]DropRef, error) {
	var out struct {
		Drops []DropRef `json:"drops"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, url: c.api("streams", string(streamID), "drops"), body: in}, &out); err != nil {
		return nil, err
	}
	return out.Drops, nil
}

// ListDrops fetches up to limit drops of a stream.
func (c *Client) ListDrops(ctx context.Context, streamID types.StreamID, limit int) (*DropPage, error) {
	var out DropPage
	r := request{method: http.MethodGet, url: c.api("streams", string(streamID), "drops"), query: limitQuery(limit)}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDrop fetches a drop.
func (c *Client) GetDrop(ctx context.Context, id types.DropID) (*Drop, error) {
	var out Drop
	if err := c.do(ctx, request{method: http.MethodGet, url: c.api("drops", string(id))}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserRiver fetches the activity feed of a user.
func (c *Client) UserRiver(ctx context.Context, userID string, limit int) (*UserRiver, error) {
	var out UserRiver
	r := request{method: http.MethodGet, url: c.api("user", "river"), query: limitQuery(limit), userID: userID}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProgress records that a user reached a placement.
func (c *Client) UpdateProgress(ctx context.Context, userID string, in ProgressUpdate) error {
	return c.do(ctx, request{method: http.MethodPost, url: c.api("user", "progress"), userID: userID, body: in}, nil)
}

// SessionSync fetches the session summary of a user.
func (c *Client) SessionSync(ctx context.Context, userID string) (*SessionSync, error) {
	var out SessionSync
	if err := c.do(ctx, request{method: http.MethodGet, url: c.api("user", "session-sync"), userID: userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PoolRiver fetches the river feed of a pool as seen by a user.
func (c *Client) PoolRiver(ctx context.Context, userID string, poolID types.PoolID, limit int) (*PoolRiver, error) {
	var out PoolRiver
	r := request{method: http.MethodGet, url: c.api("pools", string(poolID), "river"), query: limitQuery(limit), userID: userID}
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearLogs empties the server's in-memory diagnostic log.
func (c *Client) ClearLogs(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodDelete, url: c.baseURL + "/logs/clear"}, nil)
}

// Logs returns the server's in-memory diagnostic log as text.
func (c *Client) Logs(ctx context.Context) (string, error) {
	var out string
	if err := c.do(ctx, request{method: http.MethodGet, url: c.baseURL + "/logs"}, &out); err != nil {
		return "", err
	}
	return out, nil
}

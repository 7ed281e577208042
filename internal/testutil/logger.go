package testutil

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogger captures structured logs for assertion in tests.
type TestLogger struct {
	Logger *slog.Logger

	mu      sync.RWMutex
	entries []LogEntry
}

// LogEntry represents a captured log entry.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// NewTestLogger creates a logger that captures every entry at debug and above.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()
	tl := &TestLogger{}
	tl.Logger = slog.New(&captureHandler{sink: tl})
	return tl
}

// captureHandler records entries into its sink, flattening groups into
// dotted attribute keys.
type captureHandler struct {
	sink  *TestLogger
	attrs []slog.Attr
	group string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   make(map[string]any, len(h.attrs)+r.NumAttrs()),
	}
	for _, a := range h.attrs {
		entry.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attrs[h.key(a.Key)] = a.Value.Any()
		return true
	})

	h.sink.mu.Lock()
	h.sink.entries = append(h.sink.entries, entry)
	h.sink.mu.Unlock()
	return nil
}

func (h *captureHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &captureHandler{sink: h.sink, group: h.group}
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return next
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{sink: h.sink, attrs: h.attrs, group: h.key(name)}
}

// Entries returns a copy of all captured log entries.
func (l *TestLogger) Entries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]LogEntry(nil), l.entries...)
}

// EntriesOfLevel returns entries at a specific level.
func (l *TestLogger) EntriesOfLevel(level slog.Level) []LogEntry {
	var result []LogEntry
	for _, e := range l.Entries() {
		if e.Level == level {
			result = append(result, e)
		}
	}
	return result
}

// EntriesContaining returns entries whose message contains a substring.
func (l *TestLogger) EntriesContaining(substring string) []LogEntry {
	var result []LogEntry
	for _, e := range l.Entries() {
		if strings.Contains(e.Message, substring) {
			result = append(result, e)
		}
	}
	return result
}

// CountLevel returns the count of entries at a specific level.
func (l *TestLogger) CountLevel(level slog.Level) int {
	return len(l.EntriesOfLevel(level))
}

// AssertContains asserts that at least one log entry contains the message.
func (l *TestLogger) AssertContains(t *testing.T, msg string) {
	t.Helper()
	if len(l.EntriesContaining(msg)) == 0 {
		t.Errorf("Expected log to contain message %q, but it wasn't found", msg)
	}
}

// AssertNotContains asserts that no log entry contains the message.
func (l *TestLogger) AssertNotContains(t *testing.T, msg string) {
	t.Helper()
	if n := len(l.EntriesContaining(msg)); n > 0 {
		t.Errorf("Expected log to not contain message %q, but found %d entries", msg, n)
	}
}

// AssertLevel asserts that there are exactly count entries at the given level.
func (l *TestLogger) AssertLevel(t *testing.T, level slog.Level, count int) {
	t.Helper()
	if actual := l.CountLevel(level); actual != count {
		t.Errorf("Expected %d entries at level %s, got %d", count, level, actual)
	}
}

// AssertWarnContains asserts that a warning entry contains the message.
func (l *TestLogger) AssertWarnContains(t *testing.T, msg string) {
	t.Helper()
	for _, e := range l.EntriesOfLevel(slog.LevelWarn) {
		if strings.Contains(e.Message, msg) {
			return
		}
	}
	t.Errorf("Expected a warning containing %q, but none found", msg)
}

// AssertAttrValue asserts that at least one entry has the attribute with the given value.
func (l *TestLogger) AssertAttrValue(t *testing.T, key string, value any) {
	t.Helper()
	for _, e := range l.Entries() {
		if v, ok := e.Attrs[key]; ok && v == value {
			return
		}
	}
	t.Errorf("Expected at least one log entry with %s=%v", key, value)
}

// DiscardLogger returns a logger that discards all output.
// Use this for tests that don't need to verify logging.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError + 100,
	}))
}

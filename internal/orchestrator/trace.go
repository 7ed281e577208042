package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wisdom-pool/poolcheck/internal/types"
)

// TraceAction represents the type of action being traced.
type TraceAction string

const (
	TraceActionStart    TraceAction = "start"    // Invocation start
	TraceActionProbe    TraceAction = "probe"    // Root or health check passed
	TraceActionSkip     TraceAction = "skip"     // Step not pending
	TraceActionComplete TraceAction = "complete" // Step executed and checkpointed
	TraceActionError    TraceAction = "error"    // Run aborted
	TraceActionFinish   TraceAction = "finish"   // All steps done
)

// TraceEntry represents a single trace log entry.
type TraceEntry struct {
	Timestamp time.Time      `json:"ts"`
	Action    TraceAction    `json:"action"`
	Env       string         `json:"env,omitempty"`
	Step      string         `json:"step,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// TracerInterface records what each invocation did, step by step.
type TracerInterface interface {
	LogStart(fresh bool, last types.StepTag) error
	LogProbe(name string) error
	LogSkip(step types.StepTag, reason string) error
	LogComplete(step types.StepTag) error
	LogError(phase string, err error) error
	LogFinish() error
	Close() error
}

// Tracer appends trace entries to a JSONL file.
type Tracer struct {
	mu   sync.Mutex
	file *os.File
	path string
	env  string
}

// NewTracer opens (or creates) the trace file at path for appending.
func NewTracer(path, env string) (*Tracer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}

	return &Tracer{file: file, path: path, env: env}, nil
}

// Close closes the trace file.
func (t *Tracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file != nil {
		err := t.file.Close()
		t.file = nil
		return err
	}
	return nil
}

// Path returns the trace file path.
func (t *Tracer) Path() string {
	return t.path
}

// Log writes a trace entry to the file.
func (t *Tracer) Log(entry TraceEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return fmt.Errorf("trace file %s is closed", t.path)
	}

	entry.Timestamp = time.Now()
	if entry.Env == "" {
		entry.Env = t.env
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling trace entry: %w", err)
	}
	if _, err := t.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing trace entry: %w", err)
	}
	return nil
}

// LogStart traces the start of an invocation.
func (t *Tracer) LogStart(fresh bool, last types.StepTag) error {
	return t.Log(TraceEntry{
		Action:  TraceActionStart,
		Details: map[string]any{"fresh": fresh, "last_step": last.String()},
	})
}

// LogProbe traces a passed preliminary check.
func (t *Tracer) LogProbe(name string) error {
	return t.Log(TraceEntry{Action: TraceActionProbe, Step: name})
}

// LogSkip traces a step that was not pending.
func (t *Tracer) LogSkip(step types.StepTag, reason string) error {
	return t.Log(TraceEntry{
		Action:  TraceActionSkip,
		Step:    string(step),
		Details: map[string]any{"reason": reason},
	})
}

// LogComplete traces an executed and checkpointed step.
func (t *Tracer) LogComplete(step types.StepTag) error {
	return t.Log(TraceEntry{Action: TraceActionComplete, Step: string(step)})
}

// LogError traces the error that aborted the run.
func (t *Tracer) LogError(phase string, err error) error {
	return t.Log(TraceEntry{
		Action: TraceActionError,
		Step:   phase,
		Error:  err.Error(),
	})
}

// LogFinish traces a run that reached the end of the sequence.
func (t *Tracer) LogFinish() error {
	return t.Log(TraceEntry{Action: TraceActionFinish})
}

var (
	_ TracerInterface = (*Tracer)(nil)
	_ TracerInterface = (*NullTracer)(nil)
)

// NullTracer is a tracer that discards all entries.
type NullTracer struct{}

func (n *NullTracer) LogStart(_ bool, _ types.StepTag) error  { return nil }
func (n *NullTracer) LogProbe(_ string) error                 { return nil }
func (n *NullTracer) LogSkip(_ types.StepTag, _ string) error { return nil }
func (n *NullTracer) LogComplete(_ types.StepTag) error       { return nil }
func (n *NullTracer) LogError(_ string, _ error) error        { return nil }
func (n *NullTracer) LogFinish() error                        { return nil }
func (n *NullTracer) Close() error                            { return nil }

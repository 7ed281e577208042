package orchestrator

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wisdom-pool/poolcheck/internal/types"
)

func readTrace(t *testing.T, path string) []TraceEntry {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open trace file: %v", err)
	}
	defer file.Close()

	var entries []TraceEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry TraceEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("failed to parse trace entry: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestTracer_WritesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "run.jsonl")

	tracer, err := NewTracer(path, "test")
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}

	tracer.LogStart(true, types.StepNone)
	tracer.LogProbe(PhaseRoot)
	tracer.LogSkip(types.StepCreatePool, "already created")
	tracer.LogComplete(types.StepValidatePool)
	tracer.LogError(string(types.StepCreateStream), errors.New("boom"))
	tracer.LogFinish()

	if err := tracer.Close(); err != nil {
		t.Fatalf("failed to close tracer: %v", err)
	}

	entries := readTrace(t, path)
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}

	want := []TraceAction{
		TraceActionStart,
		TraceActionProbe,
		TraceActionSkip,
		TraceActionComplete,
		TraceActionError,
		TraceActionFinish,
	}
	for i, action := range want {
		if entries[i].Action != action {
			t.Errorf("entry %d: expected action %s, got %s", i, action, entries[i].Action)
		}
		if entries[i].Env != "test" {
			t.Errorf("entry %d: expected env test, got %q", i, entries[i].Env)
		}
		if entries[i].Timestamp.IsZero() {
			t.Errorf("entry %d: timestamp not set", i)
		}
	}

	if entries[0].Details["last_step"] != "initial" {
		t.Errorf("expected last_step initial, got %v", entries[0].Details["last_step"])
	}
	if entries[0].Details["fresh"] != true {
		t.Errorf("expected fresh true, got %v", entries[0].Details["fresh"])
	}
	if entries[2].Step != "create_pool" || entries[2].Details["reason"] != "already created" {
		t.Errorf("unexpected skip entry: %+v", entries[2])
	}
	if entries[4].Error != "boom" || entries[4].Step != "create_stream" {
		t.Errorf("unexpected error entry: %+v", entries[4])
	}
}

func TestTracer_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")

	for i := 0; i < 2; i++ {
		tracer, err := NewTracer(path, "local")
		if err != nil {
			t.Fatalf("failed to create tracer: %v", err)
		}
		tracer.LogFinish()
		tracer.Close()
	}

	if got := len(readTrace(t, path)); got != 2 {
		t.Errorf("expected 2 entries across invocations, got %d", got)
	}
}

func TestTracer_LogAfterClose(t *testing.T) {
	tracer, err := NewTracer(filepath.Join(t.TempDir(), "run.jsonl"), "test")
	if err != nil {
		t.Fatalf("failed to create tracer: %v", err)
	}
	tracer.Close()

	if err := tracer.LogFinish(); err == nil {
		t.Error("expected error logging to a closed tracer")
	}
	if err := tracer.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestNullTracer(t *testing.T) {
	var tracer TracerInterface = &NullTracer{}

	if err := tracer.LogStart(false, types.StepAddDrops); err != nil {
		t.Errorf("LogStart: %v", err)
	}
	if err := tracer.LogError("setup", errors.New("x")); err != nil {
		t.Errorf("LogError: %v", err)
	}
	if err := tracer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

package status

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/wisdom-pool/poolcheck/internal/types"
)

func inProgressSummary() *Summary {
	s := types.NewWorkflowState("user_c", "user_u")
	s.PoolID = types.Some(types.PoolID("pool-1"))
	s.StreamID = types.Some(types.StreamID("stream-1"))
	s.SetDropRecords([]types.DropRecord{
		{DropID: "d1", PlacementID: types.Some(types.PlacementID("pl-1"))},
		{DropID: "d2"},
	})
	s.Complete(types.StepAddDrops)
	return NewSummary("test", "/w/test_state.json", true, s)
}

func TestFormatSummary(t *testing.T) {
	output := FormatSummary(inProgressSummary(), FormatOptions{NoColor: true})

	for _, want := range []string{
		"Checkpoint: /w/test_state.json",
		"Env:        test",
		"● in_progress",
		"Pool:       pool-1",
		"Drops:      2",
		"  - d1 (placement: pl-1)",
		"  - d2 (placement: -)",
		"62% (5/8 steps)",
		"Last step:  add_drops",
		"Next step:  validate_drops",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output should contain %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "Steps:") {
		t.Error("step list should only appear with AllSteps")
	}
	if strings.Contains(output, "\033[") {
		t.Error("NoColor output should not contain escape codes")
	}
}

func TestFormatSummary_AllSteps(t *testing.T) {
	output := FormatSummary(inProgressSummary(), FormatOptions{NoColor: true, AllSteps: true})

	if !strings.Contains(output, "✓ create_pool") {
		t.Error("done step should be checked")
	}
	if !strings.Contains(output, "○ test_get_drops") {
		t.Error("pending step should be open")
	}
}

func TestFormatSummary_Colors(t *testing.T) {
	output := FormatSummary(inProgressSummary(), FormatOptions{})

	if !strings.Contains(output, "\033[33m") {
		t.Error("in-progress state should be yellow")
	}
}

func TestFormatSummary_Missing(t *testing.T) {
	summary := NewSummary("live", "/w/state.json", false, &types.WorkflowState{})
	output := FormatSummary(summary, FormatOptions{NoColor: true})

	if !strings.Contains(output, "no checkpoint, the next run starts fresh") {
		t.Errorf("unexpected output:\n%s", output)
	}
	if strings.Contains(output, "Progress:") {
		t.Error("missing checkpoint should not show progress")
	}
}

func TestFormatSummary_Complete(t *testing.T) {
	s := types.NewWorkflowState("user_c", "user_u")
	s.PoolID = types.Some(types.PoolID("pool-1"))
	s.StreamID = types.Some(types.StreamID("stream-1"))
	s.SetDropRecords([]types.DropRecord{{DropID: "d1"}})
	s.Complete(types.StepTestGetDrops)

	output := FormatSummary(NewSummary("test", "/w/s.json", true, s), FormatOptions{NoColor: true})

	if !strings.Contains(output, "Next step:  none, all steps done") {
		t.Errorf("unexpected output:\n%s", output)
	}
	if !strings.Contains(output, "100% (8/8 steps)") {
		t.Errorf("unexpected output:\n%s", output)
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON(inProgressSummary())
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["next_step"] != "validate_drops" {
		t.Errorf("expected next_step validate_drops, got %v", decoded["next_step"])
	}
	if decoded["state"] != "in_progress" {
		t.Errorf("expected state in_progress, got %v", decoded["state"])
	}
	drops, ok := decoded["drops"].([]any)
	if !ok || len(drops) != 2 {
		t.Fatalf("expected 2 drops, got %v", decoded["drops"])
	}
	if _, has := drops[1].(map[string]any)["placement_id"]; has {
		t.Error("unknown placement should be omitted")
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("output should end with a newline")
	}
}

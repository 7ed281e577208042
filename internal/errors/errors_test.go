package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestHarnessError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *HarnessError
		want string
	}{
		{
			name: "placement without cause",
			err:  PlacementUnresolved("d2"),
			want: "[PLACEMENT_001] could not determine placement_id for drop d2",
		},
		{
			name: "checkpoint write with cause",
			err:  StateWriteError("/w/test_state.json", errors.New("disk full")),
			want: "[STATE_001] failed to save checkpoint: disk full",
		},
		{
			name: "transport failure",
			err:  HTTPTransport("GET", "http://localhost:8000/health", errors.New("connection refused")),
			want: "[HTTP_001] GET http://localhost:8000/health failed: connection refused",
		},
		{
			name: "unknown environment",
			err:  ConfigUnknownEnvironment("staging", []string{"live", "test"}),
			want: `[CONFIG_003] unknown environment "staging"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHarnessError_Unwrap(t *testing.T) {
	cause := errors.New("rename failed")
	err := StateWriteError("/w/test_state.json", cause)

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
	if !errors.Is(fmt.Errorf("step add_drops: %w", err), cause) {
		t.Error("errors.Is should reach the cause through a wrapped HarnessError")
	}
}

func TestHarnessError_WithDetail(t *testing.T) {
	err := WorkflowInconsistent("test_user_progress", "no drops recorded").
		WithDetail("stream_id", "s1")

	if err.Details["step"] != "test_user_progress" {
		t.Errorf("details.step = %v, want test_user_progress", err.Details["step"])
	}
	if err.Details["reason"] != "no drops recorded" {
		t.Errorf("details.reason = %v", err.Details["reason"])
	}
	if err.Details["stream_id"] != "s1" {
		t.Errorf("details.stream_id = %v, want s1", err.Details["stream_id"])
	}
}

func TestHarnessError_WithCause(t *testing.T) {
	cause := errors.New("eof")
	err := New(CodeHTTPDecode, "decoding response").WithCause(cause)

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
}

func TestHarnessError_MarshalJSON(t *testing.T) {
	err := HTTPStatus("POST", "http://x/api/v1/pools", 422, errors.New(`{"detail":"bad pool"}`))

	data, jsonErr := json.Marshal(err)
	if jsonErr != nil {
		t.Fatalf("Marshal failed: %v", jsonErr)
	}

	var result map[string]any
	if jsonErr := json.Unmarshal(data, &result); jsonErr != nil {
		t.Fatalf("Unmarshal failed: %v", jsonErr)
	}

	if result["code"] != CodeHTTPStatus {
		t.Errorf("code = %v, want %s", result["code"], CodeHTTPStatus)
	}
	if result["message"] != "POST http://x/api/v1/pools returned 422" {
		t.Errorf("message = %v", result["message"])
	}
	if result["cause"] != `{"detail":"bad pool"}` {
		t.Errorf("cause = %v", result["cause"])
	}
	details, ok := result["details"].(map[string]any)
	if !ok {
		t.Fatalf("details not a map")
	}
	// JSON numbers decode as float64.
	if details["status"] != float64(422) {
		t.Errorf("details.status = %v, want 422", details["status"])
	}
}

func TestHarnessError_MarshalJSON_NoCause(t *testing.T) {
	data, err := json.Marshal(IOFileNotFound("fixtures.yaml"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := result["cause"]; ok {
		t.Errorf("cause should be omitted, got %v", result["cause"])
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CodeConfigInvalidValue, "limit is %d", 0)
	if err.Code != CodeConfigInvalidValue {
		t.Errorf("Code = %s, want %s", err.Code, CodeConfigInvalidValue)
	}
	if err.Message != "limit is 0" {
		t.Errorf("Message = %s, want 'limit is 0'", err.Message)
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrapf(CodeIOReadError, cause, "reading %s", "seed.yaml")

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Message != "reading seed.yaml" {
		t.Errorf("Message = %s, want 'reading seed.yaml'", err.Message)
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"harness error", PlacementUnresolved("d1"), CodePlacementUnresolved},
		{"wrapped by a step", fmt.Errorf("step validate_pool: %w", HTTPStatus("GET", "http://x", 404, nil)), CodeHTTPStatus},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFactoryFunctions(t *testing.T) {
	tests := []struct {
		name     string
		err      *HarnessError
		wantCode string
	}{
		{"ConfigMissingField", ConfigMissingField("paths.state_file"), CodeConfigMissingField},
		{"ConfigInvalidValue", ConfigInvalidValue("workflow.river_limit", 0, "must be positive"), CodeConfigInvalidValue},
		{"ConfigUnknownEnvironment", ConfigUnknownEnvironment("staging", []string{"live", "test"}), CodeConfigUnknownEnv},
		{"HTTPTransport", HTTPTransport("GET", "http://x/health", errors.New("refused")), CodeHTTPTransport},
		{"HTTPStatus", HTTPStatus("POST", "http://x/pools", 500, errors.New("boom")), CodeHTTPStatus},
		{"HTTPDecode", HTTPDecode("GET", "http://x/", errors.New("eof")), CodeHTTPDecode},
		{"PlacementUnresolved", PlacementUnresolved("d1"), CodePlacementUnresolved},
		{"WorkflowInconsistent", WorkflowInconsistent("validate_pool", "no pool recorded"), CodeWorkflowInconsistent},
		{"StateWriteError", StateWriteError("/state.json", errors.New("err")), CodeStateWriteError},
		{"StateDeleteError", StateDeleteError("/state.json", errors.New("err")), CodeStateDeleteError},
		{"IOFileNotFound", IOFileNotFound("/fixture.yaml"), CodeIOFileNotFound},
		{"IOReadError", IOReadError("/fixture.yaml", errors.New("err")), CodeIOReadError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestHTTPStatusDetails(t *testing.T) {
	err := HTTPStatus("GET", "http://x/pools/p1", 404, errors.New("not found"))
	if err.Details["status"] != 404 {
		t.Errorf("details.status = %v, want 404", err.Details["status"])
	}
	if err.Details["method"] != "GET" {
		t.Errorf("details.method = %v, want GET", err.Details["method"])
	}
	want := "[HTTP_002] GET http://x/pools/p1 returned 404: not found"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigErrorDetails(t *testing.T) {
	err := ConfigInvalidValue("client.rate_limit", -1.0, "must not be negative")
	if err.Details["field"] != "client.rate_limit" {
		t.Errorf("details.field = %v", err.Details["field"])
	}
	if err.Details["value"] != -1.0 {
		t.Errorf("details.value = %v, want -1", err.Details["value"])
	}

	env := ConfigUnknownEnvironment("staging", []string{"live", "test"})
	known, ok := env.Details["known"].([]string)
	if !ok || len(known) != 2 {
		t.Errorf("details.known = %v, want [live test]", env.Details["known"])
	}
}

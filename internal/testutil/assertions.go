package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// AssertEqual asserts that two values are equal.
func AssertEqual(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		msg := formatMessage("Expected values to be equal", msgAndArgs...)
		t.Errorf("%s\nExpected: %v\nActual: %v", msg, expected, actual)
	}
}

// AssertNotEqual asserts that two values are not equal.
func AssertNotEqual(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if reflect.DeepEqual(expected, actual) {
		msg := formatMessage("Expected values to be different", msgAndArgs...)
		t.Errorf("%s\nBoth values: %v", msg, actual)
	}
}

// AssertError asserts that an error is not nil.
func AssertError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		msg := formatMessage("Expected an error", msgAndArgs...)
		t.Errorf("%s", msg)
	}
}

// AssertNoError asserts that an error is nil.
func AssertNoError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		msg := formatMessage("Expected no error", msgAndArgs...)
		t.Errorf("%s\nError: %v", msg, err)
	}
}

// AssertErrorContains asserts that an error contains a substring.
func AssertErrorContains(t *testing.T, err error, substring string, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		msg := formatMessage("Expected an error containing "+substring, msgAndArgs...)
		t.Errorf("%s\nGot: nil", msg)
		return
	}
	if !strings.Contains(err.Error(), substring) {
		msg := formatMessage("Expected error to contain substring", msgAndArgs...)
		t.Errorf("%s\nSubstring: %q\nError: %v", msg, substring, err)
	}
}

// AssertTrue asserts that a value is true.
func AssertTrue(t *testing.T, value bool, msgAndArgs ...any) {
	t.Helper()
	if !value {
		msg := formatMessage("Expected true", msgAndArgs...)
		t.Errorf("%s", msg)
	}
}

// AssertFalse asserts that a value is false.
func AssertFalse(t *testing.T, value bool, msgAndArgs ...any) {
	t.Helper()
	if value {
		msg := formatMessage("Expected false", msgAndArgs...)
		t.Errorf("%s", msg)
	}
}

// AssertContains asserts that a string contains a substring.
func AssertContains(t *testing.T, s, substring string, msgAndArgs ...any) {
	t.Helper()
	if !strings.Contains(s, substring) {
		msg := formatMessage("Expected string to contain substring", msgAndArgs...)
		t.Errorf("%s\nString: %q\nSubstring: %q", msg, s, substring)
	}
}

// AssertNotContains asserts that a string does not contain a substring.
func AssertNotContains(t *testing.T, s, substring string, msgAndArgs ...any) {
	t.Helper()
	if strings.Contains(s, substring) {
		msg := formatMessage("Expected string to not contain substring", msgAndArgs...)
		t.Errorf("%s\nString: %q\nSubstring: %q", msg, s, substring)
	}
}

// AssertLen asserts that a collection has the expected length.
func AssertLen(t *testing.T, collection any, expectedLen int, msgAndArgs ...any) {
	t.Helper()
	actualLen := reflect.ValueOf(collection).Len()
	if actualLen != expectedLen {
		msg := formatMessage("Expected length mismatch", msgAndArgs...)
		t.Errorf("%s\nExpected: %d\nActual: %d", msg, expectedLen, actualLen)
	}
}

// AssertEmpty asserts that a collection is empty.
func AssertEmpty(t *testing.T, collection any, msgAndArgs ...any) {
	t.Helper()
	v := reflect.ValueOf(collection)
	if v.Len() != 0 {
		msg := formatMessage("Expected empty collection", msgAndArgs...)
		t.Errorf("%s\nLength: %d", msg, v.Len())
	}
}

// Domain assertions

// AssertErrorCode asserts that err carries the given error code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected error with code %s, got nil", code)
		return
	}
	if got := herrors.Code(err); got != code {
		t.Errorf("Expected error code %s, got %q\nError: %v", code, got, err)
	}
}

// AssertLastStep asserts the cursor of a workflow state.
func AssertLastStep(t *testing.T, state *types.WorkflowState, expected types.StepTag) {
	t.Helper()
	if state.LastStep != expected {
		t.Errorf("Expected last step %s, got %s", expected, state.LastStep)
	}
}

// AssertPlacement asserts that a drop has the given resolved placement.
func AssertPlacement(t *testing.T, state *types.WorkflowState, dropID types.DropID, expected types.PlacementID) {
	t.Helper()
	got, ok := state.PlacementFor(dropID)
	if !ok {
		t.Errorf("Expected drop %s to have placement %s, it has none", dropID, expected)
		return
	}
	if got != expected {
		t.Errorf("Expected drop %s placement %s, got %s", dropID, expected, got)
	}
}

// File-related assertions

// AssertFileExists asserts that a file exists.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file %s to exist", path)
	}
}

// AssertFileNotExists asserts that a file does not exist.
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file %s to not exist", path)
	}
}

// AssertFileContains asserts that a file contains a substring.
func AssertFileContains(t *testing.T, path, substring string) {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("Failed to read file %s: %v", path, err)
		return
	}
	if !strings.Contains(string(content), substring) {
		t.Errorf("Expected file %s to contain %q", path, substring)
	}
}

// JSON assertions

// AssertJSONContainsKey asserts that a JSON object contains a key.
func AssertJSONContainsKey(t *testing.T, jsonStr, key string) {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &m); err != nil {
		t.Errorf("Failed to parse JSON: %v", err)
		return
	}
	if _, exists := m[key]; !exists {
		t.Errorf("Expected JSON to contain key %q", key)
	}
}

// Helper functions

// formatMessage returns the caller's message, or defaultMsg when none was
// given. Callers format their own messages.
func formatMessage(defaultMsg string, msgAndArgs ...any) string {
	if len(msgAndArgs) == 0 {
		return defaultMsg
	}
	return fmt.Sprintf("%v", msgAndArgs[0])
}

// isNil checks if a value is nil, handling interface nil properly.
func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// RequireEqual is like AssertEqual but fails the test immediately.
func RequireEqual(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		msg := formatMessage("Expected values to be equal", msgAndArgs...)
		t.Fatalf("%s\nExpected: %v\nActual: %v", msg, expected, actual)
	}
}

// RequireNoError is like AssertNoError but fails the test immediately.
func RequireNoError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		msg := formatMessage("Expected no error", msgAndArgs...)
		t.Fatalf("%s\nError: %v", msg, err)
	}
}

// RequireNotNil is like AssertNotNil but fails the test immediately.
func RequireNotNil(t *testing.T, value any, msgAndArgs ...any) {
	t.Helper()
	if isNil(value) {
		msg := formatMessage("Expected non-nil value", msgAndArgs...)
		t.Fatalf("%s", msg)
	}
}

// RequireFile creates a file with content and fails immediately if it can't.
func RequireFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

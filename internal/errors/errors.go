// Package errors provides structured error types for poolcheck.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes for poolcheck operations.
const (
	// Config errors
	CodeConfigMissingField = "CONFIG_001" // Missing required field
	CodeConfigInvalidValue = "CONFIG_002" // Invalid value type
	CodeConfigUnknownEnv   = "CONFIG_003" // Environment not defined

	// Remote API errors
	CodeHTTPTransport = "HTTP_001" // Connection, timeout or read failure
	CodeHTTPStatus    = "HTTP_002" // Non-2xx response
	CodeHTTPDecode    = "HTTP_003" // Response body could not be decoded

	// Placement errors
	CodePlacementUnresolved = "PLACEMENT_001" // No placement after refresh

	// Workflow errors
	CodeWorkflowInconsistent = "WORKFLOW_001" // Checkpoint or server data contradicts the step

	// Checkpoint errors
	CodeStateWriteError  = "STATE_001" // Checkpoint could not be persisted
	CodeStateDeleteError = "STATE_002" // Checkpoint could not be removed

	// IO errors
	CodeIOFileNotFound = "IO_001" // File not found
	CodeIOReadError    = "IO_004" // Read error
)

// HarnessError is the structured error type for poolcheck operations.
type HarnessError struct {
	Code    string         `json:"code"`              // Error code (e.g., "HTTP_002")
	Message string         `json:"message"`           // Human-readable message
	Details map[string]any `json:"details,omitempty"` // Context (step, drop_id, url, etc.)
	Cause   error          `json:"-"`                 // Wrapped error (not serialized)
}

// Error implements the error interface.
func (e *HarnessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *HarnessError) WithDetail(key string, value any) *HarnessError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *HarnessError) WithCause(err error) *HarnessError {
	e.Cause = err
	return e
}

// MarshalJSON implements json.Marshaler with cause error message.
func (e *HarnessError) MarshalJSON() ([]byte, error) {
	type alias HarnessError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new HarnessError.
func New(code, message string) *HarnessError {
	return &HarnessError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new HarnessError with formatted message.
func Newf(code, format string, args ...any) *HarnessError {
	return &HarnessError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a HarnessError.
func Wrap(code, message string, err error) *HarnessError {
	return &HarnessError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted HarnessError.
func Wrapf(code string, err error, format string, args ...any) *HarnessError {
	return &HarnessError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// --- Config Errors ---

// ConfigMissingField creates an error for missing config field.
func ConfigMissingField(field string) *HarnessError {
	return Newf(CodeConfigMissingField, "missing required config field: %s", field).
		WithDetail("field", field)
}

// ConfigInvalidValue creates an error for invalid config value.
func ConfigInvalidValue(field string, value any, reason string) *HarnessError {
	return Newf(CodeConfigInvalidValue, "invalid config value for %s: %s", field, reason).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

// ConfigUnknownEnvironment creates an error for an environment name with no entry.
func ConfigUnknownEnvironment(name string, known []string) *HarnessError {
	return Newf(CodeConfigUnknownEnv, "unknown environment %q", name).
		WithDetail("environment", name).
		WithDetail("known", known)
}

// --- Remote API Errors ---

// HTTPTransport creates an error for a request that never produced a response.
func HTTPTransport(method, url string, err error) *HarnessError {
	return Wrapf(CodeHTTPTransport, err, "%s %s failed", method, url).
		WithDetail("method", method).
		WithDetail("url", url)
}

// HTTPStatus creates an error for a non-2xx response.
func HTTPStatus(method, url string, status int, err error) *HarnessError {
	return Wrapf(CodeHTTPStatus, err, "%s %s returned %d", method, url, status).
		WithDetail("method", method).
		WithDetail("url", url).
		WithDetail("status", status)
}

// HTTPDecode creates an error for an unparseable response body.
func HTTPDecode(method, url string, err error) *HarnessError {
	return Wrapf(CodeHTTPDecode, err, "decoding response of %s %s", method, url).
		WithDetail("method", method).
		WithDetail("url", url)
}

// --- Placement Errors ---

// PlacementUnresolved creates an error for a drop whose placement is unknown
// even after refreshing from the server.
func PlacementUnresolved(dropID string) *HarnessError {
	return Newf(CodePlacementUnresolved, "could not determine placement_id for drop %s", dropID).
		WithDetail("drop_id", dropID)
}

// --- Workflow Errors ---

// WorkflowInconsistent creates an error for a step whose inputs are missing.
func WorkflowInconsistent(step, reason string) *HarnessError {
	return Newf(CodeWorkflowInconsistent, "step %s cannot run: %s", step, reason).
		WithDetail("step", step).
		WithDetail("reason", reason)
}

// --- Checkpoint Errors ---

// StateWriteError creates an error for a failed checkpoint save.
func StateWriteError(path string, err error) *HarnessError {
	return Wrap(CodeStateWriteError, "failed to save checkpoint", err).
		WithDetail("path", path)
}

// StateDeleteError creates an error for a failed checkpoint reset.
func StateDeleteError(path string, err error) *HarnessError {
	return Wrap(CodeStateDeleteError, "failed to delete checkpoint", err).
		WithDetail("path", path)
}

// --- IO Errors ---

// IOFileNotFound creates an error for missing file.
func IOFileNotFound(path string) *HarnessError {
	return Newf(CodeIOFileNotFound, "file not found: %s", path).
		WithDetail("path", path)
}

// IOReadError creates an error for read failures.
func IOReadError(path string, err error) *HarnessError {
	return Wrap(CodeIOReadError, "failed to read file", err).
		WithDetail("path", path)
}

// Code returns the error code if err is a HarnessError, empty string otherwise.
// It handles wrapped errors by unwrapping to find a HarnessError.
func Code(err error) string {
	var herr *HarnessError
	if errors.As(err, &herr) {
		return herr.Code
	}
	return ""
}

package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/wisdom-pool/poolcheck/internal/testutil"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

type stubLogs struct {
	text  string
	err   error
	calls int
}

func (s *stubLogs) Logs(context.Context) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestReporter_StatusError(t *testing.T) {
	fake := testutil.NewFakeContentAPI(t)
	fake.FailRoute(testutil.RouteGetPool, http.StatusNotFound)
	client := fake.Client()

	_, err := client.GetPool(context.Background(), "pool-x")
	testutil.RequireNotNil(t, err)
	stepErr := &StepError{Phase: "validate_pool", LastCompleted: types.StepCreatePool, Err: err}

	var out bytes.Buffer
	logs := &stubLogs{text: "line one\nline two\n"}
	NewReporter(&out, logs).Report(context.Background(), stepErr)

	got := out.String()
	testutil.AssertContains(t, got, "!!! An error occurred during step: 'validate_pool' (last completed: 'create_pool') !!!")
	testutil.AssertContains(t, got, "Response status code: 404")
	testutil.AssertContains(t, got, "Response body:")
	testutil.AssertContains(t, got, "==================== FETCHING SERVER LOGS ====================")
	testutil.AssertContains(t, got, "line one\nline two\n")
	testutil.AssertEqual(t, 1, logs.calls)
}

func TestReporter_PlainError(t *testing.T) {
	var out bytes.Buffer
	logs := &stubLogs{}
	NewReporter(&out, logs).Report(context.Background(), errors.New("config broke"))

	got := out.String()
	testutil.AssertContains(t, got, "step: 'unknown' (last completed: 'initial')")
	testutil.AssertContains(t, got, "Error: config broke")
	testutil.AssertNotContains(t, got, "Response status code")
	testutil.AssertEqual(t, 1, logs.calls)
}

func TestReporter_LogFetchFailure(t *testing.T) {
	var out bytes.Buffer
	logs := &stubLogs{err: errors.New("connection refused")}
	rep := NewReporter(&out, logs)

	err := rep.DumpLogs(context.Background())
	testutil.AssertError(t, err)
	testutil.AssertContains(t, out.String(), "Failed to fetch server logs: connection refused")
	testutil.AssertEqual(t, 1, strings.Count(out.String(), "FETCHING SERVER LOGS"))
}

func TestReporter_FakeServerLogs(t *testing.T) {
	fake := testutil.NewFakeContentAPI(t)
	client := fake.Client()
	ctx := context.Background()
	_, _ = client.Root(ctx)

	var out bytes.Buffer
	testutil.RequireNoError(t, NewReporter(&out, client).DumpLogs(ctx))

	testutil.AssertContains(t, out.String(), "GET /")
	testutil.AssertEqual(t, 1, fake.Calls(testutil.RouteLogs))
}

func TestStepError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &StepError{Phase: "add_drops", LastCompleted: types.StepValidateStream, Err: inner}

	testutil.AssertTrue(t, errors.Is(err, inner))
	testutil.AssertContains(t, err.Error(), "add_drops")
	testutil.AssertContains(t, err.Error(), "validate_stream")
}

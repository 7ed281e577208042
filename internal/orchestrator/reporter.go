package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wisdom-pool/poolcheck/internal/api"
	"github.com/wisdom-pool/poolcheck/internal/types"
)

// LogFetcher fetches the server's diagnostic history.
type LogFetcher interface {
	Logs(ctx context.Context) (string, error)
}

const logBannerTitle = " FETCHING SERVER LOGS "

// Reporter prints a failed run and the server's diagnostic history.
type Reporter struct {
	out  io.Writer
	logs LogFetcher
}

// NewReporter creates a reporter that prints to out.
func NewReporter(out io.Writer, logs LogFetcher) *Reporter {
	return &Reporter{out: out, logs: logs}
}

// Report prints err with the active step, the response status and body when
// the failure was a non-2xx answer, then dumps the server logs once.
func (p *Reporter) Report(ctx context.Context, err error) {
	phase, last := "unknown", types.StepNone
	var se *StepError
	if errors.As(err, &se) {
		phase, last = se.Phase, se.LastCompleted
		err = se.Err
	}

	fmt.Fprintf(p.out, "\n!!! An error occurred during step: '%s' (last completed: '%s') !!!\n", phase, last)
	fmt.Fprintf(p.out, "Error: %v\n", err)
	if status, ok := api.AsStatusError(err); ok {
		fmt.Fprintf(p.out, "Response status code: %d\n", status.StatusCode)
		fmt.Fprintf(p.out, "Response body: %s\n", strings.TrimSpace(status.BodyString()))
	}

	p.DumpLogs(ctx)
}

// DumpLogs fetches and prints the server logs between banners. A failed
// fetch is printed as a note and otherwise ignored.
func (p *Reporter) DumpLogs(ctx context.Context) error {
	side := strings.Repeat("=", 20)
	fmt.Fprintf(p.out, "\n%s%s%s\n", side, logBannerTitle, side)

	text, err := p.logs.Logs(ctx)
	if err != nil {
		fmt.Fprintf(p.out, "Failed to fetch server logs: %v\n", err)
		return err
	}
	fmt.Fprintln(p.out, strings.TrimRight(text, "\n"))
	fmt.Fprintf(p.out, "%s\n\n", strings.Repeat("=", 2*len(side)+len(logBannerTitle)))
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wisdom-pool/poolcheck/internal/checkpoint"
	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/orchestrator"
)

var (
	runLogs  bool
	runReset bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run or resume the workflow",
	Long: `Run the content workflow against the selected environment.

Steps already recorded in the checkpoint are skipped. On failure the step, the
server response and the server's logs are printed and the exit status is 1.

Examples:
  poolcheck run                 # resume against the default environment
  poolcheck run --live          # resume against the live server
  poolcheck run --reset         # forget the checkpoint and start fresh
  poolcheck run --logs          # only print the server logs`,
	RunE: runWorkflow,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&runLogs, "logs", false, "print the server logs and exit")
	cmd.Flags().BoolVar(&runReset, "reset", false, "delete the checkpoint before running")
	cmd.MarkFlagsMutuallyExclusive("logs", "reset")
}

// signalContext cancels when SIGINT or SIGTERM arrives.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nReceived shutdown signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	client := s.client()
	reporter := orchestrator.NewReporter(out, client)

	if runLogs {
		reporter.DumpLogs(ctx)
		return nil
	}

	store := checkpoint.NewFileStore(s.statePath(), s.logger)
	if runReset {
		ok, err := s.confirmReset(cmd, store.Path())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
		if err := store.Delete(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Checkpoint reset: %s\n", store.Path())
	}

	var tracer orchestrator.TracerInterface = &orchestrator.NullTracer{}
	if path := s.cfg.TraceFile(s.dir); path != "" {
		t, err := orchestrator.NewTracer(path, s.env)
		if err != nil {
			return err
		}
		tracer = t
	}
	defer tracer.Close()

	s.banner(out, "Running workflow")

	orch := orchestrator.New(client, store,
		orchestrator.WithOutput(out),
		orchestrator.WithLogger(s.logger),
		orchestrator.WithTracer(tracer),
		orchestrator.WithLimits(orchestrator.Limits{
			Refresh: s.cfg.Workflow.RefreshLimit,
			River:   s.cfg.Workflow.RiverLimit,
			List:    s.cfg.Workflow.ListLimit,
		}))

	if _, err := orch.Run(ctx); err != nil {
		s.logger.Error("workflow failed", "code", herrors.Code(err), "error", err)
		// An interrupt cancels ctx; the log dump still has to reach the server.
		reporter.Report(context.WithoutCancel(ctx), err)
		return &ExitError{Code: ExitWorkflowFailed}
	}
	return nil
}

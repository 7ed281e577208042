package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wisdom-pool/poolcheck/internal/checkpoint"
	"github.com/wisdom-pool/poolcheck/internal/status"
)

// Status command flags
var (
	statusJSON     bool
	statusAllSteps bool
	statusNoColor  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the checkpoint and the next step to run",
	Long: `Display what the checkpoint records for the selected environment and
which step the next run would start at. No request is sent to the server.

Examples:
  poolcheck status              # human-readable summary
  poolcheck status --all-steps  # include every step
  poolcheck status --json       # output as JSON`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&statusJSON, "json", "j", false, "Output as JSON")
	statusCmd.Flags().BoolVar(&statusAllSteps, "all-steps", false, "Show every step")
	statusCmd.Flags().BoolVar(&statusNoColor, "no-color", false, "Disable colors")
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	store := checkpoint.NewFileStore(s.statePath(), s.logger)
	summary := status.NewSummary(s.env, store.Path(), store.Exists(), store.Load(cmd.Context()))

	if statusJSON {
		out, err := status.FormatJSON(summary)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), status.FormatSummary(summary, status.FormatOptions{
		NoColor:  statusNoColor,
		AllSteps: statusAllSteps,
	}))
	return nil
}

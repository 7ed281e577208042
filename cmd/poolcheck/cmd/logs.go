package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wisdom-pool/poolcheck/internal/orchestrator"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print the server's diagnostic log",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		// A failed fetch is printed and is not an error.
		orchestrator.NewReporter(cmd.OutOrStdout(), s.client()).DumpLogs(cmd.Context())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
}

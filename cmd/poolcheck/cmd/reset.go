package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wisdom-pool/poolcheck/internal/checkpoint"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the checkpoint so the next run starts fresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		store := checkpoint.NewFileStore(s.statePath(), s.logger)
		if !store.Exists() {
			fmt.Fprintf(cmd.OutOrStdout(), "No checkpoint at %s\n", store.Path())
			return nil
		}
		ok, err := s.confirmReset(cmd, store.Path())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		if err := store.Delete(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint reset: %s\n", store.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

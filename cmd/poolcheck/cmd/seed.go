package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wisdom-pool/poolcheck/internal/api"
	"github.com/wisdom-pool/poolcheck/internal/config"
	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/seed"
)

var seedFixture string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create frontend test data",
	Long: `Create a pool of sample streams and drops and record a reading history
for the seed user, then read back the session and the pool river.

Seeding is not resumable: every invocation creates a new pool. The built-in
data set is used unless --fixture (or seed.fixture in the config) names a
YAML file.

Seeding targets seed.base_urls[env] when the config has an entry for the
environment; the default config points live seeding at the frontend host.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedFixture, "fixture", "", "YAML fixture file (default: built-in data)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	s, err := newSessionFor((*config.Config).SeedEnvironment)
	if err != nil {
		return err
	}
	defer s.Close()

	path := seedFixture
	if path == "" {
		path = s.cfg.SeedFixture(s.dir)
	}
	var fx *seed.Fixture
	if path != "" {
		fx, err = seed.LoadFixture(path)
	} else {
		fx, err = seed.DefaultFixture()
	}
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	s.banner(out, "Setting up test data")

	seeder := seed.New(s.client(), s.cfg.Seed.CreatorID, s.cfg.Seed.UserID,
		seed.WithOutput(out),
		seed.WithLogger(s.logger),
		seed.WithRefreshLimit(s.cfg.Workflow.RefreshLimit))

	if _, err := seeder.Run(ctx, fx); err != nil {
		s.logger.Error("seeding failed", "code", herrors.Code(err), "error", err)
		printSeedError(out, err)
		return &ExitError{Code: ExitWorkflowFailed}
	}
	return nil
}

func printSeedError(w io.Writer, err error) {
	fmt.Fprintf(w, "\n!!! Error occurred: %v\n", err)
	if status, ok := api.AsStatusError(err); ok {
		fmt.Fprintf(w, "Response status code: %d\n", status.StatusCode)
		fmt.Fprintf(w, "Response body: %s\n", strings.TrimSpace(status.BodyString()))
	}
}

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wisdom-pool/poolcheck/internal/api"
	"github.com/wisdom-pool/poolcheck/internal/cli"
	"github.com/wisdom-pool/poolcheck/internal/config"
	"github.com/wisdom-pool/poolcheck/internal/logging"
)

// Exit codes
const (
	ExitSuccess        = 0
	ExitWorkflowFailed = 1
	ExitSetup          = 2
)

// ExitError represents an error with a specific exit code. An empty Message
// means the failure has already been reported.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Message
}

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	verbose   bool
	workDir   string
	envName   string
	live      bool
	stateFile string
	assumeYes bool
)

var rootCmd = &cobra.Command{
	Use:   "poolcheck",
	Short: "Resumable integration harness for the Wisdom Pool content API",
	Long: `poolcheck drives a running Wisdom Pool server through a fixed sequence of
content operations and checks the results.

Progress is checkpointed after every step. Re-running continues from the last
successful step without recreating the pool, stream or drops it already made.
Delete the checkpoint (poolcheck reset, or run --reset) to start over.

With no subcommand, poolcheck runs the workflow.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWorkflow,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", "", "working directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "target environment (default: config default_env)")
	rootCmd.PersistentFlags().BoolVar(&live, "live", false, "target the live environment (same as --env live)")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state", "", "checkpoint file (default: config paths.state_file)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask before deleting the live checkpoint")
	rootCmd.MarkFlagsMutuallyExclusive("env", "live")

	addRunFlags(rootCmd)

	// Version flag
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("poolcheck {{.Version}}\n")
}

// getWorkDir returns the effective working directory.
func getWorkDir() (string, error) {
	if workDir != "" {
		return workDir, nil
	}
	return os.Getwd()
}

// session is the resolved configuration shared by the commands.
type session struct {
	dir    string
	cfg    *config.Config
	env    string
	target config.EnvironmentConfig
	logger *slog.Logger
	closer io.Closer
}

// newSession loads the project config and opens the logger.
func newSession() (*session, error) {
	return newSessionFor((*config.Config).Environment)
}

// newSessionFor is newSession with a custom environment lookup.
func newSessionFor(resolve func(*config.Config, string) (config.EnvironmentConfig, error)) (*session, error) {
	dir, err := getWorkDir()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	env := cfg.DefaultEnv
	switch {
	case live:
		env = config.EnvLive
	case envName != "":
		env = envName
	}
	target, err := resolve(cfg, env)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.NewFromConfig(cfg, dir)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	logger = logging.WithEnvironment(logger, env, target.BaseURL)

	return &session{dir: dir, cfg: cfg, env: env, target: target, logger: logger, closer: closer}, nil
}

// Close releases the log file, if any.
func (s *session) Close() {
	if s.closer != nil {
		s.closer.Close()
	}
}

// statePath returns the checkpoint file, honouring --state.
func (s *session) statePath() string {
	if stateFile != "" {
		return stateFile
	}
	return s.cfg.StateFile(s.dir)
}

// client builds the API client for the selected environment.
func (s *session) client() *api.Client {
	return api.New(s.target.BaseURL,
		api.WithTimeout(s.cfg.Client.Timeout),
		api.WithUserHeader(s.cfg.Client.UserHeader),
		api.WithRateLimit(s.cfg.Client.RateLimit, s.cfg.Client.RateBurst),
		api.WithLogger(s.logger))
}

// banner announces the target environment.
func (s *session) banner(w io.Writer, what string) {
	fmt.Fprintf(w, "--- %s for %s environment ---\n", what, strings.ToUpper(s.env))
	fmt.Fprintf(w, "Base URL: %s\n\n", s.target.BaseURL)
}

// confirmReset asks before the live checkpoint is deleted.
func (s *session) confirmReset(cmd *cobra.Command, path string) (bool, error) {
	if s.env != config.EnvLive || assumeYes {
		return true, nil
	}
	return cli.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
		fmt.Sprintf("Delete the LIVE checkpoint at %s?", path), false)
}

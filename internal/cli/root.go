package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/cimedic/internal/advisory"
	"github.com/dshills/cimedic/internal/config"
	"github.com/dshills/cimedic/internal/logging"
	"github.com/dshills/cimedic/internal/providers"
)

const version = "0.3.0"

// Exit codes.
const (
	ExitSuccess           = 0
	ExitRemediationFailed = 1
	ExitUsageError        = 2
	ExitAuthError         = 3
	ExitRuntimeError      = 4
	ExitConfigError       = 5
	ExitAdvisoryExhausted = 6
)

var (
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cimedic",
	Short: "CI failure classification and remediation",
	Long: "cimedic reads a failed CI log, classifies the failure, applies a bounded deterministic fix " +
		"to the working tree and reports what it did with deterministic exit codes.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	exitCode = ExitSuccess
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print cimedic version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cimedic version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (YAML or TOML, default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(adviseCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the effective configuration. On failure it reports the
// error and sets the configuration exit code.
func loadConfig() (config.Config, bool) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fail(ExitConfigError, err)
		return config.Config{}, false
	}
	return cfg, true
}

// newLogger builds the logger described by cfg; --verbose forces debug.
func newLogger(cfg config.Config) (*logging.Logger, error) {
	lc := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if flagVerbose {
		lc.Level = "debug"
	}
	return logging.New(lc)
}

// fail prints err and records code as the exit code.
func fail(code int, err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = code
}

// exitCodeFor maps a model-backend error to an exit code.
func exitCodeFor(err error) int {
	var exhausted *advisory.ExhaustedError
	switch {
	case errors.Is(err, config.ErrInvalid), errors.Is(err, advisory.ErrNoModels):
		return ExitConfigError
	case errors.As(err, &exhausted):
		return ExitAdvisoryExhausted
	case providers.IsAuthError(err):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

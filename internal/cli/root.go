package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dshills/lens/internal/providers"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "lens",
	Short: "Budgeted consensus code review",
	Long: "Lens reviews code changes with a single LLM call per change, sized to the change, " +
		"prioritized by risk and filtered against known false positives.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)

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
	Short: "Print lens version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "lens version %s\n", version)
	},
}

// fail prints err and records code as the exit code.
func fail(code int, err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = code
}

// failRun maps a review error to the auth or runtime exit code.
// engineExitCode maps a completion client construction error to an exit
// code: an unknown provider name is a usage error.
func engineExitCode(err error) int {
	switch {
	case errors.Is(err, providers.ErrUnknownProvider):
		return ExitUsageError
	case providers.IsAuthError(err):
		return ExitAuthError
	default:
		return ExitRuntimeError
	}
}

func failEngine(err error) {
	fail(engineExitCode(err), err)
}

func failRun(err error) {
	if providers.IsAuthError(err) {
		fail(ExitAuthError, err)
		return
	}
	fail(ExitRuntimeError, err)
}

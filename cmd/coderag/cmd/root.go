// Package cmd implements the coderag CLI: init, index, search, serve,
// watch, stats, status, and projects, all operating against whichever
// project root the current working directory resolves to.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logJSON   bool
	cfgPath   string
)

var rootCmd = &cobra.Command{
	Use:   "coderag",
	Short: "Continuous, local code-search indexing engine",
	Long: `coderag detects the project containing the current directory, keeps a
vector index of its source up to date, and serves semantic search over it -
from a one-shot "coderag index" to a continuously running "coderag watch".`,
	SilenceUsage: true,
}

// Execute runs the CLI and returns the process exit code, per the
// convention: 0 success, 1 user error, 2 partial success (errors below
// threshold), 3 aborted (error threshold exceeded).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if ce, ok := err.(*cliError); ok {
			fmt.Fprintln(os.Stderr, ce.Error())
			return ce.code
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return lastExitCode
}

// lastExitCode lets a RunE report a non-1 success-adjacent exit code (2, 3)
// without treating the run as a cobra error.
var lastExitCode int

// cliError carries an explicit exit code through cobra's error return.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }

func userError(format string, args ...interface{}) error {
	return &cliError{code: 1, err: fmt.Errorf(format, args...)}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml (default: $CONFIG_PATH, else .coderag/config.yaml under the working directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit structured JSON logs instead of console output")
}

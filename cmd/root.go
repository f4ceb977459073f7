package cmd

import (
	"errors"
	"os"

	"connectkit/internal/cli"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no user is logged in or the platform token was rejected.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the app login failed.
	ExitCodeAuthFailed = 3
)

// Global flags shared by every command.
var (
	configPath string
	logLevel   string
	logFile    string
)

// rootCmd represents the base command for the connectkit application.
var rootCmd = &cobra.Command{
	Use:   "connectkit",
	Short: "Connect an app user to an automation platform Connection",
	Long: `connectkit logs an app user into the app backend, exchanges the app
session for a platform user token and manages the Connection between the
user's account and the platform: show its status, enable or disable it, and
run the hosted web authorization flow when it was never enabled.

"connectkit serve" starts a demo backend that implements both the app
backend and the platform API, so the whole flow can be tried locally.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "connectkit version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default ~/.config/connectkit)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this rotated file")

	rootCmd.AddCommand(newVersionCmd())
}

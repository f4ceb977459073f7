package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"connectkit/internal/app"
	"connectkit/internal/cli"
)

var (
	connectFlags     cli.CommandFlags
	connectEmail     string
	connectNoBrowser bool
	connectTimeout   time.Duration
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Run the web authorization flow for the Connection",
	Long: `Logs the user in and, unless the Connection is already enabled, opens the
platform's hosted authorization flow in a browser. A loopback receiver picks
up the redirect when the flow finishes and the final Connection status is
printed.

While waiting, changing the stored email (e.g. with "connectkit prefs
set-email") logs the new user in. Press Ctrl+C to abort.

Examples:
  connectkit connect --email alice@example.com
  connectkit connect --no-browser --timeout 5m`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd, &connectFlags, true)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.app.RunConnect(commandContext(cmd), app.ConnectOptions{
		Email:     connectEmail,
		NoBrowser: connectNoBrowser,
		Out:       cmd.ErrOrStderr(),
		Progress:  s.progress,
		Timeout:   connectTimeout,
	})
	if err != nil {
		return err
	}
	return s.printSnapshot(cmd.OutOrStdout(), snap)
}

var redirectFlags cli.CommandFlags

var redirectCmd = &cobra.Command{
	Use:   "redirect <uri>",
	Short: "Apply a redirect URI from the web authorization flow",
	Long: `Applies the redirect URI the hosted authorization flow ended on, e.g. when
the browser could not reach the loopback receiver of "connectkit connect".

Examples:
  connectkit redirect 'http://127.0.0.1:8085/callback?next_step=complete'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := startSession(cmd, &redirectFlags, false)
		if err != nil {
			return err
		}
		defer s.Close()

		snap, err := s.app.HandleRedirect(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		return s.printSnapshot(cmd.OutOrStdout(), snap)
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
	cli.RegisterCommonFlags(connectCmd, &connectFlags)
	connectCmd.Flags().StringVar(&connectEmail, "email", "", "Store this email and log it in before connecting")
	connectCmd.Flags().BoolVar(&connectNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	connectCmd.Flags().DurationVar(&connectTimeout, "timeout", 0, "Give up waiting for the redirect after this long (0 waits until interrupted)")

	rootCmd.AddCommand(redirectCmd)
	cli.RegisterCommonFlags(redirectCmd, &redirectFlags)
}

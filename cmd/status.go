package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"connectkit/internal/cli"
)

var statusFlags cli.CommandFlags

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Connection status of the stored user",
	Long: `Logs the stored user in and shows where the authorization lifecycle
settled: the platform token presence and the Connection status.

Examples:
  connectkit status
  connectkit status -o wide
  connectkit status -o yaml`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd, &statusFlags, false)
	if err != nil {
		return err
	}
	defer s.Close()

	s.progress.Start("Fetching connection status")
	snap, err := s.app.Status(commandContext(cmd))
	if err != nil {
		s.progress.Fail("Failed to fetch connection status")
		return err
	}
	s.progress.Stop()
	return s.printSnapshot(cmd.OutOrStdout(), snap)
}

// newToggleCmd creates the enable and disable commands.
func newToggleCmd(enable bool) *cobra.Command {
	var flags cli.CommandFlags
	verb, past := "disable", "disabled"
	if enable {
		verb, past = "enable", "enabled"
	}

	cmd := &cobra.Command{
		Use:   verb,
		Short: fmt.Sprintf("%s the Connection for the stored user", capitalize(verb)),
		Long: fmt.Sprintf(`Logs the stored user in and asks the platform to %s the Connection.
The status only changes once the platform confirmed the call.

A Connection that was never enabled cannot be toggled; run
"connectkit connect" to go through the web authorization flow instead.`, verb),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := startSession(cmd, &flags, false)
			if err != nil {
				return err
			}
			defer s.Close()

			s.progress.Start(fmt.Sprintf("Asking the platform to %s the connection", verb))
			snap, err := s.app.SetEnabled(commandContext(cmd), enable)
			if err != nil {
				s.progress.Fail(fmt.Sprintf("Failed to %s the connection", verb))
				return err
			}
			s.progress.Stop()
			if !flags.Quiet && s.output.Format != cli.OutputFormatJSON && s.output.Format != cli.OutputFormatYAML {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Connection "+past))
			}
			return s.printSnapshot(cmd.OutOrStdout(), snap)
		},
	}
	cli.RegisterCommonFlags(cmd, &flags)
	return cmd
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := startSession(cmd, &cli.CommandFlags{OutputFormat: string(cli.OutputFormatTable)}, false)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.app.Logout(commandContext(cmd)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Logged out"))
		return nil
	},
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func init() {
	rootCmd.AddCommand(statusCmd)
	cli.RegisterCommonFlags(statusCmd, &statusFlags)

	rootCmd.AddCommand(newToggleCmd(true))
	rootCmd.AddCommand(newToggleCmd(false))
	rootCmd.AddCommand(logoutCmd)
}

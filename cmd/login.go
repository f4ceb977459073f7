package cmd

import (
	"github.com/spf13/cobra"

	"connectkit/internal/cli"
)

var loginFlags cli.CommandFlags

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Log a user into the app backend",
	Long: `Logs the user into the app backend and stores the email for later commands.

The app session is then exchanged for a platform user token and the
Connection status is fetched. A user who never authorized the platform ends
up in ready(false); run "connectkit connect" to authorize.

Examples:
  connectkit login alice@example.com
  connectkit login alice@example.com -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	s, err := startSession(cmd, &loginFlags, false)
	if err != nil {
		return err
	}
	defer s.Close()

	s.progress.Start("Logging in as " + args[0])
	snap, err := s.app.Login(commandContext(cmd), args[0])
	if err != nil {
		s.progress.Fail("Login failed")
		return err
	}
	s.progress.Stop()
	return s.printSnapshot(cmd.OutOrStdout(), snap)
}

func init() {
	rootCmd.AddCommand(loginCmd)
	cli.RegisterCommonFlags(loginCmd, &loginFlags)
}

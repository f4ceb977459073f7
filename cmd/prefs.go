package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"connectkit/internal/cli"
	"connectkit/internal/prefs"
)

var prefsOutput string

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or edit the stored preferences",
	Long: `Shows or edits the preferences stored next to the configuration: the email
of the app user, dark mode and the anonymous install ID.

A running "connectkit connect" picks up an email change and logs the new
user in.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openPrefs()
		if err != nil {
			return err
		}
		if _, err := store.AnonymousID(); err != nil {
			return err
		}
		return printPrefs(cmd, store.Get())
	},
}

var prefsSetEmailCmd = &cobra.Command{
	Use:   "set-email <email>",
	Short: "Store the email of the app user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openPrefs()
		if err != nil {
			return err
		}
		if err := store.SetEmail(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Stored email "+args[0]))
		return nil
	},
}

var prefsDarkModeCmd = &cobra.Command{
	Use:       "dark-mode <on|off>",
	Short:     "Switch the wide output to a dark color scheme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var enabled bool
		switch args[0] {
		case "on":
			enabled = true
		case "off":
		default:
			return fmt.Errorf("invalid value %q (valid: on, off)", args[0])
		}

		store, err := openPrefs()
		if err != nil {
			return err
		}
		if err := store.SetDarkMode(enabled); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Dark mode "+args[0]))
		return nil
	},
}

func openPrefs() (*prefs.Store, error) {
	application, err := newApplication(true)
	if err != nil {
		return nil, err
	}
	defer application.Close()
	return prefs.Open(application.Config().ConnectKit.Storage.Dir)
}

func printPrefs(cmd *cobra.Command, p prefs.Preferences) error {
	w := cmd.OutOrStdout()
	switch cli.OutputFormat(prefsOutput) {
	case cli.OutputFormatJSON:
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case cli.OutputFormatYAML:
		return yaml.NewEncoder(w).Encode(p)
	case cli.OutputFormatTable, cli.OutputFormatWide:
		tw := cli.NewPlainTableWriter(w)
		tw.SetHeaders([]string{"key", "value"})
		tw.AppendRow([]string{"email", orDash(p.Email)})
		tw.AppendRow([]string{"dark-mode", fmt.Sprint(p.DarkMode)})
		tw.AppendRow([]string{"anonymous-id", orDash(p.AnonymousID)})
		tw.Render()
		return nil
	default:
		return cli.ValidateOutputFormat(prefsOutput)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsSetEmailCmd)
	prefsCmd.AddCommand(prefsDarkModeCmd)
	prefsCmd.Flags().StringVarP(&prefsOutput, "output", "o", string(cli.OutputFormatTable), "Output format (table, json, yaml)")
}

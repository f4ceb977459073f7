package cli

import (
	"github.com/spf13/cobra"
)

// CommandFlags holds the output flags shared by the commands that print the
// connection state (status, login, enable, disable, connect).
type CommandFlags struct {
	// OutputFormat specifies the desired output format (table, wide, json, yaml)
	OutputFormat string
	// NoHeaders suppresses the header row in table output
	NoHeaders bool
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
}

// RegisterCommonFlags registers the output flags on cmd.
//
// The registered flags are:
//   - --output/-o: Output format (table, wide, json, yaml), default: "table"
//   - --no-headers: Suppress header row in table output
//   - --quiet/-q: Suppress non-essential output
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.Flags().StringVarP(&flags.OutputFormat, "output", "o", string(OutputFormatTable), "Output format (table, wide, json, yaml)")
	cmd.Flags().BoolVar(&flags.NoHeaders, "no-headers", false, "Suppress header row in table output")
	cmd.Flags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
}

// ToOutputOptions validates the flags and converts them to OutputOptions.
func (f *CommandFlags) ToOutputOptions() (OutputOptions, error) {
	if err := ValidateOutputFormat(f.OutputFormat); err != nil {
		return OutputOptions{}, err
	}
	return OutputOptions{
		Format:    OutputFormat(f.OutputFormat),
		NoHeaders: f.NoHeaders,
		Quiet:     f.Quiet,
	}, nil
}

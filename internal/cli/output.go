package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"connectkit/internal/lifecycle"
	"connectkit/pkg/connect"
	pkgstrings "connectkit/pkg/strings"
)

// OutputFormat represents the supported output formats for CLI commands
type OutputFormat string

const (
	// OutputFormatTable formats output as a plain, kubectl-style table
	OutputFormatTable OutputFormat = "table"
	// OutputFormatWide formats output as a styled table with extra columns
	OutputFormatWide OutputFormat = "wide"
	// OutputFormatJSON formats output as JSON
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML formats output as YAML
	OutputFormatYAML OutputFormat = "yaml"
)

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{
	OutputFormatTable,
	OutputFormatWide,
	OutputFormatJSON,
	OutputFormatYAML,
}

// ValidateOutputFormat validates that the given format string is a supported output format.
// Returns nil if valid, or an error with a helpful message listing valid formats.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatWide, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, wide, json, yaml)", format)
	}
}

// OutputOptions controls how state is printed.
type OutputOptions struct {
	Format    OutputFormat
	NoHeaders bool
	Quiet     bool
	// DarkMode switches the wide table to a dark color scheme.
	DarkMode bool
}

// ConnectionView is the printable form of a Connection.
type ConnectionView struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Status  string `json:"status" yaml:"status"`
	Service string `json:"service,omitempty" yaml:"service,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
}

// StatusView is the printable form of a lifecycle snapshot.
type StatusView struct {
	User             string          `json:"user,omitempty" yaml:"user,omitempty"`
	State            string          `json:"state" yaml:"state"`
	TokenPresent     bool            `json:"token_present" yaml:"token_present"`
	AwaitingRedirect bool            `json:"awaiting_redirect,omitempty" yaml:"awaiting_redirect,omitempty"`
	Connection       *ConnectionView `json:"connection,omitempty" yaml:"connection,omitempty"`
}

// NewStatusView converts a snapshot for printing.
func NewStatusView(snap lifecycle.Snapshot) StatusView {
	view := StatusView{
		User:             snap.UserID,
		State:            snap.State.String(),
		TokenPresent:     snap.TokenPresent,
		AwaitingRedirect: snap.AwaitingRedirect,
	}
	if c := snap.Connection; c != nil {
		view.Connection = &ConnectionView{
			ID:     c.ID,
			Name:   c.Name,
			Status: c.Status.String(),
			URL:    c.URL,
		}
		if svc := c.PrimaryService(); svc != nil {
			view.Connection.Service = svc.Name
		}
	}
	return view
}

// PrintStatus writes snap to w in the requested format.
func PrintStatus(w io.Writer, snap lifecycle.Snapshot, opts OutputOptions) error {
	view := NewStatusView(snap)

	switch opts.Format {
	case OutputFormatJSON:
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case OutputFormatYAML:
		data, err := yaml.Marshal(view)
		if err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		_, err = w.Write(data)
		return err

	case OutputFormatWide:
		printWide(w, view, opts)
		return nil

	case OutputFormatTable, "":
		printPlain(w, view, opts)
		return nil

	default:
		return ValidateOutputFormat(string(opts.Format))
	}
}

func printPlain(w io.Writer, view StatusView, opts OutputOptions) {
	tw := NewPlainTableWriter(w)
	tw.SetHeaders([]string{"user", "state", "token", "connection", "status"})
	tw.SetNoHeaders(opts.NoHeaders)

	name, status := "-", connect.StatusUnknown.String()
	if view.Connection != nil {
		name, status = view.Connection.Name, view.Connection.Status
	}
	tw.AppendRow([]string{orDash(view.User), view.State, yesNo(view.TokenPresent), name, status})
	tw.Render()
}

func printWide(w io.Writer, view StatusView, opts OutputOptions) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if opts.DarkMode {
		t.SetStyle(table.StyleColoredDark)
	}

	if !opts.NoHeaders {
		t.AppendHeader(table.Row{
			text.FgHiCyan.Sprint("USER"),
			text.FgHiCyan.Sprint("STATE"),
			text.FgHiCyan.Sprint("TOKEN"),
			text.FgHiCyan.Sprint("CONNECTION"),
			text.FgHiCyan.Sprint("SERVICE"),
			text.FgHiCyan.Sprint("STATUS"),
			text.FgHiCyan.Sprint("URL"),
		})
	}

	row := table.Row{orDash(view.User), view.State, yesNo(view.TokenPresent), "-", "-", StatusColors(connect.StatusUnknown).Sprint(connect.StatusUnknown), "-"}
	if c := view.Connection; c != nil {
		row[3] = pkgstrings.TruncateCell(c.Name, pkgstrings.DefaultCellMaxLen)
		row[4] = orDash(c.Service)
		row[5] = StatusColors(connect.ConnectionStatus(c.Status)).Sprint(c.Status)
		row[6] = orDash(pkgstrings.TruncateURL(c.URL, pkgstrings.DefaultCellMaxLen))
	}
	t.AppendRow(row)
	t.Render()

	if view.AwaitingRedirect {
		fmt.Fprintf(w, "%s\n", text.FgYellow.Sprint("Waiting for the web authorization flow to finish"))
	}
}

// StatusColors returns the colors a Connection status is printed with.
func StatusColors(status connect.ConnectionStatus) text.Colors {
	switch status {
	case connect.StatusEnabled:
		return text.Colors{text.FgGreen}
	case connect.StatusDisabled:
		return text.Colors{text.FgYellow}
	case connect.StatusNeverEnabled:
		return text.Colors{text.FgHiBlue}
	default:
		return text.Colors{text.FgHiBlack}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"connectkit/internal/app"
	"connectkit/internal/cli"
	"connectkit/internal/lifecycle"
)

// commandContext returns the command's context, or a background one when the
// command is run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// newApplication loads configuration and logging from the global flags.
func newApplication(quiet bool) (*app.Application, error) {
	application, err := app.NewApplication(app.NewConfig(configPath, logLevel, logFile, quiet))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

// session bundles what the state commands need.
type session struct {
	app      *app.Application
	output   cli.OutputOptions
	progress *cli.Progress
}

// startSession validates the output flags, bootstraps the application and
// starts its services. Lifecycle errors are reported on stderr as they
// happen; narrate additionally prints settled states there.
func startSession(cmd *cobra.Command, flags *cli.CommandFlags, narrate bool) (*session, error) {
	output, err := flags.ToOutputOptions()
	if err != nil {
		return nil, err
	}
	application, err := newApplication(flags.Quiet)
	if err != nil {
		return nil, err
	}

	var listener lifecycle.Listener
	if !flags.Quiet {
		printer := cli.NewPrinter(cmd.ErrOrStderr(), application.Config().ConnectKit.Backend.URL, logLevel == "debug")
		listener = printer
		if !narrate {
			listener = lifecycle.ListenerFuncs{Error: printer.OnError}
		}
	}

	services, err := application.Start(listener)
	if err != nil {
		application.Close()
		return nil, err
	}
	output.DarkMode = services.Prefs.DarkMode()

	return &session{
		app:      application,
		output:   output,
		progress: cli.NewProgress(cmd.ErrOrStderr(), flags.Quiet),
	}, nil
}

func (s *session) Close() {
	s.progress.Stop()
	s.app.Close()
}

// printSnapshot writes the snapshot in the requested format.
func (s *session) printSnapshot(w io.Writer, snap lifecycle.Snapshot) error {
	return cli.PrintStatus(w, snap, s.output)
}

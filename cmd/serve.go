package cmd

import (
	"github.com/spf13/cobra"
)

// serveListen overrides server.listen from config.yaml.
var serveListen string

// serveCmd starts the demo backend.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the demo backend",
	Long: `Starts a demo backend implementing both the app backend and the platform
API the client talks to:

  - app login, token exchange and its unauthorized failure mode
  - the Connection endpoints, including enable and disable
  - the hosted authorization pages the web flow is sent to

Point the client at it in config.yaml:

  backend:
    url: http://localhost:8080
  platform:
    url: http://localhost:8080
    embedURL: http://localhost:8080/access/api/

The server runs until interrupted (Ctrl+C).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApplication(false)
	if err != nil {
		return err
	}
	defer application.Close()

	if serveListen != "" {
		application.Config().ConnectKit.Server.Listen = serveListen
	}
	return application.Serve(commandContext(cmd))
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (overrides server.listen)")
}

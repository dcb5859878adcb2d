package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfextract/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the pdfextract server",
	Long: `Start the pdfextract HTTP server.

The server provides:
  - /                    - Upload form and result tables
  - /prompts/{name}      - Rendered prompt preview
  - /export              - Download the last result as JSON or CSV
  - /api/extract         - JSON extraction API (multipart upload)
  - /api/prompts         - Prompt listing
  - /api/status          - Providers, prompt directory and render settings
  - /health              - Basic health check
  - /swagger             - API documentation

Changes to the config file are picked up without a restart, except for
server.host, server.port and prompt_dir.

Examples:
  pdfextract serve                    # Start on the configured port (default 8080)
  pdfextract serve --port 3000        # Start on custom port
  pdfextract serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := loadEnv()
		if err != nil {
			return err
		}
		if err := env.home.EnsureExists(); err != nil {
			return err
		}
		env.config.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: env.config,
			Home:          env.home,
			Logger:        env.logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port)")

	rootCmd.AddCommand(serveCmd)
}

// =============================================================================
// Changesheet Preview - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   changesheet serve [--addr :8080]
//
// ROUTES:
//   POST /api/changesheets:preview  - Full staged view as JSON
//   POST /api/changesheets:payload  - Draft payload only
//   GET  /api/actions               - Declared actions and their families
//   GET  /healthz                   - Liveness check
//
// The server stops gracefully on SIGINT or SIGTERM.
//
// =============================================================================

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/changesheet-preview/internal/server"
)

// listenAddr overrides listen_addr from the configuration.
var listenAddr string

// serveCmd represents the 'serve' command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP preview API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := mainConfig.ListenAddr
		if listenAddr != "" {
			addr = listenAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(mainConfig, logger).Serve(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Address to listen on (default from listen_addr)")
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/varoOP/muaythaitickets/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and serve the HTTP API",
	Long: `serve applies pending schema migrations and then serves the ticket API.
Startup aborts when a migration fails; a Discord notification is sent when
discord_webhook_url is configured.

Responses of the content endpoints are cached in Redis when redis_addr is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(func(a *app.App) error {
			return a.Serve(ctx)
		})
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (default :8080)")
	viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}

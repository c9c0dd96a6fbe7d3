package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/srcserve/srcserve/internal/config"
	"github.com/srcserve/srcserve/internal/logging"
	"github.com/srcserve/srcserve/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the script server with live reload",
	Long: `Start the script server. Script requests are transpiled on demand and
cached by content; other paths are served as static files from the base
folder. In development the base folder is watched and connected clients
receive reload notifications over a websocket.

Examples:
  srcserve serve                       # Serve the current directory
  srcserve serve --base-folder ./web   # Serve another folder
  srcserve serve --port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	bindServeFlags(serveCmd.Flags())
}

func bindServeFlags(flags *pflag.FlagSet) {
	flags.IntP("port", "p", 8080, "Port to serve on")
	flags.String("host", "localhost", "Host to bind to")
	flags.StringP("base-folder", "b", ".", "Folder scripts are served from")
	flags.Bool("live-reload", true, "Push reload notifications on file changes")

	viper.BindPFlag("server.port", flags.Lookup("port"))
	viper.BindPFlag("server.host", flags.Lookup("host"))
	viper.BindPFlag("scripts.base_folder", flags.Lookup("base-folder"))
	viper.BindPFlag("development.live_reload", flags.Lookup("live-reload"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(&logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

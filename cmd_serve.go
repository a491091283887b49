package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the websocket bridge and metrics",
		Long: `Starts the bridge pages connect to over /ws. Every page gets its own engine;
resolved hotkeys are sent on hello. /metrics and /healthz are served on the
same address. Watched images notify every page when replaced on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app := NewApp(configPath)
			if err := app.startup(ctx, opts); err != nil {
				return err
			}
			defer app.shutdown()
			cmd.Printf("bridge listening on %s\n", app.hub.URL())
			return app.run(ctx)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "write the log to this file")
	cmd.Flags().BoolVar(&opts.Builtins, "builtins", false, "attach the built-in image-to-image canvases on hello")
	cmd.Flags().StringArrayVar(&opts.Images, "watch-image", nil, "image file whose replacement resets the canvases (repeatable)")
	return cmd
}

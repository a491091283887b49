package main

import (
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "canvaszoom",
		Short: "Pan, zoom and brush-size engine for image editing canvases",
		Long: `canvaszoom drives the zoom, pan and brush hotkeys of image editing canvases.
It serves a websocket bridge for live pages, replays gesture scripts against
HTML snapshots and can drive a headless Chrome tab.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "options file (default $XDG_CONFIG_HOME/canvaszoom/options.yaml)")

	root.AddCommand(
		newServeCmd(),
		newResolveCmd(),
		newReplayCmd(),
		newWatchCmd(),
		newBrowseCmd(),
	)
	return root
}

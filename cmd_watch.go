package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"canvaszoom/internal/imagewatch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <image>...",
		Short: "Report replacements of image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				info, err := imagewatch.Probe(path)
				if err != nil {
					cmd.PrintErrf("%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "%s %dx%d %s\n", path, info.Width, info.Height, info.Format)
			}

			w, err := imagewatch.New(func(c imagewatch.Change) {
				if c.Removed {
					fmt.Fprintf(out, "%s removed\n", c.Path)
					return
				}
				fmt.Fprintf(out, "%s replaced %dx%d %s\n", c.Path, c.Info.Width, c.Info.Height, c.Info.Format)
			})
			if err != nil {
				return err
			}
			defer w.Close()
			for _, path := range args {
				if err := w.Add(path); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

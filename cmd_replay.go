package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"canvaszoom/internal/config"
	"canvaszoom/internal/dom"
	"canvaszoom/internal/replay"
)

func newReplayCmd() *cobra.Command {
	var render bool
	cmd := &cobra.Command{
		Use:   "replay <page.html> [script.yaml]",
		Short: "Replay a gesture script against an HTML snapshot",
		Long: `Loads the HTML snapshot, runs the script steps on a simulated clock and
prints the final transform of every attached canvas. The script is read
from stdin when omitted or "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg := config.DefaultConfig()
			if path != "" {
				loaded, err := config.Load(path)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open page: %w", err)
			}
			defer f.Close()
			doc, err := dom.Parse(f)
			if err != nil {
				return err
			}

			raw, err := readScript(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}
			script, err := replay.Parse(raw)
			if err != nil {
				return err
			}

			res, err := replay.NewRunner(doc, cfg.Hotkeys()).Run(script)
			if err != nil {
				return err
			}
			if err := writeReplayResult(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if render {
				return doc.Render(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "print the final HTML after the summary")
	return cmd
}

func readScript(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read script: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return raw, nil
}

func writeReplayResult(w io.Writer, res replay.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SELECTOR\tZOOM\tPAN X\tPAN Y\tZOOMED\tFULLSCREEN\tACTIVE")
	for _, c := range res.Canvases {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%t\t%t\t%t\n",
			c.Selector, c.State.Zoom, c.State.PanX, c.State.PanY, c.State.Zoomed, c.State.FullScreen, c.Active)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "handled %d events in %s\n", res.Handled, res.Elapsed)
	return err
}

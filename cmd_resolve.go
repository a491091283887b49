package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"canvaszoom/internal/config"
	"canvaszoom/internal/hotkeys"
)

// resolved is the JSON form printed by resolve --json.
type resolved struct {
	Bindings map[string]string     `json:"bindings"`
	Flags    hotkeys.Flags         `json:"flags"`
	Disabled []string              `json:"disabled"`
	Tooltip  []hotkeys.TooltipLine `json:"tooltip"`
	Warnings []string              `json:"warnings"`
}

func newResolveCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the resolved hotkeys, flags and tooltip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			hk := cfg.Hotkeys()
			if asJSON {
				return writeResolvedJSON(cmd.OutOrStdout(), hk)
			}
			return writeResolvedText(cmd.OutOrStdout(), hk)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func resolvedView(hk hotkeys.Config) resolved {
	r := resolved{
		Bindings: hk.Bindings(),
		Flags:    hk.Flags(),
		Disabled: hk.DisabledFeatures(),
		Warnings: hk.Warnings(),
	}
	if hk.Flags().ShowTooltip {
		r.Tooltip = hk.Tooltip()
	}
	return r
}

func writeResolvedJSON(w io.Writer, hk hotkeys.Config) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resolvedView(hk))
}

func writeResolvedText(w io.Writer, hk hotkeys.Config) error {
	r := resolvedView(hk)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tBINDING")
	for _, action := range slices.Sorted(maps.Keys(r.Bindings)) {
		fmt.Fprintf(tw, "%s\t%s\n", action, r.Bindings[action])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nshow_tooltip=%t auto_expand=%t blur_prompt=%t\n",
		r.Flags.ShowTooltip, r.Flags.AutoExpand, r.Flags.BlurPrompt)
	if len(r.Tooltip) > 0 {
		fmt.Fprintln(w, "\ntooltip:")
		for _, line := range r.Tooltip {
			fmt.Fprintf(w, "  %s - %s\n", line.Key, line.Action)
		}
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	return nil
}

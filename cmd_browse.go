package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"canvaszoom/internal/chromehost"
	"canvaszoom/internal/config"
	"canvaszoom/internal/loop"
	"canvaszoom/internal/zoompan"
)

type browseOptions struct {
	Selectors  []string
	Embedded   bool
	Builtins   bool
	ExecPath   string
	Headful    bool
	Duration   time.Duration
	Screenshot string
}

func newBrowseCmd() *cobra.Command {
	var opts browseOptions
	cmd := &cobra.Command{
		Use:   "browse <url>",
		Short: "Drive the canvases of a page in Chrome",
		Long: `Opens the page in Chrome through the DevTools protocol and attaches the
engine to the given selectors. Runs until interrupted or --for elapses.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultPath()
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.Duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Duration)
				defer cancel()
			}
			return browse(ctx, args[0], cfg, opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.Selectors, "selector", nil, "element to attach (repeatable)")
	cmd.Flags().BoolVar(&opts.Embedded, "embedded", false, "attach the selectors as embedded canvases")
	cmd.Flags().BoolVar(&opts.Builtins, "builtins", false, "attach the built-in image-to-image canvases")
	cmd.Flags().StringVar(&opts.ExecPath, "chrome", "", "browser binary")
	cmd.Flags().BoolVar(&opts.Headful, "headful", false, "show the browser window")
	cmd.Flags().DurationVar(&opts.Duration, "for", 0, "exit after this long")
	cmd.Flags().StringVar(&opts.Screenshot, "screenshot", "", "write a PNG of the viewport on exit")
	return cmd
}

func browse(ctx context.Context, url string, cfg config.Config, opts browseOptions) error {
	l := loop.New(0)
	l.Start()
	defer l.Stop()

	// The browser outlives ctx so the exit screenshot can still be taken.
	b, err := chromehost.Launch(context.WithoutCancel(ctx), chromehost.Options{ExecPath: opts.ExecPath, Headful: opts.Headful}, l)
	if err != nil {
		return err
	}
	defer b.Close()
	if err := b.Navigate(url); err != nil {
		return err
	}

	hk := cfg.Hotkeys()
	doc := b.Document()
	if err := doc.Configure(hk); err != nil {
		return fmt.Errorf("configure page: %w", err)
	}

	var mgr *zoompan.Manager
	err = l.Do(ctx, func() {
		mgr = zoompan.NewManager(doc, l, hk)
		doc.SetHandler(mgr)
		if opts.Builtins {
			mgr.ApplyBuiltins()
		}
		for _, selector := range opts.Selectors {
			mgr.ApplyZoomAndPan(selector, opts.Embedded)
		}
	})
	if err != nil {
		return err
	}
	slog.Info("[DEBUG-DOM] page attached", "url", url, "selectors", opts.Selectors)

	<-ctx.Done()
	_ = l.Do(context.Background(), func() {
		for _, s := range mgr.Snapshot() {
			slog.Info("[DEBUG-ZOOM] final state", "selector", s.Selector, "zoom", s.State.Zoom,
				"panX", s.State.PanX, "panY", s.State.PanY)
		}
		mgr.Close()
	})
	if opts.Screenshot != "" {
		png, err := b.Screenshot()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Screenshot, png, 0o644); err != nil {
			return fmt.Errorf("write screenshot: %w", err)
		}
	}
	return nil
}

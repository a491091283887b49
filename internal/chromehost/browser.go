// Package chromehost drives a headless Chrome tab as the engine host.
//
// A page script installed before navigation keeps a registry of resolved
// elements and reports input through a runtime binding. Styles and geometry
// are read and written with synchronous evaluations from the scheduler
// goroutine.
package chromehost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"canvaszoom/internal/host"
)

// Options configures the browser process.
type Options struct {
	// ExecPath selects the browser binary; empty lets chromedp search.
	ExecPath string
	// Headful shows the browser window.
	Headful bool
	// Width and Height size the window; zero selects 1280x800.
	Width  int
	Height int
}

// Browser owns one browser process and its single tab.
type Browser struct {
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	doc         *Document
}

// Launch starts the browser and prepares the tab. Events the page reports
// are posted to sched.
func Launch(ctx context.Context, opts Options, sched host.Scheduler) (*Browser, error) {
	if sched == nil {
		return nil, errors.New("chromehost: scheduler is required")
	}
	width, height := opts.Width, opts.Height
	if width <= 0 || height <= 0 {
		width, height = 1280, 800
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !opts.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(width, height),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	b := &Browser{allocCancel: allocCancel, ctx: tabCtx, cancel: cancel}
	b.doc = newDocument(tabCtx, sched)

	chromedp.ListenTarget(tabCtx, func(ev any) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != bindingName {
			return
		}
		p, err := decodePayload(called.Payload)
		if err != nil {
			slog.Debug("[DEBUG-DOM] dropped page event", "error", err)
			return
		}
		b.doc.deliver(p)
	})

	err := chromedp.Run(tabCtx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(pageScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("chromehost: start browser: %w", err)
	}
	slog.Info("[DEBUG-DOM] browser started", "headless", !opts.Headful, "width", width, "height", height)
	return b, nil
}

// Navigate loads url and waits for the body to be ready.
func (b *Browser) Navigate(url string) error {
	if err := chromedp.Run(b.ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("chromehost: navigate %s: %w", url, err)
	}
	return nil
}

// Document returns the host view of the tab.
func (b *Browser) Document() *Document { return b.doc }

// Screenshot captures the visible viewport as PNG.
func (b *Browser) Screenshot() ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(b.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("chromehost: screenshot: %w", err)
	}
	return buf, nil
}

// Close terminates the tab and the browser process.
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"canvaszoom/internal/bridge"
	"canvaszoom/internal/config"
	"canvaszoom/internal/diaglog"
	"canvaszoom/internal/host"
	"canvaszoom/internal/imagewatch"
	"canvaszoom/internal/loop"
	"canvaszoom/internal/metrics"
	"canvaszoom/internal/workerutil"
)

const shutdownWaitTimeout = 10 * time.Second

// serveOptions are the serve command flags layered over the options file.
type serveOptions struct {
	Addr     string
	LogLevel string
	LogFile  string
	Builtins bool
	Images   []string
}

// loadConfig reads the options file. Failures are not fatal: the defaults
// are used and a warning is queued.
func (a *App) loadConfig() {
	if a.configPath == "" {
		a.configPath = config.DefaultPath()
		for _, message := range config.ConsumeDefaultPathWarnings() {
			a.addPendingConfigLoadWarning(message)
		}
	}
	cfg, err := config.EnsureFile(a.configPath)
	if err != nil {
		cfg = config.DefaultConfig()
		a.addPendingConfigLoadWarning(fmt.Sprintf(
			"failed to load options from %s, running with defaults: %v", a.configPath, err))
	}
	a.cfg = cfg
	a.hotkeys = cfg.Hotkeys()
	for _, warning := range a.hotkeys.Warnings() {
		a.addPendingConfigLoadWarning(warning)
	}
}

func (a *App) applyOverrides(opts serveOptions) {
	if opts.Addr != "" {
		a.cfg.Server.Addr = opts.Addr
	}
	if opts.LogLevel != "" {
		a.cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		a.cfg.Log.File = opts.LogFile
	}
}

// startup builds every service and starts listening. On error the services
// already started are stopped.
func (a *App) startup(ctx context.Context, opts serveOptions) (err error) {
	a.loadConfig()
	a.applyOverrides(opts)

	logger, err := diaglog.New(diaglog.Options{
		Level:    a.cfg.Log.SlogLevel(),
		File:     a.cfg.Log.File,
		TeeLevel: slog.LevelWarn,
	})
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger.Logger)
	a.flushPendingConfigLoadWarnings()

	defer func() {
		if err != nil {
			a.shutdown()
		}
	}()

	a.loop = loop.New(0)
	a.loop.Start()

	a.metrics = metrics.New()
	a.metrics.ObserveLoop(a.loop.Stats)

	a.hub = bridge.NewHub(bridge.Options{
		Addr:           a.cfg.Server.Addr,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Config:         a.hotkeys,
		Scheduler:      a.loop,
		Recorder:       a.metrics,
		Metrics:        a.metrics.Handler(),
		Builtins:       opts.Builtins,
	})
	if err := a.hub.Start(ctx); err != nil {
		return err
	}
	hub := a.hub
	logger.AddSink(func(e diaglog.Entry) {
		hub.BroadcastDiag(e.Level, e.Message, e.Attrs)
	})

	if len(opts.Images) > 0 {
		w, err := imagewatch.New(a.imageChanged)
		if err != nil {
			return err
		}
		a.images = w
		for _, path := range opts.Images {
			if err := w.Add(path); err != nil {
				return err
			}
		}
	}
	slog.Info("[DEBUG-WS] canvaszoom serving", "url", a.hub.URL(), "config", a.configPath)
	return nil
}

func (a *App) imageChanged(c imagewatch.Change) {
	slog.Info("[DEBUG-WATCH] edited image replaced", "path", c.Path, "removed", c.Removed,
		"width", c.Info.Width, "height", c.Info.Height, "format", c.Info.Format)
	a.hub.BroadcastMutation(host.Mutation{Kind: host.MutationImageReplaced})
}

// run blocks until ctx is done, then stops the hub.
func (a *App) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return a.hub.Stop()
	})
	if a.images != nil {
		g.Go(func() error {
			workerutil.Supervise(gctx, "imagewatch", &a.bgWG, a.watchImages, workerutil.SuperviseOptions{
				OnFatal: func(worker string, maxRetries int) {
					slog.Error("[DEBUG-PANIC] worker stopped permanently", "worker", worker, "maxRetries", maxRetries)
				},
			})
			a.bgWG.Wait()
			return nil
		})
	}
	return g.Wait()
}

func (a *App) watchImages(ctx context.Context) {
	if err := a.images.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("[DEBUG-WATCH] image watcher stopped", "error", err)
	}
}

// shutdown releases every service. It is safe after a partial startup.
func (a *App) shutdown() {
	if a.images != nil {
		if err := a.images.Close(); err != nil {
			slog.Warn("[DEBUG-WATCH] image watcher close failed", "error", err)
		}
	}
	if a.hub != nil {
		if err := a.hub.Stop(); err != nil {
			slog.Warn("[DEBUG-WS] hub stop failed", "error", err)
		}
	}
	if !waitWithTimeout(a.bgWG.Wait, shutdownWaitTimeout) {
		slog.Warn("[DEBUG-PANIC] timed out waiting for background workers during shutdown")
	}
	if a.loop != nil {
		a.loop.Stop()
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Warn("[DEBUG-CONFIG] log close failed", "error", err)
		}
	}
}

func waitWithTimeout(waitFn func(), timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		waitFn()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

package main

import (
	"log/slog"
	"strings"
	"sync"

	"canvaszoom/internal/bridge"
	"canvaszoom/internal/config"
	"canvaszoom/internal/diaglog"
	"canvaszoom/internal/hotkeys"
	"canvaszoom/internal/imagewatch"
	"canvaszoom/internal/loop"
	"canvaszoom/internal/metrics"
)

// App holds the long-lived services of the serve command.
type App struct {
	// Configuration state and startup warnings.
	configPath         string
	cfg                config.Config
	hotkeys            hotkeys.Config
	startupWarnMu      sync.Mutex
	configLoadWarnings []string

	// Backend services.
	logger  *diaglog.Logger
	loop    *loop.Loop
	metrics *metrics.Recorder
	hub     *bridge.Hub
	images  *imagewatch.Watcher

	// bgWG tracks supervised workers. Waited on with a timeout at shutdown.
	bgWG sync.WaitGroup
}

// NewApp creates an App reading options from configPath. An empty path
// selects config.DefaultPath().
func NewApp(configPath string) *App {
	return &App{configPath: configPath}
}

func (a *App) addPendingConfigLoadWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	a.startupWarnMu.Lock()
	a.configLoadWarnings = append(a.configLoadWarnings, trimmed)
	a.startupWarnMu.Unlock()
}

func (a *App) consumePendingConfigLoadWarnings() []string {
	a.startupWarnMu.Lock()
	defer a.startupWarnMu.Unlock()
	out := a.configLoadWarnings
	a.configLoadWarnings = nil
	return out
}

// flushPendingConfigLoadWarnings logs the warnings collected before the
// logger existed, so they reach the capture sinks too.
func (a *App) flushPendingConfigLoadWarnings() {
	for _, message := range a.consumePendingConfigLoadWarnings() {
		slog.Warn("[WARN-CONFIG] " + message)
	}
}

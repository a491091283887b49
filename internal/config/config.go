// Package config loads the canvas options file.
//
// The file mirrors the option keys of the web UI the canvas runs in: a flat
// map of canvas_* keys plus server and log sections for the bridge.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.yaml.in/yaml/v3"

	"canvaszoom/internal/hotkeys"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	renameRetryBaseDelay     = 10 * time.Millisecond

	hotkeyKeyPrefix = "canvas_hotkey_"

	// DefaultAddr is the bridge listen address.
	DefaultAddr = "127.0.0.1:7861"
)

var userHomeDirFn = os.UserHomeDir

var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// ServerConfig configures the websocket bridge.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// AllowedOrigins lists the page origins allowed to connect. Empty
	// accepts any origin; keep Addr on loopback in that case.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// File, when set, receives a copy of every record.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// options is the decoded shape of the non-hotkey settings.
type options struct {
	DisabledFunctions []string     `mapstructure:"canvas_disabled_functions"`
	ShowTooltip       *bool        `mapstructure:"canvas_show_tooltip"`
	AutoExpand        *bool        `mapstructure:"canvas_auto_expand"`
	BlurPrompt        *bool        `mapstructure:"canvas_blur_prompt"`
	Server            ServerConfig `mapstructure:"server"`
	Log               LogConfig    `mapstructure:"log"`
}

// Config is the loaded options file.
type Config struct {
	// Overrides holds the raw canvas_hotkey_* values exactly as written,
	// including non-string values.
	Overrides         map[string]any
	DisabledFunctions []string
	Flags             hotkeys.Flags
	Server            ServerConfig
	Log               LogConfig
}

// DefaultConfig returns the built-in options.
func DefaultConfig() Config {
	return Config{
		Overrides: map[string]any{},
		Flags:     hotkeys.DefaultFlags(),
		Server:    ServerConfig{Addr: DefaultAddr},
		Log:       LogConfig{Level: "info"},
	}
}

// Hotkeys resolves the hotkey configuration described by cfg.
func (cfg Config) Hotkeys() hotkeys.Config {
	return hotkeys.Resolve(cfg.Overrides, cfg.DisabledFunctions, cfg.Flags)
}

// DefaultPath resolves the options file path under XDG_CONFIG_HOME, falling
// back to ~/.config and then to os.TempDir() if the home directory cannot be
// resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve XDG_CONFIG_HOME/home directory. Using temp directory; options may not persist.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "canvaszoom", "options.yaml")
}

// Load reads the options file at path. A missing or empty file yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	return Parse(raw)
}

// Parse decodes options from YAML.
func Parse(raw []byte) (Config, error) {
	cfg := DefaultConfig()

	var rawMap map[string]any
	if err := yaml.Unmarshal(raw, &rawMap); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse options, using defaults", "error", err)
		return cfg, fmt.Errorf("parse options: %w", err)
	}

	for key, value := range rawMap {
		if strings.HasPrefix(key, hotkeyKeyPrefix) {
			cfg.Overrides[key] = value
		}
	}

	var opts options
	var meta mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		Metadata:         &meta,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("parse options: %w", err)
	}
	if err := decoder.Decode(rawMap); err != nil {
		slog.Warn("[WARN-CONFIG] invalid option value, using defaults", "error", err)
		return DefaultConfig(), fmt.Errorf("parse options: %w", err)
	}
	warnUnknownKeys(meta.Unused)

	cfg.DisabledFunctions = opts.DisabledFunctions
	if opts.ShowTooltip != nil {
		cfg.Flags.ShowTooltip = *opts.ShowTooltip
	}
	if opts.AutoExpand != nil {
		cfg.Flags.AutoExpand = *opts.AutoExpand
	}
	if opts.BlurPrompt != nil {
		cfg.Flags.BlurPrompt = *opts.BlurPrompt
	}
	if addr := strings.TrimSpace(opts.Server.Addr); addr != "" {
		cfg.Server.Addr = addr
	}
	cfg.Server.AllowedOrigins = opts.Server.AllowedOrigins
	if level := strings.TrimSpace(opts.Log.Level); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}
	cfg.Log.File = strings.TrimSpace(opts.Log.File)
	return cfg, nil
}

func warnUnknownKeys(unused []string) {
	for _, key := range unused {
		if strings.HasPrefix(key, hotkeyKeyPrefix) {
			continue
		}
		slog.Debug("[DEBUG-CONFIG] unknown option ignored", "key", key)
	}
}

// SlogLevel maps the configured level to a slog level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Marshal renders cfg in the options file layout.
func Marshal(cfg Config) ([]byte, error) {
	doc := make(map[string]any, len(cfg.Overrides)+6)
	maps.Copy(doc, cfg.Overrides)
	disabled := cfg.DisabledFunctions
	if disabled == nil {
		disabled = []string{}
	}
	doc["canvas_disabled_functions"] = disabled
	doc["canvas_show_tooltip"] = cfg.Flags.ShowTooltip
	doc["canvas_auto_expand"] = cfg.Flags.AutoExpand
	doc["canvas_blur_prompt"] = cfg.Flags.BlurPrompt
	doc["server"] = cfg.Server
	doc["log"] = cfg.Log
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}
	return raw, nil
}

// EnsureFile writes the default options if path does not exist and returns
// the loaded options.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Save writes cfg to path atomically.
func Save(path string, cfg Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path required")
	}
	raw, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("save options: %w", err)
	}
	if err := atomicWrite(path, raw); err != nil {
		return err
	}
	slog.Debug("[DEBUG-CONFIG] options saved", "path", path)
	return nil
}

// atomicWrite writes data using temp-file + rename to avoid partial writes.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save options: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".options.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save options: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save options: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save options: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save options: close: %w", err)
	}
	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save options: rename: %w", err)
	}
	return nil
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("options file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}

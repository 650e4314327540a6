package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/entrhq/devpreview/pkg/browser"
	appconfig "github.com/entrhq/devpreview/pkg/config"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/headerframe"
	"github.com/entrhq/devpreview/pkg/logging"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/registry"
	"github.com/entrhq/devpreview/pkg/storage"
	"github.com/entrhq/devpreview/pkg/telemetry"
)

const tracerName = "github.com/entrhq/devpreview/pkg/preview"

// app holds the components shared by every command.
type app struct {
	cfg       *appconfig.Config
	logger    *logging.Logger
	kv        storage.Store
	store     *registry.Store
	telemetry *telemetry.Provider
	host      *browser.Host
}

// newApp loads configuration and the device registry. logger is owned by the
// caller.
func newApp(ctx context.Context, config *Config, logger *logging.Logger) (*app, error) {
	cfg, err := appconfig.Load(config.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, config); err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel())
	logging.SetDefaultLevel(cfg.LogLevel())

	kv, where := openStorage(cfg.StoragePath, logger)

	a := &app{
		cfg:    cfg,
		logger: logger,
		kv:     kv,
		store:  registry.Load(kv, device.Builtins(), registry.WithLogger(logger.With("registry"))),
	}

	tp, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Warnf("tracing disabled: %v", err)
	}
	a.telemetry = tp

	logger.Debugf("config loaded: storage=%s browser=%v level=%s", where, cfg.Browser.Enabled, cfg.Logging.Level)
	return a, nil
}

// openStorage opens the device storage file, or an in-memory store when path
// is storage.MemoryPath. Storage problems never stop startup: an undecodable
// file is replaced by the next write, and a file that cannot be read at all
// is swapped for an in-memory store. It also returns where state lives.
func openStorage(path string, logger *logging.Logger) (storage.Store, string) {
	if path == storage.MemoryPath {
		return storage.NewMemoryStore(), storage.MemoryPath
	}
	kv, err := storage.Open(path)
	switch {
	case err == nil:
		return kv, kv.Path()
	case errors.Is(err, storage.ErrCorrupt):
		logger.Warnf("device storage %s is unreadable, starting with defaults: %v", kv.Path(), err)
		return kv, kv.Path()
	default:
		logger.Warnf("device storage unavailable, changes will not be saved: %v", err)
		return storage.NewMemoryStore(), storage.MemoryPath
	}
}

// applyOverrides copies command line flags over the loaded configuration.
func applyOverrides(cfg *appconfig.Config, config *Config) error {
	if config.StoragePath != "" {
		cfg.StoragePath = config.StoragePath
	}
	if config.LogLevel != "" {
		cfg.Logging.Level = config.LogLevel
	}
	if config.Port != 0 {
		cfg.Server.Port = config.Port
	}
	if config.NoBrowser {
		cfg.Browser.Enabled = false
	}
	if config.Headed {
		cfg.Browser.Headless = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// frameFactory returns playwright frames when the browser is enabled and
// starts, and header probes otherwise.
func (a *app) frameFactory() preview.FrameFactory {
	if a.cfg.Browser.Enabled {
		host := browser.NewHost(browser.HostOptions{
			Headless:  a.cfg.Browser.Headless,
			MaxFrames: a.cfg.Browser.MaxFrames,
			Logger:    a.logger.With("browser"),
		})
		if err := host.Initialize(); err != nil {
			a.logger.Warnf("headless browser unavailable, falling back to header probes: %v", err)
		} else {
			a.host = host
			return host.Factory()
		}
	}

	probes := &headerframe.Factory{
		Client: &http.Client{Timeout: a.cfg.Timing.DetectionTimeout},
		Logger: a.logger.With("headerframe"),
	}
	return probes.NewFrame
}

// cellOptions returns the options applied to every preview cell.
func (a *app) cellOptions(ctx context.Context) []preview.CellOption {
	return []preview.CellOption{
		preview.WithTiming(a.cfg.PreviewTiming()),
		preview.WithLogger(a.logger.With("preview")),
		preview.WithTracer(a.telemetry.Tracer(tracerName)),
		preview.WithContext(ctx),
	}
}

// Close releases the browser and flushes traces.
func (a *app) Close() {
	if a.host != nil {
		if err := a.host.Shutdown(); err != nil {
			a.logger.Warnf("browser shutdown: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warnf("telemetry shutdown: %v", err)
	}
}

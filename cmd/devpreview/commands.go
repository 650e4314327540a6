package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	appconfig "github.com/entrhq/devpreview/pkg/config"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/logging"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/registry"
	"github.com/entrhq/devpreview/pkg/server"
	"github.com/entrhq/devpreview/pkg/tui"
)

// runTUI starts the terminal interface. Logs go to the session log file
// since the terminal belongs to the TUI.
func runTUI(ctx context.Context, config *Config) error {
	logger, err := logging.NewLogger("devpreview")
	if err != nil {
		logger.Warnf("logging to stderr: %v", err)
	}
	defer logger.Close()

	a, err := newApp(ctx, config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	url, err := server.NormalizeURL(config.targetURL(a.cfg.DefaultURL))
	if err != nil {
		return err
	}

	logger.Infof("starting TUI session %s (log %s)", logger.SessionID(), logger.LogPath())
	return tui.Run(ctx, tui.Options{
		Store:       a.store,
		Factory:     a.frameFactory(),
		CellOptions: a.cellOptions(ctx),
		URL:         url,
		Logger:      logger.With("tui"),
	})
}

// runServe serves the web preview page until interrupted.
func runServe(ctx context.Context, config *Config) error {
	logger := logging.NewWriterLogger("devpreview", os.Stderr)

	a, err := newApp(ctx, config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(config.Args) > 0 || config.URL != "" {
		a.cfg.DefaultURL, err = server.NormalizeURL(config.targetURL(a.cfg.DefaultURL))
		if err != nil {
			return err
		}
	}

	surface := preview.NewSurface(a.frameFactory(), a.cellOptions(ctx)...)
	defer surface.Close()

	srv := server.New(serverConfig(a.cfg), a.store, surface, logger.With("server"))
	defer srv.Close()

	launch, err := server.LaunchURL(srv.BaseURL(), a.cfg.DefaultURL)
	if err != nil {
		return err
	}
	fmt.Printf("devpreview v%s\n", version)
	fmt.Printf("Preview: %s\n", launch)
	fmt.Printf("Devices: %d of %d selected\n", len(a.store.Snapshot().SelectedNames()), a.store.Snapshot().Len())
	fmt.Println()

	return srv.Start(ctx)
}

func serverConfig(cfg *appconfig.Config) server.Config {
	return server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		DefaultURL:   cfg.DefaultURL,
	}
}

// runProbe runs load detection once for the selected devices, or for every
// device when none is selected, and prints the verdicts.
func runProbe(ctx context.Context, config *Config) error {
	logger := logging.NewWriterLogger("devpreview", os.Stderr)

	a, err := newApp(ctx, config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	url, err := server.NormalizeURL(config.targetURL(a.cfg.DefaultURL))
	if err != nil {
		return err
	}

	// Select-all applies to the snapshot only; the stored selection is untouched.
	state := a.store.Snapshot()
	if len(state.SelectedNames()) == 0 {
		logger.Infof("no devices selected, probing all %d", state.Len())
		state, err = registry.Apply(state, registry.Select{Names: device.Names(state.Devices())})
		if err != nil {
			return err
		}
	}

	surface := preview.NewSurface(a.frameFactory(), a.cellOptions(ctx)...)
	defer surface.Close()
	surface.Sync(state, url)

	reports, err := awaitReports(ctx, surface, state.SelectedNames())
	if err != nil {
		return err
	}
	fmt.Println(renderReports(reports, colorEnabled(config)))

	blocked := 0
	for _, r := range reports {
		if r.Status == preview.StatusBlocked {
			blocked++
		}
	}
	if blocked > 0 {
		fmt.Printf("\n%d of %d devices cannot embed %s; open it directly instead.\n", blocked, len(reports), url)
	}
	return nil
}

// awaitReports waits until every named cell reaches a terminal status.
func awaitReports(ctx context.Context, surface *preview.Surface, names []string) ([]preview.Report, error) {
	for _, name := range names {
		c, ok := surface.Cell(name)
		if !ok {
			return nil, fmt.Errorf("no preview cell for %s", name)
		}
		select {
		case <-c.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return surface.Reports(), nil
}

// runDevices lists the registry.
func runDevices(ctx context.Context, config *Config) error {
	logger := logging.NewWriterLogger("devpreview", os.Stderr)

	a, err := newApp(ctx, config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	devices := a.store.Snapshot().Devices()
	if len(config.Args) > 0 {
		devices = device.Filter(devices, config.Args[0])
	}
	if config.JSON {
		return writeDevicesJSON(os.Stdout, devices, colorEnabled(config))
	}
	fmt.Println(renderDevices(devices, colorEnabled(config)))
	return nil
}

// runOpen prints the preview page link for a running server.
func runOpen(config *Config) error {
	cfg, err := appconfig.Load(config.ConfigPath)
	if err != nil {
		return err
	}
	if config.Port != 0 {
		cfg.Server.Port = config.Port
	}
	if len(config.Args) == 0 && config.URL == "" {
		return errors.New("open needs a URL: devpreview open <url>")
	}

	url, err := server.NormalizeURL(config.targetURL(cfg.DefaultURL))
	if err != nil {
		return err
	}
	link, err := server.LaunchURL("http://"+cfg.Addr(), url)
	if err != nil {
		return err
	}
	fmt.Println(link)
	return nil
}

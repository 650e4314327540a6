// Package tui is the terminal rendering surface: a device picker over the
// registry that shows live load status for every selected device.
//
// The package is split into:
// - tui.go: program lifecycle and surface wiring
// - model.go: model state and the add-device form
// - update.go: Bubble Tea Update and message handling
// - view.go: rendering
// - styles.go: colors and styles
package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/registry"
)

// Logger is the logging used by the TUI.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}

// Options configures Run.
type Options struct {
	Store *registry.Store

	// Factory creates frames for load detection. Nil disables status
	// reporting; the picker still works.
	Factory     preview.FrameFactory
	CellOptions []preview.CellOption

	// URL is the initial preview target.
	URL string

	Logger Logger

	// Copy writes to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Store == nil {
		return errors.New("tui: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}

	var program atomic.Pointer[tea.Program]
	var surface *preview.Surface
	if opts.Factory != nil {
		cellOpts := append([]preview.CellOption{}, opts.CellOptions...)
		cellOpts = append(cellOpts, preview.WithObserver(func(r preview.Report) {
			// Observers run on the cell's goroutine; Send blocks until the
			// program reads the message.
			if p := program.Load(); p != nil {
				go p.Send(reportMsg(r))
			}
		}))
		surface = preview.NewSurface(opts.Factory, cellOpts...)
		defer surface.Close()
	}

	m := newModel(opts.Store, surface, opts.URL)
	m.logger = opts.Logger
	m.copyURL = opts.Copy

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	program.Store(p)

	opts.Logger.Infof("tui: starting with %d devices, url %q", m.state.Len(), m.url)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run TUI program: %w", err)
	}
	return nil
}

// syncer serializes surface reconciliation. Each pass reads the newest
// registry snapshot and target URL, so passes that complete out of order
// cannot roll the surface back.
type syncer struct {
	mu      sync.Mutex
	surface *preview.Surface
	store   *registry.Store
	url     atomic.Value // string
}

func newSyncer(surface *preview.Surface, store *registry.Store, url string) *syncer {
	s := &syncer{surface: surface, store: store}
	s.url.Store(url)
	return s
}

func (s *syncer) setURL(url string) {
	s.url.Store(url)
}

func (s *syncer) cmd() tea.Cmd {
	if s.surface == nil {
		return nil
	}
	return func() tea.Msg {
		s.mu.Lock()
		defer s.mu.Unlock()
		url := s.url.Load().(string)
		s.surface.Sync(s.store.Snapshot(), url)
		return syncedMsg{url: url, reports: s.surface.Reports()}
	}
}

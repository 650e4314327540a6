package browser

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/playwright-community/playwright-go"
)

// ErrNotInitialized is returned by NewFrame before Initialize succeeds or
// after Shutdown.
var ErrNotInitialized = errors.New("browser host not initialized")

// Logger is the logging used by the host.
type Logger interface {
	Debugf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// Host owns the Playwright driver and a single Chromium instance. Every
// frame gets its own browser context so device emulation settings do not
// leak between cells.
type Host struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	browser     playwright.Browser
	frames      map[*Frame]struct{}
	headless    bool
	maxFrames   int
	timeout     float64
	logger      Logger
	initialized bool
}

// HostOptions configures a Host.
type HostOptions struct {
	// Headless controls whether Chromium runs without a visible window.
	Headless bool

	// MaxFrames caps concurrently open frames. 0 means DefaultMaxFrames.
	MaxFrames int

	// Timeout is the default Playwright operation timeout in milliseconds.
	Timeout float64

	Logger Logger
}

// NewHost creates an uninitialized host.
func NewHost(opts HostOptions) *Host {
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = DefaultMaxFrames
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	return &Host{
		frames:    make(map[*Frame]struct{}),
		headless:  opts.Headless,
		maxFrames: opts.MaxFrames,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
}

// Initialize installs the Playwright driver if needed, starts it and
// launches Chromium. Calling it again after success is a no-op.
func (h *Host) Initialize() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return nil
	}

	// Driver output would corrupt the TUI.
	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(h.headless),
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	h.playwright = pw
	h.browser = browser
	h.initialized = true
	h.logger.Debugf("browser: chromium %s ready (headless=%v)", browser.Version(), h.headless)
	return nil
}

// NewFrame opens an isolated browser context emulating d and returns an
// unopened frame inside it.
func (h *Host) NewFrame(d device.Descriptor) (*Frame, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return nil, ErrNotInitialized
	}
	if len(h.frames) >= h.maxFrames {
		return nil, fmt.Errorf("maximum number of frames (%d) reached", h.maxFrames)
	}

	ctx, err := h.browser.NewContext(contextOptions(d))
	if err != nil {
		return nil, fmt.Errorf("failed to create context for %s: %w", d.Name, err)
	}

	page, err := ctx.NewPage()
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("failed to create page for %s: %w", d.Name, err)
	}
	page.SetDefaultTimeout(h.timeout)

	f := &Frame{
		host:    h,
		device:  d,
		context: ctx,
		page:    page,
	}
	h.frames[f] = struct{}{}
	return f, nil
}

// Factory adapts NewFrame to preview.FrameFactory.
func (h *Host) Factory() preview.FrameFactory {
	return func(d device.Descriptor) (preview.Frame, error) {
		f, err := h.NewFrame(d)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// FrameCount returns the number of open frames.
func (h *Host) FrameCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func (h *Host) release(f *Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.frames, f)
}

// Shutdown closes every frame, the browser and the Playwright driver.
func (h *Host) Shutdown() error {
	h.mu.Lock()
	frames := make([]*Frame, 0, len(h.frames))
	for f := range h.frames {
		frames = append(frames, f)
	}
	h.mu.Unlock()

	for _, f := range frames {
		if err := f.Close(); err != nil {
			h.logger.Warnf("browser: closing frame for %s: %v", f.device.Name, err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return nil
	}
	h.initialized = false

	var errs []error
	if err := h.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
	}
	if err := h.playwright.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
	}
	return errors.Join(errs...)
}

// contextOptions maps a device onto Playwright emulation settings.
func contextOptions(d device.Descriptor) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  d.Width,
			Height: d.Height,
		},
		DeviceScaleFactor: playwright.Float(d.EffectivePixelRatio()),
	}
	if d.UserAgent != "" {
		opts.UserAgent = playwright.String(d.UserAgent)
	}
	switch device.Categorize(d) {
	case device.CategoryMobile, device.CategoryTablet:
		opts.IsMobile = playwright.Bool(true)
		opts.HasTouch = playwright.Bool(true)
	}
	return opts
}

// Package headerframe is a preview.Frame that needs no browser. It fetches
// the target once and decides from the response whether a browser would
// agree to embed it.
//
// It never has document access, so Introspect always reports
// preview.ErrCrossOrigin: a response that passes the header checks ends up
// ready (load-unverified), and a target that never answers before the
// detection timeout ends up blocked.
package headerframe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
	"golang.org/x/net/html"
)

// maxTitleBytes bounds how much of the body is read looking for <title>.
const maxTitleBytes = 64 << 10

// ErrRefused is wrapped by errors raised for responses a browser would not
// embed.
var ErrRefused = errors.New("embedding refused")

// Logger is the logging used by frames.
type Logger interface {
	Debugf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

// Factory creates header-probing frames sharing one HTTP client.
type Factory struct {
	Client *http.Client
	Logger Logger
}

// NewFrame returns an unopened frame for d.
func (f *Factory) NewFrame(d device.Descriptor) (preview.Frame, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	var logger Logger = nopLogger{}
	if f.Logger != nil {
		logger = f.Logger
	}
	return &Frame{client: client, device: d, logger: logger}, nil
}

// Frame probes the target URL with a single GET.
type Frame struct {
	client *http.Client
	device device.Descriptor
	logger Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
}

// Open starts the request in the background. detach cancels it and
// suppresses any pending event.
func (f *Frame) Open(url string, h preview.FrameHandler) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.New("frame is closed")
	}
	if f.cancel != nil {
		return nil, errors.New("frame already opened")
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", url, err)
	}
	if f.device.UserAgent != "" {
		req.Header.Set("User-Agent", f.device.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Sec-Fetch-Dest", "iframe")

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	var (
		detachMu sync.Mutex
		detached bool
	)
	emit := func(fn func()) {
		detachMu.Lock()
		defer detachMu.Unlock()
		if !detached {
			fn()
		}
	}

	go f.probe(req.WithContext(ctx), h, emit)

	return func() {
		cancel()
		detachMu.Lock()
		defer detachMu.Unlock()
		detached = true
	}, nil
}

func (f *Frame) probe(req *http.Request, h preview.FrameHandler, emit func(func())) {
	resp, err := f.client.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return
		}
		emit(func() { h.OnError(err) })
		return
	}
	defer resp.Body.Close()

	if err := Check(resp); err != nil {
		emit(func() { h.OnError(err) })
		return
	}

	if title := readTitle(io.LimitReader(resp.Body, maxTitleBytes)); title != "" {
		f.logger.Debugf("headerframe: %s loaded %q (%s)", f.device.Name, title, req.URL)
	}
	emit(h.OnLoad)
}

// Introspect always fails: no document is ever available.
func (f *Frame) Introspect() error {
	return preview.ErrCrossOrigin
}

// Close cancels any request in flight.
func (f *Frame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	if f.cancel != nil {
		f.cancel()
	}
	return nil
}

// Check reports whether a browser would render resp inside a cross-origin
// iframe.
func Check(resp *http.Response) error {
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d", ErrRefused, resp.StatusCode)
	}

	if xfo := strings.ToUpper(strings.TrimSpace(resp.Header.Get("X-Frame-Options"))); xfo == "DENY" || xfo == "SAMEORIGIN" {
		return fmt.Errorf("%w: X-Frame-Options %s", ErrRefused, xfo)
	}

	for _, csp := range resp.Header.Values("Content-Security-Policy") {
		if sources, ok := frameAncestors(csp); ok && !allowsAnyAncestor(sources) {
			return fmt.Errorf("%w: frame-ancestors %s", ErrRefused, strings.Join(sources, " "))
		}
	}
	return nil
}

// frameAncestors returns the source list of the frame-ancestors directive.
func frameAncestors(policy string) ([]string, bool) {
	for _, directive := range strings.Split(policy, ";") {
		fields := strings.Fields(directive)
		if len(fields) == 0 {
			continue
		}
		if strings.EqualFold(fields[0], "frame-ancestors") {
			return fields[1:], true
		}
	}
	return nil, false
}

// allowsAnyAncestor is true for "*". An empty list is equivalent to 'none'.
func allowsAnyAncestor(sources []string) bool {
	for _, s := range sources {
		if s == "*" {
			return true
		}
	}
	return false
}

func readTitle(r io.Reader) string {
	z := html.NewTokenizer(r)
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			name, _ := z.TagName()
			inTitle = string(name) == "title"
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(z.Text()))
			}
		case html.EndTagToken:
			inTitle = false
		}
	}
}

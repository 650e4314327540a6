package browser

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"sync"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/playwright-community/playwright-go"
)

// eventBinding is the page function the host page calls on iframe events.
// It must match the handlers in hostPage.
const eventBinding = "__devpreviewFrameEvent"

var hostPage = template.Must(template.New("host").Parse(`<!DOCTYPE html>
<html>
<head>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>html, body { margin: 0; height: 100%; overflow: hidden; } iframe { border: 0; width: 100%; height: 100%; }</style>
</head>
<body>
<iframe id="target" title="{{.Title}}" src="{{.URL}}" sandbox="{{.Sandbox}}" allow="{{.Allow}}"
  onload="window.__devpreviewFrameEvent('load', '')"
  onerror="window.__devpreviewFrameEvent('error', 'iframe error event')"></iframe>
</body>
</html>
`))

// introspectScript reports whether the iframe document is reachable from the
// host page: "ok", "cross-origin" or "none".
const introspectScript = `() => {
  const frame = document.getElementById('target');
  if (!frame || !frame.contentWindow) return 'none';
  try {
    const doc = frame.contentWindow.document;
    return doc && doc.documentElement ? 'ok' : 'none';
  } catch (e) {
    return 'cross-origin';
  }
}`

func renderHostPage(d device.Descriptor, url string) (string, error) {
	var buf bytes.Buffer
	err := hostPage.Execute(&buf, struct {
		Title, URL, Sandbox, Allow string
	}{
		Title:   d.Name,
		URL:     url,
		Sandbox: preview.SandboxPolicy,
		Allow:   preview.AllowPolicy,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render host page: %w", err)
	}
	return buf.String(), nil
}

// Frame is a preview.Frame backed by a host page in its own browser
// context. The target URL is loaded in a sandboxed iframe on that page, so
// embedding refusals behave as they would in a regular browser tab.
type Frame struct {
	host    *Host
	device  device.Descriptor
	context playwright.BrowserContext
	page    playwright.Page

	mu      sync.Mutex
	handler preview.FrameHandler
	opened  bool
	closed  bool

	// deliverMu is held while a handler runs so detach can wait it out.
	deliverMu sync.Mutex
}

// Device returns the emulated device.
func (f *Frame) Device() device.Descriptor { return f.device }

// Open loads url into the frame's iframe and forwards its load and error
// events to h.
func (f *Frame) Open(url string, h preview.FrameHandler) (func(), error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, errors.New("frame is closed")
	}
	if f.opened {
		f.mu.Unlock()
		return nil, errors.New("frame already opened")
	}
	f.opened = true
	f.handler = h
	f.mu.Unlock()

	// Bindings run on the Playwright dispatcher; the handler may call back
	// into the page through Introspect, so it must run elsewhere.
	err := f.page.ExposeFunction(eventBinding, func(args ...interface{}) interface{} {
		kind, detail := bindingArgs(args)
		go f.deliver(kind, detail)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to expose event binding: %w", err)
	}

	content, err := renderHostPage(f.device, url)
	if err != nil {
		return nil, err
	}

	// The host document itself is tiny; do not wait for the iframe.
	err = f.page.SetContent(content, playwright.PageSetContentOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load host page: %w", err)
	}

	return f.detach, nil
}

func (f *Frame) detach() {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = nil
}

func (f *Frame) deliver(kind, detail string) {
	f.deliverMu.Lock()
	defer f.deliverMu.Unlock()

	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return
	}

	switch kind {
	case "load":
		h.OnLoad()
	case "error":
		h.OnError(fmt.Errorf("%s: %s", f.device.Name, detail))
	}
}

// Introspect evaluates document access from the host page.
func (f *Frame) Introspect() error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return preview.ErrNoDocument
	}

	result, err := f.page.Evaluate(introspectScript)
	if err != nil {
		return fmt.Errorf("%w: %v", preview.ErrNoDocument, err)
	}
	return introspectResult(result)
}

func introspectResult(result interface{}) error {
	switch result {
	case "ok":
		return nil
	case "cross-origin":
		return preview.ErrCrossOrigin
	default:
		return preview.ErrNoDocument
	}
}

// Close closes the frame's browser context. Safe to call more than once.
func (f *Frame) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.handler = nil
	f.mu.Unlock()

	f.host.release(f)
	if err := f.context.Close(); err != nil {
		return fmt.Errorf("failed to close context for %s: %w", f.device.Name, err)
	}
	return nil
}

func bindingArgs(args []interface{}) (kind, detail string) {
	if len(args) > 0 {
		kind, _ = args[0].(string)
	}
	if len(args) > 1 {
		detail, _ = args[1].(string)
	}
	return kind, detail
}

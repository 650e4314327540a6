package preview

import (
	"errors"

	"github.com/entrhq/devpreview/pkg/device"
)

// Introspection failures. Any other error from Introspect is treated like
// ErrNoDocument.
var (
	// ErrCrossOrigin: the document exists but its origin forbids access.
	ErrCrossOrigin = errors.New("frame document is cross-origin")

	// ErrNoDocument: the frame has no reachable document.
	ErrNoDocument = errors.New("frame document is unreachable")
)

// FrameHandler receives frame events. Either method may be called from any
// goroutine, more than once, and in any order.
type FrameHandler interface {
	OnLoad()
	OnError(err error)
}

// Frame is an embedded content frame: something that can be pointed at a URL
// and reports load and error events, like an iframe.
type Frame interface {
	// Open starts fetching url and delivers events to h until detach is
	// called. After detach returns no further calls reach h.
	Open(url string, h FrameHandler) (detach func(), err error)

	// Introspect tries to reach the frame's document. nil means reachable.
	Introspect() error

	// Close releases the frame.
	Close() error
}

// FrameFactory creates a frame sized for d.
type FrameFactory func(d device.Descriptor) (Frame, error)

// brokenFrame stands in for a frame the factory failed to create, so the
// failure surfaces as a blocked cell.
type brokenFrame struct {
	err error
}

func (f brokenFrame) Open(string, FrameHandler) (func(), error) { return nil, f.err }
func (f brokenFrame) Introspect() error                         { return ErrNoDocument }
func (f brokenFrame) Close() error                              { return nil }

// Attributes given to every embedded iframe, by the browser host page and
// the web surface alike.
const (
	SandboxPolicy = "allow-scripts allow-forms allow-same-origin allow-presentation allow-orientation-lock allow-modals allow-popups-to-escape-sandbox allow-pointer-lock allow-popups"
	AllowPolicy   = "accelerometer; autoplay; camera; encrypted-media; gyroscope; picture-in-picture; web-share"
)

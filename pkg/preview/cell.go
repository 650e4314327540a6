package preview

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/devpreview/pkg/clock"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/entrhq/devpreview/pkg/preview"

// Logger is the subset of logging.Logger the preview package uses.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}

// phase is the detector's internal position. Status only distinguishes
// loading from the two terminal states; phase tracks which timer is armed.
type phase int

const (
	phaseWaiting  phase = iota // detection timer armed, no event yet
	phaseSettling              // load seen, settle timer armed
	phaseProbing               // detection timer fired, introspecting
	phaseDone                  // terminal status reached
)

// Cell is one embedded preview: a device, a URL and the frame showing it.
//
// A cell starts loading when created and moves to ready or blocked exactly
// once. Frame events and timer expiries arrive on arbitrary goroutines; all
// transitions are serialized by the cell's mutex. A cell is never restarted:
// a new URL or device means a new cell.
type Cell struct {
	mu sync.Mutex

	id       string
	device   device.Descriptor
	url      string
	frame    Frame
	clock    clock.Clock
	timing   Timing
	logger   Logger
	observer func(Report)
	tracer   trace.Tracer
	ctx      context.Context

	status   Status
	reason   Reason
	verified bool
	phase    phase
	started  time.Time
	finished time.Time

	detection clock.Timer
	settle    clock.Timer
	detach    func()
	destroyed bool
	done      chan struct{}
	span      trace.Span
}

// CellOption configures a Cell.
type CellOption func(*Cell)

// WithClock sets the clock driving the settle and detection timers.
func WithClock(c clock.Clock) CellOption {
	return func(cell *Cell) { cell.clock = c }
}

// WithTiming sets the settle delay and detection timeout.
func WithTiming(t Timing) CellOption {
	return func(cell *Cell) { cell.timing = t }
}

// WithLogger sets the cell logger.
func WithLogger(l Logger) CellOption {
	return func(cell *Cell) {
		if l != nil {
			cell.logger = l
		}
	}
}

// WithObserver registers fn to receive the report of every status change.
// fn is called without the cell lock held.
func WithObserver(fn func(Report)) CellOption {
	return func(cell *Cell) { cell.observer = fn }
}

// WithTracer sets the tracer used for the cell lifecycle span.
func WithTracer(t trace.Tracer) CellOption {
	return func(cell *Cell) { cell.tracer = t }
}

// WithContext sets the parent context of the cell span.
func WithContext(ctx context.Context) CellOption {
	return func(cell *Cell) { cell.ctx = ctx }
}

// NewCell creates a cell for d at url and starts loading it in frame. The
// cell takes ownership of frame and closes it on Destroy.
func NewCell(d device.Descriptor, url string, frame Frame, opts ...CellOption) *Cell {
	c := &Cell{
		id:     uuid.New().String(),
		device: d,
		url:    url,
		frame:  frame,
		clock:  clock.New(),
		timing: DefaultTiming(),
		logger: nopLogger{},
		ctx:    context.Background(),
		status: StatusLoading,
		phase:  phaseWaiting,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}

	_, c.span = c.tracer.Start(c.ctx, "preview.cell", trace.WithAttributes(
		attribute.String("devpreview.cell.id", c.id),
		attribute.String("devpreview.device.name", d.Name),
		attribute.String("devpreview.device.size", d.Size()),
		attribute.String("devpreview.url", url),
	))

	c.mu.Lock()
	c.started = c.clock.Now()
	c.detection = c.clock.AfterFunc(c.timing.DetectionTimeout, c.onDetectionTimeout)
	c.mu.Unlock()

	c.logger.Debugf("preview: cell %s opening %s for %s (%s)", c.id, url, d.Name, d.Size())

	// Open runs without the lock: a frame may deliver events synchronously.
	detach, err := frame.Open(url, cellEvents{c})

	c.mu.Lock()
	if err != nil {
		if c.destroyed || c.phase == phaseDone {
			c.mu.Unlock()
			return c
		}
		c.stopTimersLocked()
		report := c.finishLocked(StatusBlocked, ReasonOpenFailed, false)
		c.span.RecordError(err)
		c.mu.Unlock()
		c.logger.Infof("preview: cell %s could not open %s: %v", c.id, url, err)
		c.notify(report)
		return c
	}
	if c.destroyed || c.phase == phaseDone {
		// Destroyed or failed while Open was running; nothing is listening.
		c.mu.Unlock()
		if detach != nil {
			detach()
		}
		return c
	}
	c.detach = detach
	c.mu.Unlock()
	return c
}

// ID returns the cell's unique id.
func (c *Cell) ID() string { return c.id }

// Device returns the descriptor the cell renders.
func (c *Cell) Device() device.Descriptor { return c.device }

// URL returns the target URL.
func (c *Cell) URL() string { return c.url }

// Status returns the current status.
func (c *Cell) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Report returns the current externally visible state.
func (c *Cell) Report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reportLocked()
}

// Done is closed when the cell reaches a terminal status or is destroyed.
func (c *Cell) Done() <-chan struct{} { return c.done }

// Destroy cancels pending timers, detaches the frame listeners and closes
// the frame. No status change or observer call happens afterwards. Calling
// Destroy more than once is harmless.
func (c *Cell) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.stopTimersLocked()
	detach := c.detach
	c.detach = nil
	if c.phase != phaseDone {
		c.span.SetAttributes(attribute.String("devpreview.status", "destroyed"))
		c.span.End()
		close(c.done)
	}
	c.mu.Unlock()

	if detach != nil {
		detach()
	}
	if err := c.frame.Close(); err != nil {
		c.logger.Debugf("preview: cell %s frame close: %v", c.id, err)
	}
}

func (c *Cell) onLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed || c.phase != phaseWaiting {
		return
	}
	c.phase = phaseSettling
	stopTimer(&c.detection)
	c.settle = c.clock.AfterFunc(c.timing.SettleDelay, c.onSettled)
	c.span.AddEvent("load")
}

func (c *Cell) onError(err error) {
	c.mu.Lock()
	if c.destroyed || c.phase == phaseDone {
		c.mu.Unlock()
		return
	}
	c.stopTimersLocked()
	if err != nil {
		c.span.RecordError(err)
	}
	report := c.finishLocked(StatusBlocked, ReasonError, false)
	c.mu.Unlock()

	c.logger.Infof("preview: cell %s blocked by frame error: %v", c.id, err)
	c.notify(report)
}

func (c *Cell) onSettled() {
	c.mu.Lock()
	if c.destroyed || c.phase != phaseSettling {
		c.mu.Unlock()
		return
	}
	c.settle = nil
	c.mu.Unlock()

	// A load without an error event counts as success even when the
	// document cannot be inspected; cross-origin pages are the common case.
	err := c.frame.Introspect()

	c.mu.Lock()
	if c.destroyed || c.phase != phaseSettling {
		c.mu.Unlock()
		return
	}
	var report Report
	if err == nil {
		report = c.finishLocked(StatusReady, ReasonLoad, true)
	} else {
		report = c.finishLocked(StatusReady, ReasonLoadUnverified, false)
	}
	c.mu.Unlock()

	c.notify(report)
}

func (c *Cell) onDetectionTimeout() {
	c.mu.Lock()
	if c.destroyed || c.phase != phaseWaiting {
		c.mu.Unlock()
		return
	}
	c.phase = phaseProbing
	c.detection = nil
	c.mu.Unlock()

	// Embedding refusals are usually silent: no load, no error. The only
	// observable signal left is whether a document exists.
	err := c.frame.Introspect()

	c.mu.Lock()
	if c.destroyed || c.phase != phaseProbing {
		c.mu.Unlock()
		return
	}
	var report Report
	if err == nil {
		report = c.finishLocked(StatusReady, ReasonTimeoutReachable, true)
	} else {
		report = c.finishLocked(StatusBlocked, ReasonTimeoutUnreachable, false)
	}
	c.mu.Unlock()

	c.logger.Infof("preview: cell %s timed out after %v: %s", c.id, c.timing.DetectionTimeout, report.Status)
	c.notify(report)
}

// finishLocked records a terminal status, releases the frame listeners and
// ends the span. Caller must hold c.mu.
func (c *Cell) finishLocked(status Status, reason Reason, verified bool) Report {
	c.phase = phaseDone
	c.status = status
	c.reason = reason
	c.verified = verified
	c.finished = c.clock.Now()

	if c.detach != nil {
		// Listener release must not block on the lock-holding goroutine.
		go c.detach()
		c.detach = nil
	}

	c.span.SetAttributes(
		attribute.String("devpreview.status", string(status)),
		attribute.String("devpreview.reason", string(reason)),
		attribute.Bool("devpreview.verified", verified),
	)
	if status == StatusBlocked {
		c.span.SetStatus(codes.Error, string(reason))
	} else {
		c.span.SetStatus(codes.Ok, "")
	}
	c.span.End()
	close(c.done)

	return c.reportLocked()
}

func (c *Cell) reportLocked() Report {
	r := Report{
		ID:       c.id,
		Device:   c.device,
		URL:      c.url,
		Status:   c.status,
		Reason:   c.reason,
		Verified: c.verified,
	}
	if !c.finished.IsZero() {
		r.Elapsed = c.finished.Sub(c.started)
	}
	return r
}

func (c *Cell) stopTimersLocked() {
	stopTimer(&c.detection)
	stopTimer(&c.settle)
}

func (c *Cell) notify(r Report) {
	if c.observer != nil {
		c.observer(r)
	}
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// cellEvents adapts a Cell to FrameHandler without exposing the handlers on
// Cell itself.
type cellEvents struct {
	c *Cell
}

func (e cellEvents) OnLoad()           { e.c.onLoad() }
func (e cellEvents) OnError(err error) { e.c.onError(err) }

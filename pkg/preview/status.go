package preview

import (
	"time"

	"github.com/entrhq/devpreview/pkg/device"
)

// Status is the load outcome of a preview cell.
type Status string

const (
	// StatusLoading is the initial state while the frame fetches its URL.
	StatusLoading Status = "loading"

	// StatusReady means the frame loaded, or at least appears to have.
	StatusReady Status = "ready"

	// StatusBlocked means the frame failed or was refused embedding. Surfaces
	// should offer to open the URL outside the frame.
	StatusBlocked Status = "blocked"
)

// Terminal reports whether no further transition can follow.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusBlocked
}

// Reason records which path produced a terminal status.
type Reason string

const (
	ReasonNone Reason = ""

	// ReasonLoad: load event, document reachable after the settle delay.
	ReasonLoad Reason = "load"

	// ReasonLoadUnverified: load event, document not inspectable (usually
	// cross-origin). Treated as ready.
	ReasonLoadUnverified Reason = "load-unverified"

	// ReasonError: the frame raised an error event.
	ReasonError Reason = "error"

	// ReasonTimeoutReachable: no event before the detection timeout, but the
	// document was reachable when probed.
	ReasonTimeoutReachable Reason = "timeout-reachable"

	// ReasonTimeoutUnreachable: no event before the detection timeout and no
	// document. Typical of frame-ancestors / X-Frame-Options refusals.
	ReasonTimeoutUnreachable Reason = "timeout-unreachable"

	// ReasonOpenFailed: the frame could not even start loading.
	ReasonOpenFailed Reason = "open-failed"
)

// Report is the externally visible state of one cell.
type Report struct {
	ID       string            `json:"id"`
	Device   device.Descriptor `json:"device"`
	URL      string            `json:"url"`
	Status   Status            `json:"status"`
	Reason   Reason            `json:"reason,omitempty"`
	Verified bool              `json:"verified"`
	Elapsed  time.Duration     `json:"elapsed"`
}

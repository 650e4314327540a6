package browser

// Default values for the frame host.
const (
	// DefaultMaxFrames is the default cap on concurrently open frames.
	DefaultMaxFrames = 16

	// DefaultTimeout is the default Playwright operation timeout in
	// milliseconds.
	DefaultTimeout = 30000.0
)

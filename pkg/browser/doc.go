// Package browser hosts preview frames in a headless Chromium driven by
// Playwright.
//
// # Architecture
//
// A Host owns the Playwright driver and one browser. Each preview cell gets
// a Frame: a fresh browser context configured for the device (viewport,
// device scale factor, user agent, touch) holding a small host page. The
// host page embeds the target URL in an iframe with the same sandbox and
// allow attributes the web surface uses, so X-Frame-Options and
// frame-ancestors refusals behave as they do for a user.
//
// # Events
//
// The iframe's load and error handlers call a function exposed with
// Page.ExposeFunction. Playwright runs bindings on its dispatcher goroutine,
// so events are handed to the cell on a separate goroutine; the cell may
// then call Introspect, which evaluates script in the host page.
//
// # Lifecycle
//
//  1. NewHost, then Initialize (installs the driver on first use)
//  2. NewFrame per device, or Factory for a preview.Surface
//  3. Frame.Close when the cell is destroyed
//  4. Shutdown closes every frame and the browser
package browser

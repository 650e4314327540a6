package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/entrhq/devpreview/pkg/clock"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/registry"
	"github.com/entrhq/devpreview/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// idleFrame never raises events.
type idleFrame struct{}

func (idleFrame) Open(string, preview.FrameHandler) (func(), error) { return func() {}, nil }
func (idleFrame) Introspect() error                                { return preview.ErrNoDocument }
func (idleFrame) Close() error                                     { return nil }

type testEnv struct {
	store   *registry.Store
	surface *preview.Surface
	server  *Server
	ts      *httptest.Server
}

func newTestEnv(t *testing.T, factory preview.FrameFactory) *testEnv {
	t.Helper()
	if factory == nil {
		factory = func(device.Descriptor) (preview.Frame, error) { return idleFrame{}, nil }
	}
	store := registry.Load(storage.NewMemoryStore(), device.Builtins())
	surface := preview.NewSurface(factory, preview.WithClock(clock.NewFake()))
	srv := New(DefaultConfig(), store, surface, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		surface.Close()
	})
	return &testEnv{store: store, surface: surface, server: srv, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListDevices(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.Toggle("iPad Mini"))

	resp := env.do(t, "GET", "/api/devices", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[DevicesResponse](t, resp)

	assert.Len(t, body.Devices, len(device.Builtins()))
	assert.Equal(t, []string{"iPad Mini"}, body.Selected)
	assert.Equal(t, uint64(1), body.Version)
	assert.Equal(t, device.CategoryMobile, body.Devices[0].Category)

	resp = env.do(t, "GET", "/api/devices?q=ipad*", "")
	filtered := decode[DevicesResponse](t, resp)
	assert.Equal(t, []string{"iPad Mini", "iPad Air", "iPad Pro"}, namesOf(filtered.Devices))
}

func namesOf(views []DeviceView) []string {
	names := make([]string, 0, len(views))
	for _, v := range views {
		names = append(names, v.Name)
	}
	return names
}

func TestAddDevice(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"created", `{"name":"Kiosk","width":1080,"height":1920}`, http.StatusCreated},
		{"duplicate builtin", `{"name":"Laptop","width":1080,"height":1920}`, http.StatusConflict},
		{"too wide", `{"name":"Wall","width":5000,"height":1000}`, http.StatusBadRequest},
		{"malformed", `{"name":`, http.StatusBadRequest},
		{"unknown field", `{"name":"X","width":10,"height":10,"color":"red"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			before := env.store.Snapshot()

			resp := env.do(t, "POST", "/api/devices", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == http.StatusCreated {
				view := decode[DeviceView](t, resp)
				assert.Equal(t, "Kiosk", view.Name)
				assert.Equal(t, device.OriginCustom, view.Origin)
				assert.Equal(t, device.CategoryCustom, view.Category)
				assert.False(t, view.Selected)
			} else {
				assert.Equal(t, before, env.store.Snapshot())
			}
		})
	}
}

func TestRemoveDevice(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.AddCustom(device.Spec{Name: "Kiosk", Width: 1080, Height: 1920}))

	assert.Equal(t, http.StatusNoContent, env.do(t, "DELETE", "/api/devices/Kiosk", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(t, "DELETE", "/api/devices/Kiosk", "").StatusCode)
	assert.Equal(t, http.StatusConflict, env.do(t, "DELETE", "/api/devices/Laptop", "").StatusCode)

	// Names are path-escaped by clients.
	assert.Equal(t, http.StatusConflict, env.do(t, "DELETE", "/api/devices/iPhone%20SE", "").StatusCode)

	t.Run("name with slash", func(t *testing.T) {
		require.NoError(t, env.store.AddCustom(device.Spec{Name: "Foo/Bar", Width: 800, Height: 600}))
		assert.Equal(t, http.StatusNoContent, env.do(t, "DELETE", "/api/devices/Foo%2FBar", "").StatusCode)
		_, ok := env.store.Snapshot().Find("Foo/Bar")
		assert.False(t, ok)

		assert.Equal(t, http.StatusConflict, env.do(t, "DELETE", "/api/devices/Samsung%20Galaxy%20A51%2F71", "").StatusCode)
	})
}

func TestToggleDevice(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, "POST", "/api/devices/Laptop/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[DeviceView](t, resp).Selected)
	assert.Equal(t, []string{"Laptop"}, env.store.Snapshot().SelectedNames())

	assert.Equal(t, http.StatusNotFound, env.do(t, "POST", "/api/devices/Nope/toggle", "").StatusCode)

	resp = env.do(t, "POST", "/api/devices/Samsung%20Galaxy%20A51%2F71/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[DeviceView](t, resp)
	assert.Equal(t, "Samsung Galaxy A51/71", view.Name)
	assert.True(t, view.Selected)
	assert.Equal(t, []string{"Samsung Galaxy A51/71", "Laptop"}, env.store.Snapshot().SelectedNames())
}

func TestSetSelection(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, "PUT", "/api/selection", `{"names":["Laptop","iPhone SE"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"iPhone SE", "Laptop"}, decode[DevicesResponse](t, resp).Selected)

	resp = env.do(t, "PUT", "/api/selection", `{"names":["Laptop","Nope"]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, []string{"iPhone SE", "Laptop"}, env.store.Snapshot().SelectedNames())
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.Select([]string{"iPhone SE", "Laptop"}))

	resp := env.do(t, "GET", "/api/preview?url=example.org", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[PreviewResponse](t, resp)

	assert.Equal(t, "https://example.org", body.URL)
	require.Len(t, body.Reports, 2)
	assert.Equal(t, "iPhone SE", body.Reports[0].Device.Name)
	assert.Equal(t, preview.StatusLoading, body.Reports[0].Status)

	// Selection changes reach the surface without another preview request.
	require.NoError(t, env.store.Toggle("Laptop"))
	assert.Len(t, env.surface.Reports(), 1)

	resp = env.do(t, "GET", "/api/preview?url=ftp://example.org", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreview_Disabled(t *testing.T) {
	store := registry.Load(storage.NewMemoryStore(), device.Builtins())
	srv := New(DefaultConfig(), store, nil, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/preview", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func parsePage(t *testing.T, resp *http.Response) *html.Node {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := html.Parse(resp.Body)
	require.NoError(t, err)
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	if match(n) {
		out = append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, findAll(c, match)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == tag }
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func TestPage(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.Select([]string{"iPhone SE", "Desktop HD"}))

	doc := parsePage(t, env.do(t, "GET", "/?url="+"https%3A%2F%2Fgo.dev%2Fdoc%3Fa%3D1", ""))

	iframes := findAll(doc, isElement("iframe"))
	require.Len(t, iframes, 2)
	assert.Equal(t, "https://go.dev/doc?a=1", attr(iframes[0], "src"))
	assert.Equal(t, "iPhone SE", attr(iframes[0], "title"))
	assert.Equal(t, "375", attr(iframes[0], "width"))
	assert.Equal(t, preview.SandboxPolicy, attr(iframes[0], "sandbox"))
	assert.Equal(t, preview.AllowPolicy, attr(iframes[0], "allow"))
	assert.Contains(t, attr(iframes[0], "style"), "scale(0.75)")

	viewports := findAll(doc, hasClass("viewport"))
	require.Len(t, viewports, 2)
	assert.Contains(t, attr(viewports[1], "style"), "width: 1440px")

	links := findAll(doc, func(n *html.Node) bool {
		return isElement("a")(n) && attr(n, "target") == "_blank"
	})
	require.Len(t, links, 2)
	assert.Equal(t, "https://go.dev/doc?a=1", attr(links[0], "href"))
}

func TestPage_Zoom(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.Select([]string{"Laptop"}))

	tests := []struct {
		query string
		want  string
	}{
		{"zoom=50", "width: 683px"},
		{"zoom=100", "width: 1366px"},
		{"zoom=10", "width: 1024px"},
		{"zoom=abc", "width: 1024px"},
	}
	for _, tt := range tests {
		doc := parsePage(t, env.do(t, "GET", "/?"+tt.query, ""))
		viewports := findAll(doc, hasClass("viewport"))
		require.Len(t, viewports, 1, tt.query)
		assert.Contains(t, attr(viewports[0], "style"), tt.want, tt.query)
	}
}

func TestPage_BlockedFallback(t *testing.T) {
	env := newTestEnv(t, func(d device.Descriptor) (preview.Frame, error) {
		if d.Name == "Laptop" {
			return nil, errors.New("no frames left")
		}
		return idleFrame{}, nil
	})
	require.NoError(t, env.store.Select([]string{"iPhone SE", "Laptop"}))

	doc := parsePage(t, env.do(t, "GET", "/", ""))

	blocked := findAll(doc, hasClass("blocked"))
	require.Len(t, blocked, 1)
	assert.Equal(t, "Laptop", attr(blocked[0], "data-device"))
}

func TestPage_EmptySelection(t *testing.T) {
	env := newTestEnv(t, nil)

	doc := parsePage(t, env.do(t, "GET", "/", ""))
	assert.Empty(t, findAll(doc, isElement("iframe")))
	assert.Len(t, findAll(doc, hasClass("empty")), 1)
}

func TestPage_InvalidURL(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.store.Select([]string{"Laptop"}))

	doc := parsePage(t, env.do(t, "GET", "/?url=javascript%3Aalert(1)", ""))
	assert.Empty(t, findAll(doc, isElement("iframe")))
	assert.Len(t, findAll(doc, hasClass("error")), 1)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://example.com", "https://example.com", false},
		{"  example.com/path?q=1 ", "https://example.com/path?q=1", false},
		{"HTTP://localhost:3000", "http://localhost:3000", false},
		{"", "", true},
		{"ftp://example.com", "", true},
		{"javascript:alert(1)", "", true},
		{"https://", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidURL, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLaunchURL(t *testing.T) {
	got, err := LaunchURL("http://127.0.0.1:7878", "https://example.com/a?b=c&d=e")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:7878/?url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc%26d%3De", got)

	_, err = LaunchURL("://bad", "https://example.com")
	assert.Error(t, err)
}

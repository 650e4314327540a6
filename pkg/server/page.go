package server

import (
	"bytes"
	"html/template"
	"net/http"
	"strconv"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
)

// Zoom bounds for the preview page, in percent.
const (
	MinZoom     = 25
	MaxZoom     = 100
	DefaultZoom = 75
)

var zoomLevels = []int{25, 50, 75, 100}

type pageCard struct {
	Name     string
	Size     string
	Category device.Category
	Width    int
	Height   int
	Scaled   struct{ Width, Height int }
	Status   preview.Status
	Blocked  bool
}

type pageData struct {
	URL        string
	Error      string
	Zoom       int
	Scale      float64
	ZoomLevels []int
	Cards      []pageCard
	Total      int
	Sandbox    string
	Allow      string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>devpreview{{if .URL}} - {{.URL}}{{end}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #1e1e2e; color: #cdd6f4; }
header { display: flex; gap: 1rem; align-items: center; padding: 0.75rem 1rem; background: #181825; }
header input[type=text] { flex: 1; padding: 0.4rem; }
.count { color: #a6adc8; }
.grid { display: flex; flex-wrap: wrap; gap: 1.5rem; padding: 1rem; align-items: flex-start; }
.card h2 { font-size: 0.9rem; margin: 0 0 0.4rem; }
.card .meta { color: #a6adc8; font-size: 0.8rem; }
.viewport { position: relative; overflow: hidden; background: #fff; border-radius: 6px; }
.viewport iframe { border: 0; transform-origin: 0 0; }
.fallback { display: none; position: absolute; inset: 0; background: #313244; color: #cdd6f4;
  flex-direction: column; align-items: center; justify-content: center; text-align: center; padding: 1rem; }
.card.blocked .fallback { display: flex; }
.card.blocked iframe { visibility: hidden; }
.card .status { font-size: 0.75rem; }
.empty, .error { padding: 2rem; text-align: center; }
.error { color: #f38ba8; }
a { color: #89b4fa; }
</style>
</head>
<body>
<header>
  <form method="get" action="/">
    <input type="text" name="url" value="{{.URL}}" placeholder="https://example.com" size="48">
    <select name="zoom">
      {{range .ZoomLevels}}<option value="{{.}}"{{if eq . $.Zoom}} selected{{end}}>{{.}}%</option>{{end}}
    </select>
    <button type="submit">Preview</button>
  </form>
  <span class="count">{{len .Cards}} of {{.Total}} devices selected</span>
</header>
{{if .Error}}<div class="error">{{.Error}}</div>{{end}}
{{if not .Cards}}
<div class="empty">No devices selected. Select devices with <code>devpreview tui</code> or the API.</div>
{{else}}
<main class="grid">
{{range .Cards}}
  <section class="card{{if .Blocked}} blocked{{end}}" data-device="{{.Name}}">
    <h2>{{.Name}}</h2>
    <div class="meta">{{.Category}} &middot; {{.Size}} &middot; <span class="status">{{.Status}}</span></div>
    <div class="viewport" style="width: {{.Scaled.Width}}px; height: {{.Scaled.Height}}px">
      <iframe src="{{$.URL}}" title="{{.Name}}" width="{{.Width}}" height="{{.Height}}"
        style="transform: scale({{$.Scale}})"
        sandbox="{{$.Sandbox}}" allow="{{$.Allow}}"></iframe>
      <div class="fallback">
        <p>This site does not allow being embedded.</p>
        <a href="{{$.URL}}" target="_blank" rel="noopener noreferrer">Open in new tab</a>
      </div>
    </div>
  </section>
{{end}}
</main>
<script>
(function () {
  const target = {{.URL}};
  function poll() {
    fetch('/api/preview?url=' + encodeURIComponent(target))
      .then(function (r) { return r.ok ? r.json() : null; })
      .then(function (body) {
        if (!body) return;
        let pending = false;
        body.reports.forEach(function (report) {
          const card = document.querySelector('[data-device="' + CSS.escape(report.device.name) + '"]');
          if (!card) return;
          card.querySelector('.status').textContent = report.status;
          card.classList.toggle('blocked', report.status === 'blocked');
          if (report.status === 'loading') pending = true;
        });
        if (pending) setTimeout(poll, 500);
      });
  }
  poll();
})();
</script>
{{end}}
</body>
</html>
`))

// parseZoom reads the zoom parameter, falling back to DefaultZoom for
// missing or out-of-range values.
func parseZoom(raw string) int {
	zoom, err := strconv.Atoi(raw)
	if err != nil || zoom < MinZoom || zoom > MaxZoom {
		return DefaultZoom
	}
	return zoom
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{
		Zoom:       parseZoom(q.Get("zoom")),
		ZoomLevels: zoomLevels,
		Sandbox:    preview.SandboxPolicy,
		Allow:      preview.AllowPolicy,
	}
	data.Scale = float64(data.Zoom) / 100

	data.URL = s.cfg.DefaultURL
	if raw := q.Get("url"); raw != "" {
		normalized, err := NormalizeURL(raw)
		if err != nil {
			data.Error = err.Error()
			data.URL = ""
		} else {
			data.URL = normalized
		}
	}

	status := map[string]preview.Status{}
	if data.URL != "" {
		s.syncSurface(data.URL)
		if s.surface != nil {
			for _, report := range s.surface.Reports() {
				status[report.Device.Name] = report.Status
			}
		}
	}

	state := s.registry.Snapshot()
	data.Total = state.Len()
	if data.URL != "" {
		for _, d := range state.Selected() {
			card := pageCard{
				Name:     d.Name,
				Size:     d.Size(),
				Category: device.Categorize(d),
				Width:    d.Width,
				Height:   d.Height,
				Status:   preview.StatusLoading,
			}
			card.Scaled.Width = d.Width * data.Zoom / 100
			card.Scaled.Height = d.Height * data.Zoom / 100
			if st, ok := status[d.Name]; ok {
				card.Status = st
			}
			card.Blocked = card.Status == preview.StatusBlocked
			data.Cards = append(data.Cards, card)
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Errorf("server: render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/registry"
)

type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeAdd
	modeURL
)

// Messages
type (
	// reportMsg carries a cell transition from the surface observer.
	reportMsg preview.Report

	// syncedMsg is returned once the surface matches the registry.
	syncedMsg struct {
		url     string
		reports []preview.Report
	}

	copiedMsg struct {
		url string
		err error
	}
)

// model holds the TUI state.
type model struct {
	store   *registry.Store
	sync    *syncer
	logger  Logger
	copyURL func(string) error

	state   registry.State
	visible []device.Descriptor
	cursor  int
	url     string
	reports map[string]preview.Report

	mode     mode
	filter   textinput.Model
	urlInput textinput.Model
	form     addForm
	spinner  spinner.Model

	status    string
	statusErr bool

	width  int
	height int
}

func newModel(store *registry.Store, surface *preview.Surface, url string) *model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = spinnerStyle

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter devices (glob or substring)"

	urlInput := textinput.New()
	urlInput.Prompt = "url: "
	urlInput.Placeholder = "https://example.com"
	urlInput.CharLimit = 2048

	m := &model{
		store:    store,
		sync:     newSyncer(surface, store, url),
		logger:   nopLogger{},
		copyURL:  func(string) error { return nil },
		url:      url,
		reports:  make(map[string]preview.Report),
		filter:   filter,
		urlInput: urlInput,
		form:     newAddForm(),
		spinner:  s,
		width:    80,
		height:   24,
	}
	m.refresh()
	return m
}

// refresh reloads the registry snapshot and reapplies the filter.
func (m *model) refresh() {
	m.state = m.store.Snapshot()
	m.visible = device.Filter(m.state.Devices(), m.filter.Value())
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// current returns the device under the cursor.
func (m *model) current() (device.Descriptor, bool) {
	if len(m.visible) == 0 {
		return device.Descriptor{}, false
	}
	return m.visible[m.cursor], true
}

func (m *model) setStatus(format string, v ...interface{}) {
	m.status = fmt.Sprintf(format, v...)
	m.statusErr = false
}

func (m *model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

// loading reports whether any selected device still awaits a verdict.
func (m *model) loading() bool {
	for _, r := range m.reports {
		if r.Status == preview.StatusLoading {
			return true
		}
	}
	return false
}

// Add-device form fields.
const (
	fieldName = iota
	fieldWidth
	fieldHeight
	fieldRatio
	fieldUserAgent
	fieldCount
)

type addForm struct {
	inputs []textinput.Model
	focus  int
}

func newAddForm() addForm {
	labels := [fieldCount]struct{ prompt, placeholder string }{
		fieldName:      {"name:       ", "My Phone"},
		fieldWidth:     {"width:      ", fmt.Sprintf("%d-%d", device.MinDimension, device.MaxDimension)},
		fieldHeight:    {"height:     ", fmt.Sprintf("%d-%d", device.MinDimension, device.MaxDimension)},
		fieldRatio:     {"pixel ratio:", fmt.Sprintf("%g (optional)", device.DefaultPixelRatio)},
		fieldUserAgent: {"user agent: ", "optional"},
	}
	f := addForm{inputs: make([]textinput.Model, fieldCount)}
	for i, l := range labels {
		in := textinput.New()
		in.Prompt = l.prompt + " "
		in.Placeholder = l.placeholder
		f.inputs[i] = in
	}
	f.inputs[fieldName].CharLimit = 64
	return f
}

func (f *addForm) reset() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].Reset()
		f.inputs[i].Blur()
	}
	f.focus = fieldName
	return f.inputs[fieldName].Focus()
}

func (f *addForm) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	return f.inputs[f.focus].Focus()
}

// spec parses the form into a device spec. Bounds are checked by the registry.
func (f *addForm) spec() (device.Spec, error) {
	value := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }

	spec := device.Spec{Name: value(fieldName), UserAgent: value(fieldUserAgent)}
	var err error
	if spec.Width, err = strconv.Atoi(value(fieldWidth)); err != nil {
		return device.Spec{}, fmt.Errorf("width must be a whole number")
	}
	if spec.Height, err = strconv.Atoi(value(fieldHeight)); err != nil {
		return device.Spec{}, fmt.Errorf("height must be a whole number")
	}
	if raw := value(fieldRatio); raw != "" {
		if spec.PixelRatio, err = strconv.ParseFloat(raw, 64); err != nil {
			return device.Spec{}, fmt.Errorf("pixel ratio must be a number")
		}
	}
	return spec, nil
}

package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/server"
)

// Init starts the spinner and brings the surface in line with the registry.
func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.sync.cmd())
}

// Update handles all state updates for the TUI model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case reportMsg:
		m.handleReport(preview.Report(msg))
		return m, nil

	case syncedMsg:
		if msg.url != m.url {
			return m, nil
		}
		m.reports = make(map[string]preview.Report, len(msg.reports))
		for _, r := range msg.reports {
			m.reports[r.Device.Name] = r
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setError(errors.New("clipboard unavailable: " + msg.err.Error()))
		} else {
			m.setStatus("copied %s", msg.url)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeFilter:
			return m.updateFilter(msg)
		case modeAdd:
			return m.updateAdd(msg)
		case modeURL:
			return m.updateURL(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

// handleReport records a cell transition if the cell is still live on the
// surface. Reports from torn-down cells can arrive late.
func (m *model) handleReport(r preview.Report) {
	if r.URL != m.url || m.sync.surface == nil {
		return
	}
	c, ok := m.sync.surface.Cell(r.Device.Name)
	if !ok || c.ID() != r.ID {
		return
	}
	m.reports[r.Device.Name] = r
}

func (m *model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(len(m.visible)-1, 0)

	case " ":
		d, ok := m.current()
		if !ok {
			return m, nil
		}
		if err := m.store.Toggle(d.Name); err != nil {
			m.setError(err)
			return m, nil
		}
		m.refresh()
		if d.Selected {
			m.setStatus("deselected %s", d.Name)
		} else {
			m.setStatus("selected %s", d.Name)
		}
		return m, m.sync.cmd()

	case "/":
		m.mode = modeFilter
		return m, m.filter.Focus()

	case "a":
		m.mode = modeAdd
		m.status = ""
		return m, m.form.reset()

	case "d":
		d, ok := m.current()
		if !ok {
			return m, nil
		}
		if err := m.store.RemoveCustom(d.Name); err != nil {
			m.setError(err)
			return m, nil
		}
		m.refresh()
		m.setStatus("removed %s", d.Name)
		return m, m.sync.cmd()

	case "u":
		m.mode = modeURL
		m.urlInput.SetValue(m.url)
		m.urlInput.CursorEnd()
		return m, m.urlInput.Focus()

	case "y":
		if m.url == "" {
			m.setError(errors.New("no URL to copy"))
			return m, nil
		}
		url, copyURL := m.url, m.copyURL
		return m, func() tea.Msg {
			return copiedMsg{url: url, err: copyURL(url)}
		}

	case "esc":
		if m.filter.Value() != "" {
			m.filter.Reset()
			m.refresh()
		}
	}
	return m, nil
}

func (m *model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filter.Reset()
		m.filter.Blur()
		m.mode = modeBrowse
		m.refresh()
		return m, nil
	case tea.KeyEnter:
		m.filter.Blur()
		m.mode = modeBrowse
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.cursor = 0
	m.refresh()
	return m, cmd
}

func (m *model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.setStatus("add cancelled")
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.form.move(1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.form.move(-1)
	case tea.KeyEnter:
		spec, err := m.form.spec()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		if err := m.store.AddCustom(spec); err != nil {
			m.setError(err)
			return m, nil
		}
		m.mode = modeBrowse
		m.refresh()
		m.setStatus("added %s", spec.Descriptor().Name)
		return m, nil
	}

	var cmd tea.Cmd
	m.form.inputs[m.form.focus], cmd = m.form.inputs[m.form.focus].Update(msg)
	return m, cmd
}

func (m *model) updateURL(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.urlInput.Blur()
		m.mode = modeBrowse
		return m, nil
	case tea.KeyEnter:
		raw := m.urlInput.Value()
		url := ""
		if raw != "" {
			normalized, err := server.NormalizeURL(raw)
			if err != nil {
				m.setError(err)
				return m, nil
			}
			url = normalized
		}
		m.urlInput.Blur()
		m.mode = modeBrowse
		if url == m.url {
			return m, nil
		}
		m.url = url
		m.reports = make(map[string]preview.Report)
		m.sync.setURL(url)
		if url == "" {
			m.setStatus("preview cleared")
		} else {
			m.setStatus("previewing %s", url)
		}
		m.logger.Debugf("tui: url set to %q", url)
		return m, m.sync.cmd()
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/devpreview/pkg/preview"
)

// View renders the entire TUI interface.
func (m *model) View() string {
	sections := []string{
		m.buildHeader(),
		m.buildList(),
	}
	if box := m.buildInputBox(); box != "" {
		sections = append(sections, box)
	}
	sections = append(sections, m.buildStatus(), m.buildTips())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *model) buildHeader() string {
	selected := len(m.state.SelectedNames())
	target := tipsStyle.Render("no URL (press u)")
	if m.url != "" {
		target = urlStyle.Render(m.url)
	}
	count := tipsStyle.Render(fmt.Sprintf("%d of %d devices selected", selected, m.state.Len()))
	if m.loading() {
		count += "  " + m.spinner.View() + tipsStyle.Render(" detecting")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("devpreview")+"  "+target,
		count,
		"",
	)
}

// listHeight is the number of device rows that fit on screen.
func (m *model) listHeight() int {
	reserved := 10
	if m.mode == modeAdd {
		reserved += fieldCount + 1
	}
	return max(m.height-reserved, 3)
}

func (m *model) buildList() string {
	if len(m.visible) == 0 {
		if m.filter.Value() != "" {
			return tipsStyle.Render(fmt.Sprintf("  no devices match %q", m.filter.Value()))
		}
		return tipsStyle.Render("  no devices")
	}

	// Keep the cursor in a scrolling window.
	height := m.listHeight()
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.visible))

	var b strings.Builder
	for i := start; i < end; i++ {
		d := m.visible[i]

		pointer := "  "
		name := nameStyle.Render(d.Name)
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
			name = cursorStyle.Render(d.Name)
		}
		check := "[ ]"
		if d.Selected {
			check = checkStyle.Render("[x]")
		}

		line := fmt.Sprintf("%s%s %s %-28s %s", pointer, check, badge(d), name, sizeStyle.Render(fmt.Sprintf("%-10s", d.Size())))
		if d.Selected && m.url != "" {
			if r, ok := m.reports[d.Name]; ok {
				line += "  " + statusText(r, m.spinner.View())
			} else if m.sync.surface != nil {
				line += "  " + statusText(preview.Report{Status: preview.StatusLoading}, m.spinner.View())
			}
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m *model) buildInputBox() string {
	width := max(m.width-4, 20)
	switch m.mode {
	case modeFilter:
		return inputBoxStyle.Width(width).Render(m.filter.View())
	case modeURL:
		return inputBoxStyle.Width(width).Render(m.urlInput.View())
	case modeAdd:
		rows := []string{headerStyle.Render("New custom device")}
		for _, in := range m.form.inputs {
			rows = append(rows, in.View())
		}
		return inputBoxStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}
	if v := m.filter.Value(); v != "" {
		return tipsStyle.Render("  filter: " + v + " (esc to clear)")
	}
	return ""
}

func (m *model) buildStatus() string {
	if m.status == "" {
		if m.hasBlocked() {
			return statusBarStyle.Render("some devices refuse embedding: press y to copy the URL and open it in a browser")
		}
		return ""
	}
	if m.statusErr {
		return statusBarStyle.Render(errorStyle.Render(m.status))
	}
	return statusBarStyle.Render(m.status)
}

func (m *model) buildTips() string {
	switch m.mode {
	case modeFilter:
		return tipsStyle.Render("  Filter: type a name or glob • Enter to keep • Esc to clear")
	case modeURL:
		return tipsStyle.Render("  URL: Enter to preview • empty to clear • Esc to cancel")
	case modeAdd:
		return tipsStyle.Render("  Add: Tab/Shift+Tab to move • Enter to save • Esc to cancel")
	}
	return tipsStyle.Render("  Tips: Space to toggle • / filter • a add • d delete custom • u set URL • y copy URL • q quit")
}

func (m *model) hasBlocked() bool {
	for _, r := range m.reports {
		if r.Status == preview.StatusBlocked {
			return true
		}
	}
	return false
}

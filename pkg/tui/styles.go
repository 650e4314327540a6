package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
)

// Color Palette
// This is the single source of truth for all TUI colors.
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // primary accent, blocked
	coralPink   = lipgloss.Color("#FFCCCB") // cursor
	mintGreen   = lipgloss.Color("#A8E6CF") // selected, ready
	skyBlue     = lipgloss.Color("#A0C4FF") // tablet badge
	lavender    = lipgloss.Color("#CDB4DB") // custom badge
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	urlStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Underline(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(coralPink).
			Bold(true)

	nameStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	sizeStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	checkStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	readyStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	blockedStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)

	badgeStyle = lipgloss.NewStyle().
			Width(9).
			Bold(true)
)

// badge renders the category label for d.
func badge(d device.Descriptor) string {
	c := device.Categorize(d)
	color := mutedGray
	switch c {
	case device.CategoryMobile:
		color = mintGreen
	case device.CategoryTablet:
		color = skyBlue
	case device.CategoryDesktop:
		color = coralPink
	case device.CategoryCustom:
		color = lavender
	}
	return badgeStyle.Foreground(color).Render(string(c))
}

// statusText renders a cell status. Loading uses the spinner frame.
func statusText(r preview.Report, spin string) string {
	switch r.Status {
	case preview.StatusReady:
		label := "ready"
		if !r.Verified {
			label = "ready (unverified)"
		}
		return readyStyle.Render(label)
	case preview.StatusBlocked:
		return blockedStyle.Render("blocked") + tipsStyle.Render(" · "+string(r.Reason))
	default:
		return spin + tipsStyle.Render(" loading")
	}
}

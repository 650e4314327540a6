package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/mattn/go-isatty"
)

var (
	headerCell  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB3BA")).Padding(0, 1)
	plainCell   = lipgloss.NewStyle().Padding(0, 1)
	readyCell   = plainCell.Foreground(lipgloss.Color("#A8E6CF"))
	blockedCell = plainCell.Foreground(lipgloss.Color("#FFB3BA")).Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// colorEnabled reports whether stdout is a terminal and color was not
// turned off.
func colorEnabled(config *Config) bool {
	if config.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

func newTable(color bool, headers ...string) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...)
	if color {
		t = t.BorderStyle(borderStyle)
	}
	return t
}

// renderDevices renders the device list as a table.
func renderDevices(devices []device.Descriptor, color bool) string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		selected := ""
		if d.Selected {
			selected = "yes"
		}
		rows = append(rows, []string{
			d.Name,
			d.Size(),
			strconv.FormatFloat(d.EffectivePixelRatio(), 'g', -1, 64),
			string(device.Categorize(d)),
			string(d.Origin),
			selected,
		})
	}

	t := newTable(color, "NAME", "SIZE", "RATIO", "CATEGORY", "ORIGIN", "SELECTED").Rows(rows...)
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow && color {
			return headerCell
		}
		return plainCell
	})
	return t.String()
}

// renderReports renders probe verdicts as a table.
func renderReports(reports []preview.Report, color bool) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.Device.Name,
			r.Device.Size(),
			string(r.Status),
			string(r.Reason),
			r.Elapsed.Round(time.Millisecond).String(),
		})
	}

	t := newTable(color, "DEVICE", "SIZE", "STATUS", "REASON", "ELAPSED").Rows(rows...)
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case !color:
			return plainCell
		case row == table.HeaderRow:
			return headerCell
		case col == 2 && reports[row].Status == preview.StatusBlocked:
			return blockedCell
		case col == 2 && reports[row].Status == preview.StatusReady:
			return readyCell
		}
		return plainCell
	})
	return t.String()
}

// writeDevicesJSON writes the devices as indented JSON, highlighted when
// color is set.
func writeDevicesJSON(w io.Writer, devices []device.Descriptor, color bool) error {
	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode devices: %w", err)
	}
	if !color {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if err := quick.Highlight(w, string(data)+"\n", "json", "terminal256", "monokai"); err != nil {
		return fmt.Errorf("failed to highlight output: %w", err)
	}
	return nil
}

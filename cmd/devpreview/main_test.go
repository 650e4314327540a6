package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	appconfig "github.com/entrhq/devpreview/pkg/config"
	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/logging"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		rest    []string
		check   func(t *testing.T, c *Config)
	}{
		{name: "defaults to tui", args: nil, command: ""},
		{
			name:    "command with url",
			args:    []string{"-no-browser", "probe", "example.com"},
			command: "probe",
			rest:    []string{"example.com"},
			check: func(t *testing.T, c *Config) {
				assert.True(t, c.NoBrowser)
			},
		},
		{
			name:    "serve with port",
			args:    []string{"-port", "9000", "-log-level", "debug", "serve"},
			command: "serve",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 9000, c.Port)
				assert.Equal(t, "debug", c.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := parseFlags(tt.args)
			assert.Equal(t, tt.command, c.Command)
			assert.Equal(t, len(tt.rest), len(c.Args))
			for i := range tt.rest {
				assert.Equal(t, tt.rest[i], c.Args[i])
			}
			if tt.check != nil {
				tt.check(t, c)
			}
		})
	}
}

func TestConfig_TargetURL(t *testing.T) {
	c := &Config{}
	assert.Equal(t, "https://example.com", c.targetURL("https://example.com"))

	c.URL = "flag.example"
	assert.Equal(t, "flag.example", c.targetURL("https://example.com"))

	c.Args = []string{"arg.example"}
	assert.Equal(t, "arg.example", c.targetURL("https://example.com"))
}

func TestApplyOverrides(t *testing.T) {
	cfg := appconfig.DefaultConfig()
	err := applyOverrides(cfg, &Config{
		StoragePath: "/tmp/devices.json",
		LogLevel:    "warn",
		Port:        9000,
		NoBrowser:   true,
		Headed:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/devices.json", cfg.StoragePath)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Browser.Enabled)
	assert.False(t, cfg.Browser.Headless)

	err = applyOverrides(appconfig.DefaultConfig(), &Config{LogLevel: "loud"})
	assert.Error(t, err)
}

func TestRenderDevices(t *testing.T) {
	devices := device.Builtins()[:2]
	devices[1].Selected = true

	out := renderDevices(devices, false)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "iPhone SE")
	assert.Contains(t, out, "375x667")
	assert.Contains(t, out, "Mobile")
	assert.Contains(t, out, "builtin")

	lines := strings.Split(out, "\n")
	var selectedLine string
	for _, l := range lines {
		if strings.Contains(l, "iPhone 12 Pro") {
			selectedLine = l
		}
	}
	assert.Contains(t, selectedLine, "yes")
}

func TestRenderReports(t *testing.T) {
	d := device.Builtins()[0]
	reports := []preview.Report{
		{Device: d, Status: preview.StatusReady, Reason: preview.ReasonLoad, Elapsed: 120 * time.Millisecond},
		{Device: d, Status: preview.StatusBlocked, Reason: preview.ReasonTimeoutUnreachable, Elapsed: 3 * time.Second},
	}

	for _, color := range []bool{false, true} {
		out := renderReports(reports, color)
		assert.Contains(t, out, "ready")
		assert.Contains(t, out, "blocked")
		assert.Contains(t, out, "timeout-unreachable")
		assert.Contains(t, out, "120ms")
	}
}

func TestWriteDevicesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDevicesJSON(&buf, device.Builtins(), false))

	var decoded []device.Descriptor
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, device.Builtins(), decoded)

	buf.Reset()
	require.NoError(t, writeDevicesJSON(&buf, device.Builtins()[:1], true))
	assert.Contains(t, buf.String(), "iPhone SE")
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestOpenStorage(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		kv, where := openStorage(storage.MemoryPath, logging.Discard())
		assert.Equal(t, storage.MemoryPath, where)
		assert.IsType(t, &storage.MemoryStore{}, kv)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "devices.json")
		kv, where := openStorage(path, logging.Discard())
		assert.Equal(t, path, where)
		assert.IsType(t, &storage.FileStore{}, kv)
	})

	t.Run("corrupt file keeps the file store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "devices.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
		kv, where := openStorage(path, logging.Discard())
		assert.Equal(t, path, where)
		assert.IsType(t, &storage.FileStore{}, kv)
	})

	t.Run("unreadable path falls back to memory", func(t *testing.T) {
		var buf bytes.Buffer
		kv, where := openStorage(t.TempDir(), logging.NewWriterLogger("test", &buf))
		assert.Equal(t, storage.MemoryPath, where)
		assert.IsType(t, &storage.MemoryStore{}, kv)
		assert.Contains(t, buf.String(), "device storage unavailable")

		require.NoError(t, kv.SetItem("k", "v"))
	})
}

// Package main provides devpreview, a responsive design previewer.
// It renders one URL across many simulated device viewports, in the terminal
// or in a browser, and reports which devices refuse to embed the page.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

// Config holds the command line configuration. Flags override values from
// the configuration file.
type Config struct {
	ConfigPath  string
	URL         string
	StoragePath string
	LogLevel    string
	Port        int
	NoBrowser   bool
	Headed      bool
	JSON        bool
	NoColor     bool
	ShowVersion bool

	Command string
	Args    []string
}

func main() {
	config := parseFlags(os.Args[1:])

	if config.ShowVersion {
		fmt.Printf("devpreview v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if runErr := run(ctx, config); runErr != nil {
		cancel()
		log.Fatalf("Application error: %v", runErr)
	}
	cancel()
}

// parseFlags parses global flags followed by an optional command and its
// arguments.
func parseFlags(args []string) *Config {
	config := &Config{}
	fs := flag.NewFlagSet("devpreview", flag.ExitOnError)

	fs.StringVar(&config.ConfigPath, "config", "", "Path to configuration file (default: ~/.devpreview/config.yaml)")
	fs.StringVar(&config.URL, "url", "", "URL to preview (default: default_url from config)")
	fs.StringVar(&config.StoragePath, "storage", "", "Path to device storage file, or \"memory\" to keep nothing (default: ~/.devpreview/storage.json)")
	fs.StringVar(&config.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.IntVar(&config.Port, "port", 0, "Port for the web preview server")
	fs.BoolVar(&config.NoBrowser, "no-browser", false, "Detect embedding with HTTP header probes instead of headless Chromium")
	fs.BoolVar(&config.Headed, "headed", false, "Show the Chromium window used for load detection")
	fs.BoolVar(&config.JSON, "json", false, "Print devices as JSON")
	fs.BoolVar(&config.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "devpreview - preview a URL across device viewports\n\n")
		fmt.Fprintf(os.Stderr, "Usage: devpreview [options] [command] [url]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  tui        Interactive device picker with live load status (default)\n")
		fmt.Fprintf(os.Stderr, "  serve      Web preview page and JSON API\n")
		fmt.Fprintf(os.Stderr, "  probe      Detect load status for the selected devices and exit\n")
		fmt.Fprintf(os.Stderr, "  devices    List registered devices\n")
		fmt.Fprintf(os.Stderr, "  open       Print the preview page link for a URL\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  OTEL_EXPORTER_OTLP_ENDPOINT   Export load detection traces over OTLP/HTTP\n")
		fmt.Fprintf(os.Stderr, "  OTEL_SERVICE_NAME             Service name on exported traces\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  devpreview                                # TUI on the default URL\n")
		fmt.Fprintf(os.Stderr, "  devpreview tui localhost:3000\n")
		fmt.Fprintf(os.Stderr, "  devpreview -port 8080 serve\n")
		fmt.Fprintf(os.Stderr, "  devpreview -no-browser probe https://example.com\n")
		fmt.Fprintf(os.Stderr, "  devpreview -json devices\n")
	}

	_ = fs.Parse(args)

	rest := fs.Args()
	if len(rest) > 0 {
		config.Command = rest[0]
		config.Args = rest[1:]
	}
	return config
}

// run dispatches to the selected command.
func run(ctx context.Context, config *Config) error {
	switch config.Command {
	case "", "tui":
		return runTUI(ctx, config)
	case "serve":
		return runServe(ctx, config)
	case "probe":
		return runProbe(ctx, config)
	case "devices":
		return runDevices(ctx, config)
	case "open":
		return runOpen(config)
	default:
		return fmt.Errorf("unknown command %q (run devpreview -help)", config.Command)
	}
}

// targetURL picks the preview URL: a positional argument, then -url, then
// the configured default.
func (c *Config) targetURL(defaultURL string) string {
	if len(c.Args) > 0 {
		return c.Args[0]
	}
	if c.URL != "" {
		return c.URL
	}
	return defaultURL
}

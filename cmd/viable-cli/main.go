// Command viable-cli is an interactive configurator for keyboards
// speaking the Viable protocol.
//
// It connects to a keyboard over raw HID, negotiates the protocol
// version, fetches the compressed keyboard definition and drops into
// an interactive shell for inspecting and editing the dynamic feature
// tables, layer state, one-shot settings and fragment selections.
//
// Usage:
//
//	viable-cli [flags]
//
// Flags:
//
//	-vid string          USB vendor ID (hex, e.g. 0x3297)
//	-pid string          USB product ID (hex)
//	-interface int       USB interface number of the raw HID endpoint (default 1)
//	-report-size int     HID report size in bytes (default 64)
//	-config string       YAML configuration file path
//	-log string          Protocol event log file (.vlog, CBOR encoded)
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-legacy-cutoff uint  Protocol versions below this use the legacy info layout (default 2)
//	-shared              Multiplex through the 0xDD client wrapper
//	-mock                Use an in-memory keyboard instead of USB
//
// Examples:
//
//	# Connect to a keyboard and start the shell
//	viable-cli -vid 0x3297 -pid 0x1969
//
//	# Share the device with other configurators, logging the session
//	viable-cli -config svalboard.yaml -shared -log session.vlog
//
//	# Poke at the protocol without hardware
//	viable-cli -mock
package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/viable-protocol/viable-go/cmd/viable-cli/interactive"
	"github.com/viable-protocol/viable-go/internal/devmock"
	"github.com/viable-protocol/viable-go/pkg/client"
	"github.com/viable-protocol/viable-go/pkg/log"
	"github.com/viable-protocol/viable-go/pkg/transport"
)

// Config holds the CLI configuration, set from flags and optionally a
// YAML config file. Flags win over the file.
type Config struct {
	VendorID     string `yaml:"vendor_id"`
	ProductID    string `yaml:"product_id"`
	Interface    int    `yaml:"interface"`
	ReportSize   int    `yaml:"report_size"`
	LogFile      string `yaml:"log_file"`
	LogLevel     string `yaml:"log_level"`
	LegacyCutoff uint   `yaml:"legacy_cutoff"`
	Shared       bool   `yaml:"shared"`

	ConfigFile string `yaml:"-"`
	Mock       bool   `yaml:"-"`
}

var config = Config{
	Interface:    1,
	ReportSize:   transport.DefaultReportSize,
	LogLevel:     "info",
	LegacyCutoff: uint(client.DefaultLegacyInfoCutoff),
}

func init() {
	flag.StringVar(&config.VendorID, "vid", "", "USB vendor ID (hex)")
	flag.StringVar(&config.ProductID, "pid", "", "USB product ID (hex)")
	flag.IntVar(&config.Interface, "interface", config.Interface, "USB interface number of the raw HID endpoint")
	flag.IntVar(&config.ReportSize, "report-size", config.ReportSize, "HID report size in bytes")
	flag.StringVar(&config.ConfigFile, "config", "", "YAML configuration file path")
	flag.StringVar(&config.LogFile, "log", "", "Protocol event log file (.vlog)")
	flag.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level: debug, info, warn, error")
	flag.UintVar(&config.LegacyCutoff, "legacy-cutoff", config.LegacyCutoff, "Protocol versions below this use the legacy info layout")
	flag.BoolVar(&config.Shared, "shared", false, "Multiplex through the 0xDD client wrapper")
	flag.BoolVar(&config.Mock, "mock", false, "Use an in-memory keyboard instead of USB")
}

func main() {
	flag.Parse()

	if config.ConfigFile != "" {
		if err := loadConfigFile(config.ConfigFile); err != nil {
			stdlog.Fatalf("Failed to load config file: %v", err)
		}
		// Re-apply flags so they override file values.
		flag.Parse()
	}

	setupLogging(config.LogLevel)

	if err := validateConfig(); err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	conn, err := openConn()
	if err != nil {
		stdlog.Fatalf("Failed to open keyboard: %v", err)
	}

	var exch transport.Exchanger
	if config.Shared {
		exch = transport.NewClientWrapper(conn)
	} else {
		exch = transport.NewDirect(conn)
	}

	logger, closeLogger, err := openLogger()
	if err != nil {
		stdlog.Fatalf("Failed to open event log: %v", err)
	}
	defer closeLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := client.Connect(ctx, client.Config{
		Exchanger:        exch,
		Logger:           logger,
		LegacyInfoCutoff: uint32(config.LegacyCutoff),
	})
	if err != nil {
		stdlog.Fatalf("Failed to connect: %v", err)
	}
	defer c.Close()

	stdlog.Printf("Connected: protocol v%d, keyboard %s", c.Info().Version, c.UID())
	if caps := c.Capabilities(); len(caps) > 0 {
		stdlog.Printf("Capabilities: %s", strings.Join(caps, ", "))
	}

	sh, err := interactive.New(c)
	if err != nil {
		stdlog.Fatalf("Failed to create shell: %v", err)
	}
	// Redirect log output through readline to avoid interfering with input
	stdlog.SetOutput(sh.Stdout())
	go sh.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Shell exited.
	}

	stdlog.SetOutput(os.Stderr)
	stdlog.Println("Goodbye!")
}

func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, &config)
}

func setupLogging(level string) {
	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	switch level {
	case "debug":
		stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds | stdlog.Lshortfile)
	case "warn", "error":
		stdlog.SetFlags(stdlog.Ltime)
	}
}

func validateConfig() error {
	if !config.Mock {
		if config.VendorID == "" || config.ProductID == "" {
			return fmt.Errorf("vendor and product IDs are required (or use -mock)")
		}
	}
	if config.ReportSize < 32 || config.ReportSize > 1024 {
		return fmt.Errorf("report size must be 32-1024, got %d", config.ReportSize)
	}
	return nil
}

func openConn() (transport.Conn, error) {
	if config.Mock {
		return devmock.New(devmock.Options{
			Definition: []byte(mockDefinition),
			ReportSize: config.ReportSize,
			Instances:  2,
			Hardware:   []byte{0, 1},
		})
	}

	vid, err := parseHexID(config.VendorID)
	if err != nil {
		return nil, fmt.Errorf("vendor ID: %w", err)
	}
	pid, err := parseHexID(config.ProductID)
	if err != nil {
		return nil, fmt.Errorf("product ID: %w", err)
	}

	return transport.OpenHID(transport.HIDConfig{
		VendorID:        vid,
		ProductID:       pid,
		InterfaceNumber: config.Interface,
		ReportSize:      config.ReportSize,
	})
}

func parseHexID(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func openLogger() (log.Logger, func(), error) {
	if config.LogFile == "" {
		return log.NoopLogger{}, func() {}, nil
	}

	fl, err := log.NewFileLogger(config.LogFile)
	if err != nil {
		return nil, nil, err
	}
	return fl, func() {
		if err := fl.Close(); err != nil {
			stdlog.Printf("Warning: failed to close event log: %v", err)
		}
	}, nil
}

// mockDefinition is the keyboard definition served by the -mock board.
const mockDefinition = `{
	"name": "mockboard",
	"viable": {"tap_dance": 8, "combo": 8, "key_override": 4, "alt_repeat_key": 4, "leader": 8},
	"fragments": {
		"finger_5": {"id": 0, "description": "five key finger cluster"},
		"finger_6": {"id": 1, "description": "six key finger cluster"}
	},
	"composition": {
		"instances": [
			{"id": "left_pinky", "fragment_options": [{"fragment": "finger_5"}, {"fragment": "finger_6"}]},
			{"id": "right_pinky", "fragment_options": [{"fragment": "finger_5"}, {"fragment": "finger_6"}]}
		]
	}
}`

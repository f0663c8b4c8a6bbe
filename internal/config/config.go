package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/obsedit/obsedit/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "obsedit.json"

	// DefaultPort is the default HTTP session port.
	DefaultPort = 7420

	// DefaultHost is the default HTTP session host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "obsedit"

	// DefaultTracer is the default OpenTelemetry tracer name.
	DefaultTracer = "github.com/obsedit/obsedit"

	// LogLevelEnv overrides Config.LogLevel when set.
	LogLevelEnv = "OBSEDIT_LOG_LEVEL"
)

// Config represents the complete obsedit.json configuration.
type Config struct {
	// Text is the initial editor text of a session.
	Text string `json:"text,omitempty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `json:"logLevel,omitempty"`

	Server ServerConfig `json:"server,omitempty"`

	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	Snapshot SnapshotConfig `json:"snapshot,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP session settings.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`

	// Tracer is the instrumentation name passed to the tracer provider.
	Tracer string `json:"tracer,omitempty"`

	// Disabled turns off metrics and tracing hooks.
	Disabled bool `json:"disabled,omitempty"`
}

// SnapshotConfig contains snapshot settings.
type SnapshotConfig struct {
	// Target is a file:// path or an s3://bucket/key URL. Empty disables
	// snapshots.
	Target string `json:"target,omitempty"`

	// Region and Endpoint configure the S3 client for s3:// targets.
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Telemetry: TelemetryConfig{
			Namespace: DefaultNamespace,
			Tracer:    DefaultTracer,
		},
	}
}

// Load reads obsedit.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Create " + ConfigFileName + " or omit --config to use defaults")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		e := errors.New("E101").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
		if se, ok := err.(*json.SyntaxError); ok {
			line, col := offsetToLine(data, se.Offset)
			e.WithLocation(path, line, col)
		}
		return nil, e
	}

	cfg.configPath = path
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set, else obsedit.json in the working
// directory when it exists, else the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if Exists(".") {
		return Load(".")
	}
	cfg := New()
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Telemetry.Namespace == "" {
		c.Telemetry.Namespace = DefaultNamespace
	}
	if c.Telemetry.Tracer == "" {
		c.Telemetry.Tracer = DefaultTracer
	}
}

func (c *Config) applyEnv() {
	if level := os.Getenv(LogLevelEnv); level != "" {
		c.LogLevel = level
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E102").
			WithDetail("server.port must be between 0 and 65535")
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return errors.New("E102").
			WithDetail("logLevel " + strconv.Quote(c.LogLevel) + " is not one of debug, info, warn, error")
	}
	if t := c.Snapshot.Target; t != "" && !strings.HasPrefix(t, "file://") && !strings.HasPrefix(t, "s3://") {
		return errors.New("E300").
			WithDetail("snapshot.target " + strconv.Quote(t) + " has no file:// or s3:// scheme")
	}
	return nil
}

// Address returns host:port of the HTTP session.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// offsetToLine converts a byte offset into a 1-based line and column.
func offsetToLine(data []byte, offset int64) (line, col int) {
	line, col = 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

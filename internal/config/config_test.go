package config

import (
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/obsedit/obsedit/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Telemetry.Namespace != DefaultNamespace {
		t.Errorf("Telemetry.Namespace = %q, want %q", cfg.Telemetry.Namespace, DefaultNamespace)
	}
	if cfg.Address() != "localhost:7420" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	t.Setenv(LogLevelEnv, "")

	_, err := Load(t.TempDir())
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E100" {
		t.Fatalf("expected E100 for missing config, got %v", err)
	}

	dir := writeConfig(t, `{
  "text": "hello world",
  "logLevel": "debug",
  "server": {"port": 8080},
  "snapshot": {"target": "file:///tmp/obsedit.json"}
}
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Text != "hello world" {
		t.Errorf("Text = %q", cfg.Text)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != DefaultHost {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v", cfg.Level())
	}
	if cfg.Telemetry.Tracer != DefaultTracer {
		t.Errorf("Telemetry.Tracer = %q", cfg.Telemetry.Tracer)
	}
	if cfg.Path() != filepath.Join(dir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestLoadSyntaxErrorHasLocation(t *testing.T) {
	dir := writeConfig(t, "{\n  \"text\": \"x\",\n  oops\n}\n")
	_, err := Load(dir)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Code != "E101" {
		t.Fatalf("expected E101, got %v", err)
	}
	if e.Location == nil || e.Location.Line != 3 {
		t.Errorf("Location = %v, want line 3", e.Location)
	}
}

func TestEnvOverridesLogLevel(t *testing.T) {
	t.Setenv(LogLevelEnv, "warn")
	dir := writeConfig(t, `{"logLevel": "debug"}`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Level() != slog.LevelWarn {
		t.Errorf("Level() = %v, want warn", cfg.Level())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		code string
	}{
		{name: "defaults", mod: func(*Config) {}},
		{name: "bad port", mod: func(c *Config) { c.Server.Port = 70000 }, code: "E102"},
		{name: "bad level", mod: func(c *Config) { c.LogLevel = "loud" }, code: "E102"},
		{name: "bad snapshot", mod: func(c *Config) { c.Snapshot.Target = "ftp://x" }, code: "E300"},
		{name: "s3 snapshot", mod: func(c *Config) { c.Snapshot.Target = "s3://bucket/key" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mod(cfg)
			err := cfg.Validate()
			if tt.code == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Code != tt.code {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(LogLevelEnv, "")
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := New()
	cfg.Text = "abc"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Text != "abc" || loaded.Server != cfg.Server {
		t.Errorf("loaded = %+v", loaded)
	}
}

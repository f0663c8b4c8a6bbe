package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/obsedit/obsedit/internal/config"
	"github.com/obsedit/obsedit/internal/errors"
	"github.com/obsedit/obsedit/pkg/observable"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "obsedit",
		Short: "Replay and serve observable editor sessions",
		Long: `obsedit drives an in-memory code editor whose state is exposed as
observables, and prints the change notifications a subscriber sees.

  • replay YAML scripts of editor operations
  • serve a session over HTTP with a WebSocket entry stream
  • Prometheus metrics and OpenTelemetry spans per transaction`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to obsedit.json (default: ./obsedit.json when present)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		replayCmd(&flags),
		serveCmd(&flags),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads the config and applies the global flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger creates the process logger on w and routes dispatcher
// diagnostics to it.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
	observable.SetLogger(logger)
	return logger
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

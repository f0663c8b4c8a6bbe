package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obsedit/obsedit/internal/config"
	"github.com/obsedit/obsedit/internal/server"
	"github.com/obsedit/obsedit/internal/session"
	"github.com/obsedit/obsedit/internal/snapshot"
	"github.com/obsedit/obsedit/internal/stream"
	"github.com/obsedit/obsedit/internal/telemetry"
	"github.com/obsedit/obsedit/pkg/observable"
)

type serveOptions struct {
	port           int
	host           string
	snapshotTarget string
	restore        bool
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an editor session over HTTP",
		Long: `Serve one editor session over HTTP.

Actions are posted as JSON to /v1/edits; the change trace is streamed
over a WebSocket at /v1/stream and metrics are served at /metrics.

Examples:
  obsedit serve
  obsedit serve --port=8080
  obsedit serve --snapshot s3://bucket/sessions/demo.json --restore`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), flags, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Port to listen on (default from obsedit.json)")
	cmd.Flags().StringVarP(&opts.host, "host", "H", "", "Host to bind to (default from obsedit.json)")
	cmd.Flags().StringVar(&opts.snapshotTarget, "snapshot", "", "Snapshot target for POST /v1/snapshot")
	cmd.Flags().BoolVar(&opts.restore, "restore", false, "Start from the snapshot at the target when it exists")

	return cmd
}

func runServe(ctx context.Context, out, errOut io.Writer, flags *globalFlags, opts serveOptions) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.snapshotTarget != "" {
		cfg.Snapshot.Target = opts.snapshotTarget
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(errOut, cfg)

	var rec *telemetry.Recorder
	if !cfg.Telemetry.Disabled {
		rec = telemetry.New(
			telemetry.WithNamespace(cfg.Telemetry.Namespace),
			telemetry.WithTracerName(cfg.Telemetry.Tracer),
		)
		prev := observable.SetHooks(rec)
		defer observable.SetHooks(prev)
	}

	var store snapshot.Store
	if cfg.Snapshot.Target != "" {
		store, err = snapshot.Open(cfg.Snapshot.Target, snapshot.Options{
			Region:   cfg.Snapshot.Region,
			Endpoint: cfg.Snapshot.Endpoint,
		})
		if err != nil {
			return err
		}
	}

	hub := stream.NewHub(logger)
	sessOpts := []session.Option{
		session.WithLogger(logger),
		session.WithEntrySink(hub.PublishEntry),
	}
	if rec != nil {
		sessOpts = append(sessOpts, session.WithRecorder(rec))
	}

	sess, err := openSession(ctx, cfg, store, opts.restore, logger, sessOpts)
	if err != nil {
		return err
	}
	defer sess.Close()

	srvCfg := server.Config{
		Addr:      cfg.Address(),
		Session:   sess,
		Hub:       hub,
		Snapshots: store,
		Logger:    logger,
	}
	if rec != nil {
		srvCfg.Metrics = rec.Handler()
	}

	fmt.Fprintf(out, "  obsedit %s\n", version)
	fmt.Fprintf(out, "  → http://%s\n", cfg.Address())
	return server.New(srvCfg).ListenAndServe(ctx)
}

// openSession starts from the stored snapshot when restore is set and one
// exists, else from the configured text.
func openSession(ctx context.Context, cfg *config.Config, store snapshot.Store, restore bool, logger *slog.Logger, opts []session.Option) (*session.Session, error) {
	if !restore || store == nil {
		return session.New(cfg.Text, opts...), nil
	}

	snap, err := store.Load(ctx)
	if stderrors.Is(err, snapshot.ErrNotFound) {
		logger.Info("serve: no snapshot to restore", "target", store.Target())
		return session.New(cfg.Text, opts...), nil
	}
	if err != nil {
		return nil, err
	}

	sess := session.Restore(snap, opts...)
	logger.Info("serve: restored snapshot",
		"target", store.Target(),
		"version_id", snap.VersionID,
		"taken_at", snap.TakenAt,
	)
	return sess, nil
}

// Package server exposes a session over HTTP.
//
// Routes:
//
//	POST /v1/edits          apply one action, returns its entries and the state
//	GET  /v1/log            drain pending entries
//	GET  /v1/state          current state
//	POST /v1/reset          replace the editor, body {"text": "..."}
//	POST /v1/trace/stop     dispose the change trace
//	POST /v1/snapshot       save a snapshot to the configured target
//	GET  /v1/stream         WebSocket stream of entries and states
//	GET  /metrics           Prometheus metrics
//	GET  /healthz           liveness
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/obsedit/obsedit/internal/errors"
	"github.com/obsedit/obsedit/internal/session"
	"github.com/obsedit/obsedit/internal/snapshot"
	"github.com/obsedit/obsedit/internal/stream"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Config configures a Server.
type Config struct {
	// Addr is the listen address for ListenAndServe.
	Addr string

	Session *session.Session

	// Hub, when set, serves /v1/stream and receives a state message after
	// every applied action.
	Hub *stream.Hub

	// Metrics, when set, serves /metrics.
	Metrics http.Handler

	// Snapshots, when set, backs /v1/snapshot.
	Snapshots snapshot.Store

	Logger *slog.Logger
}

// Server is the HTTP surface of one session.
type Server struct {
	cfg    Config
	logger *slog.Logger
	router chi.Router
}

// New creates a server. cfg.Session is required.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/edits", s.handleEdit)
		r.Get("/log", s.handleLog)
		r.Get("/state", s.handleState)
		r.Post("/reset", s.handleReset)
		r.Post("/trace/stop", s.handleStopTrace)
		r.Post("/snapshot", s.handleSnapshot)
		if s.cfg.Hub != nil {
			r.Handle("/stream", s.cfg.Hub)
		}
	})

	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics)
	}
	return r
}

// logRequests logs each request at debug level with slog.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("server: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// EditResponse is the body returned by POST /v1/edits.
type EditResponse struct {
	Entries []string      `json:"entries"`
	State   session.State `json:"state"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var a session.Action
	if err := decodeBody(w, r, &a); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("E400").Wrap(err))
		return
	}
	if err := a.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("E400").Wrap(err))
		return
	}

	entries, err := s.cfg.Session.Apply(r.Context(), a)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if stderrors.Is(err, session.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, errors.New("E401").WithDetail(a.Name()).Wrap(err))
		return
	}

	state := s.cfg.Session.State()
	if s.cfg.Hub != nil {
		s.cfg.Hub.PublishState(state)
	}
	writeJSON(w, http.StatusOK, EditResponse{Entries: entries, State: state})
}

func (s *Server) handleLog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"entries": s.cfg.Session.Entries()})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Session.State())
}

type resetRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("E400").Wrap(err))
		return
	}
	s.cfg.Session.Reset(req.Text)
	if s.cfg.Hub != nil {
		s.cfg.Hub.PublishReset()
	}
	writeJSON(w, http.StatusOK, s.cfg.Session.State())
}

func (s *Server) handleStopTrace(w http.ResponseWriter, _ *http.Request) {
	s.cfg.Session.StopTracing()
	writeJSON(w, http.StatusOK, s.cfg.Session.State())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Snapshots == nil {
		s.writeError(w, http.StatusNotFound, errors.New("E300").
			WithDetail("no snapshot target configured").
			WithSuggestion("Set snapshot.target in obsedit.json or pass --snapshot"))
		return
	}
	snap := s.cfg.Session.Snapshot(nil)
	if err := s.cfg.Snapshots.Save(r.Context(), snap); err != nil {
		s.writeError(w, http.StatusBadGateway, errors.FromError(err, "E301"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"target":    s.cfg.Snapshots.Target(),
		"versionId": snap.VersionID,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err *errors.Error) {
	s.logger.Warn("server: request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]*errors.Error{"error": err})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.cfg.Hub != nil {
		s.cfg.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

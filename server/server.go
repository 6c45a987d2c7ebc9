// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rodrigo-brito/stockwave"
	"github.com/rodrigo-brito/stockwave/plot"
	"github.com/rodrigo-brito/stockwave/service"
	"github.com/rodrigo-brito/stockwave/storage"
	"github.com/rodrigo-brito/stockwave/tools/log"
	"github.com/rodrigo-brito/stockwave/tools/metrics"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	analyzer  *stockwave.Analyzer
	store     service.ArtifactStore
	dashboard *plot.Dashboard
	metrics   *metrics.Recorder
	logger    log.Logger
	origins   []string
}

type Option func(*Server)

func WithLogger(logger log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDashboard serves the dashboard at the root path.
func WithDashboard(dashboard *plot.Dashboard) Option {
	return func(s *Server) {
		s.dashboard = dashboard
	}
}

// WithMetrics records request metrics and exposes them at /metrics.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(s *Server) {
		s.metrics = recorder
	}
}

// WithAllowedOrigins restricts CORS to the given origins. "*" allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

func NewServer(analyzer *stockwave.Analyzer, store service.ArtifactStore, options ...Option) *Server {
	s := &Server{
		analyzer: analyzer,
		store:    store,
		origins:  []string{"*"},
	}
	for _, option := range options {
		option(s)
	}
	s.logger = log.OrDiscard(s.logger)
	return s
}

// Router builds the HTTP handler with every route and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(cors(s.origins))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/analyze", s.handleAnalyze)
		r.Get("/technical_indicators/{symbol}", s.handleIndicators)
	})
	r.Get("/images/{name}", s.handleImage)

	if s.dashboard != nil {
		r.Get("/", s.dashboard.HandleIndex)
		r.Get("/assets/dashboard.js", s.dashboard.HandleScript)
		r.Handle("/assets/*", s.dashboard.Assets())
	}
	return r
}

// Start serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := parseAnalyzeRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	batch, err := s.analyzer.Analyze(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("X-Batch-ID", batch.ID)
	render.JSON(w, r, batch.Results)
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	start, err := parseDate(query, "start_date")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := parseDate(query, "end_date")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	report, err := s.analyzer.Indicators(r.Context(), chi.URLParam(r, "symbol"), start, end, query.Get("interval"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, report)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || path.Base(name) != name {
		s.fail(w, r, fmt.Errorf("%w: invalid image name", stockwave.ErrInput))
		return
	}

	artifact, err := s.store.Get(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	if _, err := w.Write(artifact.Data); err != nil {
		s.logger.WithError(err).WithField("name", name).Warn("write image")
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, stockwave.ErrInput), errors.Is(err, stockwave.ErrEmptyResult):
		return http.StatusBadRequest
	case errors.Is(err, stockwave.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// observe logs every request and records it under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(started)
		s.metrics.ObserveRequest(route, r.Method, status, elapsed)

		s.logger.WithFields(log.Fields{
			"method":     r.Method,
			"route":      route,
			"status":     status,
			"bytes":      ww.BytesWritten(),
			"duration":   elapsed.String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

func cors(origins []string) func(http.Handler) http.Handler {
	allowAny := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAny = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := allowAny
			for _, candidate := range origins {
				if strings.EqualFold(candidate, origin) {
					allowed = true
				}
			}

			if origin != "" && allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID")
				w.Header().Set("Access-Control-Expose-Headers", "X-Batch-ID, X-Request-ID")
				w.Header().Set("Access-Control-Max-Age", "300")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JPFrancoia/scipy/internal/config"
	"github.com/JPFrancoia/scipy/internal/sse"
)

// Server serves solves over HTTP.
type Server struct {
	cfg  config.Config
	log  *slog.Logger
	hub  *sse.Hub
	runs *runStore
}

// New returns a Server using cfg for request defaults and limits.
func New(cfg config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:  cfg,
		log:  log,
		hub:  sse.New(),
		runs: newRunStore(),
	}
}

// Close stops every run and disconnects stream subscribers.
func (s *Server) Close() {
	s.runs.cancelAll()
	s.hub.Close()
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Post("/solve", s.Solve)
	r.Post("/batch", s.Batch)

	r.Post("/start", s.StartRun)
	r.Post("/stop", s.StopRun)
	r.Get("/stream", s.hub.ServeHTTP)
	r.Get("/export", s.ExportCSV)
	r.Get("/runs/{id}", s.GetRun)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)))
	})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/drivescore/internal/pipeline"
	"github.com/MikeSquared-Agency/drivescore/internal/scoring"
	"github.com/MikeSquared-Agency/drivescore/internal/session"
	"github.com/MikeSquared-Agency/drivescore/internal/speeding"
)

// Controller is the pipeline surface exposed over HTTP.
type Controller interface {
	StartSession(ctx context.Context) error
	EndSession(ctx context.Context) (session.Result, error)
	RecordSpeeding(ctx context.Context, seconds float64) error
	OnSpeedSample(ctx context.Context, mps, ts float64) error
	OnLocationSample(ctx context.Context, lat, lon, ts float64) error
	SetSpeedLimit(ctx context.Context, limit speeding.Limit) error
	AdjustScore(ctx context.Context, points int) (scoring.State, error)
	CurrentState(ctx context.Context) (pipeline.Snapshot, error)
	Sessions(ctx context.Context) ([]session.DrivingSession, error)
}

type Server struct {
	router *chi.Mux
	port   int
	ctrl   Controller
	logger *slog.Logger
	now    func() time.Time
	http   *http.Server
}

func NewServer(port int, apiToken string, ctrl Controller, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		ctrl:   ctrl,
		logger: logger,
		now:    time.Now,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/drivescore/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))

		r.Get("/state", s.getState)
		r.Get("/sessions", s.listSessions)
		r.Post("/sessions/start", s.startSession)
		r.Post("/sessions/end", s.endSession)
		r.Post("/sessions/speeding", s.recordSpeeding)
		r.Post("/samples/speed", s.speedSample)
		r.Post("/samples/location", s.locationSample)
		r.Post("/speed-limit", s.setSpeedLimit)
		r.Post("/score/adjust", s.adjustScore)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "drivescore",
		"status":  "ok",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeControllerError maps pipeline errors onto HTTP statuses.
func (s *Server) writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrAlreadyActive), errors.Is(err, session.ErrNoActiveSession):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, pipeline.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

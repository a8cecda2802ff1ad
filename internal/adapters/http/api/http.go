// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/okian/tqi/internal/adapters/repository"
	service "github.com/okian/tqi/internal/app"
	"github.com/okian/tqi/internal/domain/aggregate"
	"github.com/okian/tqi/internal/domain/model"
	"github.com/okian/tqi/internal/domain/tqi"
	"github.com/okian/tqi/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ScenarioDependencies
	SessionDependencies
	WatchDependencies
}

// ScenarioDependencies run stateless computations.
type ScenarioDependencies interface {
	Defaults() service.Params
	Score(ctx context.Context, roster []model.StaffRecord, p service.Params, seed *int64) (service.ScoreOutput, error)
	Sweep(ctx context.Context, roster []model.StaffRecord, p service.Params, runs int, seed *int64) (tqi.SweepSummary, error)
}

// SessionDependencies manage live sessions.
type SessionDependencies interface {
	Defaults() service.Params
	CreateSession(ctx context.Context, roster []model.StaffRecord, p service.Params) (service.Snapshot, error)
	Snapshot(ctx context.Context, id string) (service.Snapshot, error)
	ListSessions(ctx context.Context) ([]string, error)
	UpdatePlan(ctx context.Context, id string, plan types.HiringPlan) (service.Snapshot, error)
	UpdateTarget(ctx context.Context, id string, target types.TargetProfile) (service.Snapshot, error)
	UpdateWeights(ctx context.Context, id string, w types.Weights) (service.Snapshot, error)
	UpdateFilter(ctx context.Context, id string, f aggregate.GroupFilter) (service.Snapshot, error)
	Reseed(ctx context.Context, id string, seed int64) (service.Snapshot, error)
	DeleteSession(ctx context.Context, id string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	scenarioHandler *ScenarioHandler
	sessionHandler  *SessionHandler
	watchHandler    *WatchHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		scenarioHandler: NewScenarioHandler(deps),
		sessionHandler:  NewSessionHandler(deps),
		watchHandler:    NewWatchHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /score", MetricsMiddleware(s.scenarioHandler.HandleScore, "score"))
	mux.HandleFunc("POST /sweep", MetricsMiddleware(s.scenarioHandler.HandleSweep, "sweep"))

	sh := s.sessionHandler
	mux.HandleFunc("POST /sessions", MetricsMiddleware(sh.HandleCreate, "sessions"))
	mux.HandleFunc("GET /sessions", MetricsMiddleware(sh.HandleList, "sessions"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(sh.HandleGet, "session"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(sh.HandleDelete, "session"))
	mux.HandleFunc("PUT /sessions/{id}/plan", MetricsMiddleware(sh.HandlePutPlan, "session_plan"))
	mux.HandleFunc("PUT /sessions/{id}/target", MetricsMiddleware(sh.HandlePutTarget, "session_target"))
	mux.HandleFunc("PUT /sessions/{id}/weights", MetricsMiddleware(sh.HandlePutWeights, "session_weights"))
	mux.HandleFunc("PUT /sessions/{id}/filter", MetricsMiddleware(sh.HandlePutFilter, "session_filter"))
	mux.HandleFunc("POST /sessions/{id}/reseed", MetricsMiddleware(sh.HandleReseed, "session_reseed"))
	mux.HandleFunc("GET /sessions/{id}/histogram", MetricsMiddleware(sh.HandleHistogram, "session_histogram"))
	mux.HandleFunc("GET /sessions/{id}/result", MetricsMiddleware(sh.HandleResult, "session_result"))
	mux.HandleFunc("GET /sessions/{id}/watch", MetricsMiddleware(s.watchHandler.HandleWatch, "session_watch"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err to a status and code and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// classify translates upstream error kinds to HTTP.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrInvalidPlan):
		return http.StatusUnprocessableEntity, "invalid_plan"
	case errors.Is(err, types.ErrInvalidWeights):
		return http.StatusUnprocessableEntity, "invalid_weights"
	case errors.Is(err, tqi.ErrInvalidSweep):
		return http.StatusUnprocessableEntity, "invalid_sweep"
	case errors.Is(err, ErrInvalidRoster), errors.Is(err, model.ErrInvalidRecord):
		return http.StatusUnprocessableEntity, "invalid_roster"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrCapacity):
		return http.StatusTooManyRequests, "capacity"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// Package api declares the admin HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/camctl/internal/domain/agenda"
	"github.com/okian/camctl/internal/domain/control"
	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/internal/domain/types"
	"github.com/okian/camctl/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	SetMode(ctx context.Context, camera string, mode model.Mode) error
	GetMode(ctx context.Context, camera string) (model.Mode, error)
	Cameras(ctx context.Context) []types.CameraStatus
	Agents(ctx context.Context) []types.AgentStatus
	Events(ctx context.Context, agentID string) ([]types.Event, error)
	Ready() bool
}

// Server wires HTTP routes for the admin API.
type Server struct {
	deps     Dependencies
	stats    StatsProvider
	recorder HTTPRecorder
	metrics  http.Handler
	auth     Credentials
	logger   logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithBasicAuth protects every route but /healthz. Empty credentials disable it.
func WithBasicAuth(username, password string) Option {
	return func(s *Server) { s.auth = Credentials{Username: username, Password: password} }
}

// WithRecorder sets where request metrics go.
func WithRecorder(r HTTPRecorder) Option {
	return func(s *Server) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithMetricsHandler exposes h under /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{deps: deps, stats: stats, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /healthz", s.wrap("healthz", false, s.handleHealth))
	mux.Handle("GET /readyz", s.wrap("readyz", false, s.handleReady))
	mux.Handle("GET /stats", s.wrap("stats", true, s.handleStats))
	mux.Handle("GET /cameras", s.wrap("cameras", true, s.handleCameras))
	mux.Handle("GET /agents", s.wrap("agents", true, s.handleAgents))
	mux.Handle("GET /agents/{agent}/events", s.wrap("events", true, s.handleEvents))
	mux.Handle("GET /control/{status}/{camera...}", s.wrap("control", true, s.handleSetMode))
	mux.Handle("POST /control/{status}/{camera...}", s.wrap("control", true, s.handleSetMode))
	mux.Handle("GET /control_status/{camera...}", s.wrap("control_status", true, s.handleGetMode))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.Protect(s.metrics))
	}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	s.Register(ctx, mux)
	return mux
}

func (s *Server) wrap(endpoint string, auth bool, h http.HandlerFunc) http.Handler {
	var next http.Handler = MetricsMiddleware(s.recorder, s.logger, endpoint, h)
	if auth {
		next = s.Protect(next)
	}
	return next
}

// Protect wraps next with basic auth when credentials are configured.
func (s *Server) Protect(next http.Handler) http.Handler {
	if !s.auth.Enabled() {
		return next
	}
	return BasicAuth(s.auth, next)
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

// writeDomainError maps domain sentinels to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, control.ErrUnknownCamera):
		writeError(w, http.StatusNotFound, "unknown_camera", err)
	case errors.Is(err, agenda.ErrUnknownAgent):
		writeError(w, http.StatusNotFound, "unknown_agent", err)
	case errors.Is(err, model.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// cameraParam returns the camera URL from the path. The mux collapses the
// double slash of a scheme, which is undone here.
func cameraParam(r *http.Request) string {
	c := r.PathValue("camera")
	for _, scheme := range []string{"http:/", "https:/"} {
		if strings.HasPrefix(c, scheme) && !strings.HasPrefix(c, scheme+"/") {
			return scheme + "/" + strings.TrimPrefix(c, scheme)
		}
	}
	return c
}

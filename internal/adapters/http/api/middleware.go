package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/camctl/pkg/logger"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

const realm = `Basic realm="camctl", charset="UTF-8"`

// HTTPRecorder receives request metrics. *metrics.Manager implements it.
type HTTPRecorder interface {
	RecordHTTPRequest(endpoint, method, statusCode string)
	RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64)
}

type nopRecorder struct{}

func (nopRecorder) RecordHTTPRequest(string, string, string)                  {}
func (nopRecorder) RecordHTTPRequestDuration(string, string, string, float64) {}

// MetricsMiddleware records request count and latency and tags every
// response with a request id.
func MetricsMiddleware(rec HTTPRecorder, log logger.Logger, endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(wrapped.statusCode)
		rec.RecordHTTPRequest(endpoint, r.Method, status)
		rec.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)

		level := slog.LevelDebug
		if wrapped.statusCode >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.Log(r.Context(), level, "request served",
			logger.String("request_id", id),
			logger.String("endpoint", endpoint),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", wrapped.statusCode),
			logger.Float64("duration_ms", durationMs),
		)
	}
}

// Credentials for the admin API.
type Credentials struct {
	Username string
	Password string
}

// Enabled reports whether both fields are set.
func (c Credentials) Enabled() bool { return c.Username != "" && c.Password != "" }

// BasicAuth rejects requests without matching credentials.
func BasicAuth(c Credentials, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, c.Username) || !secureCompare(p, c.Password) {
			w.Header().Set("WWW-Authenticate", realm)
			writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

package api

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth answers GET /healthz. It never requires credentials.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReady answers GET /readyz once every agent loaded its calendar.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.deps.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "initializing"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ready"})
}

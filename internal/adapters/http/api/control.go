package api

import (
	"net/http"

	"github.com/okian/camctl/internal/domain/model"
	"github.com/okian/camctl/internal/domain/types"
)

// handleSetMode switches a camera between manual and automatic control.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	mode, err := model.ParseMode(r.PathValue("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	camera := cameraParam(r)
	if err := s.deps.SetMode(r.Context(), camera, mode); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ModeResponse{Camera: camera, Mode: string(mode)})
}

// handleGetMode reports the control mode of a camera.
func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	camera := cameraParam(r)
	mode, err := s.deps.GetMode(r.Context(), camera)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ModeResponse{Camera: camera, Mode: string(mode)})
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Cameras(r.Context()))
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Agents(r.Context()))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Events(r.Context(), r.PathValue("agent"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

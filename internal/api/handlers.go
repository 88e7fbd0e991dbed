package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ventanahq/ventana-core/internal/dashboard"
	"github.com/ventanahq/ventana-core/internal/store"
)

// handleView returns the full dashboard snapshot.
func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.View())
}

// handleRefetch reloads the space and device lists from the record store.
func (s *Server) handleRefetch(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Refetch(r.Context()); err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.controller.View())
}

// handleSignIn establishes a session and loads the account's spaces.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeBadRequest(w, "user_id is required")
		return
	}

	if err := s.controller.SignIn(r.Context(), req.UserID); err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.controller.View())
}

// handleSignOut ends the session and clears account-scoped state.
func (s *Server) handleSignOut(w http.ResponseWriter, _ *http.Request) {
	if err := s.controller.SignOut(); err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.controller.View())
}

// handleListSpaces returns the signed-in user's spaces.
func (s *Server) handleListSpaces(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"spaces": s.controller.View().Spaces,
	})
}

// handleCreateSpace creates a space for the signed-in user.
func (s *Server) handleCreateSpace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sp, err := s.controller.AddSpace(r.Context(), req.Name, req.Description)
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

// handleSelectSpace makes the space the active one.
func (s *Server) handleSelectSpace(w http.ResponseWriter, r *http.Request) {
	spaceID := chi.URLParam(r, "id")
	if err := s.controller.SelectSpace(r.Context(), spaceID); err != nil {
		s.writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.View())
}

// handleCreateDevice registers a device inside a space.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	spaceID := chi.URLParam(r, "id")

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		HardwareID  string `json:"hardware_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.controller.AddDevice(r.Context(), spaceID, req.Name, req.Description, req.HardwareID)
	if err != nil {
		s.writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleListDevices returns the selected space's device list.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	v := s.controller.View()
	writeJSON(w, http.StatusOK, map[string]any{
		"space_id": v.SelectedSpaceID,
		"devices":  v.Devices,
	})
}

// handleSelectDevice moves the device selection.
func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.controller.SelectDevice(r.Context(), req.Index); err != nil {
		s.writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.View())
}

// handleToggle flips the selected device's actuator.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Toggle(r.Context()); err != nil {
		s.writeDashboardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.controller.View())
}

// writeDashboardError maps controller errors onto HTTP responses.
func (s *Server) writeDashboardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dashboard.ErrNotSignedIn):
		writeUnauthorized(w, err.Error())
	case errors.Is(err, dashboard.ErrNoSpace), errors.Is(err, dashboard.ErrNoDevice):
		writeNotFound(w, err.Error())
	case errors.Is(err, dashboard.ErrInvalidInput):
		writeBadRequest(w, err.Error())
	case errors.Is(err, store.ErrMutation), errors.Is(err, store.ErrFetch):
		writeError(w, http.StatusBadGateway, ErrCodeConflict, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}

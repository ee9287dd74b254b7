package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inbox-snapshot/internal/types"
)

// requireUserID extracts the authenticated user id from the request. The
// gateway in front of this service performs authentication and forwards the
// identity in the X-User-ID header.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "User ID required", nil)
		return "", false
	}
	return userID, true
}

// handleCreateSnapshot handles POST /api/snapshots - Run the snapshot pipeline
func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	result, err := s.snapshotService.CreateSnapshot(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if !result.Success {
		respondJSON(w, http.StatusOK, result)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// handleListSnapshots handles GET /api/snapshots - List the user's snapshots
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	snapshots, err := s.snapshotService.ListSnapshots(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// handleGetSnapshot handles GET /api/snapshots/:id - Get a snapshot with items
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	snapshotID := mux.Vars(r)["id"]

	snapshot, err := s.snapshotService.GetSnapshotWithItems(r.Context(), userID, snapshotID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// handleRecordInteraction handles POST /api/snapshots/:id/items/:itemId/interactions
func (s *Server) handleRecordInteraction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID := mux.Vars(r)["itemId"]

	var req struct {
		Action types.InteractionType `json:"action"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Action == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Action is required", nil)
		return
	}

	if err := s.snapshotService.RecordInteraction(r.Context(), userID, itemID, req.Action); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "recorded",
		"action": string(req.Action),
	})
}

// handleListInteractions handles GET /api/interactions - Recent interaction events
func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}

	interactions, err := s.snapshotService.ListInteractions(r.Context(), userID, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": interactions,
		"count":        len(interactions),
	})
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/types"
)

// handleCreateUser handles POST /api/users - Register a new user account
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string                 `json:"email"`
		Tier  types.SubscriptionTier `json:"tier"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Email == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Email is required", nil)
		return
	}

	user := &models.User{
		Email: req.Email,
		Tier:  req.Tier,
	}
	if err := s.userStore.Create(r.Context(), user); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleGetUser handles GET /api/users/{id}
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	user, err := s.userStore.GetByID(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleGetUsage handles GET /api/usage - Quota projection for the user
func (s *Server) handleGetUsage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	usage, err := s.quotaService.CheckUsageLimits(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, usage)
}

// handleStartTrial handles POST /api/trial - Start the free trial
func (s *Server) handleStartTrial(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := s.quotaService.StartTrial(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleUpgrade handles POST /api/upgrade - Move to a paid tier
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Tier         types.SubscriptionTier `json:"tier"`
		BillingCycle types.BillingCycle     `json:"billingCycle"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Tier == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Tier is required", nil)
		return
	}
	if req.BillingCycle == "" {
		req.BillingCycle = types.CycleMonthly
	}

	user, err := s.quotaService.Upgrade(r.Context(), userID, req.Tier, req.BillingCycle)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleListSenders handles GET /api/senders - Senders ordered by email count
func (s *Server) handleListSenders(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	senders, err := s.senderService.ListSenders(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"senders": senders,
		"count":   len(senders),
	})
}

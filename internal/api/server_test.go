package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	apperrors "github.com/inbox-snapshot/internal/errors"
	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/service"
	"github.com/inbox-snapshot/internal/types"
)

// Mock services for testing

type mockSnapshotService struct {
	createFunc      func(ctx context.Context, userID string) (*service.CreateSnapshotResult, error)
	getFunc         func(ctx context.Context, userID, snapshotID string) (*service.SnapshotWithItems, error)
	interactionFunc func(ctx context.Context, userID, itemID string, action types.InteractionType) error
}

func (m *mockSnapshotService) CreateSnapshot(ctx context.Context, userID string) (*service.CreateSnapshotResult, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID)
	}
	return &service.CreateSnapshotResult{
		Success:      true,
		Message:      "Snapshot created with 2 items.",
		Snapshot:     &models.Snapshot{ID: "snap-123", UserID: userID, TotalItems: 2},
		NewMessages:  2,
		ItemsCreated: 2,
	}, nil
}

func (m *mockSnapshotService) ListSnapshots(ctx context.Context, userID string) ([]*models.Snapshot, error) {
	return []*models.Snapshot{
		{ID: "snap-123", UserID: userID, TotalItems: 2},
	}, nil
}

func (m *mockSnapshotService) GetSnapshotWithItems(ctx context.Context, userID, snapshotID string) (*service.SnapshotWithItems, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, snapshotID)
	}
	return &service.SnapshotWithItems{
		Snapshot: &models.Snapshot{ID: snapshotID, UserID: userID, TotalItems: 1},
		Items:    []*models.SnapshotItem{{ID: "item-1", SnapshotID: snapshotID}},
	}, nil
}

func (m *mockSnapshotService) RecordInteraction(ctx context.Context, userID, itemID string, action types.InteractionType) error {
	if m.interactionFunc != nil {
		return m.interactionFunc(ctx, userID, itemID, action)
	}
	return nil
}

func (m *mockSnapshotService) ListInteractions(ctx context.Context, userID string, limit int) ([]*models.UserInteraction, error) {
	return []*models.UserInteraction{
		{ID: "evt-1", UserID: userID, SnapshotItemID: "item-1", Action: types.InteractionOpenEmail},
	}, nil
}

type mockQuotaService struct {
	usageFunc func(ctx context.Context, userID string) (*service.UsageLimits, error)
}

func (m *mockQuotaService) CheckUsageLimits(ctx context.Context, userID string) (*service.UsageLimits, error) {
	if m.usageFunc != nil {
		return m.usageFunc(ctx, userID)
	}
	return &service.UsageLimits{
		Tier:               types.TierTrial,
		HasActiveAccess:    true,
		CanCreateSnapshot:  true,
		DailySnapshotLimit: 1,
	}, nil
}

func (m *mockQuotaService) StartTrial(ctx context.Context, userID string) (*models.User, error) {
	expires := time.Now().Add(7 * 24 * time.Hour)
	return &models.User{ID: userID, Tier: types.TierTrial, TrialExpiresAt: &expires}, nil
}

func (m *mockQuotaService) Upgrade(ctx context.Context, userID string, tier types.SubscriptionTier, cycle types.BillingCycle) (*models.User, error) {
	if tier != types.TierStarter && tier != types.TierPro {
		return nil, apperrors.NewInvalidParameterError("tier", "cannot upgrade to this tier")
	}
	return &models.User{ID: userID, Tier: tier, BillingCycle: &cycle}, nil
}

type mockUserStore struct {
	users map[string]*models.User
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-generated"
	}
	if user.Tier == "" {
		user.Tier = types.TierFree
	}
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user", id)
	}
	return user, nil
}

type mockSenderService struct{}

func (m *mockSenderService) ListSenders(ctx context.Context, userID string) ([]*models.Sender, error) {
	return []*models.Sender{
		{ID: "sender-1", UserID: userID, Email: "a@b.com", EmailCount: 3},
	}, nil
}

// Helper function to create test server backed by mocks
func createTestServer() *Server {
	config := &ServerConfig{
		Host:           "localhost",
		Port:           "8080",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		FreeTierRPS:    100,
		TrialTierRPS:   100,
		StarterTierRPS: 100,
		ProTierRPS:     100,
	}

	server := &Server{
		router:          mux.NewRouter(),
		snapshotService: &mockSnapshotService{},
		quotaService:    &mockQuotaService{},
		senderService:   &mockSenderService{},
		userStore:       &mockUserStore{},
		config:          config,
	}
	server.setupRouter()
	return server
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got '%s'", response["status"])
	}
}

func TestCreateSnapshot_Success(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("POST", "/api/snapshots", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}

	var response service.CreateSnapshotResult
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !response.Success || response.Snapshot.ID != "snap-123" {
		t.Errorf("Unexpected response: %+v", response)
	}
}

func TestCreateSnapshot_MissingUserID(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("POST", "/api/snapshots", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestCreateSnapshot_QuotaErrorStatus(t *testing.T) {
	server := createTestServer()
	server.snapshotService = &mockSnapshotService{
		createFunc: func(ctx context.Context, userID string) (*service.CreateSnapshotResult, error) {
			return nil, apperrors.NewDailyLimitError(1)
		},
	}

	req := httptest.NewRequest("POST", "/api/snapshots", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Error.Code != apperrors.CodeDailyLimitReached {
		t.Errorf("Expected code %s, got %s", apperrors.CodeDailyLimitReached, response.Error.Code)
	}
}

func TestCreateSnapshot_NoNewEmailsIsOK(t *testing.T) {
	server := createTestServer()
	server.snapshotService = &mockSnapshotService{
		createFunc: func(ctx context.Context, userID string) (*service.CreateSnapshotResult, error) {
			return &service.CreateSnapshotResult{Success: false, Message: "No new unread emails found."}, nil
		},
	}

	req := httptest.NewRequest("POST", "/api/snapshots", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for no-new-emails, got %d", w.Code)
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	server := createTestServer()
	server.snapshotService = &mockSnapshotService{
		getFunc: func(ctx context.Context, userID, snapshotID string) (*service.SnapshotWithItems, error) {
			return nil, apperrors.NewNotFoundError("snapshot", snapshotID)
		},
	}

	req := httptest.NewRequest("GET", "/api/snapshots/snap-999", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRecordInteraction(t *testing.T) {
	server := createTestServer()

	var gotAction types.InteractionType
	server.snapshotService = &mockSnapshotService{
		interactionFunc: func(ctx context.Context, userID, itemID string, action types.InteractionType) error {
			gotAction = action
			return nil
		},
	}

	body, _ := json.Marshal(map[string]string{"action": "mark_ignored"})
	req := httptest.NewRequest("POST", "/api/snapshots/snap-1/items/item-1/interactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if gotAction != types.InteractionMarkIgnored {
		t.Errorf("Expected action mark_ignored, got %s", gotAction)
	}
}

func TestRecordInteraction_MissingAction(t *testing.T) {
	server := createTestServer()

	body, _ := json.Marshal(map[string]string{})
	req := httptest.NewRequest("POST", "/api/snapshots/snap-1/items/item-1/interactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetUsage(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/usage", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response service.UsageLimits
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Tier != types.TierTrial || !response.CanCreateSnapshot {
		t.Errorf("Unexpected usage response: %+v", response)
	}
}

func TestUpgrade_InvalidTier(t *testing.T) {
	server := createTestServer()

	body, _ := json.Marshal(map[string]string{"tier": "free"})
	req := httptest.NewRequest("POST", "/api/upgrade", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestListSenders(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/senders", nil)
	req.Header.Set("X-User-ID", "user-123")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Senders []*models.Sender `json:"senders"`
		Count   int              `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Count != 1 || response.Senders[0].Email != "a@b.com" {
		t.Errorf("Unexpected senders response: %+v", response)
	}
}

func TestCreateUser(t *testing.T) {
	server := createTestServer()

	body := bytes.NewBufferString(`{"email": "new@example.com"}`)
	req := httptest.NewRequest("POST", "/api/users", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var user models.User
	if err := json.NewDecoder(w.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Errorf("Expected email new@example.com, got %s", user.Email)
	}
	if user.Tier != types.TierFree {
		t.Errorf("Expected default tier free, got %s", user.Tier)
	}
}

func TestCreateUser_MissingEmail(t *testing.T) {
	server := createTestServer()

	body := bytes.NewBufferString(`{}`)
	req := httptest.NewRequest("POST", "/api/users", body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/api/users/missing-user", nil)

	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	server := createTestServer()
	server.config.FreeTierRPS = 1
	server.router = mux.NewRouter()
	server.setupRouter()

	// Burst is 10; the 11th rapid request must be rejected.
	var lastCode int
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest("GET", "/api/usage", nil)
		req.Header.Set("X-User-ID", "rate-user")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)
		lastCode = w.Code
	}
	if lastCode != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 after burst, got %d", lastCode)
	}
}

// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/inbox-snapshot/internal/logging"
	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/service"
	"github.com/inbox-snapshot/internal/storage"
	"github.com/inbox-snapshot/internal/types"
)

// Service interfaces for dependency injection and testing

// SnapshotServiceInterface defines the interface for snapshot operations
type SnapshotServiceInterface interface {
	CreateSnapshot(ctx context.Context, userID string) (*service.CreateSnapshotResult, error)
	ListSnapshots(ctx context.Context, userID string) ([]*models.Snapshot, error)
	GetSnapshotWithItems(ctx context.Context, userID, snapshotID string) (*service.SnapshotWithItems, error)
	RecordInteraction(ctx context.Context, userID, itemID string, action types.InteractionType) error
	ListInteractions(ctx context.Context, userID string, limit int) ([]*models.UserInteraction, error)
}

// QuotaServiceInterface defines the interface for quota and subscription operations
type QuotaServiceInterface interface {
	CheckUsageLimits(ctx context.Context, userID string) (*service.UsageLimits, error)
	StartTrial(ctx context.Context, userID string) (*models.User, error)
	Upgrade(ctx context.Context, userID string, tier types.SubscriptionTier, cycle types.BillingCycle) (*models.User, error)
}

// SenderServiceInterface defines the interface for sender registry reads
type SenderServiceInterface interface {
	ListSenders(ctx context.Context, userID string) ([]*models.Sender, error)
}

// UserStoreInterface defines the user persistence operations the API needs
type UserStoreInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Server represents the HTTP API server.
type Server struct {
	router          *mux.Router
	httpServer      *http.Server
	snapshotService SnapshotServiceInterface
	quotaService    QuotaServiceInterface
	senderService   SenderServiceInterface
	userStore       UserStoreInterface
	config          *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	FreeTierRPS     int
	TrialTierRPS    int
	StarterTierRPS  int
	ProTierRPS      int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	snapshotService *service.SnapshotService,
	quotaService *service.QuotaService,
	senderService *service.SenderService,
	userRepo *storage.UserRepository,
) *Server {
	s := &Server{
		router:          mux.NewRouter(),
		snapshotService: snapshotService,
		quotaService:    quotaService,
		senderService:   senderService,
		userStore:       userRepo,
		config:          config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.FreeTierRPS, s.config.TrialTierRPS, s.config.StarterTierRPS, s.config.ProTierRPS)

	// Middleware order matters: logging wraps everything, recovery catches
	// panics in handlers, rate limiting runs after CORS preflight handling.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Snapshot endpoints
	api.HandleFunc("/snapshots", s.handleCreateSnapshot).Methods("POST")
	api.HandleFunc("/snapshots", s.handleListSnapshots).Methods("GET")
	api.HandleFunc("/snapshots/{id}", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/snapshots/{id}/items/{itemId}/interactions", s.handleRecordInteraction).Methods("POST")
	api.HandleFunc("/interactions", s.handleListInteractions).Methods("GET")

	// Usage and subscription endpoints
	api.HandleFunc("/usage", s.handleGetUsage).Methods("GET")
	api.HandleFunc("/trial", s.handleStartTrial).Methods("POST")
	api.HandleFunc("/upgrade", s.handleUpgrade).Methods("POST")

	// Sender registry
	api.HandleFunc("/senders", s.handleListSenders).Methods("GET")

	// User endpoints
	api.HandleFunc("/users", s.handleCreateUser).Methods("POST")
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "inbox-snapshot",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/inbox-snapshot/internal/errors"
	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/priority"
)

// SenderStore is the persistence surface the sender service needs
type SenderStore interface {
	Upsert(ctx context.Context, userID, name, email, domain string) (*models.Sender, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Sender, error)
}

// SenderService maintains the per-user sender registry
type SenderService struct {
	senders SenderStore
}

// NewSenderService creates a new sender service
func NewSenderService(senders SenderStore) *SenderService {
	return &SenderService{senders: senders}
}

// ResolveSender finds or creates the sender row for (userID, email) and
// bumps its email count. The upsert keeps the count invariant under
// concurrent runs for the same user.
func (s *SenderService) ResolveSender(ctx context.Context, userID, name, email string) (*models.Sender, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewInvalidParameterError("email", "sender email is empty")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		// fall back to the local part of the address
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		} else {
			name = email
		}
	}

	sender, err := s.senders.Upsert(ctx, userID, name, email, priority.Domain(email))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sender %s: %w", email, err)
	}
	return sender, nil
}

// ListSenders returns the user's senders ordered by email count
func (s *SenderService) ListSenders(ctx context.Context, userID string) ([]*models.Sender, error) {
	return s.senders.ListByUser(ctx, userID)
}

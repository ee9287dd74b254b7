package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inbox-snapshot/internal/config"
	apperrors "github.com/inbox-snapshot/internal/errors"
	"github.com/inbox-snapshot/internal/logging"
	"github.com/inbox-snapshot/internal/mailbox"
	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/priority"
	"github.com/inbox-snapshot/internal/retry"
	"github.com/inbox-snapshot/internal/summarizer"
	"github.com/inbox-snapshot/internal/types"
)

// SnapshotStore is the persistence surface the snapshot service needs
type SnapshotStore interface {
	Create(ctx context.Context, snapshot *models.Snapshot) error
	CreateItem(ctx context.Context, item *models.SnapshotItem) error
	FinalizeTotalItems(ctx context.Context, snapshotID string, totalItems int) error
	Delete(ctx context.Context, snapshotID string) error
	ListByUser(ctx context.Context, userID string) ([]*models.Snapshot, error)
	GetByIDAndUser(ctx context.Context, snapshotID, userID string) (*models.Snapshot, error)
	GetItems(ctx context.Context, snapshotID string) ([]*models.SnapshotItem, error)
	ExistingMessageIDs(ctx context.Context, userID string) (map[string]bool, error)
	SetItemIgnored(ctx context.Context, userID, itemID string, ignored bool) error
	SetItemRemoved(ctx context.Context, userID, itemID string, removed bool) error
}

// InteractionStore records append-only user interaction events
type InteractionStore interface {
	Insert(ctx context.Context, interaction *models.UserInteraction) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.UserInteraction, error)
}

// Locker serializes concurrent snapshot runs for the same user
type Locker interface {
	Acquire(ctx context.Context, userID string) (bool, error)
	Release(ctx context.Context, userID string) error
}

// CreateSnapshotResult is the outcome of one snapshot run
type CreateSnapshotResult struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	Snapshot     *models.Snapshot `json:"snapshot,omitempty"`
	NewMessages  int              `json:"newMessages"`
	ItemsCreated int              `json:"itemsCreated"`
}

// SnapshotWithItems bundles a snapshot with its items
type SnapshotWithItems struct {
	*models.Snapshot
	Items []*models.SnapshotItem `json:"items"`
}

// SnapshotService orchestrates snapshot generation end to end
type SnapshotService struct {
	snapshots    SnapshotStore
	interactions InteractionStore
	senders      *SenderService
	quota        *QuotaService
	provider     mailbox.Provider
	summarizer   summarizer.Summarizer
	lock         Locker
	cfg          *config.SnapshotConfig
	retryCfg     *retry.Config
	now          func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(
	snapshots SnapshotStore,
	interactions InteractionStore,
	senders *SenderService,
	quota *QuotaService,
	provider mailbox.Provider,
	sum summarizer.Summarizer,
	lock Locker,
	cfg *config.SnapshotConfig,
) *SnapshotService {
	return &SnapshotService{
		snapshots:    snapshots,
		interactions: interactions,
		senders:      senders,
		quota:        quota,
		provider:     provider,
		summarizer:   sum,
		lock:         lock,
		cfg:          cfg,
		retryCfg:     retry.DefaultConfig(),
		now:          time.Now,
	}
}

// CreateSnapshot runs the full pipeline: reserve a quota slot, fetch unread
// messages, deduplicate against every existing snapshot, summarize, score and
// persist. The reserved quota slot is not given back if a later step fails.
func (s *SnapshotService) CreateSnapshot(ctx context.Context, userID string) (*CreateSnapshotResult, error) {
	logger := logging.FromContext(ctx).WithField("user_id", userID)

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot: %w", err)
		}
		if !acquired {
			return nil, apperrors.NewSnapshotInProgressError()
		}
		defer func() {
			if err := s.lock.Release(ctx, userID); err != nil {
				logger.WithError(err).Warn("failed to release snapshot lock")
			}
		}()
	}

	// Quota failure aborts before any mailbox fetch, surfaced verbatim.
	user, err := s.quota.ReserveSnapshotSlot(ctx, userID)
	if err != nil {
		return nil, err
	}

	limits := LimitsForTier(user.Tier)
	maxFetch := limits.EmailsPerSnapshot
	if s.cfg.MaxFetchCeiling > 0 && maxFetch > s.cfg.MaxFetchCeiling {
		maxFetch = s.cfg.MaxFetchCeiling
	}

	var messages []mailbox.Message
	err = retry.Do(ctx, s.retryCfg, func(ctx context.Context, attempt int) error {
		var fetchErr error
		messages, fetchErr = s.provider.FetchUnreadMessages(ctx, user, maxFetch)
		return fetchErr
	})
	if err != nil {
		return nil, apperrors.NewProviderError(s.provider.Name(), fmt.Errorf("failed to create snapshot: %w", err))
	}

	if len(messages) == 0 {
		return &CreateSnapshotResult{Success: false, Message: "No new unread emails found."}, nil
	}

	// Dedup is global per user across all existing snapshots.
	seen, err := s.snapshots.ExistingMessageIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	fresh := messages[:0]
	for _, msg := range messages {
		if !seen[msg.ID] {
			fresh = append(fresh, msg)
		}
	}
	if len(fresh) == 0 {
		return &CreateSnapshotResult{Success: false, Message: "No new unread emails found."}, nil
	}

	now := s.now().UTC()
	snapshot := &models.Snapshot{
		ID:                 uuid.New().String(),
		UserID:             userID,
		SnapshotDate:       now,
		TotalItems:         0,
		RetentionExpiresAt: now.Add(s.cfg.RetentionWindow),
		ScopeType:          "unread",
		ScopeValue:         s.provider.Name(),
		CreatedAt:          now,
	}
	if err := s.snapshots.Create(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	created := 0
	for _, msg := range fresh {
		item, err := s.buildItem(ctx, snapshot.ID, userID, msg)
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot: %w", err)
		}
		if item == nil {
			// summarization failed or came back empty, skip this message
			continue
		}
		if err := s.snapshots.CreateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to create snapshot: %w", err)
		}
		created++
	}

	if created == 0 {
		// Nothing summarized; drop the empty snapshot row rather than leave
		// a zero-item snapshot behind.
		if err := s.snapshots.Delete(ctx, snapshot.ID); err != nil {
			logger.WithError(err).Error("failed to delete empty snapshot")
		}
		return &CreateSnapshotResult{
			Success:     false,
			Message:     "Failed to summarize any new emails.",
			NewMessages: len(fresh),
		}, nil
	}

	if err := s.snapshots.FinalizeTotalItems(ctx, snapshot.ID, created); err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := s.quota.RecordEmailsProcessed(ctx, userID, created); err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	snapshot.TotalItems = created

	logger.WithFields(map[string]interface{}{
		"snapshot_id":  snapshot.ID,
		"new_messages": len(fresh),
		"items":        created,
	}).Info("snapshot created")

	return &CreateSnapshotResult{
		Success:      true,
		Message:      fmt.Sprintf("Snapshot created with %d items.", created),
		Snapshot:     snapshot,
		NewMessages:  len(fresh),
		ItemsCreated: created,
	}, nil
}

// buildItem summarizes and scores one message. A nil item with nil error
// means the message was skipped.
func (s *SnapshotService) buildItem(ctx context.Context, snapshotID, userID string, msg mailbox.Message) (*models.SnapshotItem, error) {
	logger := logging.FromContext(ctx)

	sender, err := s.senders.ResolveSender(ctx, userID, msg.SenderName, msg.SenderEmail)
	if err != nil {
		return nil, err
	}

	text := msg.Body
	if text == "" {
		text = msg.Snippet
	}
	summary, err := s.summarizer.Summarize(ctx, text)
	if err != nil {
		logger.WithField("message_id", msg.ID).WithError(err).Warn("skipping message, summarization failed")
		return nil, nil
	}
	if summary == "" {
		logger.WithField("message_id", msg.ID).Warn("skipping message, empty summary")
		return nil, nil
	}

	scored := priority.Score(priority.Input{
		Labels:       msg.Labels,
		Headers:      msg.Headers,
		SenderEmail:  msg.SenderEmail,
		SizeEstimate: msg.SizeEstimate,
	})

	return &models.SnapshotItem{
		ID:                uuid.New().String(),
		SnapshotID:        snapshotID,
		SenderID:          sender.ID,
		Provider:          s.provider.Name(),
		ProviderMessageID: msg.ID,
		Subject:           msg.Subject,
		MessageDate:       msg.Date,
		Summary:           summary,
		Snippet:           msg.Snippet,
		OpenLink:          msg.OpenLink,
		Attachments:       msg.Attachments,
		Categories:        msg.Labels,
		PriorityScore:     scored.Score,
		PriorityLabel:     scored.Label,
		CreatedAt:         s.now().UTC(),
	}, nil
}

// ListSnapshots returns the user's snapshots, newest first
func (s *SnapshotService) ListSnapshots(ctx context.Context, userID string) ([]*models.Snapshot, error) {
	return s.snapshots.ListByUser(ctx, userID)
}

// GetSnapshotWithItems returns one snapshot and its items. A snapshot
// belonging to another user is reported as not found.
func (s *SnapshotService) GetSnapshotWithItems(ctx context.Context, userID, snapshotID string) (*SnapshotWithItems, error) {
	snapshot, err := s.snapshots.GetByIDAndUser(ctx, snapshotID, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.snapshots.GetItems(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot items: %w", err)
	}
	return &SnapshotWithItems{Snapshot: snapshot, Items: items}, nil
}

// RecordInteraction applies a user action to an item and appends the event
// to the interaction log. The log write is best effort; a failure there is
// logged and does not undo the item flag update.
func (s *SnapshotService) RecordInteraction(ctx context.Context, userID, itemID string, action types.InteractionType) error {
	if !types.ValidInteraction(action) {
		return apperrors.NewInvalidParameterError("action", fmt.Sprintf("unknown interaction '%s'", action))
	}

	switch action {
	case types.InteractionMarkIgnored:
		if err := s.snapshots.SetItemIgnored(ctx, userID, itemID, true); err != nil {
			return err
		}
	case types.InteractionRemoveInbox:
		if err := s.snapshots.SetItemRemoved(ctx, userID, itemID, true); err != nil {
			return err
		}
	case types.InteractionOpenEmail:
		// no item state change, only the event record
	}

	event := &models.UserInteraction{
		UserID:         userID,
		SnapshotItemID: itemID,
		Action:         action,
	}
	if err := s.interactions.Insert(ctx, event); err != nil {
		logging.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"user_id": userID,
			"item_id": itemID,
		}).Error("failed to record interaction event")
	}
	return nil
}

// ListInteractions returns the most recent interaction events for a user
func (s *SnapshotService) ListInteractions(ctx context.Context, userID string, limit int) ([]*models.UserInteraction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.interactions.ListByUser(ctx, userID, limit)
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/types"
)

// InteractionRepository appends user interaction events to ClickHouse.
// The log is write-only for the core: rows are never updated or deleted,
// and they outlive the snapshot items they reference. Readers must tolerate
// item ids that no longer resolve.
type InteractionRepository struct {
	db *ClickHouseDB
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(db *ClickHouseDB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// Insert appends one interaction event
func (r *InteractionRepository) Insert(ctx context.Context, interaction *models.UserInteraction) error {
	if interaction.ID == "" {
		interaction.ID = uuid.New().String()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO user_interactions (id, user_id, snapshot_item_id, action, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	err := r.db.Conn().Exec(ctx, query,
		interaction.ID,
		interaction.UserID,
		interaction.SnapshotItemID,
		string(interaction.Action),
		interaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}

	return nil
}

// ListByUser retrieves the most recent interactions for a user
func (r *InteractionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.UserInteraction, error) {
	query := `
		SELECT id, user_id, snapshot_item_id, action, created_at
		FROM user_interactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []*models.UserInteraction
	for rows.Next() {
		var i models.UserInteraction
		var action string

		if err := rows.Scan(&i.ID, &i.UserID, &i.SnapshotItemID, &action, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		i.Action = types.InteractionType(action)

		interactions = append(interactions, &i)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}

	return interactions, nil
}

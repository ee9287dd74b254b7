package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inbox-snapshot/internal/models"
)

// SenderRepository handles sender registry persistence
type SenderRepository struct {
	db *PostgresDB
}

// NewSenderRepository creates a new sender repository
func NewSenderRepository(db *PostgresDB) *SenderRepository {
	return &SenderRepository{db: db}
}

// Upsert resolves a sender for (userID, email): inserts with a count of 1 on
// first sight, otherwise increments the count. The ON CONFLICT upsert rides
// on the (user_id, email) uniqueness constraint, so concurrent resolutions
// for the same pair cannot produce two rows.
func (r *SenderRepository) Upsert(ctx context.Context, userID, name, email, domain string) (*models.Sender, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO senders (id, user_id, name, email, domain, email_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $6)
		ON CONFLICT (user_id, email)
		DO UPDATE SET
			email_count = senders.email_count + 1,
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, name, email, domain, email_count, created_at, updated_at
	`

	var sender models.Sender
	err := r.db.Pool().QueryRow(ctx, query,
		uuid.New().String(),
		userID,
		name,
		email,
		domain,
		now,
	).Scan(
		&sender.ID,
		&sender.UserID,
		&sender.Name,
		&sender.Email,
		&sender.Domain,
		&sender.EmailCount,
		&sender.CreatedAt,
		&sender.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert sender: %w", err)
	}

	return &sender, nil
}

// ListByUser retrieves all senders for a user, most frequent first
func (r *SenderRepository) ListByUser(ctx context.Context, userID string) ([]*models.Sender, error) {
	query := `
		SELECT id, user_id, name, email, domain, email_count, created_at, updated_at
		FROM senders
		WHERE user_id = $1
		ORDER BY email_count DESC, email ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list senders: %w", err)
	}
	defer rows.Close()

	var senders []*models.Sender
	for rows.Next() {
		var sender models.Sender
		err := rows.Scan(
			&sender.ID,
			&sender.UserID,
			&sender.Name,
			&sender.Email,
			&sender.Domain,
			&sender.EmailCount,
			&sender.CreatedAt,
			&sender.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sender: %w", err)
		}
		senders = append(senders, &sender)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating senders: %w", err)
	}

	return senders, nil
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/inbox-snapshot/internal/errors"
	"github.com/inbox-snapshot/internal/models"
	"github.com/jackc/pgx/v5"
)

// SnapshotRepository handles snapshot and snapshot item persistence
type SnapshotRepository struct {
	db *PostgresDB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create stores a new snapshot row
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *models.Snapshot) error {
	query := `
		INSERT INTO snapshots (id, user_id, snapshot_date, total_items, retention_expires_at, scope_type, scope_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		snapshot.ID,
		snapshot.UserID,
		snapshot.SnapshotDate,
		snapshot.TotalItems,
		snapshot.RetentionExpiresAt,
		snapshot.ScopeType,
		snapshot.ScopeValue,
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// CreateItem stores a new snapshot item
func (r *SnapshotRepository) CreateItem(ctx context.Context, item *models.SnapshotItem) error {
	attachmentsJSON, err := json.Marshal(item.Attachments)
	if err != nil {
		return fmt.Errorf("failed to marshal attachments: %w", err)
	}

	categoriesJSON, err := json.Marshal(item.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}

	query := `
		INSERT INTO snapshot_items (
			id, snapshot_id, sender_id, provider, provider_message_id,
			subject, message_date, summary, snippet,
			ignored_on_snapshot, removed_from_inbox, open_link,
			attachments, categories, priority_score, priority_label, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		item.ID,
		item.SnapshotID,
		item.SenderID,
		item.Provider,
		item.ProviderMessageID,
		item.Subject,
		item.MessageDate,
		item.Summary,
		item.Snippet,
		item.IgnoredOnSnapshot,
		item.RemovedFromInbox,
		item.OpenLink,
		attachmentsJSON,
		categoriesJSON,
		item.PriorityScore,
		item.PriorityLabel,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot item: %w", err)
	}

	return nil
}

// FinalizeTotalItems updates the snapshot's item count after processing
func (r *SnapshotRepository) FinalizeTotalItems(ctx context.Context, snapshotID string, totalItems int) error {
	query := `UPDATE snapshots SET total_items = $2 WHERE id = $1`

	result, err := r.db.Pool().Exec(ctx, query, snapshotID, totalItems)
	if err != nil {
		return fmt.Errorf("failed to finalize snapshot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("snapshot", snapshotID)
	}

	return nil
}

// Delete removes a snapshot and its items, items first so no orphans are
// left if the storage layer lacks cascade.
func (r *SnapshotRepository) Delete(ctx context.Context, snapshotID string) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM snapshot_items WHERE snapshot_id = $1`, snapshotID); err != nil {
		return fmt.Errorf("failed to delete snapshot items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM snapshots WHERE id = $1`, snapshotID); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot delete: %w", err)
	}

	return nil
}

// ListByUser retrieves all snapshots for a user, newest first
func (r *SnapshotRepository) ListByUser(ctx context.Context, userID string) ([]*models.Snapshot, error) {
	query := `
		SELECT id, user_id, snapshot_date, total_items, retention_expires_at, scope_type, scope_value, created_at
		FROM snapshots
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		var s models.Snapshot
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.SnapshotDate,
			&s.TotalItems,
			&s.RetentionExpiresAt,
			&s.ScopeType,
			&s.ScopeValue,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}

// GetByIDAndUser retrieves one snapshot scoped to its owner. A snapshot that
// exists but belongs to another user is reported as not found.
func (r *SnapshotRepository) GetByIDAndUser(ctx context.Context, snapshotID, userID string) (*models.Snapshot, error) {
	query := `
		SELECT id, user_id, snapshot_date, total_items, retention_expires_at, scope_type, scope_value, created_at
		FROM snapshots
		WHERE id = $1 AND user_id = $2
	`

	var s models.Snapshot
	err := r.db.Pool().QueryRow(ctx, query, snapshotID, userID).Scan(
		&s.ID,
		&s.UserID,
		&s.SnapshotDate,
		&s.TotalItems,
		&s.RetentionExpiresAt,
		&s.ScopeType,
		&s.ScopeValue,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("snapshot", snapshotID)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &s, nil
}

// GetItems retrieves all items of a snapshot in creation order
func (r *SnapshotRepository) GetItems(ctx context.Context, snapshotID string) ([]*models.SnapshotItem, error) {
	query := `
		SELECT id, snapshot_id, sender_id, provider, provider_message_id,
			subject, message_date, summary, snippet,
			ignored_on_snapshot, removed_from_inbox, open_link,
			attachments, categories, priority_score, priority_label, created_at
		FROM snapshot_items
		WHERE snapshot_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Pool().Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot items: %w", err)
	}
	defer rows.Close()

	var items []*models.SnapshotItem
	for rows.Next() {
		var item models.SnapshotItem
		var attachmentsJSON, categoriesJSON []byte

		err := rows.Scan(
			&item.ID,
			&item.SnapshotID,
			&item.SenderID,
			&item.Provider,
			&item.ProviderMessageID,
			&item.Subject,
			&item.MessageDate,
			&item.Summary,
			&item.Snippet,
			&item.IgnoredOnSnapshot,
			&item.RemovedFromInbox,
			&item.OpenLink,
			&attachmentsJSON,
			&categoriesJSON,
			&item.PriorityScore,
			&item.PriorityLabel,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot item: %w", err)
		}

		if len(attachmentsJSON) > 0 {
			if err := json.Unmarshal(attachmentsJSON, &item.Attachments); err != nil {
				return nil, fmt.Errorf("failed to unmarshal attachments: %w", err)
			}
		}
		if len(categoriesJSON) > 0 {
			if err := json.Unmarshal(categoriesJSON, &item.Categories); err != nil {
				return nil, fmt.Errorf("failed to unmarshal categories: %w", err)
			}
		}

		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot items: %w", err)
	}

	return items, nil
}

// ExistingMessageIDs loads the provider message identifiers already present
// across all of a user's snapshots. Dedup is global per user, not per run.
func (r *SnapshotRepository) ExistingMessageIDs(ctx context.Context, userID string) (map[string]bool, error) {
	query := `
		SELECT DISTINCT i.provider_message_id
		FROM snapshot_items i
		JOIN snapshots s ON s.id = i.snapshot_id
		WHERE s.user_id = $1
	`

	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing message ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		seen[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message ids: %w", err)
	}

	return seen, nil
}

// DeleteExpired removes every snapshot whose retention deadline has passed,
// cascading to its items. The boundary is inclusive: a snapshot expiring
// exactly at now is deleted. Returns the number of snapshots removed.
func (r *SnapshotRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	itemsQuery := `
		DELETE FROM snapshot_items
		WHERE snapshot_id IN (
			SELECT id FROM snapshots WHERE retention_expires_at <= $1
		)
	`
	if _, err := tx.Exec(ctx, itemsQuery, now.UTC()); err != nil {
		return 0, fmt.Errorf("failed to delete expired snapshot items: %w", err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM snapshots WHERE retention_expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit expiry delete: %w", err)
	}

	return result.RowsAffected(), nil
}

// SetItemIgnored flips the soft ignore flag on an item, scoped to its owner
func (r *SnapshotRepository) SetItemIgnored(ctx context.Context, userID, itemID string, ignored bool) error {
	return r.setItemFlag(ctx, userID, itemID, "ignored_on_snapshot", ignored)
}

// SetItemRemoved marks an item's source message as removed from the inbox,
// scoped to its owner. The mutating call against the provider happens
// upstream; this records the confirmed outcome.
func (r *SnapshotRepository) SetItemRemoved(ctx context.Context, userID, itemID string, removed bool) error {
	return r.setItemFlag(ctx, userID, itemID, "removed_from_inbox", removed)
}

func (r *SnapshotRepository) setItemFlag(ctx context.Context, userID, itemID, column string, value bool) error {
	// column is one of two compile-time constants, never user input
	query := fmt.Sprintf(`
		UPDATE snapshot_items i
		SET %s = $3
		FROM snapshots s
		WHERE i.id = $1 AND i.snapshot_id = s.id AND s.user_id = $2
	`, column)

	result, err := r.db.Pool().Exec(ctx, query, itemID, userID, value)
	if err != nil {
		return fmt.Errorf("failed to update snapshot item flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("snapshot item", itemID)
	}

	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/inbox-snapshot/internal/errors"
	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/types"
	"github.com/jackc/pgx/v5"
)

// UserRepository handles user data persistence. All quota counter mutations
// go through the single-statement conditional updates below; callers must not
// write those columns any other way.
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, email, tier, billing_cycle,
	trial_started_at, trial_expires_at,
	subscription_started_at, subscription_expires_at,
	snapshots_created_today, emails_summarized_today,
	total_snapshots_created, total_emails_summarized,
	last_snapshot_date, last_usage_reset_date,
	created_at, updated_at
`

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Tier == "" {
		user.Tier = types.TierFree
	}
	if !types.ValidTier(user.Tier) {
		return apperrors.NewInvalidParameterError("tier", fmt.Sprintf("unknown tier: %s", user.Tier))
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, email, tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		user.ID,
		user.Email,
		user.Tier,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user", id)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ResetDailyUsageIfNeeded zeroes the daily counters when the stored reset
// date is older than today (UTC, date-only comparison). The conditional
// update makes concurrent resets for the same user collapse to one.
func (r *UserRepository) ResetDailyUsageIfNeeded(ctx context.Context, userID string, today time.Time) error {
	query := `
		UPDATE users
		SET snapshots_created_today = 0,
			emails_summarized_today = 0,
			last_usage_reset_date = $2,
			updated_at = $3
		WHERE id = $1
			AND (last_usage_reset_date IS NULL OR last_usage_reset_date::date < $2::date)
	`

	_, err := r.db.Pool().Exec(ctx, query, userID, today.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reset daily usage: %w", err)
	}

	return nil
}

// IncrementSnapshotUsage consumes one snapshot slot if the caps still allow
// it. A negative cap means unlimited. Returns false if the guarded update
// matched no row, i.e. a concurrent attempt already took the last slot.
func (r *UserRepository) IncrementSnapshotUsage(ctx context.Context, userID string, now time.Time, dailyCap, lifetimeCap int) (bool, error) {
	query := `
		UPDATE users
		SET snapshots_created_today = snapshots_created_today + 1,
			total_snapshots_created = total_snapshots_created + 1,
			last_snapshot_date = $2,
			updated_at = $2
		WHERE id = $1
			AND ($3 < 0 OR snapshots_created_today < $3)
			AND ($4 < 0 OR total_snapshots_created < $4)
	`

	result, err := r.db.Pool().Exec(ctx, query, userID, now.UTC(), dailyCap, lifetimeCap)
	if err != nil {
		return false, fmt.Errorf("failed to increment snapshot usage: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// IncrementEmailUsage adds count to the daily and lifetime email counters
func (r *UserRepository) IncrementEmailUsage(ctx context.Context, userID string, count int) error {
	query := `
		UPDATE users
		SET emails_summarized_today = emails_summarized_today + $2,
			total_emails_summarized = total_emails_summarized + $2,
			updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query, userID, count, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment email usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("user", userID)
	}

	return nil
}

// StartTrial moves the user to the trial tier, stamps the trial window and
// zeroes every counter.
func (r *UserRepository) StartTrial(ctx context.Context, userID string, startedAt, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET tier = $2,
			trial_started_at = $3,
			trial_expires_at = $4,
			snapshots_created_today = 0,
			emails_summarized_today = 0,
			total_snapshots_created = 0,
			total_emails_summarized = 0,
			last_usage_reset_date = $3,
			updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query, userID, types.TierTrial, startedAt.UTC(), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to start trial: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("user", userID)
	}

	return nil
}

// Upgrade moves the user to a paid tier with a subscription window
func (r *UserRepository) Upgrade(ctx context.Context, userID string, tier types.SubscriptionTier, cycle types.BillingCycle, startedAt, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET tier = $2,
			billing_cycle = $3,
			subscription_started_at = $4,
			subscription_expires_at = $5,
			updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query, userID, tier, cycle, startedAt.UTC(), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upgrade user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("user", userID)
	}

	return nil
}

// Reinitialize resets a deactivated user back to a fresh free-tier state.
// The row is kept for billing continuity; only its lifecycle fields reset.
func (r *UserRepository) Reinitialize(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET tier = $2,
			billing_cycle = NULL,
			trial_started_at = NULL,
			trial_expires_at = NULL,
			subscription_started_at = NULL,
			subscription_expires_at = NULL,
			snapshots_created_today = 0,
			emails_summarized_today = 0,
			total_snapshots_created = 0,
			total_emails_summarized = 0,
			last_snapshot_date = NULL,
			last_usage_reset_date = NULL,
			updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query, userID, types.TierFree, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to reinitialize user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("user", userID)
	}

	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Tier,
		&user.BillingCycle,
		&user.TrialStartedAt,
		&user.TrialExpiresAt,
		&user.SubscriptionStartedAt,
		&user.SubscriptionExpiresAt,
		&user.SnapshotsCreatedToday,
		&user.EmailsSummarizedToday,
		&user.TotalSnapshotsCreated,
		&user.TotalEmailsSummarized,
		&user.LastSnapshotDate,
		&user.LastUsageResetDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Package service implements the business logic for snapshot generation,
// usage quotas, sender tracking and retention.
package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/inbox-snapshot/internal/errors"
	"github.com/inbox-snapshot/internal/logging"
	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/types"
)

// UserStore is the persistence surface the quota service needs
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	ResetDailyUsageIfNeeded(ctx context.Context, userID string, today time.Time) error
	IncrementSnapshotUsage(ctx context.Context, userID string, now time.Time, dailyCap, lifetimeCap int) (bool, error)
	IncrementEmailUsage(ctx context.Context, userID string, count int) error
	StartTrial(ctx context.Context, userID string, startedAt, expiresAt time.Time) error
	Upgrade(ctx context.Context, userID string, tier types.SubscriptionTier, cycle types.BillingCycle, startedAt, expiresAt time.Time) error
	Reinitialize(ctx context.Context, userID string) error
}

// TierLimits holds the static caps for one subscription tier.
// A value of -1 means unlimited.
type TierLimits struct {
	DailySnapshots    int
	EmailsPerSnapshot int
	TrialLifetimeCap  int
}

const trialDuration = 7 * 24 * time.Hour

var tierLimits = map[types.SubscriptionTier]TierLimits{
	types.TierFree:    {DailySnapshots: 0, EmailsPerSnapshot: 0, TrialLifetimeCap: -1},
	types.TierTrial:   {DailySnapshots: 1, EmailsPerSnapshot: 10, TrialLifetimeCap: 7},
	types.TierStarter: {DailySnapshots: 3, EmailsPerSnapshot: 25, TrialLifetimeCap: -1},
	types.TierPro:     {DailySnapshots: -1, EmailsPerSnapshot: 50, TrialLifetimeCap: -1},
}

// LimitsForTier returns the static cap table entry for a tier
func LimitsForTier(tier types.SubscriptionTier) TierLimits {
	if limits, ok := tierLimits[tier]; ok {
		return limits
	}
	return tierLimits[types.TierFree]
}

// AccessState is the pure access evaluation for a user at a point in time
type AccessState struct {
	TrialExpired        bool
	SubscriptionExpired bool
	HasActiveAccess     bool
}

// EvaluateAccess computes the access state from the user record and now.
// The free tier never has active access regardless of expiry fields.
func EvaluateAccess(user *models.User, now time.Time) AccessState {
	var state AccessState

	if user.Tier == types.TierTrial {
		state.TrialExpired = user.TrialExpiresAt != nil && !now.Before(*user.TrialExpiresAt)
		state.HasActiveAccess = !state.TrialExpired
		return state
	}

	state.SubscriptionExpired = user.SubscriptionExpiresAt != nil && !now.Before(*user.SubscriptionExpiresAt)
	state.HasActiveAccess = user.Tier != types.TierFree && !state.SubscriptionExpired
	return state
}

// UsageLimits is the read-only projection of a user's quota state
type UsageLimits struct {
	Tier                    types.SubscriptionTier `json:"tier"`
	HasActiveAccess         bool                   `json:"hasActiveAccess"`
	CanCreateSnapshot       bool                   `json:"canCreateSnapshot"`
	SnapshotsCreatedToday   int                    `json:"snapshotsCreatedToday"`
	DailySnapshotLimit      int                    `json:"dailySnapshotLimit"`
	EmailsSummarizedToday   int                    `json:"emailsSummarizedToday"`
	MaxEmailsPerSnapshot    int                    `json:"maxEmailsPerSnapshot"`
	TotalSnapshotsCreated   int                    `json:"totalSnapshotsCreated"`
	TrialSnapshotsRemaining *int                   `json:"trialSnapshotsRemaining,omitempty"`
	TrialExpiresAt          *time.Time             `json:"trialExpiresAt,omitempty"`
	SubscriptionExpiresAt   *time.Time             `json:"subscriptionExpiresAt,omitempty"`
	Reason                  string                 `json:"reason,omitempty"`
}

// QuotaService owns every mutation of the user's quota fields
type QuotaService struct {
	users UserStore
	now   func() time.Time
}

// NewQuotaService creates a new quota service
func NewQuotaService(users UserStore) *QuotaService {
	return &QuotaService{
		users: users,
		now:   time.Now,
	}
}

// today truncates the current time to a calendar date in UTC
func (s *QuotaService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// ensureDailyReset zeroes the daily counters once per calendar day.
// Must run before any limit is evaluated.
func (s *QuotaService) ensureDailyReset(ctx context.Context, user *models.User) (*models.User, error) {
	today := s.today()
	if user.LastUsageResetDate != nil && sameDay(*user.LastUsageResetDate, today) {
		return user, nil
	}

	if err := s.users.ResetDailyUsageIfNeeded(ctx, user.ID, today); err != nil {
		return nil, fmt.Errorf("failed to reset daily usage: %w", err)
	}

	refreshed, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user after daily reset: %w", err)
	}
	return refreshed, nil
}

// denialReason returns the quota error preventing snapshot creation, or nil.
// The reasons are evaluated in a fixed priority order so that the most
// actionable message reaches the user.
func denialReason(user *models.User, now time.Time) *apperrors.CategorizedError {
	state := EvaluateAccess(user, now)
	limits := LimitsForTier(user.Tier)

	if state.TrialExpired {
		return apperrors.NewTrialExpiredError()
	}
	if user.Tier != types.TierFree && state.SubscriptionExpired {
		return apperrors.NewSubscriptionExpiredError()
	}
	if !state.HasActiveAccess {
		return apperrors.NewNoActiveAccessError()
	}
	if user.Tier == types.TierTrial && limits.TrialLifetimeCap >= 0 && user.TotalSnapshotsCreated >= limits.TrialLifetimeCap {
		return apperrors.NewTrialCapError(limits.TrialLifetimeCap)
	}
	if limits.DailySnapshots >= 0 && user.SnapshotsCreatedToday >= limits.DailySnapshots {
		return apperrors.NewDailyLimitError(limits.DailySnapshots)
	}
	return nil
}

// CheckUsageLimits runs the daily reset and returns the quota projection
func (s *QuotaService) CheckUsageLimits(ctx context.Context, userID string) (*UsageLimits, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, err = s.ensureDailyReset(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now()
	state := EvaluateAccess(user, now)
	limits := LimitsForTier(user.Tier)

	usage := &UsageLimits{
		Tier:                  user.Tier,
		HasActiveAccess:       state.HasActiveAccess,
		SnapshotsCreatedToday: user.SnapshotsCreatedToday,
		DailySnapshotLimit:    limits.DailySnapshots,
		EmailsSummarizedToday: user.EmailsSummarizedToday,
		MaxEmailsPerSnapshot:  limits.EmailsPerSnapshot,
		TotalSnapshotsCreated: user.TotalSnapshotsCreated,
		TrialExpiresAt:        user.TrialExpiresAt,
		SubscriptionExpiresAt: user.SubscriptionExpiresAt,
	}

	if user.Tier == types.TierTrial && limits.TrialLifetimeCap >= 0 {
		remaining := limits.TrialLifetimeCap - user.TotalSnapshotsCreated
		if remaining < 0 {
			remaining = 0
		}
		usage.TrialSnapshotsRemaining = &remaining
	}

	if reason := denialReason(user, now); reason != nil {
		usage.Reason = reason.Code
	} else {
		usage.CanCreateSnapshot = true
	}
	return usage, nil
}

// ReserveSnapshotSlot re-validates the snapshot permission and atomically
// consumes one daily and one lifetime slot. The consumed slot is not given
// back if the snapshot later fails.
func (s *QuotaService) ReserveSnapshotSlot(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, err = s.ensureDailyReset(ctx, user)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if reason := denialReason(user, now); reason != nil {
		return nil, reason
	}

	limits := LimitsForTier(user.Tier)
	trialCap := -1
	if user.Tier == types.TierTrial {
		trialCap = limits.TrialLifetimeCap
	}

	ok, err := s.users.IncrementSnapshotUsage(ctx, userID, now, limits.DailySnapshots, trialCap)
	if err != nil {
		return nil, fmt.Errorf("failed to consume snapshot slot: %w", err)
	}
	if !ok {
		// A concurrent attempt won the conditional update.
		logging.FromContext(ctx).WithField("user_id", userID).Warn("snapshot slot lost to concurrent request")
		return nil, apperrors.NewDailyLimitError(limits.DailySnapshots)
	}

	user.SnapshotsCreatedToday++
	user.TotalSnapshotsCreated++
	user.LastSnapshotDate = &now
	return user, nil
}

// RecordEmailsProcessed increments the daily and lifetime email counters.
// Call only after the emails were actually summarized, never speculatively.
func (s *QuotaService) RecordEmailsProcessed(ctx context.Context, userID string, count int) error {
	if count <= 0 {
		return nil
	}
	if err := s.users.IncrementEmailUsage(ctx, userID, count); err != nil {
		return fmt.Errorf("failed to record processed emails: %w", err)
	}
	return nil
}

// StartTrial moves the user onto the trial tier and zeroes every counter.
// It does not guard against re-starting an existing trial.
func (s *QuotaService) StartTrial(ctx context.Context, userID string) (*models.User, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(trialDuration)
	if err := s.users.StartTrial(ctx, userID, now, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to start trial: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"user_id":    userID,
		"expires_at": expiresAt,
	}).Info("trial started")

	return s.users.GetByID(ctx, userID)
}

// Upgrade moves the user onto a paid tier with the given billing cycle
func (s *QuotaService) Upgrade(ctx context.Context, userID string, tier types.SubscriptionTier, cycle types.BillingCycle) (*models.User, error) {
	if tier != types.TierStarter && tier != types.TierPro {
		return nil, apperrors.NewInvalidParameterError("tier", fmt.Sprintf("cannot upgrade to '%s'", tier))
	}
	if !types.ValidCycle(cycle) {
		return nil, apperrors.NewInvalidParameterError("billingCycle", fmt.Sprintf("unknown billing cycle '%s'", cycle))
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	var expiresAt time.Time
	if cycle == types.CycleYearly {
		expiresAt = now.AddDate(1, 0, 0)
	} else {
		expiresAt = now.AddDate(0, 1, 0)
	}

	if err := s.users.Upgrade(ctx, userID, tier, cycle, now, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to upgrade user: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"user_id": userID,
		"tier":    tier,
		"cycle":   cycle,
	}).Info("subscription upgraded")

	return s.users.GetByID(ctx, userID)
}

// Reinitialize resets the user to a fresh free-tier state
func (s *QuotaService) Reinitialize(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Reinitialize(ctx, userID); err != nil {
		return fmt.Errorf("failed to reinitialize user: %w", err)
	}
	return nil
}

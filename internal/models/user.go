// Package models provides data models for the inbox snapshot system.
package models

import (
	"time"

	"github.com/inbox-snapshot/internal/types"
)

// User represents a subscription subject with its usage counters.
//
// Daily counters are only valid for the current calendar day; any quota
// evaluation must run the daily reset transition before reading them.
// All quota fields are mutated exclusively through the quota service.
type User struct {
	ID                    string                 `json:"id" db:"id"`
	Email                 string                 `json:"email" db:"email"`
	Tier                  types.SubscriptionTier `json:"tier" db:"tier"`
	BillingCycle          *types.BillingCycle    `json:"billingCycle,omitempty" db:"billing_cycle"`
	TrialStartedAt        *time.Time             `json:"trialStartedAt,omitempty" db:"trial_started_at"`
	TrialExpiresAt        *time.Time             `json:"trialExpiresAt,omitempty" db:"trial_expires_at"`
	SubscriptionStartedAt *time.Time             `json:"subscriptionStartedAt,omitempty" db:"subscription_started_at"`
	SubscriptionExpiresAt *time.Time             `json:"subscriptionExpiresAt,omitempty" db:"subscription_expires_at"`
	SnapshotsCreatedToday int                    `json:"snapshotsCreatedToday" db:"snapshots_created_today"`
	EmailsSummarizedToday int                    `json:"emailsSummarizedToday" db:"emails_summarized_today"`
	TotalSnapshotsCreated int                    `json:"totalSnapshotsCreated" db:"total_snapshots_created"`
	TotalEmailsSummarized int                    `json:"totalEmailsSummarized" db:"total_emails_summarized"`
	LastSnapshotDate      *time.Time             `json:"lastSnapshotDate,omitempty" db:"last_snapshot_date"`
	LastUsageResetDate    *time.Time             `json:"lastUsageResetDate,omitempty" db:"last_usage_reset_date"`
	CreatedAt             time.Time              `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time              `json:"updatedAt" db:"updated_at"`
}

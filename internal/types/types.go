// Package types provides common type definitions for the inbox snapshot system.
package types

// SubscriptionTier represents the subscription tier level
type SubscriptionTier string

const (
	// TierFree represents a user with no active access
	TierFree SubscriptionTier = "free"
	// TierTrial represents the time-limited free trial
	TierTrial SubscriptionTier = "trial"
	// TierStarter represents the entry paid tier
	TierStarter SubscriptionTier = "starter"
	// TierPro represents the full paid tier
	TierPro SubscriptionTier = "pro"
)

// BillingCycle represents the subscription billing cycle
type BillingCycle string

const (
	// CycleMonthly renews every month
	CycleMonthly BillingCycle = "monthly"
	// CycleYearly renews every year
	CycleYearly BillingCycle = "yearly"
)

// PriorityLabel represents the categorical urgency of a snapshot item
type PriorityLabel string

const (
	// PriorityUrgent is assigned for scores >= 0.85
	PriorityUrgent PriorityLabel = "urgent"
	// PriorityHigh is assigned for scores in [0.70, 0.85)
	PriorityHigh PriorityLabel = "high"
	// PriorityMedium is assigned for scores in [0.40, 0.70)
	PriorityMedium PriorityLabel = "medium"
	// PriorityLow is assigned for scores < 0.40
	PriorityLow PriorityLabel = "low"
)

// InteractionType represents a user action on a snapshot item
type InteractionType string

const (
	// InteractionMarkIgnored marks an item as ignored on the snapshot
	InteractionMarkIgnored InteractionType = "mark_ignored"
	// InteractionRemoveInbox removes the original message from the source inbox
	InteractionRemoveInbox InteractionType = "remove_inbox"
	// InteractionOpenEmail opens the original message via its deep link
	InteractionOpenEmail InteractionType = "open_email"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ValidTier reports whether the tier is one of the known subscription tiers
func ValidTier(tier SubscriptionTier) bool {
	switch tier {
	case TierFree, TierTrial, TierStarter, TierPro:
		return true
	default:
		return false
	}
}

// ValidCycle reports whether the cycle is a known billing cycle
func ValidCycle(cycle BillingCycle) bool {
	return cycle == CycleMonthly || cycle == CycleYearly
}

// ValidInteraction reports whether the action is a known interaction type
func ValidInteraction(action InteractionType) bool {
	switch action {
	case InteractionMarkIgnored, InteractionRemoveInbox, InteractionOpenEmail:
		return true
	default:
		return false
	}
}

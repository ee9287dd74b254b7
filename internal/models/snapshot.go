package models

import (
	"time"

	"github.com/inbox-snapshot/internal/types"
)

// Snapshot represents a bounded, time-expiring collection of summarized
// unread messages captured at one point in time for one user.
type Snapshot struct {
	ID                 string    `json:"id" db:"id"`
	UserID             string    `json:"userId" db:"user_id"`
	SnapshotDate       time.Time `json:"snapshotDate" db:"snapshot_date"`
	TotalItems         int       `json:"totalItems" db:"total_items"`
	RetentionExpiresAt time.Time `json:"retentionExpiresAt" db:"retention_expires_at"`
	ScopeType          string    `json:"scopeType" db:"scope_type"`
	ScopeValue         string    `json:"scopeValue" db:"scope_value"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
}

// SnapshotItem represents one summarized message within a snapshot.
// Summary is the only retained content; the full body is never persisted.
// IgnoredOnSnapshot and RemovedFromInbox are the only fields mutable after
// creation.
type SnapshotItem struct {
	ID                string              `json:"id" db:"id"`
	SnapshotID        string              `json:"snapshotId" db:"snapshot_id"`
	SenderID          string              `json:"senderId" db:"sender_id"`
	Provider          string              `json:"provider" db:"provider"`
	ProviderMessageID string              `json:"providerMessageId" db:"provider_message_id"`
	Subject           string              `json:"subject" db:"subject"`
	MessageDate       time.Time           `json:"messageDate" db:"message_date"`
	Summary           string              `json:"summary" db:"summary"`
	Snippet           string              `json:"snippet,omitempty" db:"snippet"`
	IgnoredOnSnapshot bool                `json:"ignoredOnSnapshot" db:"ignored_on_snapshot"`
	RemovedFromInbox  bool                `json:"removedFromInbox" db:"removed_from_inbox"`
	OpenLink          string              `json:"openLink,omitempty" db:"open_link"`
	Attachments       []AttachmentMeta    `json:"attachments,omitempty" db:"attachments"`
	Categories        []string            `json:"categories,omitempty" db:"categories"`
	PriorityScore     float64             `json:"priorityScore" db:"priority_score"`
	PriorityLabel     types.PriorityLabel `json:"priorityLabel" db:"priority_label"`
	CreatedAt         time.Time           `json:"createdAt" db:"created_at"`
}

// AttachmentMeta describes an attachment without its bytes.
type AttachmentMeta struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

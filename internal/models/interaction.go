package models

import (
	"time"

	"github.com/inbox-snapshot/internal/types"
)

// UserInteraction is one append-only analytics record of a user action on a
// snapshot item. Rows are retained independently of snapshot retention, so a
// referenced item id may no longer resolve; readers must tolerate that.
type UserInteraction struct {
	ID             string                `json:"id" db:"id"`
	UserID         string                `json:"userId" db:"user_id"`
	SnapshotItemID string                `json:"snapshotItemId" db:"snapshot_item_id"`
	Action         types.InteractionType `json:"action" db:"action"`
	CreatedAt      time.Time             `json:"createdAt" db:"created_at"`
}

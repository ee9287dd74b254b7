// Package mailbox defines the mailbox provider boundary: fetching unread
// message records for a user. Implementations talk to the actual mail
// provider; the snapshot pipeline only sees the Message type below.
package mailbox

import (
	"context"
	"time"

	"github.com/inbox-snapshot/internal/models"
	"github.com/inbox-snapshot/internal/priority"
)

// Message is one unread message record as returned by a provider. Body holds
// the plain-text content handed to the summarizer; it is never persisted.
type Message struct {
	ID           string
	ThreadID     string
	Subject      string
	SenderName   string
	SenderEmail  string
	Date         time.Time
	Labels       []string
	SizeEstimate int
	Headers      priority.HeaderHints
	Body         string
	Snippet      string
	OpenLink     string
	Attachments  []models.AttachmentMeta
}

// Provider fetches unread messages for a user.
//
// FetchUnreadMessages may return fewer than maxCount messages, or none; an
// empty mailbox is not an error. Errors indicate transport or auth failure.
type Provider interface {
	Name() string
	FetchUnreadMessages(ctx context.Context, user *models.User, maxCount int) ([]Message, error)
}

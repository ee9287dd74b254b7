package models

import "time"

// Sender represents one known message sender for one user.
// Exactly one row exists per (UserID, Email) pair; EmailCount tracks how
// many messages from that address have been processed.
type Sender struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"userId" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Domain     string    `json:"domain" db:"domain"`
	EmailCount int       `json:"emailCount" db:"email_count"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

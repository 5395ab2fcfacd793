package domain

import "time"

// Notification is an alert addressed to one recipient.
type Notification struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `json:"type,omitempty"`
	RelatedID   *string   `json:"related_id,omitempty"`
	RelatedType *string   `json:"related_type,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

package domain

import "time"

// Comment is an immutable entry in a ticket's thread.
type Comment struct {
	ID       string
	TicketID string
	UserID   string
	UserName string
	Content  string
	// Seq is the store's arrival order; it breaks CreatedAt ties.
	Seq       int64
	CreatedAt time.Time
}

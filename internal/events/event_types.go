package events

import (
	"time"

	"github.com/collipulli/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventTicketDeleted EventType = "ticket_deleted"
	EventCommentAdded  EventType = "comment_added"
	EventUserCreated   EventType = "user_created"
	EventUserUpdated   EventType = "user_updated"
	EventUserDeleted   EventType = "user_deleted"
	// EventSessionRevoked is published on sign-out so open streams held by
	// that token can end.
	EventSessionRevoked EventType = "session_revoked"
)

// AllTypes lists every event type the services publish.
var AllTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketDeleted,
	EventCommentAdded,
	EventUserCreated,
	EventUserUpdated,
	EventUserDeleted,
	EventSessionRevoked,
}

// IsTicketEvent reports whether the event changes ticket state.
func (t EventType) IsTicketEvent() bool {
	return t == EventTicketCreated || t == EventTicketUpdated || t == EventTicketDeleted
}

// IsUserEvent reports whether the event changes a profile.
func (t EventType) IsUserEvent() bool {
	return t == EventUserCreated || t == EventUserUpdated || t == EventUserDeleted
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
//
// OwnerID is the ticket creator for ticket and comment events and the
// profile owner for user events. Origin identifies the publishing
// instance so the redis bridge can drop its own echoes.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	TokenID   string    `json:"token_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
	Origin    string    `json:"origin,omitempty"`
	// Remote is set on events relayed from another instance.
	Remote bool `json:"-"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldStatus   domain.TicketStatus   `json:"old_status"`
	NewStatus   domain.TicketStatus   `json:"new_status"`
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}

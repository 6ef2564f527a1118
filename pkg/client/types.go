// Package client is the Go SDK for the helpdesk service. It holds the
// session resolver and the live, role-scoped views a front end renders,
// and talks to the service either over HTTP or in process.
package client

import (
	"time"

	"github.com/collipulli/helpdesk/internal/domain"
)

type (
	User           = domain.User
	Ticket         = domain.Ticket
	Comment        = domain.Comment
	Role           = domain.Role
	TicketStatus   = domain.TicketStatus
	TicketPriority = domain.TicketPriority
	TicketCategory = domain.TicketCategory
)

// Snapshot is one delivery of a live query: the full current result, or
// the error the backend reported instead.
type Snapshot[T any] struct {
	Data T
	Err  error
}

// Credentials identify a signed-in principal to the backend.
type Credentials struct {
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
}

// TicketQuery selects a ticket list. An empty Status means every status;
// a zero Limit means no cap. The creator scope is applied by the service.
type TicketQuery struct {
	Status TicketStatus
	Limit  int
}

func (q TicketQuery) statusPtr() *TicketStatus {
	if q.Status == "" {
		return nil
	}
	status := q.Status
	return &status
}

// SignUpForm is the registration form.
type SignUpForm struct {
	Name     string
	Email    string
	Password string
	Sector   string
}

// TicketDraft is the create-ticket form.
type TicketDraft struct {
	Title       string
	Description string
	Category    TicketCategory
	Location    string
}

// TicketChange carries the admin-editable ticket fields. Nil fields are
// left unchanged.
type TicketChange struct {
	Status   *TicketStatus
	Priority *TicketPriority
}

// ProfileDraft is the edit-profile form.
type ProfileDraft struct {
	Name   string
	Sector string
}

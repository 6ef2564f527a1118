package client

import (
	"context"
	"strings"

	"github.com/collipulli/helpdesk/internal/domain"
)

// RecentTicketsLimit caps the home screen's recent list.
const RecentTicketsLimit = 10

// Client bundles the identity front, the session resolver and the views
// built on them.
type Client struct {
	backend Backend
	loop    *Loop

	Auth    *Auth
	Session *Session

	createGuard  Guard
	profileGuard Guard
}

// New builds a client over backend.
func New(backend Backend) *Client {
	loop := NewLoop()
	auth := NewAuth(backend, loop)
	return &Client{
		backend: backend,
		loop:    loop,
		Auth:    auth,
		Session: NewSession(auth, backend, loop),
	}
}

// Flush waits until every callback queued so far has run.
func (c *Client) Flush() {
	c.loop.Flush()
}

// Close releases the session and stops callback delivery. It must not be
// called from a callback.
func (c *Client) Close() {
	c.Session.Close()
	c.loop.Close()
}

// ValidateTicketDraft checks the required create-ticket fields.
func ValidateTicketDraft(draft TicketDraft) error {
	if strings.TrimSpace(draft.Title) == "" ||
		strings.TrimSpace(draft.Description) == "" ||
		strings.TrimSpace(draft.Location) == "" {
		return formError(MsgMissingTicketFields)
	}
	if draft.Category != "" && !draft.Category.Valid() {
		return formError(MsgMissingTicketFields)
	}
	return nil
}

// CreateTicket validates draft locally, then files it. A second call while
// one is in flight returns ErrBusy.
func (c *Client) CreateTicket(ctx context.Context, draft TicketDraft) (*Ticket, error) {
	if err := ValidateTicketDraft(draft); err != nil {
		return nil, err
	}
	if draft.Category == "" {
		draft.Category = domain.TicketCategoryHardware
	}
	creds, _, err := c.Session.principal()
	if err != nil {
		return nil, err
	}
	var ticket *Ticket
	err = c.createGuard.Run(func() error {
		var err error
		ticket, err = c.backend.CreateTicket(ctx, creds, draft)
		return err
	})
	return ticket, err
}

// UpdateProfile validates draft locally, then saves name and sector.
func (c *Client) UpdateProfile(ctx context.Context, draft ProfileDraft) (*User, error) {
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Sector = strings.TrimSpace(draft.Sector)
	if draft.Name == "" || draft.Sector == "" {
		return nil, formError(MsgMissingProfile)
	}
	creds, _, err := c.Session.principal()
	if err != nil {
		return nil, err
	}
	var user *User
	err = c.profileGuard.Run(func() error {
		var err error
		user, err = c.backend.UpdateProfile(ctx, creds, draft)
		return err
	})
	return user, err
}

package client

import "context"

// Release ends a live subscription. Calling it more than once is safe.
type Release func()

// Release makes a Release usable as a Releaser.
func (r Release) Release() {
	if r != nil {
		r()
	}
}

// Backend is the service as the SDK consumes it. Watch calls never block
// on the first result: snapshots arrive on the sink, one at a time and in
// order for a given subscription. No ordering holds across subscriptions.
type Backend interface {
	SignUp(ctx context.Context, form SignUpForm) (*Credentials, error)
	SignIn(ctx context.Context, email, password string) (*Credentials, error)
	SignOut(ctx context.Context, creds *Credentials) error

	// WatchProfile delivers a nil user while the profile record is missing.
	WatchProfile(ctx context.Context, creds *Credentials, sink func(Snapshot[*User])) (Release, error)
	WatchUsers(ctx context.Context, creds *Credentials, sink func(Snapshot[[]User])) (Release, error)
	WatchTickets(ctx context.Context, creds *Credentials, q TicketQuery, sink func(Snapshot[[]Ticket])) (Release, error)
	// WatchTicket delivers a nil ticket once the ticket is gone.
	WatchTicket(ctx context.Context, creds *Credentials, ticketID string, sink func(Snapshot[*Ticket])) (Release, error)
	WatchComments(ctx context.Context, creds *Credentials, ticketID string, sink func(Snapshot[[]Comment])) (Release, error)

	CreateTicket(ctx context.Context, creds *Credentials, draft TicketDraft) (*Ticket, error)
	UpdateTicket(ctx context.Context, creds *Credentials, ticketID string, change TicketChange) (*Ticket, error)
	DeleteTicket(ctx context.Context, creds *Credentials, ticketID string) error
	AddComment(ctx context.Context, creds *Credentials, ticketID, content string) (*Comment, error)
	UpdateProfile(ctx context.Context, creds *Credentials, draft ProfileDraft) (*User, error)
}

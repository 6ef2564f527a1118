package client

import (
	"context"

	"github.com/collipulli/helpdesk/internal/app"
	"github.com/collipulli/helpdesk/internal/auth"
	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/realtime"
	"github.com/collipulli/helpdesk/internal/service"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// LocalBackend calls an assembled service in process. Tokens are
// resolved exactly as the HTTP middleware resolves them, so every policy
// check still applies.
type LocalBackend struct {
	app *app.App
}

// NewLocalBackend wraps a.
func NewLocalBackend(a *app.App) *LocalBackend {
	return &LocalBackend{app: a}
}

func credentialsFor(user *domain.User, token *domain.Token) *Credentials {
	return &Credentials{UserID: user.ID, AccessToken: token.Value, ExpiresAt: token.ExpiresAt}
}

func (b *LocalBackend) principal(ctx context.Context, creds *Credentials) (*auth.Principal, error) {
	if creds == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return b.app.Authenticator.Authenticate(ctx, creds.AccessToken)
}

func (b *LocalBackend) actor(ctx context.Context, creds *Credentials) (*domain.User, error) {
	principal, err := b.principal(ctx, creds)
	if err != nil {
		return nil, err
	}
	return principal.User, nil
}

func (b *LocalBackend) SignUp(ctx context.Context, form SignUpForm) (*Credentials, error) {
	user, token, err := b.app.Auth.SignUp(ctx, service.SignUpInput{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Sector:   form.Sector,
	})
	if err != nil {
		return nil, err
	}
	return credentialsFor(user, token), nil
}

func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	user, token, err := b.app.Auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return credentialsFor(user, token), nil
}

func (b *LocalBackend) SignOut(ctx context.Context, creds *Credentials) error {
	principal, err := b.principal(ctx, creds)
	if err != nil {
		return err
	}
	return b.app.Auth.SignOut(ctx, principal)
}

// adapt converts hub snapshots into typed ones.
func adapt[T any](sink func(Snapshot[T])) realtime.Sink {
	return func(snap realtime.Snapshot) {
		data, _ := snap.Data.(T)
		sink(Snapshot[T]{Data: data, Err: snap.Err})
	}
}

func (b *LocalBackend) WatchProfile(ctx context.Context, creds *Credentials, sink func(Snapshot[*User])) (Release, error) {
	principal, err := b.principal(ctx, creds)
	if err != nil {
		return nil, err
	}
	sub := b.app.Profiles.WatchProfile(principal.UserID, adapt(sink))
	return sub.Close, nil
}

func (b *LocalBackend) WatchUsers(ctx context.Context, creds *Credentials, sink func(Snapshot[[]User])) (Release, error) {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return nil, err
	}
	sub, err := b.app.Profiles.WatchUsers(actor, adapt(sink))
	if err != nil {
		return nil, err
	}
	return sub.Close, nil
}

func (b *LocalBackend) WatchTickets(ctx context.Context, creds *Credentials, q TicketQuery, sink func(Snapshot[[]Ticket])) (Release, error) {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return nil, err
	}
	sub, err := b.app.Tickets.WatchTickets(actor, q.statusPtr(), q.Limit, adapt(sink))
	if err != nil {
		return nil, err
	}
	return sub.Close, nil
}

func (b *LocalBackend) WatchTicket(ctx context.Context, creds *Credentials, ticketID string, sink func(Snapshot[*Ticket])) (Release, error) {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return nil, err
	}
	sub, err := b.app.Tickets.WatchTicket(actor, ticketID, adapt(sink))
	if err != nil {
		return nil, err
	}
	return sub.Close, nil
}

func (b *LocalBackend) WatchComments(ctx context.Context, creds *Credentials, ticketID string, sink func(Snapshot[[]Comment])) (Release, error) {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return nil, err
	}
	sub, err := b.app.Tickets.WatchComments(actor, ticketID, adapt(sink))
	if err != nil {
		return nil, err
	}
	return sub.Close, nil
}

func (b *LocalBackend) CreateTicket(ctx context.Context, creds *Credentials, draft TicketDraft) (*Ticket, error) {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return nil, err
	}
	return b.app.Tickets.CreateTicket(ctx, actor, service.TicketCreateInput{
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		Location:    draft.Location,
	})
}

func (b *LocalBackend) UpdateTicket(ctx context.Context, creds *Credentials, ticketID string, change TicketChange) (*Ticket, error) {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return nil, err
	}
	return b.app.Tickets.UpdateTicket(ctx, actor, ticketID, service.TicketUpdateInput{
		Status:   change.Status,
		Priority: change.Priority,
	})
}

func (b *LocalBackend) DeleteTicket(ctx context.Context, creds *Credentials, ticketID string) error {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return err
	}
	return b.app.Tickets.DeleteTicket(ctx, actor, ticketID)
}

func (b *LocalBackend) AddComment(ctx context.Context, creds *Credentials, ticketID, content string) (*Comment, error) {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return nil, err
	}
	return b.app.Tickets.AddComment(ctx, actor, ticketID, content)
}

func (b *LocalBackend) UpdateProfile(ctx context.Context, creds *Credentials, draft ProfileDraft) (*User, error) {
	actor, err := b.actor(ctx, creds)
	if err != nil {
		return nil, err
	}
	return b.app.Profiles.Update(ctx, actor, service.ProfileUpdateInput{Name: draft.Name, Sector: draft.Sector})
}

var _ Backend = (*LocalBackend)(nil)

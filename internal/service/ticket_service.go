package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/observability"
	"github.com/collipulli/helpdesk/internal/policy"
	"github.com/collipulli/helpdesk/internal/query"
	"github.com/collipulli/helpdesk/internal/realtime"
	"github.com/collipulli/helpdesk/internal/repository"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

const (
	defaultRecentLimit = 10
	bodyPreviewLength  = 80
	maxUpdateAttempts  = 3
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	comments    repository.CommentRepository
	users       repository.UserRepository
	hub         *realtime.Hub
	recentLimit int
	publisher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Hub         *realtime.Hub
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	RecentLimit int
	Now         func() time.Time
}

// TicketCreateInput describes ticket creation payload. Creator identity
// always comes from the session.
type TicketCreateInput struct {
	Title       string
	Description string
	Category    domain.TicketCategory
	Location    string
}

// TicketUpdateInput carries the admin-mutable fields.
type TicketUpdateInput struct {
	Status   *domain.TicketStatus
	Priority *domain.TicketPriority
}

// TicketDetail is a ticket with its comment thread.
type TicketDetail struct {
	Ticket   *domain.Ticket
	Comments []domain.Comment
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	limit := deps.RecentLimit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		comments:    deps.CommentRepo,
		users:       deps.UserRepo,
		hub:         deps.Hub,
		recentLimit: limit,
		publisher:   publisher{dispatcher: deps.Dispatcher, metrics: deps.Metrics, now: deps.Now},
	}
}

// CreateTicket files a ticket as actor. It starts open with medium priority.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := authorize(policy.CanCreateTicket(actor), actor, "profile cannot create tickets"); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	location := strings.TrimSpace(input.Location)
	category := input.Category
	if category == "" {
		category = domain.TicketCategoryHardware
	}

	invalid := map[string]any{}
	if title == "" {
		invalid["title"] = "required"
	}
	if description == "" {
		invalid["description"] = "required"
	}
	if location == "" {
		invalid["location"] = "required"
	}
	if !category.Valid() {
		invalid["category"] = "unknown"
	}
	if len(invalid) > 0 {
		return nil, apperrors.NewValidationError("missing or invalid fields", invalid)
	}

	ticket := &domain.Ticket{
		Title:         title,
		Description:   description,
		Category:      category,
		Priority:      policy.InitialPriority,
		Status:        policy.InitialStatus,
		CreatedBy:     actor.ID,
		CreatedByName: actor.Name,
		Location:      &location,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		OwnerID:  ticket.CreatedBy,
		Actor:    userActor(actor),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// ListTickets returns the tickets actor may see, newest first.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, status *domain.TicketStatus, limit int) ([]domain.Ticket, error) {
	filter, err := s.scope(actor, status, limit)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// RecentTickets is the home-screen list.
func (s *TicketService) RecentTickets(ctx context.Context, actor *domain.User) ([]domain.Ticket, error) {
	return s.ListTickets(ctx, actor, nil, s.recentLimit)
}

// RecentLimit reports the home-screen list size.
func (s *TicketService) RecentLimit() int {
	return s.recentLimit
}

func (s *TicketService) scope(actor *domain.User, status *domain.TicketStatus, limit int) (query.TicketFilter, error) {
	if err := authorize(policy.CanListTickets(actor), actor, "profile cannot list tickets"); err != nil {
		return query.TicketFilter{}, err
	}
	if status != nil && !status.Valid() {
		return query.TicketFilter{}, apperrors.NewValidationError("unknown status", map[string]any{"status": string(*status)})
	}
	if limit < 0 {
		return query.TicketFilter{}, apperrors.NewValidationError("limit must not be negative", nil)
	}
	return policy.ScopeTickets(actor, status, limit), nil
}

// GetTicket returns a ticket and its comments if actor may view it.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*TicketDetail, error) {
	ticket, err := s.visibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{Ticket: ticket, Comments: comments}, nil
}

func (s *TicketService) visibleTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapNotFound("ticket", err)
	}
	if err := authorize(policy.CanViewTicket(actor, ticket), actor, "ticket belongs to another user"); err != nil {
		return nil, err
	}
	return ticket, nil
}

// UpdateTicket changes status and/or priority. Admin only; the role check
// runs before anything is read or written.
func (s *TicketService) UpdateTicket(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if err := authorize(policy.CanManageTickets(actor), actor, "only admins can update tickets"); err != nil {
		return nil, err
	}
	if input.Status == nil && input.Priority == nil {
		return nil, apperrors.NewValidationError("status or priority is required", nil)
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": string(*input.Status)})
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(*input.Priority)})
	}

	for attempt := 1; ; attempt++ {
		current, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, mapNotFound("ticket", err)
		}

		change := repository.TicketStateChange{
			From:     current.Status,
			Status:   input.Status,
			Priority: input.Priority,
		}
		if input.Status != nil {
			if !policy.IsValidTransition(current.Status, *input.Status) {
				return nil, apperrors.NewInvalidTransition(string(current.Status), string(*input.Status))
			}
			if *input.Status == domain.TicketStatusResolved {
				resolvedAt := s.clock()
				change.ResolvedAt = &resolvedAt
			}
		}

		updated, err := s.tickets.UpdateState(ctx, ticketID, change)
		if errors.Is(err, repository.ErrStale) {
			// another admin moved the status; judge the transition again
			if attempt < maxUpdateAttempts {
				continue
			}
			return nil, apperrors.NewConflict("ticket is being updated concurrently", map[string]any{"ticket_id": ticketID})
		}
		if err != nil {
			return nil, mapNotFound("ticket", err)
		}

		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: updated.ID,
			OwnerID:  updated.CreatedBy,
			Actor:    userActor(actor),
			Payload: events.TicketUpdatedPayload{
				OldStatus:   current.Status,
				NewStatus:   updated.Status,
				OldPriority: current.Priority,
				NewPriority: updated.Priority,
			},
		})
		return updated, nil
	}
}

// DeleteTicket removes a ticket and its comments. Admin only.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID string) error {
	if err := authorize(policy.CanManageTickets(actor), actor, "only admins can delete tickets"); err != nil {
		return err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return mapNotFound("ticket", err)
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return mapNotFound("ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		OwnerID:  ticket.CreatedBy,
		Actor:    userActor(actor),
	})
	return nil
}

// AddComment appends to a ticket's thread. Anyone who can view the ticket
// may comment.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", map[string]any{"content": "required"})
	}
	ticket, err := s.visibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		UserID:   actor.ID,
		UserName: actor.Name,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, mapNotFound("ticket", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		OwnerID:  ticket.CreatedBy,
		Actor:    userActor(actor),
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.UserID,
			BodyPreview: preview(comment.Content),
		},
	})
	return comment, nil
}

// Stats aggregates ticket counts. Admin only.
func (s *TicketService) Stats(ctx context.Context, actor *domain.User) (repository.TicketStats, error) {
	if err := authorize(policy.CanManageTickets(actor), actor, "only admins can view statistics"); err != nil {
		return repository.TicketStats{}, err
	}
	stats, err := s.tickets.Stats(ctx)
	if err != nil {
		return repository.TicketStats{}, apperrors.MapError(err)
	}
	return stats, nil
}

// WatchTickets streams the scoped ticket list. Snapshots carry
// []domain.Ticket. The viewer's profile is re-read on every evaluation, so
// a role change re-scopes the stream.
func (s *TicketService) WatchTickets(actor *domain.User, status *domain.TicketStatus, limit int, sink realtime.Sink) (*realtime.Subscription, error) {
	if _, err := s.scope(actor, status, limit); err != nil {
		return nil, err
	}
	viewerID := actor.ID
	var admin atomic.Bool
	admin.Store(actor.IsAdmin())
	return s.hub.Subscribe("tickets",
		func(e events.Event) bool {
			if touchesProfile(e, viewerID) {
				return true
			}
			return e.Type.IsTicketEvent() && (admin.Load() || e.OwnerID == viewerID)
		},
		func(ctx context.Context) (any, error) {
			viewer, err := reloadActor(ctx, s.users, viewerID)
			if err != nil {
				return nil, err
			}
			admin.Store(viewer.IsAdmin())
			filter, err := s.scope(viewer, status, limit)
			if err != nil {
				return nil, err
			}
			tickets, err := s.tickets.ListWithFilter(ctx, filter)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			return tickets, nil
		},
		sink), nil
}

// WatchTicket streams one ticket. A snapshot with nil Data means the
// ticket is gone.
func (s *TicketService) WatchTicket(actor *domain.User, ticketID string, sink realtime.Sink) (*realtime.Subscription, error) {
	if err := authorize(policy.CanListTickets(actor), actor, "profile cannot view tickets"); err != nil {
		return nil, err
	}
	viewerID := actor.ID
	return s.hub.Subscribe("ticket",
		func(e events.Event) bool {
			return touchesProfile(e, viewerID) || (e.Type.IsTicketEvent() && e.TicketID == ticketID)
		},
		func(ctx context.Context) (any, error) {
			viewer, err := reloadActor(ctx, s.users, viewerID)
			if err != nil {
				return nil, err
			}
			ticket, err := s.visibleTicket(ctx, viewer, ticketID)
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return ticket, nil
		},
		sink), nil
}

// WatchComments streams a ticket's comments, oldest first. A deleted
// ticket yields an empty thread.
func (s *TicketService) WatchComments(actor *domain.User, ticketID string, sink realtime.Sink) (*realtime.Subscription, error) {
	if err := authorize(policy.CanListTickets(actor), actor, "profile cannot view tickets"); err != nil {
		return nil, err
	}
	viewerID := actor.ID
	return s.hub.Subscribe("comments",
		func(e events.Event) bool {
			if touchesProfile(e, viewerID) {
				return true
			}
			return e.TicketID == ticketID &&
				(e.Type == events.EventCommentAdded || e.Type == events.EventTicketDeleted)
		},
		func(ctx context.Context) (any, error) {
			viewer, err := reloadActor(ctx, s.users, viewerID)
			if err != nil {
				return nil, err
			}
			ticket, err := s.visibleTicket(ctx, viewer, ticketID)
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				return []domain.Comment{}, nil
			}
			if err != nil {
				return nil, err
			}
			comments, err := s.comments.ListByTicket(ctx, ticket.ID)
			if errors.Is(err, repository.ErrNotFound) {
				return []domain.Comment{}, nil
			}
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			return comments, nil
		},
		sink), nil
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= bodyPreviewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:bodyPreviewLength]) + "…"
}

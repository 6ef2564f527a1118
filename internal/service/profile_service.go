package service

import (
	"context"
	"errors"
	"strings"

	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/observability"
	"github.com/collipulli/helpdesk/internal/policy"
	"github.com/collipulli/helpdesk/internal/realtime"
	"github.com/collipulli/helpdesk/internal/repository"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// ProfileService serves profile reads, edits and the admin user directory.
type ProfileService struct {
	users repository.UserRepository
	hub   *realtime.Hub
	publisher
}

// ProfileDependencies bundles requirements for the profile service.
type ProfileDependencies struct {
	UserRepo   repository.UserRepository
	Hub        *realtime.Hub
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
}

// ProfileUpdateInput carries the owner-editable fields.
type ProfileUpdateInput struct {
	Name   string
	Sector string
}

// NewProfileService constructs the service.
func NewProfileService(deps ProfileDependencies) *ProfileService {
	return &ProfileService{
		users:     deps.UserRepo,
		hub:       deps.Hub,
		publisher: publisher{dispatcher: deps.Dispatcher, metrics: deps.Metrics},
	}
}

// Get returns the profile for userID.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound("profile", err)
	}
	return user, nil
}

// Update edits the actor's own name and sector. Both are required.
func (s *ProfileService) Update(ctx context.Context, actor *domain.User, input ProfileUpdateInput) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewNotFound("profile", nil)
	}
	name := strings.TrimSpace(input.Name)
	sector := strings.TrimSpace(input.Sector)
	if name == "" || sector == "" {
		return nil, apperrors.NewValidationError("name and sector are required", map[string]any{
			"name":   name != "",
			"sector": sector != "",
		})
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, mapNotFound("profile", err)
	}
	user.Name = name
	user.Sector = &sector
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapNotFound("profile", err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserUpdated,
		UserID:  user.ID,
		OwnerID: user.ID,
		Actor:   userActor(actor),
	})
	return user, nil
}

// DeleteByEmail removes a profile out of band. It backs the admin CLI; no
// HTTP route reaches it. Sessions following the profile see it vanish.
func (s *ProfileService) DeleteByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, mapNotFound("user", err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return nil, mapNotFound("user", err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventUserDeleted,
		UserID:  user.ID,
		OwnerID: user.ID,
	})
	return user, nil
}

// ListUsers returns every profile, newest first. Admin only.
func (s *ProfileService) ListUsers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := authorize(policy.CanListUsers(actor), actor, "only admins can list users"); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// WatchProfile streams userID's profile. A snapshot with nil Data means
// the record does not exist.
func (s *ProfileService) WatchProfile(userID string, sink realtime.Sink) *realtime.Subscription {
	return s.hub.Subscribe("profile",
		func(e events.Event) bool { return e.Type.IsUserEvent() && e.UserID == userID },
		func(ctx context.Context) (any, error) {
			user, err := s.users.GetByID(ctx, userID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			return user, nil
		},
		sink)
}

// WatchUsers streams the full user directory. Admin only.
func (s *ProfileService) WatchUsers(actor *domain.User, sink realtime.Sink) (*realtime.Subscription, error) {
	if err := authorize(policy.CanListUsers(actor), actor, "only admins can list users"); err != nil {
		return nil, err
	}
	viewerID := actor.ID
	return s.hub.Subscribe("users",
		func(e events.Event) bool { return e.Type.IsUserEvent() },
		func(ctx context.Context) (any, error) {
			viewer, err := reloadActor(ctx, s.users, viewerID)
			if err != nil {
				return nil, err
			}
			if err := authorize(policy.CanListUsers(viewer), viewer, "only admins can list users"); err != nil {
				return nil, err
			}
			users, err := s.users.List(ctx)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			return users, nil
		},
		sink), nil
}

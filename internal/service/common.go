package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/observability"
	"github.com/collipulli/helpdesk/internal/repository"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// publisher stamps and emits domain events. A nil dispatcher drops them.
type publisher struct {
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	now        func() time.Time
}

func (p publisher) publishEvent(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	p.metrics.EventPublished(string(event.Type))
	_ = p.dispatcher.Publish(ctx, event)
}

func (p publisher) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now().UTC()
}

func userActor(user *domain.User) events.Actor {
	if user == nil {
		return events.Actor{}
	}
	return events.Actor{UserID: user.ID, Role: user.Role}
}

// authorize turns a failed policy check into the right error: no profile
// is unauthorized, anything else is forbidden.
func authorize(allowed bool, actor *domain.User, message string) error {
	if allowed {
		return nil
	}
	if actor == nil {
		return apperrors.NewUnauthorized("profile not found")
	}
	return apperrors.NewForbidden(message)
}

// reloadActor fetches the current profile behind a live query. A deleted
// profile is unauthorized.
func reloadActor(ctx context.Context, users repository.UserRepository, userID string) (*domain.User, error) {
	user, err := users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewUnauthorized("profile not found")
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// touchesProfile reports whether e changes userID's own record, and with it
// what that user may see.
func touchesProfile(e events.Event, userID string) bool {
	return e.Type.IsUserEvent() && e.UserID == userID
}

func mapNotFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, nil)
	}
	return apperrors.MapError(err)
}

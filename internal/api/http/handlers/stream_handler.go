package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/collipulli/helpdesk/internal/api/dto"
	"github.com/collipulli/helpdesk/internal/auth"
	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/realtime"
	"github.com/collipulli/helpdesk/internal/service"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// SSE event names.
const (
	EventSnapshot = "snapshot"
	EventError    = "error"
)

// StreamHandler serves live queries as server-sent events. Each
// connection owns one hub subscription, released on disconnect. A stream
// also ends when its token expires or is signed out.
type StreamHandler struct {
	tickets   *service.TicketService
	profiles  *service.ProfileService
	revoked   auth.RevocationStore
	keepAlive time.Duration
	logger    *zap.Logger

	closeOnce sync.Once
	done      chan struct{}

	mu       sync.Mutex
	sessions map[string]map[chan struct{}]struct{}
}

// NewStreamHandler constructs handler.
func NewStreamHandler(tickets *service.TicketService, profiles *service.ProfileService, revoked auth.RevocationStore, keepAlive time.Duration, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		tickets:   tickets,
		profiles:  profiles,
		revoked:   revoked,
		keepAlive: keepAlive,
		logger:    logger,
		done:      make(chan struct{}),
		sessions:  make(map[string]map[chan struct{}]struct{}),
	}
}

// Attach ends streams whose token is revoked on d, including revocations
// relayed from other instances.
func (h *StreamHandler) Attach(d events.Dispatcher) {
	d.Subscribe(events.EventSessionRevoked, func(_ context.Context, event events.Event) error {
		h.endSession(event.TokenID)
		return nil
	})
}

// track registers a stream under its token. The returned channel closes
// when the token is revoked; release unregisters it.
func (h *StreamHandler) track(tokenID string) (ended chan struct{}, release func()) {
	ended = make(chan struct{})
	h.mu.Lock()
	streams, ok := h.sessions[tokenID]
	if !ok {
		streams = make(map[chan struct{}]struct{})
		h.sessions[tokenID] = streams
	}
	streams[ended] = struct{}{}
	h.mu.Unlock()

	return ended, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if streams, ok := h.sessions[tokenID]; ok {
			delete(streams, ended)
			if len(streams) == 0 {
				delete(h.sessions, tokenID)
			}
		}
	}
}

func (h *StreamHandler) endSession(tokenID string) {
	if tokenID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ended := range h.sessions[tokenID] {
		close(ended)
	}
	delete(h.sessions, tokenID)
}

// Open reports the number of streams currently tied to a token.
func (h *StreamHandler) Open() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, streams := range h.sessions {
		n += len(streams)
	}
	return n
}

// Close ends every open stream so the server can shut down.
func (h *StreamHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Me GET /v1/stream/me. A null snapshot means the profile does not exist.
func (h *StreamHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return h.serve(c, func(sink realtime.Sink) (*realtime.Subscription, error) {
		return h.profiles.WatchProfile(principal.UserID, sink), nil
	}, renderUser)
}

// Users GET /v1/stream/users.
func (h *StreamHandler) Users(c *fiber.Ctx) error {
	user := actor(c)
	return h.serve(c, func(sink realtime.Sink) (*realtime.Subscription, error) {
		return h.profiles.WatchUsers(user, sink)
	}, renderUsers)
}

// Tickets GET /v1/stream/tickets?status=&limit=.
func (h *StreamHandler) Tickets(c *fiber.Ctx) error {
	status, limit, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	user := actor(c)
	return h.serve(c, func(sink realtime.Sink) (*realtime.Subscription, error) {
		return h.tickets.WatchTickets(user, status, limit, sink)
	}, renderTickets)
}

// Ticket GET /v1/stream/tickets/:id. A null snapshot means the ticket is gone.
func (h *StreamHandler) Ticket(c *fiber.Ctx) error {
	user := actor(c)
	id := c.Params("id")
	return h.serve(c, func(sink realtime.Sink) (*realtime.Subscription, error) {
		return h.tickets.WatchTicket(user, id, sink)
	}, renderTicket)
}

// Comments GET /v1/stream/tickets/:id/comments.
func (h *StreamHandler) Comments(c *fiber.Ctx) error {
	user := actor(c)
	id := c.Params("id")
	return h.serve(c, func(sink realtime.Sink) (*realtime.Subscription, error) {
		return h.tickets.WatchComments(user, id, sink)
	}, renderComments)
}

type renderFunc func(any) any

// serve opens the subscription while the request is still in hand, so
// authorization failures come back as ordinary JSON errors. After that
// the fiber context must not be touched: the stream writer outlives it.
func (h *StreamHandler) serve(c *fiber.Ctx, open func(realtime.Sink) (*realtime.Subscription, error), render renderFunc) error {
	mailbox := make(chan realtime.Snapshot, 1)
	sink := func(snap realtime.Snapshot) {
		// latest wins: a slow client only ever sees the newest state
		for {
			select {
			case mailbox <- snap:
				return
			default:
			}
			select {
			case <-mailbox:
			default:
			}
		}
	}

	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ended, untrack := h.track(principal.TokenID)
	// a sign-out between authentication and tracking would otherwise be missed
	if h.revoked != nil {
		revoked, err := h.revoked.IsRevoked(c.UserContext(), principal.TokenID)
		if err != nil {
			untrack()
			return apperrors.MapError(err)
		}
		if revoked {
			untrack()
			return apperrors.NewUnauthorized("token revoked")
		}
	}

	sub, err := open(sink)
	if err != nil {
		untrack()
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	keepAlive := h.keepAlive
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	expiresAt := principal.ExpiresAt
	done := h.done
	logger := h.logger

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer untrack()
		defer sub.Close()
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		var expired <-chan time.Time
		if !expiresAt.IsZero() {
			expiry := time.NewTimer(time.Until(expiresAt))
			defer expiry.Stop()
			expired = expiry.C
		}

		if err := writeComment(w, "connected"); err != nil {
			return
		}
		for {
			select {
			case <-done:
				return
			case <-ended:
				_ = writeSnapshot(w, realtime.Snapshot{Err: apperrors.NewUnauthorized("session ended")}, render)
				return
			case <-expired:
				_ = writeSnapshot(w, realtime.Snapshot{Err: apperrors.NewUnauthorized("session expired")}, render)
				return
			case snap := <-mailbox:
				if err := writeSnapshot(w, snap, render); err != nil {
					logger.Debug("stream closed", zap.Error(err))
					return
				}
			case <-ticker.C:
				if err := writeComment(w, "keepalive"); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeComment(w *bufio.Writer, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	return w.Flush()
}

func writeSnapshot(w *bufio.Writer, snap realtime.Snapshot, render renderFunc) error {
	event := EventSnapshot
	var body any
	if snap.Err != nil {
		domainErr := apperrors.ToDomainError(snap.Err)
		event = EventError
		body = fiber.Map{"error": fiber.Map{"code": domainErr.Code, "message": domainErr.Message}}
	} else {
		body = fiber.Map{"data": render(snap.Data)}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", snap.Seq, event, payload); err != nil {
		return err
	}
	return w.Flush()
}

func renderUser(data any) any {
	user, ok := data.(*domain.User)
	if !ok || user == nil {
		return nil
	}
	return dto.NewUserResponse(user)
}

func renderUsers(data any) any {
	users, _ := data.([]domain.User)
	return dto.NewUserList(users)
}

func renderTickets(data any) any {
	tickets, _ := data.([]domain.Ticket)
	return dto.NewTicketList(tickets)
}

func renderTicket(data any) any {
	ticket, ok := data.(*domain.Ticket)
	if !ok || ticket == nil {
		return nil
	}
	return dto.NewTicketResponse(ticket)
}

func renderComments(data any) any {
	comments, _ := data.([]domain.Comment)
	return dto.NewCommentList(comments)
}

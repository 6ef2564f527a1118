package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/collipulli/helpdesk/internal/api/dto"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// DefaultTimeout bounds a REST call when ctx carries no deadline.
const DefaultTimeout = 15 * time.Second

// ErrStreamEnded is delivered when the server ends a live stream that
// was not released.
var ErrStreamEnded = errors.New("client: live stream ended")

// HTTPBackend talks to the service over its REST and SSE endpoints.
type HTTPBackend struct {
	baseURL string
	timeout time.Duration
	streams *http.Client
}

// NewHTTPBackend targets the service at baseURL, e.g.
// "http://localhost:8080".
func NewHTTPBackend(baseURL string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		// streams live until released; no client timeout
		streams: &http.Client{},
	}
}

type errorEnvelope struct {
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(status int, raw []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return apperrors.NewDomainError(apperrors.CodeInternal, fmt.Sprintf("unexpected status %d", status), status, nil)
	}
	return apperrors.NewDomainError(env.Error.Code, env.Error.Message, status, env.Error.Details)
}

// call performs one REST request. out receives the "data" member of the
// response envelope.
func (b *HTTPBackend) call(ctx context.Context, method, path string, creds *Credentials, body, out any) error {
	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(b.baseURL + path)
	if creds != nil {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+creds.AccessToken)
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			fiber.ReleaseAgent(agent)
			return err
		}
		req.Header.SetContentType(fiber.MIMEApplicationJSON)
		req.SetBody(raw)
	}
	timeout := b.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	agent.Timeout(timeout)

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}
	status, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if status >= http.StatusBadRequest {
		return decodeError(status, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}

func authCredentials(resp dto.AuthResponse) *Credentials {
	return &Credentials{
		UserID:      resp.User.ID,
		AccessToken: resp.Token.AccessToken,
		ExpiresAt:   resp.Token.ExpiresAt,
	}
}

func (b *HTTPBackend) SignUp(ctx context.Context, form SignUpForm) (*Credentials, error) {
	var resp dto.AuthResponse
	err := b.call(ctx, http.MethodPost, "/v1/auth/sign-up", nil, dto.SignUpRequest{
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Sector:   form.Sector,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return authCredentials(resp), nil
}

func (b *HTTPBackend) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	var resp dto.AuthResponse
	err := b.call(ctx, http.MethodPost, "/v1/auth/sign-in", nil, dto.SignInRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return authCredentials(resp), nil
}

func (b *HTTPBackend) SignOut(ctx context.Context, creds *Credentials) error {
	return b.call(ctx, http.MethodPost, "/v1/auth/sign-out", creds, nil, nil)
}

func ticketPath(ticketID string) string {
	return "/v1/tickets/" + url.PathEscape(ticketID)
}

func (b *HTTPBackend) CreateTicket(ctx context.Context, creds *Credentials, draft TicketDraft) (*Ticket, error) {
	var resp dto.TicketResponse
	err := b.call(ctx, http.MethodPost, "/v1/tickets", creds, dto.CreateTicketRequest{
		Title:       draft.Title,
		Description: draft.Description,
		Category:    draft.Category,
		Location:    draft.Location,
	}, &resp)
	if err != nil {
		return nil, err
	}
	ticket := resp.Domain()
	return &ticket, nil
}

func (b *HTTPBackend) UpdateTicket(ctx context.Context, creds *Credentials, ticketID string, change TicketChange) (*Ticket, error) {
	var resp dto.TicketResponse
	err := b.call(ctx, http.MethodPatch, ticketPath(ticketID), creds, dto.UpdateTicketRequest{
		Status:   change.Status,
		Priority: change.Priority,
	}, &resp)
	if err != nil {
		return nil, err
	}
	ticket := resp.Domain()
	return &ticket, nil
}

func (b *HTTPBackend) DeleteTicket(ctx context.Context, creds *Credentials, ticketID string) error {
	return b.call(ctx, http.MethodDelete, ticketPath(ticketID), creds, nil, nil)
}

func (b *HTTPBackend) AddComment(ctx context.Context, creds *Credentials, ticketID, content string) (*Comment, error) {
	var resp dto.CommentResponse
	err := b.call(ctx, http.MethodPost, ticketPath(ticketID)+"/comments", creds, dto.CreateCommentRequest{Content: content}, &resp)
	if err != nil {
		return nil, err
	}
	comment := resp.Domain()
	return &comment, nil
}

func (b *HTTPBackend) UpdateProfile(ctx context.Context, creds *Credentials, draft ProfileDraft) (*User, error) {
	var resp dto.UserResponse
	err := b.call(ctx, http.MethodPatch, "/v1/me", creds, dto.UpdateProfileRequest{Name: draft.Name, Sector: draft.Sector}, &resp)
	if err != nil {
		return nil, err
	}
	user := resp.Domain()
	return &user, nil
}

func (b *HTTPBackend) WatchProfile(_ context.Context, creds *Credentials, sink func(Snapshot[*User])) (Release, error) {
	return watchStream(b, "/v1/stream/me", creds, func(w *dto.UserResponse) *User {
		if w == nil {
			return nil
		}
		user := w.Domain()
		return &user
	}, sink)
}

func (b *HTTPBackend) WatchUsers(_ context.Context, creds *Credentials, sink func(Snapshot[[]User])) (Release, error) {
	return watchStream(b, "/v1/stream/users", creds, dto.UsersFromWire, sink)
}

func (b *HTTPBackend) WatchTickets(_ context.Context, creds *Credentials, q TicketQuery, sink func(Snapshot[[]Ticket])) (Release, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/v1/stream/tickets"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return watchStream(b, path, creds, dto.TicketsFromWire, sink)
}

func (b *HTTPBackend) WatchTicket(_ context.Context, creds *Credentials, ticketID string, sink func(Snapshot[*Ticket])) (Release, error) {
	return watchStream(b, "/v1/stream/tickets/"+url.PathEscape(ticketID), creds, func(w *dto.TicketResponse) *Ticket {
		if w == nil {
			return nil
		}
		ticket := w.Domain()
		return &ticket
	}, sink)
}

func (b *HTTPBackend) WatchComments(_ context.Context, creds *Credentials, ticketID string, sink func(Snapshot[[]Comment])) (Release, error) {
	return watchStream(b, "/v1/stream/tickets/"+url.PathEscape(ticketID)+"/comments", creds, dto.CommentsFromWire, sink)
}

// watchStream opens an SSE stream in the background and decodes each
// snapshot's data as W. Connection failures and a server-side end of
// stream arrive on sink as errors; nothing is retried.
func watchStream[W, T any](b *HTTPBackend, path string, creds *Credentials, convert func(W) T, sink func(Snapshot[T])) (Release, error) {
	if creds == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+creds.AccessToken)

	deliver := func(snap Snapshot[T]) {
		if ctx.Err() == nil {
			sink(snap)
		}
	}

	go func() {
		resp, err := b.streams.Do(req)
		if err != nil {
			deliver(Snapshot[T]{Err: err})
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			deliver(Snapshot[T]{Err: decodeError(resp.StatusCode, raw)})
			return
		}

		events := newEventReader(resp.Body)
		for events.Next() {
			event := events.Event()
			switch event.Type {
			case "snapshot":
				var env struct {
					Data W `json:"data"`
				}
				if err := json.Unmarshal([]byte(event.Data), &env); err != nil {
					deliver(Snapshot[T]{Err: err})
					continue
				}
				deliver(Snapshot[T]{Data: convert(env.Data)})
			case "error":
				// the stream itself is healthy; the query failed
				deliver(Snapshot[T]{Err: decodeError(0, []byte(event.Data))})
			}
		}
		if err := events.Err(); err != nil {
			deliver(Snapshot[T]{Err: err})
			return
		}
		deliver(Snapshot[T]{Err: ErrStreamEnded})
	}()

	return Release(cancel), nil
}

var _ Backend = (*HTTPBackend)(nil)

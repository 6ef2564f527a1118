// Package memory provides in-process implementations of the repositories,
// used when no Postgres DSN is configured and in tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/query"
	"github.com/collipulli/helpdesk/internal/repository"
)

// Store holds users, tickets and comments behind one lock.
type Store struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	tickets  map[string]domain.Ticket
	comments map[string][]domain.Comment
	seq      int64
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[string]domain.User),
		tickets:  make(map[string]domain.Ticket),
		comments: make(map[string][]domain.Comment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Users() repository.UserRepository       { return userStore{s} }
func (s *Store) Tickets() repository.TicketRepository   { return ticketStore{s} }
func (s *Store) Comments() repository.CommentRepository { return commentStore{s} }

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, existing := range u.s.users {
		if existing.Email == email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = email
	user.CreatedAt = u.s.now()
	user.UpdatedAt = user.CreatedAt
	u.s.users[user.ID] = cloneUser(*user)
	return nil
}

func (u userStore) Update(_ context.Context, user *domain.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	existing, ok := u.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Name = user.Name
	existing.PasswordHash = user.PasswordHash
	existing.Role = user.Role
	existing.Sector = user.Sector
	existing.UpdatedAt = u.s.now()
	user.UpdatedAt = existing.UpdatedAt
	u.s.users[user.ID] = cloneUser(existing)
	return nil
}

func (u userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := cloneUser(user)
	return &clone, nil
}

func (u userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, user := range u.s.users {
		if user.Email == email {
			clone := cloneUser(user)
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (u userStore) List(_ context.Context) ([]domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	result := make([]domain.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		result = append(result, cloneUser(user))
	}
	sortUsersNewestFirst(result)
	return result, nil
}

func (u userStore) Delete(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if _, ok := u.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(u.s.users, id)
	return nil
}

type ticketStore struct{ s *Store }

func (t ticketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.CreatedAt = t.s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	t.s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (t ticketStore) UpdateState(_ context.Context, id string, change repository.TicketStateChange) (*domain.Ticket, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	existing, ok := t.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if change.Status != nil {
		if existing.Status != change.From {
			return nil, repository.ErrStale
		}
		existing.Status = *change.Status
		if change.ResolvedAt != nil {
			resolvedAt := *change.ResolvedAt
			existing.ResolvedAt = &resolvedAt
		}
	}
	if change.Priority != nil {
		existing.Priority = *change.Priority
	}
	existing.UpdatedAt = t.s.now()
	t.s.tickets[id] = cloneTicket(existing)
	clone := cloneTicket(existing)
	return &clone, nil
}

func (t ticketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	ticket, ok := t.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := cloneTicket(ticket)
	return &clone, nil
}

func (t ticketStore) Delete(_ context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.s.tickets, id)
	delete(t.s.comments, id)
	return nil
}

func (t ticketStore) ListWithFilter(_ context.Context, filter query.TicketFilter) ([]domain.Ticket, error) {
	t.s.mu.RLock()
	all := make([]domain.Ticket, 0, len(t.s.tickets))
	for _, ticket := range t.s.tickets {
		all = append(all, cloneTicket(ticket))
	}
	t.s.mu.RUnlock()
	return filter.Apply(all), nil
}

func (t ticketStore) Stats(_ context.Context) (repository.TicketStats, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	stats := repository.TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByCategory: map[domain.TicketCategory]int{},
	}
	for _, ticket := range t.s.tickets {
		stats.Total++
		stats.ByStatus[ticket.Status]++
		stats.ByCategory[ticket.Category]++
	}
	return stats, nil
}

type commentStore struct{ s *Store }

func (c commentStore) Create(_ context.Context, comment *domain.Comment) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.tickets[comment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	c.s.seq++
	comment.Seq = c.s.seq
	comment.CreatedAt = c.s.now()
	c.s.comments[comment.TicketID] = append(c.s.comments[comment.TicketID], *comment)
	return nil
}

func (c commentStore) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	c.s.mu.RLock()
	result := append([]domain.Comment(nil), c.s.comments[ticketID]...)
	c.s.mu.RUnlock()
	query.SortComments(result)
	return result, nil
}

func cloneUser(u domain.User) domain.User {
	if u.Sector != nil {
		sector := *u.Sector
		u.Sector = &sector
	}
	return u
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.Location != nil {
		location := *t.Location
		t.Location = &location
	}
	if t.ResolvedAt != nil {
		resolved := *t.ResolvedAt
		t.ResolvedAt = &resolved
	}
	return t
}

func sortUsersNewestFirst(users []domain.User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})
}

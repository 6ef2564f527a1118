// Package query holds the declarative ticket filter shared by the stores,
// the realtime hub and the client views.
package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/collipulli/helpdesk/internal/domain"
)

// TicketFilter is the conjunction of every constraint a ticket list applies.
// Results are always ordered by creation time, newest first.
type TicketFilter struct {
	// CreatedBy restricts results to one creator; nil means every creator.
	CreatedBy *string
	Status    *domain.TicketStatus
	// Limit caps the result size; zero means no cap.
	Limit int
}

// Key identifies the filter; equal filters share a key.
func (f TicketFilter) Key() string {
	var b strings.Builder
	b.WriteString("tickets")
	if f.CreatedBy != nil {
		b.WriteString("|by=")
		b.WriteString(*f.CreatedBy)
	}
	if f.Status != nil {
		b.WriteString("|status=")
		b.WriteString(string(*f.Status))
	}
	if f.Limit > 0 {
		b.WriteString("|limit=")
		b.WriteString(strconv.Itoa(f.Limit))
	}
	return b.String()
}

// Matches reports whether a ticket passes every predicate of the filter.
func (f TicketFilter) Matches(t *domain.Ticket) bool {
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	return true
}

// Apply filters, orders and caps tickets the same way a store query does.
func (f TicketFilter) Apply(tickets []domain.Ticket) []domain.Ticket {
	result := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if f.Matches(&tickets[i]) {
			result = append(result, tickets[i])
		}
	}
	SortNewestFirst(result)
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result
}

// SortNewestFirst orders tickets by creation time descending, then by id.
func SortNewestFirst(tickets []domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].ID > tickets[j].ID
	})
}

// SortComments orders comments by creation time, then by arrival.
func SortComments(comments []domain.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].Seq < comments[j].Seq
	})
}

// SearchTickets keeps tickets whose title or description contains text,
// case-insensitively. When matchID is set the ticket id is searched too.
func SearchTickets(tickets []domain.Ticket, text string, matchID bool) []domain.Ticket {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return append([]domain.Ticket(nil), tickets...)
	}
	result := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) ||
			(matchID && strings.Contains(strings.ToLower(t.ID), needle)) {
			result = append(result, t)
		}
	}
	return result
}

// SearchUsers keeps users whose name or sector contains text.
func SearchUsers(users []domain.User, text string) []domain.User {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return append([]domain.User(nil), users...)
	}
	result := make([]domain.User, 0, len(users))
	for i := range users {
		if strings.Contains(strings.ToLower(users[i].Name), needle) ||
			strings.Contains(strings.ToLower(users[i].SectorOrEmpty()), needle) {
			result = append(result, users[i])
		}
	}
	return result
}

package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collipulli/helpdesk/internal/domain"
)

func strPtr(s string) *string { return &s }

func fixtures() []domain.Ticket {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []domain.Ticket{
		{ID: "a", Title: "PC no enciende", Description: "Box 5", CreatedBy: "u1", Status: domain.TicketStatusOpen, CreatedAt: base},
		{ID: "b", Title: "Impresora", Description: "Sin tóner", CreatedBy: "u2", Status: domain.TicketStatusResolved, CreatedAt: base.Add(time.Hour)},
		{ID: "c", Title: "Wifi caído", Description: "Pabellón B", CreatedBy: "u1", Status: domain.TicketStatusResolved, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", Title: "Correo", Description: "No llegan", CreatedBy: "u1", Status: domain.TicketStatusOpen, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func TestApplyComposesPredicates(t *testing.T) {
	resolved := domain.TicketStatusResolved

	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(TicketFilter{}.Apply(fixtures())))
	assert.Equal(t, []string{"d", "c", "a"}, ids(TicketFilter{CreatedBy: strPtr("u1")}.Apply(fixtures())))
	assert.Equal(t, []string{"c"}, ids(TicketFilter{CreatedBy: strPtr("u1"), Status: &resolved}.Apply(fixtures())))
	assert.Equal(t, []string{"d", "c"}, ids(TicketFilter{Limit: 2}.Apply(fixtures())))
}

func TestKeyDistinguishesFilters(t *testing.T) {
	resolved := domain.TicketStatusResolved
	a := TicketFilter{CreatedBy: strPtr("u1")}
	b := TicketFilter{CreatedBy: strPtr("u1"), Status: &resolved}

	assert.Equal(t, a.Key(), TicketFilter{CreatedBy: strPtr("u1")}.Key())
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, "tickets", TicketFilter{}.Key())
	assert.Equal(t, "tickets|by=u1|status=resolved|limit=5", TicketFilter{CreatedBy: strPtr("u1"), Status: &resolved, Limit: 5}.Key())
}

func TestSortCommentsBreaksTiesByArrival(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	comments := []domain.Comment{
		{ID: "late", CreatedAt: at.Add(time.Minute), Seq: 1},
		{ID: "second", CreatedAt: at, Seq: 3},
		{ID: "first", CreatedAt: at, Seq: 2},
	}
	SortComments(comments)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].ID)
	assert.Equal(t, "second", comments[1].ID)
	assert.Equal(t, "late", comments[2].ID)
}

func TestSearchTickets(t *testing.T) {
	all := TicketFilter{}.Apply(fixtures())

	assert.Equal(t, []string{"a"}, ids(SearchTickets(all, "box", false)))
	assert.Equal(t, []string{"c"}, ids(SearchTickets(all, "WIFI", false)))
	assert.Equal(t, 4, len(SearchTickets(all, "  ", false)))
	assert.Contains(t, ids(SearchTickets(all, "b", true)), "b")
	assert.NotContains(t, ids(SearchTickets(all, "b", false)), "b")
}

func TestSearchUsers(t *testing.T) {
	users := []domain.User{
		{ID: "1", Name: "Ana Pérez", Sector: strPtr("Urgencias")},
		{ID: "2", Name: "Bruno"},
	}
	assert.Len(t, SearchUsers(users, "urg"), 1)
	assert.Len(t, SearchUsers(users, "bru"), 1)
	assert.Len(t, SearchUsers(users, ""), 2)
}

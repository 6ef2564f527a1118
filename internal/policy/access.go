package policy

import (
	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/query"
)

func authenticated(actor *domain.User) bool {
	return actor != nil && actor.ID != "" && actor.Role.Valid()
}

// CanCreateTicket: any authenticated principal.
func CanCreateTicket(actor *domain.User) bool {
	return authenticated(actor)
}

// CanListTickets: any authenticated principal; the result is scoped.
func CanListTickets(actor *domain.User) bool {
	return authenticated(actor)
}

// CanViewTicket: the creator always, admins always, nobody else.
func CanViewTicket(actor *domain.User, ticket *domain.Ticket) bool {
	if !authenticated(actor) || ticket == nil {
		return false
	}
	return actor.IsAdmin() || ticket.CreatedBy == actor.ID
}

// CanManageTickets covers status and priority changes and deletion.
func CanManageTickets(actor *domain.User) bool {
	return authenticated(actor) && actor.IsAdmin()
}

// CanComment: whoever can view the ticket.
func CanComment(actor *domain.User, ticket *domain.Ticket) bool {
	return CanViewTicket(actor, ticket)
}

// CanListUsers: admins only.
func CanListUsers(actor *domain.User) bool {
	return authenticated(actor) && actor.IsAdmin()
}

// CanViewProfile: a principal's own profile, or any profile for admins.
func CanViewProfile(actor *domain.User, userID string) bool {
	return authenticated(actor) && (actor.ID == userID || actor.IsAdmin())
}

// ScopeTickets builds the list filter actor is allowed to run. Non-admins
// are always pinned to their own tickets.
func ScopeTickets(actor *domain.User, status *domain.TicketStatus, limit int) query.TicketFilter {
	filter := query.TicketFilter{Status: status, Limit: limit}
	if !actor.IsAdmin() {
		id := ""
		if actor != nil {
			id = actor.ID
		}
		filter.CreatedBy = &id
	}
	return filter
}

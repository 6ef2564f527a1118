// Package policy holds the ticket lifecycle and the authorization rules.
// Every access path (HTTP handlers, realtime streams, client views) calls
// into these functions.
package policy

import "github.com/collipulli/helpdesk/internal/domain"

// InitialStatus is the status of every new ticket.
const InitialStatus = domain.TicketStatusOpen

// InitialPriority is the priority of every new ticket.
const InitialPriority = domain.TicketPriorityMedium

func nextStatuses(current domain.TicketStatus) []domain.TicketStatus {
	switch current {
	case domain.TicketStatusOpen:
		return []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusPending, domain.TicketStatusResolved}
	case domain.TicketStatusInProgress:
		return []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusResolved}
	case domain.TicketStatusPending:
		return []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved}
	case domain.TicketStatusResolved, domain.TicketStatusClosed:
		return nil
	}
	return nil
}

// NextStatuses returns the statuses a ticket in current may move to.
func NextStatuses(current domain.TicketStatus) []domain.TicketStatus {
	return nextStatuses(current)
}

// IsValidTransition reports whether current -> next is a lifecycle edge.
func IsValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range nextStatuses(current) {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status domain.TicketStatus) bool {
	return len(nextStatuses(status)) == 0
}

// AllowedStatuses returns the statuses actor may set on ticket.
func AllowedStatuses(actor *domain.User, ticket *domain.Ticket) []domain.TicketStatus {
	if !CanManageTickets(actor) || ticket == nil {
		return nil
	}
	return nextStatuses(ticket.Status)
}

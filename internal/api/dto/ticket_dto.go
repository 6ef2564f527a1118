package dto

import (
	"time"

	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/repository"
)

// CreateTicketRequest payload. Creator fields are not accepted.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    domain.TicketCategory `json:"category"`
	Location    string                `json:"location"`
}

// UpdateTicketRequest payload for admins.
type UpdateTicketRequest struct {
	Status   *domain.TicketStatus   `json:"status,omitempty"`
	Priority *domain.TicketPriority `json:"priority,omitempty"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Category      domain.TicketCategory `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	Status        domain.TicketStatus   `json:"status"`
	CreatedBy     string                `json:"created_by"`
	CreatedByName string                `json:"created_by_name"`
	Location      *string               `json:"location"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ResolvedAt    *time.Time            `json:"resolved_at"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	Ticket   TicketResponse    `json:"ticket"`
	Comments []CommentResponse `json:"comments"`
}

// StatsResponse aggregates ticket counts for the admin overview.
type StatsResponse struct {
	Total      int                           `json:"total"`
	ByStatus   map[domain.TicketStatus]int   `json:"by_status"`
	ByCategory map[domain.TicketCategory]int `json:"by_category"`
}

// NewTicketResponse converts a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Category:      ticket.Category,
		Priority:      ticket.Priority,
		Status:        ticket.Status,
		CreatedBy:     ticket.CreatedBy,
		CreatedByName: ticket.CreatedByName,
		Location:      ticket.Location,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
		ResolvedAt:    ticket.ResolvedAt,
	}
}

// NewTicketList converts a slice of tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewCommentResponse converts a domain comment.
func NewCommentResponse(comment *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID,
		TicketID:  comment.TicketID,
		UserID:    comment.UserID,
		UserName:  comment.UserName,
		Content:   comment.Content,
		Seq:       comment.Seq,
		CreatedAt: comment.CreatedAt,
	}
}

// NewCommentList converts a slice of comments.
func NewCommentList(comments []domain.Comment) []CommentResponse {
	items := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, NewCommentResponse(&comments[i]))
	}
	return items
}

// NewStatsResponse converts repository stats.
func NewStatsResponse(stats repository.TicketStats) StatsResponse {
	return StatsResponse{Total: stats.Total, ByStatus: stats.ByStatus, ByCategory: stats.ByCategory}
}

// Domain converts the wire shape back into a domain ticket.
func (t TicketResponse) Domain() domain.Ticket {
	return domain.Ticket{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		Category:      t.Category,
		Priority:      t.Priority,
		Status:        t.Status,
		CreatedBy:     t.CreatedBy,
		CreatedByName: t.CreatedByName,
		Location:      t.Location,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		ResolvedAt:    t.ResolvedAt,
	}
}

// Domain converts the wire shape back into a domain comment.
func (c CommentResponse) Domain() domain.Comment {
	return domain.Comment{
		ID:        c.ID,
		TicketID:  c.TicketID,
		UserID:    c.UserID,
		UserName:  c.UserName,
		Content:   c.Content,
		Seq:       c.Seq,
		CreatedAt: c.CreatedAt,
	}
}

// TicketsFromWire converts a decoded list.
func TicketsFromWire(items []TicketResponse) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(items))
	for _, item := range items {
		out = append(out, item.Domain())
	}
	return out
}

// CommentsFromWire converts a decoded thread.
func CommentsFromWire(items []CommentResponse) []domain.Comment {
	out := make([]domain.Comment, 0, len(items))
	for _, item := range items {
		out = append(out, item.Domain())
	}
	return out
}

// UsersFromWire converts a decoded directory.
func UsersFromWire(items []UserResponse) []domain.User {
	out := make([]domain.User, 0, len(items))
	for _, item := range items {
		out = append(out, item.Domain())
	}
	return out
}

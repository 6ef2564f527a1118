package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/query"
)

// TicketStats aggregates ticket counts for the admin overview.
type TicketStats struct {
	Total      int
	ByStatus   map[domain.TicketStatus]int
	ByCategory map[domain.TicketCategory]int
}

// TicketStateChange describes an admin update. Status (and ResolvedAt with
// it) is written only while the stored status still equals From; a change
// without Status touches priority alone.
type TicketStateChange struct {
	From       domain.TicketStatus
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	ResolvedAt *time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// UpdateState applies change and returns the stored ticket. It fails
	// with ErrStale when the status moved since it was read.
	UpdateState(ctx context.Context, id string, change TicketStateChange) (*domain.Ticket, error)
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// Delete removes a ticket together with its comments.
	Delete(ctx context.Context, id string) error
	ListWithFilter(ctx context.Context, filter query.TicketFilter) ([]domain.Ticket, error)
	Stats(ctx context.Context) (TicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, category, priority, status, created_by, created_by_name,
                    location, created_at, updated_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, category, priority, status, created_by, created_by_name, location)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedBy,
		ticket.CreatedByName,
		ticket.Location,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) UpdateState(ctx context.Context, id string, change TicketStateChange) (*domain.Ticket, error) {
	sql, args := BuildTicketUpdate(id, change)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, sql, args...))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || change.Status == nil {
		return nil, translate(err)
	}

	// no row matched: either the ticket is gone or its status moved
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrStale
	}
	return nil, ErrNotFound
}

// BuildTicketUpdate renders a state change as a conditional UPDATE.
func BuildTicketUpdate(id string, change TicketStateChange) (string, []any) {
	sets := []string{"updated_at=NOW()"}
	args := []any{id}
	where := "id=$1"

	if change.Status != nil {
		args = append(args, *change.Status)
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
		if change.ResolvedAt != nil {
			args = append(args, *change.ResolvedAt)
			sets = append(sets, fmt.Sprintf("resolved_at=$%d", len(args)))
		}
		args = append(args, change.From)
		where += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if change.Priority != nil {
		args = append(args, *change.Priority)
		sets = append(sets, fmt.Sprintf("priority=$%d", len(args)))
	}

	sql := fmt.Sprintf(`UPDATE tickets SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), where, ticketColumns)
	return sql, args
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter query.TicketFilter) ([]domain.Ticket, error) {
	sql, args := BuildTicketListQuery(filter)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// BuildTicketListQuery renders a filter as a parameterized SELECT.
func BuildTicketListQuery(filter query.TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	sql := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC`,
		ticketColumns, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return sql, args
}

func (r *ticketRepository) Stats(ctx context.Context) (TicketStats, error) {
	stats := TicketStats{
		ByStatus:   map[domain.TicketStatus]int{},
		ByCategory: map[domain.TicketCategory]int{},
	}
	rows, err := r.pool.Query(ctx, `SELECT status, category, COUNT(*) FROM tickets GROUP BY status, category`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status   domain.TicketStatus
			category domain.TicketCategory
			count    int
		)
		if err := rows.Scan(&status, &category, &count); err != nil {
			return stats, err
		}
		stats.ByStatus[status] += count
		stats.ByCategory[category] += count
		stats.Total += count
	}
	return stats, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.CreatedByName,
		&ticket.Location,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

package persistence

import (
	"github.com/collipulli/helpdesk/internal/repository"
	"github.com/collipulli/helpdesk/internal/repository/memory"
)

// Stores groups the repositories the services depend on.
type Stores struct {
	Users    repository.UserRepository
	Tickets  repository.TicketRepository
	Comments repository.CommentRepository
}

// NewStores picks Postgres-backed repositories when a pool exists and
// falls back to a process-local store otherwise.
func NewStores(pg *Postgres) Stores {
	if pg.Enabled() {
		return Stores{
			Users:    repository.NewUserRepository(pg.Pool),
			Tickets:  repository.NewTicketRepository(pg.Pool),
			Comments: repository.NewCommentRepository(pg.Pool),
		}
	}
	store := memory.NewStore()
	return Stores{
		Users:    store.Users(),
		Tickets:  store.Tickets(),
		Comments: store.Comments(),
	}
}

package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/query"
)

func TestBuildTicketListQueryUnfiltered(t *testing.T) {
	sql, args := BuildTicketListQuery(query.TicketFilter{})

	assert.Empty(t, args)
	assert.Contains(t, sql, "WHERE 1=1 ORDER BY created_at DESC, id DESC")
	assert.NotContains(t, sql, "LIMIT")
}

func TestBuildTicketListQueryComposesFilters(t *testing.T) {
	owner := "user-7"
	status := domain.TicketStatusPending
	sql, args := BuildTicketListQuery(query.TicketFilter{CreatedBy: &owner, Status: &status, Limit: 10})

	assert.Equal(t, []any{owner, status}, args)
	assert.Contains(t, sql, "created_by=$1 AND status=$2")
	assert.True(t, strings.HasSuffix(sql, "LIMIT 10"))
}

func TestBuildTicketListQueryStatusOnly(t *testing.T) {
	status := domain.TicketStatusResolved
	sql, args := BuildTicketListQuery(query.TicketFilter{Status: &status})

	assert.Equal(t, []any{status}, args)
	assert.Contains(t, sql, "1=1 AND status=$1")
	assert.NotContains(t, sql, "created_by=")
}

func TestBuildTicketUpdatePriorityOnlyLeavesStatus(t *testing.T) {
	high := domain.TicketPriorityHigh
	sql, args := BuildTicketUpdate("t-1", TicketStateChange{From: domain.TicketStatusOpen, Priority: &high})

	assert.Equal(t, []any{"t-1", high}, args)
	assert.Contains(t, sql, "SET updated_at=NOW(), priority=$2 WHERE id=$1 RETURNING")
	assert.NotContains(t, sql, "status=")
	assert.NotContains(t, sql, "resolved_at=$")
}

func TestBuildTicketUpdateStatusIsConditional(t *testing.T) {
	resolved := domain.TicketStatusResolved
	low := domain.TicketPriorityLow
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sql, args := BuildTicketUpdate("t-1", TicketStateChange{
		From:       domain.TicketStatusPending,
		Status:     &resolved,
		Priority:   &low,
		ResolvedAt: &at,
	})

	assert.Equal(t, []any{"t-1", resolved, at, domain.TicketStatusPending, low}, args)
	assert.Contains(t, sql, "SET updated_at=NOW(), status=$2, resolved_at=$3, priority=$5")
	assert.Contains(t, sql, "WHERE id=$1 AND status=$4")
}

func TestTranslate(t *testing.T) {
	cases := map[string]struct {
		err  error
		want error
	}{
		"no rows":     {pgx.ErrNoRows, ErrNotFound},
		"unique":      {&pgconn.PgError{Code: "23505"}, ErrDuplicate},
		"foreign key": {fmt.Errorf("insert comment: %w", &pgconn.PgError{Code: "23503"}), ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tc.err), tc.want)
		})
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, translate(other))
	assert.NoError(t, translate(nil))
}

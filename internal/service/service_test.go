package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collipulli/helpdesk/internal/auth"
	"github.com/collipulli/helpdesk/internal/config"
	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/realtime"
	"github.com/collipulli/helpdesk/internal/repository"
	"github.com/collipulli/helpdesk/internal/repository/memory"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

type fixture struct {
	store    *memory.Store
	hub      *realtime.Hub
	auth     *AuthService
	profiles *ProfileService
	tickets  *TicketService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(nil)
	hub := realtime.NewHub(nil, nil)
	hub.Attach(dispatcher)

	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
		MinPasswordLength:     6,
	}}
	return &fixture{
		store: store,
		hub:   hub,
		auth: NewAuthService(cfg, AuthDependencies{
			UserRepo:   store.Users(),
			Dispatcher: dispatcher,
		}),
		profiles: NewProfileService(ProfileDependencies{
			UserRepo:   store.Users(),
			Hub:        hub,
			Dispatcher: dispatcher,
		}),
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:  store.Tickets(),
			CommentRepo: store.Comments(),
			UserRepo:    store.Users(),
			Hub:         hub,
			Dispatcher:  dispatcher,
		}),
	}
}

func (f *fixture) signUp(t *testing.T, name, email string) *domain.User {
	t.Helper()
	user, _, err := f.auth.SignUp(context.Background(), SignUpInput{
		Name: name, Email: email, Password: "secreto", Sector: "Urgencias",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) admin(t *testing.T, name, email string) *domain.User {
	t.Helper()
	f.signUp(t, name, email)
	user, err := f.auth.SetRole(context.Background(), email, domain.RoleAdmin)
	require.NoError(t, err)
	return user
}

func (f *fixture) file(t *testing.T, actor *domain.User, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), actor, TicketCreateInput{
		Title: title, Description: "detalle", Location: "Box 5",
	})
	require.NoError(t, err)
	return ticket
}

func TestSignUpAlwaysCreatesPatient(t *testing.T) {
	f := newFixture(t)
	user, token, err := f.auth.SignUp(context.Background(), SignUpInput{
		Name: " Ana ", Email: "ANA@hospital.cl", Password: "secreto", Sector: "Pabellón",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RolePatient, user.Role)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "ana@hospital.cl", user.Email)
	assert.Equal(t, "Pabellón", user.SectorOrEmpty())
	assert.Equal(t, user.ID, token.SubjectID)
}

func TestSignUpErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "Ana", "ana@hospital.cl")

	_, _, err := f.auth.SignUp(ctx, SignUpInput{Name: "Otra", Email: "ana@hospital.cl", Password: "secreto", Sector: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmailInUse))

	_, _, err = f.auth.SignUp(ctx, SignUpInput{Name: "Otra", Email: "otra@hospital.cl", Password: "12345", Sector: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeWeakPassword))

	_, _, err = f.auth.SignUp(ctx, SignUpInput{Name: "", Email: "otra@hospital.cl", Password: "secreto", Sector: " "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestSignInAndSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signUp(t, "Ana", "ana@hospital.cl")

	_, _, err := f.auth.SignIn(ctx, "ana@hospital.cl", "incorrecta")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))
	_, _, err = f.auth.SignIn(ctx, "nadie@hospital.cl", "secreto")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))

	user, token, err := f.auth.SignIn(ctx, "Ana@Hospital.cl", "secreto")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)

	principal := &auth.Principal{UserID: user.ID, User: user, TokenID: token.ID, ExpiresAt: token.ExpiresAt}
	require.NoError(t, f.auth.SignOut(ctx, principal))
	revoked, err := f.auth.Revocation().IsRevoked(ctx, token.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestCreateTicketIgnoresClientOverrides(t *testing.T) {
	f := newFixture(t)
	ana := f.signUp(t, "Ana", "ana@hospital.cl")

	ticket := f.file(t, ana, "PC no enciende")
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.TicketCategoryHardware, ticket.Category)
	assert.Equal(t, ana.ID, ticket.CreatedBy)
	assert.Equal(t, "Ana", ticket.CreatedByName)
	assert.Equal(t, "Box 5", ticket.LocationOrEmpty())
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ana := f.signUp(t, "Ana", "ana@hospital.cl")

	_, err := f.tickets.CreateTicket(context.Background(), ana, TicketCreateInput{Title: "x", Description: "y"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.CreateTicket(context.Background(), ana, TicketCreateInput{
		Title: "x", Description: "y", Location: "z", Category: "coffee",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.CreateTicket(context.Background(), nil, TicketCreateInput{Title: "x", Description: "y", Location: "z"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestListScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	luis := f.signUp(t, "Luis", "luis@hospital.cl")
	root := f.admin(t, "Root", "root@hospital.cl")

	f.file(t, ana, "a1")
	f.file(t, luis, "l1")
	f.file(t, ana, "a2")

	mine, err := f.tickets.ListTickets(ctx, ana, nil, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, ticket := range mine {
		assert.Equal(t, ana.ID, ticket.CreatedBy)
	}

	all, err := f.tickets.ListTickets(ctx, root, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	resolved := domain.TicketStatusResolved
	none, err := f.tickets.ListTickets(ctx, root, &resolved, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	bogus := domain.TicketStatus("archived")
	_, err = f.tickets.ListTickets(ctx, root, &bogus, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestPatientCannotChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	ticket := f.file(t, ana, "PC no enciende")

	status := domain.TicketStatusResolved
	_, err := f.tickets.UpdateTicket(ctx, ana, ticket.ID, TicketUpdateInput{Status: &status})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	assert.True(t, apperrors.HasCode(f.tickets.DeleteTicket(ctx, ana, ticket.ID), apperrors.CodeForbidden))

	stored, err := f.tickets.GetTicket(ctx, ana, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Ticket.Status)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	root := f.admin(t, "Root", "root@hospital.cl")
	ticket := f.file(t, ana, "Impresora")

	pending := domain.TicketStatusPending
	resolved := domain.TicketStatusResolved
	open := domain.TicketStatusOpen
	high := domain.TicketPriorityHigh

	updated, err := f.tickets.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Status: &pending, Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, pending, updated.Status)
	assert.Equal(t, high, updated.Priority)
	assert.Nil(t, updated.ResolvedAt)

	_, err = f.tickets.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Status: &open})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	updated, err = f.tickets.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Status: &resolved})
	require.NoError(t, err)
	require.NotNil(t, updated.ResolvedAt)

	_, err = f.tickets.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Status: &pending})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	low := domain.TicketPriorityLow
	updated, err = f.tickets.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Priority: &low})
	require.NoError(t, err)
	assert.Equal(t, low, updated.Priority)

	_, err = f.tickets.UpdateTicket(ctx, root, "missing", TicketUpdateInput{Priority: &low})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

// gatedTickets holds the first UpdateState call until release is closed,
// after its caller has already read the ticket.
type gatedTickets struct {
	repository.TicketRepository
	paused  atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func newGatedTickets(inner repository.TicketRepository) *gatedTickets {
	return &gatedTickets{TicketRepository: inner, reached: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedTickets) UpdateState(ctx context.Context, id string, change repository.TicketStateChange) (*domain.Ticket, error) {
	if g.paused.CompareAndSwap(false, true) {
		close(g.reached)
		<-g.release
	}
	return g.TicketRepository.UpdateState(ctx, id, change)
}

// interleave runs first until it has read the ticket, lets second commit,
// then lets first finish.
func interleave(t *testing.T, f *fixture, first, second func(*TicketService) error) error {
	t.Helper()
	gated := newGatedTickets(f.store.Tickets())
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  gated,
		CommentRepo: f.store.Comments(),
		UserRepo:    f.store.Users(),
		Hub:         f.hub,
	})

	result := make(chan error, 1)
	go func() { result <- first(svc) }()
	select {
	case <-gated.reached:
	case <-time.After(2 * time.Second):
		t.Fatal("first update never reached the store")
	}
	require.NoError(t, second(svc))
	close(gated.release)

	select {
	case err := <-result:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("first update never finished")
		return nil
	}
}

func TestPriorityChangeDoesNotUndoConcurrentResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	root := f.admin(t, "Root", "root@hospital.cl")
	ticket := f.file(t, ana, "Impresora")

	high := domain.TicketPriorityHigh
	resolved := domain.TicketStatusResolved
	err := interleave(t, f,
		func(svc *TicketService) error {
			_, err := svc.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Priority: &high})
			return err
		},
		func(svc *TicketService) error {
			_, err := svc.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Status: &resolved})
			return err
		})
	require.NoError(t, err)

	stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved, stored.Status)
	assert.Equal(t, high, stored.Priority)
	assert.NotNil(t, stored.ResolvedAt)
}

func TestStatusChangeRechecksTransitionAfterConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	root := f.admin(t, "Root", "root@hospital.cl")
	ticket := f.file(t, ana, "Red caída")

	pending := domain.TicketStatusPending
	resolved := domain.TicketStatusResolved
	err := interleave(t, f,
		func(svc *TicketService) error {
			_, err := svc.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Status: &pending})
			return err
		},
		func(svc *TicketService) error {
			_, err := svc.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Status: &resolved})
			return err
		})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved, stored.Status)
	assert.NotNil(t, stored.ResolvedAt)
}

func TestCommentsAndVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	luis := f.signUp(t, "Luis", "luis@hospital.cl")
	root := f.admin(t, "Root", "root@hospital.cl")
	ticket := f.file(t, ana, "Red caída")

	_, err := f.tickets.GetTicket(ctx, luis, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = f.tickets.AddComment(ctx, luis, ticket.ID, "hola")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = f.tickets.AddComment(ctx, ana, ticket.ID, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.AddComment(ctx, ana, ticket.ID, "sigue sin red")
	require.NoError(t, err)
	comment, err := f.tickets.AddComment(ctx, root, ticket.ID, "Revisando")
	require.NoError(t, err)
	assert.Equal(t, "Root", comment.UserName)

	detail, err := f.tickets.GetTicket(ctx, ana, ticket.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "Revisando", detail.Comments[1].Content)
	assert.False(t, detail.Comments[1].CreatedAt.Before(detail.Comments[0].CreatedAt))

	require.NoError(t, f.tickets.DeleteTicket(ctx, root, ticket.ID))
	_, err = f.tickets.GetTicket(ctx, root, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestProfileUpdateAndDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	root := f.admin(t, "Root", "root@hospital.cl")

	_, err := f.profiles.Update(ctx, ana, ProfileUpdateInput{Name: "Ana María", Sector: ""})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	updated, err := f.profiles.Update(ctx, ana, ProfileUpdateInput{Name: "Ana María", Sector: "Pediatría"})
	require.NoError(t, err)
	assert.Equal(t, "Ana María", updated.Name)
	assert.Equal(t, domain.RolePatient, updated.Role)

	_, err = f.profiles.ListUsers(ctx, ana)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	users, err := f.profiles.ListUsers(ctx, root)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	stats, err := f.tickets.Stats(ctx, root)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

type snapshots chan realtime.Snapshot

func (s snapshots) sink(snap realtime.Snapshot) { s <- snap }

func (s snapshots) next(t *testing.T) realtime.Snapshot {
	t.Helper()
	select {
	case snap := <-s:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return realtime.Snapshot{}
	}
}

// until skips snapshots until one satisfies ok.
func (s snapshots) until(t *testing.T, ok func(realtime.Snapshot) bool) realtime.Snapshot {
	t.Helper()
	for {
		snap := s.next(t)
		if ok(snap) {
			return snap
		}
	}
}

func TestLiveScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	root := f.admin(t, "Root", "root@hospital.cl")

	anaList := make(snapshots, 16)
	listSub, err := f.tickets.WatchTickets(ana, nil, 0, anaList.sink)
	require.NoError(t, err)
	defer listSub.Close()
	assert.Empty(t, anaList.next(t).Data)

	ticket := f.file(t, ana, "PC no enciende")
	snap := anaList.until(t, func(s realtime.Snapshot) bool { return len(s.Data.([]domain.Ticket)) == 1 })
	listed := snap.Data.([]domain.Ticket)[0]
	assert.Equal(t, domain.TicketStatusOpen, listed.Status)
	assert.Equal(t, domain.TicketPriorityMedium, listed.Priority)

	adminList, err := f.tickets.ListTickets(ctx, root, nil, 0)
	require.NoError(t, err)
	require.Len(t, adminList, 1)
	assert.Equal(t, ticket.ID, adminList[0].ID)

	anaDetail := make(snapshots, 16)
	detailSub, err := f.tickets.WatchTicket(ana, ticket.ID, anaDetail.sink)
	require.NoError(t, err)
	defer detailSub.Close()
	anaComments := make(snapshots, 16)
	commentSub, err := f.tickets.WatchComments(ana, ticket.ID, anaComments.sink)
	require.NoError(t, err)
	defer commentSub.Close()
	anaDetail.next(t)
	anaComments.next(t)

	inProgress := domain.TicketStatusInProgress
	_, err = f.tickets.UpdateTicket(ctx, root, ticket.ID, TicketUpdateInput{Status: &inProgress})
	require.NoError(t, err)
	anaDetail.until(t, func(s realtime.Snapshot) bool {
		return s.Data.(*domain.Ticket).Status == domain.TicketStatusInProgress
	})

	_, err = f.tickets.AddComment(ctx, root, ticket.ID, "Revisando")
	require.NoError(t, err)
	comments := anaComments.until(t, func(s realtime.Snapshot) bool {
		return len(s.Data.([]domain.Comment)) == 1
	}).Data.([]domain.Comment)
	assert.Equal(t, "Revisando", comments[0].Content)

	require.NoError(t, f.tickets.DeleteTicket(ctx, root, ticket.ID))
	gone := anaDetail.until(t, func(s realtime.Snapshot) bool { return s.Data == nil })
	assert.NoError(t, gone.Err)
}

func TestWatchProfileReportsMissingRecord(t *testing.T) {
	f := newFixture(t)
	ana := f.signUp(t, "Ana", "ana@hospital.cl")

	profile := make(snapshots, 16)
	sub := f.profiles.WatchProfile(ana.ID, profile.sink)
	defer sub.Close()
	first := profile.next(t)
	assert.Equal(t, "Ana", first.Data.(*domain.User).Name)

	_, err := f.profiles.Update(context.Background(), ana, ProfileUpdateInput{Name: "Ana B", Sector: "UCI"})
	require.NoError(t, err)
	profile.until(t, func(s realtime.Snapshot) bool { return s.Data.(*domain.User).Name == "Ana B" })

	missing := make(snapshots, 4)
	ghost := f.profiles.WatchProfile("ghost", missing.sink)
	defer ghost.Close()
	assert.Nil(t, missing.next(t).Data)
}

func TestWatchUsersIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	_, err := f.profiles.WatchUsers(ana, func(realtime.Snapshot) {})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Equal(t, 0, f.hub.Len())
}

func TestDeleteProfileEndsLiveProfile(t *testing.T) {
	f := newFixture(t)
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	ticket := f.file(t, ana, "Monitor sin señal")

	profile := make(snapshots, 16)
	sub := f.profiles.WatchProfile(ana.ID, profile.sink)
	defer sub.Close()
	require.NotNil(t, profile.next(t).Data)

	deleted, err := f.profiles.DeleteByEmail(context.Background(), " ANA@hospital.cl ")
	require.NoError(t, err)
	assert.Equal(t, ana.ID, deleted.ID)
	gone := profile.until(t, func(s realtime.Snapshot) bool { return s.Data == nil })
	assert.NoError(t, gone.Err)

	kept, err := f.store.Tickets().GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", kept.CreatedByName)

	_, err = f.profiles.DeleteByEmail(context.Background(), "ana@hospital.cl")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestDemotedAdminStreamsAreRescoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	boss := f.admin(t, "Jefa", "jefa@hospital.cl")
	anaTicket := f.file(t, ana, "Monitor")

	list := make(snapshots, 32)
	listSub, err := f.tickets.WatchTickets(boss, nil, 0, list.sink)
	require.NoError(t, err)
	defer listSub.Close()
	require.Len(t, list.next(t).Data, 1)

	detail := make(snapshots, 32)
	detailSub, err := f.tickets.WatchTicket(boss, anaTicket.ID, detail.sink)
	require.NoError(t, err)
	defer detailSub.Close()
	require.NotNil(t, detail.next(t).Data)

	directory := make(snapshots, 32)
	usersSub, err := f.profiles.WatchUsers(boss, directory.sink)
	require.NoError(t, err)
	defer usersSub.Close()
	require.NoError(t, directory.next(t).Err)

	_, err = f.auth.SetRole(ctx, "jefa@hospital.cl", domain.RolePatient)
	require.NoError(t, err)

	f.file(t, ana, "ajeno")
	own := f.file(t, boss, "propio")
	for {
		snap := list.next(t)
		require.NoError(t, snap.Err)
		tickets := snap.Data.([]domain.Ticket)
		for _, ticket := range tickets {
			assert.Equal(t, boss.ID, ticket.CreatedBy, "demoted user saw %q", ticket.Title)
		}
		if len(tickets) == 1 && tickets[0].ID == own.ID {
			break
		}
	}

	denied := detail.until(t, func(s realtime.Snapshot) bool { return s.Err != nil })
	assert.True(t, apperrors.HasCode(denied.Err, apperrors.CodeForbidden))
	denied = directory.until(t, func(s realtime.Snapshot) bool { return s.Err != nil })
	assert.True(t, apperrors.HasCode(denied.Err, apperrors.CodeForbidden))
}

func TestPromotedPatientStreamWidens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.signUp(t, "Ana", "ana@hospital.cl")
	luis := f.signUp(t, "Luis", "luis@hospital.cl")
	f.file(t, ana, "Teclado")

	list := make(snapshots, 32)
	sub, err := f.tickets.WatchTickets(luis, nil, 0, list.sink)
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, list.next(t).Data)

	_, err = f.auth.SetRole(ctx, "luis@hospital.cl", domain.RoleAdmin)
	require.NoError(t, err)
	list.until(t, func(s realtime.Snapshot) bool { return len(s.Data.([]domain.Ticket)) == 1 })

	f.file(t, ana, "Mouse")
	list.until(t, func(s realtime.Snapshot) bool { return len(s.Data.([]domain.Ticket)) == 2 })
}

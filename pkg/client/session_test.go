package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collipulli/helpdesk/internal/domain"
)

// profileBackend serves sign-in and profile subscriptions from memory;
// every other Backend method panics.
type profileBackend struct {
	Backend

	mu       sync.Mutex
	sinks    []func(Snapshot[*User])
	released []bool
	signOut  error
}

func (b *profileBackend) SignIn(_ context.Context, email, _ string) (*Credentials, error) {
	if email == "nadie@hospital.cl" {
		return nil, errors.New("invalid credentials")
	}
	return &Credentials{UserID: email, AccessToken: "token-" + email}, nil
}

func (b *profileBackend) SignOut(context.Context, *Credentials) error {
	return b.signOut
}

func (b *profileBackend) WatchProfile(_ context.Context, _ *Credentials, sink func(Snapshot[*User])) (Release, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := len(b.sinks)
	b.sinks = append(b.sinks, sink)
	b.released = append(b.released, false)
	return func() {
		b.mu.Lock()
		b.released[i] = true
		b.mu.Unlock()
	}, nil
}

func (b *profileBackend) push(i int, user *User) {
	b.mu.Lock()
	sink := b.sinks[i]
	b.mu.Unlock()
	sink(Snapshot[*User]{Data: user})
}

func (b *profileBackend) isReleased(i int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released[i]
}

func newSessionFixture(t *testing.T) (*Client, *profileBackend, *[]SessionState) {
	t.Helper()
	backend := &profileBackend{}
	c := New(backend)
	t.Cleanup(c.Close)
	c.Flush()

	var states []SessionState
	c.Session.Subscribe(func(v SessionView) { states = append(states, v.State) })
	c.Flush()
	return c, backend, &states
}

func TestSessionResolvesProfile(t *testing.T) {
	c, backend, states := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, c.Auth.SignIn(ctx, "ana@hospital.cl", "secreto"))
	c.Flush()
	assert.Equal(t, StateLoading, c.Session.View().State)
	assert.Nil(t, c.Session.User())

	backend.push(0, &User{ID: "ana@hospital.cl", Name: "Ana", Role: domain.RolePatient})
	c.Flush()
	view := c.Session.View()
	assert.Equal(t, StateSignedIn, view.State)
	assert.Equal(t, "Ana", view.User.Name)
	assert.Equal(t, []SessionState{StateSignedOut, StateLoading, StateSignedIn}, *states)
}

func TestSessionMissingProfileIsSignedOut(t *testing.T) {
	c, backend, _ := newSessionFixture(t)

	require.NoError(t, c.Auth.SignIn(context.Background(), "ana@hospital.cl", "secreto"))
	c.Flush()
	backend.push(0, nil)
	c.Flush()
	assert.Equal(t, StateSignedOut, c.Session.View().State)

	_, err := c.OpenTickets("", nil)
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestSessionDropsProfileOfPreviousPrincipal(t *testing.T) {
	c, backend, _ := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, c.Auth.SignIn(ctx, "ana@hospital.cl", "secreto"))
	c.Flush()
	require.NoError(t, c.Auth.SignIn(ctx, "rosa@hospital.cl", "secreto"))
	c.Flush()
	assert.True(t, backend.isReleased(0))

	// Ana's record arriving after the switch must not be adopted.
	backend.push(0, &User{ID: "ana@hospital.cl", Name: "Ana", Role: domain.RolePatient})
	c.Flush()
	assert.Equal(t, StateLoading, c.Session.View().State)

	backend.push(1, &User{ID: "rosa@hospital.cl", Name: "Rosa", Role: domain.RoleAdmin})
	c.Flush()
	assert.Equal(t, "Rosa", c.Session.User().Name)
}

func TestSignOutClearsStateEvenOnFailure(t *testing.T) {
	c, backend, _ := newSessionFixture(t)
	ctx := context.Background()

	require.NoError(t, c.Auth.SignIn(ctx, "ana@hospital.cl", "secreto"))
	c.Flush()
	backend.push(0, &User{ID: "ana@hospital.cl", Name: "Ana", Role: domain.RolePatient})
	c.Flush()

	backend.signOut = errors.New("network down")
	assert.Error(t, c.Auth.SignOut(ctx))
	c.Flush()
	assert.Nil(t, c.Auth.Current())
	assert.Equal(t, StateSignedOut, c.Session.View().State)
	assert.True(t, backend.isReleased(0))

	assert.NoError(t, c.Auth.SignOut(ctx))
}

func TestSignInRejectsEmptyFields(t *testing.T) {
	c, _, _ := newSessionFixture(t)
	ctx := context.Background()

	err := c.Auth.SignIn(ctx, "  ", "secreto")
	assert.Equal(t, MsgMissingCredentials, AuthMessage(err))

	err = c.Auth.SignUp(ctx, SignUpForm{Name: "Ana", Email: "ana@hospital.cl", Password: "secreto"})
	assert.Equal(t, MsgMissingSignUp, AuthMessage(err))

	assert.Error(t, c.Auth.SignIn(ctx, "nadie@hospital.cl", "secreto"))
	assert.Nil(t, c.Auth.Current())
}

func TestAuthListenerGetsCurrentStateFirst(t *testing.T) {
	c, _, _ := newSessionFixture(t)
	require.NoError(t, c.Auth.SignIn(context.Background(), "ana@hospital.cl", "secreto"))

	var seen []*Credentials
	unsubscribe := c.Auth.OnAuthStateChanged(func(creds *Credentials) { seen = append(seen, creds) })
	c.Flush()
	unsubscribe()
	unsubscribe()
	require.NoError(t, c.Auth.SignOut(context.Background()))
	c.Flush()

	require.Len(t, seen, 1)
	assert.Equal(t, "ana@hospital.cl", seen[0].UserID)
}

func TestSessionStateString(t *testing.T) {
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "signed_in", StateSignedIn.String())
	assert.Equal(t, "signed_out", StateSignedOut.String())
}

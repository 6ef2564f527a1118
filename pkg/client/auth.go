package client

import (
	"context"
	"strings"
	"sync"
)

// Auth holds the sign-in state and tells listeners when it changes.
type Auth struct {
	backend Backend
	loop    *Loop

	mu        sync.Mutex
	current   *Credentials
	listeners map[int]func(*Credentials)
	nextID    int
}

// NewAuth constructs the identity front.
func NewAuth(backend Backend, loop *Loop) *Auth {
	return &Auth{backend: backend, loop: loop, listeners: make(map[int]func(*Credentials))}
}

// SignIn authenticates with email and password. Empty fields are
// rejected locally.
func (a *Auth) SignIn(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return formError(MsgMissingCredentials)
	}
	creds, err := a.backend.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	a.set(creds)
	return nil
}

// SignUp registers a patient account and signs it in. Every field is
// required.
func (a *Auth) SignUp(ctx context.Context, form SignUpForm) error {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Sector = strings.TrimSpace(form.Sector)
	if form.Name == "" || form.Email == "" || form.Password == "" || form.Sector == "" {
		return formError(MsgMissingSignUp)
	}
	creds, err := a.backend.SignUp(ctx, form)
	if err != nil {
		return err
	}
	a.set(creds)
	return nil
}

// SignOut revokes the session. Local state is cleared even when the
// backend call fails, and that error is returned.
func (a *Auth) SignOut(ctx context.Context) error {
	creds := a.Current()
	if creds == nil {
		return nil
	}
	err := a.backend.SignOut(ctx, creds)
	a.set(nil)
	return err
}

// Current returns the active credentials, or nil when signed out.
func (a *Auth) Current() *Credentials {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// OnAuthStateChanged registers fn for every sign-in state change. fn
// receives the current state right away. Callbacks run on the loop.
func (a *Auth) OnAuthStateChanged(fn func(*Credentials)) (unsubscribe func()) {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	current := a.current
	a.loop.Post(func() { fn(current) })
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

func (a *Auth) set(creds *Credentials) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = creds
	for _, fn := range a.listeners {
		fn := fn
		a.loop.Post(func() { fn(creds) })
	}
}

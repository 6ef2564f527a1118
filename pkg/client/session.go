package client

import (
	"context"
	"sync"
)

// SessionState is where the identity resolver stands.
type SessionState int

const (
	// StateLoading: signed in, profile not observed yet. Nothing should
	// render.
	StateLoading SessionState = iota
	// StateSignedIn: the profile record is known.
	StateSignedIn
	// StateSignedOut: no credentials, or no profile record for them.
	StateSignedOut
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSignedIn:
		return "signed_in"
	case StateSignedOut:
		return "signed_out"
	}
	return "unknown"
}

// SessionView is what listeners receive on each change.
type SessionView struct {
	State SessionState
	// User is set only in StateSignedIn. Its role may be missing; every
	// policy check then rejects it.
	User *User
	// Err is the last profile read error; the state is left as it was.
	Err error
}

// Session resolves the signed-in principal into a typed current user by
// following that principal's profile record.
type Session struct {
	backend Backend
	loop    *Loop

	mu        sync.Mutex
	gen       uint64
	creds     *Credentials
	view      SessionView
	release   Release
	listeners map[int]func(SessionView)
	nextID    int
	closed    bool

	unsubscribe func()
}

// NewSession starts following auth.
func NewSession(auth *Auth, backend Backend, loop *Loop) *Session {
	s := &Session{
		backend:   backend,
		loop:      loop,
		view:      SessionView{State: StateSignedOut},
		listeners: make(map[int]func(SessionView)),
	}
	s.unsubscribe = auth.OnAuthStateChanged(s.handleAuth)
	return s
}

// handleAuth runs on the loop. The previous profile subscription is
// released before a new one opens.
func (s *Session) handleAuth(creds *Credentials) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.gen++
	gen := s.gen
	previous := s.release
	s.release = nil
	s.creds = creds
	if creds == nil {
		s.setLocked(SessionView{State: StateSignedOut})
	} else {
		s.setLocked(SessionView{State: StateLoading})
	}
	s.mu.Unlock()

	previous.Release()
	if creds == nil {
		return
	}

	release, err := s.backend.WatchProfile(context.Background(), creds, func(snap Snapshot[*User]) {
		s.onProfile(gen, snap)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		release.Release()
		return
	}
	if err != nil {
		s.setLocked(SessionView{State: StateLoading, Err: err})
		return
	}
	s.release = release
}

func (s *Session) onProfile(gen uint64, snap Snapshot[*User]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	switch {
	case snap.Err != nil:
		next := s.view
		next.Err = snap.Err
		s.setLocked(next)
	case snap.Data == nil:
		// no profile record: not created yet, or deleted
		s.setLocked(SessionView{State: StateSignedOut})
	default:
		s.setLocked(SessionView{State: StateSignedIn, User: snap.Data})
	}
}

func (s *Session) setLocked(view SessionView) {
	s.view = view
	for _, fn := range s.listeners {
		fn := fn
		s.loop.Post(func() { fn(view) })
	}
}

// View returns the current state.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// User returns the signed-in user, or nil.
func (s *Session) User() *User {
	return s.View().User
}

// Subscribe registers fn for state changes; fn receives the current state
// right away. Callbacks run on the loop.
func (s *Session) Subscribe(fn func(SessionView)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	view := s.view
	s.loop.Post(func() { fn(view) })
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// principal returns the credentials and user views act as.
func (s *Session) principal() (*Credentials, *User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.State != StateSignedIn || s.creds == nil {
		return nil, nil, ErrSignedOut
	}
	return s.creds, s.view.User, nil
}

// Close stops following auth and releases the profile subscription.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	release := s.release
	s.release = nil
	s.mu.Unlock()

	s.unsubscribe()
	release.Release()
}

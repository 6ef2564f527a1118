package client

import (
	"context"
	"sync"
)

// Releaser is anything holding a live subscription.
type Releaser interface {
	Release()
}

// WatchFunc opens a backend subscription for query q.
type WatchFunc[Q comparable, T any] func(ctx context.Context, q Q, sink func(Snapshot[T])) (Release, error)

// LiveQuery keeps exactly one subscription open for its current query.
// SetQuery replaces it; snapshots still in flight from a replaced
// subscription are dropped by generation.
type LiveQuery[Q comparable, T any] struct {
	loop     *Loop
	watch    WatchFunc[Q, T]
	onChange func(Snapshot[T])

	mu      sync.Mutex
	gen     uint64
	query   Q
	started bool
	release Release
	last    Snapshot[T]
	loaded  bool
	closed  bool
}

// NewLiveQuery returns an idle live query; call SetQuery to start it.
// onChange runs on loop for every accepted snapshot.
func NewLiveQuery[Q comparable, T any](loop *Loop, watch WatchFunc[Q, T], onChange func(Snapshot[T])) *LiveQuery[Q, T] {
	return &LiveQuery[Q, T]{loop: loop, watch: watch, onChange: onChange}
}

// SetQuery subscribes to q, releasing the previous subscription first.
// Setting the query already in effect is a no-op.
func (l *LiveQuery[Q, T]) SetQuery(q Q) {
	l.mu.Lock()
	if l.closed || (l.started && l.query == q) {
		l.mu.Unlock()
		return
	}
	l.gen++
	gen := l.gen
	previous := l.release
	l.release = nil
	l.query = q
	l.started = true
	l.loaded = false
	l.mu.Unlock()

	previous.Release()

	release, err := l.watch(context.Background(), q, func(snap Snapshot[T]) {
		l.deliver(gen, snap)
	})

	l.mu.Lock()
	if l.closed || gen != l.gen {
		l.mu.Unlock()
		release.Release()
		return
	}
	if err != nil {
		l.mu.Unlock()
		l.deliver(gen, Snapshot[T]{Err: err})
		return
	}
	l.release = release
	l.mu.Unlock()
}

func (l *LiveQuery[Q, T]) deliver(gen uint64, snap Snapshot[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || gen != l.gen {
		return
	}
	l.last = snap
	l.loaded = true
	if l.onChange != nil {
		onChange := l.onChange
		l.loop.Post(func() { onChange(snap) })
	}
}

// Current returns the latest accepted snapshot and whether one has
// arrived for the current query.
func (l *LiveQuery[Q, T]) Current() (Snapshot[T], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.loaded
}

// Query returns the query in effect.
func (l *LiveQuery[Q, T]) Query() Q {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// Generation counts the subscriptions opened so far.
func (l *LiveQuery[Q, T]) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Release closes the subscription; later snapshots are ignored.
func (l *LiveQuery[Q, T]) Release() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.gen++
	release := l.release
	l.release = nil
	l.mu.Unlock()

	release.Release()
}

// Scope owns subscriptions for one screen and releases all of them on
// Close. Anything added after Close is released immediately.
type Scope struct {
	mu     sync.Mutex
	items  []Releaser
	closed bool
}

// Add registers r with the scope.
func (s *Scope) Add(r Releaser) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		r.Release()
		return
	}
	s.items = append(s.items, r)
	s.mu.Unlock()
}

// Close releases everything in reverse order of registration.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	items := s.items
	s.items = nil
	s.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Release()
	}
}

package client

import "sync/atomic"

// Guard keeps one action from running twice at once, the way a form
// disables its submit button until the request settles.
type Guard struct {
	busy atomic.Bool
}

// Run executes fn unless a previous Run is still in flight, in which case
// it returns ErrBusy. The guard is idle again when Run returns, whether
// fn succeeded or not.
func (g *Guard) Run(fn func() error) error {
	if !g.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer g.busy.Store(false)
	return fn()
}

// Busy reports whether an action is in flight.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}

package client

import (
	"context"
	"strings"
	"sync"

	"github.com/collipulli/helpdesk/internal/domain"
	"github.com/collipulli/helpdesk/internal/policy"
	"github.com/collipulli/helpdesk/internal/query"
)

// TicketListView is what a ticket list renders.
type TicketListView struct {
	Tickets []Ticket
	Loading bool
	Err     error
	Status  TicketStatus
	Search  string
	// Counts tallies the subscribed set by status, before search.
	Counts map[TicketStatus]int
	// EmptyMessage is set when Tickets is empty and loading finished.
	EmptyMessage string
}

// TicketList is a role-scoped live ticket list with an optional status
// filter, a result cap and in-memory text search.
type TicketList struct {
	loop     *Loop
	admin    bool
	limit    int
	live     *LiveQuery[TicketQuery, []Ticket]
	onChange func(TicketListView)

	mu     sync.Mutex
	search string
}

// OpenTickets opens the ticket list: a patient's own tickets, or every
// ticket for an admin. onChange runs on the loop.
func (c *Client) OpenTickets(status TicketStatus, onChange func(TicketListView)) (*TicketList, error) {
	return c.openTicketList(TicketQuery{Status: normalizeStatus(status)}, onChange)
}

// OpenRecentTickets opens the home screen list: the newest tickets in
// scope, capped at RecentTicketsLimit.
func (c *Client) OpenRecentTickets(onChange func(TicketListView)) (*TicketList, error) {
	return c.openTicketList(TicketQuery{Limit: RecentTicketsLimit}, onChange)
}

func (c *Client) openTicketList(q TicketQuery, onChange func(TicketListView)) (*TicketList, error) {
	creds, user, err := c.Session.principal()
	if err != nil {
		return nil, err
	}
	list := &TicketList{loop: c.loop, admin: user.IsAdmin(), limit: q.Limit, onChange: onChange}
	list.live = NewLiveQuery(c.loop,
		func(ctx context.Context, q TicketQuery, sink func(Snapshot[[]Ticket])) (Release, error) {
			return c.backend.WatchTickets(ctx, creds, q, sink)
		},
		func(Snapshot[[]Ticket]) { list.emit() })
	list.live.SetQuery(q)
	return list, nil
}

func normalizeStatus(status TicketStatus) TicketStatus {
	if status == "all" {
		return ""
	}
	return status
}

// SetStatus switches the status filter; "" or "all" shows every status.
// The old subscription is torn down and its late snapshots ignored.
func (l *TicketList) SetStatus(status TicketStatus) {
	l.live.SetQuery(TicketQuery{Status: normalizeStatus(status), Limit: l.limit})
	l.loop.Post(l.emit)
}

// SetSearch filters the subscribed set in memory by title or
// description, and by id for admins.
func (l *TicketList) SetSearch(text string) {
	l.mu.Lock()
	l.search = text
	l.mu.Unlock()
	l.loop.Post(l.emit)
}

// View computes the current rendering.
func (l *TicketList) View() TicketListView {
	l.mu.Lock()
	search := l.search
	l.mu.Unlock()

	snap, loaded := l.live.Current()
	view := TicketListView{
		Loading: !loaded,
		Err:     snap.Err,
		Status:  l.live.Query().Status,
		Search:  search,
		Counts:  map[TicketStatus]int{},
	}
	if !loaded {
		return view
	}
	for _, t := range snap.Data {
		view.Counts[t.Status]++
	}
	view.Tickets = query.SearchTickets(snap.Data, search, l.admin)
	if len(view.Tickets) == 0 && snap.Err == nil {
		if strings.TrimSpace(search) != "" || view.Status != "" {
			view.EmptyMessage = MsgNoTicketsFiltered
		} else {
			view.EmptyMessage = MsgNoTicketsYet
		}
	}
	return view
}

func (l *TicketList) emit() {
	if l.onChange != nil {
		l.onChange(l.View())
	}
}

// Close releases the subscription.
func (l *TicketList) Close() {
	l.live.Release()
}

// Release lets a Scope own the list.
func (l *TicketList) Release() { l.Close() }

// TicketDetailView is what the detail screen renders.
type TicketDetailView struct {
	Ticket   *Ticket
	Comments []Comment
	Loading  bool
	Err      error
	// AllowedStatuses are the transitions the viewer may apply.
	AllowedStatuses []TicketStatus
	CanManage       bool
	CanComment      bool
	Busy            bool
}

// TicketDetail follows one ticket and its comment thread. Ticket and
// comment snapshots arrive independently and in no fixed relative order.
type TicketDetail struct {
	backend  Backend
	loop     *Loop
	creds    *Credentials
	actor    *User
	id       string
	ticket   *LiveQuery[string, *Ticket]
	comments *LiveQuery[string, []Comment]
	scope    Scope
	guard    Guard
	onChange func(TicketDetailView)
	onGone   func()

	mu     sync.Mutex
	gone   bool
	closed bool
}

// OpenTicket opens the detail screen for ticketID. onGone runs once if
// the ticket is deleted while open; the view closes itself first.
func (c *Client) OpenTicket(ticketID string, onChange func(TicketDetailView), onGone func()) (*TicketDetail, error) {
	creds, user, err := c.Session.principal()
	if err != nil {
		return nil, err
	}
	d := &TicketDetail{
		backend:  c.backend,
		loop:     c.loop,
		creds:    creds,
		actor:    user,
		id:       ticketID,
		onChange: onChange,
		onGone:   onGone,
	}
	d.ticket = NewLiveQuery(c.loop,
		func(ctx context.Context, id string, sink func(Snapshot[*Ticket])) (Release, error) {
			return c.backend.WatchTicket(ctx, creds, id, sink)
		},
		d.onTicket)
	d.comments = NewLiveQuery(c.loop,
		func(ctx context.Context, id string, sink func(Snapshot[[]Comment])) (Release, error) {
			return c.backend.WatchComments(ctx, creds, id, sink)
		},
		func(Snapshot[[]Comment]) { d.emit() })
	d.scope.Add(d.ticket)
	d.scope.Add(d.comments)
	d.ticket.SetQuery(ticketID)
	d.comments.SetQuery(ticketID)
	return d, nil
}

func (d *TicketDetail) onTicket(snap Snapshot[*Ticket]) {
	if snap.Err == nil && snap.Data == nil {
		d.mu.Lock()
		first := !d.gone && !d.closed
		d.gone = true
		d.mu.Unlock()
		if first {
			d.scope.Close()
			if d.onGone != nil {
				d.onGone()
			}
		}
		return
	}
	d.emit()
}

// View computes the current rendering.
func (d *TicketDetail) View() TicketDetailView {
	ticketSnap, ticketLoaded := d.ticket.Current()
	commentSnap, commentsLoaded := d.comments.Current()

	view := TicketDetailView{
		Ticket:    ticketSnap.Data,
		Comments:  commentSnap.Data,
		Loading:   !ticketLoaded || !commentsLoaded,
		Busy:      d.guard.Busy(),
		CanManage: policy.CanManageTickets(d.actor),
	}
	if ticketSnap.Err != nil {
		view.Err = ticketSnap.Err
	} else if commentSnap.Err != nil {
		view.Err = commentSnap.Err
	}
	if view.Ticket != nil {
		view.AllowedStatuses = policy.AllowedStatuses(d.actor, view.Ticket)
		view.CanComment = policy.CanComment(d.actor, view.Ticket)
	}
	return view
}

func (d *TicketDetail) emit() {
	if d.onChange != nil {
		d.onChange(d.View())
	}
}

func (d *TicketDetail) current() (*Ticket, error) {
	d.mu.Lock()
	unavailable := d.closed || d.gone
	d.mu.Unlock()
	if unavailable {
		return nil, ErrClosed
	}
	snap, _ := d.ticket.Current()
	if snap.Data == nil {
		return nil, ErrNotReady
	}
	return snap.Data, nil
}

// run executes a write under the detail's guard and republishes the
// busy flag on both edges.
func (d *TicketDetail) run(fn func() error) error {
	err := d.guard.Run(func() error {
		d.loop.Post(d.emit)
		return fn()
	})
	d.loop.Post(d.emit)
	return err
}

// SetStatus moves the ticket to status. Non-admins and transitions off
// the lifecycle are rejected before any call.
func (d *TicketDetail) SetStatus(ctx context.Context, status TicketStatus) error {
	ticket, err := d.current()
	if err != nil {
		return err
	}
	if !policy.CanManageTickets(d.actor) {
		return formError(MsgNotAllowed)
	}
	if !policy.IsValidTransition(ticket.Status, status) {
		return formError(MsgInvalidTransition)
	}
	return d.run(func() error {
		_, err := d.backend.UpdateTicket(ctx, d.creds, d.id, TicketChange{Status: &status})
		return err
	})
}

// SetPriority changes the ticket's priority. Admin only.
func (d *TicketDetail) SetPriority(ctx context.Context, priority TicketPriority) error {
	if _, err := d.current(); err != nil {
		return err
	}
	if !policy.CanManageTickets(d.actor) {
		return formError(MsgNotAllowed)
	}
	if !priority.Valid() {
		return formError(MsgInvalidPriority)
	}
	return d.run(func() error {
		_, err := d.backend.UpdateTicket(ctx, d.creds, d.id, TicketChange{Priority: &priority})
		return err
	})
}

// Delete removes the ticket. Admin only.
func (d *TicketDetail) Delete(ctx context.Context) error {
	if _, err := d.current(); err != nil {
		return err
	}
	if !policy.CanManageTickets(d.actor) {
		return formError(MsgNotAllowed)
	}
	return d.run(func() error {
		return d.backend.DeleteTicket(ctx, d.creds, d.id)
	})
}

// AddComment appends content to the thread. Blank comments are rejected
// locally.
func (d *TicketDetail) AddComment(ctx context.Context, content string) error {
	ticket, err := d.current()
	if err != nil {
		return err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return formError(MsgEmptyComment)
	}
	if !policy.CanComment(d.actor, ticket) {
		return formError(MsgNotAllowed)
	}
	return d.run(func() error {
		_, err := d.backend.AddComment(ctx, d.creds, d.id, content)
		return err
	})
}

// Close releases both subscriptions.
func (d *TicketDetail) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.scope.Close()
}

// Release lets a Scope own the detail.
func (d *TicketDetail) Release() { d.Close() }

// UserDirectoryView is what the admin user directory renders.
type UserDirectoryView struct {
	Users   []User
	Loading bool
	Err     error
	Search  string
}

// UserDirectory is the admin's live user list with name/sector search.
type UserDirectory struct {
	live     *LiveQuery[struct{}, []User]
	onChange func(UserDirectoryView)
	loop     *Loop

	mu     sync.Mutex
	search string
}

// OpenUsers opens the user directory. Admin only; the check runs locally
// and again in the service.
func (c *Client) OpenUsers(onChange func(UserDirectoryView)) (*UserDirectory, error) {
	creds, user, err := c.Session.principal()
	if err != nil {
		return nil, err
	}
	if !policy.CanListUsers(user) {
		return nil, formError(MsgNotAllowed)
	}
	dir := &UserDirectory{onChange: onChange, loop: c.loop}
	dir.live = NewLiveQuery(c.loop,
		func(ctx context.Context, _ struct{}, sink func(Snapshot[[]User])) (Release, error) {
			return c.backend.WatchUsers(ctx, creds, sink)
		},
		func(Snapshot[[]User]) { dir.emit() })
	dir.live.SetQuery(struct{}{})
	return dir, nil
}

// SetSearch filters by name or sector.
func (u *UserDirectory) SetSearch(text string) {
	u.mu.Lock()
	u.search = text
	u.mu.Unlock()
	u.loop.Post(u.emit)
}

// View computes the current rendering.
func (u *UserDirectory) View() UserDirectoryView {
	u.mu.Lock()
	search := u.search
	u.mu.Unlock()
	snap, loaded := u.live.Current()
	return UserDirectoryView{
		Users:   query.SearchUsers(snap.Data, search),
		Loading: !loaded,
		Err:     snap.Err,
		Search:  search,
	}
}

func (u *UserDirectory) emit() {
	if u.onChange != nil {
		u.onChange(u.View())
	}
}

// Close releases the subscription.
func (u *UserDirectory) Close() { u.live.Release() }

// Release lets a Scope own the directory.
func (u *UserDirectory) Release() { u.Close() }

// CountByCategory tallies tickets per category, every category present.
func CountByCategory(tickets []Ticket) map[TicketCategory]int {
	counts := make(map[TicketCategory]int, len(domain.TicketCategories))
	for _, category := range domain.TicketCategories {
		counts[category] = 0
	}
	for _, t := range tickets {
		counts[t.Category]++
	}
	return counts
}

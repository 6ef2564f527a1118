package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// fakeSub is one subscription opened by fakeWatch.
type fakeSub struct {
	query    string
	sink     func(Snapshot[int])
	released bool
}

type fakeWatch struct {
	mu   sync.Mutex
	subs []*fakeSub
	fail error
}

func (f *fakeWatch) watch(_ context.Context, q string, sink func(Snapshot[int])) (Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	sub := &fakeSub{query: q, sink: sink}
	f.subs = append(f.subs, sub)
	return func() {
		f.mu.Lock()
		sub.released = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeWatch) sub(i int) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[i]
}

func (f *fakeWatch) released(i int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[i].released
}

func (f *fakeWatch) opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	loop := NewLoop()
	t.Cleanup(loop.Close)
	return loop
}

func TestLiveQueryDropsSnapshotsFromReplacedSubscription(t *testing.T) {
	loop := newTestLoop(t)
	watch := &fakeWatch{}
	var got []int
	live := NewLiveQuery(loop, watch.watch, func(s Snapshot[int]) { got = append(got, s.Data) })

	live.SetQuery("all")
	watch.sub(0).sink(Snapshot[int]{Data: 1})
	live.SetQuery("resolved")
	assert.True(t, watch.released(0))

	// late delivery from the first subscription
	watch.sub(0).sink(Snapshot[int]{Data: 99})
	watch.sub(1).sink(Snapshot[int]{Data: 2})
	loop.Flush()

	assert.Equal(t, []int{1, 2}, got)
	current, loaded := live.Current()
	assert.True(t, loaded)
	assert.Equal(t, 2, current.Data)
	assert.Equal(t, "resolved", live.Query())
	assert.Equal(t, uint64(2), live.Generation())
}

func TestLiveQuerySameQueryIsNoop(t *testing.T) {
	loop := newTestLoop(t)
	watch := &fakeWatch{}
	live := NewLiveQuery[string, int](loop, watch.watch, nil)

	live.SetQuery("open")
	live.SetQuery("open")
	assert.Equal(t, 1, watch.opened())
	assert.Equal(t, uint64(1), live.Generation())
	assert.False(t, watch.released(0))

	_, loaded := live.Current()
	assert.False(t, loaded)
}

func TestLiveQueryReportsWatchError(t *testing.T) {
	loop := newTestLoop(t)
	boom := apperrors.NewForbidden("only admins can list users")
	watch := &fakeWatch{fail: boom}
	live := NewLiveQuery[string, int](loop, watch.watch, nil)

	live.SetQuery("users")
	current, loaded := live.Current()
	require.True(t, loaded)
	assert.ErrorIs(t, current.Err, boom)
}

func TestLiveQueryReleaseStopsDelivery(t *testing.T) {
	loop := newTestLoop(t)
	watch := &fakeWatch{}
	calls := 0
	live := NewLiveQuery(loop, watch.watch, func(Snapshot[int]) { calls++ })

	live.SetQuery("mine")
	live.Release()
	live.Release()
	assert.True(t, watch.released(0))

	watch.sub(0).sink(Snapshot[int]{Data: 5})
	live.SetQuery("other")
	loop.Flush()
	assert.Zero(t, calls)
	assert.Equal(t, 1, watch.opened())
}

type releaseRecorder struct {
	name  string
	order *[]string
}

func (r releaseRecorder) Release() { *r.order = append(*r.order, r.name) }

func TestScopeReleasesInReverseOrder(t *testing.T) {
	var order []string
	var scope Scope
	scope.Add(releaseRecorder{"ticket", &order})
	scope.Add(releaseRecorder{"comments", &order})

	scope.Close()
	scope.Close()
	assert.Equal(t, []string{"comments", "ticket"}, order)

	scope.Add(releaseRecorder{"late", &order})
	assert.Equal(t, []string{"comments", "ticket", "late"}, order)
}

func TestGuardRejectsConcurrentRun(t *testing.T) {
	var guard Guard
	var inner error
	err := guard.Run(func() error {
		assert.True(t, guard.Busy())
		inner = guard.Run(func() error { return nil })
		return errors.New("failed")
	})
	assert.EqualError(t, err, "failed")
	assert.ErrorIs(t, inner, ErrBusy)
	assert.False(t, guard.Busy())
	assert.NoError(t, guard.Run(func() error { return nil }))
}

func TestLoopRunsCallbacksInOrder(t *testing.T) {
	loop := newTestLoop(t)
	gate := make(chan struct{})
	loop.Post(func() { <-gate })

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		loop.Post(func() {
			got = append(got, i)
			if i == 0 {
				loop.Post(func() { got = append(got, -1) })
			}
		})
	}
	close(gate)
	loop.Flush()

	require.Len(t, got, 101)
	assert.Equal(t, 0, got[0])
	assert.Equal(t, 99, got[99])
	assert.Equal(t, -1, got[100])
}

func TestLoopDropsWorkAfterClose(t *testing.T) {
	loop := NewLoop()
	loop.Close()
	ran := false
	loop.Post(func() { ran = true })
	loop.Flush()
	loop.Close()
	assert.False(t, ran)
}

func TestEventReader(t *testing.T) {
	body := strings.Join([]string{
		": keepalive",
		"",
		"id: 1",
		"event: snapshot",
		`data: {"data":[]}`,
		"",
		"event: error",
		"data: line one",
		"data: line two",
		"retry: 100",
		"",
		"event: snapshot",
		"data: partial",
	}, "\n")
	reader := newEventReader(strings.NewReader(body))

	require.True(t, reader.Next())
	assert.Equal(t, streamEvent{ID: "1", Type: "snapshot", Data: `{"data":[]}`}, reader.Event())

	require.True(t, reader.Next())
	assert.Equal(t, "error", reader.Event().Type)
	assert.Equal(t, "line one\nline two", reader.Event().Data)

	assert.False(t, reader.Next())
	assert.NoError(t, reader.Err())
}

func TestAuthMessage(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"form":        {formError(MsgMissingCredentials), MsgMissingCredentials},
		"credentials": {apperrors.NewDomainError(apperrors.CodeInvalidCredentials, "bad", 401, nil), MsgInvalidCredentials},
		"email":       {apperrors.NewDomainError(apperrors.CodeEmailInUse, "taken", 409, nil), MsgEmailInUse},
		"weak":        {apperrors.NewDomainError(apperrors.CodeWeakPassword, "short", 400, nil), MsgWeakPassword},
		"other":       {errors.New("network down"), MsgAuthFallback},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, AuthMessage(tc.err))
		})
	}

	assert.Equal(t, MsgEmptyComment, ErrorMessage(formError(MsgEmptyComment), MsgAddCommentFailed))
	assert.Equal(t, MsgAddCommentFailed, ErrorMessage(errors.New("x"), MsgAddCommentFailed))
}

func TestValidateTicketDraft(t *testing.T) {
	valid := TicketDraft{Title: "Impresora", Description: "No imprime", Location: "Box 3"}
	assert.NoError(t, ValidateTicketDraft(valid))

	for _, draft := range []TicketDraft{
		{Description: "x", Location: "y"},
		{Title: "x", Description: "  ", Location: "y"},
		{Title: "x", Description: "y"},
		{Title: "x", Description: "y", Location: "z", Category: "coffee"},
	} {
		err := ValidateTicketDraft(draft)
		var form *FormError
		require.ErrorAs(t, err, &form)
		assert.Equal(t, MsgMissingTicketFields, form.Message)
	}
}

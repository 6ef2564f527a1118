// Package realtime keeps live queries current. Each subscription re-runs
// its loader whenever a relevant domain event arrives and hands complete
// snapshots to a sink, oldest first, collapsing bursts into one reload.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/collipulli/helpdesk/internal/events"
	"github.com/collipulli/helpdesk/internal/observability"
)

// Snapshot is the full result of one query evaluation.
type Snapshot struct {
	Seq  uint64
	Data any
	Err  error
}

// Loader evaluates the query.
type Loader func(ctx context.Context) (any, error)

// Sink receives snapshots on the subscription's goroutine.
type Sink func(Snapshot)

// Interest selects the events that invalidate a subscription.
type Interest func(events.Event) bool

// Hub tracks open subscriptions and routes events to them.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Attach feeds every event published on d into the hub.
func (h *Hub) Attach(d events.Dispatcher) {
	events.SubscribeAll(d, func(_ context.Context, event events.Event) error {
		h.Notify(event)
		return nil
	})
}

// Notify marks every interested subscription dirty. It never blocks.
func (h *Hub) Notify(event events.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if sub.interest == nil || sub.interest(event) {
			sub.markDirty()
		}
	}
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Subscribe registers a live query and schedules its first evaluation.
// kind labels the subscription in metrics and logs.
func (h *Hub) Subscribe(kind string, interest Interest, load Loader, sink Sink) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		hub:      h,
		kind:     kind,
		interest: interest,
		load:     load,
		sink:     sink,
		dirty:    make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	h.metrics.SubscriptionOpened(kind)

	sub.markDirty()
	go sub.run()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if ok {
		h.metrics.SubscriptionClosed(sub.kind)
	}
}

// Subscription is one live query. Close releases it.
type Subscription struct {
	hub      *Hub
	kind     string
	interest Interest
	load     Loader
	sink     Sink
	dirty    chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
	seq      uint64
}

func (s *Subscription) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Subscription) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.dirty:
		}

		data, err := s.load(s.ctx)
		if s.ctx.Err() != nil {
			return
		}
		if err != nil {
			s.hub.logger.Debug("live query load failed", zap.String("kind", s.kind), zap.Error(err))
		}
		s.seq++
		s.sink(Snapshot{Seq: s.seq, Data: data, Err: err})
		s.hub.metrics.SnapshotDelivered(s.kind)
	}
}

// Close stops future evaluations. A snapshot already being delivered
// may still reach the sink; Done closes once the goroutine has exited.
// Close is idempotent and safe to call from inside the sink.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		s.hub.remove(s)
	})
}

// Done is closed when the subscription goroutine exits.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

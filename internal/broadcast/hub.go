package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// DefaultQueueSize is how many undelivered snapshots a subscriber may have
// before new ones are dropped.
const DefaultQueueSize = 64

// Hub is an in-process broadcast medium. Observers Join it and exchange
// snapshots through their Endpoints.
type Hub struct {
	mu        sync.RWMutex
	endpoints map[*Endpoint]struct{}
	queueSize int
	logger    *slog.Logger
	pending   sync.WaitGroup
}

// NewHub creates a hub. queueSize <= 0 uses DefaultQueueSize.
func NewHub(queueSize int, logger *slog.Logger) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		endpoints: make(map[*Endpoint]struct{}),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Join attaches a new observer identified by origin.
func (h *Hub) Join(origin string) *Endpoint {
	e := &Endpoint{hub: h, origin: origin, subs: make(map[*subscription]struct{})}
	h.mu.Lock()
	h.endpoints[e] = struct{}{}
	h.mu.Unlock()
	return e
}

// Settle blocks until every queued snapshot has been handed to its subscriber
// and the subscriber returned.
func (h *Hub) Settle() {
	h.pending.Wait()
}

func (h *Hub) leave(e *Endpoint) {
	h.mu.Lock()
	delete(h.endpoints, e)
	h.mu.Unlock()
}

func (h *Hub) publish(from *Endpoint, board schema.Board) {
	h.mu.RLock()
	targets := make([]*Endpoint, 0, len(h.endpoints))
	for e := range h.endpoints {
		if e != from {
			targets = append(targets, e)
		}
	}
	h.mu.RUnlock()

	for _, e := range targets {
		e.enqueue(board)
	}
}

// Endpoint is one observer's view of a Hub. It implements Channel.
type Endpoint struct {
	hub    *Hub
	origin string

	mu     sync.Mutex
	subs   map[*subscription]struct{}
	closed bool
}

type subscription struct {
	queue chan schema.Board
	done  chan struct{}
	once  sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// Origin identifies the observer.
func (e *Endpoint) Origin() string {
	return e.origin
}

// Publish queues board for every other endpoint on the hub. It never blocks:
// a subscriber whose queue is full misses the snapshot.
func (e *Endpoint) Publish(ctx context.Context, board schema.Board) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e.hub.publish(e, board.Clone())
	return nil
}

func (e *Endpoint) Subscribe(fn func(schema.Board)) func() {
	sub := &subscription{
		queue: make(chan schema.Board, e.hub.queueSize),
		done:  make(chan struct{}),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return func() {}
	}
	e.subs[sub] = struct{}{}
	e.mu.Unlock()

	go func() {
		for {
			select {
			case b := <-sub.queue:
				fn(b)
				e.hub.pending.Done()
			case <-sub.done:
				// Release anything still queued so Settle does not hang.
				for {
					select {
					case <-sub.queue:
						e.hub.pending.Done()
					default:
						return
					}
				}
			}
		}
	}()

	return func() {
		e.mu.Lock()
		delete(e.subs, sub)
		e.mu.Unlock()
		sub.stop()
	}
}

func (e *Endpoint) enqueue(board schema.Board) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for sub := range e.subs {
		e.hub.pending.Add(1)
		select {
		case sub.queue <- board.Clone():
		default:
			e.hub.pending.Done()
			e.hub.logger.Warn("subscriber queue full, dropping snapshot", "origin", e.origin, "board", board.ID)
		}
	}
}

// Close detaches the endpoint and stops its subscriptions.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	subs := e.subs
	e.subs = make(map[*subscription]struct{})
	e.mu.Unlock()

	e.hub.leave(e)
	for sub := range subs {
		sub.stop()
	}
	return nil
}

// Package broadcast fans whole-board snapshots out to the other observers of
// the same boards. Delivery is best-effort; the last snapshot received for a
// board id wins at each receiver.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-canvas/pkg/schema"
)

// ErrClosed is returned when publishing on a closed channel.
var ErrClosed = errors.New("broadcast channel closed")

// Channel publishes board snapshots to every other observer and delivers theirs.
// A publisher never receives its own snapshots.
type Channel interface {
	Publish(ctx context.Context, board schema.Board) error
	// Subscribe registers fn for snapshots from other observers. Calls for one
	// subscription are sequential.
	Subscribe(fn func(schema.Board)) (unsubscribe func())
	Close() error
}

// Envelope is the wire form of a published snapshot.
type Envelope struct {
	Origin string       `json:"origin"`
	Board  schema.Board `json:"board"`
	SentAt time.Time    `json:"sentAt"`
}

func encode(origin string, board schema.Board) ([]byte, error) {
	return json.Marshal(Envelope{Origin: origin, Board: board, SentAt: time.Now().UTC()})
}

func decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	if env.Board.ID == "" {
		return Envelope{}, errors.New("envelope has no board id")
	}
	return env, nil
}

// subscribers is the callback registry shared by the network transports.
type subscribers struct {
	mu   sync.RWMutex
	next int
	fns  map[int]func(schema.Board)
}

func (s *subscribers) add(fn func(schema.Board)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(schema.Board))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

func (s *subscribers) deliver(board schema.Board) {
	s.mu.RLock()
	fns := make([]func(schema.Board), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(board.Clone())
	}
}

// Noop is the channel used when no transport is available: publishing succeeds
// and nothing is ever received.
type Noop struct{}

func (Noop) Publish(context.Context, schema.Board) error { return nil }
func (Noop) Subscribe(func(schema.Board)) func()         { return func() {} }
func (Noop) Close() error                                { return nil }

// Fanout publishes to every channel and merges what they deliver.
type Fanout struct {
	channels []Channel
	logger   *slog.Logger
}

// NewFanout combines channels. Nil channels are skipped.
func NewFanout(logger *slog.Logger, channels ...Channel) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fanout{logger: logger}
	for _, ch := range channels {
		if ch != nil {
			f.channels = append(f.channels, ch)
		}
	}
	return f
}

// Publish sends to every channel. A failing transport does not stop the others.
func (f *Fanout) Publish(ctx context.Context, board schema.Board) error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Publish(ctx, board); err != nil {
			f.logger.WarnContext(ctx, "publish failed on one transport", "board", board.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Subscribe(fn func(schema.Board)) func() {
	// Transports deliver from their own goroutines; keep fn sequential.
	var mu sync.Mutex
	wrapped := func(b schema.Board) {
		mu.Lock()
		defer mu.Unlock()
		fn(b)
	}

	cancels := make([]func(), 0, len(f.channels))
	for _, ch := range f.channels {
		cancels = append(cancels, ch.Subscribe(wrapped))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func (f *Fanout) Close() error {
	var errs []error
	for _, ch := range f.channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

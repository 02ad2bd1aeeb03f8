package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/julianstephens/goaltrack/internal/logger"
)

// Subscription delivers the full result of a query now and after every
// committed change. The channel holds one snapshot; a slow reader skips
// straight to the latest one.
type Subscription[T any] struct {
	id   string
	ch   chan T
	stop chan struct{}
	hub  *hub
	mu   sync.Mutex
	once sync.Once
	done bool
}

// ID identifies the subscription in logs.
func (s *Subscription[T]) ID() string { return s.id }

// Updates returns the snapshot channel. It is closed by Close.
func (s *Subscription[T]) Updates() <-chan T { return s.ch }

// Close stops delivery and closes the channel. It is safe to call twice.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.hub.remove(s.id)
		close(s.stop)
		s.mu.Lock()
		s.done = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// send replaces any unread snapshot with v.
func (s *Subscription[T]) send(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

type refresher struct {
	refresh func(ctx context.Context)
	close   func()
}

type hub struct {
	mu   sync.Mutex
	subs map[string]refresher
}

func newHub() *hub {
	return &hub{subs: map[string]refresher{}}
}

func (h *hub) add(id string, r refresher) {
	h.mu.Lock()
	h.subs[id] = r
	h.mu.Unlock()
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *hub) snapshot() []refresher {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]refresher, 0, len(h.subs))
	for _, r := range h.subs {
		out = append(out, r)
	}
	return out
}

func (h *hub) publish(ctx context.Context) {
	for _, r := range h.snapshot() {
		r.refresh(ctx)
	}
}

func (h *hub) closeAll() {
	for _, r := range h.snapshot() {
		r.close()
	}
}

// subscribe registers query, delivers its first result, and keeps the
// subscription alive until Close or until ctx is done.
func subscribe[T any](ctx context.Context, h *hub, name string, query func(context.Context) (T, error)) (*Subscription[T], error) {
	first, err := query(ctx)
	if err != nil {
		return nil, err
	}

	s := &Subscription[T]{id: uuid.NewString(), ch: make(chan T, 1), stop: make(chan struct{}), hub: h}
	s.send(first)
	h.add(s.id, refresher{
		refresh: func(ctx context.Context) {
			v, err := query(ctx)
			if err != nil {
				logger.Warn("Subscription refresh failed", "subscription", name, "id", s.id, "error", err)
				return
			}
			s.send(v)
		},
		close: s.Close,
	})
	logger.Debug("Subscribed", "subscription", name, "id", s.id)

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.stop:
		}
	}()
	return s, nil
}

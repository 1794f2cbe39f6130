package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var errMemoryBusClosed = errors.New("notify: memory bus is closed")

// MemoryBus delivers events in-process, in subscription order.
type MemoryBus struct {
	mu     sync.RWMutex
	closed bool
	order  []*subscription          // subscription order, for deterministic delivery
	subs   map[string]*subscription // subID -> subscription
}

// NewMemoryBus creates an in-memory Bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]*subscription),
	}
}

// Emit delivers ev to every matching subscription. Synchronous subscriptions
// run before Emit returns; queued ones only need room in their queue.
func (m *MemoryBus) Emit(ctx context.Context, ev Event) error {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return errMemoryBusClosed
	}
	targets := make([]*subscription, 0, len(m.order))
	for _, s := range m.order {
		if s.matches(ev.Type) {
			targets = append(targets, s)
		}
	}
	m.mu.RUnlock()

	var errs []error
	for _, s := range targets {
		if err := s.deliver(ctx, ev); err != nil && !errors.Is(err, errSubscriptionClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers fn for topic.
func (m *MemoryBus) Subscribe(_ context.Context, topic string, fn HandlerFunc, opts ...Option) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", errMemoryBusClosed
	}

	sub, err := newSubscription(topic, fn, opts...)
	if err != nil {
		return "", err
	}
	m.order = append(m.order, sub)
	m.subs[sub.id] = sub

	log.Debug().Str("subscription_id", sub.id).Str("topic", topic).Msg("new subscription created")
	return sub.id, nil
}

// Unsubscribe removes a subscription.
func (m *MemoryBus) Unsubscribe(_ context.Context, id string) error {
	m.mu.Lock()
	sub, ok := m.subs[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.subs, id)
	for i, s := range m.order {
		if s == sub {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	sub.close()
	log.Debug().Str("subscription_id", id).Str("topic", sub.topic).Msg("subscription removed")
	return nil
}

// Close stops every subscription.
func (m *MemoryBus) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := m.order
	m.order = nil
	m.subs = make(map[string]*subscription)
	m.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(len(subs))
	for _, s := range subs {
		go func(s *subscription) {
			defer wg.Done()
			s.close()
		}(s)
	}
	wg.Wait()

	log.Info().Int("subscriptions", len(subs)).Msg("memory bus closed")
	return nil
}

var _ Bus = (*MemoryBus)(nil)

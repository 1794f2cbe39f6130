package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	errInvalidHandler     = errors.New("notify: handler must not be nil")
	errEmptyTopic         = errors.New("notify: topic must not be empty")
	errSubscriptionClosed = errors.New("notify: subscription is closed")
	errQueueFull          = errors.New("notify: subscription queue is full")
)

// subscription is shared by the memory and redis backends.
type subscription struct {
	id      string
	topic   string
	fn      HandlerFunc
	options *SubscriptionOptions

	mu     sync.RWMutex
	closed bool

	queue  chan Event
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func newSubscription(topic string, fn HandlerFunc, opts ...Option) (*subscription, error) {
	if topic == "" {
		return nil, errEmptyTopic
	}
	if fn == nil {
		return nil, errInvalidHandler
	}

	options := DefaultSubscriptionOptions()
	options.Apply(opts...)

	s := &subscription{
		id:      uuid.NewString(),
		topic:   topic,
		fn:      fn,
		options: options,
	}

	if options.QueueSize > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.queue = make(chan Event, options.QueueSize)
		s.wg.Add(1)
		go s.runWorker(ctx)
	}
	return s, nil
}

// matches reports whether the subscription wants events of type topic.
func (s *subscription) matches(topic string) bool {
	return s.topic == TopicAll || s.topic == topic
}

func (s *subscription) runWorker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			// drain what was accepted before close
			for {
				select {
				case ev := <-s.queue:
					s.invoke(context.Background(), ev)
				default:
					return
				}
			}
		case ev := <-s.queue:
			s.invoke(context.Background(), ev)
		}
	}
}

// deliver hands ev to the handler, directly or through the queue.
func (s *subscription) deliver(ctx context.Context, ev Event) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errSubscriptionClosed
	}
	if s.queue == nil {
		s.mu.RUnlock()
		s.invoke(ctx, ev)
		return nil
	}
	defer s.mu.RUnlock()

	select {
	case s.queue <- ev:
		return nil
	default:
		log.Warn().Str("subscription_id", s.id).Str("topic", s.topic).Str("event", ev.Type).Msg("subscription queue full, dropping event")
		return errQueueFull
	}
}

// invoke runs the handler, turning a panic into a log line.
func (s *subscription) invoke(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("subscription_id", s.id).Str("topic", s.topic).Str("event", ev.Type).Str("panic", fmt.Sprint(r)).Msg("notification handler panicked")
		}
	}()
	s.fn(ctx, ev)
}

// close stops the worker after draining queued events. Safe to call twice.
func (s *subscription) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	log.Debug().Str("subscription_id", s.id).Str("topic", s.topic).Msg("subscription closed")
}

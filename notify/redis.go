package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var errRedisBusClosed = errors.New("notify: redis bus is closed")

// DefaultChannelPrefix namespaces the Redis channels used by RedisBus.
const DefaultChannelPrefix = "hookkit:"

type redisSubscription struct {
	*subscription
	pubsub *redis.PubSub
	done   chan struct{}
}

// RedisBus publishes events as JSON on Redis channels named prefix+topic.
// Subscribers in any process connected to the same Redis receive them.
type RedisBus struct {
	client redis.UniversalClient
	prefix string

	mu     sync.RWMutex
	closed bool
	subs   map[string]*redisSubscription
}

// NewRedisBus creates a Redis-backed Bus. An empty prefix uses DefaultChannelPrefix.
func NewRedisBus(client redis.UniversalClient, prefix string) *RedisBus {
	if client == nil {
		panic("notify: redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisBus{
		client: client,
		prefix: prefix,
		subs:   make(map[string]*redisSubscription),
	}
}

func (r *RedisBus) channel(topic string) string {
	return r.prefix + topic
}

// Emit publishes ev on the channel for its type.
func (r *RedisBus) Emit(ctx context.Context, ev Event) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return errRedisBusClosed
	}

	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event %s: %w", ev.Type, err)
	}

	if err := r.client.Publish(ctx, r.channel(ev.Type), payload).Err(); err != nil {
		log.Error().Err(err).Str("event", ev.Type).Str("extension", ev.Extension).Msg("failed to publish event to redis")
		return fmt.Errorf("notify: publish %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe opens a Redis subscription for topic. TopicAll uses a pattern
// subscription over the whole prefix.
func (r *RedisBus) Subscribe(ctx context.Context, topic string, fn HandlerFunc, opts ...Option) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", errRedisBusClosed
	}

	base, err := newSubscription(topic, fn, opts...)
	if err != nil {
		return "", err
	}

	var ps *redis.PubSub
	if topic == TopicAll {
		ps = r.client.PSubscribe(ctx, r.channel("*"))
	} else {
		ps = r.client.Subscribe(ctx, r.channel(topic))
	}
	// wait for the subscription to be confirmed so no event emitted after
	// Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		base.close()
		return "", fmt.Errorf("notify: subscribe %s: %w", topic, err)
	}

	sub := &redisSubscription{
		subscription: base,
		pubsub:       ps,
		done:         make(chan struct{}),
	}
	r.subs[sub.id] = sub
	go sub.listen()

	log.Debug().Str("subscription_id", sub.id).Str("topic", topic).Msg("new redis subscription created")
	return sub.id, nil
}

func (rs *redisSubscription) listen() {
	defer close(rs.done)
	for msg := range rs.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Error().Err(err).Str("subscription_id", rs.id).Str("channel", msg.Channel).Msg("failed to unmarshal event from redis")
			continue
		}
		if err := rs.deliver(context.Background(), ev); err != nil {
			if errors.Is(err, errSubscriptionClosed) {
				return
			}
			log.Warn().Err(err).Str("subscription_id", rs.id).Str("event", ev.Type).Msg("failed to deliver event from redis")
		}
	}
}

func (rs *redisSubscription) stop() {
	if err := rs.pubsub.Close(); err != nil {
		log.Error().Err(err).Str("subscription_id", rs.id).Msg("error closing redis pubsub")
	}
	<-rs.done
	rs.close()
}

// Unsubscribe closes the Redis subscription and waits for its listener.
func (r *RedisBus) Unsubscribe(_ context.Context, id string) error {
	r.mu.Lock()
	sub, ok := r.subs[id]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.subs, id)
	r.mu.Unlock()

	sub.stop()
	log.Debug().Str("subscription_id", id).Str("topic", sub.topic).Msg("redis subscription removed")
	return nil
}

// Close stops every subscription. The Redis client is left open; it belongs to the caller.
func (r *RedisBus) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	subs := make([]*redisSubscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.subs = make(map[string]*redisSubscription)
	r.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
	log.Info().Int("subscriptions", len(subs)).Msg("redis bus closed")
	return nil
}

var _ Bus = (*RedisBus)(nil)

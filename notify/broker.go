package notify

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var errBrokerClosed = errors.New("notify: broker not initialized or closed")

// Broker wraps a Bus so the backend can be chosen at construction time.
type Broker struct {
	mu       sync.RWMutex
	impl     Bus
	defaults []Option // applied before per-call subscription options
}

// BrokerOption configures a Broker.
type BrokerOption func(*brokerOptions)

type brokerOptions struct {
	redisClient   redis.UniversalClient
	channelPrefix string
	subOpts       []Option
}

// WithRedisClient selects the Redis backend.
func WithRedisClient(client redis.UniversalClient) BrokerOption {
	return func(o *brokerOptions) {
		o.redisClient = client
	}
}

// WithChannelPrefix sets the Redis channel prefix. Ignored by the memory backend.
func WithChannelPrefix(prefix string) BrokerOption {
	return func(o *brokerOptions) {
		o.channelPrefix = prefix
	}
}

// WithSubscriptionDefaults sets options applied to every Subscribe call.
func WithSubscriptionDefaults(opts ...Option) BrokerOption {
	return func(o *brokerOptions) {
		o.subOpts = append(o.subOpts, opts...)
	}
}

// New creates a Broker. Without WithRedisClient it uses a MemoryBus.
func New(opts ...BrokerOption) *Broker {
	options := &brokerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var impl Bus
	if options.redisClient != nil {
		log.Info().Str("prefix", options.channelPrefix).Msg("initializing notification broker with redis backend")
		impl = NewRedisBus(options.redisClient, options.channelPrefix)
	} else {
		log.Info().Msg("initializing notification broker with memory backend")
		impl = NewMemoryBus()
	}
	return &Broker{impl: impl, defaults: options.subOpts}
}

func (b *Broker) bus() (Bus, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.impl == nil {
		return nil, errBrokerClosed
	}
	return b.impl, nil
}

// Emit delegates to the backend.
func (b *Broker) Emit(ctx context.Context, ev Event) error {
	impl, err := b.bus()
	if err != nil {
		return err
	}
	return impl.Emit(ctx, ev)
}

// Subscribe delegates to the backend.
func (b *Broker) Subscribe(ctx context.Context, topic string, fn HandlerFunc, opts ...Option) (string, error) {
	impl, err := b.bus()
	if err != nil {
		return "", err
	}
	return impl.Subscribe(ctx, topic, fn, append(slices.Clone(b.defaults), opts...)...)
}

// Unsubscribe delegates to the backend.
func (b *Broker) Unsubscribe(ctx context.Context, id string) error {
	impl, err := b.bus()
	if err != nil {
		return err
	}
	return impl.Unsubscribe(ctx, id)
}

// Close closes the backend. Later calls are no-ops.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.impl == nil {
		return nil
	}
	err := b.impl.Close()
	b.impl = nil
	return err
}

// Backend returns the underlying Bus, or nil once closed.
func (b *Broker) Backend() Bus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.impl
}

var _ Bus = (*Broker)(nil)

// Package global holds process-wide default instances of the engine's
// components and assembles them from configuration.
package global

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/toolink/hookkit/config"
	"github.com/toolink/hookkit/extension"
	"github.com/toolink/hookkit/hook"
	"github.com/toolink/hookkit/notify"
)

// initClient is the Redis client Init created, closed by Shutdown.
var initClient atomic.Pointer[redis.Client]

// Init builds a dispatcher, notification broker and extension manager from
// cfg and installs them as the globals. The previous globals are replaced,
// not shut down; call Shutdown first when re-initializing.
func Init(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.ValidateAndPrepare(); err != nil {
		return err
	}
	zerolog.SetGlobalLevel(cfg.Level())

	broker, client, err := newBroker(ctx, cfg.Notify)
	if err != nil {
		return err
	}

	overrides := make(map[string]extension.Config, len(cfg.Extensions))
	for name, override := range cfg.Extensions {
		overrides[name] = extension.Config(override)
	}

	d := hook.New()
	m := extension.New(d,
		extension.WithHostVersion(cfg.HostVersion),
		extension.WithEmitter(broker),
		extension.WithOverrides(overrides),
	)

	SetDispatcher(d)
	SetBroker(broker)
	SetExtensionManager(m)
	if prev := initClient.Swap(client); prev != nil {
		log.Warn().Msg("previous redis client replaced without shutdown, closing it")
		_ = prev.Close()
	}

	log.Info().
		Str("host_version", cfg.HostVersion).
		Str("notify_backend", cfg.Notify.Backend).
		Int("extension_overrides", len(overrides)).
		Msg("hook engine initialized")
	return nil
}

// Shutdown destroys the global extension manager and closes the global broker.
func Shutdown(ctx context.Context) error {
	GetExtensionManager().Destroy(ctx)

	var errs []error
	if err := GetBroker().Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close notification broker: %w", err))
	}
	if client := initClient.Swap(nil); client != nil {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	return errors.Join(errs...)
}

func newBroker(ctx context.Context, cfg config.NotifyConfig) (*notify.Broker, *redis.Client, error) {
	opts := []notify.BrokerOption{
		notify.WithChannelPrefix(cfg.ChannelPrefix),
	}
	if cfg.QueueSize > 0 {
		opts = append(opts, notify.WithSubscriptionDefaults(notify.WithQueueSize(cfg.QueueSize)))
	}

	if cfg.Backend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, errors.Join(
				fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err),
				client.Close(),
			)
		}
		return notify.New(append(opts, notify.WithRedisClient(client))...), client, nil
	}
	return notify.New(opts...), nil, nil
}

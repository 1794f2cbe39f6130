// Package meta carries per-invocation metadata on a context.Context.
// The hook dispatcher attaches one Metadata to the context of every handler
// call so a handler can tell which hook and registration it is serving.
package meta

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Keys set by the hook dispatcher.
const (
	HookName     = "hook.name"
	HookID       = "hook.id"
	HookOwner    = "hook.owner"
	HookPriority = "hook.priority"
)

type metadataKey struct{}

// Metadata is a concurrency-safe key/value store.
type Metadata struct {
	mu   sync.RWMutex
	data map[string]any
}

// New creates an empty Metadata.
func New() *Metadata {
	return &Metadata{
		data: make(map[string]any),
	}
}

// Set stores value under key.
func (m *Metadata) Set(key string, value any) {
	if m == nil {
		log.Error().Str("key", key).Msg("attempted to set metadata on nil *metadata instance")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		m.data = make(map[string]any)
	}
	m.data[key] = value
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	return value, ok
}

// Len returns the number of stored entries.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// WithContext returns a child of ctx carrying m.
func (m *Metadata) WithContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if m == nil {
		return ctx
	}
	return context.WithValue(ctx, metadataKey{}, m)
}

// FromContext returns the Metadata carried by ctx, or an empty one.
func FromContext(ctx context.Context) *Metadata {
	if ctx == nil {
		return New()
	}
	if md, ok := ctx.Value(metadataKey{}).(*Metadata); ok {
		return md
	}
	return New()
}

// Get retrieves key from the metadata carried by ctx as a T.
func Get[T any](ctx context.Context, key string) (t T, err error) {
	raw, ok := FromContext(ctx).Get(key)
	if !ok {
		err = fmt.Errorf("meta: key '%s' not found in context metadata", key)
		return
	}

	typed, ok := raw.(T)
	if !ok {
		err = fmt.Errorf("meta: value for key '%s' has type %T, but type %T was requested", key, raw, *new(T))
		return
	}
	return typed, nil
}

// MustGet is like Get but panics on a missing key or type mismatch.
func MustGet[T any](ctx context.Context, key string) T {
	t, err := Get[T](ctx, key)
	if err != nil {
		panic(err)
	}
	return t
}

// Package notify delivers the extension manager's outbound notifications.
//
// The manager only needs an Emitter. Hosts that want to observe lifecycle
// changes use a Bus, backed either by memory or by Redis PUBLISH/SUBSCRIBE.
package notify

//go:generate mockgen -destination=./mocks/emitter.go -package=mocks . Emitter

import (
	"context"
	"time"
)

// Lifecycle topics emitted by the extension manager.
const (
	TopicInstalled     = "extension:installed"
	TopicError         = "extension:error"
	TopicUnregistered  = "extension:unregistered"
	TopicConfigUpdated = "extension:configUpdated"

	// TopicAll subscribes to every topic.
	TopicAll = "*"
)

// Event is a single notification. Type doubles as the topic.
type Event struct {
	Type      string         `json:"type"`
	Extension string         `json:"extension"`
	Metadata  any            `json:"metadata,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	Error     string         `json:"error,omitempty"`
	Time      time.Time      `json:"time"`
}

// HandlerFunc receives events for a subscription.
type HandlerFunc func(ctx context.Context, ev Event)

// Emitter is the outbound sink handed to extensions through the shared context.
type Emitter interface {
	// Emit hands ev to the transport. Delivery is fire-and-forget.
	Emit(ctx context.Context, ev Event) error
}

// Bus is an Emitter that can also be subscribed to.
type Bus interface {
	Emitter

	// Subscribe registers fn for topic (or TopicAll) and returns the subscription id.
	Subscribe(ctx context.Context, topic string, fn HandlerFunc, opts ...Option) (string, error)

	// Unsubscribe removes the subscription. Unknown ids are not an error.
	Unsubscribe(ctx context.Context, id string) error

	// Close stops all subscriptions. Further Emit and Subscribe calls fail.
	Close() error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, ev Event) error

// Emit calls f.
func (f EmitterFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(context.Context, Event) error { return nil })

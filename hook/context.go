package hook

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/toolink/hookkit/depreg"
	"github.com/toolink/hookkit/notify"
)

// Hooks is the hook surface exposed through a Context. Registrations made
// through it are owned by whoever the surface is bound to.
type Hooks interface {
	Register(name string, handler Handler, opts ...Option) string
	Unregister(id string) bool
	Execute(ctx context.Context, name string, data any) []any
}

// Context is the shared context handed to every lifecycle callback and
// handler. It is treated as immutable: changing a field means building a
// new Context and installing it with Dispatcher.SetContext.
type Context struct {
	// HostVersion is the version of the host application.
	HostVersion string

	// Services holds the host's service slots. A slot is empty until the
	// host fills it.
	Services *depreg.DependencyRegistry

	// Events is the outbound notification sink.
	Events notify.Emitter

	// Hooks registers, removes and runs hooks on behalf of the holder.
	Hooks Hooks

	// Logger is scoped to the holder.
	Logger zerolog.Logger
}

// clone returns a shallow copy.
func (c *Context) clone() *Context {
	cp := *c
	return &cp
}

// WithHooks returns a copy of c bound to h.
func (c *Context) WithHooks(h Hooks) *Context {
	cp := c.clone()
	cp.Hooks = h
	return cp
}

// WithLogger returns a copy of c using l.
func (c *Context) WithLogger(l zerolog.Logger) *Context {
	cp := c.clone()
	cp.Logger = l
	return cp
}

// Emit sends ev through Events. A Context without a sink drops it.
func (c *Context) Emit(ctx context.Context, ev notify.Event) error {
	if c == nil || c.Events == nil {
		return nil
	}
	return c.Events.Emit(ctx, ev)
}

// Service looks up the service of type T in hc's slots.
func Service[T any](hc *Context) (T, error) {
	if hc == nil {
		var zero T
		return zero, depreg.ErrDependencyNotFound
	}
	return depreg.Resolve[T](hc.Services)
}

package extension

import (
	"context"
	"slices"

	"github.com/toolink/hookkit/hook"
)

// extensionHooks is the hook surface handed to an extension. Every
// registration made through it is owned by, and recorded on, the extension.
type extensionHooks struct {
	m     *Manager
	owner string
}

var _ hook.Hooks = (*extensionHooks)(nil)

func (h *extensionHooks) Register(name string, handler hook.Handler, opts ...hook.Option) string {
	id := h.m.dispatcher.Register(name, handler, h.owner, opts...)

	h.m.mu.Lock()
	if e, ok := h.m.entries[h.owner]; ok {
		e.hooks = append(e.hooks, id)
	}
	h.m.mu.Unlock()
	return id
}

func (h *extensionHooks) Unregister(id string) bool {
	h.m.mu.Lock()
	if e, ok := h.m.entries[h.owner]; ok {
		e.hooks = slices.DeleteFunc(e.hooks, func(owned string) bool { return owned == id })
	}
	h.m.mu.Unlock()
	return h.m.dispatcher.Unregister(id)
}

func (h *extensionHooks) Execute(ctx context.Context, name string, data any) []any {
	return h.m.dispatcher.Execute(ctx, name, data)
}

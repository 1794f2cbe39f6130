// Package hook implements priority-ordered hook dispatch.
//
// Handlers are registered under a hook name and run in descending priority
// order, ties in registration order. A dispatch pass skips handlers whose
// condition is false, contains handler failures, removes once-handlers after
// they fire and stops early when a handler returns exactly false.
package hook

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/toolink/hookkit/meta"
)

var (
	ErrNilHandler     = errors.New("hook: handler is nil")
	ErrHandlerPanic   = errors.New("hook: handler panicked")
	ErrConditionPanic = errors.New("hook: condition panicked")
)

// Handler runs when its hook is executed. The returned value is collected
// into the dispatch results; returning exactly false stops the pass.
// A returned error drops the handler's contribution without aborting the pass.
type Handler func(ctx context.Context, hc *Context, data any) (any, error)

// registration ids are unique across all dispatchers in the process.
var nextID atomic.Uint64

func newID() string {
	return fmt.Sprintf("hook_%d", nextID.Add(1))
}

// Registration is one handler attached to a hook name.
type Registration struct {
	ID           string
	Name         string
	Owner        string
	Handler      Handler
	Options      Options
	RegisteredAt time.Time
}

// Stats summarizes a Dispatcher.
type Stats struct {
	Hooks         int            // distinct hook names
	TotalHandlers int            // registrations across all names
	ByHook        map[string]int // registrations per name
}

// Dispatcher owns hook registrations and the current shared context.
type Dispatcher struct {
	mu      sync.RWMutex
	hooks   map[string][]*Registration // kept sorted by priority, descending
	current atomic.Pointer[Context]
}

// New creates an empty Dispatcher with no context set.
func New() *Dispatcher {
	return &Dispatcher{
		hooks: make(map[string][]*Registration),
	}
}

// SetContext replaces the current shared context. Passes already running
// see the new context from their next handler on.
func (d *Dispatcher) SetContext(hc *Context) {
	d.current.Store(hc)
}

// Context returns the current shared context, or nil.
func (d *Dispatcher) Context() *Context {
	return d.current.Load()
}

// Register attaches handler to name on behalf of owner and returns the new
// registration id.
func (d *Dispatcher) Register(name string, handler Handler, owner string, opts ...Option) string {
	reg := &Registration{
		ID:           newID(),
		Name:         name,
		Owner:        owner,
		Handler:      handler,
		Options:      buildOptions(opts),
		RegisteredAt: time.Now(),
	}

	d.mu.Lock()
	bucket := append(d.hooks[name], reg)
	slices.SortStableFunc(bucket, func(a, b *Registration) int {
		return cmp.Compare(b.Options.Priority, a.Options.Priority)
	})
	d.hooks[name] = bucket
	d.mu.Unlock()

	log.Debug().
		Str("hook", name).
		Str("hook_id", reg.ID).
		Str("owner", owner).
		Int("priority", reg.Options.Priority).
		Bool("once", reg.Options.Once).
		Msg("hook registered")
	return reg.ID
}

// Unregister removes the registration with id. It reports whether one was removed.
func (d *Dispatcher) Unregister(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, bucket := range d.hooks {
		for i, reg := range bucket {
			if reg.ID != id {
				continue
			}
			bucket = slices.Delete(bucket, i, i+1)
			if len(bucket) == 0 {
				delete(d.hooks, name)
			} else {
				d.hooks[name] = bucket
			}
			log.Debug().Str("hook", name).Str("hook_id", id).Msg("hook unregistered")
			return true
		}
	}
	return false
}

// UnregisterByOwner removes every registration owned by owner and returns
// how many were removed.
func (d *Dispatcher) UnregisterByOwner(owner string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for name, bucket := range d.hooks {
		kept := bucket[:0]
		for _, reg := range bucket {
			if reg.Owner == owner {
				removed++
				continue
			}
			kept = append(kept, reg)
		}
		clear(bucket[len(kept):])
		if len(kept) == 0 {
			delete(d.hooks, name)
		} else {
			d.hooks[name] = kept
		}
	}

	if removed > 0 {
		log.Debug().Str("owner", owner).Int("count", removed).Msg("hooks unregistered by owner")
	}
	return removed
}

// Execute runs every registration for name and returns the collected
// results in dispatch order. It never fails: condition and handler errors
// are logged and skipped. Without a shared context nothing runs.
func (d *Dispatcher) Execute(ctx context.Context, name string, data any) []any {
	results := make([]any, 0)

	d.mu.RLock()
	snapshot := slices.Clone(d.hooks[name])
	d.mu.RUnlock()

	if len(snapshot) == 0 {
		return results
	}
	if d.current.Load() == nil {
		log.Warn().Str("hook", name).Msg("hook executed before a context was set, skipping")
		return results
	}

	var fired []string
	for _, reg := range snapshot {
		hc := d.current.Load()
		if hc == nil {
			log.Warn().Str("hook", name).Msg("context cleared during dispatch, stopping")
			break
		}
		l := log.With().Str("hook", name).Str("hook_id", reg.ID).Str("owner", reg.Owner).Logger()
		rctx := reg.invocationContext(ctx)

		ok, err := reg.check(rctx, hc, data)
		if err != nil {
			l.Error().Err(err).Msg("hook condition failed, skipping handler")
			continue
		}
		if !ok {
			continue
		}

		start := time.Now()
		result, err := reg.call(rctx, hc, data)
		if err != nil {
			l.Error().Err(err).Dur("duration", time.Since(start)).Msg("hook handler failed")
			continue
		}
		l.Debug().Dur("duration", time.Since(start)).Msg("hook handler completed")

		results = append(results, result)
		if reg.Options.Once {
			fired = append(fired, reg.ID)
		}
		if stop, isBool := result.(bool); isBool && !stop {
			l.Debug().Msg("hook handler returned false, stopping propagation")
			break
		}
	}

	for _, id := range fired {
		d.Unregister(id)
	}
	return results
}

// Has reports whether any registration exists for name.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hooks[name]) > 0
}

// Count returns the number of registrations for name.
func (d *Dispatcher) Count(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hooks[name])
}

// Get returns copies of the registrations for name in dispatch order.
func (d *Dispatcher) Get(name string) []Registration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copyBucket(d.hooks[name])
}

// All returns copies of every registration keyed by hook name.
func (d *Dispatcher) All() map[string][]Registration {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := make(map[string][]Registration, len(d.hooks))
	for name, bucket := range d.hooks {
		all[name] = copyBucket(bucket)
	}
	return all
}

// Clear drops every registration. The current context is kept.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	d.hooks = make(map[string][]*Registration)
	d.mu.Unlock()
	log.Debug().Msg("all hooks cleared")
}

// Stats reports registration counts.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Stats{
		Hooks:  len(d.hooks),
		ByHook: make(map[string]int, len(d.hooks)),
	}
	for name, bucket := range d.hooks {
		s.ByHook[name] = len(bucket)
		s.TotalHandlers += len(bucket)
	}
	return s
}

// Scope returns a Hooks surface whose registrations belong to owner.
func (d *Dispatcher) Scope(owner string) Hooks {
	return scope{d: d, owner: owner}
}

type scope struct {
	d     *Dispatcher
	owner string
}

func (s scope) Register(name string, handler Handler, opts ...Option) string {
	return s.d.Register(name, handler, s.owner, opts...)
}

func (s scope) Unregister(id string) bool { return s.d.Unregister(id) }

func (s scope) Execute(ctx context.Context, name string, data any) []any {
	return s.d.Execute(ctx, name, data)
}

func copyBucket(bucket []*Registration) []Registration {
	out := make([]Registration, len(bucket))
	for i, reg := range bucket {
		out[i] = *reg
	}
	return out
}

func (r *Registration) invocationContext(ctx context.Context) context.Context {
	md := meta.New()
	md.Set(meta.HookName, r.Name)
	md.Set(meta.HookID, r.ID)
	md.Set(meta.HookOwner, r.Owner)
	md.Set(meta.HookPriority, r.Options.Priority)
	return md.WithContext(ctx)
}

func (r *Registration) check(ctx context.Context, hc *Context, data any) (ok bool, err error) {
	if r.Options.Condition == nil {
		return true, nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrConditionPanic, p)
		}
	}()
	return r.Options.Condition(ctx, hc, data)
}

func (r *Registration) call(ctx context.Context, hc *Context, data any) (result any, err error) {
	if r.Handler == nil {
		return nil, ErrNilHandler
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
	}()
	return r.Handler(ctx, hc, data)
}

package hook

import "context"

// Common priorities. Any int is valid; higher runs first.
const (
	PriorityHigh   = 100
	PriorityNormal = 0
	PriorityLow    = -100
)

// Condition decides whether a registration runs for a given dispatch.
// A returned error is logged and the registration is skipped.
type Condition func(ctx context.Context, hc *Context, data any) (bool, error)

// Options controls how a registration is dispatched.
type Options struct {
	Priority  int
	Once      bool
	Condition Condition
}

// Option configures a registration.
type Option func(*Options)

func always(context.Context, *Context, any) (bool, error) { return true, nil }

// DefaultOptions returns priority 0, repeating, unconditional.
func DefaultOptions() Options {
	return Options{
		Priority:  PriorityNormal,
		Condition: always,
	}
}

// WithPriority sets the dispatch priority.
func WithPriority(p int) Option {
	return func(o *Options) {
		o.Priority = p
	}
}

// Once removes the registration after its first successful run.
func Once() Option {
	return func(o *Options) {
		o.Once = true
	}
}

// WithCondition gates the registration on c. A nil c keeps the default.
func WithCondition(c Condition) Option {
	return func(o *Options) {
		if c != nil {
			o.Condition = c
		}
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

package notify

// SubscriptionOptions holds configuration for a subscription.
type SubscriptionOptions struct {
	// QueueSize, when positive, gives the subscription its own buffered
	// queue and worker goroutine. Events that don't fit are dropped.
	// Zero delivers synchronously on the emitting goroutine.
	QueueSize int
}

// Option configures a subscription.
type Option func(*SubscriptionOptions)

// DefaultSubscriptionOptions returns synchronous delivery.
func DefaultSubscriptionOptions() *SubscriptionOptions {
	return &SubscriptionOptions{}
}

// WithQueueSize enables asynchronous delivery through a queue of size n.
func WithQueueSize(n int) Option {
	return func(o *SubscriptionOptions) {
		if n >= 0 {
			o.QueueSize = n
		}
	}
}

// Apply applies opts in order.
func (o *SubscriptionOptions) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

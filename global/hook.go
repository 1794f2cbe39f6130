package global

import (
	"sync/atomic"

	"github.com/toolink/hookkit/hook"
)

func defaultDispatcher() *atomic.Value {
	v := &atomic.Value{}
	v.Store(hook.New())
	return v
}

var globalDispatcher = defaultDispatcher()

// SetDispatcher sets the global hook dispatcher. The global extension
// manager keeps driving the dispatcher it was built with.
func SetDispatcher(d *hook.Dispatcher) {
	globalDispatcher.Store(d)
}

// GetDispatcher retrieves the current global hook dispatcher.
func GetDispatcher() *hook.Dispatcher {
	return globalDispatcher.Load().(*hook.Dispatcher)
}

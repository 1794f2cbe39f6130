package global

import (
	"sync/atomic"

	"github.com/toolink/hookkit/notify"
)

func defaultBroker() *atomic.Value {
	v := &atomic.Value{}
	v.Store(notify.New())
	return v
}

var globalBroker = defaultBroker()

// SetBroker sets the global notification broker.
func SetBroker(b *notify.Broker) {
	globalBroker.Store(b)
}

// GetBroker retrieves the current global notification broker.
func GetBroker() *notify.Broker {
	return globalBroker.Load().(*notify.Broker)
}

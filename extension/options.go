package extension

import (
	"maps"

	"github.com/rs/zerolog"
	"github.com/toolink/hookkit/notify"
)

// DefaultHostVersion is used when no host version is configured.
const DefaultHostVersion = "0.0.0"

// Option configures a Manager.
type Option func(*Manager)

// WithHostVersion sets the host version extensions are checked against.
func WithHostVersion(v string) Option {
	return func(m *Manager) {
		m.hostVersion = v
	}
}

// WithEmitter sets the sink lifecycle notifications are sent to.
func WithEmitter(e notify.Emitter) Option {
	return func(m *Manager) {
		m.emitter = e
	}
}

// WithServices fills service slots before the first context is built.
func WithServices(svcs ...any) Option {
	return func(m *Manager) {
		m.services.Set(svcs...)
	}
}

// WithOverrides sets per-extension configuration layered between an
// extension's defaults and the config passed to Register.
func WithOverrides(overrides map[string]Config) Option {
	return func(m *Manager) {
		m.overrides = make(map[string]Config, len(overrides))
		for name, cfg := range overrides {
			m.overrides[name] = maps.Clone(cfg)
		}
	}
}

// WithLogger sets the logger the manager and extension contexts derive from.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// Package extension defines the extension contract and the manager
// responsible for extension lifecycle, validation and hook ownership.
package extension

import (
	"context"
	"errors"
	"maps"

	"github.com/toolink/hookkit/hook"
)

// Metadata identifies an extension and declares its requirements.
type Metadata struct {
	// Name is unique across a Manager.
	Name string `json:"name"`

	Version     string `json:"version"`
	Description string `json:"description,omitempty"`

	// MinVersion and MaxVersion are inclusive bounds on the host version.
	// Empty means unbounded.
	MinVersion string `json:"minVersion,omitempty"`
	MaxVersion string `json:"maxVersion,omitempty"`

	// Dependencies name extensions that must be installed first.
	Dependencies []string `json:"dependencies,omitempty"`
}

// Extension is the contract every extension implements.
type Extension interface {
	// Metadata describes the extension. It must be stable across calls.
	Metadata() Metadata

	// DefaultConfig is the base the effective configuration is merged onto.
	DefaultConfig() Config

	// Install wires the extension into the host, typically by registering
	// hooks through hc.Hooks. A returned error marks the extension failed.
	Install(ctx context.Context, hc *hook.Context, cfg Config) error
}

// Uninstaller is implemented by extensions that need to release resources
// when they are unregistered. Hooks are removed by the manager regardless.
type Uninstaller interface {
	Uninstall(ctx context.Context, hc *hook.Context) error
}

// ConfigUpdater is implemented by extensions that react to configuration changes.
type ConfigUpdater interface {
	UpdateConfig(ctx context.Context, hc *hook.Context, cfg Config) error
}

// KeyEnabled is the configuration key controlling installation on register.
const KeyEnabled = "enabled"

// Config is an extension's configuration.
type Config map[string]any

// Enabled reports the "enabled" flag. A missing flag counts as enabled.
func (c Config) Enabled() bool {
	v, ok := c[KeyEnabled].(bool)
	return !ok || v
}

// Clone returns a shallow copy. A nil Config clones to an empty one.
func (c Config) Clone() Config {
	if c == nil {
		return Config{}
	}
	return maps.Clone(c)
}

// Predefined errors for extension management.
var (
	ErrInvalidExtension           = errors.New("extension is nil or has no name")
	ErrExtensionAlreadyRegistered = errors.New("extension name is already registered")
	ErrExtensionNotFound          = errors.New("extension not found")
	ErrInvalidVersion             = errors.New("invalid version")
	ErrVersionTooLow              = errors.New("host version is below the extension's minimum")
	ErrVersionTooHigh             = errors.New("host version is above the extension's maximum")
	ErrDependencyMissing          = errors.New("dependency is not registered")
	ErrDependencyNotInstalled     = errors.New("dependency is not installed")
	ErrInvalidState               = errors.New("operation not allowed in the extension's current state")
	ErrCallbackPanic              = errors.New("extension callback panicked")
)

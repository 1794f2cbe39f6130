package extension

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/toolink/hookkit/depreg"
	"github.com/toolink/hookkit/hook"
	"github.com/toolink/hookkit/notify"
)

// HostOwner owns hooks registered through the host's own context rather
// than an extension's. Extension names are never empty, so it cannot clash.
const HostOwner = ""

// entry is the manager's record of one registered extension.
type entry struct {
	ext         Extension
	meta        Metadata
	config      Config
	state       State
	hooks       []string
	installedAt time.Time
	err         error
}

// Info is a point-in-time copy of an extension's record.
type Info struct {
	Metadata    Metadata
	Extension   Extension
	Config      Config
	State       State
	Hooks       []string
	InstalledAt time.Time
	Err         error
}

// Stats summarizes a Manager.
type Stats struct {
	Total     int
	Installed int
	Failed    int
	ByState   map[string]int
	Hooks     hook.Stats
}

// Manager registers extensions, validates their requirements, drives their
// lifecycle and removes their hooks when they go away.
type Manager struct {
	mu         sync.RWMutex
	dispatcher *hook.Dispatcher
	entries    map[string]*entry
	order      []string // registration order, Destroy walks it in reverse

	hostVersion string
	services    *depreg.DependencyRegistry // replaced, never mutated, once published
	emitter     notify.Emitter
	overrides   map[string]Config
	logger      zerolog.Logger
}

// New creates a Manager driving d. A nil d gets a fresh Dispatcher.
// The shared context is built and installed into the dispatcher immediately.
func New(d *hook.Dispatcher, opts ...Option) *Manager {
	if d == nil {
		d = hook.New()
	}
	m := &Manager{
		dispatcher:  d,
		entries:     make(map[string]*entry),
		order:       make([]string, 0),
		hostVersion: DefaultHostVersion,
		services:    depreg.New(),
		overrides:   make(map[string]Config),
		logger:      log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.mu.Lock()
	m.publishLocked()
	m.mu.Unlock()
	return m
}

// Register validates ext, records it and installs it unless its effective
// configuration disables it. Validation failures leave the manager untouched.
// An install failure is returned but the extension stays registered as failed.
func (m *Manager) Register(ctx context.Context, ext Extension, cfg Config) error {
	if ext == nil {
		return ErrInvalidExtension
	}
	md := ext.Metadata()
	name := md.Name
	if name == "" {
		return ErrInvalidExtension
	}
	l := m.logger.With().Str("extension", name).Logger()

	m.mu.Lock()
	if _, exists := m.entries[name]; exists {
		m.mu.Unlock()
		l.Error().Msg("attempted to register duplicate extension")
		return fmt.Errorf("%w: %s", ErrExtensionAlreadyRegistered, name)
	}
	if err := checkHostVersion(m.hostVersion, md); err != nil {
		host := m.hostVersion
		m.mu.Unlock()
		l.Error().Err(err).Str("host_version", host).Msg("extension rejected: version mismatch")
		return err
	}
	if err := m.checkDependenciesLocked(md); err != nil {
		m.mu.Unlock()
		l.Error().Err(err).Strs("dependencies", md.Dependencies).Msg("extension rejected: dependency check failed")
		return err
	}

	e := &entry{
		ext:    ext,
		meta:   md,
		config: m.mergeConfigLocked(name, ext.DefaultConfig(), cfg),
		state:  StateRegistered,
	}
	m.entries[name] = e
	m.order = append(m.order, name)
	m.mu.Unlock()

	l.Info().Str("version", md.Version).Msg("extension registered")

	if !e.config.Enabled() {
		l.Info().Msg("extension is disabled, skipping install")
		return nil
	}
	return m.install(ctx, name, e)
}

// Install installs an extension that was registered disabled.
func (m *Manager) Install(ctx context.Context, name string) error {
	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
	}
	if e.state != StateRegistered {
		state := e.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, name, state)
	}
	if err := m.checkDependenciesLocked(e.meta); err != nil {
		m.mu.Unlock()
		return err
	}
	e.config = e.config.Clone()
	e.config[KeyEnabled] = true
	m.mu.Unlock()

	return m.install(ctx, name, e)
}

func (m *Manager) install(ctx context.Context, name string, e *entry) error {
	l := m.logger.With().Str("extension", name).Logger()

	m.mu.Lock()
	e.state = StateInstalling
	hc := m.contextForLocked(name)
	cfg := e.config.Clone()
	m.mu.Unlock()

	l.Debug().Msg("installing extension...")
	start := time.Now()
	err := guard(func() error { return e.ext.Install(ctx, hc, cfg) })
	duration := time.Since(start)

	if err != nil {
		m.mu.Lock()
		e.state = StateFailed
		e.err = err
		e.hooks = nil
		m.mu.Unlock()

		swept := m.dispatcher.UnregisterByOwner(name)
		l.Error().Err(err).Dur("duration", duration).Int("hooks_removed", swept).Msg("failed to install extension")
		m.emit(ctx, notify.Event{
			Type:      notify.TopicError,
			Extension: name,
			Error:     err.Error(),
		})
		return fmt.Errorf("failed to install extension %s: %w", name, err)
	}

	m.mu.Lock()
	e.state = StateInstalled
	e.installedAt = time.Now()
	e.err = nil
	hooks := len(e.hooks)
	m.mu.Unlock()

	l.Info().Dur("duration", duration).Int("hooks", hooks).Msg("extension installed successfully")
	m.emit(ctx, notify.Event{
		Type:      notify.TopicInstalled,
		Extension: name,
		Metadata:  e.meta,
	})
	return nil
}

// Unregister uninstalls and removes an extension. Its hooks, the registry
// record and the unregistered notification are always cleaned up; an
// Uninstall error is returned only afterwards.
func (m *Manager) Unregister(ctx context.Context, name string) error {
	l := m.logger.With().Str("extension", name).Logger()

	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		l.Warn().Msg("attempted to unregister non-existent extension")
		return fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
	}
	if e.state == StateUninstalling || e.state == StateInstalling {
		state := e.state
		m.mu.Unlock()
		return fmt.Errorf("%w: %s is %s", ErrInvalidState, name, state)
	}
	wasInstalled := e.state == StateInstalled
	e.state = StateUninstalling
	hc := m.contextForLocked(name)
	m.mu.Unlock()

	var uninstallErr error
	if u, ok := e.ext.(Uninstaller); ok && wasInstalled {
		l.Debug().Msg("uninstalling extension...")
		start := time.Now()
		uninstallErr = guard(func() error { return u.Uninstall(ctx, hc) })
		if uninstallErr != nil {
			l.Error().Err(uninstallErr).Dur("duration", time.Since(start)).Msg("failed to uninstall extension")
		}
	}

	m.mu.Lock()
	owned := e.hooks
	delete(m.entries, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	m.mu.Unlock()

	removed := m.dispatcher.UnregisterByOwner(name)
	for _, id := range owned {
		if m.dispatcher.Unregister(id) {
			removed++
		}
	}

	l.Info().Int("hooks_removed", removed).Msg("extension unregistered")
	m.emit(ctx, notify.Event{
		Type:      notify.TopicUnregistered,
		Extension: name,
	})

	if uninstallErr != nil {
		return fmt.Errorf("failed to uninstall extension %s: %w", name, uninstallErr)
	}
	return nil
}

// UpdateConfig shallow-merges partial into the extension's configuration
// and hands the result to its ConfigUpdater, if any. The merge sticks even
// when the callback fails.
func (m *Manager) UpdateConfig(ctx context.Context, name string, partial Config) error {
	l := m.logger.With().Str("extension", name).Logger()

	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrExtensionNotFound, name)
	}
	merged := e.config.Clone()
	maps.Copy(merged, partial)
	e.config = merged
	hc := m.contextForLocked(name)
	m.mu.Unlock()

	if u, ok := e.ext.(ConfigUpdater); ok {
		if err := guard(func() error { return u.UpdateConfig(ctx, hc, merged.Clone()) }); err != nil {
			l.Error().Err(err).Msg("failed to apply configuration update")
			return fmt.Errorf("failed to update config of extension %s: %w", name, err)
		}
	}

	l.Debug().Int("keys", len(partial)).Msg("extension configuration updated")
	m.emit(ctx, notify.Event{
		Type:      notify.TopicConfigUpdated,
		Extension: name,
		Config:    merged.Clone(),
	})
	return nil
}

// ExecuteHook runs hook name on the manager's dispatcher.
func (m *Manager) ExecuteHook(ctx context.Context, name string, data any) []any {
	return m.dispatcher.Execute(ctx, name, data)
}

// Dispatcher returns the dispatcher the manager drives.
func (m *Manager) Dispatcher() *hook.Dispatcher {
	return m.dispatcher
}

// Get returns a copy of the named extension's record.
func (m *Manager) Get(name string) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[name]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// Has reports whether name is registered.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[name]
	return ok
}

// All returns copies of every record in registration order.
func (m *Manager) All() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]Info, 0, len(m.order))
	for _, name := range m.order {
		all = append(all, m.entries[name].info())
	}
	return all
}

// Stats reports extension counts by state alongside the dispatcher's stats.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	s := Stats{
		Total:   len(m.entries),
		ByState: make(map[string]int),
	}
	for _, e := range m.entries {
		s.ByState[e.state.String()]++
		switch e.state {
		case StateInstalled:
			s.Installed++
		case StateFailed:
			s.Failed++
		}
	}
	m.mu.RUnlock()

	s.Hooks = m.dispatcher.Stats()
	return s
}

// Destroy unregisters every extension in reverse registration order and
// clears the dispatcher. Individual failures are logged, never returned.
// The manager can be reused afterwards.
func (m *Manager) Destroy(ctx context.Context) {
	m.mu.RLock()
	order := slices.Clone(m.order)
	m.mu.RUnlock()

	var errs []error
	for _, name := range slices.Backward(order) {
		if err := m.Unregister(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	m.dispatcher.Clear()

	if len(errs) > 0 {
		m.logger.Warn().Err(errors.Join(errs...)).Int("error_count", len(errs)).Msg("destroy completed with errors")
		return
	}
	m.logger.Info().Int("extensions", len(order)).Msg("extension manager destroyed")
}

// SetService fills service slots. A typed nil clears its slot.
func (m *Manager) SetService(svcs ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.services.Clone()
	next.Set(svcs...)
	m.services = next
	m.publishLocked()
}

// ClearService empties the slot holding sample's type.
func (m *Manager) ClearService(sample any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.services.Clone()
	if !next.Delete(sample) {
		return false
	}
	m.services = next
	m.publishLocked()
	return true
}

// SetEmitter replaces the notification sink.
func (m *Manager) SetEmitter(e notify.Emitter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitter = e
	m.publishLocked()
}

// SetHostVersion replaces the host version. Already registered extensions
// are not re-validated.
func (m *Manager) SetHostVersion(v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostVersion = v
	m.publishLocked()
}

// publishLocked builds the host's shared context and installs it.
func (m *Manager) publishLocked() {
	m.dispatcher.SetContext(&hook.Context{
		HostVersion: m.hostVersion,
		Services:    m.services,
		Events:      m.emitter,
		Hooks:       m.dispatcher.Scope(HostOwner),
		Logger:      m.logger,
	})
}

// contextForLocked derives the context handed to name's lifecycle callbacks.
func (m *Manager) contextForLocked(name string) *hook.Context {
	base := m.dispatcher.Context()
	if base == nil {
		m.publishLocked()
		base = m.dispatcher.Context()
	}
	return base.
		WithHooks(&extensionHooks{m: m, owner: name}).
		WithLogger(m.logger.With().Str("extension", name).Logger())
}

func (m *Manager) checkDependenciesLocked(md Metadata) error {
	for _, dep := range md.Dependencies {
		d, ok := m.entries[dep]
		if !ok {
			return fmt.Errorf("%w: %s requires %s", ErrDependencyMissing, md.Name, dep)
		}
		if d.state != StateInstalled {
			return fmt.Errorf("%w: %s requires %s, which is %s", ErrDependencyNotInstalled, md.Name, dep, d.state)
		}
	}
	return nil
}

// mergeConfigLocked layers defaults, the file override and cfg. The enabled
// flag comes from cfg, then the override, and defaults to true.
func (m *Manager) mergeConfigLocked(name string, defaults, cfg Config) Config {
	override := m.overrides[name]

	merged := Config{}
	maps.Copy(merged, defaults)
	maps.Copy(merged, override)
	maps.Copy(merged, cfg)

	enabled := true
	if v, ok := override[KeyEnabled].(bool); ok {
		enabled = v
	}
	if v, ok := cfg[KeyEnabled].(bool); ok {
		enabled = v
	}
	merged[KeyEnabled] = enabled
	return merged
}

// emit is fire-and-forget: a failing sink is logged.
func (m *Manager) emit(ctx context.Context, ev notify.Event) {
	m.mu.RLock()
	em := m.emitter
	m.mu.RUnlock()
	if em == nil {
		return
	}
	if err := em.Emit(ctx, ev); err != nil {
		m.logger.Warn().Err(err).Str("topic", ev.Type).Str("extension", ev.Extension).Msg("failed to emit notification")
	}
}

func (e *entry) info() Info {
	return Info{
		Metadata:    e.meta,
		Extension:   e.ext,
		Config:      e.config.Clone(),
		State:       e.state,
		Hooks:       slices.Clone(e.hooks),
		InstalledAt: e.installedAt,
		Err:         e.err,
	}
}

// guard runs fn, turning a panic into ErrCallbackPanic.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, p)
		}
	}()
	return fn()
}

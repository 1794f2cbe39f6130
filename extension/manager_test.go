package extension_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/toolink/hookkit/extension"
	"github.com/toolink/hookkit/hook"
	"github.com/toolink/hookkit/notify"
	"github.com/toolink/hookkit/notify/mocks"
)

type fakeExt struct {
	md       extension.Metadata
	defaults extension.Config
	install  func(ctx context.Context, hc *hook.Context, cfg extension.Config) error
}

func (f *fakeExt) Metadata() extension.Metadata { return f.md }

func (f *fakeExt) DefaultConfig() extension.Config { return f.defaults }

func (f *fakeExt) Install(ctx context.Context, hc *hook.Context, cfg extension.Config) error {
	if f.install == nil {
		return nil
	}
	return f.install(ctx, hc, cfg)
}

type uninstallableExt struct {
	*fakeExt
	uninstall func(ctx context.Context, hc *hook.Context) error
}

func (u *uninstallableExt) Uninstall(ctx context.Context, hc *hook.Context) error {
	return u.uninstall(ctx, hc)
}

type updatableExt struct {
	*fakeExt
	update func(ctx context.Context, hc *hook.Context, cfg extension.Config) error
}

func (u *updatableExt) UpdateConfig(ctx context.Context, hc *hook.Context, cfg extension.Config) error {
	return u.update(ctx, hc, cfg)
}

func named(name string, deps ...string) *fakeExt {
	return &fakeExt{md: extension.Metadata{Name: name, Version: "1.0.0", Dependencies: deps}}
}

func registersHook(name, hookName string, result any) *fakeExt {
	ext := named(name)
	ext.install = func(_ context.Context, hc *hook.Context, _ extension.Config) error {
		hc.Hooks.Register(hookName, func(context.Context, *hook.Context, any) (any, error) {
			return result, nil
		})
		return nil
	}
	return ext
}

func newManager(opts ...extension.Option) *extension.Manager {
	return extension.New(nil, append([]extension.Option{extension.WithLogger(zerolog.Nop())}, opts...)...)
}

// recorder collects emitted notifications.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Emit(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func TestRegister_InstallsThroughStates(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	var during extension.State
	ext := named("A")
	ext.install = func(context.Context, *hook.Context, extension.Config) error {
		info, ok := m.Get("A")
		require.True(t, ok)
		during = info.State
		return nil
	}

	require.NoError(t, m.Register(ctx, ext, nil))

	info, ok := m.Get("A")
	require.True(t, ok)
	assert.Equal(t, extension.StateInstalling, during)
	assert.Equal(t, extension.StateInstalled, info.State)
	assert.False(t, info.InstalledAt.IsZero())
	assert.NoError(t, info.Err)
	assert.Equal(t, true, info.Config[extension.KeyEnabled])
}

func TestRegister_DuplicateKeepsFirst(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	first := named("dup")
	first.md.Version = "1.0.0"
	second := named("dup")
	second.md.Version = "2.0.0"

	require.NoError(t, m.Register(ctx, first, nil))
	err := m.Register(ctx, second, nil)
	require.ErrorIs(t, err, extension.ErrExtensionAlreadyRegistered)

	info, ok := m.Get("dup")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", info.Metadata.Version)
	assert.Same(t, first, info.Extension)
}

func TestRegister_InvalidExtension(t *testing.T) {
	m := newManager()
	assert.ErrorIs(t, m.Register(context.Background(), nil, nil), extension.ErrInvalidExtension)
	assert.ErrorIs(t, m.Register(context.Background(), named(""), nil), extension.ErrInvalidExtension)
}

func TestRegister_Dependencies(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		m := newManager()
		err := m.Register(ctx, named("B", "A"), nil)
		require.ErrorIs(t, err, extension.ErrDependencyMissing)
		assert.False(t, m.Has("B"))
	})

	t.Run("registered but disabled", func(t *testing.T) {
		m := newManager()
		require.NoError(t, m.Register(ctx, named("A"), extension.Config{"enabled": false}))
		err := m.Register(ctx, named("B", "A"), nil)
		require.ErrorIs(t, err, extension.ErrDependencyNotInstalled)
		assert.False(t, m.Has("B"))
	})

	t.Run("installed", func(t *testing.T) {
		m := newManager()
		require.NoError(t, m.Register(ctx, named("A"), nil))
		require.NoError(t, m.Register(ctx, named("B", "A"), nil))

		info, _ := m.Get("B")
		assert.Equal(t, extension.StateInstalled, info.State)
	})

	t.Run("self dependency", func(t *testing.T) {
		m := newManager()
		err := m.Register(ctx, named("S", "S"), nil)
		require.ErrorIs(t, err, extension.ErrDependencyMissing)
		assert.False(t, m.Has("S"))
	})
}

func TestRegister_VersionBounds(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		min     string
		max     string
		wantErr error
	}{
		{name: "no bounds", host: "1.0.0"},
		{name: "within", host: "1.5.0", min: "1.0.0", max: "2.0.0"},
		{name: "equal to min", host: "1.0.0", min: "1.0.0"},
		{name: "equal to max", host: "2.0.0", max: "2.0.0"},
		{name: "missing components are zero", host: "1.2", min: "1.2.0", max: "1.2.0"},
		{name: "below min", host: "0.9.9", min: "1.0.0", wantErr: extension.ErrVersionTooLow},
		{name: "above max", host: "2.0.1", max: "2.0.0", wantErr: extension.ErrVersionTooHigh},
		{name: "numeric not lexical", host: "1.10.0", min: "1.9.0"},
		{name: "prerelease ignored", host: "1.0.0-beta", min: "1.0.0"},
		{name: "bad host", host: "latest", min: "1.0.0", wantErr: extension.ErrInvalidVersion},
		{name: "bad bound", host: "1.0.0", max: "x.y", wantErr: extension.ErrInvalidVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(extension.WithHostVersion(tt.host))
			ext := named("versioned")
			ext.md.MinVersion = tt.min
			ext.md.MaxVersion = tt.max

			err := m.Register(context.Background(), ext, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, m.Has("versioned"))
				return
			}
			require.NoError(t, err)
			assert.True(t, m.Has("versioned"))
		})
	}
}

func TestRegister_ConfigMerge(t *testing.T) {
	ctx := context.Background()
	m := newManager(extension.WithOverrides(map[string]extension.Config{
		"cfg": {"level": "file", "region": "eu", "enabled": true},
	}))

	var got extension.Config
	ext := named("cfg")
	ext.defaults = extension.Config{"level": "default", "retries": 3, "enabled": false}
	ext.install = func(_ context.Context, _ *hook.Context, cfg extension.Config) error {
		got = cfg
		return nil
	}

	require.NoError(t, m.Register(ctx, ext, extension.Config{"level": "call"}))
	assert.Equal(t, extension.Config{
		"level":   "call",
		"region":  "eu",
		"retries": 3,
		"enabled": true,
	}, got)
}

func TestRegister_DisabledStaysRegistered(t *testing.T) {
	ctx := context.Background()
	m := newManager(extension.WithOverrides(map[string]extension.Config{
		"off": {"enabled": false},
	}))

	installed := false
	ext := named("off")
	ext.install = func(context.Context, *hook.Context, extension.Config) error {
		installed = true
		return nil
	}

	require.NoError(t, m.Register(ctx, ext, nil))
	info, _ := m.Get("off")
	assert.Equal(t, extension.StateRegistered, info.State)
	assert.False(t, installed)

	require.NoError(t, m.Install(ctx, "off"))
	info, _ = m.Get("off")
	assert.Equal(t, extension.StateInstalled, info.State)
	assert.True(t, installed)
	assert.Equal(t, true, info.Config[extension.KeyEnabled])

	assert.ErrorIs(t, m.Install(ctx, "off"), extension.ErrInvalidState)
	assert.ErrorIs(t, m.Install(ctx, "missing"), extension.ErrExtensionNotFound)
}

func TestRegister_CallEnabledWinsOverOverride(t *testing.T) {
	m := newManager(extension.WithOverrides(map[string]extension.Config{
		"on": {"enabled": false},
	}))

	require.NoError(t, m.Register(context.Background(), named("on"), extension.Config{"enabled": true}))
	info, _ := m.Get("on")
	assert.Equal(t, extension.StateInstalled, info.State)
}

func TestRegister_InstallFailure(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	m := newManager(extension.WithEmitter(rec))

	boom := errors.New("boom")
	ext := named("C")
	ext.install = func(_ context.Context, hc *hook.Context, _ extension.Config) error {
		hc.Hooks.Register("onStart", func(context.Context, *hook.Context, any) (any, error) {
			return "partial", nil
		})
		return boom
	}

	err := m.Register(ctx, ext, nil)
	require.ErrorIs(t, err, boom)

	info, ok := m.Get("C")
	require.True(t, ok)
	assert.Equal(t, extension.StateFailed, info.State)
	assert.ErrorIs(t, info.Err, boom)
	assert.Empty(t, info.Hooks)
	assert.Zero(t, m.Dispatcher().Count("onStart"))
	assert.Equal(t, []string{notify.TopicError}, rec.types())
	assert.Equal(t, "boom", rec.events[0].Error)

	stats := m.Stats()
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.ByState["failed"])
}

func TestRegister_InstallPanicIsRecovered(t *testing.T) {
	m := newManager()
	ext := named("panicky")
	ext.install = func(context.Context, *hook.Context, extension.Config) error {
		panic("kaboom")
	}

	err := m.Register(context.Background(), ext, nil)
	require.ErrorIs(t, err, extension.ErrCallbackPanic)

	info, _ := m.Get("panicky")
	assert.Equal(t, extension.StateFailed, info.State)
}

func TestHooks_OwnedByExtension(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	require.NoError(t, m.Register(ctx, registersHook("A", "beforeX", "from A"), nil))
	require.NoError(t, m.Register(ctx, registersHook("B", "beforeX", "from B"), nil))

	info, _ := m.Get("A")
	require.Len(t, info.Hooks, 1)
	regs := m.Dispatcher().Get("beforeX")
	require.Len(t, regs, 2)
	assert.Equal(t, "A", regs[0].Owner)
	assert.Equal(t, info.Hooks[0], regs[0].ID)

	assert.Equal(t, []any{"from A", "from B"}, m.ExecuteHook(ctx, "beforeX", nil))

	require.NoError(t, m.Unregister(ctx, "A"))
	assert.Equal(t, []any{"from B"}, m.ExecuteHook(ctx, "beforeX", nil))
}

func TestHooks_ScopedUnregisterUpdatesRecord(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	var keep, drop string
	ext := named("scoped")
	ext.install = func(_ context.Context, hc *hook.Context, _ extension.Config) error {
		keep = hc.Hooks.Register("a", func(context.Context, *hook.Context, any) (any, error) { return 1, nil })
		drop = hc.Hooks.Register("b", func(context.Context, *hook.Context, any) (any, error) { return 2, nil })
		assert.True(t, hc.Hooks.Unregister(drop))
		return nil
	}

	require.NoError(t, m.Register(ctx, ext, nil))
	info, _ := m.Get("scoped")
	assert.Equal(t, []string{keep}, info.Hooks)
	assert.False(t, m.Dispatcher().Has("b"))
}

func TestUnregister(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown", func(t *testing.T) {
		m := newManager()
		assert.ErrorIs(t, m.Unregister(ctx, "nope"), extension.ErrExtensionNotFound)
	})

	t.Run("calls uninstall and cleans up", func(t *testing.T) {
		rec := &recorder{}
		m := newManager(extension.WithEmitter(rec))

		uninstalled := false
		ext := &uninstallableExt{
			fakeExt: registersHook("U", "tick", 1),
			uninstall: func(_ context.Context, hc *hook.Context) error {
				uninstalled = true
				assert.NotNil(t, hc)
				return nil
			},
		}
		require.NoError(t, m.Register(ctx, ext, nil))
		require.NoError(t, m.Unregister(ctx, "U"))

		assert.True(t, uninstalled)
		assert.False(t, m.Has("U"))
		assert.Zero(t, m.Dispatcher().Count("tick"))
		assert.Equal(t, []string{notify.TopicInstalled, notify.TopicUnregistered}, rec.types())
	})

	t.Run("cleanup then raise", func(t *testing.T) {
		rec := &recorder{}
		m := newManager(extension.WithEmitter(rec))

		fail := errors.New("uninstall failed")
		ext := &uninstallableExt{
			fakeExt:   registersHook("U", "tick", 1),
			uninstall: func(context.Context, *hook.Context) error { return fail },
		}
		require.NoError(t, m.Register(ctx, ext, nil))

		err := m.Unregister(ctx, "U")
		require.ErrorIs(t, err, fail)
		assert.False(t, m.Has("U"))
		assert.Zero(t, m.Dispatcher().Count("tick"))
		assert.Contains(t, rec.types(), notify.TopicUnregistered)
	})

	t.Run("uninstall panic still cleans up", func(t *testing.T) {
		m := newManager()
		ext := &uninstallableExt{
			fakeExt:   registersHook("U", "tick", 1),
			uninstall: func(context.Context, *hook.Context) error { panic("nope") },
		}
		require.NoError(t, m.Register(ctx, ext, nil))

		require.ErrorIs(t, m.Unregister(ctx, "U"), extension.ErrCallbackPanic)
		assert.False(t, m.Has("U"))
		assert.Zero(t, m.Dispatcher().Count("tick"))
	})

	t.Run("uninstall skipped when never installed", func(t *testing.T) {
		m := newManager()
		called := false
		ext := &uninstallableExt{
			fakeExt: named("idle"),
			uninstall: func(context.Context, *hook.Context) error {
				called = true
				return nil
			},
		}
		require.NoError(t, m.Register(ctx, ext, extension.Config{"enabled": false}))
		require.NoError(t, m.Unregister(ctx, "idle"))
		assert.False(t, called)
		assert.False(t, m.Has("idle"))
	})

	t.Run("name can be reused", func(t *testing.T) {
		m := newManager()
		require.NoError(t, m.Register(ctx, named("again"), nil))
		require.NoError(t, m.Unregister(ctx, "again"))
		require.NoError(t, m.Register(ctx, named("again"), nil))
		assert.True(t, m.Has("again"))
	})
}

func TestUpdateConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown", func(t *testing.T) {
		m := newManager()
		assert.ErrorIs(t, m.UpdateConfig(ctx, "nope", extension.Config{"a": 1}), extension.ErrExtensionNotFound)
	})

	t.Run("merges and notifies", func(t *testing.T) {
		rec := &recorder{}
		m := newManager(extension.WithEmitter(rec))

		var seen extension.Config
		ext := &updatableExt{
			fakeExt: named("conf"),
			update: func(_ context.Context, _ *hook.Context, cfg extension.Config) error {
				seen = cfg
				return nil
			},
		}
		ext.defaults = extension.Config{"a": 1, "b": 2}
		require.NoError(t, m.Register(ctx, ext, nil))

		require.NoError(t, m.UpdateConfig(ctx, "conf", extension.Config{"b": 3, "c": 4}))

		want := extension.Config{"a": 1, "b": 3, "c": 4, "enabled": true}
		assert.Equal(t, want, seen)

		info, _ := m.Get("conf")
		assert.Equal(t, want, info.Config)
		assert.Equal(t, extension.StateInstalled, info.State)

		require.Len(t, rec.events, 2)
		assert.Equal(t, notify.TopicConfigUpdated, rec.events[1].Type)
		assert.Equal(t, map[string]any(want), rec.events[1].Config)
	})

	t.Run("callback error keeps merge", func(t *testing.T) {
		m := newManager()
		fail := errors.New("rejected")
		ext := &updatableExt{
			fakeExt: named("conf"),
			update:  func(context.Context, *hook.Context, extension.Config) error { return fail },
		}
		require.NoError(t, m.Register(ctx, ext, nil))

		require.ErrorIs(t, m.UpdateConfig(ctx, "conf", extension.Config{"x": true}), fail)
		info, _ := m.Get("conf")
		assert.Equal(t, true, info.Config["x"])
	})

	t.Run("record copies are detached", func(t *testing.T) {
		m := newManager()
		require.NoError(t, m.Register(ctx, named("conf"), extension.Config{"k": "v"}))

		info, _ := m.Get("conf")
		info.Config["k"] = "mutated"

		again, _ := m.Get("conf")
		assert.Equal(t, "v", again.Config["k"])
	})
}

// eventMatcher matches a notify.Event by topic and extension, plus an optional check.
type eventMatcher struct {
	topic, ext string
	check      func(notify.Event) bool
}

func (m eventMatcher) Matches(x any) bool {
	ev, ok := x.(notify.Event)
	if !ok || ev.Type != m.topic || ev.Extension != m.ext {
		return false
	}
	return m.check == nil || m.check(ev)
}

func (m eventMatcher) String() string { return m.topic + " for " + m.ext }

func TestNotifications_WithMockEmitter(t *testing.T) {
	ctrl := gomock.NewController(t)
	em := mocks.NewMockEmitter(ctrl)
	ctx := context.Background()

	gomock.InOrder(
		em.EXPECT().Emit(gomock.Any(), eventMatcher{topic: notify.TopicInstalled, ext: "A", check: func(ev notify.Event) bool {
			md, ok := ev.Metadata.(extension.Metadata)
			return ok && md.Name == "A"
		}}).Return(nil),
		em.EXPECT().Emit(gomock.Any(), eventMatcher{topic: notify.TopicConfigUpdated, ext: "A", check: func(ev notify.Event) bool {
			return ev.Config["level"] == "debug"
		}}).Return(errors.New("sink down")),
		em.EXPECT().Emit(gomock.Any(), eventMatcher{topic: notify.TopicUnregistered, ext: "A"}).Return(nil),
	)

	m := newManager(extension.WithEmitter(em))
	require.NoError(t, m.Register(ctx, named("A"), nil))
	// emit failures never surface
	require.NoError(t, m.UpdateConfig(ctx, "A", extension.Config{"level": "debug"}))
	require.NoError(t, m.Unregister(ctx, "A"))
}

func TestAllAndStats(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	require.NoError(t, m.Register(ctx, registersHook("one", "h", 1), nil))
	require.NoError(t, m.Register(ctx, registersHook("two", "h", 2), nil))
	require.NoError(t, m.Register(ctx, named("three"), extension.Config{"enabled": false}))

	all := m.All()
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Metadata.Name)
	assert.Equal(t, "two", all[1].Metadata.Name)
	assert.Equal(t, "three", all[2].Metadata.Name)

	stats := m.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Installed)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, map[string]int{"installed": 2, "registered": 1}, stats.ByState)
	assert.Equal(t, 2, stats.Hooks.TotalHandlers)
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	var order []string
	mk := func(name string) extension.Extension {
		return &uninstallableExt{
			fakeExt: registersHook(name, "h", name),
			uninstall: func(context.Context, *hook.Context) error {
				order = append(order, name)
				if name == "B" {
					return errors.New("B refuses")
				}
				return nil
			},
		}
	}

	require.NoError(t, m.Register(ctx, mk("A"), nil))
	require.NoError(t, m.Register(ctx, mk("B"), nil))
	require.NoError(t, m.Register(ctx, mk("C"), nil))
	m.Dispatcher().Register("h", func(context.Context, *hook.Context, any) (any, error) { return "host", nil }, extension.HostOwner)

	m.Destroy(ctx)
	assert.Equal(t, []string{"C", "B", "A"}, order)
	assert.Empty(t, m.All())
	assert.Zero(t, m.Stats().Hooks.TotalHandlers)

	assert.NotPanics(t, func() { m.Destroy(ctx) })
	assert.Zero(t, m.Stats().Hooks.TotalHandlers)

	// reusable
	require.NoError(t, m.Register(ctx, registersHook("A", "h", "again"), nil))
	assert.Equal(t, []any{"again"}, m.ExecuteHook(ctx, "h", nil))
}

type clock interface{ Now() string }

type fixedClock struct{ at string }

func (c *fixedClock) Now() string { return c.at }

func TestContext_ServicesAndVersion(t *testing.T) {
	ctx := context.Background()
	m := newManager(extension.WithHostVersion("3.1.0"), extension.WithServices(&fixedClock{at: "noon"}))

	var seenVersion string
	var seenClock clock
	ext := named("svc")
	ext.install = func(_ context.Context, hc *hook.Context, _ extension.Config) error {
		seenVersion = hc.HostVersion
		c, err := hook.Service[clock](hc)
		if err != nil {
			return err
		}
		seenClock = c
		return nil
	}

	require.NoError(t, m.Register(ctx, ext, nil))
	assert.Equal(t, "3.1.0", seenVersion)
	require.NotNil(t, seenClock)
	assert.Equal(t, "noon", seenClock.Now())
}

func TestContext_SettersReachInFlightPass(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	d := m.Dispatcher()

	d.Register("tick", func(context.Context, *hook.Context, any) (any, error) {
		m.SetService(&fixedClock{at: "late"})
		m.SetHostVersion("9.0.0")
		return "set", nil
	}, extension.HostOwner, hook.WithPriority(10))
	d.Register("tick", func(_ context.Context, hc *hook.Context, _ any) (any, error) {
		c, err := hook.Service[*fixedClock](hc)
		if err != nil {
			return nil, err
		}
		return hc.HostVersion + "@" + c.Now(), nil
	}, extension.HostOwner)

	assert.Equal(t, []any{"set", "9.0.0@late"}, m.ExecuteHook(ctx, "tick", nil))
}

func TestContext_ServiceSnapshotsAreIsolated(t *testing.T) {
	m := newManager(extension.WithServices(&fixedClock{at: "first"}))
	before := m.Dispatcher().Context()

	m.SetService(&fixedClock{at: "second"})
	assert.True(t, m.ClearService(&fixedClock{}))
	assert.False(t, m.ClearService(&fixedClock{}))

	old, err := hook.Service[*fixedClock](before)
	require.NoError(t, err)
	assert.Equal(t, "first", old.Now())

	_, err = hook.Service[*fixedClock](m.Dispatcher().Context())
	assert.Error(t, err)
}

func TestContext_EmitterSwap(t *testing.T) {
	ctx := context.Background()
	first, second := &recorder{}, &recorder{}
	m := newManager(extension.WithEmitter(first))

	require.NoError(t, m.Register(ctx, named("A"), nil))
	m.SetEmitter(second)
	require.NoError(t, m.Register(ctx, named("B"), nil))

	assert.Equal(t, []string{notify.TopicInstalled}, first.types())
	assert.Equal(t, []string{notify.TopicInstalled}, second.types())
	assert.Same(t, second, m.Dispatcher().Context().Events)
}

func TestContext_ExtensionCanEmitAndExecute(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	m := newManager(extension.WithEmitter(rec))

	require.NoError(t, m.Register(ctx, registersHook("base", "lookup", "value"), nil))

	var looked []any
	ext := named("user", "base")
	ext.install = func(ctx context.Context, hc *hook.Context, _ extension.Config) error {
		looked = hc.Hooks.Execute(ctx, "lookup", nil)
		return hc.Emit(ctx, notify.Event{Type: "custom", Extension: "user"})
	}
	require.NoError(t, m.Register(ctx, ext, nil))

	assert.Equal(t, []any{"value"}, looked)
	assert.Contains(t, rec.types(), "custom")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "registered", extension.StateRegistered.String())
	assert.Equal(t, "installing", extension.StateInstalling.String())
	assert.Equal(t, "installed", extension.StateInstalled.String())
	assert.Equal(t, "uninstalling", extension.StateUninstalling.String())
	assert.Equal(t, "failed", extension.StateFailed.String())
	assert.Equal(t, "unknown", extension.State(42).String())
}

func TestConfig_Helpers(t *testing.T) {
	assert.True(t, extension.Config(nil).Enabled())
	assert.True(t, extension.Config{"enabled": "yes"}.Enabled())
	assert.False(t, extension.Config{"enabled": false}.Enabled())

	assert.Equal(t, extension.Config{}, extension.Config(nil).Clone())

	orig := extension.Config{"a": 1}
	cp := orig.Clone()
	cp["a"] = 2
	assert.Equal(t, 1, orig["a"])
}

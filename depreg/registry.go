// Package depreg provides a type-keyed registry of host services.
// Each concrete type is one service slot: a slot is empty until the host
// sets it, and a typed nil clears it again.
package depreg

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrDependencyNotFound      = errors.New("dependency not found")
	ErrInvalidTargetType       = errors.New("target argument must be a non-nil pointer")
	ErrAmbiguousInterface      = errors.New("multiple registered types implement the requested interface")
	ErrUnsupportedMapValueType = errors.New("cannot register map value as dependency directly, wrap it in a named type")
)

// DependencyRegistry holds one value per concrete type.
type DependencyRegistry struct {
	mu    sync.RWMutex
	store map[reflect.Type]dependencyHolder
}

// dependencyHolder keeps the reflected form next to the value so interface
// lookups don't re-reflect on every Get.
type dependencyHolder struct {
	value       any
	reflectType reflect.Type
	reflectVal  reflect.Value
}

// New creates an empty registry.
func New() *DependencyRegistry {
	return &DependencyRegistry{
		store: make(map[reflect.Type]dependencyHolder),
	}
}

// Set fills the slot for the concrete type of each value.
// An existing slot is overwritten. Untyped nil values are ignored,
// typed nil pointers clear their slot.
func (r *DependencyRegistry) Set(vars ...any) {
	if len(vars) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range vars {
		if v == nil {
			log.Warn().Msg("ignoring nil value passed to set")
			continue
		}

		rv := reflect.ValueOf(v)
		rt := rv.Type()

		if rv.Kind() == reflect.Map && rt.Name() == "" {
			log.Error().Str("type", rt.String()).Msgf("%s", ErrUnsupportedMapValueType)
			continue
		}

		if isNilValue(rv) {
			if _, exists := r.store[rt]; exists {
				delete(r.store, rt)
				log.Debug().Str("type", rt.String()).Msg("service slot cleared")
			}
			continue
		}

		if _, exists := r.store[rt]; exists {
			log.Debug().Str("type", rt.String()).Msg("replacing service slot")
		}
		r.store[rt] = dependencyHolder{
			value:       v,
			reflectType: rt,
			reflectVal:  rv,
		}
		log.Debug().Str("type", rt.String()).Msg("service slot set")
	}
}

// Delete clears the slot keyed by the concrete type of sample.
// It reports whether a slot was cleared.
func (r *DependencyRegistry) Delete(sample any) bool {
	if sample == nil {
		return false
	}
	rt := reflect.TypeOf(sample)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store[rt]; !exists {
		return false
	}
	delete(r.store, rt)
	return true
}

// Get assigns registered values to the target pointers.
// Exact type matches win; an interface target falls back to the single
// registered type that implements it.
func (r *DependencyRegistry) Get(targets ...any) error {
	if len(targets) == 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.resolveTargets(targets)
}

// MustGet is like Get but panics when a target cannot be resolved.
func (r *DependencyRegistry) MustGet(targets ...any) {
	if err := r.Get(targets...); err != nil {
		log.Panic().Err(err).Msg("failed to get required dependencies")
	}
}

// Has reports whether the slot for sample's concrete type is filled.
func (r *DependencyRegistry) Has(sample any) bool {
	if sample == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.store[reflect.TypeOf(sample)]
	return ok
}

// Len returns the number of filled slots.
func (r *DependencyRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store)
}

// Types lists the filled slots, sorted by type name.
func (r *DependencyRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.store))
	for t := range r.store {
		names = append(names, t.String())
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent registry with the same slots.
// A nil receiver yields an empty registry.
func (r *DependencyRegistry) Clone() *DependencyRegistry {
	c := New()
	if r == nil {
		return c
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for t, h := range r.store {
		c.store[t] = h
	}
	return c
}

// Resolve fetches a single service of type T from r.
func Resolve[T any](r *DependencyRegistry) (T, error) {
	var target T
	if r == nil {
		return target, fmt.Errorf("%w: registry is nil", ErrDependencyNotFound)
	}
	err := r.Get(&target)
	return target, err
}

// resolveTargets must be called with the read lock held.
func (r *DependencyRegistry) resolveTargets(targets []any) error {
	var missing []reflect.Type

	for _, target := range targets {
		targetVal := reflect.ValueOf(target)
		if targetVal.Kind() != reflect.Ptr || targetVal.IsNil() {
			return fmt.Errorf("%w: received %T", ErrInvalidTargetType, target)
		}

		targetElem := targetVal.Elem()
		targetType := targetElem.Type()

		holder, err := r.findDependencyByType(targetType)
		if err != nil {
			if errors.Is(err, ErrDependencyNotFound) {
				missing = append(missing, targetType)
				continue
			}
			return err
		}

		if !holder.reflectType.AssignableTo(targetType) {
			log.Error().Str("targetType", targetType.String()).Str("foundType", holder.reflectType.String()).Msg("type mismatch during assignment check")
			return fmt.Errorf("found dependency type %s is not assignable to target type %s", holder.reflectType, targetType)
		}
		if !targetElem.CanSet() {
			return fmt.Errorf("cannot set target value for type %s", targetType)
		}
		targetElem.Set(holder.reflectVal)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing types %v", ErrDependencyNotFound, missing)
	}
	return nil
}

// findDependencyByType must be called with the read lock held.
func (r *DependencyRegistry) findDependencyByType(targetType reflect.Type) (dependencyHolder, error) {
	if holder, found := r.store[targetType]; found {
		return holder, nil
	}

	if targetType.Kind() == reflect.Interface {
		var foundHolder dependencyHolder
		var foundCount int

		for _, holder := range r.store {
			if holder.reflectType.Implements(targetType) {
				foundHolder = holder
				foundCount++
			}
		}

		if foundCount == 1 {
			return foundHolder, nil
		}
		if foundCount > 1 {
			log.Error().Str("interface", targetType.String()).Int("count", foundCount).Msg("multiple implementations found for interface")
			return dependencyHolder{}, fmt.Errorf("%w: interface %s has %d implementations registered", ErrAmbiguousInterface, targetType, foundCount)
		}
	}

	return dependencyHolder{}, ErrDependencyNotFound
}

func isNilValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Func, reflect.Chan, reflect.Slice, reflect.Map:
		return rv.IsNil()
	}
	return false
}

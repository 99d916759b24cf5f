package factory

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ErrUnknownType is returned when no factory is registered for a reference.
var ErrUnknownType = errors.New("unknown type")

// ModuleConfig contains the type name and raw configuration for a component.
type ModuleConfig struct {
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`
}

// Factory constructs an implementation of T using the provided raw config.
type Factory[T any] func(map[string]any) (T, error)

// Registry stores factories of type F keyed by reference.
type Registry[F any] struct {
	mu        sync.RWMutex
	factories map[string]F
}

// NewRegistry returns an empty factory registry.
func NewRegistry[F any]() *Registry[F] {
	return &Registry[F]{factories: make(map[string]F)}
}

// Register adds a factory for the given reference.
func (r *Registry[F]) Register(name string, f F) error {
	if name == "" {
		return errors.New("factory name is empty")
	}
	if isNil(f) {
		return fmt.Errorf("factory nil for %s", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("factory already registered for %s", name)
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory registered under name.
func (r *Registry[F]) Lookup(name string) (F, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero F
		return zero, fmt.Errorf("%w %q", ErrUnknownType, name)
	}
	return f, nil
}

// Names lists every registered reference in sorted order.
func (r *Registry[F]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Create instantiates a component based on its configuration.
func Create[T any](r *Registry[Factory[T]], cfg ModuleConfig) (T, error) {
	f, err := r.Lookup(cfg.Type)
	if err != nil {
		var zero T
		return zero, err
	}
	return f(cfg.Conf)
}

// Decode fills out the provided struct using json tags. Loosely typed input
// such as "true" for a bool field or "24" for an int field is accepted.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Interface, reflect.Chan, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

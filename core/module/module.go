package module

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/modai/core/factory"
)

// ErrMissingDependency is returned by Require when an alias is not present.
var ErrMissingDependency = errors.New("missing module dependency")

// Module is any live instance returned by a Constructor.
type Module interface{}

// Constructor builds a module from its resolved dependencies and nested config.
// Returning an error, panicking or returning a nil Module all count as a failed
// construction.
type Constructor func(deps Dependencies, conf map[string]any) (Module, error)

// WebModule is implemented by modules exposing HTTP routes.
type WebModule interface {
	RegisterRoutes(r chi.Router)
}

// Dependencies is an immutable alias to module mapping handed to a Constructor.
type Dependencies struct {
	modules map[string]Module
}

// NewDependencies copies m into a new snapshot.
func NewDependencies(m map[string]Module) Dependencies {
	cp := make(map[string]Module, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Dependencies{modules: cp}
}

// Get returns the module registered under alias.
func (d Dependencies) Get(alias string) (Module, bool) {
	m, ok := d.modules[alias]
	return m, ok
}

// Len returns the number of resolved dependencies.
func (d Dependencies) Len() int { return len(d.modules) }

// Aliases returns the aliases in sorted order.
func (d Dependencies) Aliases() []string {
	out := make([]string, 0, len(d.modules))
	for k := range d.modules {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Require returns the dependency registered under alias as a T.
func Require[T any](d Dependencies, alias string) (T, error) {
	var zero T
	m, ok := d.Get(alias)
	if !ok || m == nil {
		return zero, fmt.Errorf("%w: %q", ErrMissingDependency, alias)
	}
	v, ok := m.(T)
	if !ok {
		return zero, fmt.Errorf("module dependency %q has unexpected type %T", alias, m)
	}
	return v, nil
}

// Decode fills out with the nested module config using json tags.
func Decode(conf map[string]any, out any) error {
	if err := factory.Decode(conf, out); err != nil {
		return fmt.Errorf("decode module config: %w", err)
	}
	return nil
}

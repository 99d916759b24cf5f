package loader

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/modai/core/logger"
	"github.com/kilianp07/modai/core/metrics"
	"github.com/kilianp07/modai/core/module"
)

// Resolver maps an implementation reference to a constructor.
// *factory.Registry[module.Constructor] satisfies it.
type Resolver interface {
	Lookup(ref string) (module.Constructor, error)
}

// Entry is a registered module together with its name.
type Entry struct {
	Name   string
	Module module.Module
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for load decisions.
func WithLogger(l logger.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithMetrics sets the sink notified of every load decision.
func WithMetrics(s metrics.Sink) Option {
	return func(ld *Loader) {
		if s != nil {
			ld.sink = s
		}
	}
}

// Loader instantiates modules in dependency order and keeps the resulting
// registry. Load is meant to run once before the registry is read; reads are
// not synchronized.
type Loader struct {
	descriptors []Descriptor
	resolver    Resolver
	log         logger.Logger
	sink        metrics.Sink
	now         func() time.Time

	loaded    bool
	order     []string
	instances map[string]module.Module
	outcomes  []Outcome
}

// New creates a Loader for the given descriptors. Declaration order is kept
// and only affects the order of log lines and of the registry.
func New(descs []Descriptor, resolver Resolver, opts ...Option) *Loader {
	l := &Loader{
		descriptors: append([]Descriptor(nil), descs...),
		resolver:    resolver,
		log:         logger.Nop{},
		sink:        metrics.NopSink{},
		now:         time.Now,
		instances:   make(map[string]module.Module),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves and instantiates every enabled module. Per-module failures
// are logged and recorded in Outcomes, never returned. Only a second call
// returns an error.
func (l *Loader) Load() error {
	if l.loaded {
		l.log.Warnf("Modules already loaded, ignoring repeated load")
		return ErrAlreadyLoaded
	}
	l.loaded = true
	start := l.now()

	remaining := l.enabled()
	pass := 0
	for len(remaining) > 0 {
		pass++
		before := len(remaining)
		l.log.Debugw("resolution pass", map[string]any{"pass": pass, "remaining": before})
		remaining = l.resolvePass(remaining, pass)
		if len(remaining) == before {
			l.markUnresolvable(remaining, pass)
			break
		}
	}
	l.recordResolution(pass, l.now().Sub(start))
	return nil
}

// Module returns the registered instance for name.
func (l *Loader) Module(name string) (module.Module, bool) {
	m, ok := l.instances[name]
	return m, ok
}

// WebModules returns the registered modules exposing HTTP routes in registry order.
func (l *Loader) WebModules() []module.WebModule {
	var out []module.WebModule
	for _, name := range l.order {
		if wm, ok := l.instances[name].(module.WebModule); ok {
			out = append(out, wm)
		}
	}
	return out
}

// Modules returns every registered module in registry order.
func (l *Loader) Modules() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, Entry{Name: name, Module: l.instances[name]})
	}
	return out
}

// Outcomes returns the decision taken for every descriptor, in decision order.
func (l *Loader) Outcomes() []Outcome {
	return append([]Outcome(nil), l.outcomes...)
}

// enabled normalizes the descriptors and drops disabled and duplicate entries.
func (l *Loader) enabled() []Descriptor {
	seen := make(map[string]bool, len(l.descriptors))
	out := make([]Descriptor, 0, len(l.descriptors))
	for _, d := range l.descriptors {
		if seen[d.Name] {
			l.log.Errorf("Failed to load module %s: %v", d.Name, ErrDuplicateModule)
			l.record(Outcome{Name: d.Name, Class: d.Class, Status: StatusFailed, Err: ErrDuplicateModule}, 0)
			continue
		}
		seen[d.Name] = true
		if !d.IsEnabled() {
			l.log.Infof("Module '%s' is disabled, skipping", d.Name)
			l.record(Outcome{Name: d.Name, Class: d.Class, Status: StatusDisabled}, 0)
			continue
		}
		out = append(out, d.normalized())
	}
	return out
}

// resolvePass attempts every descriptor whose dependencies are registered and
// returns the ones still waiting. Readiness is checked against the live
// registry so a module may depend on one loaded earlier in the same pass.
func (l *Loader) resolvePass(remaining []Descriptor, pass int) []Descriptor {
	var waiting []Descriptor
	for _, d := range remaining {
		deps, ok := l.dependencies(d)
		if !ok {
			waiting = append(waiting, d)
			continue
		}
		l.loadModule(d, deps, pass)
	}
	return waiting
}

func (l *Loader) dependencies(d Descriptor) (module.Dependencies, bool) {
	resolved := make(map[string]module.Module, len(d.Dependencies))
	for alias, name := range d.Dependencies {
		m, ok := l.instances[name]
		if !ok {
			return module.Dependencies{}, false
		}
		resolved[alias] = m
	}
	return module.NewDependencies(resolved), true
}

func (l *Loader) loadModule(d Descriptor, deps module.Dependencies, pass int) {
	start := l.now()
	inst, err := l.construct(d, deps)
	elapsed := l.now().Sub(start)
	if err != nil {
		l.log.Errorf("Failed to load module %s: %v", d.Name, err)
		l.record(Outcome{Name: d.Name, Class: d.Class, Status: StatusFailed, Err: err, Pass: pass}, elapsed)
		return
	}
	l.order = append(l.order, d.Name)
	l.instances[d.Name] = inst
	l.log.Infof("Successfully loaded module: %s", d.Name)
	l.record(Outcome{Name: d.Name, Class: d.Class, Status: StatusLoaded, Pass: pass}, elapsed)
}

func (l *Loader) construct(d Descriptor, deps module.Dependencies) (m module.Module, err error) {
	if strings.TrimSpace(d.Class) == "" {
		return nil, ErrNoImplementation
	}
	if l.resolver == nil {
		return nil, fmt.Errorf("resolve class %q: no resolver configured", d.Class)
	}
	ctor, err := l.resolver.Lookup(d.Class)
	if err != nil {
		return nil, fmt.Errorf("resolve class %q: %w", d.Class, err)
	}
	if ctor == nil {
		return nil, fmt.Errorf("resolve class %q: nil constructor", d.Class)
	}
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	m, err = ctor(deps, d.Config)
	if err != nil {
		return nil, err
	}
	if isNil(m) {
		return nil, ErrNilInstance
	}
	return m, nil
}

func (l *Loader) markUnresolvable(stuck []Descriptor, pass int) {
	names := make([]string, len(stuck))
	for i, d := range stuck {
		names[i] = d.Name
	}
	l.log.Errorf("Unresolvable module dependencies for modules: %v", names)
	for _, d := range stuck {
		l.record(Outcome{
			Name:   d.Name,
			Class:  d.Class,
			Status: StatusUnresolvable,
			Err:    fmt.Errorf("%w: waiting on %s", ErrUnresolvable, l.missing(d)),
			Pass:   pass,
		}, 0)
	}
}

// missing lists the dependency names of d that are not registered.
func (l *Loader) missing(d Descriptor) string {
	var names []string
	for _, name := range d.Dependencies {
		if _, ok := l.instances[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func (l *Loader) record(o Outcome, elapsed time.Duration) {
	l.outcomes = append(l.outcomes, o)
	ev := metrics.ModuleLoadEvent{
		Module:   o.Name,
		Class:    o.Class,
		Status:   o.Status.String(),
		Pass:     o.Pass,
		Duration: elapsed,
		Time:     l.now(),
	}
	if err := l.sink.RecordModuleLoad(ev); err != nil {
		l.log.Warnf("record module load %s: %v", o.Name, err)
	}
}

func (l *Loader) recordResolution(passes int, elapsed time.Duration) {
	rec, ok := l.sink.(metrics.ResolutionRecorder)
	if !ok {
		return
	}
	ev := metrics.ResolutionEvent{Passes: passes, Duration: elapsed}
	for _, o := range l.outcomes {
		switch o.Status {
		case StatusLoaded:
			ev.Loaded++
		case StatusDisabled:
			ev.Disabled++
		case StatusFailed:
			ev.Failed++
		case StatusUnresolvable:
			ev.Unresolvable++
		}
	}
	if err := rec.RecordResolution(ev); err != nil {
		l.log.Warnf("record resolution: %v", err)
	}
}

func isNil(m module.Module) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}

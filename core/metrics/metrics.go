package metrics

import "time"

// ModuleLoadEvent describes the fate of one module during a load run.
type ModuleLoadEvent struct {
	Module string
	Class  string
	// Status is one of loaded, disabled, failed or unresolvable.
	Status   string
	Pass     int
	Duration time.Duration
	Time     time.Time
}

// ResolutionEvent summarises a complete load run.
type ResolutionEvent struct {
	Passes       int
	Loaded       int
	Disabled     int
	Failed       int
	Unresolvable int
	Duration     time.Duration
}

// Sink records module load events for observability purposes.
type Sink interface {
	RecordModuleLoad(ev ModuleLoadEvent) error
}

// ResolutionRecorder records the summary of a load run.
type ResolutionRecorder interface {
	RecordResolution(ev ResolutionEvent) error
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordModuleLoad(ModuleLoadEvent) error { return nil }
func (NopSink) RecordResolution(ResolutionEvent) error { return nil }

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordModuleLoad forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordModuleLoad(ev ModuleLoadEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordModuleLoad(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordResolution forwards the summary to sinks supporting it.
func (m *MultiSink) RecordResolution(ev ResolutionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ResolutionRecorder); ok {
			if err := rec.RecordResolution(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

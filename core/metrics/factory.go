package metrics

import "github.com/kilianp07/modai/core/factory"

var sinkRegistry = factory.NewRegistry[factory.Factory[Sink]]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[Sink]) error {
	return sinkRegistry.Register(name, f)
}

// NewMetricsSink creates a Sink from the provided configuration.
func NewMetricsSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return factory.Create(sinkRegistry, cfgs[0])
	}
	sinks := make([]Sink, len(cfgs))
	for i, c := range cfgs {
		s, err := factory.Create(sinkRegistry, c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}

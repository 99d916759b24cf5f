package metrics

import (
	coremetrics "github.com/kilianp07/modai/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records module load events in Prometheus metrics.
type PromSink struct {
	loads      *prometheus.CounterVec
	construct  *prometheus.HistogramVec
	registered prometheus.Gauge
	passes     prometheus.Gauge
}

// NewPromSink registers loader metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	loads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "modai_module_loads_total",
		Help: "Module load decisions by module and status",
	}, []string{"module", "status"})
	construct := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "modai_module_construct_seconds",
		Help:    "Time spent in module constructors",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})
	registered := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modai_modules_registered",
		Help: "Number of modules registered by the last load run",
	})
	passes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "modai_module_resolution_passes",
		Help: "Number of dependency resolution passes of the last load run",
	})

	var err error
	if loads, err = register(reg, loads); err != nil {
		return nil, err
	}
	if construct, err = register(reg, construct); err != nil {
		return nil, err
	}
	if registered, err = register(reg, registered); err != nil {
		return nil, err
	}
	if passes, err = register(reg, passes); err != nil {
		return nil, err
	}
	return &PromSink{loads: loads, construct: construct, registered: registered, passes: passes}, nil
}

// register returns the already registered collector when c was registered before.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordModuleLoad increments the counter for the decision and observes
// constructor time for attempted modules.
func (s *PromSink) RecordModuleLoad(ev coremetrics.ModuleLoadEvent) error {
	s.loads.WithLabelValues(ev.Module, ev.Status).Inc()
	if ev.Status == "loaded" || ev.Status == "failed" {
		s.construct.WithLabelValues(ev.Module).Observe(ev.Duration.Seconds())
	}
	return nil
}

// RecordResolution sets the run gauges.
func (s *PromSink) RecordResolution(ev coremetrics.ResolutionEvent) error {
	s.registered.Set(float64(ev.Loaded))
	s.passes.Set(float64(ev.Passes))
	return nil
}

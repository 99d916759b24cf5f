package metrics

// Package metrics defines the sinks that observe module loading. A Sink is
// told about every per-module decision the loader makes; sinks that also
// implement ResolutionRecorder receive a summary once the run is over. Sinks
// are built from configuration through NewMetricsSink, which returns a
// MultiSink automatically when several sinks are configured.

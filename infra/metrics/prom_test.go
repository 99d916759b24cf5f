package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/modai/core/metrics"
)

func TestPromSink_RecordModuleLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordModuleLoad(coremetrics.ModuleLoadEvent{Module: "health", Status: "loaded", Duration: time.Millisecond}))
	require.NoError(t, sink.RecordModuleLoad(coremetrics.ModuleLoadEvent{Module: "chat", Status: "unresolvable"}))
	require.NoError(t, sink.RecordResolution(coremetrics.ResolutionEvent{Passes: 2, Loaded: 1, Unresolvable: 1}))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.loads.WithLabelValues("health", "loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.loads.WithLabelValues("chat", "unresolvable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.registered))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.passes))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.construct))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, first.RecordModuleLoad(coremetrics.ModuleLoadEvent{Module: "user", Status: "failed"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(second.loads.WithLabelValues("user", "failed")))
}

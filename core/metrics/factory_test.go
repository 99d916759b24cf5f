package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/modai/core/factory"
	metrics "github.com/kilianp07/modai/core/metrics"
	_ "github.com/kilianp07/modai/infra/metrics"
)

/*
TestMetricsFactory_Builtins verifies registration via infra/metrics/factory.go.

	Cases:
	- no configuration yields the nop sink
	- instantiate builtin nop sink
	- several sinks are wrapped in a MultiSink
	- unknown type returns error
*/
func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.NotNil(t, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, &metrics.MultiSink{}, s)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.Error(t, err)
}

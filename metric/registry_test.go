package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorukardahan/domain-search-mcp-sub000/errors"
)

func TestNewMetricsRegistryHasCoreMetrics(t *testing.T) {
	r := NewMetricsRegistry()
	require.NotNil(t, r.CoreMetrics())
	require.NotNil(t, r.PrometheusRegistry())

	// Core metrics must be usable immediately.
	r.CoreMetrics().LookupsTotal.WithLabelValues("rdap", "available").Inc()
	r.CoreMetrics().BreakerState.WithLabelValues("godaddy").Set(2)

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["domainsearch_lookups_total"])
	assert.True(t, names["domainsearch_breaker_state"])
}

func TestRegisterAndUnregisterCounter(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "test",
	})

	require.NoError(t, r.RegisterCounter("resolver", "test_counter", counter))

	// Duplicate key is rejected as invalid, not fatal.
	err := r.RegisterCounter("resolver", "test_counter", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	assert.True(t, r.Unregister("resolver", "test_counter"))
	assert.False(t, r.Unregister("resolver", "test_counter"))
}

func TestRegisterGaugeVec(t *testing.T) {
	r := NewMetricsRegistry()

	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_depth",
		Help: "test",
	}, []string{"key"})

	require.NoError(t, r.RegisterGaugeVec("limiter", "test_depth", gv))
	gv.WithLabelValues("godaddy").Set(3)

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "test_depth" {
			found = true
		}
	}
	assert.True(t, found)
}

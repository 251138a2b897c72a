package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// A single shared client avoids double-registering the same collector
// names against Prometheus's default registry, which panics.
var sharedTestMetricsClient = NewPrometheusMetricsClient("cag_test", "metrics")

func TestPrometheusMetricsClient_IncCounterIsObservable(t *testing.T) {
	client := sharedTestMetricsClient

	client.IncCounter("queries_total", map[string]string{"cache_hit": "true"})
	client.IncCounter("queries_total", map[string]string{"cache_hit": "true"})

	counter := client.getCounter("queries_total", []string{"cache_hit"}).WithLabelValues("true")
	assert.Equal(t, float64(2), testutil.ToFloat64(counter))
}

func TestPrometheusMetricsClient_SetGaugeIsObservable(t *testing.T) {
	client := sharedTestMetricsClient

	client.SetGauge("cached_knowledge_items", 42, map[string]string{"layer": "system"})

	gauge := client.getGauge("cached_knowledge_items", []string{"layer"}).WithLabelValues("system")
	assert.Equal(t, float64(42), testutil.ToFloat64(gauge))
}

func TestNoopMetricsClient_DiscardsEverything(t *testing.T) {
	var client MetricsClient = NewNoopMetricsClient()
	assert.NotPanics(t, func() {
		client.IncCounter("x", nil)
		client.ObserveHistogram("x", 1.0, nil)
		client.SetGauge("x", 1.0, nil)
	})
}

package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsClient is the narrow metrics contract the engine depends on.
// It is deliberately smaller than PerformanceMetrics: the plain struct
// in pkg/models is the record returned to callers, while this
// interface is how the engine publishes the same numbers to
// Prometheus for scraping.
type MetricsClient interface {
	IncCounter(name string, labels map[string]string)
	ObserveHistogram(name string, seconds float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

// PrometheusMetricsClient registers a small, fixed set of CAG-specific
// collectors under the given namespace/subsystem.
type PrometheusMetricsClient struct {
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	gauges     map[string]*prometheus.GaugeVec
	namespace  string
	subsystem  string
}

// NewPrometheusMetricsClient constructs and registers the CAG metric set.
func NewPrometheusMetricsClient(namespace, subsystem string) *PrometheusMetricsClient {
	c := &PrometheusMetricsClient{
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		namespace:  namespace,
		subsystem:  subsystem,
	}
	c.getCounter("queries_total", []string{"cache_hit"})
	c.getCounter("tool_calls_total", []string{"tool", "outcome"})
	c.getHistogram("query_duration_seconds", []string{"phase"})
	c.getGauge("cached_knowledge_items", []string{"layer"})
	return c
}

func (c *PrometheusMetricsClient) getCounter(name string, labels []string) *prometheus.CounterVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.counters[name]; ok {
		return v
	}
	v := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
	}, labels)
	c.counters[name] = v
	return v
}

func (c *PrometheusMetricsClient) getHistogram(name string, labels []string) *prometheus.HistogramVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.histograms[name]; ok {
		return v
	}
	v := promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
		Buckets:   prometheus.DefBuckets,
	}, labels)
	c.histograms[name] = v
	return v
}

func (c *PrometheusMetricsClient) getGauge(name string, labels []string) *prometheus.GaugeVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.gauges[name]; ok {
		return v
	}
	v := promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Subsystem: c.subsystem,
		Name:      name,
	}, labels)
	c.gauges[name] = v
	return v
}

func (c *PrometheusMetricsClient) IncCounter(name string, labels map[string]string) {
	names, values := splitLabels(labels)
	c.getCounter(name, names).WithLabelValues(values...).Inc()
}

func (c *PrometheusMetricsClient) ObserveHistogram(name string, seconds float64, labels map[string]string) {
	names, values := splitLabels(labels)
	c.getHistogram(name, names).WithLabelValues(values...).Observe(seconds)
}

func (c *PrometheusMetricsClient) SetGauge(name string, value float64, labels map[string]string) {
	names, values := splitLabels(labels)
	c.getGauge(name, names).WithLabelValues(values...).Set(value)
}

func splitLabels(labels map[string]string) ([]string, []string) {
	names := make([]string, 0, len(labels))
	values := make([]string, 0, len(labels))
	for k, v := range labels {
		names = append(names, k)
		values = append(values, v)
	}
	return names, values
}

// NoopMetricsClient discards everything; used in tests and anywhere
// Prometheus registration would collide (e.g. repeated construction in
// a single test binary).
type NoopMetricsClient struct{}

// NewNoopMetricsClient returns a MetricsClient that discards everything.
func NewNoopMetricsClient() NoopMetricsClient { return NoopMetricsClient{} }

func (NoopMetricsClient) IncCounter(string, map[string]string)            {}
func (NoopMetricsClient) ObserveHistogram(string, float64, map[string]string) {}
func (NoopMetricsClient) SetGauge(string, float64, map[string]string)     {}

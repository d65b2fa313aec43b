package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsClient is the instrumentation surface for the ring, the per-server
// pipeline and the migration routines. Counter/gauge names are free-form;
// docring's own call sites use a consistent docring_* naming convention.
type MetricsClient interface {
	IncrementCounter(name string, labels map[string]string, value float64)
	SetGauge(name string, labels map[string]string, value float64)
	Registry() *prometheus.Registry
}

// PrometheusMetricsClient is the default MetricsClient, backed by
// client_golang. Every counter/gauge is created lazily and keyed by name
// alone, so call sites don't need to pre-register metrics; the label names
// of the first call for a name fix that metric's label set.
type PrometheusMetricsClient struct {
	registry *prometheus.Registry

	mu      sync.Mutex
	gauges  map[string]*prometheus.GaugeVec
	counter map[string]*prometheus.CounterVec
}

// NewPrometheusMetricsClient creates a metrics client with its own
// registry (so tests and multiple server instances don't collide on the
// default global registry).
func NewPrometheusMetricsClient() *PrometheusMetricsClient {
	return &PrometheusMetricsClient{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]*prometheus.GaugeVec),
		counter:  make(map[string]*prometheus.CounterVec),
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

func (c *PrometheusMetricsClient) counterVec(name string, labels map[string]string) *prometheus.CounterVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	cv, ok := c.counter[name]
	if !ok {
		cv = promauto.With(c.registry).NewCounterVec(prometheus.CounterOpts{
			Name: name,
			Help: "docring counter " + name,
		}, labelNames(labels))
		c.counter[name] = cv
	}
	return cv
}

func (c *PrometheusMetricsClient) gaugeVec(name string, labels map[string]string) *prometheus.GaugeVec {
	c.mu.Lock()
	defer c.mu.Unlock()
	gv, ok := c.gauges[name]
	if !ok {
		gv = promauto.With(c.registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: name,
			Help: "docring gauge " + name,
		}, labelNames(labels))
		c.gauges[name] = gv
	}
	return gv
}

// IncrementCounter adds value to the named counter.
func (c *PrometheusMetricsClient) IncrementCounter(name string, labels map[string]string, value float64) {
	c.counterVec(name, labels).With(labels).Add(value)
}

// SetGauge sets the named gauge to value.
func (c *PrometheusMetricsClient) SetGauge(name string, labels map[string]string, value float64) {
	c.gaugeVec(name, labels).With(labels).Set(value)
}

// Registry exposes the underlying registry for the admin HTTP handler.
func (c *PrometheusMetricsClient) Registry() *prometheus.Registry { return c.registry }

// NoopMetricsClient discards everything; used by tests and by callers that
// never configured metrics.
type NoopMetricsClient struct{}

func (NoopMetricsClient) IncrementCounter(string, map[string]string, float64) {}
func (NoopMetricsClient) SetGauge(string, map[string]string, float64)         {}
func (NoopMetricsClient) Registry() *prometheus.Registry                     { return nil }

var _ MetricsClient = NoopMetricsClient{}
var _ MetricsClient = (*PrometheusMetricsClient)(nil)

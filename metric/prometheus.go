package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/nanovdb"
)

var _ nanovdb.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements nanovdb.MetricsCollector with Prometheus
// counters and histograms.
type PrometheusCollector struct {
	opLatency    *prometheus.HistogramVec
	ops          *prometheus.CounterVec
	upserted     prometheus.Counter
	removed      prometheus.Counter
	queryResults prometheus.Histogram
	evictions    *prometheus.CounterVec
}

// NewPrometheusCollector creates the metrics under namespace and registers
// them with reg. A nil reg selects prometheus.DefaultRegisterer.
func NewPrometheusCollector(namespace string, reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of store operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total store operations",
		}, []string{"op", "status"}),
		upserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upserted_records_total",
			Help:      "Total records accepted by upserts",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removed_records_total",
			Help:      "Total records removed",
		}),
		queryResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_results",
			Help:      "Number of results returned per query",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_evictions_total",
			Help:      "Total tenant evictions",
		}, []string{"status"}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.ops, c.upserted, c.removed, c.queryResults, c.evictions} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *PrometheusCollector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordUpsert implements nanovdb.MetricsCollector.
func (c *PrometheusCollector) RecordUpsert(count int, d time.Duration, err error) {
	c.observe("upsert", d, err)
	if err == nil {
		c.upserted.Add(float64(count))
	}
}

// RecordQuery implements nanovdb.MetricsCollector.
func (c *PrometheusCollector) RecordQuery(_, results int, d time.Duration, err error) {
	c.observe("query", d, err)
	if err == nil {
		c.queryResults.Observe(float64(results))
	}
}

// RecordRemove implements nanovdb.MetricsCollector.
func (c *PrometheusCollector) RecordRemove(count int, d time.Duration) {
	c.observe("remove", d, nil)
	c.removed.Add(float64(count))
}

// RecordSave implements nanovdb.MetricsCollector.
func (c *PrometheusCollector) RecordSave(d time.Duration, err error) {
	c.observe("save", d, err)
}

// RecordLoad implements nanovdb.MetricsCollector.
func (c *PrometheusCollector) RecordLoad(d time.Duration, err error) {
	c.observe("load", d, err)
}

// RecordEviction implements nanovdb.MetricsCollector.
func (c *PrometheusCollector) RecordEviction(d time.Duration, err error) {
	c.observe("evict", d, err)
	c.evictions.WithLabelValues(status(err)).Inc()
}

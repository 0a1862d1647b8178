// Package metric exports nanovdb operation metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, _ := metric.NewPrometheusCollector("nanovdb", reg)
//	db, _ := nanovdb.Open(ctx, 128, distance.MetricCosine, "db.json", nanovdb.WithMetricsCollector(mc))
package metric

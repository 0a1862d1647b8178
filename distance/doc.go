// Package distance provides the distance functions used to rank vectors.
//
// # Supported Metrics
//
//   - MetricL2: squared Euclidean distance
//   - MetricCosine: 1 - cosine similarity; vectors are unit-normalized first
//
// Every metric maps onto a score where higher is better (see Metric.Score),
// so ranking logic is the same regardless of the configured metric.
//
// # Usage
//
//	fn, _ := distance.Provider(distance.MetricCosine)
//	d := fn(a, b)
//	score := distance.MetricCosine.Score(d)
package distance

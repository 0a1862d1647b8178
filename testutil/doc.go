// Package testutil provides testing utilities for nanovdb.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UniformVectors(100, 128) // uniform [0, 1)
//	recs := rng.Records(100, 128)        // ids "rec-0000", ...
//
// # Deterministic Tenant IDs
//
//	gen := nanovdb.UUIDGenerator(testutil.NewReader(seed))
//
// # Exact Search (Ground Truth)
//
//	ids := testutil.ExactTopK(query, recs, k, distance.MetricCosine)
package testutil

package testutil

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/nanovdb/distance"
	"github.com/hupe1980/nanovdb/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), //nolint:gosec // deterministic test data
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float32 {
	return r.vectors(num, dimensions, func() float32 { return r.rand.Float32() })
}

// UniformRangeVectors generates random vectors with values in range [-1, 1).
func (r *RNG) UniformRangeVectors(num int, dimensions int) [][]float32 {
	return r.vectors(num, dimensions, func() float32 { return r.rand.Float32()*2 - 1 })
}

// GaussianVectors generates random vectors with values from a standard normal distribution.
func (r *RNG) GaussianVectors(num int, dimensions int) [][]float32 {
	return r.vectors(num, dimensions, func() float32 { return float32(r.rand.NormFloat64()) })
}

func (r *RNG) vectors(num, dimensions int, next func() float32) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = next()
		}
		vectors[i] = vec
	}

	return vectors
}

// Records generates labeled records with vectors in range [-1, 1).
// IDs are "rec-0000", "rec-0001", ...
func (r *RNG) Records(num int, dimensions int) []model.Record {
	vecs := r.UniformRangeVectors(num, dimensions)
	recs := make([]model.Record, num)
	for i, v := range vecs {
		recs[i] = model.Record{ID: fmt.Sprintf("rec-%04d", i), Vector: v}
	}
	return recs
}

// ExactTopK returns the ids of the k records closest to query under metric,
// ranked best first with ties in input order. Vectors are compared as given.
func ExactTopK(query []float32, recs []model.Record, k int, metric distance.Metric) []string {
	fn, err := distance.Provider(metric)
	if err != nil {
		panic(err)
	}

	type scored struct {
		id    string
		score float32
	}
	all := make([]scored, len(recs))
	for i, rec := range recs {
		all[i] = scored{id: rec.ID, score: metric.Score(fn(query, rec.Vector))}
	}
	slices.SortStableFunc(all, func(a, b scored) int { return cmp.Compare(b.score, a.score) })

	ids := make([]string, 0, k)
	for _, s := range all[:min(k, len(all))] {
		ids = append(ids, s.id)
	}
	return ids
}

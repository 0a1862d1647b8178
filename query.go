package nanovdb

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/nanovdb/distance"
	"github.com/hupe1980/nanovdb/internal/conv"
)

// QueryResult is a record ranked by a query. Higher scores are better:
// cosine scores are the cosine similarity, L2 scores the negated distance.
type QueryResult struct {
	Record
	Score float32
}

// QueryOptions contains options for Query.
type QueryOptions struct {
	// Threshold drops results whose score is below it. Nil keeps all.
	Threshold *float32

	// Filter restricts candidates. It receives a copy of each record.
	Filter func(Record) bool
}

// QueryOption configures a query.
type QueryOption func(*QueryOptions)

// WithThreshold keeps only results scoring at least t.
func WithThreshold(t float32) QueryOption {
	return func(o *QueryOptions) {
		o.Threshold = &t
	}
}

// WithFilter restricts candidates to records accepted by fn.
func WithFilter(fn func(Record) bool) QueryOption {
	return func(o *QueryOptions) {
		o.Filter = fn
	}
}

type scored struct {
	row   int
	score float32
}

// Query returns up to topK records ranked by score. Ties keep store order.
func (s *Store) Query(ctx context.Context, vec []float32, topK int, optFns ...QueryOption) (results []QueryResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordQuery(topK, len(results), time.Since(start), err)
		s.logger.LogQuery(ctx, topK, len(results), err)
	}()

	if len(vec) != s.dim {
		return nil, &ErrDimensionMismatch{Expected: s.dim, Actual: len(vec)}
	}
	if topK <= 0 {
		return nil, ErrInvalidK
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var o QueryOptions
	for _, fn := range optFns {
		fn(&o)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := vec
	if s.metric.Normalizes() {
		if q, ok := distance.NormalizeL2Copy(vec); ok {
			query = q
		}
	}

	candidates, err := s.candidates(o.Filter)
	if err != nil {
		return nil, err
	}

	ranked := make([]scored, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		row := int(it.Next())
		ranked = append(ranked, scored{row: row, score: s.metric.Score(s.distFn(query, s.row(row)))})
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})
	ranked = ranked[:min(topK, len(ranked))]

	results = make([]QueryResult, 0, len(ranked))
	for _, c := range ranked {
		if o.Threshold != nil && c.score < *o.Threshold {
			break
		}
		results = append(results, QueryResult{Record: s.record(c.row), Score: c.score})
	}
	return results, nil
}

// candidates returns the rows accepted by filter. The caller must hold s.mu.
func (s *Store) candidates(filter func(Record) bool) (*roaring.Bitmap, error) {
	n := len(s.ids)
	if _, err := conv.IntToUint32(n); err != nil {
		return nil, err
	}

	bm := roaring.New()
	if filter == nil {
		bm.AddRange(0, uint64(n)) //nolint:gosec // n >= 0
		return bm, nil
	}

	for i := range n {
		if filter(s.record(i)) {
			bm.Add(uint32(i)) //nolint:gosec // bounded above
		}
	}
	return bm, nil
}

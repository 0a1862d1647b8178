package nanovdb

import (
	"context"
	"iter"
	"slices"
)

// Search creates a new fluent search builder for the given query vector.
//
// Example:
//
//	results, err := db.Search(query).
//	    TopK(10).
//	    Threshold(0.2).
//	    Execute(ctx)
//
//	// Or with streaming:
//	for result, err := range db.Search(query).TopK(100).Stream(ctx) {
//	    if err != nil { break }
//	    process(result)
//	}
func (s *Store) Search(query []float32) *SearchBuilder {
	return &SearchBuilder{
		store: s,
		query: query,
		k:     10, // Default k
	}
}

// SearchBuilder is a fluent builder for constructing queries.
type SearchBuilder struct {
	store *Store
	query []float32
	k     int
	opts  []QueryOption

	filters []func(Record) bool
}

// TopK sets the maximum number of results.
func (sb *SearchBuilder) TopK(k int) *SearchBuilder {
	sb.k = k
	return sb
}

// Threshold drops results scoring below t.
func (sb *SearchBuilder) Threshold(t float32) *SearchBuilder {
	sb.opts = append(sb.opts, WithThreshold(t))
	return sb
}

// Filter adds a filter function. Only records accepted by every filter
// are considered.
func (sb *SearchBuilder) Filter(fn func(Record) bool) *SearchBuilder {
	sb.filters = append(sb.filters, fn)
	return sb
}

// WhereID restricts candidates to the given ids. It combines with any
// other filter.
func (sb *SearchBuilder) WhereID(ids ...string) *SearchBuilder {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return sb.Filter(func(r Record) bool {
		_, ok := allowed[r.ID]
		return ok
	})
}

// Execute runs the search and returns the results.
func (sb *SearchBuilder) Execute(ctx context.Context) ([]QueryResult, error) {
	opts := sb.opts
	if len(sb.filters) > 0 {
		filters := sb.filters
		opts = append(slices.Clip(opts), WithFilter(func(r Record) bool {
			for _, fn := range filters {
				if !fn(r) {
					return false
				}
			}
			return true
		}))
	}
	return sb.store.Query(ctx, sb.query, sb.k, opts...)
}

// MustExecute runs the search, panicking on error.
// Use this only in tests or when you're certain the query is valid.
func (sb *SearchBuilder) MustExecute(ctx context.Context) []QueryResult {
	results, err := sb.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return results
}

// Stream returns an iterator over search results, best first.
// The iterator supports early termination by breaking from the loop.
func (sb *SearchBuilder) Stream(ctx context.Context) iter.Seq2[QueryResult, error] {
	return func(yield func(QueryResult, error) bool) {
		results, err := sb.Execute(ctx)
		if err != nil {
			yield(QueryResult{}, err)
			return
		}
		for _, r := range results {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// First returns only the best result, or ErrNoResults.
func (sb *SearchBuilder) First(ctx context.Context) (QueryResult, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return QueryResult{}, err
	}
	if len(results) == 0 {
		return QueryResult{}, ErrNoResults
	}
	return results[0], nil
}

// Count executes the search and returns the number of results.
func (sb *SearchBuilder) Count(ctx context.Context) (int, error) {
	results, err := sb.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(results), nil
}

// Exists checks if at least one result matches the search.
func (sb *SearchBuilder) Exists(ctx context.Context) (bool, error) {
	sb.k = 1
	results, err := sb.Execute(ctx)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
